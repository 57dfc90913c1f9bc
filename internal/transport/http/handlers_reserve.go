package http

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	authmodels "ledgergate/internal/authority/models"
	reservemodels "ledgergate/internal/reserve/models"
	reserveservice "ledgergate/internal/reserve/service"
	"ledgergate/internal/transport/httputil"
	"ledgergate/pkg/domain"
)

type attestationRequest struct {
	MerkleRoot   string     `json:"merkle_root"`
	ProofCID     string     `json:"proof_cid"`
	TotalReserve uint64     `json:"total_reserve"`
	IssuedSupply uint64     `json:"issued_supply"`
	AsOf         *time.Time `json:"as_of,omitempty"`
}

type attestationResponse struct {
	MerkleRoot   string    `json:"merkle_root"`
	ProofCID     string    `json:"proof_cid"`
	TotalReserve uint64    `json:"total_reserve"`
	IssuedSupply uint64    `json:"issued_supply"`
	AsOf         time.Time `json:"as_of"`
}

func attestationView(att *reservemodels.Attestation) attestationResponse {
	return attestationResponse{
		MerkleRoot:   att.Proof.MerkleRoot,
		ProofCID:     att.Proof.ProofCID,
		TotalReserve: att.TotalReserve,
		IssuedSupply: att.IssuedSupply,
		AsOf:         att.AsOf,
	}
}

func (h *handlers) updateAttestation(w http.ResponseWriter, r *http.Request) {
	var req attestationRequest
	if err := httputil.Decode(r, &req); err != nil {
		httputil.WriteError(w, err)
		return
	}
	update := reserveservice.UpdateRequest{
		Proof:        reservemodels.ProofRef{MerkleRoot: req.MerkleRoot, ProofCID: req.ProofCID},
		TotalReserve: req.TotalReserve,
		IssuedSupply: req.IssuedSupply,
	}
	if req.AsOf != nil {
		update.AsOf = *req.AsOf
	}
	att, err := h.svcs.Reserve.Update(r.Context(), caller(r), update)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, attestationView(att))
}

func (h *handlers) latestAttestation(w http.ResponseWriter, r *http.Request) {
	att, err := h.svcs.Reserve.Latest(r.Context())
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, attestationView(att))
}

// listAudit exposes a user's audit trail to authorities holding
// view_transactions.
func (h *handlers) listAudit(w http.ResponseWriter, r *http.Request) {
	user, err := domain.ParseUserID(chi.URLParam(r, "user"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	if err := h.svcs.Authority.RequirePower(r.Context(), caller(r), authmodels.PowerViewTransactions); err != nil {
		httputil.WriteError(w, err)
		return
	}
	events, err := h.svcs.Auditor.ListBySubject(r.Context(), user.String())
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, events)
}
