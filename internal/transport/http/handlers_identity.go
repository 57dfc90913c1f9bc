package http

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	idmodels "ledgergate/internal/identity/models"
	idservice "ledgergate/internal/identity/service"
	"ledgergate/internal/transport/httputil"
	"ledgergate/pkg/domain"
	dErrors "ledgergate/pkg/domain-errors"
)

type registerIdentityRequest struct {
	User             string `json:"user"`
	JurisdictionCode string `json:"jurisdiction_code"`
	BankRoutingCode  string `json:"bank_routing_code,omitempty"`
	AccountHash      string `json:"account_hash,omitempty"`
	Provider         string `json:"provider,omitempty"`
}

type identityResponse struct {
	User              string     `json:"user"`
	Status            string     `json:"status"`
	EffectiveStatus   string     `json:"effective_status"`
	VerificationLevel uint8      `json:"verification_level"`
	EffectiveLevel    uint8      `json:"effective_level"`
	VerifiedAt        *time.Time `json:"verified_at,omitempty"`
	ExpiresAt         *time.Time `json:"expires_at,omitempty"`
	JurisdictionCode  string     `json:"jurisdiction_code"`
	CreatedAt         time.Time  `json:"created_at"`
	UpdatedAt         time.Time  `json:"updated_at"`
}

func identityView(rec *idmodels.Record, now time.Time) identityResponse {
	resp := identityResponse{
		User:              rec.Owner.String(),
		Status:            string(rec.Status),
		EffectiveStatus:   string(rec.EffectiveStatus(now)),
		VerificationLevel: rec.VerificationLevel,
		EffectiveLevel:    rec.EffectiveLevel(now),
		JurisdictionCode:  rec.JurisdictionCode,
		CreatedAt:         rec.CreatedAt,
		UpdatedAt:         rec.UpdatedAt,
	}
	if !rec.VerifiedAt.IsZero() {
		t := rec.VerifiedAt
		resp.VerifiedAt = &t
	}
	if !rec.ExpiresAt.IsZero() {
		t := rec.ExpiresAt
		resp.ExpiresAt = &t
	}
	return resp
}

func (h *handlers) registerIdentity(w http.ResponseWriter, r *http.Request) {
	var req registerIdentityRequest
	if err := httputil.Decode(r, &req); err != nil {
		httputil.WriteError(w, err)
		return
	}
	user, err := domain.ParseUserID(req.User)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	rec, err := h.svcs.Identity.Register(r.Context(), idservice.RegisterRequest{
		User:             user,
		JurisdictionCode: req.JurisdictionCode,
		Metadata: idmodels.Metadata{
			BankRoutingCode: req.BankRoutingCode,
			AccountHash:     req.AccountHash,
			Provider:        req.Provider,
		},
	})
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusCreated, identityView(rec, time.Now()))
}

type setIdentityStatusRequest struct {
	User            string `json:"user"`
	Status          string `json:"status"`
	Level           uint8  `json:"level,omitempty"`
	ValiditySeconds int64  `json:"validity_seconds,omitempty"`
}

func (h *handlers) setIdentityStatus(w http.ResponseWriter, r *http.Request) {
	var req setIdentityStatusRequest
	if err := httputil.Decode(r, &req); err != nil {
		httputil.WriteError(w, err)
		return
	}
	user, err := domain.ParseUserID(req.User)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	status, err := idmodels.ParseStatus(req.Status)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	if req.ValiditySeconds < 0 {
		httputil.WriteError(w, dErrors.New(dErrors.CodeInvalidInput, "validity must not be negative"))
		return
	}
	rec, err := h.svcs.Identity.SetStatus(r.Context(), caller(r), idservice.SetStatusRequest{
		User:      user,
		NewStatus: status,
		Level:     req.Level,
		Validity:  time.Duration(req.ValiditySeconds) * time.Second,
	})
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, identityView(rec, time.Now()))
}

func (h *handlers) getIdentity(w http.ResponseWriter, r *http.Request) {
	user, err := domain.ParseUserID(chi.URLParam(r, "user"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	rec, err := h.svcs.Identity.Get(r.Context(), user)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, identityView(rec, time.Now()))
}

func (h *handlers) verifiedCount(w http.ResponseWriter, r *http.Request) {
	count, err := h.svcs.Identity.VerifiedUserCount(r.Context())
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, map[string]int64{"verified_users": count})
}
