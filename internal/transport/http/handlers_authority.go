package http

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	authmodels "ledgergate/internal/authority/models"
	authservice "ledgergate/internal/authority/service"
	"ledgergate/internal/transport/httputil"
	"ledgergate/pkg/domain"
)

type registerAuthorityRequest struct {
	Principal    string   `json:"principal"`
	AuthorityID  string   `json:"authority_id"`
	Institution  string   `json:"institution,omitempty"`
	Jurisdiction string   `json:"jurisdiction,omitempty"`
	Powers       []string `json:"powers"`
}

type authorityResponse struct {
	Principal    string     `json:"principal"`
	AuthorityID  string     `json:"authority_id"`
	Institution  string     `json:"institution,omitempty"`
	Jurisdiction string     `json:"jurisdiction,omitempty"`
	Powers       []string   `json:"powers"`
	Active       bool       `json:"active"`
	CreatedAt    time.Time  `json:"created_at"`
	LastActionAt *time.Time `json:"last_action_at,omitempty"`
}

func authorityView(rec *authmodels.Record) authorityResponse {
	resp := authorityResponse{
		Principal:    rec.Principal.String(),
		AuthorityID:  rec.AuthorityID,
		Institution:  rec.Institution,
		Jurisdiction: rec.Jurisdiction,
		Powers:       rec.Powers.Names(),
		Active:       rec.Active,
		CreatedAt:    rec.CreatedAt,
	}
	if !rec.LastActionAt.IsZero() {
		t := rec.LastActionAt
		resp.LastActionAt = &t
	}
	return resp
}

func (h *handlers) registerAuthority(w http.ResponseWriter, r *http.Request) {
	var req registerAuthorityRequest
	if err := httputil.Decode(r, &req); err != nil {
		httputil.WriteError(w, err)
		return
	}
	principal, err := domain.ParsePrincipalID(req.Principal)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	powers, err := authmodels.ParsePowers(req.Powers)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	rec, err := h.svcs.Authority.Register(r.Context(), caller(r), authservice.RegisterRequest{
		Principal:    principal,
		AuthorityID:  req.AuthorityID,
		Institution:  req.Institution,
		Jurisdiction: req.Jurisdiction,
		Powers:       powers,
	})
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusCreated, authorityView(rec))
}

type updateAuthorityRequest struct {
	Institution  *string  `json:"institution,omitempty"`
	Jurisdiction *string  `json:"jurisdiction,omitempty"`
	Powers       []string `json:"powers,omitempty"`
}

func (h *handlers) updateAuthority(w http.ResponseWriter, r *http.Request) {
	principal, err := domain.ParsePrincipalID(chi.URLParam(r, "principal"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	var req updateAuthorityRequest
	if err := httputil.Decode(r, &req); err != nil {
		httputil.WriteError(w, err)
		return
	}
	update := authservice.UpdateRequest{
		Institution:  req.Institution,
		Jurisdiction: req.Jurisdiction,
	}
	if req.Powers != nil {
		powers, err := authmodels.ParsePowers(req.Powers)
		if err != nil {
			httputil.WriteError(w, err)
			return
		}
		update.Powers = &powers
	}
	rec, err := h.svcs.Authority.Update(r.Context(), caller(r), principal, update)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, authorityView(rec))
}

func (h *handlers) deactivateAuthority(w http.ResponseWriter, r *http.Request) {
	principal, err := domain.ParsePrincipalID(chi.URLParam(r, "principal"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	rec, err := h.svcs.Authority.Deactivate(r.Context(), caller(r), principal)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, authorityView(rec))
}

func (h *handlers) getAuthority(w http.ResponseWriter, r *http.Request) {
	principal, err := domain.ParsePrincipalID(chi.URLParam(r, "principal"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	rec, err := h.svcs.Authority.Get(r.Context(), principal)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, authorityView(rec))
}
