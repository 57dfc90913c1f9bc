package http

import (
	"net/http"

	enforcementservice "ledgergate/internal/enforcement/service"
	"ledgergate/internal/transport/httputil"
	"ledgergate/pkg/domain"
)

type lockRequest struct {
	Account       string `json:"account"`
	Justification string `json:"justification,omitempty"`
}

func (h *handlers) freeze(w http.ResponseWriter, r *http.Request) {
	var req lockRequest
	if err := httputil.Decode(r, &req); err != nil {
		httputil.WriteError(w, err)
		return
	}
	account, err := domain.ParseAccountID(req.Account)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	if err := h.svcs.Enforcement.Freeze(r.Context(), caller(r), account, req.Justification); err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, map[string]string{"account": account.String(), "lock": "locked"})
}

func (h *handlers) thaw(w http.ResponseWriter, r *http.Request) {
	var req lockRequest
	if err := httputil.Decode(r, &req); err != nil {
		httputil.WriteError(w, err)
		return
	}
	account, err := domain.ParseAccountID(req.Account)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	if err := h.svcs.Enforcement.Thaw(r.Context(), caller(r), account, req.Justification); err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, map[string]string{"account": account.String(), "lock": "unlocked"})
}

type seizeRequest struct {
	Source        string `json:"source"`
	Destination   string `json:"destination"`
	Amount        uint64 `json:"amount"`
	Justification string `json:"justification"`
}

func (h *handlers) seize(w http.ResponseWriter, r *http.Request) {
	var req seizeRequest
	if err := httputil.Decode(r, &req); err != nil {
		httputil.WriteError(w, err)
		return
	}
	source, err := domain.ParseAccountID(req.Source)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	destination, err := domain.ParseAccountID(req.Destination)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	err = h.svcs.Enforcement.Seize(r.Context(), caller(r), enforcementservice.SeizeRequest{
		Source:        source,
		Destination:   destination,
		Amount:        req.Amount,
		Justification: req.Justification,
	})
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, map[string]any{
		"source":      source.String(),
		"destination": destination.String(),
		"amount":      req.Amount,
	})
}
