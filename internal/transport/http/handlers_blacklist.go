package http

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	blmodels "ledgergate/internal/blacklist/models"
	blservice "ledgergate/internal/blacklist/service"
	"ledgergate/internal/transport/httputil"
	"ledgergate/pkg/domain"
	dErrors "ledgergate/pkg/domain-errors"
)

type addBlacklistRequest struct {
	User        string     `json:"user"`
	Reason      string     `json:"reason"`
	ActionType  string     `json:"action_type"`
	EvidenceRef string     `json:"evidence_ref,omitempty"`
	ExpiresAt   *time.Time `json:"expires_at,omitempty"`
}

type blacklistEntryResponse struct {
	User           string     `json:"user"`
	Reason         string     `json:"reason"`
	ActionType     string     `json:"action_type"`
	EvidenceRef    string     `json:"evidence_ref,omitempty"`
	RelatedAlertID *string    `json:"related_alert_id,omitempty"`
	CreatedBy      string     `json:"created_by"`
	CreatedAt      time.Time  `json:"created_at"`
	UpdatedAt      time.Time  `json:"updated_at"`
	ExpiresAt      *time.Time `json:"expires_at,omitempty"`
}

func blacklistView(entry *blmodels.Entry) blacklistEntryResponse {
	resp := blacklistEntryResponse{
		User:        entry.User.String(),
		Reason:      string(entry.Reason),
		ActionType:  string(entry.ActionType),
		EvidenceRef: entry.EvidenceRef,
		CreatedBy:   entry.CreatedBy.String(),
		CreatedAt:   entry.CreatedAt,
		UpdatedAt:   entry.UpdatedAt,
		ExpiresAt:   entry.ExpiresAt,
	}
	if entry.RelatedAlertID != nil {
		id := entry.RelatedAlertID.String()
		resp.RelatedAlertID = &id
	}
	return resp
}

func (h *handlers) addBlacklist(w http.ResponseWriter, r *http.Request) {
	var req addBlacklistRequest
	if err := httputil.Decode(r, &req); err != nil {
		httputil.WriteError(w, err)
		return
	}
	user, err := domain.ParseUserID(req.User)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	reason, err := blmodels.ParseReason(req.Reason)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	actionType, err := blmodels.ParseActionType(req.ActionType)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	entry, err := h.svcs.Blacklist.Add(r.Context(), caller(r), blservice.AddRequest{
		User:        user,
		Reason:      reason,
		ActionType:  actionType,
		EvidenceRef: req.EvidenceRef,
		ExpiresAt:   req.ExpiresAt,
	})
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusCreated, blacklistView(entry))
}

type updateBlacklistRequest struct {
	Reason       *string    `json:"reason,omitempty"`
	ActionType   *string    `json:"action_type,omitempty"`
	EvidenceRef  *string    `json:"evidence_ref,omitempty"`
	SetExpiresAt bool       `json:"set_expires_at,omitempty"`
	ExpiresAt    *time.Time `json:"expires_at,omitempty"`
}

func (h *handlers) updateBlacklist(w http.ResponseWriter, r *http.Request) {
	user, err := domain.ParseUserID(chi.URLParam(r, "user"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	var req updateBlacklistRequest
	if err := httputil.Decode(r, &req); err != nil {
		httputil.WriteError(w, err)
		return
	}
	update := blservice.UpdateRequest{
		EvidenceRef:  req.EvidenceRef,
		SetExpiresAt: req.SetExpiresAt || req.ExpiresAt != nil,
		ExpiresAt:    req.ExpiresAt,
	}
	if req.Reason != nil {
		reason, err := blmodels.ParseReason(*req.Reason)
		if err != nil {
			httputil.WriteError(w, err)
			return
		}
		update.Reason = &reason
	}
	if req.ActionType != nil {
		actionType, err := blmodels.ParseActionType(*req.ActionType)
		if err != nil {
			httputil.WriteError(w, err)
			return
		}
		update.ActionType = &actionType
	}
	entry, err := h.svcs.Blacklist.Update(r.Context(), caller(r), user, update)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, blacklistView(entry))
}

func (h *handlers) removeBlacklist(w http.ResponseWriter, r *http.Request) {
	user, err := domain.ParseUserID(chi.URLParam(r, "user"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	if err := h.svcs.Blacklist.Remove(r.Context(), caller(r), user); err != nil {
		httputil.WriteError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

type blacklistStatusResponse struct {
	Active           bool   `json:"active"`
	Reason           string `json:"reason,omitempty"`
	ActionType       string `json:"action_type,omitempty"`
	RemainingSeconds *int64 `json:"remaining_seconds,omitempty"`
}

func (h *handlers) blacklistStatus(w http.ResponseWriter, r *http.Request) {
	user, err := domain.ParseUserID(chi.URLParam(r, "user"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	status, err := h.svcs.Blacklist.StatusOf(r.Context(), user, time.Now())
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, blacklistStatusResponse{
		Active:           status.Active,
		Reason:           string(status.Reason),
		ActionType:       string(status.ActionType),
		RemainingSeconds: status.RemainingSeconds,
	})
}

type revokeKycRequest struct {
	EvidenceRef string `json:"evidence_ref,omitempty"`
	Confirm     bool   `json:"confirm"`
}

func (h *handlers) revokeAndBlacklist(w http.ResponseWriter, r *http.Request) {
	user, err := domain.ParseUserID(chi.URLParam(r, "user"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	var req revokeKycRequest
	if err := httputil.Decode(r, &req); err != nil {
		httputil.WriteError(w, err)
		return
	}
	if !req.Confirm {
		httputil.WriteError(w, dErrors.New(dErrors.CodeInvalidInput,
			"revocation must be explicitly confirmed"))
		return
	}
	entry, err := h.svcs.Blacklist.RevokeAndBlacklist(r.Context(), caller(r), user, req.EvidenceRef)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, blacklistView(entry))
}
