package http

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	alertmodels "ledgergate/internal/alert/models"
	alertservice "ledgergate/internal/alert/service"
	"ledgergate/internal/transport/httputil"
	"ledgergate/pkg/domain"
)

type createAlertRequest struct {
	Subject      string   `json:"subject"`
	Severity     uint8    `json:"severity"`
	EvidenceRefs []string `json:"evidence_refs,omitempty"`
}

type alertActionResponse struct {
	Action        string    `json:"action"`
	Justification string    `json:"justification,omitempty"`
	TakenBy       string    `json:"taken_by"`
	TakenAt       time.Time `json:"taken_at"`
}

type alertAnnotationResponse struct {
	Author string    `json:"author"`
	Note   string    `json:"note"`
	At     time.Time `json:"at"`
}

type alertResponse struct {
	ID           string                    `json:"id"`
	Subject      string                    `json:"subject"`
	AuthorityID  string                    `json:"authority_id"`
	Status       string                    `json:"status"`
	Severity     uint8                     `json:"severity"`
	EvidenceRefs []string                  `json:"evidence_refs,omitempty"`
	ActionTaken  *alertActionResponse      `json:"action_taken,omitempty"`
	Resolution   string                    `json:"resolution,omitempty"`
	Annotations  []alertAnnotationResponse `json:"annotations,omitempty"`
	CreatedAt    time.Time                 `json:"created_at"`
	UpdatedAt    time.Time                 `json:"updated_at"`
}

func alertView(rec *alertmodels.Record) alertResponse {
	resp := alertResponse{
		ID:           rec.ID.String(),
		Subject:      rec.Subject.String(),
		AuthorityID:  rec.AuthorityID,
		Status:       string(rec.Status),
		Severity:     rec.Severity,
		EvidenceRefs: rec.EvidenceRefs,
		Resolution:   rec.Resolution,
		CreatedAt:    rec.CreatedAt,
		UpdatedAt:    rec.UpdatedAt,
	}
	if rec.ActionTaken != nil {
		resp.ActionTaken = &alertActionResponse{
			Action:        string(rec.ActionTaken.Action),
			Justification: rec.ActionTaken.Justification,
			TakenBy:       rec.ActionTaken.TakenBy.String(),
			TakenAt:       rec.ActionTaken.TakenAt,
		}
	}
	for _, a := range rec.Annotations {
		resp.Annotations = append(resp.Annotations, alertAnnotationResponse{
			Author: a.Author.String(), Note: a.Note, At: a.At,
		})
	}
	return resp
}

func (h *handlers) createAlert(w http.ResponseWriter, r *http.Request) {
	var req createAlertRequest
	if err := httputil.Decode(r, &req); err != nil {
		httputil.WriteError(w, err)
		return
	}
	subject, err := domain.ParseUserID(req.Subject)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	rec, err := h.svcs.Alert.Create(r.Context(), caller(r), alertservice.CreateRequest{
		Subject:      subject,
		Severity:     req.Severity,
		EvidenceRefs: req.EvidenceRefs,
	})
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusCreated, alertView(rec))
}

type updateAlertRequest struct {
	Status       *string  `json:"status,omitempty"`
	Severity     *uint8   `json:"severity,omitempty"`
	EvidenceRefs []string `json:"evidence_refs,omitempty"`
	Resolution   *string  `json:"resolution,omitempty"`
}

func (h *handlers) updateAlert(w http.ResponseWriter, r *http.Request) {
	id, err := domain.ParseAlertID(chi.URLParam(r, "id"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	var req updateAlertRequest
	if err := httputil.Decode(r, &req); err != nil {
		httputil.WriteError(w, err)
		return
	}
	update := alertservice.UpdateRequest{
		Severity:     req.Severity,
		EvidenceRefs: req.EvidenceRefs,
		Resolution:   req.Resolution,
	}
	if req.Status != nil {
		status, err := alertmodels.ParseStatus(*req.Status)
		if err != nil {
			httputil.WriteError(w, err)
			return
		}
		update.Status = &status
	}
	rec, err := h.svcs.Alert.Update(r.Context(), caller(r), id, update)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, alertView(rec))
}

type alertActionRequest struct {
	Action        string `json:"action"`
	Justification string `json:"justification,omitempty"`
}

func (h *handlers) takeAlertAction(w http.ResponseWriter, r *http.Request) {
	id, err := domain.ParseAlertID(chi.URLParam(r, "id"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	var req alertActionRequest
	if err := httputil.Decode(r, &req); err != nil {
		httputil.WriteError(w, err)
		return
	}
	action, err := alertmodels.ParseEnforcementAction(req.Action)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	rec, err := h.svcs.Alert.TakeAction(r.Context(), caller(r), id, action, req.Justification)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, alertView(rec))
}

type annotateAlertRequest struct {
	Note string `json:"note"`
}

func (h *handlers) annotateAlert(w http.ResponseWriter, r *http.Request) {
	id, err := domain.ParseAlertID(chi.URLParam(r, "id"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	var req annotateAlertRequest
	if err := httputil.Decode(r, &req); err != nil {
		httputil.WriteError(w, err)
		return
	}
	rec, err := h.svcs.Alert.Annotate(r.Context(), caller(r), id, req.Note)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, alertView(rec))
}

func (h *handlers) getAlert(w http.ResponseWriter, r *http.Request) {
	id, err := domain.ParseAlertID(chi.URLParam(r, "id"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	rec, err := h.svcs.Alert.Get(r.Context(), caller(r), id)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, alertView(rec))
}

func (h *handlers) listAlerts(w http.ResponseWriter, r *http.Request) {
	subject, err := domain.ParseUserID(chi.URLParam(r, "user"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	records, err := h.svcs.Alert.ListBySubject(r.Context(), caller(r), subject)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	out := make([]alertResponse, 0, len(records))
	for _, rec := range records {
		out = append(out, alertView(rec))
	}
	httputil.WriteJSON(w, http.StatusOK, out)
}
