package http

import (
	"net/http"
	"time"

	"ledgergate/internal/ledger"
	policymodels "ledgergate/internal/policy/models"
	"ledgergate/internal/transport/httputil"
	"ledgergate/pkg/domain"
)

type evaluateRequest struct {
	Kind           string `json:"kind"`
	Sender         string `json:"sender,omitempty"`
	Receiver       string `json:"receiver,omitempty"`
	Amount         uint64 `json:"amount"`
	SenderFrozen   bool   `json:"sender_frozen,omitempty"`
	ReceiverFrozen bool   `json:"receiver_frozen,omitempty"`
}

type evaluateResponse struct {
	Status        string    `json:"status"`
	Reason        string    `json:"reason,omitempty"`
	MaxAmount     uint64    `json:"max_amount,omitempty"`
	SenderLevel   uint8     `json:"sender_level"`
	ReceiverLevel uint8     `json:"receiver_level"`
	EvaluatedAt   time.Time `json:"evaluated_at"`
}

func (h *handlers) evaluatePolicy(w http.ResponseWriter, r *http.Request) {
	var req evaluateRequest
	if err := httputil.Decode(r, &req); err != nil {
		httputil.WriteError(w, err)
		return
	}
	kind, err := policymodels.ParseKind(req.Kind)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	eval := policymodels.Request{
		Kind:         kind,
		Amount:       req.Amount,
		SenderLock:   lockState(req.SenderFrozen),
		ReceiverLock: lockState(req.ReceiverFrozen),
	}
	if req.Sender != "" {
		if eval.Sender, err = domain.ParseUserID(req.Sender); err != nil {
			httputil.WriteError(w, err)
			return
		}
	}
	if req.Receiver != "" {
		if eval.Receiver, err = domain.ParseUserID(req.Receiver); err != nil {
			httputil.WriteError(w, err)
			return
		}
	}

	result, err := h.svcs.Policy.Evaluate(r.Context(), eval)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	// A deny is a successful evaluation, not a transport error: always 200.
	httputil.WriteJSON(w, http.StatusOK, evaluateResponse{
		Status:        string(result.Status),
		Reason:        string(result.Reason),
		MaxAmount:     result.MaxAmount,
		SenderLevel:   result.SenderLevel,
		ReceiverLevel: result.ReceiverLevel,
		EvaluatedAt:   result.EvaluatedAt,
	})
}

func lockState(frozen bool) ledger.LockState {
	if frozen {
		return ledger.Locked
	}
	return ledger.Unlocked
}
