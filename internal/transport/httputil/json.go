// Package httputil holds shared request/response plumbing for the HTTP API.
package httputil

import (
	"encoding/json"
	"errors"
	"net/http"

	dErrors "ledgergate/pkg/domain-errors"
	httpErrors "ledgergate/pkg/http-errors"
)

// ErrorResponse is the uniform error envelope. Error carries the stable
// machine-readable code from the domain error taxonomy.
type ErrorResponse struct {
	Error       string `json:"error"`
	Description string `json:"error_description,omitempty"`
}

// WriteJSON writes v with the given status. Encoding failures are logged by
// the caller's middleware via the 500 fallback.
func WriteJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if v != nil {
		_ = json.NewEncoder(w).Encode(v)
	}
}

// WriteError maps a domain error to its HTTP status and envelope. Non-domain
// errors become an opaque 500 so internals never leak to clients.
func WriteError(w http.ResponseWriter, err error) {
	var dErr *dErrors.Error
	if errors.As(err, &dErr) {
		WriteJSON(w, httpErrors.ToHTTPStatus(dErr.Code), ErrorResponse{
			Error:       string(dErr.Code),
			Description: dErr.Message,
		})
		return
	}
	WriteJSON(w, http.StatusInternalServerError, ErrorResponse{
		Error:       string(dErrors.CodeInternal),
		Description: "internal error",
	})
}

// Decode parses a JSON request body into dst, rejecting unknown fields.
func Decode(r *http.Request, dst any) error {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		return dErrors.New(dErrors.CodeBadRequest, "malformed request body: "+err.Error())
	}
	return nil
}
