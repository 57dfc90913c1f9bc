package httperrors

import (
	"net/http"

	dErrors "ledgergate/pkg/domain-errors"
)

// ToHTTPStatus translates domain error codes to HTTP status codes so the
// transport layer can map them without inspecting messages.
func ToHTTPStatus(code dErrors.Code) int {
	switch code {
	case dErrors.CodeBadRequest, dErrors.CodeInvalidInput, dErrors.CodeArithmeticOverflow:
		return http.StatusBadRequest
	case dErrors.CodeUnauthorized:
		return http.StatusUnauthorized
	case dErrors.CodeNotFound:
		return http.StatusNotFound
	case dErrors.CodeConflict, dErrors.CodeAlreadyExists, dErrors.CodeInvalidTransition:
		return http.StatusConflict
	case dErrors.CodeJurisdictionNotSupported,
		dErrors.CodeVerificationExpired,
		dErrors.CodeInsufficientVerificationLevel,
		dErrors.CodeTransferLimitExceeded,
		dErrors.CodeAccountFrozen,
		dErrors.CodeAccountNotFrozen,
		dErrors.CodeAccountBlacklisted,
		dErrors.CodeNotEligibleForFreeze,
		dErrors.CodeInsufficientReserve:
		return http.StatusForbidden
	default:
		return http.StatusInternalServerError
	}
}
