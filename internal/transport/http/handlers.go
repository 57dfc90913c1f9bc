package http

import (
	"net/http"

	"ledgergate/internal/platform/middleware"
	"ledgergate/pkg/domain"
)

type handlers struct {
	svcs Services
}

// caller is the authenticated principal established by RequireAuth.
func caller(r *http.Request) domain.PrincipalID {
	return domain.PrincipalID(middleware.GetPrincipal(r.Context()))
}
