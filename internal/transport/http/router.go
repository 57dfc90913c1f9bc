// Package http wires the engine's services into the versioned HTTP API.
package http

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	alertservice "ledgergate/internal/alert/service"
	"ledgergate/internal/audit"
	authservice "ledgergate/internal/authority/service"
	blservice "ledgergate/internal/blacklist/service"
	enforcementservice "ledgergate/internal/enforcement/service"
	idservice "ledgergate/internal/identity/service"
	"ledgergate/internal/platform/middleware"
	policyservice "ledgergate/internal/policy/service"
	reserveservice "ledgergate/internal/reserve/service"
	"ledgergate/internal/token"
)

// Services bundles everything the router exposes.
type Services struct {
	Identity    *idservice.Service
	Authority   *authservice.Service
	Blacklist   *blservice.Service
	Alert       *alertservice.Service
	Policy      *policyservice.Service
	Enforcement *enforcementservice.Service
	Reserve     *reserveservice.Service
	Auditor     *audit.Publisher
}

// Health reports readiness of backing infrastructure.
type Health func(r *http.Request) error

// tokenAdapter bridges the JWT validator to the middleware contract.
type tokenAdapter struct {
	v *token.Validator
}

func (a tokenAdapter) ValidateToken(tokenString string) (*middleware.PrincipalClaims, error) {
	claims, err := a.v.ValidateToken(tokenString)
	if err != nil {
		return nil, err
	}
	return &middleware.PrincipalClaims{Principal: claims.Principal, JTI: claims.JTI}, nil
}

// NewRouter assembles the API. Reads that only expose public policy state
// (blacklist status, policy evaluation, reserve attestation, health,
// metrics) are unauthenticated; every mutation and authority-facing read
// requires a bearer token, with capability checks left to the services.
func NewRouter(svcs Services, validator *token.Validator, health Health, logger *slog.Logger) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.Recovery(logger))
	r.Use(middleware.RequestID)
	r.Use(middleware.Logger(logger))
	r.Use(middleware.Timeout(30 * time.Second))
	r.Use(middleware.ContentTypeJSON)

	r.Get("/healthz", healthHandler(health))
	r.Method(http.MethodGet, "/metrics", promhttp.Handler())

	h := &handlers{svcs: svcs}
	requireAuth := middleware.RequireAuth(tokenAdapter{v: validator}, logger)

	r.Route("/v1", func(r chi.Router) {
		// Open surface.
		r.Post("/identity/register", h.registerIdentity)
		r.Post("/policy/evaluate", h.evaluatePolicy)
		r.Get("/blacklist/{user}/status", h.blacklistStatus)
		r.Get("/reserve/attestation", h.latestAttestation)
		r.Get("/identity/verified-count", h.verifiedCount)

		// Authenticated surface.
		r.Group(func(r chi.Router) {
			r.Use(requireAuth)

			r.Post("/identity/status", h.setIdentityStatus)
			r.Get("/identity/{user}", h.getIdentity)

			r.Post("/authorities", h.registerAuthority)
			r.Post("/authorities/{principal}/update", h.updateAuthority)
			r.Post("/authorities/{principal}/deactivate", h.deactivateAuthority)
			r.Get("/authorities/{principal}", h.getAuthority)

			r.Post("/alerts", h.createAlert)
			r.Post("/alerts/{id}/update", h.updateAlert)
			r.Post("/alerts/{id}/action", h.takeAlertAction)
			r.Post("/alerts/{id}/annotations", h.annotateAlert)
			r.Get("/alerts/{id}", h.getAlert)
			r.Get("/users/{user}/alerts", h.listAlerts)

			r.Post("/blacklist", h.addBlacklist)
			r.Post("/blacklist/{user}/update", h.updateBlacklist)
			r.Delete("/blacklist/{user}", h.removeBlacklist)
			r.Post("/blacklist/{user}/revoke-kyc", h.revokeAndBlacklist)

			r.Post("/enforcement/freeze", h.freeze)
			r.Post("/enforcement/thaw", h.thaw)
			r.Post("/enforcement/seize", h.seize)

			r.Post("/reserve/attestation", h.updateAttestation)

			r.Get("/users/{user}/audit", h.listAudit)
		})
	})

	return r
}

func healthHandler(health Health) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if health != nil {
			if err := health(r); err != nil {
				w.WriteHeader(http.StatusServiceUnavailable)
				_, _ = w.Write([]byte(`{"status":"degraded"}`))
				return
			}
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	}
}
