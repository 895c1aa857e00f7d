// Package httptransport wires the HTTP surface: middleware stack, health
// probes, and the versioned vault routes. It stays thin; business logic lives
// in the vault service.
package httptransport

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"satsvault/internal/platform/health"
	"satsvault/internal/platform/middleware"
	vaulthandler "satsvault/internal/vault/handler"
	"satsvault/pkg/platform/middleware/auth"
	"satsvault/pkg/platform/middleware/metadata"
	"satsvault/pkg/platform/middleware/requesttime"
	"satsvault/pkg/platform/validation"
)

// Options carries the dependencies the router composes.
type Options struct {
	Vault      *vaulthandler.Handler
	Health     *health.Handler
	Validator  auth.TokenValidator
	Logger     *slog.Logger
	TrustProxy bool
}

// NewRouter wires all public endpoints with middleware. Health probes stay
// unauthenticated; everything under /v1/vault requires a bearer token.
func NewRouter(opts Options) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.Recovery(opts.Logger))
	r.Use(middleware.RequestID)
	r.Use(middleware.Logger(opts.Logger))
	r.Use(middleware.Timeout(30 * time.Second))
	r.Use(middleware.BodyLimit(validation.MaxBodySize))
	r.Use(middleware.ContentTypeJSON)
	r.Use(requesttime.Middleware)
	r.Use(metadata.Handler(opts.TrustProxy))

	opts.Health.Register(r)

	r.Route("/v1/vault", func(r chi.Router) {
		r.Use(auth.RequireAuth(opts.Validator, opts.Logger))
		opts.Vault.Register(r)
	})

	return r
}
