package api

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"
	chimid "github.com/go-chi/chi/v5/middleware"

	"github.com/userhub/engine/internal/api/handlers"
	mw "github.com/userhub/engine/internal/api/middleware"
)

type Dependencies struct {
	UsersHandler  *handlers.UsersHandler
	HealthHandler *handlers.HealthHandler

	CORSOrigins    []string
	RateLimitRPS   float64
	RateLimitBurst int
	TrustProxy     bool
}

// NewRouter builds the HTTP handler. ctx bounds background work started by
// the middleware chain.
func NewRouter(ctx context.Context, dep Dependencies) http.Handler {
	r := chi.NewRouter()

	if dep.TrustProxy {
		r.Use(chimid.RealIP)
	}
	r.Use(mw.RequestID)
	r.Use(mw.Recovery)
	r.Use(mw.Logging)
	r.Use(mw.CORS(dep.CORSOrigins))
	if dep.RateLimitRPS > 0 {
		r.Use(mw.RateLimit(ctx, dep.RateLimitRPS, dep.RateLimitBurst))
	}
	r.Use(chimid.Compress(5))

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusNotFound)
		_, _ = w.Write([]byte(`{"detail":"Not Found"}`))
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusMethodNotAllowed)
		_, _ = w.Write([]byte(`{"detail":"Method Not Allowed"}`))
	})

	r.Get("/healthz", dep.HealthHandler.Liveness)
	r.Get("/readyz", dep.HealthHandler.Readiness)

	dep.UsersHandler.Routes(r)

	return r
}
