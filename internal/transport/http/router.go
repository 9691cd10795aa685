package httptransport

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"campusvote/internal/platform/metrics"
	"campusvote/internal/platform/middleware"
)

// Deps collects everything the router mounts.
type Deps struct {
	Auth      *AuthHandler
	Elections *ElectionHandler
	Votes     *VoteHandler
	Results   *ResultsHandler
	Admin     *AdminHandler
	Validator middleware.JWTValidator
	Logger    *slog.Logger
	Metrics   *metrics.Metrics
}

// NewRouter assembles the full HTTP surface. Handlers stay thin; all
// business rules live in the services they delegate to.
func NewRouter(d Deps) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.Logger(d.Logger))
	r.Use(middleware.Recovery(d.Logger))
	r.Use(middleware.Latency(d.Metrics))

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	r.Method(http.MethodGet, "/metrics", promhttp.Handler())

	requireAuth := middleware.RequireAuth(d.Validator, d.Logger)
	d.Auth.Register(r, requireAuth)
	d.Elections.Register(r, requireAuth)
	d.Votes.Register(r, requireAuth)
	d.Results.Register(r, requireAuth)
	d.Admin.Register(r, requireAuth)

	return r
}
