package httpapi

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

type RouterOptions struct {
	// AuthMiddleware authenticates callables. Nil means every request is anonymous.
	AuthMiddleware func(http.Handler) http.Handler
	// Metrics and Gatherer enable per-callable metrics and GET /metrics.
	Metrics  *Metrics
	Gatherer prometheus.Gatherer
	// MaintenanceEndpoints mounts repairMemberIds and repairPlanMemberIds.
	MaintenanceEndpoints bool
}

// NewRouter constructs the API HTTP router.
func NewRouter(s *Server, opts RouterOptions) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)

	// Infra endpoints are unauthenticated.
	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	if opts.Gatherer != nil {
		r.Method(http.MethodGet, "/metrics", promhttp.HandlerFor(opts.Gatherer, promhttp.HandlerOpts{}))
	}

	r.Group(func(r chi.Router) {
		if opts.AuthMiddleware != nil {
			r.Use(opts.AuthMiddleware)
		}
		mount(r, s, opts.Metrics, s.inviteByEmail())
		mount(r, s, opts.Metrics, s.getOrCreateInviteToken())
		mount(r, s, opts.Metrics, s.redeemInviteToken())
		if opts.MaintenanceEndpoints {
			mount(r, s, opts.Metrics, s.repairMemberIDs())
			mount(r, s, opts.Metrics, s.repairPlanMemberIDs())
		}
	})
	return r
}

func mount[Req, Res any](r chi.Router, s *Server, m *Metrics, c callable[Req, Res]) {
	r.Method(http.MethodPost, "/"+c.name, instrument(c.name, m, serveCallable(s, c)))
}
