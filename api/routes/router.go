package routes

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/keyhaven/keyhaven-backend/api/controllers"
	"github.com/keyhaven/keyhaven-backend/api/middleware"
	"github.com/keyhaven/keyhaven-backend/api/responses"
	"github.com/keyhaven/keyhaven-backend/internal/invoices"
	"github.com/keyhaven/keyhaven-backend/internal/orders"
	"github.com/keyhaven/keyhaven-backend/pkg/config"
	pkgerrors "github.com/keyhaven/keyhaven-backend/pkg/errors"
	"github.com/keyhaven/keyhaven-backend/pkg/logger"
	"github.com/keyhaven/keyhaven-backend/pkg/redis"
)

func NewRouter(
	cfg *config.Config,
	logg *logger.Logger,
	recordStore controllers.Pinger,
	redisClient *redis.Client,
	ordersService orders.Service,
	invoicesService invoices.Service,
	metricsRegistry *prometheus.Registry,
) http.Handler {
	r := chi.NewRouter()
	r.Use(
		middleware.Recoverer(logg),
		middleware.RequestID(logg),
		middleware.Logging(logg),
		middleware.CORS(),
	)

	r.MethodNotAllowed(func(w http.ResponseWriter, req *http.Request) {
		responses.WriteError(req.Context(), logg, w,
			pkgerrors.New(pkgerrors.CodeMethodNotAllowed, "method not allowed"))
	})
	r.NotFound(func(w http.ResponseWriter, req *http.Request) {
		responses.WriteError(req.Context(), logg, w,
			pkgerrors.New(pkgerrors.CodeNotFound, "route not found"))
	})

	submitPolicy := middleware.NewSubmitRateLimitPolicy(cfg.SubmitLimit)

	r.Route("/health", func(r chi.Router) {
		deps := map[string]controllers.Pinger{
			"record store": recordStore,
		}
		if redisClient != nil {
			deps["redis"] = redisClient
		}
		r.Get("/live", controllers.HealthLive(cfg))
		r.Get("/ready", controllers.HealthReady(cfg, logg, deps))
	})

	if metricsRegistry != nil {
		r.Method(http.MethodGet, "/metrics", promhttp.HandlerFor(metricsRegistry, promhttp.HandlerOpts{}))
	}

	r.Route("/api/v1", func(r chi.Router) {
		r.With(middleware.SubmitRateLimit(submitPolicy, redisClient, logg)).
			Post("/orders", controllers.SubmitOrder(ordersService, logg))
		r.Get("/invoices/{invoiceID}/status", controllers.InvoiceStatus(invoicesService, logg))
	})

	return r
}
