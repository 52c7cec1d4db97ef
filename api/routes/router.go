package routes

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/framesmith/framesmith-backend/api/controllers"
	"github.com/framesmith/framesmith-backend/api/middleware"
	checkoutsvc "github.com/framesmith/framesmith-backend/internal/checkout"
	"github.com/framesmith/framesmith-backend/internal/orders"
	"github.com/framesmith/framesmith-backend/pkg/config"
	"github.com/framesmith/framesmith-backend/pkg/db"
	"github.com/framesmith/framesmith-backend/pkg/logger"
)

func NewRouter(
	cfg *config.Config,
	logg *logger.Logger,
	dbP db.Pinger,
	registry *prometheus.Registry,
	checkoutService checkoutsvc.Service,
	ordersService orders.Service,
	ordersRepo orders.Repository,
) http.Handler {
	r := chi.NewRouter()
	r.Use(
		middleware.Recoverer(logg),
		middleware.RequestID(logg),
		middleware.Logging(logg),
		middleware.CORS(cfg.App.CORSOrigins),
		middleware.Identity(),
	)

	r.Route("/health", func(r chi.Router) {
		r.Get("/live", controllers.HealthLive(cfg))
		r.Get("/ready", controllers.HealthReady(cfg, logg, dbP))
	})

	if registry != nil {
		r.Method(http.MethodGet, "/metrics", promhttp.HandlerFor(registry, promhttp.HandlerOpts{}))
	}

	r.Route("/api/v1", func(r chi.Router) {
		r.Post("/checkout", controllers.Checkout(checkoutService, logg))
		r.Post("/staff/orders", controllers.StaffCreateOrder(checkoutService, logg))
		r.Route("/orders/{id}", func(r chi.Router) {
			r.Get("/", controllers.GetOrder(ordersRepo, logg))
			r.Patch("/status", controllers.UpdateOrderStatus(ordersService, logg))
			r.Post("/cancel", controllers.CancelOrder(ordersService, logg))
		})
	})

	return r
}
