package routes

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/opulentlabs/storefront-backend/api/controllers"
	"github.com/opulentlabs/storefront-backend/api/middleware"
	"github.com/opulentlabs/storefront-backend/internal/payments"
	"github.com/opulentlabs/storefront-backend/pkg/config"
	"github.com/opulentlabs/storefront-backend/pkg/logger"
	pkgredis "github.com/opulentlabs/storefront-backend/pkg/redis"
)

// Deps bundles everything the router mounts.
type Deps struct {
	Config       *config.Config
	Logger       *logger.Logger
	DB           controllers.Pinger
	Redis        *pkgredis.Client
	Payments     payments.Service
	PromGatherer prometheus.Gatherer
}

func NewRouter(deps Deps) http.Handler {
	r := chi.NewRouter()
	r.Use(
		middleware.Recoverer(deps.Logger),
		middleware.RequestID(deps.Logger),
		middleware.Logging(deps.Logger),
		middleware.CORS(),
	)

	r.NotFound(controllers.NotFound(deps.Logger))

	r.Get("/health/live", controllers.HealthLive(deps.Config))
	r.Get("/health/ready", controllers.HealthReady(deps.Config, deps.Logger, readinessDeps(deps)))

	if deps.PromGatherer != nil {
		r.Method(http.MethodGet, "/metrics", promhttp.HandlerFor(deps.PromGatherer, promhttp.HandlerOpts{}))
	}

	r.Route("/api/payments", func(api chi.Router) {
		var store pkgredis.IdempotencyStore
		if deps.Redis != nil {
			store = deps.Redis
		}
		api.With(middleware.Idempotency(store, deps.Logger)).
			Post("/create-order", controllers.CreateOrder(deps.Payments, deps.Logger))
		api.With(middleware.Idempotency(store, deps.Logger)).
			Post("/initialize", controllers.InitializePayment(deps.Payments, deps.Logger))

		api.Post("/verify-payment", controllers.VerifyPayment(deps.Payments, deps.Logger))

		// Pesapal delivers notifications as GET or POST
		api.Get("/webhook", controllers.PesapalWebhook(deps.Payments, deps.Logger))
		api.Post("/webhook", controllers.PesapalWebhook(deps.Payments, deps.Logger))
	})

	return r
}

func readinessDeps(deps Deps) map[string]controllers.Pinger {
	out := map[string]controllers.Pinger{}
	if deps.DB != nil {
		out["database"] = deps.DB
	}
	if deps.Redis != nil {
		out["redis"] = deps.Redis
	}
	return out
}
