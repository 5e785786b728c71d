package routes

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/dmfranc/stripemirror/api/controllers"
	webhookcontrollers "github.com/dmfranc/stripemirror/api/controllers/webhooks"
	"github.com/dmfranc/stripemirror/api/middleware"
	"github.com/dmfranc/stripemirror/internal/actions"
	"github.com/dmfranc/stripemirror/internal/webhooks"
	"github.com/dmfranc/stripemirror/pkg/config"
	"github.com/dmfranc/stripemirror/pkg/db"
	"github.com/dmfranc/stripemirror/pkg/logger"
	"github.com/dmfranc/stripemirror/pkg/metrics"
	"github.com/dmfranc/stripemirror/pkg/redis"
	"github.com/dmfranc/stripemirror/pkg/stripeclient"
)

func NewRouter(
	cfg *config.Config,
	logg *logger.Logger,
	dbClient *db.Client,
	redisClient *redis.Client,
	stripeClient *stripeclient.Client,
	actionsService *actions.Service,
	dispatcher *webhooks.Dispatcher,
	eventMetrics *metrics.EventMetrics,
) http.Handler {
	r := chi.NewRouter()
	r.Use(
		middleware.Recoverer(logg),
		middleware.RequestID(logg),
		middleware.Logging(logg),
	)

	r.Route("/health", func(r chi.Router) {
		r.Get("/live", controllers.HealthLive(cfg))
		r.Get("/ready", controllers.HealthReady(cfg, logg, dbClient, redisClient))
	})

	r.Handle("/metrics", promhttp.Handler())

	r.Route("/api/v1/webhooks", func(r chi.Router) {
		var dedup redis.DedupStore
		if redisClient != nil {
			dedup = redisClient
		}
		r.Post("/stripe", webhookcontrollers.StripeWebhook(
			actionsService,
			dispatcher,
			stripeClient,
			dedup,
			cfg.Redis.DedupTTL,
			eventMetrics,
			logg,
		))
	})

	r.Route("/api/v1/billing", func(r chi.Router) {
		r.Use(middleware.SubscriptionGate(cfg.Gate, actionsService, logg))
		r.Get("/entitlement", controllers.BillingEntitlement(actionsService, logg))
		r.Get("/customers/{userRef}", controllers.BillingCustomer(actionsService, logg))
	})

	return r
}
