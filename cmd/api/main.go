package main

import (
	"context"
	"net/http"
	"os"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/dmfranc/stripemirror/api/routes"
	"github.com/dmfranc/stripemirror/internal/actions"
	"github.com/dmfranc/stripemirror/internal/hooks"
	"github.com/dmfranc/stripemirror/internal/mail"
	"github.com/dmfranc/stripemirror/internal/webhooks"
	"github.com/dmfranc/stripemirror/pkg/config"
	"github.com/dmfranc/stripemirror/pkg/db"
	"github.com/dmfranc/stripemirror/pkg/logger"
	"github.com/dmfranc/stripemirror/pkg/metrics"
	"github.com/dmfranc/stripemirror/pkg/migrate"
	"github.com/dmfranc/stripemirror/pkg/redis"
	"github.com/dmfranc/stripemirror/pkg/stripeclient"
)

func main() {
	logg := logger.New(logger.Options{ServiceName: "api"})

	if err := godotenv.Load(); err != nil {
		logg.Warn(context.Background(), ".env file not found, relying on environment")
	}

	cfg, err := config.Load()
	if err != nil {
		logg.Error(context.Background(), "failed to load config", err)
		os.Exit(1)
	}

	logg = logger.New(logger.Options{
		ServiceName: "api",
		Level:       logger.ParseLevel(cfg.App.LogLevel),
		WarnStack:   cfg.App.LogWarnStack,
	})

	dbClient, err := db.New(context.Background(), cfg.DB, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to bootstrap database", err)
		os.Exit(1)
	}
	defer func() {
		if err := dbClient.Close(); err != nil {
			logg.Error(context.Background(), "error closing database", err)
		}
	}()

	if err := migrate.MaybeRunDev(context.Background(), cfg, logg, dbClient); err != nil {
		logg.Error(context.Background(), "failed to run dev migrations", err)
		os.Exit(1)
	}

	redisClient, err := redis.New(context.Background(), cfg.Redis)
	if err != nil {
		logg.Error(context.Background(), "failed to bootstrap redis", err)
		os.Exit(1)
	}
	defer func() {
		if err := redisClient.Close(); err != nil {
			logg.Error(context.Background(), "error closing redis", err)
		}
	}()

	stripeClient, err := stripeclient.NewClient(context.Background(), cfg.Stripe, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to bootstrap stripe client", err)
		os.Exit(1)
	}

	sender := mail.NewSMTPSender(cfg.SMTP, cfg.Billing.InvoiceFromEmail)
	hookSet := hooks.ForName(cfg.Billing.HookSet, dbClient.DB(), sender, cfg.Billing, logg)

	actionsService, err := actions.NewService(actions.ServiceParams{
		DB:           dbClient,
		API:          actions.NewAPI(stripeClient),
		StripeClient: stripeClient,
		Hooks:        hookSet,
		Config:       cfg,
		Logger:       logg,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create actions service", err)
		os.Exit(1)
	}

	eventMetrics := metrics.NewEventMetrics(prometheus.DefaultRegisterer)

	dispatcher, err := webhooks.NewDispatcher(webhooks.DispatcherParams{
		Actions: actionsService,
		Metrics: eventMetrics,
		Logger:  logg,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create event dispatcher", err)
		os.Exit(1)
	}

	port := os.Getenv("PORT")
	if port == "" {
		port = cfg.App.Port
	}
	addr := ":" + port
	ctx := logg.WithFields(context.Background(), map[string]any{
		"env":  cfg.App.Env,
		"addr": addr,
	})
	logg.Info(ctx, "starting api server")

	server := &http.Server{
		Addr: addr,
		Handler: routes.NewRouter(
			cfg, logg, dbClient, redisClient, stripeClient,
			actionsService, dispatcher, eventMetrics,
		),
	}

	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logg.Error(ctx, "api server stopped unexpectedly", err)
		os.Exit(1)
	}
}
