package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"strings"

	"github.com/joho/godotenv"

	"github.com/dmfranc/stripemirror/internal/actions"
	"github.com/dmfranc/stripemirror/internal/hooks"
	"github.com/dmfranc/stripemirror/internal/mail"
	"github.com/dmfranc/stripemirror/pkg/config"
	"github.com/dmfranc/stripemirror/pkg/db"
	"github.com/dmfranc/stripemirror/pkg/logger"
	"github.com/dmfranc/stripemirror/pkg/migrate"
	"github.com/dmfranc/stripemirror/pkg/stripeclient"
)

// sync-worker is a one-shot bulk mirror refresh: it pulls plans, coupons,
// products and customers from the processor and folds them into the local
// store. Run it on first deploy and whenever the mirror drifts.
func main() {
	logg := logger.New(logger.Options{ServiceName: "sync-worker"})

	if err := godotenv.Load(); err != nil {
		logg.Warn(context.Background(), ".env file not found, relying on environment")
	}

	only := flag.String("only", "", "comma-separated subset: plans,coupons,products,customers (default all)")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		logg.Error(context.Background(), "failed to load config", err)
		os.Exit(1)
	}

	logg = logger.New(logger.Options{
		ServiceName: "sync-worker",
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

	stripeClient, err := stripeclient.NewClient(context.Background(), cfg.Stripe, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to bootstrap stripe client", err)
		os.Exit(1)
	}

	sender := mail.NewSMTPSender(cfg.SMTP, cfg.Billing.InvoiceFromEmail)
	hookSet := hooks.ForName(cfg.Billing.HookSet, dbClient.DB(), sender, cfg.Billing, logg)

	svc, err := actions.NewService(actions.ServiceParams{
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

	targets := map[string]func(context.Context) (int, error){
		"plans":     svc.SyncPlans,
		"coupons":   svc.SyncCoupons,
		"products":  svc.SyncProducts,
		"customers": svc.SyncCustomers,
	}
	order := []string{"plans", "coupons", "products", "customers"}

	selected := map[string]bool{}
	if *only != "" {
		for _, name := range strings.Split(*only, ",") {
			name = strings.TrimSpace(name)
			if _, ok := targets[name]; !ok {
				fmt.Fprintln(os.Stderr, "unknown sync target:", name)
				os.Exit(1)
			}
			selected[name] = true
		}
	}

	ctx := logg.WithField(context.Background(), "env", cfg.App.Env)
	failed := false
	for _, name := range order {
		if len(selected) > 0 && !selected[name] {
			continue
		}
		count, err := targets[name](ctx)
		runCtx := logg.WithFields(ctx, map[string]any{"target": name, "count": count})
		if err != nil {
			failed = true
			logg.Error(runCtx, "bulk sync failed", err)
			continue
		}
		logg.Info(runCtx, "bulk sync complete")
	}
	if failed {
		os.Exit(1)
	}
}
