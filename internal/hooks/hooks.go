package hooks

import (
	"context"
	"time"

	"gorm.io/gorm"

	"github.com/dmfranc/stripemirror/internal/mail"
	"github.com/dmfranc/stripemirror/pkg/config"
	"github.com/dmfranc/stripemirror/pkg/db/models"
	pkgerrors "github.com/dmfranc/stripemirror/pkg/errors"
	"github.com/dmfranc/stripemirror/pkg/logger"
)

// HookSet is the host-application extension surface. Implementations adjust
// billing policy without touching the pipeline itself.
type HookSet interface {
	// TrialPeriod returns the trial end for a new subscription, or nil for
	// no trial.
	TrialPeriod(ctx context.Context, userRef string, planStripeID string) *time.Time

	// AdjustSubscriptionQuantity resolves the final quantity for a
	// subscription create or update. A nil requested quantity means the
	// caller expressed no preference.
	AdjustSubscriptionQuantity(ctx context.Context, cust *models.Customer, planStripeID string, quantity *int64) int64

	// SendReceipt delivers a receipt for the charge. At most one receipt is
	// sent per charge.
	SendReceipt(ctx context.Context, charge *models.Charge, email string) error
}

// DefaultHookSet is the stock policy: no trials, quantity defaults to one,
// receipts over SMTP.
type DefaultHookSet struct {
	db     *gorm.DB
	sender mail.Sender
	cfg    config.BillingConfig
	logg   *logger.Logger
}

// NewDefaultHookSet builds the stock hook set.
func NewDefaultHookSet(gdb *gorm.DB, sender mail.Sender, cfg config.BillingConfig, logg *logger.Logger) *DefaultHookSet {
	return &DefaultHookSet{db: gdb, sender: sender, cfg: cfg, logg: logg}
}

func (h *DefaultHookSet) TrialPeriod(ctx context.Context, userRef string, planStripeID string) *time.Time {
	return nil
}

func (h *DefaultHookSet) AdjustSubscriptionQuantity(ctx context.Context, cust *models.Customer, planStripeID string, quantity *int64) int64 {
	if quantity == nil {
		return 1
	}
	return *quantity
}

func (h *DefaultHookSet) SendReceipt(ctx context.Context, charge *models.Charge, email string) error {
	if charge == nil {
		return pkgerrors.New(pkgerrors.CodeValidation, "receipt requires a charge")
	}
	if !h.cfg.SendEmailReceipts || charge.ReceiptSent {
		return nil
	}
	paid := charge.Paid != nil && *charge.Paid
	if !paid || email == "" {
		return nil
	}

	data := mail.ReceiptData{
		Currency:    charge.Currency,
		Description: charge.Description,
	}
	if charge.Amount != nil {
		data.Amount = *charge.Amount
	}
	subject, body, err := mail.RenderReceipt(data)
	if err != nil {
		return err
	}
	if err := h.sender.Send(ctx, []string{email}, subject, body); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "sending receipt")
	}

	charge.ReceiptSent = true
	if h.db != nil {
		if err := h.db.WithContext(ctx).
			Model(&models.Charge{}).
			Where("id = ?", charge.ID).
			Update("receipt_sent", true).Error; err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "marking receipt sent")
		}
	}
	if h.logg != nil {
		h.logg.Info(ctx, "receipt sent for charge "+charge.StripeID)
	}
	return nil
}

// registry maps configured hook set names to constructors so deployments can
// select a policy by name.
type Factory func(gdb *gorm.DB, sender mail.Sender, cfg config.BillingConfig, logg *logger.Logger) HookSet

var registry = map[string]Factory{
	"default": func(gdb *gorm.DB, sender mail.Sender, cfg config.BillingConfig, logg *logger.Logger) HookSet {
		return NewDefaultHookSet(gdb, sender, cfg, logg)
	},
}

// Register installs a named hook set factory. Last registration wins.
func Register(name string, f Factory) {
	registry[name] = f
}

// ForName resolves a configured hook set, falling back to the default.
func ForName(name string, gdb *gorm.DB, sender mail.Sender, cfg config.BillingConfig, logg *logger.Logger) HookSet {
	f, ok := registry[name]
	if !ok {
		f = registry["default"]
	}
	return f(gdb, sender, cfg, logg)
}
