package actions

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/stripe/stripe-go/v84"

	"github.com/dmfranc/stripemirror/internal/hooks"
	syncpkg "github.com/dmfranc/stripemirror/internal/sync"
	"github.com/dmfranc/stripemirror/pkg/config"
	"github.com/dmfranc/stripemirror/pkg/db"
)

// stubAPI satisfies the processor surface; tests override the calls they
// exercise through the function fields.
type stubAPI struct {
	chargeFn             func(ctx context.Context, id, accountStripeID string) (syncpkg.Payload, error)
	customerFn           func(ctx context.Context, id string) (syncpkg.Payload, error)
	createSubscriptionFn func(ctx context.Context, params *stripe.SubscriptionParams) (syncpkg.Payload, error)
	updateSubscriptionFn func(ctx context.Context, id string, params *stripe.SubscriptionParams) (syncpkg.Payload, error)
	createRefundFn       func(ctx context.Context, params *stripe.RefundParams) (syncpkg.Payload, error)
	eventFn              func(ctx context.Context, id, accountStripeID string) (syncpkg.Payload, error)
	invoiceFn            func(ctx context.Context, id string) (syncpkg.Payload, error)
	listPlansFn          func(ctx context.Context) ([]syncpkg.Payload, error)
	listCustomersFn      func(ctx context.Context) ([]syncpkg.Payload, error)
	listChargesFn        func(ctx context.Context, params *stripe.ChargeListParams) ([]syncpkg.Payload, error)
	listInvoicesFn       func(ctx context.Context, params *stripe.InvoiceListParams) ([]syncpkg.Payload, error)
}

func (a *stubAPI) Charge(ctx context.Context, id, accountStripeID string) (syncpkg.Payload, error) {
	if a.chargeFn != nil {
		return a.chargeFn(ctx, id, accountStripeID)
	}
	return nil, nil
}

func (a *stubAPI) CreateCharge(ctx context.Context, params *stripe.ChargeParams) (syncpkg.Payload, error) {
	return nil, nil
}

func (a *stubAPI) CaptureCharge(ctx context.Context, id string, params *stripe.ChargeCaptureParams) (syncpkg.Payload, error) {
	return nil, nil
}

func (a *stubAPI) CreateRefund(ctx context.Context, params *stripe.RefundParams) (syncpkg.Payload, error) {
	if a.createRefundFn != nil {
		return a.createRefundFn(ctx, params)
	}
	return nil, nil
}

func (a *stubAPI) ListCharges(ctx context.Context, params *stripe.ChargeListParams) ([]syncpkg.Payload, error) {
	if a.listChargesFn != nil {
		return a.listChargesFn(ctx, params)
	}
	return nil, nil
}

func (a *stubAPI) Customer(ctx context.Context, id string) (syncpkg.Payload, error) {
	if a.customerFn != nil {
		return a.customerFn(ctx, id)
	}
	return nil, nil
}

func (a *stubAPI) CreateCustomer(ctx context.Context, params *stripe.CustomerParams) (syncpkg.Payload, error) {
	return nil, nil
}

func (a *stubAPI) UpdateCustomer(ctx context.Context, id string, params *stripe.CustomerParams) (syncpkg.Payload, error) {
	return nil, nil
}

func (a *stubAPI) DeleteCustomer(ctx context.Context, id string) error { return nil }

func (a *stubAPI) Subscription(ctx context.Context, id string) (syncpkg.Payload, error) {
	return nil, nil
}

func (a *stubAPI) CreateSubscription(ctx context.Context, params *stripe.SubscriptionParams) (syncpkg.Payload, error) {
	if a.createSubscriptionFn != nil {
		return a.createSubscriptionFn(ctx, params)
	}
	return nil, nil
}

func (a *stubAPI) UpdateSubscription(ctx context.Context, id string, params *stripe.SubscriptionParams) (syncpkg.Payload, error) {
	if a.updateSubscriptionFn != nil {
		return a.updateSubscriptionFn(ctx, id, params)
	}
	return nil, nil
}

func (a *stubAPI) CancelSubscription(ctx context.Context, id string, params *stripe.SubscriptionCancelParams) (syncpkg.Payload, error) {
	return nil, nil
}

func (a *stubAPI) Invoice(ctx context.Context, id string) (syncpkg.Payload, error) {
	if a.invoiceFn != nil {
		return a.invoiceFn(ctx, id)
	}
	return nil, nil
}

func (a *stubAPI) CreateInvoice(ctx context.Context, params *stripe.InvoiceParams) (syncpkg.Payload, error) {
	return nil, nil
}

func (a *stubAPI) PayInvoice(ctx context.Context, id string, params *stripe.InvoicePayParams) (syncpkg.Payload, error) {
	return nil, nil
}

func (a *stubAPI) ListInvoices(ctx context.Context, params *stripe.InvoiceListParams) ([]syncpkg.Payload, error) {
	if a.listInvoicesFn != nil {
		return a.listInvoicesFn(ctx, params)
	}
	return nil, nil
}

func (a *stubAPI) CreateCard(ctx context.Context, params *stripe.CardParams) (syncpkg.Payload, error) {
	return nil, nil
}

func (a *stubAPI) UpdateCard(ctx context.Context, id string, params *stripe.CardParams) (syncpkg.Payload, error) {
	return nil, nil
}

func (a *stubAPI) DeleteCard(ctx context.Context, id string, params *stripe.CardParams) error {
	return nil
}

func (a *stubAPI) Account(ctx context.Context, id string) (syncpkg.Payload, error) { return nil, nil }

func (a *stubAPI) CreateAccount(ctx context.Context, params *stripe.AccountParams) (syncpkg.Payload, error) {
	return nil, nil
}

func (a *stubAPI) UpdateAccount(ctx context.Context, id string, params *stripe.AccountParams) (syncpkg.Payload, error) {
	return nil, nil
}

func (a *stubAPI) DeleteAccount(ctx context.Context, id string) error { return nil }

func (a *stubAPI) Deauthorize(ctx context.Context, clientID, accountStripeID string) error {
	return nil
}

func (a *stubAPI) CreateBankAccount(ctx context.Context, params *stripe.BankAccountParams) (syncpkg.Payload, error) {
	return nil, nil
}

func (a *stubAPI) UpdateBankAccount(ctx context.Context, id string, params *stripe.BankAccountParams) (syncpkg.Payload, error) {
	return nil, nil
}

func (a *stubAPI) DeleteBankAccount(ctx context.Context, id string, params *stripe.BankAccountParams) error {
	return nil
}

func (a *stubAPI) Transfer(ctx context.Context, id string) (syncpkg.Payload, error) {
	return nil, nil
}

func (a *stubAPI) CreateTransfer(ctx context.Context, params *stripe.TransferParams) (syncpkg.Payload, error) {
	return nil, nil
}

func (a *stubAPI) Event(ctx context.Context, id, accountStripeID string) (syncpkg.Payload, error) {
	if a.eventFn != nil {
		return a.eventFn(ctx, id, accountStripeID)
	}
	return nil, nil
}

func (a *stubAPI) ListPlans(ctx context.Context) ([]syncpkg.Payload, error) {
	if a.listPlansFn != nil {
		return a.listPlansFn(ctx)
	}
	return nil, nil
}

func (a *stubAPI) ListCoupons(ctx context.Context) ([]syncpkg.Payload, error) { return nil, nil }

func (a *stubAPI) ListProducts(ctx context.Context) ([]syncpkg.Payload, error) { return nil, nil }

func (a *stubAPI) ListCustomers(ctx context.Context) ([]syncpkg.Payload, error) {
	if a.listCustomersFn != nil {
		return a.listCustomersFn(ctx)
	}
	return nil, nil
}

var testSchema = []string{
	`CREATE TABLE accounts (
  id TEXT PRIMARY KEY,
  stripe_id TEXT NOT NULL UNIQUE,
  user_ref TEXT,
  business_name TEXT DEFAULT '',
  business_url TEXT DEFAULT '',
  charges_enabled INTEGER NOT NULL DEFAULT 0,
  country TEXT DEFAULT '',
  default_currency TEXT DEFAULT '',
  details_submitted INTEGER NOT NULL DEFAULT 0,
  display_name TEXT DEFAULT '',
  email TEXT DEFAULT '',
  type TEXT DEFAULT '',
  statement_descriptor TEXT DEFAULT '',
  support_email TEXT DEFAULT '',
  support_phone TEXT DEFAULT '',
  timezone TEXT DEFAULT '',
  payouts_enabled INTEGER NOT NULL DEFAULT 0,
  authorized INTEGER NOT NULL DEFAULT 1,
  debit_negative_balances INTEGER NOT NULL DEFAULT 0,
  product_description TEXT DEFAULT '',
  payout_statement_descriptor TEXT DEFAULT '',
  metadata TEXT,
  legal_entity_address_city TEXT,
  legal_entity_address_country TEXT,
  legal_entity_address_line1 TEXT,
  legal_entity_address_line2 TEXT,
  legal_entity_address_postal_code TEXT,
  legal_entity_address_state TEXT,
  legal_entity_dob DATETIME,
  legal_entity_type TEXT,
  legal_entity_first_name TEXT,
  legal_entity_last_name TEXT,
  legal_entity_gender TEXT,
  legal_entity_maiden_name TEXT,
  legal_entity_phone_number TEXT,
  legal_entity_personal_id_number_provided INTEGER NOT NULL DEFAULT 0,
  legal_entity_ssn_last_4_provided INTEGER NOT NULL DEFAULT 0,
  legal_entity_verification_details TEXT,
  legal_entity_verification_details_code TEXT,
  legal_entity_verification_document TEXT,
  legal_entity_verification_status TEXT,
  tos_acceptance_date DATETIME,
  tos_acceptance_ip TEXT,
  tos_acceptance_user_agent TEXT,
  decline_charge_on_avs_failure INTEGER NOT NULL DEFAULT 0,
  decline_charge_on_cvc_failure INTEGER NOT NULL DEFAULT 0,
  payout_schedule_interval TEXT,
  payout_schedule_delay_days INTEGER,
  payout_schedule_weekly_anchor TEXT,
  payout_schedule_monthly_anchor INTEGER,
  verification_disabled_reason TEXT,
  verification_due_by DATETIME,
  verification_fields_needed TEXT,
  created_at DATETIME,
  updated_at DATETIME
);`,
	`CREATE TABLE customers (
  id TEXT PRIMARY KEY,
  stripe_id TEXT NOT NULL UNIQUE,
  user_ref TEXT,
  account_balance NUMERIC,
  currency TEXT DEFAULT '',
  delinquent INTEGER NOT NULL DEFAULT 0,
  default_source TEXT DEFAULT '',
  date_purged DATETIME,
  created_at DATETIME,
  updated_at DATETIME
);`,
	`CREATE TABLE cards (
  id TEXT PRIMARY KEY,
  stripe_id TEXT NOT NULL UNIQUE,
  customer_id TEXT NOT NULL,
  name TEXT DEFAULT '',
  address_line_1 TEXT DEFAULT '',
  address_line_1_check TEXT DEFAULT '',
  address_line_2 TEXT DEFAULT '',
  address_city TEXT DEFAULT '',
  address_state TEXT DEFAULT '',
  address_country TEXT DEFAULT '',
  address_zip TEXT DEFAULT '',
  address_zip_check TEXT DEFAULT '',
  brand TEXT DEFAULT '',
  country TEXT DEFAULT '',
  cvc_check TEXT DEFAULT '',
  dynamic_last4 TEXT DEFAULT '',
  exp_month INTEGER NOT NULL DEFAULT 0,
  exp_year INTEGER NOT NULL DEFAULT 0,
  funding TEXT DEFAULT '',
  last4 TEXT DEFAULT '',
  fingerprint TEXT DEFAULT '',
  created_at DATETIME
);`,
	`CREATE TABLE bitcoin_receivers (
  id TEXT PRIMARY KEY,
  stripe_id TEXT NOT NULL UNIQUE,
  customer_id TEXT NOT NULL,
  active INTEGER NOT NULL DEFAULT 0,
  amount NUMERIC,
  amount_received NUMERIC,
  bitcoin_amount INTEGER NOT NULL DEFAULT 0,
  bitcoin_amount_received INTEGER NOT NULL DEFAULT 0,
  bitcoin_uri TEXT DEFAULT '',
  currency TEXT DEFAULT '',
  description TEXT DEFAULT '',
  email TEXT DEFAULT '',
  filled INTEGER NOT NULL DEFAULT 0,
  inbound_address TEXT DEFAULT '',
  payment TEXT DEFAULT '',
  refund_address TEXT DEFAULT '',
  uncaptured_funds INTEGER NOT NULL DEFAULT 0,
  used_for_payment INTEGER NOT NULL DEFAULT 0,
  created_at DATETIME
);`,
	`CREATE TABLE plans (
  id TEXT PRIMARY KEY,
  stripe_id TEXT NOT NULL UNIQUE,
  amount NUMERIC,
  currency TEXT DEFAULT '',
  interval TEXT DEFAULT '',
  interval_count INTEGER NOT NULL DEFAULT 0,
  name TEXT DEFAULT '',
  statement_descriptor TEXT DEFAULT '',
  trial_period_days INTEGER,
  metadata TEXT,
  created_at DATETIME
);`,
	`CREATE TABLE subscriptions (
  id TEXT PRIMARY KEY,
  stripe_id TEXT NOT NULL UNIQUE,
  customer_id TEXT NOT NULL,
  plan_id TEXT,
  stripe_account_id TEXT,
  application_fee_percent NUMERIC,
  cancel_at_period_end INTEGER NOT NULL DEFAULT 0,
  canceled_at DATETIME,
  current_period_start DATETIME,
  current_period_end DATETIME,
  ended_at DATETIME,
  quantity INTEGER NOT NULL DEFAULT 1,
  start DATETIME,
  status TEXT DEFAULT '',
  trial_start DATETIME,
  trial_end DATETIME,
  created_at DATETIME,
  updated_at DATETIME
);`,
	`CREATE TABLE subscription_items (
  id TEXT PRIMARY KEY,
  stripe_id TEXT NOT NULL UNIQUE,
  subscription_id TEXT NOT NULL,
  plan_id TEXT NOT NULL,
  quantity INTEGER NOT NULL DEFAULT 1,
  created_at DATETIME
);`,
	`CREATE TABLE charges (
  id TEXT PRIMARY KEY,
  stripe_id TEXT NOT NULL UNIQUE,
  customer_id TEXT NOT NULL,
  invoice_id TEXT,
  source TEXT DEFAULT '',
  stripe_account_stripe_id TEXT DEFAULT '',
  currency TEXT DEFAULT '',
  amount NUMERIC,
  amount_refunded NUMERIC,
  description TEXT DEFAULT '',
  paid INTEGER,
  disputed INTEGER,
  refunded INTEGER,
  captured INTEGER,
  fee NUMERIC,
  receipt_sent INTEGER NOT NULL DEFAULT 0,
  charge_created DATETIME,
  created_at DATETIME,
  updated_at DATETIME
);`,
	`CREATE TABLE invoices (
  id TEXT PRIMARY KEY,
  stripe_id TEXT NOT NULL UNIQUE,
  customer_id TEXT NOT NULL,
  subscription_id TEXT,
  charge_id TEXT,
  amount_due NUMERIC,
  subtotal NUMERIC,
  total NUMERIC,
  currency TEXT DEFAULT '',
  period_start DATETIME,
  period_end DATETIME,
  date DATETIME,
  closed INTEGER NOT NULL DEFAULT 0,
  paid INTEGER NOT NULL DEFAULT 0,
  attempted INTEGER,
  attempt_count INTEGER,
  statement_descriptor TEXT DEFAULT '',
  receipt_number TEXT DEFAULT '',
  created_at DATETIME,
  updated_at DATETIME
);`,
	`CREATE TABLE transfers (
  id TEXT PRIMARY KEY,
  stripe_id TEXT NOT NULL,
  event_id TEXT,
  amount NUMERIC,
  currency TEXT DEFAULT '',
  status TEXT DEFAULT '',
  date DATETIME,
  description TEXT DEFAULT '',
  destination TEXT DEFAULT '',
  adjustment_count INTEGER,
  adjustment_fees NUMERIC,
  adjustment_gross NUMERIC,
  charge_count INTEGER,
  charge_fees NUMERIC,
  charge_gross NUMERIC,
  collected_fee_count INTEGER,
  collected_fee_gross NUMERIC,
  net NUMERIC,
  refund_count INTEGER,
  refund_fees NUMERIC,
  refund_gross NUMERIC,
  validation_count INTEGER,
  validation_fees NUMERIC,
  created_at DATETIME,
  updated_at DATETIME,
  UNIQUE (stripe_id, event_id)
);`,
	`CREATE TABLE events (
  id TEXT PRIMARY KEY,
  stripe_id TEXT NOT NULL UNIQUE,
  kind TEXT NOT NULL,
  livemode INTEGER NOT NULL DEFAULT 0,
  customer_id TEXT,
  stripe_account_id TEXT,
  webhook_message TEXT NOT NULL,
  validated_message TEXT,
  valid INTEGER,
  processed INTEGER NOT NULL DEFAULT 0,
  request TEXT DEFAULT '',
  pending_webhooks INTEGER NOT NULL DEFAULT 0,
  api_version TEXT DEFAULT '',
  created_at DATETIME
);`,
	`CREATE TABLE event_processing_exceptions (
  id TEXT PRIMARY KEY,
  event_id TEXT,
  data TEXT DEFAULT '',
  message TEXT DEFAULT '',
  traceback TEXT DEFAULT '',
  created_at DATETIME
);`,
}

func newTestClient(t *testing.T) *db.Client {
	t.Helper()

	client, err := db.New(context.Background(), config.DBConfig{Driver: "sqlite", DSN: ":memory:"}, nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = client.Close() })

	for _, stmt := range testSchema {
		require.NoError(t, client.DB().Exec(stmt).Error)
	}
	return client
}

func newTestService(t *testing.T, api API) *Service {
	t.Helper()

	client := newTestClient(t)
	cfg := &config.Config{}
	svc, err := NewService(ServiceParams{
		DB:     client,
		API:    api,
		Hooks:  hooks.NewDefaultHookSet(client.DB(), nil, cfg.Billing, nil),
		Config: cfg,
	})
	require.NoError(t, err)
	return svc
}
