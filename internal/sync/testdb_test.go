package sync

import (
	"io"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/dmfranc/stripemirror/pkg/logger"
)

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	gdb, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	require.NoError(t, err)

	statements := []string{
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
		`CREATE TABLE coupons (
  id TEXT PRIMARY KEY,
  stripe_id TEXT NOT NULL,
  stripe_account_id TEXT,
  amount_off NUMERIC,
  percent_off INTEGER,
  currency TEXT DEFAULT '',
  duration TEXT DEFAULT '',
  duration_in_months INTEGER,
  livemode INTEGER NOT NULL DEFAULT 0,
  max_redemptions INTEGER,
  metadata TEXT,
  redeem_by DATETIME,
  times_redeemed INTEGER,
  valid INTEGER NOT NULL DEFAULT 0,
  created_at DATETIME,
  UNIQUE (stripe_id, stripe_account_id)
);`,
		`CREATE TABLE discounts (
  id TEXT PRIMARY KEY,
  customer_id TEXT NOT NULL UNIQUE,
  coupon_id TEXT NOT NULL,
  start DATETIME,
  "end" DATETIME,
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
		`CREATE TABLE invoice_items (
  id TEXT PRIMARY KEY,
  stripe_id TEXT NOT NULL,
  invoice_id TEXT NOT NULL,
  plan_id TEXT,
  subscription_id TEXT,
  amount NUMERIC,
  currency TEXT DEFAULT '',
  period_start DATETIME,
  period_end DATETIME,
  proration INTEGER NOT NULL DEFAULT 0,
  line_type TEXT DEFAULT '',
  description TEXT DEFAULT '',
  quantity INTEGER,
  created_at DATETIME,
  UNIQUE (stripe_id, invoice_id)
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
		`CREATE TABLE transfer_charge_fees (
  id TEXT PRIMARY KEY,
  transfer_id TEXT NOT NULL,
  amount NUMERIC,
  currency TEXT DEFAULT '',
  application TEXT DEFAULT '',
  description TEXT DEFAULT '',
  kind TEXT DEFAULT '',
  created_at DATETIME
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
	}
	for _, stmt := range statements {
		require.NoError(t, gdb.Exec(stmt).Error)
	}
	return gdb
}

func newTestSyncer(t *testing.T) (*Syncer, *gorm.DB) {
	t.Helper()
	gdb := newTestDB(t)
	logg := logger.New(logger.Options{Level: zerolog.ErrorLevel, Output: io.Discard})
	return NewSyncer(gdb, nil, logg), gdb
}
