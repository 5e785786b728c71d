package sync

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/dmfranc/stripemirror/pkg/db/models"
	pkgerrors "github.com/dmfranc/stripemirror/pkg/errors"
)

func TestPlanSyncScalesAmountAndUpdatesInPlace(t *testing.T) {
	s, gdb := newTestSyncer(t)
	ctx := context.Background()

	plan, err := s.Plan(ctx, Payload{
		"id":             "plan_gold",
		"amount":         float64(2000),
		"currency":       "usd",
		"interval":       "month",
		"interval_count": float64(1),
		"name":           "Gold",
	})
	require.NoError(t, err)
	require.Equal(t, "plan_gold", plan.StripeID)
	require.True(t, plan.Amount.Equal(decimal.RequireFromString("20")), "got %s", plan.Amount)
	require.Equal(t, "month", plan.Interval)

	// A partial payload only touches the fields it carries.
	plan, err = s.Plan(ctx, Payload{"id": "plan_gold", "name": "Gold v2"})
	require.NoError(t, err)
	require.Equal(t, "Gold v2", plan.Name)
	require.True(t, plan.Amount.Equal(decimal.RequireFromString("20")))

	var count int64
	require.NoError(t, gdb.Model(&models.Plan{}).Count(&count).Error)
	require.Equal(t, int64(1), count)
}

func TestPlanSyncZeroDecimalCurrency(t *testing.T) {
	s, _ := newTestSyncer(t)

	plan, err := s.Plan(context.Background(), Payload{
		"id":       "plan_jpy",
		"amount":   float64(2000),
		"currency": "jpy",
	})
	require.NoError(t, err)
	require.True(t, plan.Amount.Equal(decimal.RequireFromString("2000")), "got %s", plan.Amount)
}

func TestPlanSyncMissingID(t *testing.T) {
	s, _ := newTestSyncer(t)

	_, err := s.Plan(context.Background(), Payload{"name": "nameless"})
	require.Error(t, err)
	require.Equal(t, pkgerrors.CodeValidation, pkgerrors.As(err).Code())
}

func TestDeletePlan(t *testing.T) {
	s, gdb := newTestSyncer(t)
	ctx := context.Background()

	_, err := s.Plan(ctx, Payload{"id": "plan_x", "name": "X"})
	require.NoError(t, err)
	require.NoError(t, s.DeletePlan(ctx, "plan_x"))

	var count int64
	require.NoError(t, gdb.Model(&models.Plan{}).Count(&count).Error)
	require.Equal(t, int64(0), count)
}

func TestCouponSyncScopedPerAccount(t *testing.T) {
	s, gdb := newTestSyncer(t)
	ctx := context.Background()
	account := &models.Account{ID: uuid.New(), StripeID: "acct_1"}

	platform, err := s.Coupon(ctx, Payload{
		"id":          "25off",
		"percent_off": float64(25),
		"duration":    "once",
		"valid":       true,
	}, nil)
	require.NoError(t, err)
	require.Nil(t, platform.StripeAccountID)

	scoped, err := s.Coupon(ctx, Payload{
		"id":          "25off",
		"percent_off": float64(25),
		"duration":    "once",
	}, account)
	require.NoError(t, err)
	require.NotNil(t, scoped.StripeAccountID)
	require.NotEqual(t, platform.ID, scoped.ID)

	// nil scope deletes only the platform row
	require.NoError(t, s.DeleteCoupon(ctx, "25off", nil))
	var remaining []models.Coupon
	require.NoError(t, gdb.Find(&remaining).Error)
	require.Len(t, remaining, 1)
	require.Equal(t, scoped.ID, remaining[0].ID)
}

func TestDiscountSyncRequiresMatchingCustomer(t *testing.T) {
	s, _ := newTestSyncer(t)
	ctx := context.Background()

	cust, err := s.EnsureCustomer(ctx, "cus_1")
	require.NoError(t, err)

	err = s.Discount(ctx, Payload{
		"customer": "cus_other",
		"coupon":   map[string]any{"id": "25off", "percent_off": float64(25)},
	}, cust, nil)
	require.Error(t, err)
	require.Equal(t, pkgerrors.CodeInconsistent, pkgerrors.As(err).Code())
}

func TestDiscountSyncUpsertsSingleRowPerCustomer(t *testing.T) {
	s, gdb := newTestSyncer(t)
	ctx := context.Background()

	cust, err := s.EnsureCustomer(ctx, "cus_1")
	require.NoError(t, err)

	payload := Payload{
		"customer": "cus_1",
		"coupon":   map[string]any{"id": "25off", "percent_off": float64(25)},
		"start":    float64(1365567407),
	}
	require.NoError(t, s.Discount(ctx, payload, cust, nil))
	require.NoError(t, s.Discount(ctx, payload, cust, nil))

	var discounts []models.Discount
	require.NoError(t, gdb.Find(&discounts).Error)
	require.Len(t, discounts, 1)
	require.Equal(t, cust.ID, discounts[0].CustomerID)
	require.NotNil(t, discounts[0].Start)
	require.Equal(t, int64(1365567407), discounts[0].Start.Unix())

	require.NoError(t, s.DeleteDiscount(ctx, cust))
	var count int64
	require.NoError(t, gdb.Model(&models.Discount{}).Count(&count).Error)
	require.Equal(t, int64(0), count)
}
