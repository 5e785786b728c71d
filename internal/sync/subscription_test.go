package sync

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/dmfranc/stripemirror/pkg/db/models"
)

func TestSubscriptionSyncIdempotent(t *testing.T) {
	s, gdb := newTestSyncer(t)
	ctx := context.Background()

	cust, err := s.EnsureCustomer(ctx, "cus_1")
	require.NoError(t, err)

	payload := Payload{
		"id":                   "sub_a",
		"status":               "active",
		"quantity":             float64(2),
		"cancel_at_period_end": false,
		"current_period_start": float64(1365567407),
		"current_period_end":   float64(1368159407),
		"plan":                 map[string]any{"id": "plan_gold", "amount": float64(2000), "currency": "usd"},
	}

	first, err := s.Subscription(ctx, cust, payload)
	require.NoError(t, err)
	second, err := s.Subscription(ctx, cust, payload)
	require.NoError(t, err)
	require.Equal(t, first.ID, second.ID)
	require.Equal(t, int64(2), second.Quantity)
	require.NotNil(t, second.CurrentPeriodStart)
	require.Equal(t,
		time.Date(2013, 4, 10, 4, 16, 47, 0, time.UTC),
		second.CurrentPeriodStart.UTC())

	var count int64
	require.NoError(t, gdb.Model(&models.Subscription{}).Count(&count).Error)
	require.Equal(t, int64(1), count)
}

func TestSubscriptionItemsReconciled(t *testing.T) {
	s, gdb := newTestSyncer(t)
	ctx := context.Background()

	cust, err := s.EnsureCustomer(ctx, "cus_1")
	require.NoError(t, err)

	item := func(id, planID string, qty float64) map[string]any {
		return map[string]any{
			"id":       id,
			"quantity": qty,
			"plan":     map[string]any{"id": planID, "amount": float64(500), "currency": "usd"},
		}
	}

	_, err = s.Subscription(ctx, cust, Payload{
		"id":     "sub_a",
		"status": "active",
		"items": map[string]any{
			"object": "list",
			"data":   []any{item("si_1", "plan_a", 1), item("si_2", "plan_b", 3)},
		},
	})
	require.NoError(t, err)

	var count int64
	require.NoError(t, gdb.Model(&models.SubscriptionItem{}).Count(&count).Error)
	require.Equal(t, int64(2), count)

	// a later payload missing si_2 prunes it
	_, err = s.Subscription(ctx, cust, Payload{
		"id":     "sub_a",
		"status": "active",
		"items": map[string]any{
			"object": "list",
			"data":   []any{item("si_1", "plan_a", 5)},
		},
	})
	require.NoError(t, err)

	var items []models.SubscriptionItem
	require.NoError(t, gdb.Find(&items).Error)
	require.Len(t, items, 1)
	require.Equal(t, "si_1", items[0].StripeID)
	require.Equal(t, int64(5), items[0].Quantity)
}

func TestDeleteSubscriptionClearsLocalState(t *testing.T) {
	s, gdb := newTestSyncer(t)
	ctx := context.Background()

	cust, err := s.EnsureCustomer(ctx, "cus_1")
	require.NoError(t, err)
	sub, err := s.Subscription(ctx, cust, Payload{
		"id":       "sub_a",
		"status":   "active",
		"quantity": float64(2),
		"plan":     map[string]any{"id": "plan_gold", "amount": float64(2000), "currency": "usd"},
	})
	require.NoError(t, err)

	require.NoError(t, s.DeleteSubscription(ctx, sub))

	var count int64
	require.NoError(t, gdb.Model(&models.Subscription{}).Count(&count).Error)
	require.Zero(t, count)
	require.NoError(t, gdb.Model(&models.SubscriptionItem{}).Count(&count).Error)
	require.Zero(t, count)

	// the in-memory struct observes the deletion too
	require.Equal(t, "", sub.Status)
	require.Nil(t, sub.PlanID)
	require.Zero(t, sub.Quantity)
	require.False(t, sub.IsValid())
}

func TestSubscriptionExplicitNullPlanClearsReference(t *testing.T) {
	s, _ := newTestSyncer(t)
	ctx := context.Background()

	cust, err := s.EnsureCustomer(ctx, "cus_1")
	require.NoError(t, err)

	sub, err := s.Subscription(ctx, cust, Payload{
		"id":   "sub_a",
		"plan": map[string]any{"id": "plan_gold"},
	})
	require.NoError(t, err)
	require.NotNil(t, sub.PlanID)

	sub, err = s.Subscription(ctx, cust, Payload{"id": "sub_a", "plan": nil})
	require.NoError(t, err)
	require.Nil(t, sub.PlanID)
}
