package sync

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/dmfranc/stripemirror/pkg/db/models"
)

func makeEvent(t *testing.T, s *Syncer, kind string) *models.Event {
	t.Helper()
	event := &models.Event{
		ID:             uuid.New(),
		StripeID:       "evt_" + uuid.NewString()[:8],
		Kind:           kind,
		WebhookMessage: json.RawMessage(`{}`),
	}
	require.NoError(t, s.db.Create(event).Error)
	return event
}

func TestTransferSyncKeyedPerEvent(t *testing.T) {
	s, gdb := newTestSyncer(t)
	ctx := context.Background()

	created := makeEvent(t, s, "transfer.created")
	updated := makeEvent(t, s, "transfer.updated")

	payload := Payload{
		"id":       "tr_1",
		"amount":   float64(4500),
		"currency": "usd",
		"status":   "pending",
		"date":     float64(1365567407),
	}
	first, err := s.Transfer(ctx, payload, created)
	require.NoError(t, err)
	require.True(t, first.Amount.Equal(decimal.RequireFromString("45")))

	second, err := s.Transfer(ctx, payload, updated)
	require.NoError(t, err)
	require.NotEqual(t, first.ID, second.ID)

	var count int64
	require.NoError(t, gdb.Model(&models.Transfer{}).Count(&count).Error)
	require.Equal(t, int64(2), count)
}

func TestTransferPaidOverwritesExistingRow(t *testing.T) {
	s, gdb := newTestSyncer(t)
	ctx := context.Background()

	created := makeEvent(t, s, "transfer.created")
	paid := makeEvent(t, s, "transfer.paid")

	row, err := s.Transfer(ctx, Payload{
		"id":       "tr_1",
		"amount":   float64(4500),
		"currency": "usd",
		"status":   "pending",
	}, created)
	require.NoError(t, err)

	overwritten, err := s.Transfer(ctx, Payload{
		"id":     "tr_1",
		"status": "paid",
	}, paid)
	require.NoError(t, err)
	require.Equal(t, row.ID, overwritten.ID)
	require.Equal(t, "paid", overwritten.Status)
	require.NotNil(t, overwritten.EventID)
	require.Equal(t, paid.ID, *overwritten.EventID)

	var count int64
	require.NoError(t, gdb.Model(&models.Transfer{}).Count(&count).Error)
	require.Equal(t, int64(1), count)
}

func TestTransferSummaryAndFeeLines(t *testing.T) {
	s, gdb := newTestSyncer(t)
	ctx := context.Background()

	event := makeEvent(t, s, "transfer.created")
	transfer, err := s.Transfer(ctx, Payload{
		"id":       "tr_1",
		"amount":   float64(4500),
		"currency": "usd",
		"summary": map[string]any{
			"charge_count": float64(3),
			"charge_gross": float64(5000),
			"charge_fees":  float64(500),
			"net":          float64(4500),
			"charge_fee_details": []any{
				map[string]any{
					"amount":   float64(155),
					"currency": "usd",
					"type":     "stripe_fee",
				},
			},
		},
	}, event)
	require.NoError(t, err)
	require.NotNil(t, transfer.ChargeCount)
	require.Equal(t, 3, *transfer.ChargeCount)
	require.NotNil(t, transfer.Net)
	require.True(t, transfer.Net.Equal(decimal.RequireFromString("45")))

	var fees []models.TransferChargeFee
	require.NoError(t, gdb.Where("transfer_id = ?", transfer.ID).Find(&fees).Error)
	require.Len(t, fees, 1)
	require.Equal(t, "stripe_fee", fees[0].Kind)
	require.True(t, fees[0].Amount.Equal(decimal.RequireFromString("1.55")))
}
