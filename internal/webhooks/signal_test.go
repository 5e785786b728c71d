package webhooks

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/dmfranc/stripemirror/pkg/db/models"
	pkgerrors "github.com/dmfranc/stripemirror/pkg/errors"
)

func TestSignalHubDeliversInRegistrationOrder(t *testing.T) {
	hub := NewSignalHub()
	var order []string
	hub.Connect("charge.succeeded", func(ctx context.Context, event *models.Event) error {
		order = append(order, "first")
		return nil
	})
	hub.Connect("charge.succeeded", func(ctx context.Context, event *models.Event) error {
		order = append(order, "second")
		return nil
	})
	hub.Connect("charge.failed", func(ctx context.Context, event *models.Event) error {
		order = append(order, "other-kind")
		return nil
	})

	event := &models.Event{Kind: "charge.succeeded"}
	require.NoError(t, hub.Send(context.Background(), event))
	require.Equal(t, []string{"first", "second"}, order)
}

func TestSignalHubErrorAbortsRemaining(t *testing.T) {
	hub := NewSignalHub()
	boom := pkgerrors.New(pkgerrors.CodeInternal, "receiver exploded")
	var reached bool
	hub.Connect("ping", func(ctx context.Context, event *models.Event) error {
		return boom
	})
	hub.Connect("ping", func(ctx context.Context, event *models.Event) error {
		reached = true
		return nil
	})

	err := hub.Send(context.Background(), &models.Event{Kind: "ping"})
	require.ErrorIs(t, err, boom)
	require.False(t, reached)
}

func TestSignalHubNoReceiversIsNoop(t *testing.T) {
	hub := NewSignalHub()
	require.NoError(t, hub.Send(context.Background(), &models.Event{Kind: "ping"}))
	require.Empty(t, hub.Kinds())
}

func TestRegistryLastRegistrationWins(t *testing.T) {
	r := NewRegistry()
	var hit string
	r.Register("charge.succeeded", func(ctx context.Context, d *Dispatcher, event *models.Event, object map[string]any) error {
		hit = "default"
		return nil
	})
	r.Register("charge.succeeded", func(ctx context.Context, d *Dispatcher, event *models.Event, object map[string]any) error {
		hit = "override"
		return nil
	})

	work, ok := r.Get("charge.succeeded")
	require.True(t, ok)
	require.NoError(t, work(context.Background(), nil, nil, nil))
	require.Equal(t, "override", hit)
}

func TestRegistryNilWorkMarksKindKnown(t *testing.T) {
	r := NewRegistry()
	r.Register("balance.available", nil)

	work, ok := r.Get("balance.available")
	require.True(t, ok)
	require.Nil(t, work)

	_, ok = r.Get("never.registered")
	require.False(t, ok)
}

func TestRegisterDefaultsCoversLifecycleKinds(t *testing.T) {
	r := NewRegistry()
	RegisterDefaults(r)
	kinds := r.Kinds()
	require.IsIncreasing(t, kinds)

	for _, kind := range []string{
		"account.updated",
		"account.application.deauthorized",
		"charge.succeeded",
		"customer.subscription.created",
		"customer.subscription.deleted",
		"invoice.payment_succeeded",
		"transfer.paid",
		"ping",
	} {
		_, ok := r.Get(kind)
		require.True(t, ok, "kind %s not registered", kind)
	}
}
