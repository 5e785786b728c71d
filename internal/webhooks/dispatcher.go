package webhooks

import (
	"context"
	"encoding/json"
	"fmt"
	"reflect"
	"strings"
	"time"

	"github.com/dmfranc/stripemirror/internal/actions"
	syncpkg "github.com/dmfranc/stripemirror/internal/sync"
	"github.com/dmfranc/stripemirror/pkg/db/models"
	pkgerrors "github.com/dmfranc/stripemirror/pkg/errors"
	"github.com/dmfranc/stripemirror/pkg/logger"
	"github.com/dmfranc/stripemirror/pkg/metrics"
	"github.com/dmfranc/stripemirror/pkg/stripeclient"
)

// Dispatcher drives one recorded event through validation, kind-specific
// mirror work, customer linkage, and signal delivery. Processing is
// idempotent: an event already marked processed is a no-op.
type Dispatcher struct {
	actions  *actions.Service
	registry *Registry
	signals  *SignalHub
	metrics  *metrics.EventMetrics
	logg     *logger.Logger
}

type DispatcherParams struct {
	Actions  *actions.Service
	Registry *Registry
	Signals  *SignalHub
	Metrics  *metrics.EventMetrics
	Logger   *logger.Logger
}

func NewDispatcher(params DispatcherParams) (*Dispatcher, error) {
	if params.Actions == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "actions service required")
	}
	registry := params.Registry
	if registry == nil {
		registry = NewRegistry()
		RegisterDefaults(registry)
	}
	signals := params.Signals
	if signals == nil {
		signals = NewSignalHub()
	}
	return &Dispatcher{
		actions:  params.Actions,
		registry: registry,
		signals:  signals,
		metrics:  params.Metrics,
		logg:     params.Logger,
	}, nil
}

// Registry exposes the handler registry for host-application overrides.
func (d *Dispatcher) Registry() *Registry {
	return d.registry
}

// Signals exposes the signal hub so hosts can connect receivers.
func (d *Dispatcher) Signals() *SignalHub {
	return d.signals
}

// Process validates the event against the processor and, when it checks out,
// runs the registered handler, links the mirrored customer, notifies signal
// receivers, and marks the event processed. Handler failures are recorded as
// processing exceptions and returned; the event stays unprocessed so a replay
// can retry it.
func (d *Dispatcher) Process(ctx context.Context, event *models.Event) error {
	if event == nil {
		return pkgerrors.New(pkgerrors.CodeValidation, "event required")
	}
	if event.Processed {
		return nil
	}

	start := time.Now()
	defer func() {
		d.metrics.ObserveDuration(event.Kind, time.Since(start))
	}()

	valid, err := d.validate(ctx, event)
	if err != nil {
		d.recordFailure(ctx, event, err)
		return err
	}
	if !valid {
		d.metrics.IncInvalid(event.Kind)
		d.warn(ctx, event, "event payload did not match processor copy")
		return nil
	}

	if err := d.handle(ctx, event); err != nil {
		d.recordFailure(ctx, event, err)
		return err
	}

	if err := d.markProcessed(ctx, event); err != nil {
		d.recordFailure(ctx, event, err)
		return err
	}
	d.metrics.IncProcessed(event.Kind)
	return nil
}

func (d *Dispatcher) handle(ctx context.Context, event *models.Event) error {
	object, err := eventObject(event.Message())
	if err != nil {
		return err
	}

	if work, ok := d.registry.Get(event.Kind); ok {
		if work != nil {
			if err := work(ctx, d, event, object); err != nil {
				return err
			}
		}
	} else {
		d.warn(ctx, event, "no handler registered for event kind")
	}

	if err := d.actions.LinkCustomer(ctx, event); err != nil {
		return err
	}
	return d.signals.Send(ctx, event)
}

// validate re-fetches the event from the processor, scoped to the connected
// account it was delivered for, and compares the payload object with the
// delivered copy. The authoritative copy is stored alongside the raw webhook
// body either way.
func (d *Dispatcher) validate(ctx context.Context, event *models.Event) (bool, error) {
	accountStripeID, err := d.accountStripeID(ctx, event)
	if err != nil {
		return false, err
	}

	fetched, err := d.actions.API().Event(ctx, event.StripeID, accountStripeID)
	if err != nil {
		if event.Kind == "account.application.deauthorized" && d.deauthorizationConfirmed(err, accountStripeID) {
			// The key no longer has access to the account, which is
			// exactly what this event claims. Treat the delivered
			// payload as authoritative.
			return true, d.storeValidation(ctx, event, event.WebhookMessage, true)
		}
		return false, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "validating event with processor")
	}

	raw, err := json.Marshal(fetched)
	if err != nil {
		return false, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "encoding validated event")
	}

	webhookObject, err := eventObject(event.WebhookMessage)
	if err != nil {
		return false, err
	}
	fetchedObject := objectOf(fetched)

	valid := webhookObject != nil && fetchedObject != nil && reflect.DeepEqual(webhookObject, fetchedObject)
	return valid, d.storeValidation(ctx, event, raw, valid)
}

// deauthorizationConfirmed reports whether a validation failure is itself
// proof of deauthorization: the processor refuses the scoped fetch and names
// either the account or our key in the refusal.
func (d *Dispatcher) deauthorizationConfirmed(err error, accountStripeID string) bool {
	if !stripeclient.IsPermissionError(err) {
		return false
	}
	msg := err.Error()
	if accountStripeID != "" && strings.Contains(msg, accountStripeID) {
		return true
	}
	client := d.actions.Client()
	return client != nil && strings.Contains(msg, client.ObfuscatedSecretKey())
}

func (d *Dispatcher) storeValidation(ctx context.Context, event *models.Event, validated json.RawMessage, valid bool) error {
	event.ValidatedMessage = validated
	event.Valid = &valid
	err := d.actions.DB().DB().WithContext(ctx).
		Model(&models.Event{}).
		Where("id = ?", event.ID).
		Updates(map[string]any{
			"validated_message": validated,
			"valid":             valid,
		}).Error
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "storing event validation")
	}
	return nil
}

func (d *Dispatcher) markProcessed(ctx context.Context, event *models.Event) error {
	err := d.actions.DB().DB().WithContext(ctx).
		Model(&models.Event{}).
		Where("id = ?", event.ID).
		Update("processed", true).Error
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "marking event processed")
	}
	event.Processed = true
	return nil
}

// accountStripeID resolves the processor id of the connected account the
// event was delivered for, empty for platform-level events.
func (d *Dispatcher) accountStripeID(ctx context.Context, event *models.Event) (string, error) {
	if event.StripeAccountID == nil {
		return "", nil
	}
	var account models.Account
	err := d.actions.DB().DB().WithContext(ctx).
		Where("id = ?", *event.StripeAccountID).
		First(&account).Error
	if err != nil {
		return "", pkgerrors.Wrap(pkgerrors.CodeDependency, err, "resolving event account")
	}
	return account.StripeID, nil
}

func (d *Dispatcher) recordFailure(ctx context.Context, event *models.Event, cause error) {
	d.metrics.IncFailed(event.Kind)
	logErr := d.actions.LogEventException(ctx, event, stripeclient.ErrorBody(cause), cause.Error(), fmt.Sprintf("%+v", cause))
	if logErr != nil {
		d.error(ctx, event, "recording event processing exception", logErr)
	}
	d.error(ctx, event, "event processing failed", cause)
}

func (d *Dispatcher) eventCtx(ctx context.Context, event *models.Event) context.Context {
	ctx = d.logg.WithEventID(ctx, event.StripeID)
	return d.logg.WithEventKind(ctx, event.Kind)
}

func (d *Dispatcher) warn(ctx context.Context, event *models.Event, msg string) {
	if d.logg == nil {
		return
	}
	d.logg.Warn(d.eventCtx(ctx, event), msg)
}

func (d *Dispatcher) error(ctx context.Context, event *models.Event, msg string, err error) {
	if d.logg == nil {
		return
	}
	d.logg.Error(d.eventCtx(ctx, event), msg, err)
}

// eventObject extracts the data.object block of an event message.
func eventObject(message json.RawMessage) (syncpkg.Payload, error) {
	if len(message) == 0 {
		return nil, nil
	}
	payload, err := syncpkg.DecodePayload(message)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "decoding event message")
	}
	return objectOf(payload), nil
}

func objectOf(payload syncpkg.Payload) syncpkg.Payload {
	data, ok := payload["data"].(map[string]any)
	if !ok {
		return nil
	}
	object, ok := data["object"].(map[string]any)
	if !ok {
		return nil
	}
	return object
}
