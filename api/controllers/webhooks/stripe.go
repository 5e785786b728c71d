package webhooks

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/stripe/stripe-go/v84/webhook"

	"github.com/dmfranc/stripemirror/api/responses"
	"github.com/dmfranc/stripemirror/internal/actions"
	"github.com/dmfranc/stripemirror/pkg/db/models"
	pkgerrors "github.com/dmfranc/stripemirror/pkg/errors"
	"github.com/dmfranc/stripemirror/pkg/logger"
	"github.com/dmfranc/stripemirror/pkg/metrics"
	"github.com/dmfranc/stripemirror/pkg/redis"
)

// EventRecorder persists incoming deliveries.
type EventRecorder interface {
	AddEvent(ctx context.Context, input actions.AddEventInput) (*models.Event, bool, error)
}

// EventProcessor drives a recorded event through validation and handling.
type EventProcessor interface {
	Process(ctx context.Context, event *models.Event) error
}

type signingClient interface {
	SigningSecret() string
}

// envelope is the subset of an event body the intake needs before the
// pipeline takes over.
type envelope struct {
	ID              string          `json:"id"`
	Type            string          `json:"type"`
	Livemode        bool            `json:"livemode"`
	APIVersion      string          `json:"api_version"`
	PendingWebhooks int             `json:"pending_webhooks"`
	Account         string          `json:"account"`
	UserID          string          `json:"user_id"`
	Request         json.RawMessage `json:"request"`
}

func (e envelope) accountStripeID() string {
	if e.Account != "" {
		return e.Account
	}
	return e.UserID
}

// requestRef tolerates both the legacy string form and the object form of
// the request field.
func (e envelope) requestRef() string {
	if len(e.Request) == 0 {
		return ""
	}
	var s string
	if err := json.Unmarshal(e.Request, &s); err == nil {
		return s
	}
	var obj struct {
		ID string `json:"id"`
	}
	if err := json.Unmarshal(e.Request, &obj); err == nil {
		return obj.ID
	}
	return ""
}

// StripeWebhook ingests processor event deliveries. Replays of an
// already-recorded event id are acknowledged without reprocessing; everything
// else is recorded and dispatched synchronously.
func StripeWebhook(
	recorder EventRecorder,
	processor EventProcessor,
	client signingClient,
	dedup redis.DedupStore,
	dedupTTL time.Duration,
	eventMetrics *metrics.EventMetrics,
	logg *logger.Logger,
) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()

		if recorder == nil || processor == nil {
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeInternal, "webhook pipeline unavailable"))
			return
		}

		body, err := io.ReadAll(r.Body)
		if err != nil {
			responses.WriteError(ctx, logg, w, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "read request body"))
			return
		}

		if client != nil && client.SigningSecret() != "" {
			sigHeader := r.Header.Get("Stripe-Signature")
			if sigHeader == "" {
				responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeValidation, "stripe signature missing"))
				return
			}
			if _, err := webhook.ConstructEvent(body, sigHeader, client.SigningSecret()); err != nil {
				responses.WriteError(ctx, logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "verify signature"))
				return
			}
		}

		var env envelope
		if err := json.Unmarshal(body, &env); err != nil {
			responses.WriteError(ctx, logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "decode event body"))
			return
		}
		if env.ID == "" || env.Type == "" {
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeValidation, "event id and type required"))
			return
		}

		eventMetrics.IncReceived(env.Type)

		var dedupKey string
		if dedup != nil {
			dedupKey = dedup.DedupKey("stripe", env.ID)
			fresh, err := dedup.SetNX(ctx, dedupKey, env.Type, dedupTTL)
			if err != nil {
				// A dedup outage degrades to the database unique index.
				if logg != nil {
					logg.Warn(ctx, "event dedup store unavailable: "+err.Error())
				}
			} else if !fresh {
				eventMetrics.IncDuplicate()
				responses.WriteSuccess(w, nil)
				return
			}
		}

		event, duplicate, err := recorder.AddEvent(ctx, actions.AddEventInput{
			StripeID:        env.ID,
			Kind:            env.Type,
			Livemode:        env.Livemode,
			Message:         body,
			APIVersion:      env.APIVersion,
			Request:         env.requestRef(),
			PendingWebhooks: env.PendingWebhooks,
			AccountStripeID: env.accountStripeID(),
		})
		if err != nil {
			releaseDedup(ctx, dedup, dedupKey)
			responses.WriteError(ctx, logg, w, err)
			return
		}
		if duplicate {
			eventMetrics.IncDuplicate()
			responses.WriteSuccess(w, nil)
			return
		}

		// Handler failures are already recorded as processing exceptions and
		// the event stays unprocessed; acknowledging the delivery keeps the
		// processor from hammering the endpoint while a replay can retry.
		if err := processor.Process(ctx, event); err != nil {
			releaseDedup(ctx, dedup, dedupKey)
			if logg != nil {
				logg.Error(ctx, "event processing failed", err)
			}
			responses.WriteSuccess(w, nil)
			return
		}

		if logg != nil {
			logg.Info(ctx, fmt.Sprintf("stripe event %s processed", env.ID))
		}
		responses.WriteSuccess(w, nil)
	}
}

func releaseDedup(ctx context.Context, dedup redis.DedupStore, key string) {
	if dedup == nil || key == "" {
		return
	}
	_ = dedup.Del(ctx, key)
}
