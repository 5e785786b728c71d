package models

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// Event persists one received webhook delivery. The webhook message is the
// raw payload as delivered; the validated message is the authoritative copy
// re-fetched from Stripe during processing.
type Event struct {
	ID               uuid.UUID       `gorm:"type:uuid;default:gen_random_uuid();primaryKey"`
	StripeID         string          `gorm:"column:stripe_id;not null;unique"`
	Kind             string          `gorm:"column:kind;not null;index"`
	Livemode         bool            `gorm:"column:livemode;not null;default:false"`
	CustomerID       *uuid.UUID      `gorm:"column:customer_id;type:uuid;index"`
	StripeAccountID  *uuid.UUID      `gorm:"column:stripe_account_id;type:uuid"`
	WebhookMessage   json.RawMessage `gorm:"column:webhook_message;type:jsonb;not null"`
	ValidatedMessage json.RawMessage `gorm:"column:validated_message;type:jsonb"`
	Valid            *bool           `gorm:"column:valid"`
	Processed        bool            `gorm:"column:processed;not null;default:false"`
	Request          string          `gorm:"column:request"`
	PendingWebhooks  int             `gorm:"column:pending_webhooks;not null;default:0"`
	APIVersion       string          `gorm:"column:api_version"`
	CreatedAt        time.Time       `gorm:"column:created_at;autoCreateTime"`
}

// Message returns the authoritative payload: the validated copy when present,
// the raw webhook body otherwise.
func (e *Event) Message() json.RawMessage {
	if len(e.ValidatedMessage) > 0 {
		return e.ValidatedMessage
	}
	return e.WebhookMessage
}

// EventProcessingException is an append-only audit log of handler failures.
type EventProcessingException struct {
	ID        uuid.UUID  `gorm:"type:uuid;default:gen_random_uuid();primaryKey"`
	EventID   *uuid.UUID `gorm:"column:event_id;type:uuid;index"`
	Data      string     `gorm:"column:data"`
	Message   string     `gorm:"column:message;size:500"`
	Traceback string     `gorm:"column:traceback"`
	CreatedAt time.Time  `gorm:"column:created_at;autoCreateTime"`
}
