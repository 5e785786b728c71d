package actions

import (
	"context"
	"encoding/json"
	"strings"

	syncpkg "github.com/dmfranc/stripemirror/internal/sync"
	"github.com/dmfranc/stripemirror/pkg/db"
	"github.com/dmfranc/stripemirror/pkg/db/models"
	pkgerrors "github.com/dmfranc/stripemirror/pkg/errors"
)

// AddEventInput is one webhook delivery ready to be recorded.
type AddEventInput struct {
	StripeID        string
	Kind            string
	Livemode        bool
	Message         json.RawMessage
	APIVersion      string
	Request         string
	PendingWebhooks int
	AccountStripeID string
}

// DupeEventExists reports whether the event id has already been recorded.
func (s *Service) DupeEventExists(ctx context.Context, stripeID string) (bool, error) {
	var count int64
	err := s.db.DB().WithContext(ctx).
		Model(&models.Event{}).
		Where("stripe_id = ?", stripeID).
		Count(&count).Error
	if err != nil {
		return false, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "checking for duplicate event")
	}
	return count > 0, nil
}

// AddEvent records a webhook delivery exactly once. When a concurrent
// delivery wins the insert race the existing row is returned with duplicate
// set, and the caller treats the request as a replay.
func (s *Service) AddEvent(ctx context.Context, input AddEventInput) (event *models.Event, duplicate bool, err error) {
	if input.StripeID == "" || input.Kind == "" {
		return nil, false, pkgerrors.New(pkgerrors.CodeValidation, "event id and kind required")
	}

	row := &models.Event{
		StripeID:        input.StripeID,
		Kind:            input.Kind,
		Livemode:        input.Livemode,
		WebhookMessage:  input.Message,
		Request:         input.Request,
		PendingWebhooks: input.PendingWebhooks,
		APIVersion:      input.APIVersion,
	}

	if input.AccountStripeID != "" {
		account, ferr := s.Syncer(nil).AccountByStripeID(ctx, input.AccountStripeID)
		if ferr != nil {
			return nil, false, ferr
		}
		if account != nil {
			row.StripeAccountID = &account.ID
		}
	}

	if err := s.db.DB().WithContext(ctx).Create(row).Error; err != nil {
		if db.IsUniqueViolation(err, "") {
			existing, ferr := s.eventByStripeID(ctx, input.StripeID)
			if ferr != nil {
				return nil, false, ferr
			}
			return existing, true, nil
		}
		return nil, false, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "recording event")
	}

	if err := s.LinkCustomer(ctx, row); err != nil {
		return nil, false, err
	}
	return row, false, nil
}

func (s *Service) eventByStripeID(ctx context.Context, stripeID string) (*models.Event, error) {
	var event models.Event
	err := s.db.DB().WithContext(ctx).Where("stripe_id = ?", stripeID).First(&event).Error
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "loading event")
	}
	return &event, nil
}

// LinkCustomer attaches the mirrored customer an event concerns. Customer
// lifecycle events carry the customer as the payload object itself; other
// kinds reference it by field. Plan and transfer events never reference a
// customer and are skipped.
func (s *Service) LinkCustomer(ctx context.Context, event *models.Event) error {
	if event == nil {
		return nil
	}
	if strings.HasPrefix(event.Kind, "plan.") || strings.HasPrefix(event.Kind, "transfer.") {
		return nil
	}

	payload, err := syncpkg.DecodePayload(event.Message())
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeValidation, err, "decoding event message")
	}
	data, ok := payload["data"].(map[string]any)
	if !ok {
		return nil
	}
	object, ok := data["object"].(map[string]any)
	if !ok {
		return nil
	}

	var customerStripeID string
	switch event.Kind {
	case "customer.created", "customer.updated", "customer.deleted":
		customerStripeID, _ = object["id"].(string)
	default:
		switch v := object["customer"].(type) {
		case string:
			customerStripeID = v
		case map[string]any:
			customerStripeID, _ = v["id"].(string)
		}
	}
	if customerStripeID == "" {
		return nil
	}

	cust, err := s.Syncer(nil).CustomerByStripeID(ctx, customerStripeID)
	if err != nil {
		return err
	}
	if cust == nil {
		return nil
	}
	event.CustomerID = &cust.ID
	if err := s.db.DB().WithContext(ctx).
		Model(&models.Event{}).
		Where("id = ?", event.ID).
		Update("customer_id", cust.ID).Error; err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "linking event customer")
	}
	return nil
}

// LogEventException appends a durable record of a handler failure, including
// whatever response body the processor returned.
func (s *Service) LogEventException(ctx context.Context, event *models.Event, data, message, traceback string) error {
	row := &models.EventProcessingException{
		Data:      data,
		Message:   truncate(message, 500),
		Traceback: traceback,
	}
	if event != nil {
		row.EventID = &event.ID
	}
	if err := s.db.DB().WithContext(ctx).Create(row).Error; err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "recording event exception")
	}
	return nil
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}
