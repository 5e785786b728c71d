package actions

import (
	"context"
	"errors"

	"github.com/stripe/stripe-go/v84"
	"gorm.io/gorm"

	syncpkg "github.com/dmfranc/stripemirror/internal/sync"
	"github.com/dmfranc/stripemirror/pkg/db/models"
	pkgerrors "github.com/dmfranc/stripemirror/pkg/errors"
	"github.com/dmfranc/stripemirror/pkg/stripeclient"
)

// CreateCustomerInput registers a host-application user with the processor.
type CreateCustomerInput struct {
	UserRef      string
	Email        string
	Source       string
	PlanStripeID string
	Quantity     *int64
}

// CreateCustomer creates the processor customer, mirrors it, and subscribes
// it to the requested plan (or the configured default plan when a source is
// on file). The trial hook decides the trial end.
func (s *Service) CreateCustomer(ctx context.Context, input CreateCustomerInput) (*models.Customer, error) {
	if input.UserRef == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "user reference required")
	}
	if existing, err := s.customerByUserRef(ctx, input.UserRef); err != nil {
		return nil, err
	} else if existing != nil {
		return existing, nil
	}

	params := &stripe.CustomerParams{}
	if input.Email != "" {
		params.Email = stripe.String(input.Email)
	}
	if input.Source != "" {
		params.AddExtra("source", input.Source)
	}
	payload, err := s.api.CreateCustomer(ctx, params)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "creating customer")
	}

	syncer := s.Syncer(nil)
	cust, err := syncer.EnsureCustomer(ctx, payloadID(payload))
	if err != nil {
		return nil, err
	}
	cust.UserRef = &input.UserRef
	if err := s.db.DB().WithContext(ctx).Save(cust).Error; err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "saving customer user ref")
	}
	if err := syncer.Customer(ctx, cust, payload); err != nil {
		return nil, err
	}

	plan := input.PlanStripeID
	if plan == "" && input.Source != "" {
		plan = s.cfg.Billing.DefaultPlan
	}
	if plan != "" {
		subInput := CreateSubscriptionInput{
			CustomerStripeID: cust.StripeID,
			PlanStripeID:     plan,
			Quantity:         input.Quantity,
		}
		if trialEnd := s.hooks.TrialPeriod(ctx, input.UserRef, plan); trialEnd != nil {
			subInput.TrialEnd = trialEnd
		}
		if _, err := s.CreateSubscription(ctx, subInput); err != nil {
			return nil, err
		}
	}
	return cust, nil
}

func (s *Service) customerByUserRef(ctx context.Context, userRef string) (*models.Customer, error) {
	var cust models.Customer
	err := s.db.DB().WithContext(ctx).
		Where("user_ref = ? AND date_purged IS NULL", userRef).
		First(&cust).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "loading customer by user ref")
	}
	return &cust, nil
}

// CustomerForUserRef resolves the live (non-purged) customer linked to a host
// application user, nil when the user has never been billed.
func (s *Service) CustomerForUserRef(ctx context.Context, userRef string) (*models.Customer, error) {
	return s.customerByUserRef(ctx, userRef)
}

// UserHasActiveSubscription reports whether a host application user is
// entitled to gated functionality. A user with no mirrored customer has never
// entered billing and passes.
func (s *Service) UserHasActiveSubscription(ctx context.Context, userRef string) (bool, error) {
	cust, err := s.customerByUserRef(ctx, userRef)
	if err != nil {
		return false, err
	}
	return s.HasActiveSubscription(ctx, cust)
}

// FetchAndSyncCustomer re-reads a customer from the processor and mirrors it,
// cascading sources and subscriptions. A customer deleted upstream purges
// local state instead of failing.
func (s *Service) FetchAndSyncCustomer(ctx context.Context, customerStripeID string) (*models.Customer, error) {
	syncer := s.Syncer(nil)
	cust, err := syncer.EnsureCustomer(ctx, customerStripeID)
	if err != nil {
		return nil, err
	}
	payload, err := s.api.Customer(ctx, customerStripeID)
	if err != nil {
		if stripeclient.IsMissingResource(err) {
			if perr := syncer.PurgeCustomerLocal(ctx, cust); perr != nil {
				return nil, perr
			}
			return cust, nil
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "fetching customer")
	}
	if err := syncer.Customer(ctx, cust, payload); err != nil {
		return nil, err
	}
	return cust, nil
}

// PurgeCustomer deletes the customer at the processor and purges local
// billing state. A customer already gone upstream is treated as purged.
func (s *Service) PurgeCustomer(ctx context.Context, cust *models.Customer) error {
	if cust == nil {
		return pkgerrors.New(pkgerrors.CodeValidation, "customer required")
	}
	if err := s.api.DeleteCustomer(ctx, cust.StripeID); err != nil {
		if !stripeclient.IsMissingResource(err) {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "deleting processor customer")
		}
	}
	return s.Syncer(nil).PurgeCustomerLocal(ctx, cust)
}

// SetDefaultSource points the customer's default source at the given source
// id and mirrors the confirmed customer.
func (s *Service) SetDefaultSource(ctx context.Context, cust *models.Customer, sourceID string) error {
	if cust == nil || sourceID == "" {
		return pkgerrors.New(pkgerrors.CodeValidation, "customer and source required")
	}
	params := &stripe.CustomerParams{DefaultSource: stripe.String(sourceID)}
	payload, err := s.api.UpdateCustomer(ctx, cust.StripeID, params)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "updating default source")
	}
	return s.Syncer(nil).Customer(ctx, cust, payload)
}

func payloadID(p syncpkg.Payload) string {
	if id, ok := p["id"].(string); ok {
		return id
	}
	return ""
}
