package actions

import (
	"context"
	"encoding/json"

	"github.com/stripe/stripe-go/v84"
	"github.com/stripe/stripe-go/v84/account"
	"github.com/stripe/stripe-go/v84/bankaccount"
	"github.com/stripe/stripe-go/v84/card"
	"github.com/stripe/stripe-go/v84/charge"
	"github.com/stripe/stripe-go/v84/coupon"
	"github.com/stripe/stripe-go/v84/customer"
	"github.com/stripe/stripe-go/v84/event"
	"github.com/stripe/stripe-go/v84/invoice"
	"github.com/stripe/stripe-go/v84/oauth"
	"github.com/stripe/stripe-go/v84/plan"
	"github.com/stripe/stripe-go/v84/product"
	"github.com/stripe/stripe-go/v84/refund"
	"github.com/stripe/stripe-go/v84/subscription"
	"github.com/stripe/stripe-go/v84/transfer"

	syncpkg "github.com/dmfranc/stripemirror/internal/sync"
	pkgerrors "github.com/dmfranc/stripemirror/pkg/errors"
	"github.com/dmfranc/stripemirror/pkg/stripeclient"
)

// API is the processor surface the action layer depends on. All methods
// return decoded payload maps so synchronizers see exactly what the processor
// sent back.
type API interface {
	Charge(ctx context.Context, id string, accountStripeID string) (syncpkg.Payload, error)
	CreateCharge(ctx context.Context, params *stripe.ChargeParams) (syncpkg.Payload, error)
	CaptureCharge(ctx context.Context, id string, params *stripe.ChargeCaptureParams) (syncpkg.Payload, error)
	CreateRefund(ctx context.Context, params *stripe.RefundParams) (syncpkg.Payload, error)
	ListCharges(ctx context.Context, params *stripe.ChargeListParams) ([]syncpkg.Payload, error)

	Customer(ctx context.Context, id string) (syncpkg.Payload, error)
	CreateCustomer(ctx context.Context, params *stripe.CustomerParams) (syncpkg.Payload, error)
	UpdateCustomer(ctx context.Context, id string, params *stripe.CustomerParams) (syncpkg.Payload, error)
	DeleteCustomer(ctx context.Context, id string) error

	Subscription(ctx context.Context, id string) (syncpkg.Payload, error)
	CreateSubscription(ctx context.Context, params *stripe.SubscriptionParams) (syncpkg.Payload, error)
	UpdateSubscription(ctx context.Context, id string, params *stripe.SubscriptionParams) (syncpkg.Payload, error)
	CancelSubscription(ctx context.Context, id string, params *stripe.SubscriptionCancelParams) (syncpkg.Payload, error)

	Invoice(ctx context.Context, id string) (syncpkg.Payload, error)
	CreateInvoice(ctx context.Context, params *stripe.InvoiceParams) (syncpkg.Payload, error)
	PayInvoice(ctx context.Context, id string, params *stripe.InvoicePayParams) (syncpkg.Payload, error)
	ListInvoices(ctx context.Context, params *stripe.InvoiceListParams) ([]syncpkg.Payload, error)

	CreateCard(ctx context.Context, params *stripe.CardParams) (syncpkg.Payload, error)
	UpdateCard(ctx context.Context, id string, params *stripe.CardParams) (syncpkg.Payload, error)
	DeleteCard(ctx context.Context, id string, params *stripe.CardParams) error

	Account(ctx context.Context, id string) (syncpkg.Payload, error)
	CreateAccount(ctx context.Context, params *stripe.AccountParams) (syncpkg.Payload, error)
	UpdateAccount(ctx context.Context, id string, params *stripe.AccountParams) (syncpkg.Payload, error)
	DeleteAccount(ctx context.Context, id string) error
	Deauthorize(ctx context.Context, clientID, accountStripeID string) error

	CreateBankAccount(ctx context.Context, params *stripe.BankAccountParams) (syncpkg.Payload, error)
	UpdateBankAccount(ctx context.Context, id string, params *stripe.BankAccountParams) (syncpkg.Payload, error)
	DeleteBankAccount(ctx context.Context, id string, params *stripe.BankAccountParams) error

	Transfer(ctx context.Context, id string) (syncpkg.Payload, error)
	CreateTransfer(ctx context.Context, params *stripe.TransferParams) (syncpkg.Payload, error)

	Event(ctx context.Context, id string, accountStripeID string) (syncpkg.Payload, error)

	ListPlans(ctx context.Context) ([]syncpkg.Payload, error)
	ListCoupons(ctx context.Context) ([]syncpkg.Payload, error)
	ListProducts(ctx context.Context) ([]syncpkg.Payload, error)
	ListCustomers(ctx context.Context) ([]syncpkg.Payload, error)
}

type apiWrapper struct{}

// NewAPI wraps the configured processor client so services can be tested
// against a fake.
func NewAPI(client *stripeclient.Client) API {
	if client == nil {
		return nil
	}
	return &apiWrapper{}
}

type lastResponseCarrier interface {
	GetLastResponse() *stripe.APIResponse
}

// toPayload decodes the raw response body when available so field presence is
// preserved; the typed struct is only a fallback.
func toPayload(v any, err error) (syncpkg.Payload, error) {
	if err != nil {
		return nil, err
	}
	if carrier, ok := v.(lastResponseCarrier); ok {
		if resp := carrier.GetLastResponse(); resp != nil && len(resp.RawJSON) > 0 {
			return syncpkg.DecodePayload(resp.RawJSON)
		}
	}
	raw, merr := json.Marshal(v)
	if merr != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, merr, "encoding processor response")
	}
	return syncpkg.DecodePayload(raw)
}

func (w *apiWrapper) Charge(ctx context.Context, id string, accountStripeID string) (syncpkg.Payload, error) {
	params := &stripe.ChargeParams{}
	params.Context = ctx
	if accountStripeID != "" {
		params.SetStripeAccount(accountStripeID)
	}
	return toPayload(charge.Get(id, params))
}

func (w *apiWrapper) CreateCharge(ctx context.Context, params *stripe.ChargeParams) (syncpkg.Payload, error) {
	if params != nil {
		params.Context = ctx
	}
	return toPayload(charge.New(params))
}

func (w *apiWrapper) CaptureCharge(ctx context.Context, id string, params *stripe.ChargeCaptureParams) (syncpkg.Payload, error) {
	if params != nil {
		params.Context = ctx
	}
	return toPayload(charge.Capture(id, params))
}

func (w *apiWrapper) CreateRefund(ctx context.Context, params *stripe.RefundParams) (syncpkg.Payload, error) {
	if params != nil {
		params.Context = ctx
	}
	return toPayload(refund.New(params))
}

func (w *apiWrapper) ListCharges(ctx context.Context, params *stripe.ChargeListParams) ([]syncpkg.Payload, error) {
	if params == nil {
		params = &stripe.ChargeListParams{}
	}
	params.Context = ctx
	var out []syncpkg.Payload
	iter := charge.List(params)
	for iter.Next() {
		p, err := toPayload(iter.Charge(), nil)
		if err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	if err := iter.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

func (w *apiWrapper) Customer(ctx context.Context, id string) (syncpkg.Payload, error) {
	params := &stripe.CustomerParams{}
	params.Context = ctx
	params.AddExpand("sources")
	params.AddExpand("subscriptions")
	return toPayload(customer.Get(id, params))
}

func (w *apiWrapper) CreateCustomer(ctx context.Context, params *stripe.CustomerParams) (syncpkg.Payload, error) {
	if params != nil {
		params.Context = ctx
	}
	return toPayload(customer.New(params))
}

func (w *apiWrapper) UpdateCustomer(ctx context.Context, id string, params *stripe.CustomerParams) (syncpkg.Payload, error) {
	if params != nil {
		params.Context = ctx
	}
	return toPayload(customer.Update(id, params))
}

func (w *apiWrapper) DeleteCustomer(ctx context.Context, id string) error {
	params := &stripe.CustomerParams{}
	params.Context = ctx
	_, err := customer.Del(id, params)
	return err
}

func (w *apiWrapper) Subscription(ctx context.Context, id string) (syncpkg.Payload, error) {
	params := &stripe.SubscriptionParams{}
	params.Context = ctx
	return toPayload(subscription.Get(id, params))
}

func (w *apiWrapper) CreateSubscription(ctx context.Context, params *stripe.SubscriptionParams) (syncpkg.Payload, error) {
	if params != nil {
		params.Context = ctx
	}
	return toPayload(subscription.New(params))
}

func (w *apiWrapper) UpdateSubscription(ctx context.Context, id string, params *stripe.SubscriptionParams) (syncpkg.Payload, error) {
	if params != nil {
		params.Context = ctx
	}
	return toPayload(subscription.Update(id, params))
}

func (w *apiWrapper) CancelSubscription(ctx context.Context, id string, params *stripe.SubscriptionCancelParams) (syncpkg.Payload, error) {
	if params != nil {
		params.Context = ctx
	}
	return toPayload(subscription.Cancel(id, params))
}

func (w *apiWrapper) Invoice(ctx context.Context, id string) (syncpkg.Payload, error) {
	params := &stripe.InvoiceParams{}
	params.Context = ctx
	return toPayload(invoice.Get(id, params))
}

func (w *apiWrapper) CreateInvoice(ctx context.Context, params *stripe.InvoiceParams) (syncpkg.Payload, error) {
	if params != nil {
		params.Context = ctx
	}
	return toPayload(invoice.New(params))
}

func (w *apiWrapper) PayInvoice(ctx context.Context, id string, params *stripe.InvoicePayParams) (syncpkg.Payload, error) {
	if params != nil {
		params.Context = ctx
	}
	return toPayload(invoice.Pay(id, params))
}

func (w *apiWrapper) ListInvoices(ctx context.Context, params *stripe.InvoiceListParams) ([]syncpkg.Payload, error) {
	if params == nil {
		params = &stripe.InvoiceListParams{}
	}
	params.Context = ctx
	var out []syncpkg.Payload
	iter := invoice.List(params)
	for iter.Next() {
		p, err := toPayload(iter.Invoice(), nil)
		if err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	if err := iter.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

func (w *apiWrapper) CreateCard(ctx context.Context, params *stripe.CardParams) (syncpkg.Payload, error) {
	if params != nil {
		params.Context = ctx
	}
	return toPayload(card.New(params))
}

func (w *apiWrapper) UpdateCard(ctx context.Context, id string, params *stripe.CardParams) (syncpkg.Payload, error) {
	if params != nil {
		params.Context = ctx
	}
	return toPayload(card.Update(id, params))
}

func (w *apiWrapper) DeleteCard(ctx context.Context, id string, params *stripe.CardParams) error {
	if params != nil {
		params.Context = ctx
	}
	_, err := card.Del(id, params)
	return err
}

func (w *apiWrapper) Account(ctx context.Context, id string) (syncpkg.Payload, error) {
	params := &stripe.AccountParams{}
	params.Context = ctx
	return toPayload(account.GetByID(id, params))
}

func (w *apiWrapper) CreateAccount(ctx context.Context, params *stripe.AccountParams) (syncpkg.Payload, error) {
	if params != nil {
		params.Context = ctx
	}
	return toPayload(account.New(params))
}

func (w *apiWrapper) UpdateAccount(ctx context.Context, id string, params *stripe.AccountParams) (syncpkg.Payload, error) {
	if params != nil {
		params.Context = ctx
	}
	return toPayload(account.Update(id, params))
}

func (w *apiWrapper) DeleteAccount(ctx context.Context, id string) error {
	params := &stripe.AccountParams{}
	params.Context = ctx
	_, err := account.Del(id, params)
	return err
}

func (w *apiWrapper) Deauthorize(ctx context.Context, clientID, accountStripeID string) error {
	params := &stripe.DeauthorizeParams{
		ClientID:     stripe.String(clientID),
		StripeUserID: stripe.String(accountStripeID),
	}
	params.Context = ctx
	_, err := oauth.Del(params)
	return err
}

func (w *apiWrapper) CreateBankAccount(ctx context.Context, params *stripe.BankAccountParams) (syncpkg.Payload, error) {
	if params != nil {
		params.Context = ctx
	}
	return toPayload(bankaccount.New(params))
}

func (w *apiWrapper) UpdateBankAccount(ctx context.Context, id string, params *stripe.BankAccountParams) (syncpkg.Payload, error) {
	if params != nil {
		params.Context = ctx
	}
	return toPayload(bankaccount.Update(id, params))
}

func (w *apiWrapper) DeleteBankAccount(ctx context.Context, id string, params *stripe.BankAccountParams) error {
	if params != nil {
		params.Context = ctx
	}
	_, err := bankaccount.Del(id, params)
	return err
}

func (w *apiWrapper) Transfer(ctx context.Context, id string) (syncpkg.Payload, error) {
	params := &stripe.TransferParams{}
	params.Context = ctx
	return toPayload(transfer.Get(id, params))
}

func (w *apiWrapper) CreateTransfer(ctx context.Context, params *stripe.TransferParams) (syncpkg.Payload, error) {
	if params != nil {
		params.Context = ctx
	}
	return toPayload(transfer.New(params))
}

func (w *apiWrapper) Event(ctx context.Context, id string, accountStripeID string) (syncpkg.Payload, error) {
	params := &stripe.EventParams{}
	params.Context = ctx
	if accountStripeID != "" {
		params.SetStripeAccount(accountStripeID)
	}
	return toPayload(event.Get(id, params))
}

func (w *apiWrapper) ListPlans(ctx context.Context) ([]syncpkg.Payload, error) {
	params := &stripe.PlanListParams{}
	params.Context = ctx
	var out []syncpkg.Payload
	iter := plan.List(params)
	for iter.Next() {
		p, err := toPayload(iter.Plan(), nil)
		if err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	if err := iter.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

func (w *apiWrapper) ListCoupons(ctx context.Context) ([]syncpkg.Payload, error) {
	params := &stripe.CouponListParams{}
	params.Context = ctx
	var out []syncpkg.Payload
	iter := coupon.List(params)
	for iter.Next() {
		p, err := toPayload(iter.Coupon(), nil)
		if err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	if err := iter.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

func (w *apiWrapper) ListProducts(ctx context.Context) ([]syncpkg.Payload, error) {
	params := &stripe.ProductListParams{}
	params.Context = ctx
	var out []syncpkg.Payload
	iter := product.List(params)
	for iter.Next() {
		p, err := toPayload(iter.Product(), nil)
		if err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	if err := iter.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

func (w *apiWrapper) ListCustomers(ctx context.Context) ([]syncpkg.Payload, error) {
	params := &stripe.CustomerListParams{}
	params.Context = ctx
	var out []syncpkg.Payload
	iter := customer.List(params)
	for iter.Next() {
		p, err := toPayload(iter.Customer(), nil)
		if err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	if err := iter.Err(); err != nil {
		return nil, err
	}
	return out, nil
}
