package actions

import (
	"context"

	"github.com/stripe/stripe-go/v84"

	"github.com/dmfranc/stripemirror/pkg/db/models"
	pkgerrors "github.com/dmfranc/stripemirror/pkg/errors"
)

// CreateInvoice asks the processor to invoice the customer's pending line
// items and mirrors the result.
func (s *Service) CreateInvoice(ctx context.Context, cust *models.Customer) (*models.Invoice, error) {
	if cust == nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "customer required")
	}
	params := &stripe.InvoiceParams{Customer: stripe.String(cust.StripeID)}
	payload, err := s.api.CreateInvoice(ctx, params)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "creating invoice")
	}
	return s.Syncer(nil).Invoice(ctx, payload)
}

// PayInvoice pays an open invoice and mirrors the settled state.
func (s *Service) PayInvoice(ctx context.Context, invoiceStripeID string) (*models.Invoice, error) {
	if invoiceStripeID == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "invoice id required")
	}
	payload, err := s.api.PayInvoice(ctx, invoiceStripeID, &stripe.InvoicePayParams{})
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "paying invoice")
	}
	return s.Syncer(nil).Invoice(ctx, payload)
}

// CreateAndPayInvoice invoices pending items and immediately attempts
// payment. The processor rejects creation when there is nothing to invoice;
// that is surfaced as a validation error, not a failure.
func (s *Service) CreateAndPayInvoice(ctx context.Context, cust *models.Customer) (*models.Invoice, error) {
	invoice, err := s.CreateInvoice(ctx, cust)
	if err != nil {
		return nil, err
	}
	return s.PayInvoice(ctx, invoice.StripeID)
}

// FetchAndSyncInvoice re-reads an invoice from the processor and mirrors it.
func (s *Service) FetchAndSyncInvoice(ctx context.Context, invoiceStripeID string) (*models.Invoice, error) {
	payload, err := s.api.Invoice(ctx, invoiceStripeID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "fetching invoice")
	}
	return s.Syncer(nil).Invoice(ctx, payload)
}

// RetryUnpaidInvoices attempts payment on every open unpaid invoice for the
// customer, oldest first. Individual failures are recorded and do not stop
// the rest.
func (s *Service) RetryUnpaidInvoices(ctx context.Context, cust *models.Customer) error {
	if cust == nil {
		return pkgerrors.New(pkgerrors.CodeValidation, "customer required")
	}
	params := &stripe.InvoiceListParams{Customer: stripe.String(cust.StripeID)}
	invoices, err := s.api.ListInvoices(ctx, params)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "listing invoices")
	}

	var firstErr error
	for _, payload := range invoices {
		paid, _ := payload["paid"].(bool)
		closed, _ := payload["closed"].(bool)
		if paid || closed {
			continue
		}
		id, _ := payload["id"].(string)
		if id == "" {
			continue
		}
		if _, err := s.PayInvoice(ctx, id); err != nil {
			if s.logg != nil {
				s.logg.Error(ctx, "retrying unpaid invoice "+id, err)
			}
			if firstErr == nil {
				firstErr = err
			}
		}
	}
	return firstErr
}

// SyncInvoicesForCustomer re-mirrors every processor invoice belonging to the
// customer. Returns how many invoices were folded in.
func (s *Service) SyncInvoicesForCustomer(ctx context.Context, cust *models.Customer) (int, error) {
	if cust == nil || cust.StripeID == "" {
		return 0, pkgerrors.New(pkgerrors.CodeValidation, "customer required")
	}
	payloads, err := s.api.ListInvoices(ctx, &stripe.InvoiceListParams{Customer: stripe.String(cust.StripeID)})
	if err != nil {
		return 0, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "listing invoices")
	}
	syncer := s.Syncer(nil)
	for i, p := range payloads {
		if _, err := syncer.Invoice(ctx, p); err != nil {
			return i, err
		}
	}
	return len(payloads), nil
}
