package webhooks

import (
	"context"

	"github.com/dmfranc/stripemirror/pkg/db/models"
	pkgerrors "github.com/dmfranc/stripemirror/pkg/errors"

	syncpkg "github.com/dmfranc/stripemirror/internal/sync"
)

// RegisterDefaults installs the stock handler for every event kind the
// pipeline understands. Kinds registered with a nil work func are accepted,
// validated and signalled without extra mirror work.
func RegisterDefaults(r *Registry) {
	for _, kind := range []string{
		"account.updated",
		"account.application.deauthorized",
		"account.external_account.created",
		"account.external_account.updated",
		"account.external_account.deleted",
		"application_fee.created",
		"application_fee.refunded",
		"balance.available",
		"bitcoin.receiver.created",
		"bitcoin.receiver.filled",
		"bitcoin.receiver.updated",
		"bitcoin.receiver.transaction.created",
		"charge.captured",
		"charge.failed",
		"charge.refunded",
		"charge.succeeded",
		"charge.updated",
		"charge.dispute.closed",
		"charge.dispute.created",
		"charge.dispute.funds_reinstated",
		"charge.dispute.funds_withdrawn",
		"charge.dispute.updated",
		"coupon.created",
		"coupon.updated",
		"coupon.deleted",
		"customer.created",
		"customer.updated",
		"customer.deleted",
		"customer.discount.created",
		"customer.discount.updated",
		"customer.discount.deleted",
		"customer.source.created",
		"customer.source.updated",
		"customer.source.deleted",
		"customer.subscription.created",
		"customer.subscription.updated",
		"customer.subscription.deleted",
		"customer.subscription.trial_will_end",
		"invoice.created",
		"invoice.updated",
		"invoice.payment_failed",
		"invoice.payment_succeeded",
		"invoiceitem.created",
		"invoiceitem.updated",
		"invoiceitem.deleted",
		"order.created",
		"order.updated",
		"order.payment_failed",
		"order.payment_succeeded",
		"payment.created",
		"plan.created",
		"plan.updated",
		"plan.deleted",
		"product.created",
		"product.updated",
		"recipient.created",
		"recipient.updated",
		"recipient.deleted",
		"sku.created",
		"sku.updated",
		"transfer.created",
		"transfer.updated",
		"transfer.paid",
		"transfer.failed",
		"transfer.reversed",
		"ping",
	} {
		r.Register(kind, nil)
	}

	r.Register("account.updated", handleAccountUpdated)
	r.Register("account.application.deauthorized", handleAccountDeauthorized)
	r.Register("account.external_account.created", handleExternalAccountUpserted)
	r.Register("account.external_account.updated", handleExternalAccountUpserted)
	r.Register("account.external_account.deleted", handleExternalAccountDeleted)

	r.Register("bitcoin.receiver.created", handleBitcoinReceiverUpserted)
	r.Register("bitcoin.receiver.filled", handleBitcoinReceiverUpserted)
	r.Register("bitcoin.receiver.updated", handleBitcoinReceiverUpserted)

	for _, kind := range []string{
		"charge.captured", "charge.failed", "charge.refunded",
		"charge.succeeded", "charge.updated",
	} {
		r.Register(kind, handleCharge)
	}

	r.Register("coupon.created", handleCouponUpserted)
	r.Register("coupon.updated", handleCouponUpserted)
	r.Register("coupon.deleted", handleCouponDeleted)

	r.Register("customer.created", handleCustomer)
	r.Register("customer.updated", handleCustomer)
	r.Register("customer.deleted", handleCustomerDeleted)
	r.Register("customer.discount.created", handleDiscountUpserted)
	r.Register("customer.discount.updated", handleDiscountUpserted)
	r.Register("customer.discount.deleted", handleDiscountDeleted)
	r.Register("customer.source.created", handleSourceUpserted)
	r.Register("customer.source.updated", handleSourceUpserted)
	r.Register("customer.source.deleted", handleSourceDeleted)

	for _, kind := range []string{
		"customer.subscription.created", "customer.subscription.updated",
		"customer.subscription.trial_will_end",
	} {
		r.Register(kind, handleSubscription)
	}
	r.Register("customer.subscription.deleted", handleSubscriptionDeleted)

	for _, kind := range []string{
		"invoice.created", "invoice.updated",
		"invoice.payment_failed", "invoice.payment_succeeded",
	} {
		r.Register(kind, handleInvoice)
	}

	r.Register("order.created", handleOrder)
	r.Register("order.updated", handleOrder)
	r.Register("order.payment_failed", handleOrder)
	r.Register("order.payment_succeeded", handleOrder)

	r.Register("plan.created", handlePlanUpserted)
	r.Register("plan.updated", handlePlanUpserted)
	r.Register("plan.deleted", handlePlanDeleted)

	r.Register("product.created", handleProduct)
	r.Register("product.updated", handleProduct)
	r.Register("sku.created", handleSKU)
	r.Register("sku.updated", handleSKU)

	for _, kind := range []string{
		"transfer.created", "transfer.updated", "transfer.paid",
		"transfer.failed", "transfer.reversed",
	} {
		r.Register(kind, handleTransfer)
	}
}

func handleAccountUpdated(ctx context.Context, d *Dispatcher, event *models.Event, object syncpkg.Payload) error {
	if object == nil {
		return nil
	}
	_, err := d.actions.Syncer(nil).Account(ctx, object)
	return err
}

// handleAccountDeauthorized marks the connected account revoked. The event
// may be the only way we learn about the revocation, so the mirror flips
// regardless of whether the account row carries fresher data.
func handleAccountDeauthorized(ctx context.Context, d *Dispatcher, event *models.Event, object syncpkg.Payload) error {
	stripeID, err := d.accountStripeID(ctx, event)
	if err != nil {
		return err
	}
	if stripeID == "" {
		stripeID = payloadStr(object, "id")
	}
	return d.actions.Syncer(nil).MarkAccountDeauthorized(ctx, stripeID)
}

func handleExternalAccountUpserted(ctx context.Context, d *Dispatcher, event *models.Event, object syncpkg.Payload) error {
	if object == nil || payloadStr(object, "object") != "bank_account" {
		return nil
	}
	syncer := d.actions.Syncer(nil)
	account, err := syncer.AccountByStripeID(ctx, payloadID(object["account"]))
	if err != nil {
		return err
	}
	if account == nil {
		return nil
	}
	return syncer.BankAccount(ctx, account, object)
}

func handleExternalAccountDeleted(ctx context.Context, d *Dispatcher, event *models.Event, object syncpkg.Payload) error {
	if object == nil || payloadStr(object, "object") != "bank_account" {
		return nil
	}
	return d.actions.Syncer(nil).DeleteBankAccount(ctx, payloadStr(object, "id"))
}

func handleBitcoinReceiverUpserted(ctx context.Context, d *Dispatcher, event *models.Event, object syncpkg.Payload) error {
	cust, err := eventPayloadCustomer(ctx, d, object)
	if err != nil || cust == nil {
		return err
	}
	return d.actions.Syncer(nil).BitcoinReceiver(ctx, cust, object)
}

// handleCharge re-fetches the charge so refund and capture totals reflect
// what the processor holds, not just the event snapshot.
func handleCharge(ctx context.Context, d *Dispatcher, event *models.Event, object syncpkg.Payload) error {
	chargeStripeID := payloadStr(object, "id")
	if chargeStripeID == "" {
		return nil
	}
	accountStripeID, err := d.accountStripeID(ctx, event)
	if err != nil {
		return err
	}
	_, err = d.actions.FetchAndSyncCharge(ctx, chargeStripeID, accountStripeID)
	return err
}

func handleCouponUpserted(ctx context.Context, d *Dispatcher, event *models.Event, object syncpkg.Payload) error {
	if object == nil {
		return nil
	}
	account, err := eventAccount(ctx, d, event)
	if err != nil {
		return err
	}
	_, err = d.actions.Syncer(nil).Coupon(ctx, object, account)
	return err
}

func handleCouponDeleted(ctx context.Context, d *Dispatcher, event *models.Event, object syncpkg.Payload) error {
	account, err := eventAccount(ctx, d, event)
	if err != nil {
		return err
	}
	return d.actions.Syncer(nil).DeleteCoupon(ctx, payloadStr(object, "id"), account)
}

// handleCustomer refreshes a customer the mirror already tracks. Customers
// created upstream without a local counterpart are left alone until the host
// application claims them.
func handleCustomer(ctx context.Context, d *Dispatcher, event *models.Event, object syncpkg.Payload) error {
	cust, err := d.actions.Syncer(nil).CustomerByStripeID(ctx, payloadStr(object, "id"))
	if err != nil || cust == nil {
		return err
	}
	_, err = d.actions.FetchAndSyncCustomer(ctx, cust.StripeID)
	return err
}

func handleCustomerDeleted(ctx context.Context, d *Dispatcher, event *models.Event, object syncpkg.Payload) error {
	syncer := d.actions.Syncer(nil)
	cust, err := syncer.CustomerByStripeID(ctx, payloadStr(object, "id"))
	if err != nil || cust == nil {
		return err
	}
	return syncer.PurgeCustomerLocal(ctx, cust)
}

func handleDiscountUpserted(ctx context.Context, d *Dispatcher, event *models.Event, object syncpkg.Payload) error {
	cust, err := eventPayloadCustomer(ctx, d, object)
	if err != nil || cust == nil {
		return err
	}
	account, err := eventAccount(ctx, d, event)
	if err != nil {
		return err
	}
	return d.actions.Syncer(nil).Discount(ctx, object, cust, account)
}

func handleDiscountDeleted(ctx context.Context, d *Dispatcher, event *models.Event, object syncpkg.Payload) error {
	cust, err := eventPayloadCustomer(ctx, d, object)
	if err != nil || cust == nil {
		return err
	}
	return d.actions.Syncer(nil).DeleteDiscount(ctx, cust)
}

func handleSourceUpserted(ctx context.Context, d *Dispatcher, event *models.Event, object syncpkg.Payload) error {
	cust, err := eventPayloadCustomer(ctx, d, object)
	if err != nil || cust == nil {
		return err
	}
	return d.actions.Syncer(nil).PaymentSource(ctx, cust, object)
}

func handleSourceDeleted(ctx context.Context, d *Dispatcher, event *models.Event, object syncpkg.Payload) error {
	return d.actions.Syncer(nil).DeleteCard(ctx, payloadStr(object, "id"))
}

func handleSubscription(ctx context.Context, d *Dispatcher, event *models.Event, object syncpkg.Payload) error {
	cust, err := eventPayloadCustomer(ctx, d, object)
	if err != nil || cust == nil {
		return err
	}
	if _, err := d.actions.Syncer(nil).Subscription(ctx, cust, object); err != nil {
		return err
	}
	// The customer payload carries the authoritative subscription list;
	// refreshing it reconciles anything the event alone cannot.
	_, err = d.actions.FetchAndSyncCustomer(ctx, cust.StripeID)
	return err
}

func handleSubscriptionDeleted(ctx context.Context, d *Dispatcher, event *models.Event, object syncpkg.Payload) error {
	sub, err := d.actions.Syncer(nil).SubscriptionByStripeID(ctx, payloadStr(object, "id"))
	if err != nil || sub == nil {
		return err
	}
	return d.actions.DeleteSubscriptionLocal(ctx, sub)
}

func handleInvoice(ctx context.Context, d *Dispatcher, event *models.Event, object syncpkg.Payload) error {
	invoiceStripeID := payloadStr(object, "id")
	if invoiceStripeID == "" {
		return nil
	}
	invoice, err := d.actions.FetchAndSyncInvoice(ctx, invoiceStripeID)
	if err != nil {
		return err
	}
	if event.Kind != "invoice.payment_succeeded" {
		return nil
	}
	return d.sendInvoiceReceipt(ctx, event, invoice)
}

// sendInvoiceReceipt emails a receipt for the charge behind a paid invoice.
// Delivery failures are recorded but never fail the event: the mirror is
// already consistent at this point.
func (d *Dispatcher) sendInvoiceReceipt(ctx context.Context, event *models.Event, invoice *models.Invoice) error {
	if invoice == nil || invoice.ChargeID == nil {
		return nil
	}
	var charge models.Charge
	err := d.actions.DB().DB().WithContext(ctx).
		Where("id = ?", *invoice.ChargeID).
		First(&charge).Error
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "loading invoice charge")
	}

	var cust models.Customer
	err = d.actions.DB().DB().WithContext(ctx).
		Where("id = ?", invoice.CustomerID).
		First(&cust).Error
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "loading invoice customer")
	}

	payload, err := d.actions.API().Customer(ctx, cust.StripeID)
	if err != nil {
		d.warn(ctx, event, "looking up customer email for receipt: "+err.Error())
		return nil
	}
	email := payloadStr(payload, "email")
	if email == "" {
		return nil
	}
	if err := d.actions.Hooks().SendReceipt(ctx, &charge, email); err != nil {
		d.warn(ctx, event, "sending invoice receipt: "+err.Error())
	}
	return nil
}

func handleOrder(ctx context.Context, d *Dispatcher, event *models.Event, object syncpkg.Payload) error {
	if object == nil {
		return nil
	}
	_, err := d.actions.Syncer(nil).Order(ctx, object)
	return err
}

func handlePlanUpserted(ctx context.Context, d *Dispatcher, event *models.Event, object syncpkg.Payload) error {
	if object == nil {
		return nil
	}
	_, err := d.actions.Syncer(nil).Plan(ctx, object)
	return err
}

func handlePlanDeleted(ctx context.Context, d *Dispatcher, event *models.Event, object syncpkg.Payload) error {
	return d.actions.Syncer(nil).DeletePlan(ctx, payloadStr(object, "id"))
}

func handleProduct(ctx context.Context, d *Dispatcher, event *models.Event, object syncpkg.Payload) error {
	if object == nil {
		return nil
	}
	_, err := d.actions.Syncer(nil).Product(ctx, object)
	return err
}

func handleSKU(ctx context.Context, d *Dispatcher, event *models.Event, object syncpkg.Payload) error {
	if object == nil {
		return nil
	}
	_, err := d.actions.Syncer(nil).SKU(ctx, object)
	return err
}

func handleTransfer(ctx context.Context, d *Dispatcher, event *models.Event, object syncpkg.Payload) error {
	if object == nil {
		return nil
	}
	_, err := d.actions.Syncer(nil).Transfer(ctx, object, event)
	return err
}

// eventPayloadCustomer resolves the mirrored customer a payload references,
// nil when the customer is not tracked locally.
func eventPayloadCustomer(ctx context.Context, d *Dispatcher, object syncpkg.Payload) (*models.Customer, error) {
	if object == nil {
		return nil, nil
	}
	stripeID := payloadID(object["customer"])
	if stripeID == "" {
		return nil, nil
	}
	return d.actions.Syncer(nil).CustomerByStripeID(ctx, stripeID)
}

// eventAccount resolves the local row for the connected account an event was
// delivered for, nil for platform events.
func eventAccount(ctx context.Context, d *Dispatcher, event *models.Event) (*models.Account, error) {
	if event == nil || event.StripeAccountID == nil {
		return nil, nil
	}
	var account models.Account
	err := d.actions.DB().DB().WithContext(ctx).
		Where("id = ?", *event.StripeAccountID).
		First(&account).Error
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "resolving event account")
	}
	return &account, nil
}

func payloadStr(p syncpkg.Payload, key string) string {
	if p == nil {
		return ""
	}
	v, _ := p[key].(string)
	return v
}

// payloadID accepts either a bare id string or an expanded object.
func payloadID(v any) string {
	switch value := v.(type) {
	case string:
		return value
	case map[string]any:
		id, _ := value["id"].(string)
		return id
	}
	return ""
}
