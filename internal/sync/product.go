package sync

import (
	"context"

	"github.com/dmfranc/stripemirror/pkg/db/models"
	pkgerrors "github.com/dmfranc/stripemirror/pkg/errors"
)

// Product folds one relay product payload into the mirror.
func (s *Syncer) Product(ctx context.Context, p Payload) (*models.Product, error) {
	stripeID := str(p, "id")
	if stripeID == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "product payload missing id")
	}

	product, _, err := getOrCreate(ctx, s.db, map[string]any{"stripe_id": stripeID}, func() *models.Product {
		return &models.Product{StripeID: stripeID, Active: true}
	})
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "upserting product")
	}

	if has(p, "name") {
		product.Name = str(p, "name")
	}
	if has(p, "active") {
		product.Active = boolean(p, "active")
	}
	if has(p, "caption") {
		product.Caption = str(p, "caption")
	}
	if has(p, "description") {
		product.Description = str(p, "description")
	}
	if has(p, "shippable") {
		product.Shippable = boolean(p, "shippable")
	}
	if has(p, "url") {
		product.URL = str(p, "url")
	}
	if has(p, "metadata") {
		product.Metadata = rawJSON(p, "metadata")
	}

	if err := s.db.WithContext(ctx).Save(product).Error; err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "saving product")
	}

	for _, sku := range objectList(p, "skus") {
		if _, err := s.SKU(ctx, sku); err != nil {
			return nil, err
		}
	}
	return product, nil
}

// SKU folds one relay SKU payload into the mirror, creating a placeholder
// product row when the parent product has not been seen yet.
func (s *Syncer) SKU(ctx context.Context, p Payload) (*models.SKU, error) {
	stripeID := str(p, "id")
	if stripeID == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "sku payload missing id")
	}
	productID := objectID(p["product"])
	if productID == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "sku payload missing product")
	}

	product, _, err := getOrCreate(ctx, s.db, map[string]any{"stripe_id": productID}, func() *models.Product {
		return &models.Product{StripeID: productID, Active: true}
	})
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "upserting sku product")
	}

	sku, _, err := getOrCreate(ctx, s.db, map[string]any{"stripe_id": stripeID}, func() *models.SKU {
		return &models.SKU{StripeID: stripeID, ProductID: product.ID, Active: true}
	})
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "upserting sku")
	}

	sku.ProductID = product.ID
	if has(p, "active") {
		sku.Active = boolean(p, "active")
	}
	if has(p, "attributes") {
		sku.Attributes = rawJSON(p, "attributes")
	}
	if has(p, "price") {
		sku.Price = amount(p, "price", "currency")
	}
	if has(p, "currency") {
		sku.Currency = str(p, "currency")
	}
	if has(p, "image") {
		sku.Image = str(p, "image")
	}
	if has(p, "inventory") {
		sku.Inventory = rawJSON(p, "inventory")
	}

	if err := s.db.WithContext(ctx).Save(sku).Error; err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "saving sku")
	}
	return sku, nil
}

// Order folds one relay order payload into the mirror along with its lines.
func (s *Syncer) Order(ctx context.Context, p Payload) (*models.Order, error) {
	stripeID := str(p, "id")
	if stripeID == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "order payload missing id")
	}

	order, _, err := getOrCreate(ctx, s.db, map[string]any{"stripe_id": stripeID}, func() *models.Order {
		return &models.Order{StripeID: stripeID}
	})
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "upserting order")
	}

	if customerID := objectID(p["customer"]); customerID != "" {
		cust, err := s.EnsureCustomer(ctx, customerID)
		if err != nil {
			return nil, err
		}
		order.CustomerID = &cust.ID
	}
	if has(p, "currency") {
		order.Currency = str(p, "currency")
	}
	if has(p, "amount") {
		order.Amount = amount(p, "amount", "currency")
	}
	if has(p, "status") {
		order.Status = str(p, "status")
	}
	if has(p, "email") {
		order.Email = str(p, "email")
	}

	if err := s.db.WithContext(ctx).Save(order).Error; err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "saving order")
	}

	if has(p, "items") {
		if err := s.replaceOrderItems(ctx, order, list(p, "items")); err != nil {
			return nil, err
		}
	}
	return order, nil
}

// replaceOrderItems rewrites the line items for an order. Order items carry no
// processor id so the list is replaced wholesale.
func (s *Syncer) replaceOrderItems(ctx context.Context, order *models.Order, items []Payload) error {
	tx := s.db.WithContext(ctx)
	if err := tx.Where("order_id = ?", order.ID).Delete(&models.OrderItem{}).Error; err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "clearing order items")
	}
	for _, item := range items {
		row := models.OrderItem{
			OrderID:     order.ID,
			Parent:      objectID(item["parent"]),
			LineType:    str(item, "type"),
			Description: str(item, "description"),
			Currency:    str(item, "currency"),
			Amount:      amount(item, "amount", "currency"),
			Quantity:    int64Ptr(item, "quantity"),
		}
		if err := tx.Create(&row).Error; err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "creating order item")
		}
	}
	return nil
}
