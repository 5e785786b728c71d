package actions

import (
	"context"
	"fmt"
)

// SyncPlans mirrors every plan defined at the processor. Used by the sync
// worker to seed a fresh mirror.
func (s *Service) SyncPlans(ctx context.Context) (int, error) {
	payloads, err := s.api.ListPlans(ctx)
	if err != nil {
		return 0, err
	}
	syncer := s.Syncer(nil)
	for i, p := range payloads {
		if _, err := syncer.Plan(ctx, p); err != nil {
			return i, fmt.Errorf("syncing plan %d of %d: %w", i+1, len(payloads), err)
		}
	}
	return len(payloads), nil
}

// SyncCoupons mirrors every platform-level coupon.
func (s *Service) SyncCoupons(ctx context.Context) (int, error) {
	payloads, err := s.api.ListCoupons(ctx)
	if err != nil {
		return 0, err
	}
	syncer := s.Syncer(nil)
	for i, p := range payloads {
		if _, err := syncer.Coupon(ctx, p, nil); err != nil {
			return i, fmt.Errorf("syncing coupon %d of %d: %w", i+1, len(payloads), err)
		}
	}
	return len(payloads), nil
}

// SyncProducts mirrors every relay product.
func (s *Service) SyncProducts(ctx context.Context) (int, error) {
	payloads, err := s.api.ListProducts(ctx)
	if err != nil {
		return 0, err
	}
	syncer := s.Syncer(nil)
	for i, p := range payloads {
		if _, err := syncer.Product(ctx, p); err != nil {
			return i, fmt.Errorf("syncing product %d of %d: %w", i+1, len(payloads), err)
		}
	}
	return len(payloads), nil
}

// SyncCustomers re-mirrors every customer known to the processor, cascading
// sources and subscriptions, then each customer's charges and invoices.
func (s *Service) SyncCustomers(ctx context.Context) (int, error) {
	payloads, err := s.api.ListCustomers(ctx)
	if err != nil {
		return 0, err
	}
	syncer := s.Syncer(nil)
	for i, p := range payloads {
		id, _ := p["id"].(string)
		if id == "" {
			continue
		}
		cust, err := syncer.EnsureCustomer(ctx, id)
		if err != nil {
			return i, err
		}
		if err := syncer.Customer(ctx, cust, p); err != nil {
			return i, fmt.Errorf("syncing customer %d of %d: %w", i+1, len(payloads), err)
		}
		if _, err := s.SyncChargesForCustomer(ctx, cust); err != nil {
			return i, fmt.Errorf("syncing charges for %s: %w", id, err)
		}
		if _, err := s.SyncInvoicesForCustomer(ctx, cust); err != nil {
			return i, fmt.Errorf("syncing invoices for %s: %w", id, err)
		}
	}
	return len(payloads), nil
}
