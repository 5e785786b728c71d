package sync

import (
	"context"
	"errors"

	"gorm.io/gorm"

	"github.com/dmfranc/stripemirror/pkg/db"
	"github.com/dmfranc/stripemirror/pkg/logger"
)

// Fetcher re-reads objects from the payment processor when a payload only
// carries a reference. Implemented by the actions client.
type Fetcher interface {
	Charge(ctx context.Context, id string, accountStripeID string) (Payload, error)
	Invoice(ctx context.Context, id string) (Payload, error)
	Customer(ctx context.Context, id string) (Payload, error)
}

// Syncer folds processor payloads into the local mirror. All writes go
// through the bound gorm handle so callers can scope a whole event to one
// transaction.
type Syncer struct {
	db    *gorm.DB
	fetch Fetcher
	logg  *logger.Logger
}

// NewSyncer builds a Syncer bound to the provided DB handle.
func NewSyncer(gdb *gorm.DB, fetch Fetcher, logg *logger.Logger) *Syncer {
	return &Syncer{db: gdb, fetch: fetch, logg: logg}
}

// WithTx returns a Syncer bound to the given transaction.
func (s *Syncer) WithTx(tx *gorm.DB) *Syncer {
	if tx == nil {
		return s
	}
	return &Syncer{db: tx, fetch: s.fetch, logg: s.logg}
}

// getOrCreate finds the row matching cond or inserts the one built by build.
// A unique-index race on insert resolves by re-reading the winning row, so
// concurrent deliveries of the same object converge on a single record.
func getOrCreate[T any](ctx context.Context, tx *gorm.DB, cond map[string]any, build func() *T) (*T, bool, error) {
	var existing T
	err := tx.WithContext(ctx).Where(cond).First(&existing).Error
	if err == nil {
		return &existing, false, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, false, err
	}

	rec := build()
	if err := tx.WithContext(ctx).Create(rec).Error; err != nil {
		if db.IsUniqueViolation(err, "") {
			var winner T
			if rerr := tx.WithContext(ctx).Where(cond).First(&winner).Error; rerr == nil {
				return &winner, false, nil
			}
		}
		return nil, false, err
	}
	return rec, true, nil
}

// firstWhere loads a single row or returns nil when absent.
func firstWhere[T any](ctx context.Context, tx *gorm.DB, query any, args ...any) (*T, error) {
	var rec T
	err := tx.WithContext(ctx).Where(query, args...).First(&rec).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &rec, nil
}
