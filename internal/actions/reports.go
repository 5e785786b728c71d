package actions

import (
	"context"
	"time"

	"github.com/shopspring/decimal"

	"github.com/dmfranc/stripemirror/pkg/db/models"
	pkgerrors "github.com/dmfranc/stripemirror/pkg/errors"
)

// ChargeTotals aggregates the paid charges in a period.
type ChargeTotals struct {
	Amount         decimal.Decimal
	AmountRefunded decimal.Decimal
}

// ChargesDuring lists charges created inside [start, end).
func (s *Service) ChargesDuring(ctx context.Context, start, end time.Time) ([]models.Charge, error) {
	var charges []models.Charge
	err := s.db.DB().WithContext(ctx).
		Where("charge_created >= ? AND charge_created < ?", start, end).
		Order("charge_created ASC").
		Find(&charges).Error
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "listing charges for period")
	}
	return charges, nil
}

// PaidChargeTotals sums amount and refunds over paid charges in [start, end).
func (s *Service) PaidChargeTotals(ctx context.Context, start, end time.Time) (ChargeTotals, error) {
	var row struct {
		Amount         decimal.Decimal
		AmountRefunded decimal.Decimal
	}
	err := s.db.DB().WithContext(ctx).
		Model(&models.Charge{}).
		Select("COALESCE(SUM(amount), 0) AS amount, COALESCE(SUM(amount_refunded), 0) AS amount_refunded").
		Where("paid = ? AND charge_created >= ? AND charge_created < ?", true, start, end).
		Scan(&row).Error
	if err != nil {
		return ChargeTotals{}, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "summing paid charges")
	}
	return ChargeTotals{Amount: row.Amount, AmountRefunded: row.AmountRefunded}, nil
}

// TransfersDuring lists transfers dated inside [start, end).
func (s *Service) TransfersDuring(ctx context.Context, start, end time.Time) ([]models.Transfer, error) {
	var transfers []models.Transfer
	err := s.db.DB().WithContext(ctx).
		Where("date >= ? AND date < ?", start, end).
		Order("date ASC").
		Find(&transfers).Error
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "listing transfers for period")
	}
	return transfers, nil
}

// PaidTransferTotal sums the paid transfers dated inside [start, end).
func (s *Service) PaidTransferTotal(ctx context.Context, start, end time.Time) (decimal.Decimal, error) {
	var row struct {
		Total decimal.Decimal
	}
	err := s.db.DB().WithContext(ctx).
		Model(&models.Transfer{}).
		Select("COALESCE(SUM(amount), 0) AS total").
		Where("status = ? AND date >= ? AND date < ?", "paid", start, end).
		Scan(&row).Error
	if err != nil {
		return decimal.Zero, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "summing paid transfers")
	}
	return row.Total, nil
}

// CustomerCounts reports the shape of the mirrored customer base.
type CustomerCounts struct {
	Active   int64
	Canceled int64
}

// CountCustomers splits live customers into those holding a current
// subscription and those whose subscriptions have all ended.
func (s *Service) CountCustomers(ctx context.Context) (CustomerCounts, error) {
	var counts CustomerCounts
	now := time.Now().UTC()

	err := s.db.DB().WithContext(ctx).
		Model(&models.Customer{}).
		Where("date_purged IS NULL").
		Where("id IN (?)", s.db.DB().
			Model(&models.Subscription{}).
			Select("customer_id").
			Where("ended_at IS NULL OR ended_at > ?", now)).
		Count(&counts.Active).Error
	if err != nil {
		return CustomerCounts{}, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "counting active customers")
	}

	err = s.db.DB().WithContext(ctx).
		Model(&models.Customer{}).
		Where("date_purged IS NULL").
		Where("id NOT IN (?)", s.db.DB().
			Model(&models.Subscription{}).
			Select("customer_id").
			Where("ended_at IS NULL OR ended_at > ?", now)).
		Where("id IN (?)", s.db.DB().
			Model(&models.Subscription{}).
			Select("customer_id")).
		Count(&counts.Canceled).Error
	if err != nil {
		return CustomerCounts{}, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "counting canceled customers")
	}
	return counts, nil
}

// ChurnRate is canceled customers over active customers, zero when there is
// no active base to churn from.
func (s *Service) ChurnRate(ctx context.Context) (decimal.Decimal, error) {
	counts, err := s.CountCustomers(ctx)
	if err != nil {
		return decimal.Zero, err
	}
	if counts.Active == 0 {
		return decimal.Zero, nil
	}
	return decimal.NewFromInt(counts.Canceled).Div(decimal.NewFromInt(counts.Active)), nil
}
