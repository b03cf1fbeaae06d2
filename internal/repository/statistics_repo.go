package repository

import (
	"context"
	"time"

	"backend/internal/model"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// InvoiceTotals carries the summed money columns for a date range.
type InvoiceTotals struct {
	Invoiced    decimal.Decimal
	Paid        decimal.Decimal
	Outstanding decimal.Decimal
}

type StatisticsRepository interface {
	SumInvoices(ctx context.Context, from, to time.Time) (InvoiceTotals, error)
	CountRequestsInStatuses(ctx context.Context, statuses []string) (int64, error)
	CountRequisitionsInStatus(ctx context.Context, status string) (int64, error)
	HistoryBetween(ctx context.Context, from, to time.Time) ([]model.StatusHistory, error)
}

type statisticsRepository struct {
	db *gorm.DB
}

func NewStatisticsRepository(db *gorm.DB) StatisticsRepository {
	return &statisticsRepository{db: db}
}

func (r *statisticsRepository) SumInvoices(ctx context.Context, from, to time.Time) (InvoiceTotals, error) {
	var row struct {
		Invoiced    decimal.Decimal
		Paid        decimal.Decimal
		Outstanding decimal.Decimal
	}
	err := GetDB(ctx, r.db).Model(&model.Invoice{}).
		Select(`COALESCE(SUM(total_amount), 0) AS invoiced,
			COALESCE(SUM(paid_amount), 0) AS paid,
			COALESCE(SUM(outstanding_amount), 0) AS outstanding`).
		Where("status NOT IN ?", []string{model.InvoiceDraft, model.InvoiceCancelled, model.InvoiceRejected}).
		Where("created_at >= ? AND created_at < ?", from, to).
		Scan(&row).Error
	if err != nil {
		return InvoiceTotals{}, err
	}
	return InvoiceTotals{Invoiced: row.Invoiced, Paid: row.Paid, Outstanding: row.Outstanding}, nil
}

func (r *statisticsRepository) CountRequestsInStatuses(ctx context.Context, statuses []string) (int64, error) {
	var count int64
	err := GetDB(ctx, r.db).Model(&model.CertificateRequest{}).
		Where("status IN ?", statuses).Count(&count).Error
	return count, err
}

func (r *statisticsRepository) CountRequisitionsInStatus(ctx context.Context, status string) (int64, error) {
	var count int64
	err := GetDB(ctx, r.db).Model(&model.Requisition{}).
		Where("status = ?", status).Count(&count).Error
	return count, err
}

func (r *statisticsRepository) HistoryBetween(ctx context.Context, from, to time.Time) ([]model.StatusHistory, error) {
	var entries []model.StatusHistory
	if err := GetDB(ctx, r.db).
		Where("changed_at >= ? AND changed_at < ?", from, to).
		Order("changed_at ASC, id ASC").Find(&entries).Error; err != nil {
		return nil, err
	}
	return entries, nil
}
