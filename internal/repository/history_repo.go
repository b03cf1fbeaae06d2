package repository

import (
	"context"

	"backend/internal/model"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// HistoryRepository appends and reads status history. There is deliberately
// no update or delete; history rows are immutable once written.
type HistoryRepository interface {
	Append(ctx context.Context, entry *model.StatusHistory) error
	ListForEntity(ctx context.Context, kind string, entityID uuid.UUID) ([]model.StatusHistory, error)
}

type historyRepository struct {
	db *gorm.DB
}

func NewHistoryRepository(db *gorm.DB) HistoryRepository {
	return &historyRepository{db: db}
}

func (r *historyRepository) Append(ctx context.Context, entry *model.StatusHistory) error {
	return GetDB(ctx, r.db).Create(entry).Error
}

func (r *historyRepository) ListForEntity(ctx context.Context, kind string, entityID uuid.UUID) ([]model.StatusHistory, error) {
	var entries []model.StatusHistory
	if err := GetDB(ctx, r.db).
		Where("entity_kind = ? AND entity_id = ?", kind, entityID).
		Order("changed_at ASC, id ASC").Find(&entries).Error; err != nil {
		return nil, err
	}
	return entries, nil
}
