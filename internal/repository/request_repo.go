package repository

import (
	"context"

	"backend/internal/model"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// RequestFilter narrows certificate request listings.
type RequestFilter struct {
	Status      string
	RequesterID *uuid.UUID
	AssigneeID  *uuid.UUID
}

type RequestRepository interface {
	Create(ctx context.Context, req *model.CertificateRequest) error
	FindByID(ctx context.Context, id uuid.UUID) (*model.CertificateRequest, error)
	FindByIDWithRelations(ctx context.Context, id uuid.UUID) (*model.CertificateRequest, error)
	List(ctx context.Context, filter RequestFilter, page, limit int) ([]model.CertificateRequest, int64, error)
	Update(ctx context.Context, req *model.CertificateRequest) error
	CountCreatedBetween(ctx context.Context, from, to string) (int64, error)
}

type requestRepository struct {
	db *gorm.DB
}

func NewRequestRepository(db *gorm.DB) RequestRepository {
	return &requestRepository{db: db}
}

func (r *requestRepository) Create(ctx context.Context, req *model.CertificateRequest) error {
	return GetDB(ctx, r.db).Create(req).Error
}

func (r *requestRepository) FindByID(ctx context.Context, id uuid.UUID) (*model.CertificateRequest, error) {
	var req model.CertificateRequest
	if err := GetDB(ctx, r.db).First(&req, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &req, nil
}

func (r *requestRepository) FindByIDWithRelations(ctx context.Context, id uuid.UUID) (*model.CertificateRequest, error) {
	var req model.CertificateRequest
	if err := GetDB(ctx, r.db).Preload("Requester").Preload("Assignee").First(&req, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &req, nil
}

func (r *requestRepository) List(ctx context.Context, filter RequestFilter, page, limit int) ([]model.CertificateRequest, int64, error) {
	var requests []model.CertificateRequest
	var total int64

	db := GetDB(ctx, r.db)
	apply := func(q *gorm.DB) *gorm.DB {
		if filter.Status != "" {
			q = q.Where("status = ?", filter.Status)
		}
		if filter.RequesterID != nil {
			q = q.Where("requester_id = ?", *filter.RequesterID)
		}
		if filter.AssigneeID != nil {
			q = q.Where("assignee_id = ?", *filter.AssigneeID)
		}
		return q
	}

	if err := apply(db.Model(&model.CertificateRequest{})).Count(&total).Error; err != nil {
		return nil, 0, err
	}

	offset := (page - 1) * limit
	if err := apply(db.Preload("Requester").Preload("Assignee")).
		Order("created_at DESC").Offset(offset).Limit(limit).Find(&requests).Error; err != nil {
		return nil, 0, err
	}

	return requests, total, nil
}

func (r *requestRepository) Update(ctx context.Context, req *model.CertificateRequest) error {
	return GetDB(ctx, r.db).Save(req).Error
}

func (r *requestRepository) CountCreatedBetween(ctx context.Context, from, to string) (int64, error) {
	var count int64
	err := GetDB(ctx, r.db).Model(&model.CertificateRequest{}).
		Where("created_at >= ? AND created_at < ?", from, to).Count(&count).Error
	return count, err
}
