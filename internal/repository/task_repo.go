package repository

import (
	"context"

	"backend/internal/model"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type TaskRepository interface {
	Create(ctx context.Context, task *model.QATask) error
	FindByID(ctx context.Context, id uuid.UUID) (*model.QATask, error)
	List(ctx context.Context, status string, assigneeID *uuid.UUID, page, limit int) ([]model.QATask, int64, error)
	Update(ctx context.Context, task *model.QATask) error
}

type taskRepository struct {
	db *gorm.DB
}

func NewTaskRepository(db *gorm.DB) TaskRepository {
	return &taskRepository{db: db}
}

func (r *taskRepository) Create(ctx context.Context, task *model.QATask) error {
	return GetDB(ctx, r.db).Create(task).Error
}

func (r *taskRepository) FindByID(ctx context.Context, id uuid.UUID) (*model.QATask, error) {
	var task model.QATask
	if err := GetDB(ctx, r.db).Preload("Assignee").First(&task, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &task, nil
}

func (r *taskRepository) List(ctx context.Context, status string, assigneeID *uuid.UUID, page, limit int) ([]model.QATask, int64, error) {
	var tasks []model.QATask
	var total int64

	db := GetDB(ctx, r.db)
	apply := func(q *gorm.DB) *gorm.DB {
		if status != "" {
			q = q.Where("status = ?", status)
		}
		if assigneeID != nil {
			q = q.Where("assignee_id = ?", *assigneeID)
		}
		return q
	}

	if err := apply(db.Model(&model.QATask{})).Count(&total).Error; err != nil {
		return nil, 0, err
	}

	offset := (page - 1) * limit
	if err := apply(db.Preload("Assignee")).
		Order("created_at DESC").Offset(offset).Limit(limit).Find(&tasks).Error; err != nil {
		return nil, 0, err
	}

	return tasks, total, nil
}

func (r *taskRepository) Update(ctx context.Context, task *model.QATask) error {
	return GetDB(ctx, r.db).Save(task).Error
}
