package service

import (
	"context"
	"fmt"
	"time"

	"backend/internal/model"
	"backend/internal/repository"
	"backend/internal/workflow"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// --- DTOs ---

type CreateTaskDTO struct {
	Title       string `json:"title" binding:"required"`
	Description string `json:"description"`
	AssigneeID  string `json:"assignee_id" binding:"required"`
}

type TaskResponse struct {
	ID           string  `json:"id"`
	Title        string  `json:"title"`
	Description  string  `json:"description"`
	Status       string  `json:"status"`
	AssigneeID   string  `json:"assignee_id"`
	AssigneeName string  `json:"assignee_name"`
	CompletedAt  *string `json:"completed_at"`
	RequestID    *string `json:"request_id"` // Companion request created on completion
	CreatedAt    string  `json:"created_at"`
}

// --- Interface ---

type TaskService interface {
	CreateTask(ctx context.Context, caller workflow.Actor, req CreateTaskDTO) (*TaskResponse, error)
	ListTasks(ctx context.Context, status, assigneeID string, page, limit int) ([]TaskResponse, int64, error)
	// CompleteTask marks the task DONE and creates the companion certificate
	// request in the same transaction. Either both writes land or neither.
	CompleteTask(ctx context.Context, id string, caller workflow.Actor) (*TaskResponse, error)
}

type taskService struct {
	db       *gorm.DB
	txm      repository.TransactionManager
	tasks    repository.TaskRepository
	requests repository.RequestRepository
	history  repository.HistoryRepository
	audit    repository.AuditRepository
	notifier NotificationService
}

func NewTaskService(db *gorm.DB, txm repository.TransactionManager, tasks repository.TaskRepository, requests repository.RequestRepository, history repository.HistoryRepository, audit repository.AuditRepository, notifier NotificationService) TaskService {
	return &taskService{db: db, txm: txm, tasks: tasks, requests: requests, history: history, audit: audit, notifier: notifier}
}

// --- Implementation ---

func (s *taskService) CreateTask(ctx context.Context, caller workflow.Actor, req CreateTaskDTO) (*TaskResponse, error) {
	assigneeID, err := uuid.Parse(req.AssigneeID)
	if err != nil {
		return nil, fmt.Errorf("invalid assignee id: %w", err)
	}

	task := model.QATask{
		Title:       req.Title,
		Description: req.Description,
		Status:      model.TaskOpen,
		AssigneeID:  assigneeID,
	}
	if err := s.tasks.Create(ctx, &task); err != nil {
		return nil, fmt.Errorf("failed to create task: %w", err)
	}

	loaded, err := s.tasks.FindByID(ctx, task.ID)
	if err != nil {
		return nil, err
	}
	resp := toTaskResponse(*loaded, nil)
	return &resp, nil
}

func (s *taskService) ListTasks(ctx context.Context, status, assigneeID string, page, limit int) ([]TaskResponse, int64, error) {
	var assignee *uuid.UUID
	if assigneeID != "" {
		if id, err := uuid.Parse(assigneeID); err == nil {
			assignee = &id
		}
	}

	if page <= 0 {
		page = 1
	}
	if limit <= 0 {
		limit = 20
	}

	tasks, total, err := s.tasks.List(ctx, status, assignee, page, limit)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to fetch tasks: %w", err)
	}

	out := make([]TaskResponse, 0, len(tasks))
	for _, t := range tasks {
		out = append(out, toTaskResponse(t, nil))
	}
	return out, total, nil
}

func (s *taskService) CompleteTask(ctx context.Context, id string, caller workflow.Actor) (*TaskResponse, error) {
	taskID, err := uuid.Parse(id)
	if err != nil {
		return nil, fmt.Errorf("invalid task id: %w", err)
	}

	var task *model.QATask
	var request model.CertificateRequest

	err = s.txm.RunInTx(ctx, func(txCtx context.Context) error {
		task, err = s.tasks.FindByID(txCtx, taskID)
		if err != nil {
			return fmt.Errorf("task not found: %w", err)
		}

		if task.Status == model.TaskDone {
			return fmt.Errorf("task is already completed")
		}
		if task.AssigneeID != caller.ID {
			return fmt.Errorf("only the assignee can complete this task")
		}

		now := time.Now()
		task.Status = model.TaskDone
		task.CompletedAt = &now
		if err := s.tasks.Update(txCtx, task); err != nil {
			return fmt.Errorf("failed to update task: %w", err)
		}

		// Companion certificate request, linked atomically to the task.
		no, err := generateDocumentNo(repository.GetDB(txCtx, s.db), "REQ", "request_no", &model.CertificateRequest{})
		if err != nil {
			return fmt.Errorf("failed to generate request number: %w", err)
		}

		request = model.CertificateRequest{
			RequestNo:   no,
			Title:       "Certification: " + task.Title,
			Description: task.Description,
			Status:      model.RequestPending,
			RequesterID: caller.ID,
			TaskID:      &task.ID,
		}
		if err := s.requests.Create(txCtx, &request); err != nil {
			return fmt.Errorf("failed to create companion request: %w", err)
		}

		entry := model.StatusHistory{
			EntityKind:    model.KindRequest,
			EntityID:      request.ID,
			Status:        model.RequestPending,
			ChangedByID:   caller.ID,
			ChangedByName: caller.Name,
			ChangedAt:     now,
		}
		if err := s.history.Append(txCtx, &entry); err != nil {
			return fmt.Errorf("failed to write status history: %w", err)
		}

		callerID := caller.ID
		audit := model.AuditLog{
			UserID:     &callerID,
			Action:     model.ActionCompleteTask,
			EntityID:   task.ID.String(),
			EntityName: task.Title,
			Details:    fmt.Sprintf(`{"companion_request":"%s"}`, request.RequestNo),
		}
		if err := s.audit.Log(txCtx, &audit); err != nil {
			return fmt.Errorf("failed to write audit log: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.notifier.Dispatch(ctx, TransitionEvent{
		Kind:           model.KindRequest,
		EntityID:       request.ID.String(),
		EntityName:     request.RequestNo,
		Status:         model.RequestPending,
		ChangedBy:      caller.Name,
		TemplateKind:   model.NotifyStatusChanged,
		RecipientRoles: []string{"qa_lead"},
	})

	requestID := request.ID.String()
	resp := toTaskResponse(*task, &requestID)
	return &resp, nil
}

// --- Helpers ---

func toTaskResponse(t model.QATask, requestID *string) TaskResponse {
	resp := TaskResponse{
		ID:          t.ID.String(),
		Title:       t.Title,
		Description: t.Description,
		Status:      t.Status,
		AssigneeID:  t.AssigneeID.String(),
		RequestID:   requestID,
		CreatedAt:   t.CreatedAt.Format(time.RFC3339),
	}
	if t.Assignee != nil {
		resp.AssigneeName = t.Assignee.Username
	}
	if t.CompletedAt != nil {
		s := t.CompletedAt.Format(time.RFC3339)
		resp.CompletedAt = &s
	}
	return resp
}
