package service

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"backend/internal/model"
	"backend/internal/repository"
	"backend/internal/workflow"
	"backend/pkg/metrics"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// --- DTOs ---

type CreateRequestDTO struct {
	Title       string `json:"title" binding:"required"`
	Description string `json:"description"`
}

type AssignRequestDTO struct {
	AssigneeID string `json:"assignee_id" binding:"required"`
}

type TransitionDTO struct {
	Reason string `json:"reason"`
}

type RequestFilterDTO struct {
	Status      string
	RequesterID string
	AssigneeID  string
	Page        int
	Limit       int
}

type RequestResponse struct {
	ID            string  `json:"id"`
	RequestNo     string  `json:"request_no"`
	Title         string  `json:"title"`
	Description   string  `json:"description"`
	Status        string  `json:"status"`
	RequesterID   string  `json:"requester_id"`
	RequesterName string  `json:"requester_name"`
	AssigneeID    *string `json:"assignee_id"`
	AssigneeName  string  `json:"assignee_name"`
	TaskID        *string `json:"task_id"`
	CreatedAt     string  `json:"created_at"`
	UpdatedAt     string  `json:"updated_at"`
}

type HistoryEntryResponse struct {
	Status         string `json:"status"`
	PreviousStatus string `json:"previous_status,omitempty"`
	ChangedByID    string `json:"changed_by_id"`
	ChangedByName  string `json:"changed_by_name"`
	Reason         string `json:"reason,omitempty"`
	ChangedAt      string `json:"changed_at"`
}

// --- Interface ---

type RequestService interface {
	CreateRequest(ctx context.Context, caller workflow.Actor, req CreateRequestDTO) (*RequestResponse, error)
	GetRequest(ctx context.Context, id string) (*RequestResponse, error)
	ListRequests(ctx context.Context, filter RequestFilterDTO) ([]RequestResponse, int64, error)
	GetHistory(ctx context.Context, id string) ([]HistoryEntryResponse, error)
	Assign(ctx context.Context, id string, caller workflow.Actor, req AssignRequestDTO) (*RequestResponse, error)
	StartReview(ctx context.Context, id string, caller workflow.Actor) (*RequestResponse, error)
	RequestRevision(ctx context.Context, id string, caller workflow.Actor, reason string) (*RequestResponse, error)
	Approve(ctx context.Context, id string, caller workflow.Actor) (*RequestResponse, error)
	Reject(ctx context.Context, id string, caller workflow.Actor, reason string) (*RequestResponse, error)
	Resubmit(ctx context.Context, id string, caller workflow.Actor) (*RequestResponse, error)
}

type requestService struct {
	db       *gorm.DB
	repo     repository.RequestRepository
	history  repository.HistoryRepository
	audit    repository.AuditRepository
	roles    RoleService
	notifier NotificationService
}

func NewRequestService(db *gorm.DB, repo repository.RequestRepository, history repository.HistoryRepository, audit repository.AuditRepository, roles RoleService, notifier NotificationService) RequestService {
	return &requestService{db: db, repo: repo, history: history, audit: audit, roles: roles, notifier: notifier}
}

// --- Implementation ---

func (s *requestService) CreateRequest(ctx context.Context, caller workflow.Actor, req CreateRequestDTO) (*RequestResponse, error) {
	request := model.CertificateRequest{
		Title:       req.Title,
		Description: req.Description,
		Status:      model.RequestPending,
		RequesterID: caller.ID,
	}

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		no, err := generateDocumentNo(tx, "REQ", "request_no", &model.CertificateRequest{})
		if err != nil {
			return fmt.Errorf("failed to generate request number: %w", err)
		}
		request.RequestNo = no

		txCtx := repository.WithTx(ctx, tx)
		if err := s.repo.Create(txCtx, &request); err != nil {
			return fmt.Errorf("failed to create request: %w", err)
		}

		// Initial history entry: the entity enters the graph at PENDING.
		entry := model.StatusHistory{
			EntityKind:    model.KindRequest,
			EntityID:      request.ID,
			Status:        model.RequestPending,
			ChangedByID:   caller.ID,
			ChangedByName: caller.Name,
			ChangedAt:     time.Now(),
		}
		if err := s.history.Append(txCtx, &entry); err != nil {
			return fmt.Errorf("failed to write status history: %w", err)
		}

		return s.writeAudit(txCtx, caller, model.ActionCreateRequest, request.ID.String(), request.RequestNo, map[string]interface{}{
			"title": request.Title,
		})
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

	return s.GetRequest(ctx, request.ID.String())
}

func (s *requestService) GetRequest(ctx context.Context, id string) (*RequestResponse, error) {
	requestID, err := uuid.Parse(id)
	if err != nil {
		return nil, fmt.Errorf("invalid request id: %w", err)
	}

	request, err := s.repo.FindByIDWithRelations(ctx, requestID)
	if err != nil {
		return nil, fmt.Errorf("request not found: %w", err)
	}

	resp := toRequestResponse(*request)
	return &resp, nil
}

func (s *requestService) ListRequests(ctx context.Context, filter RequestFilterDTO) ([]RequestResponse, int64, error) {
	repoFilter := repository.RequestFilter{Status: filter.Status}
	if filter.RequesterID != "" {
		if id, err := uuid.Parse(filter.RequesterID); err == nil {
			repoFilter.RequesterID = &id
		}
	}
	if filter.AssigneeID != "" {
		if id, err := uuid.Parse(filter.AssigneeID); err == nil {
			repoFilter.AssigneeID = &id
		}
	}

	if filter.Page <= 0 {
		filter.Page = 1
	}
	if filter.Limit <= 0 {
		filter.Limit = 20
	}

	requests, total, err := s.repo.List(ctx, repoFilter, filter.Page, filter.Limit)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to fetch requests: %w", err)
	}

	result := make([]RequestResponse, 0, len(requests))
	for _, r := range requests {
		result = append(result, toRequestResponse(r))
	}
	return result, total, nil
}

func (s *requestService) GetHistory(ctx context.Context, id string) ([]HistoryEntryResponse, error) {
	requestID, err := uuid.Parse(id)
	if err != nil {
		return nil, fmt.Errorf("invalid request id: %w", err)
	}

	entries, err := s.history.ListForEntity(ctx, model.KindRequest, requestID)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch history: %w", err)
	}

	out := make([]HistoryEntryResponse, 0, len(entries))
	for _, e := range entries {
		out = append(out, toHistoryResponse(e))
	}
	return out, nil
}

func (s *requestService) Assign(ctx context.Context, id string, caller workflow.Actor, req AssignRequestDTO) (*RequestResponse, error) {
	assigneeID, err := uuid.Parse(req.AssigneeID)
	if err != nil {
		return nil, fmt.Errorf("invalid assignee id: %w", err)
	}

	return s.transition(ctx, id, workflow.RequestAssigned, caller, "", model.ActionAssignRequest, func(request *model.CertificateRequest) {
		request.AssigneeID = &assigneeID
	})
}

func (s *requestService) StartReview(ctx context.Context, id string, caller workflow.Actor) (*RequestResponse, error) {
	return s.transition(ctx, id, workflow.RequestInReview, caller, "", model.ActionReviewRequest, nil)
}

func (s *requestService) RequestRevision(ctx context.Context, id string, caller workflow.Actor, reason string) (*RequestResponse, error) {
	return s.transition(ctx, id, workflow.RequestNeedsRevision, caller, reason, model.ActionReviewRequest, nil)
}

func (s *requestService) Approve(ctx context.Context, id string, caller workflow.Actor) (*RequestResponse, error) {
	return s.transition(ctx, id, workflow.RequestApproved, caller, "", model.ActionApproveRequest, nil)
}

func (s *requestService) Reject(ctx context.Context, id string, caller workflow.Actor, reason string) (*RequestResponse, error) {
	return s.transition(ctx, id, workflow.RequestRejected, caller, reason, model.ActionRejectRequest, nil)
}

func (s *requestService) Resubmit(ctx context.Context, id string, caller workflow.Actor) (*RequestResponse, error) {
	return s.transition(ctx, id, workflow.RequestPending, caller, "", model.ActionResubmitRequest, nil)
}

// transition runs the engine against the current entity state and persists
// the outcome (status update, history append, audit row) in one
// transaction. Notification dispatch happens after commit, best-effort.
func (s *requestService) transition(ctx context.Context, id string, next workflow.Status, caller workflow.Actor, reason, action string, mutate func(*model.CertificateRequest)) (*RequestResponse, error) {
	requestID, err := uuid.Parse(id)
	if err != nil {
		return nil, fmt.Errorf("invalid request id: %w", err)
	}

	resolver, err := s.roles.Resolver(ctx)
	if err != nil {
		return nil, err
	}
	engine := workflow.NewEngine(resolver)

	var request *model.CertificateRequest
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		txCtx := repository.WithTx(ctx, tx)

		request, err = s.repo.FindByID(txCtx, requestID)
		if err != nil {
			return fmt.Errorf("request not found: %w", err)
		}

		outcome, err := engine.Attempt(workflow.Input{
			Kind:        workflow.KindRequest,
			EntityID:    request.ID,
			Current:     workflow.Status(request.Status),
			Next:        next,
			Caller:      caller,
			RequesterID: request.RequesterID,
			Reason:      reason,
		})
		if err != nil {
			if d, ok := workflow.AsDenial(err); ok {
				metrics.ObserveTransition(model.KindRequest, string(d.Reason))
			}
			return err
		}
		metrics.ObserveTransition(model.KindRequest, "allowed")

		request.Status = string(outcome.NewStatus)
		if mutate != nil {
			mutate(request)
		}
		if err := s.repo.Update(txCtx, request); err != nil {
			return fmt.Errorf("failed to update request: %w", err)
		}

		if err := s.history.Append(txCtx, &outcome.Entry); err != nil {
			return fmt.Errorf("failed to write status history: %w", err)
		}

		return s.writeAudit(txCtx, caller, action, request.ID.String(), request.RequestNo, map[string]interface{}{
			"from":   outcome.Entry.PreviousStatus,
			"to":     outcome.Entry.Status,
			"reason": reason,
		})
	})
	if err != nil {
		return nil, err
	}

	event := TransitionEvent{
		Kind:         model.KindRequest,
		EntityID:     request.ID.String(),
		EntityName:   request.RequestNo,
		Status:       request.Status,
		ChangedBy:    caller.Name,
		TemplateKind: model.NotifyStatusChanged,
		RecipientIDs: []uuid.UUID{request.RequesterID},
	}
	if request.AssigneeID != nil {
		event.RecipientIDs = append(event.RecipientIDs, *request.AssigneeID)
	}
	if next == workflow.RequestAssigned {
		event.TemplateKind = model.NotifyRequestAssigned
	}
	s.notifier.Dispatch(ctx, event)

	return s.GetRequest(ctx, id)
}

func (s *requestService) writeAudit(ctx context.Context, caller workflow.Actor, action, entityID, entityName string, details map[string]interface{}) error {
	payload, _ := json.Marshal(details)
	callerID := caller.ID
	entry := model.AuditLog{
		UserID:     &callerID,
		Action:     action,
		EntityID:   entityID,
		EntityName: entityName,
		Details:    string(payload),
	}
	if err := s.audit.Log(ctx, &entry); err != nil {
		return fmt.Errorf("failed to write audit log: %w", err)
	}
	return nil
}

// --- Helpers ---

func toRequestResponse(r model.CertificateRequest) RequestResponse {
	resp := RequestResponse{
		ID:          r.ID.String(),
		RequestNo:   r.RequestNo,
		Title:       r.Title,
		Description: r.Description,
		Status:      r.Status,
		RequesterID: r.RequesterID.String(),
		CreatedAt:   r.CreatedAt.Format(time.RFC3339),
		UpdatedAt:   r.UpdatedAt.Format(time.RFC3339),
	}
	if r.Requester != nil {
		resp.RequesterName = r.Requester.Username
	}
	if r.AssigneeID != nil {
		id := r.AssigneeID.String()
		resp.AssigneeID = &id
	}
	if r.Assignee != nil {
		resp.AssigneeName = r.Assignee.Username
	}
	if r.TaskID != nil {
		id := r.TaskID.String()
		resp.TaskID = &id
	}
	return resp
}

func toHistoryResponse(e model.StatusHistory) HistoryEntryResponse {
	return HistoryEntryResponse{
		Status:         e.Status,
		PreviousStatus: e.PreviousStatus,
		ChangedByID:    e.ChangedByID.String(),
		ChangedByName:  e.ChangedByName,
		Reason:         e.Reason,
		ChangedAt:      e.ChangedAt.Format(time.RFC3339),
	}
}
