package service

import (
	"context"
	"fmt"
	"time"

	"backend/internal/model"
	"backend/internal/repository"
	"backend/internal/workflow"
	"backend/pkg/metrics"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// --- DTOs ---

type RequisitionItemDTO struct {
	Description string `json:"description" binding:"required"`
	Quantity    int    `json:"quantity" binding:"required,gt=0"`
	UnitPrice   string `json:"unit_price" binding:"required"`
}

type CreateRequisitionDTO struct {
	Title string               `json:"title" binding:"required"`
	Items []RequisitionItemDTO `json:"items" binding:"required,min=1,dive"`
	Note  string               `json:"note"`
}

type RequisitionResponse struct {
	ID            string                    `json:"id"`
	RequisitionNo string                    `json:"requisition_no"`
	Title         string                    `json:"title"`
	Status        string                    `json:"status"`
	RequesterID   string                    `json:"requester_id"`
	RequesterName string                    `json:"requester_name"`
	Items         []RequisitionItemResponse `json:"items"`
	TotalAmount   string                    `json:"total_amount"`
	Note          string                    `json:"note"`
	CreatedAt     string                    `json:"created_at"`
}

type RequisitionItemResponse struct {
	Description string `json:"description"`
	Quantity    int    `json:"quantity"`
	UnitPrice   string `json:"unit_price"`
}

// --- Interface ---

type RequisitionService interface {
	Create(ctx context.Context, caller workflow.Actor, req CreateRequisitionDTO) (*RequisitionResponse, error)
	Get(ctx context.Context, id string) (*RequisitionResponse, error)
	List(ctx context.Context, status, requesterID string, page, limit int) ([]RequisitionResponse, int64, error)
	GetHistory(ctx context.Context, id string) ([]HistoryEntryResponse, error)
	Submit(ctx context.Context, id string, caller workflow.Actor) (*RequisitionResponse, error)
	Approve(ctx context.Context, id string, caller workflow.Actor) (*RequisitionResponse, error)
	Reject(ctx context.Context, id string, caller workflow.Actor, reason string) (*RequisitionResponse, error)
	Fulfill(ctx context.Context, id string, caller workflow.Actor) (*RequisitionResponse, error)
	Cancel(ctx context.Context, id string, caller workflow.Actor, reason string) (*RequisitionResponse, error)
	Resubmit(ctx context.Context, id string, caller workflow.Actor) (*RequisitionResponse, error)
}

type requisitionService struct {
	db       *gorm.DB
	repo     repository.RequisitionRepository
	history  repository.HistoryRepository
	audit    repository.AuditRepository
	roles    RoleService
	notifier NotificationService
}

func NewRequisitionService(db *gorm.DB, repo repository.RequisitionRepository, history repository.HistoryRepository, audit repository.AuditRepository, roles RoleService, notifier NotificationService) RequisitionService {
	return &requisitionService{db: db, repo: repo, history: history, audit: audit, roles: roles, notifier: notifier}
}

// --- Implementation ---

func (s *requisitionService) Create(ctx context.Context, caller workflow.Actor, req CreateRequisitionDTO) (*RequisitionResponse, error) {
	items := make([]model.RequisitionItem, 0, len(req.Items))
	total := decimal.Zero
	for _, item := range req.Items {
		price, err := decimal.NewFromString(item.UnitPrice)
		if err != nil {
			return nil, fmt.Errorf("invalid unit price '%s': %w", item.UnitPrice, err)
		}
		items = append(items, model.RequisitionItem{
			Description: item.Description,
			Quantity:    item.Quantity,
			UnitPrice:   price,
		})
		total = total.Add(price.Mul(decimal.NewFromInt(int64(item.Quantity))))
	}

	requisition := model.Requisition{
		Title:       req.Title,
		Status:      model.RequisitionDraft,
		RequesterID: caller.ID,
		Items:       items,
		TotalAmount: total,
		Note:        req.Note,
	}

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		no, err := generateDocumentNo(tx, "RQN", "requisition_no", &model.Requisition{})
		if err != nil {
			return fmt.Errorf("failed to generate requisition number: %w", err)
		}
		requisition.RequisitionNo = no

		txCtx := repository.WithTx(ctx, tx)
		if err := s.repo.Create(txCtx, &requisition); err != nil {
			return fmt.Errorf("failed to create requisition: %w", err)
		}

		entry := model.StatusHistory{
			EntityKind:    model.KindRequisition,
			EntityID:      requisition.ID,
			Status:        model.RequisitionDraft,
			ChangedByID:   caller.ID,
			ChangedByName: caller.Name,
			ChangedAt:     time.Now(),
		}
		if err := s.history.Append(txCtx, &entry); err != nil {
			return fmt.Errorf("failed to write status history: %w", err)
		}

		callerID := caller.ID
		audit := model.AuditLog{
			UserID:     &callerID,
			Action:     model.ActionCreateRequisition,
			EntityID:   requisition.ID.String(),
			EntityName: requisition.RequisitionNo,
			Details:    fmt.Sprintf(`{"total":"%s"}`, total.StringFixed(4)),
		}
		return s.audit.Log(txCtx, &audit)
	})
	if err != nil {
		return nil, err
	}

	return s.Get(ctx, requisition.ID.String())
}

func (s *requisitionService) Get(ctx context.Context, id string) (*RequisitionResponse, error) {
	requisitionID, err := uuid.Parse(id)
	if err != nil {
		return nil, fmt.Errorf("invalid requisition id: %w", err)
	}

	requisition, err := s.repo.FindByIDWithRelations(ctx, requisitionID)
	if err != nil {
		return nil, fmt.Errorf("requisition not found: %w", err)
	}

	resp := toRequisitionResponse(*requisition)
	return &resp, nil
}

func (s *requisitionService) List(ctx context.Context, status, requesterID string, page, limit int) ([]RequisitionResponse, int64, error) {
	var requester *uuid.UUID
	if requesterID != "" {
		if id, err := uuid.Parse(requesterID); err == nil {
			requester = &id
		}
	}

	if page <= 0 {
		page = 1
	}
	if limit <= 0 {
		limit = 20
	}

	requisitions, total, err := s.repo.List(ctx, status, requester, page, limit)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to fetch requisitions: %w", err)
	}

	out := make([]RequisitionResponse, 0, len(requisitions))
	for _, r := range requisitions {
		out = append(out, toRequisitionResponse(r))
	}
	return out, total, nil
}

func (s *requisitionService) GetHistory(ctx context.Context, id string) ([]HistoryEntryResponse, error) {
	requisitionID, err := uuid.Parse(id)
	if err != nil {
		return nil, fmt.Errorf("invalid requisition id: %w", err)
	}

	entries, err := s.history.ListForEntity(ctx, model.KindRequisition, requisitionID)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch history: %w", err)
	}

	out := make([]HistoryEntryResponse, 0, len(entries))
	for _, e := range entries {
		out = append(out, toHistoryResponse(e))
	}
	return out, nil
}

func (s *requisitionService) Submit(ctx context.Context, id string, caller workflow.Actor) (*RequisitionResponse, error) {
	return s.transition(ctx, id, workflow.RequisitionPending, caller, "")
}

func (s *requisitionService) Approve(ctx context.Context, id string, caller workflow.Actor) (*RequisitionResponse, error) {
	return s.transition(ctx, id, workflow.RequisitionApproved, caller, "")
}

func (s *requisitionService) Reject(ctx context.Context, id string, caller workflow.Actor, reason string) (*RequisitionResponse, error) {
	return s.transition(ctx, id, workflow.RequisitionRejected, caller, reason)
}

func (s *requisitionService) Fulfill(ctx context.Context, id string, caller workflow.Actor) (*RequisitionResponse, error) {
	return s.transition(ctx, id, workflow.RequisitionFulfilled, caller, "")
}

func (s *requisitionService) Cancel(ctx context.Context, id string, caller workflow.Actor, reason string) (*RequisitionResponse, error) {
	return s.transition(ctx, id, workflow.RequisitionCancelled, caller, reason)
}

func (s *requisitionService) Resubmit(ctx context.Context, id string, caller workflow.Actor) (*RequisitionResponse, error) {
	return s.transition(ctx, id, workflow.RequisitionPending, caller, "")
}

func (s *requisitionService) transition(ctx context.Context, id string, next workflow.Status, caller workflow.Actor, reason string) (*RequisitionResponse, error) {
	requisitionID, err := uuid.Parse(id)
	if err != nil {
		return nil, fmt.Errorf("invalid requisition id: %w", err)
	}

	resolver, err := s.roles.Resolver(ctx)
	if err != nil {
		return nil, err
	}
	engine := workflow.NewEngine(resolver)

	var requisition *model.Requisition
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		txCtx := repository.WithTx(ctx, tx)

		requisition, err = s.repo.FindByID(txCtx, requisitionID)
		if err != nil {
			return fmt.Errorf("requisition not found: %w", err)
		}

		outcome, err := engine.Attempt(workflow.Input{
			Kind:        workflow.KindRequisition,
			EntityID:    requisition.ID,
			Current:     workflow.Status(requisition.Status),
			Next:        next,
			Caller:      caller,
			RequesterID: requisition.RequesterID,
			Reason:      reason,
		})
		if err != nil {
			if d, ok := workflow.AsDenial(err); ok {
				metrics.ObserveTransition(model.KindRequisition, string(d.Reason))
			}
			return err
		}
		metrics.ObserveTransition(model.KindRequisition, "allowed")

		requisition.Status = string(outcome.NewStatus)
		if err := s.repo.Update(txCtx, requisition); err != nil {
			return fmt.Errorf("failed to update requisition: %w", err)
		}

		if err := s.history.Append(txCtx, &outcome.Entry); err != nil {
			return fmt.Errorf("failed to write status history: %w", err)
		}

		callerID := caller.ID
		audit := model.AuditLog{
			UserID:     &callerID,
			Action:     model.ActionTransitionRequisition,
			EntityID:   requisition.ID.String(),
			EntityName: requisition.RequisitionNo,
			Details:    fmt.Sprintf(`{"from":"%s","to":"%s"}`, outcome.Entry.PreviousStatus, outcome.Entry.Status),
		}
		return s.audit.Log(txCtx, &audit)
	})
	if err != nil {
		return nil, err
	}

	s.notifier.Dispatch(ctx, TransitionEvent{
		Kind:           model.KindRequisition,
		EntityID:       requisition.ID.String(),
		EntityName:     requisition.RequisitionNo,
		Status:         requisition.Status,
		ChangedBy:      caller.Name,
		TemplateKind:   model.NotifyStatusChanged,
		RecipientIDs:   []uuid.UUID{requisition.RequesterID},
		RecipientRoles: []string{"finance"},
	})

	return s.Get(ctx, id)
}

// --- Helpers ---

func toRequisitionResponse(r model.Requisition) RequisitionResponse {
	items := make([]RequisitionItemResponse, 0, len(r.Items))
	for _, item := range r.Items {
		items = append(items, RequisitionItemResponse{
			Description: item.Description,
			Quantity:    item.Quantity,
			UnitPrice:   item.UnitPrice.StringFixed(2),
		})
	}
	resp := RequisitionResponse{
		ID:            r.ID.String(),
		RequisitionNo: r.RequisitionNo,
		Title:         r.Title,
		Status:        r.Status,
		RequesterID:   r.RequesterID.String(),
		Items:         items,
		TotalAmount:   r.TotalAmount.StringFixed(2),
		Note:          r.Note,
		CreatedAt:     r.CreatedAt.Format(time.RFC3339),
	}
	if r.Requester != nil {
		resp.RequesterName = r.Requester.Username
	}
	return resp
}
