package service

import (
	"context"
	"fmt"
	"time"

	"backend/internal/aggregate"
	"backend/internal/model"
	"backend/internal/repository"
	"backend/internal/workflow"
	"backend/pkg/metrics"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// --- DTOs ---

type InvoiceLineItemDTO struct {
	Description string `json:"description" binding:"required"`
	Quantity    int    `json:"quantity" binding:"required,gt=0"`
	UnitPrice   string `json:"unit_price" binding:"required"`
}

type CreateInvoiceDTO struct {
	ClientName    string               `json:"client_name" binding:"required"`
	RequisitionID string               `json:"requisition_id"`
	Items         []InvoiceLineItemDTO `json:"items" binding:"required,min=1,dive"`
	Note          string               `json:"note"`
}

type RecordPaymentDTO struct {
	Amount          string `json:"amount" binding:"required"`
	PaymentDate     string `json:"payment_date"` // RFC3339, defaults to now
	ReferenceNumber string `json:"reference_number"`
	Notes           string `json:"notes"`
}

type PaymentResponse struct {
	ID              string `json:"id"`
	Amount          string `json:"amount"`
	PaymentDate     string `json:"payment_date"`
	ReferenceNumber string `json:"reference_number,omitempty"`
	Notes           string `json:"notes,omitempty"`
}

type InvoiceResponse struct {
	ID                string                `json:"id"`
	InvoiceNo         string                `json:"invoice_no"`
	ClientName        string                `json:"client_name"`
	Status            string                `json:"status"`
	Items             []InvoiceItemResponse `json:"items"`
	TotalAmount       string                `json:"total_amount"`
	PaidAmount        string                `json:"paid_amount"`
	OutstandingAmount string                `json:"outstanding_amount"`
	Payments          []PaymentResponse     `json:"payments,omitempty"`
	CreatedByID       string                `json:"created_by_id"`
	CreatedByName     string                `json:"created_by_name"`
	Note              string                `json:"note"`
	CreatedAt         string                `json:"created_at"`
}

type InvoiceItemResponse struct {
	Description string `json:"description"`
	Quantity    int    `json:"quantity"`
	UnitPrice   string `json:"unit_price"`
}

// --- Interface ---

type InvoiceService interface {
	Create(ctx context.Context, caller workflow.Actor, req CreateInvoiceDTO) (*InvoiceResponse, error)
	Get(ctx context.Context, id string) (*InvoiceResponse, error)
	List(ctx context.Context, status string, page, limit int) ([]InvoiceResponse, int64, error)
	GetHistory(ctx context.Context, id string) ([]HistoryEntryResponse, error)
	Submit(ctx context.Context, id string, caller workflow.Actor) (*InvoiceResponse, error)
	Approve(ctx context.Context, id string, caller workflow.Actor) (*InvoiceResponse, error)
	Reject(ctx context.Context, id string, caller workflow.Actor, reason string) (*InvoiceResponse, error)
	Cancel(ctx context.Context, id string, caller workflow.Actor, reason string) (*InvoiceResponse, error)
	Resubmit(ctx context.Context, id string, caller workflow.Actor) (*InvoiceResponse, error)
	// RecordPayment appends a payment, recomputes paid/outstanding, and
	// derives the PARTIALLY_PAID/PAID status through the workflow engine.
	// Over-payment is rejected, never clamped.
	RecordPayment(ctx context.Context, id string, caller workflow.Actor, req RecordPaymentDTO) (*InvoiceResponse, error)
}

type invoiceService struct {
	db       *gorm.DB
	txm      repository.TransactionManager
	repo     repository.InvoiceRepository
	history  repository.HistoryRepository
	audit    repository.AuditRepository
	roles    RoleService
	notifier NotificationService
}

func NewInvoiceService(db *gorm.DB, txm repository.TransactionManager, repo repository.InvoiceRepository, history repository.HistoryRepository, audit repository.AuditRepository, roles RoleService, notifier NotificationService) InvoiceService {
	return &invoiceService{db: db, txm: txm, repo: repo, history: history, audit: audit, roles: roles, notifier: notifier}
}

// --- Implementation ---

func (s *invoiceService) Create(ctx context.Context, caller workflow.Actor, req CreateInvoiceDTO) (*InvoiceResponse, error) {
	items := make([]model.InvoiceLineItem, 0, len(req.Items))
	total := decimal.Zero
	for _, item := range req.Items {
		price, err := decimal.NewFromString(item.UnitPrice)
		if err != nil {
			return nil, fmt.Errorf("invalid unit price '%s': %w", item.UnitPrice, err)
		}
		items = append(items, model.InvoiceLineItem{
			Description: item.Description,
			Quantity:    item.Quantity,
			UnitPrice:   price,
		})
		total = total.Add(price.Mul(decimal.NewFromInt(int64(item.Quantity))))
	}

	invoice := model.Invoice{
		ClientName:        req.ClientName,
		Status:            model.InvoiceDraft,
		Items:             items,
		TotalAmount:       total,
		PaidAmount:        decimal.Zero,
		OutstandingAmount: total,
		CreatedByID:       caller.ID,
		Note:              req.Note,
	}

	if req.RequisitionID != "" {
		requisitionID, err := uuid.Parse(req.RequisitionID)
		if err != nil {
			return nil, fmt.Errorf("invalid requisition id: %w", err)
		}
		invoice.RequisitionID = &requisitionID
	}

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		no, err := generateDocumentNo(tx, "INV", "invoice_no", &model.Invoice{})
		if err != nil {
			return fmt.Errorf("failed to generate invoice number: %w", err)
		}
		invoice.InvoiceNo = no

		txCtx := repository.WithTx(ctx, tx)
		if err := s.repo.Create(txCtx, &invoice); err != nil {
			return fmt.Errorf("failed to create invoice: %w", err)
		}

		entry := model.StatusHistory{
			EntityKind:    model.KindInvoice,
			EntityID:      invoice.ID,
			Status:        model.InvoiceDraft,
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
			Action:     model.ActionCreateInvoice,
			EntityID:   invoice.ID.String(),
			EntityName: invoice.InvoiceNo,
			Details:    fmt.Sprintf(`{"total":"%s","client":"%s"}`, total.StringFixed(4), req.ClientName),
		}
		return s.audit.Log(txCtx, &audit)
	})
	if err != nil {
		return nil, err
	}

	return s.Get(ctx, invoice.ID.String())
}

func (s *invoiceService) Get(ctx context.Context, id string) (*InvoiceResponse, error) {
	invoiceID, err := uuid.Parse(id)
	if err != nil {
		return nil, fmt.Errorf("invalid invoice id: %w", err)
	}

	invoice, err := s.repo.FindByIDWithRelations(ctx, invoiceID)
	if err != nil {
		return nil, fmt.Errorf("invoice not found: %w", err)
	}

	resp := toInvoiceResponse(*invoice)
	return &resp, nil
}

func (s *invoiceService) List(ctx context.Context, status string, page, limit int) ([]InvoiceResponse, int64, error) {
	if page <= 0 {
		page = 1
	}
	if limit <= 0 {
		limit = 20
	}

	invoices, total, err := s.repo.List(ctx, status, page, limit)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to fetch invoices: %w", err)
	}

	out := make([]InvoiceResponse, 0, len(invoices))
	for _, inv := range invoices {
		out = append(out, toInvoiceResponse(inv))
	}
	return out, total, nil
}

func (s *invoiceService) GetHistory(ctx context.Context, id string) ([]HistoryEntryResponse, error) {
	invoiceID, err := uuid.Parse(id)
	if err != nil {
		return nil, fmt.Errorf("invalid invoice id: %w", err)
	}

	entries, err := s.history.ListForEntity(ctx, model.KindInvoice, invoiceID)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch history: %w", err)
	}

	out := make([]HistoryEntryResponse, 0, len(entries))
	for _, e := range entries {
		out = append(out, toHistoryResponse(e))
	}
	return out, nil
}

func (s *invoiceService) Submit(ctx context.Context, id string, caller workflow.Actor) (*InvoiceResponse, error) {
	return s.transition(ctx, id, workflow.InvoicePending, caller, "")
}

func (s *invoiceService) Approve(ctx context.Context, id string, caller workflow.Actor) (*InvoiceResponse, error) {
	return s.transition(ctx, id, workflow.InvoiceApproved, caller, "")
}

func (s *invoiceService) Reject(ctx context.Context, id string, caller workflow.Actor, reason string) (*InvoiceResponse, error) {
	return s.transition(ctx, id, workflow.InvoiceRejected, caller, reason)
}

func (s *invoiceService) Cancel(ctx context.Context, id string, caller workflow.Actor, reason string) (*InvoiceResponse, error) {
	return s.transition(ctx, id, workflow.InvoiceCancelled, caller, reason)
}

func (s *invoiceService) Resubmit(ctx context.Context, id string, caller workflow.Actor) (*InvoiceResponse, error) {
	return s.transition(ctx, id, workflow.InvoicePending, caller, "")
}

func (s *invoiceService) RecordPayment(ctx context.Context, id string, caller workflow.Actor, req RecordPaymentDTO) (*InvoiceResponse, error) {
	invoiceID, err := uuid.Parse(id)
	if err != nil {
		return nil, fmt.Errorf("invalid invoice id: %w", err)
	}

	amount, err := decimal.NewFromString(req.Amount)
	if err != nil {
		return nil, fmt.Errorf("invalid payment amount '%s': %w", req.Amount, err)
	}
	if !amount.IsPositive() {
		return nil, fmt.Errorf("payment amount must be positive")
	}

	paymentDate := time.Now()
	if req.PaymentDate != "" {
		parsed, parseErr := time.Parse(time.RFC3339, req.PaymentDate)
		if parseErr != nil {
			return nil, fmt.Errorf("invalid payment date: %w", parseErr)
		}
		paymentDate = parsed
	}

	resolver, err := s.roles.Resolver(ctx)
	if err != nil {
		return nil, err
	}
	engine := workflow.NewEngine(resolver)

	var invoice *model.Invoice
	err = s.txm.RunInTx(ctx, func(txCtx context.Context) error {
		// Row lock: concurrent payments against the same invoice serialize
		// here, so paid/outstanding never go stale mid-recompute.
		invoice, err = s.repo.FindByIDForUpdate(txCtx, invoiceID)
		if err != nil {
			return fmt.Errorf("invoice not found: %w", err)
		}

		if invoice.Status != model.InvoiceApproved && invoice.Status != model.InvoicePartiallyPaid {
			return fmt.Errorf("payments can only be recorded on approved invoices (current status: %s)", invoice.Status)
		}

		outstanding := aggregate.Outstanding(invoice.TotalAmount, invoice.PaidAmount)
		if amount.GreaterThan(outstanding) {
			return fmt.Errorf("payment of %s exceeds outstanding amount %s", amount.StringFixed(2), outstanding.StringFixed(2))
		}

		newPaid := invoice.PaidAmount.Add(amount)
		newOutstanding := aggregate.Outstanding(invoice.TotalAmount, newPaid)

		next := workflow.InvoicePartiallyPaid
		if newOutstanding.IsZero() {
			next = workflow.InvoicePaid
		}

		// A repeat partial payment leaves the status where it is. The engine
		// only arbitrates actual status changes; payments themselves are
		// append-only and unbounded below the outstanding amount.
		var entry *model.StatusHistory
		if string(next) != invoice.Status {
			outcome, err := engine.Attempt(workflow.Input{
				Kind:        workflow.KindInvoice,
				EntityID:    invoice.ID,
				Current:     workflow.Status(invoice.Status),
				Next:        next,
				Caller:      caller,
				RequesterID: invoice.CreatedByID,
				Reason:      fmt.Sprintf("payment of %s recorded", amount.StringFixed(2)),
			})
			if err != nil {
				if d, ok := workflow.AsDenial(err); ok {
					metrics.ObserveTransition(model.KindInvoice, string(d.Reason))
				}
				return err
			}
			metrics.ObserveTransition(model.KindInvoice, "allowed")
			invoice.Status = string(outcome.NewStatus)
			entry = &outcome.Entry
		}

		callerID := caller.ID
		payment := model.Payment{
			InvoiceID:       invoice.ID,
			Amount:          amount,
			PaymentDate:     paymentDate,
			ReferenceNumber: req.ReferenceNumber,
			Notes:           req.Notes,
			RecordedByID:    &callerID,
		}
		if err := s.repo.AppendPayment(txCtx, &payment); err != nil {
			return fmt.Errorf("failed to record payment: %w", err)
		}

		invoice.PaidAmount = newPaid
		invoice.OutstandingAmount = newOutstanding
		if err := s.repo.Update(txCtx, invoice); err != nil {
			return fmt.Errorf("failed to update invoice: %w", err)
		}

		if entry != nil {
			if err := s.history.Append(txCtx, entry); err != nil {
				return fmt.Errorf("failed to write status history: %w", err)
			}
		}

		audit := model.AuditLog{
			UserID:     &callerID,
			Action:     model.ActionRecordPayment,
			EntityID:   invoice.ID.String(),
			EntityName: invoice.InvoiceNo,
			Details:    fmt.Sprintf(`{"amount":"%s","outstanding":"%s"}`, amount.StringFixed(4), newOutstanding.StringFixed(4)),
		}
		return s.audit.Log(txCtx, &audit)
	})
	if err != nil {
		return nil, err
	}

	s.notifier.Dispatch(ctx, TransitionEvent{
		Kind:           model.KindInvoice,
		EntityID:       invoice.ID.String(),
		EntityName:     invoice.InvoiceNo,
		Status:         invoice.Status,
		ChangedBy:      caller.Name,
		TemplateKind:   model.NotifyPaymentRecorded,
		RecipientIDs:   []uuid.UUID{invoice.CreatedByID},
		RecipientRoles: []string{"finance"},
	})

	return s.Get(ctx, id)
}

func (s *invoiceService) transition(ctx context.Context, id string, next workflow.Status, caller workflow.Actor, reason string) (*InvoiceResponse, error) {
	invoiceID, err := uuid.Parse(id)
	if err != nil {
		return nil, fmt.Errorf("invalid invoice id: %w", err)
	}

	resolver, err := s.roles.Resolver(ctx)
	if err != nil {
		return nil, err
	}
	engine := workflow.NewEngine(resolver)

	var invoice *model.Invoice
	err = s.txm.RunInTx(ctx, func(txCtx context.Context) error {
		invoice, err = s.repo.FindByID(txCtx, invoiceID)
		if err != nil {
			return fmt.Errorf("invoice not found: %w", err)
		}

		outcome, err := engine.Attempt(workflow.Input{
			Kind:        workflow.KindInvoice,
			EntityID:    invoice.ID,
			Current:     workflow.Status(invoice.Status),
			Next:        next,
			Caller:      caller,
			RequesterID: invoice.CreatedByID,
			Reason:      reason,
		})
		if err != nil {
			if d, ok := workflow.AsDenial(err); ok {
				metrics.ObserveTransition(model.KindInvoice, string(d.Reason))
			}
			return err
		}
		metrics.ObserveTransition(model.KindInvoice, "allowed")

		invoice.Status = string(outcome.NewStatus)
		if err := s.repo.Update(txCtx, invoice); err != nil {
			return fmt.Errorf("failed to update invoice: %w", err)
		}

		if err := s.history.Append(txCtx, &outcome.Entry); err != nil {
			return fmt.Errorf("failed to write status history: %w", err)
		}

		callerID := caller.ID
		audit := model.AuditLog{
			UserID:     &callerID,
			Action:     model.ActionTransitionInvoice,
			EntityID:   invoice.ID.String(),
			EntityName: invoice.InvoiceNo,
			Details:    fmt.Sprintf(`{"from":"%s","to":"%s"}`, outcome.Entry.PreviousStatus, outcome.Entry.Status),
		}
		return s.audit.Log(txCtx, &audit)
	})
	if err != nil {
		return nil, err
	}

	s.notifier.Dispatch(ctx, TransitionEvent{
		Kind:           model.KindInvoice,
		EntityID:       invoice.ID.String(),
		EntityName:     invoice.InvoiceNo,
		Status:         invoice.Status,
		ChangedBy:      caller.Name,
		TemplateKind:   model.NotifyStatusChanged,
		RecipientIDs:   []uuid.UUID{invoice.CreatedByID},
		RecipientRoles: []string{"finance"},
	})

	return s.Get(ctx, id)
}

// --- Helpers ---

func toInvoiceResponse(inv model.Invoice) InvoiceResponse {
	items := make([]InvoiceItemResponse, 0, len(inv.Items))
	for _, item := range inv.Items {
		items = append(items, InvoiceItemResponse{
			Description: item.Description,
			Quantity:    item.Quantity,
			UnitPrice:   item.UnitPrice.StringFixed(2),
		})
	}

	payments := make([]PaymentResponse, 0, len(inv.Payments))
	for _, p := range inv.Payments {
		payments = append(payments, PaymentResponse{
			ID:              p.ID.String(),
			Amount:          p.Amount.StringFixed(2),
			PaymentDate:     p.PaymentDate.Format(time.RFC3339),
			ReferenceNumber: p.ReferenceNumber,
			Notes:           p.Notes,
		})
	}

	resp := InvoiceResponse{
		ID:                inv.ID.String(),
		InvoiceNo:         inv.InvoiceNo,
		ClientName:        inv.ClientName,
		Status:            inv.Status,
		Items:             items,
		TotalAmount:       inv.TotalAmount.StringFixed(2),
		PaidAmount:        inv.PaidAmount.StringFixed(2),
		OutstandingAmount: inv.OutstandingAmount.StringFixed(2),
		Payments:          payments,
		CreatedByID:       inv.CreatedByID.String(),
		Note:              inv.Note,
		CreatedAt:         inv.CreatedAt.Format(time.RFC3339),
	}
	if inv.CreatedBy != nil {
		resp.CreatedByName = inv.CreatedBy.Username
	}
	return resp
}
