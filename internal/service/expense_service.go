package service

import (
	"context"
	"fmt"
	"time"

	"backend/internal/aggregate"
	"backend/internal/model"
	"backend/internal/repository"
	"backend/internal/workflow"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// --- DTOs ---

type CreateExpenseDTO struct {
	Category      string `json:"category" binding:"required,oneof=TRAVEL EQUIPMENT SOFTWARE OTHER"`
	Currency      string `json:"currency" binding:"required"`
	Amount        string `json:"amount" binding:"required"`
	Description   string `json:"description"`
	ExpenseDate   string `json:"expense_date"` // RFC3339, defaults to now
	RequisitionID string `json:"requisition_id"`
}

type ExpenseResponse struct {
	ID                 string `json:"id"`
	SubmitterID        string `json:"submitter_id"`
	SubmitterName      string `json:"submitter_name"`
	Category           string `json:"category"`
	Currency           string `json:"currency"`
	ExchangeRate       string `json:"exchange_rate"`
	OriginalAmount     string `json:"original_amount"`
	ConvertedAmountUSD string `json:"converted_amount_usd"`
	Description        string `json:"description"`
	ExpenseDate        string `json:"expense_date"`
	CreatedAt          string `json:"created_at"`
}

// --- Interface ---

type ExpenseService interface {
	Create(ctx context.Context, caller workflow.Actor, req CreateExpenseDTO) (*ExpenseResponse, error)
	Get(ctx context.Context, id string) (*ExpenseResponse, error)
	List(ctx context.Context, category string, page, limit int) ([]ExpenseResponse, int64, error)
}

type expenseService struct {
	db    *gorm.DB
	repo  repository.ExpenseRepository
	audit repository.AuditRepository
}

func NewExpenseService(db *gorm.DB, repo repository.ExpenseRepository, audit repository.AuditRepository) ExpenseService {
	return &expenseService{db: db, repo: repo, audit: audit}
}

// --- Implementation ---

func (s *expenseService) Create(ctx context.Context, caller workflow.Actor, req CreateExpenseDTO) (*ExpenseResponse, error) {
	amount, err := decimal.NewFromString(req.Amount)
	if err != nil {
		return nil, fmt.Errorf("invalid amount '%s': %w", req.Amount, err)
	}
	if !amount.IsPositive() {
		return nil, fmt.Errorf("expense amount must be positive")
	}

	rate, ok := aggregate.IllustrativeRates[req.Currency]
	if !ok {
		return nil, fmt.Errorf("unsupported currency '%s'", req.Currency)
	}

	expenseDate := time.Now()
	if req.ExpenseDate != "" {
		parsed, parseErr := time.Parse(time.RFC3339, req.ExpenseDate)
		if parseErr != nil {
			return nil, fmt.Errorf("invalid expense date: %w", parseErr)
		}
		expenseDate = parsed
	}

	expense := model.Expense{
		SubmitterID:        caller.ID,
		Category:           req.Category,
		Currency:           req.Currency,
		ExchangeRate:       rate,
		OriginalAmount:     amount,
		ConvertedAmountUSD: amount.Mul(rate),
		Description:        req.Description,
		ExpenseDate:        expenseDate,
	}

	if req.RequisitionID != "" {
		requisitionID, parseErr := uuid.Parse(req.RequisitionID)
		if parseErr != nil {
			return nil, fmt.Errorf("invalid requisition id: %w", parseErr)
		}
		expense.RequisitionID = &requisitionID
	}

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		txCtx := repository.WithTx(ctx, tx)
		if err := s.repo.Create(txCtx, &expense); err != nil {
			return fmt.Errorf("failed to create expense: %w", err)
		}

		callerID := caller.ID
		audit := model.AuditLog{
			UserID:     &callerID,
			Action:     model.ActionCreateExpense,
			EntityID:   expense.ID.String(),
			EntityName: expense.Category,
			Details: fmt.Sprintf(`{"amount":"%s","currency":"%s","usd":"%s"}`,
				amount.StringFixed(4), req.Currency, expense.ConvertedAmountUSD.StringFixed(4)),
		}
		return s.audit.Log(txCtx, &audit)
	})
	if err != nil {
		return nil, err
	}

	return s.Get(ctx, expense.ID.String())
}

func (s *expenseService) Get(ctx context.Context, id string) (*ExpenseResponse, error) {
	expenseID, err := uuid.Parse(id)
	if err != nil {
		return nil, fmt.Errorf("invalid expense id: %w", err)
	}

	expense, err := s.repo.FindByID(ctx, expenseID)
	if err != nil {
		return nil, fmt.Errorf("expense not found: %w", err)
	}

	resp := toExpenseResponse(*expense)
	return &resp, nil
}

func (s *expenseService) List(ctx context.Context, category string, page, limit int) ([]ExpenseResponse, int64, error) {
	if page <= 0 {
		page = 1
	}
	if limit <= 0 {
		limit = 20
	}

	expenses, total, err := s.repo.List(ctx, category, page, limit)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to fetch expenses: %w", err)
	}

	out := make([]ExpenseResponse, 0, len(expenses))
	for _, e := range expenses {
		out = append(out, toExpenseResponse(e))
	}
	return out, total, nil
}

// --- Helpers ---

func toExpenseResponse(e model.Expense) ExpenseResponse {
	resp := ExpenseResponse{
		ID:                 e.ID.String(),
		SubmitterID:        e.SubmitterID.String(),
		Category:           e.Category,
		Currency:           e.Currency,
		ExchangeRate:       e.ExchangeRate.String(),
		OriginalAmount:     e.OriginalAmount.StringFixed(2),
		ConvertedAmountUSD: e.ConvertedAmountUSD.StringFixed(2),
		Description:        e.Description,
		ExpenseDate:        e.ExpenseDate.Format(time.RFC3339),
		CreatedAt:          e.CreatedAt.Format(time.RFC3339),
	}
	if e.Submitter != nil {
		resp.SubmitterName = e.Submitter.Username
	}
	return resp
}
