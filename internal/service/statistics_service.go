package service

import (
	"context"
	"fmt"
	"sort"
	"time"

	"backend/internal/aggregate"
	"backend/internal/model"
	"backend/internal/repository"

	"github.com/google/uuid"
)

const leaderboardSize = 5

// --- Interface ---

type StatisticsService interface {
	// Dashboard aggregates financial and workflow totals over [from, to).
	Dashboard(ctx context.Context, from, to time.Time) (*model.DashboardResponse, error)
	// Leaderboard ranks users by workflow activity for the month containing anchor.
	Leaderboard(ctx context.Context, anchor time.Time) (*model.LeaderboardResponse, error)
}

type statisticsService struct {
	stats    repository.StatisticsRepository
	expenses repository.ExpenseRepository
}

func NewStatisticsService(stats repository.StatisticsRepository, expenses repository.ExpenseRepository) StatisticsService {
	return &statisticsService{stats: stats, expenses: expenses}
}

// --- Implementation ---

func (s *statisticsService) Dashboard(ctx context.Context, from, to time.Time) (*model.DashboardResponse, error) {
	totals, err := s.stats.SumInvoices(ctx, from, to)
	if err != nil {
		return nil, fmt.Errorf("failed to sum invoices: %w", err)
	}

	openRequests, err := s.stats.CountRequestsInStatuses(ctx, []string{
		model.RequestPending, model.RequestAssigned, model.RequestInReview, model.RequestNeedsRevision,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to count open requests: %w", err)
	}

	approvedRequests, err := s.stats.CountRequestsInStatuses(ctx, []string{model.RequestApproved})
	if err != nil {
		return nil, fmt.Errorf("failed to count approved requests: %w", err)
	}

	pendingRequisitions, err := s.stats.CountRequisitionsInStatus(ctx, model.RequisitionPending)
	if err != nil {
		return nil, fmt.Errorf("failed to count pending requisitions: %w", err)
	}

	expenses, err := s.expenses.ListBetween(ctx, from, to)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch expenses: %w", err)
	}

	// Expenses were converted to USD at entry time, so they sum without a
	// second rate lookup.
	entries := make([]aggregate.Entry, 0, len(expenses))
	for _, e := range expenses {
		entries = append(entries, aggregate.Entry{
			Type:     e.Category,
			Currency: "USD",
			Amount:   e.ConvertedAmountUSD,
		})
	}

	byCategory := make(map[string]float64, 4)
	totalExpenses := 0.0
	for _, category := range []string{
		model.ExpenseCategoryTravel, model.ExpenseCategoryEquipment,
		model.ExpenseCategorySoftware, model.ExpenseCategoryOther,
	} {
		sum := aggregate.SumByType(entries, category, aggregate.IllustrativeRates).InexactFloat64()
		byCategory[category] = sum
		totalExpenses += sum
	}

	return &model.DashboardResponse{
		TotalInvoiced:         totals.Invoiced.InexactFloat64(),
		TotalPaid:             totals.Paid.InexactFloat64(),
		TotalOutstanding:      totals.Outstanding.InexactFloat64(),
		TotalExpensesUSD:      totalExpenses,
		ExpensesByCategoryUSD: byCategory,
		OpenRequests:          int(openRequests),
		ApprovedRequests:      int(approvedRequests),
		PendingRequisitions:   int(pendingRequisitions),
		TimeRangeStartDate:    from,
		TimeRangeEndDate:      to,
	}, nil
}

func (s *statisticsService) Leaderboard(ctx context.Context, anchor time.Time) (*model.LeaderboardResponse, error) {
	monthStart, monthEnd := aggregate.MonthRange(anchor)

	entries, err := s.stats.HistoryBetween(ctx, monthStart, monthEnd)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch status history: %w", err)
	}

	monthly := aggregate.BucketByMonth(entries, func(e model.StatusHistory) time.Time {
		return e.ChangedAt
	}, monthStart, monthEnd)

	// Creation entries carry no previous status.
	requesters := rank(monthly, func(e model.StatusHistory) bool {
		return e.PreviousStatus == ""
	})
	approvers := rank(monthly, func(e model.StatusHistory) bool {
		return e.Status == model.RequestApproved ||
			e.Status == model.RequisitionApproved ||
			e.Status == model.InvoiceApproved
	})

	return &model.LeaderboardResponse{
		Month:         monthStart,
		TopRequesters: requesters,
		TopApprovers:  approvers,
	}, nil
}

// --- Helpers ---

func rank(entries []model.StatusHistory, match func(model.StatusHistory) bool) []model.LeaderboardEntry {
	counts := make(map[uuid.UUID]*model.LeaderboardEntry)
	for _, e := range entries {
		if !match(e) {
			continue
		}
		if existing, ok := counts[e.ChangedByID]; ok {
			existing.Count++
			continue
		}
		counts[e.ChangedByID] = &model.LeaderboardEntry{
			UserID:   e.ChangedByID.String(),
			Username: e.ChangedByName,
			Count:    1,
		}
	}

	out := make([]model.LeaderboardEntry, 0, len(counts))
	for _, entry := range counts {
		out = append(out, *entry)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Count != out[j].Count {
			return out[i].Count > out[j].Count
		}
		return out[i].UserID < out[j].UserID
	})
	if len(out) > leaderboardSize {
		out = out[:leaderboardSize]
	}
	return out
}
