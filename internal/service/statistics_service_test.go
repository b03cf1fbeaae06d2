package service

import (
	"context"
	"testing"
	"time"

	"backend/internal/model"
	"backend/internal/repository"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubStatsRepo struct {
	totals  repository.InvoiceTotals
	history []model.StatusHistory
}

func (s stubStatsRepo) SumInvoices(context.Context, time.Time, time.Time) (repository.InvoiceTotals, error) {
	return s.totals, nil
}

func (s stubStatsRepo) CountRequestsInStatuses(_ context.Context, statuses []string) (int64, error) {
	if len(statuses) == 1 && statuses[0] == model.RequestApproved {
		return 2, nil
	}
	return 5, nil
}

func (s stubStatsRepo) CountRequisitionsInStatus(context.Context, string) (int64, error) {
	return 3, nil
}

func (s stubStatsRepo) HistoryBetween(context.Context, time.Time, time.Time) ([]model.StatusHistory, error) {
	return s.history, nil
}

type stubExpenseRepo struct {
	expenses []model.Expense
}

func (s stubExpenseRepo) Create(context.Context, *model.Expense) error { return nil }
func (s stubExpenseRepo) FindByID(context.Context, uuid.UUID) (*model.Expense, error) {
	return nil, nil
}
func (s stubExpenseRepo) List(context.Context, string, int, int) ([]model.Expense, int64, error) {
	return nil, 0, nil
}
func (s stubExpenseRepo) ListBetween(context.Context, time.Time, time.Time) ([]model.Expense, error) {
	return s.expenses, nil
}

func TestDashboardTotals(t *testing.T) {
	svc := NewStatisticsService(
		stubStatsRepo{
			totals: repository.InvoiceTotals{
				Invoiced:    decimal.RequireFromString("1000"),
				Paid:        decimal.RequireFromString("400"),
				Outstanding: decimal.RequireFromString("600"),
			},
		},
		stubExpenseRepo{expenses: []model.Expense{
			{Category: model.ExpenseCategoryTravel, ConvertedAmountUSD: decimal.RequireFromString("120.50")},
			{Category: model.ExpenseCategoryTravel, ConvertedAmountUSD: decimal.RequireFromString("79.50")},
			{Category: model.ExpenseCategorySoftware, ConvertedAmountUSD: decimal.RequireFromString("300")},
		}},
	)

	from := time.Date(2026, time.August, 1, 0, 0, 0, 0, time.UTC)
	to := from.AddDate(0, 1, 0)
	dash, err := svc.Dashboard(context.Background(), from, to)
	require.NoError(t, err)

	assert.InDelta(t, 1000, dash.TotalInvoiced, 0.001)
	assert.InDelta(t, 400, dash.TotalPaid, 0.001)
	assert.InDelta(t, 600, dash.TotalOutstanding, 0.001)
	assert.InDelta(t, 500, dash.TotalExpensesUSD, 0.001)
	assert.InDelta(t, 200, dash.ExpensesByCategoryUSD[model.ExpenseCategoryTravel], 0.001)
	assert.InDelta(t, 300, dash.ExpensesByCategoryUSD[model.ExpenseCategorySoftware], 0.001)
	assert.InDelta(t, 0, dash.ExpensesByCategoryUSD[model.ExpenseCategoryEquipment], 0.001)
	assert.Equal(t, 5, dash.OpenRequests)
	assert.Equal(t, 2, dash.ApprovedRequests)
	assert.Equal(t, 3, dash.PendingRequisitions)
	assert.Equal(t, from, dash.TimeRangeStartDate)
	assert.Equal(t, to, dash.TimeRangeEndDate)
}

func TestLeaderboardRanking(t *testing.T) {
	alice := uuid.New()
	bob := uuid.New()
	carol := uuid.New()
	anchor := time.Date(2026, time.August, 15, 12, 0, 0, 0, time.UTC)

	at := func(day int) time.Time {
		return time.Date(2026, time.August, day, 10, 0, 0, 0, time.UTC)
	}

	history := []model.StatusHistory{
		// Creation entries (no previous status) count toward requesters.
		{EntityKind: model.KindRequest, Status: model.RequestPending, ChangedByID: alice, ChangedByName: "alice", ChangedAt: at(1)},
		{EntityKind: model.KindRequest, Status: model.RequestPending, ChangedByID: alice, ChangedByName: "alice", ChangedAt: at(2)},
		{EntityKind: model.KindRequisition, Status: model.RequisitionDraft, ChangedByID: bob, ChangedByName: "bob", ChangedAt: at(3)},
		// Approvals count toward approvers.
		{EntityKind: model.KindRequest, Status: model.RequestApproved, PreviousStatus: model.RequestInReview, ChangedByID: carol, ChangedByName: "carol", ChangedAt: at(4)},
		{EntityKind: model.KindInvoice, Status: model.InvoiceApproved, PreviousStatus: model.InvoicePending, ChangedByID: carol, ChangedByName: "carol", ChangedAt: at(5)},
		{EntityKind: model.KindRequisition, Status: model.RequisitionApproved, PreviousStatus: model.RequisitionPending, ChangedByID: bob, ChangedByName: "bob", ChangedAt: at(6)},
		// Non-approval transition, counts toward neither.
		{EntityKind: model.KindRequest, Status: model.RequestRejected, PreviousStatus: model.RequestInReview, ChangedByID: carol, ChangedByName: "carol", ChangedAt: at(7)},
	}

	svc := NewStatisticsService(stubStatsRepo{history: history}, stubExpenseRepo{})

	board, err := svc.Leaderboard(context.Background(), anchor)
	require.NoError(t, err)

	assert.Equal(t, time.Date(2026, time.August, 1, 0, 0, 0, 0, time.UTC), board.Month)

	require.Len(t, board.TopRequesters, 2)
	assert.Equal(t, "alice", board.TopRequesters[0].Username)
	assert.Equal(t, 2, board.TopRequesters[0].Count)
	assert.Equal(t, "bob", board.TopRequesters[1].Username)

	require.Len(t, board.TopApprovers, 2)
	assert.Equal(t, "carol", board.TopApprovers[0].Username)
	assert.Equal(t, 2, board.TopApprovers[0].Count)
	assert.Equal(t, "bob", board.TopApprovers[1].Username)
	assert.Equal(t, 1, board.TopApprovers[1].Count)
}

func TestLeaderboardTruncatesToTopFive(t *testing.T) {
	history := make([]model.StatusHistory, 0, 7)
	for i := 0; i < 7; i++ {
		history = append(history, model.StatusHistory{
			EntityKind:    model.KindRequest,
			Status:        model.RequestPending,
			ChangedByID:   uuid.New(),
			ChangedByName: "user",
			ChangedAt:     time.Date(2026, time.August, i+1, 0, 0, 0, 0, time.UTC),
		})
	}

	svc := NewStatisticsService(stubStatsRepo{history: history}, stubExpenseRepo{})

	board, err := svc.Leaderboard(context.Background(), time.Date(2026, time.August, 10, 0, 0, 0, 0, time.UTC))
	require.NoError(t, err)
	assert.Len(t, board.TopRequesters, 5)
}
