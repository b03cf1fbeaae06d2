package model

import (
	"time"
)

// DashboardResponse aggregates financial and workflow totals for a time range
type DashboardResponse struct {
	TotalInvoiced    float64 `json:"total_invoiced"`
	TotalPaid        float64 `json:"total_paid"`
	TotalOutstanding float64 `json:"total_outstanding"`
	TotalExpensesUSD float64 `json:"total_expenses_usd"`

	ExpensesByCategoryUSD map[string]float64 `json:"expenses_by_category_usd"`

	OpenRequests        int `json:"open_requests"`
	ApprovedRequests    int `json:"approved_requests"`
	PendingRequisitions int `json:"pending_requisitions"`

	TimeRangeStartDate time.Time `json:"time_range_start_date"`
	TimeRangeEndDate   time.Time `json:"time_range_end_date"`
}

// LeaderboardEntry represents a ranked user based on accumulated workflow activity
type LeaderboardEntry struct {
	UserID   string `json:"user_id"`
	Username string `json:"username"`
	Count    int    `json:"count"`
}

// LeaderboardResponse holds the monthly activity rankings
type LeaderboardResponse struct {
	Month         time.Time          `json:"month"`
	TopRequesters []LeaderboardEntry `json:"top_requesters"`
	TopApprovers  []LeaderboardEntry `json:"top_approvers"`
}
