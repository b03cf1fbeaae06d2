package handler

import (
	"net/http"
	"time"

	"backend/internal/middleware"
	"backend/internal/service"
	"backend/pkg/response"

	"github.com/gin-gonic/gin"
)

type StatisticsHandler struct {
	statisticsService service.StatisticsService
}

func NewStatisticsHandler(statisticsService service.StatisticsService) *StatisticsHandler {
	return &StatisticsHandler{statisticsService: statisticsService}
}

func (h *StatisticsHandler) RegisterRoutes(router *gin.RouterGroup, guard *middleware.Guard) {
	stats := router.Group("/api/statistics", guard.Require("statistics:read"))
	{
		stats.GET("/dashboard", h.Dashboard)
		stats.GET("/leaderboard", h.Leaderboard)
	}
}

// Dashboard returns financial and workflow totals for a date range
// @Summary      Dashboard
// @Description  Aggregates invoice totals, USD expense sums, and workflow counts over [from, to)
// @Tags         statistics
// @Security     BearerAuth
// @Produce      json
// @Param        from  query     string  false  "Range start (RFC3339, default: start of current month)"
// @Param        to    query     string  false  "Range end (RFC3339, default: start of next month)"
// @Success      200   {object}  response.Response{data=model.DashboardResponse}
// @Failure      400   {object}  response.Response
// @Router       /api/statistics/dashboard [get]
func (h *StatisticsHandler) Dashboard(c *gin.Context) {
	now := time.Now()
	from := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, now.Location())
	to := from.AddDate(0, 1, 0)

	if q := c.Query("from"); q != "" {
		parsed, err := time.Parse(time.RFC3339, q)
		if err != nil {
			c.JSON(http.StatusBadRequest, response.Error(http.StatusBadRequest, "invalid 'from' date: "+err.Error()))
			return
		}
		from = parsed
	}
	if q := c.Query("to"); q != "" {
		parsed, err := time.Parse(time.RFC3339, q)
		if err != nil {
			c.JSON(http.StatusBadRequest, response.Error(http.StatusBadRequest, "invalid 'to' date: "+err.Error()))
			return
		}
		to = parsed
	}
	if !to.After(from) {
		c.JSON(http.StatusBadRequest, response.Error(http.StatusBadRequest, "'to' must be after 'from'"))
		return
	}

	dashboard, err := h.statisticsService.Dashboard(c.Request.Context(), from, to)
	if err != nil {
		c.JSON(http.StatusInternalServerError, response.Error(http.StatusInternalServerError, err.Error()))
		return
	}

	c.JSON(http.StatusOK, response.Success(http.StatusOK, dashboard))
}

// Leaderboard returns the monthly activity rankings
// @Summary      Leaderboard
// @Description  Ranks top requesters and approvers for the month containing the anchor date
// @Tags         statistics
// @Security     BearerAuth
// @Produce      json
// @Param        month  query     string  false  "Anchor date inside the month (RFC3339, default: now)"
// @Success      200    {object}  response.Response{data=model.LeaderboardResponse}
// @Failure      400    {object}  response.Response
// @Router       /api/statistics/leaderboard [get]
func (h *StatisticsHandler) Leaderboard(c *gin.Context) {
	anchor := time.Now()
	if q := c.Query("month"); q != "" {
		parsed, err := time.Parse(time.RFC3339, q)
		if err != nil {
			c.JSON(http.StatusBadRequest, response.Error(http.StatusBadRequest, "invalid 'month' date: "+err.Error()))
			return
		}
		anchor = parsed
	}

	leaderboard, err := h.statisticsService.Leaderboard(c.Request.Context(), anchor)
	if err != nil {
		c.JSON(http.StatusInternalServerError, response.Error(http.StatusInternalServerError, err.Error()))
		return
	}

	c.JSON(http.StatusOK, response.Success(http.StatusOK, leaderboard))
}
