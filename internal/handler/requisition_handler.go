package handler

import (
	"net/http"

	"backend/internal/middleware"
	"backend/internal/service"
	"backend/pkg/pagination"
	"backend/pkg/response"

	"github.com/gin-gonic/gin"
)

type RequisitionHandler struct {
	requisitionService service.RequisitionService
}

func NewRequisitionHandler(requisitionService service.RequisitionService) *RequisitionHandler {
	return &RequisitionHandler{requisitionService: requisitionService}
}

func (h *RequisitionHandler) RegisterRoutes(router *gin.RouterGroup, guard *middleware.Guard) {
	requisitions := router.Group("/api/requisitions")
	{
		requisitions.GET("", guard.Require("requisitions:read"), h.List)
		requisitions.POST("", guard.Require("requisitions:create"), h.Create)
		requisitions.GET("/:id", guard.Require("requisitions:read"), h.Get)
		requisitions.GET("/:id/history", guard.Require("requisitions:read"), h.GetHistory)
		requisitions.POST("/:id/submit", h.Submit)
		requisitions.POST("/:id/approve", guard.Require("requisitions:approve"), h.Approve)
		requisitions.POST("/:id/reject", guard.Require("requisitions:reject"), h.Reject)
		requisitions.POST("/:id/fulfill", guard.Require("requisitions:fulfill"), h.Fulfill)
		requisitions.POST("/:id/cancel", h.Cancel)
		requisitions.POST("/:id/resubmit", h.Resubmit)
	}
}

// Create opens a draft purchase requisition
// @Summary      Create requisition
// @Tags         requisitions
// @Security     BearerAuth
// @Accept       json
// @Produce      json
// @Param        payload  body      service.CreateRequisitionDTO  true  "Create Requisition Payload"
// @Success      201      {object}  response.Response{data=service.RequisitionResponse}
// @Failure      400      {object}  response.Response
// @Router       /api/requisitions [post]
func (h *RequisitionHandler) Create(c *gin.Context) {
	var req service.CreateRequisitionDTO
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, response.Error(http.StatusBadRequest, "Invalid request payload: "+err.Error()))
		return
	}

	requisition, err := h.requisitionService.Create(c.Request.Context(), middleware.CurrentActor(c), req)
	if err != nil {
		c.JSON(http.StatusBadRequest, response.Error(http.StatusBadRequest, err.Error()))
		return
	}

	c.JSON(http.StatusCreated, response.Success(http.StatusCreated, requisition))
}

// List returns a filtered, paginated requisition listing
// @Summary      List requisitions
// @Tags         requisitions
// @Security     BearerAuth
// @Produce      json
// @Param        status        query     string  false  "Filter by status"
// @Param        requester_id  query     string  false  "Filter by requester"
// @Param        page          query     int     false  "Page number (default 1)"
// @Param        limit         query     int     false  "Items per page (default 20)"
// @Success      200           {object}  response.Response{data=object}
// @Failure      500           {object}  response.Response
// @Router       /api/requisitions [get]
func (h *RequisitionHandler) List(c *gin.Context) {
	p := pagination.Parse(c)

	requisitions, total, err := h.requisitionService.List(c.Request.Context(), c.Query("status"), c.Query("requester_id"), p.Page, p.Limit)
	if err != nil {
		c.JSON(http.StatusInternalServerError, response.Error(http.StatusInternalServerError, err.Error()))
		return
	}

	c.JSON(http.StatusOK, response.Success(http.StatusOK, map[string]interface{}{
		"requisitions": requisitions,
		"total":        total,
		"page":         p.Page,
		"limit":        p.Limit,
	}))
}

// Get returns a single requisition
// @Summary      Get requisition
// @Tags         requisitions
// @Security     BearerAuth
// @Produce      json
// @Param        id   path      string  true  "Requisition ID"
// @Success      200  {object}  response.Response{data=service.RequisitionResponse}
// @Failure      404  {object}  response.Response
// @Router       /api/requisitions/{id} [get]
func (h *RequisitionHandler) Get(c *gin.Context) {
	requisition, err := h.requisitionService.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		c.JSON(http.StatusNotFound, response.Error(http.StatusNotFound, err.Error()))
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, requisition))
}

// GetHistory returns the status trail of a requisition
// @Summary      Requisition history
// @Tags         requisitions
// @Security     BearerAuth
// @Produce      json
// @Param        id   path      string  true  "Requisition ID"
// @Success      200  {object}  response.Response{data=[]service.HistoryEntryResponse}
// @Failure      404  {object}  response.Response
// @Router       /api/requisitions/{id}/history [get]
func (h *RequisitionHandler) GetHistory(c *gin.Context) {
	history, err := h.requisitionService.GetHistory(c.Request.Context(), c.Param("id"))
	if err != nil {
		c.JSON(http.StatusNotFound, response.Error(http.StatusNotFound, err.Error()))
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, history))
}

// Submit moves a draft requisition to PENDING
// @Summary      Submit requisition
// @Tags         requisitions
// @Security     BearerAuth
// @Produce      json
// @Param        id   path      string  true  "Requisition ID"
// @Success      200  {object}  response.Response{data=service.RequisitionResponse}
// @Failure      409  {object}  response.Response
// @Router       /api/requisitions/{id}/submit [post]
func (h *RequisitionHandler) Submit(c *gin.Context) {
	requisition, err := h.requisitionService.Submit(c.Request.Context(), c.Param("id"), middleware.CurrentActor(c))
	if err != nil {
		writeTransitionError(c, err)
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, requisition))
}

// Approve moves a pending requisition to APPROVED
// @Summary      Approve requisition
// @Tags         requisitions
// @Security     BearerAuth
// @Produce      json
// @Param        id   path      string  true  "Requisition ID"
// @Success      200  {object}  response.Response{data=service.RequisitionResponse}
// @Failure      403  {object}  response.Response
// @Failure      409  {object}  response.Response
// @Router       /api/requisitions/{id}/approve [post]
func (h *RequisitionHandler) Approve(c *gin.Context) {
	requisition, err := h.requisitionService.Approve(c.Request.Context(), c.Param("id"), middleware.CurrentActor(c))
	if err != nil {
		writeTransitionError(c, err)
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, requisition))
}

// Reject moves a pending requisition to REJECTED
// @Summary      Reject requisition
// @Tags         requisitions
// @Security     BearerAuth
// @Accept       json
// @Produce      json
// @Param        id       path      string                 true  "Requisition ID"
// @Param        payload  body      service.TransitionDTO  true  "Rejection reason"
// @Success      200      {object}  response.Response{data=service.RequisitionResponse}
// @Failure      403      {object}  response.Response
// @Failure      409      {object}  response.Response
// @Router       /api/requisitions/{id}/reject [post]
func (h *RequisitionHandler) Reject(c *gin.Context) {
	var req service.TransitionDTO
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, response.Error(http.StatusBadRequest, "Invalid request payload: "+err.Error()))
		return
	}

	requisition, err := h.requisitionService.Reject(c.Request.Context(), c.Param("id"), middleware.CurrentActor(c), req.Reason)
	if err != nil {
		writeTransitionError(c, err)
		return
	}

	c.JSON(http.StatusOK, response.Success(http.StatusOK, requisition))
}

// Fulfill moves an approved requisition to its terminal FULFILLED state
// @Summary      Fulfill requisition
// @Tags         requisitions
// @Security     BearerAuth
// @Produce      json
// @Param        id   path      string  true  "Requisition ID"
// @Success      200  {object}  response.Response{data=service.RequisitionResponse}
// @Failure      403  {object}  response.Response
// @Failure      409  {object}  response.Response
// @Router       /api/requisitions/{id}/fulfill [post]
func (h *RequisitionHandler) Fulfill(c *gin.Context) {
	requisition, err := h.requisitionService.Fulfill(c.Request.Context(), c.Param("id"), middleware.CurrentActor(c))
	if err != nil {
		writeTransitionError(c, err)
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, requisition))
}

// Cancel moves a requisition to its terminal CANCELLED state
// @Summary      Cancel requisition
// @Tags         requisitions
// @Security     BearerAuth
// @Accept       json
// @Produce      json
// @Param        id       path      string                 true  "Requisition ID"
// @Param        payload  body      service.TransitionDTO  true  "Cancellation reason"
// @Success      200      {object}  response.Response{data=service.RequisitionResponse}
// @Failure      409      {object}  response.Response
// @Router       /api/requisitions/{id}/cancel [post]
func (h *RequisitionHandler) Cancel(c *gin.Context) {
	var req service.TransitionDTO
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, response.Error(http.StatusBadRequest, "Invalid request payload: "+err.Error()))
		return
	}

	requisition, err := h.requisitionService.Cancel(c.Request.Context(), c.Param("id"), middleware.CurrentActor(c), req.Reason)
	if err != nil {
		writeTransitionError(c, err)
		return
	}

	c.JSON(http.StatusOK, response.Success(http.StatusOK, requisition))
}

// Resubmit returns a rejected requisition to PENDING
// @Summary      Resubmit requisition
// @Tags         requisitions
// @Security     BearerAuth
// @Produce      json
// @Param        id   path      string  true  "Requisition ID"
// @Success      200  {object}  response.Response{data=service.RequisitionResponse}
// @Failure      403  {object}  response.Response
// @Failure      409  {object}  response.Response
// @Router       /api/requisitions/{id}/resubmit [post]
func (h *RequisitionHandler) Resubmit(c *gin.Context) {
	requisition, err := h.requisitionService.Resubmit(c.Request.Context(), c.Param("id"), middleware.CurrentActor(c))
	if err != nil {
		writeTransitionError(c, err)
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, requisition))
}
