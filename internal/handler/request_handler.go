package handler

import (
	"net/http"

	"backend/internal/middleware"
	"backend/internal/service"
	"backend/pkg/pagination"
	"backend/pkg/response"

	"github.com/gin-gonic/gin"
)

type RequestHandler struct {
	requestService service.RequestService
}

func NewRequestHandler(requestService service.RequestService) *RequestHandler {
	return &RequestHandler{requestService: requestService}
}

func (h *RequestHandler) RegisterRoutes(router *gin.RouterGroup, guard *middleware.Guard) {
	requests := router.Group("/api/requests")
	{
		requests.GET("", guard.Require("requests:read"), h.ListRequests)
		requests.POST("", guard.Require("requests:create"), h.CreateRequest)
		requests.GET("/:id", guard.Require("requests:read"), h.GetRequest)
		requests.GET("/:id/history", guard.Require("requests:read"), h.GetHistory)
		requests.POST("/:id/assign", guard.Require("requests:assign"), h.Assign)
		requests.POST("/:id/review", guard.Require("requests:review"), h.StartReview)
		requests.POST("/:id/revision", guard.Require("requests:review"), h.RequestRevision)
		requests.POST("/:id/approve", guard.Require("requests:approve"), h.Approve)
		requests.POST("/:id/reject", guard.Require("requests:reject"), h.Reject)
		// No permission gate: the engine limits resubmission to the requester.
		requests.POST("/:id/resubmit", h.Resubmit)
	}
}

// CreateRequest submits a new certificate request
// @Summary      Create request
// @Tags         requests
// @Security     BearerAuth
// @Accept       json
// @Produce      json
// @Param        payload  body      service.CreateRequestDTO  true  "Create Request Payload"
// @Success      201      {object}  response.Response{data=service.RequestResponse}
// @Failure      400      {object}  response.Response
// @Router       /api/requests [post]
func (h *RequestHandler) CreateRequest(c *gin.Context) {
	var req service.CreateRequestDTO
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, response.Error(http.StatusBadRequest, "Invalid request payload: "+err.Error()))
		return
	}

	created, err := h.requestService.CreateRequest(c.Request.Context(), middleware.CurrentActor(c), req)
	if err != nil {
		c.JSON(http.StatusInternalServerError, response.Error(http.StatusInternalServerError, err.Error()))
		return
	}

	c.JSON(http.StatusCreated, response.Success(http.StatusCreated, created))
}

// ListRequests returns a filtered, paginated request listing
// @Summary      List requests
// @Tags         requests
// @Security     BearerAuth
// @Produce      json
// @Param        status        query     string  false  "Filter by status"
// @Param        requester_id  query     string  false  "Filter by requester"
// @Param        assignee_id   query     string  false  "Filter by assignee"
// @Param        page          query     int     false  "Page number (default 1)"
// @Param        limit         query     int     false  "Items per page (default 20)"
// @Success      200           {object}  response.Response{data=object}
// @Failure      500           {object}  response.Response
// @Router       /api/requests [get]
func (h *RequestHandler) ListRequests(c *gin.Context) {
	p := pagination.Parse(c)
	filter := service.RequestFilterDTO{
		Status:      c.Query("status"),
		RequesterID: c.Query("requester_id"),
		AssigneeID:  c.Query("assignee_id"),
		Page:        p.Page,
		Limit:       p.Limit,
	}

	requests, total, err := h.requestService.ListRequests(c.Request.Context(), filter)
	if err != nil {
		c.JSON(http.StatusInternalServerError, response.Error(http.StatusInternalServerError, err.Error()))
		return
	}

	c.JSON(http.StatusOK, response.Success(http.StatusOK, map[string]interface{}{
		"requests": requests,
		"total":    total,
		"page":     p.Page,
		"limit":    p.Limit,
	}))
}

// GetRequest returns a single request
// @Summary      Get request
// @Tags         requests
// @Security     BearerAuth
// @Produce      json
// @Param        id   path      string  true  "Request ID"
// @Success      200  {object}  response.Response{data=service.RequestResponse}
// @Failure      404  {object}  response.Response
// @Router       /api/requests/{id} [get]
func (h *RequestHandler) GetRequest(c *gin.Context) {
	request, err := h.requestService.GetRequest(c.Request.Context(), c.Param("id"))
	if err != nil {
		c.JSON(http.StatusNotFound, response.Error(http.StatusNotFound, err.Error()))
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, request))
}

// GetHistory returns the full status trail of a request
// @Summary      Request history
// @Tags         requests
// @Security     BearerAuth
// @Produce      json
// @Param        id   path      string  true  "Request ID"
// @Success      200  {object}  response.Response{data=[]service.HistoryEntryResponse}
// @Failure      404  {object}  response.Response
// @Router       /api/requests/{id}/history [get]
func (h *RequestHandler) GetHistory(c *gin.Context) {
	history, err := h.requestService.GetHistory(c.Request.Context(), c.Param("id"))
	if err != nil {
		c.JSON(http.StatusNotFound, response.Error(http.StatusNotFound, err.Error()))
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, history))
}

// Assign moves a request to ASSIGNED with a reviewer
// @Summary      Assign request
// @Tags         requests
// @Security     BearerAuth
// @Accept       json
// @Produce      json
// @Param        id       path      string                    true  "Request ID"
// @Param        payload  body      service.AssignRequestDTO  true  "Assignee"
// @Success      200      {object}  response.Response{data=service.RequestResponse}
// @Failure      403      {object}  response.Response
// @Failure      409      {object}  response.Response
// @Router       /api/requests/{id}/assign [post]
func (h *RequestHandler) Assign(c *gin.Context) {
	var req service.AssignRequestDTO
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, response.Error(http.StatusBadRequest, "Invalid request payload: "+err.Error()))
		return
	}

	request, err := h.requestService.Assign(c.Request.Context(), c.Param("id"), middleware.CurrentActor(c), req)
	if err != nil {
		writeTransitionError(c, err)
		return
	}

	c.JSON(http.StatusOK, response.Success(http.StatusOK, request))
}

// StartReview moves a request to IN_REVIEW
// @Summary      Start review
// @Tags         requests
// @Security     BearerAuth
// @Produce      json
// @Param        id   path      string  true  "Request ID"
// @Success      200  {object}  response.Response{data=service.RequestResponse}
// @Failure      403  {object}  response.Response
// @Failure      409  {object}  response.Response
// @Router       /api/requests/{id}/review [post]
func (h *RequestHandler) StartReview(c *gin.Context) {
	request, err := h.requestService.StartReview(c.Request.Context(), c.Param("id"), middleware.CurrentActor(c))
	if err != nil {
		writeTransitionError(c, err)
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, request))
}

// RequestRevision moves a request to NEEDS_REVISION
// @Summary      Request revision
// @Tags         requests
// @Security     BearerAuth
// @Accept       json
// @Produce      json
// @Param        id       path      string                 true  "Request ID"
// @Param        payload  body      service.TransitionDTO  true  "Revision reason"
// @Success      200      {object}  response.Response{data=service.RequestResponse}
// @Failure      403      {object}  response.Response
// @Failure      409      {object}  response.Response
// @Router       /api/requests/{id}/revision [post]
func (h *RequestHandler) RequestRevision(c *gin.Context) {
	var req service.TransitionDTO
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, response.Error(http.StatusBadRequest, "Invalid request payload: "+err.Error()))
		return
	}

	request, err := h.requestService.RequestRevision(c.Request.Context(), c.Param("id"), middleware.CurrentActor(c), req.Reason)
	if err != nil {
		writeTransitionError(c, err)
		return
	}

	c.JSON(http.StatusOK, response.Success(http.StatusOK, request))
}

// Approve moves a request to its terminal APPROVED state
// @Summary      Approve request
// @Tags         requests
// @Security     BearerAuth
// @Produce      json
// @Param        id   path      string  true  "Request ID"
// @Success      200  {object}  response.Response{data=service.RequestResponse}
// @Failure      403  {object}  response.Response
// @Failure      409  {object}  response.Response
// @Router       /api/requests/{id}/approve [post]
func (h *RequestHandler) Approve(c *gin.Context) {
	request, err := h.requestService.Approve(c.Request.Context(), c.Param("id"), middleware.CurrentActor(c))
	if err != nil {
		writeTransitionError(c, err)
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, request))
}

// Reject moves a request to REJECTED
// @Summary      Reject request
// @Tags         requests
// @Security     BearerAuth
// @Accept       json
// @Produce      json
// @Param        id       path      string                 true  "Request ID"
// @Param        payload  body      service.TransitionDTO  true  "Rejection reason"
// @Success      200      {object}  response.Response{data=service.RequestResponse}
// @Failure      403      {object}  response.Response
// @Failure      409      {object}  response.Response
// @Router       /api/requests/{id}/reject [post]
func (h *RequestHandler) Reject(c *gin.Context) {
	var req service.TransitionDTO
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, response.Error(http.StatusBadRequest, "Invalid request payload: "+err.Error()))
		return
	}

	request, err := h.requestService.Reject(c.Request.Context(), c.Param("id"), middleware.CurrentActor(c), req.Reason)
	if err != nil {
		writeTransitionError(c, err)
		return
	}

	c.JSON(http.StatusOK, response.Success(http.StatusOK, request))
}

// Resubmit returns a rejected request to PENDING
// @Summary      Resubmit request
// @Tags         requests
// @Security     BearerAuth
// @Produce      json
// @Param        id   path      string  true  "Request ID"
// @Success      200  {object}  response.Response{data=service.RequestResponse}
// @Failure      403  {object}  response.Response
// @Failure      409  {object}  response.Response
// @Router       /api/requests/{id}/resubmit [post]
func (h *RequestHandler) Resubmit(c *gin.Context) {
	request, err := h.requestService.Resubmit(c.Request.Context(), c.Param("id"), middleware.CurrentActor(c))
	if err != nil {
		writeTransitionError(c, err)
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, request))
}
