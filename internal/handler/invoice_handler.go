package handler

import (
	"net/http"

	"backend/internal/middleware"
	"backend/internal/service"
	"backend/internal/workflow"
	"backend/pkg/pagination"
	"backend/pkg/response"

	"github.com/gin-gonic/gin"
)

type InvoiceHandler struct {
	invoiceService service.InvoiceService
}

func NewInvoiceHandler(invoiceService service.InvoiceService) *InvoiceHandler {
	return &InvoiceHandler{invoiceService: invoiceService}
}

func (h *InvoiceHandler) RegisterRoutes(router *gin.RouterGroup, guard *middleware.Guard) {
	invoices := router.Group("/api/invoices")
	{
		invoices.GET("", guard.Require("invoices:read"), h.List)
		invoices.POST("", guard.Require("invoices:create"), h.Create)
		invoices.GET("/:id", guard.Require("invoices:read"), h.Get)
		invoices.GET("/:id/history", guard.Require("invoices:read"), h.GetHistory)
		invoices.POST("/:id/submit", h.Submit)
		invoices.POST("/:id/approve", guard.Require("invoices:approve"), h.Approve)
		invoices.POST("/:id/reject", guard.Require("invoices:reject"), h.Reject)
		invoices.POST("/:id/cancel", guard.Require("invoices:cancel"), h.Cancel)
		invoices.POST("/:id/resubmit", h.Resubmit)
		invoices.POST("/:id/payments", guard.Require("invoices:record_payment"), h.RecordPayment)
	}
}

// Create opens a draft invoice
// @Summary      Create invoice
// @Tags         invoices
// @Security     BearerAuth
// @Accept       json
// @Produce      json
// @Param        payload  body      service.CreateInvoiceDTO  true  "Create Invoice Payload"
// @Success      201      {object}  response.Response{data=service.InvoiceResponse}
// @Failure      400      {object}  response.Response
// @Router       /api/invoices [post]
func (h *InvoiceHandler) Create(c *gin.Context) {
	var req service.CreateInvoiceDTO
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, response.Error(http.StatusBadRequest, "Invalid request payload: "+err.Error()))
		return
	}

	invoice, err := h.invoiceService.Create(c.Request.Context(), middleware.CurrentActor(c), req)
	if err != nil {
		c.JSON(http.StatusBadRequest, response.Error(http.StatusBadRequest, err.Error()))
		return
	}

	c.JSON(http.StatusCreated, response.Success(http.StatusCreated, invoice))
}

// List returns a filtered, paginated invoice listing
// @Summary      List invoices
// @Tags         invoices
// @Security     BearerAuth
// @Produce      json
// @Param        status  query     string  false  "Filter by status"
// @Param        page    query     int     false  "Page number (default 1)"
// @Param        limit   query     int     false  "Items per page (default 20)"
// @Success      200     {object}  response.Response{data=object}
// @Failure      500     {object}  response.Response
// @Router       /api/invoices [get]
func (h *InvoiceHandler) List(c *gin.Context) {
	p := pagination.Parse(c)

	invoices, total, err := h.invoiceService.List(c.Request.Context(), c.Query("status"), p.Page, p.Limit)
	if err != nil {
		c.JSON(http.StatusInternalServerError, response.Error(http.StatusInternalServerError, err.Error()))
		return
	}

	c.JSON(http.StatusOK, response.Success(http.StatusOK, map[string]interface{}{
		"invoices": invoices,
		"total":    total,
		"page":     p.Page,
		"limit":    p.Limit,
	}))
}

// Get returns a single invoice with its payments
// @Summary      Get invoice
// @Tags         invoices
// @Security     BearerAuth
// @Produce      json
// @Param        id   path      string  true  "Invoice ID"
// @Success      200  {object}  response.Response{data=service.InvoiceResponse}
// @Failure      404  {object}  response.Response
// @Router       /api/invoices/{id} [get]
func (h *InvoiceHandler) Get(c *gin.Context) {
	invoice, err := h.invoiceService.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		c.JSON(http.StatusNotFound, response.Error(http.StatusNotFound, err.Error()))
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, invoice))
}

// GetHistory returns the status trail of an invoice
// @Summary      Invoice history
// @Tags         invoices
// @Security     BearerAuth
// @Produce      json
// @Param        id   path      string  true  "Invoice ID"
// @Success      200  {object}  response.Response{data=[]service.HistoryEntryResponse}
// @Failure      404  {object}  response.Response
// @Router       /api/invoices/{id}/history [get]
func (h *InvoiceHandler) GetHistory(c *gin.Context) {
	history, err := h.invoiceService.GetHistory(c.Request.Context(), c.Param("id"))
	if err != nil {
		c.JSON(http.StatusNotFound, response.Error(http.StatusNotFound, err.Error()))
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, history))
}

// Submit moves a draft invoice to PENDING
// @Summary      Submit invoice
// @Tags         invoices
// @Security     BearerAuth
// @Produce      json
// @Param        id   path      string  true  "Invoice ID"
// @Success      200  {object}  response.Response{data=service.InvoiceResponse}
// @Failure      409  {object}  response.Response
// @Router       /api/invoices/{id}/submit [post]
func (h *InvoiceHandler) Submit(c *gin.Context) {
	invoice, err := h.invoiceService.Submit(c.Request.Context(), c.Param("id"), middleware.CurrentActor(c))
	if err != nil {
		writeTransitionError(c, err)
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, invoice))
}

// Approve moves a pending invoice to APPROVED
// @Summary      Approve invoice
// @Tags         invoices
// @Security     BearerAuth
// @Produce      json
// @Param        id   path      string  true  "Invoice ID"
// @Success      200  {object}  response.Response{data=service.InvoiceResponse}
// @Failure      403  {object}  response.Response
// @Failure      409  {object}  response.Response
// @Router       /api/invoices/{id}/approve [post]
func (h *InvoiceHandler) Approve(c *gin.Context) {
	invoice, err := h.invoiceService.Approve(c.Request.Context(), c.Param("id"), middleware.CurrentActor(c))
	if err != nil {
		writeTransitionError(c, err)
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, invoice))
}

// Reject moves a pending invoice to REJECTED
// @Summary      Reject invoice
// @Tags         invoices
// @Security     BearerAuth
// @Accept       json
// @Produce      json
// @Param        id       path      string                 true  "Invoice ID"
// @Param        payload  body      service.TransitionDTO  true  "Rejection reason"
// @Success      200      {object}  response.Response{data=service.InvoiceResponse}
// @Failure      403      {object}  response.Response
// @Failure      409      {object}  response.Response
// @Router       /api/invoices/{id}/reject [post]
func (h *InvoiceHandler) Reject(c *gin.Context) {
	var req service.TransitionDTO
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, response.Error(http.StatusBadRequest, "Invalid request payload: "+err.Error()))
		return
	}

	invoice, err := h.invoiceService.Reject(c.Request.Context(), c.Param("id"), middleware.CurrentActor(c), req.Reason)
	if err != nil {
		writeTransitionError(c, err)
		return
	}

	c.JSON(http.StatusOK, response.Success(http.StatusOK, invoice))
}

// Cancel moves an invoice to its terminal CANCELLED state
// @Summary      Cancel invoice
// @Tags         invoices
// @Security     BearerAuth
// @Accept       json
// @Produce      json
// @Param        id       path      string                 true  "Invoice ID"
// @Param        payload  body      service.TransitionDTO  true  "Cancellation reason"
// @Success      200      {object}  response.Response{data=service.InvoiceResponse}
// @Failure      403      {object}  response.Response
// @Failure      409      {object}  response.Response
// @Router       /api/invoices/{id}/cancel [post]
func (h *InvoiceHandler) Cancel(c *gin.Context) {
	var req service.TransitionDTO
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, response.Error(http.StatusBadRequest, "Invalid request payload: "+err.Error()))
		return
	}

	invoice, err := h.invoiceService.Cancel(c.Request.Context(), c.Param("id"), middleware.CurrentActor(c), req.Reason)
	if err != nil {
		writeTransitionError(c, err)
		return
	}

	c.JSON(http.StatusOK, response.Success(http.StatusOK, invoice))
}

// Resubmit returns a rejected invoice to PENDING
// @Summary      Resubmit invoice
// @Tags         invoices
// @Security     BearerAuth
// @Produce      json
// @Param        id   path      string  true  "Invoice ID"
// @Success      200  {object}  response.Response{data=service.InvoiceResponse}
// @Failure      403  {object}  response.Response
// @Failure      409  {object}  response.Response
// @Router       /api/invoices/{id}/resubmit [post]
func (h *InvoiceHandler) Resubmit(c *gin.Context) {
	invoice, err := h.invoiceService.Resubmit(c.Request.Context(), c.Param("id"), middleware.CurrentActor(c))
	if err != nil {
		writeTransitionError(c, err)
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, invoice))
}

// RecordPayment records a payment against an approved invoice
// @Summary      Record payment
// @Description  Appends a payment, recomputes the outstanding amount, and derives PARTIALLY_PAID or PAID
// @Tags         invoices
// @Security     BearerAuth
// @Accept       json
// @Produce      json
// @Param        id       path      string                    true  "Invoice ID"
// @Param        payload  body      service.RecordPaymentDTO  true  "Payment Payload"
// @Success      200      {object}  response.Response{data=service.InvoiceResponse}
// @Failure      400      {object}  response.Response
// @Failure      403      {object}  response.Response
// @Failure      409      {object}  response.Response
// @Router       /api/invoices/{id}/payments [post]
func (h *InvoiceHandler) RecordPayment(c *gin.Context) {
	var req service.RecordPaymentDTO
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, response.Error(http.StatusBadRequest, "Invalid request payload: "+err.Error()))
		return
	}

	invoice, err := h.invoiceService.RecordPayment(c.Request.Context(), c.Param("id"), middleware.CurrentActor(c), req)
	if err != nil {
		// Over-payment and wrong-state refusals are client errors, not
		// transition denials.
		if _, ok := workflow.AsDenial(err); ok {
			writeTransitionError(c, err)
		} else {
			c.JSON(http.StatusBadRequest, response.Error(http.StatusBadRequest, err.Error()))
		}
		return
	}

	c.JSON(http.StatusOK, response.Success(http.StatusOK, invoice))
}
