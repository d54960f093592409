package handler

import (
	quoteapp "github.com/erp/quotefinance/internal/application/quote"
	"github.com/erp/quotefinance/internal/interfaces/http/middleware"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// PaymentHandler serves payment submission and finance confirmation
type PaymentHandler struct {
	BaseHandler
	payments *quoteapp.PaymentService
}

// NewPaymentHandler creates a new PaymentHandler
func NewPaymentHandler(payments *quoteapp.PaymentService) *PaymentHandler {
	return &PaymentHandler{payments: payments}
}

// Submit records a payment against a confirmed quote. Privileged callers
// get it confirmed in the same request.
// POST /quotes/:id/payments
func (h *PaymentHandler) Submit(c *gin.Context) {
	actor, ok := h.actor(c)
	if !ok {
		return
	}
	quoteID, ok := h.pathID(c, "id")
	if !ok {
		return
	}
	var req quoteapp.SubmitPaymentRequest
	if !h.bindJSON(c, &req) {
		return
	}
	resp, err := h.payments.Submit(c.Request.Context(), quoteID, actor.ID, actor.Privileged, req)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Created(c, resp)
}

// ListByQuote lists the payments of a quote
// GET /quotes/:id/payments
func (h *PaymentHandler) ListByQuote(c *gin.Context) {
	quoteID, ok := h.pathID(c, "id")
	if !ok {
		return
	}
	resp, err := h.payments.ListByQuote(c.Request.Context(), quoteID)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, resp)
}

// Get returns one payment
// GET /payments/:id
func (h *PaymentHandler) Get(c *gin.Context) {
	id, ok := h.pathID(c, "id")
	if !ok {
		return
	}
	resp, err := h.payments.Get(c.Request.Context(), id)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, resp)
}

// Confirm applies finance's decision to a submitted payment
// POST /payments/:id/confirm
func (h *PaymentHandler) Confirm(c *gin.Context) {
	h.act(c, "id", func(id uuid.UUID, actor middleware.Actor) (any, error) {
		var req quoteapp.ConfirmPaymentRequest
		if !h.bindJSON(c, &req) {
			return nil, errBound
		}
		return h.payments.FinanceConfirm(c.Request.Context(), id, actor.ID, req)
	})
}

// CreateBatch submits one payment per quote for a batch whose total matches
// the quotes' unpaid sum
// POST /payments/batch
func (h *PaymentHandler) CreateBatch(c *gin.Context) {
	actor, ok := h.actor(c)
	if !ok {
		return
	}
	var req quoteapp.CreateBatchPaymentRequest
	if !h.bindJSON(c, &req) {
		return
	}
	resp, err := h.payments.CreateBatch(c.Request.Context(), actor.ID, req)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Created(c, resp)
}

// ListByBatch lists the payments sharing a batch number
// GET /payments/batches/:batch_no
func (h *PaymentHandler) ListByBatch(c *gin.Context) {
	resp, err := h.payments.ListByBatch(c.Request.Context(), c.Param("batch_no"))
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, resp)
}
