package handler

import (
	quoteapp "github.com/erp/quotefinance/internal/application/quote"
	"github.com/erp/quotefinance/internal/interfaces/http/middleware"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// InvoiceHandler serves invoice applications
type InvoiceHandler struct {
	BaseHandler
	invoices *quoteapp.InvoiceService
}

// NewInvoiceHandler creates a new InvoiceHandler
func NewInvoiceHandler(invoices *quoteapp.InvoiceService) *InvoiceHandler {
	return &InvoiceHandler{invoices: invoices}
}

// Create applies for invoices over lines of one or more quotes
// POST /invoice-applications
func (h *InvoiceHandler) Create(c *gin.Context) {
	actor, ok := h.actor(c)
	if !ok {
		return
	}
	var req quoteapp.CreateInvoiceApplicationRequest
	if !h.bindJSON(c, &req) {
		return
	}
	resp, err := h.invoices.Create(c.Request.Context(), actor.ID, req)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Created(c, resp)
}

// Get returns one invoice application
// GET /invoice-applications/:id
func (h *InvoiceHandler) Get(c *gin.Context) {
	id, ok := h.pathID(c, "id")
	if !ok {
		return
	}
	resp, err := h.invoices.Get(c.Request.Context(), id)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, resp)
}

// Audit approves or rejects a pending application
// POST /invoice-applications/:id/audit
func (h *InvoiceHandler) Audit(c *gin.Context) {
	h.act(c, "id", func(id uuid.UUID, actor middleware.Actor) (any, error) {
		var req quoteapp.AuditInvoiceApplicationRequest
		if !h.bindJSON(c, &req) {
			return nil, errBound
		}
		return h.invoices.Audit(c.Request.Context(), id, actor.ID, req)
	})
}

// CancelPending cancels every pending application touching a quote
// POST /quotes/:id/invoice-applications/cancel
func (h *InvoiceHandler) CancelPending(c *gin.Context) {
	h.act(c, "id", func(id uuid.UUID, _ middleware.Actor) (any, error) {
		n, err := h.invoices.CancelPending(c.Request.Context(), id)
		if err != nil {
			return nil, err
		}
		return gin.H{"cancelled": n}, nil
	})
}

// ListMine lists the applications filed by the calling collector
// GET /invoice-applications/mine
func (h *InvoiceHandler) ListMine(c *gin.Context) {
	actor, ok := h.actor(c)
	if !ok {
		return
	}
	resp, err := h.invoices.ListByCollector(c.Request.Context(), actor.ID)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, resp)
}
