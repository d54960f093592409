package handler

import (
	quoteapp "github.com/erp/quotefinance/internal/application/quote"
	"github.com/erp/quotefinance/internal/interfaces/http/middleware"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// QuoteHandler serves the quote lifecycle endpoints
type QuoteHandler struct {
	BaseHandler
	quotes   *quoteapp.QuoteService
	payments *quoteapp.PaymentService
}

// NewQuoteHandler creates a new QuoteHandler
func NewQuoteHandler(quotes *quoteapp.QuoteService, payments *quoteapp.PaymentService) *QuoteHandler {
	return &QuoteHandler{quotes: quotes, payments: payments}
}

// listQuotesQuery keeps ids as strings so malformed values fail validation
// instead of binding.
type listQuotesQuery struct {
	Search        string `form:"search"`
	CustomerID    string `form:"customer_id" binding:"omitempty,uuid"`
	CollectorID   string `form:"collector_id" binding:"omitempty,uuid"`
	Status        string `form:"status" binding:"omitempty,oneof=DRAFT CONFIRMED CANCELLED"`
	PaymentStatus string `form:"payment_status" binding:"omitempty,oneof=UNPAID PARTIAL PAID"`
	InvoiceStatus string `form:"invoice_status" binding:"omitempty,oneof=UNINVOICED IN_PROCESS PARTIAL FULLY_INVOICED"`
	Page          int    `form:"page" binding:"omitempty,min=1"`
	PageSize      int    `form:"page_size" binding:"omitempty,min=1,max=100"`
	OrderBy       string `form:"order_by"`
	OrderDir      string `form:"order_dir" binding:"omitempty,oneof=asc desc"`
}

func (q listQuotesQuery) toFilter() quoteapp.QuoteListFilter {
	filter := quoteapp.QuoteListFilter{
		Search:        q.Search,
		Status:        q.Status,
		PaymentStatus: q.PaymentStatus,
		InvoiceStatus: q.InvoiceStatus,
		Page:          q.Page,
		PageSize:      q.PageSize,
		OrderBy:       q.OrderBy,
		OrderDir:      q.OrderDir,
	}
	if filter.Page == 0 {
		filter.Page = 1
	}
	if filter.PageSize == 0 {
		filter.PageSize = 20
	}
	if id, err := uuid.Parse(q.CustomerID); err == nil {
		filter.CustomerID = &id
	}
	if id, err := uuid.Parse(q.CollectorID); err == nil {
		filter.CollectorID = &id
	}
	return filter
}

// Create creates a draft quote
// POST /quotes
func (h *QuoteHandler) Create(c *gin.Context) {
	actor, ok := h.actor(c)
	if !ok {
		return
	}
	var req quoteapp.CreateQuoteRequest
	if !h.bindJSON(c, &req) {
		return
	}
	resp, err := h.quotes.CreateDraft(c.Request.Context(), actor.ID, req)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Created(c, resp)
}

// Get returns one quote with its items
// GET /quotes/:id
func (h *QuoteHandler) Get(c *gin.Context) {
	id, ok := h.pathID(c, "id")
	if !ok {
		return
	}
	resp, err := h.quotes.Get(c.Request.Context(), id)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, resp)
}

// List returns a filtered page of quotes
// GET /quotes
func (h *QuoteHandler) List(c *gin.Context) {
	var query listQuotesQuery
	if err := c.ShouldBindQuery(&query); err != nil {
		h.handleBindError(c, err)
		return
	}
	filter := query.toFilter()
	quotes, total, err := h.quotes.List(c.Request.Context(), filter)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.SuccessWithMeta(c, quotes, total, filter.Page, filter.PageSize)
}

// UpdateHeader edits header fields of a draft quote
// PUT /quotes/:id
func (h *QuoteHandler) UpdateHeader(c *gin.Context) {
	h.act(c, "id", func(id uuid.UUID, actor middleware.Actor) (any, error) {
		var req quoteapp.UpdateQuoteHeaderRequest
		if !h.bindJSON(c, &req) {
			return nil, errBound
		}
		return h.quotes.UpdateHeader(c.Request.Context(), id, actor.ID, req)
	})
}

// AddItem appends a line to a draft quote
// POST /quotes/:id/items
func (h *QuoteHandler) AddItem(c *gin.Context) {
	h.act(c, "id", func(id uuid.UUID, actor middleware.Actor) (any, error) {
		var req quoteapp.CreateQuoteItemInput
		if !h.bindJSON(c, &req) {
			return nil, errBound
		}
		return h.quotes.AddItem(c.Request.Context(), id, actor.ID, req)
	})
}

// RemoveItem deletes a line from a draft quote
// DELETE /quotes/:id/items/:item_id
func (h *QuoteHandler) RemoveItem(c *gin.Context) {
	h.act(c, "id", func(id uuid.UUID, actor middleware.Actor) (any, error) {
		itemID, ok := h.pathID(c, "item_id")
		if !ok {
			return nil, errBound
		}
		return h.quotes.RemoveItem(c.Request.Context(), id, itemID, actor.ID)
	})
}

// Confirm moves a draft quote to CONFIRMED
// POST /quotes/:id/confirm
func (h *QuoteHandler) Confirm(c *gin.Context) {
	h.act(c, "id", func(id uuid.UUID, actor middleware.Actor) (any, error) {
		return h.quotes.Confirm(c.Request.Context(), id, actor.ID)
	})
}

// Cancel cancels a quote and its unconfirmed payments and pending invoice applications
// POST /quotes/:id/cancel
func (h *QuoteHandler) Cancel(c *gin.Context) {
	h.act(c, "id", func(id uuid.UUID, actor middleware.Actor) (any, error) {
		var req quoteapp.CancelQuoteRequest
		if !h.bindOptionalJSON(c, &req) {
			return nil, errBound
		}
		return h.quotes.Cancel(c.Request.Context(), id, actor.ID, req.Reason)
	})
}

// ChangeCollector reassigns payment collection
// PUT /quotes/:id/collector
func (h *QuoteHandler) ChangeCollector(c *gin.Context) {
	h.act(c, "id", func(id uuid.UUID, actor middleware.Actor) (any, error) {
		var req quoteapp.ChangeCollectorRequest
		if !h.bindJSON(c, &req) {
			return nil, errBound
		}
		return h.quotes.ChangeCollector(c.Request.Context(), id, actor.ID, req.CollectorID)
	})
}

// History lists the workflow history of a quote
// GET /quotes/:id/history
func (h *QuoteHandler) History(c *gin.Context) {
	id, ok := h.pathID(c, "id")
	if !ok {
		return
	}
	resp, err := h.quotes.History(c.Request.Context(), id)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, resp)
}

// Unpaid reports the outstanding amount of a quote
// GET /quotes/:id/unpaid
func (h *QuoteHandler) Unpaid(c *gin.Context) {
	id, ok := h.pathID(c, "id")
	if !ok {
		return
	}
	resp, err := h.payments.GetUnpaidAmount(c.Request.Context(), id)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, resp)
}
