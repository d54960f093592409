package handler

import (
	quoteapp "github.com/erp/quotefinance/internal/application/quote"
	"github.com/erp/quotefinance/internal/interfaces/http/middleware"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// StatementHandler serves account statements and their reconciliation
type StatementHandler struct {
	BaseHandler
	statements *quoteapp.StatementService
}

// NewStatementHandler creates a new StatementHandler
func NewStatementHandler(statements *quoteapp.StatementService) *StatementHandler {
	return &StatementHandler{statements: statements}
}

// Generate batches confirmed quotes of one customer into a statement
// POST /statements
func (h *StatementHandler) Generate(c *gin.Context) {
	actor, ok := h.actor(c)
	if !ok {
		return
	}
	var req quoteapp.GenerateStatementRequest
	if !h.bindJSON(c, &req) {
		return
	}
	resp, err := h.statements.Generate(c.Request.Context(), actor.ID, req)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Created(c, resp)
}

// Get returns one statement
// GET /statements/:id
func (h *StatementHandler) Get(c *gin.Context) {
	id, ok := h.pathID(c, "id")
	if !ok {
		return
	}
	resp, err := h.statements.Get(c.Request.Context(), id)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, resp)
}

// RemoveItem drops a quote from a pending statement
// DELETE /statements/:id/items/:quote_id
func (h *StatementHandler) RemoveItem(c *gin.Context) {
	h.act(c, "id", func(id uuid.UUID, actor middleware.Actor) (any, error) {
		quoteID, ok := h.pathID(c, "quote_id")
		if !ok {
			return nil, errBound
		}
		return h.statements.RemoveItem(c.Request.Context(), id, quoteID, actor.ID)
	})
}

// BindPayments reconciles a statement against payments summing to its total
// POST /statements/:id/bind
func (h *StatementHandler) BindPayments(c *gin.Context) {
	h.act(c, "id", func(id uuid.UUID, actor middleware.Actor) (any, error) {
		var req quoteapp.BindPaymentsRequest
		if !h.bindJSON(c, &req) {
			return nil, errBound
		}
		return h.statements.BindPayments(c.Request.Context(), id, actor.ID, req)
	})
}

type listStatementsQuery struct {
	CustomerID string `form:"customer_id" binding:"omitempty,uuid"`
	Status     string `form:"status" binding:"omitempty,oneof=PENDING RECONCILED"`
}

// List returns statements filtered by customer and status
// GET /statements
func (h *StatementHandler) List(c *gin.Context) {
	var query listStatementsQuery
	if err := c.ShouldBindQuery(&query); err != nil {
		h.handleBindError(c, err)
		return
	}
	filter := quoteapp.StatementListFilter{Status: query.Status}
	if id, err := uuid.Parse(query.CustomerID); err == nil {
		filter.CustomerID = &id
	}
	resp, err := h.statements.List(c.Request.Context(), filter)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, resp)
}
