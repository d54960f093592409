package handler

import (
	quoteapp "github.com/erp/quotefinance/internal/application/quote"
	"github.com/erp/quotefinance/internal/interfaces/http/middleware"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// VoidHandler serves the void and freeze workflow
type VoidHandler struct {
	BaseHandler
	voids *quoteapp.VoidService
}

// NewVoidHandler creates a new VoidHandler
func NewVoidHandler(voids *quoteapp.VoidService) *VoidHandler {
	return &VoidHandler{voids: voids}
}

// Apply files a void application, freezing the quote
// POST /quotes/:id/void-applications
func (h *VoidHandler) Apply(c *gin.Context) {
	actor, ok := h.actor(c)
	if !ok {
		return
	}
	quoteID, ok := h.pathID(c, "id")
	if !ok {
		return
	}
	var req quoteapp.ApplyVoidRequest
	if !h.bindJSON(c, &req) {
		return
	}
	resp, err := h.voids.Apply(c.Request.Context(), quoteID, actor.ID, req)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Created(c, resp)
}

// ListByQuote lists the void applications of a quote
// GET /quotes/:id/void-applications
func (h *VoidHandler) ListByQuote(c *gin.Context) {
	quoteID, ok := h.pathID(c, "id")
	if !ok {
		return
	}
	resp, err := h.voids.ListByQuote(c.Request.Context(), quoteID)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, resp)
}

// Audit passes or rejects a void application, unfreezing the quote
// POST /void-applications/:id/audit
func (h *VoidHandler) Audit(c *gin.Context) {
	h.act(c, "id", func(id uuid.UUID, actor middleware.Actor) (any, error) {
		var req quoteapp.AuditVoidRequest
		if !h.bindJSON(c, &req) {
			return nil, errBound
		}
		return h.voids.Audit(c.Request.Context(), id, actor.ID, req)
	})
}

// DirectVoid voids a quote without an application
// POST /quotes/:id/void
func (h *VoidHandler) DirectVoid(c *gin.Context) {
	h.act(c, "id", func(id uuid.UUID, actor middleware.Actor) (any, error) {
		var req quoteapp.DirectVoidRequest
		if !h.bindOptionalJSON(c, &req) {
			return nil, errBound
		}
		return h.voids.DirectVoid(c.Request.Context(), id, actor.ID, req)
	})
}
