// Package handler adapts the quote finance services to gin.
package handler

import (
	"errors"
	"net/http"

	"github.com/erp/quotefinance/internal/domain/shared"
	"github.com/erp/quotefinance/internal/infrastructure/logger"
	"github.com/erp/quotefinance/internal/interfaces/http/dto"
	"github.com/erp/quotefinance/internal/interfaces/http/middleware"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// errBound tells act that the callback has already answered the request
var errBound = errors.New("request already answered")

// BaseHandler provides common handler utilities
type BaseHandler struct{}

// Success sends a success response
func (h *BaseHandler) Success(c *gin.Context, data any) {
	c.JSON(http.StatusOK, dto.NewSuccessResponse(data))
}

// SuccessWithMeta sends a success response with pagination meta
func (h *BaseHandler) SuccessWithMeta(c *gin.Context, data any, total int64, page, pageSize int) {
	c.JSON(http.StatusOK, dto.NewSuccessResponseWithMeta(data, total, page, pageSize))
}

// Created sends a 201 created response
func (h *BaseHandler) Created(c *gin.Context, data any) {
	c.JSON(http.StatusCreated, dto.NewSuccessResponse(data))
}

// Error sends an error response, deriving the status from the code
func (h *BaseHandler) Error(c *gin.Context, code, message string) {
	c.JSON(dto.GetHTTPStatus(code), dto.NewErrorResponse(code, message, middleware.GetRequestID(c)))
}

// BadRequest sends a 400 validation response for malformed path or query values
func (h *BaseHandler) BadRequest(c *gin.Context, message string) {
	h.Error(c, shared.CodeValidation, message)
}

// HandleError converts service errors to HTTP responses. Domain errors keep
// their code; anything else is logged and reported as 500.
func (h *BaseHandler) HandleError(c *gin.Context, err error) {
	if err == nil {
		return
	}

	var domainErr *shared.DomainError
	if errors.As(err, &domainErr) {
		h.Error(c, domainErr.Code, domainErr.Message)
		return
	}

	_ = c.Error(err)
	logger.L(c.Request.Context()).Error("Request failed", zap.Error(err))
	h.Error(c, dto.ErrCodeInternal, "An unexpected error occurred")
}

// bindJSON binds the request body, answering 400 on failure
func (h *BaseHandler) bindJSON(c *gin.Context, req any) bool {
	if err := c.ShouldBindJSON(req); err != nil {
		h.handleBindError(c, err)
		return false
	}
	return true
}

// bindOptionalJSON is bindJSON for requests whose body may be omitted
func (h *BaseHandler) bindOptionalJSON(c *gin.Context, req any) bool {
	if c.Request.ContentLength == 0 {
		return true
	}
	return h.bindJSON(c, req)
}

// pathID parses a UUID path parameter, answering 400 on failure
func (h *BaseHandler) pathID(c *gin.Context, name string) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param(name))
	if err != nil {
		h.BadRequest(c, "Invalid "+name+" format")
		return uuid.Nil, false
	}
	return id, true
}

// actor returns the authenticated caller, answering 401 when absent
func (h *BaseHandler) actor(c *gin.Context) (middleware.Actor, bool) {
	actor, ok := middleware.GetActor(c)
	if !ok {
		h.Error(c, dto.ErrCodeUnauthorized, "Authentication required")
		return middleware.Actor{}, false
	}
	return actor, true
}

func (h *BaseHandler) handleBindError(c *gin.Context, err error) {
	middleware.HandleValidationError(c, err)
}

// act resolves the actor and the UUID path parameter param, runs fn and
// writes its result as 200.
func (h *BaseHandler) act(c *gin.Context, param string, fn func(id uuid.UUID, actor middleware.Actor) (any, error)) {
	actor, ok := h.actor(c)
	if !ok {
		return
	}
	id, ok := h.pathID(c, param)
	if !ok {
		return
	}
	resp, err := fn(id, actor)
	if err != nil {
		if !errors.Is(err, errBound) {
			h.HandleError(c, err)
		}
		return
	}
	h.Success(c, resp)
}
