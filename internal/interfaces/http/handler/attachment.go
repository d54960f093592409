package handler

import (
	"context"
	"errors"
	"time"

	"github.com/erp/quotefinance/internal/infrastructure/storage"
	"github.com/gin-gonic/gin"
)

// AttachmentLinker issues short-lived links to payment and void attachments
type AttachmentLinker interface {
	UploadURL(ctx context.Context, key, contentType string) (string, time.Time, error)
	DownloadURL(ctx context.Context, key string) (string, time.Time, error)
}

// AttachmentHandler hands out presigned attachment links. The stored
// attachment lists on payments and void applications hold the keys.
type AttachmentHandler struct {
	BaseHandler
	linker AttachmentLinker
}

// NewAttachmentHandler creates a new AttachmentHandler
func NewAttachmentHandler(linker AttachmentLinker) *AttachmentHandler {
	return &AttachmentHandler{linker: linker}
}

type uploadLinkRequest struct {
	Kind        string `json:"kind" binding:"required,oneof=payments voids"`
	Filename    string `json:"filename" binding:"required,max=200"`
	ContentType string `json:"content_type" binding:"max=100"`
}

type downloadLinkQuery struct {
	Key string `form:"key" binding:"required,max=300"`
}

// AttachmentLinkResponse is a presigned link and the key it points at
type AttachmentLinkResponse struct {
	Key       string    `json:"key"`
	URL       string    `json:"url"`
	ExpiresAt time.Time `json:"expires_at"`
}

// UploadLink allocates a key and returns a presigned PUT link for it
// POST /attachments/upload-link
func (h *AttachmentHandler) UploadLink(c *gin.Context) {
	var req uploadLinkRequest
	if !h.bindJSON(c, &req) {
		return
	}
	key, err := storage.NewKey(req.Kind, req.Filename)
	if err != nil {
		h.BadRequest(c, err.Error())
		return
	}
	contentType := req.ContentType
	if contentType == "" {
		contentType = "application/octet-stream"
	}
	url, expiresAt, err := h.linker.UploadURL(c.Request.Context(), key, contentType)
	if err != nil {
		h.linkError(c, err)
		return
	}
	h.Success(c, AttachmentLinkResponse{Key: key, URL: url, ExpiresAt: expiresAt})
}

// DownloadLink returns a presigned GET link for a stored attachment key
// GET /attachments/download-link?key=
func (h *AttachmentHandler) DownloadLink(c *gin.Context) {
	var query downloadLinkQuery
	if err := c.ShouldBindQuery(&query); err != nil {
		h.handleBindError(c, err)
		return
	}
	url, expiresAt, err := h.linker.DownloadURL(c.Request.Context(), query.Key)
	if err != nil {
		h.linkError(c, err)
		return
	}
	h.Success(c, AttachmentLinkResponse{Key: query.Key, URL: url, ExpiresAt: expiresAt})
}

func (h *AttachmentHandler) linkError(c *gin.Context, err error) {
	if errors.Is(err, storage.ErrInvalidKey) {
		h.BadRequest(c, "Invalid attachment key")
		return
	}
	h.HandleError(c, err)
}
