package router

import (
	"github.com/erp/quotefinance/internal/interfaces/http/handler"
	"github.com/erp/quotefinance/internal/interfaces/http/middleware"
)

// Handlers are the endpoints of the quote finance API. Attachments may be
// nil when object storage is disabled.
type Handlers struct {
	Quotes      *handler.QuoteHandler
	Payments    *handler.PaymentHandler
	Invoices    *handler.InvoiceHandler
	Statements  *handler.StatementHandler
	Voids       *handler.VoidHandler
	Attachments *handler.AttachmentHandler
}

// QuoteFinanceGroups builds the route groups. Finance decisions (payment
// confirmation, audits, direct void, reconciliation) require a privileged
// actor.
func QuoteFinanceGroups(h Handlers) []*DomainGroup {
	finance := middleware.RequirePrivileged()

	quotes := NewDomainGroup("quotes", "/quotes").
		POST("", h.Quotes.Create).
		GET("", h.Quotes.List).
		GET("/:id", h.Quotes.Get).
		PUT("/:id", h.Quotes.UpdateHeader).
		POST("/:id/items", h.Quotes.AddItem).
		DELETE("/:id/items/:item_id", h.Quotes.RemoveItem).
		POST("/:id/confirm", h.Quotes.Confirm).
		POST("/:id/cancel", h.Quotes.Cancel).
		PUT("/:id/collector", h.Quotes.ChangeCollector).
		GET("/:id/history", h.Quotes.History).
		GET("/:id/unpaid", h.Quotes.Unpaid).
		POST("/:id/payments", h.Payments.Submit).
		GET("/:id/payments", h.Payments.ListByQuote).
		POST("/:id/invoice-applications/cancel", finance, h.Invoices.CancelPending).
		POST("/:id/void-applications", h.Voids.Apply).
		GET("/:id/void-applications", h.Voids.ListByQuote).
		POST("/:id/void", finance, h.Voids.DirectVoid)

	payments := NewDomainGroup("payments", "/payments").
		POST("/batch", h.Payments.CreateBatch).
		GET("/batches/:batch_no", h.Payments.ListByBatch).
		GET("/:id", h.Payments.Get).
		POST("/:id/confirm", finance, h.Payments.Confirm)

	invoices := NewDomainGroup("invoices", "/invoice-applications").
		POST("", h.Invoices.Create).
		GET("/mine", h.Invoices.ListMine).
		GET("/:id", h.Invoices.Get).
		POST("/:id/audit", finance, h.Invoices.Audit)

	statements := NewDomainGroup("statements", "/statements").
		POST("", h.Statements.Generate).
		GET("", h.Statements.List).
		GET("/:id", h.Statements.Get).
		DELETE("/:id/items/:quote_id", h.Statements.RemoveItem).
		POST("/:id/bind", finance, h.Statements.BindPayments)

	voids := NewDomainGroup("voids", "/void-applications").
		POST("/:id/audit", finance, h.Voids.Audit)

	groups := []*DomainGroup{quotes, payments, invoices, statements, voids}
	if h.Attachments != nil {
		groups = append(groups, NewDomainGroup("attachments", "/attachments").
			POST("/upload-link", h.Attachments.UploadLink).
			GET("/download-link", h.Attachments.DownloadLink))
	}
	return groups
}
