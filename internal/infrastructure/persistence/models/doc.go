// Package models contains GORM-specific persistence models that map to database tables.
// These models are separate from domain entities to keep the domain layer pure and free
// from ORM concerns.
//
// Structure:
// - base.go: shared columns (id, timestamps, optimistic version)
// - quote.go: quotes, quote items, void applications, workflow history, number sequences
// - payment.go: quote payments
// - invoice.go: invoice applications with their records and item references
// - statement.go: account statements and their items
package models

// All returns every persisted model in dependency order. The SQL migrations
// under migrations/ are authoritative in production; All backs AutoMigrate
// for tests and local development.
func All() []any {
	return []any{
		&QuoteModel{},
		&QuoteItemModel{},
		&VoidApplicationModel{},
		&WorkflowHistoryModel{},
		&NumberSequenceModel{},
		&PaymentModel{},
		&InvoiceApplicationModel{},
		&InvoiceRecordModel{},
		&InvoiceItemRefModel{},
		&AccountStatementModel{},
		&AccountStatementItemModel{},
	}
}
