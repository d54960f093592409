package persistence

import (
	"strings"
)

// ValidateSortOrder validates and normalizes the sort order to ASC or DESC.
// Returns "DESC" as the default if the input is invalid or empty.
func ValidateSortOrder(orderDir string) string {
	normalized := strings.ToUpper(strings.TrimSpace(orderDir))
	if normalized == "ASC" {
		return "ASC"
	}
	return "DESC"
}

// ValidateSortField validates the sort field against a whitelist of allowed fields.
// Returns the defaultField if the input is invalid, empty, or not in the whitelist.
func ValidateSortField(sortField string, allowedFields map[string]bool, defaultField string) string {
	trimmed := strings.TrimSpace(sortField)
	if trimmed == "" {
		return defaultField
	}
	if allowedFields[trimmed] {
		return trimmed
	}
	return defaultField
}

// CommonSortFields contains fields common to every table
var CommonSortFields = map[string]bool{
	"id":         true,
	"created_at": true,
	"updated_at": true,
}

// QuoteSortFields contains allowed sort fields for quote listings
var QuoteSortFields = mergeSortFields(CommonSortFields, map[string]bool{
	"quote_no":        true,
	"customer_name":   true,
	"confirmed_at":    true,
	"invoiced_amount": true,
	"paid_amount":     true,
	"payment_status":  true,
	"invoice_status":  true,
})

// mergeSortFields merges multiple sort field maps into one
func mergeSortFields(maps ...map[string]bool) map[string]bool {
	result := make(map[string]bool)
	for _, m := range maps {
		for k, v := range m {
			result[k] = v
		}
	}
	return result
}

// orderClause builds a safe ORDER BY clause from user input
func orderClause(sortField, sortOrder string, allowed map[string]bool, defaultField string) string {
	return ValidateSortField(sortField, allowed, defaultField) + " " + ValidateSortOrder(sortOrder)
}
