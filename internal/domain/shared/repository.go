package shared

import (
	"context"
	"time"
)

// NumberSequence issues the next value of a named daily counter
type NumberSequence interface {
	// Next returns the next value (starting at 1) for the scope on the given day.
	Next(ctx context.Context, scope string, day time.Time) (int64, error)
}

// Filter represents query filter options
type Filter struct {
	Page     int
	PageSize int
	OrderBy  string
	OrderDir string
	Search   string
	Filters  map[string]interface{}
}

// Offset returns the row offset for the filter's page
func (f Filter) Offset() int {
	if f.Page < 1 {
		return 0
	}
	return (f.Page - 1) * f.PageSize
}
