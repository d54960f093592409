package quote

import (
	"context"
	"strings"

	"github.com/erp/quotefinance/internal/domain/quote"
	"github.com/erp/quotefinance/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// ItemValidator checks quote lines against the fee-type dictionary before
// confirmation. It may rewrite an item's unit in lenient mode.
type ItemValidator interface {
	Validate(ctx context.Context, q *quote.Quote) error
}

// Notification is a message addressed to one user
type Notification struct {
	UserID uuid.UUID `json:"user_id"`
	Title  string    `json:"title"`
	Body   string    `json:"body"`
	Link   string    `json:"link,omitempty"`
}

// Notifier delivers notifications. Delivery runs after commit and never
// affects the outcome of the operation that caused it.
type Notifier interface {
	Notify(ctx context.Context, n Notification) error
}

// BalanceQuoteFactory creates the DRAFT quote that carries an overpayment
// residual. It runs inside the caller's transaction.
type BalanceQuoteFactory interface {
	CreateBalanceQuote(ctx context.Context, repos TransactionalRepositories, source *quote.Quote, amount decimal.Decimal, actorID uuid.UUID) (*quote.Quote, error)
}

// FeeTypeRule lists the units accepted for one fee type. An empty Units
// list accepts any unit.
type FeeTypeRule struct {
	DefaultUnit string
	Units       []string
}

func (r FeeTypeRule) allows(unit string) bool {
	if len(r.Units) == 0 {
		return true
	}
	for _, u := range r.Units {
		if strings.EqualFold(u, unit) {
			return true
		}
	}
	return false
}

// FeeTypeCatalog is the default ItemValidator, fed from configuration.
//
// In lenient mode a unit outside the allowed set is replaced by the fee
// type's default unit and a warning is logged. In strict mode the same
// line fails confirmation with a validation error.
type FeeTypeCatalog struct {
	rules  map[string]FeeTypeRule
	strict bool
	logger *zap.Logger
}

// NewFeeTypeCatalog creates a FeeTypeCatalog. A nil or empty rules map
// accepts every fee type.
func NewFeeTypeCatalog(rules map[string]FeeTypeRule, strict bool, logger *zap.Logger) *FeeTypeCatalog {
	normalized := make(map[string]FeeTypeRule, len(rules))
	for feeType, rule := range rules {
		normalized[strings.ToUpper(strings.TrimSpace(feeType))] = rule
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &FeeTypeCatalog{rules: normalized, strict: strict, logger: logger}
}

// Strict reports whether unit mismatches are rejected
func (c *FeeTypeCatalog) Strict() bool {
	return c.strict
}

// Validate implements ItemValidator
func (c *FeeTypeCatalog) Validate(ctx context.Context, q *quote.Quote) error {
	if len(c.rules) == 0 {
		return nil
	}
	for i := range q.Items {
		item := &q.Items[i]
		feeType := strings.ToUpper(item.FeeType)
		if feeType == quote.BalanceFeeType {
			continue
		}
		rule, ok := c.rules[feeType]
		if !ok {
			return shared.NewValidationError("line %d of quote %s has unknown fee type %s", item.LineNo, q.QuoteNo, item.FeeType)
		}
		if rule.allows(item.Unit) {
			continue
		}
		if c.strict || rule.DefaultUnit == "" {
			return shared.NewValidationError("line %d of quote %s: unit %q is not allowed for fee type %s",
				item.LineNo, q.QuoteNo, item.Unit, item.FeeType)
		}
		c.logger.Warn("quote item unit corrected to dictionary default",
			zap.String("quote_no", q.QuoteNo),
			zap.Int("line_no", item.LineNo),
			zap.String("fee_type", item.FeeType),
			zap.String("unit", item.Unit),
			zap.String("default_unit", rule.DefaultUnit),
		)
		item.Unit = rule.DefaultUnit
	}
	return nil
}

// Ensure FeeTypeCatalog implements ItemValidator
var _ ItemValidator = (*FeeTypeCatalog)(nil)
