package quote

import (
	"strings"

	"github.com/erp/quotefinance/internal/domain/shared"
	"github.com/erp/quotefinance/internal/domain/shared/valueobject"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// BalanceFeeType is the fee type of the single line seeded on a balance quote.
const BalanceFeeType = "BALANCE"

// QuoteItem is a priced line of a quote
type QuoteItem struct {
	shared.BaseEntity
	QuoteID     uuid.UUID
	LineNo      int
	FeeType     string
	Description string
	Spec        string
	Unit        string
	Quantity    decimal.Decimal
	UnitPrice   decimal.Decimal
	Amount      decimal.Decimal
}

// ItemInput carries the caller-supplied fields of a new line
type ItemInput struct {
	FeeType     string
	Description string
	Spec        string
	Unit        string
	Quantity    decimal.Decimal
	UnitPrice   decimal.Decimal
}

// NewQuoteItem validates the input and prices the line at MoneyScale.
func NewQuoteItem(quoteID uuid.UUID, lineNo int, in ItemInput) (*QuoteItem, error) {
	feeType := strings.TrimSpace(in.FeeType)
	if feeType == "" {
		return nil, shared.NewValidationError("fee type is required")
	}
	if !in.Quantity.IsPositive() {
		return nil, shared.NewValidationError("quantity must be positive")
	}
	if in.UnitPrice.IsNegative() {
		return nil, shared.NewValidationError("unit price cannot be negative")
	}

	return &QuoteItem{
		BaseEntity:  shared.NewBaseEntity(),
		QuoteID:     quoteID,
		LineNo:      lineNo,
		FeeType:     feeType,
		Description: strings.TrimSpace(in.Description),
		Spec:        strings.TrimSpace(in.Spec),
		Unit:        strings.TrimSpace(in.Unit),
		Quantity:    in.Quantity,
		UnitPrice:   valueobject.Round2(in.UnitPrice),
		Amount:      valueobject.Round2(in.Quantity.Mul(in.UnitPrice)),
	}, nil
}
