package payment

import (
	"github.com/erp/quotefinance/internal/domain/shared"
	"github.com/erp/quotefinance/internal/domain/shared/valueobject"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// OverpaymentStrategy is the caller's policy for a confirmation that would
// push the confirmed total past the quote total. The zero value means none.
type OverpaymentStrategy string

const (
	StrategyNone          OverpaymentStrategy = ""
	StrategyReject        OverpaymentStrategy = "REJECT"
	StrategyCreateBalance OverpaymentStrategy = "CREATE_BALANCE"
)

// IsValid checks if the strategy is a recognised value (including none)
func (s OverpaymentStrategy) IsValid() bool {
	switch s {
	case StrategyNone, StrategyReject, StrategyCreateBalance:
		return true
	}
	return false
}

// String returns the string representation of OverpaymentStrategy
func (s OverpaymentStrategy) String() string {
	return string(s)
}

// SourceInfo records how an overpayment was resolved: the strategy, the
// quote created for the residual and the residual itself.
type SourceInfo struct {
	Strategy    OverpaymentStrategy `json:"strategy"`
	ReferenceID uuid.UUID           `json:"reference_id"`
	Balance     decimal.Decimal     `json:"balance"`
}

// Confirmation is the outcome of evaluating a CONFIRM decision
type Confirmation struct {
	TotalPaid  decimal.Decimal
	QuoteTotal decimal.Decimal
	Overpaid   bool
	Balance    decimal.Decimal
}

// EvaluateConfirmation checks a confirmation against the quote total.
// confirmedSum is the total of already confirmed payments on the quote.
func EvaluateConfirmation(confirmedSum, amount, quoteTotal decimal.Decimal, strategy OverpaymentStrategy) (Confirmation, error) {
	if !strategy.IsValid() {
		return Confirmation{}, shared.NewValidationError("invalid overpayment strategy: %s", strategy)
	}

	c := Confirmation{
		TotalPaid:  valueobject.SumMoney(confirmedSum, amount),
		QuoteTotal: valueobject.Round2(quoteTotal),
		Balance:    decimal.Zero,
	}
	if !c.TotalPaid.GreaterThan(c.QuoteTotal) {
		return c, nil
	}

	c.Overpaid = true
	c.Balance = valueobject.SubMoney(c.TotalPaid, c.QuoteTotal)

	switch strategy {
	case StrategyCreateBalance:
		return c, nil
	case StrategyReject:
		return c, shared.NewOverpaymentError("payment overpays the quote by %s, return the payment instead",
			valueobject.FormatMoney(c.Balance))
	default:
		return c, shared.NewOverpaymentError("payment overpays the quote by %s, an overpayment strategy is required",
			valueobject.FormatMoney(c.Balance))
	}
}
