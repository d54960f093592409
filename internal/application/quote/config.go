package quote

import (
	"context"
	"fmt"

	"github.com/erp/quotefinance/internal/domain/shared"
	"github.com/erp/quotefinance/internal/domain/shared/valueobject"
)

// Config holds the business settings shared by the quote finance services
type Config struct {
	// QuoteNoPrefix starts every quote number, e.g. "BJ" in BJ250301001.
	QuoteNoPrefix string
	// DefaultCurrency applies to quotes created without a currency.
	DefaultCurrency valueobject.Currency
	// BalanceUnit is the unit of the single line on a balance quote.
	BalanceUnit string
	// CapSubmissionToUnpaid rejects non-privileged submissions above the
	// quote's unpaid amount. Off by default so that overpayments reach
	// finance and can be settled with an overpayment strategy.
	CapSubmissionToUnpaid bool
}

// DefaultConfig returns the settings used when none are configured
func DefaultConfig() Config {
	return Config{
		QuoteNoPrefix:   "QT",
		DefaultCurrency: valueobject.DefaultCurrency,
		BalanceUnit:     "item",
	}
}

func (c Config) withDefaults() Config {
	d := DefaultConfig()
	if c.QuoteNoPrefix == "" {
		c.QuoteNoPrefix = d.QuoteNoPrefix
	}
	if c.DefaultCurrency == "" {
		c.DefaultCurrency = d.DefaultCurrency
	}
	if c.BalanceUnit == "" {
		c.BalanceUnit = d.BalanceUnit
	}
	return c
}

const (
	sequenceScopeQuote     = "quote"
	sequenceScopeStatement = "statement"
)

// nextQuoteNo formats <prefix><yyMMdd><NNN>. The counter is per prefix and day.
func nextQuoteNo(ctx context.Context, seq shared.NumberSequence, prefix string) (string, error) {
	now := shared.Now()
	n, err := seq.Next(ctx, sequenceScopeQuote+":"+prefix, now)
	if err != nil {
		return "", fmt.Errorf("failed to allocate quote number: %w", err)
	}
	return fmt.Sprintf("%s%s%03d", prefix, now.Format("060102"), n), nil
}

// nextStatementNo formats ST-<yyyyMMdd>-<NNN>
func nextStatementNo(ctx context.Context, seq shared.NumberSequence) (string, error) {
	now := shared.Now()
	n, err := seq.Next(ctx, sequenceScopeStatement, now)
	if err != nil {
		return "", fmt.Errorf("failed to allocate statement number: %w", err)
	}
	return fmt.Sprintf("ST-%s-%03d", now.Format("20060102"), n), nil
}
