package payment

import (
	"testing"

	"github.com/erp/quotefinance/internal/domain/shared"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEvaluateConfirmation(t *testing.T) {
	d := decimal.RequireFromString

	tests := []struct {
		name      string
		confirmed string
		amount    string
		total     string
		strategy  OverpaymentStrategy
		wantErr   error
		overpaid  bool
		balance   string
	}{
		{"exact payment needs no strategy", "0", "500", "500", StrategyNone, nil, false, "0"},
		{"partial", "100", "200", "500", StrategyNone, nil, false, "0"},
		{"overpay without strategy", "0", "1200", "1000", StrategyNone, shared.ErrOverpayment, true, "200"},
		{"overpay rejected", "0", "1200", "1000", StrategyReject, shared.ErrOverpayment, true, "200"},
		{"overpay creates balance", "0", "1200", "1000", StrategyCreateBalance, nil, true, "200"},
		{"second payment tips over", "900", "100.01", "1000", StrategyCreateBalance, nil, true, "0.01"},
		{"unknown strategy", "0", "10", "1000", OverpaymentStrategy("IGNORE"), shared.ErrValidation, false, "0"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c, err := EvaluateConfirmation(d(tt.confirmed), d(tt.amount), d(tt.total), tt.strategy)
			if tt.wantErr != nil {
				require.Error(t, err)
				assert.ErrorIs(t, err, tt.wantErr)
			} else {
				require.NoError(t, err)
			}
			assert.Equal(t, tt.overpaid, c.Overpaid)
			assert.True(t, d(tt.balance).Equal(c.Balance), "balance %s", c.Balance)
		})
	}
}
