package statement

import (
	"testing"

	"github.com/erp/quotefinance/internal/domain/shared"
	"github.com/erp/quotefinance/internal/domain/shared/valueobject"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func snapshots() []ItemSnapshot {
	return []ItemSnapshot{
		{QuoteID: uuid.New(), QuoteNo: "BJ250301001", Total: decimal.NewFromInt(100), Unpaid: decimal.NewFromInt(100)},
		{QuoteID: uuid.New(), QuoteNo: "BJ250301002", Total: decimal.NewFromInt(80), Unpaid: decimal.NewFromInt(50)},
	}
}

func newTestStatement(t *testing.T) *AccountStatement {
	s, err := NewAccountStatement("ST-20250301-001", uuid.New(), "Acme", valueobject.CNY, uuid.New(), snapshots())
	require.NoError(t, err)
	return s
}

func TestNewAccountStatement(t *testing.T) {
	t.Run("totals the unpaid snapshots", func(t *testing.T) {
		s := newTestStatement(t)
		assert.Equal(t, StatusPending, s.Status)
		assert.Equal(t, "150.00", valueobject.FormatMoney(s.TotalAmount))
		require.Len(t, s.Items, 2)
		assert.Equal(t, "30.00", valueobject.FormatMoney(s.Items[1].QuotePaid))
	})

	t.Run("rejects empty input", func(t *testing.T) {
		_, err := NewAccountStatement("ST-1", uuid.New(), "Acme", valueobject.CNY, uuid.New(), nil)
		assert.ErrorIs(t, err, shared.ErrValidation)
	})

	t.Run("rejects settled quotes", func(t *testing.T) {
		snaps := snapshots()
		snaps[1].Unpaid = decimal.Zero
		_, err := NewAccountStatement("ST-1", uuid.New(), "Acme", valueobject.CNY, uuid.New(), snaps)
		assert.ErrorIs(t, err, shared.ErrValidation)
	})

	t.Run("rejects duplicates", func(t *testing.T) {
		snaps := snapshots()
		snaps[1].QuoteID = snaps[0].QuoteID
		_, err := NewAccountStatement("ST-1", uuid.New(), "Acme", valueobject.CNY, uuid.New(), snaps)
		assert.ErrorIs(t, err, shared.ErrValidation)
	})
}

func TestAccountStatement_RemoveItem(t *testing.T) {
	s := newTestStatement(t)
	first := s.Items[0].QuoteID

	removed, err := s.RemoveItem(first)
	require.NoError(t, err)
	assert.Equal(t, first, removed.QuoteID)
	assert.Equal(t, "50.00", valueobject.FormatMoney(s.TotalAmount))
	assert.Len(t, s.Items, 1)

	_, err = s.RemoveItem(first)
	assert.ErrorIs(t, err, shared.ErrNotFound)
}

func TestAccountStatement_QuoteIDs(t *testing.T) {
	s := newTestStatement(t)
	want := []uuid.UUID{s.Items[0].QuoteID, s.Items[1].QuoteID}
	assert.Equal(t, want, s.QuoteIDs())

	_, err := s.RemoveItem(want[0])
	require.NoError(t, err)
	assert.Equal(t, want[1:], s.QuoteIDs())
}

func TestAccountStatement_Reconcile(t *testing.T) {
	for _, sum := range []string{"149.99", "149", "151", "150.01"} {
		t.Run("mismatch "+sum, func(t *testing.T) {
			s := newTestStatement(t)
			err := s.Reconcile(decimal.RequireFromString(sum), uuid.New())
			assert.ErrorIs(t, err, shared.ErrReconciliationMismatch)
			assert.Equal(t, StatusPending, s.Status)
		})
	}

	t.Run("exact", func(t *testing.T) {
		s := newTestStatement(t)
		actor := uuid.New()
		require.NoError(t, s.Reconcile(decimal.RequireFromString("150.00"), actor))
		assert.Equal(t, StatusReconciled, s.Status)
		assert.Equal(t, actor, *s.ReconciledBy)

		assert.ErrorIs(t, s.Reconcile(decimal.RequireFromString("150.00"), actor), shared.ErrInvalidState)
		_, err := s.RemoveItem(s.Items[0].QuoteID)
		assert.ErrorIs(t, err, shared.ErrInvalidState)
	})
}
