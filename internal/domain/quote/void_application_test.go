package quote

import (
	"testing"

	"github.com/erp/quotefinance/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewVoidApplication(t *testing.T) {
	t.Run("collector applies", func(t *testing.T) {
		q := newConfirmedQuote(t, "100")
		app, err := NewVoidApplication(q, q.CollectorID, "wrong customer", []string{"s3://bucket/a.pdf"})
		require.NoError(t, err)
		assert.Equal(t, VoidApplicationPending, app.Status)
		assert.Equal(t, VoidStatusApplying, q.VoidStatus)
		assert.Equal(t, []string{"s3://bucket/a.pdf"}, app.AttachmentURLs)
	})

	t.Run("someone else is forbidden", func(t *testing.T) {
		q := newConfirmedQuote(t, "100")
		_, err := NewVoidApplication(q, uuid.New(), "wrong customer", nil)
		assert.ErrorIs(t, err, shared.ErrForbidden)
		assert.Equal(t, VoidStatusNone, q.VoidStatus)
	})

	t.Run("reason is required", func(t *testing.T) {
		q := newConfirmedQuote(t, "100")
		_, err := NewVoidApplication(q, q.CollectorID, "  ", nil)
		assert.ErrorIs(t, err, shared.ErrValidation)
	})

	t.Run("already applying", func(t *testing.T) {
		q := newConfirmedQuote(t, "100")
		_, err := NewVoidApplication(q, q.CollectorID, "first", nil)
		require.NoError(t, err)
		_, err = NewVoidApplication(q, q.CollectorID, "second", nil)
		assert.ErrorIs(t, err, shared.ErrInvalidState)
	})

	t.Run("cancelled quote", func(t *testing.T) {
		q := newConfirmedQuote(t, "100")
		require.NoError(t, q.Cancel(uuid.New(), "gone"))
		_, err := NewVoidApplication(q, q.CollectorID, "late", nil)
		assert.ErrorIs(t, err, shared.ErrInvalidState)
	})

	t.Run("re-entrant after rejection", func(t *testing.T) {
		q := newConfirmedQuote(t, "100")
		_, err := NewVoidApplication(q, q.CollectorID, "first", nil)
		require.NoError(t, err)
		require.NoError(t, q.RejectVoid())
		assert.Equal(t, VoidStatusRejected, q.VoidStatus)
		_, err = NewVoidApplication(q, q.CollectorID, "second", nil)
		require.NoError(t, err)
	})
}

func TestVoidApplication_Audit(t *testing.T) {
	q := newConfirmedQuote(t, "100")
	app, err := NewVoidApplication(q, q.CollectorID, "duplicate", nil)
	require.NoError(t, err)

	assert.ErrorIs(t, app.Audit(uuid.New(), VoidAuditResult("MAYBE"), ""), shared.ErrValidation)

	auditor := uuid.New()
	require.NoError(t, app.Audit(auditor, VoidAuditPass, "ok"))
	assert.Equal(t, VoidApplicationPassed, app.Status)
	require.NotNil(t, app.AuditorID)
	assert.Equal(t, auditor, *app.AuditorID)

	assert.ErrorIs(t, app.Audit(auditor, VoidAuditReject, ""), shared.ErrInvalidState)
}

func TestQuote_CompleteVoid(t *testing.T) {
	q := newConfirmedQuote(t, "100")
	require.NoError(t, q.StartVoid())
	require.NoError(t, q.CompleteVoid(uuid.New(), "duplicate"))
	assert.Equal(t, StatusCancelled, q.Status)
	assert.Equal(t, VoidStatusVoided, q.VoidStatus)

	events := q.GetDomainEvents()
	require.NotEmpty(t, events)
	cancelled, ok := events[len(events)-1].(*QuoteCancelledEvent)
	require.True(t, ok)
	assert.True(t, cancelled.Voided)
}

func TestNewDirectVoidApplication(t *testing.T) {
	t.Run("auto passed", func(t *testing.T) {
		q := newConfirmedQuote(t, "100")
		app, err := NewDirectVoidApplication(q, uuid.New(), "")
		require.NoError(t, err)
		assert.True(t, app.Direct)
		assert.Equal(t, VoidApplicationPassed, app.Status)
		assert.Equal(t, DirectVoidNote, app.AuditNote)
	})

	t.Run("paid quote needs a reason", func(t *testing.T) {
		q := newConfirmedQuote(t, "100")
		q.ApplyConfirmedPayments(decimal.NewFromInt(100))
		_, err := NewDirectVoidApplication(q, uuid.New(), "")
		assert.ErrorIs(t, err, shared.ErrValidation)

		_, err = NewDirectVoidApplication(q, uuid.New(), "refunded offline")
		require.NoError(t, err)
	})

	t.Run("already cancelled", func(t *testing.T) {
		q := newConfirmedQuote(t, "100")
		require.NoError(t, q.Cancel(uuid.New(), "gone"))
		_, err := NewDirectVoidApplication(q, uuid.New(), "again")
		assert.ErrorIs(t, err, shared.ErrInvalidState)
	})
}
