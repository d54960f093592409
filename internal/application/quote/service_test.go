package quote_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	quoteapp "github.com/erp/quotefinance/internal/application/quote"
	"github.com/erp/quotefinance/internal/domain/shared"
	"github.com/erp/quotefinance/internal/infrastructure/persistence"
)

// recordingPublisher keeps every published event for inspection
type recordingPublisher struct {
	mu     sync.Mutex
	events []shared.DomainEvent
}

func (p *recordingPublisher) Publish(_ context.Context, events ...shared.DomainEvent) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, events...)
	return nil
}

func (p *recordingPublisher) types() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]string, 0, len(p.events))
	for _, e := range p.events {
		out = append(out, e.EventType())
	}
	return out
}

type testEnv struct {
	ctx        context.Context
	quotes     *quoteapp.QuoteService
	payments   *quoteapp.PaymentService
	invoices   *quoteapp.InvoiceService
	statements *quoteapp.StatementService
	voids      *quoteapp.VoidService
	events     *recordingPublisher

	staff    uuid.UUID
	finance  uuid.UUID
	customer uuid.UUID
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })
	require.NoError(t, persistence.AutoMigrate(db))

	log := zap.NewNop()
	scope := persistence.NewGormTransactionScope(db)
	cfg := quoteapp.DefaultConfig()

	env := &testEnv{
		ctx:      context.Background(),
		events:   &recordingPublisher{},
		staff:    uuid.New(),
		finance:  uuid.New(),
		customer: uuid.New(),
	}
	env.quotes = quoteapp.NewQuoteService(scope, nil, cfg, log)
	env.payments = quoteapp.NewPaymentService(scope, env.quotes, cfg, log)
	env.invoices, err = quoteapp.NewInvoiceService(scope, 7, log)
	require.NoError(t, err)
	env.statements = quoteapp.NewStatementService(scope, log)
	env.voids = quoteapp.NewVoidService(scope, log)

	env.quotes.SetEventPublisher(env.events)
	env.payments.SetEventPublisher(env.events)
	env.invoices.SetEventPublisher(env.events)
	env.statements.SetEventPublisher(env.events)
	env.voids.SetEventPublisher(env.events)
	return env
}

func money(v string) decimal.Decimal {
	return decimal.RequireFromString(v)
}

func assertMoney(t *testing.T, want string, got decimal.Decimal) {
	t.Helper()
	assert.True(t, money(want).Equal(got), "want %s, got %s", want, got)
}

func requireCode(t *testing.T, err error, code string) {
	t.Helper()
	require.Error(t, err)
	var de *shared.DomainError
	require.True(t, errors.As(err, &de), "expected a domain error, got %v", err)
	assert.Equal(t, code, de.Code, de.Message)
}

func (e *testEnv) draft(t *testing.T, prices ...string) *quoteapp.QuoteResponse {
	t.Helper()
	return e.draftFor(t, e.customer, "", prices...)
}

// draftFor creates a draft for another customer or currency. An empty
// currency uses the configured default.
func (e *testEnv) draftFor(t *testing.T, customer uuid.UUID, currency string, prices ...string) *quoteapp.QuoteResponse {
	t.Helper()
	items := make([]quoteapp.CreateQuoteItemInput, 0, len(prices))
	for _, p := range prices {
		items = append(items, quoteapp.CreateQuoteItemInput{
			FeeType:   "sequencing",
			Unit:      "sample",
			Quantity:  decimal.NewFromInt(1),
			UnitPrice: money(p),
		})
	}
	q, err := e.quotes.CreateDraft(e.ctx, e.staff, quoteapp.CreateQuoteRequest{
		CustomerID:   customer,
		CustomerName: "Acme Labs",
		Currency:     currency,
		Items:        items,
	})
	require.NoError(t, err)
	return q
}

func (e *testEnv) confirmed(t *testing.T, prices ...string) *quoteapp.QuoteResponse {
	t.Helper()
	return e.confirm(t, e.draft(t, prices...))
}

func (e *testEnv) confirm(t *testing.T, draft *quoteapp.QuoteResponse) *quoteapp.QuoteResponse {
	t.Helper()
	q, err := e.quotes.Confirm(e.ctx, draft.ID, e.staff)
	require.NoError(t, err)
	return q
}

func submitReq(amount string) quoteapp.SubmitPaymentRequest {
	return quoteapp.SubmitPaymentRequest{
		Amount: money(amount),
		PaidAt: time.Now().Add(-time.Hour),
	}
}

func (e *testEnv) submit(t *testing.T, quoteID uuid.UUID, amount string) *quoteapp.PaymentResponse {
	t.Helper()
	p, err := e.payments.Submit(e.ctx, quoteID, e.staff, false, submitReq(amount))
	require.NoError(t, err)
	return p
}

func (e *testEnv) paid(t *testing.T, quoteID uuid.UUID, amount string) *quoteapp.PaymentResponse {
	t.Helper()
	p := e.submit(t, quoteID, amount)
	confirmed, err := e.payments.FinanceConfirm(e.ctx, p.ID, e.finance, quoteapp.ConfirmPaymentRequest{Action: "CONFIRM"})
	require.NoError(t, err)
	return confirmed
}

func (e *testEnv) quote(t *testing.T, id uuid.UUID) *quoteapp.QuoteResponse {
	t.Helper()
	q, err := e.quotes.Get(e.ctx, id)
	require.NoError(t, err)
	return q
}

func TestQuoteLifecycle_DraftToConfirmed(t *testing.T) {
	env := newTestEnv(t)

	q := env.draft(t, "100.005", "200")
	assert.Equal(t, "DRAFT", q.Status)
	assert.Equal(t, "UNPAID", q.PaymentStatus)
	assert.Equal(t, "UNINVOICED", q.InvoiceStatus)
	assert.Equal(t, "NONE", q.VoidStatus)
	assert.Equal(t, "CNY", q.Currency)
	assert.Equal(t, env.staff, q.CollectorID)
	assert.NotEmpty(t, q.QuoteNo)
	require.Len(t, q.Items, 2)

	confirmed, err := env.quotes.Confirm(env.ctx, q.ID, env.staff)
	require.NoError(t, err)
	assert.Equal(t, "CONFIRMED", confirmed.Status)
	assertMoney(t, "300.01", confirmed.TotalAmount)

	_, err = env.quotes.Confirm(env.ctx, q.ID, env.staff)
	requireCode(t, err, shared.CodeInvalidState)

	_, err = env.quotes.AddItem(env.ctx, q.ID, env.staff, quoteapp.CreateQuoteItemInput{
		FeeType: "sequencing", Quantity: decimal.NewFromInt(1), UnitPrice: money("5"),
	})
	requireCode(t, err, shared.CodeInvalidState)

	history, err := env.quotes.History(env.ctx, q.ID)
	require.NoError(t, err)
	require.Len(t, history, 1)
	assert.Equal(t, "DRAFT", history[0].PreviousStatus)
	assert.Equal(t, "CONFIRMED", history[0].CurrentStatus)
}

func TestQuoteLifecycle_ConfirmWithoutItems(t *testing.T) {
	env := newTestEnv(t)
	q := env.draft(t)

	_, err := env.quotes.Confirm(env.ctx, q.ID, env.staff)
	requireCode(t, err, shared.CodeValidation)
	assert.Equal(t, "DRAFT", env.quote(t, q.ID).Status)
}

func TestQuoteLifecycle_EditDraft(t *testing.T) {
	env := newTestEnv(t)
	q := env.draft(t, "100")

	withItem, err := env.quotes.AddItem(env.ctx, q.ID, env.staff, quoteapp.CreateQuoteItemInput{
		FeeType: "analysis", Unit: "sample", Quantity: decimal.NewFromInt(2), UnitPrice: money("25"),
	})
	require.NoError(t, err)
	require.Len(t, withItem.Items, 2)
	assertMoney(t, "150", withItem.TotalAmount)

	removed, err := env.quotes.RemoveItem(env.ctx, q.ID, withItem.Items[0].ID, env.staff)
	require.NoError(t, err)
	require.Len(t, removed.Items, 1)
	assertMoney(t, "50", removed.TotalAmount)

	remark := "rush order"
	updated, err := env.quotes.UpdateHeader(env.ctx, q.ID, env.staff, quoteapp.UpdateQuoteHeaderRequest{Remark: &remark})
	require.NoError(t, err)
	assert.Equal(t, "rush order", updated.Remark)

	bad := "XXX"
	_, err = env.quotes.UpdateHeader(env.ctx, q.ID, env.staff, quoteapp.UpdateQuoteHeaderRequest{Currency: &bad})
	requireCode(t, err, shared.CodeValidation)
}

func TestPayment_PartialThenFull(t *testing.T) {
	env := newTestEnv(t)
	q := env.confirmed(t, "100", "200")

	_, err := env.payments.Submit(env.ctx, env.draft(t, "10").ID, env.staff, false, submitReq("10"))
	requireCode(t, err, shared.CodeInvalidState)

	p := env.submit(t, q.ID, "120")
	assert.Equal(t, "SUBMITTED", p.Status)
	assert.Equal(t, "UNPAID", env.quote(t, q.ID).PaymentStatus)

	unpaid, err := env.payments.GetUnpaidAmount(env.ctx, q.ID)
	require.NoError(t, err)
	assertMoney(t, "300", unpaid.Unpaid)

	confirmed, err := env.payments.FinanceConfirm(env.ctx, p.ID, env.finance, quoteapp.ConfirmPaymentRequest{Action: "CONFIRM"})
	require.NoError(t, err)
	assert.Equal(t, "CONFIRMED", confirmed.Status)
	require.NotNil(t, confirmed.ConfirmerID)
	assert.Equal(t, env.finance, *confirmed.ConfirmerID)

	after := env.quote(t, q.ID)
	assert.Equal(t, "PARTIAL", after.PaymentStatus)
	assertMoney(t, "120", after.PaidAmount)

	_, err = env.payments.FinanceConfirm(env.ctx, p.ID, env.finance, quoteapp.ConfirmPaymentRequest{Action: "CONFIRM"})
	requireCode(t, err, shared.CodeInvalidState)

	env.paid(t, q.ID, "180")
	final := env.quote(t, q.ID)
	assert.Equal(t, "PAID", final.PaymentStatus)
	assertMoney(t, "300", final.PaidAmount)

	unpaid, err = env.payments.GetUnpaidAmount(env.ctx, q.ID)
	require.NoError(t, err)
	assertMoney(t, "300", unpaid.Total)
	assertMoney(t, "300", unpaid.Paid)
	assertMoney(t, "0", unpaid.Unpaid)

	list, err := env.payments.ListByQuote(env.ctx, q.ID)
	require.NoError(t, err)
	assert.Len(t, list, 2)
}

func TestPayment_ReturnHasNoEffect(t *testing.T) {
	env := newTestEnv(t)
	q := env.confirmed(t, "100")
	p := env.submit(t, q.ID, "40")

	returned, err := env.payments.FinanceConfirm(env.ctx, p.ID, env.finance, quoteapp.ConfirmPaymentRequest{
		Action: "RETURN",
		Note:   "no bank record",
	})
	require.NoError(t, err)
	assert.Equal(t, "RETURNED", returned.Status)

	after := env.quote(t, q.ID)
	assert.Equal(t, "UNPAID", after.PaymentStatus)
	assertMoney(t, "0", after.PaidAmount)
}

func TestPayment_Overpayment(t *testing.T) {
	env := newTestEnv(t)
	q := env.confirmed(t, "100")
	env.paid(t, q.ID, "60")
	p := env.submit(t, q.ID, "70")

	t.Run("reject strategy refuses", func(t *testing.T) {
		_, err := env.payments.FinanceConfirm(env.ctx, p.ID, env.finance, quoteapp.ConfirmPaymentRequest{
			Action: "CONFIRM", Strategy: "REJECT",
		})
		requireCode(t, err, shared.CodeOverpayment)

		_, err = env.payments.FinanceConfirm(env.ctx, p.ID, env.finance, quoteapp.ConfirmPaymentRequest{Action: "CONFIRM"})
		requireCode(t, err, shared.CodeOverpayment)

		still, err := env.payments.Get(env.ctx, p.ID)
		require.NoError(t, err)
		assert.Equal(t, "SUBMITTED", still.Status)
		assertMoney(t, "60", env.quote(t, q.ID).PaidAmount)
	})

	t.Run("create balance moves the residual", func(t *testing.T) {
		confirmed, err := env.payments.FinanceConfirm(env.ctx, p.ID, env.finance, quoteapp.ConfirmPaymentRequest{
			Action: "CONFIRM", Strategy: "CREATE_BALANCE",
		})
		require.NoError(t, err)
		assert.Equal(t, "CONFIRMED", confirmed.Status)
		require.NotNil(t, confirmed.Source)
		assert.Equal(t, "CREATE_BALANCE", confirmed.Source.Strategy)
		assertMoney(t, "30", confirmed.Source.Balance)

		source := env.quote(t, q.ID)
		assert.Equal(t, "PAID", source.PaymentStatus)
		assertMoney(t, "100", source.PaidAmount)

		balance := env.quote(t, confirmed.Source.ReferenceID)
		assert.Equal(t, "DRAFT", balance.Status)
		require.NotNil(t, balance.ParentQuoteID)
		assert.Equal(t, q.ID, *balance.ParentQuoteID)
		assert.Equal(t, source.CustomerID, balance.CustomerID)
		assertMoney(t, "30", balance.TotalAmount)
	})
}

func TestPayment_PrivilegedSubmitConfirmsImmediately(t *testing.T) {
	env := newTestEnv(t)
	q := env.confirmed(t, "100")

	p, err := env.payments.Submit(env.ctx, q.ID, env.finance, true, submitReq("150"))
	require.NoError(t, err)
	assert.Equal(t, "CONFIRMED", p.Status)
	require.NotNil(t, p.Source)
	assertMoney(t, "50", p.Source.Balance)
	assert.Equal(t, "PAID", env.quote(t, q.ID).PaymentStatus)
}

func TestPayment_RejectsInvalidSubmissions(t *testing.T) {
	env := newTestEnv(t)
	q := env.confirmed(t, "100")

	tests := []struct {
		name string
		req  quoteapp.SubmitPaymentRequest
	}{
		{"zero amount", submitReq("0")},
		{"negative amount", submitReq("-5")},
		{"rounds to zero", submitReq("0.004")},
		{"future payment time", quoteapp.SubmitPaymentRequest{Amount: money("5"), PaidAt: time.Now().Add(24 * time.Hour)}},
		{"foreign currency", quoteapp.SubmitPaymentRequest{Amount: money("5"), Currency: "USD", PaidAt: time.Now().Add(-time.Hour)}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := env.payments.Submit(env.ctx, q.ID, env.staff, false, tt.req)
			requireCode(t, err, shared.CodeValidation)
		})
	}
}

func TestFreeze_BlocksEveryMutation(t *testing.T) {
	env := newTestEnv(t)
	q := env.confirmed(t, "100")
	pending := env.submit(t, q.ID, "40")

	invoiceReq := quoteapp.CreateInvoiceApplicationRequest{
		Groups: []quoteapp.InvoiceGroupInput{{
			Items: []quoteapp.InvoiceItemSelection{{QuoteID: q.ID, QuoteItemID: q.Items[0].ID, Amount: money("30")}},
		}},
	}
	audited, err := env.invoices.Create(env.ctx, env.staff, invoiceReq)
	require.NoError(t, err)
	_, err = env.invoices.Audit(env.ctx, audited.ID, env.finance, quoteapp.AuditInvoiceApplicationRequest{Result: "APPROVE"})
	require.NoError(t, err)
	awaiting, err := env.invoices.Create(env.ctx, env.staff, invoiceReq)
	require.NoError(t, err)

	app, err := env.voids.Apply(env.ctx, q.ID, env.staff, quoteapp.ApplyVoidRequest{Reason: "customer withdrew"})
	require.NoError(t, err)
	assert.Equal(t, "PENDING", app.Status)
	assert.Equal(t, "APPLYING", env.quote(t, q.ID).VoidStatus)

	_, err = env.payments.Submit(env.ctx, q.ID, env.staff, false, submitReq("10"))
	requireCode(t, err, shared.CodeFrozen)

	// The freeze wins over the payment's own state checks.
	_, err = env.payments.FinanceConfirm(env.ctx, pending.ID, env.finance, quoteapp.ConfirmPaymentRequest{Action: "CONFIRM"})
	requireCode(t, err, shared.CodeFrozen)

	remark := "late edit"
	_, err = env.quotes.UpdateHeader(env.ctx, q.ID, env.staff, quoteapp.UpdateQuoteHeaderRequest{Remark: &remark})
	requireCode(t, err, shared.CodeFrozen)

	_, err = env.quotes.Cancel(env.ctx, q.ID, env.staff, "")
	requireCode(t, err, shared.CodeFrozen)

	_, err = env.quotes.ChangeCollector(env.ctx, q.ID, env.staff, uuid.New())
	requireCode(t, err, shared.CodeFrozen)

	_, err = env.voids.DirectVoid(env.ctx, q.ID, env.finance, quoteapp.DirectVoidRequest{Reason: "duplicate"})
	requireCode(t, err, shared.CodeFrozen)

	_, err = env.voids.Apply(env.ctx, q.ID, env.staff, quoteapp.ApplyVoidRequest{Reason: "again"})
	requireCode(t, err, shared.CodeInvalidState)

	_, err = env.invoices.Create(env.ctx, env.staff, quoteapp.CreateInvoiceApplicationRequest{
		Groups: []quoteapp.InvoiceGroupInput{{
			Items: []quoteapp.InvoiceItemSelection{{QuoteID: q.ID, QuoteItemID: q.Items[0].ID, Amount: money("10")}},
		}},
	})
	requireCode(t, err, shared.CodeFrozen)

	_, err = env.invoices.Audit(env.ctx, awaiting.ID, env.finance, quoteapp.AuditInvoiceApplicationRequest{Result: "APPROVE"})
	requireCode(t, err, shared.CodeFrozen)

	// An already audited application reports the freeze, not its own state.
	_, err = env.invoices.Audit(env.ctx, audited.ID, env.finance, quoteapp.AuditInvoiceApplicationRequest{Result: "REJECT"})
	requireCode(t, err, shared.CodeFrozen)

	rejected, err := env.voids.Audit(env.ctx, app.ID, env.finance, quoteapp.AuditVoidRequest{Result: "REJECT", Note: "keep it"})
	require.NoError(t, err)
	assert.Equal(t, "REJECTED", rejected.Status)

	after := env.quote(t, q.ID)
	assert.Equal(t, "REJECTED", after.VoidStatus)
	assert.Equal(t, "CONFIRMED", after.Status)

	confirmed, err := env.payments.FinanceConfirm(env.ctx, pending.ID, env.finance, quoteapp.ConfirmPaymentRequest{Action: "CONFIRM"})
	require.NoError(t, err)
	assert.Equal(t, "CONFIRMED", confirmed.Status)
}

func TestVoid_OnlyCollectorMayApply(t *testing.T) {
	env := newTestEnv(t)
	q := env.confirmed(t, "100")

	_, err := env.voids.Apply(env.ctx, q.ID, uuid.New(), quoteapp.ApplyVoidRequest{Reason: "not mine"})
	requireCode(t, err, shared.CodeForbidden)
	assert.Equal(t, "NONE", env.quote(t, q.ID).VoidStatus)
}

func TestVoid_PassCascades(t *testing.T) {
	env := newTestEnv(t)
	q := env.confirmed(t, "100", "50")
	env.paid(t, q.ID, "30")
	submitted := env.submit(t, q.ID, "20")

	inv, err := env.invoices.Create(env.ctx, env.staff, quoteapp.CreateInvoiceApplicationRequest{
		Groups: []quoteapp.InvoiceGroupInput{{
			Items: []quoteapp.InvoiceItemSelection{{QuoteID: q.ID, QuoteItemID: q.Items[0].ID, Amount: money("100")}},
		}},
	})
	require.NoError(t, err)

	app, err := env.voids.Apply(env.ctx, q.ID, env.staff, quoteapp.ApplyVoidRequest{Reason: "wrong customer"})
	require.NoError(t, err)

	passed, err := env.voids.Audit(env.ctx, app.ID, env.finance, quoteapp.AuditVoidRequest{Result: "PASS"})
	require.NoError(t, err)
	assert.Equal(t, "PASSED", passed.Status)

	after := env.quote(t, q.ID)
	assert.Equal(t, "CANCELLED", after.Status)
	assert.Equal(t, "VOIDED", after.VoidStatus)

	p, err := env.payments.Get(env.ctx, submitted.ID)
	require.NoError(t, err)
	assert.Equal(t, "CANCELLED", p.Status)

	invAfter, err := env.invoices.Get(env.ctx, inv.ID)
	require.NoError(t, err)
	assert.Equal(t, "CANCELLED", invAfter.Status)

	_, err = env.voids.Audit(env.ctx, app.ID, env.finance, quoteapp.AuditVoidRequest{Result: "PASS"})
	requireCode(t, err, shared.CodeInvalidState)

	// A voided quote is terminal, not frozen.
	_, err = env.payments.Submit(env.ctx, q.ID, env.staff, false, submitReq("10"))
	requireCode(t, err, shared.CodeInvalidState)

	apps, err := env.voids.ListByQuote(env.ctx, q.ID)
	require.NoError(t, err)
	assert.Len(t, apps, 1)
}

func TestVoid_Direct(t *testing.T) {
	env := newTestEnv(t)

	t.Run("unpaid quote needs no reason", func(t *testing.T) {
		q := env.confirmed(t, "100")
		app, err := env.voids.DirectVoid(env.ctx, q.ID, env.finance, quoteapp.DirectVoidRequest{})
		require.NoError(t, err)
		assert.True(t, app.Direct)
		assert.Equal(t, "PASSED", app.Status)

		after := env.quote(t, q.ID)
		assert.Equal(t, "CANCELLED", after.Status)
		assert.Equal(t, "VOIDED", after.VoidStatus)

		_, err = env.voids.DirectVoid(env.ctx, q.ID, env.finance, quoteapp.DirectVoidRequest{Reason: "again"})
		requireCode(t, err, shared.CodeInvalidState)
	})

	t.Run("paid quote requires a reason", func(t *testing.T) {
		q := env.confirmed(t, "100")
		env.paid(t, q.ID, "100")

		_, err := env.voids.DirectVoid(env.ctx, q.ID, env.finance, quoteapp.DirectVoidRequest{})
		requireCode(t, err, shared.CodeValidation)
		assert.Equal(t, "CONFIRMED", env.quote(t, q.ID).Status)

		_, err = env.voids.DirectVoid(env.ctx, q.ID, env.finance, quoteapp.DirectVoidRequest{Reason: "refunded offline"})
		require.NoError(t, err)
		assert.Equal(t, "CANCELLED", env.quote(t, q.ID).Status)
	})
}

func TestQuoteCancel_CascadesPendingWork(t *testing.T) {
	env := newTestEnv(t)
	q := env.confirmed(t, "100")
	submitted := env.submit(t, q.ID, "25")

	inv, err := env.invoices.Create(env.ctx, env.staff, quoteapp.CreateInvoiceApplicationRequest{
		Groups: []quoteapp.InvoiceGroupInput{{
			Items: []quoteapp.InvoiceItemSelection{{QuoteID: q.ID, QuoteItemID: q.Items[0].ID, Amount: money("50")}},
		}},
	})
	require.NoError(t, err)
	assert.Equal(t, "IN_PROCESS", env.quote(t, q.ID).InvoiceStatus)

	cancelled, err := env.quotes.Cancel(env.ctx, q.ID, env.staff, "customer cancelled")
	require.NoError(t, err)
	assert.Equal(t, "CANCELLED", cancelled.Status)
	assert.Equal(t, "customer cancelled", cancelled.CancelReason)
	assert.Equal(t, "UNINVOICED", cancelled.InvoiceStatus)

	p, err := env.payments.Get(env.ctx, submitted.ID)
	require.NoError(t, err)
	assert.Equal(t, "CANCELLED", p.Status)

	invAfter, err := env.invoices.Get(env.ctx, inv.ID)
	require.NoError(t, err)
	assert.Equal(t, "CANCELLED", invAfter.Status)

	_, err = env.quotes.Cancel(env.ctx, q.ID, env.staff, "")
	requireCode(t, err, shared.CodeInvalidState)
}

func TestInvoice_ApplyAndAudit(t *testing.T) {
	env := newTestEnv(t)
	q := env.confirmed(t, "100", "200")
	line := func(amount string) quoteapp.CreateInvoiceApplicationRequest {
		return quoteapp.CreateInvoiceApplicationRequest{
			Groups: []quoteapp.InvoiceGroupInput{{
				InvoiceType: "NORMAL",
				TaxRate:     money("0.06"),
				Content:     "testing services",
				Items:       []quoteapp.InvoiceItemSelection{{QuoteID: q.ID, QuoteItemID: q.Items[1].ID, Amount: money(amount)}},
			}},
		}
	}

	_, err := env.invoices.Create(env.ctx, env.staff, line("300.01"))
	requireCode(t, err, shared.CodeValidation)

	_, err = env.invoices.Create(env.ctx, uuid.New(), line("10"))
	requireCode(t, err, shared.CodeValidation)

	first, err := env.invoices.Create(env.ctx, env.staff, line("100"))
	require.NoError(t, err)
	assert.Equal(t, "PENDING", first.Status)
	assertMoney(t, "100", first.TotalAmount)
	assert.NotEmpty(t, first.ApplicationNo)
	assert.Equal(t, "IN_PROCESS", env.quote(t, q.ID).InvoiceStatus)

	approved, err := env.invoices.Audit(env.ctx, first.ID, env.finance, quoteapp.AuditInvoiceApplicationRequest{Result: "APPROVE"})
	require.NoError(t, err)
	assert.Equal(t, "APPROVED", approved.Status)

	after := env.quote(t, q.ID)
	assert.Equal(t, "PARTIAL", after.InvoiceStatus)
	assertMoney(t, "100", after.InvoicedAmount)

	_, err = env.invoices.Audit(env.ctx, first.ID, env.finance, quoteapp.AuditInvoiceApplicationRequest{Result: "APPROVE"})
	requireCode(t, err, shared.CodeInvalidState)

	second, err := env.invoices.Create(env.ctx, env.staff, line("150"))
	require.NoError(t, err)
	rejected, err := env.invoices.Audit(env.ctx, second.ID, env.finance, quoteapp.AuditInvoiceApplicationRequest{Result: "REJECT", Reason: "wrong title"})
	require.NoError(t, err)
	assert.Equal(t, "REJECTED", rejected.Status)
	assert.Equal(t, "PARTIAL", env.quote(t, q.ID).InvoiceStatus)

	third, err := env.invoices.Create(env.ctx, env.staff, line("200"))
	require.NoError(t, err)
	_, err = env.invoices.Audit(env.ctx, third.ID, env.finance, quoteapp.AuditInvoiceApplicationRequest{Result: "APPROVE"})
	require.NoError(t, err)

	final := env.quote(t, q.ID)
	assert.Equal(t, "FULLY_INVOICED", final.InvoiceStatus)
	assertMoney(t, "300", final.InvoicedAmount)
}

func TestInvoice_CancelPending(t *testing.T) {
	env := newTestEnv(t)
	q := env.confirmed(t, "100")
	other := env.confirmed(t, "80")

	_, err := env.invoices.Create(env.ctx, env.staff, quoteapp.CreateInvoiceApplicationRequest{
		Groups: []quoteapp.InvoiceGroupInput{{
			Items: []quoteapp.InvoiceItemSelection{
				{QuoteID: q.ID, QuoteItemID: q.Items[0].ID, Amount: money("40")},
				{QuoteID: other.ID, QuoteItemID: other.Items[0].ID, Amount: money("80")},
			},
		}},
	})
	require.NoError(t, err)
	assert.Equal(t, "IN_PROCESS", env.quote(t, other.ID).InvoiceStatus)

	n, err := env.invoices.CancelPending(env.ctx, q.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, n)
	assert.Equal(t, "UNINVOICED", env.quote(t, q.ID).InvoiceStatus)
	assert.Equal(t, "UNINVOICED", env.quote(t, other.ID).InvoiceStatus)

	n, err = env.invoices.CancelPending(env.ctx, q.ID)
	require.NoError(t, err)
	assert.Zero(t, n)
}

func invoiceLines(quotes ...*quoteapp.QuoteResponse) quoteapp.CreateInvoiceApplicationRequest {
	items := make([]quoteapp.InvoiceItemSelection, 0, len(quotes))
	for _, q := range quotes {
		items = append(items, quoteapp.InvoiceItemSelection{QuoteID: q.ID, QuoteItemID: q.Items[0].ID, Amount: money("10")})
	}
	return quoteapp.CreateInvoiceApplicationRequest{Groups: []quoteapp.InvoiceGroupInput{{Items: items}}}
}

func TestInvoice_FirstQuoteFixesCustomerAndCurrency(t *testing.T) {
	env := newTestEnv(t)
	base := env.confirmed(t, "100")
	foreign := env.confirm(t, env.draftFor(t, uuid.New(), "", "100"))
	dollars := env.confirm(t, env.draftFor(t, env.customer, "USD", "100"))

	tests := []struct {
		name    string
		req     quoteapp.CreateInvoiceApplicationRequest
		message string
	}{
		{"different customer", invoiceLines(base, foreign), "different customer"},
		{"different currency", invoiceLines(base, dollars), "expected CNY"},
		{"first seen currency wins", invoiceLines(dollars, base), "expected USD"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := env.invoices.Create(env.ctx, env.staff, tt.req)
			requireCode(t, err, shared.CodeValidation)
			assert.Contains(t, err.Error(), tt.message)
		})
	}

	// Nothing was touched by the rejected applications.
	for _, q := range []*quoteapp.QuoteResponse{base, foreign, dollars} {
		assert.Equal(t, "UNINVOICED", env.quote(t, q.ID).InvoiceStatus)
	}
}

func TestInvoice_RejectsSubCentAmounts(t *testing.T) {
	env := newTestEnv(t)
	q := env.confirmed(t, "100")

	_, err := env.invoices.Create(env.ctx, env.staff, quoteapp.CreateInvoiceApplicationRequest{
		Groups: []quoteapp.InvoiceGroupInput{{
			Items: []quoteapp.InvoiceItemSelection{{QuoteID: q.ID, QuoteItemID: q.Items[0].ID, Amount: money("0.004")}},
		}},
	})
	requireCode(t, err, shared.CodeValidation)
	assert.Equal(t, "UNINVOICED", env.quote(t, q.ID).InvoiceStatus)
}

func TestStatement_RejectsMixedCurrencies(t *testing.T) {
	env := newTestEnv(t)
	yuan := env.confirmed(t, "100")
	dollars := env.confirm(t, env.draftFor(t, env.customer, "USD", "100"))

	_, err := env.statements.Generate(env.ctx, env.finance, quoteapp.GenerateStatementRequest{
		CustomerID: env.customer,
		QuoteIDs:   []uuid.UUID{yuan.ID, dollars.ID},
	})
	requireCode(t, err, shared.CodeValidation)
	assert.Contains(t, err.Error(), "statement currency is CNY")

	list, err := env.statements.List(env.ctx, quoteapp.StatementListFilter{CustomerID: &env.customer})
	require.NoError(t, err)
	assert.Empty(t, list)
}

func TestStatement_BindRequiresExactTotal(t *testing.T) {
	env := newTestEnv(t)
	a := env.confirmed(t, "100")
	b := env.confirmed(t, "50")
	c := env.confirmed(t, "20")

	st, err := env.statements.Generate(env.ctx, env.finance, quoteapp.GenerateStatementRequest{
		CustomerID: env.customer,
		QuoteIDs:   []uuid.UUID{a.ID, b.ID},
	})
	require.NoError(t, err)
	assertMoney(t, "150", st.TotalAmount)

	pa := env.paid(t, a.ID, "100")
	pb := env.paid(t, b.ID, "49")
	pbRest := env.paid(t, b.ID, "1")
	pc := env.paid(t, c.ID, "1")

	tests := []struct {
		name     string
		payments []uuid.UUID
	}{
		{"under by one", []uuid.UUID{pa.ID, pb.ID}},
		{"over by one", []uuid.UUID{pa.ID, pb.ID, pbRest.ID, pc.ID}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := env.statements.BindPayments(env.ctx, st.ID, env.finance, quoteapp.BindPaymentsRequest{PaymentIDs: tt.payments})
			requireCode(t, err, shared.CodeReconciliationMismatch)

			pending, err := env.statements.Get(env.ctx, st.ID)
			require.NoError(t, err)
			assert.Equal(t, "PENDING", pending.Status)
		})
	}

	reconciled, err := env.statements.BindPayments(env.ctx, st.ID, env.finance, quoteapp.BindPaymentsRequest{PaymentIDs: []uuid.UUID{pa.ID, pb.ID, pbRest.ID}})
	require.NoError(t, err)
	assert.Equal(t, "RECONCILED", reconciled.Status)

	unbound, err := env.payments.Get(env.ctx, pc.ID)
	require.NoError(t, err)
	assert.Nil(t, unbound.StatementID)
}

func TestStatement_Reconciliation(t *testing.T) {
	env := newTestEnv(t)
	q1 := env.confirmed(t, "300")
	q2 := env.confirmed(t, "200")
	q3 := env.confirmed(t, "50")

	st, err := env.statements.Generate(env.ctx, env.finance, quoteapp.GenerateStatementRequest{
		CustomerID: env.customer,
		QuoteIDs:   []uuid.UUID{q1.ID, q2.ID, q3.ID},
	})
	require.NoError(t, err)
	assert.Equal(t, "PENDING", st.Status)
	assertMoney(t, "550", st.TotalAmount)
	require.Len(t, st.Items, 3)
	assert.Equal(t, q1.ID, st.Items[0].QuoteID)

	st, err = env.statements.RemoveItem(env.ctx, st.ID, q3.ID, env.finance)
	require.NoError(t, err)
	assertMoney(t, "500", st.TotalAmount)
	require.Len(t, st.Items, 2)

	_, err = env.statements.RemoveItem(env.ctx, st.ID, q3.ID, env.finance)
	requireCode(t, err, shared.CodeNotFound)

	p1 := env.paid(t, q1.ID, "300")
	p2 := env.paid(t, q2.ID, "199.99")
	submitted := env.submit(t, q2.ID, "0.01")

	_, err = env.statements.BindPayments(env.ctx, st.ID, env.finance, quoteapp.BindPaymentsRequest{PaymentIDs: []uuid.UUID{p1.ID, p2.ID}})
	requireCode(t, err, shared.CodeReconciliationMismatch)

	_, err = env.statements.BindPayments(env.ctx, st.ID, env.finance, quoteapp.BindPaymentsRequest{PaymentIDs: []uuid.UUID{p1.ID, p2.ID, submitted.ID}})
	requireCode(t, err, shared.CodeValidation)

	_, err = env.statements.BindPayments(env.ctx, st.ID, env.finance, quoteapp.BindPaymentsRequest{PaymentIDs: []uuid.UUID{p1.ID, p1.ID}})
	requireCode(t, err, shared.CodeValidation)

	// Nothing was bound by the failed attempts.
	unbound, err := env.payments.Get(env.ctx, p1.ID)
	require.NoError(t, err)
	assert.Nil(t, unbound.StatementID)

	p3 := env.paid(t, q2.ID, "0.01")
	reconciled, err := env.statements.BindPayments(env.ctx, st.ID, env.finance, quoteapp.BindPaymentsRequest{PaymentIDs: []uuid.UUID{p1.ID, p2.ID, p3.ID}})
	require.NoError(t, err)
	assert.Equal(t, "RECONCILED", reconciled.Status)
	require.NotNil(t, reconciled.ReconciledBy)

	bound, err := env.payments.Get(env.ctx, p2.ID)
	require.NoError(t, err)
	require.NotNil(t, bound.StatementID)
	assert.Equal(t, st.ID, *bound.StatementID)

	_, err = env.statements.RemoveItem(env.ctx, st.ID, q1.ID, env.finance)
	requireCode(t, err, shared.CodeInvalidState)

	// q1 is fully paid, so it has nothing left to state.
	_, err = env.statements.Generate(env.ctx, env.finance, quoteapp.GenerateStatementRequest{
		CustomerID: env.customer,
		QuoteIDs:   []uuid.UUID{q1.ID},
	})
	requireCode(t, err, shared.CodeValidation)

	q4 := env.confirmed(t, "300")
	other, err := env.statements.Generate(env.ctx, env.finance, quoteapp.GenerateStatementRequest{
		CustomerID: env.customer,
		QuoteIDs:   []uuid.UUID{q4.ID},
	})
	require.NoError(t, err)
	_, err = env.statements.BindPayments(env.ctx, other.ID, env.finance, quoteapp.BindPaymentsRequest{PaymentIDs: []uuid.UUID{p1.ID}})
	requireCode(t, err, shared.CodeValidation)
}

func TestStatement_RejectsForeignCustomer(t *testing.T) {
	env := newTestEnv(t)
	q := env.confirmed(t, "100")

	_, err := env.statements.Generate(env.ctx, env.finance, quoteapp.GenerateStatementRequest{
		CustomerID: uuid.New(),
		QuoteIDs:   []uuid.UUID{q.ID},
	})
	requireCode(t, err, shared.CodeValidation)

	_, err = env.statements.Generate(env.ctx, env.finance, quoteapp.GenerateStatementRequest{
		CustomerID: env.customer,
		QuoteIDs:   []uuid.UUID{uuid.New()},
	})
	requireCode(t, err, shared.CodeNotFound)
}

func TestEvents_PublishedAfterCommitOnly(t *testing.T) {
	env := newTestEnv(t)
	q := env.confirmed(t, "100")
	p := env.submit(t, q.ID, "150")
	before := len(env.events.types())

	_, err := env.payments.FinanceConfirm(env.ctx, p.ID, env.finance, quoteapp.ConfirmPaymentRequest{Action: "CONFIRM", Strategy: "REJECT"})
	requireCode(t, err, shared.CodeOverpayment)
	assert.Len(t, env.events.types(), before)

	_, err = env.payments.FinanceConfirm(env.ctx, p.ID, env.finance, quoteapp.ConfirmPaymentRequest{Action: "CONFIRM", Strategy: "CREATE_BALANCE"})
	require.NoError(t, err)
	assert.Greater(t, len(env.events.types()), before)
}

func TestPayment_CancelUnconfirmed(t *testing.T) {
	env := newTestEnv(t)
	q := env.confirmed(t, "100")
	kept := env.paid(t, q.ID, "30")
	env.submit(t, q.ID, "20")
	env.submit(t, q.ID, "10")

	n, err := env.payments.CancelUnconfirmed(env.ctx, q.ID)
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	payments, err := env.payments.ListByQuote(env.ctx, q.ID)
	require.NoError(t, err)
	statuses := map[string]int{}
	for _, p := range payments {
		statuses[p.Status]++
	}
	assert.Equal(t, map[string]int{"CONFIRMED": 1, "CANCELLED": 2}, statuses)

	unpaid, err := env.payments.Unpaid(env.ctx, q.ID)
	require.NoError(t, err)
	assertMoney(t, "70", unpaid)
	assert.Equal(t, "CONFIRMED", kept.Status)

	n, err = env.payments.CancelUnconfirmed(env.ctx, q.ID)
	require.NoError(t, err)
	assert.Zero(t, n)
}

func batchReq(total string, quoteIDs ...uuid.UUID) quoteapp.CreateBatchPaymentRequest {
	return quoteapp.CreateBatchPaymentRequest{
		QuoteIDs:    quoteIDs,
		TotalAmount: money(total),
		PaidAt:      time.Now().Add(-time.Hour),
	}
}

func TestPayment_CreateBatch(t *testing.T) {
	env := newTestEnv(t)
	q1 := env.confirmed(t, "100")
	q2 := env.confirmed(t, "50")
	env.paid(t, q2.ID, "20")

	settled := env.confirmed(t, "10")
	env.paid(t, settled.ID, "10")
	foreign := env.confirm(t, env.draftFor(t, uuid.New(), "", "10"))
	frozen := env.confirmed(t, "10")
	_, err := env.voids.Apply(env.ctx, frozen.ID, env.staff, quoteapp.ApplyVoidRequest{Reason: "duplicate"})
	require.NoError(t, err)

	tests := []struct {
		name      string
		collector uuid.UUID
		req       quoteapp.CreateBatchPaymentRequest
		code      string
	}{
		{"no quotes", env.staff, batchReq("10"), shared.CodeValidation},
		{"quote listed twice", env.staff, batchReq("200", q1.ID, q1.ID), shared.CodeValidation},
		{"total below the unpaid sum", env.staff, batchReq("129.99", q1.ID, q2.ID), shared.CodeReconciliationMismatch},
		{"total above the unpaid sum", env.staff, batchReq("130.01", q1.ID, q2.ID), shared.CodeReconciliationMismatch},
		{"another collector", uuid.New(), batchReq("130", q1.ID, q2.ID), shared.CodeValidation},
		{"different customer", env.staff, batchReq("110", q1.ID, foreign.ID), shared.CodeValidation},
		{"settled quote", env.staff, batchReq("100", q1.ID, settled.ID), shared.CodeValidation},
		{"frozen quote", env.staff, batchReq("110", q1.ID, frozen.ID), shared.CodeFrozen},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := env.payments.CreateBatch(env.ctx, tt.collector, tt.req)
			requireCode(t, err, tt.code)
		})
	}

	batch, err := env.payments.CreateBatch(env.ctx, env.staff, batchReq("130", q1.ID, q2.ID))
	require.NoError(t, err)
	assert.NotEmpty(t, batch.BatchNo)
	assert.Equal(t, "CNY", batch.Currency)
	require.Len(t, batch.Payments, 2)
	assertMoney(t, "100", batch.Payments[0].Amount)
	assertMoney(t, "30", batch.Payments[1].Amount)
	for _, p := range batch.Payments {
		assert.Equal(t, "SUBMITTED", p.Status)
		assert.Equal(t, batch.BatchNo, p.BatchNo)
	}

	listed, err := env.payments.ListByBatch(env.ctx, batch.BatchNo)
	require.NoError(t, err)
	assert.Len(t, listed, 2)

	// Submitted payments do not count until finance confirms them.
	unpaid, err := env.payments.Unpaid(env.ctx, q1.ID)
	require.NoError(t, err)
	assertMoney(t, "100", unpaid)
}

func TestPayment_CreateBatchFromStatement(t *testing.T) {
	env := newTestEnv(t)
	a := env.confirmed(t, "100")
	b := env.confirmed(t, "50")
	st, err := env.statements.Generate(env.ctx, env.finance, quoteapp.GenerateStatementRequest{
		CustomerID: env.customer,
		QuoteIDs:   []uuid.UUID{a.ID, b.ID},
	})
	require.NoError(t, err)

	fromStatement := func(total string) quoteapp.CreateBatchPaymentRequest {
		req := batchReq(total)
		req.StatementID = &st.ID
		req.CustomerID = &env.customer
		return req
	}

	_, err = env.payments.CreateBatch(env.ctx, env.staff, fromStatement("149"))
	requireCode(t, err, shared.CodeReconciliationMismatch)

	noCustomer := fromStatement("150")
	noCustomer.CustomerID = nil
	_, err = env.payments.CreateBatch(env.ctx, env.staff, noCustomer)
	requireCode(t, err, shared.CodeValidation)

	dollars := fromStatement("150")
	dollars.Currency = "USD"
	_, err = env.payments.CreateBatch(env.ctx, env.staff, dollars)
	requireCode(t, err, shared.CodeValidation)

	batch, err := env.payments.CreateBatch(env.ctx, env.staff, fromStatement("150"))
	require.NoError(t, err)
	require.Len(t, batch.Payments, 2)

	pending, err := env.statements.Get(env.ctx, st.ID)
	require.NoError(t, err)
	assert.Equal(t, "PENDING", pending.Status)

	ids := make([]uuid.UUID, 0, len(batch.Payments))
	for _, p := range batch.Payments {
		_, err := env.payments.FinanceConfirm(env.ctx, p.ID, env.finance, quoteapp.ConfirmPaymentRequest{Action: "CONFIRM"})
		require.NoError(t, err)
		ids = append(ids, p.ID)
	}
	reconciled, err := env.statements.BindPayments(env.ctx, st.ID, env.finance, quoteapp.BindPaymentsRequest{PaymentIDs: ids})
	require.NoError(t, err)
	assert.Equal(t, "RECONCILED", reconciled.Status)

	_, err = env.payments.CreateBatch(env.ctx, env.staff, fromStatement("150"))
	requireCode(t, err, shared.CodeInvalidState)
}

func TestStatement_List(t *testing.T) {
	env := newTestEnv(t)
	a := env.confirmed(t, "100")
	b := env.confirmed(t, "50")
	generate := func(q *quoteapp.QuoteResponse) *quoteapp.StatementResponse {
		st, err := env.statements.Generate(env.ctx, env.finance, quoteapp.GenerateStatementRequest{
			CustomerID: env.customer,
			QuoteIDs:   []uuid.UUID{q.ID},
		})
		require.NoError(t, err)
		return st
	}
	open := generate(a)
	closed := generate(b)
	p := env.paid(t, b.ID, "50")
	_, err := env.statements.BindPayments(env.ctx, closed.ID, env.finance, quoteapp.BindPaymentsRequest{PaymentIDs: []uuid.UUID{p.ID}})
	require.NoError(t, err)

	ids := func(list []quoteapp.StatementResponse) []uuid.UUID {
		out := make([]uuid.UUID, 0, len(list))
		for _, st := range list {
			out = append(out, st.ID)
		}
		return out
	}
	stranger := uuid.New()

	all, err := env.statements.List(env.ctx, quoteapp.StatementListFilter{CustomerID: &env.customer})
	require.NoError(t, err)
	assert.ElementsMatch(t, []uuid.UUID{open.ID, closed.ID}, ids(all))

	pending, err := env.statements.List(env.ctx, quoteapp.StatementListFilter{Status: "PENDING"})
	require.NoError(t, err)
	assert.Equal(t, []uuid.UUID{open.ID}, ids(pending))

	none, err := env.statements.List(env.ctx, quoteapp.StatementListFilter{CustomerID: &stranger, Status: "RECONCILED"})
	require.NoError(t, err)
	assert.Empty(t, none)

	_, err = env.statements.List(env.ctx, quoteapp.StatementListFilter{Status: "OPEN"})
	requireCode(t, err, shared.CodeValidation)
}

func TestInvoice_ListByCollector(t *testing.T) {
	env := newTestEnv(t)
	q := env.confirmed(t, "100")

	first, err := env.invoices.Create(env.ctx, env.staff, invoiceLines(q))
	require.NoError(t, err)
	second, err := env.invoices.Create(env.ctx, env.staff, invoiceLines(q))
	require.NoError(t, err)

	mine, err := env.invoices.ListByCollector(env.ctx, env.staff)
	require.NoError(t, err)
	require.Len(t, mine, 2)
	assert.ElementsMatch(t, []uuid.UUID{first.ID, second.ID}, []uuid.UUID{mine[0].ID, mine[1].ID})
	require.Len(t, mine[0].Records, 1)

	others, err := env.invoices.ListByCollector(env.ctx, uuid.New())
	require.NoError(t, err)
	assert.Empty(t, others)
}
