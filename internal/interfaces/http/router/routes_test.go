package router_test

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
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
	"github.com/erp/quotefinance/internal/infrastructure/auth"
	"github.com/erp/quotefinance/internal/infrastructure/config"
	"github.com/erp/quotefinance/internal/infrastructure/persistence"
	"github.com/erp/quotefinance/internal/interfaces/http/dto"
	"github.com/erp/quotefinance/internal/interfaces/http/handler"
	"github.com/erp/quotefinance/internal/interfaces/http/middleware"
	"github.com/erp/quotefinance/internal/interfaces/http/router"
)

type apiEnvelope struct {
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data"`
	Error   *dto.ErrorInfo  `json:"error"`
}

type quoteBody struct {
	ID            uuid.UUID       `json:"id"`
	Status        string          `json:"status"`
	PaymentStatus string          `json:"payment_status"`
	VoidStatus    string          `json:"void_status"`
	TotalAmount   decimal.Decimal `json:"total_amount"`
	PaidAmount    decimal.Decimal `json:"paid_amount"`
}

type paymentBody struct {
	ID     uuid.UUID `json:"id"`
	Status string    `json:"status"`
}

type unpaidBody struct {
	Total  decimal.Decimal `json:"total"`
	Paid   decimal.Decimal `json:"paid"`
	Unpaid decimal.Decimal `json:"unpaid"`
}

type apiHarness struct {
	t       *testing.T
	engine  *gin.Engine
	parser  *auth.TokenParser
	staffID uuid.UUID
	staff   string
	finance string
}

func newAPIHarness(t *testing.T) *apiHarness {
	t.Helper()
	gin.SetMode(gin.TestMode)

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

	quotes := quoteapp.NewQuoteService(scope, nil, cfg, log)
	payments := quoteapp.NewPaymentService(scope, quotes, cfg, log)
	invoices, err := quoteapp.NewInvoiceService(scope, 1, log)
	require.NoError(t, err)
	statements := quoteapp.NewStatementService(scope, log)
	voids := quoteapp.NewVoidService(scope, log)

	parser := auth.NewTokenParser(config.JWTConfig{Secret: "router-test-secret", Issuer: "quotefinance"})

	engine := gin.New()
	engine.Use(middleware.RequestID())
	r := router.NewRouter(engine, router.WithMiddleware(middleware.JWTAuthMiddleware(middleware.JWTMiddlewareConfig{
		Parser: parser,
		Logger: log,
	})))
	for _, g := range router.QuoteFinanceGroups(router.Handlers{
		Quotes:     handler.NewQuoteHandler(quotes, payments),
		Payments:   handler.NewPaymentHandler(payments),
		Invoices:   handler.NewInvoiceHandler(invoices),
		Statements: handler.NewStatementHandler(statements),
		Voids:      handler.NewVoidHandler(voids),
	}) {
		r.Register(g)
	}
	r.Setup()

	h := &apiHarness{t: t, engine: engine, parser: parser, staffID: uuid.New()}
	h.staff = h.token(h.staffID, "Sales Rep", false)
	h.finance = h.token(uuid.New(), "Finance", true)
	return h
}

func (h *apiHarness) token(userID uuid.UUID, name string, privileged bool) string {
	h.t.Helper()
	tok, err := h.parser.Issue(userID, name, privileged, time.Hour)
	require.NoError(h.t, err)
	return tok
}

func (h *apiHarness) do(method, path, token string, body any) (int, apiEnvelope) {
	h.t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(h.t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, "/api/v1"+path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	h.engine.ServeHTTP(w, req)

	var env apiEnvelope
	require.NoError(h.t, json.Unmarshal(w.Body.Bytes(), &env), w.Body.String())
	return w.Code, env
}

func decode[T any](t *testing.T, env apiEnvelope) T {
	t.Helper()
	var out T
	require.NoError(t, json.Unmarshal(env.Data, &out))
	return out
}

func (h *apiHarness) confirmedQuote(prices ...string) quoteBody {
	h.t.Helper()
	return h.confirmedQuoteFor(uuid.New(), prices...)
}

func (h *apiHarness) confirmedQuoteFor(customerID uuid.UUID, prices ...string) quoteBody {
	h.t.Helper()
	items := make([]map[string]any, 0, len(prices))
	for _, p := range prices {
		items = append(items, map[string]any{
			"fee_type":   "sequencing",
			"unit":       "sample",
			"quantity":   "1",
			"unit_price": p,
		})
	}
	code, env := h.do(http.MethodPost, "/quotes", h.staff, map[string]any{
		"customer_id":   customerID,
		"customer_name": "Acme Labs",
		"items":         items,
	})
	require.Equal(h.t, http.StatusCreated, code, env.Error)
	q := decode[quoteBody](h.t, env)
	assert.Equal(h.t, "DRAFT", q.Status)

	code, env = h.do(http.MethodPost, "/quotes/"+q.ID.String()+"/confirm", h.staff, nil)
	require.Equal(h.t, http.StatusOK, code, env.Error)
	return decode[quoteBody](h.t, env)
}

func paymentBodyFor(amount string) map[string]any {
	return map[string]any{
		"amount":  amount,
		"paid_at": time.Now().Add(-time.Hour).UTC().Format(time.RFC3339),
	}
}

func TestQuoteFinanceAPI_PaymentLifecycle(t *testing.T) {
	h := newAPIHarness(t)
	q := h.confirmedQuote("100", "200")
	assert.Equal(t, "CONFIRMED", q.Status)
	assert.True(t, decimal.NewFromInt(300).Equal(q.TotalAmount))

	code, env := h.do(http.MethodPost, "/quotes/"+q.ID.String()+"/payments", h.staff, paymentBodyFor("120"))
	require.Equal(t, http.StatusCreated, code, env.Error)
	p := decode[paymentBody](t, env)
	assert.Equal(t, "SUBMITTED", p.Status)

	code, env = h.do(http.MethodPost, "/payments/"+p.ID.String()+"/confirm", h.staff, map[string]any{"action": "CONFIRM"})
	assert.Equal(t, http.StatusForbidden, code)
	require.NotNil(t, env.Error)
	assert.Equal(t, shared.CodeForbidden, env.Error.Code)

	code, env = h.do(http.MethodPost, "/payments/"+p.ID.String()+"/confirm", h.finance, map[string]any{"action": "CONFIRM"})
	require.Equal(t, http.StatusOK, code, env.Error)
	assert.Equal(t, "CONFIRMED", decode[paymentBody](t, env).Status)

	code, env = h.do(http.MethodGet, "/quotes/"+q.ID.String()+"/unpaid", h.staff, nil)
	require.Equal(t, http.StatusOK, code)
	unpaid := decode[unpaidBody](t, env)
	assert.True(t, decimal.NewFromInt(300).Equal(unpaid.Total))
	assert.True(t, decimal.NewFromInt(120).Equal(unpaid.Paid))
	assert.True(t, decimal.NewFromInt(180).Equal(unpaid.Unpaid))

	code, env = h.do(http.MethodGet, "/quotes/"+q.ID.String(), h.staff, nil)
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, "PARTIAL", decode[quoteBody](t, env).PaymentStatus)
}

func TestQuoteFinanceAPI_FrozenQuoteRejectsPayments(t *testing.T) {
	h := newAPIHarness(t)
	q := h.confirmedQuote("500")

	code, env := h.do(http.MethodPost, "/quotes/"+q.ID.String()+"/void-applications", h.staff, map[string]any{
		"reason": "customer withdrew the order",
	})
	require.Equal(t, http.StatusCreated, code, env.Error)

	code, env = h.do(http.MethodPost, "/quotes/"+q.ID.String()+"/payments", h.staff, paymentBodyFor("50"))
	assert.Equal(t, http.StatusLocked, code)
	require.NotNil(t, env.Error)
	assert.Equal(t, shared.CodeFrozen, env.Error.Code)
	assert.NotEmpty(t, env.Error.RequestID)

	code, env = h.do(http.MethodGet, "/quotes/"+q.ID.String(), h.staff, nil)
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, "APPLYING", decode[quoteBody](t, env).VoidStatus)
}

func TestQuoteFinanceAPI_RequestErrors(t *testing.T) {
	h := newAPIHarness(t)

	t.Run("missing token", func(t *testing.T) {
		code, _ := h.do(http.MethodGet, "/quotes/"+uuid.NewString(), "", nil)
		assert.Equal(t, http.StatusUnauthorized, code)
	})

	t.Run("malformed id", func(t *testing.T) {
		code, env := h.do(http.MethodGet, "/quotes/not-a-uuid", h.staff, nil)
		assert.Equal(t, http.StatusBadRequest, code)
		require.NotNil(t, env.Error)
		assert.Equal(t, shared.CodeValidation, env.Error.Code)
	})

	t.Run("unknown quote", func(t *testing.T) {
		code, env := h.do(http.MethodGet, "/quotes/"+uuid.NewString(), h.staff, nil)
		assert.Equal(t, http.StatusNotFound, code)
		require.NotNil(t, env.Error)
		assert.Equal(t, shared.CodeNotFound, env.Error.Code)
	})

	t.Run("invalid confirm action", func(t *testing.T) {
		code, _ := h.do(http.MethodPost, "/payments/"+uuid.NewString()+"/confirm", h.finance, map[string]any{"action": "MAYBE"})
		assert.Equal(t, http.StatusBadRequest, code)
	})
}

func TestQuoteFinanceAPI_BatchPayment(t *testing.T) {
	h := newAPIHarness(t)
	customer := uuid.New()
	a := h.confirmedQuoteFor(customer, "100")
	b := h.confirmedQuoteFor(customer, "50")
	paidAt := time.Now().Add(-time.Hour).UTC().Format(time.RFC3339)

	code, env := h.do(http.MethodPost, "/payments/batch", h.staff, map[string]any{
		"quote_ids":    []uuid.UUID{a.ID, b.ID},
		"total_amount": "151",
		"paid_at":      paidAt,
	})
	assert.Equal(t, http.StatusUnprocessableEntity, code)
	require.NotNil(t, env.Error)
	assert.Equal(t, shared.CodeReconciliationMismatch, env.Error.Code)

	code, env = h.do(http.MethodPost, "/payments/batch", h.staff, map[string]any{
		"quote_ids":    []uuid.UUID{a.ID, b.ID},
		"total_amount": "150",
		"paid_at":      paidAt,
	})
	require.Equal(t, http.StatusCreated, code, env.Error)
	batch := decode[struct {
		BatchNo  string        `json:"batch_no"`
		Payments []paymentBody `json:"payments"`
	}](t, env)
	require.Len(t, batch.Payments, 2)
	for _, p := range batch.Payments {
		assert.Equal(t, "SUBMITTED", p.Status)
	}

	code, env = h.do(http.MethodGet, "/payments/batches/"+batch.BatchNo, h.staff, nil)
	require.Equal(t, http.StatusOK, code, env.Error)
	assert.Len(t, decode[[]paymentBody](t, env), 2)
}

func TestQuoteFinanceAPI_Listings(t *testing.T) {
	h := newAPIHarness(t)
	customer := uuid.New()
	q := h.confirmedQuoteFor(customer, "80")

	code, env := h.do(http.MethodPost, "/statements", h.staff, map[string]any{
		"customer_id": customer,
		"quote_ids":   []uuid.UUID{q.ID},
	})
	require.Equal(t, http.StatusCreated, code, env.Error)

	code, env = h.do(http.MethodGet, "/statements?status=PENDING&customer_id="+customer.String(), h.staff, nil)
	require.Equal(t, http.StatusOK, code, env.Error)
	assert.Len(t, decode[[]json.RawMessage](t, env), 1)

	code, env = h.do(http.MethodGet, "/statements?customer_id="+uuid.NewString(), h.staff, nil)
	require.Equal(t, http.StatusOK, code, env.Error)
	assert.Empty(t, decode[[]json.RawMessage](t, env))

	code, _ = h.do(http.MethodGet, "/statements?status=CLOSED", h.staff, nil)
	assert.Equal(t, http.StatusBadRequest, code)

	code, env = h.do(http.MethodGet, "/invoice-applications/mine", h.staff, nil)
	require.Equal(t, http.StatusOK, code, env.Error)
	assert.Empty(t, decode[[]json.RawMessage](t, env))
}
