//go:build integration

package persistence_test

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
	"github.com/testcontainers/testcontainers-go"
	tcpostgres "github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"
	"go.uber.org/zap"
	gormpostgres "gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	quoteapp "github.com/erp/quotefinance/internal/application/quote"
	"github.com/erp/quotefinance/internal/domain/shared"
	"github.com/erp/quotefinance/internal/infrastructure/migration"
	"github.com/erp/quotefinance/internal/infrastructure/persistence"
	"github.com/erp/quotefinance/migrations"
)

// newPostgresDB starts a throwaway PostgreSQL container and applies the
// embedded migrations.
func newPostgresDB(t *testing.T) *gorm.DB {
	t.Helper()
	ctx := context.Background()

	container, err := tcpostgres.Run(ctx,
		"postgres:16-alpine",
		tcpostgres.WithDatabase("quotefinance_test"),
		tcpostgres.WithUsername("postgres"),
		tcpostgres.WithPassword("postgres"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(60*time.Second)),
	)
	require.NoError(t, err, "Failed to start PostgreSQL container")
	t.Cleanup(func() { _ = container.Terminate(ctx) })

	dsn, err := container.ConnectionString(ctx, "sslmode=disable")
	require.NoError(t, err)

	db, err := gorm.Open(gormpostgres.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(10)
	t.Cleanup(func() { _ = sqlDB.Close() })

	m, err := migration.New(sqlDB, migrations.FS, zap.NewNop())
	require.NoError(t, err)
	require.NoError(t, m.Up())
	return db
}

type pgServices struct {
	quotes   *quoteapp.QuoteService
	payments *quoteapp.PaymentService
	voids    *quoteapp.VoidService
}

func newPGServices(t *testing.T) *pgServices {
	db := newPostgresDB(t)
	scope := persistence.NewGormTransactionScope(db)
	cfg := quoteapp.DefaultConfig()
	quotes := quoteapp.NewQuoteService(scope, nil, cfg, zap.NewNop())
	return &pgServices{
		quotes:   quotes,
		payments: quoteapp.NewPaymentService(scope, quotes, cfg, zap.NewNop()),
		voids:    quoteapp.NewVoidService(scope, zap.NewNop()),
	}
}

func (s *pgServices) confirmedQuote(t *testing.T, staff uuid.UUID, price string) *quoteapp.QuoteResponse {
	t.Helper()
	ctx := context.Background()
	q, err := s.quotes.CreateDraft(ctx, staff, quoteapp.CreateQuoteRequest{
		CustomerID:   uuid.New(),
		CustomerName: "Acme Labs",
		Items: []quoteapp.CreateQuoteItemInput{{
			FeeType:   "sequencing",
			Unit:      "sample",
			Quantity:  decimal.NewFromInt(1),
			UnitPrice: decimal.RequireFromString(price),
		}},
	})
	require.NoError(t, err)
	q, err = s.quotes.Confirm(ctx, q.ID, staff)
	require.NoError(t, err)
	return q
}

func codeOf(err error) string {
	var de *shared.DomainError
	if errors.As(err, &de) {
		return de.Code
	}
	return ""
}

func TestPostgres_ConcurrentConfirmsNeverOverpay(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping container test in short mode")
	}
	svc := newPGServices(t)
	ctx := context.Background()
	staff, finance := uuid.New(), uuid.New()
	q := svc.confirmedQuote(t, staff, "100")

	const workers = 4
	ids := make([]uuid.UUID, workers)
	for i := range ids {
		p, err := svc.payments.Submit(ctx, q.ID, staff, false, quoteapp.SubmitPaymentRequest{
			Amount: decimal.NewFromInt(60),
			PaidAt: time.Now().Add(-time.Minute),
		})
		require.NoError(t, err)
		ids[i] = p.ID
	}

	errs := make([]error, workers)
	var wg sync.WaitGroup
	for i, id := range ids {
		wg.Add(1)
		go func(i int, id uuid.UUID) {
			defer wg.Done()
			_, errs[i] = svc.payments.FinanceConfirm(ctx, id, finance, quoteapp.ConfirmPaymentRequest{
				Action:   "CONFIRM",
				Strategy: "REJECT",
			})
		}(i, id)
	}
	wg.Wait()

	confirmed := 0
	for _, err := range errs {
		if err == nil {
			confirmed++
			continue
		}
		assert.Equal(t, shared.CodeOverpayment, codeOf(err), err)
	}
	assert.Equal(t, 1, confirmed)

	unpaid, err := svc.payments.GetUnpaidAmount(ctx, q.ID)
	require.NoError(t, err)
	assert.True(t, decimal.NewFromInt(60).Equal(unpaid.Paid), unpaid.Paid.String())
	assert.True(t, decimal.NewFromInt(40).Equal(unpaid.Unpaid), unpaid.Unpaid.String())
}

func TestPostgres_VoidApplicationRacesSubmission(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping container test in short mode")
	}
	svc := newPGServices(t)
	ctx := context.Background()
	staff := uuid.New()
	q := svc.confirmedQuote(t, staff, "100")

	var wg sync.WaitGroup
	var voidErr, submitErr error
	wg.Add(2)
	go func() {
		defer wg.Done()
		_, voidErr = svc.voids.Apply(ctx, q.ID, staff, quoteapp.ApplyVoidRequest{Reason: "duplicate order"})
	}()
	go func() {
		defer wg.Done()
		_, submitErr = svc.payments.Submit(ctx, q.ID, staff, false, quoteapp.SubmitPaymentRequest{
			Amount: decimal.NewFromInt(10),
			PaidAt: time.Now().Add(-time.Minute),
		})
	}()
	wg.Wait()

	require.NoError(t, voidErr)
	if submitErr != nil {
		// Serialized behind the void: the quote was already frozen.
		assert.Equal(t, shared.CodeFrozen, codeOf(submitErr))
	}

	after, err := svc.quotes.Get(ctx, q.ID)
	require.NoError(t, err)
	assert.Equal(t, "APPLYING", after.VoidStatus)
}
