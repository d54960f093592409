package persistence

import (
	"context"
	"errors"
	"fmt"

	"github.com/erp/quotefinance/internal/domain/payment"
	"github.com/erp/quotefinance/internal/domain/shared"
	"github.com/erp/quotefinance/internal/infrastructure/persistence/models"
	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// GormPaymentRepository implements PaymentRepository using GORM
type GormPaymentRepository struct {
	db *gorm.DB
}

// NewGormPaymentRepository creates a new GormPaymentRepository
func NewGormPaymentRepository(db *gorm.DB) *GormPaymentRepository {
	return &GormPaymentRepository{db: db}
}

// FindByID finds a payment by ID
func (r *GormPaymentRepository) FindByID(ctx context.Context, id uuid.UUID) (*payment.Payment, error) {
	return r.findOne(r.db.WithContext(ctx), id)
}

// FindByIDForUpdate finds a payment by ID and locks the row
func (r *GormPaymentRepository) FindByIDForUpdate(ctx context.Context, id uuid.UUID) (*payment.Payment, error) {
	return r.findOne(r.db.WithContext(ctx).Clauses(clause.Locking{Strength: "UPDATE"}), id)
}

func (r *GormPaymentRepository) findOne(db *gorm.DB, id uuid.UUID) (*payment.Payment, error) {
	var model models.PaymentModel
	if err := db.First(&model, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.NewNotFoundError("payment %s not found", id)
		}
		return nil, err
	}
	return model.ToDomain(), nil
}

// FindByIDsForUpdate locks the payments in ascending id order. Every id must exist.
func (r *GormPaymentRepository) FindByIDsForUpdate(ctx context.Context, ids []uuid.UUID) ([]payment.Payment, error) {
	if len(ids) == 0 {
		return []payment.Payment{}, nil
	}
	payments, err := r.findMany(r.db.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("id IN ?", ids).
		Order("id ASC"))
	if err != nil {
		return nil, err
	}
	if len(payments) != len(uniqueIDs(ids)) {
		found := make(map[uuid.UUID]bool, len(payments))
		for _, p := range payments {
			found[p.ID] = true
		}
		for _, id := range ids {
			if !found[id] {
				return nil, shared.NewNotFoundError("payment %s not found", id)
			}
		}
	}
	return payments, nil
}

// FindByQuote lists every payment of a quote in submission order
func (r *GormPaymentRepository) FindByQuote(ctx context.Context, quoteID uuid.UUID) ([]payment.Payment, error) {
	return r.findMany(r.db.WithContext(ctx).
		Where("quote_id = ?", quoteID).
		Order("submitted_at ASC"))
}

// FindByQuoteAndStatus lists the payments of a quote in one status
func (r *GormPaymentRepository) FindByQuoteAndStatus(ctx context.Context, quoteID uuid.UUID, status payment.Status) ([]payment.Payment, error) {
	return r.findMany(r.db.WithContext(ctx).
		Where("quote_id = ? AND status = ?", quoteID, status).
		Order("submitted_at ASC"))
}

// FindByStatement lists the payments bound to a statement
func (r *GormPaymentRepository) FindByStatement(ctx context.Context, statementID uuid.UUID) ([]payment.Payment, error) {
	return r.findMany(r.db.WithContext(ctx).
		Where("statement_id = ?", statementID).
		Order("submitted_at ASC"))
}

// FindByBatch lists the payments submitted together under one batch number
func (r *GormPaymentRepository) FindByBatch(ctx context.Context, batchNo string) ([]payment.Payment, error) {
	return r.findMany(r.db.WithContext(ctx).
		Where("batch_no = ?", batchNo).
		Order("submitted_at ASC, id ASC"))
}

func (r *GormPaymentRepository) findMany(query *gorm.DB) ([]payment.Payment, error) {
	var paymentModels []models.PaymentModel
	if err := query.Find(&paymentModels).Error; err != nil {
		return nil, err
	}
	payments := make([]payment.Payment, len(paymentModels))
	for i := range paymentModels {
		payments[i] = *paymentModels[i].ToDomain()
	}
	return payments, nil
}

// Save upserts a payment
func (r *GormPaymentRepository) Save(ctx context.Context, p *payment.Payment) error {
	model := &models.PaymentModel{}
	model.FromDomain(p)
	if err := r.db.WithContext(ctx).Save(model).Error; err != nil {
		return fmt.Errorf("save payment %s: %w", p.ID, err)
	}
	return nil
}

// Ensure GormPaymentRepository implements PaymentRepository
var _ payment.PaymentRepository = (*GormPaymentRepository)(nil)
