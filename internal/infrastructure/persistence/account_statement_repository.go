package persistence

import (
	"context"
	"errors"
	"fmt"

	"github.com/erp/quotefinance/internal/domain/shared"
	"github.com/erp/quotefinance/internal/domain/statement"
	"github.com/erp/quotefinance/internal/infrastructure/persistence/models"
	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// GormAccountStatementRepository implements AccountStatementRepository using GORM
type GormAccountStatementRepository struct {
	db *gorm.DB
}

// NewGormAccountStatementRepository creates a new GormAccountStatementRepository
func NewGormAccountStatementRepository(db *gorm.DB) *GormAccountStatementRepository {
	return &GormAccountStatementRepository{db: db}
}

// FindByID finds a statement with its items
func (r *GormAccountStatementRepository) FindByID(ctx context.Context, id uuid.UUID) (*statement.AccountStatement, error) {
	return r.findOne(r.db.WithContext(ctx), id)
}

// FindByIDForUpdate finds a statement and locks its header row
func (r *GormAccountStatementRepository) FindByIDForUpdate(ctx context.Context, id uuid.UUID) (*statement.AccountStatement, error) {
	return r.findOne(r.db.WithContext(ctx).Clauses(clause.Locking{Strength: "UPDATE"}), id)
}

func (r *GormAccountStatementRepository) findOne(db *gorm.DB, id uuid.UUID) (*statement.AccountStatement, error) {
	var model models.AccountStatementModel
	if err := db.
		Preload("Items", func(db *gorm.DB) *gorm.DB { return db.Order("quote_no ASC") }).
		First(&model, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.NewNotFoundError("account statement %s not found", id)
		}
		return nil, err
	}
	return model.ToDomain(), nil
}

// FindAll lists statements newest first, optionally by customer and status
func (r *GormAccountStatementRepository) FindAll(ctx context.Context, filter statement.ListFilter) ([]statement.AccountStatement, error) {
	query := r.db.WithContext(ctx).
		Preload("Items", func(db *gorm.DB) *gorm.DB { return db.Order("quote_no ASC") })
	if filter.CustomerID != nil {
		query = query.Where("customer_id = ?", *filter.CustomerID)
	}
	if filter.Status != "" {
		query = query.Where("status = ?", filter.Status)
	}

	var stModels []models.AccountStatementModel
	if err := query.Order("created_at DESC").Find(&stModels).Error; err != nil {
		return nil, err
	}
	statements := make([]statement.AccountStatement, len(stModels))
	for i := range stModels {
		statements[i] = *stModels[i].ToDomain()
	}
	return statements, nil
}

// Save upserts the statement header and reconciles its snapshot rows
func (r *GormAccountStatementRepository) Save(ctx context.Context, s *statement.AccountStatement) error {
	model := &models.AccountStatementModel{}
	model.FromDomain(s)
	db := r.db.WithContext(ctx)

	if err := db.Omit(clause.Associations).Save(model).Error; err != nil {
		return fmt.Errorf("save account statement %s: %w", s.StatementNo, err)
	}

	keep := make([]uuid.UUID, 0, len(model.Items))
	for _, it := range model.Items {
		keep = append(keep, it.ID)
	}
	del := db.Where("statement_id = ?", s.ID)
	if len(keep) > 0 {
		del = del.Where("id NOT IN ?", keep)
	}
	if err := del.Delete(&models.AccountStatementItemModel{}).Error; err != nil {
		return fmt.Errorf("prune items of statement %s: %w", s.StatementNo, err)
	}
	if len(model.Items) > 0 {
		if err := db.Clauses(clause.OnConflict{DoNothing: true}).Create(&model.Items).Error; err != nil {
			return fmt.Errorf("save items of statement %s: %w", s.StatementNo, err)
		}
	}
	return nil
}

// Ensure GormAccountStatementRepository implements AccountStatementRepository
var _ statement.AccountStatementRepository = (*GormAccountStatementRepository)(nil)
