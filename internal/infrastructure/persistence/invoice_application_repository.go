package persistence

import (
	"context"
	"errors"
	"fmt"

	"github.com/erp/quotefinance/internal/domain/invoice"
	"github.com/erp/quotefinance/internal/domain/shared"
	"github.com/erp/quotefinance/internal/infrastructure/persistence/models"
	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// GormInvoiceApplicationRepository implements InvoiceApplicationRepository using GORM
type GormInvoiceApplicationRepository struct {
	db *gorm.DB
}

// NewGormInvoiceApplicationRepository creates a new GormInvoiceApplicationRepository
func NewGormInvoiceApplicationRepository(db *gorm.DB) *GormInvoiceApplicationRepository {
	return &GormInvoiceApplicationRepository{db: db}
}

// FindByID finds an application with its records and item refs
func (r *GormInvoiceApplicationRepository) FindByID(ctx context.Context, id uuid.UUID) (*invoice.InvoiceApplication, error) {
	return r.findOne(r.db.WithContext(ctx), id)
}

// FindByIDForUpdate finds an application and locks its header row
func (r *GormInvoiceApplicationRepository) FindByIDForUpdate(ctx context.Context, id uuid.UUID) (*invoice.InvoiceApplication, error) {
	return r.findOne(r.db.WithContext(ctx).Clauses(clause.Locking{Strength: "UPDATE"}), id)
}

func (r *GormInvoiceApplicationRepository) findOne(db *gorm.DB, id uuid.UUID) (*invoice.InvoiceApplication, error) {
	var model models.InvoiceApplicationModel
	if err := db.
		Preload("Records.Items").
		First(&model, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.NewNotFoundError("invoice application %s not found", id)
		}
		return nil, err
	}
	return model.ToDomain(), nil
}

// FindPendingByQuote returns PENDING applications that reference the quote
func (r *GormInvoiceApplicationRepository) FindPendingByQuote(ctx context.Context, quoteID uuid.UUID) ([]invoice.InvoiceApplication, error) {
	refs := r.db.WithContext(ctx).
		Model(&models.InvoiceItemRefModel{}).
		Select("invoice_records.application_id").
		Joins("JOIN invoice_records ON invoice_records.id = invoice_item_refs.record_id").
		Where("invoice_item_refs.quote_id = ?", quoteID)

	var appModels []models.InvoiceApplicationModel
	if err := r.db.WithContext(ctx).
		Preload("Records.Items").
		Where("status = ? AND id IN (?)", invoice.StatusPending, refs).
		Order("id ASC").
		Find(&appModels).Error; err != nil {
		return nil, err
	}
	apps := make([]invoice.InvoiceApplication, len(appModels))
	for i := range appModels {
		apps[i] = *appModels[i].ToDomain()
	}
	return apps, nil
}

// FindByCollector lists a collector's applications, newest first
func (r *GormInvoiceApplicationRepository) FindByCollector(ctx context.Context, collectorID uuid.UUID) ([]invoice.InvoiceApplication, error) {
	var appModels []models.InvoiceApplicationModel
	if err := r.db.WithContext(ctx).
		Preload("Records.Items").
		Where("collector_id = ?", collectorID).
		Order("created_at DESC").
		Find(&appModels).Error; err != nil {
		return nil, err
	}
	apps := make([]invoice.InvoiceApplication, len(appModels))
	for i := range appModels {
		apps[i] = *appModels[i].ToDomain()
	}
	return apps, nil
}

// Save upserts the application header. Records and item refs are immutable
// once created, so they are only inserted.
func (r *GormInvoiceApplicationRepository) Save(ctx context.Context, a *invoice.InvoiceApplication) error {
	model := &models.InvoiceApplicationModel{}
	model.FromDomain(a)
	db := r.db.WithContext(ctx)

	if err := db.Omit(clause.Associations).Save(model).Error; err != nil {
		return fmt.Errorf("save invoice application %s: %w", a.ApplicationNo, err)
	}
	for i := range model.Records {
		record := model.Records[i]
		if err := db.Clauses(clause.OnConflict{DoNothing: true}).Omit(clause.Associations).Create(&record).Error; err != nil {
			return fmt.Errorf("save invoice record %s: %w", record.ID, err)
		}
		if len(record.Items) > 0 {
			if err := db.Clauses(clause.OnConflict{DoNothing: true}).Create(&record.Items).Error; err != nil {
				return fmt.Errorf("save item refs of record %s: %w", record.ID, err)
			}
		}
	}
	return nil
}

// Ensure GormInvoiceApplicationRepository implements InvoiceApplicationRepository
var _ invoice.InvoiceApplicationRepository = (*GormInvoiceApplicationRepository)(nil)
