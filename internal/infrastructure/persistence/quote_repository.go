package persistence

import (
	"context"
	"errors"
	"fmt"

	"github.com/erp/quotefinance/internal/domain/quote"
	"github.com/erp/quotefinance/internal/domain/shared"
	"github.com/erp/quotefinance/internal/infrastructure/persistence/models"
	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// GormQuoteRepository implements QuoteRepository using GORM
type GormQuoteRepository struct {
	db *gorm.DB
}

// NewGormQuoteRepository creates a new GormQuoteRepository
func NewGormQuoteRepository(db *gorm.DB) *GormQuoteRepository {
	return &GormQuoteRepository{db: db}
}

func preloadItems(db *gorm.DB) *gorm.DB {
	return db.Order("line_no ASC")
}

// FindByID finds a quote by ID with its items
func (r *GormQuoteRepository) FindByID(ctx context.Context, id uuid.UUID) (*quote.Quote, error) {
	var model models.QuoteModel
	if err := r.db.WithContext(ctx).
		Preload("Items", preloadItems).
		First(&model, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.NewNotFoundError("quote %s not found", id)
		}
		return nil, err
	}
	return model.ToDomain(), nil
}

// FindByIDForUpdate loads a quote with a row lock (SELECT ... FOR UPDATE).
// Must be called inside a transaction.
func (r *GormQuoteRepository) FindByIDForUpdate(ctx context.Context, id uuid.UUID) (*quote.Quote, error) {
	var model models.QuoteModel
	if err := r.db.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		Preload("Items", preloadItems).
		First(&model, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.NewNotFoundError("quote %s not found", id)
		}
		return nil, err
	}
	return model.ToDomain(), nil
}

// FindByIDsForUpdate locks the given quotes in ascending id order so that
// concurrent multi-quote operations cannot deadlock.
func (r *GormQuoteRepository) FindByIDsForUpdate(ctx context.Context, ids []uuid.UUID) ([]quote.Quote, error) {
	if len(ids) == 0 {
		return []quote.Quote{}, nil
	}
	var quoteModels []models.QuoteModel
	if err := r.db.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		Preload("Items", preloadItems).
		Where("id IN ?", ids).
		Order("id ASC").
		Find(&quoteModels).Error; err != nil {
		return nil, err
	}
	if len(quoteModels) != len(uniqueIDs(ids)) {
		found := make(map[uuid.UUID]bool, len(quoteModels))
		for _, m := range quoteModels {
			found[m.ID] = true
		}
		for _, id := range ids {
			if !found[id] {
				return nil, shared.NewNotFoundError("quote %s not found", id)
			}
		}
	}
	quotes := make([]quote.Quote, len(quoteModels))
	for i := range quoteModels {
		quotes[i] = *quoteModels[i].ToDomain()
	}
	return quotes, nil
}

// FindByQuoteNo finds a quote by its number
func (r *GormQuoteRepository) FindByQuoteNo(ctx context.Context, quoteNo string) (*quote.Quote, error) {
	var model models.QuoteModel
	if err := r.db.WithContext(ctx).
		Preload("Items", preloadItems).
		First(&model, "quote_no = ?", quoteNo).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.NewNotFoundError("quote %s not found", quoteNo)
		}
		return nil, err
	}
	return model.ToDomain(), nil
}

// FindAll lists quotes matching the filter and returns the total match count
func (r *GormQuoteRepository) FindAll(ctx context.Context, filter quote.QuoteFilter) ([]quote.Quote, int64, error) {
	query := r.db.WithContext(ctx).Model(&models.QuoteModel{})

	if filter.CustomerID != nil {
		query = query.Where("customer_id = ?", *filter.CustomerID)
	}
	if filter.CollectorID != nil {
		query = query.Where("collector_id = ?", *filter.CollectorID)
	}
	if filter.Status != "" {
		query = query.Where("status = ?", filter.Status)
	}
	if filter.PaymentStatus != "" {
		query = query.Where("payment_status = ?", filter.PaymentStatus)
	}
	if filter.InvoiceStatus != "" {
		query = query.Where("invoice_status = ?", filter.InvoiceStatus)
	}
	if filter.Search != "" {
		like := "%" + filter.Search + "%"
		query = query.Where("quote_no LIKE ? OR customer_name LIKE ?", like, like)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	query = query.Order(orderClause(filter.OrderBy, filter.OrderDir, QuoteSortFields, "created_at"))
	if filter.PageSize > 0 {
		query = query.Limit(filter.PageSize).Offset(filter.Offset())
	}

	var quoteModels []models.QuoteModel
	if err := query.Preload("Items", preloadItems).Find(&quoteModels).Error; err != nil {
		return nil, 0, err
	}
	quotes := make([]quote.Quote, len(quoteModels))
	for i := range quoteModels {
		quotes[i] = *quoteModels[i].ToDomain()
	}
	return quotes, total, nil
}

// Save upserts the quote header and reconciles its item rows
func (r *GormQuoteRepository) Save(ctx context.Context, q *quote.Quote) error {
	model := models.QuoteFromDomain(q)
	db := r.db.WithContext(ctx)

	if err := db.Omit(clause.Associations).Save(model).Error; err != nil {
		return fmt.Errorf("save quote %s: %w", q.QuoteNo, err)
	}

	keep := make([]uuid.UUID, 0, len(model.Items))
	for _, item := range model.Items {
		keep = append(keep, item.ID)
	}
	del := db.Where("quote_id = ?", q.ID)
	if len(keep) > 0 {
		del = del.Where("id NOT IN ?", keep)
	}
	if err := del.Delete(&models.QuoteItemModel{}).Error; err != nil {
		return fmt.Errorf("prune items of quote %s: %w", q.QuoteNo, err)
	}
	if len(model.Items) > 0 {
		if err := db.Save(&model.Items).Error; err != nil {
			return fmt.Errorf("save items of quote %s: %w", q.QuoteNo, err)
		}
	}
	return nil
}

func uniqueIDs(ids []uuid.UUID) map[uuid.UUID]struct{} {
	set := make(map[uuid.UUID]struct{}, len(ids))
	for _, id := range ids {
		set[id] = struct{}{}
	}
	return set
}

// GormVoidApplicationRepository implements VoidApplicationRepository using GORM
type GormVoidApplicationRepository struct {
	db *gorm.DB
}

// NewGormVoidApplicationRepository creates a new GormVoidApplicationRepository
func NewGormVoidApplicationRepository(db *gorm.DB) *GormVoidApplicationRepository {
	return &GormVoidApplicationRepository{db: db}
}

// FindByID finds a void application by ID
func (r *GormVoidApplicationRepository) FindByID(ctx context.Context, id uuid.UUID) (*quote.VoidApplication, error) {
	return r.find(r.db.WithContext(ctx), id)
}

// FindByIDForUpdate finds a void application by ID and locks the row
func (r *GormVoidApplicationRepository) FindByIDForUpdate(ctx context.Context, id uuid.UUID) (*quote.VoidApplication, error) {
	return r.find(r.db.WithContext(ctx).Clauses(clause.Locking{Strength: "UPDATE"}), id)
}

func (r *GormVoidApplicationRepository) find(db *gorm.DB, id uuid.UUID) (*quote.VoidApplication, error) {
	var model models.VoidApplicationModel
	if err := db.First(&model, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.NewNotFoundError("void application %s not found", id)
		}
		return nil, err
	}
	return model.ToDomain(), nil
}

// FindByQuote lists the void applications of a quote, newest first
func (r *GormVoidApplicationRepository) FindByQuote(ctx context.Context, quoteID uuid.UUID) ([]quote.VoidApplication, error) {
	var appModels []models.VoidApplicationModel
	if err := r.db.WithContext(ctx).
		Where("quote_id = ?", quoteID).
		Order("applied_at DESC").
		Find(&appModels).Error; err != nil {
		return nil, err
	}
	apps := make([]quote.VoidApplication, len(appModels))
	for i := range appModels {
		apps[i] = *appModels[i].ToDomain()
	}
	return apps, nil
}

// Save upserts a void application
func (r *GormVoidApplicationRepository) Save(ctx context.Context, a *quote.VoidApplication) error {
	model := &models.VoidApplicationModel{}
	model.FromDomain(a)
	if err := r.db.WithContext(ctx).Save(model).Error; err != nil {
		return fmt.Errorf("save void application %s: %w", a.ID, err)
	}
	return nil
}

// GormWorkflowHistoryRepository implements WorkflowHistoryRepository using GORM
type GormWorkflowHistoryRepository struct {
	db *gorm.DB
}

// NewGormWorkflowHistoryRepository creates a new GormWorkflowHistoryRepository
func NewGormWorkflowHistoryRepository(db *gorm.DB) *GormWorkflowHistoryRepository {
	return &GormWorkflowHistoryRepository{db: db}
}

// Append inserts a history entry
func (r *GormWorkflowHistoryRepository) Append(ctx context.Context, h *quote.WorkflowHistory) error {
	model := &models.WorkflowHistoryModel{}
	model.FromDomain(h)
	return r.db.WithContext(ctx).Create(model).Error
}

// FindByQuote returns the history of a quote in chronological order
func (r *GormWorkflowHistoryRepository) FindByQuote(ctx context.Context, quoteID uuid.UUID) ([]quote.WorkflowHistory, error) {
	var historyModels []models.WorkflowHistoryModel
	if err := r.db.WithContext(ctx).
		Where("quote_id = ?", quoteID).
		Order("created_at ASC").
		Find(&historyModels).Error; err != nil {
		return nil, err
	}
	entries := make([]quote.WorkflowHistory, len(historyModels))
	for i := range historyModels {
		entries[i] = *historyModels[i].ToDomain()
	}
	return entries, nil
}

// Ensure interfaces are implemented
var (
	_ quote.QuoteRepository           = (*GormQuoteRepository)(nil)
	_ quote.VoidApplicationRepository = (*GormVoidApplicationRepository)(nil)
	_ quote.WorkflowHistoryRepository = (*GormWorkflowHistoryRepository)(nil)
)
