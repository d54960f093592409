package persistence

import (
	"context"
	"fmt"
	"time"

	"github.com/erp/quotefinance/internal/domain/shared"
	"github.com/erp/quotefinance/internal/infrastructure/persistence/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// GormNumberSequence issues daily counters from the number_sequences table.
// The upsert takes a row lock, so two transactions asking for the same
// scope and day are serialized and never receive the same value.
type GormNumberSequence struct {
	db *gorm.DB
}

// NewGormNumberSequence creates a new GormNumberSequence
func NewGormNumberSequence(db *gorm.DB) *GormNumberSequence {
	return &GormNumberSequence{db: db}
}

// Next increments and returns the counter for scope on day
func (s *GormNumberSequence) Next(ctx context.Context, scope string, day time.Time) (int64, error) {
	dayKey := day.Format("20060102")
	db := s.db.WithContext(ctx)

	row := models.NumberSequenceModel{
		Scope:     scope,
		Day:       dayKey,
		LastValue: 1,
		UpdatedAt: shared.Now(),
	}
	if err := db.Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "scope"}, {Name: "day"}},
		DoUpdates: clause.Assignments(map[string]interface{}{
			"last_value": gorm.Expr("number_sequences.last_value + 1"),
			"updated_at": row.UpdatedAt,
		}),
	}).Create(&row).Error; err != nil {
		return 0, fmt.Errorf("advance sequence %s/%s: %w", scope, dayKey, err)
	}

	var value int64
	if err := db.Model(&models.NumberSequenceModel{}).
		Where("scope = ? AND day = ?", scope, dayKey).
		Select("last_value").
		Scan(&value).Error; err != nil {
		return 0, fmt.Errorf("read sequence %s/%s: %w", scope, dayKey, err)
	}
	return value, nil
}

// Ensure GormNumberSequence implements NumberSequence
var _ shared.NumberSequence = (*GormNumberSequence)(nil)
