package db

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/harbourlight/conductor/internal/models"
)

// PartRepository handles database operations for parts
type PartRepository struct {
	db *DB
}

// NewPartRepository creates a new part repository
func NewPartRepository(db *DB) *PartRepository {
	return &PartRepository{db: db}
}

// Create inserts a new part
func (r *PartRepository) Create(ctx context.Context, part *models.Part) error {
	result := r.db.WithContext(ctx).Create(part)
	if result.Error != nil {
		return fmt.Errorf("failed to create part: %w", MapGormError(result.Error))
	}
	return nil
}

// ListByRundownIDs retrieves parts for the given rundowns in rank order.
// Callers re-sort into full playlist order (rundown, segment, part rank)
// once segments are loaded.
func (r *PartRepository) ListByRundownIDs(ctx context.Context, rundownIDs []uuid.UUID) ([]models.Part, error) {
	if len(rundownIDs) == 0 {
		return nil, nil
	}
	var parts []models.Part
	result := r.db.WithContext(ctx).
		Where("rundown_id IN ?", uuidStrings(rundownIDs)).
		Order("rank ASC").
		Find(&parts)
	if result.Error != nil {
		return nil, fmt.Errorf("failed to list parts: %w", MapGormError(result.Error))
	}
	return parts, nil
}
