package db

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/harbourlight/conductor/internal/models"
)

// SegmentRepository handles database operations for segments
type SegmentRepository struct {
	db *DB
}

// NewSegmentRepository creates a new segment repository
func NewSegmentRepository(db *DB) *SegmentRepository {
	return &SegmentRepository{db: db}
}

// Create inserts a new segment
func (r *SegmentRepository) Create(ctx context.Context, segment *models.Segment) error {
	result := r.db.WithContext(ctx).Create(segment)
	if result.Error != nil {
		return fmt.Errorf("failed to create segment: %w", MapGormError(result.Error))
	}
	return nil
}

// ListByRundownIDs retrieves segments for the given rundowns in rank order
func (r *SegmentRepository) ListByRundownIDs(ctx context.Context, rundownIDs []uuid.UUID) ([]models.Segment, error) {
	if len(rundownIDs) == 0 {
		return nil, nil
	}
	var segments []models.Segment
	result := r.db.WithContext(ctx).
		Where("rundown_id IN ?", uuidStrings(rundownIDs)).
		Order("rank ASC").
		Find(&segments)
	if result.Error != nil {
		return nil, fmt.Errorf("failed to list segments: %w", MapGormError(result.Error))
	}
	return segments, nil
}

// DeleteOrphanedTx removes orphaned-deleted segments inside an existing
// transaction. Used by the deferred cleanup job, never by scheduling jobs.
func (r *SegmentRepository) DeleteOrphanedTx(tx *gorm.DB, segmentIDs []uuid.UUID) error {
	if len(segmentIDs) == 0 {
		return nil
	}
	err := tx.
		Where("id IN ? AND orphaned = ?", uuidStrings(segmentIDs), string(models.SegmentOrphanedDeleted)).
		Delete(&models.Segment{}).Error
	if err != nil {
		return fmt.Errorf("failed to delete orphaned segments: %w", MapGormError(err))
	}
	return nil
}

func uuidStrings(ids []uuid.UUID) []string {
	out := make([]string, len(ids))
	for i, id := range ids {
		out[i] = id.String()
	}
	return out
}
