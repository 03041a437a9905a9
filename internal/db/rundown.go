package db

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/harbourlight/conductor/internal/models"
)

// RundownRepository handles database operations for rundowns
type RundownRepository struct {
	db *DB
}

// NewRundownRepository creates a new rundown repository
func NewRundownRepository(db *DB) *RundownRepository {
	return &RundownRepository{db: db}
}

// Create inserts a new rundown
func (r *RundownRepository) Create(ctx context.Context, rundown *models.Rundown) error {
	result := r.db.WithContext(ctx).Create(rundown)
	if result.Error != nil {
		return fmt.Errorf("failed to create rundown: %w", MapGormError(result.Error))
	}
	return nil
}

// GetByID retrieves a rundown by its UUID
func (r *RundownRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.Rundown, error) {
	var rundown models.Rundown
	result := r.db.WithContext(ctx).Where("id = ?", id.String()).First(&rundown)
	if result.Error != nil {
		return nil, MapGormError(result.Error)
	}
	return &rundown, nil
}

// ListByPlaylist retrieves a playlist's rundowns in running order
func (r *RundownRepository) ListByPlaylist(ctx context.Context, playlistID uuid.UUID) ([]models.Rundown, error) {
	var rundowns []models.Rundown
	result := r.db.WithContext(ctx).
		Where("playlist_id = ?", playlistID.String()).
		Order("rank ASC").
		Find(&rundowns)
	if result.Error != nil {
		return nil, fmt.Errorf("failed to list rundowns: %w", MapGormError(result.Error))
	}
	return rundowns, nil
}
