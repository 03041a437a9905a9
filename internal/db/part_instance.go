package db

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/harbourlight/conductor/internal/models"
)

// PartInstanceRepository handles database operations for part instances
type PartInstanceRepository struct {
	db *DB
}

// NewPartInstanceRepository creates a new part instance repository
func NewPartInstanceRepository(db *DB) *PartInstanceRepository {
	return &PartInstanceRepository{db: db}
}

// GetByID retrieves a part instance by its UUID
func (r *PartInstanceRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.PartInstance, error) {
	var instance models.PartInstance
	result := r.db.WithContext(ctx).Where("id = ?", id.String()).First(&instance)
	if result.Error != nil {
		return nil, MapGormError(result.Error)
	}
	return &instance, nil
}

// ListByActivation retrieves every part instance of one playlist activation,
// ordered by take count. Reset instances are included; the playout model
// ignores them but cleanup needs to see them.
func (r *PartInstanceRepository) ListByActivation(ctx context.Context, activationID uuid.UUID) ([]models.PartInstance, error) {
	var instances []models.PartInstance
	result := r.db.WithContext(ctx).
		Where("playlist_activation_id = ?", activationID.String()).
		Order("take_count ASC").
		Find(&instances)
	if result.Error != nil {
		return nil, fmt.Errorf("failed to list part instances: %w", MapGormError(result.Error))
	}
	return instances, nil
}

// SaveTx upserts a part instance inside an existing transaction
func (r *PartInstanceRepository) SaveTx(tx *gorm.DB, instance *models.PartInstance) error {
	instance.UpdatedAt = time.Now().UTC()
	if err := tx.Save(instance).Error; err != nil {
		return fmt.Errorf("failed to save part instance: %w", MapGormError(err))
	}
	return nil
}

// DeleteResetByPlaylist removes reset instances of a playlist, used by the
// deferred orphan cleanup job.
func (r *PartInstanceRepository) DeleteResetByPlaylist(ctx context.Context, playlistID uuid.UUID) error {
	result := r.db.WithContext(ctx).
		Where("playlist_id = ? AND reset = ?", playlistID.String(), true).
		Delete(&models.PartInstance{})
	if result.Error != nil {
		return fmt.Errorf("failed to delete reset part instances: %w", MapGormError(result.Error))
	}
	return nil
}

// DeleteByID removes one part instance, used by deferred orphan cleanup.
func (r *PartInstanceRepository) DeleteByID(ctx context.Context, id uuid.UUID) error {
	result := r.db.WithContext(ctx).Where("id = ?", id.String()).Delete(&models.PartInstance{})
	if result.Error != nil {
		return fmt.Errorf("failed to delete part instance: %w", MapGormError(result.Error))
	}
	return nil
}
