package db

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/harbourlight/conductor/internal/models"
)

// PieceInstanceRepository handles database operations for piece instances
type PieceInstanceRepository struct {
	db *DB
}

// NewPieceInstanceRepository creates a new piece instance repository
func NewPieceInstanceRepository(db *DB) *PieceInstanceRepository {
	return &PieceInstanceRepository{db: db}
}

// ListByActivation retrieves every piece instance of one playlist activation
func (r *PieceInstanceRepository) ListByActivation(ctx context.Context, activationID uuid.UUID) ([]models.PieceInstance, error) {
	var instances []models.PieceInstance
	result := r.db.WithContext(ctx).
		Where("playlist_activation_id = ?", activationID.String()).
		Find(&instances)
	if result.Error != nil {
		return nil, fmt.Errorf("failed to list piece instances: %w", MapGormError(result.Error))
	}
	return instances, nil
}

// SaveTx upserts a piece instance inside an existing transaction
func (r *PieceInstanceRepository) SaveTx(tx *gorm.DB, instance *models.PieceInstance) error {
	instance.UpdatedAt = time.Now().UTC()
	if err := tx.Save(instance).Error; err != nil {
		return fmt.Errorf("failed to save piece instance: %w", MapGormError(err))
	}
	return nil
}

// DeleteByPartInstance removes all piece instances of one part instance
func (r *PieceInstanceRepository) DeleteByPartInstance(ctx context.Context, partInstanceID uuid.UUID) error {
	result := r.db.WithContext(ctx).
		Where("part_instance_id = ?", partInstanceID.String()).
		Delete(&models.PieceInstance{})
	if result.Error != nil {
		return fmt.Errorf("failed to delete piece instances: %w", MapGormError(result.Error))
	}
	return nil
}
