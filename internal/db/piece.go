package db

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/harbourlight/conductor/internal/models"
)

// PieceRepository handles database operations for pieces
type PieceRepository struct {
	db *DB
}

// NewPieceRepository creates a new piece repository
func NewPieceRepository(db *DB) *PieceRepository {
	return &PieceRepository{db: db}
}

// Create inserts a new piece
func (r *PieceRepository) Create(ctx context.Context, piece *models.Piece) error {
	result := r.db.WithContext(ctx).Create(piece)
	if result.Error != nil {
		return fmt.Errorf("failed to create piece: %w", MapGormError(result.Error))
	}
	return nil
}

// ListByRundownIDs retrieves all pieces belonging to the given rundowns
func (r *PieceRepository) ListByRundownIDs(ctx context.Context, rundownIDs []uuid.UUID) ([]models.Piece, error) {
	if len(rundownIDs) == 0 {
		return nil, nil
	}
	var pieces []models.Piece
	result := r.db.WithContext(ctx).
		Where("rundown_id IN ?", uuidStrings(rundownIDs)).
		Find(&pieces)
	if result.Error != nil {
		return nil, fmt.Errorf("failed to list pieces: %w", MapGormError(result.Error))
	}
	return pieces, nil
}
