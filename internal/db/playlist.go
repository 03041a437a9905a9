// Package db provides database connection management and repository interfaces.
package db

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/harbourlight/conductor/internal/models"
)

// PlaylistRepository handles database operations for rundown playlists
type PlaylistRepository struct {
	db *DB
}

// NewPlaylistRepository creates a new playlist repository
func NewPlaylistRepository(db *DB) *PlaylistRepository {
	return &PlaylistRepository{db: db}
}

// Create inserts a new playlist
func (r *PlaylistRepository) Create(ctx context.Context, playlist *models.RundownPlaylist) error {
	result := r.db.WithContext(ctx).Create(playlist)
	if result.Error != nil {
		return fmt.Errorf("failed to create playlist: %w", MapGormError(result.Error))
	}
	return nil
}

// GetByID retrieves a playlist by its UUID
func (r *PlaylistRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.RundownPlaylist, error) {
	var playlist models.RundownPlaylist
	result := r.db.WithContext(ctx).Where("id = ?", id.String()).First(&playlist)
	if result.Error != nil {
		return nil, MapGormError(result.Error)
	}
	return &playlist, nil
}

// List retrieves all playlists ordered by creation date (newest first)
func (r *PlaylistRepository) List(ctx context.Context) ([]*models.RundownPlaylist, error) {
	var playlists []*models.RundownPlaylist
	result := r.db.WithContext(ctx).Order("created_at DESC").Find(&playlists)
	if result.Error != nil {
		return nil, fmt.Errorf("failed to list playlists: %w", MapGormError(result.Error))
	}
	return playlists, nil
}

// GetActive retrieves the playlist currently holding an activation, or
// ErrNotFound when no playlist is active.
func (r *PlaylistRepository) GetActive(ctx context.Context) (*models.RundownPlaylist, error) {
	var playlist models.RundownPlaylist
	result := r.db.WithContext(ctx).Where("activation_id IS NOT NULL").First(&playlist)
	if result.Error != nil {
		return nil, MapGormError(result.Error)
	}
	return &playlist, nil
}

// Save persists the full playlist state
func (r *PlaylistRepository) Save(ctx context.Context, playlist *models.RundownPlaylist) error {
	playlist.UpdatedAt = time.Now().UTC()
	result := r.db.WithContext(ctx).Save(playlist)
	if result.Error != nil {
		return fmt.Errorf("failed to save playlist: %w", MapGormError(result.Error))
	}
	return nil
}

// SaveTx persists the full playlist state inside an existing transaction
func (r *PlaylistRepository) SaveTx(tx *gorm.DB, playlist *models.RundownPlaylist) error {
	playlist.UpdatedAt = time.Now().UTC()
	if err := tx.Save(playlist).Error; err != nil {
		return fmt.Errorf("failed to save playlist: %w", MapGormError(err))
	}
	return nil
}

// Delete deletes a playlist by its UUID
func (r *PlaylistRepository) Delete(ctx context.Context, id uuid.UUID) error {
	result := r.db.WithContext(ctx).Where("id = ?", id.String()).Delete(&models.RundownPlaylist{})
	if result.Error != nil {
		return fmt.Errorf("failed to delete playlist: %w", MapGormError(result.Error))
	}
	if result.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}
