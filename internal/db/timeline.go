package db

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm/clause"

	"github.com/harbourlight/conductor/internal/models"
)

// TimelineRepository handles database operations for compiled timelines
type TimelineRepository struct {
	db *DB
}

// NewTimelineRepository creates a new timeline repository
func NewTimelineRepository(db *DB) *TimelineRepository {
	return &TimelineRepository{db: db}
}

// GetByPlaylist retrieves the published timeline for a playlist
func (r *TimelineRepository) GetByPlaylist(ctx context.Context, playlistID uuid.UUID) (*models.TimelineDocument, error) {
	var doc models.TimelineDocument
	result := r.db.WithContext(ctx).Where("playlist_id = ?", playlistID.String()).First(&doc)
	if result.Error != nil {
		return nil, MapGormError(result.Error)
	}
	return &doc, nil
}

// SaveTimeline upserts the published timeline for a playlist. The document is
// single-writer (the job holding the playlist lock) and multi-reader.
func (r *TimelineRepository) SaveTimeline(ctx context.Context, doc *models.TimelineDocument) error {
	doc.UpdatedAt = time.Now().UTC()
	result := r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "playlist_id"}},
			UpdateAll: true,
		}).
		Create(doc)
	if result.Error != nil {
		return fmt.Errorf("failed to save timeline: %w", MapGormError(result.Error))
	}
	return nil
}
