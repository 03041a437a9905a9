package timeline

import (
	"context"
	"fmt"

	"github.com/harbourlight/conductor/internal/logger"
	"github.com/harbourlight/conductor/internal/models"
)

// Store persists compiled timeline documents.
type Store interface {
	SaveTimeline(ctx context.Context, doc *models.TimelineDocument) error
}

// GenerateHook lets a registered blueprint rewrite the compiled timeline
// before publication. It is best-effort: a hook failure is logged and the
// pre-hook timeline publishes unchanged.
type GenerateHook interface {
	OnTimelineGenerate(ctx context.Context, playlist *models.RundownPlaylist, objs []models.TimelineObject) ([]models.TimelineObject, error)
}

// Service compiles, validates, hashes and persists timelines for playlists.
type Service struct {
	store    Store
	hook     GenerateHook
	versions models.GenerationVersions
}

// NewService creates a timeline service. hook may be nil when no blueprint is
// registered.
func NewService(store Store, hook GenerateHook, versions models.GenerationVersions) *Service {
	return &Service{store: store, hook: hook, versions: versions}
}

// Regenerate compiles the playhead plus lookahead into a timeline document
// and persists it. Validation failures are fatal and leave the previously
// stored timeline in effect.
func (s *Service) Regenerate(
	ctx context.Context,
	now int64,
	playlist *models.RundownPlaylist,
	info PartInstancesInfo,
	upcoming []LookaheadPart,
	lookaheadDepth int,
) (*models.TimelineDocument, error) {
	result := BuildTimelineObjs(now, playlist, info)
	objs := append(result.Objects, BuildLookaheadObjs(upcoming, lookaheadDepth)...)

	if s.hook != nil {
		rewritten, err := s.hook.OnTimelineGenerate(ctx, playlist, objs)
		if err != nil {
			logger.Log.Warn().
				Err(err).
				Str("playlist_id", playlist.ID.String()).
				Msg("onTimelineGenerate hook failed, publishing pre-hook timeline")
		} else {
			objs = rewritten
		}
	}

	flat := Flatten(objs)
	if err := Validate(flat); err != nil {
		return nil, fmt.Errorf("timeline validation failed: %w", err)
	}

	hash, err := HashObjects(flat)
	if err != nil {
		return nil, err
	}

	doc := &models.TimelineDocument{
		PlaylistID:         playlist.ID,
		Objects:            flat,
		GenerationVersions: s.versions,
		Hash:               hash,
		GeneratedAt:        now,
		RegenerateAt:       result.RegenerateAt,
	}
	if err := s.store.SaveTimeline(ctx, doc); err != nil {
		return nil, fmt.Errorf("failed to persist timeline: %w", err)
	}

	logger.Log.Debug().
		Str("playlist_id", playlist.ID.String()).
		Str("hash", hash).
		Int("objects", len(flat)).
		Msg("Timeline regenerated")

	return doc, nil
}
