package control

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/harbourlight/conductor/internal/db"
	"github.com/harbourlight/conductor/internal/models"
	"github.com/harbourlight/conductor/internal/playout"
	"github.com/harbourlight/conductor/internal/timing"
)

func (m *PlayoutManager) takeOptions() playout.TakeOptions {
	return playout.TakeOptions{QuickLoopForceAutoNext: m.config.QuickLoopForceAutoNext}
}

// Activate puts the playlist on air. At most one playlist may be active at a
// time; activating while another holds the activation fails.
func (m *PlayoutManager) Activate(ctx context.Context, playlistID uuid.UUID, rehearsal bool) error {
	return m.runJob(ctx, playlistID, "activate", func(ctx context.Context, model *playout.PlayoutModel) error {
		active, err := m.repos.Playlists.GetActive(ctx)
		if err != nil && !db.IsNotFound(err) {
			return err
		}
		if active != nil && active.ID != playlistID {
			return playout.ErrAnotherPlaylistActive
		}
		return playout.Activate(model, rehearsal, m.takeOptions())
	})
}

// Deactivate takes the playlist off air.
func (m *PlayoutManager) Deactivate(ctx context.Context, playlistID uuid.UUID) error {
	return m.runJob(ctx, playlistID, "deactivate", func(_ context.Context, model *playout.PlayoutModel) error {
		return playout.Deactivate(model, time.Now().UnixMilli())
	})
}

// Reset discards all playout progress. An on-air non-rehearsal playlist
// requires force.
func (m *PlayoutManager) Reset(ctx context.Context, playlistID uuid.UUID, activate, force bool) error {
	return m.runJob(ctx, playlistID, "reset", func(_ context.Context, model *playout.PlayoutModel) error {
		return playout.Reset(model, activate, force, m.takeOptions())
	})
}

// Take promotes the nexted Part to on air.
func (m *PlayoutManager) Take(ctx context.Context, playlistID uuid.UUID) error {
	err := m.runJob(ctx, playlistID, "take", func(_ context.Context, model *playout.PlayoutModel) error {
		return playout.Take(model, time.Now().UnixMilli(), m.takeOptions())
	})
	if err == nil && m.metrics != nil {
		m.metrics.IncTakes()
	}
	return err
}

// SetNext points the playhead's next at a specific Part. timeOffset shifts
// where within the Part playback will begin.
func (m *PlayoutManager) SetNext(ctx context.Context, playlistID, partID uuid.UUID, timeOffset *int64) error {
	return m.runJob(ctx, playlistID, "set-next", func(_ context.Context, model *playout.PlayoutModel) error {
		for i := range model.Parts {
			if model.Parts[i].ID == partID {
				selection := &playout.NextPartSelection{
					Selection: &playout.SelectNextPartResult{Part: &model.Parts[i], Index: i},
				}
				return playout.SetNextPart(model, selection, true, timeOffset)
			}
		}
		return playout.ErrPartNotFound
	})
}

// MoveNext moves the next point by whole Parts and/or Segments and returns
// the newly nexted Part's id.
func (m *PlayoutManager) MoveNext(ctx context.Context, playlistID uuid.UUID, partDelta, segmentDelta int) (uuid.UUID, error) {
	var moved uuid.UUID
	err := m.runJob(ctx, playlistID, "move-next", func(_ context.Context, model *playout.PlayoutModel) error {
		part, err := playout.MoveNextPart(model, partDelta, segmentDelta, m.takeOptions())
		if err != nil {
			return err
		}
		moved = part.ID
		return nil
	})
	return moved, err
}

// SetNextSegment queues a segment override for the following take, or clears
// it when segmentID is nil.
func (m *PlayoutManager) SetNextSegment(ctx context.Context, playlistID uuid.UUID, segmentID *uuid.UUID) error {
	return m.runJob(ctx, playlistID, "set-next-segment", func(_ context.Context, model *playout.PlayoutModel) error {
		return playout.SetNextSegment(model, segmentID)
	})
}

// ActivateHold arms a hold between the current and next Parts.
func (m *PlayoutManager) ActivateHold(ctx context.Context, playlistID uuid.UUID) error {
	return m.runJob(ctx, playlistID, "activate-hold", func(_ context.Context, model *playout.PlayoutModel) error {
		return playout.ActivateHold(model)
	})
}

// DeactivateHold disarms a pending hold.
func (m *PlayoutManager) DeactivateHold(ctx context.Context, playlistID uuid.UUID) error {
	return m.runJob(ctx, playlistID, "deactivate-hold", func(_ context.Context, model *playout.PlayoutModel) error {
		return playout.DeactivateHold(model)
	})
}

// SetQuickLoopMarker sets or clears one end of the playlist's loop.
func (m *PlayoutManager) SetQuickLoopMarker(ctx context.Context, playlistID uuid.UUID, position playout.QuickLoopMarkerPosition, marker *models.QuickLoopMarker) error {
	return m.runJob(ctx, playlistID, "set-quick-loop-marker", func(_ context.Context, model *playout.PlayoutModel) error {
		return playout.SetQuickLoopMarker(model, position, marker)
	})
}

// RegenerateTimeline recompiles and republishes the playlist's timeline
// without mutating playout state.
func (m *PlayoutManager) RegenerateTimeline(ctx context.Context, playlistID uuid.UUID) error {
	return m.runJob(ctx, playlistID, "regenerate-timeline", func(_ context.Context, _ *playout.PlayoutModel) error {
		return nil
	})
}

// Timeline returns the currently published timeline document.
func (m *PlayoutManager) Timeline(ctx context.Context, playlistID uuid.UUID) (*models.TimelineDocument, error) {
	return m.repos.Timelines.GetByPlaylist(ctx, playlistID)
}

// Timing computes the playlist's timing context at the current wall clock.
// It reads the same documents the playout jobs write but takes no lock; the
// calculator tolerates a stale snapshot.
func (m *PlayoutManager) Timing(ctx context.Context, playlistID uuid.UUID, lowResolution bool) (*timing.RundownTimingContext, error) {
	model, err := m.loadModel(ctx, playlistID)
	if err != nil {
		return nil, err
	}

	latest := make(map[uuid.UUID]*models.PartInstance)
	for _, pi := range model.PartInstances {
		if pi.Reset {
			continue
		}
		if cur, ok := latest[pi.PartID]; !ok || pi.TakeCount > cur.TakeCount {
			latest[pi.PartID] = pi
		}
	}
	piecesByPart := make(map[uuid.UUID][]models.Piece)
	for _, piece := range model.Pieces {
		piecesByPart[piece.PartID] = append(piecesByPart[piece.PartID], piece)
	}

	snap := timing.Snapshot{
		Playlist:            model.Playlist,
		Rundowns:            model.Rundowns,
		Segments:            model.Segments,
		Parts:               model.Parts,
		PartInstances:       latest,
		PiecesByPart:        piecesByPart,
		DefaultPartDuration: m.config.DefaultPartDuration,
	}

	// The calculator keeps a small memo between runs; serialize access.
	m.timingMu.Lock()
	defer m.timingMu.Unlock()
	return m.calc.UpdateDurations(time.Now().UnixMilli(), lowResolution, snap), nil
}
