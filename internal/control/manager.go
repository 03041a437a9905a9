// Package control orchestrates the playout pipeline: every externally
// triggered command runs as a job under the playlist's exclusive lock, loads
// an in-memory playout model, mutates it, flushes the mutations atomically
// and recompiles the timeline.
package control

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/harbourlight/conductor/internal/db"
	"github.com/harbourlight/conductor/internal/jobs"
	"github.com/harbourlight/conductor/internal/logger"
	"github.com/harbourlight/conductor/internal/metrics"
	"github.com/harbourlight/conductor/internal/models"
	"github.com/harbourlight/conductor/internal/playout"
	"github.com/harbourlight/conductor/internal/timeline"
	"github.com/harbourlight/conductor/internal/timing"
)

// Config carries the studio-level playout settings threaded into the
// selector, timing calculator and timeline builder.
type Config struct {
	// DefaultPartDuration substitutes for Parts without an expected duration,
	// milliseconds.
	DefaultPartDuration int64

	// LookaheadDepth is how many upcoming Parts get lookahead objects.
	LookaheadDepth int

	// QuickLoopForceAutoNext is the studio's loop auto-next policy.
	QuickLoopForceAutoNext models.ForceQuickLoopAutoNext
}

// PlayoutManager owns the job queue and runs playout commands for playlists.
type PlayoutManager struct {
	database *db.DB
	repos    *db.Repositories
	queue    *jobs.Queue
	timeline *timeline.Service
	calc     *timing.Calculator
	timingMu sync.Mutex
	metrics  *metrics.Metrics
	config   Config
}

// NewPlayoutManager creates a playout manager. metric may be nil to disable
// instrumentation.
func NewPlayoutManager(database *db.DB, repos *db.Repositories, timelineService *timeline.Service, metric *metrics.Metrics, cfg Config) *PlayoutManager {
	return &PlayoutManager{
		database: database,
		repos:    repos,
		queue:    jobs.NewQueue(0),
		timeline: timelineService,
		calc:     timing.NewCalculator(),
		metrics:  metric,
		config:   cfg,
	}
}

// Stop drains the job queue and waits for running jobs to finish.
func (m *PlayoutManager) Stop() {
	m.queue.Stop()
}

// runJob executes fn under the playlist's exclusive lock against a freshly
// loaded model, then flushes and republishes. fn's mutations are persisted
// atomically; a failed job persists nothing.
func (m *PlayoutManager) runJob(ctx context.Context, playlistID uuid.UUID, name string, fn func(ctx context.Context, model *playout.PlayoutModel) error) error {
	return m.queue.Execute(ctx, playlistID, name, func(ctx context.Context) error {
		start := time.Now()
		err := func() error {
			model, err := m.loadModel(ctx, playlistID)
			if err != nil {
				return err
			}
			if err := fn(ctx, model); err != nil {
				return err
			}
			if err := m.flush(ctx, model); err != nil {
				return err
			}
			m.publishTimeline(ctx, model)
			m.dispatchCleanups(model)
			return nil
		}()
		if m.metrics != nil {
			m.metrics.ObserveJob(name, time.Since(start).Seconds(), err != nil)
		}
		return err
	})
}

// loadModel assembles the in-memory playout model for one playlist.
func (m *PlayoutManager) loadModel(ctx context.Context, playlistID uuid.UUID) (*playout.PlayoutModel, error) {
	playlist, err := m.repos.Playlists.GetByID(ctx, playlistID)
	if err != nil {
		if db.IsNotFound(err) {
			return nil, playout.ErrPlaylistNotFound
		}
		return nil, fmt.Errorf("failed to load playlist: %w", err)
	}

	rundowns, err := m.repos.Rundowns.ListByPlaylist(ctx, playlistID)
	if err != nil {
		return nil, err
	}
	rundownIDs := make([]uuid.UUID, len(rundowns))
	for i := range rundowns {
		rundownIDs[i] = rundowns[i].ID
	}

	segments, err := m.repos.Segments.ListByRundownIDs(ctx, rundownIDs)
	if err != nil {
		return nil, err
	}
	parts, err := m.repos.Parts.ListByRundownIDs(ctx, rundownIDs)
	if err != nil {
		return nil, err
	}
	pieces, err := m.repos.Pieces.ListByRundownIDs(ctx, rundownIDs)
	if err != nil {
		return nil, err
	}

	var partInstances []*models.PartInstance
	var pieceInstances []*models.PieceInstance
	if playlist.ActivationID != nil {
		pis, err := m.repos.PartInstances.ListByActivation(ctx, *playlist.ActivationID)
		if err != nil {
			return nil, err
		}
		for i := range pis {
			partInstances = append(partInstances, &pis[i])
		}
		pcis, err := m.repos.PieceInstances.ListByActivation(ctx, *playlist.ActivationID)
		if err != nil {
			return nil, err
		}
		for i := range pcis {
			pieceInstances = append(pieceInstances, &pcis[i])
		}
	}

	return playout.NewPlayoutModel(playlist, rundowns, segments, parts, pieces, partInstances, pieceInstances), nil
}

// flush writes every dirty document in one transaction.
func (m *PlayoutManager) flush(ctx context.Context, model *playout.PlayoutModel) error {
	if !model.PlaylistDirty() && len(model.DirtyPartInstances()) == 0 && len(model.DirtyPieceInstances()) == 0 {
		return nil
	}
	return m.database.WithTransaction(ctx, func(tx *gorm.DB) error {
		if model.PlaylistDirty() {
			if err := m.repos.Playlists.SaveTx(tx, model.Playlist); err != nil {
				return err
			}
		}
		for _, pi := range model.DirtyPartInstances() {
			if err := m.repos.PartInstances.SaveTx(tx, pi); err != nil {
				return err
			}
		}
		for _, pi := range model.DirtyPieceInstances() {
			if err := m.repos.PieceInstances.SaveTx(tx, pi); err != nil {
				return err
			}
		}
		return nil
	})
}

// publishTimeline recompiles and persists the playlist's timeline. A
// validation failure is logged and the previously published timeline stays
// in effect; the state mutation the job made is already committed.
func (m *PlayoutManager) publishTimeline(ctx context.Context, model *playout.PlayoutModel) {
	now := time.Now().UnixMilli()
	info := m.partInstancesInfo(model)
	upcoming := m.lookaheadParts(model)

	doc, err := m.timeline.Regenerate(ctx, now, model.Playlist, info, upcoming, m.config.LookaheadDepth)
	if err != nil {
		logger.Log.Error().
			Err(err).
			Str("playlist_id", model.Playlist.ID.String()).
			Msg("timeline publish failed, previous timeline remains in effect")
		return
	}
	if m.metrics != nil {
		m.metrics.TimelinePublished(len(doc.Objects))
	}

	if doc.RegenerateAt != nil {
		playlistID := model.Playlist.ID
		m.queue.ScheduleAt(playlistID, "regenerate-timeline", *doc.RegenerateAt, func(ctx context.Context) error {
			model, err := m.loadModel(ctx, playlistID)
			if err != nil {
				return err
			}
			m.publishTimeline(ctx, model)
			return nil
		})
	}
}

func (m *PlayoutManager) partInstancesInfo(model *playout.PlayoutModel) timeline.PartInstancesInfo {
	wrap := func(pi *models.PartInstance) *timeline.SelectedPartInstance {
		if pi == nil || pi.Reset {
			return nil
		}
		return &timeline.SelectedPartInstance{
			Instance:       pi,
			PieceInstances: model.PieceInstancesFor(pi.ID),
		}
	}
	return timeline.PartInstancesInfo{
		Previous: wrap(model.PreviousPartInstance()),
		Current:  wrap(model.CurrentPartInstance()),
		Next:     wrap(model.NextPartInstance()),
	}
}

// lookaheadParts collects the Parts after the nexted one, in playlist order.
func (m *PlayoutManager) lookaheadParts(model *playout.PlayoutModel) []timeline.LookaheadPart {
	next := model.NextPartInstance()
	if next == nil {
		return nil
	}
	startIdx := -1
	for i := range model.Parts {
		if model.Parts[i].ID == next.PartID {
			startIdx = i
			break
		}
	}
	if startIdx < 0 {
		return nil
	}
	var out []timeline.LookaheadPart
	for i := startIdx + 1; i < len(model.Parts) && len(out) < m.config.LookaheadDepth; i++ {
		part := model.Parts[i]
		if !part.IsPlayable() {
			continue
		}
		out = append(out, timeline.LookaheadPart{
			Part:   part,
			Pieces: model.PiecesForPart(part.ID),
		})
	}
	return out
}

// dispatchCleanups forwards deferred cleanup requests to an asynchronous job
// so the command that queued them never blocks on cleanup I/O.
func (m *PlayoutManager) dispatchCleanups(model *playout.PlayoutModel) {
	cleanups := model.DeferredCleanups()
	if len(cleanups) == 0 {
		return
	}
	playlistID := model.Playlist.ID
	_, err := m.queue.Enqueue(context.Background(), playlistID, "orphan-cleanup", func(ctx context.Context) error {
		return m.runCleanups(ctx, cleanups)
	})
	if err != nil && !errors.Is(err, jobs.ErrQueueStopped) {
		logger.Log.Warn().
			Err(err).
			Str("playlist_id", playlistID.String()).
			Msg("failed to queue orphan cleanup")
	}
}

func (m *PlayoutManager) runCleanups(ctx context.Context, cleanups []playout.CleanupRequest) error {
	for _, req := range cleanups {
		switch req.Kind {
		case playout.CleanupOrphanedSegments:
			err := m.database.WithTransaction(ctx, func(tx *gorm.DB) error {
				return m.repos.Segments.DeleteOrphanedTx(tx, req.SegmentIDs)
			})
			if err != nil {
				return err
			}
		case playout.CleanupOrphanedPartInstances:
			for _, id := range req.InstanceID {
				if err := m.repos.PartInstances.DeleteByID(ctx, id); err != nil {
					return err
				}
				if err := m.repos.PieceInstances.DeleteByPartInstance(ctx, id); err != nil {
					return err
				}
			}
		}
	}
	return nil
}
