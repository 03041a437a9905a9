package playout

import (
	"fmt"

	"github.com/harbourlight/conductor/internal/logger"
	"github.com/harbourlight/conductor/internal/models"
)

// TakeOptions tunes the take behaviour from studio settings.
type TakeOptions struct {
	QuickLoopForceAutoNext models.ForceQuickLoopAutoNext
}

// Take promotes the next PartInstance to current, records playback timings,
// and selects the following next Part. now is the take wall-clock time in
// unix milliseconds.
func Take(m *PlayoutModel, now int64, opts TakeOptions) error {
	if !m.Playlist.IsActive() {
		return ErrPlaylistNotActive
	}

	next := m.NextPartInstance()
	if next == nil || next.Reset {
		return ErrNoNextPart
	}

	current := m.CurrentPartInstance()

	if err := checkTakeBlocked(current, now); err != nil {
		return err
	}

	// Hold lifecycle: a pending hold becomes active on this take; an active
	// hold is completed by it.
	switch m.Playlist.HoldState {
	case models.HoldStatePending:
		m.Playlist.HoldState = models.HoldStateActive
	case models.HoldStateActive:
		m.Playlist.HoldState = models.HoldStateComplete
	case models.HoldStateComplete:
		m.Playlist.HoldState = models.HoldStateNone
	}

	var currentPart *models.Part
	if current != nil {
		currentPart = &current.Part
	}
	timings := CalculatePartTimings(m.Playlist.HoldState, currentPart, &next.Part, piecesOf(m.PieceInstancesFor(next.ID)))

	// Close out the outgoing instance.
	if current != nil {
		stop := now + timings.FromPartRemaining
		current.Timings.PlannedStoppedPlayback = &stop
		if current.Timings.PlannedStartedPlayback != nil {
			duration := now - *current.Timings.PlannedStartedPlayback
			current.Timings.Duration = &duration
		}
		m.MarkPartInstanceDirty(current.ID)
	}

	// Promote next to current.
	next.IsTaken = true
	started := now
	next.Timings.PlannedStartedPlayback = &started
	if m.Playlist.NextTimeOffset != nil {
		next.Timings.PlayOffset = *m.Playlist.NextTimeOffset
	}
	m.MarkPartInstanceDirty(next.ID)

	for _, pi := range m.PieceInstancesFor(next.ID) {
		if pi.PlannedStartedPlayback == nil {
			startAt := now + timings.ToPartDelay + pi.Piece.Enable.Start
			pi.PlannedStartedPlayback = &startAt
			m.MarkPieceInstanceDirty(pi.ID)
		}
	}

	m.Playlist.PreviousPartInfo = m.Playlist.CurrentPartInfo
	m.Playlist.CurrentPartInfo = m.Playlist.NextPartInfo
	m.Playlist.NextPartInfo = nil
	m.Playlist.NextTimeOffset = nil
	if m.Playlist.StartedPlayback == nil {
		m.Playlist.StartedPlayback = &started
	}
	if next.ConsumesQueuedSegmentID {
		m.Playlist.QueuedSegmentID = nil
	}
	updateQuickLoopRunning(m, next)
	m.MarkPlaylistDirty()

	// Select what follows.
	selection := SelectNextPart(
		m.Playlist,
		next,
		nil,
		m.Segments,
		m.Parts,
		SelectNextPartOptions{QuickLoopForceAutoNext: opts.QuickLoopForceAutoNext},
	)
	if selection == nil {
		clearNextPart(m)
	} else if err := SetNextPart(m, &NextPartSelection{Selection: selection}, false, nil); err != nil {
		return fmt.Errorf("failed to set next after take: %w", err)
	}

	logger.Log.Info().
		Str("playlist_id", m.Playlist.ID.String()).
		Str("part_instance_id", next.ID.String()).
		Int("take_count", next.TakeCount).
		Str("hold_state", string(m.Playlist.HoldState)).
		Msg("Take")

	return nil
}

// checkTakeBlocked rejects takes that land inside the current Part's
// in-transition block window.
func checkTakeBlocked(current *models.PartInstance, now int64) error {
	if current == nil || current.Part.InTransition == nil {
		return nil
	}
	block := current.Part.InTransition.BlockTakeDuration
	if block <= 0 || current.Timings.PlannedStartedPlayback == nil {
		return nil
	}
	if now < *current.Timings.PlannedStartedPlayback+block {
		return ErrTakeBlocked
	}
	return nil
}

// updateQuickLoopRunning keeps the loop's running flag in sync with whether
// playback is inside the configured range.
func updateQuickLoopRunning(m *PlayoutModel, taken *models.PartInstance) {
	loop := m.Playlist.QuickLoop
	if loop == nil || loop.Start == nil || loop.End == nil {
		return
	}
	idx := indexOfPart(m.Parts, taken.PartID)
	startIdx := QuickLoopMarkerStartIndex(loop.Start, m.Segments, m.Parts)
	endIdx := QuickLoopMarkerEndIndex(loop.End, m.Segments, m.Parts)
	loop.Running = idx >= 0 && startIdx >= 0 && endIdx >= 0 && idx >= startIdx && idx <= endIdx
}

func piecesOf(instances []*models.PieceInstance) []models.Piece {
	pieces := make([]models.Piece, 0, len(instances))
	for _, pi := range instances {
		pieces = append(pieces, pi.Piece)
	}
	return pieces
}
