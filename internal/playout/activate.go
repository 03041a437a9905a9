package playout

import (
	"fmt"

	"github.com/google/uuid"

	"github.com/harbourlight/conductor/internal/logger"
	"github.com/harbourlight/conductor/internal/models"
)

// Activate puts the playlist on air (or into rehearsal) and nexts its first
// playable Part. The caller must already have verified that no other playlist
// holds the studio.
func Activate(m *PlayoutModel, rehearsal bool, opts TakeOptions) error {
	if m.Playlist.IsActive() {
		// Dropping out of rehearsal into a real activation is allowed; a
		// plain double-activate is not.
		if m.Playlist.Rehearsal == rehearsal {
			return ErrPlaylistAlreadyActive
		}
		m.Playlist.Rehearsal = rehearsal
		for _, pi := range m.PartInstances {
			if !pi.Reset {
				m.MarkPartInstanceDirty(pi.ID)
			}
		}
		m.MarkPlaylistDirty()
		return nil
	}

	activationID := uuid.New()
	m.Playlist.ActivationID = &activationID
	m.Playlist.Rehearsal = rehearsal
	m.Playlist.HoldState = models.HoldStateNone
	m.Playlist.StartedPlayback = nil
	m.MarkPlaylistDirty()

	selection := SelectNextPart(m.Playlist, nil, nil, m.Segments, m.Parts,
		SelectNextPartOptions{QuickLoopForceAutoNext: opts.QuickLoopForceAutoNext})
	if selection != nil {
		if err := SetNextPart(m, &NextPartSelection{Selection: selection}, false, nil); err != nil {
			return fmt.Errorf("failed to next first part on activation: %w", err)
		}
	}

	logger.Log.Info().
		Str("playlist_id", m.Playlist.ID.String()).
		Str("activation_id", activationID.String()).
		Bool("rehearsal", rehearsal).
		Msg("Playlist activated")

	return nil
}

// Deactivate takes the playlist off air and stops its current Part.
func Deactivate(m *PlayoutModel, now int64) error {
	if !m.Playlist.IsActive() {
		return ErrPlaylistNotActive
	}

	if current := m.CurrentPartInstance(); current != nil {
		if current.Timings.PlannedStartedPlayback != nil && current.Timings.Duration == nil {
			duration := now - *current.Timings.PlannedStartedPlayback
			current.Timings.Duration = &duration
			current.Timings.PlannedStoppedPlayback = &now
		}
		m.MarkPartInstanceDirty(current.ID)
	}
	if next := m.NextPartInstance(); next != nil && !next.IsTaken {
		m.ResetPartInstance(next.ID)
	}

	m.Playlist.PreviousPartInfo = m.Playlist.CurrentPartInfo
	m.Playlist.CurrentPartInfo = nil
	m.Playlist.NextPartInfo = nil
	m.Playlist.ActivationID = nil
	m.Playlist.Rehearsal = false
	m.Playlist.HoldState = models.HoldStateNone
	m.Playlist.QueuedSegmentID = nil
	m.MarkPlaylistDirty()

	logger.Log.Info().
		Str("playlist_id", m.Playlist.ID.String()).
		Msg("Playlist deactivated")

	return nil
}

// Reset discards every PartInstance of the playlist and clears its playback
// state. On an on-air playlist this is only allowed when forced or in
// rehearsal.
func Reset(m *PlayoutModel, activate bool, forceActivate bool, opts TakeOptions) error {
	if m.Playlist.IsActive() && !m.Playlist.Rehearsal && !forceActivate {
		return fmt.Errorf("reset of an on-air playlist: %w", ErrPlaylistAlreadyActive)
	}

	for id := range m.PartInstances {
		m.ResetPartInstance(id)
	}

	m.Playlist.PreviousPartInfo = nil
	m.Playlist.CurrentPartInfo = nil
	m.Playlist.NextPartInfo = nil
	m.Playlist.HoldState = models.HoldStateNone
	m.Playlist.StartedPlayback = nil
	m.Playlist.NextTimeOffset = nil
	m.Playlist.QueuedSegmentID = nil
	if m.Playlist.QuickLoop != nil {
		m.Playlist.QuickLoop.Running = false
	}
	m.MarkPlaylistDirty()

	if activate || forceActivate {
		if !m.Playlist.IsActive() {
			rehearsal := m.Playlist.Rehearsal
			if err := Activate(m, rehearsal, opts); err != nil {
				return err
			}
		} else {
			selection := SelectNextPart(m.Playlist, nil, nil, m.Segments, m.Parts,
				SelectNextPartOptions{QuickLoopForceAutoNext: opts.QuickLoopForceAutoNext})
			if selection != nil {
				if err := SetNextPart(m, &NextPartSelection{Selection: selection}, false, nil); err != nil {
					return fmt.Errorf("failed to next first part after reset: %w", err)
				}
			}
		}
	}

	logger.Log.Info().
		Str("playlist_id", m.Playlist.ID.String()).
		Bool("activate", activate).
		Msg("Playlist reset")

	return nil
}
