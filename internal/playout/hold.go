package playout

import (
	"github.com/harbourlight/conductor/internal/logger"
	"github.com/harbourlight/conductor/internal/models"
)

// ActivateHold arms a hold: the next take will run as a hold transition
// instead of a normal one. Requires both a current and a next Part and no
// hold already in progress.
func ActivateHold(m *PlayoutModel) error {
	if !m.Playlist.IsActive() {
		return ErrPlaylistNotActive
	}
	if m.Playlist.HoldState != models.HoldStateNone {
		return ErrDuringHold
	}

	current := m.CurrentPartInstance()
	next := m.NextPartInstance()
	if current == nil {
		return ErrNoCurrentPart
	}
	if next == nil {
		return ErrNoNextPart
	}

	// A hold only makes sense between consecutive Parts of one segment.
	if current.SegmentID != next.SegmentID {
		return ErrHoldNotPossible
	}

	// The hold take must be a plain cut: a declared transition between the
	// two Parts cannot run while the outgoing content is kept alive.
	if current.Part.OutTransition != nil {
		return ErrHoldNotPossible
	}
	if next.Part.InTransition != nil && !current.Part.DisableNextInTransition {
		return ErrHoldNotPossible
	}

	m.Playlist.HoldState = models.HoldStatePending
	m.MarkPlaylistDirty()

	logger.Log.Info().
		Str("playlist_id", m.Playlist.ID.String()).
		Msg("Hold armed")

	return nil
}

// DeactivateHold disarms a pending hold. A hold that is already running
// cannot be cancelled; it completes on the next take.
func DeactivateHold(m *PlayoutModel) error {
	if !m.Playlist.IsActive() {
		return ErrPlaylistNotActive
	}
	if m.Playlist.HoldState != models.HoldStatePending {
		return ErrHoldNotPossible
	}

	m.Playlist.HoldState = models.HoldStateNone
	m.MarkPlaylistDirty()

	logger.Log.Info().
		Str("playlist_id", m.Playlist.ID.String()).
		Msg("Hold disarmed")

	return nil
}
