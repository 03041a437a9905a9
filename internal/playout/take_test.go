package playout

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/harbourlight/conductor/internal/models"
)

func TestTake_RequiresNext(t *testing.T) {
	m := newActiveModel()

	err := Take(m, 1000, TakeOptions{})

	assert.ErrorIs(t, err, ErrNoNextPart)
}

func TestTake_RequiresActivePlaylist(t *testing.T) {
	m := newActiveModel()
	m.Playlist.ActivationID = nil

	err := Take(m, 1000, TakeOptions{})

	assert.ErrorIs(t, err, ErrPlaylistNotActive)
}

func TestTake_PromotesNextToCurrent(t *testing.T) {
	m := newActiveModel()
	require.NoError(t, SetNextPart(m, selectionFor(m, 0), false, nil))
	nexted := m.NextPartInstance()

	takeNow(t, m, 5_000)

	current := m.CurrentPartInstance()
	require.NotNil(t, current)
	assert.Equal(t, nexted.ID, current.ID)
	assert.True(t, current.IsTaken)
	require.NotNil(t, current.Timings.PlannedStartedPlayback)
	assert.Equal(t, int64(5_000), *current.Timings.PlannedStartedPlayback)
	require.NotNil(t, m.Playlist.StartedPlayback)
	assert.Equal(t, int64(5_000), *m.Playlist.StartedPlayback)

	// The following part was nexted automatically.
	next := m.NextPartInstance()
	require.NotNil(t, next)
	assert.Equal(t, m.Parts[1].ID, next.PartID)
}

func TestTake_RecordsOutgoingDuration(t *testing.T) {
	m := newActiveModel()
	require.NoError(t, SetNextPart(m, selectionFor(m, 0), false, nil))
	takeNow(t, m, 5_000)
	first := m.CurrentPartInstance()

	takeNow(t, m, 9_000)

	require.NotNil(t, first.Timings.Duration)
	assert.Equal(t, int64(4_000), *first.Timings.Duration)
	require.NotNil(t, m.Playlist.PreviousPartInfo)
	assert.Equal(t, first.ID, m.Playlist.PreviousPartInfo.PartInstanceID)
}

func TestTake_BlockedByInTransition(t *testing.T) {
	m := newActiveModel()
	m.Parts[0].InTransition = &models.PartInTransition{BlockTakeDuration: 2_000}
	require.NoError(t, SetNextPart(m, selectionFor(m, 0), false, nil))
	takeNow(t, m, 5_000)

	err := Take(m, 6_000, TakeOptions{})
	assert.ErrorIs(t, err, ErrTakeBlocked)

	// After the block window the take goes through.
	require.NoError(t, Take(m, 7_100, TakeOptions{}))
}

func TestTake_TimeOffsetBecomesPlayOffset(t *testing.T) {
	m := newActiveModel()
	offset := int64(1_500)
	require.NoError(t, SetNextPart(m, selectionFor(m, 0), false, &offset))

	takeNow(t, m, 5_000)

	assert.Equal(t, int64(1_500), m.CurrentPartInstance().Timings.PlayOffset)
	assert.Nil(t, m.Playlist.NextTimeOffset)
}

func TestTake_ConsumesQueuedSegment(t *testing.T) {
	m := newActiveModel()
	m.Playlist.QueuedSegmentID = &m.Segments[1].ID
	require.NoError(t, SetNextPart(m, selectionFor(m, 0), false, nil))
	takeNow(t, m, 5_000)

	// The queued segment overrode normal selection.
	next := m.NextPartInstance()
	require.NotNil(t, next)
	assert.Equal(t, m.Segments[1].ID, next.SegmentID)
	assert.True(t, next.ConsumesQueuedSegmentID)

	takeNow(t, m, 10_000)

	assert.Nil(t, m.Playlist.QueuedSegmentID)
}

func TestTake_EndOfShowClearsNext(t *testing.T) {
	m := newActiveModel()
	require.NoError(t, SetNextPart(m, selectionFor(m, 5), true, nil))

	takeNow(t, m, 5_000)

	assert.NotNil(t, m.CurrentPartInstance())
	assert.Nil(t, m.NextPartInstance())
}

func TestHoldLifecycle(t *testing.T) {
	m := newActiveModel()
	require.NoError(t, SetNextPart(m, selectionFor(m, 0), false, nil))

	// No current part yet.
	assert.ErrorIs(t, ActivateHold(m), ErrNoCurrentPart)

	takeNow(t, m, 5_000)
	require.NoError(t, ActivateHold(m))
	assert.Equal(t, models.HoldStatePending, m.Playlist.HoldState)

	// Double-arm is rejected.
	assert.ErrorIs(t, ActivateHold(m), ErrDuringHold)

	// The hold take activates it.
	takeNow(t, m, 8_000)
	assert.Equal(t, models.HoldStateActive, m.Playlist.HoldState)

	// An active hold cannot be disarmed, only completed by the next take.
	assert.ErrorIs(t, DeactivateHold(m), ErrHoldNotPossible)

	takeNow(t, m, 11_000)
	assert.Equal(t, models.HoldStateComplete, m.Playlist.HoldState)

	takeNow(t, m, 14_000)
	assert.Equal(t, models.HoldStateNone, m.Playlist.HoldState)
}

func TestDeactivateHold(t *testing.T) {
	m := newActiveModel()
	require.NoError(t, SetNextPart(m, selectionFor(m, 0), false, nil))
	takeNow(t, m, 5_000)
	require.NoError(t, ActivateHold(m))

	require.NoError(t, DeactivateHold(m))

	assert.Equal(t, models.HoldStateNone, m.Playlist.HoldState)
}

func TestHold_RequiresPlainCut(t *testing.T) {
	t.Run("out transition on current", func(t *testing.T) {
		m := newActiveModel()
		m.Parts[0].OutTransition = &models.PartOutTransition{Duration: 2_000}
		require.NoError(t, SetNextPart(m, selectionFor(m, 0), false, nil))
		takeNow(t, m, 5_000)

		assert.ErrorIs(t, ActivateHold(m), ErrHoldNotPossible)
	})

	t.Run("in transition on next", func(t *testing.T) {
		m := newActiveModel()
		m.Parts[1].InTransition = &models.PartInTransition{
			BlockTakeDuration:             1_000,
			PreviousPartKeepaliveDuration: 1_000,
		}
		require.NoError(t, SetNextPart(m, selectionFor(m, 0), false, nil))
		takeNow(t, m, 5_000)

		assert.ErrorIs(t, ActivateHold(m), ErrHoldNotPossible)
	})

	t.Run("disabled in transition still holds", func(t *testing.T) {
		m := newActiveModel()
		m.Parts[0].DisableNextInTransition = true
		m.Parts[1].InTransition = &models.PartInTransition{BlockTakeDuration: 1_000}
		require.NoError(t, SetNextPart(m, selectionFor(m, 0), false, nil))
		takeNow(t, m, 5_000)

		require.NoError(t, ActivateHold(m))
		assert.Equal(t, models.HoldStatePending, m.Playlist.HoldState)
	})
}

func TestHold_RequiresSameSegment(t *testing.T) {
	m := newActiveModel()
	require.NoError(t, SetNextPart(m, selectionFor(m, 2), true, nil))
	takeNow(t, m, 5_000)

	// Auto-selected next lives in the other segment.
	require.NotNil(t, m.NextPartInstance())
	assert.ErrorIs(t, ActivateHold(m), ErrHoldNotPossible)
}

func TestActivate_SetsFirstNext(t *testing.T) {
	f := newRundownFixture()
	rundown := models.Rundown{ID: f.rundown, PlaylistID: f.playlist.ID}
	m := NewPlayoutModel(f.playlist, []models.Rundown{rundown}, f.segments, f.parts, nil, nil, nil)

	require.NoError(t, Activate(m, true, TakeOptions{}))

	assert.True(t, m.Playlist.IsActive())
	assert.True(t, m.Playlist.Rehearsal)
	require.NotNil(t, m.NextPartInstance())
	assert.Equal(t, f.parts[0].ID, m.NextPartInstance().PartID)
}

func TestActivate_AlreadyActive(t *testing.T) {
	m := newActiveModel()

	err := Activate(m, false, TakeOptions{})

	assert.ErrorIs(t, err, ErrPlaylistAlreadyActive)
}

func TestActivate_RehearsalToLive(t *testing.T) {
	m := newActiveModel()
	m.Playlist.Rehearsal = true

	require.NoError(t, Activate(m, false, TakeOptions{}))

	assert.False(t, m.Playlist.Rehearsal)
	assert.True(t, m.Playlist.IsActive())
}

func TestDeactivate(t *testing.T) {
	m := newActiveModel()
	require.NoError(t, SetNextPart(m, selectionFor(m, 0), false, nil))
	takeNow(t, m, 5_000)
	current := m.CurrentPartInstance()

	require.NoError(t, Deactivate(m, 9_000))

	assert.False(t, m.Playlist.IsActive())
	assert.Nil(t, m.Playlist.CurrentPartInfo)
	assert.Nil(t, m.Playlist.NextPartInfo)
	require.NotNil(t, current.Timings.Duration)
	assert.Equal(t, int64(4_000), *current.Timings.Duration)
}

func TestReset_ClearsInstances(t *testing.T) {
	m := newActiveModel()
	m.Playlist.Rehearsal = true
	require.NoError(t, SetNextPart(m, selectionFor(m, 0), false, nil))
	takeNow(t, m, 5_000)

	require.NoError(t, Reset(m, false, false, TakeOptions{}))

	assert.Nil(t, m.Playlist.CurrentPartInfo)
	assert.Nil(t, m.Playlist.NextPartInfo)
	assert.Nil(t, m.Playlist.StartedPlayback)
	for _, pi := range m.PartInstances {
		assert.True(t, pi.Reset)
	}
}

func TestReset_OnAirRequiresForce(t *testing.T) {
	m := newActiveModel()

	err := Reset(m, false, false, TakeOptions{})

	assert.ErrorIs(t, err, ErrPlaylistAlreadyActive)
}

func TestMoveNextPart(t *testing.T) {
	m := newActiveModel()
	require.NoError(t, SetNextPart(m, selectionFor(m, 0), false, nil))
	takeNow(t, m, 5_000) // current=0, next=1

	part, err := MoveNextPart(m, 1, 0, TakeOptions{})
	require.NoError(t, err)
	assert.Equal(t, m.Parts[2].ID, part.ID)

	part, err = MoveNextPart(m, 0, 1, TakeOptions{})
	require.NoError(t, err)
	assert.Equal(t, m.Parts[3].ID, part.ID)

	// Moving past the end of the show fails cleanly.
	_, err = MoveNextPart(m, 10, 0, TakeOptions{})
	assert.ErrorIs(t, err, ErrPartNotFound)
}

func TestSetNextSegment(t *testing.T) {
	m := newActiveModel()

	require.NoError(t, SetNextSegment(m, &m.Segments[1].ID))
	require.NotNil(t, m.Playlist.QueuedSegmentID)
	assert.Equal(t, m.Segments[1].ID, *m.Playlist.QueuedSegmentID)

	require.NoError(t, SetNextSegment(m, nil))
	assert.Nil(t, m.Playlist.QueuedSegmentID)
}

func TestSetQuickLoopMarker_RunningTracksCurrent(t *testing.T) {
	m := newActiveModel()
	require.NoError(t, SetNextPart(m, selectionFor(m, 0), false, nil))
	takeNow(t, m, 5_000)

	require.NoError(t, SetQuickLoopMarker(m, QuickLoopMarkerPositionStart,
		&models.QuickLoopMarker{Type: models.QuickLoopMarkerSegment, ID: m.Segments[0].ID}))
	require.NoError(t, SetQuickLoopMarker(m, QuickLoopMarkerPositionEnd,
		&models.QuickLoopMarker{Type: models.QuickLoopMarkerSegment, ID: m.Segments[0].ID}))

	assert.True(t, m.Playlist.QuickLoop.Running)

	// Clearing one end stops the loop.
	require.NoError(t, SetQuickLoopMarker(m, QuickLoopMarkerPositionEnd, nil))
	assert.False(t, m.Playlist.QuickLoop.Running)
}
