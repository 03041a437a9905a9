package timing

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/harbourlight/conductor/internal/models"
)

type fixture struct {
	playlist *models.RundownPlaylist
	rundown  models.Rundown
	segments []models.Segment
	parts    []models.Part
	snap     Snapshot
}

// newFixture builds one rundown with two segments of two parts each, every
// part planned at 1000ms.
func newFixture() *fixture {
	playlistID := uuid.New()
	rundownID := uuid.New()
	seg1 := models.Segment{ID: uuid.New(), RundownID: rundownID, Rank: 0}
	seg2 := models.Segment{ID: uuid.New(), RundownID: rundownID, Rank: 1}

	expected := int64(1000)
	parts := make([]models.Part, 4)
	for i := range parts {
		seg := seg1.ID
		if i >= 2 {
			seg = seg2.ID
		}
		d := expected
		parts[i] = models.Part{
			ID:               uuid.New(),
			RundownID:        rundownID,
			SegmentID:        seg,
			Rank:             float64(i % 2),
			ExpectedDuration: &d,
		}
	}

	f := &fixture{
		playlist: &models.RundownPlaylist{ID: playlistID},
		rundown:  models.Rundown{ID: rundownID, PlaylistID: playlistID},
		segments: []models.Segment{seg1, seg2},
		parts:    parts,
	}
	f.snap = Snapshot{
		Playlist:      f.playlist,
		Rundowns:      []models.Rundown{f.rundown},
		Segments:      f.segments,
		Parts:         f.parts,
		PartInstances: make(map[uuid.UUID]*models.PartInstance),
		PiecesByPart:  make(map[uuid.UUID][]models.Piece),
	}
	return f
}

func (f *fixture) instance(partIdx int, taken bool) *models.PartInstance {
	part := f.parts[partIdx]
	pi := &models.PartInstance{
		ID:        uuid.New(),
		PartID:    part.ID,
		RundownID: part.RundownID,
		SegmentID: part.SegmentID,
		Part:      part,
		IsTaken:   taken,
	}
	f.snap.PartInstances[part.ID] = pi
	return pi
}

func (f *fixture) setCurrent(partIdx int, startedAt int64) *models.PartInstance {
	pi := f.instance(partIdx, true)
	pi.Timings.PlannedStartedPlayback = &startedAt
	f.playlist.CurrentPartInfo = &models.PartInstanceRef{
		PartInstanceID: pi.ID, PartID: pi.PartID, RundownID: pi.RundownID,
	}
	return pi
}

func (f *fixture) setNext(partIdx int) *models.PartInstance {
	pi := f.instance(partIdx, false)
	f.playlist.NextPartInfo = &models.PartInstanceRef{
		PartInstanceID: pi.ID, PartID: pi.PartID, RundownID: pi.RundownID,
	}
	return pi
}

func TestUpdateDurations_DurationConservation(t *testing.T) {
	f := newFixture()
	f.setNext(0)

	ctx := NewCalculator().UpdateDurations(100_000, false, f.snap)

	assert.Equal(t, int64(4000), ctx.TotalPlaylistDuration)
	assert.Equal(t, int64(4000), ctx.AsDisplayedPlaylistDuration)

	var sum int64
	for _, p := range f.parts {
		sum += ctx.PartDurations[p.ID]
	}
	assert.Equal(t, ctx.TotalPlaylistDuration, sum)
}

func TestUpdateDurations_CountdownsStartAtNext(t *testing.T) {
	f := newFixture()
	f.setCurrent(1, 99_600) // 400ms in, 600ms remain
	f.setNext(2)

	ctx := NewCalculator().UpdateDurations(100_000, false, f.snap)

	_, ok := ctx.PartCountdown[f.parts[0].ID]
	assert.False(t, ok, "parts before next must have no countdown")
	_, ok = ctx.PartCountdown[f.parts[1].ID]
	assert.False(t, ok)

	assert.Equal(t, int64(600), ctx.PartCountdown[f.parts[2].ID])
	assert.Equal(t, int64(1600), ctx.PartCountdown[f.parts[3].ID])
}

func TestUpdateDurations_CountdownMonotonic(t *testing.T) {
	f := newFixture()
	f.setCurrent(0, 99_000)
	f.setNext(1)

	ctx := NewCalculator().UpdateDurations(100_000, false, f.snap)

	prev := int64(-1)
	for i := 1; i < len(f.parts); i++ {
		cd, ok := ctx.PartCountdown[f.parts[i].ID]
		require.True(t, ok)
		assert.Greater(t, cd, prev)
		prev = cd
	}
}

func TestUpdateDurations_CurrentOverrunClampsToZero(t *testing.T) {
	f := newFixture()
	f.setCurrent(0, 90_000) // 10s into a 1s part
	f.setNext(1)

	ctx := NewCalculator().UpdateDurations(100_000, false, f.snap)

	assert.Equal(t, int64(0), ctx.PartCountdown[f.parts[1].ID])
	// The live part's effective duration grows with the overrun.
	assert.Equal(t, int64(10_000), ctx.PartDurations[f.parts[0].ID])
}

func TestUpdateDurations_DisplayGroupConservesWidth(t *testing.T) {
	f := newFixture()
	group := "stories"
	override := int64(1500)
	f.parts[0].DisplayDurationGroup = &group
	f.parts[0].DisplayDuration = &override
	f.parts[1].DisplayDurationGroup = &group
	f.snap.Parts = f.parts
	f.setNext(0)

	ctx := NewCalculator().UpdateDurations(100_000, false, f.snap)

	// The override is paid for by its group sibling; the group's total width
	// stays the sum of its expected durations.
	assert.Equal(t, int64(1500), ctx.PartDisplayDurations[f.parts[0].ID])
	assert.Equal(t, int64(500), ctx.PartDisplayDurations[f.parts[1].ID])

	// Effective durations, and with them the playlist totals, are untouched.
	assert.Equal(t, int64(1000), ctx.PartDurations[f.parts[0].ID])
	assert.Equal(t, int64(4000), ctx.AsDisplayedPlaylistDuration)
}

func TestUpdateDurations_PrerollExtendsPart(t *testing.T) {
	f := newFixture()
	expected := int64(5000)
	f.parts[1].ExpectedDuration = &expected
	f.snap.PiecesByPart[f.parts[1].ID] = []models.Piece{
		{ID: uuid.New(), PartID: f.parts[1].ID, PrerollDuration: 1000},
	}
	f.setNext(0)

	ctx := NewCalculator().UpdateDurations(100_000, false, f.snap)

	assert.Equal(t, int64(6000), ctx.PartDurations[f.parts[1].ID])
	// Later parts start later by the same amount.
	assert.Equal(t, int64(7000), ctx.PartStartsAt[f.parts[2].ID])
}

func TestUpdateDurations_SkippedPartsExcludedFromAsPlayed(t *testing.T) {
	f := newFixture()
	// Part 0 played for 1200ms, part 1 was skipped by a manual jump to 2.
	done := f.instance(0, true)
	playedFor := int64(1200)
	done.Timings.Duration = &playedFor
	f.setCurrent(2, 100_000)
	f.setNext(3)

	ctx := NewCalculator().UpdateDurations(100_000, false, f.snap)

	// 1200 (played) + 1000 (current) + 1000 (part 3); part 1 never counts.
	assert.Equal(t, int64(3200), ctx.AsPlayedPlaylistDuration)
}

func TestUpdateDurations_UntimedPartsExcludedFromAsPlayed(t *testing.T) {
	f := newFixture()
	f.parts[3].Untimed = true
	f.setNext(0)

	ctx := NewCalculator().UpdateDurations(100_000, false, f.snap)

	assert.Equal(t, int64(3000), ctx.AsPlayedPlaylistDuration)
	assert.Equal(t, int64(4000), ctx.AsDisplayedPlaylistDuration)
}

func TestUpdateDurations_DefaultPartDuration(t *testing.T) {
	f := newFixture()
	f.parts[2].ExpectedDuration = nil
	f.snap.DefaultPartDuration = 3000
	f.setNext(0)

	ctx := NewCalculator().UpdateDurations(100_000, false, f.snap)

	assert.Equal(t, int64(3000), ctx.PartDurations[f.parts[2].ID])
	assert.Equal(t, int64(0), ctx.PartExpectedDurations[f.parts[2].ID])
}

func TestUpdateDurations_LoopRebasesEarlierParts(t *testing.T) {
	f := newFixture()
	f.playlist.QuickLoop = &models.QuickLoopProps{
		Start:   &models.QuickLoopMarker{Type: models.QuickLoopMarkerPlaylist},
		End:     &models.QuickLoopMarker{Type: models.QuickLoopMarkerPlaylist},
		Running: true,
	}
	f.setCurrent(2, 99_500) // 500ms remain
	f.setNext(3)

	ctx := NewCalculator().UpdateDurations(100_000, false, f.snap)

	// next and the loop end count down linearly.
	assert.Equal(t, int64(500), ctx.PartCountdown[f.parts[3].ID])

	// Parts before next come back around after the loop end.
	assert.Equal(t, int64(1500), ctx.PartCountdown[f.parts[0].ID])
	assert.Equal(t, int64(2500), ctx.PartCountdown[f.parts[1].ID])
}

func TestUpdateDurations_BackTimeAnchorDiscovery(t *testing.T) {
	f := newFixture()
	end := int64(1_000_000)
	f.rundown.Timing = models.RundownTiming{Type: models.RundownTimingBackTime, ExpectedEnd: &end}
	segEnd := int64(500_000)
	f.segments[1].ExpectedEnd = &segEnd
	f.snap.Rundowns = []models.Rundown{f.rundown}
	f.snap.Segments = f.segments
	f.setCurrent(0, 99_000)
	f.setNext(1)

	ctx := NewCalculator().UpdateDurations(100_000, false, f.snap)

	require.NotNil(t, ctx.NextRundownAnchor)
	assert.Equal(t, segEnd, *ctx.NextRundownAnchor)
}

func TestUpdateDurations_CurrentPartWillAutoNext(t *testing.T) {
	f := newFixture()
	f.parts[0].AutoNext = true
	pi := f.setCurrent(0, 99_000)
	pi.Part = f.parts[0]
	f.setNext(1)

	ctx := NewCalculator().UpdateDurations(100_000, false, f.snap)

	assert.True(t, ctx.CurrentPartWillAutoNext)
}

func TestBreakCache_FindsNextBreak(t *testing.T) {
	ids := []uuid.UUID{uuid.New(), uuid.New(), uuid.New()}
	flags := []bool{false, true, false}

	var cache breakCache
	before, isLast := cache.rundownsBeforeNextBreak(ids, flags, ids[0])

	assert.Equal(t, []uuid.UUID{ids[0], ids[1]}, before)
	assert.False(t, isLast)
}

func TestBreakCache_NoBreakMeansEndOfPlaylist(t *testing.T) {
	ids := []uuid.UUID{uuid.New(), uuid.New()}
	flags := []bool{false, false}

	var cache breakCache
	before, isLast := cache.rundownsBeforeNextBreak(ids, flags, ids[0])

	assert.Equal(t, ids, before)
	assert.True(t, isLast)
}

func TestBreakCache_InvalidatedByReorderAndFlags(t *testing.T) {
	a, b := uuid.New(), uuid.New()

	var cache breakCache
	before, _ := cache.rundownsBeforeNextBreak([]uuid.UUID{a, b}, []bool{true, false}, a)
	assert.Equal(t, []uuid.UUID{a}, before)

	// Reordering the rundowns must not serve the stale memo.
	before, _ = cache.rundownsBeforeNextBreak([]uuid.UUID{b, a}, []bool{false, true}, a)
	assert.Equal(t, []uuid.UUID{a}, before)

	// Toggling a flag recomputes too.
	before, isLast := cache.rundownsBeforeNextBreak([]uuid.UUID{b, a}, []bool{false, false}, b)
	assert.Equal(t, []uuid.UUID{b, a}, before)
	assert.True(t, isLast)
}
