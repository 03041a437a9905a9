package timing

import (
	"github.com/google/uuid"

	"github.com/harbourlight/conductor/internal/models"
	"github.com/harbourlight/conductor/internal/playout"
)

// Snapshot is the read-only world the calculator runs over. Parts must be in
// playlist order (rundown rank, segment rank, part rank). PartInstances maps
// a Part id to its latest non-reset instance; Parts that were never
// instantiated have no entry. PiecesByPart holds the planned pieces used for
// preroll lookups.
type Snapshot struct {
	Playlist       *models.RundownPlaylist
	Rundowns       []models.Rundown
	Segments       []models.Segment
	Parts          []models.Part
	PartInstances  map[uuid.UUID]*models.PartInstance
	PiecesByPart   map[uuid.UUID][]models.Piece

	// DefaultPartDuration substitutes for Parts with no expected duration and
	// is the minimal display width of any Part.
	DefaultPartDuration int64
}

// Calculator computes a RundownTimingContext from a Snapshot. It is cheap
// enough to run on every UI tick; the only state it keeps between runs is the
// show-break memo, which is invalidated whenever the rundown set, order or
// break flags change.
type Calculator struct {
	breakCache breakCache
}

func NewCalculator() *Calculator {
	return &Calculator{}
}

// UpdateDurations runs one forward pass over the ordered Part list and fills
// in every field of the context. now is unix milliseconds.
func (c *Calculator) UpdateDurations(now int64, lowRes bool, snap Snapshot) *RundownTimingContext {
	ctx := newContext(now, lowRes)

	currentIdx := partInfoIndex(snap.Parts, snap.Playlist.CurrentPartInfo)
	nextIdx := partInfoIndex(snap.Parts, snap.Playlist.NextPartInfo)

	currentInstance := instanceForInfo(snap, snap.Playlist.CurrentPartInfo)
	currentRemaining := c.currentRemaining(now, snap, currentInstance, currentIdx)

	effective := make([]int64, len(snap.Parts))
	var startsAt, displayStartsAt int64
	displayPool := make(map[string]int64)

	countdownWait := currentRemaining
	reachedNext := false

	for i := range snap.Parts {
		part := &snap.Parts[i]
		instance := snap.PartInstances[part.ID]
		if instance != nil && instance.Reset {
			instance = nil
		}

		expected := int64(0)
		if part.ExpectedDuration != nil {
			expected = *part.ExpectedDuration
		}
		ctx.PartExpectedDurations[part.ID] = expected

		preroll := playout.CalculatePartPreroll(snap.PiecesByPart[part.ID])

		playing := i == currentIdx && instance != nil &&
			instance.Timings.PlannedStartedPlayback != nil && instance.Timings.Duration == nil

		// Effective duration: actual beats live elapsed beats expected beats
		// the default. Preroll is only added while the duration is still a
		// prediction; a recorded duration already contains reality.
		var dur int64
		switch {
		case instance != nil && instance.Timings.Duration != nil:
			dur = *instance.Timings.Duration
		case playing:
			elapsed := now - *instance.Timings.PlannedStartedPlayback
			base := expected
			if base <= 0 {
				base = snap.DefaultPartDuration
			}
			dur = max64(base, elapsed) + preroll
		case expected > 0:
			dur = expected + preroll
		default:
			dur = snap.DefaultPartDuration + preroll
		}
		effective[i] = dur
		ctx.PartDurations[part.ID] = dur

		switch {
		case instance != nil && instance.Timings.Duration != nil:
			ctx.PartPlayed[part.ID] = *instance.Timings.Duration
		case playing:
			ctx.PartPlayed[part.ID] = now - *instance.Timings.PlannedStartedPlayback
		default:
			ctx.PartPlayed[part.ID] = 0
		}

		ctx.PartStartsAt[part.ID] = startsAt
		startsAt += dur

		// Display width: members of a display duration group draw from a
		// shared pool fed by their expected durations, so the group's total
		// width is conserved no matter how the overrides divide it.
		display := dur
		if part.DisplayDurationGroup != nil {
			group := *part.DisplayDurationGroup
			displayPool[group] += expected
			if part.DisplayDuration != nil && *part.DisplayDuration > 0 {
				display = *part.DisplayDuration
			} else {
				display = displayPool[group]
			}
			displayPool[group] -= display
		}
		if display < snap.DefaultPartDuration {
			display = snap.DefaultPartDuration
		}
		ctx.PartDisplayDurations[part.ID] = display
		ctx.PartDisplayStartsAt[part.ID] = displayStartsAt
		displayStartsAt += display

		// Countdowns exist only from "next" onwards; earlier Parts have no
		// predictable start any more.
		if nextIdx >= 0 {
			if i == nextIdx {
				reachedNext = true
			}
			if reachedNext {
				ctx.PartCountdown[part.ID] = countdownWait
				countdownWait += dur
			}
		}

		counted := countsAsPlayed(instance, i, currentIdx)
		ctx.AsDisplayedPlaylistDuration += dur
		if counted && !part.Untimed {
			ctx.AsPlayedPlaylistDuration += dur
			ctx.RundownAsPlayedDurations[part.RundownID] += dur
		}
		ctx.RundownExpectedDurations[part.RundownID] += expected

		if part.BudgetDuration != nil {
			ctx.SegmentBudgetDurations[part.SegmentID] += *part.BudgetDuration
		}

		ctx.TotalPlaylistDuration += dur
		if i == currentIdx {
			ctx.RemainingPlaylistDuration += currentRemaining
		} else if i > currentIdx && (instance == nil || !instance.IsPlayed()) {
			ctx.RemainingPlaylistDuration += dur
		}
	}

	// A segment-level budget overrides the sum of its Parts' budgets.
	for i := range snap.Segments {
		seg := &snap.Segments[i]
		if seg.BudgetDuration != nil {
			ctx.SegmentBudgetDurations[seg.ID] = *seg.BudgetDuration
		}
	}

	c.rebaseLoopCountdowns(ctx, snap, effective, nextIdx)

	if currentInstance != nil {
		p := &currentInstance.Part
		ctx.CurrentPartWillAutoNext = p.AutoNext &&
			p.ExpectedDuration != nil && *p.ExpectedDuration > 0
	}

	ctx.NextRundownAnchor = nextRundownAnchor(snap, currentIdx)

	rundownIDs := make([]uuid.UUID, len(snap.Rundowns))
	breakFlags := make([]bool, len(snap.Rundowns))
	for i := range snap.Rundowns {
		rundownIDs[i] = snap.Rundowns[i].ID
		breakFlags[i] = snap.Rundowns[i].EndOfRundownIsShowBreak
	}
	before, isLast := c.breakCache.rundownsBeforeNextBreak(rundownIDs, breakFlags, currentRundownID(snap, currentIdx, nextIdx))
	ctx.RundownsBeforeNextBreak = before
	ctx.BreakIsLastRundown = isLast

	return ctx
}

// currentRemaining is how much of the on-air Part is still ahead of the
// playhead, clamped to zero once it overruns.
func (c *Calculator) currentRemaining(now int64, snap Snapshot, instance *models.PartInstance, currentIdx int) int64 {
	if instance == nil || currentIdx < 0 {
		return 0
	}
	if instance.Timings.Duration != nil {
		return 0
	}

	expected := int64(0)
	if instance.Part.ExpectedDuration != nil {
		expected = *instance.Part.ExpectedDuration
	}
	if expected <= 0 {
		expected = snap.DefaultPartDuration
	}
	expected += playout.CalculatePartPreroll(snap.PiecesByPart[instance.PartID])

	if instance.Timings.PlannedStartedPlayback == nil {
		return expected
	}
	elapsed := now - *instance.Timings.PlannedStartedPlayback + instance.Timings.PlayOffset
	return max64(0, expected-elapsed)
}

// rebaseLoopCountdowns gives Parts between the loop start and "next" a
// countdown measured through the wrap: they play again after the loop end.
func (c *Calculator) rebaseLoopCountdowns(ctx *RundownTimingContext, snap Snapshot, effective []int64, nextIdx int) {
	loop := snap.Playlist.QuickLoop
	if loop == nil || !loop.Running || loop.Start == nil || loop.End == nil || nextIdx < 0 {
		return
	}
	startIdx := playout.QuickLoopMarkerStartIndex(loop.Start, snap.Segments, snap.Parts)
	endIdx := playout.QuickLoopMarkerEndIndex(loop.End, snap.Segments, snap.Parts)
	if startIdx < 0 || endIdx < nextIdx {
		return
	}

	wrapBase, ok := ctx.PartCountdown[snap.Parts[endIdx].ID]
	if !ok {
		return
	}
	wrapBase += effective[endIdx]

	offset := int64(0)
	for i := startIdx; i < nextIdx && i <= endIdx; i++ {
		ctx.PartCountdown[snap.Parts[i].ID] = wrapBase + offset
		offset += effective[i]
	}
}

// countsAsPlayed decides whether a Part belongs in the as-played total:
// everything that actually went to air, plus everything still ahead of the
// playhead. Parts skipped over by out-of-order play count neither way.
func countsAsPlayed(instance *models.PartInstance, idx, currentIdx int) bool {
	if instance != nil && instance.IsTaken {
		return true
	}
	if currentIdx < 0 {
		return true
	}
	return idx >= currentIdx
}

// nextRundownAnchor scans ahead of the playhead for the first Segment or
// Rundown that declares the schedule hint matching the playlist's timing
// direction.
func nextRundownAnchor(snap Snapshot, currentIdx int) *int64 {
	segmentsByID := make(map[uuid.UUID]*models.Segment, len(snap.Segments))
	for i := range snap.Segments {
		segmentsByID[snap.Segments[i].ID] = &snap.Segments[i]
	}
	rundownsByID := make(map[uuid.UUID]*models.Rundown, len(snap.Rundowns))
	for i := range snap.Rundowns {
		rundownsByID[snap.Rundowns[i].ID] = &snap.Rundowns[i]
	}

	anchorOf := func(timing models.RundownTimingType, start, end *int64) *int64 {
		switch timing {
		case models.RundownTimingBackTime:
			return end
		case models.RundownTimingForwardTime:
			return start
		}
		return nil
	}

	var prevRundown, prevSegment uuid.UUID
	if currentIdx >= 0 && currentIdx < len(snap.Parts) {
		prevRundown = snap.Parts[currentIdx].RundownID
		prevSegment = snap.Parts[currentIdx].SegmentID
	}

	for i := currentIdx + 1; i < len(snap.Parts); i++ {
		part := &snap.Parts[i]

		if part.RundownID != prevRundown {
			prevRundown = part.RundownID
			if rd := rundownsByID[part.RundownID]; rd != nil {
				if a := anchorOf(rd.Timing.Type, rd.Timing.ExpectedStart, rd.Timing.ExpectedEnd); a != nil {
					return a
				}
			}
		}
		if part.SegmentID != prevSegment {
			prevSegment = part.SegmentID
			if seg := segmentsByID[part.SegmentID]; seg != nil {
				rd := rundownsByID[part.RundownID]
				timing := models.RundownTimingNone
				if rd != nil {
					timing = rd.Timing.Type
				}
				if a := anchorOf(timing, seg.ExpectedStart, seg.ExpectedEnd); a != nil {
					return a
				}
			}
		}
	}
	return nil
}

func partInfoIndex(parts []models.Part, info *models.PartInstanceRef) int {
	if info == nil {
		return -1
	}
	for i := range parts {
		if parts[i].ID == info.PartID {
			return i
		}
	}
	return -1
}

func instanceForInfo(snap Snapshot, info *models.PartInstanceRef) *models.PartInstance {
	if info == nil {
		return nil
	}
	instance := snap.PartInstances[info.PartID]
	if instance == nil || instance.Reset {
		return nil
	}
	return instance
}

func currentRundownID(snap Snapshot, currentIdx, nextIdx int) uuid.UUID {
	idx := currentIdx
	if idx < 0 {
		idx = nextIdx
	}
	if idx >= 0 && idx < len(snap.Parts) {
		return snap.Parts[idx].RundownID
	}
	if len(snap.Rundowns) > 0 {
		return snap.Rundowns[0].ID
	}
	return uuid.Nil
}

func max64(a, b int64) int64 {
	if a > b {
		return a
	}
	return b
}
