// Package timing implements the rundown timing calculator: per-Part
// countdowns, start offsets, as-played and as-displayed durations, and
// rundown aggregates for the operator UI. It is read-only with respect to
// playout state and is re-run on every UI tick.
package timing

import (
	"github.com/google/uuid"
)

// RundownTimingContext is the calculator's output: plain maps keyed by Part,
// Segment or Rundown id plus scalar aggregates. Every per-id map may be
// missing an entry for Parts not yet processed; consumers must treat absence
// as "unknown", not zero.
type RundownTimingContext struct {
	// CurrentTime is the timestamp this context was computed for, unix
	// milliseconds.
	CurrentTime int64 `json:"current_time"`

	// IsLowResolution marks contexts computed on the coarse tick; countdown
	// consumers may show whole seconds only.
	IsLowResolution bool `json:"is_low_resolution"`

	// PartCountdown is the time until each Part begins. Parts strictly
	// before "next" have no entry: without looping their start is no longer
	// predictable.
	PartCountdown map[uuid.UUID]int64 `json:"part_countdown"`

	// PartDurations is each Part's effective duration: actual duration,
	// else live elapsed, else expected, else the default, plus any preroll
	// demanded by its pieces.
	PartDurations map[uuid.UUID]int64 `json:"part_durations"`

	// PartExpectedDurations is the raw planned duration per Part.
	PartExpectedDurations map[uuid.UUID]int64 `json:"part_expected_durations"`

	// PartPlayed is how much of each Part has actually played.
	PartPlayed map[uuid.UUID]int64 `json:"part_played"`

	// PartStartsAt is each Part's offset from playlist start, accumulated
	// over effective durations.
	PartStartsAt map[uuid.UUID]int64 `json:"part_starts_at"`

	// PartDisplayStartsAt mirrors PartStartsAt over display durations.
	PartDisplayStartsAt map[uuid.UUID]int64 `json:"part_display_starts_at"`

	// PartDisplayDurations is the UI width of each Part: the display
	// override or the share drawn from its display duration group, clamped
	// to a minimal non-zero width.
	PartDisplayDurations map[uuid.UUID]int64 `json:"part_display_durations"`

	// SegmentBudgetDurations is the budgeted wall-clock per segment.
	SegmentBudgetDurations map[uuid.UUID]int64 `json:"segment_budget_durations"`

	// RundownExpectedDurations sums planned durations per rundown.
	RundownExpectedDurations map[uuid.UUID]int64 `json:"rundown_expected_durations"`

	// RundownAsPlayedDurations sums as-played durations per rundown.
	RundownAsPlayedDurations map[uuid.UUID]int64 `json:"rundown_as_played_durations"`

	// TotalPlaylistDuration is the sum of every Part's effective duration.
	TotalPlaylistDuration int64 `json:"total_playlist_duration"`

	// RemainingPlaylistDuration is the effective duration still ahead of the
	// playhead, including the current Part's remainder.
	RemainingPlaylistDuration int64 `json:"remaining_playlist_duration"`

	// AsDisplayedPlaylistDuration includes every Part regardless of play
	// order, so a progress bar stays monotonic across manual skips.
	AsDisplayedPlaylistDuration int64 `json:"as_displayed_playlist_duration"`

	// AsPlayedPlaylistDuration sums only Parts that count: on-air history
	// plus forward-looking Parts not skipped by out-of-order play; untimed
	// Parts never count.
	AsPlayedPlaylistDuration int64 `json:"as_played_playlist_duration"`

	// CurrentPartWillAutoNext reports whether the on-air Part will take by
	// itself.
	CurrentPartWillAutoNext bool `json:"current_part_will_auto_next"`

	// NextRundownAnchor is the nearest future expectedStart/expectedEnd hint
	// (per the playlist's timing mode), unix milliseconds. Nil when nothing
	// ahead declares one.
	NextRundownAnchor *int64 `json:"next_rundown_anchor,omitempty"`

	// RundownsBeforeNextBreak lists the rundowns between the playhead and
	// the next show break, inclusive.
	RundownsBeforeNextBreak []uuid.UUID `json:"rundowns_before_next_break,omitempty"`

	// BreakIsLastRundown reports whether that break is also the end of the
	// playlist.
	BreakIsLastRundown bool `json:"break_is_last_rundown"`
}

func newContext(now int64, lowRes bool) *RundownTimingContext {
	return &RundownTimingContext{
		CurrentTime:              now,
		IsLowResolution:          lowRes,
		PartCountdown:            make(map[uuid.UUID]int64),
		PartDurations:            make(map[uuid.UUID]int64),
		PartExpectedDurations:    make(map[uuid.UUID]int64),
		PartPlayed:               make(map[uuid.UUID]int64),
		PartStartsAt:             make(map[uuid.UUID]int64),
		PartDisplayStartsAt:      make(map[uuid.UUID]int64),
		PartDisplayDurations:     make(map[uuid.UUID]int64),
		SegmentBudgetDurations:   make(map[uuid.UUID]int64),
		RundownExpectedDurations: make(map[uuid.UUID]int64),
		RundownAsPlayedDurations: make(map[uuid.UUID]int64),
	}
}
