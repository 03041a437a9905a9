package models

import (
	"time"

	"github.com/google/uuid"
)

// HoldState tracks the hold lifecycle across takes.
type HoldState string

const (
	HoldStateNone     HoldState = ""
	HoldStatePending  HoldState = "pending"
	HoldStateActive   HoldState = "active"
	HoldStateComplete HoldState = "complete"
)

// QuickLoopMarkerType scopes a quick-loop marker.
type QuickLoopMarkerType string

const (
	QuickLoopMarkerPart     QuickLoopMarkerType = "part"
	QuickLoopMarkerSegment  QuickLoopMarkerType = "segment"
	QuickLoopMarkerRundown  QuickLoopMarkerType = "rundown"
	QuickLoopMarkerPlaylist QuickLoopMarkerType = "playlist"
)

// QuickLoopMarker points at the start or end of a configured playback loop.
// ID references a Part, Segment or Rundown depending on Type; it is unused
// for playlist-scoped markers.
type QuickLoopMarker struct {
	Type QuickLoopMarkerType `json:"type"`
	ID   uuid.UUID           `json:"id,omitempty"`
}

// ForceQuickLoopAutoNext controls whether looped playback forces auto-next
// behaviour onto Parts inside the loop.
type ForceQuickLoopAutoNext string

const (
	ForceQuickLoopAutoNextDisabled ForceQuickLoopAutoNext = "disabled"

	// ForceQuickLoopAutoNextWithDuration forces auto-next only onto Parts
	// with a usable expected duration; Parts without one are unplayable
	// while the loop runs.
	ForceQuickLoopAutoNextWithDuration ForceQuickLoopAutoNext = "enabled_when_valid_duration"

	// ForceQuickLoopAutoNextAlways forces auto-next onto every Part, using
	// the configured fallback duration where none is set.
	ForceQuickLoopAutoNextAlways ForceQuickLoopAutoNext = "enabled"
)

// QuickLoopProps holds the configured loop range and its runtime state.
type QuickLoopProps struct {
	Start         *QuickLoopMarker       `json:"start,omitempty"`
	End           *QuickLoopMarker       `json:"end,omitempty"`
	Running       bool                   `json:"running"`
	ForceAutoNext ForceQuickLoopAutoNext `json:"force_auto_next"`
}

// PartInstanceRef points a playlist at one of its PartInstances along with
// selection provenance.
type PartInstanceRef struct {
	PartInstanceID uuid.UUID `json:"part_instance_id"`
	PartID         uuid.UUID `json:"part_id"`
	RundownID      uuid.UUID `json:"rundown_id"`

	// ManuallySelected is set when an operator picked this Part explicitly;
	// automatic re-selection after ingest changes must not override it.
	ManuallySelected bool `json:"manually_selected"`

	// ConsumesQueuedSegmentID is set when taking this instance should clear
	// the playlist's queued segment.
	ConsumesQueuedSegmentID bool `json:"consumes_queued_segment_id"`
}

// RundownPlaylist is the activation scope for playout: a set of ordered
// Rundowns played as one continuous show.
type RundownPlaylist struct {
	ID         uuid.UUID `json:"id" gorm:"type:text;primaryKey;column:id"`
	ExternalID string    `json:"external_id" gorm:"type:text;not null;column:external_id"`
	Name       string    `json:"name" gorm:"type:text;not null;column:name"`

	// ActivationID is set exactly when the playlist is active. At most one
	// playlist per studio may hold one; that invariant is enforced by the
	// activation command before any playout mutation runs.
	ActivationID *uuid.UUID `json:"activation_id,omitempty" gorm:"type:text;column:activation_id"`
	Rehearsal    bool       `json:"rehearsal" gorm:"not null;default:0;column:rehearsal"`

	CurrentPartInfo  *PartInstanceRef `json:"current_part_info,omitempty" gorm:"serializer:json;column:current_part_info"`
	NextPartInfo     *PartInstanceRef `json:"next_part_info,omitempty" gorm:"serializer:json;column:next_part_info"`
	PreviousPartInfo *PartInstanceRef `json:"previous_part_info,omitempty" gorm:"serializer:json;column:previous_part_info"`

	HoldState HoldState `json:"hold_state" gorm:"type:text;not null;default:'';column:hold_state"`

	// QueuedSegmentID overrides forward selection: the next take jumps to the
	// first playable Part of this segment.
	QueuedSegmentID *uuid.UUID `json:"queued_segment_id,omitempty" gorm:"type:text;column:queued_segment_id"`

	QuickLoop *QuickLoopProps `json:"quick_loop,omitempty" gorm:"serializer:json;column:quick_loop"`

	// NextTimeOffset shifts playback start within the next Part, in
	// milliseconds.
	NextTimeOffset *int64 `json:"next_time_offset,omitempty" gorm:"column:next_time_offset"`

	// StartedPlayback is when the first take of this activation happened,
	// unix milliseconds.
	StartedPlayback *int64 `json:"started_playback,omitempty" gorm:"column:started_playback"`

	CreatedAt time.Time `json:"created_at" gorm:"type:datetime;default:CURRENT_TIMESTAMP;column:created_at"`
	UpdatedAt time.Time `json:"updated_at" gorm:"type:datetime;default:CURRENT_TIMESTAMP;column:updated_at"`
}

// IsActive reports whether the playlist currently holds an activation.
func (p *RundownPlaylist) IsActive() bool {
	return p.ActivationID != nil
}
