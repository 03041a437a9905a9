package models

import (
	"time"

	"github.com/google/uuid"
)

// PartInstanceOrphanedReason marks instances whose source Part is gone.
type PartInstanceOrphanedReason string

const (
	PartInstanceOrphanedNone      PartInstanceOrphanedReason = ""
	PartInstanceOrphanedDeleted   PartInstanceOrphanedReason = "deleted"
	PartInstanceOrphanedAdLibPart PartInstanceOrphanedReason = "adlib-part"
)

// PartInstanceTimings are the observed playback timings of one instance.
// Timestamps are unix milliseconds, spans are milliseconds.
type PartInstanceTimings struct {
	PlannedStartedPlayback *int64 `json:"planned_started_playback,omitempty"`
	PlannedStoppedPlayback *int64 `json:"planned_stopped_playback,omitempty"`

	// Duration is the final as-played duration, set once playback stopped.
	Duration *int64 `json:"duration,omitempty"`

	// PlayOffset shifts where within the Part playback began (a late join).
	PlayOffset int64 `json:"play_offset,omitempty"`
}

// PartInstance is one concrete playout occurrence of a Part. It owns a
// snapshot of the Part taken when it was nexted; later ingest edits to the
// live Part do not retroactively change it.
type PartInstance struct {
	ID                   uuid.UUID `json:"id" gorm:"type:text;primaryKey;column:id"`
	PlaylistActivationID uuid.UUID `json:"playlist_activation_id" gorm:"type:text;not null;index;column:playlist_activation_id"`
	PlaylistID           uuid.UUID `json:"playlist_id" gorm:"type:text;not null;index;column:playlist_id"`
	RundownID            uuid.UUID `json:"rundown_id" gorm:"type:text;not null;column:rundown_id"`
	SegmentID            uuid.UUID `json:"segment_id" gorm:"type:text;not null;index;column:segment_id"`
	PartID               uuid.UUID `json:"part_id" gorm:"type:text;not null;index;column:part_id"`

	Part Part `json:"part" gorm:"serializer:json;column:part"`

	// TakeCount orders instances by take within one activation.
	TakeCount int `json:"take_count" gorm:"not null;column:take_count"`

	// SegmentPlayoutID groups the consecutive instances of one pass through a
	// segment. A new one is minted each time the segment is (re-)entered,
	// which is how infinite pieces detect segment re-entry.
	SegmentPlayoutID uuid.UUID `json:"segment_playout_id" gorm:"type:text;not null;column:segment_playout_id"`

	IsTaken bool `json:"is_taken" gorm:"not null;default:0;column:is_taken"`

	// Reset marks the instance logically discarded; it is kept only until
	// cleanup and ignored by all selection and timing logic.
	Reset bool `json:"reset" gorm:"not null;default:0;column:reset"`

	Orphaned PartInstanceOrphanedReason `json:"orphaned,omitempty" gorm:"type:text;not null;default:'';column:orphaned"`

	ConsumesQueuedSegmentID bool `json:"consumes_queued_segment_id" gorm:"not null;default:0;column:consumes_queued_segment_id"`

	Timings PartInstanceTimings `json:"timings" gorm:"serializer:json;column:timings"`

	CreatedAt time.Time `json:"created_at" gorm:"type:datetime;default:CURRENT_TIMESTAMP;column:created_at"`
	UpdatedAt time.Time `json:"updated_at" gorm:"type:datetime;default:CURRENT_TIMESTAMP;column:updated_at"`
}

// IsPlayed reports whether the instance has finished playing.
func (pi *PartInstance) IsPlayed() bool {
	return pi.Timings.Duration != nil
}
