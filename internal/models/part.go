package models

import (
	"time"

	"github.com/google/uuid"
)

// PartInTransition describes how the following Part wants to be transitioned
// into, as declared by the blueprint that produced it. All durations are in
// milliseconds.
type PartInTransition struct {
	// BlockTakeDuration is how long a take into the following Part is blocked
	// after this transition starts.
	BlockTakeDuration int64 `json:"block_take_duration"`

	// PreviousPartKeepaliveDuration is how long the outgoing Part's content
	// must stay alive after the take point.
	PreviousPartKeepaliveDuration int64 `json:"previous_part_keepalive_duration"`

	// PartContentDelayDuration is how long the incoming Part's content is
	// delayed after the take point, to make room for the transition.
	PartContentDelayDuration int64 `json:"part_content_delay_duration"`
}

// PartOutTransition describes the outgoing transition of a Part.
type PartOutTransition struct {
	// Duration is how long the out transition needs before the take point, in
	// milliseconds.
	Duration int64 `json:"duration"`
}

// Part is the atomic schedulable unit of a show
type Part struct {
	ID         uuid.UUID `json:"id" gorm:"type:text;primaryKey;column:id"`
	RundownID  uuid.UUID `json:"rundown_id" gorm:"type:text;not null;index;column:rundown_id"`
	SegmentID  uuid.UUID `json:"segment_id" gorm:"type:text;not null;index;column:segment_id"`
	ExternalID string    `json:"external_id" gorm:"type:text;column:external_id"`
	Title      string    `json:"title" gorm:"type:text;not null;column:title"`

	// Rank is the ordering key within the segment. Fractional ranks let ingest
	// insert between neighbours without renumbering.
	Rank float64 `json:"rank" gorm:"type:real;not null;column:rank"`

	// ExpectedDuration is the planned duration in milliseconds, nil when the
	// NRCS did not provide one.
	ExpectedDuration *int64 `json:"expected_duration,omitempty" gorm:"column:expected_duration"`

	// BudgetDuration reserves wall-clock time for this Part regardless of how
	// long it actually plays.
	BudgetDuration *int64 `json:"budget_duration,omitempty" gorm:"column:budget_duration"`

	// DisplayDuration overrides the UI width of this Part when it is a member
	// of a DisplayDurationGroup.
	DisplayDuration      *int64  `json:"display_duration,omitempty" gorm:"column:display_duration"`
	DisplayDurationGroup *string `json:"display_duration_group,omitempty" gorm:"column:display_duration_group"`

	AutoNext        bool   `json:"auto_next" gorm:"not null;default:0;column:auto_next"`
	AutoNextOverlap *int64 `json:"auto_next_overlap,omitempty" gorm:"column:auto_next_overlap"`

	InTransition            *PartInTransition  `json:"in_transition,omitempty" gorm:"serializer:json;column:in_transition"`
	OutTransition           *PartOutTransition `json:"out_transition,omitempty" gorm:"serializer:json;column:out_transition"`
	DisableNextInTransition bool               `json:"disable_next_in_transition" gorm:"not null;default:0;column:disable_next_in_transition"`

	Invalid bool `json:"invalid" gorm:"not null;default:0;column:invalid"`
	Floated bool `json:"floated" gorm:"not null;default:0;column:floated"`

	// Untimed Parts are excluded from as-played accumulation entirely.
	Untimed bool `json:"untimed" gorm:"not null;default:0;column:untimed"`

	CreatedAt time.Time `json:"created_at" gorm:"type:datetime;default:CURRENT_TIMESTAMP;column:created_at"`
	UpdatedAt time.Time `json:"updated_at" gorm:"type:datetime;default:CURRENT_TIMESTAMP;column:updated_at"`
}

// IsPlayable reports whether the Part can be selected for playback at all.
func (p *Part) IsPlayable() bool {
	return !p.Invalid && !p.Floated
}

// OutTransitionDuration returns the out transition duration, or 0 when the
// Part has none.
func (p *Part) OutTransitionDuration() int64 {
	if p.OutTransition == nil {
		return 0
	}
	return p.OutTransition.Duration
}

// AutoNextOverlapDuration returns the auto-next overlap, or 0 when the Part
// does not auto-next or declares no overlap.
func (p *Part) AutoNextOverlapDuration() int64 {
	if !p.AutoNext || p.AutoNextOverlap == nil {
		return 0
	}
	return *p.AutoNextOverlap
}
