package models

import (
	"time"

	"github.com/google/uuid"
)

// SegmentOrphanedReason marks segments that no longer exist upstream but are
// retained because they are (or recently were) on air.
type SegmentOrphanedReason string

const (
	SegmentOrphanedNone    SegmentOrphanedReason = ""
	SegmentOrphanedDeleted SegmentOrphanedReason = "deleted"
	SegmentOrphanedHidden  SegmentOrphanedReason = "hidden"
)

// Segment is an ordered group of Parts within a Rundown.
type Segment struct {
	ID         uuid.UUID `json:"id" gorm:"type:text;primaryKey;column:id"`
	RundownID  uuid.UUID `json:"rundown_id" gorm:"type:text;not null;index;column:rundown_id"`
	ExternalID string    `json:"external_id" gorm:"type:text;column:external_id"`
	Name       string    `json:"name" gorm:"type:text;not null;column:name"`
	Rank       float64   `json:"rank" gorm:"type:real;not null;column:rank"`

	// ExpectedStart/ExpectedEnd are scheduling hints in unix milliseconds,
	// used for break and back-time anchor lookups.
	ExpectedStart *int64 `json:"expected_start,omitempty" gorm:"column:expected_start"`
	ExpectedEnd   *int64 `json:"expected_end,omitempty" gorm:"column:expected_end"`

	// BudgetDuration caps the wall-clock time the segment should occupy, in
	// milliseconds.
	BudgetDuration *int64 `json:"budget_duration,omitempty" gorm:"column:budget_duration"`

	Orphaned SegmentOrphanedReason `json:"orphaned,omitempty" gorm:"type:text;not null;default:'';column:orphaned"`

	CreatedAt time.Time `json:"created_at" gorm:"type:datetime;default:CURRENT_TIMESTAMP;column:created_at"`
	UpdatedAt time.Time `json:"updated_at" gorm:"type:datetime;default:CURRENT_TIMESTAMP;column:updated_at"`
}
