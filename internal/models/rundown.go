package models

import (
	"time"

	"github.com/google/uuid"
)

// RundownTimingType selects how a Rundown is anchored against the clock.
type RundownTimingType string

const (
	RundownTimingNone        RundownTimingType = "none"
	RundownTimingForwardTime RundownTimingType = "forward-time"
	RundownTimingBackTime    RundownTimingType = "back-time"
)

// RundownTiming carries the NRCS-provided schedule anchors for a Rundown.
// ExpectedStart/ExpectedEnd are unix milliseconds, ExpectedDuration is a span
// in milliseconds.
type RundownTiming struct {
	Type             RundownTimingType `json:"type"`
	ExpectedStart    *int64            `json:"expected_start,omitempty"`
	ExpectedEnd      *int64            `json:"expected_end,omitempty"`
	ExpectedDuration *int64            `json:"expected_duration,omitempty"`
}

// Rundown is one externally-ingested show, ordered within a RundownPlaylist.
type Rundown struct {
	ID         uuid.UUID `json:"id" gorm:"type:text;primaryKey;column:id"`
	PlaylistID uuid.UUID `json:"playlist_id" gorm:"type:text;not null;index;column:playlist_id"`
	ExternalID string    `json:"external_id" gorm:"type:text;not null;column:external_id"`
	Name       string    `json:"name" gorm:"type:text;not null;column:name"`
	Rank       float64   `json:"rank" gorm:"type:real;not null;column:rank"`

	Timing RundownTiming `json:"timing" gorm:"serializer:json;column:timing"`

	// EndOfRundownIsShowBreak marks the boundary after this Rundown as a
	// break in the running order.
	EndOfRundownIsShowBreak bool `json:"end_of_rundown_is_show_break" gorm:"not null;default:0;column:end_of_rundown_is_show_break"`

	CreatedAt time.Time `json:"created_at" gorm:"type:datetime;default:CURRENT_TIMESTAMP;column:created_at"`
	UpdatedAt time.Time `json:"updated_at" gorm:"type:datetime;default:CURRENT_TIMESTAMP;column:updated_at"`
}
