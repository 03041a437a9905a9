package models

import (
	"time"

	"github.com/google/uuid"
)

// InfinitePiece links PieceInstances across PartInstance boundaries into one
// continuous infinite chain. The chain is a foreign key plus ordinal, never a
// pointer graph, so instances stay independently serializable.
type InfinitePiece struct {
	// InfiniteInstanceID is shared by every PieceInstance in the chain.
	InfiniteInstanceID uuid.UUID `json:"infinite_instance_id"`

	// InfiniteInstanceIndex orders the chain; 0 is the originating instance.
	InfiniteInstanceIndex int `json:"infinite_instance_index"`

	// InfinitePieceID is the source Piece the chain grew from.
	InfinitePieceID uuid.UUID `json:"infinite_piece_id"`

	// FromPreviousPart is set on continuations carried over from the
	// previously playing Part.
	FromPreviousPart bool `json:"from_previous_part"`
}

// PieceInstance is one concrete occurrence of a Piece inside a PartInstance.
type PieceInstance struct {
	ID                   uuid.UUID `json:"id" gorm:"type:text;primaryKey;column:id"`
	PlaylistActivationID uuid.UUID `json:"playlist_activation_id" gorm:"type:text;not null;index;column:playlist_activation_id"`
	RundownID            uuid.UUID `json:"rundown_id" gorm:"type:text;not null;column:rundown_id"`
	PartInstanceID       uuid.UUID `json:"part_instance_id" gorm:"type:text;not null;index;column:part_instance_id"`

	Piece Piece `json:"piece" gorm:"serializer:json;column:piece"`

	Infinite *InfinitePiece `json:"infinite,omitempty" gorm:"serializer:json;column:infinite"`

	// Playback timestamps in unix milliseconds, reported back from the
	// gateway once known.
	PlannedStartedPlayback *int64 `json:"planned_started_playback,omitempty" gorm:"column:planned_started_playback"`
	PlannedStoppedPlayback *int64 `json:"planned_stopped_playback,omitempty" gorm:"column:planned_stopped_playback"`

	Reset bool `json:"reset" gorm:"not null;default:0;column:reset"`

	CreatedAt time.Time `json:"created_at" gorm:"type:datetime;default:CURRENT_TIMESTAMP;column:created_at"`
	UpdatedAt time.Time `json:"updated_at" gorm:"type:datetime;default:CURRENT_TIMESTAMP;column:updated_at"`
}

// IsInfiniteContinuation reports whether this instance continues a chain
// started in an earlier Part.
func (pi *PieceInstance) IsInfiniteContinuation() bool {
	return pi.Infinite != nil && pi.Infinite.FromPreviousPart
}
