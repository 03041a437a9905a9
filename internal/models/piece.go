package models

import (
	"time"

	"github.com/google/uuid"
)

// PieceType categorizes how a Piece participates in Part transitions.
type PieceType string

const (
	PieceTypeNormal        PieceType = "normal"
	PieceTypeInTransition  PieceType = "in_transition"
	PieceTypeOutTransition PieceType = "out_transition"
)

// PieceLifespan controls how long a Piece survives beyond its own Part.
type PieceLifespan string

const (
	// PieceLifespanWithinPart pieces live and die with their Part.
	PieceLifespanWithinPart PieceLifespan = "part-only"

	// PieceLifespanOutOnSegmentChange pieces continue until playback leaves
	// the segment they started in.
	PieceLifespanOutOnSegmentChange PieceLifespan = "segment-change"

	// PieceLifespanOutOnSegmentEnd pieces continue until the last Part of
	// their segment has finished.
	PieceLifespanOutOnSegmentEnd PieceLifespan = "segment-end"

	// PieceLifespanOutOnRundownChange pieces continue until playback leaves
	// their rundown.
	PieceLifespanOutOnRundownChange PieceLifespan = "rundown-change"

	// PieceLifespanOutOnRundownEnd pieces continue until the rundown has
	// finished playing.
	PieceLifespanOutOnRundownEnd PieceLifespan = "rundown-end"
)

// IsInfinite reports whether the lifespan crosses Part boundaries.
func (l PieceLifespan) IsInfinite() bool {
	return l != PieceLifespanWithinPart && l != ""
}

// PieceEnable is the planned window of a Piece inside its Part. Start is an
// offset in milliseconds from the Part content start; IsNow marks ad-libbed
// pieces whose start is resolved at playback time.
type PieceEnable struct {
	Start    int64  `json:"start"`
	IsNow    bool   `json:"is_now,omitempty"`
	Duration *int64 `json:"duration,omitempty"`
}

// Piece is a playable element (video, graphic, audio) attached to a Part.
type Piece struct {
	ID        uuid.UUID `json:"id" gorm:"type:text;primaryKey;column:id"`
	PartID    uuid.UUID `json:"part_id" gorm:"type:text;not null;index;column:part_id"`
	RundownID uuid.UUID `json:"rundown_id" gorm:"type:text;not null;column:rundown_id"`
	Name      string    `json:"name" gorm:"type:text;not null;column:name"`

	// Layer is the logical output layer the compiled timeline object for this
	// Piece is placed on.
	Layer string `json:"layer" gorm:"type:text;not null;column:layer"`

	Enable    PieceEnable   `json:"enable" gorm:"serializer:json;column:enable"`
	PieceType PieceType     `json:"piece_type" gorm:"type:text;not null;default:'normal';column:piece_type"`
	Lifespan  PieceLifespan `json:"lifespan" gorm:"type:text;not null;default:'part-only';column:lifespan"`

	// PrerollDuration is how long the Piece's content needs before its
	// nominal start (e.g. video server cueing), in milliseconds.
	PrerollDuration  int64 `json:"preroll_duration" gorm:"not null;default:0;column:preroll_duration"`
	PostrollDuration int64 `json:"postroll_duration" gorm:"not null;default:0;column:postroll_duration"`

	// Virtual pieces exist only to terminate an infinite chain; they emit no
	// timeline content.
	Virtual bool `json:"virtual" gorm:"not null;default:0;column:virtual"`

	// ExcludeDuringPartKeepalive places the Piece in a sub-group that ends
	// before the keepalive tail used for transition overlap.
	ExcludeDuringPartKeepalive bool `json:"exclude_during_part_keepalive" gorm:"not null;default:0;column:exclude_during_part_keepalive"`

	// Content is blueprint-provided, device-specific payload passed through
	// to the compiled timeline untouched.
	Content map[string]any `json:"content,omitempty" gorm:"serializer:json;column:content"`

	CreatedAt time.Time `json:"created_at" gorm:"type:datetime;default:CURRENT_TIMESTAMP;column:created_at"`
	UpdatedAt time.Time `json:"updated_at" gorm:"type:datetime;default:CURRENT_TIMESTAMP;column:updated_at"`
}
