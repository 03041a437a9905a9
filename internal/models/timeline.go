package models

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
)

// ExprKind discriminates the enable expression union.
type ExprKind int

const (
	// ExprAbsolute is a concrete time in unix milliseconds (or milliseconds
	// relative to the enclosing group's start, for nested objects).
	ExprAbsolute ExprKind = iota

	// ExprNow resolves to the wall clock at the moment the gateway resolves
	// the timeline.
	ExprNow

	// ExprRelative references another object's start or end edge plus an
	// offset.
	ExprRelative

	// ExprLiteral is an opaque logical expression passed through verbatim,
	// e.g. "1" for an always-on while condition.
	ExprLiteral
)

// RefEdge selects which edge of a referenced object an expression anchors to.
type RefEdge string

const (
	RefStartEdge RefEdge = "start"
	RefEndEdge   RefEdge = "end"
)

// ObjectRef is a symbolic reference to another timeline object.
type ObjectRef struct {
	ObjectID string
	Edge     RefEdge
	Offset   int64
}

// EnableExpr is one term of an enable window: an absolute time, 'now', a
// reference to a sibling object's edge, or a literal expression. It is a
// tagged union in memory and serializes to the gateway wire format
// (number, "now", or "#id.start + n") only at JSON marshal time.
type EnableExpr struct {
	Kind ExprKind
	Abs  int64
	Ref  ObjectRef
	Raw  string
}

// Abs builds an absolute-time expression.
func Abs(ms int64) *EnableExpr {
	return &EnableExpr{Kind: ExprAbsolute, Abs: ms}
}

// Now builds a resolve-time expression.
func Now() *EnableExpr {
	return &EnableExpr{Kind: ExprNow}
}

// StartOf builds a reference to another object's start edge plus offset.
func StartOf(objectID string, offset int64) *EnableExpr {
	return &EnableExpr{Kind: ExprRelative, Ref: ObjectRef{ObjectID: objectID, Edge: RefStartEdge, Offset: offset}}
}

// EndOf builds a reference to another object's end edge plus offset.
func EndOf(objectID string, offset int64) *EnableExpr {
	return &EnableExpr{Kind: ExprRelative, Ref: ObjectRef{ObjectID: objectID, Edge: RefEndEdge, Offset: offset}}
}

// Literal builds a pass-through logical expression.
func Literal(expr string) *EnableExpr {
	return &EnableExpr{Kind: ExprLiteral, Raw: expr}
}

// wireString renders the expression in gateway syntax.
func (e *EnableExpr) wireString() string {
	switch e.Kind {
	case ExprNow:
		return "now"
	case ExprRelative:
		base := fmt.Sprintf("#%s.%s", e.Ref.ObjectID, e.Ref.Edge)
		if e.Ref.Offset > 0 {
			return fmt.Sprintf("%s + %d", base, e.Ref.Offset)
		}
		if e.Ref.Offset < 0 {
			return fmt.Sprintf("%s - %d", base, -e.Ref.Offset)
		}
		return base
	default:
		return e.Raw
	}
}

// MarshalJSON emits the wire format: a bare number for absolute times, a
// string for everything else.
func (e *EnableExpr) MarshalJSON() ([]byte, error) {
	if e.Kind == ExprAbsolute {
		return json.Marshal(e.Abs)
	}
	return json.Marshal(e.wireString())
}

// UnmarshalJSON parses the wire format back into the union.
func (e *EnableExpr) UnmarshalJSON(data []byte) error {
	var num int64
	if err := json.Unmarshal(data, &num); err == nil {
		*e = EnableExpr{Kind: ExprAbsolute, Abs: num}
		return nil
	}
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return fmt.Errorf("invalid enable expression: %w", err)
	}
	parsed, err := ParseExpr(s)
	if err != nil {
		return err
	}
	*e = *parsed
	return nil
}

// ParseExpr parses a wire expression string. Strings that are neither "now"
// nor an object reference are kept as literals.
func ParseExpr(s string) (*EnableExpr, error) {
	trimmed := strings.TrimSpace(s)
	if trimmed == "now" {
		return Now(), nil
	}
	if strings.HasPrefix(trimmed, "#") {
		rest := trimmed[1:]
		offset := int64(0)
		sign := int64(1)
		if idx := strings.IndexAny(rest, "+-"); idx >= 0 {
			if rest[idx] == '-' {
				sign = -1
			}
			offsetStr := strings.TrimSpace(rest[idx+1:])
			n, err := strconv.ParseInt(offsetStr, 10, 64)
			if err != nil {
				return nil, fmt.Errorf("invalid reference offset %q: %w", s, err)
			}
			offset = sign * n
			rest = strings.TrimSpace(rest[:idx])
		}
		dot := strings.LastIndex(rest, ".")
		if dot < 0 {
			return nil, fmt.Errorf("invalid object reference %q: missing edge", s)
		}
		edge := RefEdge(rest[dot+1:])
		if edge != RefStartEdge && edge != RefEndEdge {
			return nil, fmt.Errorf("invalid object reference %q: unknown edge %q", s, edge)
		}
		return &EnableExpr{Kind: ExprRelative, Ref: ObjectRef{ObjectID: rest[:dot], Edge: edge, Offset: offset}}, nil
	}
	if n, err := strconv.ParseInt(trimmed, 10, 64); err == nil {
		return Abs(n), nil
	}
	return Literal(trimmed), nil
}

// Enable is the timed window of a timeline object. At most one of Start and
// While is set; End and Duration are both optional and mutually exclusive.
type Enable struct {
	Start    *EnableExpr `json:"start,omitempty"`
	End      *EnableExpr `json:"end,omitempty"`
	Duration *EnableExpr `json:"duration,omitempty"`
	While    *EnableExpr `json:"while,omitempty"`
}

// References returns the ids of all objects this enable window refers to.
func (e Enable) References() []string {
	var ids []string
	for _, expr := range []*EnableExpr{e.Start, e.End, e.Duration, e.While} {
		if expr != nil && expr.Kind == ExprRelative {
			ids = append(ids, expr.Ref.ObjectID)
		}
	}
	return ids
}

// TimelineObject is one compiled, timed unit understood by playout gateways.
type TimelineObject struct {
	ID       string   `json:"id"`
	Enable   Enable   `json:"enable"`
	Layer    string   `json:"layer"`
	Priority float64  `json:"priority,omitempty"`
	Classes  []string `json:"classes,omitempty"`

	// InGroup nests this object inside a group object; its times are then
	// relative to that group's resolved start.
	InGroup string `json:"in_group,omitempty"`

	IsGroup  bool             `json:"is_group,omitempty"`
	Children []TimelineObject `json:"children,omitempty"`

	PartInstanceID  *uuid.UUID `json:"part_instance_id,omitempty"`
	PieceInstanceID *uuid.UUID `json:"piece_instance_id,omitempty"`

	Content map[string]any `json:"content,omitempty"`
}

// GenerationVersions stamps a compiled timeline with the versions that
// produced it, so gateways can detect incompatible updates.
type GenerationVersions struct {
	Core      string `json:"core"`
	Blueprint string `json:"blueprint"`
	Studio    string `json:"studio"`
}

// TimelineDocument is the persisted, published compilation result for one
// playlist.
type TimelineDocument struct {
	PlaylistID uuid.UUID `json:"playlist_id" gorm:"type:text;primaryKey;column:playlist_id"`

	Objects []TimelineObject `json:"objects" gorm:"serializer:json;column:objects"`

	GenerationVersions GenerationVersions `json:"generation_versions" gorm:"serializer:json;column:generation_versions"`

	// Hash changes whenever Objects change; gateways compare it to detect
	// updates without diffing the object array.
	Hash string `json:"hash" gorm:"type:text;not null;column:hash"`

	// GeneratedAt is when this timeline was compiled, unix milliseconds.
	GeneratedAt int64 `json:"generated_at" gorm:"not null;column:generated_at"`

	// RegenerateAt asks the job service to schedule a regeneration at the
	// given unix millisecond time (e.g. at a piece boundary).
	RegenerateAt *int64 `json:"regenerate_at,omitempty" gorm:"column:regenerate_at"`

	UpdatedAt time.Time `json:"updated_at" gorm:"type:datetime;default:CURRENT_TIMESTAMP;column:updated_at"`
}
