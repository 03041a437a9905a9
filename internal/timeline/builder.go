// Package timeline compiles the selected previous/current/next PartInstances
// into the flat, device-agnostic timeline document that playout gateways
// resolve and execute. Objects use symbolic enable expressions anchored to
// sibling groups, so a compiled timeline stays correct when resolved at
// slightly different wall-clock times without regeneration.
package timeline

import (
	"github.com/google/uuid"

	"github.com/harbourlight/conductor/internal/models"
	"github.com/harbourlight/conductor/internal/playout"
)

const (
	StatusObjectID    = "rundown_status"
	StatusObjectLayer = "rundown_status"

	ClassRundownActive   = "rundown_active"
	ClassRehearsal       = "rehearsal"
	ClassBeforeFirstPart = "before_first_part"
	ClassNoNextPart      = "no_next_part"
	ClassLookahead       = "lookahead"
)

// SelectedPartInstance pairs a PartInstance with its piece instances for the
// build.
type SelectedPartInstance struct {
	Instance       *models.PartInstance
	PieceInstances []*models.PieceInstance
}

// PartInstancesInfo is the builder's view of the playhead: each slot is nil
// when nothing is selected for it.
type PartInstancesInfo struct {
	Previous *SelectedPartInstance
	Current  *SelectedPartInstance
	Next     *SelectedPartInstance
}

// BuildResult carries the compiled objects plus the transition timings they
// were built against, for callers that persist or republish them.
type BuildResult struct {
	Objects []models.TimelineObject

	// CurrentTimings is the transition from previous into current, nil when
	// nothing is on air.
	CurrentTimings *playout.PartCalculatedTimings

	// RegenerateAt asks for a recompilation at this unix millisecond time,
	// nil when nothing ahead needs one.
	RegenerateAt *int64
}

// PartGroupID is the timeline object id of a PartInstance's group.
func PartGroupID(instanceID uuid.UUID) string {
	return "part_group_" + instanceID.String()
}

// PieceObjectID is the timeline object id of a PieceInstance's content object.
func PieceObjectID(instanceID uuid.UUID) string {
	return "piece_" + instanceID.String()
}

func infiniteGroupID(instanceID uuid.UUID) string {
	return "piece_group_" + instanceID.String() + "_infinite"
}

func noKeepaliveGroupID(partGroupID string) string {
	return partGroupID + "_no_keepalive"
}

// BuildTimelineObjs compiles the playhead into timeline objects. The status
// object always comes first; Part Groups follow in previous, current, next
// order. The next group is only emitted when the current Part auto-nexts,
// anchored into the current group's tail so the overlap is seamless. now is
// the compile time in unix milliseconds; boundaries already behind it never
// request a regeneration.
func BuildTimelineObjs(now int64, playlist *models.RundownPlaylist, info PartInstancesInfo) BuildResult {
	result := BuildResult{}
	result.Objects = append(result.Objects, buildStatusObject(playlist, info))

	if info.Current == nil {
		return result
	}

	current := info.Current
	currentGroupID := PartGroupID(current.Instance.ID)

	var previousPart *models.Part
	if info.Previous != nil {
		previousPart = &info.Previous.Instance.Part
	}
	currentTimings := playout.CalculatePartTimings(
		playlist.HoldState, previousPart, &current.Instance.Part, piecesOf(current.PieceInstances))
	result.CurrentTimings = &currentTimings

	// The transition out of current is only known once a next is selected;
	// its keepalive bounds the no-keepalive sub-group.
	var nextTimings *playout.PartCalculatedTimings
	if info.Next != nil {
		t := playout.CalculatePartTimings(
			playlist.HoldState, &current.Instance.Part, &info.Next.Instance.Part, piecesOf(info.Next.PieceInstances))
		nextTimings = &t
	}

	if info.Previous != nil && info.Previous.Instance.Timings.PlannedStartedPlayback != nil {
		result.Objects = append(result.Objects,
			buildPreviousGroup(info.Previous, currentGroupID, currentTimings)...)
	}

	result.Objects = append(result.Objects,
		buildCurrentGroup(current, currentGroupID, currentTimings, nextTimings)...)

	if info.Next != nil && current.Instance.Part.AutoNext {
		result.Objects = append(result.Objects,
			buildNextGroup(info.Next, currentGroupID, *nextTimings)...)
	}

	result.RegenerateAt = regenerateAt(current, now)

	return result
}

// buildStatusObject emits the always-on state beacon gateways and UI read
// without scanning the rest of the timeline.
func buildStatusObject(playlist *models.RundownPlaylist, info PartInstancesInfo) models.TimelineObject {
	classes := make([]string, 0, 3)
	if playlist.IsActive() {
		if playlist.Rehearsal {
			classes = append(classes, ClassRehearsal)
		} else {
			classes = append(classes, ClassRundownActive)
		}
	}
	if info.Current == nil {
		classes = append(classes, ClassBeforeFirstPart)
	}
	if info.Next == nil {
		classes = append(classes, ClassNoNextPart)
	}
	return models.TimelineObject{
		ID:      StatusObjectID,
		Layer:   StatusObjectLayer,
		Enable:  models.Enable{While: models.Literal("1")},
		Classes: classes,
	}
}

func buildPreviousGroup(prev *SelectedPartInstance, currentGroupID string, currentTimings playout.PartCalculatedTimings) []models.TimelineObject {
	groupID := PartGroupID(prev.Instance.ID)
	group := models.TimelineObject{
		ID: groupID,
		Enable: models.Enable{
			Start: models.Abs(*prev.Instance.Timings.PlannedStartedPlayback),
			End:   models.StartOf(currentGroupID, currentTimings.FromPartRemaining),
		},
		Layer:          "",
		Priority:       4,
		IsGroup:        true,
		PartInstanceID: &prev.Instance.ID,
	}

	objs := []models.TimelineObject{group}
	for _, pi := range prev.PieceInstances {
		if pi.Piece.Virtual || pi.Reset {
			continue
		}
		// The previous group's internal transitions already played out; its
		// pieces keep their plain planned offsets. The out transition is the
		// exception: it runs in the group's tail.
		var enable models.Enable
		switch pi.Piece.PieceType {
		case models.PieceTypeOutTransition:
			enable = models.Enable{Start: models.EndOf(groupID, -prev.Instance.Part.OutTransitionDuration())}
		case models.PieceTypeInTransition:
			continue
		default:
			enable = pieceWindow(pi, 0)
		}
		objs = append(objs, pieceObject(pi, groupID, enable))
	}
	return objs
}

func buildCurrentGroup(
	current *SelectedPartInstance,
	groupID string,
	timings playout.PartCalculatedTimings,
	nextTimings *playout.PartCalculatedTimings,
) []models.TimelineObject {
	group := models.TimelineObject{
		ID:             groupID,
		Layer:          "",
		Priority:       5,
		IsGroup:        true,
		PartInstanceID: &current.Instance.ID,
	}
	if started := current.Instance.Timings.PlannedStartedPlayback; started != nil {
		group.Enable.Start = models.Abs(*started)
	} else {
		group.Enable.Start = models.Now()
	}
	if current.Instance.Part.AutoNext && current.Instance.Part.ExpectedDuration != nil {
		// An auto-nexting group has a bounded life: its planned duration plus
		// the overlap the following take consumes.
		overlap := int64(0)
		if nextTimings != nil {
			overlap = nextTimings.FromPartRemaining
		}
		group.Enable.Duration = models.Abs(*current.Instance.Part.ExpectedDuration + overlap)
	}

	objs := []models.TimelineObject{group}

	// Transition-sensitive pieces live in a sub-group that ends before the
	// keepalive tail, so they never bleed into the overlap with next.
	var keepaliveGroupID string
	if nextTimings != nil && nextTimings.FromPartKeepalive > 0 && hasKeepaliveExcluded(current.PieceInstances) {
		keepaliveGroupID = noKeepaliveGroupID(groupID)
		objs = append(objs, models.TimelineObject{
			ID: keepaliveGroupID,
			Enable: models.Enable{
				Start: models.Abs(0),
				End:   models.EndOf(groupID, -nextTimings.FromPartKeepalive),
			},
			InGroup:        groupID,
			IsGroup:        true,
			PartInstanceID: &current.Instance.ID,
		})
	}

	for _, pi := range current.PieceInstances {
		if pi.Piece.Virtual || pi.Reset {
			continue
		}

		if pi.Infinite != nil && pi.Piece.Lifespan.IsInfinite() {
			objs = append(objs, buildInfiniteGroup(pi, groupID, timings)...)
			continue
		}

		enable, ok := GetPieceEnableInsidePart(pi, timings, groupID)
		if !ok {
			continue
		}
		parent := groupID
		if keepaliveGroupID != "" && pi.Piece.ExcludeDuringPartKeepalive {
			parent = keepaliveGroupID
		}
		objs = append(objs, pieceObject(pi, parent, enable))
	}
	return objs
}

func buildNextGroup(next *SelectedPartInstance, currentGroupID string, timings playout.PartCalculatedTimings) []models.TimelineObject {
	groupID := PartGroupID(next.Instance.ID)
	group := models.TimelineObject{
		ID: groupID,
		Enable: models.Enable{
			// The overlap mechanism: next starts inside current's tail.
			Start: models.EndOf(currentGroupID, -timings.FromPartRemaining),
		},
		Layer:          "",
		IsGroup:        true,
		PartInstanceID: &next.Instance.ID,
	}

	objs := []models.TimelineObject{group}
	for _, pi := range next.PieceInstances {
		if pi.Piece.Virtual || pi.Reset {
			continue
		}
		if pi.Infinite != nil && pi.Piece.Lifespan.IsInfinite() && pi.IsInfiniteContinuation() {
			// Continuations are already represented by the current group's
			// infinite sibling; emitting them again would double-trigger.
			continue
		}
		enable, ok := GetPieceEnableInsidePart(pi, timings, groupID)
		if !ok {
			continue
		}
		objs = append(objs, pieceObject(pi, groupID, enable))
	}
	return objs
}

// buildInfiniteGroup places an infinite piece in its own sibling group. Its
// lifetime crosses Part boundaries the enclosing Part Group does not track,
// so it cannot be a child of the group.
func buildInfiniteGroup(pi *models.PieceInstance, partGroupID string, timings playout.PartCalculatedTimings) []models.TimelineObject {
	groupID := infiniteGroupID(pi.ID)
	group := models.TimelineObject{
		ID:              groupID,
		Layer:           "",
		IsGroup:         true,
		PieceInstanceID: &pi.ID,
	}
	if pi.PlannedStartedPlayback != nil {
		// Continuation: the chain is already on air at a known time.
		group.Enable.Start = models.Abs(*pi.PlannedStartedPlayback)
	} else {
		group.Enable.Start = models.StartOf(partGroupID, timings.ToPartDelay+pi.Piece.Enable.Start)
	}
	if pi.Piece.Enable.Duration != nil {
		group.Enable.Duration = models.Abs(*pi.Piece.Enable.Duration)
	}

	content := models.TimelineObject{
		ID:              PieceObjectID(pi.ID),
		Enable:          models.Enable{Start: models.Abs(0)},
		Layer:           pi.Piece.Layer,
		InGroup:         groupID,
		PieceInstanceID: &pi.ID,
		Content:         pi.Piece.Content,
	}
	return []models.TimelineObject{group, content}
}

// GetPieceEnableInsidePart maps a piece's type to its transition-aware window
// inside the Part Group. Returns ok=false for pieces that emit nothing under
// the computed timings (an in-transition piece when the take is a plain cut).
func GetPieceEnableInsidePart(pi *models.PieceInstance, timings playout.PartCalculatedTimings, partGroupID string) (models.Enable, bool) {
	switch pi.Piece.PieceType {
	case models.PieceTypeInTransition:
		if timings.InTransitionStart == nil {
			return models.Enable{}, false
		}
		enable := models.Enable{Start: models.Abs(*timings.InTransitionStart)}
		if pi.Piece.Enable.Duration != nil {
			enable.Duration = models.Abs(*pi.Piece.Enable.Duration)
		}
		return enable, true

	case models.PieceTypeOutTransition:
		// Runs in the group's tail, sized by the declared out duration.
		dur := pi.Piece.Enable.Duration
		out := int64(0)
		if dur != nil {
			out = *dur
		}
		return models.Enable{Start: models.EndOf(partGroupID, -out)}, true

	default:
		return pieceWindow(pi, timings.ToPartDelay), true
	}
}

// pieceWindow is the plain placement of a normal piece: its planned offset
// shifted by the content delay, or 'now' for ad-libs.
func pieceWindow(pi *models.PieceInstance, toPartDelay int64) models.Enable {
	var enable models.Enable
	if pi.Piece.Enable.IsNow {
		enable.Start = models.Now()
	} else {
		enable.Start = models.Abs(pi.Piece.Enable.Start + toPartDelay)
	}
	if pi.Piece.Enable.Duration != nil {
		enable.Duration = models.Abs(*pi.Piece.Enable.Duration)
	}
	return enable
}

func pieceObject(pi *models.PieceInstance, parentID string, enable models.Enable) models.TimelineObject {
	return models.TimelineObject{
		ID:              PieceObjectID(pi.ID),
		Enable:          enable,
		Layer:           pi.Piece.Layer,
		InGroup:         parentID,
		PieceInstanceID: &pi.ID,
		Content:         pi.Piece.Content,
	}
}

// regenerateAt finds the earliest piece boundary in the current Part that
// needs the timeline recompiled (a piece with a bounded window whose end is
// not expressible symbolically). Boundaries at or before now are skipped:
// they are already reflected in this compile, and rescheduling them would
// fire immediately and loop.
func regenerateAt(current *SelectedPartInstance, now int64) *int64 {
	started := current.Instance.Timings.PlannedStartedPlayback
	if started == nil {
		return nil
	}
	var at *int64
	for _, pi := range current.PieceInstances {
		if pi.Piece.Enable.Duration == nil || pi.Piece.Enable.IsNow || pi.Reset {
			continue
		}
		boundary := *started + pi.Piece.Enable.Start + *pi.Piece.Enable.Duration
		if boundary <= now {
			continue
		}
		if at == nil || boundary < *at {
			b := boundary
			at = &b
		}
	}
	return at
}

func hasKeepaliveExcluded(instances []*models.PieceInstance) bool {
	for _, pi := range instances {
		if pi.Piece.ExcludeDuringPartKeepalive && !pi.Reset {
			return true
		}
	}
	return false
}

func piecesOf(instances []*models.PieceInstance) []models.Piece {
	pieces := make([]models.Piece, 0, len(instances))
	for _, pi := range instances {
		pieces = append(pieces, pi.Piece)
	}
	return pieces
}

