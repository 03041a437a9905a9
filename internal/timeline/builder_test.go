package timeline

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/harbourlight/conductor/internal/models"
)

func activePlaylist() *models.RundownPlaylist {
	activation := uuid.New()
	return &models.RundownPlaylist{ID: uuid.New(), ActivationID: &activation}
}

func selected(part models.Part, started *int64, pieces ...models.Piece) *SelectedPartInstance {
	instance := &models.PartInstance{
		ID:     uuid.New(),
		PartID: part.ID,
		Part:   part,
	}
	instance.Timings.PlannedStartedPlayback = started
	s := &SelectedPartInstance{Instance: instance}
	for _, p := range pieces {
		s.PieceInstances = append(s.PieceInstances, &models.PieceInstance{
			ID:             uuid.New(),
			PartInstanceID: instance.ID,
			Piece:          p,
		})
	}
	return s
}

func objByID(t *testing.T, objs []models.TimelineObject, id string) models.TimelineObject {
	t.Helper()
	for _, o := range objs {
		if o.ID == id {
			return o
		}
	}
	t.Fatalf("object %s not in timeline", id)
	return models.TimelineObject{}
}

func TestBuild_StatusObjectAlwaysFirst(t *testing.T) {
	playlist := activePlaylist()

	result := BuildTimelineObjs(0, playlist, PartInstancesInfo{})

	require.NotEmpty(t, result.Objects)
	status := result.Objects[0]
	assert.Equal(t, StatusObjectID, status.ID)
	require.NotNil(t, status.Enable.While)
	assert.Contains(t, status.Classes, ClassRundownActive)
	assert.Contains(t, status.Classes, ClassBeforeFirstPart)
	assert.Contains(t, status.Classes, ClassNoNextPart)
}

func TestBuild_RehearsalClass(t *testing.T) {
	playlist := activePlaylist()
	playlist.Rehearsal = true

	result := BuildTimelineObjs(0, playlist, PartInstancesInfo{})

	assert.Contains(t, result.Objects[0].Classes, ClassRehearsal)
	assert.NotContains(t, result.Objects[0].Classes, ClassRundownActive)
}

func TestBuild_CurrentGroupStartsNowBeforePlayback(t *testing.T) {
	playlist := activePlaylist()
	part := models.Part{ID: uuid.New()}
	current := selected(part, nil)

	result := BuildTimelineObjs(0, playlist, PartInstancesInfo{Current: current})

	group := objByID(t, result.Objects, PartGroupID(current.Instance.ID))
	assert.True(t, group.IsGroup)
	require.NotNil(t, group.Enable.Start)
	assert.Equal(t, models.ExprNow, group.Enable.Start.Kind)
}

func TestBuild_CurrentGroupAbsoluteOnceStarted(t *testing.T) {
	playlist := activePlaylist()
	part := models.Part{ID: uuid.New()}
	started := int64(123_000)
	current := selected(part, &started)

	result := BuildTimelineObjs(0, playlist, PartInstancesInfo{Current: current})

	group := objByID(t, result.Objects, PartGroupID(current.Instance.ID))
	require.NotNil(t, group.Enable.Start)
	assert.Equal(t, models.ExprAbsolute, group.Enable.Start.Kind)
	assert.Equal(t, started, group.Enable.Start.Abs)
}

func TestBuild_NextGroupOnlyWhenAutoNext(t *testing.T) {
	playlist := activePlaylist()
	started := int64(1000)
	current := selected(models.Part{ID: uuid.New()}, &started)
	next := selected(models.Part{ID: uuid.New()}, nil)

	result := BuildTimelineObjs(0, playlist, PartInstancesInfo{Current: current, Next: next})

	for _, o := range result.Objects {
		assert.NotEqual(t, PartGroupID(next.Instance.ID), o.ID)
	}
}

func TestBuild_NextGroupAnchoredIntoCurrentTail(t *testing.T) {
	playlist := activePlaylist()
	started := int64(1000)
	expected := int64(5000)
	overlap := int64(800)
	currentPart := models.Part{
		ID:               uuid.New(),
		AutoNext:         true,
		ExpectedDuration: &expected,
		AutoNextOverlap:  &overlap,
	}
	current := selected(currentPart, &started)
	next := selected(models.Part{ID: uuid.New()}, nil)

	result := BuildTimelineObjs(0, playlist, PartInstancesInfo{Current: current, Next: next})

	currentGroupID := PartGroupID(current.Instance.ID)
	nextGroup := objByID(t, result.Objects, PartGroupID(next.Instance.ID))
	require.NotNil(t, nextGroup.Enable.Start)
	assert.Equal(t, models.ExprRelative, nextGroup.Enable.Start.Kind)
	assert.Equal(t, currentGroupID, nextGroup.Enable.Start.Ref.ObjectID)
	assert.Equal(t, models.RefEndEdge, nextGroup.Enable.Start.Ref.Edge)
	assert.Equal(t, -overlap, nextGroup.Enable.Start.Ref.Offset)

	// The auto-nexting current group is bounded: expected plus overlap.
	currentGroup := objByID(t, result.Objects, currentGroupID)
	require.NotNil(t, currentGroup.Enable.Duration)
	assert.Equal(t, expected+overlap, currentGroup.Enable.Duration.Abs)
}

func TestBuild_PreviousGroupEndsAtCurrentStart(t *testing.T) {
	playlist := activePlaylist()
	prevStarted := int64(1000)
	curStarted := int64(9000)
	previous := selected(models.Part{ID: uuid.New()}, &prevStarted)
	current := selected(models.Part{ID: uuid.New()}, &curStarted)

	result := BuildTimelineObjs(0, playlist, PartInstancesInfo{Previous: previous, Current: current})

	prevGroup := objByID(t, result.Objects, PartGroupID(previous.Instance.ID))
	require.NotNil(t, prevGroup.Enable.End)
	assert.Equal(t, models.ExprRelative, prevGroup.Enable.End.Kind)
	assert.Equal(t, PartGroupID(current.Instance.ID), prevGroup.Enable.End.Ref.ObjectID)
	assert.Equal(t, models.RefStartEdge, prevGroup.Enable.End.Ref.Edge)
}

func TestBuild_InTransitionShiftsNormalPieces(t *testing.T) {
	playlist := activePlaylist()
	prevStarted := int64(1000)
	previous := selected(models.Part{ID: uuid.New()}, &prevStarted)

	delay := int64(500)
	currentPart := models.Part{
		ID: uuid.New(),
		InTransition: &models.PartInTransition{
			PartContentDelayDuration:      delay,
			PreviousPartKeepaliveDuration: 200,
		},
	}
	transDur := int64(700)
	normal := models.Piece{ID: uuid.New(), Layer: "cam0", PieceType: models.PieceTypeNormal}
	trans := models.Piece{
		ID: uuid.New(), Layer: "dve0",
		PieceType: models.PieceTypeInTransition,
		Enable:    models.PieceEnable{Duration: &transDur},
	}
	current := selected(currentPart, nil, normal, trans)

	result := BuildTimelineObjs(0, playlist, PartInstancesInfo{Previous: previous, Current: current})

	normalObj := objByID(t, result.Objects, PieceObjectID(current.PieceInstances[0].ID))
	assert.Equal(t, delay, normalObj.Enable.Start.Abs)

	transObj := objByID(t, result.Objects, PieceObjectID(current.PieceInstances[1].ID))
	require.NotNil(t, result.CurrentTimings.InTransitionStart)
	assert.Equal(t, *result.CurrentTimings.InTransitionStart, transObj.Enable.Start.Abs)
	assert.Equal(t, transDur, transObj.Enable.Duration.Abs)
}

func TestBuild_InTransitionPieceDroppedOnPlainCut(t *testing.T) {
	playlist := activePlaylist()
	trans := models.Piece{ID: uuid.New(), Layer: "dve0", PieceType: models.PieceTypeInTransition}
	// No previous part: the take is a plain cut, the transition never runs.
	current := selected(models.Part{ID: uuid.New()}, nil, trans)

	result := BuildTimelineObjs(0, playlist, PartInstancesInfo{Current: current})

	for _, o := range result.Objects {
		assert.NotEqual(t, PieceObjectID(current.PieceInstances[0].ID), o.ID)
	}
}

func TestBuild_OutTransitionAnchoredToGroupEnd(t *testing.T) {
	playlist := activePlaylist()
	outDur := int64(600)
	out := models.Piece{
		ID: uuid.New(), Layer: "dve0",
		PieceType: models.PieceTypeOutTransition,
		Enable:    models.PieceEnable{Duration: &outDur},
	}
	current := selected(models.Part{ID: uuid.New()}, nil, out)

	result := BuildTimelineObjs(0, playlist, PartInstancesInfo{Current: current})

	obj := objByID(t, result.Objects, PieceObjectID(current.PieceInstances[0].ID))
	require.NotNil(t, obj.Enable.Start)
	assert.Equal(t, models.ExprRelative, obj.Enable.Start.Kind)
	assert.Equal(t, PartGroupID(current.Instance.ID), obj.Enable.Start.Ref.ObjectID)
	assert.Equal(t, models.RefEndEdge, obj.Enable.Start.Ref.Edge)
	assert.Equal(t, -outDur, obj.Enable.Start.Ref.Offset)
}

func TestBuild_InfinitePieceGetsSiblingGroup(t *testing.T) {
	playlist := activePlaylist()
	infinite := models.Piece{
		ID: uuid.New(), Layer: "gfx0",
		Lifespan: models.PieceLifespanOutOnSegmentEnd,
	}
	current := selected(models.Part{ID: uuid.New()}, nil, infinite)
	current.PieceInstances[0].Infinite = &models.InfinitePiece{
		InfiniteInstanceID: uuid.New(),
		InfinitePieceID:    infinite.ID,
	}

	result := BuildTimelineObjs(0, playlist, PartInstancesInfo{Current: current})

	groupID := "piece_group_" + current.PieceInstances[0].ID.String() + "_infinite"
	group := objByID(t, result.Objects, groupID)
	assert.True(t, group.IsGroup)
	// Not nested in the part group: its lifetime crosses part boundaries.
	assert.Empty(t, group.InGroup)
	// Fresh origin: anchored to the part group's start.
	require.NotNil(t, group.Enable.Start)
	assert.Equal(t, models.ExprRelative, group.Enable.Start.Kind)
	assert.Equal(t, PartGroupID(current.Instance.ID), group.Enable.Start.Ref.ObjectID)

	content := objByID(t, result.Objects, PieceObjectID(current.PieceInstances[0].ID))
	assert.Equal(t, groupID, content.InGroup)
}

func TestBuild_InfiniteContinuationKeepsKnownStart(t *testing.T) {
	playlist := activePlaylist()
	infinite := models.Piece{
		ID: uuid.New(), Layer: "gfx0",
		Lifespan: models.PieceLifespanOutOnSegmentEnd,
	}
	current := selected(models.Part{ID: uuid.New()}, nil, infinite)
	startedAt := int64(42_000)
	current.PieceInstances[0].Infinite = &models.InfinitePiece{
		InfiniteInstanceID:    uuid.New(),
		InfiniteInstanceIndex: 1,
		InfinitePieceID:       infinite.ID,
		FromPreviousPart:      true,
	}
	current.PieceInstances[0].PlannedStartedPlayback = &startedAt

	result := BuildTimelineObjs(0, playlist, PartInstancesInfo{Current: current})

	groupID := "piece_group_" + current.PieceInstances[0].ID.String() + "_infinite"
	group := objByID(t, result.Objects, groupID)
	require.NotNil(t, group.Enable.Start)
	assert.Equal(t, models.ExprAbsolute, group.Enable.Start.Kind)
	assert.Equal(t, startedAt, group.Enable.Start.Abs)
}

func TestBuild_KeepaliveExcludedPieceInSubGroup(t *testing.T) {
	playlist := activePlaylist()
	sensitive := models.Piece{
		ID: uuid.New(), Layer: "gfx1",
		ExcludeDuringPartKeepalive: true,
	}
	current := selected(models.Part{ID: uuid.New()}, nil, sensitive)
	nextPart := models.Part{
		ID: uuid.New(),
		InTransition: &models.PartInTransition{
			PreviousPartKeepaliveDuration: 400,
		},
	}
	next := selected(nextPart, nil)

	result := BuildTimelineObjs(0, playlist, PartInstancesInfo{Current: current, Next: next})

	groupID := PartGroupID(current.Instance.ID)
	subID := groupID + "_no_keepalive"
	sub := objByID(t, result.Objects, subID)
	assert.Equal(t, groupID, sub.InGroup)
	require.NotNil(t, sub.Enable.End)
	assert.Equal(t, int64(-400), sub.Enable.End.Ref.Offset)

	obj := objByID(t, result.Objects, PieceObjectID(current.PieceInstances[0].ID))
	assert.Equal(t, subID, obj.InGroup)
}

func TestBuild_VirtualPiecesEmitNothing(t *testing.T) {
	playlist := activePlaylist()
	virtual := models.Piece{ID: uuid.New(), Layer: "gfx0", Virtual: true}
	current := selected(models.Part{ID: uuid.New()}, nil, virtual)

	result := BuildTimelineObjs(0, playlist, PartInstancesInfo{Current: current})

	for _, o := range result.Objects {
		assert.NotEqual(t, PieceObjectID(current.PieceInstances[0].ID), o.ID)
	}
}

func TestBuild_RegenerateAtEarliestPieceBoundary(t *testing.T) {
	playlist := activePlaylist()
	started := int64(10_000)
	durA, durB := int64(5000), int64(2000)
	a := models.Piece{ID: uuid.New(), Layer: "a", Enable: models.PieceEnable{Start: 0, Duration: &durA}}
	b := models.Piece{ID: uuid.New(), Layer: "b", Enable: models.PieceEnable{Start: 1000, Duration: &durB}}
	current := selected(models.Part{ID: uuid.New()}, &started, a, b)

	result := BuildTimelineObjs(0, playlist, PartInstancesInfo{Current: current})

	require.NotNil(t, result.RegenerateAt)
	assert.Equal(t, int64(13_000), *result.RegenerateAt)
}

func TestBuild_RegenerateAtSkipsElapsedBoundaries(t *testing.T) {
	playlist := activePlaylist()
	started := int64(10_000)
	durA, durB := int64(5000), int64(60_000)
	a := models.Piece{ID: uuid.New(), Layer: "a", Enable: models.PieceEnable{Start: 0, Duration: &durA}}
	b := models.Piece{ID: uuid.New(), Layer: "b", Enable: models.PieceEnable{Start: 1000, Duration: &durB}}
	current := selected(models.Part{ID: uuid.New()}, &started, a, b)

	// The first boundary (15_000) is already behind the compile time; only
	// the later one may request a regeneration.
	result := BuildTimelineObjs(60_000, playlist, PartInstancesInfo{Current: current})
	require.NotNil(t, result.RegenerateAt)
	assert.Equal(t, int64(71_000), *result.RegenerateAt)

	// Once every boundary has elapsed nothing is requested, otherwise each
	// regeneration would immediately schedule the next.
	result = BuildTimelineObjs(80_000, playlist, PartInstancesInfo{Current: current})
	assert.Nil(t, result.RegenerateAt)
}

func TestBuildLookaheadObjs(t *testing.T) {
	parts := []LookaheadPart{
		{Part: models.Part{ID: uuid.New()}, Pieces: []models.Piece{{ID: uuid.New(), Layer: "cam0"}}},
		{Part: models.Part{ID: uuid.New()}, Pieces: []models.Piece{{ID: uuid.New(), Layer: "cam1"}}},
		{Part: models.Part{ID: uuid.New()}, Pieces: []models.Piece{{ID: uuid.New(), Layer: "cam2"}}},
	}

	objs := BuildLookaheadObjs(parts, 2)

	require.Len(t, objs, 2)
	for _, o := range objs {
		assert.Contains(t, o.Classes, ClassLookahead)
		assert.Less(t, o.Priority, 1.0)
	}
}
