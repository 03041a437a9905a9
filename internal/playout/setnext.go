package playout

import (
	"fmt"

	"github.com/google/uuid"

	"github.com/harbourlight/conductor/internal/logger"
	"github.com/harbourlight/conductor/internal/models"
)

// NextPartSelection names what should become next: a fresh Part selection or
// an existing PartInstance to re-next.
type NextPartSelection struct {
	Selection *SelectNextPartResult
	Instance  *models.PartInstance
}

// SetNextPart mutates the playout model so the given selection becomes the
// playlist's next Part. A nil selection clears nextPartInfo. Passing an
// instance that is already next only refreshes its infinite-piece sync.
func SetNextPart(m *PlayoutModel, next *NextPartSelection, manual bool, timeOffset *int64) error {
	if !m.Playlist.IsActive() {
		return ErrPlaylistNotActive
	}

	if next == nil {
		clearNextPart(m)
		return nil
	}

	if next.Instance != nil {
		return renextInstance(m, next.Instance, manual)
	}

	return nextFreshPart(m, next.Selection, manual, timeOffset)
}

func clearNextPart(m *PlayoutModel) {
	if existing := m.NextPartInstance(); existing != nil && !existing.IsTaken {
		m.ResetPartInstance(existing.ID)
	}
	m.Playlist.NextPartInfo = nil
	m.Playlist.NextTimeOffset = nil
	m.MarkPlaylistDirty()
}

// renextInstance re-nexts a PartInstance that already exists in the model.
// Idempotent: only the infinite-piece continuations are refreshed.
func renextInstance(m *PlayoutModel, instance *models.PartInstance, manual bool) error {
	inModel := m.PartInstances[instance.ID]
	if inModel == nil || inModel.Reset {
		return fmt.Errorf("re-next of instance %s: %w", instance.ID, ErrPartInstanceNotFound)
	}

	syncInfinitesForNextInstance(m, inModel)

	m.Playlist.NextPartInfo = &models.PartInstanceRef{
		PartInstanceID:          inModel.ID,
		PartID:                  inModel.PartID,
		RundownID:               inModel.RundownID,
		ManuallySelected:        manual,
		ConsumesQueuedSegmentID: inModel.ConsumesQueuedSegmentID,
	}
	m.MarkPlaylistDirty()
	return nil
}

func nextFreshPart(m *PlayoutModel, selection *SelectNextPartResult, manual bool, timeOffset *int64) error {
	part := selection.Part
	if part.Invalid {
		return fmt.Errorf("part %s: %w", part.ID, ErrPartNotPlayable)
	}
	if m.PartByID(part.ID) == nil {
		return fmt.Errorf("part %s: %w", part.ID, ErrPartNotFound)
	}

	current := m.CurrentPartInstance()

	// Re-nexting the same Part must not create a second instance or bump
	// takeCount.
	if existing := m.NextPartInstance(); existing != nil && !existing.IsTaken && !existing.Reset &&
		existing.PartID == part.ID {
		return renextInstance(m, existing, manual)
	}

	takeCount := 1
	if current != nil {
		takeCount = current.TakeCount + 1
	}

	// Staying inside the segment keeps the segmentPlayoutId; entering (or
	// re-entering) one mints a new one, which is how infinite pieces detect
	// segment re-entry.
	segmentPlayoutID := uuid.New()
	if current != nil && current.SegmentID == part.SegmentID {
		segmentPlayoutID = current.SegmentPlayoutID
	}

	instance := &models.PartInstance{
		ID:                      uuid.New(),
		PlaylistActivationID:    *m.Playlist.ActivationID,
		PlaylistID:              m.Playlist.ID,
		RundownID:               part.RundownID,
		SegmentID:               part.SegmentID,
		PartID:                  part.ID,
		Part:                    *part,
		TakeCount:               takeCount,
		SegmentPlayoutID:        segmentPlayoutID,
		ConsumesQueuedSegmentID: selection.ConsumesQueuedSegmentID,
	}

	// Supersede any previous next before inserting the replacement.
	if previousNext := m.NextPartInstance(); previousNext != nil && !previousNext.IsTaken {
		m.ResetPartInstance(previousNext.ID)
	}

	m.InsertPartInstance(instance)
	materializePieceInstances(m, instance)
	syncInfinitesForNextInstance(m, instance)

	m.Playlist.NextPartInfo = &models.PartInstanceRef{
		PartInstanceID:          instance.ID,
		PartID:                  part.ID,
		RundownID:               part.RundownID,
		ManuallySelected:        manual,
		ConsumesQueuedSegmentID: selection.ConsumesQueuedSegmentID,
	}
	m.Playlist.NextTimeOffset = timeOffset
	m.MarkPlaylistDirty()

	cleanupAfterSetNext(m, current, instance)

	logger.Log.Debug().
		Str("playlist_id", m.Playlist.ID.String()).
		Str("part_id", part.ID.String()).
		Str("part_instance_id", instance.ID.String()).
		Int("take_count", takeCount).
		Msg("Set next part")

	return nil
}

// materializePieceInstances creates PieceInstances for every Piece of the
// instance's Part. Pieces with an infinite lifespan originate a fresh chain.
func materializePieceInstances(m *PlayoutModel, instance *models.PartInstance) {
	for _, piece := range m.PiecesForPart(instance.PartID) {
		pi := &models.PieceInstance{
			ID:                   uuid.New(),
			PlaylistActivationID: instance.PlaylistActivationID,
			RundownID:            instance.RundownID,
			PartInstanceID:       instance.ID,
			Piece:                piece,
		}
		if piece.Lifespan.IsInfinite() {
			pi.Infinite = &models.InfinitePiece{
				InfiniteInstanceID:    uuid.New(),
				InfiniteInstanceIndex: 0,
				InfinitePieceID:       piece.ID,
			}
		}
		m.InsertPieceInstance(pi)
	}
}

// syncInfinitesForNextInstance projects infinite chains from the current
// instance into the next one. Safe to call repeatedly: existing
// continuations are rebuilt from scratch each time.
func syncInfinitesForNextInstance(m *PlayoutModel, next *models.PartInstance) {
	// Drop previous continuations before rebuilding.
	for _, pi := range m.PieceInstancesFor(next.ID) {
		if pi.IsInfiniteContinuation() {
			pi.Reset = true
			m.MarkPieceInstanceDirty(pi.ID)
		}
	}

	current := m.CurrentPartInstance()
	if current == nil || current.ID == next.ID {
		return
	}

	ownLayers := make(map[string]bool)
	for _, pi := range m.PieceInstancesFor(next.ID) {
		ownLayers[pi.Piece.Layer] = true
	}

	for _, pi := range m.PieceInstancesFor(current.ID) {
		if pi.Infinite == nil || pi.Piece.Virtual {
			continue
		}
		if !infiniteContinuesInto(pi, current, next) {
			continue
		}
		// A piece of the next Part on the same layer caps the chain.
		if ownLayers[pi.Piece.Layer] {
			continue
		}
		continuation := &models.PieceInstance{
			ID:                   uuid.New(),
			PlaylistActivationID: next.PlaylistActivationID,
			RundownID:            next.RundownID,
			PartInstanceID:       next.ID,
			Piece:                pi.Piece,
			Infinite: &models.InfinitePiece{
				InfiniteInstanceID:    pi.Infinite.InfiniteInstanceID,
				InfiniteInstanceIndex: pi.Infinite.InfiniteInstanceIndex + 1,
				InfinitePieceID:       pi.Infinite.InfinitePieceID,
				FromPreviousPart:      true,
			},
			PlannedStartedPlayback: pi.PlannedStartedPlayback,
		}
		// Continuations start with their chain, not with the new Part.
		continuation.Piece.Enable = models.PieceEnable{Start: 0}
		m.InsertPieceInstance(continuation)
	}
}

// infiniteContinuesInto applies the lifespan rules for carrying a chain from
// one instance into the following one.
func infiniteContinuesInto(pi *models.PieceInstance, from, to *models.PartInstance) bool {
	switch pi.Piece.Lifespan {
	case models.PieceLifespanOutOnSegmentChange:
		// Same segment pass: a re-entered segment has a fresh playout id and
		// does not continue the chain.
		return from.SegmentPlayoutID == to.SegmentPlayoutID
	case models.PieceLifespanOutOnSegmentEnd:
		return from.SegmentID == to.SegmentID
	case models.PieceLifespanOutOnRundownChange, models.PieceLifespanOutOnRundownEnd:
		return from.RundownID == to.RundownID
	default:
		return false
	}
}

// cleanupAfterSetNext applies the instance-hygiene rules that keep repeated
// re-nexting from accumulating state.
func cleanupAfterSetNext(m *PlayoutModel, current, next *models.PartInstance) {
	currentID := uuid.Nil
	if current != nil {
		currentID = current.ID
	}

	// Discard untaken instances of the same Part that are neither current
	// nor next.
	for id, pi := range m.PartInstances {
		if id == next.ID || id == currentID {
			continue
		}
		if pi.PartID == next.PartID && !pi.IsTaken && !pi.Reset {
			m.ResetPartInstance(id)
		}
	}

	enteringNewSegment := current == nil || current.SegmentID != next.SegmentID
	jumpingBackward := current != nil && current.SegmentID == next.SegmentID &&
		next.Part.Rank < current.Part.Rank

	if enteringNewSegment && current != nil {
		// Reset trailing instances of the old segment beyond the current
		// rank; they belong to a pass that will not continue.
		for id, pi := range m.PartInstances {
			if id == currentID || pi.Reset || pi.SegmentID != current.SegmentID {
				continue
			}
			if pi.Part.Rank > current.Part.Rank && !pi.IsTaken {
				m.ResetPartInstance(id)
			}
		}
	}

	if enteringNewSegment || jumpingBackward {
		// A freshly-entered or re-entered segment always starts clean.
		for id, pi := range m.PartInstances {
			if id == next.ID || id == currentID || pi.Reset {
				continue
			}
			if pi.SegmentID == next.SegmentID {
				m.ResetPartInstance(id)
			}
		}
	}

	queueOrphanCleanup(m)
}

// queueOrphanCleanup defers orphaned-document cleanup to ingest rather than
// doing it inline on the scheduling critical path.
func queueOrphanCleanup(m *PlayoutModel) {
	var orphanedSegments []uuid.UUID
	for i := range m.Segments {
		if m.Segments[i].Orphaned != models.SegmentOrphanedNone {
			orphanedSegments = append(orphanedSegments, m.Segments[i].ID)
		}
	}
	if len(orphanedSegments) > 0 {
		m.QueueCleanup(CleanupRequest{Kind: CleanupOrphanedSegments, SegmentIDs: orphanedSegments})
	}

	currentID, nextID := uuid.Nil, uuid.Nil
	if ref := m.Playlist.CurrentPartInfo; ref != nil {
		currentID = ref.PartInstanceID
	}
	if ref := m.Playlist.NextPartInfo; ref != nil {
		nextID = ref.PartInstanceID
	}
	var staleInstances []uuid.UUID
	for id, pi := range m.PartInstances {
		if pi.Orphaned != models.PartInstanceOrphanedNone && id != currentID && id != nextID {
			staleInstances = append(staleInstances, id)
		}
	}
	if len(staleInstances) > 0 {
		m.QueueCleanup(CleanupRequest{Kind: CleanupOrphanedPartInstances, InstanceID: staleInstances})
	}
}
