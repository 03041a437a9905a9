package playout

import (
	"github.com/google/uuid"

	"github.com/harbourlight/conductor/internal/models"
)

// SelectNextPartResult is the selector's verdict on what should play next.
type SelectNextPartResult struct {
	Part  *models.Part
	Index int

	// ConsumesQueuedSegmentID is set when the selection was overridden by the
	// playlist's queued segment; taking it must clear that queue.
	ConsumesQueuedSegmentID bool
}

// SelectNextPartOptions tunes the selection scan.
type SelectNextPartOptions struct {
	// QuickLoopForceAutoNext mirrors the studio setting: in the
	// "valid duration" mode, Parts without an expected duration are not
	// playable while a loop is running.
	QuickLoopForceAutoNext models.ForceQuickLoopAutoNext

	// IgnoreUnplayabilityOfCurrentNextedPart keeps an already-nexted Part
	// selectable even if an ingest edit made it unplayable, so re-evaluation
	// does not silently move the operator's next point.
	IgnoreUnplayabilityOfCurrentNextedPart bool
}

// SelectNextPart chooses the next playable Part given the current state. It
// is deterministic and side-effect free: the single source of truth for
// "what comes next". parts must be the full ordered Part list of the
// playlist; segments the ordered Segment list. Returns nil only when no
// candidate exists (end of show, no loop).
func SelectNextPart(
	playlist *models.RundownPlaylist,
	previousInstance *models.PartInstance,
	currentlyNextedInstance *models.PartInstance,
	segments []models.Segment,
	parts []models.Part,
	opts SelectNextPartOptions,
) *SelectNextPartResult {
	loopRunning := playlist.QuickLoop != nil &&
		playlist.QuickLoop.Start != nil && playlist.QuickLoop.End != nil

	playable := func(p *models.Part) bool {
		if opts.IgnoreUnplayabilityOfCurrentNextedPart &&
			currentlyNextedInstance != nil && currentlyNextedInstance.PartID == p.ID {
			return true
		}
		if !p.IsPlayable() {
			return false
		}
		if loopRunning && opts.QuickLoopForceAutoNext == models.ForceQuickLoopAutoNextWithDuration {
			if p.ExpectedDuration == nil || *p.ExpectedDuration <= 0 {
				return false
			}
		}
		return true
	}

	findFirstPlayable := func(from, until int) *SelectNextPartResult {
		for i := from; i < len(parts) && i <= until; i++ {
			if playable(&parts[i]) {
				return &SelectNextPartResult{Part: &parts[i], Index: i}
			}
		}
		return nil
	}

	searchFromIndex := 0
	prevIndex := -1
	if previousInstance != nil {
		prevIndex = indexOfPart(parts, previousInstance.PartID)
		if prevIndex >= 0 {
			searchFromIndex = prevIndex + 1
		} else {
			// The previous Part was deleted by ingest. Resume from the first
			// Part after its old rank within its segment, or failing that
			// from the following segment.
			searchFromIndex = fallbackSearchIndex(segments, parts, previousInstance)
			prevIndex = searchFromIndex - 1
		}
	}

	nextPart := findFirstPlayable(searchFromIndex, len(parts)-1)

	if loopRunning {
		endIdx := QuickLoopMarkerEndIndex(playlist.QuickLoop.End, segments, parts)
		startIdx := QuickLoopMarkerStartIndex(playlist.QuickLoop.Start, segments, parts)
		if startIdx >= 0 && endIdx >= 0 && prevIndex >= startIdx && prevIndex <= endIdx {
			// Previous Part was inside the loop: wrap instead of walking out
			// of it (or off the end of the show).
			if nextPart == nil || nextPart.Index > endIdx {
				nextPart = findFirstPlayable(startIdx, endIdx)
			}
		}
	}

	if playlist.QueuedSegmentID != nil {
		queued := *playlist.QueuedSegmentID
		if nextPart == nil || nextPart.Part.SegmentID != queued {
			for i := range parts {
				if parts[i].SegmentID == queued && playable(&parts[i]) {
					nextPart = &SelectNextPartResult{Part: &parts[i], Index: i, ConsumesQueuedSegmentID: true}
					break
				}
			}
		}
	}

	return nextPart
}

func indexOfPart(parts []models.Part, partID uuid.UUID) int {
	for i := range parts {
		if parts[i].ID == partID {
			return i
		}
	}
	return -1
}

// fallbackSearchIndex tolerates ingest deleting the previous Part: it finds
// the first Part after the deleted one's rank in the same segment, else the
// first Part of any later segment.
func fallbackSearchIndex(segments []models.Segment, parts []models.Part, previousInstance *models.PartInstance) int {
	for i := range parts {
		if parts[i].SegmentID == previousInstance.SegmentID && parts[i].Rank > previousInstance.Part.Rank {
			return i
		}
	}
	segRank := -1
	for i := range segments {
		if segments[i].ID == previousInstance.SegmentID {
			segRank = i
			break
		}
	}
	if segRank < 0 {
		// The whole segment is gone too; restart the scan from the top.
		return 0
	}
	laterSegments := make(map[uuid.UUID]bool, len(segments)-segRank)
	for i := segRank + 1; i < len(segments); i++ {
		laterSegments[segments[i].ID] = true
	}
	for i := range parts {
		if laterSegments[parts[i].SegmentID] {
			return i
		}
	}
	return len(parts)
}

// QuickLoopMarkerStartIndex resolves a loop start marker to the first Part
// index inside its scope, or -1 when the marker no longer matches anything.
func QuickLoopMarkerStartIndex(marker *models.QuickLoopMarker, segments []models.Segment, parts []models.Part) int {
	switch marker.Type {
	case models.QuickLoopMarkerPlaylist:
		if len(parts) == 0 {
			return -1
		}
		return 0
	case models.QuickLoopMarkerPart:
		return indexOfPart(parts, marker.ID)
	case models.QuickLoopMarkerSegment:
		for i := range parts {
			if parts[i].SegmentID == marker.ID {
				return i
			}
		}
	case models.QuickLoopMarkerRundown:
		for i := range parts {
			if parts[i].RundownID == marker.ID {
				return i
			}
		}
	}
	return -1
}

// QuickLoopMarkerEndIndex resolves a loop end marker to the last Part index
// inside its scope, or -1 when the marker no longer matches anything.
func QuickLoopMarkerEndIndex(marker *models.QuickLoopMarker, segments []models.Segment, parts []models.Part) int {
	switch marker.Type {
	case models.QuickLoopMarkerPlaylist:
		return len(parts) - 1
	case models.QuickLoopMarkerPart:
		return indexOfPart(parts, marker.ID)
	case models.QuickLoopMarkerSegment:
		for i := len(parts) - 1; i >= 0; i-- {
			if parts[i].SegmentID == marker.ID {
				return i
			}
		}
	case models.QuickLoopMarkerRundown:
		for i := len(parts) - 1; i >= 0; i-- {
			if parts[i].RundownID == marker.ID {
				return i
			}
		}
	}
	return -1
}
