package playout

import (
	"fmt"

	"github.com/google/uuid"

	"github.com/harbourlight/conductor/internal/logger"
	"github.com/harbourlight/conductor/internal/models"
)

// QuickLoopMarkerPosition selects which end of the loop a marker command
// addresses.
type QuickLoopMarkerPosition string

const (
	QuickLoopMarkerPositionStart QuickLoopMarkerPosition = "start"
	QuickLoopMarkerPositionEnd   QuickLoopMarkerPosition = "end"
)

// SetQuickLoopMarker places, moves or clears one end of the playlist's quick
// loop. A nil marker clears that end; clearing either end stops the loop.
func SetQuickLoopMarker(m *PlayoutModel, position QuickLoopMarkerPosition, marker *models.QuickLoopMarker) error {
	if !m.Playlist.IsActive() {
		return ErrPlaylistNotActive
	}

	if marker != nil {
		if err := validateQuickLoopMarker(m, marker); err != nil {
			return err
		}
	}

	if m.Playlist.QuickLoop == nil {
		m.Playlist.QuickLoop = &models.QuickLoopProps{
			ForceAutoNext: models.ForceQuickLoopAutoNextDisabled,
		}
	}
	loop := m.Playlist.QuickLoop

	switch position {
	case QuickLoopMarkerPositionStart:
		loop.Start = marker
	case QuickLoopMarkerPositionEnd:
		loop.End = marker
	default:
		return fmt.Errorf("unknown quick loop marker position %q", position)
	}

	if loop.Start == nil || loop.End == nil {
		loop.Running = false
	} else if current := m.CurrentPartInstance(); current != nil {
		updateQuickLoopRunning(m, current)
	}

	m.MarkPlaylistDirty()

	logger.Log.Info().
		Str("playlist_id", m.Playlist.ID.String()).
		Str("position", string(position)).
		Bool("cleared", marker == nil).
		Msg("Quick loop marker updated")

	return nil
}

func validateQuickLoopMarker(m *PlayoutModel, marker *models.QuickLoopMarker) error {
	switch marker.Type {
	case models.QuickLoopMarkerPlaylist:
		return nil
	case models.QuickLoopMarkerPart:
		if m.PartByID(marker.ID) == nil {
			return fmt.Errorf("quick loop marker part %s: %w", marker.ID, ErrPartNotFound)
		}
	case models.QuickLoopMarkerSegment:
		if m.SegmentByID(marker.ID) == nil {
			return fmt.Errorf("quick loop marker segment %s: %w", marker.ID, ErrSegmentNotFound)
		}
	case models.QuickLoopMarkerRundown:
		found := false
		for i := range m.Rundowns {
			if m.Rundowns[i].ID == marker.ID {
				found = true
				break
			}
		}
		if !found {
			return fmt.Errorf("quick loop marker rundown %s: %w", marker.ID, ErrPartNotFound)
		}
	default:
		return fmt.Errorf("unknown quick loop marker type %q", marker.Type)
	}
	return nil
}

// MoveNextPart shifts the next point by partDelta playable Parts or
// segmentDelta segments relative to the currently nexted (or current) Part,
// and returns the newly selected Part.
func MoveNextPart(m *PlayoutModel, partDelta, segmentDelta int, opts TakeOptions) (*models.Part, error) {
	if !m.Playlist.IsActive() {
		return nil, ErrPlaylistNotActive
	}
	if m.Playlist.HoldState != models.HoldStateNone {
		return nil, ErrDuringHold
	}

	anchor := m.NextPartInstance()
	if anchor == nil {
		anchor = m.CurrentPartInstance()
	}
	if anchor == nil {
		return nil, ErrNoNextPart
	}

	var target *models.Part
	if segmentDelta != 0 {
		target = movedBySegments(m, anchor, segmentDelta)
	} else {
		target = movedByParts(m, anchor, partDelta)
	}
	if target == nil {
		return nil, fmt.Errorf("no playable part at the requested offset: %w", ErrPartNotFound)
	}

	idx := indexOfPart(m.Parts, target.ID)
	selection := &SelectNextPartResult{Part: target, Index: idx}
	if err := SetNextPart(m, &NextPartSelection{Selection: selection}, true, nil); err != nil {
		return nil, err
	}
	return target, nil
}

func movedByParts(m *PlayoutModel, anchor *models.PartInstance, partDelta int) *models.Part {
	playable := make([]*models.Part, 0, len(m.Parts))
	anchorIdx := -1
	for i := range m.Parts {
		p := &m.Parts[i]
		if p.ID == anchor.PartID {
			anchorIdx = len(playable)
			playable = append(playable, p)
			continue
		}
		if p.IsPlayable() {
			playable = append(playable, p)
		}
	}
	if anchorIdx < 0 {
		// Anchor part was deleted; degrade to selecting from the top.
		if len(playable) == 0 {
			return nil
		}
		anchorIdx = 0
	}
	idx := anchorIdx + partDelta
	if idx < 0 || idx >= len(playable) {
		return nil
	}
	return playable[idx]
}

func movedBySegments(m *PlayoutModel, anchor *models.PartInstance, segmentDelta int) *models.Part {
	segIdx := -1
	for i := range m.Segments {
		if m.Segments[i].ID == anchor.SegmentID {
			segIdx = i
			break
		}
	}
	if segIdx < 0 {
		return nil
	}
	targetIdx := segIdx + segmentDelta
	if targetIdx < 0 || targetIdx >= len(m.Segments) {
		return nil
	}
	targetSegment := m.Segments[targetIdx].ID
	for i := range m.Parts {
		if m.Parts[i].SegmentID == targetSegment && m.Parts[i].IsPlayable() {
			return &m.Parts[i]
		}
	}
	return nil
}

// SetNextSegment queues a segment: the next take (or selection) jumps to its
// first playable Part. nil clears the queue.
func SetNextSegment(m *PlayoutModel, segmentID *uuid.UUID) error {
	if !m.Playlist.IsActive() {
		return ErrPlaylistNotActive
	}
	if segmentID == nil {
		m.Playlist.QueuedSegmentID = nil
		m.MarkPlaylistDirty()
		return nil
	}
	if m.SegmentByID(*segmentID) == nil {
		return fmt.Errorf("segment %s: %w", *segmentID, ErrSegmentNotFound)
	}
	id := *segmentID
	m.Playlist.QueuedSegmentID = &id
	m.MarkPlaylistDirty()
	return nil
}
