package playout

import (
	"sort"

	"github.com/google/uuid"

	"github.com/harbourlight/conductor/internal/models"
)

// CleanupRequestKind classifies a deferred cleanup request.
type CleanupRequestKind string

const (
	// CleanupOrphanedSegments asks ingest to resync or remove segments that
	// were deleted or hidden upstream.
	CleanupOrphanedSegments CleanupRequestKind = "orphaned_segments"

	// CleanupOrphanedPartInstances asks ingest to purge stale orphaned
	// instances that are no longer current or next.
	CleanupOrphanedPartInstances CleanupRequestKind = "orphaned_part_instances"
)

// CleanupRequest is queued by scheduling jobs and handled asynchronously by
// ingest, so a take or set-next never blocks on ingest I/O.
type CleanupRequest struct {
	Kind       CleanupRequestKind
	PlaylistID uuid.UUID
	SegmentIDs []uuid.UUID
	InstanceID []uuid.UUID
}

// PlayoutModel is the mutable in-memory snapshot of one playlist's playout
// state, exclusively owned by the job holding the playlist lock. Mutations
// accumulate here and are flushed atomically when the job completes; a failed
// job persists nothing.
type PlayoutModel struct {
	Playlist *models.RundownPlaylist
	Rundowns []models.Rundown
	Segments []models.Segment
	Parts    []models.Part
	Pieces   []models.Piece

	PartInstances  map[uuid.UUID]*models.PartInstance
	PieceInstances map[uuid.UUID][]*models.PieceInstance

	dirtyPlaylist       bool
	dirtyPartInstances  map[uuid.UUID]bool
	dirtyPieceInstances map[uuid.UUID]bool
	deferredCleanups    []CleanupRequest
}

// NewPlayoutModel assembles a model from already-loaded documents, ordering
// rundowns, segments and parts into playout order.
func NewPlayoutModel(
	playlist *models.RundownPlaylist,
	rundowns []models.Rundown,
	segments []models.Segment,
	parts []models.Part,
	pieces []models.Piece,
	partInstances []*models.PartInstance,
	pieceInstances []*models.PieceInstance,
) *PlayoutModel {
	m := &PlayoutModel{
		Playlist:            playlist,
		Rundowns:            rundowns,
		Segments:            segments,
		Parts:               parts,
		Pieces:              pieces,
		PartInstances:       make(map[uuid.UUID]*models.PartInstance, len(partInstances)),
		PieceInstances:      make(map[uuid.UUID][]*models.PieceInstance),
		dirtyPartInstances:  make(map[uuid.UUID]bool),
		dirtyPieceInstances: make(map[uuid.UUID]bool),
	}
	for _, pi := range partInstances {
		m.PartInstances[pi.ID] = pi
	}
	for _, pi := range pieceInstances {
		m.PieceInstances[pi.PartInstanceID] = append(m.PieceInstances[pi.PartInstanceID], pi)
	}
	m.sortDocuments()
	return m
}

// sortDocuments puts rundowns, segments and parts into playout order:
// rundown rank, then segment rank, then part rank.
func (m *PlayoutModel) sortDocuments() {
	sort.SliceStable(m.Rundowns, func(i, j int) bool {
		return m.Rundowns[i].Rank < m.Rundowns[j].Rank
	})

	rundownOrder := make(map[uuid.UUID]int, len(m.Rundowns))
	for i := range m.Rundowns {
		rundownOrder[m.Rundowns[i].ID] = i
	}
	sort.SliceStable(m.Segments, func(i, j int) bool {
		a, b := &m.Segments[i], &m.Segments[j]
		if a.RundownID != b.RundownID {
			return rundownOrder[a.RundownID] < rundownOrder[b.RundownID]
		}
		return a.Rank < b.Rank
	})

	segmentOrder := make(map[uuid.UUID]int, len(m.Segments))
	for i := range m.Segments {
		segmentOrder[m.Segments[i].ID] = i
	}
	sort.SliceStable(m.Parts, func(i, j int) bool {
		a, b := &m.Parts[i], &m.Parts[j]
		if a.SegmentID != b.SegmentID {
			return segmentOrder[a.SegmentID] < segmentOrder[b.SegmentID]
		}
		return a.Rank < b.Rank
	})
}

// CurrentPartInstance returns the instance referenced by currentPartInfo, or
// nil.
func (m *PlayoutModel) CurrentPartInstance() *models.PartInstance {
	return m.instanceFromRef(m.Playlist.CurrentPartInfo)
}

// NextPartInstance returns the instance referenced by nextPartInfo, or nil.
func (m *PlayoutModel) NextPartInstance() *models.PartInstance {
	return m.instanceFromRef(m.Playlist.NextPartInfo)
}

// PreviousPartInstance returns the instance referenced by previousPartInfo,
// or nil.
func (m *PlayoutModel) PreviousPartInstance() *models.PartInstance {
	return m.instanceFromRef(m.Playlist.PreviousPartInfo)
}

func (m *PlayoutModel) instanceFromRef(ref *models.PartInstanceRef) *models.PartInstance {
	if ref == nil {
		return nil
	}
	return m.PartInstances[ref.PartInstanceID]
}

// PartByID returns the live Part document, or nil when ingest removed it.
func (m *PlayoutModel) PartByID(partID uuid.UUID) *models.Part {
	for i := range m.Parts {
		if m.Parts[i].ID == partID {
			return &m.Parts[i]
		}
	}
	return nil
}

// SegmentByID returns the segment, or nil.
func (m *PlayoutModel) SegmentByID(segmentID uuid.UUID) *models.Segment {
	for i := range m.Segments {
		if m.Segments[i].ID == segmentID {
			return &m.Segments[i]
		}
	}
	return nil
}

// PiecesForPart returns the Pieces attached to one Part.
func (m *PlayoutModel) PiecesForPart(partID uuid.UUID) []models.Piece {
	var out []models.Piece
	for i := range m.Pieces {
		if m.Pieces[i].PartID == partID {
			out = append(out, m.Pieces[i])
		}
	}
	return out
}

// PieceInstancesFor returns the piece instances of one part instance,
// excluding reset ones.
func (m *PlayoutModel) PieceInstancesFor(partInstanceID uuid.UUID) []*models.PieceInstance {
	var out []*models.PieceInstance
	for _, pi := range m.PieceInstances[partInstanceID] {
		if !pi.Reset {
			out = append(out, pi)
		}
	}
	return out
}

// MarkPlaylistDirty records that the playlist document changed.
func (m *PlayoutModel) MarkPlaylistDirty() {
	m.dirtyPlaylist = true
}

// InsertPartInstance adds a new instance to the model and marks it for
// persistence.
func (m *PlayoutModel) InsertPartInstance(pi *models.PartInstance) {
	m.PartInstances[pi.ID] = pi
	m.dirtyPartInstances[pi.ID] = true
}

// MarkPartInstanceDirty records that an existing instance changed.
func (m *PlayoutModel) MarkPartInstanceDirty(id uuid.UUID) {
	m.dirtyPartInstances[id] = true
}

// InsertPieceInstance adds a new piece instance to the model and marks it for
// persistence.
func (m *PlayoutModel) InsertPieceInstance(pi *models.PieceInstance) {
	m.PieceInstances[pi.PartInstanceID] = append(m.PieceInstances[pi.PartInstanceID], pi)
	m.dirtyPieceInstances[pi.ID] = true
}

// MarkPieceInstanceDirty records that an existing piece instance changed.
func (m *PlayoutModel) MarkPieceInstanceDirty(id uuid.UUID) {
	m.dirtyPieceInstances[id] = true
}

// ResetPartInstance flags an instance (and its piece instances) as logically
// discarded.
func (m *PlayoutModel) ResetPartInstance(id uuid.UUID) {
	pi := m.PartInstances[id]
	if pi == nil || pi.Reset {
		return
	}
	pi.Reset = true
	m.dirtyPartInstances[id] = true
	for _, piece := range m.PieceInstances[id] {
		if !piece.Reset {
			piece.Reset = true
			m.dirtyPieceInstances[piece.ID] = true
		}
	}
}

// QueueCleanup defers a cleanup request to the asynchronous ingest queue.
func (m *PlayoutModel) QueueCleanup(req CleanupRequest) {
	req.PlaylistID = m.Playlist.ID
	m.deferredCleanups = append(m.deferredCleanups, req)
}

// DeferredCleanups returns the cleanup requests queued during this job.
func (m *PlayoutModel) DeferredCleanups() []CleanupRequest {
	return m.deferredCleanups
}

// DirtyPartInstances returns the instances that must be persisted.
func (m *PlayoutModel) DirtyPartInstances() []*models.PartInstance {
	out := make([]*models.PartInstance, 0, len(m.dirtyPartInstances))
	for id := range m.dirtyPartInstances {
		if pi := m.PartInstances[id]; pi != nil {
			out = append(out, pi)
		}
	}
	return out
}

// DirtyPieceInstances returns the piece instances that must be persisted.
func (m *PlayoutModel) DirtyPieceInstances() []*models.PieceInstance {
	var out []*models.PieceInstance
	for _, list := range m.PieceInstances {
		for _, pi := range list {
			if m.dirtyPieceInstances[pi.ID] {
				out = append(out, pi)
			}
		}
	}
	return out
}

// PlaylistDirty reports whether the playlist document must be persisted.
func (m *PlayoutModel) PlaylistDirty() bool {
	return m.dirtyPlaylist
}
