package db

// Repositories provides access to all database repositories
type Repositories struct {
	Playlists      *PlaylistRepository
	Rundowns       *RundownRepository
	Segments       *SegmentRepository
	Parts          *PartRepository
	Pieces         *PieceRepository
	PartInstances  *PartInstanceRepository
	PieceInstances *PieceInstanceRepository
	Timelines      *TimelineRepository
}

// NewRepositories creates a new repository collection
func NewRepositories(db *DB) *Repositories {
	return &Repositories{
		Playlists:      NewPlaylistRepository(db),
		Rundowns:       NewRundownRepository(db),
		Segments:       NewSegmentRepository(db),
		Parts:          NewPartRepository(db),
		Pieces:         NewPieceRepository(db),
		PartInstances:  NewPartInstanceRepository(db),
		PieceInstances: NewPieceInstanceRepository(db),
		Timelines:      NewTimelineRepository(db),
	}
}
