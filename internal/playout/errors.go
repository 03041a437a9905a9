package playout

import "errors"

// Precondition errors: the command is not valid in the current state. The job
// aborts cleanly and nothing is persisted.
var (
	// ErrPlaylistNotActive indicates a playout command against an inactive
	// playlist.
	ErrPlaylistNotActive = errors.New("rundown playlist is not active")

	// ErrPlaylistAlreadyActive indicates activation of an already-active
	// playlist.
	ErrPlaylistAlreadyActive = errors.New("rundown playlist is already active")

	// ErrAnotherPlaylistActive indicates another playlist holds the studio.
	ErrAnotherPlaylistActive = errors.New("another rundown playlist is already active in this studio")

	// ErrDuringHold indicates the command is not allowed while a hold is in
	// progress.
	ErrDuringHold = errors.New("not allowed during hold")

	// ErrNoCurrentPart indicates the command needs a Part on air.
	ErrNoCurrentPart = errors.New("no current part instance")

	// ErrNoNextPart indicates a take with nothing nexted.
	ErrNoNextPart = errors.New("no next part instance")

	// ErrPartNotPlayable indicates an attempt to next an invalid or floated
	// Part.
	ErrPartNotPlayable = errors.New("part is not playable")

	// ErrHoldNotPossible indicates hold preconditions are not met.
	ErrHoldNotPossible = errors.New("hold is not possible from the current state")

	// ErrTakeBlocked indicates the in-transition of the current part still
	// blocks takes.
	ErrTakeBlocked = errors.New("take is blocked by the running transition")
)

// Data-integrity errors: a referenced document is missing from the loaded
// model. These are fatal for the job and trigger an ingest-owned resync.
var (
	// ErrPartNotFound indicates the referenced Part is not in the playlist's
	// rundowns.
	ErrPartNotFound = errors.New("part not found in playlist")

	// ErrPartInstanceNotFound indicates the referenced PartInstance is not in
	// the loaded model.
	ErrPartInstanceNotFound = errors.New("part instance not found in playlist")

	// ErrSegmentNotFound indicates the referenced Segment is not in the
	// playlist's rundowns.
	ErrSegmentNotFound = errors.New("segment not found in playlist")

	// ErrPlaylistNotFound indicates the playlist document itself is missing.
	ErrPlaylistNotFound = errors.New("rundown playlist not found")
)

// IsPreconditionError reports whether err is a user-facing precondition
// failure rather than an internal fault.
func IsPreconditionError(err error) bool {
	for _, target := range []error{
		ErrPlaylistNotActive,
		ErrPlaylistAlreadyActive,
		ErrAnotherPlaylistActive,
		ErrDuringHold,
		ErrNoCurrentPart,
		ErrNoNextPart,
		ErrPartNotPlayable,
		ErrHoldNotPossible,
		ErrTakeBlocked,
	} {
		if errors.Is(err, target) {
			return true
		}
	}
	return false
}

// IsNotFoundError reports whether err is a data-integrity miss against the
// loaded model.
func IsNotFoundError(err error) bool {
	for _, target := range []error{
		ErrPartNotFound,
		ErrPartInstanceNotFound,
		ErrSegmentNotFound,
		ErrPlaylistNotFound,
	} {
		if errors.Is(err, target) {
			return true
		}
	}
	return false
}
