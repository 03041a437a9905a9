// Package playout implements the playout scheduling engine: next-part
// selection, the activation state machine, and the in-memory model that all
// playlist-mutating jobs operate on.
package playout

import (
	"github.com/harbourlight/conductor/internal/models"
)

// PartCalculatedTimings is the transition contract between two consecutive
// Parts. All values are milliseconds relative to the take point and are
// always non-negative.
type PartCalculatedTimings struct {
	// InTransitionStart is when the incoming Part's in-transition piece
	// starts, nil when the transition falls back to a plain cut/overlap.
	InTransitionStart *int64

	// ToPartDelay shifts the incoming Part's normal content later, making
	// room for the transition and the outgoing Part's tail.
	ToPartDelay int64

	// FromPartRemaining is how long the outgoing Part group extends past the
	// take point.
	FromPartRemaining int64

	// FromPartKeepalive is how long the outgoing Part's content must be kept
	// alive after the take point.
	FromPartKeepalive int64

	// OutTransitionStart is when the outgoing Part's out-transition piece
	// begins, relative to the take point minus FromPartRemaining (i.e. the
	// offset of the out transition inside the outgoing group's tail).
	OutTransitionStart int64
}

// CalculatePartPreroll returns how much hold time the Part needs before its
// nominal content start: the maximum over all non-transition pieces of the
// preroll not already covered by the piece's own start offset.
func CalculatePartPreroll(pieces []models.Piece) int64 {
	var preroll int64
	for i := range pieces {
		p := &pieces[i]
		if p.PieceType != models.PieceTypeNormal {
			continue
		}
		if p.Enable.IsNow {
			// Ad-libbed pieces start at an unknown time and cannot demand
			// preroll from the take.
			continue
		}
		if v := p.PrerollDuration - p.Enable.Start; v > preroll {
			preroll = v
		}
	}
	return preroll
}

// CalculatePartTimings computes the transition-aware timings for taking from
// fromPart into toPart. fromPart is nil for the first take of a playlist.
//
// When in a hold, when the outgoing Part disables the next in-transition, or
// when the incoming Part declares no usable transition, a simple cut/overlap
// model driven by the out-transition duration and autoNextOverlap applies.
func CalculatePartTimings(
	holdState models.HoldState,
	fromPart *models.Part,
	toPart *models.Part,
	toPieces []models.Piece,
) PartCalculatedTimings {
	inHold := holdState == models.HoldStateActive || holdState == models.HoldStatePending

	var inTransition *models.PartInTransition
	if fromPart != nil && !inHold && !fromPart.DisableNextInTransition && !toPart.Invalid {
		inTransition = toPart.InTransition
	}

	toPartPreroll := CalculatePartPreroll(toPieces)

	var outDuration int64
	if fromPart != nil {
		outDuration = fromPart.OutTransitionDuration()
	}

	if inTransition == nil || fromPart == nil {
		// Plain cut: delay the switch long enough for the out transition and
		// the incoming Part's preroll to complete.
		takeOffset := max64(0, max64(outDuration, toPartPreroll))
		fromPartRemaining := takeOffset + fromPartOverlap(fromPart)
		return PartCalculatedTimings{
			InTransitionStart:  nil,
			ToPartDelay:        takeOffset,
			FromPartRemaining:  fromPartRemaining,
			FromPartKeepalive:  takeOffset,
			OutTransitionStart: fromPartRemaining - outDuration,
		}
	}

	// Time needed to preroll the incoming Part beyond what the transition's
	// content delay already provides.
	prerollTime := max64(0, toPartPreroll-inTransition.PartContentDelayDuration)

	// Time needed to run the out transition beyond the keepalive window.
	outTransitionTime := outDuration - inTransition.PreviousPartKeepaliveDuration

	takeOffset := max64(0, max64(prerollTime, outTransitionTime))
	fromPartRemaining := takeOffset + inTransition.PreviousPartKeepaliveDuration

	return PartCalculatedTimings{
		InTransitionStart: &takeOffset,
		// takeOffset >= toPartPreroll - partContentDelay, so this never goes
		// negative.
		ToPartDelay:        takeOffset + inTransition.PartContentDelayDuration - toPartPreroll,
		FromPartRemaining:  fromPartRemaining,
		FromPartKeepalive:  inTransition.PreviousPartKeepaliveDuration,
		OutTransitionStart: fromPartRemaining - outDuration,
	}
}

func fromPartOverlap(fromPart *models.Part) int64 {
	if fromPart == nil {
		return 0
	}
	return fromPart.AutoNextOverlapDuration()
}

func max64(a, b int64) int64 {
	if a > b {
		return a
	}
	return b
}
