package timeline

import (
	"github.com/harbourlight/conductor/internal/models"
)

// LookaheadPart is one upcoming Part with its planned pieces, in playlist
// order after the nexted Part.
type LookaheadPart struct {
	Part   models.Part
	Pieces []models.Piece
}

// BuildLookaheadObjs emits priming objects for up to depth upcoming Parts.
// They carry the lookahead class and a sub-unit priority so gateways can cue
// devices (load media, preset inputs) without the objects ever winning a
// layer while real content is enabled.
func BuildLookaheadObjs(upcoming []LookaheadPart, depth int) []models.TimelineObject {
	var objs []models.TimelineObject
	for i, lp := range upcoming {
		if i >= depth {
			break
		}
		for j := range lp.Pieces {
			piece := &lp.Pieces[j]
			if piece.Virtual || piece.PieceType != models.PieceTypeNormal {
				continue
			}
			objs = append(objs, models.TimelineObject{
				ID:       "lookahead_" + lp.Part.ID.String() + "_" + piece.ID.String(),
				Enable:   models.Enable{While: models.Literal("1")},
				Layer:    piece.Layer,
				Priority: 0.1,
				Classes:  []string{ClassLookahead},
				Content:  piece.Content,
			})
		}
	}
	return objs
}
