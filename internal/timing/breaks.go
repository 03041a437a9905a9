package timing

import (
	"strconv"
	"strings"

	"github.com/google/uuid"
)

// breakCache memoises the show-break lookahead. The memo key covers the
// rundown ids in order, every break flag and the rundown the playhead is in,
// so reordering rundowns or toggling a flag recomputes the answer.
type breakCache struct {
	fingerprint string
	rundowns    []uuid.UUID
	isLast      bool
}

// rundownsBeforeNextBreak returns the rundowns from the one containing the
// playhead up to and including the next rundown flagged as a show break. When
// nothing ahead is flagged, the remainder of the playlist is returned and the
// end of the playlist counts as the break.
func (c *breakCache) rundownsBeforeNextBreak(rundowns []uuid.UUID, breakFlags []bool, from uuid.UUID) ([]uuid.UUID, bool) {
	fp := breaksFingerprint(rundowns, breakFlags, from)
	if fp == c.fingerprint {
		return c.rundowns, c.isLast
	}

	startIdx := 0
	for i, id := range rundowns {
		if id == from {
			startIdx = i
			break
		}
	}

	var before []uuid.UUID
	isLast := true
	for i := startIdx; i < len(rundowns); i++ {
		before = append(before, rundowns[i])
		if breakFlags[i] {
			isLast = i == len(rundowns)-1
			break
		}
	}

	c.fingerprint = fp
	c.rundowns = before
	c.isLast = isLast
	return before, isLast
}

func breaksFingerprint(rundowns []uuid.UUID, breakFlags []bool, from uuid.UUID) string {
	var sb strings.Builder
	sb.WriteString(from.String())
	for i, id := range rundowns {
		sb.WriteByte('|')
		sb.WriteString(id.String())
		sb.WriteByte(':')
		sb.WriteString(strconv.FormatBool(breakFlags[i]))
	}
	return sb.String()
}
