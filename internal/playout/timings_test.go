package playout

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/harbourlight/conductor/internal/models"
)

func pieceWithPreroll(start, preroll int64) models.Piece {
	return models.Piece{
		PieceType:       models.PieceTypeNormal,
		Enable:          models.PieceEnable{Start: start},
		PrerollDuration: preroll,
	}
}

func TestCalculatePartPreroll(t *testing.T) {
	tests := []struct {
		name   string
		pieces []models.Piece
		want   int64
	}{
		{
			name:   "no pieces",
			pieces: nil,
			want:   0,
		},
		{
			name:   "piece without preroll",
			pieces: []models.Piece{pieceWithPreroll(0, 0)},
			want:   0,
		},
		{
			name:   "preroll at part start",
			pieces: []models.Piece{pieceWithPreroll(0, 500)},
			want:   500,
		},
		{
			name:   "piece start offset absorbs preroll",
			pieces: []models.Piece{pieceWithPreroll(400, 300)},
			want:   0,
		},
		{
			name: "maximum over pieces wins",
			pieces: []models.Piece{
				pieceWithPreroll(0, 200),
				pieceWithPreroll(100, 800),
				pieceWithPreroll(0, 0),
			},
			want: 700,
		},
		{
			name: "transition pieces are ignored",
			pieces: []models.Piece{
				{PieceType: models.PieceTypeInTransition, PrerollDuration: 5000},
				pieceWithPreroll(0, 250),
			},
			want: 250,
		},
		{
			name: "adlibbed now pieces are ignored",
			pieces: []models.Piece{
				{PieceType: models.PieceTypeNormal, Enable: models.PieceEnable{IsNow: true}, PrerollDuration: 900},
			},
			want: 0,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, CalculatePartPreroll(tt.pieces))
		})
	}
}

func TestCalculatePartTimings_FirstTake(t *testing.T) {
	toPart := &models.Part{}
	timings := CalculatePartTimings(models.HoldStateNone, nil, toPart, nil)

	assert.Nil(t, timings.InTransitionStart)
	assert.Equal(t, int64(0), timings.ToPartDelay)
	assert.Equal(t, int64(0), timings.FromPartRemaining)
}

func TestCalculatePartTimings_SimpleCut(t *testing.T) {
	fromPart := &models.Part{}
	toPart := &models.Part{}

	timings := CalculatePartTimings(models.HoldStateNone, fromPart, toPart, nil)

	assert.Nil(t, timings.InTransitionStart)
	assert.Equal(t, int64(0), timings.ToPartDelay)
	assert.Equal(t, int64(0), timings.FromPartRemaining)
	assert.Equal(t, int64(0), timings.OutTransitionStart)
}

func TestCalculatePartTimings_AutoNextOverlap(t *testing.T) {
	overlap := int64(500)
	fromPart := &models.Part{AutoNext: true, AutoNextOverlap: &overlap}
	toPart := &models.Part{}

	timings := CalculatePartTimings(models.HoldStateNone, fromPart, toPart, nil)

	assert.Nil(t, timings.InTransitionStart)
	assert.Equal(t, int64(500), timings.FromPartRemaining)
}

func TestCalculatePartTimings_OutTransitionDelaysTake(t *testing.T) {
	fromPart := &models.Part{OutTransition: &models.PartOutTransition{Duration: 800}}
	toPart := &models.Part{}

	timings := CalculatePartTimings(models.HoldStateNone, fromPart, toPart, nil)

	assert.Equal(t, int64(800), timings.ToPartDelay)
	assert.Equal(t, int64(800), timings.FromPartRemaining)
	assert.Equal(t, int64(0), timings.OutTransitionStart)
}

func TestCalculatePartTimings_PrerollDelaysTake(t *testing.T) {
	fromPart := &models.Part{}
	toPart := &models.Part{}
	pieces := []models.Piece{pieceWithPreroll(0, 1200)}

	timings := CalculatePartTimings(models.HoldStateNone, fromPart, toPart, pieces)

	assert.Equal(t, int64(1200), timings.ToPartDelay)
	assert.Equal(t, int64(1200), timings.FromPartRemaining)
}

func TestCalculatePartTimings_InTransition(t *testing.T) {
	fromPart := &models.Part{OutTransition: &models.PartOutTransition{Duration: 1000}}
	toPart := &models.Part{
		InTransition: &models.PartInTransition{
			BlockTakeDuration:             2000,
			PreviousPartKeepaliveDuration: 600,
			PartContentDelayDuration:      400,
		},
	}

	timings := CalculatePartTimings(models.HoldStateNone, fromPart, toPart, nil)

	// outTransitionTime = 1000 - 600 = 400, prerollTime = 0
	require.NotNil(t, timings.InTransitionStart)
	assert.Equal(t, int64(400), *timings.InTransitionStart)
	assert.Equal(t, int64(800), timings.ToPartDelay)
	assert.Equal(t, int64(1000), timings.FromPartRemaining)
	assert.Equal(t, int64(600), timings.FromPartKeepalive)
	assert.Equal(t, int64(0), timings.OutTransitionStart)
}

func TestCalculatePartTimings_InTransitionWithLargePreroll(t *testing.T) {
	fromPart := &models.Part{}
	toPart := &models.Part{
		InTransition: &models.PartInTransition{
			PreviousPartKeepaliveDuration: 200,
			PartContentDelayDuration:      300,
		},
	}
	pieces := []models.Piece{pieceWithPreroll(0, 1000)}

	timings := CalculatePartTimings(models.HoldStateNone, fromPart, toPart, pieces)

	// prerollTime = 1000 - 300 = 700
	require.NotNil(t, timings.InTransitionStart)
	assert.Equal(t, int64(700), *timings.InTransitionStart)
	// toPartDelay = 700 + 300 - 1000 = 0
	assert.Equal(t, int64(0), timings.ToPartDelay)
	assert.Equal(t, int64(900), timings.FromPartRemaining)
}

func TestCalculatePartTimings_HoldDisablesInTransition(t *testing.T) {
	fromPart := &models.Part{}
	toPart := &models.Part{
		InTransition: &models.PartInTransition{PartContentDelayDuration: 400},
	}

	timings := CalculatePartTimings(models.HoldStateActive, fromPart, toPart, nil)

	assert.Nil(t, timings.InTransitionStart)
}

func TestCalculatePartTimings_DisableNextInTransition(t *testing.T) {
	fromPart := &models.Part{DisableNextInTransition: true}
	toPart := &models.Part{
		InTransition: &models.PartInTransition{PartContentDelayDuration: 400},
	}

	timings := CalculatePartTimings(models.HoldStateNone, fromPart, toPart, nil)

	assert.Nil(t, timings.InTransitionStart)
}

// Delays must stay non-negative for every combination of transition inputs.
func TestCalculatePartTimings_NonNegative(t *testing.T) {
	durations := []int64{0, 100, 500, 1000, 5000}

	for _, outDur := range durations {
		for _, overlap := range durations {
			for _, keepalive := range durations {
				for _, contentDelay := range durations {
					for _, preroll := range durations {
						ov := overlap
						fromPart := &models.Part{
							AutoNext:        true,
							AutoNextOverlap: &ov,
							OutTransition:   &models.PartOutTransition{Duration: outDur},
						}
						toPart := &models.Part{
							InTransition: &models.PartInTransition{
								PreviousPartKeepaliveDuration: keepalive,
								PartContentDelayDuration:      contentDelay,
							},
						}
						pieces := []models.Piece{pieceWithPreroll(0, preroll)}

						for _, hold := range []models.HoldState{models.HoldStateNone, models.HoldStateActive} {
							timings := CalculatePartTimings(hold, fromPart, toPart, pieces)
							assert.GreaterOrEqual(t, timings.ToPartDelay, int64(0))
							assert.GreaterOrEqual(t, timings.FromPartRemaining, int64(0))
							assert.GreaterOrEqual(t, timings.FromPartKeepalive, int64(0))
							assert.GreaterOrEqual(t, timings.OutTransitionStart, int64(0))
							if timings.InTransitionStart != nil {
								assert.GreaterOrEqual(t, *timings.InTransitionStart, int64(0))
							}
						}
					}
				}
			}
		}
	}
}
