package api

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/harbourlight/conductor/internal/control"
	"github.com/harbourlight/conductor/internal/logger"
	"github.com/harbourlight/conductor/internal/models"
	"github.com/harbourlight/conductor/internal/playout"
)

// commandTimeout bounds how long a handler waits for its job to run. Jobs on
// the same playlist run serially, so a slow job delays the ones behind it.
const commandTimeout = 15 * time.Second

// ActivateRequest represents the request body for activating a playlist
type ActivateRequest struct {
	Rehearsal bool `json:"rehearsal"`
}

// ResetRequest represents the request body for resetting a playlist
type ResetRequest struct {
	Activate bool `json:"activate"`
	Force    bool `json:"force"`
}

// SetNextRequest represents the request body for pointing next at a Part
type SetNextRequest struct {
	PartID     uuid.UUID `json:"part_id" binding:"required"`
	TimeOffset *int64    `json:"time_offset,omitempty"`
}

// MoveNextRequest represents the request body for moving the next point
type MoveNextRequest struct {
	PartDelta    int `json:"part_delta"`
	SegmentDelta int `json:"segment_delta"`
}

// SetNextSegmentRequest represents the request body for queueing a segment.
// A null segment_id clears the queued segment.
type SetNextSegmentRequest struct {
	SegmentID *uuid.UUID `json:"segment_id"`
}

// QuickLoopMarkerRequest represents the request body for setting a loop
// marker. A null marker clears that end of the loop.
type QuickLoopMarkerRequest struct {
	Position string                  `json:"position" binding:"required"`
	Marker   *models.QuickLoopMarker `json:"marker"`
}

// PlayoutHandler handles playout command requests
type PlayoutHandler struct {
	manager *control.PlayoutManager
}

// NewPlayoutHandler creates a new playout command handler
func NewPlayoutHandler(manager *control.PlayoutManager) *PlayoutHandler {
	return &PlayoutHandler{manager: manager}
}

// Activate handles POST /api/playlists/:id/activate
func (h *PlayoutHandler) Activate(c *gin.Context) {
	id, ok := parsePlaylistID(c)
	if !ok {
		return
	}

	var req ActivateRequest
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, ErrorResponse{
				Error:   "invalid_request",
				Message: err.Error(),
			})
			return
		}
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), commandTimeout)
	defer cancel()

	if err := h.manager.Activate(ctx, id, req.Rehearsal); err != nil {
		logger.Log.Error().Err(err).Str("playlist_id", id.String()).Msg("Activate failed")
		respondCommandError(c, err)
		return
	}

	logger.Log.Info().
		Str("playlist_id", id.String()).
		Bool("rehearsal", req.Rehearsal).
		Msg("Playlist activated")
	c.JSON(http.StatusOK, gin.H{"status": "activated", "rehearsal": req.Rehearsal})
}

// Deactivate handles POST /api/playlists/:id/deactivate
func (h *PlayoutHandler) Deactivate(c *gin.Context) {
	id, ok := parsePlaylistID(c)
	if !ok {
		return
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), commandTimeout)
	defer cancel()

	if err := h.manager.Deactivate(ctx, id); err != nil {
		logger.Log.Error().Err(err).Str("playlist_id", id.String()).Msg("Deactivate failed")
		respondCommandError(c, err)
		return
	}

	logger.Log.Info().Str("playlist_id", id.String()).Msg("Playlist deactivated")
	c.JSON(http.StatusOK, gin.H{"status": "deactivated"})
}

// Reset handles POST /api/playlists/:id/reset
func (h *PlayoutHandler) Reset(c *gin.Context) {
	id, ok := parsePlaylistID(c)
	if !ok {
		return
	}

	var req ResetRequest
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, ErrorResponse{
				Error:   "invalid_request",
				Message: err.Error(),
			})
			return
		}
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), commandTimeout)
	defer cancel()

	if err := h.manager.Reset(ctx, id, req.Activate, req.Force); err != nil {
		logger.Log.Error().Err(err).Str("playlist_id", id.String()).Msg("Reset failed")
		respondCommandError(c, err)
		return
	}

	logger.Log.Info().Str("playlist_id", id.String()).Msg("Playlist reset")
	c.JSON(http.StatusOK, gin.H{"status": "reset"})
}

// Take handles POST /api/playlists/:id/take
func (h *PlayoutHandler) Take(c *gin.Context) {
	id, ok := parsePlaylistID(c)
	if !ok {
		return
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), commandTimeout)
	defer cancel()

	if err := h.manager.Take(ctx, id); err != nil {
		logger.Log.Error().Err(err).Str("playlist_id", id.String()).Msg("Take failed")
		respondCommandError(c, err)
		return
	}

	logger.Log.Info().Str("playlist_id", id.String()).Msg("Take executed")
	c.JSON(http.StatusOK, gin.H{"status": "taken"})
}

// SetNext handles POST /api/playlists/:id/set-next
func (h *PlayoutHandler) SetNext(c *gin.Context) {
	id, ok := parsePlaylistID(c)
	if !ok {
		return
	}

	var req SetNextRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Error:   "invalid_request",
			Message: err.Error(),
		})
		return
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), commandTimeout)
	defer cancel()

	if err := h.manager.SetNext(ctx, id, req.PartID, req.TimeOffset); err != nil {
		logger.Log.Error().
			Err(err).
			Str("playlist_id", id.String()).
			Str("part_id", req.PartID.String()).
			Msg("SetNext failed")
		respondCommandError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"status": "next_set", "part_id": req.PartID})
}

// MoveNext handles POST /api/playlists/:id/move-next
func (h *PlayoutHandler) MoveNext(c *gin.Context) {
	id, ok := parsePlaylistID(c)
	if !ok {
		return
	}

	var req MoveNextRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Error:   "invalid_request",
			Message: err.Error(),
		})
		return
	}
	if req.PartDelta == 0 && req.SegmentDelta == 0 {
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Error:   "invalid_request",
			Message: "part_delta and segment_delta must not both be zero",
		})
		return
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), commandTimeout)
	defer cancel()

	partID, err := h.manager.MoveNext(ctx, id, req.PartDelta, req.SegmentDelta)
	if err != nil {
		logger.Log.Error().Err(err).Str("playlist_id", id.String()).Msg("MoveNext failed")
		respondCommandError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"status": "next_set", "part_id": partID})
}

// SetNextSegment handles POST /api/playlists/:id/set-next-segment
func (h *PlayoutHandler) SetNextSegment(c *gin.Context) {
	id, ok := parsePlaylistID(c)
	if !ok {
		return
	}

	var req SetNextSegmentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Error:   "invalid_request",
			Message: err.Error(),
		})
		return
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), commandTimeout)
	defer cancel()

	if err := h.manager.SetNextSegment(ctx, id, req.SegmentID); err != nil {
		logger.Log.Error().Err(err).Str("playlist_id", id.String()).Msg("SetNextSegment failed")
		respondCommandError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"status": "segment_queued"})
}

// ActivateHold handles POST /api/playlists/:id/hold/activate
func (h *PlayoutHandler) ActivateHold(c *gin.Context) {
	id, ok := parsePlaylistID(c)
	if !ok {
		return
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), commandTimeout)
	defer cancel()

	if err := h.manager.ActivateHold(ctx, id); err != nil {
		logger.Log.Error().Err(err).Str("playlist_id", id.String()).Msg("ActivateHold failed")
		respondCommandError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"status": "hold_pending"})
}

// DeactivateHold handles POST /api/playlists/:id/hold/deactivate
func (h *PlayoutHandler) DeactivateHold(c *gin.Context) {
	id, ok := parsePlaylistID(c)
	if !ok {
		return
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), commandTimeout)
	defer cancel()

	if err := h.manager.DeactivateHold(ctx, id); err != nil {
		logger.Log.Error().Err(err).Str("playlist_id", id.String()).Msg("DeactivateHold failed")
		respondCommandError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"status": "hold_cleared"})
}

// SetQuickLoopMarker handles PUT /api/playlists/:id/quick-loop
func (h *PlayoutHandler) SetQuickLoopMarker(c *gin.Context) {
	id, ok := parsePlaylistID(c)
	if !ok {
		return
	}

	var req QuickLoopMarkerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Error:   "invalid_request",
			Message: err.Error(),
		})
		return
	}

	position := playout.QuickLoopMarkerPosition(req.Position)
	if position != playout.QuickLoopMarkerPositionStart && position != playout.QuickLoopMarkerPositionEnd {
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Error:   "invalid_request",
			Message: "position must be 'start' or 'end'",
		})
		return
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), commandTimeout)
	defer cancel()

	if err := h.manager.SetQuickLoopMarker(ctx, id, position, req.Marker); err != nil {
		logger.Log.Error().Err(err).Str("playlist_id", id.String()).Msg("SetQuickLoopMarker failed")
		respondCommandError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"status": "quick_loop_updated"})
}

// RegenerateTimeline handles POST /api/playlists/:id/regenerate-timeline
func (h *PlayoutHandler) RegenerateTimeline(c *gin.Context) {
	id, ok := parsePlaylistID(c)
	if !ok {
		return
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), commandTimeout)
	defer cancel()

	if err := h.manager.RegenerateTimeline(ctx, id); err != nil {
		logger.Log.Error().Err(err).Str("playlist_id", id.String()).Msg("RegenerateTimeline failed")
		respondCommandError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"status": "timeline_regenerated"})
}

// SetupPlayoutRoutes registers playout command routes
func SetupPlayoutRoutes(apiGroup *gin.RouterGroup, manager *control.PlayoutManager) {
	handler := NewPlayoutHandler(manager)
	apiGroup.POST("/playlists/:id/activate", handler.Activate)
	apiGroup.POST("/playlists/:id/deactivate", handler.Deactivate)
	apiGroup.POST("/playlists/:id/reset", handler.Reset)
	apiGroup.POST("/playlists/:id/take", handler.Take)
	apiGroup.POST("/playlists/:id/set-next", handler.SetNext)
	apiGroup.POST("/playlists/:id/move-next", handler.MoveNext)
	apiGroup.POST("/playlists/:id/set-next-segment", handler.SetNextSegment)
	apiGroup.POST("/playlists/:id/hold/activate", handler.ActivateHold)
	apiGroup.POST("/playlists/:id/hold/deactivate", handler.DeactivateHold)
	apiGroup.PUT("/playlists/:id/quick-loop", handler.SetQuickLoopMarker)
	apiGroup.POST("/playlists/:id/regenerate-timeline", handler.RegenerateTimeline)
}
