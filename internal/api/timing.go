package api

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/harbourlight/conductor/internal/control"
	"github.com/harbourlight/conductor/internal/logger"
	"github.com/harbourlight/conductor/internal/playout"
)

// TimingHandler serves the computed timing context for a playlist
type TimingHandler struct {
	manager *control.PlayoutManager
}

// NewTimingHandler creates a new timing handler
func NewTimingHandler(manager *control.PlayoutManager) *TimingHandler {
	return &TimingHandler{manager: manager}
}

// Get handles GET /api/playlists/:id/timing
func (h *TimingHandler) Get(c *gin.Context) {
	id, ok := parsePlaylistID(c)
	if !ok {
		return
	}
	lowResolution := c.Query("low_resolution") == "true"

	ctx, cancel := context.WithTimeout(c.Request.Context(), 5*time.Second)
	defer cancel()

	timingCtx, err := h.manager.Timing(ctx, id, lowResolution)
	if err != nil {
		if playout.IsNotFoundError(err) {
			c.JSON(http.StatusNotFound, ErrorResponse{
				Error:   "not_found",
				Message: "playlist not found",
			})
			return
		}
		logger.Log.Error().Err(err).Str("playlist_id", id.String()).Msg("Failed to compute timing")
		c.JSON(http.StatusInternalServerError, ErrorResponse{
			Error:   "internal_error",
			Message: "failed to compute timing",
		})
		return
	}

	c.JSON(http.StatusOK, timingCtx)
}

// SetupTimingRoutes registers timing routes
func SetupTimingRoutes(apiGroup *gin.RouterGroup, manager *control.PlayoutManager) {
	handler := NewTimingHandler(manager)
	apiGroup.GET("/playlists/:id/timing", handler.Get)
}
