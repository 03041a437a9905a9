package api

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/harbourlight/conductor/internal/control"
	"github.com/harbourlight/conductor/internal/db"
	"github.com/harbourlight/conductor/internal/logger"
)

// TimelineHandler serves the published timeline document for a playlist.
// Playout gateways poll this endpoint and compare the hash field to detect
// changes without diffing the object tree.
type TimelineHandler struct {
	manager *control.PlayoutManager
}

// NewTimelineHandler creates a new timeline handler
func NewTimelineHandler(manager *control.PlayoutManager) *TimelineHandler {
	return &TimelineHandler{manager: manager}
}

// Get handles GET /api/playlists/:id/timeline
func (h *TimelineHandler) Get(c *gin.Context) {
	id, ok := parsePlaylistID(c)
	if !ok {
		return
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), 5*time.Second)
	defer cancel()

	doc, err := h.manager.Timeline(ctx, id)
	if err != nil {
		if db.IsNotFound(err) {
			c.JSON(http.StatusNotFound, ErrorResponse{
				Error:   "not_found",
				Message: "no timeline published for playlist",
			})
			return
		}
		logger.Log.Error().Err(err).Str("playlist_id", id.String()).Msg("Failed to get timeline")
		c.JSON(http.StatusInternalServerError, ErrorResponse{
			Error:   "internal_error",
			Message: "failed to get timeline",
		})
		return
	}

	c.JSON(http.StatusOK, doc)
}

// SetupTimelineRoutes registers timeline routes
func SetupTimelineRoutes(apiGroup *gin.RouterGroup, manager *control.PlayoutManager) {
	handler := NewTimelineHandler(manager)
	apiGroup.GET("/playlists/:id/timeline", handler.Get)
}
