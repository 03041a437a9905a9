package api

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/harbourlight/conductor/internal/db"
	"github.com/harbourlight/conductor/internal/logger"
	"github.com/harbourlight/conductor/internal/models"
)

// PlaylistResponse represents a rundown playlist in API responses
type PlaylistResponse struct {
	ID              string                  `json:"id"`
	ExternalID      string                  `json:"external_id"`
	Name            string                  `json:"name"`
	Active          bool                    `json:"active"`
	Rehearsal       bool                    `json:"rehearsal"`
	HoldState       models.HoldState        `json:"hold_state"`
	CurrentPart     *models.PartInstanceRef `json:"current_part,omitempty"`
	NextPart        *models.PartInstanceRef `json:"next_part,omitempty"`
	PreviousPart    *models.PartInstanceRef `json:"previous_part,omitempty"`
	QueuedSegmentID *uuid.UUID              `json:"queued_segment_id,omitempty"`
	QuickLoop       *models.QuickLoopProps  `json:"quick_loop,omitempty"`
	StartedPlayback *int64                  `json:"started_playback,omitempty"`
	CreatedAt       string                  `json:"created_at"`
	UpdatedAt       string                  `json:"updated_at"`
}

func toPlaylistResponse(p *models.RundownPlaylist) PlaylistResponse {
	return PlaylistResponse{
		ID:              p.ID.String(),
		ExternalID:      p.ExternalID,
		Name:            p.Name,
		Active:          p.IsActive(),
		Rehearsal:       p.Rehearsal,
		HoldState:       p.HoldState,
		CurrentPart:     p.CurrentPartInfo,
		NextPart:        p.NextPartInfo,
		PreviousPart:    p.PreviousPartInfo,
		QueuedSegmentID: p.QueuedSegmentID,
		QuickLoop:       p.QuickLoop,
		StartedPlayback: p.StartedPlayback,
		CreatedAt:       p.CreatedAt.Format(time.RFC3339),
		UpdatedAt:       p.UpdatedAt.Format(time.RFC3339),
	}
}

// PlaylistHandler handles playlist read requests
type PlaylistHandler struct {
	repos *db.Repositories
}

// NewPlaylistHandler creates a new playlist handler
func NewPlaylistHandler(repos *db.Repositories) *PlaylistHandler {
	return &PlaylistHandler{repos: repos}
}

// List handles GET /api/playlists
func (h *PlaylistHandler) List(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), 5*time.Second)
	defer cancel()

	playlists, err := h.repos.Playlists.List(ctx)
	if err != nil {
		logger.Log.Error().Err(err).Msg("Failed to list playlists")
		c.JSON(http.StatusInternalServerError, ErrorResponse{
			Error:   "internal_error",
			Message: "failed to list playlists",
		})
		return
	}

	responses := make([]PlaylistResponse, 0, len(playlists))
	for _, playlist := range playlists {
		responses = append(responses, toPlaylistResponse(playlist))
	}
	c.JSON(http.StatusOK, gin.H{"playlists": responses, "count": len(responses)})
}

// Get handles GET /api/playlists/:id
func (h *PlaylistHandler) Get(c *gin.Context) {
	id, ok := parsePlaylistID(c)
	if !ok {
		return
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), 5*time.Second)
	defer cancel()

	playlist, err := h.repos.Playlists.GetByID(ctx, id)
	if err != nil {
		if db.IsNotFound(err) {
			c.JSON(http.StatusNotFound, ErrorResponse{
				Error:   "not_found",
				Message: "playlist not found",
			})
			return
		}
		logger.Log.Error().Err(err).Str("playlist_id", id.String()).Msg("Failed to get playlist")
		c.JSON(http.StatusInternalServerError, ErrorResponse{
			Error:   "internal_error",
			Message: "failed to get playlist",
		})
		return
	}

	c.JSON(http.StatusOK, toPlaylistResponse(playlist))
}

// parsePlaylistID extracts and validates the :id path parameter, writing a
// 400 response itself when the value is not a UUID.
func parsePlaylistID(c *gin.Context) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Error:   "invalid_request",
			Message: "playlist id must be a valid UUID",
		})
		return uuid.Nil, false
	}
	return id, true
}

// SetupPlaylistRoutes registers playlist read routes
func SetupPlaylistRoutes(apiGroup *gin.RouterGroup, repos *db.Repositories) {
	handler := NewPlaylistHandler(repos)
	apiGroup.GET("/playlists", handler.List)
	apiGroup.GET("/playlists/:id", handler.Get)
}
