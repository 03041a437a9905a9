package api

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/harbourlight/conductor/internal/db"
	"github.com/harbourlight/conductor/internal/playout"
)

// ErrorResponse is the common API error envelope
type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message,omitempty"`
}

// respondCommandError maps playout command errors to HTTP responses:
// precondition failures are client errors (the command was invalid for the
// current state), missing documents are 404, anything else is a 500.
func respondCommandError(c *gin.Context, err error) {
	switch {
	case playout.IsNotFoundError(err) || db.IsNotFound(err):
		c.JSON(http.StatusNotFound, ErrorResponse{
			Error:   "not_found",
			Message: err.Error(),
		})
	case playout.IsPreconditionError(err):
		c.JSON(http.StatusConflict, ErrorResponse{
			Error:   "precondition_failed",
			Message: err.Error(),
		})
	default:
		c.JSON(http.StatusInternalServerError, ErrorResponse{
			Error:   "internal_error",
			Message: "command failed",
		})
	}
}
