package handlers

import (
	"errors"
	"log/slog"
	"net/http"
	"time"

	"farmsetu/apperr"

	"github.com/gin-gonic/gin"
)

const requestTimeout = 10 * time.Second

func respond(c *gin.Context, status int, message string, data any) {
	body := gin.H{"success": true}
	if message != "" {
		body["message"] = message
	}
	if data != nil {
		body["data"] = data
	}
	c.JSON(status, body)
}

// respondError writes the error envelope. Unexpected errors are logged and,
// in release mode, replaced by a generic message.
func respondError(c *gin.Context, log *slog.Logger, err error) {
	status := apperr.Status(err)
	body := gin.H{"success": false, "message": err.Error()}

	var (
		ve *apperr.ValidationError
		de *apperr.DuplicateError
	)
	switch {
	case errors.As(err, &ve):
		if ve.Field != "" {
			body["field"] = ve.Field
		}
		if ve.Code != "" {
			body["code"] = ve.Code
		}
	case errors.As(err, &de):
		if de.ExistingID != "" {
			body["existingListingId"] = de.ExistingID
		}
	case status == http.StatusInternalServerError:
		_ = c.Error(err)
		log.Error("request failed", "path", c.FullPath(), "error", err)
		if gin.Mode() == gin.ReleaseMode {
			body["message"] = "Internal server error"
		}
	}
	c.JSON(status, body)
}
