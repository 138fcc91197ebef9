package handlers

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/Student-Work-Classroom-Demo-MUBAS/iot-management-the-avengers-rebound/internal/apperr"
)

// fail writes the error envelope. Internal causes are logged and, in
// production, replaced by a generic message.
func (h HandlerSet) fail(c *gin.Context, err error) {
	appErr := apperr.From(err)
	message := appErr.Message
	if appErr.Kind == apperr.KindInternal {
		h.log.Error().Err(err).
			Str("method", c.Request.Method).
			Str("path", c.Request.URL.Path).
			Msg("request failed")
		if !h.cfg.IsProduction() && appErr.Err != nil {
			message = appErr.Err.Error()
		}
	}

	body := gin.H{
		"success": false,
		"error":   message,
		"message": appErr.Kind,
	}
	if len(appErr.Details) > 0 {
		body["details"] = appErr.Details
	}
	c.JSON(appErr.Kind.Status(), body)
}

func respond(c *gin.Context, status int, message string, data any) {
	body := gin.H{"success": true, "data": data}
	if message != "" {
		body["message"] = message
	}
	c.JSON(status, body)
}

func respondList[T any](c *gin.Context, items []T) {
	if items == nil {
		items = []T{}
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "count": len(items), "data": items})
}

func pathID(c *gin.Context) (int64, error) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || id <= 0 {
		return 0, apperr.Validation("Invalid id",
			apperr.FieldError{Field: "id", Message: "must be a positive integer"})
	}
	return id, nil
}

// queryInt parses an optional integer query parameter; absent yields 0.
func queryInt(c *gin.Context, name string) (int, error) {
	raw := strings.TrimSpace(c.Query(name))
	if raw == "" {
		return 0, nil
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return 0, apperr.Validation("Invalid query parameters",
			apperr.FieldError{Field: name, Message: "must be an integer"})
	}
	return v, nil
}

func wantsHTML(c *gin.Context) bool {
	accept := c.GetHeader("Accept")
	return strings.Contains(accept, "text/html") && !strings.HasPrefix(c.Request.URL.Path, "/api/")
}
