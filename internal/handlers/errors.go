package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/Student-Work-Classroom-Demo-MUBAS/iot-management-the-avengers-rebound/internal/apperr"
)

type errorPage struct {
	Status  int
	Title   string
	Message string
}

// NotFound answers unknown routes with JSON for API clients and a page for browsers.
func (h HandlerSet) NotFound(c *gin.Context) {
	if wantsHTML(c) {
		c.HTML(http.StatusNotFound, "error.html", errorPage{
			Status:  http.StatusNotFound,
			Title:   "Page not found",
			Message: "The page " + c.Request.URL.Path + " does not exist.",
		})
		return
	}
	h.fail(c, apperr.NotFound("Route "+c.Request.URL.Path+" not found"))
}

func (h HandlerSet) renderError(c *gin.Context, err error) {
	appErr := apperr.From(err)
	if appErr.Kind == apperr.KindInternal {
		h.log.Error().Err(err).Str("path", c.Request.URL.Path).Msg("render page failed")
	}
	c.HTML(appErr.Kind.Status(), "error.html", errorPage{
		Status:  appErr.Kind.Status(),
		Title:   "Something went wrong",
		Message: appErr.Message,
	})
}
