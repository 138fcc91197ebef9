package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/Student-Work-Classroom-Demo-MUBAS/iot-management-the-avengers-rebound/internal/middleware"
	"github.com/Student-Work-Classroom-Demo-MUBAS/iot-management-the-avengers-rebound/internal/models"
	"github.com/Student-Work-Classroom-Demo-MUBAS/iot-management-the-avengers-rebound/internal/realtime"
	"github.com/Student-Work-Classroom-Demo-MUBAS/iot-management-the-avengers-rebound/internal/service"
)

func viewer(c *gin.Context) *models.User {
	if user, ok := middleware.CurrentUser(c); ok {
		return &user
	}
	return nil
}

func (h HandlerSet) DashboardPage(c *gin.Context) {
	c.HTML(http.StatusOK, "dashboard.html", h.dashboard.View(c.Request.Context(), viewer(c)))
}

func (h HandlerSet) EnergyPage(c *gin.Context) {
	page, err := h.dashboard.EnergyPage(c.Request.Context(), viewer(c))
	if err != nil {
		h.renderError(c, err)
		return
	}
	c.HTML(http.StatusOK, "energy.html", page)
}

func (h HandlerSet) TemperaturePage(c *gin.Context) {
	page, err := h.dashboard.ClimatePage(c.Request.Context(), viewer(c))
	if err != nil {
		h.renderError(c, err)
		return
	}
	c.HTML(http.StatusOK, "temperature.html", page)
}

func (h HandlerSet) LightingPage(c *gin.Context) {
	c.HTML(http.StatusOK, "lighting.html", h.dashboard.LightingPage(c.Request.Context(), viewer(c)))
}

func (h HandlerSet) AppliancesPage(c *gin.Context) {
	c.HTML(http.StatusOK, "appliances.html", h.dashboard.AppliancesPage(c.Request.Context(), viewer(c)))
}

func (h HandlerSet) SettingsPage(c *gin.Context) {
	page, err := h.dashboard.SettingsPage(c.Request.Context(), viewer(c))
	if err != nil {
		h.renderError(c, err)
		return
	}
	c.HTML(http.StatusOK, "settings.html", page)
}

// CurrentValues is public and never fails; absent types carry fallbacks.
func (h HandlerSet) CurrentValues(c *gin.Context) {
	c.JSON(http.StatusOK, h.dashboard.CurrentValues(c.Request.Context()))
}

func (h HandlerSet) EnergyData(c *gin.Context) {
	hours, err := queryInt(c, "hours")
	if err != nil {
		h.fail(c, err)
		return
	}
	if hours == 0 {
		hours = service.DefaultWindowHours
	}
	series, err := h.energy.Series(c.Request.Context(), hours)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, series)
}

func (h HandlerSet) EnergyUsage(c *gin.Context) {
	hours, err := queryInt(c, "hours")
	if err != nil {
		h.fail(c, err)
		return
	}
	if hours == 0 {
		hours = service.DefaultWindowHours
	}
	deviceID, err := queryInt(c, "deviceId")
	if err != nil {
		h.fail(c, err)
		return
	}
	rows, err := h.energy.Usage(c.Request.Context(), int64(deviceID), hours)
	if err != nil {
		h.fail(c, err)
		return
	}
	respondList(c, rows)
}

// Socket upgrades to the realtime channel and greets the client with the current values.
func (h HandlerSet) Socket(c *gin.Context) {
	if h.hub == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"success": false, "error": "Realtime channel disabled"})
		return
	}
	var userID int64
	if user, ok := middleware.CurrentUser(c); ok {
		userID = user.ID
	}
	greeting := realtime.Event{Name: realtime.EventSnapshot, Data: h.dashboard.CurrentValues(c.Request.Context())}
	if err := h.hub.Serve(c.Writer, c.Request, userID, &greeting); err != nil {
		h.log.Debug().Err(err).Msg("socket upgrade failed")
	}
}
