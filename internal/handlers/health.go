package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
)

type healthResponse struct {
	Status    string    `json:"status"`
	Database  string    `json:"database"`
	Cache     string    `json:"cache"`
	Timestamp time.Time `json:"timestamp"`
}

func (h HandlerSet) Health(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
	defer cancel()

	resp := healthResponse{Status: "ok", Database: "ok", Cache: "disabled", Timestamp: time.Now().UTC()}
	if err := h.stores.DB.Ping(ctx); err != nil {
		resp.Status = "degraded"
		resp.Database = "error"
		h.log.Error().Err(err).Msg("database ping failed")
	}

	if h.cache != nil {
		resp.Cache = "ok"
		if err := h.cache.Ping(ctx).Err(); err != nil {
			resp.Cache = "error"
			h.log.Error().Err(err).Msg("redis ping failed")
		}
	}

	status := http.StatusOK
	if resp.Database != "ok" {
		status = http.StatusServiceUnavailable
	}
	c.JSON(status, resp)
}

func (h HandlerSet) Status(c *gin.Context) {
	overview, err := h.stores.Reports.Overview(c.Request.Context())
	if err != nil {
		h.fail(c, err)
		return
	}

	body := gin.H{
		"success":     true,
		"environment": h.cfg.Environment,
		"uptime":      time.Since(h.startedAt).Round(time.Second).String(),
		"counts":      overview,
	}
	if h.hub != nil {
		body["clients"] = h.hub.ConnectedClients()
		body["droppedEvents"] = h.hub.Dropped()
	}
	c.JSON(http.StatusOK, body)
}
