package handlers

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/Student-Work-Classroom-Demo-MUBAS/iot-management-the-avengers-rebound/internal/apperr"
)

func (h HandlerSet) AdminListUsers(c *gin.Context) {
	limit := 50
	offset := 0
	page := 1

	if perPage := c.Query("perPage"); perPage != "" {
		if v, err := strconv.Atoi(perPage); err == nil && v > 0 && v <= 200 {
			limit = v
		}
	}
	if p := c.Query("page"); p != "" {
		if v, err := strconv.Atoi(p); err == nil && v > 1 {
			page = v
			offset = (v - 1) * limit
		}
	}

	users, err := h.stores.Users.List(c.Request.Context(), limit, offset)
	if err != nil {
		h.fail(c, apperr.Internal(err))
		return
	}
	total, err := h.stores.Users.Count(c.Request.Context())
	if err != nil {
		h.fail(c, apperr.Internal(err))
		return
	}

	items := make([]userResponse, 0, len(users))
	for _, u := range users {
		items = append(items, newUserResponse(u))
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"data":    items,
		"page":    page,
		"perPage": limit,
		"total":   total,
	})
}

func (h HandlerSet) RunRetention(c *gin.Context) {
	deleted, err := h.maintenance.PurgeReadings(c.Request.Context())
	if err != nil {
		h.fail(c, apperr.Internal(err))
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "message": "Retention sweep finished", "deleted": deleted})
}
