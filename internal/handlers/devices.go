package handlers

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/Student-Work-Classroom-Demo-MUBAS/iot-management-the-avengers-rebound/internal/middleware"
	"github.com/Student-Work-Classroom-Demo-MUBAS/iot-management-the-avengers-rebound/internal/service"
)

type createDeviceRequest struct {
	Name     string `json:"name" binding:"required,max=50"`
	Model    string `json:"model" binding:"required,max=50"`
	Location string `json:"location" binding:"required,max=50"`
	Power    string `json:"power" binding:"required,devicepower"`
	Status   string `json:"status" binding:"omitempty,devicestatus"`
	Icon     string `json:"icon" binding:"required,deviceicon"`
}

type updateDeviceRequest struct {
	Name     *string `json:"name" binding:"omitempty,min=1,max=50"`
	Model    *string `json:"model" binding:"omitempty,min=1,max=50"`
	Location *string `json:"location" binding:"omitempty,min=1,max=50"`
	Power    *string `json:"power" binding:"omitempty,devicepower"`
	Status   *string `json:"status" binding:"omitempty,devicestatus"`
	Icon     *string `json:"icon" binding:"omitempty,deviceicon"`
}

type deviceStatusRequest struct {
	Status string `json:"status"`
}

func (h HandlerSet) ListDevices(c *gin.Context) {
	devices, err := h.devices.List(c.Request.Context())
	if err != nil {
		h.fail(c, err)
		return
	}
	respondList(c, devices)
}

func (h HandlerSet) GetDevice(c *gin.Context) {
	id, err := pathID(c)
	if err != nil {
		h.fail(c, err)
		return
	}
	device, err := h.devices.Get(c.Request.Context(), id)
	if err != nil {
		h.fail(c, err)
		return
	}
	respond(c, http.StatusOK, "", device)
}

func (h HandlerSet) CreateDevice(c *gin.Context) {
	var req createDeviceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.fail(c, bindError(err))
		return
	}

	in := service.DeviceInput{
		Name:     req.Name,
		Model:    req.Model,
		Location: req.Location,
		Power:    req.Power,
		Status:   req.Status,
		Icon:     req.Icon,
	}
	if user, ok := middleware.CurrentUser(c); ok {
		id := user.ID
		in.UserID = &id
	}

	device, err := h.devices.Create(c.Request.Context(), in)
	if err != nil {
		h.fail(c, err)
		return
	}
	respond(c, http.StatusCreated, "Device created successfully", device)
}

func (h HandlerSet) UpdateDevice(c *gin.Context) {
	id, err := pathID(c)
	if err != nil {
		h.fail(c, err)
		return
	}
	var req updateDeviceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.fail(c, bindError(err))
		return
	}

	device, err := h.devices.Update(c.Request.Context(), id, service.DevicePatch{
		Name:     req.Name,
		Model:    req.Model,
		Location: req.Location,
		Power:    req.Power,
		Status:   req.Status,
		Icon:     req.Icon,
	})
	if err != nil {
		h.fail(c, err)
		return
	}
	respond(c, http.StatusOK, "Device updated successfully", device)
}

func (h HandlerSet) DeleteDevice(c *gin.Context) {
	id, err := pathID(c)
	if err != nil {
		h.fail(c, err)
		return
	}
	if err := h.devices.Delete(c.Request.Context(), id); err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "message": "Device deleted successfully"})
}

func (h HandlerSet) SetDeviceStatus(c *gin.Context) {
	id, err := pathID(c)
	if err != nil {
		h.fail(c, err)
		return
	}
	var req deviceStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.fail(c, bindError(err))
		return
	}

	device, err := h.devices.SetStatus(c.Request.Context(), id, req.Status)
	if err != nil {
		h.fail(c, err)
		return
	}
	respond(c, http.StatusOK, "Device turned "+strings.ToLower(string(device.Status))+" successfully", device)
}

func (h HandlerSet) DeviceStats(c *gin.Context) {
	id, err := pathID(c)
	if err != nil {
		h.fail(c, err)
		return
	}
	stats, err := h.devices.Stats(c.Request.Context(), id)
	if err != nil {
		h.fail(c, err)
		return
	}
	respond(c, http.StatusOK, "", stats)
}
