package handlers

import (
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/Student-Work-Classroom-Demo-MUBAS/iot-management-the-avengers-rebound/internal/apperr"
	"github.com/Student-Work-Classroom-Demo-MUBAS/iot-management-the-avengers-rebound/internal/middleware"
	"github.com/Student-Work-Classroom-Demo-MUBAS/iot-management-the-avengers-rebound/internal/models"
	"github.com/Student-Work-Classroom-Demo-MUBAS/iot-management-the-avengers-rebound/internal/repository"
	"github.com/Student-Work-Classroom-Demo-MUBAS/iot-management-the-avengers-rebound/internal/service"
)

type createSensorRequest struct {
	Name              string   `json:"name" binding:"required,max=100"`
	Type              string   `json:"type" binding:"required,sensortype"`
	Location          string   `json:"location" binding:"required,max=100"`
	Unit              string   `json:"unit" binding:"required,max=10"`
	CalibrationFactor *float64 `json:"calibrationFactor" binding:"omitempty,gt=0"`
	Status            string   `json:"status" binding:"omitempty,oneof=ACTIVE INACTIVE MAINTENANCE"`
	DeviceID          *int64   `json:"deviceId"`
}

type updateSensorRequest struct {
	Name              *string  `json:"name" binding:"omitempty,min=1,max=100"`
	Location          *string  `json:"location" binding:"omitempty,min=1,max=100"`
	Unit              *string  `json:"unit" binding:"omitempty,min=1,max=10"`
	CalibrationFactor *float64 `json:"calibrationFactor" binding:"omitempty,gt=0"`
	Status            *string  `json:"status" binding:"omitempty,oneof=ACTIVE INACTIVE MAINTENANCE"`
	DeviceID          *int64   `json:"deviceId"`
}

type sensorStatusRequest struct {
	Status string `json:"status" binding:"required"`
}

func (h HandlerSet) ListSensors(c *gin.Context) {
	filter := repository.SensorFilter{
		Type:   models.SensorType(strings.ToLower(c.Query("type"))),
		Status: models.SensorStatus(strings.ToUpper(c.Query("status"))),
	}
	sensors, err := h.sensors.List(c.Request.Context(), filter)
	if err != nil {
		h.fail(c, err)
		return
	}
	respondList(c, sensors)
}

func (h HandlerSet) GetSensor(c *gin.Context) {
	id, err := pathID(c)
	if err != nil {
		h.fail(c, err)
		return
	}
	detail, err := h.sensors.Get(c.Request.Context(), id)
	if err != nil {
		h.fail(c, err)
		return
	}
	respond(c, http.StatusOK, "", detail)
}

func (h HandlerSet) CreateSensor(c *gin.Context) {
	var req createSensorRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.fail(c, bindError(err))
		return
	}
	in := service.SensorInput{
		Name:              req.Name,
		Type:              req.Type,
		Location:          req.Location,
		Unit:              req.Unit,
		CalibrationFactor: req.CalibrationFactor,
		Status:            req.Status,
		DeviceID:          req.DeviceID,
	}
	if user, ok := middleware.CurrentUser(c); ok {
		id := user.ID
		in.UserID = &id
	}

	sensor, err := h.sensors.Create(c.Request.Context(), in)
	if err != nil {
		h.fail(c, err)
		return
	}
	respond(c, http.StatusCreated, "Sensor created successfully", sensor)
}

func (h HandlerSet) UpdateSensor(c *gin.Context) {
	id, err := pathID(c)
	if err != nil {
		h.fail(c, err)
		return
	}
	var req updateSensorRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.fail(c, bindError(err))
		return
	}
	sensor, err := h.sensors.Update(c.Request.Context(), id, service.SensorPatch{
		Name:              req.Name,
		Location:          req.Location,
		Unit:              req.Unit,
		CalibrationFactor: req.CalibrationFactor,
		Status:            req.Status,
		DeviceID:          req.DeviceID,
	})
	if err != nil {
		h.fail(c, err)
		return
	}
	respond(c, http.StatusOK, "Sensor updated successfully", sensor)
}

func (h HandlerSet) DeleteSensor(c *gin.Context) {
	id, err := pathID(c)
	if err != nil {
		h.fail(c, err)
		return
	}
	if err := h.sensors.Delete(c.Request.Context(), id); err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "message": "Sensor deleted successfully"})
}

func (h HandlerSet) SetSensorStatus(c *gin.Context) {
	id, err := pathID(c)
	if err != nil {
		h.fail(c, err)
		return
	}
	var req sensorStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.fail(c, bindError(err))
		return
	}
	sensor, err := h.sensors.SetStatus(c.Request.Context(), id, req.Status)
	if err != nil {
		h.fail(c, err)
		return
	}
	respond(c, http.StatusOK, "Sensor status updated", sensor)
}

func (h HandlerSet) SensorData(c *gin.Context) {
	id, err := pathID(c)
	if err != nil {
		h.fail(c, err)
		return
	}
	q, err := dataQuery(c)
	if err != nil {
		h.fail(c, err)
		return
	}
	data, err := h.sensors.Data(c.Request.Context(), id, q)
	if err != nil {
		h.fail(c, err)
		return
	}
	respond(c, http.StatusOK, "", data)
}

func dataQuery(c *gin.Context) (service.DataQuery, error) {
	var q service.DataQuery
	var err error
	if q.Hours, err = queryInt(c, "hours"); err != nil {
		return q, err
	}
	if q.Limit, err = queryInt(c, "limit"); err != nil {
		return q, err
	}
	if q.From, err = queryTime(c, "startDate"); err != nil {
		return q, err
	}
	if q.To, err = queryTime(c, "endDate"); err != nil {
		return q, err
	}
	return q, nil
}

// queryTime accepts RFC 3339 or a bare date.
func queryTime(c *gin.Context, name string) (*time.Time, error) {
	raw := strings.TrimSpace(c.Query(name))
	if raw == "" {
		return nil, nil
	}
	for _, layout := range []string{time.RFC3339Nano, "2006-01-02"} {
		if t, err := time.Parse(layout, raw); err == nil {
			return &t, nil
		}
	}
	return nil, apperr.Validation("Invalid query parameters",
		apperr.FieldError{Field: name, Message: "must be an RFC 3339 timestamp or YYYY-MM-DD date"})
}

func (h HandlerSet) SensorSummary(c *gin.Context) {
	sensors, err := h.sensors.Summary(c.Request.Context())
	if err != nil {
		h.fail(c, err)
		return
	}
	respondList(c, sensors)
}

func (h HandlerSet) SensorTypeCounts(c *gin.Context) {
	counts, err := h.sensors.TypeCounts(c.Request.Context())
	if err != nil {
		h.fail(c, err)
		return
	}
	respondList(c, counts)
}

func (h HandlerSet) SensorsByType(c *gin.Context) {
	sensors, err := h.sensors.ByType(c.Request.Context(), c.Param("type"))
	if err != nil {
		h.fail(c, err)
		return
	}
	respondList(c, sensors)
}
