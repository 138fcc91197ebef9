package handlers

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/Student-Work-Classroom-Demo-MUBAS/iot-management-the-avengers-rebound/internal/apperr"
	"github.com/Student-Work-Classroom-Demo-MUBAS/iot-management-the-avengers-rebound/internal/middleware"
	"github.com/Student-Work-Classroom-Demo-MUBAS/iot-management-the-avengers-rebound/internal/service"
)

func (h HandlerSet) readBody(c *gin.Context) ([]byte, error) {
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, middleware.MaxIngestBody)
	body, err := c.GetRawData()
	if err != nil {
		return nil, apperr.Validation("Request body is unreadable or too large")
	}
	return body, nil
}

func (h HandlerSet) meta(c *gin.Context, source string) service.IngestMeta {
	meta := service.IngestMeta{Source: source}
	if user, ok := middleware.CurrentUser(c); ok {
		id := user.ID
		meta.UserID = &id
	}
	return meta
}

// SubmitReading stores one reading from an authenticated client.
func (h HandlerSet) SubmitReading(c *gin.Context) {
	body, err := h.readBody(c)
	if err != nil {
		h.fail(c, err)
		return
	}

	reading, err := h.ingestion.Ingest(c.Request.Context(), service.DecodeReading(body), h.meta(c, service.SourceAPI))
	if err != nil {
		h.fail(c, err)
		return
	}
	respond(c, http.StatusCreated, "Sensor data recorded successfully", reading)
}

// SubmitBulk stores a batch; items fail independently and are reported by index.
func (h HandlerSet) SubmitBulk(c *gin.Context) {
	body, err := h.readBody(c)
	if err != nil {
		h.fail(c, err)
		return
	}
	items, err := service.DecodeBatch(body)
	if err != nil {
		h.fail(c, err)
		return
	}

	result, err := h.ingestion.IngestBatch(c.Request.Context(), items, h.meta(c, service.SourceSensor))
	if err != nil {
		h.fail(c, err)
		return
	}
	respond(c, http.StatusCreated, batchMessage(result), result)
}

// DeviceWebhook accepts any of the three submission shapes from field devices.
func (h HandlerSet) DeviceWebhook(c *gin.Context) {
	body, err := h.readBody(c)
	if err != nil {
		h.fail(c, err)
		return
	}
	sub, err := service.DecodeSubmission(body, h.cfg.Ingestion.DefaultLocation)
	if err != nil {
		h.fail(c, err)
		return
	}

	source := service.SourceWebhook
	if strings.Contains(strings.ToUpper(c.GetHeader("User-Agent")), "ESP32") {
		source = service.SourceESP32
	}

	result, err := h.ingestion.IngestSubmission(c.Request.Context(), sub, h.meta(c, source))
	if err != nil {
		h.fail(c, err)
		return
	}
	respond(c, http.StatusCreated, batchMessage(result), result)
}

func batchMessage(result service.BatchResult) string {
	if result.Failed == 0 {
		return "Sensor data recorded successfully"
	}
	return "Sensor data partially recorded"
}
