package handlers_test

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strconv"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Student-Work-Classroom-Demo-MUBAS/iot-management-the-avengers-rebound/internal/config"
	"github.com/Student-Work-Classroom-Demo-MUBAS/iot-management-the-avengers-rebound/internal/database"
	"github.com/Student-Work-Classroom-Demo-MUBAS/iot-management-the-avengers-rebound/internal/handlers"
	"github.com/Student-Work-Classroom-Demo-MUBAS/iot-management-the-avengers-rebound/internal/realtime"
	"github.com/Student-Work-Classroom-Demo-MUBAS/iot-management-the-avengers-rebound/internal/repository"
	"github.com/Student-Work-Classroom-Demo-MUBAS/iot-management-the-avengers-rebound/internal/repository/gormstore"
	"github.com/Student-Work-Classroom-Demo-MUBAS/iot-management-the-avengers-rebound/internal/server"
)

type testServer struct {
	engine *gin.Engine
	stores repository.Stores
	token  string
}

func testConfig() *config.AppConfig {
	return &config.AppConfig{
		Environment: "test",
		Security: config.SecurityConfig{
			JWTSecret:   "handler-test-secret",
			JWTTTL:      time.Hour,
			MaxSessions: 5,
			CookieName:  "token",
		},
		Ingestion: config.IngestionConfig{DefaultLocation: "Home"},
		Dashboard: config.DashboardConfig{Timezone: "UTC"},
		Energy:    config.EnergyConfig{TariffPerKWh: 0.15, RollupInterval: time.Hour},
	}
}

func newTestServer(t *testing.T, seed bool) *testServer {
	t.Helper()
	gin.SetMode(gin.TestMode)

	db, err := gormstore.Open(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() {
		if sqlDB, err := db.DB(); err == nil {
			_ = sqlDB.Close()
		}
	})
	stores := gormstore.NewStores(db)
	if seed {
		require.NoError(t, database.Seed(context.Background(), stores, zerolog.Nop()))
	}

	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	hub := realtime.NewHub(zerolog.Nop(), realtime.Options{})
	go hub.Run(ctx)

	set := handlers.NewHandlerSet(handlers.Dependencies{
		Log:    zerolog.Nop(),
		Config: testConfig(),
		Stores: stores,
		Hub:    hub,
	})
	engine, err := server.NewEngine(testConfig(), zerolog.Nop(), set)
	require.NoError(t, err)

	return &testServer{engine: engine, stores: stores}
}

func (s *testServer) do(t *testing.T, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var reader *bytes.Reader
	switch b := body.(type) {
	case nil:
		reader = bytes.NewReader(nil)
	case string:
		reader = bytes.NewReader([]byte(b))
	default:
		raw, err := json.Marshal(b)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	}

	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	if s.token != "" {
		req.Header.Set("Authorization", "Bearer "+s.token)
	}
	rec := httptest.NewRecorder()
	s.engine.ServeHTTP(rec, req)
	return rec
}

func (s *testServer) login(t *testing.T) {
	t.Helper()
	rec := s.do(t, http.MethodPost, "/auth/login", map[string]string{
		"email":    "admin@smarthome.com",
		"password": "admin123",
	})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var resp struct {
		Token string `json:"token"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.NotEmpty(t, resp.Token)
	s.token = resp.Token
}

func decode(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var doc map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &doc), rec.Body.String())
	return doc
}

func TestSubmitReadingQuality(t *testing.T) {
	srv := newTestServer(t, true)
	srv.login(t)

	cases := []struct {
		value   float64
		quality string
	}{
		{150, "QUESTIONABLE"},
		{22.5, "GOOD"},
	}
	for _, tc := range cases {
		rec := srv.do(t, http.MethodPost, "/api/sensor-data", map[string]any{
			"sensorType": "temperature",
			"value":      tc.value,
			"location":   "Living Room",
		})
		require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

		doc := decode(t, rec)
		assert.Equal(t, true, doc["success"])
		assert.Equal(t, "Sensor data recorded successfully", doc["message"])
		data := doc["data"].(map[string]any)
		assert.Equal(t, tc.quality, data["quality"])
		assert.Equal(t, "temperature", data["sensorType"])
	}
}

func TestSubmitReadingWithoutLogin(t *testing.T) {
	srv := newTestServer(t, true)

	rec := srv.do(t, http.MethodPost, "/api/sensor-data", map[string]any{"sensorType": "temperature", "value": 20, "location": "Hall"})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	data := decode(t, rec)["data"].(map[string]any)
	assert.Equal(t, "GOOD", data["quality"])

	srv.token = "not-a-token"
	rec = srv.do(t, http.MethodPost, "/api/sensor-data", map[string]any{"sensorType": "temperature", "value": 21, "location": "Hall"})
	assert.Equal(t, http.StatusCreated, rec.Code, "an invalid token is ignored on an open route")

	srv.token = ""
	rec = srv.do(t, http.MethodPost, "/api/sensors/data/bulk", map[string]any{"readings": []map[string]any{{"sensorId": 1, "value": 1}}})
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Equal(t, false, decode(t, rec)["success"])
}

func TestRegisterAdminOnlyByAdmin(t *testing.T) {
	srv := newTestServer(t, true)

	rec := srv.do(t, http.MethodPost, "/auth/register", map[string]string{
		"name": "Mallory", "email": "mallory@example.com", "password": "secret1", "role": "admin",
	})
	require.Equal(t, http.StatusForbidden, rec.Code, rec.Body.String())
	assert.Equal(t, "Forbidden", decode(t, rec)["message"])

	rec = srv.do(t, http.MethodPost, "/auth/register", map[string]string{
		"name": "Regular", "email": "regular@example.com", "password": "secret1",
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	assert.NotEmpty(t, decode(t, rec)["token"])

	srv.login(t)
	rec = srv.do(t, http.MethodPost, "/auth/register", map[string]string{
		"name": "Margaret", "email": "margaret@example.com", "password": "secret1", "role": "admin",
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	doc := decode(t, rec)
	assert.Nil(t, doc["token"], "the admin keeps their own session")
	assert.Equal(t, "admin", doc["data"].(map[string]any)["role"])
	assert.Empty(t, rec.Result().Cookies())
}

func TestSubmitReadingValidation(t *testing.T) {
	srv := newTestServer(t, true)
	srv.login(t)

	rec := srv.do(t, http.MethodPost, "/api/sensor-data", map[string]any{"sensorType": "temperature", "location": "Hall"})
	require.Equal(t, http.StatusBadRequest, rec.Code)
	doc := decode(t, rec)
	assert.Equal(t, "ValidationFailed", doc["message"])
	assert.NotEmpty(t, doc["details"])
}

func TestDeviceStatusNotFound(t *testing.T) {
	srv := newTestServer(t, true)
	srv.login(t)

	rec := srv.do(t, http.MethodPatch, "/api/devices/999/status", map[string]string{"status": "ON"})
	require.Equal(t, http.StatusNotFound, rec.Code)
	doc := decode(t, rec)
	assert.Equal(t, false, doc["success"])
	assert.Equal(t, "Device not found", doc["error"])
}

func TestDeviceStatusToggle(t *testing.T) {
	srv := newTestServer(t, true)
	srv.login(t)

	device, err := srv.stores.Devices.FindByName(context.Background(), "TV")
	require.NoError(t, err)

	rec := srv.do(t, http.MethodPatch, "/api/devices/"+itoa(device.ID)+"/status", map[string]string{"status": "ON"})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	doc := decode(t, rec)
	assert.Equal(t, "Device turned on successfully", doc["message"])
	assert.Equal(t, "ON", doc["data"].(map[string]any)["status"])

	rec = srv.do(t, http.MethodPatch, "/api/devices/"+itoa(device.ID)+"/status", map[string]string{"status": "blinking"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestDeviceCRUD(t *testing.T) {
	srv := newTestServer(t, true)
	srv.login(t)

	rec := srv.do(t, http.MethodPost, "/api/devices", map[string]string{
		"name":     "Kettle",
		"model":    "K-2",
		"location": "Kitchen",
		"power":    "2000W",
		"icon":     "fas fa-mug-hot",
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	id := int64(decode(t, rec)["data"].(map[string]any)["id"].(float64))

	rec = srv.do(t, http.MethodPost, "/api/devices", map[string]string{
		"name":     "Kettle",
		"model":    "K-3",
		"location": "Kitchen",
		"power":    "1800W",
		"icon":     "fas fa-mug-hot",
	})
	assert.Equal(t, http.StatusConflict, rec.Code)

	rec = srv.do(t, http.MethodGet, "/api/devices", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.EqualValues(t, 5, decode(t, rec)["count"])

	rec = srv.do(t, http.MethodDelete, "/api/devices/"+itoa(id), nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	rec = srv.do(t, http.MethodGet, "/api/devices/"+itoa(id), nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestCurrentValuesOnEmptyDatabase(t *testing.T) {
	srv := newTestServer(t, false)

	rec := srv.do(t, http.MethodGet, "/api/current-values", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	doc := decode(t, rec)
	for _, key := range []string{"current", "temperature", "humidity", "light", "energy"} {
		value, ok := doc[key].(map[string]any)
		require.True(t, ok, key)
		assert.EqualValues(t, 0, value["value"], key)
		assert.Equal(t, true, value["fallback"], key)
	}
}

func TestEnergyDataEmptySeries(t *testing.T) {
	srv := newTestServer(t, false)

	rec := srv.do(t, http.MethodGet, "/api/energy-data", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"labels":[],"data":[]}`, rec.Body.String())

	rec = srv.do(t, http.MethodGet, "/api/energy-data?hours=abc", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestBulkSubmissionPartialFailure(t *testing.T) {
	srv := newTestServer(t, true)
	srv.login(t)

	rec := srv.do(t, http.MethodPost, "/api/sensors/data/bulk", `{"readings":[
		{"sensorType":"humidity","value":40,"location":"Living Room"},
		{"sensorType":"humidity","value":"n/a","location":"Living Room"},
		{"sensorId":999999,"value":1},
		{"sensorType":"light","value":250,"location":"Living Room"}
	]}`)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	data := decode(t, rec)["data"].(map[string]any)
	assert.EqualValues(t, 4, data["total"])
	assert.EqualValues(t, 2, data["success"])
	assert.EqualValues(t, 2, data["failed"])
}

func TestDeviceWebhookLegacyPayload(t *testing.T) {
	srv := newTestServer(t, true)

	req := httptest.NewRequest(http.MethodPost, "/api/sensordata",
		bytes.NewReader([]byte(`{"light_intensity":512,"temperature":24.5,"humidity":40,"current":2.1,"power":483,"timestamp":99123}`)))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("User-Agent", "ESP32-SmartHome-Sensor")
	rec := httptest.NewRecorder()
	srv.engine.ServeHTTP(rec, req)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	rec = srv.do(t, http.MethodGet, "/api/current-values", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	doc := decode(t, rec)
	temperature := doc["temperature"].(map[string]any)
	assert.InDelta(t, 24.5, temperature["value"].(float64), 1e-9)
	assert.Equal(t, false, temperature["fallback"])
}

func TestAdminRoutesRequireRole(t *testing.T) {
	srv := newTestServer(t, true)

	rec := srv.do(t, http.MethodPost, "/auth/register", map[string]string{
		"name":     "Regular",
		"email":    "regular@example.com",
		"password": "regular1",
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	srv.token = decode(t, rec)["token"].(string)

	rec = srv.do(t, http.MethodGet, "/api/admin/users", nil)
	assert.Equal(t, http.StatusForbidden, rec.Code)

	srv.login(t)
	rec = srv.do(t, http.MethodGet, "/api/admin/users", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestHealthAndNotFound(t *testing.T) {
	srv := newTestServer(t, false)

	rec := srv.do(t, http.MethodGet, "/health", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "ok", decode(t, rec)["database"])

	rec = srv.do(t, http.MethodGet, "/api/nope", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestStatusReportsSeededCounts(t *testing.T) {
	srv := newTestServer(t, true)

	rec := srv.do(t, http.MethodGet, "/status", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	counts, ok := decode(t, rec)["counts"].(map[string]any)
	require.True(t, ok)
	assert.EqualValues(t, 4, counts["devices"])
	assert.EqualValues(t, 5, counts["sensors"])
	assert.EqualValues(t, 0, counts["readings"])
}

func TestDashboardPageRenders(t *testing.T) {
	srv := newTestServer(t, true)

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Accept", "text/html")
	rec := httptest.NewRecorder()
	srv.engine.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "Living Room Light")
}

func itoa(id int64) string {
	return strconv.FormatInt(id, 10)
}
