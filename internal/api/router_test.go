package api_test

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aqstream/aqstream/internal/api"
	"github.com/aqstream/aqstream/internal/api/handler"
	"github.com/aqstream/aqstream/internal/api/models"
	"github.com/aqstream/aqstream/internal/auth"
	"github.com/aqstream/aqstream/internal/reading"
	"github.com/aqstream/aqstream/internal/sensor"
)

func testJWTService() *auth.JWTService {
	return auth.NewJWTService(auth.JWTConfig{
		SigningKey: "test-secret-key-for-testing-only",
	})
}

func generateTestToken(t *testing.T) string {
	t.Helper()
	token, _, err := testJWTService().GenerateOpsToken("test-operator")
	require.NoError(t, err)
	return token
}

// seededReadingService returns a reading service with one observation on
// each channel.
func seededReadingService(t *testing.T) *reading.Service {
	t.Helper()
	svc := reading.NewService(reading.ServiceConfig{
		Logger: zerolog.New(io.Discard),
	})

	at := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	pm25AQI := 41
	pm10AQI := 22
	svc.Record(context.Background(), &reading.Observation{
		Channel: sensor.ChannelPM1, Mean: 5.5, WindowSize: 30, At: at,
	})
	svc.Record(context.Background(), &reading.Observation{
		Channel: sensor.ChannelPM25, Mean: 10.0, AQI: &pm25AQI, AQIInRange: true, WindowSize: 30, At: at,
	})
	svc.Record(context.Background(), &reading.Observation{
		Channel: sensor.ChannelPM10, Mean: 24.0, AQI: &pm10AQI, AQIInRange: true, WindowSize: 30, At: at,
	})
	return svc
}

func newTestRouter(t *testing.T, checks ...handler.SubsystemCheck) http.Handler {
	t.Helper()
	return api.NewRouter(api.RouterConfig{
		Version:        "test",
		BuildTime:      "2025-01-01T00:00:00Z",
		Logger:         zerolog.New(io.Discard),
		JWTService:     testJWTService(),
		ReadingService: seededReadingService(t),
		Checks:         checks,
	})
}

func TestRouter_HealthCheck(t *testing.T) {
	router := newTestRouter(t)

	req := httptest.NewRequest(http.MethodGet, "/v1/ops/health", http.NoBody)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))

	var health models.Health
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &health))
	assert.Equal(t, models.HealthStatusOK, health.Status)
	assert.Equal(t, "test", health.Details["version"])
}

func TestRouter_ReadinessReflectsChecks(t *testing.T) {
	healthy := handler.SubsystemCheck{
		Name:  "postgres",
		Check: func(context.Context) error { return nil },
	}
	router := newTestRouter(t, healthy)

	req := httptest.NewRequest(http.MethodGet, "/v1/ops/ready", http.NoBody)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)

	broken := handler.SubsystemCheck{
		Name:  "postgres",
		Check: func(context.Context) error { return context.DeadlineExceeded },
	}
	router = newTestRouter(t, broken)

	req = httptest.NewRequest(http.MethodGet, "/v1/ops/ready", http.NoBody)
	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}

func TestRouter_StatusRequiresToken(t *testing.T) {
	router := newTestRouter(t)

	req := httptest.NewRequest(http.MethodGet, "/v1/ops/status", http.NoBody)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Equal(t, "application/problem+json", rec.Header().Get("Content-Type"))
}

func TestRouter_StatusWithToken(t *testing.T) {
	degraded := handler.SubsystemCheck{
		Name:  "influxdb",
		Check: func(context.Context) error { return context.DeadlineExceeded },
	}
	router := newTestRouter(t, degraded)

	req := httptest.NewRequest(http.MethodGet, "/v1/ops/status", http.NoBody)
	req.Header.Set("Authorization", "Bearer "+generateTestToken(t))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)

	var status models.SystemStatus
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &status))
	assert.Equal(t, models.HealthStatusDegraded, status.Status)
	require.Len(t, status.Subsystems, 1)
	assert.Equal(t, "influxdb", status.Subsystems[0].Name)
	assert.Equal(t, models.HealthStatusDegraded, status.Subsystems[0].Status)
}

func TestRouter_LatestReadings(t *testing.T) {
	router := newTestRouter(t)

	req := httptest.NewRequest(http.MethodGet, "/v1/readings/latest", http.NoBody)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)

	var list models.ReadingList
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &list))
	require.Len(t, list.Readings, 3)

	byChannel := make(map[string]models.Reading)
	for _, rd := range list.Readings {
		byChannel[rd.Channel] = rd
	}

	pm25 := byChannel["PM2.5"]
	assert.Equal(t, 10.0, pm25.Mean)
	require.NotNil(t, pm25.AQI)
	assert.Equal(t, "41", *pm25.AQI)

	// PM1.0 has no breakpoint table, so no AQI is served
	pm1 := byChannel["PM1.0"]
	assert.Nil(t, pm1.AQI)
	assert.Nil(t, pm1.AQIInRange)
}

func TestRouter_LatestByChannel(t *testing.T) {
	router := newTestRouter(t)

	req := httptest.NewRequest(http.MethodGet, "/v1/readings/pm25/latest", http.NoBody)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)

	var rd models.Reading
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &rd))
	assert.Equal(t, "PM2.5", rd.Channel)
	assert.Equal(t, 30, rd.WindowSize)
}

func TestRouter_UnknownChannelRejected(t *testing.T) {
	router := newTestRouter(t)

	req := httptest.NewRequest(http.MethodGet, "/v1/readings/co2/latest", http.NoBody)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "unknown channel")
}

func TestRouter_HistoryWithoutRepository(t *testing.T) {
	router := newTestRouter(t)

	req := httptest.NewRequest(http.MethodGet, "/v1/readings/pm25/history", http.NoBody)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	// No repository configured; history is empty, not an error
	assert.Equal(t, http.StatusOK, rec.Code)

	var list models.ReadingList
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &list))
	assert.Empty(t, list.Readings)
}

func TestRouter_HistoryInvalidLimit(t *testing.T) {
	router := newTestRouter(t)

	req := httptest.NewRequest(http.MethodGet, "/v1/readings/pm25/history?limit=zero", http.NoBody)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestRouter_NotFoundRoute(t *testing.T) {
	router := newTestRouter(t)

	req := httptest.NewRequest(http.MethodGet, "/v1/nope", http.NoBody)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusNotFound, rec.Code)
}
