package handlers

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"energy-platform/internal/generator"
	"energy-platform/internal/models"
	"energy-platform/internal/repository/repositorymock"
	"energy-platform/internal/services"
	"energy-platform/pkg/logging"
	"energy-platform/pkg/metrics"
)

const testUser = "0b7d2c1e-4f7a-4a43-9d55-3f1c2b6a9e10"

var testNow = time.Date(2024, 6, 1, 12, 10, 0, 0, time.UTC)

func newTestRouter(t *testing.T) (*mux.Router, *EnergyHandler, *repositorymock.EnergyRepository) {
	t.Helper()

	logger := logging.NewStructuredLogger("energy-test", "test", logging.DebugLevel)
	logger.SetOutput(io.Discard)
	collector := metrics.NewCollectorWithRegisterer("energy_test", prometheus.NewRegistry())
	gen := generator.New(generator.DefaultLatitude, time.UTC)
	repo := &repositorymock.EnergyRepository{}

	h := NewEnergyHandler(
		services.NewPopulationService(repo, gen, logger, collector, 0),
		services.NewEnergyService(repo, gen, logger, collector),
		logger,
		collector,
	)
	h.now = func() time.Time { return testNow }

	router := mux.NewRouter()
	router.Use(RequestID, AccessLog(logger, collector))
	h.RegisterRoutes(router)

	return router, h, repo
}

func doRequest(router http.Handler, target, user string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, target, nil)
	if user != "" {
		req.Header.Set(HeaderUserID, user)
	}
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	return rec
}

func decode(t *testing.T, rec *httptest.ResponseRecorder, v interface{}) {
	t.Helper()
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), v))
}

func TestRequireUser(t *testing.T) {
	router, _, _ := newTestRouter(t)

	for _, user := range []string{"", "not-a-uuid"} {
		rec := doRequest(router, "/api/populate-database", user)
		assert.Equal(t, http.StatusUnauthorized, rec.Code)

		var resp ErrorResponse
		decode(t, rec, &resp)
		assert.Equal(t, http.StatusUnauthorized, resp.Code)
	}
}

func TestRequestID(t *testing.T) {
	router, _, _ := newTestRouter(t)

	rec := doRequest(router, "/api/docs/openapi.json", "")
	_, err := uuid.Parse(rec.Header().Get(HeaderRequestID))
	assert.NoError(t, err)
}

func TestDocsArePublic(t *testing.T) {
	router, _, _ := newTestRouter(t)

	rec := doRequest(router, "/api/docs/openapi.json", "")
	require.Equal(t, http.StatusOK, rec.Code)

	var spec map[string]interface{}
	decode(t, rec, &spec)
	paths := spec["paths"].(map[string]interface{})
	assert.Contains(t, paths, "/api/populate-database")
	assert.Contains(t, paths, "/api/solar-generation-data")

	rec = doRequest(router, "/api/docs", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "swagger-ui")
}

func TestPopulateDatabase_Status(t *testing.T) {
	router, _, _ := newTestRouter(t)

	rec := doRequest(router, "/api/populate-database", testUser)
	require.Equal(t, http.StatusOK, rec.Code)

	var resp StatusResponse
	decode(t, rec, &resp)
	assert.True(t, resp.Success)
	assert.Equal(t, testUser, resp.UserID)
	assert.Contains(t, resp.Usage, "force_populate")
}

func TestPopulateDatabase_NoDevices(t *testing.T) {
	router, _, repo := newTestRouter(t)
	repo.On("ListSolarArrays", mock.Anything, testUser).Return([]models.DeviceConfig{}, nil)
	repo.On("HasHouseDevice", mock.Anything, testUser).Return(false, nil)

	rec := doRequest(router, "/api/populate-database?action=populate", testUser)
	require.Equal(t, http.StatusOK, rec.Code)

	var resp services.PopulateResult
	decode(t, rec, &resp)
	assert.False(t, resp.Success)
	assert.Equal(t, services.MessageNoDevices, resp.Message)
}

func TestPopulateDatabase_StoreFailure(t *testing.T) {
	router, _, repo := newTestRouter(t)
	repo.On("ListSolarArrays", mock.Anything, testUser).Return(nil, &models.StoreError{Op: "list solar arrays", Err: errors.New("timeout")})

	rec := doRequest(router, "/api/populate-database?action=populate", testUser)
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
}

func TestPopulateDatabase_Count(t *testing.T) {
	router, _, repo := newTestRouter(t)
	repo.On("CountPoints", mock.Anything, testUser, models.TablePowerGeneration).Return(48, nil)
	repo.On("CountPoints", mock.Anything, testUser, models.TableHouseLoad).Return(24, nil)
	repo.On("DateRange", mock.Anything, testUser, mock.Anything).Return(models.DateRange{}, nil)

	rec := doRequest(router, "/api/populate-database?action=count", testUser)
	require.Equal(t, http.StatusOK, rec.Code)

	var resp struct {
		Success bool             `json:"success"`
		Data    models.DataCount `json:"data"`
	}
	decode(t, rec, &resp)
	assert.True(t, resp.Success)
	assert.Equal(t, 48, resp.Data.SolarGenerationPoints)
	assert.Equal(t, 24, resp.Data.HouseLoadPoints)
}

func TestGetSolarGeneration(t *testing.T) {
	router, _, repo := newTestRouter(t)
	ts := time.Date(2024, 6, 1, 11, 0, 0, 0, time.UTC)
	repo.On("GetSolarSeries", mock.Anything, testUser, testNow.Add(-7*24*time.Hour), testNow).
		Return([]models.SeriesPoint{{Timestamp: ts, EnergyKWh: 4.567}}, nil)

	rec := doRequest(router, "/api/solar-generation-data?timeRange=7d", testUser)
	require.Equal(t, http.StatusOK, rec.Code)

	var resp struct {
		Success bool              `json:"success"`
		Data    []SolarChartPoint `json:"data"`
	}
	decode(t, rec, &resp)
	require.Len(t, resp.Data, 1)
	assert.Equal(t, 4.57, resp.Data[0].TotalGenerationKWh)
	assert.Equal(t, "11:00", resp.Data[0].Hour)
}

func TestGetHouseLoad_NotFound(t *testing.T) {
	router, _, repo := newTestRouter(t)
	repo.On("GetHouseLoadSeries", mock.Anything, testUser, mock.Anything, mock.Anything).Return([]models.SeriesPoint{}, nil)

	rec := doRequest(router, "/api/house-load-data", testUser)
	require.Equal(t, http.StatusNotFound, rec.Code)

	var resp ErrorResponse
	decode(t, rec, &resp)
	assert.Equal(t, "No house load data found. Please populate the database first.", resp.Message)
}

func TestGetPreview(t *testing.T) {
	router, _, repo := newTestRouter(t)
	repo.On("ListSolarArrays", mock.Anything, testUser).Return([]models.DeviceConfig{
		models.NewSolarDevice("dev-1", "Roof", 12, 0.4),
	}, nil)

	rec := doRequest(router, "/api/preview?start=2024-06-01T10:00:00Z&end=2024-06-01T13:00:00Z", testUser)
	require.Equal(t, http.StatusOK, rec.Code)

	var resp struct {
		Data services.PreviewResult `json:"data"`
	}
	decode(t, rec, &resp)
	assert.Len(t, resp.Data.Solar, 4)
	assert.Len(t, resp.Data.HouseLoad, 4)

	rec = doRequest(router, "/api/preview?start=yesterday&end=2024-06-01T13:00:00Z", testUser)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = doRequest(router, "/api/preview?start=2024-01-01T00:00:00Z&end=2024-06-01T00:00:00Z", testUser)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestGetLive(t *testing.T) {
	router, _, repo := newTestRouter(t)
	repo.On("ListSolarArrays", mock.Anything, testUser).Return([]models.DeviceConfig{
		models.NewSolarDevice("dev-1", "Roof", 12, 0.4),
	}, nil)

	rec := doRequest(router, "/api/live", testUser)
	require.Equal(t, http.StatusOK, rec.Code)

	var resp struct {
		Data services.LiveResult `json:"data"`
	}
	decode(t, rec, &resp)
	assert.Len(t, resp.Data.Snapshot.Solar, 1)
	assert.NotEmpty(t, resp.Data.Metrics.EnergyFlow)
}

func TestGetCharts(t *testing.T) {
	router, _, repo := newTestRouter(t)
	ts := time.Date(2024, 6, 1, 11, 0, 0, 0, time.UTC)
	repo.On("GetSolarSeries", mock.Anything, testUser, mock.Anything, mock.Anything).
		Return([]models.SeriesPoint{{Timestamp: ts, EnergyKWh: 1.5}}, nil)
	repo.On("GetHouseLoadSeries", mock.Anything, testUser, mock.Anything, mock.Anything).
		Return([]models.SeriesPoint{}, nil)

	rec := doRequest(router, "/api/charts", testUser)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, strings.HasPrefix(rec.Header().Get("Content-Type"), "text/html"))
	assert.Contains(t, rec.Body.String(), "Solar Generation")
}

func TestGetHouseLoadForecast(t *testing.T) {
	router, _, _ := newTestRouter(t)

	rec := doRequest(router, "/api/house-load-forecast?hours=6", testUser)
	require.Equal(t, http.StatusOK, rec.Code)

	var resp struct {
		Data []services.ForecastPoint `json:"data"`
	}
	decode(t, rec, &resp)
	require.Len(t, resp.Data, 6)
	assert.True(t, resp.Data[0].Timestamp.Equal(time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)))
	assert.Equal(t, generator.Weekend, resp.Data[0].DayType)
	assert.Positive(t, resp.Data[0].TypicalKWh)

	rec = doRequest(router, "/api/house-load-forecast", testUser)
	require.Equal(t, http.StatusOK, rec.Code)
	decode(t, rec, &resp)
	assert.Len(t, resp.Data, 24)

	rec = doRequest(router, "/api/house-load-forecast?hours=soon", testUser)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = doRequest(router, "/api/house-load-forecast?hours=500", testUser)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = doRequest(router, "/api/house-load-forecast", "")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestGetGridData(t *testing.T) {
	router, _, repo := newTestRouter(t)
	repo.On("GetGridData", mock.Anything, "US-TEST", mock.Anything, mock.Anything).Return([]models.GridDataRecord{
		{ID: "a", Zone: "US-TEST", GridCarbonIntensity: 180},
	}, nil)

	rec := doRequest(router, "/api/grid-data?zone=US-TEST", testUser)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"grid_carbon_intensity":180`)
}

func TestHealthCheck(t *testing.T) {
	router, _, repo := newTestRouter(t)
	repo.On("HealthCheck", mock.Anything).Return(nil).Once()
	repo.On("HealthCheck", mock.Anything).Return(errors.New("connection refused")).Once()

	rec := doRequest(router, "/health", "")
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = doRequest(router, "/health", "")
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}

func TestHandleServiceError_Conflict(t *testing.T) {
	_, h, _ := newTestRouter(t)
	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/api/populate-database?action=populate", nil)

	h.handleServiceError(rec, req, "[TEST] populate", models.ErrPopulationInProgress)
	assert.Equal(t, http.StatusConflict, rec.Code)
}
