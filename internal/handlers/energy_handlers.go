package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gorilla/mux"

	"energy-platform/internal/models"
	"energy-platform/internal/services"
	"energy-platform/pkg/logging"
	"energy-platform/pkg/metrics"
)

// Populate actions accepted by /api/populate-database
const (
	ActionPopulate = "populate"
	ActionClear    = "clear"
	ActionCount    = "count"
	ActionStatus   = "status"
)

// EnergyHandler handles energy API endpoints
type EnergyHandler struct {
	population *services.PopulationService
	energy     *services.EnergyService
	logger     *logging.StructuredLogger
	metrics    *metrics.Collector
	now        func() time.Time
}

// NewEnergyHandler creates a new energy handler
func NewEnergyHandler(
	population *services.PopulationService,
	energy *services.EnergyService,
	logger *logging.StructuredLogger,
	metricsCollector *metrics.Collector,
) *EnergyHandler {
	return &EnergyHandler{
		population: population,
		energy:     energy,
		logger:     logger,
		metrics:    metricsCollector,
		now:        time.Now,
	}
}

// ErrorResponse represents an API error response
type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message"`
	Code    int    `json:"code"`
}

// DataResponse wraps successful data payloads
type DataResponse struct {
	Success bool        `json:"success"`
	Data    interface{} `json:"data"`
}

// SolarChartPoint is one hour of summed generation for charts
type SolarChartPoint struct {
	Timestamp          time.Time `json:"timestamp"`
	TotalGenerationKWh float64   `json:"total_generation_kwh"`
	Hour               string    `json:"hour"`
}

// StatusResponse describes the populate API
type StatusResponse struct {
	Success bool              `json:"success"`
	Message string            `json:"message"`
	UserID  string            `json:"user_id"`
	Usage   map[string]string `json:"usage"`
}

// PopulateDatabase handles GET /api/populate-database
func (h *EnergyHandler) PopulateDatabase(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	user := userID(ctx)
	action := r.URL.Query().Get("action")
	force := r.URL.Query().Get("force") == "true"

	switch action {
	case ActionPopulate:
		result, err := h.population.Populate(ctx, user, force, h.now())
		if err != nil {
			h.handleServiceError(w, r, "[API_POPULATE_ERROR] Populate failed", err)
			return
		}
		h.sendJSON(w, result, http.StatusOK)

	case ActionClear:
		result, err := h.population.Clear(ctx, user)
		if err != nil {
			h.handleServiceError(w, r, "[API_CLEAR_ERROR] Clear failed", err)
			return
		}
		h.sendJSON(w, result, http.StatusOK)

	case ActionCount:
		count, err := h.population.Count(ctx, user)
		if err != nil {
			h.handleServiceError(w, r, "[API_COUNT_ERROR] Count failed", err)
			return
		}
		h.sendJSON(w, DataResponse{Success: true, Data: count}, http.StatusOK)

	default:
		h.sendJSON(w, StatusResponse{
			Success: true,
			Message: "Database population API is ready",
			UserID:  user,
			Usage: map[string]string{
				"populate":       "GET /api/populate-database?action=populate",
				"force_populate": "GET /api/populate-database?action=populate&force=true (regenerates full year)",
				"count":          "GET /api/populate-database?action=count (check data in database)",
				"clear":          "GET /api/populate-database?action=clear",
				"status":         "GET /api/populate-database (default)",
			},
		}, http.StatusOK)
	}
}

// GetSolarGeneration handles GET /api/solar-generation-data
func (h *EnergyHandler) GetSolarGeneration(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	tr := services.ParseTimeRange(r.URL.Query().Get("timeRange"))

	points, err := h.energy.SolarSeries(ctx, userID(ctx), tr, h.now())
	if err != nil {
		var nf *models.NotFoundError
		if errors.As(err, &nf) {
			h.sendError(w, "No solar generation data found. Please populate the database first.", http.StatusNotFound)
			return
		}
		h.handleServiceError(w, r, "[API_SOLAR_ERROR] Failed to fetch solar generation data", err)
		return
	}

	chart := make([]SolarChartPoint, 0, len(points))
	for _, p := range points {
		chart = append(chart, SolarChartPoint{Timestamp: p.Timestamp, TotalGenerationKWh: p.EnergyKWh, Hour: p.Hour})
	}

	h.sendJSON(w, DataResponse{Success: true, Data: chart}, http.StatusOK)
}

// GetHouseLoad handles GET /api/house-load-data
func (h *EnergyHandler) GetHouseLoad(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	tr := services.ParseTimeRange(r.URL.Query().Get("timeRange"))

	points, err := h.energy.HouseLoadSeries(ctx, userID(ctx), tr, h.now())
	if err != nil {
		var nf *models.NotFoundError
		if errors.As(err, &nf) {
			h.sendError(w, "No house load data found. Please populate the database first.", http.StatusNotFound)
			return
		}
		h.handleServiceError(w, r, "[API_HOUSE_LOAD_ERROR] Failed to fetch house load data", err)
		return
	}

	h.sendJSON(w, DataResponse{Success: true, Data: points}, http.StatusOK)
}

// GetLive handles GET /api/live
func (h *EnergyHandler) GetLive(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	live, err := h.energy.LiveSnapshot(ctx, userID(ctx), h.now())
	if err != nil {
		h.handleServiceError(w, r, "[API_LIVE_ERROR] Failed to build live snapshot", err)
		return
	}

	h.sendJSON(w, DataResponse{Success: true, Data: live}, http.StatusOK)
}

// GetPreview handles GET /api/preview?start=&end= (RFC3339)
func (h *EnergyHandler) GetPreview(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	start, err := time.Parse(time.RFC3339, r.URL.Query().Get("start"))
	if err != nil {
		h.sendError(w, "invalid start, expected RFC3339 timestamp", http.StatusBadRequest)
		return
	}
	end, err := time.Parse(time.RFC3339, r.URL.Query().Get("end"))
	if err != nil {
		h.sendError(w, "invalid end, expected RFC3339 timestamp", http.StatusBadRequest)
		return
	}

	preview, err := h.energy.Preview(ctx, userID(ctx), start, end)
	if err != nil {
		h.handleServiceError(w, r, "[API_PREVIEW_ERROR] Failed to generate preview", err)
		return
	}

	h.sendJSON(w, DataResponse{Success: true, Data: preview}, http.StatusOK)
}

// GetHouseLoadForecast handles GET /api/house-load-forecast?hours=
func (h *EnergyHandler) GetHouseLoadForecast(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	hours := 0
	if raw := r.URL.Query().Get("hours"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil {
			h.sendError(w, "invalid hours, expected an integer", http.StatusBadRequest)
			return
		}
		hours = n
	}

	forecast, err := h.energy.HouseLoadForecast(ctx, hours, h.now())
	if err != nil {
		h.handleServiceError(w, r, "[API_FORECAST_ERROR] Failed to generate house load forecast", err)
		return
	}

	h.sendJSON(w, DataResponse{Success: true, Data: forecast}, http.StatusOK)
}

// GetGridData handles GET /api/grid-data
func (h *EnergyHandler) GetGridData(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	zone := r.URL.Query().Get("zone")
	tr := services.ParseTimeRange(r.URL.Query().Get("timeRange"))

	records, err := h.energy.GridData(ctx, zone, tr, h.now())
	if err != nil {
		h.handleServiceError(w, r, "[API_GRID_ERROR] Failed to fetch grid data", err)
		return
	}

	h.sendJSON(w, DataResponse{Success: true, Data: records}, http.StatusOK)
}

// HealthCheck handles GET /health
func (h *EnergyHandler) HealthCheck(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	status := map[string]string{
		"status":    "healthy",
		"database":  "up",
		"timestamp": h.now().UTC().Format(time.RFC3339),
	}

	if err := h.energy.HealthCheck(ctx); err != nil {
		h.logger.Warn(ctx, "[HEALTH_CHECK] Database unreachable", logging.Fields{
			"error": err.Error(),
		})
		status["status"] = "degraded"
		status["database"] = "down"
		h.sendJSON(w, status, http.StatusServiceUnavailable)
		return
	}

	h.sendJSON(w, status, http.StatusOK)
}

// handleServiceError maps service errors onto HTTP statuses
func (h *EnergyHandler) handleServiceError(w http.ResponseWriter, r *http.Request, logMessage string, err error) {
	var vErr *models.ValidationError
	var nf *models.NotFoundError

	switch {
	case errors.Is(err, models.ErrPopulationInProgress):
		h.metrics.RecordAPIError("conflict", r.URL.Path)
		h.sendError(w, err.Error(), http.StatusConflict)
	case errors.As(err, &vErr):
		h.metrics.RecordAPIError("validation_error", r.URL.Path)
		h.sendError(w, vErr.Message, http.StatusBadRequest)
	case errors.As(err, &nf):
		h.sendError(w, nf.Error(), http.StatusNotFound)
	default:
		h.logger.Error(r.Context(), logMessage, logging.Fields{
			"path": r.URL.Path,
		}, err)
		h.metrics.RecordAPIError("internal_error", r.URL.Path)
		h.sendError(w, "internal server error", http.StatusInternalServerError)
	}
}

// sendJSON sends a JSON response
func (h *EnergyHandler) sendJSON(w http.ResponseWriter, data interface{}, statusCode int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	json.NewEncoder(w).Encode(data)
}

// sendError sends an error response
func (h *EnergyHandler) sendError(w http.ResponseWriter, message string, statusCode int) {
	response := ErrorResponse{
		Error:   http.StatusText(statusCode),
		Message: message,
		Code:    statusCode,
	}

	h.sendJSON(w, response, statusCode)
}

// RegisterRoutes registers all energy API routes. Documentation and health
// are public; everything else under /api requires X-User-ID.
func (h *EnergyHandler) RegisterRoutes(router *mux.Router) {
	router.HandleFunc("/health", h.HealthCheck).Methods("GET")
	router.HandleFunc("/api/docs", SwaggerUI).Methods("GET")
	router.HandleFunc("/api/docs/openapi.json", OpenAPISpec).Methods("GET")

	api := router.PathPrefix("/api").Subrouter()
	api.Use(h.requireUser)
	api.HandleFunc("/populate-database", h.PopulateDatabase).Methods("GET")
	api.HandleFunc("/solar-generation-data", h.GetSolarGeneration).Methods("GET")
	api.HandleFunc("/house-load-data", h.GetHouseLoad).Methods("GET")
	api.HandleFunc("/house-load-forecast", h.GetHouseLoadForecast).Methods("GET")
	api.HandleFunc("/live", h.GetLive).Methods("GET")
	api.HandleFunc("/preview", h.GetPreview).Methods("GET")
	api.HandleFunc("/charts", h.GetCharts).Methods("GET")
	api.HandleFunc("/grid-data", h.GetGridData).Methods("GET")
}
