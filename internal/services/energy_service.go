package services

import (
	"context"
	"fmt"
	"math"
	"strconv"
	"time"

	"energy-platform/internal/generator"
	"energy-platform/internal/models"
	"energy-platform/internal/repository"
	"energy-platform/pkg/logging"
	"energy-platform/pkg/metrics"
)

// TimeRange is a chart window ending now
type TimeRange string

const (
	Range24h TimeRange = "24h"
	Range7d  TimeRange = "7d"
	Range3m  TimeRange = "3m"
	Range1y  TimeRange = "1y"
)

// MaxForecastHours bounds the house load forecast horizon
const MaxForecastHours = 7 * 24

// MaxPreviewWindow bounds how much a preview may generate in one request
const MaxPreviewWindow = 31 * 24 * time.Hour

// ParseTimeRange maps a query value onto a TimeRange. Unknown or empty
// values fall back to 24h.
func ParseTimeRange(s string) TimeRange {
	switch TimeRange(s) {
	case Range7d, Range3m, Range1y:
		return TimeRange(s)
	default:
		return Range24h
	}
}

// Duration is the length of the window
func (r TimeRange) Duration() time.Duration {
	switch r {
	case Range7d:
		return 7 * 24 * time.Hour
	case Range3m:
		return 90 * 24 * time.Hour
	case Range1y:
		return 365 * 24 * time.Hour
	default:
		return 24 * time.Hour
	}
}

// EnergyService serves stored and freshly generated series
type EnergyService struct {
	repo    repository.EnergyRepository
	gen     *generator.Generator
	logger  *logging.StructuredLogger
	metrics *metrics.Collector
}

// LiveResult is the current-hour snapshot with its derived metrics
type LiveResult struct {
	Snapshot generator.SystemSnapshot `json:"snapshot"`
	Metrics  generator.SystemMetrics  `json:"metrics"`
}

// PreviewResult is generated data for a window without touching the store
type PreviewResult struct {
	Start     time.Time                   `json:"start"`
	End       time.Time                   `json:"end"`
	Solar     []generator.AggregatePoint  `json:"solar"`
	HouseLoad []models.HouseLoadDataPoint `json:"house_load"`
}

// ForecastPoint is a generated house load hour next to the typical
// consumption for the same hour, day type and season
type ForecastPoint struct {
	models.HouseLoadDataPoint
	Season     generator.Season  `json:"season"`
	DayType    generator.DayType `json:"day_type"`
	TypicalKWh float64           `json:"typical_kwh"`
}

// NewEnergyService creates a new energy service
func NewEnergyService(repo repository.EnergyRepository, gen *generator.Generator, logger *logging.StructuredLogger, metricsCollector *metrics.Collector) *EnergyService {
	return &EnergyService{
		repo:    repo,
		gen:     gen,
		logger:  logger,
		metrics: metricsCollector,
	}
}

// SolarSeries returns total generation per hour for the window ending at now.
// An empty window is a *models.NotFoundError.
func (s *EnergyService) SolarSeries(ctx context.Context, userID string, tr TimeRange, now time.Time) ([]models.SeriesPoint, error) {
	points, err := s.repo.GetSolarSeries(ctx, userID, now.Add(-tr.Duration()), now)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch solar series: %w", err)
	}
	if len(points) == 0 {
		return nil, &models.NotFoundError{Resource: "solar generation data", ID: userID}
	}
	return s.chartReady(points), nil
}

// HouseLoadSeries returns house load per hour for the window ending at now.
// An empty window is a *models.NotFoundError.
func (s *EnergyService) HouseLoadSeries(ctx context.Context, userID string, tr TimeRange, now time.Time) ([]models.SeriesPoint, error) {
	points, err := s.repo.GetHouseLoadSeries(ctx, userID, now.Add(-tr.Duration()), now)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch house load series: %w", err)
	}
	if len(points) == 0 {
		return nil, &models.NotFoundError{Resource: "house load data", ID: userID}
	}
	return s.chartReady(points), nil
}

// chartReady rounds energy to two decimals and labels each point with its
// local hour.
func (s *EnergyService) chartReady(points []models.SeriesPoint) []models.SeriesPoint {
	for i := range points {
		points[i].EnergyKWh = math.Round(points[i].EnergyKWh*100) / 100
		points[i].Hour = points[i].Timestamp.In(s.gen.Location).Format("15:04")
	}
	return points
}

// LiveSnapshot generates the current hour for the user's devices
func (s *EnergyService) LiveSnapshot(ctx context.Context, userID string, now time.Time) (*LiveResult, error) {
	devices, err := s.repo.ListSolarArrays(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list solar arrays: %w", err)
	}

	snap := s.gen.Snapshot(devices, now)
	s.metrics.SkippedDevicesTotal.Add(float64(len(snap.Skipped)))

	return &LiveResult{Snapshot: snap, Metrics: generator.Metrics(snap)}, nil
}

// Preview generates solar and house load for [start, end] without storing
// anything. An inverted window yields empty series.
func (s *EnergyService) Preview(ctx context.Context, userID string, start, end time.Time) (*PreviewResult, error) {
	if end.Sub(start) > MaxPreviewWindow {
		return nil, &models.ValidationError{
			Field:   "end",
			Value:   end.Format(time.RFC3339),
			Message: fmt.Sprintf("preview window may not exceed %s", MaxPreviewWindow),
		}
	}

	devices, err := s.repo.ListSolarArrays(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list solar arrays: %w", err)
	}

	solar, skipped := s.gen.HistoricalSolar(devices, start, end)
	if len(skipped) > 0 {
		s.logger.Debug(ctx, "[PREVIEW_SKIP_DEVICES] Devices without solar configuration skipped", logging.Fields{
			"skipped": len(skipped),
		})
	}

	result := &PreviewResult{
		Start:     start,
		End:       end,
		Solar:     generator.AggregateSolar(solar),
		HouseLoad: s.gen.HistoricalHouseLoad(start, end),
	}
	s.metrics.RecordGenerated("preview", len(solar)+len(result.HouseLoad))

	return result, nil
}

// HouseLoadForecast generates the next hours of house load starting at the
// hour containing now. hours <= 0 means 24.
func (s *EnergyService) HouseLoadForecast(ctx context.Context, hours int, now time.Time) ([]ForecastPoint, error) {
	if hours > MaxForecastHours {
		return nil, &models.ValidationError{
			Field:   "hours",
			Value:   strconv.Itoa(hours),
			Message: fmt.Sprintf("forecast may not exceed %d hours", MaxForecastHours),
		}
	}

	points := s.gen.HouseLoadForecast(now, hours)
	forecast := make([]ForecastPoint, 0, len(points))
	for _, p := range points {
		local := p.Timestamp.In(s.gen.Location)
		dayType := generator.Weekday
		if wd := local.Weekday(); wd == time.Saturday || wd == time.Sunday {
			dayType = generator.Weekend
		}
		season := generator.SeasonOf(local.Month())

		forecast = append(forecast, ForecastPoint{
			HouseLoadDataPoint: p,
			Season:             season,
			DayType:            dayType,
			TypicalKWh:         math.Round(generator.TypicalConsumption(local.Hour(), dayType, season)*100) / 100,
		})
	}
	s.metrics.RecordGenerated("forecast", len(forecast))

	s.logger.Debug(ctx, "[FORECAST_GENERATED] House load forecast generated", logging.Fields{
		"hours": len(forecast),
	})

	return forecast, nil
}

// GridData returns stored carbon intensity for zone over the window ending at now
func (s *EnergyService) GridData(ctx context.Context, zone string, tr TimeRange, now time.Time) ([]models.GridDataRecord, error) {
	if zone == "" {
		zone = generator.DefaultGridZone
	}

	records, err := s.repo.GetGridData(ctx, zone, now.Add(-tr.Duration()), now)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch grid data: %w", err)
	}
	if records == nil {
		records = []models.GridDataRecord{}
	}

	return records, nil
}

// HealthCheck reports whether the store is reachable
func (s *EnergyService) HealthCheck(ctx context.Context) error {
	return s.repo.HealthCheck(ctx)
}
