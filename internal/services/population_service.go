package services

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"energy-platform/internal/generator"
	"energy-platform/internal/models"
	"energy-platform/internal/repository"
	"energy-platform/pkg/logging"
	"energy-platform/pkg/metrics"
)

// DefaultBatchSize is the number of rows written per insert transaction
const DefaultBatchSize = 100

// DefaultGridDays is how far back PopulateGridData reaches when days <= 0
const DefaultGridDays = 7

// User-facing result messages
const (
	MessageNoDevices            = "No devices configured. Please add devices in settings before populating data."
	MessagePopulatedFull        = "Database populated successfully (full historical data regenerated)"
	MessagePopulatedIncremental = "Database populated successfully (only new data added)"
	MessageCleared              = "User time series data cleared"
)

// PopulationService backfills generated series into the store
type PopulationService struct {
	repo      repository.EnergyRepository
	gen       *generator.Generator
	logger    *logging.StructuredLogger
	metrics   *metrics.Collector
	batchSize int

	mu       sync.Mutex
	inFlight map[string]struct{}
}

// SeriesResult describes what a populate wrote for one series
type SeriesResult struct {
	Start    *time.Time `json:"start,omitempty"`
	End      *time.Time `json:"end,omitempty"`
	Points   int        `json:"points"`
	Batches  int        `json:"batches"`
	UpToDate bool       `json:"up_to_date"`
}

// PopulateResult contains populate statistics
type PopulateResult struct {
	Success        bool          `json:"success"`
	Message        string        `json:"message"`
	Force          bool          `json:"force"`
	Solar          *SeriesResult `json:"solar,omitempty"`
	HouseLoad      *SeriesResult `json:"house_load,omitempty"`
	SkippedDevices []string      `json:"skipped_devices,omitempty"`
	Duration       time.Duration `json:"-"`
}

// ClearResult reports a clear
type ClearResult struct {
	Success bool                     `json:"success"`
	Message string                   `json:"message"`
	Deleted *repository.DeleteResult `json:"deleted,omitempty"`
}

// PopulateAllResult summarises a scheduled run across users
type PopulateAllResult struct {
	Users     int           `json:"users"`
	Succeeded int           `json:"succeeded"`
	Skipped   int           `json:"skipped"`
	Failed    int           `json:"failed"`
	Duration  time.Duration `json:"-"`
}

// NewPopulationService creates a new population service. batchSize <= 0 uses DefaultBatchSize.
func NewPopulationService(repo repository.EnergyRepository, gen *generator.Generator, logger *logging.StructuredLogger, metricsCollector *metrics.Collector, batchSize int) *PopulationService {
	if batchSize <= 0 {
		batchSize = DefaultBatchSize
	}
	return &PopulationService{
		repo:      repo,
		gen:       gen,
		logger:    logger,
		metrics:   metricsCollector,
		batchSize: batchSize,
		inFlight:  make(map[string]struct{}),
	}
}

// lock marks userID busy. It returns false when a populate or clear is
// already running for that user.
func (s *PopulationService) lock(userID string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, busy := s.inFlight[userID]; busy {
		return false
	}
	s.inFlight[userID] = struct{}{}
	return true
}

func (s *PopulationService) unlock(userID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.inFlight, userID)
}

// Populate generates and stores every missing hour for the user's solar
// arrays and house load up to now rounded to the hour. With force the full
// year is regenerated; upserts replace existing rows.
func (s *PopulationService) Populate(ctx context.Context, userID string, force bool, now time.Time) (*PopulateResult, error) {
	if !s.lock(userID) {
		s.metrics.RecordBackfillError("in_progress")
		return nil, models.ErrPopulationInProgress
	}
	defer s.unlock(userID)

	timer := s.metrics.NewTimer(s.metrics.BackfillDuration)
	s.metrics.BackfillsInProgress.Inc()
	defer s.metrics.BackfillsInProgress.Dec()

	ctx = logging.WithUserID(ctx, userID)
	runLog := s.logger.WithFields(logging.Fields{"force": force})
	runLog.Info(ctx, "[POPULATE_START] Starting database population", logging.Fields{
		"batch_size": s.batchSize,
		"stage":      "INITIALIZATION",
	})

	devices, err := s.repo.ListSolarArrays(ctx, userID)
	if err != nil {
		s.metrics.RecordBackfillError("device_discovery")
		return nil, fmt.Errorf("failed to list solar arrays: %w", err)
	}
	hasHouse, err := s.repo.HasHouseDevice(ctx, userID)
	if err != nil {
		s.metrics.RecordBackfillError("device_discovery")
		return nil, fmt.Errorf("failed to check house device: %w", err)
	}

	result := &PopulateResult{Force: force}
	valid := s.validSolarArrays(ctx, devices, result)

	runLog.Info(ctx, "[POPULATE_DEVICES] Devices discovered", logging.Fields{
		"solar_arrays":    len(valid),
		"skipped_devices": len(result.SkippedDevices),
		"house_device":    hasHouse,
		"stage":           "DEVICE_DISCOVERY",
	})

	if len(valid) == 0 && !hasHouse {
		result.Message = MessageNoDevices
		return result, nil
	}

	end := generator.RoundHour(now, s.gen.Location)
	defaultStart := generator.OneYearBefore(end, s.gen.Location)

	if len(valid) > 0 {
		start, err := s.resolveStart(ctx, userID, models.TablePowerGeneration, force, defaultStart)
		if err != nil {
			return nil, err
		}
		result.Solar = &SeriesResult{UpToDate: start.After(end)}
		if !result.Solar.UpToDate {
			points, _ := s.gen.HistoricalSolar(valid, start, end)
			s.metrics.RecordGenerated("solar", len(points))

			records := make([]models.PowerGenerationRecord, 0, len(points))
			for _, p := range points {
				records = append(records, models.NewPowerGenerationRecord(userID, p))
			}

			batches, err := writeInBatches(ctx, records, s.batchSize, s.repo.InsertPowerGeneration)
			result.Solar.Batches = batches
			if err != nil {
				s.metrics.RecordBackfillError("solar_batch")
				return nil, fmt.Errorf("failed to write solar generation: %w", err)
			}
			result.Solar.Start, result.Solar.End = &start, &end
			result.Solar.Points = len(records)
		}
	}

	if hasHouse {
		start, err := s.resolveStart(ctx, userID, models.TableHouseLoad, force, defaultStart)
		if err != nil {
			return nil, err
		}
		result.HouseLoad = &SeriesResult{UpToDate: start.After(end)}
		if !result.HouseLoad.UpToDate {
			points := s.gen.HistoricalHouseLoad(start, end)
			s.metrics.RecordGenerated("house_load", len(points))

			records := make([]models.HouseLoadRecord, 0, len(points))
			for _, p := range points {
				records = append(records, models.NewHouseLoadRecord(userID, p))
			}

			batches, err := writeInBatches(ctx, records, s.batchSize, s.repo.InsertHouseLoad)
			result.HouseLoad.Batches = batches
			if err != nil {
				s.metrics.RecordBackfillError("house_load_batch")
				return nil, fmt.Errorf("failed to write house load: %w", err)
			}
			result.HouseLoad.Start, result.HouseLoad.End = &start, &end
			result.HouseLoad.Points = len(records)
		}
	}

	result.Success = true
	result.Message = MessagePopulatedIncremental
	if force {
		result.Message = MessagePopulatedFull
	}
	result.Duration = timer.ObserveDuration()

	fields := logging.Fields{
		"duration_seconds": result.Duration.Seconds(),
		"stage":            "COMPLETE",
	}
	if result.Solar != nil {
		fields["solar_points"] = result.Solar.Points
	}
	if result.HouseLoad != nil {
		fields["house_load_points"] = result.HouseLoad.Points
	}
	runLog.Info(ctx, "[POPULATE_COMPLETE] Database population completed", fields)

	return result, nil
}

// validSolarArrays drops devices without usable solar configuration and
// records them on result.
func (s *PopulationService) validSolarArrays(ctx context.Context, devices []models.DeviceConfig, result *PopulateResult) []models.DeviceConfig {
	valid := make([]models.DeviceConfig, 0, len(devices))
	for _, d := range devices {
		if _, _, ok := d.ValidSolar(); !ok {
			s.metrics.SkippedDevicesTotal.Inc()
			s.logger.Warn(ctx, "[POPULATE_SKIP_DEVICE] Solar array has no valid configuration", logging.Fields{
				"device_id":   d.ID,
				"device_name": d.Name,
			})
			result.SkippedDevices = append(result.SkippedDevices, d.ID)
			continue
		}
		valid = append(valid, d)
	}
	return valid
}

// resolveStart returns the first hour to generate for table: one hour past
// the stored watermark, or defaultStart with force or no stored rows.
func (s *PopulationService) resolveStart(ctx context.Context, userID, table string, force bool, defaultStart time.Time) (time.Time, error) {
	if force {
		return defaultStart, nil
	}

	latest, err := s.repo.LatestTimestamp(ctx, userID, table)
	if err != nil {
		s.metrics.RecordBackfillError("watermark")
		return time.Time{}, fmt.Errorf("failed to read %s watermark: %w", table, err)
	}
	if latest == nil {
		return defaultStart, nil
	}

	return generator.TruncateHour(*latest, s.gen.Location).Add(time.Hour), nil
}

// writeInBatches hands records to insert in chunks of size, stopping at the
// first failed batch. It returns the number of batches attempted.
func writeInBatches[T any](ctx context.Context, records []T, size int, insert func(context.Context, []T) error) (int, error) {
	batches := 0
	for start := 0; start < len(records); start += size {
		if err := ctx.Err(); err != nil {
			return batches, err
		}
		end := start + size
		if end > len(records) {
			end = len(records)
		}
		batches++
		if err := insert(ctx, records[start:end]); err != nil {
			return batches, fmt.Errorf("batch %d (rows %d-%d): %w", batches, start, end-1, err)
		}
	}
	return batches, nil
}

// Clear deletes every generated series row for the user
func (s *PopulationService) Clear(ctx context.Context, userID string) (*ClearResult, error) {
	if !s.lock(userID) {
		return nil, models.ErrPopulationInProgress
	}
	defer s.unlock(userID)

	deleted, err := s.repo.DeleteUserData(logging.WithUserID(ctx, userID), userID)
	if err != nil {
		return nil, fmt.Errorf("failed to clear user data: %w", err)
	}

	return &ClearResult{Success: true, Message: MessageCleared, Deleted: deleted}, nil
}

// Count reports stored point counts and date ranges for both series
func (s *PopulationService) Count(ctx context.Context, userID string) (*models.DataCount, error) {
	var count models.DataCount

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		n, err := s.repo.CountPoints(gctx, userID, models.TablePowerGeneration)
		count.SolarGenerationPoints = n
		return err
	})
	g.Go(func() error {
		n, err := s.repo.CountPoints(gctx, userID, models.TableHouseLoad)
		count.HouseLoadPoints = n
		return err
	})
	g.Go(func() error {
		dr, err := s.repo.DateRange(gctx, userID, models.TablePowerGeneration)
		count.SolarDateRange = dr
		return err
	})
	g.Go(func() error {
		dr, err := s.repo.DateRange(gctx, userID, models.TableHouseLoad)
		count.HouseLoadDateRange = dr
		return err
	})

	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("failed to count user data: %w", err)
	}

	return &count, nil
}

// PopulateAll runs an incremental populate for every user with active
// devices. A failing user is logged and the run continues.
func (s *PopulationService) PopulateAll(ctx context.Context, now time.Time) (*PopulateAllResult, error) {
	startTime := time.Now()

	users, err := s.repo.ListUsersWithActiveDevices(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list users: %w", err)
	}

	summary := &PopulateAllResult{Users: len(users)}
	for _, userID := range users {
		if err := ctx.Err(); err != nil {
			return summary, err
		}

		_, err := s.Populate(ctx, userID, false, now)
		switch {
		case errors.Is(err, models.ErrPopulationInProgress):
			summary.Skipped++
		case err != nil:
			summary.Failed++
			s.logger.Error(ctx, "[POPULATE_ALL_USER_ERROR] Populate failed for user", logging.Fields{
				"user_id": userID,
			}, err)
		default:
			summary.Succeeded++
		}
	}

	summary.Duration = time.Since(startTime)
	s.logger.Info(ctx, "[POPULATE_ALL_COMPLETE] Scheduled population completed", logging.Fields{
		"users":            summary.Users,
		"succeeded":        summary.Succeeded,
		"skipped":          summary.Skipped,
		"failed":           summary.Failed,
		"duration_seconds": summary.Duration.Seconds(),
	})

	return summary, nil
}

// PopulateGridData writes hourly carbon intensity for zone covering the last
// days days up to now. Row ids are derived from zone and hour so reruns upsert.
func (s *PopulationService) PopulateGridData(ctx context.Context, zone string, days int, now time.Time) (int, error) {
	if zone == "" {
		zone = generator.DefaultGridZone
	}
	if days <= 0 {
		days = DefaultGridDays
	}

	end := generator.RoundHour(now, s.gen.Location)
	points := s.gen.HistoricalGridIntensity(end.AddDate(0, 0, -days), end, zone)
	s.metrics.RecordGenerated("grid_intensity", len(points))

	updatedAt := now.UTC()
	records := make([]models.GridDataRecord, 0, len(points))
	for _, p := range points {
		records = append(records, models.GridDataRecord{
			ID:                  GridRecordID(p.Zone, p.Timestamp),
			Zone:                p.Zone,
			Timestamp:           p.Timestamp.UTC(),
			GridCarbonIntensity: p.GridCarbonIntensity,
			UpdatedAt:           updatedAt,
		})
	}

	if _, err := writeInBatches(ctx, records, s.batchSize, s.repo.InsertGridData); err != nil {
		s.metrics.RecordBackfillError("grid_batch")
		return 0, fmt.Errorf("failed to write grid data: %w", err)
	}

	s.logger.Info(ctx, "[POPULATE_GRID_COMPLETE] Grid intensity populated", logging.Fields{
		"zone":   zone,
		"days":   days,
		"points": len(records),
	})

	return len(records), nil
}

// GridRecordID is the stable row id for a zone and hour
func GridRecordID(zone string, ts time.Time) string {
	return uuid.NewSHA1(uuid.NameSpaceOID, []byte(zone+"|"+ts.UTC().Format(time.RFC3339))).String()
}
