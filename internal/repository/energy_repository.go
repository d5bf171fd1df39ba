package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"energy-platform/internal/models"
	"energy-platform/pkg/database"
	"energy-platform/pkg/logging"
	"energy-platform/pkg/metrics"
)

// EnergyRepository provides data access for devices and generated series
type EnergyRepository interface {
	// Device registry
	ListSolarArrays(ctx context.Context, userID string) ([]models.DeviceConfig, error)
	HasHouseDevice(ctx context.Context, userID string) (bool, error)
	ListUsersWithActiveDevices(ctx context.Context) ([]string, error)

	// Series writes
	InsertPowerGeneration(ctx context.Context, records []models.PowerGenerationRecord) error
	InsertHouseLoad(ctx context.Context, records []models.HouseLoadRecord) error
	InsertGridData(ctx context.Context, records []models.GridDataRecord) error
	DeleteUserData(ctx context.Context, userID string) (*DeleteResult, error)

	// Series reads
	LatestTimestamp(ctx context.Context, userID, table string) (*time.Time, error)
	CountPoints(ctx context.Context, userID, table string) (int, error)
	DateRange(ctx context.Context, userID, table string) (models.DateRange, error)
	GetSolarSeries(ctx context.Context, userID string, start, end time.Time) ([]models.SeriesPoint, error)
	GetHouseLoadSeries(ctx context.Context, userID string, start, end time.Time) ([]models.SeriesPoint, error)
	GetGridData(ctx context.Context, zone string, start, end time.Time) ([]models.GridDataRecord, error)

	// Utility operations
	HealthCheck(ctx context.Context) error
}

// DeleteResult reports how many rows a clear removed per table
type DeleteResult struct {
	PowerGeneration int64 `json:"power_generation"`
	HouseLoad       int64 `json:"house_load"`
}

// energyRepository implements EnergyRepository
type energyRepository struct {
	db      *database.PostgresDB
	logger  *logging.StructuredLogger
	metrics *metrics.Collector
}

// NewEnergyRepository creates a new energy repository
func NewEnergyRepository(db *database.PostgresDB, logger *logging.StructuredLogger, metricsCollector *metrics.Collector) EnergyRepository {
	return &energyRepository{
		db:      db,
		logger:  logger,
		metrics: metricsCollector,
	}
}

// userTables are the per-user series tables. Table names are interpolated
// into SQL so only these are accepted.
var userTables = map[string]bool{
	models.TablePowerGeneration: true,
	models.TableHouseLoad:       true,
}

func checkTable(table string) error {
	if !userTables[table] {
		return &models.ValidationError{
			Field:   "table",
			Value:   table,
			Message: fmt.Sprintf("unknown series table %q", table),
		}
	}
	return nil
}

// solarArrayRow is the flat join of devices and solar_config
type solarArrayRow struct {
	ID               string   `db:"id"`
	Name             string   `db:"name"`
	Type             string   `db:"type"`
	IsActive         bool     `db:"is_active"`
	PanelCount       *int     `db:"panel_count"`
	OutputPerPanelKW *float64 `db:"output_per_panel_kw"`
}

// ListSolarArrays returns the user's active solar arrays with their
// configuration. A missing solar_config row yields nil config fields.
func (r *energyRepository) ListSolarArrays(ctx context.Context, userID string) ([]models.DeviceConfig, error) {
	query := `
		SELECT d.id, d.name, d.type, d.is_active,
		       sc.panel_count, sc.output_per_panel_kw
		FROM devices d
		LEFT JOIN solar_config sc ON sc.device_id = d.id
		WHERE d.user_id = $1 AND d.type = $2 AND d.is_active
		ORDER BY d.created_at, d.id
	`

	var rows []solarArrayRow
	if err := r.db.SelectContext(ctx, "list_solar_arrays", &rows, query, userID, models.DeviceTypeSolarArray); err != nil {
		return nil, &models.StoreError{Op: "list solar arrays", Err: err}
	}

	devices := make([]models.DeviceConfig, 0, len(rows))
	for _, row := range rows {
		devices = append(devices, models.DeviceConfig{
			ID:       row.ID,
			Name:     row.Name,
			Type:     row.Type,
			IsActive: row.IsActive,
			SolarConfig: models.SolarConfig{
				PanelCount:       row.PanelCount,
				OutputPerPanelKW: row.OutputPerPanelKW,
			},
		})
	}

	return devices, nil
}

// HasHouseDevice reports whether the user has an active house device
func (r *energyRepository) HasHouseDevice(ctx context.Context, userID string) (bool, error) {
	query := `
		SELECT EXISTS (
			SELECT 1 FROM devices
			WHERE user_id = $1 AND type = $2 AND is_active
		)
	`

	var exists bool
	if err := r.db.GetContext(ctx, "has_house_device", &exists, query, userID, models.DeviceTypeHouse); err != nil {
		return false, &models.StoreError{Op: "check house device", Err: err}
	}

	return exists, nil
}

// ListUsersWithActiveDevices returns every user owning at least one active
// solar array or house device
func (r *energyRepository) ListUsersWithActiveDevices(ctx context.Context) ([]string, error) {
	query := `
		SELECT DISTINCT user_id
		FROM devices
		WHERE is_active AND type IN ($1, $2)
		ORDER BY user_id
	`

	var users []string
	if err := r.db.SelectContext(ctx, "list_active_users", &users, query, models.DeviceTypeSolarArray, models.DeviceTypeHouse); err != nil {
		return nil, &models.StoreError{Op: "list active users", Err: err}
	}

	return users, nil
}

// InsertPowerGeneration upserts one batch of generation rows in a single
// transaction. Re-running a range replaces energy_kwh instead of duplicating.
func (r *energyRepository) InsertPowerGeneration(ctx context.Context, records []models.PowerGenerationRecord) error {
	query := `
		INSERT INTO power_generation (user_id, device_id, energy_kwh, timestamp)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (user_id, device_id, timestamp) DO UPDATE SET
			energy_kwh = EXCLUDED.energy_kwh
	`

	return r.execBatch(ctx, models.TablePowerGeneration, query, len(records), func(i int) []interface{} {
		rec := records[i]
		return []interface{}{rec.UserID, rec.DeviceID, rec.EnergyKWh, rec.Timestamp}
	})
}

// InsertHouseLoad upserts one batch of house load rows in a single transaction
func (r *energyRepository) InsertHouseLoad(ctx context.Context, records []models.HouseLoadRecord) error {
	query := `
		INSERT INTO house_load (user_id, energy_kwh, timestamp, resolution, hypothetical_co2_g)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (user_id, timestamp) DO UPDATE SET
			energy_kwh = EXCLUDED.energy_kwh,
			resolution = EXCLUDED.resolution,
			hypothetical_co2_g = EXCLUDED.hypothetical_co2_g
	`

	return r.execBatch(ctx, models.TableHouseLoad, query, len(records), func(i int) []interface{} {
		rec := records[i]
		return []interface{}{rec.UserID, rec.EnergyKWh, rec.Timestamp, rec.Resolution, rec.HypotheticalCO2G}
	})
}

// InsertGridData upserts one batch of grid intensity rows in a single transaction
func (r *energyRepository) InsertGridData(ctx context.Context, records []models.GridDataRecord) error {
	query := `
		INSERT INTO grid_data (id, zone, timestamp, grid_carbon_intensity, updated_at)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (zone, timestamp) DO UPDATE SET
			grid_carbon_intensity = EXCLUDED.grid_carbon_intensity,
			updated_at = EXCLUDED.updated_at
	`

	return r.execBatch(ctx, "grid_data", query, len(records), func(i int) []interface{} {
		rec := records[i]
		return []interface{}{rec.ID, rec.Zone, rec.Timestamp, rec.GridCarbonIntensity, rec.UpdatedAt}
	})
}

// execBatch runs query once per row inside one transaction with a prepared
// statement. Any failure rolls back the whole batch.
func (r *energyRepository) execBatch(ctx context.Context, table, query string, n int, args func(i int) []interface{}) error {
	if n == 0 {
		return nil
	}

	timer := time.Now()
	defer func() {
		duration := time.Since(timer)
		r.metrics.BackfillBatchSize.Observe(float64(n))
		r.metrics.DBQueryDuration.WithLabelValues("insert_" + table).Observe(duration.Seconds())
		r.logger.Debug(ctx, "[REPO_BATCH_INSERT] Batch insert completed", logging.Fields{
			"table":       table,
			"count":       n,
			"duration_ms": duration.Milliseconds(),
		})
	}()

	op := fmt.Sprintf("insert %s batch", table)

	// Begin transaction
	tx, err := r.db.BeginTx(ctx)
	if err != nil {
		return &models.StoreError{Op: op, Err: fmt.Errorf("failed to begin transaction: %w", err)}
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, query)
	if err != nil {
		return &models.StoreError{Op: op, Err: fmt.Errorf("failed to prepare statement: %w", err)}
	}
	defer stmt.Close()

	for i := 0; i < n; i++ {
		if _, err := stmt.ExecContext(ctx, args(i)...); err != nil {
			r.metrics.RecordDBError("batch_insert_error")
			return &models.StoreError{Op: op, Err: err}
		}
	}

	if err := tx.Commit(); err != nil {
		return &models.StoreError{Op: op, Err: fmt.Errorf("failed to commit transaction: %w", err)}
	}

	r.metrics.BackfillRecordsTotal.WithLabelValues(table).Add(float64(n))

	return nil
}

// DeleteUserData removes all generated series rows for a user in one
// transaction. Devices and their configuration are left alone.
func (r *energyRepository) DeleteUserData(ctx context.Context, userID string) (*DeleteResult, error) {
	tx, err := r.db.BeginTx(ctx)
	if err != nil {
		return nil, &models.StoreError{Op: "delete user data", Err: err}
	}
	defer tx.Rollback()

	res, err := r.db.ExecTx(ctx, tx, "delete_power_generation", `DELETE FROM power_generation WHERE user_id = $1`, userID)
	if err != nil {
		return nil, &models.StoreError{Op: "delete power_generation", Err: err}
	}
	generation, _ := res.RowsAffected()

	res, err = r.db.ExecTx(ctx, tx, "delete_house_load", `DELETE FROM house_load WHERE user_id = $1`, userID)
	if err != nil {
		return nil, &models.StoreError{Op: "delete house_load", Err: err}
	}
	houseLoad, _ := res.RowsAffected()

	if err := tx.Commit(); err != nil {
		return nil, &models.StoreError{Op: "delete user data", Err: err}
	}

	r.logger.Info(ctx, "[REPO_DELETE_USER_DATA] User series deleted", logging.Fields{
		"user_id":          userID,
		"power_generation": generation,
		"house_load":       houseLoad,
	})

	return &DeleteResult{PowerGeneration: generation, HouseLoad: houseLoad}, nil
}

// LatestTimestamp returns the newest stored timestamp for the user in table,
// or nil when the user has no rows there
func (r *energyRepository) LatestTimestamp(ctx context.Context, userID, table string) (*time.Time, error) {
	if err := checkTable(table); err != nil {
		return nil, err
	}

	query := fmt.Sprintf(`SELECT MAX(timestamp) FROM %s WHERE user_id = $1`, table)

	var latest sql.NullTime
	if err := r.db.GetContext(ctx, "latest_"+table, &latest, query, userID); err != nil {
		return nil, &models.StoreError{Op: "latest " + table, Err: err}
	}
	if !latest.Valid {
		return nil, nil
	}

	ts := latest.Time.UTC()
	return &ts, nil
}

// CountPoints returns the number of rows the user has in table
func (r *energyRepository) CountPoints(ctx context.Context, userID, table string) (int, error) {
	if err := checkTable(table); err != nil {
		return 0, err
	}

	query := fmt.Sprintf(`SELECT COUNT(*) FROM %s WHERE user_id = $1`, table)

	var count int
	if err := r.db.GetContext(ctx, "count_"+table, &count, query, userID); err != nil {
		return 0, &models.StoreError{Op: "count " + table, Err: err}
	}

	return count, nil
}

// DateRange returns the first and last timestamp the user has in table
func (r *energyRepository) DateRange(ctx context.Context, userID, table string) (models.DateRange, error) {
	if err := checkTable(table); err != nil {
		return models.DateRange{}, err
	}

	query := fmt.Sprintf(`
		SELECT MIN(timestamp) AS start_ts, MAX(timestamp) AS end_ts
		FROM %s
		WHERE user_id = $1
	`, table)

	var dr models.DateRange
	if err := r.db.GetContext(ctx, "date_range_"+table, &dr, query, userID); err != nil {
		return models.DateRange{}, &models.StoreError{Op: "date range " + table, Err: err}
	}

	return dr, nil
}

// GetSolarSeries returns generation summed across devices per timestamp
func (r *energyRepository) GetSolarSeries(ctx context.Context, userID string, start, end time.Time) ([]models.SeriesPoint, error) {
	query := `
		SELECT timestamp, SUM(energy_kwh) AS energy_kwh
		FROM power_generation
		WHERE user_id = $1 AND timestamp >= $2 AND timestamp <= $3
		GROUP BY timestamp
		ORDER BY timestamp
	`

	var points []models.SeriesPoint
	if err := r.db.SelectContext(ctx, "get_solar_series", &points, query, userID, start.UTC(), end.UTC()); err != nil {
		return nil, &models.StoreError{Op: "get solar series", Err: err}
	}

	return points, nil
}

// GetHouseLoadSeries returns house load in time order
func (r *energyRepository) GetHouseLoadSeries(ctx context.Context, userID string, start, end time.Time) ([]models.SeriesPoint, error) {
	query := `
		SELECT timestamp, energy_kwh
		FROM house_load
		WHERE user_id = $1 AND timestamp >= $2 AND timestamp <= $3
		ORDER BY timestamp
	`

	var points []models.SeriesPoint
	if err := r.db.SelectContext(ctx, "get_house_load_series", &points, query, userID, start.UTC(), end.UTC()); err != nil {
		return nil, &models.StoreError{Op: "get house load series", Err: err}
	}

	return points, nil
}

// GetGridData returns stored grid intensity for a zone in time order
func (r *energyRepository) GetGridData(ctx context.Context, zone string, start, end time.Time) ([]models.GridDataRecord, error) {
	query := `
		SELECT id, zone, timestamp, grid_carbon_intensity, updated_at
		FROM grid_data
		WHERE zone = $1 AND timestamp >= $2 AND timestamp <= $3
		ORDER BY timestamp
	`

	var records []models.GridDataRecord
	if err := r.db.SelectContext(ctx, "get_grid_data", &records, query, zone, start.UTC(), end.UTC()); err != nil {
		return nil, &models.StoreError{Op: "get grid data", Err: err}
	}

	return records, nil
}

// HealthCheck performs a repository health check
func (r *energyRepository) HealthCheck(ctx context.Context) error {
	return r.db.HealthCheck(ctx)
}
