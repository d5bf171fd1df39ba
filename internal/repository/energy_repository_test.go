package repository

import (
	"context"
	"errors"
	"os"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"energy-platform/internal/models"
	"energy-platform/migrations"
	"energy-platform/pkg/database"
	"energy-platform/pkg/logging"
	"energy-platform/pkg/metrics"
)

func TestCheckTable(t *testing.T) {
	assert.NoError(t, checkTable(models.TablePowerGeneration))
	assert.NoError(t, checkTable(models.TableHouseLoad))

	err := checkTable("devices; DROP TABLE devices")
	var vErr *models.ValidationError
	require.True(t, errors.As(err, &vErr))
	assert.Equal(t, "table", vErr.Field)
}

// newTestRepository connects to the database named by ENERGY_TEST_DATABASE_HOST
// and applies the schema. The test is skipped when the variable is unset.
func newTestRepository(t *testing.T) (EnergyRepository, *database.PostgresDB) {
	t.Helper()

	host := os.Getenv("ENERGY_TEST_DATABASE_HOST")
	if host == "" {
		t.Skip("ENERGY_TEST_DATABASE_HOST not set")
	}

	logger := logging.NewStructuredLogger("energy-test", "test", logging.ErrorLevel)
	collector := metrics.NewCollectorWithRegisterer("energy_test", prometheus.NewRegistry())

	cfg := &database.Config{
		Driver:       os.Getenv("ENERGY_TEST_DATABASE_DRIVER"),
		Host:         host,
		Port:         5432,
		User:         envOr("ENERGY_TEST_DATABASE_USER", "postgres"),
		Password:     envOr("ENERGY_TEST_DATABASE_PASSWORD", "postgres"),
		Database:     envOr("ENERGY_TEST_DATABASE_NAME", "energy_test"),
		SSLMode:      "disable",
		MaxOpenConns: 5,
		MaxIdleConns: 2,
	}

	db, err := database.NewPostgresDB(cfg, logger, collector)
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	schema, err := migrations.Files.ReadFile(migrations.Up)
	require.NoError(t, err)
	_, err = db.DB().Exec(string(schema))
	require.NoError(t, err)

	return NewEnergyRepository(db, logger, collector), db
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func TestEnergyRepository_Integration(t *testing.T) {
	repo, db := newTestRepository(t)
	ctx := context.Background()

	userID := uuid.NewString()
	configured := uuid.NewString()
	unconfigured := uuid.NewString()
	house := uuid.NewString()

	_, err := db.DB().Exec(`
		INSERT INTO devices (id, user_id, name, type) VALUES
			($1, $4, 'Roof', 'solar_array'),
			($2, $4, 'Shed', 'solar_array'),
			($3, $4, 'Home', 'house')
	`, configured, unconfigured, house, userID)
	require.NoError(t, err)
	_, err = db.DB().Exec(`INSERT INTO solar_config (device_id, panel_count, output_per_panel_kw) VALUES ($1, 12, 0.4)`, configured)
	require.NoError(t, err)

	t.Run("device registry", func(t *testing.T) {
		devices, err := repo.ListSolarArrays(ctx, userID)
		require.NoError(t, err)
		require.Len(t, devices, 2)

		valid := 0
		for _, d := range devices {
			if _, _, ok := d.ValidSolar(); ok {
				valid++
				assert.Equal(t, configured, d.ID)
			}
		}
		assert.Equal(t, 1, valid)

		hasHouse, err := repo.HasHouseDevice(ctx, userID)
		require.NoError(t, err)
		assert.True(t, hasHouse)

		users, err := repo.ListUsersWithActiveDevices(ctx)
		require.NoError(t, err)
		assert.Contains(t, users, userID)
	})

	t.Run("upsert is idempotent", func(t *testing.T) {
		start := time.Date(2024, 6, 1, 10, 0, 0, 0, time.UTC)
		var records []models.PowerGenerationRecord
		for i := 0; i < 4; i++ {
			records = append(records, models.PowerGenerationRecord{
				UserID:    userID,
				DeviceID:  configured,
				EnergyKWh: float64(i),
				Timestamp: start.Add(time.Duration(i) * time.Hour),
			})
		}

		require.NoError(t, repo.InsertPowerGeneration(ctx, records))
		require.NoError(t, repo.InsertPowerGeneration(ctx, records))

		count, err := repo.CountPoints(ctx, userID, models.TablePowerGeneration)
		require.NoError(t, err)
		assert.Equal(t, 4, count)

		latest, err := repo.LatestTimestamp(ctx, userID, models.TablePowerGeneration)
		require.NoError(t, err)
		require.NotNil(t, latest)
		assert.True(t, latest.Equal(start.Add(3*time.Hour)))

		dr, err := repo.DateRange(ctx, userID, models.TablePowerGeneration)
		require.NoError(t, err)
		require.NotNil(t, dr.Start)
		assert.True(t, dr.Start.Equal(start))

		series, err := repo.GetSolarSeries(ctx, userID, start, start.Add(3*time.Hour))
		require.NoError(t, err)
		assert.Len(t, series, 4)
	})

	t.Run("house load and clear", func(t *testing.T) {
		ts := time.Date(2024, 6, 1, 10, 0, 0, 0, time.UTC)
		rec := models.NewHouseLoadRecord(userID, models.HouseLoadDataPoint{Timestamp: ts, EnergyKWh: 2.5})
		require.NoError(t, repo.InsertHouseLoad(ctx, []models.HouseLoadRecord{rec}))

		series, err := repo.GetHouseLoadSeries(ctx, userID, ts, ts)
		require.NoError(t, err)
		require.Len(t, series, 1)
		assert.Equal(t, 2.5, series[0].EnergyKWh)

		res, err := repo.DeleteUserData(ctx, userID)
		require.NoError(t, err)
		assert.Equal(t, int64(4), res.PowerGeneration)
		assert.Equal(t, int64(1), res.HouseLoad)

		latest, err := repo.LatestTimestamp(ctx, userID, models.TableHouseLoad)
		require.NoError(t, err)
		assert.Nil(t, latest)
	})

	t.Run("grid data", func(t *testing.T) {
		zone := "TEST-" + uuid.NewString()[:8]
		ts := time.Date(2024, 6, 1, 10, 0, 0, 0, time.UTC)
		rec := models.GridDataRecord{
			ID:                  uuid.NewString(),
			Zone:                zone,
			Timestamp:           ts,
			GridCarbonIntensity: 210,
			UpdatedAt:           ts,
		}
		require.NoError(t, repo.InsertGridData(ctx, []models.GridDataRecord{rec}))

		records, err := repo.GetGridData(ctx, zone, ts.Add(-time.Hour), ts.Add(time.Hour))
		require.NoError(t, err)
		require.Len(t, records, 1)
		assert.Equal(t, 210, records[0].GridCarbonIntensity)
	})
}
