// Package repositorymock provides a testify mock of repository.EnergyRepository.
package repositorymock

import (
	"context"
	"time"

	"github.com/stretchr/testify/mock"

	"energy-platform/internal/models"
	"energy-platform/internal/repository"
)

// EnergyRepository is a mock implementation of repository.EnergyRepository
type EnergyRepository struct {
	mock.Mock
}

var _ repository.EnergyRepository = (*EnergyRepository)(nil)

func (m *EnergyRepository) ListSolarArrays(ctx context.Context, userID string) ([]models.DeviceConfig, error) {
	args := m.Called(ctx, userID)
	devices, _ := args.Get(0).([]models.DeviceConfig)
	return devices, args.Error(1)
}

func (m *EnergyRepository) HasHouseDevice(ctx context.Context, userID string) (bool, error) {
	args := m.Called(ctx, userID)
	return args.Bool(0), args.Error(1)
}

func (m *EnergyRepository) ListUsersWithActiveDevices(ctx context.Context) ([]string, error) {
	args := m.Called(ctx)
	users, _ := args.Get(0).([]string)
	return users, args.Error(1)
}

func (m *EnergyRepository) InsertPowerGeneration(ctx context.Context, records []models.PowerGenerationRecord) error {
	return m.Called(ctx, records).Error(0)
}

func (m *EnergyRepository) InsertHouseLoad(ctx context.Context, records []models.HouseLoadRecord) error {
	return m.Called(ctx, records).Error(0)
}

func (m *EnergyRepository) InsertGridData(ctx context.Context, records []models.GridDataRecord) error {
	return m.Called(ctx, records).Error(0)
}

func (m *EnergyRepository) DeleteUserData(ctx context.Context, userID string) (*repository.DeleteResult, error) {
	args := m.Called(ctx, userID)
	res, _ := args.Get(0).(*repository.DeleteResult)
	return res, args.Error(1)
}

func (m *EnergyRepository) LatestTimestamp(ctx context.Context, userID, table string) (*time.Time, error) {
	args := m.Called(ctx, userID, table)
	ts, _ := args.Get(0).(*time.Time)
	return ts, args.Error(1)
}

func (m *EnergyRepository) CountPoints(ctx context.Context, userID, table string) (int, error) {
	args := m.Called(ctx, userID, table)
	return args.Int(0), args.Error(1)
}

func (m *EnergyRepository) DateRange(ctx context.Context, userID, table string) (models.DateRange, error) {
	args := m.Called(ctx, userID, table)
	dr, _ := args.Get(0).(models.DateRange)
	return dr, args.Error(1)
}

func (m *EnergyRepository) GetSolarSeries(ctx context.Context, userID string, start, end time.Time) ([]models.SeriesPoint, error) {
	args := m.Called(ctx, userID, start, end)
	points, _ := args.Get(0).([]models.SeriesPoint)
	return points, args.Error(1)
}

func (m *EnergyRepository) GetHouseLoadSeries(ctx context.Context, userID string, start, end time.Time) ([]models.SeriesPoint, error) {
	args := m.Called(ctx, userID, start, end)
	points, _ := args.Get(0).([]models.SeriesPoint)
	return points, args.Error(1)
}

func (m *EnergyRepository) GetGridData(ctx context.Context, zone string, start, end time.Time) ([]models.GridDataRecord, error) {
	args := m.Called(ctx, zone, start, end)
	records, _ := args.Get(0).([]models.GridDataRecord)
	return records, args.Error(1)
}

func (m *EnergyRepository) HealthCheck(ctx context.Context) error {
	return m.Called(ctx).Error(0)
}
