package generator

import (
	"errors"
	"testing"
	"time"
	_ "time/tzdata"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"energy-platform/internal/models"
)

func testGenerator(t *testing.T) *Generator {
	t.Helper()
	loc, err := time.LoadLocation("America/Los_Angeles")
	require.NoError(t, err)
	return New(DefaultLatitude, loc)
}

func TestUnit_DeterministicAndBounded(t *testing.T) {
	for key := uint64(0); key < 5000; key++ {
		v := Unit(key, saltWeather)
		assert.GreaterOrEqual(t, v, 0.0)
		assert.Less(t, v, 1.0)
		assert.Equal(t, v, Unit(key, saltWeather))
	}
	assert.NotEqual(t, Unit(42, saltWeather), Unit(42, saltEfficiency))
	assert.Equal(t, SeedFor("device-1"), SeedFor("device-1"))
	assert.NotEqual(t, SeedFor("device-1"), SeedFor("device-2"))
}

func TestTruncateAndRoundHour(t *testing.T) {
	g := testGenerator(t)
	ts := time.Date(2024, 6, 1, 10, 29, 59, 0, g.Location)

	assert.True(t, TruncateHour(ts, g.Location).Equal(time.Date(2024, 6, 1, 10, 0, 0, 0, g.Location)))
	assert.True(t, RoundHour(ts, g.Location).Equal(time.Date(2024, 6, 1, 10, 0, 0, 0, g.Location)))
	assert.True(t, RoundHour(ts.Add(time.Second), g.Location).Equal(time.Date(2024, 6, 1, 11, 0, 0, 0, g.Location)))
}

func TestTruncateHour_FallBack(t *testing.T) {
	g := testGenerator(t)
	// 01:30 PST, the second 1 o'clock on the fall-back day
	ts := time.Date(2024, 11, 3, 9, 30, 0, 0, time.UTC)

	got := TruncateHour(ts, g.Location)
	assert.True(t, got.Equal(time.Date(2024, 11, 3, 9, 0, 0, 0, time.UTC)), "got %s", got.UTC())
}

func TestHourlyRange(t *testing.T) {
	g := testGenerator(t)

	t.Run("inclusive", func(t *testing.T) {
		start := time.Date(2024, 6, 1, 10, 0, 0, 0, g.Location)
		end := time.Date(2024, 6, 1, 13, 0, 0, 0, g.Location)
		hours := HourlyRange(start, end, g.Location)
		require.Len(t, hours, 4)
		assert.True(t, hours[0].Equal(start))
		assert.True(t, hours[3].Equal(end))
	})

	t.Run("inverted", func(t *testing.T) {
		start := time.Date(2024, 6, 1, 13, 0, 0, 0, g.Location)
		assert.Empty(t, HourlyRange(start, start.Add(-time.Hour), g.Location))
	})

	t.Run("across fall back", func(t *testing.T) {
		start := time.Date(2024, 11, 3, 7, 0, 0, 0, time.UTC)
		end := time.Date(2024, 11, 3, 11, 0, 0, 0, time.UTC)
		hours := HourlyRange(start, end, g.Location)
		assert.Len(t, hours, 5)
	})
}

func TestIrradiance(t *testing.T) {
	g := testGenerator(t)

	midnight := time.Date(2024, 6, 21, 0, 0, 0, 0, g.Location)
	assert.Equal(t, 0.0, g.Irradiance(midnight))

	summerNoon := g.Irradiance(time.Date(2024, 6, 21, 12, 0, 0, 0, g.Location))
	winterNoon := g.Irradiance(time.Date(2024, 12, 21, 12, 0, 0, 0, g.Location))
	assert.Greater(t, summerNoon, winterNoon)
	assert.Greater(t, winterNoon, 0.0)

	start := time.Date(2024, 1, 1, 0, 0, 0, 0, g.Location)
	for _, ts := range HourlyRange(start, start.AddDate(1, 0, 0), g.Location) {
		v := g.Irradiance(ts)
		require.GreaterOrEqual(t, v, 0.0)
		require.LessOrEqual(t, v, 1.0)
	}
}

func TestWeatherAndEfficiencyBounds(t *testing.T) {
	g := testGenerator(t)
	seed := SeedFor("device-1")
	start := time.Date(2024, 1, 1, 0, 0, 0, 0, g.Location)

	for _, ts := range HourlyRange(start, start.AddDate(1, 0, 0), g.Location) {
		w := g.WeatherFactor(ts, seed)
		require.GreaterOrEqual(t, w, 0.1)
		require.LessOrEqual(t, w, 1.0)

		e := g.EfficiencyFactor(ts, seed)
		require.GreaterOrEqual(t, e, 0.85)
		require.LessOrEqual(t, e, 0.95)
	}
}

func TestSolarPoint(t *testing.T) {
	g := testGenerator(t)
	noon := time.Date(2024, 6, 21, 12, 17, 0, 0, g.Location)

	t.Run("deterministic", func(t *testing.T) {
		device := models.NewSolarDevice("device-1", "Roof", 12, 0.4)
		a, err := g.SolarPoint(device, noon)
		require.NoError(t, err)
		b, err := g.SolarPoint(device, noon)
		require.NoError(t, err)
		assert.Equal(t, a, b)
		assert.True(t, a.Timestamp.Equal(TruncateHour(noon, g.Location)))
		assert.Greater(t, a.TotalGenerationKW, 0.0)
	})

	t.Run("night is zero", func(t *testing.T) {
		device := models.NewSolarDevice("device-1", "Roof", 12, 0.4)
		p, err := g.SolarPoint(device, time.Date(2024, 6, 21, 2, 0, 0, 0, g.Location))
		require.NoError(t, err)
		assert.Equal(t, 0.0, p.TotalGenerationKW)
		assert.Equal(t, 0.0, p.GenerationPerPanelKW)
	})

	t.Run("scales with panel count", func(t *testing.T) {
		single, err := g.SolarPoint(models.NewSolarDevice("device-1", "Roof", 10, 0.4), noon)
		require.NoError(t, err)
		double, err := g.SolarPoint(models.NewSolarDevice("device-1", "Roof", 20, 0.4), noon)
		require.NoError(t, err)
		assert.Equal(t, single.TotalGenerationKW*2, double.TotalGenerationKW)
		assert.Equal(t, single.GenerationPerPanelKW, double.GenerationPerPanelKW)
	})

	t.Run("invalid configuration", func(t *testing.T) {
		device := models.DeviceConfig{ID: "device-2", Type: models.DeviceTypeSolarArray, IsActive: true}
		_, err := g.SolarPoint(device, noon)
		var cfgErr *models.ConfigurationError
		require.True(t, errors.As(err, &cfgErr))
		assert.Equal(t, "device-2", cfgErr.DeviceID)
	})
}

func TestHistoricalSolar(t *testing.T) {
	g := testGenerator(t)
	start := time.Date(2024, 6, 1, 10, 0, 0, 0, g.Location)
	end := time.Date(2024, 6, 1, 13, 0, 0, 0, g.Location)

	devices := []models.DeviceConfig{
		models.NewSolarDevice("device-1", "Roof", 12, 0.4),
		{ID: "device-2", Type: models.DeviceTypeSolarArray, IsActive: true},
	}

	points, skipped := g.HistoricalSolar(devices, start, end)
	require.Len(t, points, 4)
	require.Len(t, skipped, 1)
	for i, p := range points {
		assert.Equal(t, "device-1", p.DeviceID)
		assert.True(t, p.Timestamp.Equal(start.Add(time.Duration(i)*time.Hour)))
	}

	points, _ = g.HistoricalSolar(devices, end, start)
	assert.Empty(t, points)
}

func TestAggregateSolar(t *testing.T) {
	g := testGenerator(t)
	start := time.Date(2024, 6, 1, 10, 0, 0, 0, g.Location)
	devices := []models.DeviceConfig{
		models.NewSolarDevice("device-1", "Roof", 12, 0.4),
		models.NewSolarDevice("device-2", "Garage", 6, 0.35),
	}

	points, _ := g.HistoricalSolar(devices, start, start.Add(2*time.Hour))
	require.Len(t, points, 6)

	agg := AggregateSolar(points)
	require.Len(t, agg, 3)
	for i, a := range agg {
		assert.Equal(t, 2, a.Devices)
		assert.InDelta(t, points[i].TotalGenerationKW+points[i+3].TotalGenerationKW, a.TotalGenerationKW, 1e-9)
	}
}

func TestHouseLoadFactors(t *testing.T) {
	assert.Equal(t, 4.8, BaseLoad(19))
	assert.Equal(t, 1.0, BaseLoad(24))

	for _, summer := range []time.Month{time.July, time.August} {
		for _, spring := range []time.Month{time.April, time.May} {
			assert.Greater(t, SeasonalFactor(summer), SeasonalFactor(spring))
		}
	}

	assert.Equal(t, 1.2*DayOfWeekFactor(time.Wednesday), DayOfWeekFactor(time.Saturday))
	assert.Equal(t, 1.2*DayOfWeekFactor(time.Monday), DayOfWeekFactor(time.Sunday))
	assert.InDelta(t, 4.8*1.5*1.2, TypicalConsumption(19, Weekend, Summer), 1e-9)
	assert.Equal(t, Fall, SeasonOf(time.October))
}

func TestHouseLoad(t *testing.T) {
	g := testGenerator(t)

	t.Run("floor and determinism", func(t *testing.T) {
		start := time.Date(2024, 1, 1, 0, 0, 0, 0, g.Location)
		for _, p := range g.HistoricalHouseLoad(start, start.AddDate(1, 0, 0)) {
			require.GreaterOrEqual(t, p.EnergyKWh, MinHouseLoadKWh)
			if p.Appliance == "" {
				require.Equal(t, 0.0, p.ApplianceLoadKWh)
			}
		}
		ts := time.Date(2024, 3, 14, 18, 45, 0, 0, g.Location)
		assert.Equal(t, g.HouseLoad(ts), g.HouseLoad(ts))
	})

	t.Run("summer above spring", func(t *testing.T) {
		mean := func(month time.Month) float64 {
			start := time.Date(2024, month, 1, 0, 0, 0, 0, g.Location)
			points := g.HistoricalHouseLoad(start, start.AddDate(0, 1, 0).Add(-time.Hour))
			var sum float64
			for _, p := range points {
				sum += p.EnergyKWh
			}
			return sum / float64(len(points))
		}
		assert.Greater(t, mean(time.July), mean(time.April))
	})
}

func TestHouseLoadForecast(t *testing.T) {
	g := testGenerator(t)
	start := time.Date(2024, 6, 1, 10, 20, 0, 0, g.Location)

	points := g.HouseLoadForecast(start, 0)
	require.Len(t, points, 24)
	assert.True(t, points[0].Timestamp.Equal(TruncateHour(start, g.Location)))
	for i := 1; i < len(points); i++ {
		assert.Equal(t, time.Hour, points[i].Timestamp.Sub(points[i-1].Timestamp))
	}

	assert.Len(t, g.HouseLoadForecast(start, 6), 6)
}

func TestGridIntensity(t *testing.T) {
	g := testGenerator(t)
	start := time.Date(2024, 1, 1, 0, 0, 0, 0, g.Location)

	points := g.HistoricalGridIntensity(start, start.AddDate(0, 0, 14), "")
	require.Len(t, points, 14*24+1)
	for _, p := range points {
		assert.Equal(t, DefaultGridZone, p.Zone)
		assert.GreaterOrEqual(t, p.GridCarbonIntensity, MinGridIntensity)
	}

	ts := time.Date(2024, 5, 2, 8, 0, 0, 0, g.Location)
	assert.Equal(t, g.GridIntensity(ts, "US-CAL-CISO"), g.GridIntensity(ts, "US-CAL-CISO"))
}

func TestMetrics(t *testing.T) {
	tests := []struct {
		name     string
		solar    []float64
		load     float64
		flow     string
		net      float64
		utilized float64
	}{
		{"exporting", []float64{3, 2}, 3, FlowExport, 2, 0.6},
		{"importing", nil, 2.5, FlowImport, 2.5, 0},
		{"balanced", []float64{2}, 2, FlowBalanced, 0, 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			snap := SystemSnapshot{HouseLoad: models.HouseLoadDataPoint{EnergyKWh: tt.load}}
			for _, kw := range tt.solar {
				snap.Solar = append(snap.Solar, models.SolarDataPoint{TotalGenerationKW: kw})
			}

			m := Metrics(snap)
			assert.Equal(t, tt.flow, m.EnergyFlow)
			assert.InDelta(t, tt.net, m.NetGeneration, 1e-9)
			assert.InDelta(t, tt.utilized, m.SolarUtilization, 1e-9)
			assert.Equal(t, tt.flow == FlowExport, m.IsExporting)
			assert.Equal(t, tt.flow == FlowImport, m.IsImporting)
		})
	}
}

func TestSnapshot(t *testing.T) {
	g := testGenerator(t)
	now := time.Date(2024, 6, 21, 12, 40, 0, 0, g.Location)
	devices := []models.DeviceConfig{
		models.NewSolarDevice("device-1", "Roof", 12, 0.4),
		{ID: "device-2", Type: models.DeviceTypeSolarArray, IsActive: true},
	}

	snap := g.Snapshot(devices, now)
	assert.True(t, snap.Timestamp.Equal(TruncateHour(now, g.Location)))
	assert.Len(t, snap.Solar, 1)
	assert.Len(t, snap.Skipped, 1)
	assert.True(t, snap.HouseLoad.Timestamp.Equal(snap.Timestamp))
}
