package generator

import (
	"math"
	"time"

	"energy-platform/internal/models"
)

const (
	// DefaultGridZone is the balancing authority used when none is given.
	DefaultGridZone = "US-CAL-CISO"

	// MinGridIntensity is the floor in gCO2eq/kWh.
	MinGridIntensity = 50

	gridWeekendFactor = 0.85
	gridVariation     = 15.0
)

// hourlyIntensity is the typical grid intensity (gCO2eq/kWh) for each hour.
// The afternoon dip follows midday solar on the grid.
var hourlyIntensity = [24]float64{
	152, 185, 218, 230, 237, 258,
	273, 284, 292, 282, 281, 286,
	284, 255, 161, 116, 110, 109,
	118, 118, 126, 130, 138, 144,
}

// GridIntensity returns the carbon intensity for zone in the hour containing t.
func (g *Generator) GridIntensity(t time.Time, zone string) models.GridIntensityPoint {
	if zone == "" {
		zone = DefaultGridZone
	}
	ts := TruncateHour(t, g.loc())
	local := ts.In(g.loc())

	intensity := hourlyIntensity[local.Hour()]
	if wd := local.Weekday(); wd == time.Saturday || wd == time.Sunday {
		intensity *= gridWeekendFactor
	}
	month0 := float64(local.Month() - 1)
	intensity *= 1 + 0.2*math.Sin((month0-5)*math.Pi/6)
	intensity += (Unit(hourKey(ts), SeedFor(zone)^saltGridVariation)*2 - 1) * gridVariation

	value := int(math.Round(intensity))
	if value < MinGridIntensity {
		value = MinGridIntensity
	}

	return models.GridIntensityPoint{
		Timestamp:           ts,
		Zone:                zone,
		GridCarbonIntensity: value,
	}
}

// HistoricalGridIntensity generates every hour in [start, end] for zone.
func (g *Generator) HistoricalGridIntensity(start, end time.Time, zone string) []models.GridIntensityPoint {
	hours := HourlyRange(start, end, g.loc())
	points := make([]models.GridIntensityPoint, 0, len(hours))
	for _, ts := range hours {
		points = append(points, g.GridIntensity(ts, zone))
	}
	return points
}
