package generator

import (
	"math"
	"sort"
	"time"

	"energy-platform/internal/models"
)

const (
	// DefaultLatitude is used when no site latitude is configured (San Francisco).
	DefaultLatitude = 37.7749

	// MinSinElevation gates the air-mass term near the horizon. Below it the
	// atmospheric transmittance is treated as zero. Tunable.
	MinSinElevation = 0.01

	atmosphericTransmittance = 0.7

	weatherBaseline   = 0.7
	weatherMin        = 0.1
	weatherMax        = 1.0
	weatherRandomSpan = 0.3
	weatherPhaseDays  = 365

	efficiencyBase     = 0.9
	efficiencyMin      = 0.85
	efficiencyMax      = 0.95
	efficiencyDustSpan = 0.02
)

// Generator produces synthetic solar, house-load and grid series for one site.
// It is stateless: every value is a pure function of its inputs.
type Generator struct {
	Latitude float64
	Location *time.Location
}

// New returns a Generator for the given latitude and local time zone.
// A nil location means UTC.
func New(latitude float64, loc *time.Location) *Generator {
	if loc == nil {
		loc = time.UTC
	}
	return &Generator{Latitude: latitude, Location: loc}
}

func (g *Generator) loc() *time.Location {
	if g.Location == nil {
		return time.UTC
	}
	return g.Location
}

// Irradiance returns the clear-sky solar intensity in [0, 1] at t.
// It is 0 whenever the sun is at or below the horizon.
func (g *Generator) Irradiance(t time.Time) float64 {
	local := t.In(g.loc())
	hour := float64(local.Hour()) + float64(local.Minute())/60
	dayOfYear := float64(local.YearDay())

	declination := radians(23.45 * math.Sin(radians(360*(284+dayOfYear)/365)))
	hourAngle := radians(15 * (hour - 12))
	lat := radians(g.Latitude)

	sinElevation := math.Sin(declination)*math.Sin(lat) +
		math.Cos(declination)*math.Cos(lat)*math.Cos(hourAngle)
	elevation := math.Asin(clamp(sinElevation, -1, 1))
	if elevation <= 0 {
		return 0
	}

	s := math.Sin(elevation)
	transmittance := 0.0
	if s > MinSinElevation {
		transmittance = math.Pow(atmosphericTransmittance, 1/s)
	}
	return clamp(s*transmittance, 0, 1)
}

// WeatherFactor returns the cloud-cover attenuation in [0.1, 1.0] at t.
// A slow multi-day persistence term is combined with a keyed hourly draw.
// seed shifts the persistence phase so different devices see different skies.
func (g *Generator) WeatherFactor(t time.Time, seed uint64) float64 {
	days := float64(t.Unix())/86400 + float64(seed%weatherPhaseDays)
	persistence := math.Sin(days*0.1)*0.3 + math.Cos(days*0.05)*0.2
	random := Unit(hourKey(t), seed^saltWeather) * weatherRandomSpan

	return clamp(weatherBaseline+persistence+random, weatherMin, weatherMax)
}

// EfficiencyFactor returns the panel efficiency in [0.85, 0.95] at t.
// Output drops through the hot midday hours and carries a small dust term.
func (g *Generator) EfficiencyFactor(t time.Time, seed uint64) float64 {
	hour := t.In(g.loc()).Hour()
	temperature := 1.0
	if hour >= 11 && hour <= 16 {
		temperature = 0.95 - float64(hour-11)/20
	}
	dust := (Unit(hourKey(t), seed^saltEfficiency) - 0.5) * efficiencyDustSpan

	return clamp(efficiencyBase+temperature*0.05+dust, efficiencyMin, efficiencyMax)
}

// SolarPoint computes one hour of generation for device. The timestamp is
// truncated to the hour. Devices without a usable solar configuration return
// a *models.ConfigurationError.
func (g *Generator) SolarPoint(device models.DeviceConfig, t time.Time) (models.SolarDataPoint, error) {
	panelCount, outputPerPanel, ok := device.ValidSolar()
	if !ok {
		return models.SolarDataPoint{}, &models.ConfigurationError{
			DeviceID: device.ID,
			Reason:   "panel_count and output_per_panel_kw must be set and positive",
		}
	}

	ts := TruncateHour(t, g.loc())
	seed := SeedFor(device.ID)

	irradiance := g.Irradiance(ts)
	weather := g.WeatherFactor(ts, seed)
	efficiency := g.EfficiencyFactor(ts, seed)

	perPanel := math.Max(0, irradiance*weather*efficiency*outputPerPanel)

	return models.SolarDataPoint{
		Timestamp:            ts,
		DeviceID:             device.ID,
		PanelCount:           panelCount,
		OutputPerPanelKW:     outputPerPanel,
		TotalGenerationKW:    perPanel * float64(panelCount),
		GenerationPerPanelKW: perPanel,
		Irradiance:           irradiance,
		WeatherFactor:        weather,
		EfficiencyFactor:     efficiency,
	}, nil
}

// LiveSolar returns one point per valid device for the hour containing now.
// Invalid devices are reported in skipped and left out of the points.
func (g *Generator) LiveSolar(devices []models.DeviceConfig, now time.Time) (points []models.SolarDataPoint, skipped []error) {
	return g.HistoricalSolar(devices, now, now)
}

// HistoricalSolar generates every hour in [start, end] for every valid device,
// device-major. An end before start yields no points.
func (g *Generator) HistoricalSolar(devices []models.DeviceConfig, start, end time.Time) (points []models.SolarDataPoint, skipped []error) {
	hours := HourlyRange(start, end, g.loc())

	for _, device := range devices {
		if _, _, ok := device.ValidSolar(); !ok {
			_, err := g.SolarPoint(device, start)
			skipped = append(skipped, err)
			continue
		}
		for _, ts := range hours {
			p, err := g.SolarPoint(device, ts)
			if err != nil {
				skipped = append(skipped, err)
				break
			}
			points = append(points, p)
		}
	}
	return points, skipped
}

// AggregatePoint is the summed generation of all devices for one hour
type AggregatePoint struct {
	Timestamp         time.Time `json:"timestamp"`
	TotalGenerationKW float64   `json:"total_generation_kw"`
	Devices           int       `json:"devices"`
}

// AggregateSolar sums points per timestamp, ordered by time.
func AggregateSolar(points []models.SolarDataPoint) []AggregatePoint {
	byHour := make(map[int64]*AggregatePoint)
	for _, p := range points {
		key := p.Timestamp.Unix()
		agg, ok := byHour[key]
		if !ok {
			agg = &AggregatePoint{Timestamp: p.Timestamp}
			byHour[key] = agg
		}
		agg.TotalGenerationKW += p.TotalGenerationKW
		agg.Devices++
	}

	out := make([]AggregatePoint, 0, len(byHour))
	for _, agg := range byHour {
		out = append(out, *agg)
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].Timestamp.Before(out[j].Timestamp)
	})
	return out
}

func radians(deg float64) float64 {
	return deg * math.Pi / 180
}

func clamp(v, lo, hi float64) float64 {
	return math.Max(lo, math.Min(hi, v))
}
