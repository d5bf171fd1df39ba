package generator

import (
	"math"
	"time"

	"energy-platform/internal/models"
)

const (
	// MinHouseLoadKWh is the floor for any generated hour of consumption.
	MinHouseLoadKWh = 0.2

	// WeekendFactor scales Saturday and Sunday consumption.
	WeekendFactor = 1.2

	loadVariationSpan = 0.2
)

// baseLoadPattern is typical consumption (kWh) for each hour of the day:
// overnight trough, breakfast bump, flat daytime, evening peak.
var baseLoadPattern = [24]float64{
	0.8, 0.7, 0.6, 0.6, 0.7, 1.2,
	2.1, 3.2, 3.8, 2.9, 2.2, 2.0,
	2.1, 2.3, 2.2, 2.1, 2.0, 2.8,
	4.2, 4.8, 4.1, 3.2, 2.1, 1.4,
}

// seasonalFactors is indexed by month-1. Heating in winter, cooling in summer.
var seasonalFactors = [12]float64{1.4, 1.3, 1.1, 0.9, 0.8, 1.2, 1.5, 1.5, 1.2, 0.9, 1.1, 1.3}

// Appliance is a discrete consumer that can switch on for an hour
type Appliance struct {
	Name string  `json:"name"`
	KWh  float64 `json:"kwh"`
}

// Appliances is the fixed menu of occasional loads.
var Appliances = []Appliance{
	{Name: "dishwasher", KWh: 0.5},
	{Name: "washing_machine", KWh: 0.8},
	{Name: "dryer", KWh: 2.5},
	{Name: "microwave", KWh: 1.2},
	{Name: "coffee_maker", KWh: 0.3},
	{Name: "oven", KWh: 1.8},
	{Name: "vacuum", KWh: 0.4},
}

// DayType distinguishes weekdays from weekends
type DayType string

const (
	Weekday DayType = "weekday"
	Weekend DayType = "weekend"
)

// Season is a coarse meteorological season
type Season string

const (
	Spring Season = "spring"
	Summer Season = "summer"
	Fall   Season = "fall"
	Winter Season = "winter"
)

var typicalSeasonFactors = map[Season]float64{
	Spring: 0.9,
	Summer: 1.5,
	Fall:   1.0,
	Winter: 1.4,
}

// BaseLoad returns the typical consumption for hour of day. Hours outside
// 0-23 return 1.0.
func BaseLoad(hour int) float64 {
	if hour < 0 || hour >= len(baseLoadPattern) {
		return 1.0
	}
	return baseLoadPattern[hour]
}

// SeasonalFactor returns the consumption multiplier for month.
func SeasonalFactor(month time.Month) float64 {
	if month < time.January || month > time.December {
		return 1.0
	}
	return seasonalFactors[month-1]
}

// DayOfWeekFactor returns WeekendFactor on Saturday and Sunday, 1.0 otherwise.
func DayOfWeekFactor(day time.Weekday) float64 {
	if day == time.Saturday || day == time.Sunday {
		return WeekendFactor
	}
	return 1.0
}

// ApplianceProbability is the chance an appliance runs during hour.
func ApplianceProbability(hour int) float64 {
	switch {
	case hour >= 7 && hour <= 9:
		return 0.3
	case hour >= 18 && hour <= 21:
		return 0.4
	case hour >= 22 && hour <= 23:
		return 0.2
	default:
		return 0.1
	}
}

// ApplianceLoad returns the extra consumption from at most one appliance in
// the hour containing t. ok is false when nothing runs.
func (g *Generator) ApplianceLoad(t time.Time) (appliance Appliance, ok bool) {
	local := t.In(g.loc())
	key := hourKey(t)

	if Unit(key, saltApplianceTrigger) >= ApplianceProbability(local.Hour()) {
		return Appliance{}, false
	}

	idx := int(math.Floor(Unit(key, saltApplianceChoice) * float64(len(Appliances))))
	if idx >= len(Appliances) {
		idx = len(Appliances) - 1
	}
	return Appliances[idx], true
}

// HouseLoad computes whole-house consumption for the hour containing t.
func (g *Generator) HouseLoad(t time.Time) models.HouseLoadDataPoint {
	ts := TruncateHour(t, g.loc())
	local := ts.In(g.loc())

	base := BaseLoad(local.Hour())
	seasonal := SeasonalFactor(local.Month())
	activity := DayOfWeekFactor(local.Weekday())
	variation := (Unit(hourKey(ts), saltLoadVariation) - 0.5) * loadVariationSpan

	p := models.HouseLoadDataPoint{
		Timestamp:      ts,
		BaseLoadKWh:    base,
		SeasonalFactor: seasonal,
		ActivityFactor: activity,
	}
	if appliance, ok := g.ApplianceLoad(ts); ok {
		p.Appliance = appliance.Name
		p.ApplianceLoadKWh = appliance.KWh
	}

	p.EnergyKWh = math.Max(MinHouseLoadKWh, base*seasonal*activity*(1+variation)+p.ApplianceLoadKWh)
	return p
}

// HistoricalHouseLoad generates every hour in [start, end]. An end before
// start yields no points.
func (g *Generator) HistoricalHouseLoad(start, end time.Time) []models.HouseLoadDataPoint {
	hours := HourlyRange(start, end, g.loc())
	points := make([]models.HouseLoadDataPoint, 0, len(hours))
	for _, ts := range hours {
		points = append(points, g.HouseLoad(ts))
	}
	return points
}

// HouseLoadForecast returns hours consecutive points starting at the hour
// containing start. hours <= 0 means 24.
func (g *Generator) HouseLoadForecast(start time.Time, hours int) []models.HouseLoadDataPoint {
	if hours <= 0 {
		hours = 24
	}
	first := TruncateHour(start, g.loc())
	return g.HistoricalHouseLoad(first, first.Add(time.Duration(hours-1)*time.Hour))
}

// TypicalConsumption is the expected consumption for an hour without any
// random or appliance component.
func TypicalConsumption(hour int, dayType DayType, season Season) float64 {
	seasonal, ok := typicalSeasonFactors[season]
	if !ok {
		seasonal = 1.0
	}
	day := 1.0
	if dayType == Weekend {
		day = WeekendFactor
	}
	return BaseLoad(hour) * seasonal * day
}

// SeasonOf maps a month onto its meteorological season.
func SeasonOf(month time.Month) Season {
	switch month {
	case time.March, time.April, time.May:
		return Spring
	case time.June, time.July, time.August:
		return Summer
	case time.September, time.October, time.November:
		return Fall
	default:
		return Winter
	}
}
