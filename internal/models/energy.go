package models

import (
	"time"
)

// Device types stored in devices.type
const (
	DeviceTypeSolarArray = "solar_array"
	DeviceTypeBattery    = "battery"
	DeviceTypeEV         = "ev"
	DeviceTypeGrid       = "grid"
	DeviceTypeHouse      = "house"
)

// Series tables written by the generator
const (
	TablePowerGeneration = "power_generation"
	TableHouseLoad       = "house_load"
)

// SolarConfig is the physical description of a solar array.
// Pointers distinguish a missing solar_config row from a zero value.
type SolarConfig struct {
	PanelCount       *int     `json:"panel_count" db:"panel_count"`
	OutputPerPanelKW *float64 `json:"output_per_panel_kw" db:"output_per_panel_kw"`
}

// DeviceConfig is a registered device as read from the device registry
type DeviceConfig struct {
	ID          string      `json:"id" db:"id"`
	Name        string      `json:"name" db:"name"`
	Type        string      `json:"type" db:"type"`
	IsActive    bool        `json:"is_active" db:"is_active"`
	SolarConfig SolarConfig `json:"solar_config" db:"-"`
}

// ValidSolar reports whether the device has a usable solar configuration
// and returns it. Non-positive panel count or per-panel output is invalid.
func (d DeviceConfig) ValidSolar() (panelCount int, outputPerPanelKW float64, ok bool) {
	if d.SolarConfig.PanelCount == nil || d.SolarConfig.OutputPerPanelKW == nil {
		return 0, 0, false
	}
	panelCount = *d.SolarConfig.PanelCount
	outputPerPanelKW = *d.SolarConfig.OutputPerPanelKW
	if panelCount <= 0 || outputPerPanelKW <= 0 {
		return 0, 0, false
	}
	return panelCount, outputPerPanelKW, true
}

// NewSolarDevice builds an active solar array device
func NewSolarDevice(id, name string, panelCount int, outputPerPanelKW float64) DeviceConfig {
	return DeviceConfig{
		ID:       id,
		Name:     name,
		Type:     DeviceTypeSolarArray,
		IsActive: true,
		SolarConfig: SolarConfig{
			PanelCount:       &panelCount,
			OutputPerPanelKW: &outputPerPanelKW,
		},
	}
}

// SolarDataPoint is one hour of generation for one device
type SolarDataPoint struct {
	Timestamp            time.Time `json:"timestamp"`
	DeviceID             string    `json:"device_id"`
	PanelCount           int       `json:"panel_count"`
	OutputPerPanelKW     float64   `json:"output_per_panel_kw"`
	TotalGenerationKW    float64   `json:"total_generation_kw"`
	GenerationPerPanelKW float64   `json:"generation_per_panel_kw"`
	Irradiance           float64   `json:"irradiance"`
	WeatherFactor        float64   `json:"weather_factor"`
	EfficiencyFactor     float64   `json:"efficiency_factor"`
}

// EnergyKWh projects the point onto the stored energy value. At one-hour
// resolution kW over the hour equals kWh.
func (p SolarDataPoint) EnergyKWh() float64 {
	if p.TotalGenerationKW < 0 {
		return 0
	}
	return p.TotalGenerationKW
}

// HouseLoadDataPoint is one hour of whole-house consumption
type HouseLoadDataPoint struct {
	Timestamp        time.Time `json:"timestamp"`
	EnergyKWh        float64   `json:"energy_kwh"`
	BaseLoadKWh      float64   `json:"base_load_kwh"`
	ApplianceLoadKWh float64   `json:"appliance_load_kwh"`
	Appliance        string    `json:"appliance,omitempty"`
	SeasonalFactor   float64   `json:"seasonal_factor"`
	ActivityFactor   float64   `json:"activity_factor"`
}

// GridIntensityPoint is one hour of grid carbon intensity for a zone
type GridIntensityPoint struct {
	Timestamp           time.Time `json:"timestamp"`
	Zone                string    `json:"zone"`
	GridCarbonIntensity int       `json:"grid_carbon_intensity"`
}

// PowerGenerationRecord is a row in power_generation
type PowerGenerationRecord struct {
	ID        int64     `json:"id" db:"id"`
	UserID    string    `json:"user_id" db:"user_id"`
	DeviceID  string    `json:"device_id" db:"device_id"`
	EnergyKWh float64   `json:"energy_kwh" db:"energy_kwh"`
	Timestamp time.Time `json:"timestamp" db:"timestamp"`
}

// HouseLoadRecord is a row in house_load
type HouseLoadRecord struct {
	ID               int64     `json:"id" db:"id"`
	UserID           string    `json:"user_id" db:"user_id"`
	EnergyKWh        float64   `json:"energy_kwh" db:"energy_kwh"`
	Timestamp        time.Time `json:"timestamp" db:"timestamp"`
	Resolution       string    `json:"resolution" db:"resolution"`
	HypotheticalCO2G float64   `json:"hypothetical_co2_g" db:"hypothetical_co2_g"`
}

// GridDataRecord is a row in grid_data
type GridDataRecord struct {
	ID                  string    `json:"id" db:"id"`
	Zone                string    `json:"zone" db:"zone"`
	Timestamp           time.Time `json:"timestamp" db:"timestamp"`
	GridCarbonIntensity int       `json:"grid_carbon_intensity" db:"grid_carbon_intensity"`
	UpdatedAt           time.Time `json:"updated_at" db:"updated_at"`
}

// GridCO2GramsPerKWh is the assumed grid emission factor for hypothetical_co2_g
const GridCO2GramsPerKWh = 400.0

// ResolutionHourly is the only resolution the generator writes
const ResolutionHourly = "1hr"

// NewPowerGenerationRecord maps a generated point onto a storage row
func NewPowerGenerationRecord(userID string, p SolarDataPoint) PowerGenerationRecord {
	return PowerGenerationRecord{
		UserID:    userID,
		DeviceID:  p.DeviceID,
		EnergyKWh: p.EnergyKWh(),
		Timestamp: p.Timestamp.UTC(),
	}
}

// NewHouseLoadRecord maps a generated point onto a storage row
func NewHouseLoadRecord(userID string, p HouseLoadDataPoint) HouseLoadRecord {
	return HouseLoadRecord{
		UserID:           userID,
		EnergyKWh:        p.EnergyKWh,
		Timestamp:        p.Timestamp.UTC(),
		Resolution:       ResolutionHourly,
		HypotheticalCO2G: p.EnergyKWh * GridCO2GramsPerKWh,
	}
}

// SeriesPoint is a chart-ready sample
type SeriesPoint struct {
	Timestamp time.Time `json:"timestamp" db:"timestamp"`
	EnergyKWh float64   `json:"energy_kwh" db:"energy_kwh"`
	Hour      string    `json:"hour"`
}

// DateRange is the first and last stored timestamp of a series
type DateRange struct {
	Start *time.Time `json:"start" db:"start_ts"`
	End   *time.Time `json:"end" db:"end_ts"`
}

// DataCount summarises what is stored for a user
type DataCount struct {
	SolarGenerationPoints int       `json:"solar_generation_points"`
	HouseLoadPoints       int       `json:"house_load_points"`
	SolarDateRange        DateRange `json:"solar_date_range"`
	HouseLoadDateRange    DateRange `json:"house_load_date_range"`
}
