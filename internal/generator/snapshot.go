package generator

import (
	"math"
	"time"

	"energy-platform/internal/models"
)

// Energy flow directions reported by Metrics
const (
	FlowExport   = "export"
	FlowImport   = "import"
	FlowBalanced = "balanced"
)

// SystemSnapshot is the state of every device for one hour
type SystemSnapshot struct {
	Timestamp time.Time                 `json:"timestamp"`
	Solar     []models.SolarDataPoint   `json:"solar"`
	HouseLoad models.HouseLoadDataPoint `json:"house_load"`
	Skipped   []string                  `json:"skipped_devices,omitempty"`
}

// SystemMetrics summarises a snapshot
type SystemMetrics struct {
	Timestamp            time.Time `json:"timestamp"`
	TotalSolarGeneration float64   `json:"total_solar_generation"`
	CurrentHouseLoad     float64   `json:"current_house_load"`
	NetGeneration        float64   `json:"net_generation"`
	IsExporting          bool      `json:"is_exporting"`
	IsImporting          bool      `json:"is_importing"`
	EnergyFlow           string    `json:"energy_flow"`
	SolarUtilization     float64   `json:"solar_utilization"`
}

// Snapshot captures solar and house load for the hour containing now.
func (g *Generator) Snapshot(devices []models.DeviceConfig, now time.Time) SystemSnapshot {
	solar, skipped := g.LiveSolar(devices, now)

	snap := SystemSnapshot{
		Timestamp: TruncateHour(now, g.loc()),
		Solar:     solar,
		HouseLoad: g.HouseLoad(now),
	}
	for _, err := range skipped {
		snap.Skipped = append(snap.Skipped, err.Error())
	}
	return snap
}

// Metrics derives totals and the grid flow direction from a snapshot.
// NetGeneration is the magnitude of the difference; the direction is in
// EnergyFlow.
func Metrics(s SystemSnapshot) SystemMetrics {
	var solar float64
	for _, p := range s.Solar {
		solar += p.TotalGenerationKW
	}
	load := s.HouseLoad.EnergyKWh

	m := SystemMetrics{
		Timestamp:            s.Timestamp,
		TotalSolarGeneration: solar,
		CurrentHouseLoad:     load,
		NetGeneration:        math.Abs(solar - load),
		IsExporting:          solar > load,
		IsImporting:          load > solar,
		EnergyFlow:           FlowBalanced,
	}
	switch {
	case m.IsExporting:
		m.EnergyFlow = FlowExport
	case m.IsImporting:
		m.EnergyFlow = FlowImport
	}
	if solar > 0 {
		m.SolarUtilization = math.Min(1, load/solar)
	}
	return m
}
