package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"time"

	"energy-platform/internal/generator"
	"energy-platform/internal/models"
	"energy-platform/pkg/logging"
)

// Prints one generated day for a sample array without touching the database
func main() {
	date := flag.String("date", time.Now().Format("2006-01-02"), "Day to generate (YYYY-MM-DD)")
	tz := flag.String("timezone", "America/Los_Angeles", "IANA timezone of the site")
	latitude := flag.Float64("latitude", generator.DefaultLatitude, "Site latitude in degrees")
	panels := flag.Int("panels", 12, "Panel count of the sample array")
	outputKW := flag.Float64("output-kw", 0.4, "Rated output per panel in kW")
	flag.Parse()

	logger := logging.NewStructuredLogger("demo", "1.0.0", logging.InfoLevel)
	ctx := context.Background()

	loc, err := time.LoadLocation(*tz)
	if err != nil {
		logger.Error(ctx, "Invalid timezone", logging.Fields{"timezone": *tz}, err)
		os.Exit(1)
	}
	day, err := time.ParseInLocation("2006-01-02", *date, loc)
	if err != nil {
		logger.Error(ctx, "Invalid date", logging.Fields{"date": *date}, err)
		os.Exit(1)
	}

	fmt.Println("════════════════════════════════════════════════════════════════")
	fmt.Println("ENERGY PLATFORM - GENERATED DAY")
	fmt.Println("════════════════════════════════════════════════════════════════")
	fmt.Printf("Date: %s | Latitude: %.4f | Array: %d x %.2f kW\n\n", day.Format("Mon 2006-01-02"), *latitude, *panels, *outputKW)

	gen := generator.New(*latitude, loc)
	device := models.NewSolarDevice("demo-array", "Demo Array", *panels, *outputKW)

	end := day.AddDate(0, 0, 1).Add(-time.Hour)
	solar, skipped := gen.HistoricalSolar([]models.DeviceConfig{device}, day, end)
	for _, err := range skipped {
		logger.Warn(ctx, "Device skipped", logging.Fields{"error": err.Error()})
	}
	load := gen.HistoricalHouseLoad(day, end)

	fmt.Printf("─────────────────────────────────────────────────────────────\n")
	fmt.Printf("Hour  | Solar kWh | Load kWh | Net kWh | Appliance\n")
	fmt.Printf("─────────────────────────────────────────────────────────────\n")

	var totalSolar, totalLoad, peak float64
	peakHour := ""
	for i, h := range load {
		generated := 0.0
		if i < len(solar) {
			generated = solar[i].TotalGenerationKW
		}
		totalSolar += generated
		totalLoad += h.EnergyKWh
		if generated > peak {
			peak = generated
			peakHour = h.Timestamp.Format("15:04")
		}
		fmt.Printf("%s | %9.3f | %8.3f | %7.3f | %s\n",
			h.Timestamp.Format("15:04"), generated, h.EnergyKWh, generated-h.EnergyKWh, h.Appliance)
	}

	fmt.Println()
	fmt.Printf("Total Generation:  %.2f kWh\n", totalSolar)
	fmt.Printf("Total Consumption: %.2f kWh\n", totalLoad)
	fmt.Printf("Net:               %.2f kWh\n", totalSolar-totalLoad)
	if peakHour != "" {
		fmt.Printf("Peak Generation:   %.3f kWh at %s\n", peak, peakHour)
	}

	intensity := gen.GridIntensity(day.Add(12*time.Hour), generator.DefaultGridZone)
	fmt.Printf("Noon Grid Intensity (%s): %d gCO2eq/kWh\n", intensity.Zone, intensity.GridCarbonIntensity)
	fmt.Println()
}
