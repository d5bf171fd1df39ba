package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/google/uuid"

	"energy-platform/internal/config"
	"energy-platform/internal/generator"
	"energy-platform/internal/models"
	"energy-platform/internal/repository"
	"energy-platform/internal/services"
	"energy-platform/pkg/database"
	"energy-platform/pkg/logging"
	"energy-platform/pkg/metrics"
)

func main() {
	userID := flag.String("user", "", "User UUID to populate")
	all := flag.Bool("all", false, "Populate every user with active devices")
	force := flag.Bool("force", false, "Regenerate the full year instead of only new hours")
	clearData := flag.Bool("clear", false, "Delete the user's generated data instead of populating")
	count := flag.Bool("count", false, "Print stored point counts for the user instead of populating")
	gridZone := flag.String("grid-zone", "", "Also populate grid intensity for this zone")
	gridDays := flag.Int("grid-days", services.DefaultGridDays, "Days of grid intensity to generate")
	flag.Parse()

	if *userID == "" && !*all && *gridZone == "" {
		fmt.Fprintln(os.Stderr, "one of -user, -all or -grid-zone is required")
		flag.Usage()
		os.Exit(2)
	}
	if *userID != "" {
		if _, err := uuid.Parse(*userID); err != nil {
			fmt.Fprintf(os.Stderr, "Invalid -user %q: %v\n", *userID, err)
			os.Exit(2)
		}
	}

	cfg, err := config.LoadConfig()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		os.Exit(1)
	}
	if err := cfg.Validate(); err != nil {
		fmt.Fprintf(os.Stderr, "Invalid configuration: %v\n", err)
		os.Exit(1)
	}

	logger := logging.NewStructuredLogger("energy-populate", "1.0.0", logging.ParseLevel(cfg.Logging.Level))

	ctx := context.Background()
	logger.Info(ctx, "[POPULATE_CLI_START] Starting population", logging.Fields{
		"version":   "1.0.0",
		"user_id":   *userID,
		"all":       *all,
		"force":     *force,
		"clear":     *clearData,
		"count":     *count,
		"grid_zone": *gridZone,
	})

	loc, _ := cfg.Generator.Location()
	metricsCollector := metrics.NewCollector("energy_populate")

	dbConfig := &database.Config{
		Driver:          cfg.Database.Driver,
		Host:            cfg.Database.Host,
		Port:            cfg.Database.Port,
		User:            cfg.Database.User,
		Password:        cfg.Database.Password,
		Database:        cfg.Database.Database,
		SSLMode:         cfg.Database.SSLMode,
		MaxOpenConns:    cfg.Database.MaxOpenConns,
		MaxIdleConns:    cfg.Database.MaxIdleConns,
		ConnMaxLifetime: cfg.Database.ConnMaxLifetime,
		ConnMaxIdleTime: cfg.Database.ConnMaxIdleTime,
	}

	db, err := database.NewPostgresDB(dbConfig, logger, metricsCollector)
	if err != nil {
		logger.Fatal(ctx, "[POPULATE_CLI_ERROR] Failed to connect to database", logging.Fields{}, err)
	}
	defer db.Close()

	energyRepo := repository.NewEnergyRepository(db, logger, metricsCollector)
	gen := generator.New(cfg.Generator.Latitude, loc)
	populationService := services.NewPopulationService(energyRepo, gen, logger, metricsCollector, cfg.Generator.BatchSize)

	now := time.Now()
	failed := false

	fmt.Println(strings.Repeat("=", 80))
	switch {
	case *userID != "" && *clearData:
		result, err := populationService.Clear(ctx, *userID)
		if err != nil {
			logger.Error(ctx, "[POPULATE_CLI_ERROR] Clear failed", logging.Fields{"user_id": *userID}, err)
			failed = true
			break
		}
		fmt.Println(result.Message)
		fmt.Printf("Power generation rows: %d\n", result.Deleted.PowerGeneration)
		fmt.Printf("House load rows:       %d\n", result.Deleted.HouseLoad)

	case *userID != "" && *count:
		result, err := populationService.Count(ctx, *userID)
		if err != nil {
			logger.Error(ctx, "[POPULATE_CLI_ERROR] Count failed", logging.Fields{"user_id": *userID}, err)
			failed = true
			break
		}
		fmt.Printf("Solar points:      %d %s\n", result.SolarGenerationPoints, formatRange(result.SolarDateRange))
		fmt.Printf("House load points: %d %s\n", result.HouseLoadPoints, formatRange(result.HouseLoadDateRange))

	case *userID != "":
		result, err := populationService.Populate(ctx, *userID, *force, now)
		if err != nil {
			logger.Error(ctx, "[POPULATE_CLI_ERROR] Populate failed", logging.Fields{"user_id": *userID}, err)
			failed = true
			break
		}
		fmt.Println(result.Message)
		printSeries("Solar", result.Solar)
		printSeries("House load", result.HouseLoad)
		for _, skipped := range result.SkippedDevices {
			fmt.Printf("  skipped: %s\n", skipped)
		}
		fmt.Printf("Duration:       %v\n", result.Duration)

	case *all:
		result, err := populationService.PopulateAll(ctx, now)
		if err != nil {
			logger.Error(ctx, "[POPULATE_CLI_ERROR] Populate all failed", logging.Fields{}, err)
			failed = true
			break
		}
		fmt.Printf("Users:     %d\n", result.Users)
		fmt.Printf("Succeeded: %d\n", result.Succeeded)
		fmt.Printf("Skipped:   %d\n", result.Skipped)
		fmt.Printf("Failed:    %d\n", result.Failed)
		failed = result.Failed > 0
	}

	if *gridZone != "" {
		n, err := populationService.PopulateGridData(ctx, *gridZone, *gridDays, now)
		if err != nil {
			logger.Error(ctx, "[POPULATE_CLI_ERROR] Grid populate failed", logging.Fields{"zone": *gridZone}, err)
			failed = true
		} else {
			fmt.Printf("Grid points (%s): %d\n", *gridZone, n)
		}
	}
	fmt.Println(strings.Repeat("=", 80))

	if failed {
		os.Exit(1)
	}
	logger.Info(ctx, "[POPULATE_CLI_COMPLETE] Population completed", logging.Fields{})
}

func printSeries(name string, s *services.SeriesResult) {
	if s == nil {
		return
	}
	if s.UpToDate {
		fmt.Printf("%-15s up to date\n", name+":")
		return
	}
	fmt.Printf("%-15s %d points in %d batches\n", name+":", s.Points, s.Batches)
}

func formatRange(r models.DateRange) string {
	if r.Start == nil || r.End == nil {
		return ""
	}
	return fmt.Sprintf("(%s to %s)", r.Start.Format(time.RFC3339), r.End.Format(time.RFC3339))
}
