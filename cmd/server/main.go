package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/NYTimes/gziphandler"
	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/cors"

	"energy-platform/internal/config"
	"energy-platform/internal/generator"
	"energy-platform/internal/handlers"
	"energy-platform/internal/repository"
	"energy-platform/internal/scheduler"
	"energy-platform/internal/services"
	"energy-platform/pkg/database"
	"energy-platform/pkg/logging"
	"energy-platform/pkg/metrics"
)

func main() {
	// Load configuration
	cfg, err := config.LoadConfig()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	if err := cfg.Validate(); err != nil {
		fmt.Fprintf(os.Stderr, "Invalid configuration: %v\n", err)
		os.Exit(1)
	}

	logger := logging.NewStructuredLogger("energy-api", "1.0.0", logging.ParseLevel(cfg.Logging.Level))

	ctx := context.Background()
	logger.Info(ctx, "[STARTUP] Starting energy platform API server", logging.Fields{
		"version":     "1.0.0",
		"server_host": cfg.Server.Host,
		"server_port": cfg.Server.Port,
		"db_driver":   cfg.Database.Driver,
		"db_host":     cfg.Database.Host,
		"db_name":     cfg.Database.Database,
		"timezone":    cfg.Generator.Timezone,
	})

	// Validate already loaded the zone once
	loc, _ := cfg.Generator.Location()

	metricsCollector := metrics.NewCollector("energy_platform")

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
		logger.Fatal(ctx, "[STARTUP_ERROR] Failed to connect to database", logging.Fields{}, err)
	}
	defer db.Close()

	energyRepo := repository.NewEnergyRepository(db, logger, metricsCollector)
	gen := generator.New(cfg.Generator.Latitude, loc)

	populationService := services.NewPopulationService(energyRepo, gen, logger, metricsCollector, cfg.Generator.BatchSize)
	energyService := services.NewEnergyService(energyRepo, gen, logger, metricsCollector)

	energyHandler := handlers.NewEnergyHandler(populationService, energyService, logger, metricsCollector)

	router := mux.NewRouter()
	router.Use(handlers.RequestID, handlers.AccessLog(logger, metricsCollector))
	energyHandler.RegisterRoutes(router)

	// Prometheus metrics endpoint
	router.Handle("/metrics", promhttp.Handler())

	corsHandler := cors.New(cors.Options{
		AllowedOrigins: cfg.Server.CORSOrigins,
		AllowedMethods: []string{http.MethodGet, http.MethodOptions},
		AllowedHeaders: []string{"Content-Type", handlers.HeaderUserID, handlers.HeaderRequestID},
		ExposedHeaders: []string{handlers.HeaderRequestID},
	})

	server := &http.Server{
		Addr:         fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port),
		Handler:      corsHandler.Handler(gziphandler.GzipHandler(router)),
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	var sched *scheduler.Scheduler
	if cfg.Scheduler.Enabled {
		sched = scheduler.New(loc, logger)
		err := sched.Add("populate", cfg.Scheduler.Spec, func(ctx context.Context, now time.Time) error {
			if _, err := populationService.PopulateAll(ctx, now); err != nil {
				return err
			}
			_, err := populationService.PopulateGridData(ctx, cfg.Generator.GridZone, services.DefaultGridDays, now)
			return err
		})
		if err != nil {
			logger.Fatal(ctx, "[STARTUP_ERROR] Failed to register scheduled populate", logging.Fields{}, err)
		}
		sched.Start()
	}

	go func() {
		logger.Info(ctx, "[SERVER_START] HTTP server listening", logging.Fields{
			"address":   server.Addr,
			"scheduler": cfg.Scheduler.Enabled,
		})

		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal(ctx, "[SERVER_ERROR] Server failed", logging.Fields{}, err)
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info(ctx, "[SHUTDOWN] Shutting down server...", logging.Fields{})

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if sched != nil {
		if err := sched.Stop(shutdownCtx); err != nil {
			logger.Error(ctx, "[SHUTDOWN_ERROR] Scheduled jobs did not finish", logging.Fields{}, err)
		}
	}

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error(ctx, "[SHUTDOWN_ERROR] Server forced to shutdown", logging.Fields{}, err)
	}

	logger.Info(ctx, "[SHUTDOWN_COMPLETE] Server stopped", logging.Fields{})
}
