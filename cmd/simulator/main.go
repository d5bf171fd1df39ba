package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"energy-platform/internal/config"
	"energy-platform/internal/generator"
	"energy-platform/internal/publisher"
	"energy-platform/internal/repository"
	"energy-platform/internal/scheduler"
	"energy-platform/internal/services"
	"energy-platform/pkg/database"
	"energy-platform/pkg/logging"
	"energy-platform/pkg/metrics"
)

func main() {
	cfg, err := config.LoadConfig()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		os.Exit(1)
	}
	if err := cfg.Validate(); err != nil {
		fmt.Fprintf(os.Stderr, "Invalid configuration: %v\n", err)
		os.Exit(1)
	}

	logger := logging.NewStructuredLogger("energy-simulator", "1.0.0", logging.ParseLevel(cfg.Logging.Level))

	ctx := context.Background()
	logger.Info(ctx, "[SIMULATOR_START] Starting live snapshot simulator", logging.Fields{
		"version": "1.0.0",
		"broker":  cfg.MQTT.Broker,
		"topic":   cfg.MQTT.Topic,
		"spec":    cfg.MQTT.Spec,
	})

	loc, _ := cfg.Generator.Location()
	metricsCollector := metrics.NewCollector("energy_simulator")

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
		logger.Fatal(ctx, "[SIMULATOR_ERROR] Failed to connect to database", logging.Fields{}, err)
	}
	defer db.Close()

	energyRepo := repository.NewEnergyRepository(db, logger, metricsCollector)
	gen := generator.New(cfg.Generator.Latitude, loc)
	energyService := services.NewEnergyService(energyRepo, gen, logger, metricsCollector)

	client, err := publisher.Connect(cfg.MQTT.Broker, cfg.MQTT.ClientID, logger)
	if err != nil {
		logger.Fatal(ctx, "[SIMULATOR_ERROR] Failed to connect to broker", logging.Fields{
			"broker": cfg.MQTT.Broker,
		}, err)
	}
	defer client.Disconnect(250)

	snapshots := publisher.NewSnapshotPublisher(client, cfg.MQTT.Topic, byte(cfg.MQTT.QoS), logger, metricsCollector)

	sched := scheduler.New(loc, logger)
	err = sched.Add("publish", cfg.MQTT.Spec, func(ctx context.Context, now time.Time) error {
		users, err := energyRepo.ListUsersWithActiveDevices(ctx)
		if err != nil {
			return err
		}
		_, err = snapshots.PublishAll(ctx, users, energyService, now)
		return err
	})
	if err != nil {
		logger.Fatal(ctx, "[SIMULATOR_ERROR] Failed to register publish job", logging.Fields{}, err)
	}

	if err := sched.RunNow("publish"); err != nil {
		logger.Warn(ctx, "[SIMULATOR_WARN] Initial publish failed", logging.Fields{
			"error": err.Error(),
		})
	}
	sched.Start()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info(ctx, "[SHUTDOWN] Stopping simulator...", logging.Fields{})

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := sched.Stop(shutdownCtx); err != nil {
		logger.Error(ctx, "[SHUTDOWN_ERROR] Publish job did not finish", logging.Fields{}, err)
	}

	logger.Info(ctx, "[SHUTDOWN_COMPLETE] Simulator stopped", logging.Fields{})
}
