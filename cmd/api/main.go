package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"testdrive/internal/api"
	"testdrive/internal/config"
	"testdrive/internal/database"
	"testdrive/internal/domain"
	"testdrive/internal/events"
	"testdrive/internal/logging"
	"testdrive/internal/metrics"
	"testdrive/internal/models"
	"testdrive/internal/pgstore"
	"testdrive/internal/repository"
	"testdrive/internal/service"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"gopkg.in/yaml.v2"
)

func main() {
	if err := run(); err != nil {
		log.Fatalf("Fatal error: %v", err)
	}
}

// storage is the catalog and reservation store behind the booking service.
type storage struct {
	catalog domain.VehicleCatalog
	store   domain.ReservationStore
	sqlite  *database.DB
	close   func()
}

func run() error {
	cfg, logger, closer, err := loadConfigAndLogger()
	if err != nil {
		return err
	}
	if closer != nil {
		defer (func() { _ = closer.Close() })()
	}

	vehicles, err := loadVehicles(cfg, &logger)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	st, err := initStorage(ctx, cfg, vehicles, &logger)
	if err != nil {
		return err
	}
	defer st.close()

	redisClient := initRedis(ctx, cfg, &logger)
	if redisClient != nil {
		defer func() { _ = repository.Close(redisClient) }()
	}

	eventBus := initEventBus(&logger)

	bookingService := service.NewBookingService(st.catalog, st.store, eventBus, service.Options{
		Rules:       service.RulesFromConfig(cfg.Booking),
		DefaultZone: cfg.Booking.Location(),
	}, logging.Component(&logger, "booking"))

	httpServer := api.NewHTTPServer(cfg.API, bookingService, initRateLimiter(redisClient, &logger),
		cfg.Booking.Location(), logging.Component(&logger, "http"))

	startMetrics(ctx, cfg, &logger)
	startBackups(ctx, cfg, st, &logger)

	return startServer(ctx, httpServer, cfg, &logger)
}

func loadConfigAndLogger() (*config.Config, zerolog.Logger, io.Closer, error) {
	configPath := os.Getenv("CONFIG_PATH")
	if configPath == "" {
		configPath = "configs/config.yaml"
	}

	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, zerolog.Logger{}, nil, fmt.Errorf("load config: %w", err)
	}

	baseLogger, closer, err := logging.New(cfg.Logging, cfg.App)
	if err != nil {
		return nil, zerolog.Logger{}, nil, fmt.Errorf("init logger: %w", err)
	}
	logger := baseLogger.With().Str("component", "api-main").Logger()

	return cfg, logger, closer, nil
}

// loadVehicles merges the config fleet with the optional VEHICLES_PATH file.
func loadVehicles(cfg *config.Config, logger *zerolog.Logger) ([]models.Vehicle, error) {
	vehicles := append([]models.Vehicle(nil), cfg.Vehicles...)

	vehiclesPath := os.Getenv("VEHICLES_PATH")
	if vehiclesPath == "" {
		return vehicles, nil
	}

	vehiclesData, err := os.ReadFile(vehiclesPath)
	if err != nil {
		logger.Error().Err(err).Str("vehicles_path", vehiclesPath).Msg("read vehicles")
		return nil, err
	}

	var vehiclesConfig struct {
		Vehicles []models.Vehicle `yaml:"vehicles"`
	}
	if err := yaml.Unmarshal(vehiclesData, &vehiclesConfig); err != nil {
		logger.Error().Err(err).Str("vehicles_path", vehiclesPath).Msg("parse vehicles")
		return nil, err
	}

	config.NormalizeVehicles(vehiclesConfig.Vehicles)
	vehicles = append(vehicles, vehiclesConfig.Vehicles...)
	if err := config.ValidateVehicles(vehicles); err != nil {
		return nil, fmt.Errorf("vehicles: %w", err)
	}

	logger.Info().Int("count", len(vehicles)).Str("vehicles_path", vehiclesPath).Msg("vehicles loaded")
	return vehicles, nil
}

func initStorage(ctx context.Context, cfg *config.Config, vehicles []models.Vehicle, logger *zerolog.Logger) (*storage, error) {
	switch cfg.Database.Driver {
	case config.DriverPostgres:
		pgLogger := logging.Component(logger, "pgstore")
		pool, err := pgstore.NewPool(ctx, cfg.Database.Postgres, pgLogger)
		if err != nil {
			logger.Error().Err(err).Str("host", cfg.Database.Postgres.Host).Msg("connect postgres")
			return nil, err
		}
		store := pgstore.New(pool, pgLogger)
		if err := store.Migrate(ctx); err != nil {
			store.Close()
			return nil, fmt.Errorf("migrate postgres: %w", err)
		}
		if err := store.SeedVehicles(ctx, vehicles); err != nil {
			store.Close()
			return nil, fmt.Errorf("seed vehicles: %w", err)
		}
		return &storage{catalog: store, store: store, close: store.Close}, nil

	default:
		db, err := database.NewDB(cfg.Database.Path, logging.Component(logger, "database"))
		if err != nil {
			logger.Error().Err(err).Str("db_path", cfg.Database.Path).Msg("init database")
			return nil, err
		}
		if err := db.SeedVehicles(ctx, vehicles); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("seed vehicles: %w", err)
		}
		return &storage{catalog: db, store: db, sqlite: db, close: func() { _ = db.Close() }}, nil
	}
}

func initRedis(ctx context.Context, cfg *config.Config, logger *zerolog.Logger) *redis.Client {
	if cfg.Redis.Address == "" {
		return nil
	}

	redisClient := repository.NewRedisClient(cfg.Redis)

	pingCtx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()
	if err := repository.Ping(pingCtx, redisClient); err != nil {
		logger.Warn().Err(err).Msg("redis connection failed, continuing without redis")
		_ = redisClient.Close()
		return nil
	}

	logger.Info().Str("addr", cfg.Redis.Address).Msg("redis connected")
	return redisClient
}

// initRateLimiter prefers Redis so replicas share limits, falling back to per-process buckets.
func initRateLimiter(redisClient *redis.Client, logger *zerolog.Logger) domain.RateLimiter {
	memory := repository.NewMemoryRateLimiter()
	if redisClient == nil {
		return memory
	}
	return repository.NewFailoverRateLimiter(repository.NewRedisRateLimiter(redisClient), memory,
		logging.Component(logger, "rate-limiter"))
}

func initEventBus(logger *zerolog.Logger) *events.EventBus {
	audit := logging.Component(logger, "audit")

	bus := events.NewEventBus()
	bus.OnError(func(event *events.Event, err error) {
		audit.Error().Err(err).Str("event_type", event.Type).Msg("event handler failed")
	})
	bus.Subscribe(models.EventReservationCreated, func(event *events.Event) error {
		var payload events.ReservationEventPayload
		if err := event.Decode(&payload); err != nil {
			return err
		}
		audit.Info().
			Str("reservation_id", payload.ReservationID).
			Int64("vehicle_id", payload.VehicleID).
			Str("vehicle_type", payload.VehicleType).
			Str("location", payload.Location).
			Time("start_at", payload.StartAt).
			Time("end_at", payload.EndAt).
			Msg(models.EventReservationCreated)
		return nil
	})
	return bus
}

func startMetrics(ctx context.Context, cfg *config.Config, logger *zerolog.Logger) {
	if !cfg.Monitoring.PrometheusEnabled {
		return
	}

	metrics.Register()
	port := cfg.Monitoring.PrometheusPort
	if port == 0 {
		port = 9090
	}
	go startMetricsServer(ctx, port, logger)
}

func startBackups(ctx context.Context, cfg *config.Config, st *storage, logger *zerolog.Logger) {
	if !cfg.Backup.Enabled || st.sqlite == nil {
		return
	}

	backups := database.NewBackupService(st.sqlite.Path(), cfg.Backup, logging.Component(logger, "backup"))
	go func() {
		if err := backups.Start(ctx); err != nil {
			logger.Error().Err(err).Msg("backup scheduler stopped")
		}
	}()
}

func startServer(ctx context.Context, httpServer *api.HTTPServer, cfg *config.Config, logger *zerolog.Logger) error {
	errCh := make(chan error, 1)
	go func() {
		errCh <- httpServer.Start()
	}()

	logger.Info().Int("http_port", cfg.API.HTTP.Port).Str("driver", cfg.Database.Driver).Msg("API server started")

	select {
	case <-ctx.Done():
		logger.Info().Msg("shutdown signal received")
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("http server: %w", err)
		}
		return errors.New("http server stopped unexpectedly")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("http shutdown")
	}

	logger.Info().Msg("API server stopped")
	return nil
}

func startMetricsServer(ctx context.Context, port int, logger *zerolog.Logger) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())

	srv := &http.Server{Addr: fmt.Sprintf(":%d", port), Handler: mux, ReadHeaderTimeout: 5 * time.Second}
	go func() {
		<-ctx.Done()
		ctxShutdown, cancel := context.WithTimeout(context.Background(), 3*time.Second)
		defer cancel()
		_ = srv.Shutdown(ctxShutdown)
	}()
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Error().Err(err).Msg("metrics server error")
	}
}
