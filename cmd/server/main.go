package main

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/flockhq/flock/internal/handlers"
	"github.com/flockhq/flock/internal/handlers/httpapi"
	"github.com/flockhq/flock/internal/infrastructure/cache"
	"github.com/flockhq/flock/internal/infrastructure/config"
	"github.com/flockhq/flock/internal/infrastructure/database"
	"github.com/flockhq/flock/internal/infrastructure/logging"
	"github.com/flockhq/flock/internal/infrastructure/metrics"
	"github.com/flockhq/flock/internal/repositories/sqlstore"
	"github.com/flockhq/flock/internal/schemas"
	"github.com/flockhq/flock/internal/services"
	"github.com/flockhq/flock/internal/services/authorization"
	pkgcache "github.com/flockhq/flock/pkg/cache"
	"github.com/flockhq/flock/pkg/cache/memorycache"
	"github.com/flockhq/flock/pkg/cache/rediscache"
	"github.com/rs/zerolog"
	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/reflection"
)

const (
	defaultEnv      = "dev"
	shutdownTimeout = 30 * time.Second
)

func main() {
	env := os.Getenv("ENV")
	if env == "" {
		env = defaultEnv
	}

	if err := config.InitConfig(env); err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize config: %v\n", err)
		os.Exit(1)
	}
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		os.Exit(1)
	}

	logger, err := logging.New(cfg.Log, os.Stderr)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to create logger: %v\n", err)
		os.Exit(1)
	}
	logger = logger.With().Str("env", env).Logger()

	if err := run(cfg, logger); err != nil {
		logger.Fatal().Err(err).Msg("server exited")
	}
}

func run(cfg *config.Config, logger zerolog.Logger) error {
	// Connect to database and bring the system tables up to date
	db, err := database.Open(&cfg.Database)
	if err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}
	defer db.Close()

	if err := db.RunMigrations(); err != nil {
		return fmt.Errorf("failed to run migrations: %w", err)
	}
	logger.Info().Str("driver", db.Driver).Msg("connected to database")

	// Initialize repositories
	dialect := sqlstore.DialectFor(db.Driver)
	schemaRepo := sqlstore.NewSchemaRepository(db.DB, dialect)
	recordRepo := sqlstore.NewRecordRepository(db.DB, dialect)
	keyRepo := sqlstore.NewAPIKeyRepository(db.DB, dialect)

	// Initialize services
	celEngine, err := authorization.NewCELEngine()
	if err != nil {
		return fmt.Errorf("failed to create CEL engine: %w", err)
	}
	schemaService := services.NewSchemaService(schemaRepo, celEngine)

	ctx := context.Background()
	schema, err := schemaService.WriteSchema(ctx, schemas.Church())
	if err != nil {
		return fmt.Errorf("failed to provision schema: %w", err)
	}
	logger.Info().Str("version", schema.Version).Int("models", len(schema.Models)).Msg("schema active")

	checker := authorization.NewChecker(celEngine)
	recordService := services.NewRecordService(recordRepo, schemaService, checker)

	collector := metrics.NewCollector()
	exporter := metrics.NewPrometheusExporter(collector)

	keyCache, err := newCache(cfg)
	if err != nil {
		return err
	}
	var authenticator *authorization.Authenticator
	if keyCache != nil {
		defer keyCache.Close()
		collector.SetCache(keyCache)
		authenticator = authorization.NewAuthenticatorWithCache(keyRepo, keyCache, time.Duration(cfg.Cache.TTLMinutes)*time.Minute)
		logger.Info().Str("backend", cfg.Cache.Backend).Int("ttl_minutes", cfg.Cache.TTLMinutes).Msg("API key cache enabled")
	} else {
		authenticator = authorization.NewAuthenticator(keyRepo)
	}

	// Revocations made by other processes reach this cache through LISTEN/NOTIFY
	if keyCache != nil && db.IsPostgres() {
		invalidator := cache.NewKeyInvalidator(authenticator, cfg.Database.ConnectionString(), logging.Component(logger, "key-invalidator"))
		if err := invalidator.Start(ctx); err != nil {
			return fmt.Errorf("failed to start key invalidator: %w", err)
		}
		defer invalidator.Stop()
	}

	// gRPC server
	grpcServer := grpc.NewServer(
		grpc.ChainUnaryInterceptor(
			handlers.LoggingUnaryInterceptor(logging.Component(logger, "grpc")),
			metrics.UnaryServerInterceptor(collector, exporter),
			handlers.AuthUnaryInterceptor(authenticator),
		),
	)
	handlers.RegisterDataServer(grpcServer, handlers.NewDataHandler(recordService, schemaService))
	handlers.RegisterSchemaServer(grpcServer, handlers.NewSchemaHandler(schemaService))

	healthServer := health.NewServer()
	healthpb.RegisterHealthServer(grpcServer, healthServer)
	healthServer.SetServingStatus("", healthpb.HealthCheckResponse_SERVING)

	// Register reflection service (for grpcurl, etc.)
	reflection.Register(grpcServer)

	grpcAddr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.GRPCPort)
	listener, err := net.Listen("tcp", grpcAddr)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", grpcAddr, err)
	}

	// HTTP server
	httpServer := httpapi.New(httpapi.Options{
		Records:       recordService,
		Schemas:       schemaService,
		Authenticator: authenticator,
		Logger:        logging.Component(logger, "http"),
		Collector:     collector,
		Exporter:      exporter,
		HealthCheck:   db.HealthCheck,
	})
	httpAddr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.HTTPPort)

	// Metrics server
	metricsMux := http.NewServeMux()
	metricsMux.Handle("/metrics", exporter.Handler())
	metricsServer := &http.Server{
		Addr:              fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.MetricsPort),
		Handler:           metricsMux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	serverErrors := make(chan error, 3)
	go func() {
		logger.Info().Str("addr", grpcAddr).Msg("gRPC server listening")
		if err := grpcServer.Serve(listener); err != nil {
			serverErrors <- fmt.Errorf("gRPC server error: %w", err)
		}
	}()
	go func() {
		logger.Info().Str("addr", httpAddr).Msg("HTTP server listening")
		if err := httpServer.Listen(httpAddr); err != nil {
			serverErrors <- fmt.Errorf("HTTP server error: %w", err)
		}
	}()
	go func() {
		logger.Info().Str("addr", metricsServer.Addr).Msg("metrics server listening")
		if err := metricsServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErrors <- fmt.Errorf("metrics server error: %w", err)
		}
	}()

	// Setup signal handling for graceful shutdown
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	select {
	case err := <-serverErrors:
		grpcServer.Stop()
		return err
	case sig := <-sigChan:
		logger.Info().Str("signal", sig.String()).Msg("initiating graceful shutdown")
	}

	healthServer.Shutdown()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	stopped := make(chan struct{})
	go func() {
		grpcServer.GracefulStop()
		close(stopped)
	}()

	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("HTTP shutdown failed")
	}
	if err := metricsServer.Shutdown(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("metrics shutdown failed")
	}

	select {
	case <-stopped:
		logger.Info().Msg("gRPC server stopped gracefully")
	case <-shutdownCtx.Done():
		logger.Warn().Msg("shutdown timeout exceeded, forcing stop")
		grpcServer.Stop()
	}

	logger.Info().Msg("shutdown complete")
	return nil
}

// newCache builds the API key cache, or returns nil when caching is disabled
func newCache(cfg *config.Config) (pkgcache.Cache, error) {
	if !cfg.Cache.Enabled {
		return nil, nil
	}
	ttl := time.Duration(cfg.Cache.TTLMinutes) * time.Minute

	switch cfg.Cache.Backend {
	case "redis":
		c, err := rediscache.New(&rediscache.Config{
			Addr:       cfg.Redis.Addr,
			Password:   cfg.Redis.Password,
			DB:         cfg.Redis.DB,
			Namespace:  "flock:",
			DefaultTTL: ttl,
		})
		if err != nil {
			return nil, fmt.Errorf("failed to create redis cache: %w", err)
		}
		return c, nil
	default:
		c, err := memorycache.New(&memorycache.Config{
			MaxSizeBytes: cfg.Cache.MaxMemoryBytes,
			DefaultTTL:   ttl,
		})
		if err != nil {
			return nil, fmt.Errorf("failed to create memory cache: %w", err)
		}
		return c, nil
	}
}
