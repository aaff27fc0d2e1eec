// cmd/seat-quest-service/main.go
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os/signal"
	"syscall"

	"github.com/avivl/seat-quest/internal/booking"
	"github.com/avivl/seat-quest/internal/catalog"
	"github.com/avivl/seat-quest/internal/config"
	"github.com/avivl/seat-quest/internal/lockservice"
	"github.com/avivl/seat-quest/internal/observability"
	"github.com/avivl/seat-quest/internal/queue"
	"github.com/avivl/seat-quest/internal/server"
	"github.com/avivl/seat-quest/internal/store"
	"github.com/avivl/seat-quest/internal/store/dynamodb"
	"github.com/avivl/seat-quest/internal/store/memory"
	"github.com/avivl/seat-quest/internal/store/redis"
	"github.com/avivl/seat-quest/internal/store/scylladb"
)

func main() {
	configPath := flag.String("config", "/etc/seat-quest/config.yaml", "Path to configuration file")
	flag.Parse()

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	backendType, err := config.DetectBackendType(*configPath)
	if err != nil {
		log.Fatalf("failed to detect backend type: %v", err)
	}

	switch backendType {
	case memory.StoreName:
		err = run(ctx, *configPath, config.MemoryConfigLoader,
			func(ctx context.Context, cfg *config.GlobalConfig[*memory.Config], logger *observability.SLogger) (store.SeatLockStore, error) {
				return lockservice.NewStore(ctx, memory.StoreName, cfg.Store, logger)
			})
	case redis.StoreName:
		err = run(ctx, *configPath, config.RedisConfigLoader,
			func(ctx context.Context, cfg *config.GlobalConfig[*redis.RedisConfig], logger *observability.SLogger) (store.SeatLockStore, error) {
				return lockservice.NewStore(ctx, redis.StoreName, cfg.Store, logger)
			})
	case scylladb.StoreName:
		err = run(ctx, *configPath, config.ScyllaConfigLoader,
			func(ctx context.Context, cfg *config.GlobalConfig[*scylladb.ScyllaDBConfig], logger *observability.SLogger) (store.SeatLockStore, error) {
				return lockservice.NewStore(ctx, scylladb.StoreName, cfg.Store, logger)
			})
	case dynamodb.StoreName:
		err = run(ctx, *configPath, config.DynamoConfigLoader,
			func(ctx context.Context, cfg *config.GlobalConfig[*dynamodb.DynamoDBConfig], logger *observability.SLogger) (store.SeatLockStore, error) {
				return lockservice.NewStore(ctx, dynamodb.StoreName, cfg.Store, logger)
			})
	default:
		err = fmt.Errorf("unsupported backend type: %s", backendType)
	}

	if err != nil {
		log.Fatalf("seat-quest-service: %v", err)
	}
}

// run loads configuration for the chosen backend and serves until the
// context is cancelled.
func run[T store.StoreConfig](
	ctx context.Context,
	configPath string,
	loadFn config.ConfigLoadFn[T],
	storeInitializer server.StoreInitializer[T],
) error {
	loader, cfg, err := config.LoadConfig(configPath, loadFn)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	logger, err := observability.NewLogger(cfg.Logger.Level.GetZapLevel())
	if err != nil {
		return fmt.Errorf("failed to create logger: %w", err)
	}

	otelShutdown, err := observability.InitProvider(ctx, cfg.Observability)
	if err != nil {
		return fmt.Errorf("failed to initialize OpenTelemetry: %w", err)
	}
	defer otelShutdown()

	metrics, err := observability.NewMetricsClient(cfg.Observability, logger)
	if err != nil {
		return fmt.Errorf("failed to create metrics client: %w", err)
	}

	cat, closeCatalog, err := buildCatalog(ctx, cfg.Catalog, logger)
	if err != nil {
		return fmt.Errorf("failed to build show catalog: %w", err)
	}
	defer closeCatalog()

	callbacks, closePublisher, err := buildCallbacks(cfg.Events, logger)
	if err != nil {
		return fmt.Errorf("failed to connect event publisher: %w", err)
	}
	defer closePublisher()

	loader.AddWatcher(func(interface{}) {
		logger.Info("Configuration updated")
	})

	srv, err := server.NewServer(cfg, logger, metrics)
	if err != nil {
		return fmt.Errorf("failed to create server: %w", err)
	}

	logger.Info("Starting Seat Quest reservation service")

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.Start(ctx, storeInitializer, cat, nil, callbacks)
	}()

	select {
	case <-ctx.Done():
		logger.Info("Shutting down")
		return srv.Stop()
	case err := <-errCh:
		return err
	}
}

// buildCatalog selects MySQL when a DSN is configured, otherwise the
// in-memory catalog.
func buildCatalog(ctx context.Context, cfg config.CatalogConfig, logger *observability.SLogger) (catalog.ShowCatalog, func(), error) {
	if cfg.MySQLDSN == "" {
		logger.Info("No catalog DSN configured, using in-memory show catalog")
		return catalog.NewMemoryCatalog(), func() {}, nil
	}

	c, err := catalog.NewMySQLCatalog(ctx, cfg.MySQLDSN)
	if err != nil {
		return nil, nil, err
	}
	return c, func() {
		if err := c.Close(); err != nil {
			logger.Errorf("Error closing catalog: %v", err)
		}
	}, nil
}

// buildCallbacks wires booking events to AMQP when configured.
func buildCallbacks(cfg config.EventsConfig, logger *observability.SLogger) (booking.Callbacks, func(), error) {
	if cfg.AMQPURL == "" {
		return &booking.NoOpCallbacks{}, func() {}, nil
	}

	pub, err := queue.NewPublisher(cfg.AMQPURL, logger)
	if err != nil {
		return nil, nil, err
	}
	return queue.NewCallbacks(pub, logger), func() { pub.Close() }, nil
}
