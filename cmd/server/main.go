package main

import (
	"context"
	"os/signal"
	"syscall"
	"time"

	eventapp "github.com/erp/ordercore/internal/application/event"
	inventoryapp "github.com/erp/ordercore/internal/application/inventory"
	tradeapp "github.com/erp/ordercore/internal/application/trade"
	"github.com/erp/ordercore/internal/infrastructure/cache"
	"github.com/erp/ordercore/internal/infrastructure/config"
	"github.com/erp/ordercore/internal/infrastructure/event"
	"github.com/erp/ordercore/internal/infrastructure/logger"
	"github.com/erp/ordercore/internal/infrastructure/persistence"
	"github.com/erp/ordercore/internal/infrastructure/telemetry"
	"go.opentelemetry.io/otel"
	"go.uber.org/zap"
)

const shutdownTimeout = 30 * time.Second

// Services groups the application services built over one transaction scope.
// This binary ships no transport; it runs the outbox relay and reports outbox
// state, and a transport embedding the module calls the order and stock services.
type Services struct {
	SalesOrders *tradeapp.SalesOrderService
	Inventory   *inventoryapp.InventoryService
	Outbox      *eventapp.OutboxService
}

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic("Failed to load configuration: " + err.Error())
	}

	log, err := logger.New(&logger.Config{
		Level:      cfg.Log.Level,
		Format:     cfg.Log.Format,
		Output:     cfg.Log.Output,
		TimeFormat: "2006-01-02T15:04:05.000Z07:00",
	})
	if err != nil {
		panic("Failed to initialize logger: " + err.Error())
	}
	defer func() {
		_ = log.Sync()
	}()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Telemetry
	tp, err := telemetry.NewTracerProvider(ctx, telemetry.Config{
		Enabled:           cfg.Telemetry.Enabled,
		CollectorEndpoint: cfg.Telemetry.CollectorEndpoint,
		SamplingRatio:     cfg.Telemetry.SamplingRatio,
		ServiceName:       cfg.Telemetry.ServiceName,
		ServiceVersion:    cfg.App.Version,
		Insecure:          cfg.Telemetry.Insecure,
	}, log)
	if err != nil {
		log.Fatal("Failed to initialize tracer provider", zap.Error(err))
	}
	mp, err := telemetry.NewMeterProvider(ctx, telemetry.MetricsConfig{
		Enabled:           cfg.Telemetry.Enabled && cfg.Telemetry.MetricsEnabled,
		CollectorEndpoint: cfg.Telemetry.CollectorEndpoint,
		ExportInterval:    cfg.Telemetry.MetricsInterval,
		ServiceName:       cfg.Telemetry.ServiceName,
		ServiceVersion:    cfg.App.Version,
		Insecure:          cfg.Telemetry.Insecure,
	}, log)
	if err != nil {
		log.Fatal("Failed to initialize meter provider", zap.Error(err))
	}
	lp, err := telemetry.NewLoggerProvider(ctx, telemetry.LogsConfig{
		Enabled:           cfg.Telemetry.Enabled && cfg.Telemetry.LogsEnabled,
		CollectorEndpoint: cfg.Telemetry.CollectorEndpoint,
		ServiceName:       cfg.Telemetry.ServiceName,
		Insecure:          cfg.Telemetry.Insecure,
	}, log)
	if err != nil {
		log.Fatal("Failed to initialize logger provider", zap.Error(err))
	}
	if lp.IsEnabled() {
		log = telemetry.NewBridgedLogger(log, telemetry.NewZapOTELCore(cfg.Telemetry.ServiceName, lp, logger.ParseLevel(cfg.Log.Level)))
	}
	ctx = logger.WithContext(ctx, log)

	metrics, err := telemetry.NewConsistencyMetrics(mp.Meter("ordercore"))
	if err != nil {
		log.Fatal("Failed to register metrics", zap.Error(err))
	}

	log.Info("Starting order consistency worker",
		zap.String("app", cfg.App.Name),
		zap.String("env", cfg.App.Env),
		zap.String("version", cfg.App.Version),
	)

	// Database
	dbTracing := telemetry.DefaultDBTracingConfig()
	dbTracing.Enabled = cfg.Telemetry.Enabled && cfg.Telemetry.DBTraceEnabled
	dbTracing.LogFullSQL = cfg.Telemetry.DBLogFullSQL
	if cfg.Telemetry.DBSlowQueryThresh > 0 {
		dbTracing.SlowQueryThresh = cfg.Telemetry.DBSlowQueryThresh
	}
	if cfg.Database.Driver == "sqlite" {
		dbTracing.DBSystem = "sqlite"
	}

	db, err := persistence.NewDatabase(&cfg.Database,
		persistence.WithZapLogger(log, logger.MapGormLogLevel(cfg.Log.GormLevel)),
		persistence.WithTracing(telemetry.NewDBTracingPlugin(dbTracing, log)),
	)
	if err != nil {
		log.Fatal("Failed to connect to database", zap.Error(err))
	}
	defer func() {
		if err := db.Close(); err != nil {
			log.Error("Error closing database", zap.Error(err))
		}
	}()
	log.Info("Database connected successfully", zap.String("driver", cfg.Database.Driver))

	if cfg.Database.AutoMigrate {
		if err := db.AutoMigrate(); err != nil {
			log.Fatal("Failed to migrate database", zap.Error(err))
		}
		log.Info("Database schema migrated")
	}

	// Application services
	scope, err := db.TransactionScope(metrics)
	if err != nil {
		log.Fatal("Failed to build transaction scope", zap.Error(err))
	}
	serializer := event.NewDefaultSerializer()
	outbox := event.NewOutboxWriter(serializer, event.WithMaxRetries(cfg.Outbox.MaxRetries))

	services := &Services{
		SalesOrders: tradeapp.NewSalesOrderService(scope,
			tradeapp.WithOutbox(outbox),
			tradeapp.WithMetrics(metrics),
		),
		Inventory: inventoryapp.NewInventoryService(scope,
			inventoryapp.WithOutbox(outbox),
			inventoryapp.WithMetrics(metrics),
		),
		Outbox: eventapp.NewOutboxService(event.NewGormOutboxRepository(db.DB), log),
	}
	log.Info("Application services ready",
		zap.String("isolation_level", cfg.Database.IsolationLevel),
		zap.Duration("lock_timeout", cfg.Database.LockTimeout),
		zap.Int("outbox_max_retries", cfg.Outbox.MaxRetries),
	)

	// Outbox relay
	services.Outbox.LogStats(ctx)

	var (
		relay      *event.OutboxRelay
		closeRelay func()
	)
	if cfg.Outbox.RelayEnabled {
		relay, closeRelay, err = startRelay(ctx, cfg, db, serializer, metrics, log)
		if err != nil {
			log.Fatal("Failed to start outbox relay", zap.Error(err))
		}
	} else {
		log.Info("Outbox relay disabled")
	}

	<-ctx.Done()
	log.Info("Shutting down worker...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if relay != nil {
		if err := relay.Stop(shutdownCtx); err != nil {
			log.Error("Outbox relay did not stop cleanly", zap.Error(err))
		}
		closeRelay()
	}
	services.Outbox.LogStats(shutdownCtx)
	if err := lp.Shutdown(shutdownCtx); err != nil {
		log.Error("Error shutting down logger provider", zap.Error(err))
	}
	if err := mp.Shutdown(shutdownCtx); err != nil {
		log.Error("Error shutting down meter provider", zap.Error(err))
	}
	if err := tp.Shutdown(shutdownCtx); err != nil {
		log.Error("Error shutting down tracer provider", zap.Error(err))
	}

	log.Info("Worker exited gracefully")
}

// startRelay wires the kafka publisher and idempotency store to a running relay.
// The returned func closes both and must be called after the relay has stopped.
func startRelay(
	ctx context.Context,
	cfg *config.Config,
	db *persistence.Database,
	serializer *event.EventSerializer,
	metrics *telemetry.ConsistencyMetrics,
	log *zap.Logger,
) (*event.OutboxRelay, func(), error) {
	writer, err := event.NewKafkaWriter(event.KafkaConfig{
		Brokers:  cfg.Outbox.Brokers,
		Topic:    cfg.Outbox.Topic,
		ClientID: cfg.App.Name,
	}, otel.GetTracerProvider())
	if err != nil {
		return nil, nil, err
	}
	publisher := event.NewKafkaPublisher(writer)

	store, err := cache.NewIdempotencyStoreFactory(cfg.Idempotency, cfg.Redis,
		cache.WithLogger(log),
		cache.WithInMemoryFallback(cfg.App.Env != "production"),
	).CreateStore(ctx)
	if err != nil {
		_ = publisher.Close()
		return nil, nil, err
	}

	relay := event.NewOutboxRelay(
		event.NewGormOutboxRepository(db.DB),
		publisher,
		serializer,
		event.RelayConfig{
			BatchSize:      cfg.Outbox.BatchSize,
			PollInterval:   cfg.Outbox.PollInterval,
			PublishTimeout: cfg.Outbox.PublishTimeout,
			IdempotencyTTL: cfg.Idempotency.TTL,
			ClaimLease:     cfg.Outbox.ClaimLease,
		},
		log,
		event.WithIdempotencyStore(store),
		event.WithRelayMetrics(metrics),
	)
	if err := relay.Start(ctx); err != nil {
		_ = store.Close()
		_ = publisher.Close()
		return nil, nil, err
	}

	closeFn := func() {
		if err := publisher.Close(); err != nil {
			log.Warn("Error closing kafka writer", zap.Error(err))
		}
		if err := store.Close(); err != nil {
			log.Warn("Error closing idempotency store", zap.Error(err))
		}
	}

	log.Info("Outbox relay running",
		zap.Strings("brokers", cfg.Outbox.Brokers),
		zap.String("topic", cfg.Outbox.Topic),
		zap.String("idempotency_backend", cfg.Idempotency.Backend),
	)
	return relay, closeFn, nil
}
