package main

import (
	"context"
	"expvar"
	"log"
	"runtime"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/kcstrada/mes-realtime-gateway/internal/auth"
	"github.com/kcstrada/mes-realtime-gateway/internal/bridge"
	"github.com/kcstrada/mes-realtime-gateway/internal/domain"
	"github.com/kcstrada/mes-realtime-gateway/internal/gateway"
	"github.com/kcstrada/mes-realtime-gateway/internal/infrastructure/configs"
	"github.com/kcstrada/mes-realtime-gateway/internal/infrastructure/logging"
	"github.com/kcstrada/mes-realtime-gateway/internal/infrastructure/messaging"
	"github.com/kcstrada/mes-realtime-gateway/internal/infrastructure/metrics"
	"github.com/kcstrada/mes-realtime-gateway/internal/infrastructure/ratelimiter"
	"github.com/kcstrada/mes-realtime-gateway/internal/infrastructure/tracing"
	"github.com/kcstrada/mes-realtime-gateway/internal/persistence/db"
	"github.com/kcstrada/mes-realtime-gateway/internal/persistence/repository"
	"github.com/kcstrada/mes-realtime-gateway/internal/presentation/api"
	"github.com/kcstrada/mes-realtime-gateway/internal/presentation/handler/admin"
	"github.com/kcstrada/mes-realtime-gateway/internal/presentation/handler/health"
	"github.com/kcstrada/mes-realtime-gateway/internal/presentation/handler/socket"
)

const (
	serviceName = "mes-gateway"

	auditSweepInterval = 12 * time.Hour
)

// auditRetentionSweep periodically deletes audit entries older than the
// configured retention window.
func auditRetentionSweep(ctx context.Context, repo domain.GatewayAuditRepository, retention time.Duration, logger logging.Logger) {
	ticker := time.NewTicker(auditSweepInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := repo.DeleteOlderThan(ctx, time.Now().Add(-retention)); err != nil {
				logger.Warn(logging.Mongo, logging.Query, "audit retention sweep failed", map[logging.ExtraKey]any{
					logging.ErrorMessage: err.Error(),
				})
			}
		}
	}
}

func main() {
	tracerCfg := tracing.NewDefaultConfig(serviceName)

	sh, err := tracing.InitTracer(tracerCfg)
	if err != nil {
		log.Fatalf("Failed to initialize the tracer: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	defer sh(ctx)

	configPath := configs.DetermineConfigPath()
	cfg, err := configs.Load(configPath)
	if err != nil {
		log.Fatal(err)
	}

	logger := logging.NewLogger(&logging.LoggerConfig{
		FilePath: cfg.Logging.FilePath,
		Encoding: cfg.Logging.Encoding,
		Level:    cfg.Logging.Level,
		Logger:   cfg.Logging.Logger,
	})

	var auditRepository domain.GatewayAuditRepository
	if cfg.Mongo.Enabled {
		mongoCfg := &db.MongoConfig{
			URI:      cfg.Mongo.URI,
			Database: cfg.Mongo.Database,
		}

		mongoClient, err := db.NewMongoClient(ctx, mongoCfg)
		if err != nil {
			logger.Fatal(logging.Mongo, logging.Startup, "mongodb connection failed", map[logging.ExtraKey]any{
				logging.ErrorMessage: err.Error(),
			})
		}
		defer db.DisconnectMongo(ctx, mongoClient)

		auditRepository = repository.NewGatewayAuditLogRepository(db.GetDatabase(mongoClient, mongoCfg))

		if cfg.Mongo.Retention > 0 {
			go auditRetentionSweep(ctx, auditRepository, cfg.Mongo.Retention, logger)
		}
	}

	promRegistry := prometheus.NewRegistry()
	m := metrics.New(promRegistry)

	registry := gateway.NewRegistry()
	verifier := auth.NewVerifier(cfg.Auth.Secret, cfg.Auth.Leeway)

	manager := gateway.NewManager(registry, verifier, logger, m, auditRepository, gateway.Config{
		SendBuffer:     cfg.Gateway.SendBuffer,
		WriteTimeout:   cfg.Gateway.WriteTimeout,
		PongTimeout:    cfg.Gateway.PongTimeout,
		PingInterval:   cfg.Gateway.PingInterval,
		MaxMessageSize: cfg.Gateway.MaxMessageSize,
	})
	router := gateway.NewRouter(registry, manager, logger, m)

	rabbitmq, err := messaging.NewRabbitMQ(cfg.RabbitMQ.URI)
	if err != nil {
		logger.Fatal(logging.RabbitMQ, logging.Startup, "rabbitmq connection failed", map[logging.ExtraKey]any{
			logging.ErrorMessage: err.Error(),
		})
	}
	defer rabbitmq.Close()

	eventBridge := bridge.New(router, rabbitmq, cfg.RabbitMQ.Queue, logger, m)
	if err := eventBridge.Setup(); err != nil {
		logger.Fatal(logging.RabbitMQ, logging.Startup, "queue setup failed", map[logging.ExtraKey]any{
			logging.ErrorMessage: err.Error(),
		})
	}
	go func() {
		if err := eventBridge.Listen(); err != nil {
			logger.Error(logging.RabbitMQ, logging.Consume, "consumer stopped", map[logging.ExtraKey]any{
				logging.ErrorMessage: err.Error(),
			})
		}
	}()

	socketHandler := socket.NewHandler(manager, logger, cfg.HTTP.AllowedOrigins, cfg.Gateway.HandshakeWait)
	adminHandler := admin.NewHandler(manager, router, auditRepository, logger)
	healthHandler := health.NewHandler()

	rl := ratelimiter.New(ratelimiter.Options{
		MaxRatePerSecond: cfg.RateLimiter.MaxRatePerSecond,
		MaxBurst:         cfg.RateLimiter.MaxBurst,
		CacheTTL:         cfg.RateLimiter.CacheTTL,
		SourceHeaderKey:  cfg.RateLimiter.SourceHeaderKey,
	})
	app := api.NewApplication(*cfg, socketHandler, adminHandler, healthHandler, manager, logger, rl, promRegistry, m)

	expvar.Publish("goroutines", expvar.Func(func() any {
		return runtime.NumGoroutine()
	}))

	mux := app.Mount()
	if err := app.Run(mux); err != nil {
		logger.Fatal(logging.General, logging.Shutdown, "server exited with error", map[logging.ExtraKey]any{
			logging.ErrorMessage: err.Error(),
		})
	}
}
