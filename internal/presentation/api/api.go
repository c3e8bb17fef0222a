package api

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/kcstrada/mes-realtime-gateway/internal/gateway"
	"github.com/kcstrada/mes-realtime-gateway/internal/infrastructure/configs"
	"github.com/kcstrada/mes-realtime-gateway/internal/infrastructure/logging"
	"github.com/kcstrada/mes-realtime-gateway/internal/infrastructure/metrics"
	"github.com/kcstrada/mes-realtime-gateway/internal/infrastructure/ratelimiter"
	adminHandler "github.com/kcstrada/mes-realtime-gateway/internal/presentation/handler/admin"
	healthHandler "github.com/kcstrada/mes-realtime-gateway/internal/presentation/handler/health"
	socketHandler "github.com/kcstrada/mes-realtime-gateway/internal/presentation/handler/socket"
)

type Application struct {
	config        configs.Config
	socketHandler *socketHandler.Handler
	adminHandler  *adminHandler.Handler
	healthHandler *healthHandler.Handler
	manager       *gateway.Manager
	logger        logging.Logger
	ratelimiter   ratelimiter.Limiter
	registry      *prometheus.Registry
	metrics       *metrics.Metrics
}

func NewApplication(
	config configs.Config,
	socketHandler *socketHandler.Handler,
	adminHandler *adminHandler.Handler,
	healthHandler *healthHandler.Handler,
	manager *gateway.Manager,
	logger logging.Logger,
	ratelimiter ratelimiter.Limiter,
	registry *prometheus.Registry,
	m *metrics.Metrics,
) *Application {
	return &Application{
		config:        config,
		socketHandler: socketHandler,
		adminHandler:  adminHandler,
		healthHandler: healthHandler,
		manager:       manager,
		logger:        logger,
		ratelimiter:   ratelimiter,
		registry:      registry,
		metrics:       m,
	}
}

func (app *Application) Mount() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)

	r.Use(app.loggerMiddleware)
	r.Use(app.prometheusMiddleware)
	r.Use(app.enableCors)

	// The websocket entry point must stay outside the timeout middleware:
	// upgraded connections are long-lived by design.
	r.Get("/ws", app.socketHandler.ServeWS)

	r.Route("/api", func(r chi.Router) {
		r.Use(middleware.Timeout(60 * time.Second))

		r.Route("/admin", func(r chi.Router) {
			r.Use(app.rateLimiterMiddleware)

			r.Get("/clients", app.adminHandler.ListClientsHandler)
			r.Post("/clients/{connectionId}/ping", app.adminHandler.PingHandler)
			r.Get("/tenants/{tenantId}/clients", app.adminHandler.ListTenantClientsHandler)
			r.Get("/tenants/{tenantId}/audit", app.adminHandler.ListTenantAuditHandler)

			r.Post("/broadcast", app.adminHandler.BroadcastHandler)
			r.Post("/notify/user", app.adminHandler.NotifyUserHandler)
			r.Post("/notify/role", app.adminHandler.NotifyRoleHandler)
			r.Post("/notify/tenant", app.adminHandler.NotifyTenantHandler)
		})

		r.Get("/health", app.healthHandler.GetHealth)
		r.Get("/healthz", app.healthHandler.GetHealth)
		r.Get("/ready", app.healthHandler.GetHealth)
		r.Get("/live", app.healthHandler.GetHealth)
	})

	r.Method(http.MethodGet, "/metrics", promhttp.HandlerFor(app.registry, promhttp.HandlerOpts{}))

	return otelhttp.NewHandler(r, "mes-gateway")
}

func (app *Application) Run(mux http.Handler) error {
	srv := &http.Server{
		Addr:         fmt.Sprintf("%s:%d", app.config.HTTP.Host, app.config.HTTP.Port),
		Handler:      mux,
		WriteTimeout: app.config.HTTP.WriteTimeout,
		ReadTimeout:  app.config.HTTP.ReadTimeout,
		IdleTimeout:  time.Minute,
	}

	shutdown := make(chan error)

	go func() {
		quit := make(chan os.Signal, 1)

		signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
		s := <-quit

		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		app.logger.Info(logging.General, logging.Shutdown, "signal caught", map[logging.ExtraKey]any{
			"signal": s.String(),
		})

		// Close every live websocket before the listener stops accepting.
		app.manager.Shutdown()

		shutdown <- srv.Shutdown(ctx)
	}()

	app.logger.Info(logging.General, logging.Startup, "server has started", map[logging.ExtraKey]any{
		"addr": srv.Addr,
	})

	err := srv.ListenAndServe()
	if !errors.Is(err, http.ErrServerClosed) {
		return err
	}

	err = <-shutdown
	if err != nil {
		return err
	}

	app.logger.Info(logging.General, logging.Shutdown, "server has stopped", map[logging.ExtraKey]any{
		"addr": srv.Addr,
	})

	return nil
}
