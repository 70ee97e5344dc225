package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"net/url"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"google.golang.org/grpc"

	"agenda/backend/internal/config"
	"agenda/backend/internal/events"
	"agenda/backend/internal/service/booking"
	"agenda/backend/internal/service/catalog"
	"agenda/backend/internal/store/bunstore"
	"agenda/backend/internal/telemetry"
	"agenda/backend/internal/tenant"
	grpcTransport "agenda/backend/internal/transport/grpc"
	"agenda/backend/internal/transport/httpapi"
)

func main() {
	log := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo})).With(
		slog.String("service", "agenda-server"),
	)
	slog.SetDefault(log)

	cfg, err := config.Load()
	if err != nil {
		log.Error("config load failed", slog.Any("err", err))
		os.Exit(1)
	}

	log = slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: parseLogLevel(cfg.LogLevel)})).With(
		slog.String("service", "agenda-server"),
	)
	slog.SetDefault(log)

	log.Info("starting",
		slog.String("http_addr", cfg.HTTPAddr),
		slog.String("grpc_addr", cfg.GRPCAddr()),
		slog.String("log_level", cfg.LogLevel),
	)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	shutdownTracing, err := telemetry.Setup(ctx, telemetry.Config{
		Enabled:     cfg.OTelEnabled,
		ServiceName: "agenda-server",
		Endpoint:    cfg.OTelEndpoint,
		SampleRatio: cfg.OTelSamplingRatio,
	})
	if err != nil {
		log.Error("telemetry setup failed", slog.Any("err", err))
		os.Exit(1)
	}

	log.Info("tenant datastores", databaseLogArgs(cfg.DatabaseDriver, cfg.DatabaseDSNTemplate)...)
	resolver, err := tenant.NewResolver(tenant.Config{
		Driver:      cfg.DatabaseDriver,
		DSNTemplate: cfg.DatabaseDSNTemplate,
		CacheSize:   cfg.TenantCacheSize,
		Pool: bunstore.PoolConfig{
			MaxOpenConns:    cfg.DBMaxOpenConns,
			MaxIdleConns:    cfg.DBMaxIdleConns,
			ConnMaxLifetime: cfg.DBConnMaxLifetime,
			ConnMaxIdleTime: cfg.DBConnMaxIdleTime,
		},
		CreateSchema: cfg.TenantCreateSchema,
	}, log)
	if err != nil {
		log.Error("tenant resolver setup failed", slog.Any("err", err))
		os.Exit(1)
	}
	defer resolver.Close()

	var ready []httpapi.ReadyCheck

	var pub events.Publisher = events.Nop{}
	if len(cfg.KafkaBrokers) > 0 {
		pub = events.NewKafkaPublisher(cfg.KafkaBrokers, cfg.KafkaTopic)
		ready = append(ready, httpapi.ReadyCheck{Name: "kafka", Check: events.ReadyCheck(cfg.KafkaBrokers)})
		log.Info("publishing appointment events", slog.Any("brokers", cfg.KafkaBrokers))
	}
	defer func() {
		if err := pub.Close(); err != nil {
			log.Warn("event publisher close failed", slog.Any("err", err))
		}
	}()

	var limiter httpapi.RateLimiter
	if cfg.RedisAddr != "" {
		rdb := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr, Password: cfg.RedisPassword, DB: cfg.RedisDB})
		defer rdb.Close()
		limiter = httpapi.NewRedisRateLimiter(rdb, cfg.RateLimitRequests, cfg.RateLimitWindow, "agenda:rl")
		ready = append(ready, httpapi.ReadyCheck{Name: "redis", Check: func(ctx context.Context) error {
			return rdb.Ping(ctx).Err()
		}})
	}

	gin.SetMode(gin.ReleaseMode)
	httpServer := &http.Server{
		Addr: cfg.HTTPAddr,
		Handler: httpapi.NewHandler(httpapi.Deps{
			Tenants:        resolver,
			Booking:        booking.NewService(pub, log),
			Catalog:        catalog.NewService(log),
			Log:            log,
			Limiter:        limiter,
			FailOpen:       cfg.RateLimitFailOpen,
			Ready:          ready,
			CORS:           httpapi.CORSPolicy{AllowedOrigins: cfg.CORSOrigins, AllowedMethods: []string{"GET", "POST", "PUT", "PATCH", "DELETE"}, AllowedHeaders: []string{"Content-Type", httpapi.TenantHeader, httpapi.ActorHeader, httpapi.RequestIDHeader}, MaxAge: 10 * time.Minute},
			BodyLimit:      cfg.HTTPBodyLimit,
			RequestTimeout: cfg.HTTPRequestTimeout,
		}),
		ReadHeaderTimeout: 5 * time.Second,
	}

	grpcServer := grpcTransport.NewServer(cfg.GRPCRequestTimeout, log)
	lis, err := net.Listen("tcp", cfg.GRPCAddr())
	if err != nil {
		log.Error("grpc listen failed", slog.Any("err", err), slog.String("grpc_addr", cfg.GRPCAddr()))
		os.Exit(1)
	}
	go grpcServer.WatchReadiness(ctx, cfg.ReadinessInterval, checkAll(ready))

	errCh := make(chan error, 2)
	go func() {
		if err := grpcServer.Serve(lis); err != nil && !errors.Is(err, grpc.ErrServerStopped) {
			errCh <- fmt.Errorf("grpc: %w", err)
		}
	}()
	go func() {
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- fmt.Errorf("http: %w", err)
		}
	}()

	log.Info("servers started", slog.String("http_addr", cfg.HTTPAddr), slog.String("grpc_addr", cfg.GRPCAddr()))

	exitCode := 0
	select {
	case <-ctx.Done():
		log.Info("shutdown signal received")
	case err := <-errCh:
		log.Error("server stopped with error", slog.Any("err", err))
		exitCode = 1
	}

	shutdown(log, httpServer, grpcServer, cfg.ShutdownTimeout)
	flushCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()
	if err := shutdownTracing(flushCtx); err != nil {
		log.Warn("telemetry shutdown failed", slog.Any("err", err))
	}
	if exitCode != 0 {
		stop()
		os.Exit(exitCode)
	}
}

func shutdown(log *slog.Logger, h *http.Server, g *grpcTransport.Server, timeout time.Duration) {
	log.Info("shutting down http server", slog.Duration("timeout", timeout))
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()
	if err := h.Shutdown(ctx); err != nil {
		log.Warn("http graceful shutdown failed; closing", slog.Any("err", err))
		_ = h.Close()
	}
	g.Shutdown(timeout)
}

func checkAll(checks []httpapi.ReadyCheck) func(context.Context) error {
	return func(ctx context.Context) error {
		for _, rc := range checks {
			if err := rc.Check(ctx); err != nil {
				return fmt.Errorf("%s: %w", rc.Name, err)
			}
		}
		return nil
	}
}

func parseLogLevel(level string) slog.Level {
	switch strings.ToLower(strings.TrimSpace(level)) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// databaseLogArgs describes the tenant DSN template without credentials.
func databaseLogArgs(driver, template string) []any {
	args := []any{slog.String("db_driver", driver)}
	if driver == bunstore.DriverSQLite {
		return append(args, slog.String("db_path", strings.SplitN(strings.TrimPrefix(template, "file:"), "?", 2)[0]))
	}
	u, err := url.Parse(template)
	if err != nil {
		return append(args, slog.String("db_url", "invalid"))
	}
	host := u.Hostname()
	port := u.Port()
	name := strings.TrimPrefix(u.Path, "/")
	if host == "" {
		host = "unknown"
	}
	if port == "" {
		port = "default"
	}
	if name == "" {
		name = "unknown"
	}
	return append(args,
		slog.String("db_host", host),
		slog.String("db_port", port),
		slog.String("db_name", name),
	)
}
