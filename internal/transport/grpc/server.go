package grpc

import (
	"context"
	"log/slog"
	"net"
	"time"

	"go.opentelemetry.io/contrib/instrumentation/google.golang.org/grpc/otelgrpc"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/reflection"
	"google.golang.org/grpc/status"
)

// ServiceName is the health service name reported for the booking API.
const ServiceName = "agenda.v1.Booking"

// Server exposes the standard gRPC health protocol for the process. Its
// status follows the readiness check given to WatchReadiness.
type Server struct {
	srv    *grpc.Server
	health *health.Server
	log    *slog.Logger
}

func NewServer(requestTimeout time.Duration, log *slog.Logger) *Server {
	if log == nil {
		log = slog.Default()
	}
	log = log.With(slog.String("component", "grpc"))

	srv := grpc.NewServer(
		grpc.StatsHandler(otelgrpc.NewServerHandler()),
		grpc.ChainUnaryInterceptor(
			defaultRequestTimeoutInterceptor(requestTimeout),
			loggingInterceptor(log),
		),
	)
	h := health.NewServer()
	healthpb.RegisterHealthServer(srv, h)
	reflection.Register(srv)

	s := &Server{srv: srv, health: h, log: log}
	s.SetServing(false)
	return s
}

func (s *Server) SetServing(ok bool) {
	st := healthpb.HealthCheckResponse_NOT_SERVING
	if ok {
		st = healthpb.HealthCheckResponse_SERVING
	}
	s.health.SetServingStatus("", st)
	s.health.SetServingStatus(ServiceName, st)
}

func (s *Server) Serve(lis net.Listener) error {
	return s.srv.Serve(lis)
}

// WatchReadiness runs check every interval and publishes the result as the
// health status until ctx is done.
func (s *Server) WatchReadiness(ctx context.Context, interval time.Duration, check func(ctx context.Context) error) {
	if interval <= 0 {
		interval = 10 * time.Second
	}
	run := func() {
		pctx, cancel := context.WithTimeout(ctx, interval)
		defer cancel()
		err := check(pctx)
		if err != nil {
			s.log.Warn("readiness check failed", slog.Any("err", err))
		}
		s.SetServing(err == nil)
	}

	run()
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			run()
		}
	}
}

// Shutdown marks the server as not serving, then stops it gracefully,
// forcing a stop once timeout elapses.
func (s *Server) Shutdown(timeout time.Duration) {
	s.log.Info("shutting down grpc server", slog.Duration("timeout", timeout))
	s.health.Shutdown()

	done := make(chan struct{})
	go func() {
		s.srv.GracefulStop()
		close(done)
	}()

	timer := time.NewTimer(timeout)
	defer timer.Stop()

	select {
	case <-done:
		s.log.Info("grpc server stopped")
	case <-timer.C:
		s.log.Warn("grpc graceful shutdown timed out; forcing stop")
		s.srv.Stop()
	}
}

func defaultRequestTimeoutInterceptor(timeout time.Duration) grpc.UnaryServerInterceptor {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}

	return func(ctx context.Context, req any, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (any, error) {
		if _, ok := ctx.Deadline(); ok {
			return handler(ctx, req)
		}
		ctx, cancel := context.WithTimeout(ctx, timeout)
		defer cancel()

		return handler(ctx, req)
	}
}

func loggingInterceptor(log *slog.Logger) grpc.UnaryServerInterceptor {
	return func(ctx context.Context, req any, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (any, error) {
		start := time.Now()
		resp, err := handler(ctx, req)
		code := status.Code(err)

		level := slog.LevelDebug
		if code != codes.OK {
			level = slog.LevelWarn
		}
		if code == codes.Internal || code == codes.Unknown {
			level = slog.LevelError
		}
		log.LogAttrs(ctx, level, "grpc request",
			slog.String("rpc", info.FullMethod),
			slog.String("code", code.String()),
			slog.Int64("duration_ms", time.Since(start).Milliseconds()),
		)
		return resp, err
	}
}
