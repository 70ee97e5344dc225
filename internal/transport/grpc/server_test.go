package grpc

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net"
	"sync/atomic"
	"testing"
	"time"

	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/test/bufconn"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func dialServer(t *testing.T, s *Server) healthpb.HealthClient {
	t.Helper()
	lis := bufconn.Listen(1 << 20)
	go func() { _ = s.Serve(lis) }()
	t.Cleanup(func() { s.Shutdown(time.Second) })

	conn, err := grpc.NewClient("passthrough:///bufnet",
		grpc.WithContextDialer(func(ctx context.Context, _ string) (net.Conn, error) { return lis.DialContext(ctx) }),
		grpc.WithTransportCredentials(insecure.NewCredentials()),
	)
	if err != nil {
		t.Fatalf("NewClient error: %v", err)
	}
	t.Cleanup(func() { _ = conn.Close() })
	return healthpb.NewHealthClient(conn)
}

func healthStatus(t *testing.T, c healthpb.HealthClient, service string) healthpb.HealthCheckResponse_ServingStatus {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	resp, err := c.Check(ctx, &healthpb.HealthCheckRequest{Service: service})
	if err != nil {
		t.Fatalf("Check(%q) error: %v", service, err)
	}
	return resp.Status
}

func TestServer_StartsNotServing(t *testing.T) {
	s := NewServer(time.Second, discardLogger())
	c := dialServer(t, s)

	if got := healthStatus(t, c, ServiceName); got != healthpb.HealthCheckResponse_NOT_SERVING {
		t.Fatalf("status = %v, want NOT_SERVING", got)
	}
	s.SetServing(true)
	if got := healthStatus(t, c, ""); got != healthpb.HealthCheckResponse_SERVING {
		t.Fatalf("status = %v, want SERVING", got)
	}
}

func TestWatchReadiness_FollowsCheck(t *testing.T) {
	s := NewServer(time.Second, discardLogger())
	c := dialServer(t, s)

	var healthy atomic.Bool
	healthy.Store(true)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go s.WatchReadiness(ctx, 10*time.Millisecond, func(context.Context) error {
		if healthy.Load() {
			return nil
		}
		return errors.New("database down")
	})

	waitFor(t, func() bool { return healthStatus(t, c, ServiceName) == healthpb.HealthCheckResponse_SERVING })
	healthy.Store(false)
	waitFor(t, func() bool { return healthStatus(t, c, ServiceName) == healthpb.HealthCheckResponse_NOT_SERVING })
}

func waitFor(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("condition not met before deadline")
}

func TestDefaultRequestTimeoutInterceptor(t *testing.T) {
	icpt := defaultRequestTimeoutInterceptor(50 * time.Millisecond)
	info := &grpc.UnaryServerInfo{FullMethod: "/agenda.v1.Booking/Test"}

	_, err := icpt(context.Background(), nil, info, func(ctx context.Context, req any) (any, error) {
		deadline, ok := ctx.Deadline()
		if !ok {
			t.Fatalf("expected a deadline")
		}
		if time.Until(deadline) > 50*time.Millisecond {
			t.Fatalf("deadline too far: %v", time.Until(deadline))
		}
		return nil, nil
	})
	if err != nil {
		t.Fatalf("interceptor error: %v", err)
	}

	parent, cancel := context.WithTimeout(context.Background(), time.Hour)
	defer cancel()
	want, _ := parent.Deadline()
	_, _ = icpt(parent, nil, info, func(ctx context.Context, req any) (any, error) {
		if got, _ := ctx.Deadline(); !got.Equal(want) {
			t.Fatalf("existing deadline replaced: %v != %v", got, want)
		}
		return nil, nil
	})
}
