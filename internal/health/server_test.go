package health

import (
	"context"
	"errors"
	"net"
	"sync/atomic"
	"testing"
	"time"

	"github.com/dmitrijs2005/outlinebot/internal/logging"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
)

type fakeDB struct {
	down atomic.Bool
}

func (f *fakeDB) PingContext(context.Context) error {
	if f.down.Load() {
		return errors.New("connection refused")
	}
	return nil
}

func startServer(t *testing.T, db Pinger, interval time.Duration) (healthpb.HealthClient, context.CancelFunc, <-chan error) {
	t.Helper()

	lis, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)

	done := make(chan error, 1)
	go func() {
		done <- NewServer("", db, interval, logging.Discard()).Serve(ctx, lis)
	}()

	conn, err := grpc.NewClient(lis.Addr().String(), grpc.WithTransportCredentials(insecure.NewCredentials()))
	require.NoError(t, err)
	t.Cleanup(func() { _ = conn.Close() })

	return healthpb.NewHealthClient(conn), cancel, done
}

func check(c healthpb.HealthClient, service string) (healthpb.HealthCheckResponse_ServingStatus, error) {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	resp, err := c.Check(ctx, &healthpb.HealthCheckRequest{Service: service}, grpc.WaitForReady(true))
	if err != nil {
		return healthpb.HealthCheckResponse_UNKNOWN, err
	}
	return resp.Status, nil
}

func becomes(c healthpb.HealthClient, service string, want healthpb.HealthCheckResponse_ServingStatus) func() bool {
	return func() bool {
		got, err := check(c, service)
		return err == nil && got == want
	}
}

func TestServer_ReportsDatabaseState(t *testing.T) {
	db := &fakeDB{}
	c, _, _ := startServer(t, db, 20*time.Millisecond)

	got, err := check(c, "")
	require.NoError(t, err)
	assert.Equal(t, healthpb.HealthCheckResponse_SERVING, got)

	got, err = check(c, ServiceName)
	require.NoError(t, err)
	assert.Equal(t, healthpb.HealthCheckResponse_SERVING, got)

	db.down.Store(true)
	assert.Eventually(t, becomes(c, ServiceName, healthpb.HealthCheckResponse_NOT_SERVING), 2*time.Second, 20*time.Millisecond)

	db.down.Store(false)
	assert.Eventually(t, becomes(c, "", healthpb.HealthCheckResponse_SERVING), 2*time.Second, 20*time.Millisecond)
}

func TestServer_StopsOnContextCancel(t *testing.T) {
	_, cancel, done := startServer(t, &fakeDB{}, time.Second)

	select {
	case err := <-done:
		t.Fatalf("server exited too early: %v", err)
	case <-time.After(150 * time.Millisecond):
	}

	cancel()

	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("server did not stop within timeout after context cancel")
	}
}

func TestRun_ReturnsErrorOnBadAddress(t *testing.T) {
	srv := NewServer("127.0.0.1:99999", &fakeDB{}, time.Second, logging.Discard())
	assert.Error(t, srv.Run(context.Background()))
}
