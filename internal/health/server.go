// Package health exposes the standard gRPC health service. The bot reports
// SERVING while its database answers pings.
package health

import (
	"context"
	"net"
	"time"

	"github.com/dmitrijs2005/outlinebot/internal/logging"
	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
)

// ServiceName is the service reported next to the overall "" status.
const ServiceName = "outlinebot"

// Pinger is satisfied by *sql.DB.
type Pinger interface {
	PingContext(ctx context.Context) error
}

type Server struct {
	address  string
	db       Pinger
	interval time.Duration
	logger   logging.Logger
	health   *health.Server
}

const defaultInterval = 10 * time.Second

// NewServer returns a health server that pings db every interval.
func NewServer(a string, db Pinger, interval time.Duration, l logging.Logger) *Server {
	if interval <= 0 {
		interval = defaultInterval
	}
	return &Server{
		address:  a,
		db:       db,
		interval: interval,
		logger:   l.With("module", "health_server"),
		health:   health.NewServer(),
	}
}

func (s *Server) Run(ctx context.Context) error {
	// announces address
	listen, err := net.Listen("tcp", s.address)
	if err != nil {
		return err
	}
	return s.Serve(ctx, listen)
}

// Serve serves on lis until ctx is done.
func (s *Server) Serve(ctx context.Context, lis net.Listener) error {
	srv := grpc.NewServer()
	healthpb.RegisterHealthServer(srv, s.health)

	s.check(ctx)
	go s.watch(ctx)

	go func() {
		<-ctx.Done()
		s.logger.Info(ctx, "Stopping health server...")
		s.health.Shutdown()
		srv.GracefulStop()
	}()

	s.logger.Info(ctx, "Starting health server", "address", lis.Addr().String())

	if err := srv.Serve(lis); err != nil {
		return err
	}
	return nil
}

func (s *Server) watch(ctx context.Context) {
	t := time.NewTicker(s.interval)
	defer t.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			s.check(ctx)
		}
	}
}

func (s *Server) check(ctx context.Context) {
	pingCtx, cancel := context.WithTimeout(ctx, s.interval)
	defer cancel()

	err := s.db.PingContext(pingCtx)
	if ctx.Err() != nil {
		// shutting down
		return
	}

	status := healthpb.HealthCheckResponse_SERVING
	if err != nil {
		s.logger.Warn(ctx, "database ping failed", "error", err)
		status = healthpb.HealthCheckResponse_NOT_SERVING
	}
	s.health.SetServingStatus("", status)
	s.health.SetServingStatus(ServiceName, status)
}
