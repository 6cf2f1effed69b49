package grpc

import (
	"context"

	"github.com/librarydesk/circulation/internal/db"
	"go.uber.org/zap"
	"google.golang.org/grpc/health/grpc_health_v1"
)

// Pinger reports whether a dependency is reachable
type Pinger interface {
	Ping() error
}

// BrokerStatus reports whether the event broker connection is usable
type BrokerStatus interface {
	IsHealthy() bool
}

// HealthServer implements the gRPC health checking protocol
type HealthServer struct {
	grpc_health_v1.UnimplementedHealthServer
	db        Pinger
	publisher BrokerStatus
	log       *zap.Logger
}

// NewHealthServer creates a new health check server
func NewHealthServer(database *db.DB, publisher BrokerStatus, log *zap.Logger) *HealthServer {
	return newHealthServer(database, publisher, log)
}

func newHealthServer(database Pinger, publisher BrokerStatus, log *zap.Logger) *HealthServer {
	return &HealthServer{
		db:        database,
		publisher: publisher,
		log:       log,
	}
}

// Serving reports whether both the database and the broker are up.
func (h *HealthServer) Serving() bool {
	if err := h.db.Ping(); err != nil {
		h.log.Error("Database health check failed", zap.Error(err))
		return false
	}
	if !h.publisher.IsHealthy() {
		h.log.Error("RabbitMQ health check failed")
		return false
	}
	return true
}

func (h *HealthServer) status() grpc_health_v1.HealthCheckResponse_ServingStatus {
	if h.Serving() {
		return grpc_health_v1.HealthCheckResponse_SERVING
	}
	return grpc_health_v1.HealthCheckResponse_NOT_SERVING
}

// Check implements the health check
func (h *HealthServer) Check(ctx context.Context, req *grpc_health_v1.HealthCheckRequest) (*grpc_health_v1.HealthCheckResponse, error) {
	return &grpc_health_v1.HealthCheckResponse{Status: h.status()}, nil
}

// Watch sends the current status once and returns
func (h *HealthServer) Watch(req *grpc_health_v1.HealthCheckRequest, server grpc_health_v1.Health_WatchServer) error {
	return server.Send(&grpc_health_v1.HealthCheckResponse{Status: h.status()})
}
