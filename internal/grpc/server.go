package grpc

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
	pb "github.com/librarydesk/circulation/contracts/circulation/v1"
	"github.com/librarydesk/circulation/internal/db"
	"github.com/librarydesk/circulation/internal/events"
	"github.com/librarydesk/circulation/internal/export"
	"github.com/librarydesk/circulation/internal/metrics"
	"github.com/librarydesk/circulation/internal/repo"
	"go.uber.org/zap"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"
)

const (
	publishTimeout = 10 * time.Second

	// CorrelationHeader is the metadata key carrying a caller's correlation id
	CorrelationHeader = "x-correlation-id"
)

// EventPublisher is what the server needs from the broker
type EventPublisher interface {
	PublishLoanEvent(ctx context.Context, eventType string, payload events.LoanPayload) error
	PublishBookEvent(ctx context.Context, eventType string, payload events.BookPayload) error
	PublishUserRegistered(ctx context.Context, payload events.UserPayload) error
	IsHealthy() bool
}

// HistoryExporter writes history reports to blob storage
type HistoryExporter interface {
	ExportHistory(ctx context.Context, f repo.HistoryFilter) (*export.Result, error)
}

// CirculationServer implements the CirculationService gRPC service
type CirculationServer struct {
	pb.UnimplementedCirculationServiceServer
	catalog   *repo.CatalogRepository
	users     *repo.UserRepository
	ledger    *repo.LedgerRepository
	reports   *repo.ReportRepository
	exporter  HistoryExporter
	publisher EventPublisher
	metrics   *metrics.Metrics
	log       *zap.Logger

	inflight sync.WaitGroup
}

// Deps groups the collaborators of a CirculationServer. Exporter may be nil.
type Deps struct {
	Catalog   *repo.CatalogRepository
	Users     *repo.UserRepository
	Ledger    *repo.LedgerRepository
	Reports   *repo.ReportRepository
	Exporter  HistoryExporter
	Publisher EventPublisher
	Metrics   *metrics.Metrics
}

// NewCirculationServer creates a new circulation gRPC server
func NewCirculationServer(deps Deps, log *zap.Logger) *CirculationServer {
	m := deps.Metrics
	if m == nil {
		m = metrics.New()
	}
	publisher := deps.Publisher
	if publisher == nil {
		publisher = events.NopPublisher{Log: log}
	}
	return &CirculationServer{
		catalog:   deps.Catalog,
		users:     deps.Users,
		ledger:    deps.Ledger,
		reports:   deps.Reports,
		exporter:  deps.Exporter,
		publisher: publisher,
		metrics:   m,
		log:       log,
	}
}

// RegisterCirculationService registers the circulation service with the gRPC server
func RegisterCirculationService(s *grpc.Server, srv *CirculationServer) {
	pb.RegisterCirculationServiceServer(s, srv)
}

// toStatus maps repository errors to gRPC status codes. Unexpected errors are
// logged and hidden behind "failed to <op>".
func (s *CirculationServer) toStatus(op string, err error) error {
	if _, ok := status.FromError(err); ok {
		return err
	}
	if reason, ok := repo.ViolationReason(err); ok {
		return status.Error(codes.FailedPrecondition, string(reason))
	}
	switch {
	case errors.Is(err, repo.ErrNotFound):
		return status.Error(codes.NotFound, err.Error())
	case errors.Is(err, repo.ErrConflict):
		return status.Error(codes.Aborted, err.Error())
	case errors.Is(err, repo.ErrPermissionDenied):
		return status.Error(codes.PermissionDenied, err.Error())
	case errors.Is(err, repo.ErrAlreadyExists), errors.Is(err, export.ErrExists):
		return status.Error(codes.AlreadyExists, err.Error())
	case errors.Is(err, repo.ErrInvalidCredentials):
		return status.Error(codes.Unauthenticated, err.Error())
	case errors.Is(err, repo.ErrInvalidArgument):
		return status.Error(codes.InvalidArgument, err.Error())
	case errors.Is(err, context.Canceled):
		return status.Error(codes.Canceled, err.Error())
	case errors.Is(err, context.DeadlineExceeded):
		return status.Error(codes.DeadlineExceeded, err.Error())
	}
	s.log.Error("Request failed", zap.String("operation", op), zap.Error(err))
	return status.Error(codes.Internal, "failed to "+op)
}

// requireStaff loads the actor and checks they are an admin or librarian.
func (s *CirculationServer) requireStaff(ctx context.Context, actorID string) (*db.User, error) {
	if actorID == "" {
		return nil, status.Error(codes.InvalidArgument, "actor_id is required")
	}
	actor, err := s.users.GetUser(ctx, actorID)
	if err != nil {
		return nil, err
	}
	if !actor.Role.IsStaff() {
		return nil, repo.ErrPermissionDenied
	}
	return actor, nil
}

// publishAsync runs publish in the background so a broker outage never fails the request.
func (s *CirculationServer) publishAsync(ctx context.Context, eventType string, publish func(ctx context.Context) error) {
	correlationID := events.CorrelationID(ctx)
	s.inflight.Add(1)
	go func() {
		defer s.inflight.Done()
		eventCtx, cancel := context.WithTimeout(events.WithCorrelationID(context.Background(), correlationID), publishTimeout)
		defer cancel()

		err := publish(eventCtx)
		s.metrics.ObservePublish(eventType, err)
		if err != nil {
			s.log.Error("Failed to publish event",
				zap.String("event_type", eventType),
				zap.String("correlation_id", correlationID),
				zap.Error(err),
			)
		}
	}()
}

// Drain waits for in-flight event publishes. Call it after the gRPC server has
// stopped and before the publisher is closed. It returns ctx.Err() if ctx ends first.
func (s *CirculationServer) Drain(ctx context.Context) error {
	done := make(chan struct{})
	go func() {
		s.inflight.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func normalizePagination(p *pb.Pagination) (int32, int32) {
	return repo.NormalizePage(p.GetPage(), p.GetPageSize())
}

func paginationOf(page, pageSize int32, total int64) *pb.Pagination {
	totalPages := int32(total) / pageSize
	if int32(total)%pageSize > 0 {
		totalPages++
	}
	return &pb.Pagination{
		Page:       page,
		PageSize:   pageSize,
		Total:      int32(total),
		TotalPages: totalPages,
	}
}

// LoggingInterceptor logs all gRPC requests and tags each with a correlation id,
// taken from the caller's metadata or generated.
func LoggingInterceptor(log *zap.Logger) grpc.UnaryServerInterceptor {
	return func(ctx context.Context, req interface{}, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (interface{}, error) {
		correlationID := ""
		if md, ok := metadata.FromIncomingContext(ctx); ok {
			if v := md.Get(CorrelationHeader); len(v) > 0 {
				correlationID = v[0]
			}
		}
		if correlationID == "" {
			correlationID = uuid.New().String()
		}
		ctx = events.WithCorrelationID(ctx, correlationID)

		start := time.Now()
		resp, err := handler(ctx, req)

		fields := []zap.Field{
			zap.String("method", info.FullMethod),
			zap.String("correlation_id", correlationID),
			zap.Duration("duration", time.Since(start)),
		}
		switch status.Code(err) {
		case codes.OK:
			log.Info("gRPC request completed", fields...)
		case codes.Internal, codes.Unknown, codes.DataLoss:
			log.Error("gRPC request failed", append(fields, zap.Error(err))...)
		default:
			log.Warn("gRPC request refused", append(fields, zap.Error(err))...)
		}

		return resp, err
	}
}
