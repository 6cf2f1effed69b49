package clients

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	pb "github.com/librarydesk/circulation/contracts/circulation/v1"
	"go.uber.org/zap"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/metadata"
)

const (
	// CorrelationHeader matches the key the server reads correlation ids from
	CorrelationHeader = "x-correlation-id"

	defaultCallTimeout = 10 * time.Second
)

// CirculationClient wraps the gRPC connection to the circulation service
type CirculationClient struct {
	pb.CirculationServiceClient
	conn *grpc.ClientConn
	log  *zap.Logger
}

// NewCirculationClient creates a client for the service at target. Every call
// gets a correlation id and, unless the caller set one, a deadline.
func NewCirculationClient(target string, log *zap.Logger, opts ...grpc.DialOption) (*CirculationClient, error) {
	dialOpts := append([]grpc.DialOption{
		grpc.WithTransportCredentials(insecure.NewCredentials()),
		grpc.WithChainUnaryInterceptor(correlationInterceptor(), timeoutInterceptor(defaultCallTimeout)),
	}, opts...)

	conn, err := grpc.NewClient(target, dialOpts...)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to circulation service: %w", err)
	}

	log.Debug("Circulation client created", zap.String("target", target))
	return &CirculationClient{
		CirculationServiceClient: pb.NewCirculationServiceClient(conn),
		conn:                     conn,
		log:                      log,
	}, nil
}

// Close closes the connection to the circulation service
func (c *CirculationClient) Close() error {
	if c.conn != nil {
		return c.conn.Close()
	}
	return nil
}

func correlationInterceptor() grpc.UnaryClientInterceptor {
	return func(ctx context.Context, method string, req, reply interface{}, cc *grpc.ClientConn, invoker grpc.UnaryInvoker, opts ...grpc.CallOption) error {
		if md, ok := metadata.FromOutgoingContext(ctx); !ok || len(md.Get(CorrelationHeader)) == 0 {
			ctx = metadata.AppendToOutgoingContext(ctx, CorrelationHeader, uuid.New().String())
		}
		return invoker(ctx, method, req, reply, cc, opts...)
	}
}

func timeoutInterceptor(d time.Duration) grpc.UnaryClientInterceptor {
	return func(ctx context.Context, method string, req, reply interface{}, cc *grpc.ClientConn, invoker grpc.UnaryInvoker, opts ...grpc.CallOption) error {
		if _, ok := ctx.Deadline(); !ok {
			var cancel context.CancelFunc
			ctx, cancel = context.WithTimeout(ctx, d)
			defer cancel()
		}
		return invoker(ctx, method, req, reply, cc, opts...)
	}
}
