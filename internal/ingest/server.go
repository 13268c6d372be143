package ingest

import (
	"context"
	"errors"
	"log"
	"net"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/structpb"

	"fraudstream/internal/domain"
	"fraudstream/internal/metrics"
	"fraudstream/internal/queue"
)

// Sink is where accepted transactions go; *queue.EventQueue satisfies it.
type Sink interface {
	Put(ctx context.Context, tx domain.Transaction) error
}

type server struct {
	sink Sink
}

func (s *server) SendTransaction(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	tx, err := domain.TransactionFromFields(req.AsMap())
	if err != nil {
		return nil, s.reject(codes.InvalidArgument, err.Error())
	}
	if tx.Value <= 0 {
		return nil, s.reject(codes.InvalidArgument, "value must be positive")
	}

	// Blocks while the queue is full, same as the synthetic emitters.
	if err := s.sink.Put(ctx, tx); err != nil {
		if errors.Is(err, queue.ErrClosed) {
			return nil, s.reject(codes.Unavailable, "ingestion is shutting down")
		}
		st := status.FromContextError(err)
		return nil, s.reject(st.Code(), st.Message())
	}

	metrics.IngestRequests.WithLabelValues(codes.OK.String()).Inc()
	metrics.TransactionsGenerated.WithLabelValues("ingest").Inc()
	return structpb.NewStruct(map[string]any{"success": true, "message": "queued"})
}

func (s *server) reject(code codes.Code, msg string) error {
	metrics.IngestRequests.WithLabelValues(code.String()).Inc()
	return status.Error(code, msg)
}

// Server hosts the ingestion service and the standard gRPC health service.
type Server struct {
	grpc   *grpc.Server
	health *health.Server
}

func NewServer(sink Sink) *Server {
	s := &Server{grpc: grpc.NewServer(), health: health.NewServer()}
	s.grpc.RegisterService(&ServiceDesc, &server{sink: sink})
	healthpb.RegisterHealthServer(s.grpc, s.health)
	s.health.SetServingStatus(ServiceName, healthpb.HealthCheckResponse_SERVING)
	return s
}

// Serve accepts connections on lis until ctx is cancelled.
func (s *Server) Serve(ctx context.Context, lis net.Listener) error {
	go func() {
		<-ctx.Done()
		s.health.Shutdown()
		s.grpc.GracefulStop()
	}()

	log.Printf("gRPC ingestion listening at %v", lis.Addr())
	if err := s.grpc.Serve(lis); err != nil && !errors.Is(err, grpc.ErrServerStopped) {
		return err
	}
	return nil
}

// ListenAndServe is Serve on a fresh TCP listener.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	lis, err := net.Listen("tcp", addr)
	if err != nil {
		return err
	}
	return s.Serve(ctx, lis)
}
