package nbi

import (
	"github.com/dimalipin/netviz/internal/logging"
	"github.com/dimalipin/netviz/internal/observability"
	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
)

// NewServer builds a gRPC server with the simulator service and health
// checks registered. Interceptors run in order: request id,
// tracing, metrics, error mapping. collector may be nil.
func NewServer(svc SimulatorServiceServer, log logging.Logger, collector *observability.APICollector, opts ...grpc.ServerOption) *grpc.Server {
	interceptors := []grpc.UnaryServerInterceptor{
		RequestIDUnaryServerInterceptor(log),
		TracingUnaryServerInterceptor(),
	}
	if collector != nil {
		interceptors = append(interceptors, collector.UnaryServerInterceptor())
	}
	interceptors = append(interceptors, ErrorMappingUnaryServerInterceptor())

	opts = append([]grpc.ServerOption{grpc.ChainUnaryInterceptor(interceptors...)}, opts...)
	srv := grpc.NewServer(opts...)
	RegisterSimulatorServiceServer(srv, svc)

	hs := health.NewServer()
	hs.SetServingStatus(SimulatorServiceName, healthpb.HealthCheckResponse_SERVING)
	healthpb.RegisterHealthServer(srv, hs)
	return srv
}
