package server

import (
	"go.opentelemetry.io/contrib/instrumentation/google.golang.org/grpc/otelgrpc"
	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/reflection"
)

// NewGRPCServer returns a gRPC server exposing grpc.health.v1 backed by healthSrv, with otelgrpc
// instrumentation and server reflection. Statuses on healthSrv are driven by healthhandler.SyncStatus.
func NewGRPCServer(healthSrv *health.Server) *grpc.Server {
	s := grpc.NewServer(grpc.StatsHandler(otelgrpc.NewServerHandler()))
	RegisterServices(s, healthSrv)
	reflection.Register(s)
	return s
}

// RegisterServices registers the gRPC services with the given registrar.
//
//   - grpc.health.v1.Health → google.golang.org/grpc/health (status from internal/health/handler)
func RegisterServices(s grpc.ServiceRegistrar, healthSrv *health.Server) {
	healthpb.RegisterHealthServer(s, healthSrv)
}
