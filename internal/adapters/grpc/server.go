// Package grpc exposes the engine's internal gRPC surface. The engine has no
// business RPCs; only the standard health service is served, which the mesh
// uses for liveness and readiness probes.
package grpc

import (
	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
)

// NewServer builds the internal gRPC server with the health service
// registered and marked serving. The returned health server lets the runtime
// flip to NOT_SERVING during shutdown so the mesh drains traffic first.
func NewServer() (*grpc.Server, *health.Server) {
	srv := grpc.NewServer()
	healthSrv := health.NewServer()
	healthpb.RegisterHealthServer(srv, healthSrv)
	healthSrv.SetServingStatus("", healthpb.HealthCheckResponse_SERVING)
	return srv, healthSrv
}
