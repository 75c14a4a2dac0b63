package service

import (
	"google.golang.org/grpc"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
)

// HealthServiceName задаёт имя сервиса в gRPC health.
const HealthServiceName = "starfall.GameService"

// RegisterServer регистрирует health-сервис на grpcServer. До Start и после
// начала остановки он отвечает NOT_SERVING.
func (s *GameService) RegisterServer(grpcServer *grpc.Server) {
	s.health.SetServingStatus(HealthServiceName, healthpb.HealthCheckResponse_NOT_SERVING)
	healthpb.RegisterHealthServer(grpcServer, s.health)
}
