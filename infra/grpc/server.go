package grpc

import (
	"discussion/internal/middleware"
	"discussion/pkg/config"
	"fmt"
	"net"

	"go.uber.org/zap"
	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	"google.golang.org/grpc/health/grpc_health_v1"
)

type Server struct {
	server   *grpc.Server
	health   *health.Server
	listener net.Listener
}

func (s *Server) GetGRPCServer() grpc.ServiceRegistrar {
	return s.server
}

func NewServer(cfg *config.AppConfig, resolver middleware.SessionResolver) (*Server, error) {
	lis, err := net.Listen("tcp", fmt.Sprintf(":%s", cfg.GRPCPort))
	if err != nil {
		return nil, fmt.Errorf("failed to listen: %w", err)
	}

	return NewServerWithListener(lis, resolver), nil
}

func NewServerWithListener(lis net.Listener, resolver middleware.SessionResolver) *Server {
	grpcServer := grpc.NewServer(
		grpc.ChainUnaryInterceptor(
			recoveryInterceptor,
			loggingInterceptor,
			authInterceptor(resolver),
		),
	)

	healthServer := health.NewServer()
	grpc_health_v1.RegisterHealthServer(grpcServer, healthServer)

	return &Server{
		server:   grpcServer,
		health:   healthServer,
		listener: lis,
	}
}

// RegisterCommentService registers the comment service and marks it serving.
func (s *Server) RegisterCommentService(srv *CommentServiceServer) {
	RegisterCommentService(s.server, srv)
	s.health.SetServingStatus(ServiceName, grpc_health_v1.HealthCheckResponse_SERVING)
}

func (s *Server) Start() error {
	zap.L().Info("gRPC server started successfully",
		zap.String("address", s.listener.Addr().String()))
	return s.server.Serve(s.listener)
}

func (s *Server) GracefulStop() error {
	s.health.Shutdown()
	s.server.GracefulStop()
	// Serve closes the listener on stop; a second close reports an error we
	// do not care about.
	_ = s.listener.Close()
	return nil
}
