package grpc

import (
	"context"
	"fmt"
	"net"

	log "github.com/sirupsen/logrus"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/example/plugin-terser/pkg/minify"
)

// Server exposes a minify.Engine over gRPC
type Server struct {
	Engine minify.Engine
}

// NewServer creates a gRPC server with the minifier and health services registered
func NewServer(engine minify.Engine, opts ...grpc.ServerOption) *grpc.Server {
	server := grpc.NewServer(opts...)
	RegisterMinifierServer(server, &Server{Engine: engine})
	StartHealthServer(server)
	return server
}

// Minify implements MinifierServer
func (s *Server) Minify(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	fields := req.GetFields()
	code := fields[FieldCode].GetStringValue()
	file := fields[FieldFile].GetStringValue()

	var config map[string]any
	if cfg := fields[FieldConfig].GetStructValue(); cfg != nil {
		config = cfg.AsMap()
	}

	out, err := s.Engine.Minify(ctx, []byte(code), file, config)
	if err != nil {
		return nil, status.Error(codes.InvalidArgument, err.Error())
	}

	resp, err := structpb.NewStruct(map[string]any{FieldCode: string(out)})
	if err != nil {
		return nil, status.Error(codes.Internal, err.Error())
	}
	return resp, nil
}

// RunGRPCServer serves server on port until it stops
func RunGRPCServer(server *grpc.Server, port int) error {
	if port <= 0 {
		return fmt.Errorf("invalid port: %d", port)
	}

	listener, err := net.Listen("tcp", fmt.Sprintf(":%d", port))
	if err != nil {
		return fmt.Errorf("failed to listen on port %d: %w", port, err)
	}

	log.WithField("port", port).Info("Starting minifier server")
	return server.Serve(listener)
}

// StartHealthServer registers the gRPC health checking service
func StartHealthServer(server *grpc.Server) *health.Server {
	healthServer := health.NewServer()
	healthServer.SetServingStatus("", healthpb.HealthCheckResponse_SERVING)
	healthpb.RegisterHealthServer(server, healthServer)
	return healthServer
}
