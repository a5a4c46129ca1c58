// Command terserd serves the terser minifier over gRPC so that hosts can run
// plugin-terser with type "remote".
package main

import (
	"os"
	"os/signal"
	"syscall"

	log "github.com/sirupsen/logrus"
	"github.com/spf13/pflag"

	"github.com/example/plugin-terser/internal/logging"
	"github.com/example/plugin-terser/pkg/grpc"
	"github.com/example/plugin-terser/pkg/minify"
)

func main() {
	port := pflag.Int("port", 50055, "Port for the gRPC server to listen on")
	logLevel := pflag.String("log-level", "info", "log level")
	logFormat := pflag.String("log-format", "text", "log format (text or json)")
	pflag.Parse()

	logger := logging.New(*logLevel, *logFormat, os.Stderr)
	log.SetLevel(logger.GetLevel())
	log.SetFormatter(logger.Formatter)

	server := grpc.NewServer(minify.ESBuild{})

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sig
		logger.Info("Shutting down minifier server")
		server.GracefulStop()
	}()

	if err := grpc.RunGRPCServer(server, *port); err != nil {
		logger.Fatalf("Failed to run server: %v", err)
	}
}
