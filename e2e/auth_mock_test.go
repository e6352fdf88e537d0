//go:build e2e
// +build e2e

package e2e

import (
	"context"
	"fmt"
	"net"
	"os"
	"strings"
	"testing"

	authpb "github.com/vibast-solutions/ms-go-auth/app/types"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"
)

const (
	authMockAddr = "0.0.0.0:38084"

	envConsoleKey   = "APPROVALS_CALLER_API_KEY"
	envReportingKey = "APPROVALS_NO_ACCESS_API_KEY"
	envAppKey       = "APPROVALS_APP_API_KEY"
)

// Default keys: the reviewer console may call the approvals service, the reports job may not.
var defaultKeys = map[string]string{
	envConsoleKey:   "reviewer-console-key",
	envReportingKey: "payment-reports-key",
	envAppKey:       "payment-approvals-app-key",
}

func keyFromEnv(name string) string {
	if value := strings.TrimSpace(os.Getenv(name)); value != "" {
		return value
	}
	return defaultKeys[name]
}

func callerAPIKey() string   { return keyFromEnv(envConsoleKey) }
func noAccessAPIKey() string { return keyFromEnv(envReportingKey) }
func appAPIKey() string      { return keyFromEnv(envAppKey) }

// authGRPCServer answers ValidateInternalAccess from a fixed caller table.
type authGRPCServer struct {
	authpb.UnimplementedAuthServiceServer
}

func callerTable() map[string]*authpb.ValidateInternalAccessResponse {
	return map[string]*authpb.ValidateInternalAccessResponse{
		callerAPIKey(): {
			ServiceName:   "reviewer-console",
			AllowedAccess: []string{"payment-approvals-service"},
		},
		noAccessAPIKey(): {
			ServiceName:   "payment-reports-job",
			AllowedAccess: []string{"payment-reports-service"},
		},
	}
}

func (s *authGRPCServer) ValidateInternalAccess(ctx context.Context, req *authpb.ValidateInternalAccessRequest) (*authpb.ValidateInternalAccessResponse, error) {
	if incomingAPIKey(ctx) != appAPIKey() {
		return nil, status.Error(codes.Unauthenticated, "approvals service presented an unknown app key")
	}

	caller, ok := callerTable()[strings.TrimSpace(req.GetApiKey())]
	if !ok {
		return nil, status.Error(codes.Unauthenticated, "unknown caller key")
	}
	return caller, nil
}

func incomingAPIKey(ctx context.Context) string {
	md, ok := metadata.FromIncomingContext(ctx)
	if !ok {
		return ""
	}
	values := md.Get("x-api-key")
	if len(values) == 0 {
		return ""
	}
	return strings.TrimSpace(values[0])
}

func TestMain(m *testing.M) {
	for name, value := range defaultKeys {
		if os.Getenv(name) == "" {
			_ = os.Setenv(name, value)
		}
	}

	listener, err := net.Listen("tcp", authMockAddr)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to start auth grpc mock: %v\n", err)
		os.Exit(1)
	}

	grpcServer := grpc.NewServer()
	authpb.RegisterAuthServiceServer(grpcServer, &authGRPCServer{})

	go func() {
		_ = grpcServer.Serve(listener)
	}()

	exitCode := m.Run()

	grpcServer.GracefulStop()
	_ = listener.Close()

	os.Exit(exitCode)
}
