package server

import (
	"context"
	"fmt"
	"net/http"

	"connectrpc.com/connect"
	grpchealth "connectrpc.com/grpchealth"
	"go.opentelemetry.io/otel"
)

// ServiceName is the name reported to gRPC health checks.
const ServiceName = "repodash.Dashboard"

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, map[string]string{"status": "ok", "service": "repodash"})
}

// HealthChecker reports liveness. The server holds no connections of its own, so
// it is serving whenever it can answer.
type HealthChecker struct{}

// Check implements grpchealth.Checker.
func (HealthChecker) Check(ctx context.Context, req *grpchealth.CheckRequest) (*grpchealth.CheckResponse, error) {
	_, span := otel.Tracer("repodash/server").Start(ctx, "HealthChecker.Check")
	defer span.End()

	switch req.Service {
	case "", ServiceName:
		return &grpchealth.CheckResponse{Status: grpchealth.StatusServing}, nil
	default:
		return nil, connect.NewError(connect.CodeNotFound, fmt.Errorf("unknown service: %s", req.Service))
	}
}
