package server

import (
	"context"
	"errors"

	"github.com/vanshika/chronos/internal/graph"
	"github.com/vanshika/chronos/internal/service"
)

// HealthService defines behaviour for readiness probes. The report is
// attached to the health payload when non-nil.
type HealthService interface {
	Probe(ctx context.Context) (any, error)
}

// StoreHealthService reports transaction store reachability.
type StoreHealthService struct {
	Service *service.TransactionService
}

// Probe implements the HealthService interface.
func (s StoreHealthService) Probe(ctx context.Context) (any, error) {
	if s.Service == nil {
		return nil, nil
	}
	h := s.Service.Health(ctx)
	if !h.Reachable || h.Error != "" {
		return h, errors.New(h.Error)
	}
	return h, nil
}

// GraphHealthService verifies graph connectivity as part of health checks.
type GraphHealthService struct {
	Client graph.Client
}

// Probe implements the HealthService interface.
func (s GraphHealthService) Probe(ctx context.Context) (any, error) {
	if s.Client == nil {
		return nil, nil
	}
	return nil, s.Client.VerifyConnectivity(ctx)
}
