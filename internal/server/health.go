package server

import (
	"context"
	"fmt"

	"github.com/luckykangaroo/backend/internal/graph"
)

// HealthService reports whether the backing stores are reachable.
type HealthService interface {
	Probe(ctx context.Context) error
}

// GraphHealthService probes Bolt connectivity. A nil client (in-memory
// deployment) always probes healthy.
type GraphHealthService struct {
	Client graph.Client
}

func (s GraphHealthService) Probe(ctx context.Context) error {
	if s.Client == nil {
		return nil
	}
	if err := s.Client.VerifyConnectivity(ctx); err != nil {
		return fmt.Errorf("graph connectivity: %w", err)
	}
	return nil
}
