package ports

import (
	"context"

	"github.com/aretw0/espalier/pkg/domain"
)

// FlowStore defines the interface for persisting flow snapshots.
// Implementations must return domain.ErrFlowNotFound for unknown ids.
type FlowStore interface {
	// SaveFlow persists the snapshot under (projectID, flow.ID).
	SaveFlow(ctx context.Context, projectID string, flow *domain.Flow) error

	// LoadFlow retrieves a snapshot.
	LoadFlow(ctx context.Context, projectID, flowID string) (*domain.Flow, error)

	// DeleteFlow removes a snapshot. Deleting an absent flow is not an error.
	DeleteFlow(ctx context.Context, projectID, flowID string) error

	// ListFlows returns summaries of the flows stored under a project.
	ListFlows(ctx context.Context, projectID string) ([]FlowSummary, error)
}

// FlowSummary is the listing entry for a stored flow.
type FlowSummary struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
}
