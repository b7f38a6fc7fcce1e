// Package memory implements a FlowStore in process memory. Useful for
// tests and for embedding the editor without persistence.
package memory

import (
	"context"
	"sort"
	"sync"

	"github.com/aretw0/espalier/pkg/domain"
	"github.com/aretw0/espalier/pkg/ports"
)

// Store implements ports.FlowStore in memory.
// Safe for concurrent use.
type Store struct {
	flows map[string]map[string]*domain.Flow
	mu    sync.RWMutex
}

// NewStore creates a new in-memory store.
func NewStore() *Store {
	return &Store{
		flows: make(map[string]map[string]*domain.Flow),
	}
}

// SaveFlow persists a deep copy of the flow, so later edits by the caller
// never leak into the stored snapshot.
func (s *Store) SaveFlow(ctx context.Context, projectID string, flow *domain.Flow) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	project, ok := s.flows[projectID]
	if !ok {
		project = make(map[string]*domain.Flow)
		s.flows[projectID] = project
	}
	project[flow.ID] = flow.Clone()
	return nil
}

// LoadFlow returns a copy of the stored flow.
func (s *Store) LoadFlow(ctx context.Context, projectID, flowID string) (*domain.Flow, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	flow, ok := s.flows[projectID][flowID]
	if !ok {
		return nil, domain.ErrFlowNotFound
	}
	return flow.Clone(), nil
}

// DeleteFlow removes the flow. Absent flows are not an error.
func (s *Store) DeleteFlow(ctx context.Context, projectID, flowID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.flows[projectID], flowID)
	return nil
}

// ListFlows returns summaries sorted by flow id.
func (s *Store) ListFlows(ctx context.Context, projectID string) ([]ports.FlowSummary, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	summaries := make([]ports.FlowSummary, 0, len(s.flows[projectID]))
	for _, flow := range s.flows[projectID] {
		summaries = append(summaries, ports.FlowSummary{
			ID:          flow.ID,
			Name:        flow.Name,
			Description: flow.Description,
		})
	}
	sort.Slice(summaries, func(i, j int) bool { return summaries[i].ID < summaries[j].ID })
	return summaries, nil
}
