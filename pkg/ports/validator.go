package ports

import (
	"context"

	"github.com/aretw0/espalier/pkg/domain"
)

// FlowValidator judges a snapshot and returns diagnostics for display.
// Validation never mutates the flow it inspects.
type FlowValidator interface {
	Validate(ctx context.Context, flow *domain.Flow) (*domain.Report, error)
}

// FlowValidatorFunc adapts a function to the FlowValidator interface.
type FlowValidatorFunc func(ctx context.Context, flow *domain.Flow) (*domain.Report, error)

func (f FlowValidatorFunc) Validate(ctx context.Context, flow *domain.Flow) (*domain.Report, error) {
	return f(ctx, flow)
}
