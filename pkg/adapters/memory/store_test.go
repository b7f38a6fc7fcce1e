package memory_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aretw0/espalier/pkg/adapters/memory"
	"github.com/aretw0/espalier/pkg/domain"
)

func flowWith(id, name string) *domain.Flow {
	return &domain.Flow{
		ID:   id,
		Name: name,
		Nodes: []*domain.Node{
			{ID: "message_1", Type: domain.NodeTypeMessage, Message: "done"},
		},
	}
}

func TestStore_RoundTrip(t *testing.T) {
	store := memory.NewStore()
	ctx := context.Background()

	require.NoError(t, store.SaveFlow(ctx, "p1", flowWith("triage", "Triage")))

	got, err := store.LoadFlow(ctx, "p1", "triage")
	require.NoError(t, err)
	assert.Equal(t, "Triage", got.Name)
}

func TestStore_CopiesIsolateCallers(t *testing.T) {
	store := memory.NewStore()
	ctx := context.Background()

	flow := flowWith("triage", "Triage")
	require.NoError(t, store.SaveFlow(ctx, "p1", flow))

	// Mutating the saved or loaded value must not touch the stored copy.
	flow.Nodes[0].Message = "changed after save"
	first, err := store.LoadFlow(ctx, "p1", "triage")
	require.NoError(t, err)
	first.Nodes[0].Message = "changed after load"

	second, err := store.LoadFlow(ctx, "p1", "triage")
	require.NoError(t, err)
	assert.Equal(t, "done", second.Nodes[0].Message)
}

func TestStore_LoadMissing(t *testing.T) {
	store := memory.NewStore()
	_, err := store.LoadFlow(context.Background(), "p1", "ghost")
	assert.ErrorIs(t, err, domain.ErrFlowNotFound)
}

func TestStore_ListAndDelete(t *testing.T) {
	store := memory.NewStore()
	ctx := context.Background()

	require.NoError(t, store.SaveFlow(ctx, "p1", flowWith("b", "Beta")))
	require.NoError(t, store.SaveFlow(ctx, "p1", flowWith("a", "Alpha")))
	require.NoError(t, store.SaveFlow(ctx, "p2", flowWith("c", "Elsewhere")))

	flows, err := store.ListFlows(ctx, "p1")
	require.NoError(t, err)
	require.Len(t, flows, 2)
	assert.Equal(t, "a", flows[0].ID)
	assert.Equal(t, "b", flows[1].ID)

	require.NoError(t, store.DeleteFlow(ctx, "p1", "a"))
	require.NoError(t, store.DeleteFlow(ctx, "p1", "a"))

	flows, err = store.ListFlows(ctx, "p1")
	require.NoError(t, err)
	assert.Len(t, flows, 1)
}
