package redis_test

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	backend "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aretw0/espalier/pkg/adapters/redis"
	"github.com/aretw0/espalier/pkg/domain"
)

func setup(t *testing.T, opts ...redis.Option) (*redis.Store, *miniredis.Miniredis) {
	t.Helper()
	mr, err := miniredis.Run()
	require.NoError(t, err)
	t.Cleanup(mr.Close)

	client := backend.NewClient(&backend.Options{Addr: mr.Addr()})
	store := redis.NewFromClient(client, opts...)
	t.Cleanup(func() { store.Close() })
	return store, mr
}

func testFlow(id, name string) *domain.Flow {
	return &domain.Flow{
		ID:   id,
		Name: name,
		Nodes: []*domain.Node{
			{ID: "question_1", Type: domain.NodeTypeQuestion, Question: "Powered on?",
				ExpectedAnswers: []domain.Answer{{Value: "Yes"}, {Value: "No"}}},
			{ID: "message_1", Type: domain.NodeTypeMessage, Message: "Plug it in."},
		},
		Edges: []*domain.Edge{
			{ID: "edge_aaaaaaaa_bbbbbbbb", Source: "question_1", Target: "message_1",
				Label: "No", SourcePort: "no", TargetPort: "input"},
		},
	}
}

func TestStore_RoundTrip(t *testing.T) {
	store, _ := setup(t)
	ctx := context.Background()

	require.NoError(t, store.SaveFlow(ctx, "p1", testFlow("triage", "Triage")))

	got, err := store.LoadFlow(ctx, "p1", "triage")
	require.NoError(t, err)
	assert.Equal(t, "Triage", got.Name)
	require.Len(t, got.Nodes, 2)
	assert.Equal(t, "no", got.Edges[0].SourcePort)
}

func TestStore_LoadMissing(t *testing.T) {
	store, _ := setup(t)
	_, err := store.LoadFlow(context.Background(), "p1", "ghost")
	assert.ErrorIs(t, err, domain.ErrFlowNotFound)
}

func TestStore_DeleteFlow(t *testing.T) {
	store, _ := setup(t)
	ctx := context.Background()
	require.NoError(t, store.SaveFlow(ctx, "p1", testFlow("triage", "Triage")))

	require.NoError(t, store.DeleteFlow(ctx, "p1", "triage"))
	_, err := store.LoadFlow(ctx, "p1", "triage")
	assert.ErrorIs(t, err, domain.ErrFlowNotFound)

	flows, err := store.ListFlows(ctx, "p1")
	require.NoError(t, err)
	assert.Empty(t, flows)

	// Deleting again is not an error.
	assert.NoError(t, store.DeleteFlow(ctx, "p1", "triage"))
}

func TestStore_ListFlowsIsolatesProjects(t *testing.T) {
	store, _ := setup(t)
	ctx := context.Background()

	require.NoError(t, store.SaveFlow(ctx, "p1", testFlow("a", "Alpha")))
	require.NoError(t, store.SaveFlow(ctx, "p1", testFlow("b", "Beta")))
	require.NoError(t, store.SaveFlow(ctx, "p2", testFlow("c", "Elsewhere")))

	flows, err := store.ListFlows(ctx, "p1")
	require.NoError(t, err)
	require.Len(t, flows, 2)
	assert.ElementsMatch(t, []string{"Alpha", "Beta"}, []string{flows[0].Name, flows[1].Name})
}

func TestStore_TTLPrunesIndex(t *testing.T) {
	store, mr := setup(t, redis.WithTTL(time.Second))
	ctx := context.Background()

	require.NoError(t, store.SaveFlow(ctx, "p1", testFlow("triage", "Triage")))

	flows, err := store.ListFlows(ctx, "p1")
	require.NoError(t, err)
	assert.Len(t, flows, 1)

	mr.FastForward(2 * time.Second)

	_, err = store.LoadFlow(ctx, "p1", "triage")
	assert.ErrorIs(t, err, domain.ErrFlowNotFound)

	// The expired payload drops out of the listing lazily.
	flows, err = store.ListFlows(ctx, "p1")
	require.NoError(t, err)
	assert.Empty(t, flows)
}

func TestLocker_MutualExclusion(t *testing.T) {
	_, mr := setup(t)
	client := backend.NewClient(&backend.Options{Addr: mr.Addr()})
	locker := redis.NewLocker(client, "espalier:")
	ctx := context.Background()

	unlock, err := locker.Lock(ctx, "p1/triage", time.Minute)
	require.NoError(t, err)

	// A second editor cannot take the same flow while it is held.
	short, cancel := context.WithTimeout(ctx, 300*time.Millisecond)
	defer cancel()
	_, err = locker.Lock(short, "p1/triage", time.Minute)
	assert.ErrorIs(t, err, context.DeadlineExceeded)

	require.NoError(t, unlock(ctx))

	unlock2, err := locker.Lock(ctx, "p1/triage", time.Minute)
	require.NoError(t, err)
	require.NoError(t, unlock2(ctx))
}
