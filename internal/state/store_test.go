package state

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func openTestStore(t *testing.T) (*Store, string) {
	t.Helper()
	path := Path(t.TempDir())
	s, err := Open(context.Background(), path)
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s, path
}

func TestPath(t *testing.T) {
	assert.Equal(t, filepath.Join("/charm", ".unit-state.db"), Path("/charm"))
}

func TestUnitStateRoundTrip(t *testing.T) {
	ctx := context.Background()
	s, path := openTestStore(t)

	u, err := s.LoadUnit(ctx)
	require.NoError(t, err)
	assert.Equal(t, Unit{}, u)

	require.NoError(t, s.SaveUnit(ctx, Unit{IngressURL: "http://example.test/"}))
	require.NoError(t, s.SaveUnit(ctx, Unit{IngressURL: "http://other.test/"}))
	require.NoError(t, s.Close())

	reopened, err := Open(ctx, path)
	require.NoError(t, err)
	defer reopened.Close()

	u, err = reopened.LoadUnit(ctx)
	require.NoError(t, err)
	assert.Equal(t, "http://other.test/", u.IngressURL)
}

func TestDeferredEvents(t *testing.T) {
	ctx := context.Background()
	s, _ := openTestStore(t)

	events, err := s.DeferredEvents(ctx)
	require.NoError(t, err)
	assert.Empty(t, events)

	require.NoError(t, s.Defer(ctx, DeferredEvent{Kind: "config-changed"}))
	require.NoError(t, s.Defer(ctx, DeferredEvent{Kind: "reductstore-pebble-ready", Workload: "reductstore"}))
	// Duplicate of the first one stays in place.
	require.NoError(t, s.Defer(ctx, DeferredEvent{Kind: "config-changed"}))

	events, err = s.DeferredEvents(ctx)
	require.NoError(t, err)
	require.Len(t, events, 2)
	assert.Equal(t, "config-changed", events[0].Kind)
	assert.Equal(t, "reductstore-pebble-ready", events[1].Kind)
	assert.Equal(t, "reductstore", events[1].Workload)
	assert.False(t, events[0].DeferredAt.IsZero())

	require.NoError(t, s.Remove(ctx, events[0].ID))

	events, err = s.DeferredEvents(ctx)
	require.NoError(t, err)
	require.Len(t, events, 1)
	assert.Equal(t, "reductstore-pebble-ready", events[0].Kind)
}

func TestDeferredRelationEventsAreKeyedByRelation(t *testing.T) {
	ctx := context.Background()
	s, _ := openTestStore(t)

	require.NoError(t, s.Defer(ctx, DeferredEvent{Kind: "ingress-relation-changed", RelationName: "ingress", RelationID: "ingress:1", RemoteApp: "traefik"}))
	require.NoError(t, s.Defer(ctx, DeferredEvent{Kind: "ingress-relation-changed", RelationName: "ingress", RelationID: "ingress:2", RemoteApp: "traefik-b"}))

	events, err := s.DeferredEvents(ctx)
	require.NoError(t, err)
	require.Len(t, events, 2)
	assert.Equal(t, "traefik-b", events[1].RemoteApp)
}
