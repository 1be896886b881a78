//go:build integration

package integration

import (
	"context"
	"os"
	"testing"

	"github.com/google/uuid"
	"github.com/joho/godotenv"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/keiya/multi-layered-story-generator/internal/store"
)

// TestGraphStoreRoundTrip exercises the graph backend against a live
// Neo4j-compatible database: versioning, pending markers and namespacing.
func TestGraphStoreRoundTrip(t *testing.T) {
	_ = godotenv.Load("../../.env")

	uri := os.Getenv("GRAPH_URI")
	if uri == "" {
		t.Skip("Skipping integration test: GRAPH_URI not set")
	}

	gs, err := store.NewGraphStore(uri, os.Getenv("GRAPH_USER"), os.Getenv("GRAPH_PASSWORD"))
	require.NoError(t, err)
	ctx := context.Background()
	defer gs.Close(ctx)

	require.NoError(t, gs.BuildIndices(ctx))

	s := store.WithPrefix(gs, "stories/"+uuid.New().String())

	_, err = s.Get(ctx, "master_plot")
	assert.ErrorIs(t, err, store.ErrNotFound)

	rec, err := s.Put(ctx, "master_plot", "first draft")
	require.NoError(t, err)
	assert.Equal(t, 1, rec.Version)

	rec, err = s.Put(ctx, "master_plot", "second draft")
	require.NoError(t, err)
	assert.Equal(t, 2, rec.Version)

	got, err := s.Get(ctx, "master_plot")
	require.NoError(t, err)
	assert.Equal(t, "second draft", got.Content)
	assert.Equal(t, 2, got.Version)

	ok, err := s.Exists(ctx, "master_plot")
	require.NoError(t, err)
	assert.True(t, ok)

	require.NoError(t, s.MarkPending(ctx, "chapters/01/plot"))
	pending, err := s.Pending(ctx, "chapters/01/plot")
	require.NoError(t, err)
	assert.True(t, pending)

	_, err = s.Put(ctx, "chapters/01/plot", "regenerated")
	require.NoError(t, err)
	pending, err = s.Pending(ctx, "chapters/01/plot")
	require.NoError(t, err)
	assert.False(t, pending)
}
