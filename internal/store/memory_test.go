package store

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestMemoryStore_PutGet(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()

	rec, err := s.Put(ctx, "master_plot", "a kingdom falls")
	assert.NoError(t, err)
	assert.Equal(t, 1, rec.Version)

	got, err := s.Get(ctx, "master_plot")
	assert.NoError(t, err)
	assert.Equal(t, "a kingdom falls", got.Content)
	assert.Equal(t, 1, got.Version)
}

func TestMemoryStore_GetMissing(t *testing.T) {
	s := NewMemoryStore()
	_, err := s.Get(context.Background(), "nope")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestMemoryStore_VersionsAccumulate(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()

	s.Put(ctx, "chapters/01/plot", "first draft")
	rec, err := s.Put(ctx, "chapters/01/plot", "second draft")
	assert.NoError(t, err)
	assert.Equal(t, 2, rec.Version)
	assert.Equal(t, 2, s.Versions("chapters/01/plot"))

	got, err := s.Get(ctx, "chapters/01/plot")
	assert.NoError(t, err)
	assert.Equal(t, "second draft", got.Content)
}

func TestMemoryStore_PendingClearedByPut(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()

	assert.NoError(t, s.MarkPending(ctx, "chapters/01/plot"))
	pending, err := s.Pending(ctx, "chapters/01/plot")
	assert.NoError(t, err)
	assert.True(t, pending)

	s.Put(ctx, "chapters/01/plot", "regenerated")
	pending, err = s.Pending(ctx, "chapters/01/plot")
	assert.NoError(t, err)
	assert.False(t, pending)
}

func TestMemoryStore_Exists(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()

	ok, err := s.Exists(ctx, "backstory")
	assert.NoError(t, err)
	assert.False(t, ok)

	s.Put(ctx, "backstory", "long ago")
	ok, err = s.Exists(ctx, "backstory")
	assert.NoError(t, err)
	assert.True(t, ok)
}

func TestWithPrefix_Isolation(t *testing.T) {
	ctx := context.Background()
	backing := NewMemoryStore()
	a := WithPrefix(backing, "stories/aaa")
	b := WithPrefix(backing, "stories/bbb")

	a.Put(ctx, "master_plot", "story A")
	b.Put(ctx, "master_plot", "story B")

	gotA, err := a.Get(ctx, "master_plot")
	assert.NoError(t, err)
	assert.Equal(t, "story A", gotA.Content)

	gotB, err := b.Get(ctx, "master_plot")
	assert.NoError(t, err)
	assert.Equal(t, "story B", gotB.Content)

	raw, err := backing.Get(ctx, "stories/aaa/master_plot")
	assert.NoError(t, err)
	assert.Equal(t, "story A", raw.Content)
}

func TestWithPrefix_PendingNamespaced(t *testing.T) {
	ctx := context.Background()
	backing := NewMemoryStore()
	a := WithPrefix(backing, "stories/aaa")
	b := WithPrefix(backing, "stories/bbb")

	a.MarkPending(ctx, "chapters/01/plot")

	pending, _ := a.Pending(ctx, "chapters/01/plot")
	assert.True(t, pending)
	pending, _ = b.Pending(ctx, "chapters/01/plot")
	assert.False(t, pending)
}
