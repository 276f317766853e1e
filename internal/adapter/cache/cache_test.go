package cache

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"repolens/internal/adapter/llm"
	"repolens/internal/adapter/store"
)

func TestMemory_LRU(t *testing.T) {
	c := NewMemory(2, time.Hour)
	require.NoError(t, c.Put("a", "1"))
	require.NoError(t, c.Put("b", "2"))

	_, ok := c.Get("a")
	require.True(t, ok)

	require.NoError(t, c.Put("c", "3"))
	_, ok = c.Get("b")
	assert.False(t, ok, "b was least recently used")
	_, ok = c.Get("a")
	assert.True(t, ok)
	assert.Equal(t, 2, c.Size())

	c.Invalidate()
	assert.Equal(t, 0, c.Size())
}

func TestMemory_TTL(t *testing.T) {
	c := NewMemory(10, time.Minute)
	now := time.Now()
	c.now = func() time.Time { return now }
	require.NoError(t, c.Put("a", "1"))

	c.now = func() time.Time { return now.Add(2 * time.Minute) }
	_, ok := c.Get("a")
	assert.False(t, ok)
	assert.Equal(t, 0, c.Size())
}

func TestKey(t *testing.T) {
	assert.Equal(t, Key("m", "s", "p"), Key("m", "s", "p"))
	assert.NotEqual(t, Key("m", "s", "p"), Key("m2", "s", "p"))
	assert.NotEqual(t, Key("m", "sp", ""), Key("m", "s", "p"))
}

func TestCachedLLM_MemoryTier(t *testing.T) {
	mock := llm.NewMock()
	c := NewCachedLLM(mock, nil, NewMemory(10, time.Hour))
	ctx := context.Background()

	first, err := c.CompleteWithSystem(ctx, "sys", "explain `a.go`")
	require.NoError(t, err)
	second, err := c.CompleteWithSystem(ctx, "sys", "explain `a.go`")
	require.NoError(t, err)

	assert.Equal(t, first, second)
	assert.Len(t, mock.Prompts(), 1)
	hits, misses := c.Stats()
	assert.Equal(t, int64(1), hits)
	assert.Equal(t, int64(1), misses)
	assert.Equal(t, "mock", c.ModelName())
}

func TestCachedLLM_BoltTierSurvivesRestart(t *testing.T) {
	path := filepath.Join(t.TempDir(), "cache.db")
	ctx := context.Background()

	bolt, err := store.NewBoltStore(path, time.Hour)
	require.NoError(t, err)
	mock := llm.NewMock()
	_, err = NewCachedLLM(mock, nil, NewMemory(10, time.Hour), bolt).Complete(ctx, "explain `b.go`")
	require.NoError(t, err)
	require.NoError(t, bolt.Close())

	bolt, err = store.NewBoltStore(path, time.Hour)
	require.NoError(t, err)
	defer bolt.Close()

	fresh := llm.NewMock()
	mem := NewMemory(10, time.Hour)
	_, err = NewCachedLLM(fresh, nil, mem, bolt).Complete(ctx, "explain `b.go`")
	require.NoError(t, err)
	assert.Empty(t, fresh.Prompts())
	assert.Equal(t, 1, mem.Size(), "bolt hit is copied to memory")
}

func TestCachedLLM_ErrorsAreNotCached(t *testing.T) {
	mock := llm.NewMock()
	calls := 0
	mock.Respond = func(string, string) (string, error) {
		calls++
		return "", errors.New("boom")
	}
	c := NewCachedLLM(mock, nil, NewMemory(10, time.Hour))

	_, err := c.Complete(context.Background(), "x")
	assert.Error(t, err)
	_, err = c.Complete(context.Background(), "x")
	assert.Error(t, err)
	assert.Equal(t, 2, calls)
}
