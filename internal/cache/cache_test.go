package cache

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/debastene/f1-psda-dashboard/internal/fact"
)

func tableOf(n int) *fact.Table {
	rows := make([]fact.Row, n)
	return fact.NewTable(rows)
}

func TestGet_HitAndMiss(t *testing.T) {
	t.Parallel()
	c := New("test")
	ctx := context.Background()
	calls := 0
	build := func(n int) BuildFunc {
		return func(context.Context) (*fact.Table, error) {
			calls++
			return tableOf(n), nil
		}
	}

	t1, err := c.Get(ctx, "fp-1", build(1))
	require.NoError(t, err)
	t2, err := c.Get(ctx, "fp-1", build(99))
	require.NoError(t, err)
	assert.Same(t, t1, t2)
	assert.Equal(t, 1, calls)

	t3, err := c.Get(ctx, "fp-2", build(2))
	require.NoError(t, err)
	assert.Equal(t, 2, t3.Len())
	assert.Equal(t, 2, calls)

	st := c.Stats()
	assert.Equal(t, Stats{Hits: 1, Misses: 2, Builds: 2, Key: "fp-2"}, st)
}

func TestGet_ErrorsAreNotCached(t *testing.T) {
	t.Parallel()
	c := New("test")
	ctx := context.Background()
	boom := errors.New("source unavailable")

	_, err := c.Get(ctx, "fp", func(context.Context) (*fact.Table, error) { return nil, boom })
	require.ErrorIs(t, err, boom)

	tbl, err := c.Get(ctx, "fp", func(context.Context) (*fact.Table, error) { return tableOf(3), nil })
	require.NoError(t, err)
	assert.Equal(t, 3, tbl.Len())

	st := c.Stats()
	assert.Equal(t, int64(2), st.Misses)
	assert.Equal(t, int64(1), st.BuildErrors)
	assert.Equal(t, int64(0), st.Hits)
}

func TestGet_ConcurrentMissesShareOneBuild(t *testing.T) {
	t.Parallel()
	c := New("test")
	ctx := context.Background()

	var builds atomic.Int32
	release := make(chan struct{})
	build := func(context.Context) (*fact.Table, error) {
		builds.Add(1)
		<-release
		return tableOf(5), nil
	}

	const n = 16
	var wg sync.WaitGroup
	results := make([]*fact.Table, n)
	started := make(chan struct{}, n)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			started <- struct{}{}
			tbl, err := c.Get(ctx, "fp", build)
			assert.NoError(t, err)
			results[i] = tbl
		}(i)
	}
	for i := 0; i < n; i++ {
		<-started
	}
	close(release)
	wg.Wait()

	// Late arrivals may find the published entry, but never build again.
	assert.Equal(t, int32(1), builds.Load())
	for _, r := range results {
		assert.Same(t, results[0], r)
	}
	st := c.Stats()
	assert.Equal(t, int64(n), st.Hits+st.Misses)
	assert.Equal(t, int64(1), st.Builds)
}

func TestInvalidate(t *testing.T) {
	t.Parallel()
	c := New("test")
	ctx := context.Background()
	build := func(context.Context) (*fact.Table, error) { return tableOf(1), nil }

	_, err := c.Get(ctx, "fp", build)
	require.NoError(t, err)
	c.Invalidate()
	assert.Equal(t, "", c.Stats().Key)

	_, err = c.Get(ctx, "fp", build)
	require.NoError(t, err)
	assert.Equal(t, int64(2), c.Stats().Builds)
}
