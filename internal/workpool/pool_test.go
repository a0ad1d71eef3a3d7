package workpool

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"reporag/internal/domain"
)

func TestDo_ReturnsResult(t *testing.T) {
	p, err := New(2)
	require.NoError(t, err)
	defer p.Release()

	v, err := Do(context.Background(), p, func() (string, error) { return "done", nil })
	require.NoError(t, err)
	assert.Equal(t, "done", v)

	_, err = Do(context.Background(), p, func() (int, error) { return 0, errors.New("boom") })
	assert.EqualError(t, err, "boom")
}

func TestDo_ContextCancelled(t *testing.T) {
	p, err := New(1)
	require.NoError(t, err)
	defer p.Release()

	ctx, cancel := context.WithCancel(context.Background())
	release := make(chan struct{})
	go func() {
		time.Sleep(10 * time.Millisecond)
		cancel()
	}()

	_, err = Do(ctx, p, func() (int, error) {
		<-release
		return 1, nil
	})
	assert.ErrorIs(t, err, context.Canceled)
	close(release)
}

func TestMap_PreservesOrderAndBoundsConcurrency(t *testing.T) {
	p, err := New(DefaultSize)
	require.NoError(t, err)
	defer p.Release()

	var running, peak atomic.Int32
	items := []int{1, 2, 3, 4, 5, 6, 7, 8, 9, 10}
	out, err := Map(context.Background(), p, items, func(_ int, v int) (int, error) {
		n := running.Add(1)
		for {
			old := peak.Load()
			if n <= old || peak.CompareAndSwap(old, n) {
				break
			}
		}
		time.Sleep(5 * time.Millisecond)
		running.Add(-1)
		return v * v, nil
	})
	require.NoError(t, err)
	assert.Equal(t, []int{1, 4, 9, 16, 25, 36, 49, 64, 81, 100}, out)
	assert.LessOrEqual(t, peak.Load(), int32(DefaultSize))
}

func TestMap_ReturnsError(t *testing.T) {
	p, err := New(2)
	require.NoError(t, err)
	defer p.Release()

	_, err = Map(context.Background(), p, []string{"a", "b", "c"}, func(i int, s string) (string, error) {
		if s == "b" {
			return "", errors.New("bad item")
		}
		return s, nil
	})
	assert.EqualError(t, err, "bad item")
}

func TestRelease_Idempotent(t *testing.T) {
	p, err := New(1)
	require.NoError(t, err)
	p.Release()
	p.Release()

	err = p.Submit(func() {})
	assert.ErrorIs(t, err, domain.ErrClosed)
}
