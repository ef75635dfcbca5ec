package queue_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/sluu99/sabbathtext-sub001/internal/clock"
	"github.com/sluu99/sabbathtext-sub001/internal/queue"
)

var t0 = time.Date(2015, 4, 20, 0, 0, 0, 0, time.UTC)

func newQueue() (*queue.Memory, *clock.Fake) {
	clk := clock.NewFake(t0)
	return queue.NewMemory(clk), clk
}

func TestAddAndGet_FIFO(t *testing.T) {
	q, _ := newQueue()
	ctx := context.Background()

	id1, err := q.Add(ctx, "first", 0, time.Hour)
	require.NoError(t, err)
	id2, err := q.Add(ctx, "second", 0, time.Hour)
	require.NoError(t, err)
	require.NotEqual(t, id1, id2)

	m, err := q.Get(ctx, time.Minute)
	require.NoError(t, err)
	require.Equal(t, "first", m.Body)
	require.Equal(t, 1, m.DequeueCount)

	m, err = q.Get(ctx, time.Minute)
	require.NoError(t, err)
	require.Equal(t, "second", m.Body)
}

func TestGet_EmptyReturnsNil(t *testing.T) {
	q, _ := newQueue()
	m, err := q.Get(context.Background(), time.Minute)
	require.NoError(t, err)
	require.Nil(t, m)
}

func TestVisibilityDelay(t *testing.T) {
	q, clk := newQueue()
	ctx := context.Background()

	_, err := q.Add(ctx, "later", 10*time.Minute, time.Hour)
	require.NoError(t, err)

	m, err := q.Get(ctx, time.Minute)
	require.NoError(t, err)
	require.Nil(t, m)

	clk.Advance(10 * time.Minute)
	m, err = q.Get(ctx, time.Minute)
	require.NoError(t, err)
	require.NotNil(t, m)
	require.Equal(t, "later", m.Body)
}

// A fetched, undeleted message reappears only after the full
// visibility timeout.
func TestVisibilityTimeout_Redelivery(t *testing.T) {
	q, clk := newQueue()
	ctx := context.Background()

	id, err := q.Add(ctx, "work", 0, 24*time.Hour)
	require.NoError(t, err)

	m, err := q.Get(ctx, time.Minute)
	require.NoError(t, err)
	require.Equal(t, id, m.ID)
	require.Equal(t, 1, m.DequeueCount)

	// Hidden inside the window.
	m2, err := q.Get(ctx, time.Minute)
	require.NoError(t, err)
	require.Nil(t, m2)

	clk.Advance(59 * time.Second)
	m2, err = q.Get(ctx, time.Minute)
	require.NoError(t, err)
	require.Nil(t, m2)

	clk.Advance(2 * time.Second)
	m2, err = q.Get(ctx, time.Minute)
	require.NoError(t, err)
	require.NotNil(t, m2)
	require.Equal(t, id, m2.ID)
	require.Equal(t, 2, m2.DequeueCount)
}

func TestDuplicateBodiesAllowed(t *testing.T) {
	q, _ := newQueue()
	ctx := context.Background()

	id1, err := q.Add(ctx, "same", 0, time.Hour)
	require.NoError(t, err)
	id2, err := q.Add(ctx, "same", 0, time.Hour)
	require.NoError(t, err)
	require.NotEqual(t, id1, id2)

	m1, err := q.Get(ctx, time.Minute)
	require.NoError(t, err)
	m2, err := q.Get(ctx, time.Minute)
	require.NoError(t, err)
	require.NotEqual(t, m1.ID, m2.ID)
	require.Equal(t, "same", m1.Body)
	require.Equal(t, "same", m2.Body)
}

func TestDeleteIdempotent(t *testing.T) {
	q, _ := newQueue()
	ctx := context.Background()

	id, err := q.Add(ctx, "gone", 0, time.Hour)
	require.NoError(t, err)

	require.NoError(t, q.Delete(ctx, id))
	require.NoError(t, q.Delete(ctx, id))
	require.NoError(t, q.Delete(ctx, "never-existed"))

	m, err := q.Get(ctx, time.Minute)
	require.NoError(t, err)
	require.Nil(t, m)
}

func TestExpiration(t *testing.T) {
	q, clk := newQueue()
	ctx := context.Background()

	_, err := q.Add(ctx, "short-lived", 0, time.Hour)
	require.NoError(t, err)

	clk.Advance(2 * time.Hour)
	m, err := q.Get(ctx, time.Minute)
	require.NoError(t, err)
	require.Nil(t, m)
	require.Equal(t, 0, q.Len())
}

// No two concurrent consumers may claim the same message inside one
// visibility window.
func TestConcurrentGet_NoDuplicateClaims(t *testing.T) {
	q, _ := newQueue()
	ctx := context.Background()

	const total = 200
	for i := 0; i < total; i++ {
		_, err := q.Add(ctx, "job", 0, time.Hour)
		require.NoError(t, err)
	}

	var (
		mu   sync.Mutex
		seen = make(map[string]bool)
		wg   sync.WaitGroup
	)
	for w := 0; w < 8; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for {
				m, err := q.Get(ctx, time.Hour)
				require.NoError(t, err)
				if m == nil {
					return
				}
				mu.Lock()
				require.False(t, seen[m.ID], "duplicate claim: %s", m.ID)
				seen[m.ID] = true
				mu.Unlock()
			}
		}()
	}
	wg.Wait()
	require.Len(t, seen, total)
}
