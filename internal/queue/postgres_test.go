package queue_test

import (
	"context"
	"os"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/sluu99/sabbathtext-sub001/internal/queue"
	"github.com/sluu99/sabbathtext-sub001/internal/store"
)

func pgQueue(t *testing.T, name string) *queue.Postgres {
	t.Helper()
	if os.Getenv("SKIP_DOCKER_TESTS") != "" {
		t.Skip("docker tests disabled")
	}
	return queue.NewPostgres(store.StartTestPostgres(t), name)
}

func TestPG_AddGetDelete(t *testing.T) {
	q := pgQueue(t, "test")
	ctx := context.Background()

	id, err := q.Add(ctx, "payload", 0, time.Hour)
	require.NoError(t, err)
	require.NotEmpty(t, id)

	m, err := q.Get(ctx, time.Minute)
	require.NoError(t, err)
	require.NotNil(t, m)
	require.Equal(t, id, m.ID)
	require.Equal(t, "payload", m.Body)
	require.Equal(t, 1, m.DequeueCount)

	require.NoError(t, q.Delete(ctx, id))
	require.NoError(t, q.Delete(ctx, id)) // idempotent

	m, err = q.Get(ctx, time.Minute)
	require.NoError(t, err)
	require.Nil(t, m)
}

func TestPG_VisibilityTimeoutRedelivers(t *testing.T) {
	q := pgQueue(t, "test")
	ctx := context.Background()

	id, err := q.Add(ctx, "payload", 0, time.Hour)
	require.NoError(t, err)

	m, err := q.Get(ctx, 400*time.Millisecond)
	require.NoError(t, err)
	require.NotNil(t, m)

	// Invisible inside the window.
	m2, err := q.Get(ctx, 400*time.Millisecond)
	require.NoError(t, err)
	require.Nil(t, m2)

	time.Sleep(600 * time.Millisecond)
	m2, err = q.Get(ctx, time.Minute)
	require.NoError(t, err)
	require.NotNil(t, m2)
	require.Equal(t, id, m2.ID)
	require.Equal(t, 2, m2.DequeueCount)
}

func TestPG_VisibilityDelay(t *testing.T) {
	q := pgQueue(t, "test")
	ctx := context.Background()

	_, err := q.Add(ctx, "delayed", 500*time.Millisecond, time.Hour)
	require.NoError(t, err)

	m, err := q.Get(ctx, time.Minute)
	require.NoError(t, err)
	require.Nil(t, m)

	time.Sleep(700 * time.Millisecond)
	m, err = q.Get(ctx, time.Minute)
	require.NoError(t, err)
	require.NotNil(t, m)
	require.Equal(t, "delayed", m.Body)
}

func TestPG_Expiration(t *testing.T) {
	q := pgQueue(t, "test")
	ctx := context.Background()

	_, err := q.Add(ctx, "short-lived", 0, 300*time.Millisecond)
	require.NoError(t, err)

	time.Sleep(500 * time.Millisecond)
	m, err := q.Get(ctx, time.Minute)
	require.NoError(t, err)
	require.Nil(t, m)
}

// FOR UPDATE SKIP LOCKED must hand each message to exactly one of the
// competing consumers.
func TestPG_ConcurrentClaims(t *testing.T) {
	q := pgQueue(t, "test")
	ctx := context.Background()

	const total = 40
	for i := 0; i < total; i++ {
		_, err := q.Add(ctx, "job", 0, time.Hour)
		require.NoError(t, err)
	}

	var (
		mu   sync.Mutex
		seen = make(map[string]int)
		wg   sync.WaitGroup
	)
	for w := 0; w < 4; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for {
				m, err := q.Get(ctx, time.Hour)
				if err != nil || m == nil {
					return
				}
				mu.Lock()
				seen[m.ID]++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	require.Len(t, seen, total)
	for id, n := range seen {
		require.Equal(t, 1, n, "message %s claimed %d times", id, n)
	}
}

// Queues sharing a table are isolated by name.
func TestPG_PartitionIsolation(t *testing.T) {
	if os.Getenv("SKIP_DOCKER_TESTS") != "" {
		t.Skip("docker tests disabled")
	}
	pool := store.StartTestPostgres(t)
	a := queue.NewPostgres(pool, "inbound")
	b := queue.NewPostgres(pool, "outbound")
	ctx := context.Background()

	_, err := a.Add(ctx, "for-a", 0, time.Hour)
	require.NoError(t, err)

	m, err := b.Get(ctx, time.Minute)
	require.NoError(t, err)
	require.Nil(t, m)

	m, err = a.Get(ctx, time.Minute)
	require.NoError(t, err)
	require.NotNil(t, m)
	require.Equal(t, "for-a", m.Body)
}
