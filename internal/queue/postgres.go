package queue

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Postgres is a durable Queue partition backed by the queue_messages
// table. Several logical queues (inbound, outbound, event) share the
// table, distinguished by the queue name column.
//
// Get claims with FOR UPDATE SKIP LOCKED so concurrent workers never
// receive the same message inside one visibility window; timestamps
// come from the database clock so all workers agree on visibility.
type Postgres struct {
	pool *pgxpool.Pool
	name string
}

// NewPostgres returns the named queue partition.
func NewPostgres(pool *pgxpool.Pool, name string) *Postgres {
	return &Postgres{pool: pool, name: name}
}

func (q *Postgres) Add(ctx context.Context, body string, visibilityDelay, lifeSpan time.Duration) (string, error) {
	var id string
	err := q.pool.QueryRow(ctx, `
		INSERT INTO queue_messages(queue, body, visible_at, expires_at)
		VALUES($1, $2, now() + $3 * interval '1 millisecond', now() + $4 * interval '1 millisecond')
		RETURNING id
	`, q.name, body, visibilityDelay.Milliseconds(), lifeSpan.Milliseconds()).Scan(&id)
	return id, err
}

func (q *Postgres) Get(ctx context.Context, visibilityTimeout time.Duration) (*Message, error) {
	var m Message
	err := q.pool.QueryRow(ctx, `
		UPDATE queue_messages
		SET visible_at = now() + $2 * interval '1 millisecond',
		    dequeue_count = dequeue_count + 1
		WHERE id = (
			SELECT id FROM queue_messages
			WHERE queue = $1 AND visible_at <= now() AND expires_at > now()
			ORDER BY inserted_at
			LIMIT 1
			FOR UPDATE SKIP LOCKED
		)
		RETURNING id, body, dequeue_count, inserted_at, visible_at, expires_at
	`, q.name, visibilityTimeout.Milliseconds()).Scan(
		&m.ID, &m.Body, &m.DequeueCount, &m.InsertionTime, &m.NextVisible, &m.ExpirationTime,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &m, nil
}

func (q *Postgres) Delete(ctx context.Context, id string) error {
	_, err := q.pool.Exec(ctx, `DELETE FROM queue_messages WHERE queue = $1 AND id = $2`, q.name, id)
	return err
}
