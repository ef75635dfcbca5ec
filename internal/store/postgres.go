package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/sluu99/sabbathtext-sub001/internal/core"
)

// Postgres is the durable AccountStore. Account creation is idempotent
// via ON CONFLICT DO NOTHING followed by a re-read, so concurrent
// create-or-get calls for the same phone number converge on one row.
type Postgres struct {
	pool *pgxpool.Pool
}

func NewPostgres(pool *pgxpool.Pool) *Postgres {
	return &Postgres{pool: pool}
}

const accountCols = `id, phone_number, status, zip_code, last_sabbath_message_time, cycle_key, recently_sent_verses, created_at, updated_at`

func (s *Postgres) GetByPhone(ctx context.Context, phone string) (*core.Account, error) {
	row := s.pool.QueryRow(ctx, `SELECT `+accountCols+` FROM accounts WHERE phone_number=$1`, phone)
	acct, err := scanAccount(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	return acct, err
}

func (s *Postgres) GetOrCreate(ctx context.Context, phone string) (*core.Account, bool, error) {
	tag, err := s.pool.Exec(ctx, `
		INSERT INTO accounts(phone_number) VALUES($1)
		ON CONFLICT (phone_number) DO NOTHING
	`, phone)
	if err != nil {
		return nil, false, fmt.Errorf("insert account: %w", err)
	}
	created := tag.RowsAffected() == 1

	acct, err := s.GetByPhone(ctx, phone)
	if err != nil {
		// The insert raced a delete or the read failed; either way the
		// caller retries via queue redelivery.
		return nil, false, fmt.Errorf("read back account: %w", err)
	}
	return acct, created, nil
}

func (s *Postgres) Update(ctx context.Context, acct *core.Account) error {
	var last any
	if !acct.LastSabbathMessageTime.IsZero() {
		last = acct.LastSabbathMessageTime
	}
	tag, err := s.pool.Exec(ctx, `
		UPDATE accounts
		SET status=$2, zip_code=$3, last_sabbath_message_time=$4,
		    cycle_key=$5, recently_sent_verses=$6, updated_at=now()
		WHERE id=$1
	`, acct.ID, string(acct.Status), acct.ZipCode, last, acct.CycleKey, acct.RecentlySentVerses)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *Postgres) RecordMessage(ctx context.Context, accountID string, msg *core.Message) error {
	_, err := s.pool.Exec(ctx, `
		INSERT INTO message_history(account_id, message_id, sender, recipient, body, external_id)
		VALUES($1, $2, $3, $4, $5, $6)
	`, accountID, msg.ID, msg.Sender, msg.Recipient, msg.Body, msg.ExternalID)
	return err
}

func (s *Postgres) GetKeyValue(ctx context.Context, key string) (string, error) {
	var v string
	err := s.pool.QueryRow(ctx, `SELECT value FROM key_values WHERE key=$1`, key).Scan(&v)
	if errors.Is(err, pgx.ErrNoRows) {
		return "", ErrNotFound
	}
	return v, err
}

func (s *Postgres) PutKeyValue(ctx context.Context, key, value string) error {
	_, err := s.pool.Exec(ctx, `
		INSERT INTO key_values(key, value) VALUES($1, $2)
		ON CONFLICT (key) DO UPDATE SET value=EXCLUDED.value, updated_at=now()
	`, key, value)
	return err
}

func scanAccount(row pgx.Row) (*core.Account, error) {
	var (
		a      core.Account
		status string
		last   *time.Time
	)
	err := row.Scan(&a.ID, &a.PhoneNumber, &status, &a.ZipCode, &last, &a.CycleKey, &a.RecentlySentVerses, &a.CreatedAt, &a.UpdatedAt)
	if err != nil {
		return nil, err
	}
	a.Status = core.AccountStatus(status)
	if last != nil {
		a.LastSabbathMessageTime = *last
	}
	return &a, nil
}
