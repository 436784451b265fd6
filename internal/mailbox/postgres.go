package mailbox

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"ciphergroup/internal/domain"
)

// Migration creates the relay item table. It is idempotent.
const Migration = `
CREATE TABLE IF NOT EXISTS relay_items (
    id        UUID PRIMARY KEY,
    recipient TEXT   NOT NULL,
    ts        BIGINT NOT NULL,
    data      TEXT   NOT NULL,
    UNIQUE (recipient, ts)
);
`

// Postgres stores mailboxes in a PostgreSQL table.
type Postgres struct {
	db        *pgxpool.Pool
	retention time.Duration
	now       func() time.Time
}

// NewPostgres connects to databaseURL and checks the connection.
func NewPostgres(ctx context.Context, databaseURL string, retention time.Duration) (*Postgres, error) {
	pool, err := pgxpool.New(ctx, databaseURL)
	if err != nil {
		return nil, fmt.Errorf("create connection pool: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}
	return &Postgres{db: pool, retention: retention, now: time.Now}, nil
}

// Close releases the pool.
func (p *Postgres) Close() { p.db.Close() }

// RunMigrations creates the schema if it is missing.
func (p *Postgres) RunMigrations(ctx context.Context) error {
	if _, err := p.db.Exec(ctx, Migration); err != nil {
		return fmt.Errorf("run migration: %w", err)
	}
	return nil
}

// Append stores data for recipient. Writers to one mailbox are serialised
// with a transaction-scoped advisory lock so timestamps stay strictly
// increasing.
func (p *Postgres) Append(ctx context.Context, recipient string, data string) (domain.Item, error) {
	now := p.now()
	item := domain.Item{ID: uuid.NewString(), Data: data}

	err := pgx.BeginFunc(ctx, p.db, func(tx pgx.Tx) error {
		if _, err := tx.Exec(ctx, `SELECT pg_advisory_xact_lock(hashtext($1))`, recipient); err != nil {
			return err
		}
		var last int64
		err := tx.QueryRow(ctx,
			`SELECT COALESCE(MAX(ts), 0) FROM relay_items WHERE recipient = $1`,
			recipient,
		).Scan(&last)
		if err != nil {
			return err
		}
		item.TS = max(now.UnixMilli(), last+1)

		if _, err := tx.Exec(ctx,
			`INSERT INTO relay_items (id, recipient, ts, data) VALUES ($1, $2, $3, $4)`,
			item.ID, recipient, item.TS, item.Data,
		); err != nil {
			return err
		}
		if p.retention > 0 {
			cutoff := now.Add(-p.retention).UnixMilli()
			if _, err := tx.Exec(ctx,
				`DELETE FROM relay_items WHERE recipient = $1 AND ts < $2`,
				recipient, cutoff,
			); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return domain.Item{}, fmt.Errorf("append to mailbox: %w", err)
	}
	return item, nil
}

// Since returns items newer than since, oldest first.
func (p *Postgres) Since(ctx context.Context, recipient string, since int64) ([]domain.Item, error) {
	rows, err := p.db.Query(ctx,
		`SELECT id::text, ts, data FROM relay_items WHERE recipient = $1 AND ts > $2 ORDER BY ts`,
		recipient, since,
	)
	if err != nil {
		return nil, fmt.Errorf("query mailbox: %w", err)
	}
	items, err := pgx.CollectRows(rows, pgx.RowToStructByPos[domain.Item])
	if err != nil {
		return nil, fmt.Errorf("scan mailbox: %w", err)
	}
	if items == nil {
		items = []domain.Item{}
	}
	return items, nil
}

// Compile-time assertion that Postgres implements domain.Mailbox.
var _ domain.Mailbox = (*Postgres)(nil)
