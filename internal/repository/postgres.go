// Package repository содержит журнал событий аукциона и попыток переводов в PostgreSQL.
package repository

import (
	"context"
	"embed"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jackc/pgx/v5/stdlib"
	"github.com/pressly/goose/v3"

	"github.com/mmeshcher/escrow-auction/internal/model"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

// DefaultEventsLimit ограничивает выборку журнала, если лимит не задан.
const DefaultEventsLimit = 100

var retryDelays = []time.Duration{1 * time.Second, 3 * time.Second, 5 * time.Second}

// PostgresRepository хранит журнал аукциона в PostgreSQL.
type PostgresRepository struct {
	pool   *pgxpool.Pool
	delays []time.Duration
}

// NewPostgresRepository создаёт репозиторий и применяет миграции.
func NewPostgresRepository(dsn string) (*PostgresRepository, error) {
	cfg, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, fmt.Errorf("parse pool config: %w", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("create pool: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	r := &PostgresRepository{pool: pool, delays: retryDelays}

	if err := r.runMigrations(ctx); err != nil {
		pool.Close()
		return nil, err
	}

	return r, nil
}

func (r *PostgresRepository) runMigrations(ctx context.Context) error {
	db := stdlib.OpenDBFromPool(r.pool)
	defer db.Close()

	goose.SetBaseFS(migrationsFS)

	if err := goose.SetDialect("postgres"); err != nil {
		return fmt.Errorf("set dialect: %w", err)
	}

	if err := goose.UpContext(ctx, db, "migrations"); err != nil {
		return fmt.Errorf("run migrations: %w", err)
	}

	return nil
}

// Close закрывает пул соединений.
func (r *PostgresRepository) Close() error {
	r.pool.Close()
	return nil
}

// SaveEvents записывает пачку событий одной транзакцией. Повторная запись события
// с тем же идентификатором игнорируется.
func (r *PostgresRepository) SaveEvents(ctx context.Context, events []model.Event) error {
	if len(events) == 0 {
		return nil
	}

	return withRetry(ctx, r.delays, func() error {
		tx, err := r.pool.Begin(ctx)
		if err != nil {
			return fmt.Errorf("begin tx: %w", err)
		}
		defer tx.Rollback(ctx)

		batch := &pgx.Batch{}
		for _, ev := range events {
			batch.Queue(
				`INSERT INTO auction_events
				 (id, sequence, type, participant, amount, seller, seller_amount, owner, commission, occurred_at)
				 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
				 ON CONFLICT (id) DO NOTHING`,
				ev.ID, ev.Sequence, string(ev.Type), nullString(ev.Participant), ev.Amount,
				nullString(ev.Seller), ev.SellerAmount, nullString(ev.Owner), ev.Commission, ev.OccurredAt,
			)
		}

		if err := tx.SendBatch(ctx, batch).Close(); err != nil {
			return fmt.Errorf("insert events: %w", err)
		}

		if err := tx.Commit(ctx); err != nil {
			return fmt.Errorf("commit tx: %w", err)
		}
		return nil
	})
}

// SaveTransfer записывает попытку перевода.
func (r *PostgresRepository) SaveTransfer(ctx context.Context, rec model.TransferRecord) error {
	return withRetry(ctx, r.delays, func() error {
		_, err := r.pool.Exec(ctx,
			`INSERT INTO transfers (id, idempotency_key, recipient, amount, status, error, created_at)
			 VALUES ($1, $2, $3, $4, $5, $6, $7)
			 ON CONFLICT (id) DO NOTHING`,
			rec.ID, rec.IdempotencyKey, rec.Recipient, rec.Amount, string(rec.Status), rec.Error, rec.CreatedAt,
		)
		if err != nil {
			return fmt.Errorf("insert transfer: %w", err)
		}
		return nil
	})
}

// GetEvents возвращает последние limit событий в порядке возникновения.
func (r *PostgresRepository) GetEvents(ctx context.Context, limit int) ([]model.Event, error) {
	if limit <= 0 {
		limit = DefaultEventsLimit
	}

	rows, err := r.pool.Query(ctx,
		`SELECT id, sequence, type, participant, amount, seller, seller_amount, owner, commission, occurred_at
		 FROM (
		     SELECT * FROM auction_events
		     ORDER BY occurred_at DESC, sequence DESC
		     LIMIT $1
		 ) latest
		 ORDER BY occurred_at, sequence`,
		limit,
	)
	if err != nil {
		return nil, fmt.Errorf("select events: %w", err)
	}
	defer rows.Close()

	var res []model.Event
	for rows.Next() {
		var (
			ev                         model.Event
			evType                     string
			participant, seller, owner *string
		)
		if err := rows.Scan(&ev.ID, &ev.Sequence, &evType, &participant, &ev.Amount,
			&seller, &ev.SellerAmount, &owner, &ev.Commission, &ev.OccurredAt); err != nil {
			return nil, fmt.Errorf("scan event: %w", err)
		}

		ev.Type = model.EventType(evType)
		ev.Participant = deref(participant)
		ev.Seller = deref(seller)
		ev.Owner = deref(owner)
		res = append(res, ev)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows error: %w", err)
	}

	return res, nil
}

func withRetry(ctx context.Context, delays []time.Duration, fn func() error) error {
	var err error

	for i := 0; i <= len(delays); i++ {
		err = fn()
		if err == nil {
			return nil
		}

		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			return err
		}

		if !isRetryable(err) || i == len(delays) {
			break
		}

		t := time.NewTimer(delays[i])
		select {
		case <-ctx.Done():
			t.Stop()
			return errors.Join(err, ctx.Err())
		case <-t.C:
		}
	}
	return err
}

func isRetryable(err error) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == pgerrcode.SerializationFailure ||
			pgErr.Code == pgerrcode.DeadlockDetected ||
			pgerrcode.IsConnectionException(pgErr.Code)
	}
	return isConnectionError(err)
}

func isConnectionError(err error) bool {
	msg := err.Error()
	return strings.Contains(msg, "connection refused") ||
		strings.Contains(msg, "broken pipe") ||
		strings.Contains(msg, "connection reset by peer")
}

func nullString(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
