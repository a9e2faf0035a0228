package idempotency

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	postgres "github.com/Overland-East-Bay/plan-sharing-api/internal/adapters/postgres"
	"github.com/Overland-East-Bay/plan-sharing-api/internal/ports/out/idempotency"
)

// Store is a Postgres implementation of idempotency.Store backed by idempotency_keys.
type Store struct {
	pool *pgxpool.Pool
}

func NewStore(pool *pgxpool.Pool) *Store {
	return &Store{pool: pool}
}

const fingerprintMatch = `idempotency_key = $1 AND subject = $2 AND callable = $3 AND body_hash = $4`

func fingerprintArgs(fp idempotency.Fingerprint) []any {
	return []any{string(fp.Key), string(fp.Subject), fp.Callable, fp.BodyHash}
}

func (s *Store) Get(ctx context.Context, fp idempotency.Fingerprint) (idempotency.Record, bool, error) {
	if s.pool == nil {
		return idempotency.Record{}, false, postgres.ErrNilPool
	}
	var rec idempotency.Record
	err := s.pool.QueryRow(ctx,
		`SELECT status_code, content_type, body, created_at FROM idempotency_keys WHERE `+fingerprintMatch,
		fingerprintArgs(fp)...,
	).Scan(&rec.StatusCode, &rec.ContentType, &rec.Body, &rec.CreatedAt)
	switch {
	case errors.Is(err, pgx.ErrNoRows):
		return idempotency.Record{}, false, nil
	case err != nil:
		return idempotency.Record{}, false, err
	}
	rec.CreatedAt = rec.CreatedAt.UTC()
	return rec, true, nil
}

// Put stores rec, replacing any record with the same fingerprint.
func (s *Store) Put(ctx context.Context, fp idempotency.Fingerprint, rec idempotency.Record) error {
	if s.pool == nil {
		return postgres.ErrNilPool
	}
	createdAt := rec.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now()
	}
	args := append(fingerprintArgs(fp), rec.StatusCode, rec.ContentType, rec.Body, createdAt.UTC())
	_, err := s.pool.Exec(ctx, `
		INSERT INTO idempotency_keys
			(idempotency_key, subject, callable, body_hash, status_code, content_type, body, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		ON CONFLICT (idempotency_key, subject, callable, body_hash) DO UPDATE SET
			status_code  = EXCLUDED.status_code,
			content_type = EXCLUDED.content_type,
			body         = EXCLUDED.body,
			created_at   = EXCLUDED.created_at
	`, args...)
	return err
}

func (s *Store) Prune(ctx context.Context, cutoff time.Time) (int64, error) {
	if s.pool == nil {
		return 0, postgres.ErrNilPool
	}
	tag, err := s.pool.Exec(ctx, `DELETE FROM idempotency_keys WHERE created_at < $1`, cutoff.UTC())
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}
