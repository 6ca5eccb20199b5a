package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/alimasry/go-collab-blocks/wire"
)

const postgresSchema = `
CREATE TABLE IF NOT EXISTS documents (
	id         TEXT PRIMARY KEY,
	snapshot   BYTEA NOT NULL,
	version    INTEGER NOT NULL DEFAULT 0,
	created_at TIMESTAMPTZ NOT NULL,
	updated_at TIMESTAMPTZ NOT NULL
);
CREATE TABLE IF NOT EXISTS operations (
	doc_id   TEXT NOT NULL REFERENCES documents (id) ON DELETE CASCADE,
	idx      INTEGER NOT NULL,
	envelope JSONB NOT NULL,
	PRIMARY KEY (doc_id, idx)
);`

// Postgres error codes.
const (
	uniqueViolation     = "23505"
	foreignKeyViolation = "23503"
)

// PostgresStore is a DocumentStore over a pgx connection pool.
type PostgresStore struct {
	pool *pgxpool.Pool
}

// NewPostgresStore connects to dsn and creates the tables it needs.
func NewPostgresStore(ctx context.Context, dsn string) (*PostgresStore, error) {
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, fmt.Errorf("connect postgres: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}
	if _, err := pool.Exec(ctx, postgresSchema); err != nil {
		pool.Close()
		return nil, fmt.Errorf("migrate postgres: %w", err)
	}
	return &PostgresStore{pool: pool}, nil
}

func (s *PostgresStore) Close() {
	s.pool.Close()
}

func pgCode(err error) string {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code
	}
	return ""
}

func (s *PostgresStore) Create(ctx context.Context, id string, snapshot []byte) error {
	now := time.Now()
	_, err := s.pool.Exec(ctx,
		`INSERT INTO documents (id, snapshot, version, created_at, updated_at) VALUES ($1, $2, 0, $3, $3)`,
		id, snapshot, now)
	if pgCode(err) == uniqueViolation {
		return fmt.Errorf("%w: %q", ErrExists, id)
	}
	return err
}

func (s *PostgresStore) Get(ctx context.Context, id string) (*DocumentInfo, error) {
	info := DocumentInfo{ID: id}
	err := s.pool.QueryRow(ctx,
		`SELECT snapshot, version, created_at, updated_at FROM documents WHERE id = $1`, id,
	).Scan(&info.Snapshot, &info.Version, &info.CreatedAt, &info.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("%w: %q", ErrNotFound, id)
	}
	if err != nil {
		return nil, err
	}
	return &info, nil
}

func (s *PostgresStore) List(ctx context.Context) ([]DocumentInfo, error) {
	rows, err := s.pool.Query(ctx, `SELECT id, version, created_at, updated_at FROM documents ORDER BY id`)
	if err != nil {
		return nil, err
	}
	return pgx.CollectRows(rows, func(row pgx.CollectableRow) (DocumentInfo, error) {
		var info DocumentInfo
		err := row.Scan(&info.ID, &info.Version, &info.CreatedAt, &info.UpdatedAt)
		return info, err
	})
}

func (s *PostgresStore) UpdateSnapshot(ctx context.Context, id string, snapshot []byte, version int) error {
	tag, err := s.pool.Exec(ctx,
		`UPDATE documents SET snapshot = $2, version = $3, updated_at = $4 WHERE id = $1`,
		id, snapshot, version, time.Now())
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("%w: %q", ErrNotFound, id)
	}
	return nil
}

func (s *PostgresStore) AppendOperation(ctx context.Context, id string, op wire.Envelope, version int) error {
	encoded, err := op.Encode()
	if err != nil {
		return fmt.Errorf("encode op %d for %q: %w", version, id, err)
	}
	_, err = s.pool.Exec(ctx,
		`INSERT INTO operations (doc_id, idx, envelope) VALUES ($1, $2, $3)
		 ON CONFLICT (doc_id, idx) DO UPDATE SET envelope = EXCLUDED.envelope`,
		id, version-1, encoded)
	if pgCode(err) == foreignKeyViolation {
		return fmt.Errorf("%w: %q", ErrNotFound, id)
	}
	return err
}

func (s *PostgresStore) GetOperations(ctx context.Context, id string, fromVersion int) ([]wire.Envelope, error) {
	var exists bool
	if err := s.pool.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM documents WHERE id = $1)`, id).Scan(&exists); err != nil {
		return nil, err
	}
	if !exists {
		return nil, fmt.Errorf("%w: %q", ErrNotFound, id)
	}

	rows, err := s.pool.Query(ctx,
		`SELECT envelope FROM operations WHERE doc_id = $1 AND idx >= $2 ORDER BY idx`, id, fromVersion)
	if err != nil {
		return nil, err
	}
	encoded, err := pgx.CollectRows(rows, pgx.RowTo[[]byte])
	if err != nil {
		return nil, err
	}
	ops := make([]wire.Envelope, len(encoded))
	for i, raw := range encoded {
		if ops[i], err = wire.Decode(raw); err != nil {
			return nil, fmt.Errorf("operation %d of %q: %w", fromVersion+i, id, err)
		}
	}
	return ops, nil
}
