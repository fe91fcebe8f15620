// File: internal/infra/store/postgres/store.go
package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgconn"
	"github.com/jackc/pgx/v4"
	"github.com/jackc/pgx/v4/pgxpool"

	"clinic-relay/internal/domain"
	"clinic-relay/internal/domain/model"
	"clinic-relay/internal/domain/ports/repository"
)

var _ repository.DatasetStore = (*Store)(nil)

// Store keeps one row per clinic (JSONB document keyed by clinic id) so
// the dataset is transactional instead of a whole-file rewrite. Update
// runs inside a transaction with the rows locked, which serializes
// concurrent cycles the same way the file store's mutex does.
type Store struct {
	pool *pgxpool.Pool
}

// NewPgxPool returns a live *pgxpool.Pool or an error.
func NewPgxPool(ctx context.Context, url string) (*pgxpool.Pool, error) {
	cctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	pool, err := pgxpool.Connect(cctx, url)
	if err != nil {
		return nil, fmt.Errorf("pgxpool connect: %w", err)
	}
	return pool, nil
}

func NewStore(ctx context.Context, pool *pgxpool.Pool) (*Store, error) {
	const ddl = `
CREATE TABLE IF NOT EXISTS clinics (
  id  TEXT PRIMARY KEY,
  doc JSONB NOT NULL
);`
	if _, err := pool.Exec(ctx, ddl); err != nil {
		return nil, domain.Storage("migrate", err)
	}
	return &Store{pool: pool}, nil
}

func (s *Store) Load(ctx context.Context) (*model.Dataset, error) {
	const q = `SELECT id, doc FROM clinics;`
	rows, err := s.pool.Query(ctx, q)
	if err != nil {
		return nil, domain.Storage("read", pgErr(err))
	}
	defer rows.Close()
	return scanDataset(rows)
}

func (s *Store) Save(ctx context.Context, ds *model.Dataset) error {
	return s.inTx(ctx, func(tx pgx.Tx) error {
		return writeDataset(ctx, tx, ds)
	})
}

func (s *Store) Update(ctx context.Context, fn func(ds *model.Dataset) error) error {
	return s.inTx(ctx, func(tx pgx.Tx) error {
		const q = `SELECT id, doc FROM clinics FOR UPDATE;`
		rows, err := tx.Query(ctx, q)
		if err != nil {
			return domain.Storage("read", pgErr(err))
		}
		ds, err := scanDataset(rows)
		rows.Close()
		if err != nil {
			return err
		}
		if err := fn(ds); err != nil {
			return err
		}
		return writeDataset(ctx, tx, ds)
	})
}

func (s *Store) inTx(ctx context.Context, fn func(tx pgx.Tx) error) error {
	tx, err := s.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return domain.Storage("begin", pgErr(err))
	}
	defer func() { _ = tx.Rollback(ctx) }()

	if err := fn(tx); err != nil {
		return err // rollback in defer
	}
	if err := tx.Commit(ctx); err != nil {
		return domain.Storage("commit", pgErr(err))
	}
	return nil
}

func scanDataset(rows pgx.Rows) (*model.Dataset, error) {
	ds := model.NewDataset()
	for rows.Next() {
		var id string
		var doc []byte
		if err := rows.Scan(&id, &doc); err != nil {
			return nil, domain.Storage("scan", err)
		}
		var c model.Clinic
		if err := json.Unmarshal(doc, &c); err != nil {
			return nil, domain.Storage("decode", err)
		}
		if c.Chats == nil {
			c.Chats = make(map[string]*model.Chat)
		}
		ds.Clinics[id] = &c
	}
	if err := rows.Err(); err != nil {
		return nil, domain.Storage("read", pgErr(err))
	}
	return ds, nil
}

func writeDataset(ctx context.Context, tx pgx.Tx, ds *model.Dataset) error {
	const upsert = `
INSERT INTO clinics (id, doc) VALUES ($1, $2)
ON CONFLICT (id) DO UPDATE SET doc = EXCLUDED.doc;`
	ids := make([]string, 0, len(ds.Clinics))
	for id, c := range ds.Clinics {
		doc, err := json.Marshal(c)
		if err != nil {
			return domain.Storage("encode", err)
		}
		if _, err := tx.Exec(ctx, upsert, id, doc); err != nil {
			return domain.Storage("write", pgErr(err))
		}
		ids = append(ids, id)
	}
	// Clinics are never deleted by the relay itself, but keep the table
	// consistent with datasets edited out of band.
	const prune = `DELETE FROM clinics WHERE NOT (id = ANY($1));`
	if _, err := tx.Exec(ctx, prune, ids); err != nil {
		return domain.Storage("write", pgErr(err))
	}
	return nil
}

// pgErr annotates Postgres errors with their SQLSTATE so retryable
// conditions (serialization failure, deadlock) are visible in logs.
func pgErr(err error) error {
	var pge *pgconn.PgError
	if errors.As(err, &pge) {
		return fmt.Errorf("sqlstate %s: %w", pge.Code, err)
	}
	return err
}
