// Package postgres is the PostgreSQL store.Backend.
//
// Every entity lives in one table keyed by (kind, id) with its JSON payload
// plus the secondary columns queries filter on. Isolation levels map onto
// PostgreSQL's; serialization failures and deadlocks are reported as
// retryable conflicts.
package postgres

import (
	"context"
	"database/sql"
	"database/sql/driver"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/lib/pq"

	"github.com/ptkach/nomulus/internal/registry/models"
	"github.com/ptkach/nomulus/internal/registry/store"
	dErrors "github.com/ptkach/nomulus/pkg/domain-errors"
	"github.com/ptkach/nomulus/pkg/platform/sentinel"
)

// Schema creates the registry tables. Applied by Migrate.
const Schema = `
CREATE TABLE IF NOT EXISTS registry_records (
	kind          TEXT        NOT NULL,
	id            TEXT        NOT NULL,
	name          TEXT        NOT NULL DEFAULT '',
	deletion_time TIMESTAMPTZ,
	payload       JSONB       NOT NULL,
	updated_at    TIMESTAMPTZ NOT NULL DEFAULT now(),
	PRIMARY KEY (kind, id)
);
CREATE INDEX IF NOT EXISTS registry_records_name_idx ON registry_records (kind, name);
CREATE SEQUENCE IF NOT EXISTS registry_id_seq;
`

const (
	sqlStateSerializationFailure = "40001"
	sqlStateDeadlockDetected     = "40P01"
	sqlStateUniqueViolation      = "23505"
)

// Backend opens database/sql transactions.
type Backend struct {
	db *sql.DB
}

// New wraps an open database handle.
func New(db *sql.DB) *Backend {
	return &Backend{db: db}
}

// Open connects with the lib/pq driver.
func Open(ctx context.Context, url string, maxOpenConns int) (*sql.DB, error) {
	db, err := sql.Open("postgres", url)
	if err != nil {
		return nil, fmt.Errorf("open postgres: %w", err)
	}
	if maxOpenConns > 0 {
		db.SetMaxOpenConns(maxOpenConns)
	}
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}
	return db, nil
}

// Migrate applies Schema.
func Migrate(ctx context.Context, db *sql.DB) error {
	if _, err := db.ExecContext(ctx, Schema); err != nil {
		return fmt.Errorf("apply registry schema: %w", err)
	}
	return nil
}

func sqlIsolation(iso store.Isolation) sql.IsolationLevel {
	switch iso {
	case store.ReadCommitted:
		return sql.LevelReadCommitted
	case store.RepeatableRead:
		return sql.LevelRepeatableRead
	default:
		return sql.LevelSerializable
	}
}

// Begin opens a transaction at isolation.
func (b *Backend) Begin(ctx context.Context, isolation store.Isolation) (store.Attempt, error) {
	tx, err := b.db.BeginTx(ctx, &sql.TxOptions{Isolation: sqlIsolation(isolation)})
	if err != nil {
		return nil, classify(err, "begin transaction")
	}
	return &attempt{tx: tx}, nil
}

type attempt struct {
	tx *sql.Tx
}

func (a *attempt) Get(ctx context.Context, key models.Key) (models.Entity, error) {
	var payload []byte
	err := a.tx.QueryRowContext(ctx,
		`SELECT payload FROM registry_records WHERE kind = $1 AND id = $2`,
		string(key.Kind), key.ID,
	).Scan(&payload)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, sentinel.ErrNotFound
	}
	if err != nil {
		return nil, classify(err, "get "+key.String())
	}
	return models.DecodeEntity(key.Kind, payload)
}

func (a *attempt) Exists(ctx context.Context, key models.Key) (bool, error) {
	var exists bool
	err := a.tx.QueryRowContext(ctx,
		`SELECT EXISTS (SELECT 1 FROM registry_records WHERE kind = $1 AND id = $2)`,
		string(key.Kind), key.ID,
	).Scan(&exists)
	if err != nil {
		return false, classify(err, "exists "+key.String())
	}
	return exists, nil
}

func (a *attempt) Query(ctx context.Context, q store.Query) ([]models.Entity, error) {
	query, args := buildQuery(q)
	rows, err := a.tx.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, classify(err, "query "+string(q.Kind))
	}
	defer rows.Close()

	var out []models.Entity
	for rows.Next() {
		var payload []byte
		if err := rows.Scan(&payload); err != nil {
			return nil, classify(err, "scan "+string(q.Kind))
		}
		e, err := models.DecodeEntity(q.Kind, payload)
		if err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	if err := rows.Err(); err != nil {
		return nil, classify(err, "iterate "+string(q.Kind))
	}
	return out, nil
}

func buildQuery(q store.Query) (string, []any) {
	var sb strings.Builder
	sb.WriteString(`SELECT payload FROM registry_records WHERE kind = $1`)
	args := []any{string(q.Kind)}
	if q.Name != "" {
		args = append(args, q.Name)
		fmt.Fprintf(&sb, ` AND name = $%d`, len(args))
	}
	if q.IDPrefix != "" {
		args = append(args, escapeLike(q.IDPrefix)+"%")
		fmt.Fprintf(&sb, ` AND id LIKE $%d`, len(args))
	}
	if !q.ActiveAt.IsZero() {
		args = append(args, q.ActiveAt)
		fmt.Fprintf(&sb, ` AND (deletion_time IS NULL OR deletion_time > $%d)`, len(args))
	}
	sb.WriteString(` ORDER BY id`)
	return sb.String(), args
}

func escapeLike(s string) string {
	r := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)
	return r.Replace(s)
}

func columns(e models.Entity) (models.Key, string, sql.NullTime, []byte, error) {
	key := e.Key()
	idx := e.Index()
	payload, err := models.EncodeEntity(e)
	if err != nil {
		return key, "", sql.NullTime{}, nil, err
	}
	deletion := sql.NullTime{}
	if !idx.DeletionTime.IsZero() {
		deletion = sql.NullTime{Time: idx.DeletionTime, Valid: true}
	}
	return key, idx.Name, deletion, payload, nil
}

func (a *attempt) Put(ctx context.Context, e models.Entity) error {
	key, name, deletion, payload, err := columns(e)
	if err != nil {
		return err
	}
	_, err = a.tx.ExecContext(ctx, `
		INSERT INTO registry_records (kind, id, name, deletion_time, payload, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (kind, id) DO UPDATE
		SET name = EXCLUDED.name, deletion_time = EXCLUDED.deletion_time,
			payload = EXCLUDED.payload, updated_at = EXCLUDED.updated_at`,
		string(key.Kind), key.ID, name, deletion, payload, time.Now().UTC(),
	)
	if err != nil {
		return classify(err, "put "+key.String())
	}
	return nil
}

func (a *attempt) Insert(ctx context.Context, e models.Entity) error {
	key, name, deletion, payload, err := columns(e)
	if err != nil {
		return err
	}
	_, err = a.tx.ExecContext(ctx, `
		INSERT INTO registry_records (kind, id, name, deletion_time, payload, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6)`,
		string(key.Kind), key.ID, name, deletion, payload, time.Now().UTC(),
	)
	if err != nil {
		return classify(err, "insert "+key.String())
	}
	return nil
}

func (a *attempt) Delete(ctx context.Context, key models.Key) error {
	_, err := a.tx.ExecContext(ctx,
		`DELETE FROM registry_records WHERE kind = $1 AND id = $2`,
		string(key.Kind), key.ID,
	)
	if err != nil {
		return classify(err, "delete "+key.String())
	}
	return nil
}

func (a *attempt) AllocateID(ctx context.Context) (int64, error) {
	var id int64
	if err := a.tx.QueryRowContext(ctx, `SELECT nextval('registry_id_seq')`).Scan(&id); err != nil {
		return 0, classify(err, "allocate id")
	}
	return id, nil
}

func (a *attempt) Commit(ctx context.Context) error {
	if err := a.tx.Commit(); err != nil {
		return classify(err, "commit transaction")
	}
	return nil
}

func (a *attempt) Rollback(ctx context.Context) error {
	if err := a.tx.Rollback(); err != nil && !errors.Is(err, sql.ErrTxDone) {
		return err
	}
	return nil
}

// classify maps driver errors onto the store's error vocabulary.
func classify(err error, op string) error {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		switch string(pqErr.Code) {
		case sqlStateSerializationFailure, sqlStateDeadlockDetected:
			return dErrors.Wrap(errors.Join(sentinel.ErrConflict, err), dErrors.CodeConflict, op)
		case sqlStateUniqueViolation:
			return dErrors.Wrap(errors.Join(sentinel.ErrAlreadyExists, err), dErrors.CodeInvariantViolation, op)
		}
	}
	if errors.Is(err, sql.ErrConnDone) || errors.Is(err, driver.ErrBadConn) {
		return dErrors.Wrap(errors.Join(sentinel.ErrUnavailable, err), dErrors.CodeUnavailable, op)
	}
	return dErrors.Wrap(err, dErrors.CodeInternal, op)
}
