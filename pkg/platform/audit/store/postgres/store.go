package postgres

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	audit "github.com/ptkach/nomulus/pkg/platform/audit"
)

// Schema creates the activity log table. Applied by Migrate.
const Schema = `
CREATE TABLE IF NOT EXISTS activity_log (
	id           UUID        PRIMARY KEY,
	recorded_at  TIMESTAMPTZ NOT NULL,
	server_trid  TEXT        NOT NULL,
	client_trid  TEXT        NOT NULL DEFAULT '',
	registrar_id TEXT        NOT NULL,
	flow         TEXT        NOT NULL,
	activity     TEXT        NOT NULL,
	target_ids   TEXT[]      NOT NULL,
	tlds         TEXT[]      NOT NULL,
	superuser    BOOLEAN     NOT NULL,
	source       TEXT        NOT NULL,
	request_id   TEXT        NOT NULL DEFAULT ''
);
CREATE INDEX IF NOT EXISTS activity_log_registrar_idx ON activity_log (registrar_id, recorded_at);
`

// DB is the subset of pgxpool.Pool the store uses. pgx.Tx satisfies it too.
type DB interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
}

// Store implements audit.Store on the reporting database.
type Store struct {
	db DB
}

func New(db DB) *Store {
	return &Store{db: db}
}

// Open connects a pool to url.
func Open(ctx context.Context, url string) (*pgxpool.Pool, error) {
	pool, err := pgxpool.New(ctx, url)
	if err != nil {
		return nil, fmt.Errorf("open activity log pool: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping activity log database: %w", err)
	}
	return pool, nil
}

// Migrate applies Schema.
func Migrate(ctx context.Context, db DB) error {
	if _, err := db.Exec(ctx, Schema); err != nil {
		return fmt.Errorf("apply activity log schema: %w", err)
	}
	return nil
}

func (s *Store) Append(ctx context.Context, e audit.ActivityEvent) error {
	if e.ID == uuid.Nil {
		e.ID = uuid.New()
	}
	_, err := s.db.Exec(ctx, `
		INSERT INTO activity_log (id, recorded_at, server_trid, client_trid, registrar_id, flow,
			activity, target_ids, tlds, superuser, source, request_id)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)`,
		e.ID.String(), e.Timestamp, e.ServerTRID, e.ClientTRID, e.RegistrarID, e.Flow,
		string(e.Activity), nonNil(e.TargetIDs), nonNil(e.TLDs), e.Superuser, e.Source, e.RequestID,
	)
	if err != nil {
		return fmt.Errorf("insert activity event: %w", err)
	}
	return nil
}

const selectColumns = `SELECT id::text, recorded_at, server_trid, client_trid, registrar_id, flow,
	activity, target_ids, tlds, superuser, source, request_id FROM activity_log`

func (s *Store) ListByRegistrar(ctx context.Context, registrarID string) ([]audit.ActivityEvent, error) {
	return s.list(ctx, selectColumns+` WHERE registrar_id = $1 ORDER BY recorded_at, id`, registrarID)
}

// ListRecent returns the newest limit events, oldest first.
func (s *Store) ListRecent(ctx context.Context, limit int) ([]audit.ActivityEvent, error) {
	return s.list(ctx, `SELECT * FROM (`+selectColumns+` ORDER BY recorded_at DESC, id DESC LIMIT $1) recent
		ORDER BY recorded_at, id`, limit)
}

func (s *Store) list(ctx context.Context, query string, args ...any) ([]audit.ActivityEvent, error) {
	rows, err := s.db.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query activity events: %w", err)
	}
	events, err := pgx.CollectRows(rows, scanEvent)
	if err != nil {
		return nil, fmt.Errorf("scan activity events: %w", err)
	}
	return events, nil
}

func scanEvent(row pgx.CollectableRow) (audit.ActivityEvent, error) {
	var (
		e        audit.ActivityEvent
		id       string
		activity string
	)
	err := row.Scan(&id, &e.Timestamp, &e.ServerTRID, &e.ClientTRID, &e.RegistrarID, &e.Flow,
		&activity, &e.TargetIDs, &e.TLDs, &e.Superuser, &e.Source, &e.RequestID)
	if err != nil {
		return e, err
	}
	parsed, err := uuid.Parse(id)
	if err != nil {
		return e, err
	}
	e.ID = parsed
	e.Activity = audit.Activity(activity)
	e.Timestamp = e.Timestamp.UTC()
	return e, nil
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}
