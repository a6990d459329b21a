// Package store constructs the shared connection pool and owns the schema.
package store

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rotisserie/eris"

	"github.com/sells-group/leadflow/internal/db"
)

// PostgresStore wraps the shared pgx connection pool.
type PostgresStore struct {
	pool    *pgxpool.Pool
	closeFn func()
}

// PoolConfig holds optional connection pool tuning parameters.
type PoolConfig struct {
	MaxConns int32
	MinConns int32
}

// NewPostgres creates a PostgresStore with a connection pool.
func NewPostgres(ctx context.Context, connString string, poolCfg *PoolConfig) (*PostgresStore, error) {
	pgxCfg, err := pgxpool.ParseConfig(connString)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: parse config")
	}

	maxConns := int32(10)
	minConns := int32(2)
	if poolCfg != nil {
		if poolCfg.MaxConns > 0 {
			maxConns = poolCfg.MaxConns
		}
		if poolCfg.MinConns > 0 {
			minConns = poolCfg.MinConns
		}
	}
	pgxCfg.MaxConns = maxConns
	pgxCfg.MinConns = minConns
	pgxCfg.MaxConnLifetime = 30 * time.Minute
	pgxCfg.MaxConnIdleTime = 5 * time.Minute

	pool, err := pgxpool.NewWithConfig(ctx, pgxCfg)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: create pool")
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, eris.Wrap(err, "postgres: ping")
	}
	return &PostgresStore{pool: pool, closeFn: pool.Close}, nil
}

// Pool returns the underlying pool for the subsystem stores.
func (s *PostgresStore) Pool() db.Pool {
	return s.pool
}

const postgresMigration = `
CREATE TABLE IF NOT EXISTS campaigns (
	id           TEXT PRIMARY KEY DEFAULT gen_random_uuid()::text,
	workspace_id TEXT NOT NULL,
	name         TEXT NOT NULL,
	created_at   TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE INDEX IF NOT EXISTS idx_campaigns_workspace ON campaigns(workspace_id);

CREATE TABLE IF NOT EXISTS source_connectors (
	id            TEXT PRIMARY KEY DEFAULT gen_random_uuid()::text,
	workspace_id  TEXT NOT NULL,
	type          TEXT NOT NULL,
	provider_key  TEXT NOT NULL,
	config        JSONB NOT NULL DEFAULT '{}',
	enabled       BOOLEAN NOT NULL DEFAULT true,
	last_check_at TIMESTAMPTZ,
	last_error    TEXT,
	created_at    TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE INDEX IF NOT EXISTS idx_source_connectors_workspace ON source_connectors(workspace_id);

CREATE TABLE IF NOT EXISTS source_runs (
	id           TEXT PRIMARY KEY DEFAULT gen_random_uuid()::text,
	workspace_id TEXT NOT NULL,
	campaign_id  TEXT NOT NULL REFERENCES campaigns(id),
	connector_id TEXT NOT NULL REFERENCES source_connectors(id),
	label        TEXT NOT NULL DEFAULT '',
	query        JSONB NOT NULL DEFAULT '{}',
	status       TEXT NOT NULL DEFAULT 'QUEUED',
	started_at   TIMESTAMPTZ,
	finished_at  TIMESTAMPTZ,
	stats        JSONB,
	created_at   TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE INDEX IF NOT EXISTS idx_source_runs_workspace ON source_runs(workspace_id, created_at DESC);
CREATE INDEX IF NOT EXISTS idx_source_runs_status ON source_runs(status);

CREATE TABLE IF NOT EXISTS candidates (
	id                  TEXT PRIMARY KEY DEFAULT gen_random_uuid()::text,
	workspace_id        TEXT NOT NULL,
	campaign_id         TEXT NOT NULL REFERENCES campaigns(id),
	source_run_id       TEXT NOT NULL REFERENCES source_runs(id),
	email               TEXT NOT NULL,
	person_provider_id  TEXT,
	company_provider_id TEXT,
	first_name          TEXT NOT NULL DEFAULT '',
	last_name           TEXT NOT NULL DEFAULT '',
	title               TEXT NOT NULL DEFAULT '',
	company_name        TEXT NOT NULL DEFAULT '',
	linkedin_url        TEXT NOT NULL DEFAULT '',
	confidence_score    DOUBLE PRECISION,
	verification_status TEXT NOT NULL DEFAULT 'UNKNOWN',
	status              TEXT NOT NULL DEFAULT 'NEW',
	created_at          TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE INDEX IF NOT EXISTS idx_candidates_campaign ON candidates(campaign_id, created_at DESC, id DESC);
CREATE INDEX IF NOT EXISTS idx_candidates_run ON candidates(source_run_id);
CREATE INDEX IF NOT EXISTS idx_candidates_email ON candidates(lower(email));

CREATE TABLE IF NOT EXISTS email_verifications (
	id           TEXT PRIMARY KEY DEFAULT gen_random_uuid()::text,
	workspace_id TEXT NOT NULL,
	email        TEXT NOT NULL,
	provider     TEXT NOT NULL,
	status       TEXT NOT NULL,
	detail       JSONB,
	checked_at   TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE INDEX IF NOT EXISTS idx_email_verifications_email ON email_verifications(workspace_id, email);

CREATE TABLE IF NOT EXISTS leads (
	id           TEXT PRIMARY KEY DEFAULT gen_random_uuid()::text,
	workspace_id TEXT NOT NULL,
	email        TEXT NOT NULL,
	first_name   TEXT,
	last_name    TEXT,
	title        TEXT,
	company_name TEXT,
	linkedin_url TEXT,
	metadata     JSONB,
	created_at   TIMESTAMPTZ NOT NULL DEFAULT now(),
	updated_at   TIMESTAMPTZ NOT NULL DEFAULT now(),
	UNIQUE (workspace_id, email)
);

CREATE TABLE IF NOT EXISTS campaign_leads (
	campaign_id TEXT NOT NULL REFERENCES campaigns(id),
	lead_id     TEXT NOT NULL REFERENCES leads(id),
	created_at  TIMESTAMPTZ NOT NULL DEFAULT now(),
	PRIMARY KEY (campaign_id, lead_id)
);

CREATE TABLE IF NOT EXISTS suppressions (
	id           TEXT PRIMARY KEY DEFAULT gen_random_uuid()::text,
	workspace_id TEXT NOT NULL,
	email        TEXT NOT NULL,
	reason       TEXT NOT NULL DEFAULT '',
	created_at   TIMESTAMPTZ NOT NULL DEFAULT now(),
	UNIQUE (workspace_id, email)
);
`

// Migrate applies the schema.
func (s *PostgresStore) Migrate(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, postgresMigration)
	return eris.Wrap(err, "postgres: migrate")
}

// Ping verifies connectivity.
func (s *PostgresStore) Ping(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, "SELECT 1")
	return eris.Wrap(err, "postgres: ping")
}

// Close releases the pool.
func (s *PostgresStore) Close() error {
	if s.closeFn != nil {
		s.closeFn()
	}
	return nil
}
