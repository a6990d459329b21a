// Package verify batches unverified candidate emails through the
// verification provider and records the outcomes.
package verify

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/rotisserie/eris"

	"github.com/sells-group/leadflow/internal/apperr"
	"github.com/sells-group/leadflow/internal/db"
	"github.com/sells-group/leadflow/internal/model"
)

// Store defines persistence operations for the verification worker.
type Store interface {
	GetRunConnector(ctx context.Context, runID string) (*model.SourceRun, *model.SourceConnector, error)
	ListUnverifiedEmails(ctx context.Context, runID string) ([]string, error)
	InsertVerifications(ctx context.Context, rows []model.EmailVerification) (int64, error)
	UpdateCandidateVerification(ctx context.Context, runID, email string, status model.VerificationStatus) (int64, error)
}

// PostgresStore implements Store using pgx.
type PostgresStore struct {
	pool db.Pool
}

// NewPostgresStore creates a new PostgresStore.
func NewPostgresStore(pool db.Pool) *PostgresStore {
	return &PostgresStore{pool: pool}
}

func (s *PostgresStore) GetRunConnector(ctx context.Context, runID string) (*model.SourceRun, *model.SourceConnector, error) {
	var (
		run  model.SourceRun
		conn model.SourceConnector
	)
	err := s.pool.QueryRow(ctx,
		`SELECT r.id, r.workspace_id, r.campaign_id, r.connector_id, r.status,
			c.id, c.type, c.provider_key, c.config, c.enabled
		 FROM source_runs r
		 JOIN source_connectors c ON c.id = r.connector_id
		 WHERE r.id = $1`,
		runID,
	).Scan(&run.ID, &run.WorkspaceID, &run.CampaignID, &run.ConnectorID, &run.Status,
		&conn.ID, &conn.Type, &conn.ProviderKey, &conn.Config, &conn.Enabled)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil, apperr.NotFound("run not found: %s", runID)
	}
	if err != nil {
		return nil, nil, eris.Wrapf(err, "verify: get run %s", runID)
	}
	conn.WorkspaceID = run.WorkspaceID
	return &run, &conn, nil
}

// ListUnverifiedEmails returns the distinct lowercased emails of this run's
// candidates still in UNKNOWN verification state. Already-checked
// candidates are never re-verified by this flow.
func (s *PostgresStore) ListUnverifiedEmails(ctx context.Context, runID string) ([]string, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT DISTINCT lower(email) FROM candidates
		 WHERE source_run_id = $1 AND email <> '' AND verification_status = $2
		 ORDER BY lower(email)`,
		runID, string(model.VerificationUnknown),
	)
	if err != nil {
		return nil, eris.Wrapf(err, "verify: list unverified emails for run %s", runID)
	}
	defer rows.Close()

	var emails []string
	for rows.Next() {
		var email string
		if err := rows.Scan(&email); err != nil {
			return nil, eris.Wrap(err, "verify: scan email")
		}
		emails = append(emails, email)
	}
	return emails, eris.Wrap(rows.Err(), "verify: iterate emails")
}

var verificationColumns = []string{
	"id", "workspace_id", "email", "provider", "status", "detail", "checked_at",
}

// InsertVerifications appends audit rows. Verification records are
// immutable; repeat checks insert new rows.
func (s *PostgresStore) InsertVerifications(ctx context.Context, verifications []model.EmailVerification) (int64, error) {
	rows := make([][]any, len(verifications))
	for i, v := range verifications {
		detail := v.Detail
		if len(detail) == 0 {
			detail = nil
		}
		rows[i] = []any{v.ID, v.WorkspaceID, v.Email, v.Provider, string(v.Status), detail, v.CheckedAt}
	}
	return db.CopyFrom(ctx, s.pool, "email_verifications", verificationColumns, rows)
}

// UpdateCandidateVerification sets the verification status on every
// candidate row in the run matching the email.
func (s *PostgresStore) UpdateCandidateVerification(ctx context.Context, runID, email string, status model.VerificationStatus) (int64, error) {
	tag, err := s.pool.Exec(ctx,
		`UPDATE candidates SET verification_status = $1 WHERE source_run_id = $2 AND lower(email) = $3`,
		string(status), runID, email,
	)
	if err != nil {
		return 0, eris.Wrapf(err, "verify: update candidates for %s", email)
	}
	return tag.RowsAffected(), nil
}
