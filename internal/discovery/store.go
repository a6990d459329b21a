package discovery

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/rotisserie/eris"

	"github.com/sells-group/leadflow/internal/apperr"
	"github.com/sells-group/leadflow/internal/db"
	"github.com/sells-group/leadflow/internal/dedupe"
	"github.com/sells-group/leadflow/internal/model"
)

// Cursor identifies a position in the (created_at desc, id desc) candidate
// ordering. Approval and listing share Candidate.ID as row identity.
type Cursor struct {
	CreatedAt time.Time `json:"created_at"`
	ID        string    `json:"id"`
}

// Store defines persistence operations for the discovery subsystem.
type Store interface {
	GetConnector(ctx context.Context, workspaceID, connectorID string) (*model.SourceConnector, error)
	CampaignExists(ctx context.Context, workspaceID, campaignID string) (bool, error)
	CreateRun(ctx context.Context, run *model.SourceRun) error
	GetRun(ctx context.Context, runID string) (*model.SourceRun, error)
	GetRunWithConnector(ctx context.Context, runID string) (*model.SourceRun, *model.SourceConnector, error)
	MarkRunning(ctx context.Context, runID string) error
	FailRun(ctx context.Context, runID string, errMsg string) error
	CompleteRunWithCandidates(ctx context.Context, runID string, stats Stats, candidates []model.Candidate) error
	FetchRefSets(ctx context.Context, workspaceID, campaignID string) (dedupe.RefSets, error)
	ListRuns(ctx context.Context, workspaceID string, limit int) ([]model.SourceRun, error)
	ListQueuedRunIDs(ctx context.Context, workspaceID string) ([]string, error)
	ListCandidates(ctx context.Context, workspaceID, campaignID string, before *Cursor, pageSize int) ([]model.Candidate, error)
}

// PostgresStore implements Store using pgx.
type PostgresStore struct {
	pool db.Pool
}

// NewPostgresStore creates a new PostgresStore.
func NewPostgresStore(pool db.Pool) *PostgresStore {
	return &PostgresStore{pool: pool}
}

const connectorColumns = `id, workspace_id, type, provider_key, config, enabled, last_check_at, last_error, created_at`

func (s *PostgresStore) GetConnector(ctx context.Context, workspaceID, connectorID string) (*model.SourceConnector, error) {
	row := s.pool.QueryRow(ctx,
		`SELECT `+connectorColumns+` FROM source_connectors WHERE id = $1 AND workspace_id = $2`,
		connectorID, workspaceID,
	)
	conn, err := scanConnector(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, apperr.NotFound("connector not found: %s", connectorID)
	}
	if err != nil {
		return nil, eris.Wrapf(err, "discovery: get connector %s", connectorID)
	}
	return conn, nil
}

func scanConnector(row pgx.Row) (*model.SourceConnector, error) {
	var (
		c         model.SourceConnector
		lastError *string
	)
	err := row.Scan(&c.ID, &c.WorkspaceID, &c.Type, &c.ProviderKey, &c.Config,
		&c.Enabled, &c.LastCheckAt, &lastError, &c.CreatedAt)
	if err != nil {
		return nil, err
	}
	if lastError != nil {
		c.LastError = *lastError
	}
	return &c, nil
}

func (s *PostgresStore) CampaignExists(ctx context.Context, workspaceID, campaignID string) (bool, error) {
	var exists bool
	err := s.pool.QueryRow(ctx,
		`SELECT EXISTS (SELECT 1 FROM campaigns WHERE id = $1 AND workspace_id = $2)`,
		campaignID, workspaceID,
	).Scan(&exists)
	if err != nil {
		return false, eris.Wrapf(err, "discovery: campaign exists %s", campaignID)
	}
	return exists, nil
}

func (s *PostgresStore) CreateRun(ctx context.Context, run *model.SourceRun) error {
	if run.ID == "" {
		run.ID = uuid.New().String()
	}
	run.Status = model.RunStatusQueued
	run.CreatedAt = time.Now().UTC()

	_, err := s.pool.Exec(ctx,
		`INSERT INTO source_runs (id, workspace_id, campaign_id, connector_id, label, query, status, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		run.ID, run.WorkspaceID, run.CampaignID, run.ConnectorID, run.Label,
		run.Query, string(run.Status), run.CreatedAt,
	)
	if err != nil {
		return eris.Wrap(err, "discovery: create run")
	}
	return nil
}

const runColumns = `id, workspace_id, campaign_id, connector_id, label, query, status, started_at, finished_at, stats, created_at`

func scanRun(row pgx.Row) (*model.SourceRun, error) {
	var r model.SourceRun
	err := row.Scan(&r.ID, &r.WorkspaceID, &r.CampaignID, &r.ConnectorID, &r.Label,
		&r.Query, &r.Status, &r.StartedAt, &r.FinishedAt, &r.Stats, &r.CreatedAt)
	if err != nil {
		return nil, err
	}
	return &r, nil
}

func (s *PostgresStore) GetRun(ctx context.Context, runID string) (*model.SourceRun, error) {
	row := s.pool.QueryRow(ctx, `SELECT `+runColumns+` FROM source_runs WHERE id = $1`, runID)
	run, err := scanRun(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, apperr.NotFound("run not found: %s", runID)
	}
	if err != nil {
		return nil, eris.Wrapf(err, "discovery: get run %s", runID)
	}
	return run, nil
}

func (s *PostgresStore) GetRunWithConnector(ctx context.Context, runID string) (*model.SourceRun, *model.SourceConnector, error) {
	run, err := s.GetRun(ctx, runID)
	if err != nil {
		return nil, nil, err
	}
	conn, err := s.GetConnector(ctx, run.WorkspaceID, run.ConnectorID)
	if err != nil {
		return nil, nil, err
	}
	return run, conn, nil
}

// MarkRunning transitions a run QUEUED -> RUNNING, stamping started_at and
// a running-state stats placeholder. The conditional update enforces that
// the transition happens exactly once.
func (s *PostgresStore) MarkRunning(ctx context.Context, runID string) error {
	stats, _ := json.Marshal(runningStats{State: "running"})
	tag, err := s.pool.Exec(ctx,
		`UPDATE source_runs SET status = $1, started_at = $2, stats = $3 WHERE id = $4 AND status = $5`,
		string(model.RunStatusRunning), time.Now().UTC(), stats, runID, string(model.RunStatusQueued),
	)
	if err != nil {
		return eris.Wrapf(err, "discovery: mark running %s", runID)
	}
	if tag.RowsAffected() == 0 {
		return apperr.Validation("run %s is not in QUEUED state", runID)
	}
	return nil
}

func (s *PostgresStore) FailRun(ctx context.Context, runID string, errMsg string) error {
	stats, _ := json.Marshal(failedStats{Error: errMsg})
	_, err := s.pool.Exec(ctx,
		`UPDATE source_runs SET status = $1, finished_at = $2, stats = $3 WHERE id = $4`,
		string(model.RunStatusFailed), time.Now().UTC(), stats, runID,
	)
	if err != nil {
		return eris.Wrapf(err, "discovery: fail run %s", runID)
	}
	return nil
}

var candidateColumns = []string{
	"id", "workspace_id", "campaign_id", "source_run_id", "email",
	"person_provider_id", "company_provider_id", "first_name", "last_name",
	"title", "company_name", "linkedin_url", "confidence_score",
	"verification_status", "status", "created_at",
}

// CompleteRunWithCandidates persists the candidate batch and the
// RUNNING -> COMPLETED transition in one transaction, so a crash cannot
// leave a RUNNING run with candidates already written.
func (s *PostgresStore) CompleteRunWithCandidates(ctx context.Context, runID string, stats Stats, candidates []model.Candidate) error {
	statsJSON, err := json.Marshal(stats)
	if err != nil {
		return eris.Wrap(err, "discovery: marshal stats")
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return eris.Wrap(err, "discovery: begin tx")
	}
	defer tx.Rollback(ctx)

	rows := make([][]any, len(candidates))
	for i, c := range candidates {
		rows[i] = []any{
			c.ID, c.WorkspaceID, c.CampaignID, c.SourceRunID, c.Email,
			nullIfEmpty(c.PersonProviderID), nullIfEmpty(c.CompanyProviderID),
			c.FirstName, c.LastName, c.Title, c.CompanyName, c.LinkedinURL,
			c.ConfidenceScore, string(c.Verification), string(c.Status), c.CreatedAt,
		}
	}
	if _, err := db.CopyFromTx(ctx, tx, "candidates", candidateColumns, rows); err != nil {
		return err
	}

	tag, err := tx.Exec(ctx,
		`UPDATE source_runs SET status = $1, finished_at = $2, stats = $3 WHERE id = $4 AND status = $5`,
		string(model.RunStatusCompleted), time.Now().UTC(), statsJSON, runID, string(model.RunStatusRunning),
	)
	if err != nil {
		return eris.Wrapf(err, "discovery: complete run %s", runID)
	}
	if tag.RowsAffected() == 0 {
		return eris.Errorf("discovery: run %s is not RUNNING", runID)
	}

	if err := tx.Commit(ctx); err != nil {
		return eris.Wrap(err, "discovery: commit tx")
	}
	return nil
}

func nullIfEmpty(s string) any {
	if s == "" {
		return nil
	}
	return s
}

// FetchRefSets pre-fetches the three reference sets the dedupe engine
// classifies against.
func (s *PostgresStore) FetchRefSets(ctx context.Context, workspaceID, campaignID string) (dedupe.RefSets, error) {
	refs := dedupe.RefSets{
		BlockedEmails:      map[string]bool{},
		ExistingEmails:     map[string]bool{},
		ExistingPersonIDs:  map[string]bool{},
		ExistingCompanyIDs: map[string]bool{},
	}

	rows, err := s.pool.Query(ctx,
		`SELECT email FROM suppressions WHERE workspace_id = $1
		 UNION
		 SELECT email FROM leads WHERE workspace_id = $1`,
		workspaceID,
	)
	if err != nil {
		return refs, eris.Wrap(err, "discovery: fetch blocked emails")
	}
	if err := collectKeys(rows, refs.BlockedEmails); err != nil {
		return refs, err
	}

	candRows, err := s.pool.Query(ctx,
		`SELECT email, person_provider_id, company_provider_id FROM candidates WHERE campaign_id = $1`,
		campaignID,
	)
	if err != nil {
		return refs, eris.Wrap(err, "discovery: fetch existing candidates")
	}
	defer candRows.Close()

	for candRows.Next() {
		var email string
		var personID, companyID *string
		if err := candRows.Scan(&email, &personID, &companyID); err != nil {
			return refs, eris.Wrap(err, "discovery: scan existing candidate")
		}
		refs.ExistingEmails[dedupe.NormalizeKey(email)] = true
		if personID != nil && *personID != "" {
			refs.ExistingPersonIDs[dedupe.NormalizeKey(*personID)] = true
		}
		if companyID != nil && *companyID != "" {
			refs.ExistingCompanyIDs[dedupe.NormalizeKey(*companyID)] = true
		}
	}
	if err := candRows.Err(); err != nil {
		return refs, eris.Wrap(err, "discovery: iterate existing candidates")
	}

	return refs, nil
}

func collectKeys(rows pgx.Rows, into map[string]bool) error {
	defer rows.Close()
	for rows.Next() {
		var key string
		if err := rows.Scan(&key); err != nil {
			return eris.Wrap(err, "discovery: scan key")
		}
		into[dedupe.NormalizeKey(key)] = true
	}
	return eris.Wrap(rows.Err(), "discovery: iterate keys")
}

func (s *PostgresStore) ListRuns(ctx context.Context, workspaceID string, limit int) ([]model.SourceRun, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := s.pool.Query(ctx,
		`SELECT `+runColumns+` FROM source_runs WHERE workspace_id = $1 ORDER BY created_at DESC LIMIT $2`,
		workspaceID, limit,
	)
	if err != nil {
		return nil, eris.Wrap(err, "discovery: list runs")
	}
	defer rows.Close()

	var runs []model.SourceRun
	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			return nil, eris.Wrap(err, "discovery: scan run")
		}
		runs = append(runs, *run)
	}
	return runs, eris.Wrap(rows.Err(), "discovery: iterate runs")
}

func (s *PostgresStore) ListQueuedRunIDs(ctx context.Context, workspaceID string) ([]string, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT id FROM source_runs WHERE workspace_id = $1 AND status = $2 ORDER BY created_at`,
		workspaceID, string(model.RunStatusQueued),
	)
	if err != nil {
		return nil, eris.Wrap(err, "discovery: list queued runs")
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, eris.Wrap(err, "discovery: scan run id")
		}
		ids = append(ids, id)
	}
	return ids, eris.Wrap(rows.Err(), "discovery: iterate queued runs")
}

// ListCandidates returns one page of candidates ordered by
// (created_at desc, id desc), starting strictly after the cursor.
func (s *PostgresStore) ListCandidates(ctx context.Context, workspaceID, campaignID string, before *Cursor, pageSize int) ([]model.Candidate, error) {
	if pageSize < 1 || pageSize > 100 {
		return nil, apperr.Validation("page size must be in [1,100], got %d", pageSize)
	}

	query := `SELECT id, workspace_id, campaign_id, source_run_id, email,
		COALESCE(person_provider_id, ''), COALESCE(company_provider_id, ''),
		first_name, last_name, title, company_name, linkedin_url,
		confidence_score, verification_status, status, created_at
		FROM candidates WHERE workspace_id = $1 AND campaign_id = $2`
	args := []any{workspaceID, campaignID}
	if before != nil {
		query += ` AND (created_at, id) < ($3, $4)`
		args = append(args, before.CreatedAt, before.ID)
	}
	query += fmt.Sprintf(` ORDER BY created_at DESC, id DESC LIMIT $%d`, len(args)+1)
	args = append(args, pageSize)

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, eris.Wrap(err, "discovery: list candidates")
	}
	defer rows.Close()

	var out []model.Candidate
	for rows.Next() {
		var c model.Candidate
		err := rows.Scan(&c.ID, &c.WorkspaceID, &c.CampaignID, &c.SourceRunID, &c.Email,
			&c.PersonProviderID, &c.CompanyProviderID, &c.FirstName, &c.LastName,
			&c.Title, &c.CompanyName, &c.LinkedinURL, &c.ConfidenceScore,
			&c.Verification, &c.Status, &c.CreatedAt)
		if err != nil {
			return nil, eris.Wrap(err, "discovery: scan candidate")
		}
		out = append(out, c)
	}
	return out, eris.Wrap(rows.Err(), "discovery: iterate candidates")
}
