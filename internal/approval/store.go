package approval

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"

	"github.com/sells-group/leadflow/internal/db"
	"github.com/sells-group/leadflow/internal/model"
)

// Store defines persistence operations for the approval engine.
type Store interface {
	GetCandidates(ctx context.Context, workspaceID, campaignID string, ids []string) ([]model.Candidate, error)
	PromoteCandidates(ctx context.Context, workspaceID, campaignID string, candidates []model.Candidate) error
	RejectCandidates(ctx context.Context, workspaceID, campaignID string, ids []string) (int64, error)
}

// PostgresStore implements Store using pgx.
type PostgresStore struct {
	pool db.Pool
}

// NewPostgresStore creates a new PostgresStore.
func NewPostgresStore(pool db.Pool) *PostgresStore {
	return &PostgresStore{pool: pool}
}

func (s *PostgresStore) GetCandidates(ctx context.Context, workspaceID, campaignID string, ids []string) ([]model.Candidate, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT id, source_run_id, email, first_name, last_name, title, company_name, linkedin_url,
			verification_status, status
		 FROM candidates
		 WHERE workspace_id = $1 AND campaign_id = $2 AND id = ANY($3)`,
		workspaceID, campaignID, ids,
	)
	if err != nil {
		return nil, eris.Wrap(err, "approval: get candidates")
	}
	defer rows.Close()

	var out []model.Candidate
	for rows.Next() {
		c := model.Candidate{WorkspaceID: workspaceID, CampaignID: campaignID}
		err := rows.Scan(&c.ID, &c.SourceRunID, &c.Email, &c.FirstName, &c.LastName, &c.Title,
			&c.CompanyName, &c.LinkedinURL, &c.Verification, &c.Status)
		if err != nil {
			return nil, eris.Wrap(err, "approval: scan candidate")
		}
		out = append(out, c)
	}
	return out, eris.Wrap(rows.Err(), "approval: iterate candidates")
}

// leadUpsertSQL merges a candidate into the workspace-unique lead row:
// insert if absent, otherwise update only the non-null descriptive fields.
var leadUpsertSQL = db.MergeUpsertSQL(db.MergeUpsertConfig{
	Table: "leads",
	Columns: []string{
		"id", "workspace_id", "email", "first_name", "last_name",
		"title", "company_name", "linkedin_url", "metadata", "created_at", "updated_at",
	},
	ConflictKeys: []string{"workspace_id", "email"},
	MergeCols: []string{
		"first_name", "last_name", "title", "company_name", "linkedin_url",
		"metadata", "updated_at",
	},
	ReturningCol: "id",
})

var campaignLeadInsertSQL = db.InsertIgnoreSQL(
	"campaign_leads",
	[]string{"campaign_id", "lead_id"},
	[]string{"campaign_id", "lead_id"},
)

// leadMetadata notes the candidate a lead row was promoted from.
type leadMetadata struct {
	SourceCandidateID string `json:"source_candidate_id"`
	SourceRunID       string `json:"source_run_id,omitempty"`
}

// PromoteCandidates upserts leads and campaign links and marks the
// candidates APPROVED, all inside a single transaction: either every
// approved candidate is promoted or none are.
func (s *PostgresStore) PromoteCandidates(ctx context.Context, workspaceID, campaignID string, candidates []model.Candidate) error {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return eris.Wrap(err, "approval: begin tx")
	}
	defer tx.Rollback(ctx)

	now := time.Now().UTC()
	ids := make([]string, 0, len(candidates))
	for _, c := range candidates {
		metadata, err := json.Marshal(leadMetadata{SourceCandidateID: c.ID, SourceRunID: c.SourceRunID})
		if err != nil {
			return eris.Wrap(err, "approval: marshal lead metadata")
		}

		var leadID string
		err = tx.QueryRow(ctx, leadUpsertSQL,
			uuid.New().String(), workspaceID, c.Email,
			nullIfEmpty(c.FirstName), nullIfEmpty(c.LastName), nullIfEmpty(c.Title),
			nullIfEmpty(c.CompanyName), nullIfEmpty(c.LinkedinURL),
			metadata, now, now,
		).Scan(&leadID)
		if err != nil {
			return eris.Wrapf(err, "approval: upsert lead for %s", c.Email)
		}

		if _, err := tx.Exec(ctx, campaignLeadInsertSQL, campaignID, leadID); err != nil {
			return eris.Wrapf(err, "approval: link lead %s to campaign", leadID)
		}

		ids = append(ids, c.ID)
	}

	_, err = tx.Exec(ctx,
		`UPDATE candidates SET status = $1 WHERE id = ANY($2)`,
		string(model.CandidateStatusApproved), ids,
	)
	if err != nil {
		return eris.Wrap(err, "approval: mark candidates approved")
	}

	if err := tx.Commit(ctx); err != nil {
		return eris.Wrap(err, "approval: commit tx")
	}
	return nil
}

// RejectCandidates flips NEW candidates to REJECTED and reports how many
// rows transitioned.
func (s *PostgresStore) RejectCandidates(ctx context.Context, workspaceID, campaignID string, ids []string) (int64, error) {
	tag, err := s.pool.Exec(ctx,
		`UPDATE candidates SET status = $1
		 WHERE workspace_id = $2 AND campaign_id = $3 AND id = ANY($4) AND status = $5`,
		string(model.CandidateStatusRejected), workspaceID, campaignID, ids,
		string(model.CandidateStatusNew),
	)
	if err != nil {
		return 0, eris.Wrap(err, "approval: reject candidates")
	}
	return tag.RowsAffected(), nil
}

func nullIfEmpty(s string) any {
	if s == "" {
		return nil
	}
	return s
}
