package approval

import (
	"context"
	"testing"

	"github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/leadflow/internal/model"
)

func TestPostgresStore_GetCandidates(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	store := NewPostgresStore(mock)

	mock.ExpectQuery(`SELECT id, source_run_id, email`).
		WithArgs("ws1", "cmp1", []string{"c1"}).
		WillReturnRows(pgxmock.NewRows([]string{
			"id", "source_run_id", "email", "first_name", "last_name", "title",
			"company_name", "linkedin_url", "verification_status", "status",
		}).AddRow("c1", "r1", "a@x.com", "Ada", "Lovelace", "VP", "Acme", "",
			model.VerificationVerified, model.CandidateStatusNew))

	candidates, err := store.GetCandidates(context.Background(), "ws1", "cmp1", []string{"c1"})
	require.NoError(t, err)
	require.Len(t, candidates, 1)
	assert.Equal(t, "c1", candidates[0].ID)
	assert.Equal(t, "ws1", candidates[0].WorkspaceID)
	assert.Equal(t, model.VerificationVerified, candidates[0].Verification)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_PromoteCandidates(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	store := NewPostgresStore(mock)

	mock.ExpectBegin()
	mock.ExpectQuery(`INSERT INTO "leads"`).
		WithArgs(pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(),
			pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(),
			pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg()).
		WillReturnRows(pgxmock.NewRows([]string{"id"}).AddRow("lead-1"))
	mock.ExpectExec(`INSERT INTO "campaign_leads"`).
		WithArgs("cmp1", "lead-1").
		WillReturnResult(pgxmock.NewResult("INSERT", 1))
	mock.ExpectExec(`UPDATE candidates SET status`).
		WithArgs(string(model.CandidateStatusApproved), []string{"c1"}).
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))
	mock.ExpectCommit()

	err = store.PromoteCandidates(context.Background(), "ws1", "cmp1", []model.Candidate{
		{ID: "c1", Email: "a@x.com", FirstName: "Ada"},
	})
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_PromoteCandidates_RollsBackOnError(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	store := NewPostgresStore(mock)

	mock.ExpectBegin()
	mock.ExpectQuery(`INSERT INTO "leads"`).
		WithArgs(pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(),
			pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(),
			pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg()).
		WillReturnError(assert.AnError)
	mock.ExpectRollback()

	err = store.PromoteCandidates(context.Background(), "ws1", "cmp1", []model.Candidate{
		{ID: "c1", Email: "a@x.com"},
	})
	require.Error(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_RejectCandidates(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	store := NewPostgresStore(mock)

	mock.ExpectExec(`UPDATE candidates SET status`).
		WithArgs(string(model.CandidateStatusRejected), "ws1", "cmp1", []string{"c1", "c2"},
			string(model.CandidateStatusNew)).
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))

	count, err := store.RejectCandidates(context.Background(), "ws1", "cmp1", []string{"c1", "c2"})
	require.NoError(t, err)
	assert.Equal(t, int64(1), count)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestLeadUpsertSQL_MergesNonNull(t *testing.T) {
	assert.Contains(t, leadUpsertSQL, `ON CONFLICT ("workspace_id", "email") DO UPDATE SET`)
	assert.Contains(t, leadUpsertSQL, `"first_name" = COALESCE(EXCLUDED."first_name", "leads"."first_name")`)
	assert.Contains(t, leadUpsertSQL, `RETURNING "id"`)
}
