package verify

import (
	"context"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/leadflow/internal/apperr"
	"github.com/sells-group/leadflow/internal/model"
)

func TestPostgresStore_GetRunConnector_NotFound(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	store := NewPostgresStore(mock)

	mock.ExpectQuery(`FROM source_runs r`).
		WithArgs("missing").
		WillReturnError(pgx.ErrNoRows)

	_, _, err = store.GetRunConnector(context.Background(), "missing")
	require.Error(t, err)
	assert.True(t, apperr.IsNotFound(err))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_ListUnverifiedEmails(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	store := NewPostgresStore(mock)

	mock.ExpectQuery(`SELECT DISTINCT lower\(email\) FROM candidates`).
		WithArgs("r1", string(model.VerificationUnknown)).
		WillReturnRows(pgxmock.NewRows([]string{"email"}).
			AddRow("a@x.com").
			AddRow("b@x.com"))

	emails, err := store.ListUnverifiedEmails(context.Background(), "r1")
	require.NoError(t, err)
	assert.Equal(t, []string{"a@x.com", "b@x.com"}, emails)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_InsertVerifications(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	store := NewPostgresStore(mock)

	mock.ExpectCopyFrom(pgx.Identifier{"email_verifications"}, verificationColumns).
		WillReturnResult(1)

	n, err := store.InsertVerifications(context.Background(), []model.EmailVerification{
		{ID: "v1", WorkspaceID: "ws1", Email: "a@x.com", Provider: "neverbounce",
			Status: model.VerificationVerified, CheckedAt: time.Now().UTC()},
	})
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_UpdateCandidateVerification(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	store := NewPostgresStore(mock)

	mock.ExpectExec(`UPDATE candidates SET verification_status`).
		WithArgs(string(model.VerificationInvalid), "r1", "a@x.com").
		WillReturnResult(pgxmock.NewResult("UPDATE", 3))

	n, err := store.UpdateCandidateVerification(context.Background(), "r1", "a@x.com", model.VerificationInvalid)
	require.NoError(t, err)
	assert.Equal(t, int64(3), n)
	assert.NoError(t, mock.ExpectationsWereMet())
}
