package db

import (
	"context"
	"testing"

	"github.com/jackc/pgx/v5"
	"github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCopyFrom_EmptyRows(t *testing.T) {
	n, err := CopyFrom(context.Background(), nil, "candidates", []string{"id"}, nil)
	assert.NoError(t, err)
	assert.Equal(t, int64(0), n)
}

func TestCopyFrom(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	rows := [][]any{{"c1", "a@x.com"}, {"c2", "b@x.com"}}
	mock.ExpectCopyFrom(pgx.Identifier{"candidates"}, []string{"id", "email"}).
		WillReturnResult(2)

	n, err := CopyFrom(context.Background(), mock, "candidates", []string{"id", "email"}, rows)
	require.NoError(t, err)
	assert.Equal(t, int64(2), n)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCopyFrom_Error(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	mock.ExpectCopyFrom(pgx.Identifier{"candidates"}, []string{"id"}).
		WillReturnError(assert.AnError)

	_, err = CopyFrom(context.Background(), mock, "candidates", []string{"id"}, [][]any{{"c1"}})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "COPY INTO candidates")
}
