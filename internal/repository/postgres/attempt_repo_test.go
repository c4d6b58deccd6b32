package postgres

import (
	"context"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAttemptRepo_CountByUser(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewAttemptRepo(db)
	mock.ExpectQuery(`SELECT count\(\*\) FROM "user_quiz_attempts" WHERE user_id = `).
		WithArgs("u1").
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(3))

	n, err := repo.CountByUser(context.Background(), "u1")

	require.NoError(t, err)
	assert.Equal(t, int64(3), n)
	assert.NoError(t, mock.ExpectationsWereMet())
}
