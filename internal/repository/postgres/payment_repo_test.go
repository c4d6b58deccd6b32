package postgres

import (
	"context"
	"database/sql"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func newMockDB(t *testing.T) (*gorm.DB, sqlmock.Sqlmock) {
	t.Helper()

	sqlDB, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	t.Cleanup(func() { _ = sqlDB.Close() })

	db, err := gorm.Open(postgres.New(postgres.Config{Conn: sqlDB}), &gorm.Config{
		SkipDefaultTransaction: true,
		Logger:                 logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)
	return db, mock
}

func TestPaymentRepo_MarkCompleted_ScopedToOrderUserAndPending(t *testing.T) {
	tests := []struct {
		name         string
		rowsAffected int64
	}{
		{"платеж пользователя в статусе pending", 1},
		{"чужой или уже подтвержденный платеж", 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			// Arrange
			db, mock := newMockDB(t)
			repo := NewPaymentRepo(db)
			mock.ExpectExec(`UPDATE "payments" SET .* WHERE razorpay_order_id = .* AND user_id = .* AND status = `).
				WillReturnResult(sqlmock.NewResult(0, tt.rowsAffected))

			// Act
			n, err := repo.MarkCompleted(context.Background(), "o1", "u1", "p1")

			// Assert
			require.NoError(t, err)
			assert.Equal(t, tt.rowsAffected, n)
			assert.NoError(t, mock.ExpectationsWereMet())
		})
	}
}

func TestPaymentRepo_MarkCompleted_DBError(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewPaymentRepo(db)
	mock.ExpectExec(`UPDATE "payments"`).WillReturnError(sql.ErrConnDone)

	n, err := repo.MarkCompleted(context.Background(), "o1", "u1", "p1")

	assert.ErrorIs(t, err, sql.ErrConnDone)
	assert.Zero(t, n)
}

func TestAdminRepo_IsAdmin(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewAdminRepo(db)

	mock.ExpectQuery(`SELECT count\(\*\) FROM "admin_users" WHERE user_id = `).
		WithArgs("admin-1").
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(1))
	mock.ExpectQuery(`SELECT count\(\*\) FROM "admin_users" WHERE user_id = `).
		WithArgs("user-2").
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(0))

	isAdmin, err := repo.IsAdmin(context.Background(), "admin-1")
	require.NoError(t, err)
	assert.True(t, isAdmin)

	isAdmin, err = repo.IsAdmin(context.Background(), "user-2")
	require.NoError(t, err)
	assert.False(t, isAdmin)

	assert.NoError(t, mock.ExpectationsWereMet())
}
