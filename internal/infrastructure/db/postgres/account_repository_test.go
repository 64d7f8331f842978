package postgres

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/99minutos/auth-service/internal/core/domain"
)

func newMock(t *testing.T) pgxmock.PgxPoolIface {
	t.Helper()
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	t.Cleanup(func() {
		assert.NoError(t, mock.ExpectationsWereMet())
		mock.Close()
	})
	return mock
}

func TestAccountRepository_Exists(t *testing.T) {
	tests := []struct {
		name    string
		setup   func(mock pgxmock.PgxPoolIface)
		want    bool
		wantErr bool
	}{
		{
			name: "taken",
			setup: func(mock pgxmock.PgxPoolIface) {
				mock.ExpectQuery(`SELECT EXISTS`).WithArgs("alice").
					WillReturnRows(pgxmock.NewRows([]string{"exists"}).AddRow(true))
			},
			want: true,
		},
		{
			name: "free",
			setup: func(mock pgxmock.PgxPoolIface) {
				mock.ExpectQuery(`SELECT EXISTS`).WithArgs("alice").
					WillReturnRows(pgxmock.NewRows([]string{"exists"}).AddRow(false))
			},
		},
		{
			name: "database error",
			setup: func(mock pgxmock.PgxPoolIface) {
				mock.ExpectQuery(`SELECT EXISTS`).WithArgs("alice").
					WillReturnError(errors.New("connection refused"))
			},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mock := newMock(t)
			tt.setup(mock)

			got, err := NewAccountRepository(mock).Exists(context.Background(), "alice")
			if tt.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestAccountRepository_Insert(t *testing.T) {
	mock := newMock(t)
	createdAt := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	mock.ExpectExec(`INSERT INTO accounts`).
		WithArgs(pgxmock.AnyArg(), "alice", "$argon2id$cred", createdAt).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))

	got, err := NewAccountRepository(mock).Insert(context.Background(), &domain.Account{
		Username:   "alice",
		Credential: "$argon2id$cred",
		CreatedAt:  createdAt,
	})
	require.NoError(t, err)

	id, err := uuid.Parse(got.ID)
	require.NoError(t, err)
	assert.Equal(t, uuid.Version(7), id.Version())
	assert.Equal(t, "alice", got.Username)
	assert.True(t, got.CreatedAt.Equal(createdAt))
}

func TestAccountRepository_InsertConflict(t *testing.T) {
	t.Run("on conflict skipped the row", func(t *testing.T) {
		mock := newMock(t)
		mock.ExpectExec(`INSERT INTO accounts`).
			WithArgs(pgxmock.AnyArg(), "alice", "cred", pgxmock.AnyArg()).
			WillReturnResult(pgxmock.NewResult("INSERT", 0))

		_, err := NewAccountRepository(mock).Insert(context.Background(), &domain.Account{Username: "alice", Credential: "cred"})
		assert.ErrorIs(t, err, domain.ErrUserExists)
	})

	t.Run("unique violation", func(t *testing.T) {
		mock := newMock(t)
		mock.ExpectExec(`INSERT INTO accounts`).
			WithArgs(pgxmock.AnyArg(), "alice", "cred", pgxmock.AnyArg()).
			WillReturnError(&pgconn.PgError{Code: pgerrcode.UniqueViolation, ConstraintName: "accounts_pkey"})

		_, err := NewAccountRepository(mock).Insert(context.Background(), &domain.Account{Username: "alice", Credential: "cred"})
		assert.ErrorIs(t, err, domain.ErrUserExists)
	})

	t.Run("other failure", func(t *testing.T) {
		mock := newMock(t)
		mock.ExpectExec(`INSERT INTO accounts`).
			WithArgs(pgxmock.AnyArg(), "alice", "cred", pgxmock.AnyArg()).
			WillReturnError(&pgconn.PgError{Code: pgerrcode.CheckViolation})

		_, err := NewAccountRepository(mock).Insert(context.Background(), &domain.Account{Username: "alice", Credential: "cred"})
		require.Error(t, err)
		assert.NotErrorIs(t, err, domain.ErrUserExists)
	})
}

func TestAccountRepository_FindByUsername(t *testing.T) {
	cols := []string{"id", "username", "credential", "created_at"}
	createdAt := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	t.Run("found", func(t *testing.T) {
		mock := newMock(t)
		mock.ExpectQuery(`SELECT id::text, username, credential, created_at FROM accounts`).
			WithArgs("alice").
			WillReturnRows(pgxmock.NewRows(cols).AddRow("0190f5a4-0000-7000-8000-000000000001", "alice", "cred", createdAt))

		got, err := NewAccountRepository(mock).FindByUsername(context.Background(), "alice")
		require.NoError(t, err)
		assert.Equal(t, "0190f5a4-0000-7000-8000-000000000001", got.ID)
		assert.Equal(t, "cred", got.Credential)
		assert.True(t, got.CreatedAt.Equal(createdAt))
	})

	t.Run("missing", func(t *testing.T) {
		mock := newMock(t)
		mock.ExpectQuery(`SELECT id::text, username, credential, created_at FROM accounts`).
			WithArgs("ghost").
			WillReturnRows(pgxmock.NewRows(cols))

		_, err := NewAccountRepository(mock).FindByUsername(context.Background(), "ghost")
		assert.ErrorIs(t, err, domain.ErrUserNotFound)
	})

	t.Run("database error", func(t *testing.T) {
		mock := newMock(t)
		mock.ExpectQuery(`SELECT id::text, username, credential, created_at FROM accounts`).
			WithArgs("alice").
			WillReturnError(errors.New("connection reset"))

		_, err := NewAccountRepository(mock).FindByUsername(context.Background(), "alice")
		require.Error(t, err)
		assert.NotErrorIs(t, err, domain.ErrUserNotFound)
	})
}

func TestAccountRepository_Ping(t *testing.T) {
	mock := newMock(t)
	down := errors.New("down")
	mock.ExpectPing().WillReturnError(down)

	assert.ErrorIs(t, NewAccountRepository(mock).Ping(context.Background()), down)
}
