package repository

import (
	"context"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/pashagolub/pgxmock/v3"
	"github.com/stretchr/testify/require"

	"github.com/overleaf/overleaf-sub002/internal/errs"
	"github.com/overleaf/overleaf-sub002/internal/models"
)

func TestGrantRepositoryUpsert(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := NewGrantRepository(mock)

	mock.ExpectExec("INSERT INTO token_grants").
		WithArgs("p1", "u1", models.PrivilegeReadAndWrite, "1234567890bcdfghjkmnpq").
		WillReturnResult(pgxmock.NewResult("INSERT", 1))

	err = repo.Upsert(context.Background(), models.TokenGrant{
		ProjectID: "p1",
		UserID:    "u1",
		Privilege: models.PrivilegeReadAndWrite,
		TokenUsed: "1234567890bcdfghjkmnpq",
	})
	require.NoError(t, err)

	require.NoError(t, mock.ExpectationsWereMet())
}

func TestGrantRepositoryGet(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := NewGrantRepository(mock)

	mock.ExpectQuery("FROM token_grants WHERE project_id").
		WithArgs("p1", "u1").
		WillReturnRows(pgxmock.NewRows([]string{
			"project_id", "user_id", "privilege", "token_used", "created_at",
		}).AddRow("p1", "u1", models.PrivilegeReadOnly, "abcdefghijkl", time.Now()))

	grant, err := repo.Get(context.Background(), "p1", "u1")
	require.NoError(t, err)
	require.Equal(t, models.PrivilegeReadOnly, grant.Privilege)
	require.Equal(t, models.AccessToken("abcdefghijkl"), grant.TokenUsed)

	mock.ExpectQuery("FROM token_grants WHERE project_id").
		WithArgs("p1", "nobody").
		WillReturnError(pgx.ErrNoRows)

	_, err = repo.Get(context.Background(), "p1", "nobody")
	require.ErrorIs(t, err, errs.ErrNotFound)

	require.NoError(t, mock.ExpectationsWereMet())
}

func TestGrantRepositoryDeleteOrphans(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := NewGrantRepository(mock)

	mock.ExpectExec("DELETE FROM token_grants").
		WillReturnResult(pgxmock.NewResult("DELETE", 3))

	removed, err := repo.DeleteOrphans(context.Background())
	require.NoError(t, err)
	require.EqualValues(t, 3, removed)

	require.NoError(t, mock.ExpectationsWereMet())
}
