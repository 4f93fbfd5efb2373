package repository

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"

	"github.com/overleaf/overleaf-sub002/internal/errs"
	"github.com/overleaf/overleaf-sub002/internal/models"
)

type MemberRepository struct {
	pool PgxPool
}

func NewMemberRepository(pool PgxPool) *MemberRepository {
	return &MemberRepository{pool: pool}
}

// Upsert inserts or updates the member row. Concurrent accepts land on the
// same primary key, so re-accepting is always a no-op update, never a
// duplicate row.
func (r *MemberRepository) Upsert(ctx context.Context, m models.Member) error {
	const query = `
		INSERT INTO project_members (project_id, user_id, privilege, source, created_at)
		VALUES ($1, $2, $3, $4, NOW())
		ON CONFLICT (project_id, user_id)
		DO UPDATE SET privilege = EXCLUDED.privilege, source = EXCLUDED.source
	`
	_, err := r.pool.Exec(ctx, query, m.ProjectID, m.UserID, m.Privilege, m.Source)
	return err
}

func (r *MemberRepository) Get(ctx context.Context, projectID, userID string) (models.Member, error) {
	const query = `
		SELECT project_id, user_id, privilege, source, created_at
		FROM project_members WHERE project_id = $1 AND user_id = $2
	`
	row := r.pool.QueryRow(ctx, query, projectID, userID)
	var m models.Member
	if err := row.Scan(&m.ProjectID, &m.UserID, &m.Privilege, &m.Source, &m.CreatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return models.Member{}, errs.ErrNotFound
		}
		return models.Member{}, err
	}
	return m, nil
}

func (r *MemberRepository) ListByProject(ctx context.Context, projectID string) ([]models.Member, error) {
	const query = `
		SELECT project_id, user_id, privilege, source, created_at
		FROM project_members WHERE project_id = $1
		ORDER BY created_at
	`
	rows, err := r.pool.Query(ctx, query, projectID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var members []models.Member
	for rows.Next() {
		var m models.Member
		if err := rows.Scan(&m.ProjectID, &m.UserID, &m.Privilege, &m.Source, &m.CreatedAt); err != nil {
			return nil, err
		}
		members = append(members, m)
	}
	return members, rows.Err()
}

func (r *MemberRepository) Delete(ctx context.Context, projectID, userID string) error {
	const query = `DELETE FROM project_members WHERE project_id = $1 AND user_id = $2`
	cmd, err := r.pool.Exec(ctx, query, projectID, userID)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return errs.ErrNotFound
	}
	return nil
}
