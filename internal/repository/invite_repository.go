package repository

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"

	"github.com/overleaf/overleaf-sub002/internal/errs"
	"github.com/overleaf/overleaf-sub002/internal/models"
)

type InviteRepository struct {
	pool PgxPool
}

func NewInviteRepository(pool PgxPool) *InviteRepository {
	return &InviteRepository{pool: pool}
}

const inviteColumns = `id, project_id, token, email, privilege, sending_user_id, created_at`

func scanInvite(row pgx.Row) (models.Invite, error) {
	var inv models.Invite
	if err := row.Scan(
		&inv.ID,
		&inv.ProjectID,
		&inv.Token,
		&inv.Email,
		&inv.Privilege,
		&inv.SendingUserID,
		&inv.CreatedAt,
	); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return models.Invite{}, errs.ErrNotFound
		}
		return models.Invite{}, err
	}
	return inv, nil
}

func (r *InviteRepository) Create(ctx context.Context, inv models.Invite) error {
	const query = `
		INSERT INTO project_invites (id, project_id, token, email, privilege, sending_user_id, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, NOW())
	`
	_, err := r.pool.Exec(ctx, query,
		inv.ID,
		inv.ProjectID,
		inv.Token,
		inv.Email,
		inv.Privilege,
		inv.SendingUserID,
	)
	if isUniqueViolation(err) {
		return errs.ErrConflict
	}
	return err
}

func (r *InviteRepository) GetByToken(ctx context.Context, token string) (models.Invite, error) {
	const query = `
		SELECT ` + inviteColumns + ` FROM project_invites WHERE token = $1
	`
	return scanInvite(r.pool.QueryRow(ctx, query, token))
}

func (r *InviteRepository) GetByID(ctx context.Context, projectID, inviteID string) (models.Invite, error) {
	const query = `
		SELECT ` + inviteColumns + ` FROM project_invites WHERE project_id = $1 AND id = $2
	`
	return scanInvite(r.pool.QueryRow(ctx, query, projectID, inviteID))
}

func (r *InviteRepository) ListByProject(ctx context.Context, projectID string) ([]models.Invite, error) {
	const query = `
		SELECT ` + inviteColumns + ` FROM project_invites
		WHERE project_id = $1 ORDER BY created_at
	`
	rows, err := r.pool.Query(ctx, query, projectID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var invites []models.Invite
	for rows.Next() {
		var inv models.Invite
		if err := rows.Scan(
			&inv.ID,
			&inv.ProjectID,
			&inv.Token,
			&inv.Email,
			&inv.Privilege,
			&inv.SendingUserID,
			&inv.CreatedAt,
		); err != nil {
			return nil, err
		}
		invites = append(invites, inv)
	}
	return invites, rows.Err()
}

// Delete removes an invite. Revocation and acceptance both end here; once
// the row is gone the invite token is permanently invalid.
func (r *InviteRepository) Delete(ctx context.Context, projectID, inviteID string) error {
	const query = `DELETE FROM project_invites WHERE project_id = $1 AND id = $2`
	cmd, err := r.pool.Exec(ctx, query, projectID, inviteID)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return errs.ErrNotFound
	}
	return nil
}

// DeleteOrphans removes invites pointing at soft-deleted projects.
func (r *InviteRepository) DeleteOrphans(ctx context.Context) (int64, error) {
	const query = `
		DELETE FROM project_invites i
		USING projects p
		WHERE i.project_id = p.id AND p.deleted_at IS NOT NULL
	`
	cmd, err := r.pool.Exec(ctx, query)
	if err != nil {
		return 0, err
	}
	return cmd.RowsAffected(), nil
}
