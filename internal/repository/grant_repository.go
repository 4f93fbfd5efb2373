package repository

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"

	"github.com/overleaf/overleaf-sub002/internal/errs"
	"github.com/overleaf/overleaf-sub002/internal/models"
)

type GrantRepository struct {
	pool PgxPool
}

func NewGrantRepository(pool PgxPool) *GrantRepository {
	return &GrantRepository{pool: pool}
}

func (r *GrantRepository) Upsert(ctx context.Context, g models.TokenGrant) error {
	const query = `
		INSERT INTO token_grants (project_id, user_id, privilege, token_used, created_at)
		VALUES ($1, $2, $3, $4, NOW())
		ON CONFLICT (project_id, user_id)
		DO UPDATE SET privilege = EXCLUDED.privilege, token_used = EXCLUDED.token_used
	`
	_, err := r.pool.Exec(ctx, query, g.ProjectID, g.UserID, g.Privilege, string(g.TokenUsed))
	return err
}

func (r *GrantRepository) Get(ctx context.Context, projectID, userID string) (models.TokenGrant, error) {
	const query = `
		SELECT project_id, user_id, privilege, token_used, created_at
		FROM token_grants WHERE project_id = $1 AND user_id = $2
	`
	row := r.pool.QueryRow(ctx, query, projectID, userID)
	var g models.TokenGrant
	var tokenUsed string
	if err := row.Scan(&g.ProjectID, &g.UserID, &g.Privilege, &tokenUsed, &g.CreatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return models.TokenGrant{}, errs.ErrNotFound
		}
		return models.TokenGrant{}, err
	}
	g.TokenUsed = models.AccessToken(tokenUsed)
	return g, nil
}

// DeleteOrphans removes grants whose project has been hard-deleted or
// soft-deleted long enough ago that it will never come back.
func (r *GrantRepository) DeleteOrphans(ctx context.Context) (int64, error) {
	const query = `
		DELETE FROM token_grants g
		USING projects p
		WHERE g.project_id = p.id AND p.deleted_at IS NOT NULL AND p.deleted_at < NOW() - INTERVAL '30 days'
	`
	cmd, err := r.pool.Exec(ctx, query)
	if err != nil {
		return 0, err
	}
	return cmd.RowsAffected(), nil
}
