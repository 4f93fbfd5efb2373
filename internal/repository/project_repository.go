package repository

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"

	"github.com/overleaf/overleaf-sub002/internal/errs"
	"github.com/overleaf/overleaf-sub002/internal/models"
)

type ProjectRepository struct {
	pool PgxPool
}

func NewProjectRepository(pool PgxPool) *ProjectRepository {
	return &ProjectRepository{pool: pool}
}

const projectColumns = `
	id, owner_id, name, public_access_level, token_access_enabled,
	token_ro, token_rw, token_rw_prefix, deleted_at, created_at, updated_at
`

func scanProject(row pgx.Row) (models.Project, error) {
	var (
		p        models.Project
		ro       *string
		rw       *string
		rwPrefix *string
	)
	if err := row.Scan(
		&p.ID,
		&p.OwnerID,
		&p.Name,
		&p.PublicAccessLevel,
		&p.TokenAccessEnabled,
		&ro,
		&rw,
		&rwPrefix,
		&p.DeletedAt,
		&p.CreatedAt,
		&p.UpdatedAt,
	); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return models.Project{}, errs.ErrNotFound
		}
		return models.Project{}, err
	}
	if ro != nil {
		p.Tokens.ReadOnly = models.AccessToken(*ro)
	}
	if rw != nil {
		p.Tokens.ReadAndWrite = models.AccessToken(*rw)
	}
	if rwPrefix != nil {
		p.Tokens.ReadAndWritePrefix = *rwPrefix
	}
	return p, nil
}

func (r *ProjectRepository) Create(ctx context.Context, p models.Project) error {
	const query = `
		INSERT INTO projects (
			id, owner_id, name, public_access_level, token_access_enabled, created_at, updated_at
		) VALUES (
			$1, $2, $3, $4, $5, NOW(), NOW()
		)
	`
	_, err := r.pool.Exec(ctx, query,
		p.ID,
		p.OwnerID,
		p.Name,
		p.PublicAccessLevel,
		p.TokenAccessEnabled,
	)
	return err
}

// GetByID returns the project. Soft-deleted projects surface as NotFound.
func (r *ProjectRepository) GetByID(ctx context.Context, id string) (models.Project, error) {
	const query = `
		SELECT ` + projectColumns + `
		FROM projects WHERE id = $1 AND deleted_at IS NULL
	`
	return scanProject(r.pool.QueryRow(ctx, query, id))
}

// FindByToken looks a live project up by one of its sharing tokens. The
// caller still has to check token-access liveness; a deleted project is
// NotFound here already.
func (r *ProjectRepository) FindByToken(ctx context.Context, kind models.TokenKind, token models.AccessToken) (models.Project, error) {
	column := "token_ro"
	if kind == models.TokenKindReadAndWrite {
		column = "token_rw"
	}
	query := `
		SELECT ` + projectColumns + `
		FROM projects WHERE ` + column + ` = $1 AND deleted_at IS NULL
	`
	return scanProject(r.pool.QueryRow(ctx, query, string(token)))
}

func (r *ProjectRepository) SetTokens(ctx context.Context, id string, tokens models.Tokens) error {
	const query = `
		UPDATE projects
		SET token_ro = $2, token_rw = $3, token_rw_prefix = $4, updated_at = NOW()
		WHERE id = $1 AND deleted_at IS NULL
	`
	cmd, err := r.pool.Exec(ctx, query, id,
		string(tokens.ReadOnly), string(tokens.ReadAndWrite), tokens.ReadAndWritePrefix)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return errs.ErrNotFound
	}
	return nil
}

func (r *ProjectRepository) SetTokenAccess(ctx context.Context, id string, enabled bool) error {
	const query = `
		UPDATE projects SET token_access_enabled = $2, updated_at = NOW()
		WHERE id = $1 AND deleted_at IS NULL
	`
	cmd, err := r.pool.Exec(ctx, query, id, enabled)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return errs.ErrNotFound
	}
	return nil
}

func (r *ProjectRepository) SetPublicAccessLevel(ctx context.Context, id string, level models.PublicAccessLevel) error {
	const query = `
		UPDATE projects SET public_access_level = $2, updated_at = NOW()
		WHERE id = $1 AND deleted_at IS NULL
	`
	cmd, err := r.pool.Exec(ctx, query, id, level)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return errs.ErrNotFound
	}
	return nil
}

func (r *ProjectRepository) SoftDelete(ctx context.Context, id string) error {
	const query = `
		UPDATE projects SET deleted_at = NOW(), updated_at = NOW()
		WHERE id = $1 AND deleted_at IS NULL
	`
	cmd, err := r.pool.Exec(ctx, query, id)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return errs.ErrNotFound
	}
	return nil
}
