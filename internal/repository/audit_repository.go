package repository

import (
	"context"
	"encoding/json"
	"time"

	"github.com/overleaf/overleaf-sub002/internal/models"
)

type AuditRepository struct {
	pool PgxPool
}

func NewAuditRepository(pool PgxPool) *AuditRepository {
	return &AuditRepository{pool: pool}
}

func (r *AuditRepository) Insert(ctx context.Context, e models.AuditEntry) error {
	info := e.Info
	if info == nil {
		info = map[string]any{}
	}
	raw, err := json.Marshal(info)
	if err != nil {
		return err
	}

	const query = `
		INSERT INTO audit_log (user_id, initiator_id, operation, info, created_at)
		VALUES ($1, $2, $3, $4, NOW())
	`
	_, err = r.pool.Exec(ctx, query, e.UserID, e.InitiatorID, e.Operation, raw)
	return err
}

func (r *AuditRepository) ListByUser(ctx context.Context, userID string, limit int) ([]models.AuditEntry, error) {
	const query = `
		SELECT id, user_id, initiator_id, operation, info, created_at
		FROM audit_log WHERE user_id = $1
		ORDER BY created_at DESC LIMIT $2
	`
	rows, err := r.pool.Query(ctx, query, userID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var entries []models.AuditEntry
	for rows.Next() {
		var (
			e   models.AuditEntry
			raw []byte
		)
		if err := rows.Scan(&e.ID, &e.UserID, &e.InitiatorID, &e.Operation, &raw, &e.CreatedAt); err != nil {
			return nil, err
		}
		if len(raw) > 0 {
			if err := json.Unmarshal(raw, &e.Info); err != nil {
				return nil, err
			}
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

func (r *AuditRepository) DeleteOlderThan(ctx context.Context, cutoff time.Time) (int64, error) {
	const query = `DELETE FROM audit_log WHERE created_at < $1`
	cmd, err := r.pool.Exec(ctx, query, cutoff)
	if err != nil {
		return 0, err
	}
	return cmd.RowsAffected(), nil
}
