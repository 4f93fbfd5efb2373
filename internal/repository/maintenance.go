package repository

import (
	"context"
	"time"
)

// Maintenance bundles the periodic cleanup operations for the job scheduler.
type Maintenance struct {
	invites *InviteRepository
	grants  *GrantRepository
	audits  *AuditRepository
}

func NewMaintenance(invites *InviteRepository, grants *GrantRepository, audits *AuditRepository) *Maintenance {
	return &Maintenance{invites: invites, grants: grants, audits: audits}
}

func (m *Maintenance) DeleteOrphanInvites(ctx context.Context) (int64, error) {
	return m.invites.DeleteOrphans(ctx)
}

func (m *Maintenance) DeleteOrphanGrants(ctx context.Context) (int64, error) {
	return m.grants.DeleteOrphans(ctx)
}

func (m *Maintenance) TrimAudit(ctx context.Context, cutoff time.Time) (int64, error) {
	return m.audits.DeleteOlderThan(ctx, cutoff)
}
