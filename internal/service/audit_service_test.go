package service

import (
	"context"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"github.com/overleaf/overleaf-sub002/internal/models"
)

func TestAuditService_FlushesOnClose(t *testing.T) {
	store := &memAudit{}
	svc := NewAuditService(store, 8, zerolog.Nop())

	for i := 0; i < 5; i++ {
		svc.Record(models.AuditEntry{
			UserID:    "u1",
			Operation: models.AuditPasswordChanged,
		})
	}
	svc.Close()

	entries, err := store.ListByUser(context.Background(), "u1", 0)
	require.NoError(t, err)
	require.Len(t, entries, 5)
}

func TestAuditService_DefaultsInitiatorToSubject(t *testing.T) {
	store := &memAudit{}
	svc := NewAuditService(store, 8, zerolog.Nop())

	svc.Record(models.AuditEntry{UserID: "u1", Operation: models.AuditSessionsCleared})
	svc.Record(models.AuditEntry{
		UserID:      "target",
		InitiatorID: "admin",
		Operation:   models.AuditPasswordReset,
	})
	svc.Close()

	self := store.byOperation(models.AuditSessionsCleared)
	require.Len(t, self, 1)
	require.Equal(t, "u1", self[0].InitiatorID)

	reset := store.byOperation(models.AuditPasswordReset)
	require.Len(t, reset, 1)
	require.Equal(t, "admin", reset[0].InitiatorID)
}
