package service

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/overleaf/overleaf-sub002/internal/models"
)

// AuditService writes audit entries asynchronously so the triggering
// response is never blocked on the log store. Consumers asserting on audit
// entries must poll.
type AuditService struct {
	store AuditStore
	log   zerolog.Logger

	entries chan models.AuditEntry
	wg      sync.WaitGroup
}

func NewAuditService(store AuditStore, buffer int, log zerolog.Logger) *AuditService {
	if buffer <= 0 {
		buffer = 256
	}
	s := &AuditService{
		store:   store,
		log:     log,
		entries: make(chan models.AuditEntry, buffer),
	}
	s.wg.Add(1)
	go s.run()
	return s
}

func (s *AuditService) run() {
	defer s.wg.Done()
	for entry := range s.entries {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		if err := s.store.Insert(ctx, entry); err != nil {
			s.log.Error().Err(err).
				Str("operation", string(entry.Operation)).
				Str("user_id", entry.UserID).
				Msg("audit write failed")
		}
		cancel()
	}
}

// Record queues an entry without blocking. When the buffer is full the
// entry is dropped and logged rather than stalling the request.
func (s *AuditService) Record(entry models.AuditEntry) {
	if entry.InitiatorID == "" {
		entry.InitiatorID = entry.UserID
	}
	select {
	case s.entries <- entry:
	default:
		s.log.Warn().
			Str("operation", string(entry.Operation)).
			Str("user_id", entry.UserID).
			Msg("audit buffer full, entry dropped")
	}
}

// Close flushes queued entries and stops the writer.
func (s *AuditService) Close() {
	close(s.entries)
	s.wg.Wait()
}
