package gate

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"
)

// MemoryTicketStore keeps tickets in process memory. Suitable for tests and
// ephemeral runs; pending tickets do not survive a restart.
type MemoryTicketStore struct {
	mu      sync.Mutex
	tickets map[string]Ticket
}

func NewMemoryTicketStore() *MemoryTicketStore {
	return &MemoryTicketStore{tickets: make(map[string]Ticket)}
}

func (s *MemoryTicketStore) Create(_ context.Context, t Ticket) error {
	id := strings.TrimSpace(t.ApprovalID)
	if id == "" {
		return fmt.Errorf("missing approval id")
	}
	if t.CreatedAt.IsZero() {
		t.CreatedAt = time.Now().UTC()
	}
	t.Status = TicketPending

	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.tickets[id]; exists {
		return fmt.Errorf("duplicate approval id: %s", id)
	}
	s.tickets[id] = t
	return nil
}

func (s *MemoryTicketStore) Get(_ context.Context, approvalID string) (Ticket, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	t, ok := s.tickets[strings.TrimSpace(approvalID)]
	return t, ok, nil
}

// Consume is a check-and-resolve under one lock: a second call for the same
// approval id observes the resolved status and fails.
func (s *MemoryTicketStore) Consume(_ context.Context, approvalID, invocationID string, confirmed bool) (Ticket, error) {
	approvalID = strings.TrimSpace(approvalID)
	invocationID = strings.TrimSpace(invocationID)
	if approvalID == "" {
		return Ticket{}, fmt.Errorf("missing approval id")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	t, ok := s.tickets[approvalID]
	if !ok || t.InvocationID != invocationID {
		return Ticket{}, ErrTicketNotFound
	}
	if t.Status != TicketPending {
		return Ticket{}, ErrTicketNotPending
	}

	now := time.Now().UTC()
	t.ResolvedAt = &now
	t.Confirmed = confirmed
	if confirmed {
		t.Status = TicketApproved
	} else {
		t.Status = TicketRejected
	}
	s.tickets[approvalID] = t
	return t, nil
}
