package gate

import (
	"context"
	"errors"
	"time"
)

// DefaultThreshold is the refund amount above which a human decision is
// required before the refund is issued.
const DefaultThreshold = 100.0

type Outcome string

const (
	OutcomeApproved Outcome = "approved"
	OutcomePending  Outcome = "pending"
	OutcomeRejected Outcome = "rejected"
)

// RefundRequest is one requested refund, as extracted from a tool call.
// Payload is opaque caller data echoed back to whoever approves the refund.
type RefundRequest struct {
	OrderID string
	Amount  float64
	Payload map[string]any
}

// Confirmation is a prior human decision for a suspended refund.
type Confirmation struct {
	ApprovalID string
	Confirmed  bool
}

// Decision is the outcome of evaluating one RefundRequest. Pending is
// non-terminal: it asks for external input rather than answering.
type Decision struct {
	Outcome  Outcome
	RefundID string
	Amount   float64
	Hint     string
	Payload  map[string]any
	Reason   string
}

// PendingError is raised (as an error from the refund tool) when a refund
// cannot proceed without human approval. The embedded Decision carries the
// hint and payload shown to the approver.
type PendingError struct {
	Decision Decision
}

func (e *PendingError) Error() string {
	return "refund requires human approval: " + e.Decision.Hint
}

type TicketStatus string

const (
	TicketPending  TicketStatus = "pending"
	TicketApproved TicketStatus = "approved"
	TicketRejected TicketStatus = "rejected"
)

// Ticket correlates a pending Decision with a later human decision. One
// ticket is created per pending refund and consumed exactly once.
type Ticket struct {
	ApprovalID   string
	InvocationID string

	AppName   string
	UserID    string
	SessionID string

	Hint    string
	Payload map[string]any

	Status     TicketStatus
	Confirmed  bool
	CreatedAt  time.Time
	ResolvedAt *time.Time

	ResumeState []byte
}

var (
	ErrTicketNotFound   = errors.New("approval ticket not found")
	ErrTicketNotPending = errors.New("approval ticket already resolved")
)

// TicketStore persists approval tickets. Consume must be atomic: two
// concurrent Consume calls for the same approval id must not both succeed.
type TicketStore interface {
	Create(ctx context.Context, t Ticket) error
	Get(ctx context.Context, approvalID string) (Ticket, bool, error)

	// Consume resolves a pending ticket addressed by (approvalID,
	// invocationID) and returns it with its resume state. A missing ticket
	// or an invocation id mismatch yields ErrTicketNotFound; a ticket that
	// was already resolved yields ErrTicketNotPending.
	Consume(ctx context.Context, approvalID, invocationID string, confirmed bool) (Ticket, error)
}
