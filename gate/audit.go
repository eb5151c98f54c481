package gate

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"time"
)

// AuditEvent is one line of the refund audit trail: a gate decision or an
// approval resolution.
type AuditEvent struct {
	EventID   string    `json:"event_id"`
	Timestamp time.Time `json:"ts"`

	AppName      string `json:"app_name,omitempty"`
	UserID       string `json:"user_id,omitempty"`
	SessionID    string `json:"session_id,omitempty"`
	InvocationID string `json:"invocation_id,omitempty"`
	ApprovalID   string `json:"approval_id,omitempty"`

	Outcome  Outcome `json:"outcome"`
	RefundID string  `json:"refund_id,omitempty"`
	OrderID  string  `json:"order_id,omitempty"`
	Amount   float64 `json:"amount"`

	Actor        string `json:"actor,omitempty"`
	HintRedacted string `json:"hint_redacted,omitempty"`
}

type AuditSink interface {
	Emit(ctx context.Context, e AuditEvent) error
	Close() error
}

// NewEventID derives a stable id from the event coordinates.
func NewEventID(sessionID, invocationID string, ts time.Time) string {
	seed := fmt.Sprintf("%s|%s|%s", sessionID, invocationID, ts.UTC().Format(time.RFC3339Nano))
	sum := sha256.Sum256([]byte(seed))
	return "evt_" + hex.EncodeToString(sum[:8])
}
