// Package approval sits between the HTTP surface and the agent runtime. It
// owns the lifecycle of approval tickets: it opens one per confirmation event
// a turn emits, and consumes exactly one per operator resolution.
package approval

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/halfmoonlab/supportdesk/agent"
	"github.com/halfmoonlab/supportdesk/gate"
	"github.com/halfmoonlab/supportdesk/internal/idgen"
	"github.com/halfmoonlab/supportdesk/session"
)

// Engine is the slice of the agent runtime the coordinator drives.
type Engine interface {
	Run(ctx context.Context, in agent.TurnInput) ([]agent.Event, error)
	Resume(ctx context.Context, state []byte, conf gate.Confirmation) ([]agent.Event, error)
}

// PendingApproval is one refund awaiting a human decision.
type PendingApproval struct {
	ApprovalID   string         `json:"approval_id"`
	InvocationID string         `json:"invocation_id"`
	Hint         string         `json:"hint,omitempty"`
	Payload      map[string]any `json:"payload,omitempty"`
}

// TurnResult is what one submit or resolve produced, in emission order.
type TurnResult struct {
	Events    int               `json:"events"`
	Responses []string          `json:"responses"`
	Approvals []PendingApproval `json:"approvals"`
}

type Coordinator struct {
	engine   Engine
	sessions session.Store
	tickets  gate.TicketStore
	audit    gate.AuditSink
	redactor *gate.Redactor
	appName  string
	log      *slog.Logger
}

type Option func(*Coordinator)

func WithAudit(sink gate.AuditSink, redactor *gate.Redactor) Option {
	return func(c *Coordinator) {
		c.audit = sink
		c.redactor = redactor
	}
}

func WithLogger(log *slog.Logger) Option {
	return func(c *Coordinator) {
		if log != nil {
			c.log = log
		}
	}
}

func New(engine Engine, sessions session.Store, tickets gate.TicketStore, appName string, opts ...Option) *Coordinator {
	if strings.TrimSpace(appName) == "" {
		appName = "supportdesk"
	}
	c := &Coordinator{
		engine:   engine,
		sessions: sessions,
		tickets:  tickets,
		appName:  appName,
		log:      slog.Default(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Submit runs one user turn. The session is created on first contact;
// re-submitting to an existing session is not an error. Each confirmation
// event the turn emits becomes a pending ticket holding the resume snapshot.
func (c *Coordinator) Submit(ctx context.Context, userID, sessionID, text string) (*TurnResult, error) {
	userID = strings.TrimSpace(userID)
	sessionID = strings.TrimSpace(sessionID)
	if userID == "" || sessionID == "" {
		return nil, fmt.Errorf("missing user or session id")
	}

	key := session.Key{AppName: c.appName, UserID: userID, SessionID: sessionID}
	if c.sessions != nil {
		if err := c.sessions.Create(ctx, key); err != nil && !errors.Is(err, session.ErrAlreadyExists) {
			return nil, fmt.Errorf("create session: %w", err)
		}
	}

	events, err := c.engine.Run(ctx, agent.TurnInput{UserID: userID, SessionID: sessionID, Text: text})
	if err != nil {
		return nil, err
	}
	return c.collect(ctx, key, events)
}

// Resolve applies a human decision to a pending ticket and resumes the
// suspended turn. The consume is atomic, so two racing resolutions for the
// same approval cannot both reach the engine.
func (c *Coordinator) Resolve(ctx context.Context, invocationID, approvalID string, confirmed bool) (*TurnResult, error) {
	invocationID = strings.TrimSpace(invocationID)
	approvalID = strings.TrimSpace(approvalID)
	if invocationID == "" || approvalID == "" {
		return nil, fmt.Errorf("missing invocation or approval id: %w", gate.ErrTicketNotFound)
	}

	ticket, err := c.tickets.Consume(ctx, approvalID, invocationID, confirmed)
	if err != nil {
		return nil, err
	}

	outcome := gate.OutcomeApproved
	if !confirmed {
		outcome = gate.OutcomeRejected
	}
	c.emitAudit(ctx, ticket, outcome, "human")
	c.log.Info("approval_resolved",
		"approval_id", approvalID,
		"invocation_id", invocationID,
		"confirmed", confirmed,
	)

	events, err := c.engine.Resume(ctx, ticket.ResumeState, gate.Confirmation{
		ApprovalID: approvalID,
		Confirmed:  confirmed,
	})
	if err != nil {
		return nil, err
	}

	key := session.Key{AppName: ticket.AppName, UserID: ticket.UserID, SessionID: ticket.SessionID}
	return c.collect(ctx, key, events)
}

// collect splits engine events into responses and newly opened approvals,
// preserving emission order within each kind.
func (c *Coordinator) collect(ctx context.Context, key session.Key, events []agent.Event) (*TurnResult, error) {
	res := &TurnResult{
		Events:    len(events),
		Responses: []string{},
		Approvals: []PendingApproval{},
	}
	for _, ev := range events {
		if ev.Confirmation == nil {
			if ev.Text != "" {
				res.Responses = append(res.Responses, ev.Text)
			}
			continue
		}

		approvalID, err := idgen.ApprovalID()
		if err != nil {
			return nil, err
		}
		ticket := gate.Ticket{
			ApprovalID:   approvalID,
			InvocationID: ev.InvocationID,
			AppName:      key.AppName,
			UserID:       key.UserID,
			SessionID:    key.SessionID,
			Hint:         ev.Confirmation.Hint,
			Payload:      ev.Confirmation.Payload,
			Status:       gate.TicketPending,
			CreatedAt:    time.Now().UTC(),
			ResumeState:  ev.Confirmation.ResumeState,
		}
		if err := c.tickets.Create(ctx, ticket); err != nil {
			return nil, fmt.Errorf("create ticket: %w", err)
		}
		c.emitAudit(ctx, ticket, gate.OutcomePending, "gate")
		c.log.Info("approval_opened",
			"approval_id", approvalID,
			"invocation_id", ev.InvocationID,
			"session_id", key.SessionID,
		)
		res.Approvals = append(res.Approvals, PendingApproval{
			ApprovalID:   approvalID,
			InvocationID: ev.InvocationID,
			Hint:         ev.Confirmation.Hint,
			Payload:      ev.Confirmation.Payload,
		})
	}
	return res, nil
}

func (c *Coordinator) emitAudit(ctx context.Context, t gate.Ticket, outcome gate.Outcome, actor string) {
	if c.audit == nil {
		return
	}
	hint := t.Hint
	if c.redactor != nil {
		hint, _ = c.redactor.RedactString(hint)
	}
	orderID, _ := t.Payload["order_id"].(string)
	amount, _ := t.Payload["amount"].(float64)
	now := time.Now().UTC()
	ev := gate.AuditEvent{
		EventID:      gate.NewEventID(t.SessionID, t.InvocationID, now),
		Timestamp:    now,
		AppName:      t.AppName,
		UserID:       t.UserID,
		SessionID:    t.SessionID,
		InvocationID: t.InvocationID,
		ApprovalID:   t.ApprovalID,
		Outcome:      outcome,
		OrderID:      orderID,
		Amount:       amount,
		Actor:        actor,
		HintRedacted: hint,
	}
	if err := c.audit.Emit(ctx, ev); err != nil {
		c.log.Warn("audit_emit_failed", "error", err.Error())
	}
}
