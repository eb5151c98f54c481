package agent

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/halfmoonlab/supportdesk/gate"
	"github.com/halfmoonlab/supportdesk/internal/idgen"
	"github.com/halfmoonlab/supportdesk/internal/strutil"
	"github.com/halfmoonlab/supportdesk/llm"
	"github.com/halfmoonlab/supportdesk/session"
	"github.com/halfmoonlab/supportdesk/tools"
)

const (
	defaultMaxSteps            = 8
	defaultHistoryLimit        = 200
	defaultMaxObservationBytes = 16 * 1024
)

const defaultSystemPrompt = `You are a customer support agent.
Use product_catalog_lookup for product info.
Use order_lookup for order details.
Use request_refund for refunds; large refunds are suspended until a human approves them, and a pending status means the customer should be told the refund awaits approval.
Answer the customer in plain text.`

type Config struct {
	AppName  string
	Model    string
	MaxSteps int

	HistoryLimit        int
	MaxObservationBytes int

	SystemPrompt string
}

type Engine struct {
	client   llm.Client
	registry *tools.Registry
	sessions session.Store
	cfg      Config
	log      *slog.Logger
}

type Option func(*Engine)

func WithLogger(log *slog.Logger) Option {
	return func(e *Engine) {
		if log != nil {
			e.log = log
		}
	}
}

func New(client llm.Client, registry *tools.Registry, sessions session.Store, cfg Config, opts ...Option) *Engine {
	if strings.TrimSpace(cfg.AppName) == "" {
		cfg.AppName = "supportdesk"
	}
	if cfg.MaxSteps <= 0 {
		cfg.MaxSteps = defaultMaxSteps
	}
	if cfg.HistoryLimit <= 0 {
		cfg.HistoryLimit = defaultHistoryLimit
	}
	if cfg.MaxObservationBytes <= 0 {
		cfg.MaxObservationBytes = defaultMaxObservationBytes
	}
	if strings.TrimSpace(cfg.SystemPrompt) == "" {
		cfg.SystemPrompt = defaultSystemPrompt
	}
	e := &Engine{
		client:   client,
		registry: registry,
		sessions: sessions,
		cfg:      cfg,
		log:      slog.Default(),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// TurnInput is one inbound user message addressed to a session.
type TurnInput struct {
	UserID    string
	SessionID string
	Text      string
}

// Run drives one turn to completion and returns the ordered events it
// produced. The call blocks until the turn is finished; pending refunds do
// not block the turn, they become confirmation events.
func (e *Engine) Run(ctx context.Context, in TurnInput) ([]Event, error) {
	if e == nil || e.client == nil {
		return nil, fmt.Errorf("engine is not configured")
	}
	userID := strings.TrimSpace(in.UserID)
	sessionID := strings.TrimSpace(in.SessionID)
	text := strings.TrimSpace(in.Text)
	if userID == "" || sessionID == "" {
		return nil, fmt.Errorf("missing user or session id")
	}
	if text == "" {
		return nil, fmt.Errorf("empty message")
	}

	key := session.Key{AppName: e.cfg.AppName, UserID: userID, SessionID: sessionID}

	invocationID, err := idgen.InvocationID()
	if err != nil {
		return nil, err
	}
	log := e.log.With("session_id", sessionID, "invocation_id", invocationID)

	var history []llm.Message
	if e.sessions != nil {
		history, err = e.sessions.History(ctx, key, e.cfg.HistoryLimit)
		if err != nil {
			return nil, fmt.Errorf("load history: %w", err)
		}
	}

	userMsg := llm.Message{Role: "user", Content: text}
	messages := make([]llm.Message, 0, len(history)+2)
	messages = append(messages, llm.Message{Role: "system", Content: e.cfg.SystemPrompt})
	messages = append(messages, history...)
	messages = append(messages, userMsg)

	st := &turnState{
		key:          key,
		invocationID: invocationID,
		messages:     messages,
		newMessages:  []llm.Message{userMsg},
		log:          log,
	}

	events, err := e.runLoop(ctx, st)
	if err != nil {
		log.Warn("turn_failed", "error", err.Error())
		return nil, err
	}

	if e.sessions != nil {
		if err := e.sessions.Append(ctx, key, st.newMessages); err != nil {
			log.Warn("history_append_failed", "error", err.Error())
		}
	}
	log.Info("turn_done", "events", len(events), "steps", st.step)
	return events, nil
}

type turnState struct {
	key          session.Key
	invocationID string

	messages    []llm.Message
	newMessages []llm.Message

	step int
	log  *slog.Logger

	// Set when resuming: the gated call to replay before consulting the
	// model again, and the decision to inject while doing so.
	pendingTool  *llm.ToolCall
	confirmation *gate.Confirmation
}

func (st *turnState) appendMessage(m llm.Message) {
	st.messages = append(st.messages, m)
	st.newMessages = append(st.newMessages, m)
}

func (e *Engine) runLoop(ctx context.Context, st *turnState) ([]Event, error) {
	var events []Event

	if st.pendingTool != nil {
		callCtx := ctx
		if st.confirmation != nil {
			callCtx = gate.WithConfirmation(ctx, *st.confirmation)
		}
		obs, pe, err := e.executeTool(callCtx, *st.pendingTool, st.log)
		if err != nil {
			return nil, err
		}
		if pe != nil {
			// The gate saw no decision; the confirmation did not reach it.
			return nil, fmt.Errorf("resumed tool call did not finalize")
		}
		st.appendMessage(llm.Message{Role: "tool", ToolCallID: st.pendingTool.ID, Content: obs})
		st.pendingTool = nil
		st.confirmation = nil
	}

	for {
		if st.step >= e.cfg.MaxSteps {
			return nil, fmt.Errorf("turn exceeded %d steps", e.cfg.MaxSteps)
		}
		st.step++

		res, err := e.client.Chat(ctx, llm.Request{
			Model:    e.cfg.Model,
			Messages: st.messages,
			Tools:    buildLLMTools(e.registry),
		})
		if err != nil {
			return nil, fmt.Errorf("model call: %w", err)
		}

		text := strings.TrimSpace(res.Text)
		if len(res.ToolCalls) == 0 {
			if text != "" {
				events = append(events, Event{InvocationID: st.invocationID, Text: text})
			}
			st.appendMessage(llm.Message{Role: "assistant", Content: res.Text})
			return events, nil
		}

		if text != "" {
			events = append(events, Event{InvocationID: st.invocationID, Text: text})
		}
		st.appendMessage(llm.Message{Role: "assistant", Content: res.Text, ToolCalls: res.ToolCalls})

		batchEvents, err := e.executeBatch(ctx, st, res.ToolCalls)
		if err != nil {
			return nil, err
		}
		events = append(events, batchEvents...)
	}
}

type batchResult struct {
	call        llm.ToolCall
	observation string
	pending     *gate.PendingError
}

// executeBatch runs one batch of tool calls in order. Pending refunds do not
// stop the batch: each gets a resumable snapshot and a confirmation event,
// and the model sees a pending observation so it can tell the customer.
func (e *Engine) executeBatch(ctx context.Context, st *turnState, calls []llm.ToolCall) ([]Event, error) {
	results := make([]batchResult, 0, len(calls))
	for _, call := range calls {
		obs, pe, err := e.executeTool(ctx, call, st.log)
		if err != nil {
			return nil, err
		}
		results = append(results, batchResult{call: call, observation: obs, pending: pe})
	}

	var events []Event
	for i, r := range results {
		if r.pending == nil {
			continue
		}

		invocationID, err := idgen.InvocationID()
		if err != nil {
			return nil, err
		}

		// The snapshot holds the conversation as this batch leaves it,
		// minus the suspended call's own observation; resuming appends
		// that observation with the decision applied and carries on.
		snapshotMsgs := make([]llm.Message, 0, len(st.messages)+len(results)-1)
		snapshotMsgs = append(snapshotMsgs, st.messages...)
		for j, other := range results {
			if j == i {
				continue
			}
			snapshotMsgs = append(snapshotMsgs, llm.Message{Role: "tool", ToolCallID: other.call.ID, Content: other.observation})
		}

		state, err := marshalResumeState(resumeStateV1{
			AppName:      st.key.AppName,
			UserID:       st.key.UserID,
			SessionID:    st.key.SessionID,
			InvocationID: invocationID,
			Step:         st.step,
			Messages:     snapshotMsgs,
			PendingTool:  r.call,
		})
		if err != nil {
			return nil, err
		}

		st.log.Info("gate_pending",
			"approval_invocation_id", invocationID,
			"tool", r.call.Name,
			"hint", r.pending.Decision.Hint,
		)
		events = append(events, Event{
			InvocationID: invocationID,
			Confirmation: &ConfirmationRequest{
				Hint:        r.pending.Decision.Hint,
				Payload:     r.pending.Decision.Payload,
				ResumeState: state,
			},
		})
	}

	for _, r := range results {
		msg := llm.Message{Role: "tool", ToolCallID: r.call.ID, Content: r.observation}
		if r.pending != nil {
			// In-turn only. The resumed turn persists the finalized
			// observation for this call id.
			st.messages = append(st.messages, msg)
			continue
		}
		st.appendMessage(msg)
	}
	return events, nil
}

// executeTool runs one tool call and shapes its observation. A pending
// refund is reported via the second return; other tool errors become
// structured error observations so the model can react to them.
func (e *Engine) executeTool(ctx context.Context, call llm.ToolCall, log *slog.Logger) (string, *gate.PendingError, error) {
	name := strings.TrimSpace(call.Name)
	tool, ok := e.registry.Get(name)
	if !ok {
		log.Warn("tool_unknown", "tool", name)
		return errorObservation(fmt.Sprintf("unknown tool: %s", name)), nil, nil
	}

	out, err := tool.Execute(ctx, call.Arguments)
	if err != nil {
		var pe *gate.PendingError
		if errors.As(err, &pe) {
			return pendingObservation(), pe, nil
		}
		log.Warn("tool_error", "tool", name, "error", err.Error())
		return errorObservation(err.Error()), nil, nil
	}

	log.Debug("tool_executed", "tool", name)
	return strutil.TruncateUTF8(out, e.cfg.MaxObservationBytes), nil, nil
}

func pendingObservation() string {
	return `{"status":"pending","message":"Awaiting human approval"}`
}

func errorObservation(msg string) string {
	b, _ := json.Marshal(map[string]any{
		"status":        "error",
		"error_message": msg,
	})
	return string(b)
}
