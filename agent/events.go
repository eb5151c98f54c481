// Package agent drives one conversational turn of the support agent: it
// feeds the session history and user message to the model, executes the tool
// calls the model requests, and emits an ordered stream of events. When a
// refund needs human approval the turn records a resumable snapshot instead
// of blocking, so the approval can arrive minutes or days later.
package agent

// Event is one item emitted during a turn, in emission order. Exactly one of
// Text or Confirmation is set.
type Event struct {
	// InvocationID identifies the turn for text events, and the suspended
	// action for confirmation events. Each pending approval owns its
	// invocation id so it can be resumed independently.
	InvocationID string

	Text string

	Confirmation *ConfirmationRequest
}

// ConfirmationRequest asks a human to decide a suspended refund.
type ConfirmationRequest struct {
	Hint    string
	Payload map[string]any

	// ResumeState is the serialized turn snapshot the engine needs to
	// replay the suspended action once a decision arrives. Opaque to
	// callers; the approval coordinator stores it on the ticket.
	ResumeState []byte
}

func (e Event) IsText() bool { return e.Confirmation == nil && e.Text != "" }
