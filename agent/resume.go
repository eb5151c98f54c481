package agent

import (
	"context"
	"fmt"

	"github.com/halfmoonlab/supportdesk/gate"
	"github.com/halfmoonlab/supportdesk/llm"
	"github.com/halfmoonlab/supportdesk/session"
)

// Resume replays a suspended turn from its snapshot with the human decision
// applied. The replayed refund call finalizes first, then the loop continues
// as a normal turn; the events it returns are appended to the session like
// any other turn's.
func (e *Engine) Resume(ctx context.Context, state []byte, conf gate.Confirmation) ([]Event, error) {
	if e == nil || e.client == nil {
		return nil, fmt.Errorf("engine is not configured")
	}

	snap, err := unmarshalResumeState(state)
	if err != nil {
		return nil, err
	}

	key := session.Key{AppName: snap.AppName, UserID: snap.UserID, SessionID: snap.SessionID}
	log := e.log.With("session_id", snap.SessionID, "invocation_id", snap.InvocationID)
	log.Info("resume_start", "approval_id", conf.ApprovalID, "confirmed", conf.Confirmed)

	messages := make([]llm.Message, 0, len(snap.Messages))
	messages = append(messages, snap.Messages...)

	pending := snap.PendingTool
	st := &turnState{
		key:          key,
		invocationID: snap.InvocationID,
		messages:     messages,
		step:         snap.Step,
		log:          log,
		pendingTool:  &pending,
		confirmation: &conf,
	}

	events, err := e.runLoop(ctx, st)
	if err != nil {
		log.Warn("resume_failed", "error", err.Error())
		return nil, err
	}

	if e.sessions != nil {
		if err := e.sessions.Append(ctx, key, st.newMessages); err != nil {
			log.Warn("history_append_failed", "error", err.Error())
		}
	}
	log.Info("resume_done", "events", len(events), "steps", st.step)
	return events, nil
}
