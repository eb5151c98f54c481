package agent

import (
	"encoding/json"
	"fmt"

	"github.com/halfmoonlab/supportdesk/llm"
)

// resumeStateV1 is the serialized snapshot of a turn suspended at a pending
// refund. It carries everything the engine needs to replay the gated tool
// call with the human decision injected and run the turn to completion.
type resumeStateV1 struct {
	Version int `json:"v"`

	AppName   string `json:"app_name"`
	UserID    string `json:"user_id"`
	SessionID string `json:"session_id"`

	InvocationID string `json:"invocation_id"`
	Step         int    `json:"step"`

	Messages []llm.Message `json:"messages"`

	PendingTool llm.ToolCall `json:"pending_tool"`
}

func marshalResumeState(st resumeStateV1) ([]byte, error) {
	st.Version = 1
	return json.Marshal(st)
}

func unmarshalResumeState(b []byte) (resumeStateV1, error) {
	var st resumeStateV1
	if err := json.Unmarshal(b, &st); err != nil {
		return resumeStateV1{}, err
	}
	if st.Version != 1 {
		return resumeStateV1{}, fmt.Errorf("unsupported resume state version: %d", st.Version)
	}
	return st, nil
}
