package builtin

import (
	"context"
	"fmt"
	"strings"

	"github.com/halfmoonlab/supportdesk/gate"
)

// RequestRefundTool issues refunds through the gate. Small refunds resolve
// synchronously; large ones raise a *gate.PendingError so the engine can
// suspend the action and surface an approval request. On resumption the
// engine injects the human decision into the context and replays this call.
type RequestRefundTool struct {
	Gate *gate.Gate
}

func NewRequestRefundTool(g *gate.Gate) *RequestRefundTool {
	return &RequestRefundTool{Gate: g}
}

func (t *RequestRefundTool) Name() string { return "request_refund" }

func (t *RequestRefundTool) Description() string {
	return "Requests a refund for an order. Large refunds are suspended until a human approves them."
}

func (t *RequestRefundTool) ParameterSchema() string {
	return `{
  "type": "object",
  "additionalProperties": false,
  "properties": {
    "order_id": { "type": "string", "description": "Order id to refund, e.g. ORD-001." },
    "amount": { "type": "number", "description": "Refund amount in dollars." }
  },
  "required": ["order_id", "amount"]
}`
}

func (t *RequestRefundTool) Execute(ctx context.Context, params map[string]any) (string, error) {
	if t == nil || t.Gate == nil {
		return "", fmt.Errorf("refund gate is not configured")
	}

	orderID := strings.TrimSpace(getString(params, "order_id"))
	if orderID == "" {
		return "", fmt.Errorf("missing required param: order_id")
	}
	amount, ok := getFloat(params, "amount")
	if !ok {
		return "", fmt.Errorf("missing required param: amount")
	}

	var prior *gate.Confirmation
	if c, ok := gate.ConfirmationFromContext(ctx); ok {
		prior = &c
	}

	dec, err := t.Gate.Evaluate(gate.RefundRequest{OrderID: orderID, Amount: amount}, prior)
	if err != nil {
		return "", err
	}

	switch dec.Outcome {
	case gate.OutcomeApproved:
		return marshalResult(map[string]any{
			"status":    "approved",
			"refund_id": dec.RefundID,
			"amount":    dec.Amount,
		})
	case gate.OutcomePending:
		return "", &gate.PendingError{Decision: dec}
	case gate.OutcomeRejected:
		return marshalResult(map[string]any{
			"status":  "rejected",
			"message": dec.Reason,
		})
	default:
		return "", fmt.Errorf("unexpected gate outcome: %s", dec.Outcome)
	}
}
