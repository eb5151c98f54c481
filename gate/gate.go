package gate

import (
	"fmt"
	"math"
	"strconv"
	"strings"
)

// Gate applies the refund risk policy. It is a pure function of
// (request, prior): identical inputs always yield identical decisions.
// Ticket storage and resumption belong to the approval coordinator.
type Gate struct {
	Threshold float64
}

func New(threshold float64) *Gate {
	if threshold <= 0 {
		threshold = DefaultThreshold
	}
	return &Gate{Threshold: threshold}
}

// Evaluate decides whether a refund proceeds automatically, must wait for a
// human, or (given a prior decision) is finalized.
func (g *Gate) Evaluate(req RefundRequest, prior *Confirmation) (Decision, error) {
	orderID := strings.TrimSpace(req.OrderID)
	if orderID == "" {
		return Decision{}, fmt.Errorf("missing order id")
	}
	if math.IsNaN(req.Amount) || math.IsInf(req.Amount, 0) || req.Amount < 0 {
		return Decision{}, fmt.Errorf("invalid refund amount: %v", req.Amount)
	}

	threshold := g.Threshold
	if threshold <= 0 {
		threshold = DefaultThreshold
	}

	if req.Amount <= threshold {
		return Decision{
			Outcome:  OutcomeApproved,
			RefundID: "REF-" + orderID + "-AUTO",
			Amount:   req.Amount,
			Payload:  refundPayload(orderID, req.Amount, req.Payload),
		}, nil
	}

	if prior == nil {
		return Decision{
			Outcome: OutcomePending,
			Amount:  req.Amount,
			Hint:    fmt.Sprintf("Approve refund of $%s for order %s?", formatAmount(req.Amount), orderID),
			Payload: refundPayload(orderID, req.Amount, req.Payload),
		}, nil
	}

	if prior.Confirmed {
		return Decision{
			Outcome:  OutcomeApproved,
			RefundID: "REF-" + orderID + "-HUMAN",
			Amount:   req.Amount,
			Payload:  refundPayload(orderID, req.Amount, req.Payload),
		}, nil
	}
	return Decision{
		Outcome: OutcomeRejected,
		Amount:  req.Amount,
		Reason:  "Refund rejected",
		Payload: refundPayload(orderID, req.Amount, req.Payload),
	}, nil
}

func refundPayload(orderID string, amount float64, extra map[string]any) map[string]any {
	out := map[string]any{
		"order_id": orderID,
		"amount":   amount,
	}
	for k, v := range extra {
		if _, taken := out[k]; taken {
			continue
		}
		out[k] = v
	}
	return out
}

func formatAmount(amount float64) string {
	return strconv.FormatFloat(amount, 'f', -1, 64)
}
