package gate

import (
	"strings"
	"testing"
)

func TestEvaluate_AutoApprove(t *testing.T) {
	g := New(100.0)
	cases := []struct {
		name   string
		amount float64
	}{
		{"zero", 0},
		{"small", 25.5},
		{"exactly_threshold", 100.0},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			dec, err := g.Evaluate(RefundRequest{OrderID: "ORD-002", Amount: tc.amount}, nil)
			if err != nil {
				t.Fatalf("Evaluate error: %v", err)
			}
			if dec.Outcome != OutcomeApproved {
				t.Fatalf("expected approved, got %s", dec.Outcome)
			}
			if dec.RefundID != "REF-ORD-002-AUTO" {
				t.Fatalf("expected -AUTO refund id, got %q", dec.RefundID)
			}
			if dec.Amount != tc.amount {
				t.Fatalf("expected amount %v, got %v", tc.amount, dec.Amount)
			}
		})
	}
}

func TestEvaluate_SuspendAboveThreshold(t *testing.T) {
	g := New(100.0)
	dec, err := g.Evaluate(RefundRequest{OrderID: "ORD-001", Amount: 250.0}, nil)
	if err != nil {
		t.Fatalf("Evaluate error: %v", err)
	}
	if dec.Outcome != OutcomePending {
		t.Fatalf("expected pending, got %s", dec.Outcome)
	}
	if !strings.Contains(dec.Hint, "ORD-001") || !strings.Contains(dec.Hint, "250") {
		t.Fatalf("hint must name the order and amount, got %q", dec.Hint)
	}
	if dec.Payload["order_id"] != "ORD-001" {
		t.Fatalf("payload order_id = %v", dec.Payload["order_id"])
	}
	if dec.Payload["amount"] != 250.0 {
		t.Fatalf("payload amount = %v", dec.Payload["amount"])
	}
	if dec.RefundID != "" {
		t.Fatalf("pending decision must not carry a refund id, got %q", dec.RefundID)
	}
}

func TestEvaluate_ResumePath(t *testing.T) {
	g := New(100.0)
	req := RefundRequest{OrderID: "ORD-001", Amount: 250.0}

	dec, err := g.Evaluate(req, &Confirmation{ApprovalID: "apr_x", Confirmed: true})
	if err != nil {
		t.Fatalf("Evaluate error: %v", err)
	}
	if dec.Outcome != OutcomeApproved {
		t.Fatalf("expected approved after confirmation, got %s", dec.Outcome)
	}
	if dec.RefundID != "REF-ORD-001-HUMAN" {
		t.Fatalf("expected -HUMAN refund id, got %q", dec.RefundID)
	}

	dec, err = g.Evaluate(req, &Confirmation{ApprovalID: "apr_x", Confirmed: false})
	if err != nil {
		t.Fatalf("Evaluate error: %v", err)
	}
	if dec.Outcome != OutcomeRejected {
		t.Fatalf("expected rejected, got %s", dec.Outcome)
	}
	if dec.Reason == "" {
		t.Fatal("rejection must carry a reason")
	}
}

func TestEvaluate_PureFunction(t *testing.T) {
	g := New(100.0)
	req := RefundRequest{OrderID: "ORD-001", Amount: 250.0}
	first, err := g.Evaluate(req, nil)
	if err != nil {
		t.Fatalf("Evaluate error: %v", err)
	}
	second, err := g.Evaluate(req, nil)
	if err != nil {
		t.Fatalf("Evaluate error: %v", err)
	}
	if first.Outcome != second.Outcome || first.Hint != second.Hint {
		t.Fatalf("identical inputs must yield identical decisions: %+v vs %+v", first, second)
	}
}

func TestEvaluate_Validation(t *testing.T) {
	g := New(100.0)
	cases := []struct {
		name string
		req  RefundRequest
	}{
		{"empty_order_id", RefundRequest{OrderID: "  ", Amount: 10}},
		{"negative_amount", RefundRequest{OrderID: "ORD-001", Amount: -1}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if _, err := g.Evaluate(tc.req, nil); err == nil {
				t.Fatal("expected validation error, got nil")
			}
		})
	}
}

func TestEvaluate_DefaultThreshold(t *testing.T) {
	g := New(0)
	dec, err := g.Evaluate(RefundRequest{OrderID: "ORD-002", Amount: 75.0}, nil)
	if err != nil {
		t.Fatalf("Evaluate error: %v", err)
	}
	if dec.Outcome != OutcomeApproved {
		t.Fatalf("75.0 is under the default threshold, got %s", dec.Outcome)
	}
}
