package builtin

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"testing"

	"github.com/halfmoonlab/supportdesk/catalog"
	"github.com/halfmoonlab/supportdesk/gate"
)

func decodeResult(t *testing.T, raw string) map[string]any {
	t.Helper()
	var out map[string]any
	if err := json.Unmarshal([]byte(raw), &out); err != nil {
		t.Fatalf("tool result is not JSON: %v (%q)", err, raw)
	}
	return out
}

func TestCatalogLookupTool(t *testing.T) {
	tool := NewCatalogLookupTool(catalog.DemoProducts())

	cases := []struct {
		name       string
		query      string
		wantStatus string
	}{
		{"hit", "iPhone 15 Pro", "success"},
		{"hit_lower", "sony wh-1000xm5", "success"},
		{"miss", "nonexistent gadget", "error"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			raw, err := tool.Execute(context.Background(), map[string]any{"product_name": tc.query})
			if err != nil {
				t.Fatalf("Execute: %v", err)
			}
			res := decodeResult(t, raw)
			if res["status"] != tc.wantStatus {
				t.Fatalf("status = %v, want %v", res["status"], tc.wantStatus)
			}
			if tc.wantStatus == "error" && !strings.Contains(res["error_message"].(string), "not found") {
				t.Fatalf("unexpected error message: %v", res["error_message"])
			}
		})
	}

	if _, err := tool.Execute(context.Background(), map[string]any{}); err == nil {
		t.Fatal("expected error for missing product_name")
	}
}

func TestOrderLookupTool(t *testing.T) {
	tool := NewOrderLookupTool(catalog.DemoOrders())

	raw, err := tool.Execute(context.Background(), map[string]any{"order_id": "ORD-001"})
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}
	res := decodeResult(t, raw)
	if res["status"] != "success" {
		t.Fatalf("status = %v", res["status"])
	}
	order := res["order"].(map[string]any)
	if order["order_id"] != "ORD-001" || order["customer"] != "Ravi" || order["amount"] != 250.0 || order["status"] != "DELIVERED" {
		t.Fatalf("unexpected order: %+v", order)
	}

	raw, err = tool.Execute(context.Background(), map[string]any{"order_id": "ORD-999"})
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}
	res = decodeResult(t, raw)
	if res["status"] != "error" || res["error_message"] != "Order not found" {
		t.Fatalf("unexpected miss result: %+v", res)
	}
}

func TestRequestRefundTool_AutoApprove(t *testing.T) {
	tool := NewRequestRefundTool(gate.New(100.0))

	raw, err := tool.Execute(context.Background(), map[string]any{"order_id": "ORD-002", "amount": 75.0})
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}
	res := decodeResult(t, raw)
	if res["status"] != "approved" {
		t.Fatalf("status = %v", res["status"])
	}
	if !strings.HasSuffix(res["refund_id"].(string), "-AUTO") {
		t.Fatalf("expected -AUTO refund id, got %v", res["refund_id"])
	}
	if res["amount"] != 75.0 {
		t.Fatalf("amount = %v", res["amount"])
	}
}

func TestRequestRefundTool_RaisesPending(t *testing.T) {
	tool := NewRequestRefundTool(gate.New(100.0))

	_, err := tool.Execute(context.Background(), map[string]any{"order_id": "ORD-001", "amount": 250.0})
	var pending *gate.PendingError
	if !errors.As(err, &pending) {
		t.Fatalf("expected *gate.PendingError, got %v", err)
	}
	if pending.Decision.Payload["order_id"] != "ORD-001" {
		t.Fatalf("pending payload: %+v", pending.Decision.Payload)
	}
	if pending.Decision.Payload["amount"] != 250.0 {
		t.Fatalf("pending payload amount: %+v", pending.Decision.Payload)
	}
}

func TestRequestRefundTool_ResumeWithDecision(t *testing.T) {
	tool := NewRequestRefundTool(gate.New(100.0))
	params := map[string]any{"order_id": "ORD-001", "amount": 250.0}

	ctx := gate.WithConfirmation(context.Background(), gate.Confirmation{ApprovalID: "apr_1", Confirmed: true})
	raw, err := tool.Execute(ctx, params)
	if err != nil {
		t.Fatalf("Execute with confirmation: %v", err)
	}
	res := decodeResult(t, raw)
	if res["status"] != "approved" || !strings.HasSuffix(res["refund_id"].(string), "-HUMAN") {
		t.Fatalf("unexpected result: %+v", res)
	}

	ctx = gate.WithConfirmation(context.Background(), gate.Confirmation{ApprovalID: "apr_1", Confirmed: false})
	raw, err = tool.Execute(ctx, params)
	if err != nil {
		t.Fatalf("Execute with rejection: %v", err)
	}
	res = decodeResult(t, raw)
	if res["status"] != "rejected" {
		t.Fatalf("unexpected result: %+v", res)
	}
}

func TestRequestRefundTool_AmountShapes(t *testing.T) {
	tool := NewRequestRefundTool(gate.New(100.0))

	// Models sometimes send amounts as strings or integers.
	for _, amount := range []any{50, int64(50), "50", 50.0} {
		raw, err := tool.Execute(context.Background(), map[string]any{"order_id": "ORD-002", "amount": amount})
		if err != nil {
			t.Fatalf("Execute(amount=%v): %v", amount, err)
		}
		res := decodeResult(t, raw)
		if res["status"] != "approved" {
			t.Fatalf("amount=%v: status = %v", amount, res["status"])
		}
	}

	if _, err := tool.Execute(context.Background(), map[string]any{"order_id": "ORD-002", "amount": "lots"}); err == nil {
		t.Fatal("expected error for unparseable amount")
	}
}
