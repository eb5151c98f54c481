package builtin

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/halfmoonlab/supportdesk/catalog"
)

type OrderLookupTool struct {
	Orders catalog.Orders
}

func NewOrderLookupTool(orders catalog.Orders) *OrderLookupTool {
	return &OrderLookupTool{Orders: orders}
}

func (t *OrderLookupTool) Name() string { return "order_lookup" }

func (t *OrderLookupTool) Description() string {
	return "Looks up an order by id and returns the customer, amount and delivery status."
}

func (t *OrderLookupTool) ParameterSchema() string {
	s := map[string]any{
		"type": "object",
		"properties": map[string]any{
			"order_id": map[string]any{"type": "string", "description": "Order id, e.g. ORD-001."},
		},
		"required": []string{"order_id"},
	}
	b, _ := json.MarshalIndent(s, "", "  ")
	return string(b)
}

func (t *OrderLookupTool) Execute(_ context.Context, params map[string]any) (string, error) {
	orderID := strings.TrimSpace(getString(params, "order_id"))
	if orderID == "" {
		return "", fmt.Errorf("missing required param: order_id")
	}
	if t == nil || t.Orders == nil {
		return "", fmt.Errorf("orders are not configured")
	}

	order, ok := t.Orders.Lookup(orderID)
	if !ok {
		return marshalResult(map[string]any{
			"status":        "error",
			"error_message": "Order not found",
		})
	}
	return marshalResult(map[string]any{
		"status": "success",
		"order":  order,
	})
}
