// Package catalog provides the product and order lookup capabilities the
// support agent consults. Both are small interfaces so a real backing store
// can replace the static demo data without touching the agent.
package catalog

import "strings"

// Products looks up product info by name. Matching is case-insensitive and
// exact; the second return reports whether the product exists.
type Products interface {
	Lookup(name string) (string, bool)
}

// Orders looks up an order by its exact id.
type Orders interface {
	Lookup(orderID string) (Order, bool)
}

type Order struct {
	OrderID  string  `json:"order_id"`
	Customer string  `json:"customer"`
	Amount   float64 `json:"amount"`
	Status   string  `json:"status"`
}

type StaticProducts struct {
	entries map[string]string
}

func NewStaticProducts(entries map[string]string) *StaticProducts {
	normalized := make(map[string]string, len(entries))
	for k, v := range entries {
		normalized[strings.ToLower(strings.TrimSpace(k))] = v
	}
	return &StaticProducts{entries: normalized}
}

func (p *StaticProducts) Lookup(name string) (string, bool) {
	if p == nil {
		return "", false
	}
	info, ok := p.entries[strings.ToLower(strings.TrimSpace(name))]
	return info, ok
}

type StaticOrders struct {
	entries map[string]Order
}

func NewStaticOrders(orders []Order) *StaticOrders {
	entries := make(map[string]Order, len(orders))
	for _, o := range orders {
		entries[o.OrderID] = o
	}
	return &StaticOrders{entries: entries}
}

func (s *StaticOrders) Lookup(orderID string) (Order, bool) {
	if s == nil {
		return Order{}, false
	}
	o, ok := s.entries[orderID]
	return o, ok
}

// DemoProducts returns the demo product set.
func DemoProducts() *StaticProducts {
	return NewStaticProducts(map[string]string{
		"iphone 15 pro":   "iPhone 15 Pro, $999, Low Stock (8 units), Titanium",
		"dell xps 15":     "Dell XPS 15, $1299, In Stock (45 units), 16GB RAM",
		"sony wh-1000xm5": "Sony WH-1000XM5, $399, In Stock (67 units)",
	})
}

// DemoOrders returns the demo order set.
func DemoOrders() *StaticOrders {
	return NewStaticOrders([]Order{
		{OrderID: "ORD-001", Customer: "Ravi", Amount: 250.0, Status: "DELIVERED"},
		{OrderID: "ORD-002", Customer: "Sam", Amount: 75.0, Status: "RETURNED"},
	})
}
