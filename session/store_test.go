package session

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"github.com/halfmoonlab/supportdesk/db"
	"github.com/halfmoonlab/supportdesk/llm"
)

func testStores(t *testing.T) map[string]Store {
	t.Helper()

	cfg := db.DefaultConfig()
	cfg.DSN = filepath.Join(t.TempDir(), "sessions.db")
	gdb, err := db.Open(context.Background(), cfg)
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	if err := db.AutoMigrate(gdb); err != nil {
		t.Fatalf("migrate: %v", err)
	}

	return map[string]Store{
		"memory": NewMemoryStore(),
		"gorm":   NewGormStore(gdb),
	}
}

func TestStore_CreateIdempotentContract(t *testing.T) {
	for name, store := range testStores(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			key := Key{AppName: "supportdesk", UserID: "demo_user", SessionID: "s1"}

			if err := store.Create(ctx, key); err != nil {
				t.Fatalf("first create: %v", err)
			}
			if err := store.Create(ctx, key); !errors.Is(err, ErrAlreadyExists) {
				t.Fatalf("second create: expected ErrAlreadyExists, got %v", err)
			}
		})
	}
}

func TestStore_HistoryRoundTrip(t *testing.T) {
	for name, store := range testStores(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			key := Key{AppName: "supportdesk", UserID: "demo_user", SessionID: "s2"}
			if err := store.Create(ctx, key); err != nil {
				t.Fatalf("create: %v", err)
			}

			msgs := []llm.Message{
				{Role: "user", Content: "refund ORD-001 please"},
				{Role: "assistant", ToolCalls: []llm.ToolCall{{ID: "call_1", Name: "request_refund", Arguments: map[string]any{"order_id": "ORD-001"}}}},
				{Role: "tool", ToolCallID: "call_1", Content: `{"status":"pending"}`},
			}
			if err := store.Append(ctx, key, msgs); err != nil {
				t.Fatalf("append: %v", err)
			}

			got, err := store.History(ctx, key, 0)
			if err != nil {
				t.Fatalf("history: %v", err)
			}
			if len(got) != 3 {
				t.Fatalf("expected 3 messages, got %d", len(got))
			}
			if got[0].Content != "refund ORD-001 please" {
				t.Fatalf("history out of order: %+v", got)
			}
			if len(got[1].ToolCalls) != 1 || got[1].ToolCalls[0].Name != "request_refund" {
				t.Fatalf("tool calls not round-tripped: %+v", got[1])
			}
			if got[2].ToolCallID != "call_1" {
				t.Fatalf("tool call id not round-tripped: %+v", got[2])
			}
		})
	}
}

func TestStore_HistoryLimit(t *testing.T) {
	for name, store := range testStores(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			key := Key{AppName: "supportdesk", UserID: "demo_user", SessionID: "s3"}
			if err := store.Create(ctx, key); err != nil {
				t.Fatalf("create: %v", err)
			}
			for i := 0; i < 5; i++ {
				if err := store.Append(ctx, key, []llm.Message{{Role: "user", Content: string(rune('a' + i))}}); err != nil {
					t.Fatalf("append: %v", err)
				}
			}
			got, err := store.History(ctx, key, 2)
			if err != nil {
				t.Fatalf("history: %v", err)
			}
			if len(got) != 2 {
				t.Fatalf("expected 2 messages, got %d", len(got))
			}
			// The most recent messages win.
			if got[0].Content != "d" || got[1].Content != "e" {
				t.Fatalf("unexpected tail: %+v", got)
			}
		})
	}
}
