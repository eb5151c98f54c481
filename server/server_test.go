package server

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/halfmoonlab/supportdesk/approval"
	"github.com/halfmoonlab/supportdesk/gate"
)

type fakeCoordinator struct {
	submitRes  *approval.TurnResult
	submitErr  error
	resolveRes *approval.TurnResult
	resolveErr error

	lastUserID       string
	lastSessionID    string
	lastText         string
	lastInvocationID string
	lastApprovalID   string
	lastConfirmed    bool
}

func (f *fakeCoordinator) Submit(_ context.Context, userID, sessionID, text string) (*approval.TurnResult, error) {
	f.lastUserID, f.lastSessionID, f.lastText = userID, sessionID, text
	return f.submitRes, f.submitErr
}

func (f *fakeCoordinator) Resolve(_ context.Context, invocationID, approvalID string, confirmed bool) (*approval.TurnResult, error) {
	f.lastInvocationID, f.lastApprovalID, f.lastConfirmed = invocationID, approvalID, confirmed
	return f.resolveRes, f.resolveErr
}

func newTestServer(coord Coordinator) http.Handler {
	return New(coord, slog.New(slog.NewTextHandler(io.Discard, nil))).Handler()
}

func postJSON(t *testing.T, h http.Handler, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	b, err := json.Marshal(body)
	if err != nil {
		t.Fatalf("marshal body: %v", err)
	}
	req := httptest.NewRequest(http.MethodPost, path, bytes.NewReader(b))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func TestHealth(t *testing.T) {
	h := newTestServer(&fakeCoordinator{})
	req := httptest.NewRequest(http.MethodGet, "/v1/health", nil)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("status %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), `"ok"`) {
		t.Fatalf("unexpected body %s", rec.Body.String())
	}
}

func TestMessage_OK(t *testing.T) {
	coord := &fakeCoordinator{submitRes: &approval.TurnResult{
		Events:    2,
		Responses: []string{"Your refund awaits approval."},
		Approvals: []approval.PendingApproval{{
			ApprovalID:   "apr_1",
			InvocationID: "inv_1",
			Payload:      map[string]any{"order_id": "ORD-001", "amount": 250.0},
		}},
	}}
	h := newTestServer(coord)

	rec := postJSON(t, h, "/message", map[string]any{
		"session_id": "s1",
		"text":       "refund ORD-001",
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("status %d: %s", rec.Code, rec.Body.String())
	}
	if coord.lastUserID != "demo_user" || coord.lastSessionID != "s1" {
		t.Fatalf("unexpected submit args %q %q", coord.lastUserID, coord.lastSessionID)
	}

	var got approval.TurnResult
	if err := json.Unmarshal(rec.Body.Bytes(), &got); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if got.Events != 2 || len(got.Approvals) != 1 || got.Approvals[0].ApprovalID != "apr_1" {
		t.Fatalf("unexpected response %+v", got)
	}
}

func TestMessage_ZeroEventsIsOK(t *testing.T) {
	coord := &fakeCoordinator{submitRes: &approval.TurnResult{Events: 0, Responses: []string{}}}
	h := newTestServer(coord)

	rec := postJSON(t, h, "/message", map[string]any{"session_id": "s1", "text": "hi"})
	if rec.Code != http.StatusOK {
		t.Fatalf("status %d: %s", rec.Code, rec.Body.String())
	}
	if !strings.Contains(rec.Body.String(), `"responses":[]`) {
		t.Fatalf("responses not present: %s", rec.Body.String())
	}
}

func TestMessage_Validation(t *testing.T) {
	h := newTestServer(&fakeCoordinator{})
	cases := []map[string]any{
		{"text": "hi"},       // missing session
		{"session_id": "s1"}, // missing text
		{"session_id": "s1", "text": ""},
	}
	for i, body := range cases {
		rec := postJSON(t, h, "/message", body)
		if rec.Code != http.StatusBadRequest {
			t.Fatalf("case %d: status %d", i, rec.Code)
		}
	}

	req := httptest.NewRequest(http.MethodPost, "/message", strings.NewReader("{not json"))
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("malformed body: status %d", rec.Code)
	}
}

func TestApprove_JSONBody(t *testing.T) {
	coord := &fakeCoordinator{resolveRes: &approval.TurnResult{
		Events:    1,
		Responses: []string{"Refund issued."},
	}}
	h := newTestServer(coord)

	rec := postJSON(t, h, "/approve", map[string]any{
		"invocation_id": "inv_1",
		"approval_id":   "apr_1",
		"confirmed":     false,
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("status %d: %s", rec.Code, rec.Body.String())
	}
	if coord.lastInvocationID != "inv_1" || coord.lastApprovalID != "apr_1" || coord.lastConfirmed {
		t.Fatalf("unexpected resolve args %+v", coord)
	}
}

func TestApprove_IgnoresSessionFields(t *testing.T) {
	coord := &fakeCoordinator{resolveRes: &approval.TurnResult{Events: 1, Responses: []string{"ok"}}}
	h := newTestServer(coord)

	rec := postJSON(t, h, "/approve", map[string]any{
		"invocation_id": "inv_1",
		"approval_id":   "apr_1",
		"user_id":       "demo_user",
		"session_id":    "demo_session",
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("status %d: %s", rec.Code, rec.Body.String())
	}
	if coord.lastInvocationID != "inv_1" || coord.lastApprovalID != "apr_1" {
		t.Fatalf("unexpected resolve args %+v", coord)
	}
}

func TestApprove_QueryFallbackAndDefaultConfirmed(t *testing.T) {
	coord := &fakeCoordinator{resolveRes: &approval.TurnResult{Events: 1, Responses: []string{"ok"}}}
	h := newTestServer(coord)

	req := httptest.NewRequest(http.MethodPost,
		"/approve?invocation_id=inv_2&approval_id=apr_2", nil)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("status %d: %s", rec.Code, rec.Body.String())
	}
	if coord.lastInvocationID != "inv_2" || coord.lastApprovalID != "apr_2" {
		t.Fatalf("query fallback not applied: %+v", coord)
	}
	if !coord.lastConfirmed {
		t.Fatal("confirmed should default to true")
	}
}

func TestApprove_ErrorMapping(t *testing.T) {
	cases := []struct {
		name string
		err  error
		want int
	}{
		{"unknown", gate.ErrTicketNotFound, http.StatusNotFound},
		{"duplicate", gate.ErrTicketNotPending, http.StatusConflict},
		{"internal", fmt.Errorf("engine exploded"), http.StatusInternalServerError},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			h := newTestServer(&fakeCoordinator{resolveErr: tc.err})
			rec := postJSON(t, h, "/approve", map[string]any{
				"invocation_id": "inv_1",
				"approval_id":   "apr_1",
			})
			if rec.Code != tc.want {
				t.Fatalf("status %d, want %d: %s", rec.Code, tc.want, rec.Body.String())
			}
		})
	}
}

func TestApprove_Validation(t *testing.T) {
	h := newTestServer(&fakeCoordinator{})

	rec := postJSON(t, h, "/approve", map[string]any{"approval_id": "apr_1"})
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("missing invocation_id: status %d", rec.Code)
	}

	rec = postJSON(t, h, "/approve", map[string]any{"invocation_id": "inv_1"})
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("missing approval_id: status %d", rec.Code)
	}

	req := httptest.NewRequest(http.MethodPost,
		"/approve?invocation_id=inv_1&approval_id=apr_1&confirmed=maybe", nil)
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)
	if w.Code != http.StatusBadRequest {
		t.Fatalf("bad confirmed: status %d", w.Code)
	}
}
