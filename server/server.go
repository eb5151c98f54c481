// Package server exposes the support agent over HTTP: one endpoint to talk
// to the agent and one for operators to approve or reject suspended refunds.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"github.com/halfmoonlab/supportdesk/approval"
	"github.com/halfmoonlab/supportdesk/gate"
)

const (
	defaultUserID    = "demo_user"
	defaultSessionID = "demo_session"

	maxBodyBytes = 1 << 20
)

// Coordinator is the slice of the approval layer the server needs.
type Coordinator interface {
	Submit(ctx context.Context, userID, sessionID, text string) (*approval.TurnResult, error)
	Resolve(ctx context.Context, invocationID, approvalID string, confirmed bool) (*approval.TurnResult, error)
}

type Server struct {
	coord Coordinator
	log   *slog.Logger
}

func New(coord Coordinator, log *slog.Logger) *Server {
	if log == nil {
		log = slog.Default()
	}
	return &Server{coord: coord, log: log}
}

// Handler returns the http.Handler with all routes registered.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("POST /message", s.handleMessage)
	mux.HandleFunc("POST /approve", s.handleApprove)
	mux.HandleFunc("GET /v1/health", s.handleHealth)
	return mux
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

type messageRequest struct {
	UserID    string `json:"user_id"`
	SessionID string `json:"session_id"`
	Text      string `json:"text"`
}

func (s *Server) handleMessage(w http.ResponseWriter, r *http.Request) {
	var req messageRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if strings.TrimSpace(req.UserID) == "" {
		req.UserID = defaultUserID
	}
	if strings.TrimSpace(req.SessionID) == "" {
		writeError(w, http.StatusBadRequest, "session_id is required")
		return
	}
	if strings.TrimSpace(req.Text) == "" {
		writeError(w, http.StatusBadRequest, "text is required")
		return
	}

	res, err := s.coord.Submit(r.Context(), req.UserID, req.SessionID, req.Text)
	if err != nil {
		s.log.Warn("message_failed", "session_id", req.SessionID, "error", err.Error())
		writeError(w, http.StatusInternalServerError, "turn failed")
		return
	}
	writeJSON(w, http.StatusOK, res)
}

// approveRequest ignores the user_id/session_id some clients still send:
// the ticket already pins the session, so they carry no information here.
type approveRequest struct {
	InvocationID string `json:"invocation_id"`
	ApprovalID   string `json:"approval_id"`
	Confirmed    *bool  `json:"confirmed"`
}

func (s *Server) handleApprove(w http.ResponseWriter, r *http.Request) {
	var req approveRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	// Query parameters are accepted as a fallback for clients that call
	// this endpoint query-style.
	q := r.URL.Query()
	if req.InvocationID == "" {
		req.InvocationID = q.Get("invocation_id")
	}
	if req.ApprovalID == "" {
		req.ApprovalID = q.Get("approval_id")
	}
	confirmed := true
	switch {
	case req.Confirmed != nil:
		confirmed = *req.Confirmed
	case q.Get("confirmed") != "":
		v, err := strconv.ParseBool(q.Get("confirmed"))
		if err != nil {
			writeError(w, http.StatusBadRequest, "confirmed must be a boolean")
			return
		}
		confirmed = v
	}

	if strings.TrimSpace(req.InvocationID) == "" {
		writeError(w, http.StatusBadRequest, "invocation_id is required")
		return
	}
	if strings.TrimSpace(req.ApprovalID) == "" {
		writeError(w, http.StatusBadRequest, "approval_id is required")
		return
	}

	res, err := s.coord.Resolve(r.Context(), req.InvocationID, req.ApprovalID, confirmed)
	if err != nil {
		switch {
		case errors.Is(err, gate.ErrTicketNotFound):
			writeError(w, http.StatusNotFound, "approval not found")
		case errors.Is(err, gate.ErrTicketNotPending):
			writeError(w, http.StatusConflict, "approval already resolved")
		default:
			s.log.Warn("approve_failed", "approval_id", req.ApprovalID, "error", err.Error())
			writeError(w, http.StatusInternalServerError, "resolution failed")
		}
		return
	}
	writeJSON(w, http.StatusOK, res)
}

func decodeBody(r *http.Request, dst any) error {
	body, err := io.ReadAll(io.LimitReader(r.Body, maxBodyBytes))
	if err != nil {
		return fmt.Errorf("read body: %w", err)
	}
	if len(strings.TrimSpace(string(body))) == 0 {
		return nil
	}
	if err := json.Unmarshal(body, dst); err != nil {
		return fmt.Errorf("invalid JSON body: %w", err)
	}
	return nil
}

// writeJSON writes a JSON response with the given status code.
func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

// writeError writes a JSON error response.
func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}
