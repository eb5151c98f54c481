package gate

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"
	"sync"
	"time"

	_ "github.com/glebarez/go-sqlite"
)

// SQLiteTicketStore persists approval tickets so a pending refund can be
// resolved after a process restart or a caller disconnect.
type SQLiteTicketStore struct {
	dsn string

	mu sync.Mutex
	db *sql.DB
}

func NewSQLiteTicketStore(dsn string) (*SQLiteTicketStore, error) {
	dsn = strings.TrimSpace(dsn)
	if dsn == "" {
		return nil, fmt.Errorf("missing sqlite dsn")
	}
	s := &SQLiteTicketStore{dsn: dsn}
	if err := s.open(); err != nil {
		return nil, err
	}
	return s, nil
}

func (s *SQLiteTicketStore) Create(ctx context.Context, t Ticket) error {
	if s == nil {
		return fmt.Errorf("nil ticket store")
	}
	if err := s.ensureOpen(); err != nil {
		return err
	}

	id := strings.TrimSpace(t.ApprovalID)
	if id == "" {
		return fmt.Errorf("missing approval id")
	}
	if t.CreatedAt.IsZero() {
		t.CreatedAt = time.Now().UTC()
	}

	payloadJSON, _ := json.Marshal(t.Payload)

	_, err := s.db.ExecContext(ctx, `
INSERT INTO approval_tickets (
  approval_id, invocation_id, app_name, user_id, session_id,
  hint, payload_json,
  status, confirmed, created_at_unix, resolved_at_unix,
  resume_state
) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
`, id, strings.TrimSpace(t.InvocationID), strings.TrimSpace(t.AppName), strings.TrimSpace(t.UserID), strings.TrimSpace(t.SessionID),
		strings.TrimSpace(t.Hint), string(payloadJSON),
		string(TicketPending), false, t.CreatedAt.Unix(), nil,
		t.ResumeState,
	)
	return err
}

func (s *SQLiteTicketStore) Get(ctx context.Context, approvalID string) (Ticket, bool, error) {
	if s == nil {
		return Ticket{}, false, fmt.Errorf("nil ticket store")
	}
	if err := s.ensureOpen(); err != nil {
		return Ticket{}, false, err
	}
	approvalID = strings.TrimSpace(approvalID)
	if approvalID == "" {
		return Ticket{}, false, nil
	}
	return s.queryOne(ctx, approvalID)
}

// Consume flips one pending row to its terminal status with a single
// conditional UPDATE, so two concurrent resolutions of the same ticket cannot
// both succeed.
func (s *SQLiteTicketStore) Consume(ctx context.Context, approvalID, invocationID string, confirmed bool) (Ticket, error) {
	if s == nil {
		return Ticket{}, fmt.Errorf("nil ticket store")
	}
	if err := s.ensureOpen(); err != nil {
		return Ticket{}, err
	}
	approvalID = strings.TrimSpace(approvalID)
	invocationID = strings.TrimSpace(invocationID)
	if approvalID == "" {
		return Ticket{}, fmt.Errorf("missing approval id")
	}

	status := TicketRejected
	if confirmed {
		status = TicketApproved
	}
	now := time.Now().UTC().Unix()

	res, err := s.db.ExecContext(ctx, `
UPDATE approval_tickets
SET status = ?, confirmed = ?, resolved_at_unix = ?
WHERE approval_id = ? AND invocation_id = ? AND status = ?
`, string(status), confirmed, now, approvalID, invocationID, string(TicketPending))
	if err != nil {
		return Ticket{}, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return Ticket{}, err
	}
	if n == 0 {
		t, ok, qerr := s.queryOne(ctx, approvalID)
		if qerr != nil {
			return Ticket{}, qerr
		}
		if !ok || t.InvocationID != invocationID {
			return Ticket{}, ErrTicketNotFound
		}
		return Ticket{}, ErrTicketNotPending
	}

	t, ok, err := s.queryOne(ctx, approvalID)
	if err != nil {
		return Ticket{}, err
	}
	if !ok {
		return Ticket{}, ErrTicketNotFound
	}
	return t, nil
}

func (s *SQLiteTicketStore) queryOne(ctx context.Context, approvalID string) (Ticket, bool, error) {
	var (
		t              Ticket
		payloadJSON    string
		status         string
		createdAtUnix  int64
		resolvedAtUnix sql.NullInt64
	)
	err := s.db.QueryRowContext(ctx, `
SELECT
  approval_id, invocation_id, app_name, user_id, session_id,
  hint, payload_json,
  status, confirmed, created_at_unix, resolved_at_unix,
  resume_state
FROM approval_tickets
WHERE approval_id = ?
`, approvalID).Scan(
		&t.ApprovalID, &t.InvocationID, &t.AppName, &t.UserID, &t.SessionID,
		&t.Hint, &payloadJSON,
		&status, &t.Confirmed, &createdAtUnix, &resolvedAtUnix,
		&t.ResumeState,
	)
	if err == sql.ErrNoRows {
		return Ticket{}, false, nil
	}
	if err != nil {
		return Ticket{}, false, err
	}

	t.Status = TicketStatus(status)
	t.CreatedAt = time.Unix(createdAtUnix, 0).UTC()
	if resolvedAtUnix.Valid {
		rt := time.Unix(resolvedAtUnix.Int64, 0).UTC()
		t.ResolvedAt = &rt
	}
	_ = json.Unmarshal([]byte(payloadJSON), &t.Payload)
	return t, true, nil
}

func (s *SQLiteTicketStore) open() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.db != nil {
		return nil
	}
	db, err := sql.Open("sqlite", s.dsn)
	if err != nil {
		return err
	}
	s.db = db
	return s.migrate()
}

func (s *SQLiteTicketStore) ensureOpen() error {
	if s.db != nil {
		return nil
	}
	return s.open()
}

func (s *SQLiteTicketStore) migrate() error {
	if s.db == nil {
		return fmt.Errorf("sqlite db is not open")
	}
	_, err := s.db.Exec(`
CREATE TABLE IF NOT EXISTS approval_tickets (
  approval_id TEXT PRIMARY KEY,
  invocation_id TEXT NOT NULL,
  app_name TEXT,
  user_id TEXT,
  session_id TEXT,
  hint TEXT,
  payload_json TEXT,
  status TEXT NOT NULL,
  confirmed INTEGER NOT NULL DEFAULT 0,
  created_at_unix INTEGER NOT NULL,
  resolved_at_unix INTEGER,
  resume_state BLOB
);
CREATE INDEX IF NOT EXISTS idx_approval_tickets_status ON approval_tickets(status);
CREATE INDEX IF NOT EXISTS idx_approval_tickets_invocation ON approval_tickets(invocation_id);
`)
	return err
}

func (s *SQLiteTicketStore) Close() error {
	if s == nil {
		return nil
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.db == nil {
		return nil
	}
	err := s.db.Close()
	s.db = nil
	return err
}
