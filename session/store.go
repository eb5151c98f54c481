// Package session persists conversation sessions and their message history.
// Session creation is idempotent from the caller's point of view: creating a
// session that already exists yields ErrAlreadyExists, which callers treat as
// success.
package session

import (
	"context"
	"errors"
	"strings"

	"github.com/halfmoonlab/supportdesk/llm"
)

var ErrAlreadyExists = errors.New("session already exists")

// Key addresses one session.
type Key struct {
	AppName   string
	UserID    string
	SessionID string
}

func (k Key) Normalize() Key {
	return Key{
		AppName:   strings.TrimSpace(k.AppName),
		UserID:    strings.TrimSpace(k.UserID),
		SessionID: strings.TrimSpace(k.SessionID),
	}
}

func (k Key) Valid() bool {
	n := k.Normalize()
	return n.AppName != "" && n.UserID != "" && n.SessionID != ""
}

type Store interface {
	// Create registers the session. Creating an existing session returns
	// ErrAlreadyExists.
	Create(ctx context.Context, key Key) error

	// History returns the most recent messages of the session in
	// chronological order, up to limit (0 means a store-chosen default).
	History(ctx context.Context, key Key, limit int) ([]llm.Message, error)

	// Append adds messages to the session history in order.
	Append(ctx context.Context, key Key, msgs []llm.Message) error
}
