// Package idgen provides short, URL-safe unique ID generation backed by nanoid.
package idgen

import (
	"fmt"

	nanoid "github.com/matoous/go-nanoid/v2"
)

// Alphabet defines the character set used for the random portion of the ID.
const Alphabet = "abcdefghijklmnopqrstuvwxyzABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"

// Length is the number of random characters generated (excluding the prefix).
const Length = 12

// ApprovalID returns a new approval ticket id ("apr_" prefix).
func ApprovalID() (string, error) {
	return WithPrefix("apr_")
}

// InvocationID returns a new invocation id ("inv_" prefix). Each pending
// approval owns its invocation id, so tickets never collide on resumption.
func InvocationID() (string, error) {
	return WithPrefix("inv_")
}

// WithPrefix returns a new unique ID with the given prefix.
func WithPrefix(prefix string) (string, error) {
	id, err := nanoid.Generate(Alphabet, Length)
	if err != nil {
		return "", fmt.Errorf("idgen: %w", err)
	}
	return prefix + id, nil
}
