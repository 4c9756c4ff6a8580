// ABOUTME: Platform client boundary for chat networks (Telegram et al)
// ABOUTME: Defines the Client interface plus the rate-limit/not-found error contract
package platform

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// Entity is a resolved chat, channel or user on the platform
type Entity struct {
	ID   string
	Name string
}

// RawMessage is one platform message before conversion to the unified model.
// SentAt is the platform delivery time, always in UTC.
type RawMessage struct {
	ID         string
	ChatID     string
	ChatName   string
	AuthorID   string
	AuthorName string
	Text       string
	SentAt     time.Time
	URLs       []string
	Views      int
	Forwards   int
	Replies    int
}

// Authenticator supplies interactive login secrets during the handshake.
// Implementations vary by composition: terminal prompt, fixed values in
// tests, or a no-op for pre-authorized session files.
type Authenticator interface {
	// Code returns the verification code sent to the given phone number
	Code(ctx context.Context, phone string) (string, error)
	// Password returns the two-step verification password, if one is set
	Password(ctx context.Context) (string, error)
}

// Client is one authenticated connection to the platform. Implementations
// must return *RateLimitError when throttled and ErrNotFound when an
// identifier cannot be resolved; callers key their retry behavior on those.
type Client interface {
	// Connect performs the authentication handshake. Idempotent.
	Connect(ctx context.Context, auth Authenticator) error
	// Resolve maps a handle, numeric id or invite link to an entity
	Resolve(ctx context.Context, identifier string) (Entity, error)
	// RefreshDialogs re-reads the dialog list to repopulate the local
	// entity cache, for ids the platform has not seen this session
	RefreshDialogs(ctx context.Context) error
	// History returns up to limit messages sent at or before anchor,
	// newest first
	History(ctx context.Context, entity Entity, anchor time.Time, limit int) ([]RawMessage, error)
	// Send transmits text to the entity
	Send(ctx context.Context, entity Entity, text string) error
	// Close releases the connection. Safe to call when not connected.
	Close() error
}

// ErrNotFound reports an identifier the platform could not resolve
var ErrNotFound = errors.New("platform: entity not found")

// ErrUnauthorized reports invalid credentials or a missing/declined
// verification step. Never retried automatically.
var ErrUnauthorized = errors.New("platform: not authorized")

// RateLimitError is the platform's "retry after N seconds" throttling signal
type RateLimitError struct {
	RetryAfter time.Duration
}

func (e *RateLimitError) Error() string {
	return fmt.Sprintf("platform: rate limited, retry after %s", e.RetryAfter)
}

// IsRateLimit reports whether err carries a rate-limit signal and returns
// the platform-specified wait when it does
func IsRateLimit(err error) (time.Duration, bool) {
	var rle *RateLimitError
	if errors.As(err, &rle) {
		return rle.RetryAfter, true
	}
	return 0, false
}
