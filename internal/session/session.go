// ABOUTME: Session owns one authenticated platform connection for one account
// ABOUTME: Fetches windowed history and sends text, retrying transient throttling once
package session

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
	"sync"
	"time"

	"github.com/harper/chatdigest/internal/config"
	"github.com/harper/chatdigest/internal/models"
	"github.com/harper/chatdigest/internal/platform"
)

// ErrRateLimitExceeded reports a second throttling signal on the retry of a
// fetch; the internal single retry has already been spent
var ErrRateLimitExceeded = errors.New("session: rate limit exceeded after retry")

// AuthError reports invalid credentials or a failed verification step for
// one account. Never retried automatically.
type AuthError struct {
	Account string
	Err     error
}

func (e *AuthError) Error() string {
	return fmt.Sprintf("session %s: authentication failed: %v", e.Account, e.Err)
}

func (e *AuthError) Unwrap() error { return e.Err }

// SourceNotFoundError reports a source identifier that stayed unresolved
// after one dialog-cache refresh
type SourceNotFoundError struct {
	Account string
	Source  string
	Err     error
}

func (e *SourceNotFoundError) Error() string {
	return fmt.Sprintf("session %s: source %q not found: %v", e.Account, e.Source, e.Err)
}

func (e *SourceNotFoundError) Unwrap() error { return e.Err }

// Session binds one account credential to one platform connection. The
// orchestrator fans out one goroutine per source, so the connection state
// is guarded for concurrent Connect/Disconnect.
type Session struct {
	account config.Account
	client  platform.Client
	auth    platform.Authenticator
	loc     *time.Location

	mu        sync.Mutex
	connected bool
}

// New creates a session for the account over the given platform client.
// The authenticator supplies interactive login secrets when the handshake
// asks for them.
func New(account config.Account, client platform.Client, auth platform.Authenticator) *Session {
	return NewInLocation(account, client, auth, time.Local)
}

// NewInLocation creates a session whose window comparisons happen in the
// given zone. Platform delivery times are normalized to this zone before
// any comparison against the requested window.
func NewInLocation(account config.Account, client platform.Client, auth platform.Authenticator, loc *time.Location) *Session {
	return &Session{account: account, client: client, auth: auth, loc: loc}
}

// Account returns the account id this session is bound to
func (s *Session) Account() string { return s.account.ID }

// Sources returns the account's configured source list
func (s *Session) Sources() []string { return s.account.Sources }

// Connect performs the authentication handshake. No-op when already
// connected. Authentication failures are not retried.
func (s *Session) Connect(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.connected {
		return nil
	}
	if err := s.client.Connect(ctx, s.auth); err != nil {
		if errors.Is(err, platform.ErrUnauthorized) {
			return &AuthError{Account: s.account.ID, Err: err}
		}
		return fmt.Errorf("session %s: connect: %w", s.account.ID, err)
	}
	s.connected = true
	log.Printf("[session] %s connected", s.account.ID)
	return nil
}

// Disconnect releases the connection. Safe on an unconnected session.
func (s *Session) Disconnect() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.connected {
		return nil
	}
	if err := s.client.Close(); err != nil {
		return fmt.Errorf("session %s: disconnect: %w", s.account.ID, err)
	}
	s.connected = false
	log.Printf("[session] %s disconnected", s.account.ID)
	return nil
}

// Fetch returns messages from one source inside the half-open window
// [start, end), capped at limit and ordered as delivered by the platform
// (newest first). Delivery times are converted to the session zone before
// comparison. A rate-limit signal is slept out and the call retried exactly
// once; any other history failure is logged and yields zero records.
func (s *Session) Fetch(ctx context.Context, source string, start, end time.Time, limit int) ([]models.Message, error) {
	return s.fetch(ctx, source, start, end, limit, false)
}

func (s *Session) fetch(ctx context.Context, source string, start, end time.Time, limit int, retried bool) ([]models.Message, error) {
	if err := s.Connect(ctx); err != nil {
		return nil, err
	}

	entity, err := s.resolve(ctx, source)
	if err != nil {
		return nil, err
	}

	raw, err := s.client.History(ctx, entity, end, limit)
	if wait, ok := platform.IsRateLimit(err); ok {
		if retried {
			return nil, fmt.Errorf("session %s: source %q: %w", s.account.ID, source, ErrRateLimitExceeded)
		}
		log.Printf("[session] %s rate limited on %s, waiting %s", s.account.ID, source, wait)
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(wait):
		}
		return s.fetch(ctx, source, start, end, limit, true)
	}
	if err != nil {
		log.Printf("[session] %s fetch from %s failed: %v", s.account.ID, source, err)
		return nil, nil
	}

	messages := make([]models.Message, 0, len(raw))
	for _, rm := range raw {
		local := rm.SentAt.In(s.loc)
		// History runs backward in time; anything before the window
		// start means the scan is done for this source.
		if local.Before(start) {
			break
		}
		if !local.Before(end) {
			continue
		}
		messages = append(messages, s.convert(rm, entity, local))
		if len(messages) >= limit {
			break
		}
	}

	log.Printf("[session] %s fetched %d messages from %s", s.account.ID, len(messages), source)
	return messages, nil
}

// Send transmits text to the destination. Returns false instead of an
// error so callers can layer their own retry or fan-out policy.
func (s *Session) Send(ctx context.Context, text, destination string) bool {
	if err := s.Connect(ctx); err != nil {
		log.Printf("[session] %s send: connect failed: %v", s.account.ID, err)
		return false
	}

	entity, err := s.resolve(ctx, destination)
	if err != nil {
		log.Printf("[session] %s send: %v", s.account.ID, err)
		return false
	}

	if err := s.client.Send(ctx, entity, text); err != nil {
		log.Printf("[session] %s send to %s failed: %v", s.account.ID, destination, err)
		return false
	}
	return true
}

// resolve maps an identifier to a platform entity, refreshing the dialog
// cache once when the first attempt comes back not found
func (s *Session) resolve(ctx context.Context, identifier string) (platform.Entity, error) {
	target := CoerceIdentifier(identifier)

	entity, err := s.client.Resolve(ctx, target)
	if errors.Is(err, platform.ErrNotFound) {
		log.Printf("[session] %s refreshing dialog cache for %q", s.account.ID, identifier)
		if rerr := s.client.RefreshDialogs(ctx); rerr == nil {
			entity, err = s.client.Resolve(ctx, target)
		}
	}
	if err != nil {
		return platform.Entity{}, &SourceNotFoundError{Account: s.account.ID, Source: identifier, Err: err}
	}
	return entity, nil
}

func (s *Session) convert(rm platform.RawMessage, entity platform.Entity, localTime time.Time) models.Message {
	chatName := rm.ChatName
	if chatName == "" {
		chatName = entity.Name
	}
	authorName := rm.AuthorName
	if authorName == "" {
		authorName = "Unknown"
	}
	authorID := rm.AuthorID
	if authorID == "" {
		authorID = "unknown"
	}

	return models.Message{
		ID:         models.MessageID(s.account.ID, rm.ID),
		Platform:   models.PlatformTelegram,
		ExternalID: rm.ID,
		ChatID:     rm.ChatID,
		ChatName:   chatName,
		AuthorID:   authorID,
		AuthorName: authorName,
		Content:    rm.Text,
		Timestamp:  localTime,
		URLs:       rm.URLs,
		Account:    s.account.ID,
		Engagement: models.Engagement{
			Views:    rm.Views,
			Forwards: rm.Forwards,
			Replies:  rm.Replies,
		},
	}
}

// CoerceIdentifier normalizes the accepted source identifier shapes:
// "@handle" stays as-is, a signed numeric id stays numeric, and a combined
// "label|id" string is reduced to its trailing id segment.
func CoerceIdentifier(identifier string) string {
	id := strings.TrimSpace(identifier)
	if strings.Contains(id, "|") {
		parts := strings.Split(id, "|")
		id = strings.TrimSpace(parts[len(parts)-1])
	}
	return id
}
