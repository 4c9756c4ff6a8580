// ABOUTME: Telegram Bot API implementation of the platform Client interface
// ABOUTME: Minimal net/http client; history is served from a getUpdates-fed buffer
package botapi

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/harper/chatdigest/internal/platform"
)

// Bot API message length ceiling is 4096; stay under it with room for
// markup the API may count differently.
const sendLimit = 3900

// Client talks to the Telegram Bot API. A bot cannot page through chat
// history on demand, so incoming messages are buffered from getUpdates
// and History answers from that buffer.
type Client struct {
	apiBase    string
	httpClient *http.Client

	mu        sync.Mutex
	connected bool
	offset    int64
	buffer    map[string][]platform.RawMessage
	chats     map[string]platform.Entity
}

// NewClient creates a client for the given bot token
func NewClient(token string, requestTimeout time.Duration) *Client {
	return NewClientWithBase("https://api.telegram.org/bot"+token, requestTimeout)
}

// NewClientWithBase creates a client against a custom API base URL
// (e.g. "https://api.telegram.org/bot<token>", or a test server)
func NewClientWithBase(apiBase string, requestTimeout time.Duration) *Client {
	return &Client{
		apiBase:    apiBase,
		httpClient: &http.Client{Timeout: requestTimeout},
		buffer:     make(map[string][]platform.RawMessage),
		chats:      make(map[string]platform.Entity),
	}
}

// apiResponse is the generic Bot API response wrapper
type apiResponse struct {
	OK          bool            `json:"ok"`
	Result      json.RawMessage `json:"result"`
	ErrorCode   int             `json:"error_code"`
	Description string          `json:"description"`
	Parameters  *struct {
		RetryAfter int `json:"retry_after"`
	} `json:"parameters"`
}

type rawChat struct {
	ID        int64  `json:"id"`
	Title     string `json:"title"`
	Username  string `json:"username"`
	FirstName string `json:"first_name"`
}

type rawUser struct {
	ID        int64  `json:"id"`
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
	Username  string `json:"username"`
}

type rawMessage struct {
	MessageID int64  `json:"message_id"`
	Date      int64  `json:"date"`
	Text      string `json:"text"`
	Caption   string `json:"caption"`
	Chat      rawChat  `json:"chat"`
	From      *rawUser `json:"from"`
	Views     int      `json:"views"`
	Forwards  int      `json:"forwards"`
	Entities  []struct {
		Type string `json:"type"`
		URL  string `json:"url"`
	} `json:"entities"`
}

type rawUpdate struct {
	UpdateID    int64       `json:"update_id"`
	Message     *rawMessage `json:"message"`
	ChannelPost *rawMessage `json:"channel_post"`
}

// Connect verifies the token with getMe. The Bot API authenticates by
// token alone, so the interactive Authenticator is never consulted.
func (c *Client) Connect(ctx context.Context, _ platform.Authenticator) error {
	c.mu.Lock()
	if c.connected {
		c.mu.Unlock()
		return nil
	}
	c.mu.Unlock()

	var me rawUser
	if err := c.call(ctx, "getMe", nil, &me); err != nil {
		if apiErr, ok := err.(*apiError); ok && apiErr.code == http.StatusUnauthorized {
			return fmt.Errorf("getMe: %w", platform.ErrUnauthorized)
		}
		return fmt.Errorf("getMe: %w", err)
	}

	c.mu.Lock()
	c.connected = true
	c.mu.Unlock()
	return nil
}

// Resolve maps "@handle" or a numeric chat id to an entity via getChat
func (c *Client) Resolve(ctx context.Context, identifier string) (platform.Entity, error) {
	c.mu.Lock()
	if ent, ok := c.chats[identifier]; ok {
		c.mu.Unlock()
		return ent, nil
	}
	c.mu.Unlock()

	params := url.Values{}
	params.Set("chat_id", identifier)

	var chat rawChat
	if err := c.call(ctx, "getChat", params, &chat); err != nil {
		if apiErr, ok := err.(*apiError); ok && apiErr.code == http.StatusBadRequest {
			return platform.Entity{}, fmt.Errorf("getChat %q: %w", identifier, platform.ErrNotFound)
		}
		return platform.Entity{}, fmt.Errorf("getChat %q: %w", identifier, err)
	}

	ent := platform.Entity{ID: strconv.FormatInt(chat.ID, 10), Name: chatName(chat)}
	c.mu.Lock()
	c.chats[identifier] = ent
	c.chats[ent.ID] = ent
	c.mu.Unlock()
	return ent, nil
}

// RefreshDialogs drains pending updates so newly visible chats and their
// messages land in the local cache. This is the bot-side equivalent of
// re-reading the dialog list.
func (c *Client) RefreshDialogs(ctx context.Context) error {
	return c.drainUpdates(ctx)
}

// History returns up to limit buffered messages for the entity sent at or
// before anchor, newest first
func (c *Client) History(ctx context.Context, entity platform.Entity, anchor time.Time, limit int) ([]platform.RawMessage, error) {
	if err := c.drainUpdates(ctx); err != nil {
		return nil, err
	}

	if limit <= 0 {
		return nil, nil
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	buffered := c.buffer[entity.ID]
	out := make([]platform.RawMessage, 0, limit)
	// Buffer is kept oldest-first; walk backward for newest-first output.
	for i := len(buffered) - 1; i >= 0 && len(out) < limit; i-- {
		if buffered[i].SentAt.After(anchor) {
			continue
		}
		out = append(out, buffered[i])
	}
	return out, nil
}

// Send transmits text to the entity via sendMessage
func (c *Client) Send(ctx context.Context, entity platform.Entity, text string) error {
	if len([]rune(text)) > sendLimit {
		text = string([]rune(text)[:sendLimit]) + "..."
	}

	payload, err := json.Marshal(map[string]interface{}{
		"chat_id": entity.ID,
		"text":    text,
	})
	if err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.apiBase+"/sendMessage", strings.NewReader(string(payload)))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("sendMessage: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("sendMessage: read response: %w", err)
	}
	return checkResponse(body, nil)
}

// Close drops the connection state. Safe on an unconnected client.
func (c *Client) Close() error {
	c.mu.Lock()
	c.connected = false
	c.mu.Unlock()
	return nil
}

// drainUpdates pulls all pending updates into the per-chat buffer
func (c *Client) drainUpdates(ctx context.Context) error {
	for {
		c.mu.Lock()
		offset := c.offset
		c.mu.Unlock()

		params := url.Values{}
		params.Set("offset", strconv.FormatInt(offset, 10))
		params.Set("timeout", "0")

		var updates []rawUpdate
		if err := c.call(ctx, "getUpdates", params, &updates); err != nil {
			return fmt.Errorf("getUpdates: %w", err)
		}
		if len(updates) == 0 {
			return nil
		}

		c.mu.Lock()
		for _, u := range updates {
			if u.UpdateID >= c.offset {
				c.offset = u.UpdateID + 1
			}
			msg := u.Message
			if msg == nil {
				msg = u.ChannelPost
			}
			if msg == nil {
				continue
			}
			rm := convertMessage(msg)
			c.buffer[rm.ChatID] = append(c.buffer[rm.ChatID], rm)
			ent := platform.Entity{ID: rm.ChatID, Name: rm.ChatName}
			c.chats[rm.ChatID] = ent
			if msg.Chat.Username != "" {
				c.chats["@"+msg.Chat.Username] = ent
			}
		}
		// Keep each chat buffer in delivery-time order.
		for id := range c.buffer {
			buf := c.buffer[id]
			sort.SliceStable(buf, func(i, j int) bool { return buf[i].SentAt.Before(buf[j].SentAt) })
		}
		c.mu.Unlock()
	}
}

// call performs a GET API call and unmarshals the result payload
func (c *Client) call(ctx context.Context, method string, params url.Values, result interface{}) error {
	endpoint := c.apiBase + "/" + method
	if len(params) > 0 {
		endpoint += "?" + params.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return err
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("read response: %w", err)
	}
	return checkResponse(body, result)
}

// apiError carries the Bot API error code for callers that map status
// codes onto the platform error contract
type apiError struct {
	code        int
	description string
}

func (e *apiError) Error() string {
	return fmt.Sprintf("bot api error %d: %s", e.code, e.description)
}

func checkResponse(body []byte, result interface{}) error {
	var wrapper apiResponse
	if err := json.Unmarshal(body, &wrapper); err != nil {
		return fmt.Errorf("parse response: %w", err)
	}
	if !wrapper.OK {
		if wrapper.ErrorCode == http.StatusTooManyRequests && wrapper.Parameters != nil {
			return &platform.RateLimitError{
				RetryAfter: time.Duration(wrapper.Parameters.RetryAfter) * time.Second,
			}
		}
		return &apiError{code: wrapper.ErrorCode, description: wrapper.Description}
	}
	if result != nil {
		if err := json.Unmarshal(wrapper.Result, result); err != nil {
			return fmt.Errorf("parse result: %w", err)
		}
	}
	return nil
}

func convertMessage(msg *rawMessage) platform.RawMessage {
	text := msg.Text
	if text == "" {
		text = msg.Caption
	}

	var urls []string
	for _, e := range msg.Entities {
		if e.Type == "text_link" && e.URL != "" {
			urls = append(urls, e.URL)
		}
	}

	rm := platform.RawMessage{
		ID:       strconv.FormatInt(msg.MessageID, 10),
		ChatID:   strconv.FormatInt(msg.Chat.ID, 10),
		ChatName: chatName(msg.Chat),
		Text:     text,
		SentAt:   time.Unix(msg.Date, 0).UTC(),
		URLs:     urls,
		Views:    msg.Views,
		Forwards: msg.Forwards,
	}
	if msg.From != nil {
		rm.AuthorID = strconv.FormatInt(msg.From.ID, 10)
		name := strings.TrimSpace(msg.From.FirstName + " " + msg.From.LastName)
		if name == "" {
			name = msg.From.Username
		}
		rm.AuthorName = name
	}
	return rm
}

func chatName(chat rawChat) string {
	if chat.Title != "" {
		return chat.Title
	}
	if chat.FirstName != "" {
		return chat.FirstName
	}
	return chat.Username
}
