// ABOUTME: Tests for concurrent collection fan-out and fault isolation
// ABOUTME: Sessions run over in-memory fake platform clients
package collector

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/harper/chatdigest/internal/config"
	"github.com/harper/chatdigest/internal/dedup"
	"github.com/harper/chatdigest/internal/platform"
	"github.com/harper/chatdigest/internal/session"
)

// fakeClient serves canned history keyed by entity id
type fakeClient struct {
	mu          sync.Mutex
	connectErr  error
	history     map[string][]platform.RawMessage
	historyErr  map[string]error
	sendErr     error
	sent        []string
	connectN    int
	closeCalled bool
}

func (f *fakeClient) Connect(_ context.Context, _ platform.Authenticator) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.connectN++
	return f.connectErr
}

func (f *fakeClient) Resolve(_ context.Context, identifier string) (platform.Entity, error) {
	return platform.Entity{ID: identifier, Name: identifier}, nil
}

func (f *fakeClient) RefreshDialogs(_ context.Context) error { return nil }

func (f *fakeClient) History(_ context.Context, entity platform.Entity, _ time.Time, _ int) ([]platform.RawMessage, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.historyErr[entity.ID]; err != nil {
		return nil, err
	}
	return f.history[entity.ID], nil
}

func (f *fakeClient) Send(_ context.Context, _ platform.Entity, text string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.sendErr != nil {
		return f.sendErr
	}
	f.sent = append(f.sent, text)
	return nil
}

func (f *fakeClient) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.closeCalled = true
	return nil
}

var (
	windowStart = time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	windowEnd   = time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
)

func rawMessage(id, chat, text string, offset time.Duration) platform.RawMessage {
	return platform.RawMessage{
		ID:     id,
		ChatID: chat,
		Text:   text,
		SentAt: windowStart.Add(offset),
	}
}

func newSession(id string, client platform.Client, sources ...string) *session.Session {
	acct := config.Account{ID: id, Sources: sources}
	return session.NewInLocation(acct, client, nil, time.UTC)
}

func defaultPolicy() dedup.Policy {
	return dedup.Policy{ByContent: true, ByLinks: true}
}

func TestConnectAllPartialSuccess(t *testing.T) {
	good := &fakeClient{}
	bad := &fakeClient{connectErr: platform.ErrUnauthorized}

	o := New([]*session.Session{
		newSession("a", good, "chat1"),
		newSession("b", bad, "chat2"),
	}, nil, nil, defaultPolicy())

	if got := o.ConnectAll(context.Background()); got != 1 {
		t.Errorf("ConnectAll() = %d, want 1", got)
	}
}

func TestDisconnectAll(t *testing.T) {
	c1 := &fakeClient{}
	c2 := &fakeClient{}
	sessions := []*session.Session{newSession("a", c1, "x"), newSession("b", c2, "x")}
	o := New(sessions, nil, nil, defaultPolicy())

	o.ConnectAll(context.Background())
	o.DisconnectAll()

	if !c1.closeCalled || !c2.closeCalled {
		t.Error("expected both clients closed")
	}
}

func TestCollectCrossProduct(t *testing.T) {
	// 2 sessions x 3 global sources = 6 tasks; distinct content everywhere
	mk := func(prefix string) *fakeClient {
		c := &fakeClient{history: make(map[string][]platform.RawMessage)}
		for i, src := range []string{"s1", "s2", "s3"} {
			c.history[src] = []platform.RawMessage{
				rawMessage(fmt.Sprintf("%s-%d", prefix, i), src, prefix+src, 10*time.Minute),
			}
		}
		return c
	}

	o := New([]*session.Session{
		newSession("a", mk("a")),
		newSession("b", mk("b")),
	}, nil, []string{"s1", "s2", "s3"}, defaultPolicy())

	got, err := o.Collect(context.Background(), windowStart, windowEnd, 100, nil)
	if err != nil {
		t.Fatalf("Collect() error = %v", err)
	}
	if len(got) != 6 {
		t.Errorf("Collect() returned %d records, want 6", len(got))
	}
}

func TestCollectConnectsLazily(t *testing.T) {
	// No ConnectAll first: every fan-out task hits the unconnected session
	// at once and exactly one handshake must win.
	client := &fakeClient{history: make(map[string][]platform.RawMessage)}
	sources := []string{"s1", "s2", "s3", "s4"}
	for i, src := range sources {
		client.history[src] = []platform.RawMessage{
			rawMessage(fmt.Sprintf("m%d", i), src, "text "+src, 10*time.Minute),
		}
	}

	o := New([]*session.Session{newSession("a", client, sources...)}, nil, nil, defaultPolicy())

	got, err := o.Collect(context.Background(), windowStart, windowEnd, 100, nil)
	if err != nil {
		t.Fatalf("Collect() error = %v", err)
	}
	if len(got) != 4 {
		t.Errorf("Collect() returned %d records, want 4", len(got))
	}
	if client.connectN != 1 {
		t.Errorf("client Connect called %d times, want 1", client.connectN)
	}
}

func TestCollectDeduplicatesAcrossSessions(t *testing.T) {
	// Both sessions observe the same content in the same source; the earlier
	// observation wins.
	early := &fakeClient{history: map[string][]platform.RawMessage{
		"shared": {rawMessage("1", "shared", "BTC is up 5%", 5*time.Minute)},
	}}
	late := &fakeClient{history: map[string][]platform.RawMessage{
		"shared": {rawMessage("9", "shared", "BTC is up 5%", 15*time.Minute)},
	}}

	sessA := newSession("a", early, "shared")
	sessB := newSession("b", late, "shared")
	o := New([]*session.Session{sessA, sessB}, nil, nil, defaultPolicy())

	got, err := o.Collect(context.Background(), windowStart, windowEnd, 100, nil)
	if err != nil {
		t.Fatalf("Collect() error = %v", err)
	}
	if len(got) != 1 {
		t.Fatalf("Collect() returned %d records, want 1 after dedup", len(got))
	}
	if got[0].Account != "a" {
		t.Errorf("kept record from account %q, want the earlier observation from a", got[0].Account)
	}
}

func TestCollectFaultIsolation(t *testing.T) {
	// One source fails with a permanent error; the other two still deliver.
	c := &fakeClient{
		history: map[string][]platform.RawMessage{
			"ok1": {rawMessage("1", "ok1", "alpha", time.Minute)},
			"ok2": {rawMessage("2", "ok2", "beta", 2*time.Minute)},
		},
		historyErr: map[string]error{
			"broken": errors.New("internal server error"),
		},
	}

	o := New([]*session.Session{newSession("a", c, "ok1", "broken", "ok2")}, nil, nil, defaultPolicy())

	got, err := o.Collect(context.Background(), windowStart, windowEnd, 100, nil)
	if err != nil {
		t.Fatalf("Collect() error = %v", err)
	}
	if len(got) != 2 {
		t.Errorf("Collect() returned %d records, want 2 (failed source contributes zero)", len(got))
	}
}

func TestCollectUnconnectableSessionIsContained(t *testing.T) {
	bad := &fakeClient{connectErr: platform.ErrUnauthorized}
	good := &fakeClient{history: map[string][]platform.RawMessage{
		"s1": {rawMessage("1", "s1", "hello", time.Minute)},
	}}

	o := New([]*session.Session{
		newSession("broken", bad, "s1"),
		newSession("working", good, "s1"),
	}, nil, nil, defaultPolicy())

	got, err := o.Collect(context.Background(), windowStart, windowEnd, 100, nil)
	if err != nil {
		t.Fatalf("Collect() error = %v", err)
	}
	if len(got) != 1 {
		t.Errorf("Collect() returned %d records, want 1", len(got))
	}
}

func TestCollectNoTasksYieldsEmpty(t *testing.T) {
	// Session without sources and no global fallback is skipped
	o := New([]*session.Session{newSession("a", &fakeClient{})}, nil, nil, defaultPolicy())

	got, err := o.Collect(context.Background(), windowStart, windowEnd, 100, nil)
	if err != nil {
		t.Fatalf("Collect() error = %v", err)
	}
	if got != nil {
		t.Errorf("Collect() = %v, want nil", got)
	}
}

func TestCollectSourcePrecedence(t *testing.T) {
	c := &fakeClient{history: map[string][]platform.RawMessage{
		"own":      {rawMessage("1", "own", "own source", time.Minute)},
		"override": {rawMessage("2", "override", "override source", time.Minute)},
		"global":   {rawMessage("3", "global", "global source", time.Minute)},
	}}

	t.Run("override beats per-account list", func(t *testing.T) {
		o := New([]*session.Session{newSession("a", c, "own")}, nil, []string{"global"}, defaultPolicy())
		got, err := o.Collect(context.Background(), windowStart, windowEnd, 100, []string{"override"})
		if err != nil {
			t.Fatalf("Collect() error = %v", err)
		}
		if len(got) != 1 || got[0].ChatID != "override" {
			t.Errorf("got %v, want only the override source", got)
		}
	})

	t.Run("per-account list beats global", func(t *testing.T) {
		o := New([]*session.Session{newSession("a", c, "own")}, nil, []string{"global"}, defaultPolicy())
		got, err := o.Collect(context.Background(), windowStart, windowEnd, 100, nil)
		if err != nil {
			t.Fatalf("Collect() error = %v", err)
		}
		if len(got) != 1 || got[0].ChatID != "own" {
			t.Errorf("got %v, want only the per-account source", got)
		}
	})

	t.Run("global fallback", func(t *testing.T) {
		o := New([]*session.Session{newSession("a", c)}, nil, []string{"global"}, defaultPolicy())
		got, err := o.Collect(context.Background(), windowStart, windowEnd, 100, nil)
		if err != nil {
			t.Fatalf("Collect() error = %v", err)
		}
		if len(got) != 1 || got[0].ChatID != "global" {
			t.Errorf("got %v, want only the global source", got)
		}
	})
}

func TestBroadcast(t *testing.T) {
	t.Run("delegates to primary", func(t *testing.T) {
		c := &fakeClient{}
		primary := newSession("main", c)
		o := New(nil, primary, nil, defaultPolicy())

		if !o.Broadcast(context.Background(), "digest text", "@channel") {
			t.Error("Broadcast() = false, want true")
		}
		if len(c.sent) != 1 || c.sent[0] != "digest text" {
			t.Errorf("sent = %v", c.sent)
		}
	})

	t.Run("no primary configured", func(t *testing.T) {
		o := New(nil, nil, nil, defaultPolicy())
		if o.Broadcast(context.Background(), "text", "@channel") {
			t.Error("Broadcast() = true, want false without primary")
		}
	})

	t.Run("no destination configured", func(t *testing.T) {
		o := New(nil, newSession("main", &fakeClient{}), nil, defaultPolicy())
		if o.Broadcast(context.Background(), "text", "") {
			t.Error("Broadcast() = true, want false without destination")
		}
	})

	t.Run("send failure returns false", func(t *testing.T) {
		c := &fakeClient{sendErr: errors.New("network down")}
		o := New(nil, newSession("main", c), nil, defaultPolicy())
		if o.Broadcast(context.Background(), "text", "@channel") {
			t.Error("Broadcast() = true, want false on send failure")
		}
	})
}
