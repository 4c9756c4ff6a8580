// ABOUTME: Orchestrates concurrent collection across all account sessions
// ABOUTME: Fans out session-source fetch tasks and pools results through dedup
package collector

import (
	"context"
	"log"
	"sync"
	"time"

	"github.com/harper/chatdigest/internal/dedup"
	"github.com/harper/chatdigest/internal/models"
	"github.com/harper/chatdigest/internal/session"
)

// Orchestrator drives a fleet of independent sessions. One session may be
// designated primary; broadcast goes through it.
type Orchestrator struct {
	sessions []*session.Session
	primary  *session.Session

	globalSources []string
	deduplicator  *dedup.Deduplicator
}

// New creates an orchestrator over the given sessions. primary may be nil
// when no broadcast destination account is configured. globalSources is the
// fallback list for sessions without their own.
func New(sessions []*session.Session, primary *session.Session, globalSources []string, policy dedup.Policy) *Orchestrator {
	return &Orchestrator{
		sessions:      sessions,
		primary:       primary,
		globalSources: globalSources,
		deduplicator:  dedup.New(policy),
	}
}

// Sessions returns the managed collection sessions
func (o *Orchestrator) Sessions() []*session.Session { return o.sessions }

// SetGlobalSources replaces the global fallback source list. Used by the
// sources-file watcher to apply updates between collection runs.
func (o *Orchestrator) SetGlobalSources(sources []string) {
	o.globalSources = sources
}

// ConnectAll connects every managed session concurrently. A failure on one
// session is logged and does not stop the others; the number of connected
// sessions is returned.
func (o *Orchestrator) ConnectAll(ctx context.Context) int {
	var wg sync.WaitGroup
	var mu sync.Mutex
	connected := 0

	for _, s := range o.sessions {
		wg.Add(1)
		go func(s *session.Session) {
			defer wg.Done()
			if err := s.Connect(ctx); err != nil {
				log.Printf("[collector] Connect %s failed: %v", s.Account(), err)
				return
			}
			mu.Lock()
			connected++
			mu.Unlock()
		}(s)
	}
	wg.Wait()

	log.Printf("[collector] Connected %d/%d sessions", connected, len(o.sessions))
	return connected
}

// DisconnectAll disconnects every managed session concurrently, logging and
// swallowing individual failures
func (o *Orchestrator) DisconnectAll() {
	var wg sync.WaitGroup
	for _, s := range o.sessions {
		wg.Add(1)
		go func(s *session.Session) {
			defer wg.Done()
			if err := s.Disconnect(); err != nil {
				log.Printf("[collector] Disconnect %s failed: %v", s.Account(), err)
			}
		}(s)
	}
	wg.Wait()
}

// Collect fetches the [start, end) window from every (session, source) pair
// concurrently, pools the results, and deduplicates. overrideSources, when
// non-empty, replaces every session's own list. A failing task contributes
// zero records; Collect itself only fails when the context does. An empty
// result is not an error.
func (o *Orchestrator) Collect(ctx context.Context, start, end time.Time, limitPerSource int, overrideSources []string) ([]models.Message, error) {
	type task struct {
		sess   *session.Session
		source string
	}

	var tasks []task
	for _, s := range o.sessions {
		sources := o.sourcesFor(s, overrideSources)
		if len(sources) == 0 {
			log.Printf("[collector] Session %s has no sources configured, skipping", s.Account())
			continue
		}
		for _, src := range sources {
			tasks = append(tasks, task{sess: s, source: src})
		}
	}
	if len(tasks) == 0 {
		log.Printf("[collector] No fetch tasks to run")
		return nil, nil
	}

	log.Printf("[collector] Collecting window %s - %s across %d tasks",
		start.Format(time.RFC3339), end.Format(time.RFC3339), len(tasks))

	results := make(chan []models.Message, len(tasks))
	var wg sync.WaitGroup
	for _, t := range tasks {
		wg.Add(1)
		go func(t task) {
			defer wg.Done()
			msgs, err := t.sess.Fetch(ctx, t.source, start, end, limitPerSource)
			if err != nil {
				log.Printf("[collector] Fetch %s from %s failed: %v", t.sess.Account(), t.source, err)
				return
			}
			results <- msgs
		}(t)
	}
	wg.Wait()
	close(results)

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	var pooled []models.Message
	for msgs := range results {
		pooled = append(pooled, msgs...)
	}

	deduped := o.deduplicator.Deduplicate(pooled)
	log.Printf("[collector] Pooled %d records, %d after dedup", len(pooled), len(deduped))
	return deduped, nil
}

// Broadcast sends text through the primary session. Returns false when no
// primary is configured or the send fails.
func (o *Orchestrator) Broadcast(ctx context.Context, text, destination string) bool {
	if o.primary == nil {
		log.Printf("[collector] No primary session configured, cannot broadcast")
		return false
	}
	if destination == "" {
		log.Printf("[collector] No broadcast destination configured")
		return false
	}
	return o.primary.Send(ctx, text, destination)
}

// sourcesFor resolves the precedence: caller override, then the session's
// own list, then the global fallback
func (o *Orchestrator) sourcesFor(s *session.Session, override []string) []string {
	if len(override) > 0 {
		return override
	}
	if own := s.Sources(); len(own) > 0 {
		return own
	}
	return o.globalSources
}
