package stream

import (
	"context"
	"slices"
	"sync"
	"time"

	"github.com/ajujo/teaching-system/internal/logger"
	"github.com/ajujo/teaching-system/internal/teaching"
)

// Engine is what the hub needs from the teaching engine.
type Engine interface {
	teaching.Tutor
	Evict(ctx context.Context, ttl time.Duration) []string
}

type Options struct {
	// Buffer is the number of events kept per session for replay.
	Buffer int
	// SessionTTL evicts sessions with no input for this long. Zero disables eviction.
	SessionTTL time.Duration
	// SweepInterval is how often the janitor looks for idle sessions.
	SweepInterval time.Duration
}

// Hub routes engine turns into per-session sinks.
type Hub struct {
	engine Engine
	opts   Options
	log    *logger.Logger

	mu    sync.RWMutex
	sinks map[string]*Sink

	// registered is closed and replaced whenever Start adds a sink.
	registered chan struct{}
}

// registerWait bounds how long a turn waits for Start to register the sink
// of a session the engine already knows.
const registerWait = 2 * time.Second

func NewHub(engine Engine, opts Options, log *logger.Logger) *Hub {
	if log == nil {
		log = logger.Nop()
	}
	if opts.Buffer < 1 {
		opts.Buffer = 256
	}
	if opts.SweepInterval <= 0 {
		opts.SweepInterval = time.Minute
	}
	return &Hub{
		engine: engine,
		opts:   opts,
		log:    log.With("component", "stream"),
		sinks:  make(map[string]*Sink),

		registered: make(chan struct{}),
	}
}

// Start opens a session and publishes its opening events.
func (h *Hub) Start(ctx context.Context, req teaching.StartRequest) (teaching.Started, error) {
	started, err := h.engine.StartSession(ctx, req)
	if err != nil {
		return started, err
	}
	sink := newSink(h.opts.Buffer)
	sink.Publish(started.Events...)

	h.mu.Lock()
	h.sinks[started.SessionID] = sink
	close(h.registered)
	h.registered = make(chan struct{})
	h.mu.Unlock()
	h.log.Debug("sink opened", "session_id", started.SessionID, "events", len(started.Events))
	return started, nil
}

// Submit runs one turn and publishes its events. The events are also
// returned for callers that answer synchronously.
func (h *Hub) Submit(ctx context.Context, sessionID, text string) ([]teaching.Event, error) {
	return h.turn(ctx, sessionID, func(ctx context.Context) ([]teaching.Event, error) {
		return h.engine.SubmitInput(ctx, sessionID, text)
	})
}

// End closes a session.
func (h *Hub) End(ctx context.Context, sessionID string) ([]teaching.Event, error) {
	return h.turn(ctx, sessionID, func(ctx context.Context) ([]teaching.Event, error) {
		return h.engine.EndSession(ctx, sessionID)
	})
}

func (h *Hub) turn(ctx context.Context, sessionID string, fn func(context.Context) ([]teaching.Event, error)) ([]teaching.Event, error) {
	sink, err := h.awaitSink(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	sink.turn.Lock()
	defer sink.turn.Unlock()

	events, err := fn(ctx)
	if err != nil {
		if teaching.IsSessionNotFound(err) {
			h.close(sessionID)
		}
		return nil, err
	}
	sink.Publish(events...)
	if closes(events) {
		h.close(sessionID)
	}
	return events, nil
}

func closes(events []teaching.Event) bool {
	for _, e := range events {
		if e.Type == teaching.EventSessionClosed {
			return true
		}
	}
	return false
}

// Sink returns the sink of a live session.
func (h *Hub) Sink(sessionID string) (*Sink, error) {
	h.mu.RLock()
	sink, ok := h.sinks[sessionID]
	h.mu.RUnlock()
	if !ok {
		return nil, &teaching.SessionNotFoundError{ID: sessionID}
	}
	return sink, nil
}

// awaitSink returns the sink of sessionID. A session can be live in the
// engine a moment before Start registers its sink; turns arriving in that
// window wait for the registration instead of failing.
func (h *Hub) awaitSink(ctx context.Context, sessionID string) (*Sink, error) {
	timer := time.NewTimer(registerWait)
	defer timer.Stop()
	for {
		h.mu.RLock()
		sink, ok := h.sinks[sessionID]
		registered := h.registered
		h.mu.RUnlock()
		if ok {
			return sink, nil
		}
		if _, err := h.engine.Session(sessionID); err != nil {
			return nil, &teaching.SessionNotFoundError{ID: sessionID}
		}
		select {
		case <-registered:
		case <-timer.C:
			return nil, &teaching.SessionNotFoundError{ID: sessionID}
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
}

// Session describes a live session.
func (h *Hub) Session(sessionID string) (teaching.SessionInfo, error) {
	if _, err := h.Sink(sessionID); err != nil {
		return teaching.SessionInfo{}, err
	}
	return h.engine.Session(sessionID)
}

// Sessions returns the ids of sessions with an open sink.
func (h *Hub) Sessions() []string {
	h.mu.RLock()
	defer h.mu.RUnlock()
	ids := make([]string, 0, len(h.sinks))
	for id := range h.sinks {
		ids = append(ids, id)
	}
	slices.Sort(ids)
	return ids
}

func (h *Hub) close(sessionID string) {
	h.mu.Lock()
	sink, ok := h.sinks[sessionID]
	delete(h.sinks, sessionID)
	h.mu.Unlock()
	if ok {
		sink.Close()
		h.log.Debug("sink closed", "session_id", sessionID)
	}
}

// Sweep evicts idle sessions and tells their readers the session expired.
func (h *Hub) Sweep(ctx context.Context) []string {
	if h.opts.SessionTTL <= 0 {
		return nil
	}
	evicted := h.engine.Evict(ctx, h.opts.SessionTTL)
	for _, id := range evicted {
		sink, err := h.Sink(id)
		if err != nil {
			continue
		}
		sink.turn.Lock()
		tc := teaching.TurnContext{TurnID: sink.Last().TurnID}
		tc.Begin()
		sink.Publish(tc.Stamp(teaching.Draft{
			Type:  teaching.EventSessionClosed,
			Title: "Sesión caducada",
			Body:  "La sesión se ha cerrado por inactividad. Tu progreso está guardado.",
			Data:  map[string]any{"reason": "expired"},
		}))
		sink.turn.Unlock()
		h.close(id)
	}
	if len(evicted) > 0 {
		h.log.Info("idle sessions evicted", "count", len(evicted))
	}
	return evicted
}

// Run sweeps on every interval until ctx is done, then closes all sinks.
func (h *Hub) Run(ctx context.Context) error {
	ticker := time.NewTicker(h.opts.SweepInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			h.closeAll()
			return nil
		case <-ticker.C:
			h.Sweep(ctx)
		}
	}
}

func (h *Hub) closeAll() {
	h.mu.Lock()
	sinks := h.sinks
	h.sinks = make(map[string]*Sink)
	h.mu.Unlock()
	for _, s := range sinks {
		s.Close()
	}
}
