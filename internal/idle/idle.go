// Package idle follows browser activity pings and drives the
// active/idle/away presence state per session. Long absences with a
// running time entry trigger the keep-or-discard prompt; the refresh
// scheduler pauses while nobody is around to watch.
package idle

import (
	"sync"
	"time"
)

type State string

const (
	StateActive State = "active"
	StateIdle   State = "idle"
	StateAway   State = "away"
)

const (
	DefaultIdleAfter   = 5 * time.Minute
	DefaultAwayAfter   = 30 * time.Minute
	DefaultPromptAfter = 10 * time.Minute
)

// Event is one presence transition, delivered to the change listener.
type Event struct {
	SessionID string
	From, To  State
}

// Return describes a session coming back from an absence.
type Return struct {
	Gone   time.Duration
	Prompt bool
}

type Config struct {
	IdleAfter   time.Duration
	AwayAfter   time.Duration
	PromptAfter time.Duration
}

func (c *Config) fillDefaults() {
	if c.IdleAfter <= 0 {
		c.IdleAfter = DefaultIdleAfter
	}
	if c.AwayAfter <= 0 {
		c.AwayAfter = DefaultAwayAfter
	}
	if c.PromptAfter <= 0 {
		c.PromptAfter = DefaultPromptAfter
	}
}

type session struct {
	lastPing time.Time
	state    State
}

// Tracker is safe for concurrent use by the websocket handlers and the
// sweep ticker.
type Tracker struct {
	mu       sync.Mutex
	cfg      Config
	sessions map[string]*session

	now          func() time.Time
	onTransition func(Event)
}

func NewTracker(cfg Config) *Tracker {
	cfg.fillDefaults()
	return &Tracker{
		cfg:      cfg,
		sessions: map[string]*session{},
		now:      time.Now,
	}
}

// OnTransition registers the single transition listener (the presence
// badge broadcaster). Called without the tracker lock held.
func (t *Tracker) OnTransition(fn func(Event)) {
	t.mu.Lock()
	t.onTransition = fn
	t.mu.Unlock()
}

// Ping records activity for a session. A first ping registers the
// session as active. Coming back from idle or away reports how long the
// session was gone and whether the absence is long enough for the
// keep-or-discard prompt.
func (t *Tracker) Ping(sessionID string) Return {
	t.mu.Lock()
	now := t.now()

	s, ok := t.sessions[sessionID]
	if !ok {
		t.sessions[sessionID] = &session{lastPing: now, state: StateActive}
		t.mu.Unlock()
		return Return{}
	}

	gone := now.Sub(s.lastPing)
	from := s.state
	s.lastPing = now
	s.state = StateActive
	fn := t.onTransition
	t.mu.Unlock()

	if from == StateActive {
		return Return{}
	}
	if fn != nil {
		fn(Event{SessionID: sessionID, From: from, To: StateActive})
	}
	return Return{Gone: gone, Prompt: gone >= t.cfg.PromptAfter}
}

// Sweep demotes stale sessions. The web layer runs it on a ticker;
// tests call it directly.
func (t *Tracker) Sweep() {
	t.mu.Lock()
	now := t.now()
	var events []Event
	for id, s := range t.sessions {
		target := s.state
		switch gone := now.Sub(s.lastPing); {
		case gone >= t.cfg.AwayAfter:
			target = StateAway
		case gone >= t.cfg.IdleAfter:
			target = StateIdle
		}
		if target != s.state && rank(target) > rank(s.state) {
			events = append(events, Event{SessionID: id, From: s.state, To: target})
			s.state = target
		}
	}
	fn := t.onTransition
	t.mu.Unlock()

	if fn != nil {
		for _, e := range events {
			fn(e)
		}
	}
}

// Drop forgets a session (websocket closed).
func (t *Tracker) Drop(sessionID string) {
	t.mu.Lock()
	delete(t.sessions, sessionID)
	t.mu.Unlock()
}

// State reports a session's current presence; unknown sessions are away.
func (t *Tracker) State(sessionID string) State {
	t.mu.Lock()
	defer t.mu.Unlock()
	if s, ok := t.sessions[sessionID]; ok {
		return s.state
	}
	return StateAway
}

// NobodyWatching reports whether no session is active or idle. True
// with zero sessions: an empty room counts as away.
func (t *Tracker) NobodyWatching() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	for _, s := range t.sessions {
		if s.state != StateAway {
			return false
		}
	}
	return true
}

func rank(s State) int {
	switch s {
	case StateIdle:
		return 1
	case StateAway:
		return 2
	}
	return 0
}
