// Package toast keeps the queue of transient notifications shown in the
// corner of every view: fetch failures, offline fallbacks, idle prompts,
// save confirmations. The web layer re-renders the toast region whenever
// the queue changes.
package toast

import (
	"sync"
	"time"

	"github.com/google/uuid"
)

type Level string

const (
	LevelInfo    Level = "info"
	LevelSuccess Level = "success"
	LevelWarning Level = "warning"
	LevelError   Level = "error"
)

// MaxVisible caps the queue; pushing past it evicts the oldest toast.
const MaxVisible = 5

const (
	defaultTTL = 6 * time.Second
	errorTTL   = 12 * time.Second
)

type Toast struct {
	ID        string
	Level     Level
	Title     string
	Body      string
	CreatedAt time.Time
	ExpiresAt time.Time

	// Action carries an optional prompt target, e.g. the keep/discard
	// form for an idle running entry.
	Action string
}

// Center is the process-wide toast queue. Safe for concurrent use.
type Center struct {
	mu     sync.Mutex
	toasts []Toast

	now      func() time.Time
	onChange func()
}

func NewCenter() *Center {
	return &Center{now: time.Now}
}

// OnChange registers the single change listener (the SSE broadcaster).
func (c *Center) OnChange(fn func()) {
	c.mu.Lock()
	c.onChange = fn
	c.mu.Unlock()
}

func (c *Center) Info(title, body string) string {
	return c.Push(Toast{Level: LevelInfo, Title: title, Body: body})
}

func (c *Center) Success(title, body string) string {
	return c.Push(Toast{Level: LevelSuccess, Title: title, Body: body})
}

func (c *Center) Warning(title, body string) string {
	return c.Push(Toast{Level: LevelWarning, Title: title, Body: body})
}

func (c *Center) Error(title, body string) string {
	return c.Push(Toast{Level: LevelError, Title: title, Body: body})
}

// Push enqueues a toast and returns its ID. An identical live toast
// (same level, title and body) is refreshed instead of duplicated, so a
// flapping fetch error does not stack five copies.
func (c *Center) Push(in Toast) string {
	c.mu.Lock()
	now := c.now()
	c.pruneLocked(now)

	for i := range c.toasts {
		t := &c.toasts[i]
		if t.Level == in.Level && t.Title == in.Title && t.Body == in.Body {
			t.ExpiresAt = now.Add(ttlFor(in.Level))
			id := t.ID
			fn := c.onChange
			c.mu.Unlock()
			if fn != nil {
				fn()
			}
			return id
		}
	}

	in.ID = uuid.NewString()
	in.CreatedAt = now
	if in.ExpiresAt.IsZero() {
		in.ExpiresAt = now.Add(ttlFor(in.Level))
	}
	c.toasts = append(c.toasts, in)
	if len(c.toasts) > MaxVisible {
		c.toasts = c.toasts[len(c.toasts)-MaxVisible:]
	}
	fn := c.onChange
	c.mu.Unlock()
	if fn != nil {
		fn()
	}
	return in.ID
}

// Dismiss drops a toast by ID. Unknown IDs are ignored.
func (c *Center) Dismiss(id string) {
	c.mu.Lock()
	kept := c.toasts[:0]
	changed := false
	for _, t := range c.toasts {
		if t.ID == id {
			changed = true
			continue
		}
		kept = append(kept, t)
	}
	c.toasts = kept
	fn := c.onChange
	c.mu.Unlock()
	if changed && fn != nil {
		fn()
	}
}

// Active returns the live toasts oldest-first, pruning expired ones.
func (c *Center) Active() []Toast {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.pruneLocked(c.now())
	out := make([]Toast, len(c.toasts))
	copy(out, c.toasts)
	return out
}

func (c *Center) pruneLocked(now time.Time) {
	kept := c.toasts[:0]
	for _, t := range c.toasts {
		if t.ExpiresAt.After(now) {
			kept = append(kept, t)
		}
	}
	c.toasts = kept
}

func ttlFor(l Level) time.Duration {
	if l == LevelError {
		return errorTTL
	}
	return defaultTTL
}
