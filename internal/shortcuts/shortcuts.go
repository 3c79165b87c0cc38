// Package shortcuts is the declarative keyboard map: one registry feeds
// the browser dispatcher (as JSON), the help overlay and the terminal
// preview's keymap.
package shortcuts

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
)

const (
	ScopeGlobal   = "global"
	ScopeCalendar = "calendar"
	ScopeTable    = "table"
	ScopeForm     = "form"
)

var ErrConflict = errors.New("shortcuts: conflicting binding")

type Binding struct {
	ID          string `json:"id"`
	Keys        string `json:"keys"`
	Scope       string `json:"scope"`
	Description string `json:"description"`
	Action      string `json:"action"`
}

type Registry struct {
	bindings []Binding
	taken    map[string]string // scope+keys -> binding ID
}

func NewRegistry() *Registry {
	return &Registry{taken: map[string]string{}}
}

// Register adds a binding. The same key chord may not appear twice in
// one scope, and a global chord blocks that chord in every scope.
func (r *Registry) Register(b Binding) error {
	b.Keys = strings.TrimSpace(b.Keys)
	if b.ID == "" || b.Keys == "" || b.Action == "" {
		return fmt.Errorf("shortcuts: binding %q needs id, keys and action", b.ID)
	}
	if b.Scope == "" {
		b.Scope = ScopeGlobal
	}

	if other, ok := r.taken[key(b.Scope, b.Keys)]; ok {
		return fmt.Errorf("%w: %q already bound to %s in scope %s", ErrConflict, b.Keys, other, b.Scope)
	}
	if b.Scope != ScopeGlobal {
		if other, ok := r.taken[key(ScopeGlobal, b.Keys)]; ok {
			return fmt.Errorf("%w: %q already bound globally to %s", ErrConflict, b.Keys, other)
		}
	} else {
		for k, other := range r.taken {
			if strings.HasSuffix(k, "\x00"+b.Keys) {
				return fmt.Errorf("%w: %q already bound to %s", ErrConflict, b.Keys, other)
			}
		}
	}

	r.taken[key(b.Scope, b.Keys)] = b.ID
	r.bindings = append(r.bindings, b)
	return nil
}

func (r *Registry) Bindings() []Binding {
	out := make([]Binding, len(r.bindings))
	copy(out, r.bindings)
	return out
}

// Lookup resolves a chord within a scope, falling back to global.
func (r *Registry) Lookup(scope, keys string) (Binding, bool) {
	for _, b := range r.bindings {
		if b.Keys == keys && (b.Scope == scope || b.Scope == ScopeGlobal) {
			return b, true
		}
	}
	return Binding{}, false
}

// ScopeGroup is one section of the help overlay.
type ScopeGroup struct {
	Scope    string
	Title    string
	Bindings []Binding
}

var scopeOrder = []struct{ scope, title string }{
	{ScopeGlobal, "Everywhere"},
	{ScopeCalendar, "Calendar"},
	{ScopeTable, "Entries table"},
	{ScopeForm, "Forms"},
}

// Groups returns bindings grouped for the help overlay, in a fixed
// scope order, each group in registration order.
func (r *Registry) Groups() []ScopeGroup {
	var out []ScopeGroup
	for _, s := range scopeOrder {
		g := ScopeGroup{Scope: s.scope, Title: s.title}
		for _, b := range r.bindings {
			if b.Scope == s.scope {
				g.Bindings = append(g.Bindings, b)
			}
		}
		if len(g.Bindings) > 0 {
			out = append(out, g)
		}
	}
	return out
}

// JSON renders the table for the browser dispatcher (/shortcuts.json).
func (r *Registry) JSON() ([]byte, error) {
	return json.Marshal(r.bindings)
}

func key(scope, keys string) string { return scope + "\x00" + keys }

// Default is the application's shortcut table. Panics on conflict, which
// can only happen from an edit to this function.
func Default() *Registry {
	r := NewRegistry()
	table := []Binding{
		{ID: "help", Keys: "?", Scope: ScopeGlobal, Description: "Show keyboard shortcuts", Action: "help.toggle"},
		{ID: "dismiss", Keys: "Escape", Scope: ScopeGlobal, Description: "Close overlay or toast", Action: "overlay.dismiss"},
		{ID: "today", Keys: "t", Scope: ScopeGlobal, Description: "Jump to today", Action: "nav.today"},
		{ID: "refresh", Keys: "r", Scope: ScopeGlobal, Description: "Refresh calendar data", Action: "data.refresh"},
		{ID: "new-entry", Keys: "n", Scope: ScopeGlobal, Description: "New time entry", Action: "entry.new"},

		{ID: "prev", Keys: "ArrowLeft", Scope: ScopeCalendar, Description: "Previous day or week", Action: "nav.prev"},
		{ID: "next", Keys: "ArrowRight", Scope: ScopeCalendar, Description: "Next day or week", Action: "nav.next"},
		{ID: "day-view", Keys: "d", Scope: ScopeCalendar, Description: "Day view", Action: "view.day"},
		{ID: "week-view", Keys: "w", Scope: ScopeCalendar, Description: "Week view", Action: "view.week"},
		{ID: "month-view", Keys: "m", Scope: ScopeCalendar, Description: "Month view", Action: "view.month"},

		{ID: "filter", Keys: "/", Scope: ScopeTable, Description: "Focus the filter box", Action: "table.filter"},
		{ID: "page-next", Keys: "]", Scope: ScopeTable, Description: "Next page", Action: "table.nextPage"},
		{ID: "page-prev", Keys: "[", Scope: ScopeTable, Description: "Previous page", Action: "table.prevPage"},

		{ID: "save", Keys: "Ctrl+Enter", Scope: ScopeForm, Description: "Save the form", Action: "form.submit"},
	}
	for _, b := range table {
		if err := r.Register(b); err != nil {
			panic(err)
		}
	}
	return r
}
