package web

import (
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"timetracker-web/internal/toast"
)

// activityMsg is what app.js sends: throttled pings while the user is
// active, plus a hello carrying the running entry (if any) so the idle
// prompt can target it.
type activityMsg struct {
	Type           string `json:"type"` // hello|ping
	RunningEntryID string `json:"runningEntryId,omitempty"`
	IdleStart      string `json:"idleStart,omitempty"`
}

var wsUpgrader = websocket.Upgrader{
	ReadBufferSize:  4 * 1024,
	WriteBufferSize: 4 * 1024,
	CheckOrigin: func(r *http.Request) bool {
		origin := strings.TrimSpace(r.Header.Get("Origin"))
		if origin == "" {
			return true
		}
		// Basic same-origin check; the UI is a localhost tool.
		host := strings.TrimSpace(r.Host)
		return strings.Contains(origin, "://"+host)
	},
}

func (s *Server) handleActivityWS(w http.ResponseWriter, r *http.Request) {
	if s.tracker == nil {
		http.Error(w, "activity tracking disabled", http.StatusNotFound)
		return
	}
	conn, err := wsUpgrader.Upgrade(w, r, nil)
	if err != nil {
		http.Error(w, "websocket upgrade failed", http.StatusBadRequest)
		return
	}
	defer conn.Close()

	sessionID := uuid.NewString()
	s.tracker.Ping(sessionID)
	defer s.tracker.Drop(sessionID)

	runningEntryID := ""
	idleStart := time.Time{}

	for {
		_ = conn.SetReadDeadline(time.Now().Add(2 * time.Minute))
		_, data, err := conn.ReadMessage()
		if err != nil {
			return
		}

		var m activityMsg
		if err := json.Unmarshal(data, &m); err != nil {
			continue
		}
		switch strings.ToLower(strings.TrimSpace(m.Type)) {
		case "hello":
			runningEntryID = strings.TrimSpace(m.RunningEntryID)
		case "ping":
			ret := s.tracker.Ping(sessionID)
			if ret.Prompt && runningEntryID != "" {
				if m.IdleStart != "" {
					if t, err := time.Parse(time.RFC3339, m.IdleStart); err == nil {
						idleStart = t
					}
				}
				if idleStart.IsZero() {
					idleStart = time.Now().Add(-ret.Gone)
				}
				s.promptIdleEntry(runningEntryID, idleStart, ret.Gone)
			}
		}
	}
}

// promptIdleEntry raises the keep-or-discard toast for a running entry
// after a long absence. Keep is a no-op (dismiss); discard posts the
// stop-at-idle-start adjustment.
func (s *Server) promptIdleEntry(entryID string, idleStart time.Time, gone time.Duration) {
	s.toasts.Push(toastWithAction(
		"Still tracking?",
		"You were away for "+formatGone(gone)+" while an entry was running.",
		"/entries/"+entryID+"/discard-idle?at="+idleStart.UTC().Format(time.RFC3339),
	))
}

func toastWithAction(title, body, action string) toast.Toast {
	return toast.Toast{Level: toast.LevelWarning, Title: title, Body: body, Action: action}
}

func formatGone(d time.Duration) string {
	d = d.Round(time.Minute)
	if d < time.Minute {
		return "under a minute"
	}
	return d.String()
}
