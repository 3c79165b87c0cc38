// Package web serves the TimeTracker presentation layer: server-rendered
// calendar views over html/template, datastar SSE patches that re-render
// the calendar and toast regions on data changes, a websocket activity
// channel feeding idle detection, and the embedded PWA shell.
package web

import (
	"context"
	"embed"
	"errors"
	"html/template"
	"io"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/starfederation/datastar-go/datastar"

	"timetracker-web/internal/apiclient"
	"timetracker-web/internal/format"
	"timetracker-web/internal/idle"
	"timetracker-web/internal/refresh"
	"timetracker-web/internal/shortcuts"
	"timetracker-web/internal/store"
	"timetracker-web/internal/toast"
)

//go:embed templates/*.html static/*.js static/*.css static/*.webmanifest
var assetsFS embed.FS

type ServerConfig struct {
	Addr       string
	Loc        *time.Location
	WeekStart  string
	AppVersion string
}

// Deps are the collaborating subsystems the handlers call into. API may
// be nil in tests that only exercise view building.
type Deps struct {
	Refresh   *refresh.Service
	Toasts    *toast.Center
	Shortcuts *shortcuts.Registry
	UIState   *store.UIState
	Idle      *idle.Tracker
	API       *apiclient.Client
	Logger    *log.Logger
}

type Server struct {
	cfg  ServerConfig
	tmpl *template.Template
	log  *log.Logger

	refresh   *refresh.Service
	toasts    *toast.Center
	shortcuts *shortcuts.Registry
	ui        *store.UIState
	tracker   *idle.Tracker
	api       *apiclient.Client

	calendarHub *hub
	toastHub    *hub

	stopOnce sync.Once
	stopCh   chan struct{}
}

func NewServer(cfg ServerConfig, deps Deps) (*Server, error) {
	cfg.Addr = strings.TrimSpace(cfg.Addr)
	if cfg.Addr == "" {
		return nil, errors.New("web: addr is empty")
	}
	if cfg.Loc == nil {
		cfg.Loc = time.Local
	}
	if deps.Refresh == nil {
		return nil, errors.New("web: refresh service is required")
	}
	if deps.Toasts == nil {
		deps.Toasts = toast.NewCenter()
	}
	if deps.Shortcuts == nil {
		deps.Shortcuts = shortcuts.Default()
	}
	if deps.Logger == nil {
		deps.Logger = log.Default()
	}

	tmpl, err := template.New("base").Funcs(template.FuncMap{
		"trim":     strings.TrimSpace,
		"duration": format.Duration,
	}).ParseFS(assetsFS, "templates/*.html")
	if err != nil {
		return nil, err
	}

	s := &Server{
		cfg:         cfg,
		tmpl:        tmpl,
		log:         deps.Logger,
		refresh:     deps.Refresh,
		toasts:      deps.Toasts,
		shortcuts:   deps.Shortcuts,
		ui:          deps.UIState,
		tracker:     deps.Idle,
		api:         deps.API,
		calendarHub: newHub(),
		toastHub:    newHub(),
		stopCh:      make(chan struct{}),
	}

	s.toasts.OnChange(s.toastHub.broadcast)
	if s.tracker != nil {
		s.tracker.OnTransition(func(idle.Event) { s.calendarHub.broadcast() })
	}
	go s.watchRefresh()
	if s.tracker != nil {
		go s.sweepLoop()
	}
	return s, nil
}

func (s *Server) Addr() string { return s.cfg.Addr }

// Stop tears down the background loops; open SSE/websocket connections
// close with their request contexts.
func (s *Server) Stop() {
	s.stopOnce.Do(func() { close(s.stopCh) })
}

func (s *Server) watchRefresh() {
	ch, cancel := s.refresh.Subscribe()
	defer cancel()
	for {
		select {
		case <-s.stopCh:
			return
		case <-ch:
			s.calendarHub.broadcast()
		}
	}
}

func (s *Server) sweepLoop() {
	t := time.NewTicker(30 * time.Second)
	defer t.Stop()
	for {
		select {
		case <-s.stopCh:
			return
		case <-t.C:
			s.tracker.Sweep()
		}
	}
}

func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /healthz", s.handleHealthz)
	mux.HandleFunc("GET /{$}", s.handleHome)
	mux.HandleFunc("GET /day", s.handleDay)
	mux.HandleFunc("GET /day/{date}", s.handleDay)
	mux.HandleFunc("GET /week", s.handleWeek)
	mux.HandleFunc("GET /week/{date}", s.handleWeek)
	mux.HandleFunc("GET /month", s.handleMonth)
	mux.HandleFunc("GET /month/{date}", s.handleMonth)
	mux.HandleFunc("GET /items/{kind}/{id}", s.handleItemDetail)
	mux.HandleFunc("GET /entries", s.handleEntries)
	mux.HandleFunc("GET /entries/new", s.handleEntryFormGet)
	mux.HandleFunc("POST /entries/new", s.handleEntryFormPost)
	mux.HandleFunc("POST /entries/{id}/discard-idle", s.handleDiscardIdle)
	mux.HandleFunc("GET /tour", s.handleTourFragment)
	mux.HandleFunc("POST /tour/advance", s.handleTourAdvance)
	mux.HandleFunc("POST /tour/skip", s.handleTourSkip)
	mux.HandleFunc("POST /tour/replay", s.handleTourReplay)
	mux.HandleFunc("POST /toasts/{id}/dismiss", s.handleToastDismiss)
	mux.HandleFunc("GET /shortcuts.json", s.handleShortcutsJSON)
	mux.HandleFunc("GET /updates/calendar", s.handleCalendarStream)
	mux.HandleFunc("GET /updates/toasts", s.handleToastStream)
	mux.HandleFunc("GET /ws/activity", s.handleActivityWS)
	mux.HandleFunc("POST /refresh", s.handleRefresh)
	mux.HandleFunc("GET /calendar.ics", s.handleICS)
	mux.HandleFunc("GET /offline", s.handleOffline)
	mux.HandleFunc("GET /static/app.css", s.serveAsset("static/app.css", "text/css; charset=utf-8"))
	mux.HandleFunc("GET /static/app.js", s.serveAsset("static/app.js", "application/javascript; charset=utf-8"))
	// Service worker and manifest live at root scope so the worker may
	// control every route.
	mux.HandleFunc("GET /sw.js", s.serveAsset("static/sw.js", "application/javascript; charset=utf-8"))
	mux.HandleFunc("GET /manifest.webmanifest", s.serveAsset("static/manifest.webmanifest", "application/manifest+json; charset=utf-8"))
	return mux
}

func (s *Server) serveAsset(path, contentType string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		b, err := assetsFS.ReadFile(path)
		if err != nil || len(b) == 0 {
			http.NotFound(w, r)
			return
		}
		w.Header().Set("Content-Type", contentType)
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write(b)
	}
}

func (s *Server) handleHealthz(w http.ResponseWriter, r *http.Request) {
	apiOK := false
	if s.api != nil {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()
		apiOK = s.api.Ping(ctx)
	}
	w.Header().Set("Content-Type", "application/json")
	if !apiOK {
		w.WriteHeader(http.StatusServiceUnavailable)
		_, _ = io.WriteString(w, `{"status":"degraded","api":false}`)
		return
	}
	_, _ = io.WriteString(w, `{"status":"ok","api":true}`)
}

// hub fans one change signal out to every subscribed stream.
type hub struct {
	mu   sync.Mutex
	subs map[chan struct{}]struct{}
}

func newHub() *hub {
	return &hub{subs: map[chan struct{}]struct{}{}}
}

func (h *hub) subscribe() (ch chan struct{}, cancel func()) {
	ch = make(chan struct{}, 8)
	h.mu.Lock()
	h.subs[ch] = struct{}{}
	h.mu.Unlock()
	return ch, func() {
		h.mu.Lock()
		delete(h.subs, ch)
		h.mu.Unlock()
	}
}

func (h *hub) broadcast() {
	h.mu.Lock()
	for ch := range h.subs {
		select {
		case ch <- struct{}{}:
		default:
		}
	}
	h.mu.Unlock()
}

func (s *Server) renderTemplate(name string, data any) (string, error) {
	var b strings.Builder
	if err := s.tmpl.ExecuteTemplate(&b, name, data); err != nil {
		return "", err
	}
	return b.String(), nil
}

func (s *Server) writeHTMLTemplate(w http.ResponseWriter, name string, data any) {
	html, err := s.renderTemplate(name, data)
	if err != nil {
		s.log.Error("template render failed", "template", name, "err", err)
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	_, _ = io.WriteString(w, html)
}

// serveElementsStream pushes a rendered fragment over SSE whenever the
// hub signals, patching it into the page at selector. A keepalive ticker
// holds proxies open between changes.
func (s *Server) serveElementsStream(w http.ResponseWriter, r *http.Request, h *hub, selector string, render func() (string, error)) {
	sse := datastar.NewSSE(w, r)

	ch, cancel := h.subscribe()
	defer cancel()

	keepAlive := time.NewTicker(25 * time.Second)
	defer keepAlive.Stop()

	for {
		select {
		case <-sse.Context().Done():
			return
		case <-s.stopCh:
			return
		case <-keepAlive.C:
			_ = sse.PatchSignals([]byte(`{}`))
		case <-ch:
			html, err := render()
			if err != nil {
				s.log.Error("stream render failed", "selector", selector, "err", err)
				continue
			}
			if strings.TrimSpace(html) == "" {
				continue
			}
			_ = sse.PatchElements(html,
				datastar.WithSelector(selector),
				datastar.WithMode(datastar.ElementPatchModeOuter))
		}
	}
}

func (s *Server) handleCalendarStream(w http.ResponseWriter, r *http.Request) {
	view := strings.TrimSpace(r.URL.Query().Get("view"))
	date := strings.TrimSpace(r.URL.Query().Get("date"))
	s.serveElementsStream(w, r, s.calendarHub, "#calendar", func() (string, error) {
		return s.renderCalendarRegion(view, date)
	})
}

func (s *Server) handleToastStream(w http.ResponseWriter, r *http.Request) {
	s.serveElementsStream(w, r, s.toastHub, "#toasts", func() (string, error) {
		return s.renderTemplate("toasts.html", buildToastVMs(s.toasts.Active()))
	})
}

func (s *Server) handleRefresh(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 30*time.Second)
	defer cancel()
	if _, err := s.refresh.RefreshNow(ctx); err != nil {
		s.toasts.Error("Error loading calendar data", "Refresh failed; showing the last known state.")
		w.WriteHeader(http.StatusBadGateway)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleToastDismiss(w http.ResponseWriter, r *http.Request) {
	s.toasts.Dismiss(r.PathValue("id"))
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleShortcutsJSON(w http.ResponseWriter, r *http.Request) {
	b, err := s.shortcuts.JSON()
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	_, _ = w.Write(b)
}
