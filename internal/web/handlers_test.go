package web

import (
	"context"
	"io"
	"net/http/httptest"
	"net/url"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/charmbracelet/log"

	"timetracker-web/internal/apiclient"
	"timetracker-web/internal/model"
	"timetracker-web/internal/refresh"
	"timetracker-web/internal/toast"
)

// windowedAPI serves its records only when the requested range covers
// them, the way the real API filters on from/to.
type windowedAPI struct {
	mu      sync.Mutex
	windows [][2]time.Time
	events  []model.Record
	at      []time.Time
}

func (f *windowedAPI) FetchWindow(ctx context.Context, from, to time.Time) (apiclient.Payload, error) {
	f.mu.Lock()
	f.windows = append(f.windows, [2]time.Time{from, to})
	f.mu.Unlock()

	p := apiclient.Payload{FetchedAt: time.Now()}
	for i, ev := range f.events {
		if !f.at[i].Before(from) && f.at[i].Before(to) {
			p.Events = append(p.Events, ev)
		}
	}
	return p, nil
}

func (f *windowedAPI) fetchCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.windows)
}

func (f *windowedAPI) lastWindow() (time.Time, time.Time) {
	f.mu.Lock()
	defer f.mu.Unlock()
	w := f.windows[len(f.windows)-1]
	return w[0], w[1]
}

func testServer(t *testing.T, api *windowedAPI) *Server {
	t.Helper()
	svc := refresh.NewService(api, nil, log.New(io.Discard))
	srv, err := NewServer(ServerConfig{
		Addr:      "127.0.0.1:0",
		Loc:       time.UTC,
		WeekStart: "monday",
	}, Deps{
		Refresh: svc,
		Toasts:  toast.NewCenter(),
		Logger:  log.New(io.Discard),
	})
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(srv.Stop)
	return srv
}

func TestNavigationMovesFetchWindow(t *testing.T) {
	api := &windowedAPI{
		events: []model.Record{{
			ID:    "ev1",
			Kind:  model.KindEvent,
			Title: "Planning offsite",
			Start: "2027-01-05T09:00:00Z",
			End:   strPtr("2027-01-05T10:00:00Z"),
		}},
		at: []time.Time{time.Date(2027, 1, 5, 9, 0, 0, 0, time.UTC)},
	}
	srv := testServer(t, api)
	h := srv.Handler()

	t.Run("day view fetches the requested day", func(t *testing.T) {
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, httptest.NewRequest("GET", "/day/2027-01-05", nil))

		if rec.Code != 200 {
			t.Fatalf("status = %d", rec.Code)
		}
		if !strings.Contains(rec.Body.String(), "Planning offsite") {
			t.Fatal("day view for 2027-01-05 is missing the event the API holds for that day")
		}
		from, to := api.lastWindow()
		at := time.Date(2027, 1, 5, 9, 0, 0, 0, time.UTC)
		if at.Before(from) || !at.Before(to) {
			t.Fatalf("fetched window [%s, %s) does not cover the viewed day", from.Format("2006-01-02"), to.Format("2006-01-02"))
		}
	})

	t.Run("a covered revisit does not refetch", func(t *testing.T) {
		before := api.fetchCount()
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, httptest.NewRequest("GET", "/day/2027-01-05", nil))
		if got := api.fetchCount(); got != before {
			t.Fatalf("covered request refetched: %d -> %d", before, got)
		}
	})

	t.Run("week view outside the window refetches", func(t *testing.T) {
		before := api.fetchCount()
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, httptest.NewRequest("GET", "/week/2027-03-17", nil))
		if got := api.fetchCount(); got != before+1 {
			t.Fatalf("expected one new fetch, got %d -> %d", before, got)
		}
		from, to := api.lastWindow()
		if from.Format("2006-01-02") != "2027-03-15" || to.Format("2006-01-02") != "2027-03-22" {
			t.Fatalf("week window = [%s, %s)", from.Format("2006-01-02"), to.Format("2006-01-02"))
		}
	})
}

func TestEntryFormAllDaySubmit(t *testing.T) {
	srv := testServer(t, &windowedAPI{})
	h := srv.Handler()

	form := url.Values{
		"title":  {"Company retreat"},
		"start":  {"2026-09-14T09:00"},
		"allDay": {"on"},
	}
	req := httptest.NewRequest("POST", "/entries/new", strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	if rec.Code != 303 {
		t.Fatalf("all-day submit status = %d, body: %s", rec.Code, rec.Body.String())
	}
	if got := rec.Header().Get("Location"); got != "/entries" {
		t.Fatalf("redirect = %q", got)
	}
}
