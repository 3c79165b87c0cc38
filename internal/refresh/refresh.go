// Package refresh keeps the visible window's payload current: a cron
// schedule refetches from the API, and when the payload fingerprint
// changes the new snapshot lands in the offline cache and subscribed
// views are told to re-render.
package refresh

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/robfig/cron/v3"

	"timetracker-web/internal/apiclient"
	"timetracker-web/internal/model"
	"timetracker-web/internal/store"
)

// Fetcher is the slice of the API client the service needs.
type Fetcher interface {
	FetchWindow(ctx context.Context, from, to time.Time) (apiclient.Payload, error)
}

// Snapshot is what views render from: the merged records of the last
// successful fetch, plus freshness metadata.
type Snapshot struct {
	Records   []model.Record
	Stale     bool
	FetchedAt time.Time
}

type Service struct {
	client Fetcher
	cache  *store.PayloadCache
	log    *log.Logger

	// allAway reports whether every session is away; scheduled runs are
	// skipped while nobody is watching. Nil means always refresh.
	allAway func() bool

	mu        sync.RWMutex
	from, to  time.Time
	weekStart string
	snap      Snapshot
	fp        string
	subs      map[chan struct{}]struct{}

	cron    *cron.Cron
	stopped bool
}

func NewService(client Fetcher, cache *store.PayloadCache, logger *log.Logger) *Service {
	if logger == nil {
		logger = log.Default()
	}
	return &Service{
		client: client,
		cache:  cache,
		log:    logger,
		subs:   map[chan struct{}]struct{}{},
	}
}

// SetAwayCheck installs the idle tracker's everyone-away probe.
func (s *Service) SetAwayCheck(fn func() bool) {
	s.mu.Lock()
	s.allAway = fn
	s.mu.Unlock()
}

// SetWeekStart sets the config week_start value used for the default
// window before any view has been visited.
func (s *Service) SetWeekStart(ws string) {
	s.mu.Lock()
	s.weekStart = ws
	s.mu.Unlock()
}

// SetWindow moves the visible window. The next refresh (scheduled or
// manual) fetches the new range.
func (s *Service) SetWindow(from, to time.Time) {
	s.mu.Lock()
	s.from, s.to = from, to
	s.mu.Unlock()
}

func (s *Service) window() (time.Time, time.Time) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.from, s.to
}

// Covers reports whether [from, to) sits inside the current window, so
// the snapshot already holds the requested range.
func (s *Service) Covers(from, to time.Time) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.from.IsZero() {
		return false
	}
	return !from.Before(s.from) && !to.After(s.to)
}

func windowKey(from, to time.Time) string {
	return from.Format("2006-01-02") + "/" + to.Format("2006-01-02")
}

// Start schedules background refetches. The expression is a standard
// five-field cron line from config.
func (s *Service) Start(cronExpr string) error {
	c := cron.New()
	_, err := c.AddFunc(cronExpr, func() {
		s.mu.RLock()
		away := s.allAway
		s.mu.RUnlock()
		if away != nil && away() {
			s.log.Debug("refresh skipped, all sessions away")
			return
		}
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		if _, err := s.RefreshNow(ctx); err != nil {
			s.log.Warn("scheduled refresh failed", "err", err)
		}
	})
	if err != nil {
		return err
	}
	s.mu.Lock()
	s.cron = c
	s.mu.Unlock()
	c.Start()
	return nil
}

func (s *Service) Stop() {
	s.mu.Lock()
	c := s.cron
	s.stopped = true
	s.mu.Unlock()
	if c != nil {
		c.Stop()
	}
}

// RefreshNow fetches the current window immediately. On a changed
// fingerprint the snapshot is stored and subscribers are notified. When
// the fetch fails outright, the offline cache is tried before giving up.
func (s *Service) RefreshNow(ctx context.Context) (Snapshot, error) {
	from, to := s.window()
	if from.IsZero() {
		// Default window before any view moved it: the current week.
		s.mu.RLock()
		ws := s.weekStart
		s.mu.RUnlock()
		from = model.StartOfWeek(time.Now(), ws)
		to = from.AddDate(0, 0, 7)
		s.SetWindow(from, to)
	}

	payload, err := s.client.FetchWindow(ctx, from, to)
	if err != nil {
		if snap, fp, cacheErr := s.loadCached(ctx, from, to); cacheErr == nil {
			s.setSnapshot(snap, fp)
			return snap, nil
		}
		return Snapshot{}, err
	}

	snap := Snapshot{
		Records:   payload.Records(),
		Stale:     payload.Stale,
		FetchedAt: payload.FetchedAt,
	}

	body, err := json.Marshal(snap.Records)
	if err != nil {
		return Snapshot{}, err
	}
	fp := fingerprint(body)

	changed := s.setSnapshot(snap, fp)
	if changed && !payload.Stale && s.cache != nil {
		if err := s.cache.Put(ctx, windowKey(from, to), body, fp, payload.FetchedAt); err != nil {
			s.log.Warn("payload cache write failed", "err", err)
		}
	}
	return snap, nil
}

func fingerprint(body []byte) string {
	sum := sha256.Sum256(body)
	return hex.EncodeToString(sum[:])
}

func (s *Service) loadCached(ctx context.Context, from, to time.Time) (Snapshot, string, error) {
	if s.cache == nil {
		return Snapshot{}, "", store.ErrCacheMiss
	}
	p, err := s.cache.Get(ctx, windowKey(from, to))
	if err != nil {
		return Snapshot{}, "", err
	}
	var recs []model.Record
	if err := json.Unmarshal(p.Body, &recs); err != nil {
		return Snapshot{}, "", err
	}
	s.log.Info("serving offline payload cache", "window", p.Window, "fetched_at", p.FetchedAt)
	return Snapshot{Records: recs, Stale: true, FetchedAt: p.FetchedAt}, p.Fingerprint, nil
}

// setSnapshot swaps the current snapshot and reports whether the
// fingerprint moved; subscribers are notified only on change.
func (s *Service) setSnapshot(snap Snapshot, fp string) bool {
	s.mu.Lock()
	changed := fp != s.fp || snap.Stale != s.snap.Stale
	s.snap = snap
	s.fp = fp
	var chans []chan struct{}
	if changed {
		for ch := range s.subs {
			chans = append(chans, ch)
		}
	}
	s.mu.Unlock()

	for _, ch := range chans {
		select {
		case ch <- struct{}{}:
		default:
		}
	}
	return changed
}

// Current returns the last snapshot; ok is false before the first fetch.
func (s *Service) Current() (Snapshot, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.snap, !s.snap.FetchedAt.IsZero()
}

// Subscribe registers a change channel; cancel unregisters it.
func (s *Service) Subscribe() (<-chan struct{}, func()) {
	ch := make(chan struct{}, 4)
	s.mu.Lock()
	s.subs[ch] = struct{}{}
	s.mu.Unlock()
	return ch, func() {
		s.mu.Lock()
		delete(s.subs, ch)
		s.mu.Unlock()
	}
}
