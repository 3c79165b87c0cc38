package refresh

import (
	"context"
	"errors"
	"io"
	"testing"
	"time"

	"github.com/charmbracelet/log"

	"timetracker-web/internal/apiclient"
	"timetracker-web/internal/model"
	"timetracker-web/internal/store"
)

type fakeFetcher struct {
	payloads []apiclient.Payload
	errs     []error
	calls    int
}

func (f *fakeFetcher) FetchWindow(ctx context.Context, from, to time.Time) (apiclient.Payload, error) {
	i := f.calls
	f.calls++
	if i < len(f.errs) && f.errs[i] != nil {
		return apiclient.Payload{}, f.errs[i]
	}
	if i >= len(f.payloads) {
		i = len(f.payloads) - 1
	}
	return f.payloads[i], nil
}

func payloadWith(title string) apiclient.Payload {
	return apiclient.Payload{
		Events: []model.Record{
			{ID: "ev-1", Kind: model.KindEvent, Title: title, Start: "2026-03-02T09:00:00Z"},
		},
		FetchedAt: time.Date(2026, 3, 2, 8, 0, 0, 0, time.UTC),
	}
}

func quietLogger() *log.Logger { return log.New(io.Discard) }

func testService(t *testing.T, f Fetcher) *Service {
	t.Helper()
	cache, err := store.OpenPayloadCache(context.Background(), t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { _ = cache.Close() })
	return NewService(f, cache, quietLogger())
}

func TestRefreshNowNotifiesOnChange(t *testing.T) {
	f := &fakeFetcher{payloads: []apiclient.Payload{payloadWith("A"), payloadWith("A"), payloadWith("B")}}
	s := testService(t, f)
	s.SetWindow(time.Date(2026, 3, 2, 0, 0, 0, 0, time.UTC), time.Date(2026, 3, 8, 0, 0, 0, 0, time.UTC))

	ch, cancel := s.Subscribe()
	defer cancel()

	if _, err := s.RefreshNow(context.Background()); err != nil {
		t.Fatalf("first refresh: %v", err)
	}
	select {
	case <-ch:
	default:
		t.Fatal("first refresh should notify")
	}

	// Same fingerprint: stay quiet.
	if _, err := s.RefreshNow(context.Background()); err != nil {
		t.Fatal(err)
	}
	select {
	case <-ch:
		t.Fatal("unchanged payload notified subscribers")
	default:
	}

	if _, err := s.RefreshNow(context.Background()); err != nil {
		t.Fatal(err)
	}
	select {
	case <-ch:
	default:
		t.Fatal("changed payload should notify")
	}

	snap, ok := s.Current()
	if !ok || len(snap.Records) != 1 || snap.Records[0].Title != "B" {
		t.Fatalf("snapshot = %+v ok=%v", snap, ok)
	}
}

func TestRefreshFallsBackToOfflineCache(t *testing.T) {
	f := &fakeFetcher{
		payloads: []apiclient.Payload{payloadWith("Cached")},
		errs:     []error{nil, errors.New("api down")},
	}
	s := testService(t, f)
	s.SetWindow(time.Date(2026, 3, 2, 0, 0, 0, 0, time.UTC), time.Date(2026, 3, 8, 0, 0, 0, 0, time.UTC))

	if _, err := s.RefreshNow(context.Background()); err != nil {
		t.Fatalf("prime refresh: %v", err)
	}

	snap, err := s.RefreshNow(context.Background())
	if err != nil {
		t.Fatalf("offline refresh should serve the cache: %v", err)
	}
	if !snap.Stale {
		t.Fatal("cache-served snapshot not marked stale")
	}
	if len(snap.Records) != 1 || snap.Records[0].Title != "Cached" {
		t.Fatalf("records = %+v", snap.Records)
	}
}

func TestRefreshErrorWithoutCache(t *testing.T) {
	f := &fakeFetcher{errs: []error{errors.New("api down")}, payloads: []apiclient.Payload{{}}}
	s := testService(t, f)
	s.SetWindow(time.Date(2026, 3, 2, 0, 0, 0, 0, time.UTC), time.Date(2026, 3, 8, 0, 0, 0, 0, time.UTC))

	if _, err := s.RefreshNow(context.Background()); err == nil {
		t.Fatal("expected error with an empty cache")
	}
	if _, ok := s.Current(); ok {
		t.Fatal("Current should report no snapshot")
	}
}

func TestDefaultWindowHonorsWeekStart(t *testing.T) {
	f := &fakeFetcher{payloads: []apiclient.Payload{payloadWith("A")}}
	s := testService(t, f)
	s.SetWeekStart("sunday")

	if _, err := s.RefreshNow(context.Background()); err != nil {
		t.Fatal(err)
	}

	from, to := s.window()
	if from.Weekday() != time.Sunday {
		t.Fatalf("default window starts on %s, want Sunday", from.Weekday())
	}
	if !to.Equal(from.AddDate(0, 0, 7)) {
		t.Fatalf("default window [%v, %v) does not span one week", from, to)
	}
	if now := time.Now(); now.Before(from) || !now.Before(to) {
		t.Fatalf("default window [%v, %v) does not contain now", from, to)
	}
}

func TestCovers(t *testing.T) {
	f := &fakeFetcher{payloads: []apiclient.Payload{payloadWith("A")}}
	s := testService(t, f)

	if s.Covers(time.Date(2026, 3, 2, 0, 0, 0, 0, time.UTC), time.Date(2026, 3, 3, 0, 0, 0, 0, time.UTC)) {
		t.Fatal("no window set yet, nothing is covered")
	}

	s.SetWindow(time.Date(2026, 3, 2, 0, 0, 0, 0, time.UTC), time.Date(2026, 3, 9, 0, 0, 0, 0, time.UTC))

	cases := []struct {
		name     string
		from, to time.Time
		want     bool
	}{
		{"inside", time.Date(2026, 3, 4, 0, 0, 0, 0, time.UTC), time.Date(2026, 3, 5, 0, 0, 0, 0, time.UTC), true},
		{"exact", time.Date(2026, 3, 2, 0, 0, 0, 0, time.UTC), time.Date(2026, 3, 9, 0, 0, 0, 0, time.UTC), true},
		{"before", time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC), time.Date(2026, 3, 2, 0, 0, 0, 0, time.UTC), false},
		{"past_end", time.Date(2026, 3, 8, 0, 0, 0, 0, time.UTC), time.Date(2026, 3, 10, 0, 0, 0, 0, time.UTC), false},
		{"far_away", time.Date(2027, 1, 5, 0, 0, 0, 0, time.UTC), time.Date(2027, 1, 6, 0, 0, 0, 0, time.UTC), false},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			if got := s.Covers(c.from, c.to); got != c.want {
				t.Fatalf("Covers(%s, %s) = %v, want %v", c.from.Format("2006-01-02"), c.to.Format("2006-01-02"), got, c.want)
			}
		})
	}
}
