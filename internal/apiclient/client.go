// Package apiclient talks to the calendar data API. Each collection is
// fetched with conditional GETs backed by an on-disk cache; when the API
// is unreachable the cached body is served and the payload is marked
// stale, so the calendar keeps rendering offline.
package apiclient

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/charmbracelet/log"
	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"

	"timetracker-web/internal/model"
)

// ErrUnreachable wraps network failures with no cached body to fall
// back on. Callers branch on it to raise the offline toast.
var ErrUnreachable = errors.New("apiclient: api unreachable")

const (
	defaultTimeout = 10 * time.Second

	// The API allows modest polling; stay well under its limits.
	requestsPerSecond = 4
	requestBurst      = 8
)

type Options struct {
	BaseURL  string
	CacheDir string
	Timeout  time.Duration
	Logger   *log.Logger
}

type Client struct {
	base     string
	http     *http.Client
	limiter  *rate.Limiter
	cacheDir string
	log      *log.Logger
}

// Payload is one fetched window of the three collections. Stale means at
// least one collection came from the fallback cache after a failure.
type Payload struct {
	Events      []model.Record
	Tasks       []model.Record
	TimeEntries []model.Record

	Stale     bool
	FetchedAt time.Time
}

// Records merges the three collections, each record tagged with its kind.
func (p Payload) Records() []model.Record {
	out := make([]model.Record, 0, len(p.Events)+len(p.Tasks)+len(p.TimeEntries))
	out = append(out, p.Events...)
	out = append(out, p.Tasks...)
	out = append(out, p.TimeEntries...)
	return out
}

func New(opts Options) (*Client, error) {
	base := strings.TrimRight(strings.TrimSpace(opts.BaseURL), "/")
	if base == "" {
		return nil, errors.New("apiclient: base URL is empty")
	}
	if _, err := url.Parse(base); err != nil {
		return nil, fmt.Errorf("apiclient: bad base URL: %w", err)
	}
	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	logger := opts.Logger
	if logger == nil {
		logger = log.New(io.Discard)
	}
	return &Client{
		base:     base,
		http:     &http.Client{Timeout: timeout},
		limiter:  rate.NewLimiter(rate.Limit(requestsPerSecond), requestBurst),
		cacheDir: strings.TrimSpace(opts.CacheDir),
		log:      logger,
	}, nil
}

// FetchWindow fetches events, tasks and time entries for [from, to]
// concurrently. The first hard failure cancels the remaining fetches.
func (c *Client) FetchWindow(ctx context.Context, from, to time.Time) (Payload, error) {
	query := url.Values{
		"from": {from.Format("2006-01-02")},
		"to":   {to.Format("2006-01-02")},
	}.Encode()

	type fetched struct {
		records []model.Record
		stale   bool
	}
	var evs, tasks, entries fetched

	g, ctx := errgroup.WithContext(ctx)
	fetchInto := func(path string, kind model.ItemKind, dst *fetched) func() error {
		return func() error {
			body, stale, err := c.get(ctx, c.base+path+"?"+query)
			if err != nil {
				return err
			}
			recs, err := decodeRecords(body, kind)
			if err != nil {
				return fmt.Errorf("apiclient: decode %s: %w", path, err)
			}
			*dst = fetched{records: recs, stale: stale}
			return nil
		}
	}

	g.Go(fetchInto("/api/events", model.KindEvent, &evs))
	g.Go(fetchInto("/api/tasks", model.KindTask, &tasks))
	g.Go(fetchInto("/api/time-entries", model.KindTimeEntry, &entries))
	if err := g.Wait(); err != nil {
		return Payload{}, err
	}

	return Payload{
		Events:      evs.records,
		Tasks:       tasks.records,
		TimeEntries: entries.records,
		Stale:       evs.stale || tasks.stale || entries.stale,
		FetchedAt:   time.Now(),
	}, nil
}

// Meta probes the API's version endpoint. Failures are soft: callers
// skip the update check rather than surfacing an error.
func (c *Client) Meta(ctx context.Context) (model.ServerMeta, error) {
	body, _, err := c.get(ctx, c.base+"/api/meta")
	if err != nil {
		return model.ServerMeta{}, err
	}
	var meta model.ServerMeta
	if err := json.Unmarshal(body, &meta); err != nil {
		return model.ServerMeta{}, fmt.Errorf("apiclient: decode meta: %w", err)
	}
	return meta, nil
}

// Ping reports whether the API answers at all, for /healthz and doctor.
func (c *Client) Ping(ctx context.Context) bool {
	_, err := c.Meta(ctx)
	return err == nil
}

// CreateEntry posts a new record to its collection. The API owns the
// data; this layer only relays the validated form.
func (c *Client) CreateEntry(ctx context.Context, rec model.Record) error {
	path := "/api/time-entries"
	if rec.Kind == model.KindEvent {
		path = "/api/events"
	}
	return c.post(ctx, c.base+path, rec)
}

// StopEntryAt asks the API to stop a running time entry at the given
// instant. Used by the idle prompt's discard action, which rolls the
// stop back to when the user went idle.
func (c *Client) StopEntryAt(ctx context.Context, id string, at time.Time) error {
	return c.post(ctx, c.base+"/api/time-entries/"+url.PathEscape(id)+"/stop",
		map[string]string{"at": at.Format(time.RFC3339)})
}

func (c *Client) post(ctx context.Context, rawURL string, v any) error {
	if err := c.limiter.Wait(ctx); err != nil {
		return err
	}
	body, err := json.Marshal(v)
	if err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, rawURL, strings.NewReader(string(body)))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrUnreachable, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return fmt.Errorf("apiclient: %s returned %s", rawURL, resp.Status)
	}
	return nil
}

// get performs one rate-limited conditional GET. On 304 the cached body
// is returned fresh; on network error or a non-OK status the cached body
// is returned stale when present.
func (c *Client) get(ctx context.Context, rawURL string) (body []byte, stale bool, err error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, false, err
	}

	meta, cached := c.loadCache(rawURL)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, false, err
	}
	req.Header.Set("Accept", "application/json")
	if meta.ETag != "" {
		req.Header.Set("If-None-Match", meta.ETag)
	}
	if meta.LastModified != "" {
		req.Header.Set("If-Modified-Since", meta.LastModified)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		if len(cached) > 0 {
			c.log.Warn("api unreachable, serving cached body", "url", rawURL, "err", err)
			return cached, true, nil
		}
		return nil, false, fmt.Errorf("%w: %v", ErrUnreachable, err)
	}
	defer resp.Body.Close()

	switch resp.StatusCode {
	case http.StatusOK:
		b, readErr := io.ReadAll(resp.Body)
		if readErr != nil {
			return nil, false, readErr
		}
		c.saveCache(rawURL, cacheMeta{
			ETag:         resp.Header.Get("ETag"),
			LastModified: resp.Header.Get("Last-Modified"),
		}, b)
		return b, false, nil

	case http.StatusNotModified:
		if len(cached) == 0 {
			return nil, false, errors.New("apiclient: 304 with no cached body")
		}
		return cached, false, nil

	default:
		if len(cached) > 0 {
			c.log.Warn("api error, serving cached body", "url", rawURL, "status", resp.StatusCode)
			return cached, true, nil
		}
		return nil, false, fmt.Errorf("apiclient: %s returned %s", rawURL, resp.Status)
	}
}

type cacheMeta struct {
	URL          string    `json:"url"`
	ETag         string    `json:"etag,omitempty"`
	LastModified string    `json:"last_modified,omitempty"`
	UpdatedAt    time.Time `json:"updated_at"`
}

func (c *Client) cachePath(rawURL string) string {
	if c.cacheDir == "" {
		return ""
	}
	sum := sha256.Sum256([]byte(rawURL))
	return filepath.Join(c.cacheDir, "http", hex.EncodeToString(sum[:8]))
}

func (c *Client) loadCache(rawURL string) (cacheMeta, []byte) {
	dir := c.cachePath(rawURL)
	if dir == "" {
		return cacheMeta{}, nil
	}
	var meta cacheMeta
	if b, err := os.ReadFile(filepath.Join(dir, "meta.json")); err == nil {
		_ = json.Unmarshal(b, &meta)
	}
	body, _ := os.ReadFile(filepath.Join(dir, "body.json"))
	return meta, body
}

func (c *Client) saveCache(rawURL string, meta cacheMeta, body []byte) {
	dir := c.cachePath(rawURL)
	if dir == "" {
		return
	}
	if err := os.MkdirAll(dir, 0o700); err != nil {
		c.log.Warn("http cache mkdir failed", "err", err)
		return
	}
	// Body first, so meta never points at a missing body.
	if err := os.WriteFile(filepath.Join(dir, "body.json"), body, 0o600); err != nil {
		c.log.Warn("http cache write failed", "err", err)
		return
	}
	meta.URL = rawURL
	meta.UpdatedAt = time.Now().UTC()
	if b, err := json.Marshal(meta); err == nil {
		_ = os.WriteFile(filepath.Join(dir, "meta.json"), b, 0o600)
	}
}

func decodeRecords(body []byte, kind model.ItemKind) ([]model.Record, error) {
	var recs []model.Record
	if err := json.Unmarshal(body, &recs); err != nil {
		return nil, err
	}
	for i := range recs {
		recs[i].Kind = kind
	}
	return recs, nil
}
