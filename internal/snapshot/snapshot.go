// Package snapshot renders a calendar view to a PNG through headless
// Chromium. The web server marks the calendar section with
// data-ready="true" once layout has run, which is the wait condition.
package snapshot

import (
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/chromedp/chromedp"
)

const (
	DefaultWidth   = 1280
	DefaultHeight  = 1600
	DefaultTimeout = 30 * time.Second
)

type Options struct {
	// BaseURL of the running web UI, e.g. "http://127.0.0.1:8433".
	BaseURL string

	// View is day, week or month. Date is an optional YYYY-MM-DD; empty
	// means today.
	View string
	Date string

	// OutputPath receives the PNG.
	OutputPath string

	// Viewport in pixels; zero values take the defaults.
	Width  int
	Height int

	Timeout time.Duration
}

// PageURL resolves the view and date into the URL to capture.
func PageURL(opts Options) (string, error) {
	base := strings.TrimRight(strings.TrimSpace(opts.BaseURL), "/")
	if base == "" {
		return "", fmt.Errorf("snapshot: base URL is required")
	}
	view := strings.TrimSpace(opts.View)
	if view == "" {
		view = "day"
	}
	switch view {
	case "day", "week", "month":
	default:
		return "", fmt.Errorf("snapshot: unknown view %q", view)
	}
	u := base + "/" + view
	if d := strings.TrimSpace(opts.Date); d != "" {
		if _, err := time.Parse("2006-01-02", d); err != nil {
			return "", fmt.Errorf("snapshot: bad date %q", d)
		}
		u += "/" + d
	}
	return u, nil
}

// Capture navigates headless Chromium to the requested view, waits for
// the calendar's data-ready marker and writes a full-page PNG.
func Capture(parentCtx context.Context, opts Options) error {
	url, err := PageURL(opts)
	if err != nil {
		return err
	}
	if opts.OutputPath == "" {
		return fmt.Errorf("snapshot: output path is required")
	}
	if opts.Width <= 0 {
		opts.Width = DefaultWidth
	}
	if opts.Height <= 0 {
		opts.Height = DefaultHeight
	}
	if opts.Timeout <= 0 {
		opts.Timeout = DefaultTimeout
	}

	ctx, cancel := chromedp.NewContext(parentCtx)
	defer cancel()
	ctx, timeoutCancel := context.WithTimeout(ctx, opts.Timeout)
	defer timeoutCancel()

	var png []byte
	tasks := chromedp.Tasks{
		chromedp.EmulateViewport(int64(opts.Width), int64(opts.Height)),
		chromedp.Navigate(url),
		chromedp.WaitVisible(`[data-ready="true"]`, chromedp.ByQuery),
		// Let web fonts and the final paint settle.
		chromedp.Sleep(500 * time.Millisecond),
		chromedp.FullScreenshot(&png, 100),
	}
	if err := chromedp.Run(ctx, tasks); err != nil {
		return fmt.Errorf("snapshot: chromedp run failed: %w", err)
	}

	if err := os.WriteFile(opts.OutputPath, png, 0o644); err != nil {
		return fmt.Errorf("snapshot: write png: %w", err)
	}
	return nil
}
