// Package devtools drives a headless Chromium against a running server
// for development chores that must go through the browser.
package devtools

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"net/url"
	"os"
	"strings"
	"time"

	"github.com/chromedp/cdproto/network"
	"github.com/chromedp/cdproto/runtime"
	"github.com/chromedp/chromedp"
)

const (
	DefaultWidth   = 1280
	DefaultHeight  = 900
	DefaultTimeout = 30 * time.Second
)

// ClearOptions defines one store-clearing run.
type ClearOptions struct {
	// URL is the server base, e.g. "http://127.0.0.1:3000".
	URL string

	// All clears every planner key, not only the unified document.
	All bool

	// Username and Password are sent as basic auth when set.
	Username string
	Password string

	// ScreenshotPath, when set, receives a PNG of the reloaded dashboard.
	ScreenshotPath string
	Width          int
	Height         int

	// Timeout bounds the whole run. Zero means DefaultTimeout.
	Timeout time.Duration
}

// ClearResult is the server's answer.
type ClearResult struct {
	Scope   string `json:"scope"`
	Existed bool   `json:"existed"`
}

// ClearStore opens the dashboard in headless Chromium, asks the server to
// clear the planner store from inside the page, then reloads so the empty
// state is rendered.
func ClearStore(parentCtx context.Context, opts ClearOptions) (ClearResult, error) {
	dashboard, err := opts.normalize()
	if err != nil {
		return ClearResult{}, err
	}

	ctx, cancel := chromedp.NewContext(parentCtx)
	defer cancel()
	ctx, timeoutCancel := context.WithTimeout(ctx, opts.Timeout)
	defer timeoutCancel()

	var (
		res ClearResult
		png []byte
	)
	tasks := chromedp.Tasks{
		chromedp.EmulateViewport(int64(opts.Width), int64(opts.Height)),
	}
	if opts.Username != "" {
		tasks = append(tasks,
			network.Enable(),
			network.SetExtraHTTPHeaders(network.Headers{"Authorization": basicAuth(opts.Username, opts.Password)}),
		)
	}
	tasks = append(tasks,
		chromedp.Navigate(dashboard),
		chromedp.WaitVisible(`#calendar`, chromedp.ByQuery),
		chromedp.Evaluate(clearScript(opts.All), &res, func(p *runtime.EvaluateParams) *runtime.EvaluateParams {
			return p.WithAwaitPromise(true)
		}),
		chromedp.Reload(),
		chromedp.WaitVisible(`#calendar`, chromedp.ByQuery),
	)
	if opts.ScreenshotPath != "" {
		tasks = append(tasks, chromedp.FullScreenshot(&png, 100))
	}

	if err := chromedp.Run(ctx, tasks); err != nil {
		return ClearResult{}, fmt.Errorf("devtools: chromedp run failed: %w", err)
	}

	if opts.ScreenshotPath != "" {
		if err := os.WriteFile(opts.ScreenshotPath, png, 0o644); err != nil {
			return res, fmt.Errorf("devtools: failed to write screenshot: %w", err)
		}
	}
	return res, nil
}

func (o *ClearOptions) normalize() (string, error) {
	if o.URL == "" {
		return "", errors.New("devtools: URL is required")
	}
	u, err := url.Parse(o.URL)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return "", fmt.Errorf("devtools: invalid URL %q", o.URL)
	}
	if o.Width <= 0 {
		o.Width = DefaultWidth
	}
	if o.Height <= 0 {
		o.Height = DefaultHeight
	}
	if o.Timeout <= 0 {
		o.Timeout = DefaultTimeout
	}
	u.Path = strings.TrimSuffix(u.Path, "/") + "/dashboard"
	u.RawQuery = ""
	return u.String(), nil
}

// clearScript posts to the dev clear endpoint from the page origin and
// resolves to the decoded reply.
func clearScript(all bool) string {
	scope := "events"
	if all {
		scope = "all"
	}
	return fmt.Sprintf(`fetch("/api/dev/clear?scope=%s", {method: "POST", credentials: "same-origin"})
  .then(r => r.ok ? r.json() : Promise.reject(new Error("clear failed: HTTP " + r.status)))`, scope)
}

func basicAuth(user, pass string) string {
	return "Basic " + base64.StdEncoding.EncodeToString([]byte(user+":"+pass))
}
