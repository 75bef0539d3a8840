// Package ics reads holiday calendars published as iCalendar feeds:
// conditional fetching with an on-disk cache, VEVENT parsing and
// recurrence expansion.
package ics

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
	"time"

	appLog "meno/internal/log"
)

// Feed is one configured iCalendar subscription.
type Feed struct {
	ID  string
	URL string
}

// Body is a feed payload, fresh or served from the cache.
type Body struct {
	Feed   Feed
	Data   []byte
	Cached bool
}

// validators are the HTTP cache validators remembered per feed.
type validators struct {
	URL          string    `json:"url"`
	ETag         string    `json:"etag,omitempty"`
	LastModified string    `json:"last_modified,omitempty"`
	FetchedAt    time.Time `json:"fetched_at"`
}

// Fetcher downloads feeds with If-None-Match/If-Modified-Since and keeps the
// last good body on disk, so an unreachable feed still yields data.
type Fetcher struct {
	client *http.Client
	dir    string
}

// NewFetcher returns a Fetcher caching under dir. A nil client gets a
// 15s timeout.
func NewFetcher(dir string, client *http.Client) *Fetcher {
	if client == nil {
		client = &http.Client{Timeout: 15 * time.Second}
	}
	return &Fetcher{client: client, dir: dir}
}

// FetchAll fetches every feed. Failed feeds are logged and reported in the
// error slice; the bodies slice only has feeds that produced data.
func (f *Fetcher) FetchAll(ctx context.Context, feeds []Feed) ([]Body, []error) {
	var (
		out  = make([]Body, 0, len(feeds))
		errs []error
	)
	for _, feed := range feeds {
		b, err := f.Fetch(ctx, feed)
		if err != nil {
			appLog.Error("ics fetch failed", err, "id", feed.ID, "url", redactURL(feed.URL))
			errs = append(errs, fmt.Errorf("%s: %w", feed.ID, err))
			continue
		}
		out = append(out, b)
	}
	return out, errs
}

// Fetch downloads one feed. On a network error or a non-OK status the cached
// body is returned when there is one.
func (f *Fetcher) Fetch(ctx context.Context, feed Feed) (Body, error) {
	if feed.URL == "" {
		return Body{}, errors.New("feed URL is empty")
	}
	dir := f.entryDir(feed.URL)
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return Body{}, err
	}

	prev, _ := readValidators(dir)
	cached, _ := os.ReadFile(filepath.Join(dir, "body.ics"))
	fallback := func(cause error) (Body, error) {
		if len(cached) == 0 {
			return Body{}, cause
		}
		appLog.Warn("ics fetch failed; serving cached body", "id", feed.ID, "url", redactURL(feed.URL), "err", cause)
		return Body{Feed: feed, Data: cached, Cached: true}, nil
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, feed.URL, nil)
	if err != nil {
		return Body{}, err
	}
	if prev.ETag != "" {
		req.Header.Set("If-None-Match", prev.ETag)
	}
	if prev.LastModified != "" {
		req.Header.Set("If-Modified-Since", prev.LastModified)
	}

	appLog.Debug("ics fetch", "id", feed.ID, "url", redactURL(feed.URL))
	resp, err := f.client.Do(req)
	if err != nil {
		return fallback(err)
	}
	defer resp.Body.Close()

	switch resp.StatusCode {
	case http.StatusOK:
		data, err := io.ReadAll(resp.Body)
		if err != nil {
			return fallback(err)
		}
		v := validators{
			URL:          feed.URL,
			ETag:         resp.Header.Get("ETag"),
			LastModified: resp.Header.Get("Last-Modified"),
			FetchedAt:    time.Now().UTC(),
		}
		if err := writeCache(dir, v, data); err != nil {
			appLog.Error("ics cache write failed", err, "id", feed.ID)
		}
		return Body{Feed: feed, Data: data}, nil
	case http.StatusNotModified:
		if len(cached) == 0 {
			return Body{}, errors.New("304 Not Modified without a cached body")
		}
		return Body{Feed: feed, Data: cached, Cached: true}, nil
	default:
		return fallback(errors.New(resp.Status))
	}
}

// entryDir is the cache directory for a URL: the first 8 bytes of its
// SHA-256, hex encoded.
func (f *Fetcher) entryDir(u string) string {
	sum := sha256.Sum256([]byte(u))
	return filepath.Join(f.dir, hex.EncodeToString(sum[:8]))
}

func readValidators(dir string) (validators, error) {
	var v validators
	data, err := os.ReadFile(filepath.Join(dir, "meta.json"))
	if err != nil {
		return v, err
	}
	err = json.Unmarshal(data, &v)
	return v, err
}

// writeCache stores the body before the validators so the validators never
// describe a body that is not there.
func writeCache(dir string, v validators, data []byte) error {
	if err := os.WriteFile(filepath.Join(dir, "body.ics"), data, 0o600); err != nil {
		return err
	}
	meta, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(filepath.Join(dir, "meta.json"), meta, 0o600)
}

// redactURL keeps scheme and host only; feed paths often embed secrets.
func redactURL(raw string) string {
	u, err := url.Parse(raw)
	if err != nil || u.Host == "" {
		return "ics://...(redacted)"
	}
	return u.Scheme + "://" + u.Host + "/...(redacted)"
}
