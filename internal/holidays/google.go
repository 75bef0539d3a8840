package holidays

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"
)

const defaultGoogleBase = "https://www.googleapis.com/calendar/v3"

// Google reads a public calendar through the Calendar v3 REST API with an
// API key.
type Google struct {
	APIKey     string
	CalendarID string
	// BaseURL defaults to the public endpoint.
	BaseURL string
	Client  *http.Client
}

func (g *Google) Name() string { return "google" }

type googleEvents struct {
	Items []Entry `json:"items"`
}

func (g *Google) Entries(ctx context.Context, from, to time.Time) ([]Entry, error) {
	if g.APIKey == "" || g.CalendarID == "" {
		return nil, ErrNotConfigured
	}
	base := g.BaseURL
	if base == "" {
		base = defaultGoogleBase
	}
	client := g.Client
	if client == nil {
		client = &http.Client{Timeout: 15 * time.Second}
	}

	q := url.Values{}
	q.Set("key", g.APIKey)
	q.Set("timeMin", from.UTC().Format(time.RFC3339))
	q.Set("timeMax", to.UTC().Format(time.RFC3339))
	q.Set("maxResults", strconv.Itoa(250))
	q.Set("singleEvents", "true")
	q.Set("orderBy", "startTime")
	endpoint := base + "/calendars/" + url.PathEscape(g.CalendarID) + "/events?" + q.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, err
	}
	resp, err := client.Do(req)
	if err != nil {
		// The request URL carries the key; keep it out of the error.
		var uerr *url.Error
		if errors.As(err, &uerr) {
			err = uerr.Err
		}
		return nil, fmt.Errorf("google calendar: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil, fmt.Errorf("google calendar: status %d", resp.StatusCode)
	}

	var body googleEvents
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return nil, fmt.Errorf("google calendar: decode: %w", err)
	}
	if body.Items == nil {
		body.Items = []Entry{}
	}
	return body.Items, nil
}
