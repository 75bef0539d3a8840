package calsync

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"meno/internal/holidays"
)

// Source produces the proxy response a sync consumes.
type Source interface {
	Fetch(ctx context.Context) (holidays.Response, error)
}

// Client calls a running proxy endpoint over HTTP.
type Client struct {
	URL  string
	HTTP *http.Client
}

func (c *Client) Fetch(ctx context.Context) (holidays.Response, error) {
	hc := c.HTTP
	if hc == nil {
		hc = &http.Client{Timeout: 30 * time.Second}
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.URL, nil)
	if err != nil {
		return holidays.Response{}, err
	}
	req.Header.Set("Accept", "application/json")

	resp, err := hc.Do(req)
	if err != nil {
		return holidays.Response{}, err
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return holidays.Response{}, fmt.Errorf("backend returned HTTP %d", resp.StatusCode)
	}

	var out holidays.Response
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return holidays.Response{}, fmt.Errorf("decode proxy response: %w", err)
	}
	return out, nil
}

// Direct asks an in-process proxy.
type Direct struct {
	Proxy *holidays.Proxy
}

func (d Direct) Fetch(ctx context.Context) (holidays.Response, error) {
	if d.Proxy == nil {
		return holidays.Response{}, errors.New("no proxy")
	}
	resp, err := d.Proxy.Fetch(ctx)
	if err != nil {
		return holidays.Response{Success: false, Error: err.Error()}, nil
	}
	return resp, nil
}
