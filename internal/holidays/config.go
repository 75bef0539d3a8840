package holidays

import (
	"net/http"
	"time"

	"meno/internal/config"
	"meno/internal/ics"
)

// FromConfig builds the proxy chain: Google, then the ICS feeds, then the
// built-in list.
func FromConfig(cfg *config.Config, client *http.Client) (*Proxy, error) {
	if client == nil {
		client = &http.Client{Timeout: 15 * time.Second}
	}
	cacheDir, err := cfg.CacheDir()
	if err != nil {
		return nil, err
	}

	feeds := make([]ics.Feed, 0, len(cfg.ICS))
	for _, c := range cfg.ICS {
		if c.URL == "" {
			continue
		}
		id := c.ID
		if id == "" {
			id = c.Name
		}
		if id == "" {
			id = c.URL
		}
		feeds = append(feeds, ics.Feed{ID: id, URL: c.URL})
	}

	return NewProxy([]Provider{
		&Google{
			APIKey:     cfg.Google.APIKey,
			CalendarID: cfg.Google.CalendarID,
			BaseURL:    cfg.Google.BaseURL,
			Client:     client,
		},
		NewFeeds(ics.NewFetcher(cacheDir, client), feeds),
		Fallback{},
	}), nil
}
