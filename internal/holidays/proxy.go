package holidays

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/robfig/cron/v3"

	appLog "meno/internal/log"
)

// DefaultTTL bounds how long a proxy answer is reused.
const DefaultTTL = 10 * time.Minute

type cached struct {
	resp Response
	year int
	at   time.Time
}

// Proxy asks its providers in order and answers with the first that
// succeeds. Answers are cached per year for the TTL.
type Proxy struct {
	providers []Provider
	ttl       time.Duration
	now       func() time.Time

	mu    sync.RWMutex
	cache *cached
}

type ProxyOption func(*Proxy)

func WithTTL(d time.Duration) ProxyOption { return func(p *Proxy) { p.ttl = d } }

func WithClock(now func() time.Time) ProxyOption { return func(p *Proxy) { p.now = now } }

func NewProxy(providers []Provider, opts ...ProxyOption) *Proxy {
	p := &Proxy{providers: providers, ttl: DefaultTTL, now: time.Now}
	for _, o := range opts {
		o(p)
	}
	return p
}

// Fetch returns this year's entries, from the cache when fresh.
func (p *Proxy) Fetch(ctx context.Context) (Response, error) {
	now := p.now()
	p.mu.RLock()
	c := p.cache
	p.mu.RUnlock()
	if c != nil && c.year == now.Year() && now.Sub(c.at) < p.ttl {
		return c.resp, nil
	}
	return p.Refresh(ctx)
}

// Refresh queries the providers regardless of the cache.
func (p *Proxy) Refresh(ctx context.Context) (Response, error) {
	now := p.now()
	from, to := YearWindow(now)

	var errs []error
	for _, prov := range p.providers {
		items, err := prov.Entries(ctx, from, to)
		if err != nil {
			if !errors.Is(err, ErrNotConfigured) {
				appLog.Warn("holiday provider failed; trying next", "provider", prov.Name(), "err", err)
			}
			errs = append(errs, err)
			continue
		}
		if items == nil {
			items = []Entry{}
		}
		resp := Response{Success: true, Items: items}
		appLog.Info("holidays fetched", "provider", prov.Name(), "year", now.Year(), "count", len(items))

		p.mu.Lock()
		p.cache = &cached{resp: resp, year: now.Year(), at: now}
		p.mu.Unlock()
		return resp, nil
	}

	if len(errs) == 0 {
		return Response{}, errors.New("holidays: no providers")
	}
	return Response{}, errors.Join(errs...)
}

// Refresher re-warms a Proxy on a cron schedule.
type Refresher struct {
	c *cron.Cron
}

// StartRefresher schedules proxy refreshes with a standard five-field cron
// spec and starts the scheduler.
func StartRefresher(spec string, p *Proxy) (*Refresher, error) {
	c := cron.New()
	_, err := c.AddFunc(spec, func() {
		ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
		defer cancel()
		if _, err := p.Refresh(ctx); err != nil {
			appLog.Error("scheduled holiday refresh failed", err)
		}
	})
	if err != nil {
		return nil, err
	}
	c.Start()
	appLog.Info("holiday refresh scheduled", "spec", spec)
	return &Refresher{c: c}, nil
}

// Stop halts the scheduler and waits for a running refresh.
func (r *Refresher) Stop() {
	<-r.c.Stop().Done()
}
