// Package calsync imports the year's public holidays into the planner,
// at most once per session.
package calsync

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"meno/internal/holidays"
	appLog "meno/internal/log"
	"meno/internal/model"
	"meno/internal/notify"
	"meno/internal/planner"
	"meno/internal/storage"
)

var (
	// ErrSyncInFlight refuses a sync while another is running.
	ErrSyncInFlight = errors.New("calsync: sync already in flight")
	// ErrSyncFailed wraps transport and backend failures.
	ErrSyncFailed = errors.New("calsync: sync failed")
)

// DefaultDescription is given to entries without one.
const DefaultDescription = "Holiday/Event from Google Calendar"

// State is the adapter's request state.
type State int

const (
	Idle State = iota
	InFlight
	Done
)

func (s State) String() string {
	switch s {
	case InFlight:
		return "in-flight"
	case Done:
		return "done"
	default:
		return "idle"
	}
}

// Result reports one Sync call.
type Result struct {
	Added int
	// Skipped is true when this session already synced.
	Skipped bool
}

// Adapter runs the sync. Session holds the once-per-session flag; nil
// notices disables toasts.
type Adapter struct {
	planner *planner.Planner
	source  Source
	session storage.Storage
	notices *notify.Center

	mu    sync.Mutex
	state State
}

func New(p *planner.Planner, src Source, session storage.Storage, notices *notify.Center) *Adapter {
	return &Adapter{planner: p, source: src, session: session, notices: notices}
}

func (a *Adapter) State() State {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.state
}

// Sync fetches the entries and appends the ones not already present.
// Failure leaves the store untouched and the adapter idle.
func (a *Adapter) Sync(ctx context.Context) (Result, error) {
	if skip, err := a.begin(); err != nil || skip {
		return Result{Skipped: skip}, err
	}

	a.notify(notify.Loading, "Syncing holidays and events…")
	resp, err := a.source.Fetch(ctx)
	if err == nil && !resp.Success {
		msg := resp.Error
		if msg == "" {
			msg = "Unknown error from backend"
		}
		err = errors.New(msg)
	}
	if err != nil {
		a.finish(Idle)
		appLog.Error("holiday sync failed", err)
		a.notify(notify.Error, "Failed to sync Google Calendar: "+err.Error())
		return Result{}, fmt.Errorf("%w: %w", ErrSyncFailed, err)
	}

	var added int
	a.planner.Update(planner.Change{Reason: planner.ReasonSync}, func(doc planner.Document) bool {
		added = Apply(doc, resp.Items, a.planner.Location())
		return true
	})
	if err := a.session.Set(planner.KeySyncedFlag, "1"); err != nil {
		appLog.Warn("session flag not set", "key", planner.KeySyncedFlag, "err", err)
	}
	a.finish(Done)

	appLog.Info("holiday sync complete", "received", len(resp.Items), "added", added)
	if added > 0 {
		a.notify(notify.Success, fmt.Sprintf("✓ %d holidays/events added from Google Calendar!", added))
	} else {
		a.notify(notify.Success, "Google Calendar synced (no new events)")
	}
	return Result{Added: added}, nil
}

func (a *Adapter) begin() (skip bool, err error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	switch a.state {
	case InFlight:
		return false, ErrSyncInFlight
	case Done:
		return true, nil
	}
	if _, ok, _ := a.session.Get(planner.KeySyncedFlag); ok {
		a.state = Done
		appLog.Debug("holidays already synced this session")
		return true, nil
	}
	a.state = InFlight
	return false, nil
}

func (a *Adapter) finish(s State) {
	a.mu.Lock()
	a.state = s
	a.mu.Unlock()
}

func (a *Adapter) notify(k notify.Kind, msg string) {
	if a.notices != nil {
		a.notices.Push(k, msg)
	}
}

// Apply appends entries to doc as synced events and returns how many were
// added. An entry is a duplicate when its day already holds a synced item
// with the same title, ignoring case.
func Apply(doc planner.Document, entries []holidays.Entry, loc *time.Location) int {
	added := 0
	for _, e := range entries {
		key, clock, ok := entryDay(e.Start, loc)
		if !ok {
			appLog.Debug("sync entry without a usable start", "summary", e.Summary)
			continue
		}
		title := e.Summary
		if title == "" {
			title = "Untitled Event"
		}
		if hasSynced(doc[key], title) {
			continue
		}
		desc := e.Description
		if desc == "" {
			desc = DefaultDescription
		}
		doc[key] = append(doc[key], model.Item{
			ID:          model.NewID(),
			Title:       title,
			Date:        key,
			Source:      model.SourceGoogle,
			FromGoogle:  true,
			Description: desc,
			Details:     model.EventDetails{Time: clock},
		})
		added++
	}
	return added
}

// entryDay maps a start to its date key and, for timed entries, the
// HH:MM clock time in loc.
func entryDay(d holidays.Date, loc *time.Location) (key, clock string, ok bool) {
	if d.Date != "" {
		t, err := time.ParseInLocation("2006-01-02", d.Date, loc)
		if err != nil {
			return "", "", false
		}
		return planner.DateKey(t), "", true
	}
	if d.DateTime != "" {
		t, err := time.Parse(time.RFC3339, d.DateTime)
		if err != nil {
			return "", "", false
		}
		t = t.In(loc)
		return planner.DateKey(t), t.Format("15:04"), true
	}
	return "", "", false
}

func hasSynced(items []model.Item, title string) bool {
	for _, it := range items {
		if it.FromGoogle && strings.EqualFold(it.Title, title) {
			return true
		}
	}
	return false
}
