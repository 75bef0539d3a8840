package holidays

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"meno/internal/ics"
)

var now = time.Date(2026, time.October, 15, 12, 0, 0, 0, time.UTC)

func clock() time.Time { return now }

type stubProvider struct {
	name  string
	items []Entry
	err   error
	calls atomic.Int32
}

func (s *stubProvider) Name() string { return s.name }

func (s *stubProvider) Entries(context.Context, time.Time, time.Time) ([]Entry, error) {
	s.calls.Add(1)
	return s.items, s.err
}

func TestGoogleProviderRequest(t *testing.T) {
	var gotPath, gotQuery string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.EscapedPath()
		gotQuery = r.URL.RawQuery
		_ = json.NewEncoder(w).Encode(map[string]any{
			"kind": "calendar#events",
			"items": []map[string]any{
				{"summary": "Independence Day", "start": map[string]string{"date": "2026-10-01"}, "end": map[string]string{"date": "2026-10-02"}},
			},
		})
	}))
	defer srv.Close()

	g := &Google{APIKey: "k", CalendarID: "en.ng#holiday@group.v.calendar.google.com", BaseURL: srv.URL, Client: srv.Client()}
	from, to := YearWindow(now)
	items, err := g.Entries(context.Background(), from, to)
	if err != nil {
		t.Fatal(err)
	}
	if len(items) != 1 || items[0].Summary != "Independence Day" || items[0].Start.Date != "2026-10-01" {
		t.Fatalf("items = %+v", items)
	}
	if !strings.HasPrefix(gotPath, "/calendars/en.ng%23holiday@group.v.calendar.google.com/events") {
		t.Fatalf("path = %q", gotPath)
	}
	for _, want := range []string{"key=k", "singleEvents=true", "orderBy=startTime", "maxResults=250", "timeMin=2026-01-01T00%3A00%3A00Z"} {
		if !strings.Contains(gotQuery, want) {
			t.Errorf("query %q lacks %q", gotQuery, want)
		}
	}
}

func TestGoogleProviderErrors(t *testing.T) {
	if _, err := (&Google{}).Entries(context.Background(), now, now); !errors.Is(err, ErrNotConfigured) {
		t.Fatalf("unconfigured err = %v", err)
	}

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "forbidden", http.StatusForbidden)
	}))
	defer srv.Close()
	g := &Google{APIKey: "secret", CalendarID: "c", BaseURL: srv.URL, Client: srv.Client()}
	_, err := g.Entries(context.Background(), now, now)
	if err == nil || strings.Contains(err.Error(), "secret") {
		t.Fatalf("err = %v", err)
	}
}

func TestFixedHolidays(t *testing.T) {
	got := FixedHolidays(2026)
	want := map[string]string{
		"New Year's Day": "2026-01-01",
		"Christmas Day":  "2026-12-25",
		"Easter Monday":  "2026-03-21",
	}
	if len(got) != len(want) {
		t.Fatalf("holidays = %+v", got)
	}
	for _, e := range got {
		if want[e.Summary] != e.Start.Date || e.End.Date == "" || e.Start.DateTime != "" {
			t.Errorf("entry = %+v", e)
		}
	}
}

func TestProxyFallsThrough(t *testing.T) {
	google := &stubProvider{name: "google", err: errors.New("status 403")}
	feeds := &stubProvider{name: "ics", err: ErrNotConfigured}
	p := NewProxy([]Provider{google, feeds, Fallback{}}, WithClock(clock))

	resp, err := p.Fetch(context.Background())
	if err != nil || !resp.Success {
		t.Fatalf("fetch = %+v, %v", resp, err)
	}
	if len(resp.Items) != 3 || resp.Items[0].Summary != "New Year's Day" {
		t.Fatalf("items = %+v", resp.Items)
	}
}

func TestProxyCachesUntilTTL(t *testing.T) {
	cur := now
	google := &stubProvider{name: "google", items: []Entry{{Summary: "A", Start: Date{Date: "2026-1-1"}}}}
	p := NewProxy([]Provider{google}, WithTTL(time.Minute), WithClock(func() time.Time { return cur }))

	for i := 0; i < 3; i++ {
		if _, err := p.Fetch(context.Background()); err != nil {
			t.Fatal(err)
		}
	}
	if google.calls.Load() != 1 {
		t.Fatalf("calls = %d", google.calls.Load())
	}

	cur = cur.Add(2 * time.Minute)
	_, _ = p.Fetch(context.Background())
	if google.calls.Load() != 2 {
		t.Fatalf("calls after ttl = %d", google.calls.Load())
	}

	_, _ = p.Refresh(context.Background())
	if google.calls.Load() != 3 {
		t.Fatalf("refresh did not bypass cache: %d", google.calls.Load())
	}
}

func TestProxyAllFailed(t *testing.T) {
	p := NewProxy([]Provider{&stubProvider{name: "google", err: errors.New("down")}}, WithClock(clock))
	if _, err := p.Fetch(context.Background()); err == nil {
		t.Fatal("expected error")
	}
	if _, err := NewProxy(nil).Fetch(context.Background()); err == nil {
		t.Fatal("expected error without providers")
	}
}

func TestFeedsProvider(t *testing.T) {
	const body = "BEGIN:VCALENDAR\r\nVERSION:2.0\r\nPRODID:-//meno//test//EN\r\n" +
		"BEGIN:VEVENT\r\nUID:a@test\r\nDTSTAMP:20260101T000000Z\r\nDTSTART;VALUE=DATE:20261001\r\nDTEND;VALUE=DATE:20261002\r\nSUMMARY:Independence Day\r\nEND:VEVENT\r\n" +
		"BEGIN:VEVENT\r\nUID:b@test\r\nDTSTAMP:20260101T000000Z\r\nDTSTART:20261015T140000Z\r\nDTEND:20261015T150000Z\r\nSUMMARY:Parade\r\nDESCRIPTION:City centre\r\nEND:VEVENT\r\n" +
		"END:VCALENDAR\r\n"
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(body))
	}))
	defer srv.Close()

	f := NewFeeds(ics.NewFetcher(t.TempDir(), srv.Client()), []ics.Feed{{ID: "ng", URL: srv.URL + "/ng.ics"}})
	from, to := YearWindow(now)
	items, err := f.Entries(context.Background(), from, to)
	if err != nil {
		t.Fatal(err)
	}
	if len(items) != 2 {
		t.Fatalf("items = %+v", items)
	}
	if items[0].Start.Date != "2026-10-01" || items[0].End.Date != "2026-10-02" {
		t.Fatalf("all-day entry = %+v", items[0])
	}
	if items[1].Start.DateTime != "2026-10-15T14:00:00Z" || items[1].Description != "City centre" {
		t.Fatalf("timed entry = %+v", items[1])
	}

	if _, err := NewFeeds(nil, nil).Entries(context.Background(), from, to); !errors.Is(err, ErrNotConfigured) {
		t.Fatalf("no feeds err = %v", err)
	}
}

func TestStartRefresherRejectsBadSpec(t *testing.T) {
	if _, err := StartRefresher("not a cron spec", NewProxy(nil)); err == nil {
		t.Fatal("bad spec accepted")
	}
	r, err := StartRefresher("0 */6 * * *", NewProxy([]Provider{Fallback{}}))
	if err != nil {
		t.Fatal(err)
	}
	r.Stop()
}
