package web

import (
	"bufio"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"meno/internal/calsync"
	"meno/internal/config"
	"meno/internal/holidays"
	"meno/internal/model"
	"meno/internal/notify"
	"meno/internal/planner"
	"meno/internal/storage"
)

var testNow = time.Date(2026, time.October, 15, 9, 30, 0, 0, time.UTC)

type fixture struct {
	srv     *Server
	handler http.Handler
	planner *planner.Planner
	notices *notify.Center
}

func newFixture(t *testing.T, mutate func(*config.Config, *Deps)) fixture {
	t.Helper()
	cfg := config.DefaultConfig()
	p := planner.New(planner.NewStore(storage.NewMemory()),
		planner.WithLocation(time.UTC),
		planner.WithClock(func() time.Time { return testNow }),
	)
	d := Deps{
		Config:  cfg,
		Planner: p,
		Proxy:   holidays.NewProxy([]holidays.Provider{holidays.Fallback{}}, holidays.WithClock(func() time.Time { return testNow })),
		Notices: notify.NewCenter(),
	}
	if mutate != nil {
		mutate(cfg, &d)
	}
	s, err := NewServer(d)
	if err != nil {
		t.Fatalf("NewServer: %v", err)
	}
	return fixture{srv: s, handler: s.Handler(), planner: p, notices: d.Notices}
}

func (f fixture) do(req *http.Request) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	f.handler.ServeHTTP(rec, req)
	return rec
}

func (f fixture) get(path string) *httptest.ResponseRecorder {
	return f.do(httptest.NewRequest(http.MethodGet, path, nil))
}

func (f fixture) post(path string, form url.Values) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	return f.do(req)
}

func eventsForm(kv ...string) url.Values {
	v := url.Values{"page": {"/events"}, "date": {"2026-10-15"}}
	for i := 0; i+1 < len(kv); i += 2 {
		v.Add(kv[i], kv[i+1])
	}
	return v
}

func recentMessages(c *notify.Center) []string {
	var out []string
	for _, n := range c.Recent() {
		out = append(out, n.Message)
	}
	return out
}

func TestHealthBypassesBasicAuth(t *testing.T) {
	f := newFixture(t, func(c *config.Config, _ *Deps) {
		c.BasicAuth = &config.BasicAuthConfig{Username: "meno", Password: "secret"}
	})

	if rec := f.get("/health"); rec.Code != http.StatusOK || rec.Body.String() != "OK" {
		t.Fatalf("health = %d %q", rec.Code, rec.Body.String())
	}
	rec := f.get("/dashboard")
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("unauthenticated dashboard = %d", rec.Code)
	}
	if !strings.Contains(rec.Header().Get("WWW-Authenticate"), "Meno") {
		t.Fatalf("realm = %q", rec.Header().Get("WWW-Authenticate"))
	}

	req := httptest.NewRequest(http.MethodGet, "/dashboard", nil)
	req.SetBasicAuth("meno", "secret")
	if rec := f.do(req); rec.Code != http.StatusOK {
		t.Fatalf("authenticated dashboard = %d", rec.Code)
	}
}

func TestBasicAuthDisabledWithEmptyPassword(t *testing.T) {
	f := newFixture(t, func(c *config.Config, _ *Deps) {
		c.BasicAuth = &config.BasicAuthConfig{Username: "meno"}
	})
	if rec := f.get("/events"); rec.Code != http.StatusOK {
		t.Fatalf("events = %d", rec.Code)
	}
}

func TestRootRedirectsToDashboard(t *testing.T) {
	f := newFixture(t, nil)
	rec := f.get("/")
	if rec.Code != http.StatusFound || rec.Header().Get("Location") != "/dashboard" {
		t.Fatalf("root = %d %q", rec.Code, rec.Header().Get("Location"))
	}
}

func TestPagesRender(t *testing.T) {
	f := newFixture(t, nil)
	cases := map[string][]string{
		"/dashboard": {"Meno — Dashboard", `id="dashboard"`, "No items for today"},
		"/events":    {"Meno — Events Calendar", "October 2026", "No event for this date", `data-date="2026-10-15"`},
		"/meals":     {"Meno — Meal Planner", "No meal for this date"},
		"/shopping":  {"Meno — Shopping List", "No shopping for this date"},
		"/support":   {"Meno — Support", `name="message"`},
	}
	for path, wants := range cases {
		rec := f.get(path)
		if rec.Code != http.StatusOK {
			t.Fatalf("%s = %d", path, rec.Code)
		}
		body := rec.Body.String()
		for _, w := range wants {
			if !strings.Contains(body, w) {
				t.Errorf("%s missing %q", path, w)
			}
		}
	}
}

func TestListShowsOnlyFilteredItems(t *testing.T) {
	f := newFixture(t, nil)
	key := f.planner.TodayKey()
	if _, err := f.planner.Add(key, model.TypeEvent, model.Fields{Title: "Doctor", Time: "10:00"}); err != nil {
		t.Fatal(err)
	}
	if _, err := f.planner.Add(key, model.TypeMeal, model.Fields{Title: "Porridge", Period: "Breakfast"}); err != nil {
		t.Fatal(err)
	}

	body := f.get("/meals").Body.String()
	if !strings.Contains(body, "Porridge") || strings.Contains(body, "Doctor") {
		t.Fatalf("meals page rows wrong")
	}
	body = f.get("/events?q=porr").Body.String()
	if !strings.Contains(body, `No event match &#34;porr&#34;`) {
		t.Fatalf("search placeholder missing")
	}
}

func TestSaveAddsItemAndRedirects(t *testing.T) {
	f := newFixture(t, nil)
	rec := f.post("/items/save", eventsForm("form", "add", "title", " Doctor ", "time", "10:00"))
	if rec.Code != http.StatusSeeOther {
		t.Fatalf("save = %d", rec.Code)
	}
	if got := rec.Header().Get("Location"); got != "/events?date=2026-10-15&filter=event" {
		t.Fatalf("location = %q", got)
	}
	items := f.planner.Items("2026-10-15")
	if len(items) != 1 || items[0].Title != "Doctor" || items[0].Time() != "10:00" || items[0].Type() != model.TypeEvent {
		t.Fatalf("items = %+v", items)
	}
	if msgs := recentMessages(f.notices); len(msgs) != 1 || msgs[0] != "Item added successfully!" {
		t.Fatalf("notices = %v", msgs)
	}
}

func TestSaveBlankTitleKeepsFormOpen(t *testing.T) {
	f := newFixture(t, nil)
	rec := f.post("/items/save", eventsForm("form", "add", "title", "   ", "time", "11:15"))
	if rec.Code != http.StatusUnprocessableEntity {
		t.Fatalf("save = %d", rec.Code)
	}
	body := rec.Body.String()
	if !strings.Contains(body, "Title required") || !strings.Contains(body, `value="11:15"`) {
		t.Fatalf("form not re-rendered with error")
	}
	if items := f.planner.Items("2026-10-15"); len(items) != 0 {
		t.Fatalf("items = %+v", items)
	}
}

func TestSaveEditsItem(t *testing.T) {
	f := newFixture(t, nil)
	it, err := f.planner.Add("2026-10-15", model.TypeEvent, model.Fields{Title: "Dentist", Time: "09:00"})
	if err != nil {
		t.Fatal(err)
	}
	rec := f.post("/items/save", eventsForm("form", "edit", "edit", it.ID, "type", "event", "title", "Dentist checkup", "time", "09:30"))
	if rec.Code != http.StatusSeeOther {
		t.Fatalf("save = %d", rec.Code)
	}
	items := f.planner.Items("2026-10-15")
	if len(items) != 1 || items[0].ID != it.ID || items[0].Title != "Dentist checkup" || items[0].Time() != "09:30" {
		t.Fatalf("items = %+v", items)
	}
	if msgs := recentMessages(f.notices); len(msgs) != 1 || msgs[0] != "Item edited successfully!" {
		t.Fatalf("notices = %v", msgs)
	}
}

func TestEditFormPrefills(t *testing.T) {
	f := newFixture(t, nil)
	it, err := f.planner.Add("2026-10-15", model.TypeShopping, model.Fields{Title: "Eggs", Location: "Market", Time: "17:00"})
	if err != nil {
		t.Fatal(err)
	}
	body := f.get("/shopping?date=2026-10-15&form=edit&edit=" + it.ID).Body.String()
	for _, w := range []string{"Edit Item", `value="Eggs"`, `value="Market"`, `value="17:00"`} {
		if !strings.Contains(body, w) {
			t.Errorf("edit form missing %q", w)
		}
	}
}

func TestToggleAndUnresolvedToggle(t *testing.T) {
	f := newFixture(t, nil)
	it, err := f.planner.Add("2026-10-15", model.TypeEvent, model.Fields{Title: "Run"})
	if err != nil {
		t.Fatal(err)
	}

	if rec := f.post("/items/toggle", eventsForm("id", it.ID, "index", "0")); rec.Code != http.StatusSeeOther {
		t.Fatalf("toggle = %d", rec.Code)
	}
	if !f.planner.Items("2026-10-15")[0].Completed {
		t.Fatal("not completed")
	}

	rec := f.post("/items/toggle", eventsForm("id", "id_missing", "index", "7"))
	if rec.Code != http.StatusSeeOther {
		t.Fatalf("unresolved toggle = %d", rec.Code)
	}
	if !f.planner.Items("2026-10-15")[0].Completed {
		t.Fatal("unresolved toggle changed state")
	}
}

func TestDeletePostsNotice(t *testing.T) {
	f := newFixture(t, nil)
	it, err := f.planner.Add("2026-10-15", model.TypeEvent, model.Fields{Title: "Call"})
	if err != nil {
		t.Fatal(err)
	}
	if rec := f.post("/items/delete", eventsForm("id", it.ID, "index", "0")); rec.Code != http.StatusSeeOther {
		t.Fatalf("delete = %d", rec.Code)
	}
	if items := f.planner.Items("2026-10-15"); len(items) != 0 {
		t.Fatalf("items = %+v", items)
	}
	if msgs := recentMessages(f.notices); len(msgs) != 1 || msgs[0] != "Deleted Item!" {
		t.Fatalf("notices = %v", msgs)
	}
}

func TestReorderKeepsOtherTypesInPlace(t *testing.T) {
	f := newFixture(t, nil)
	key := "2026-10-15"
	a, _ := f.planner.Add(key, model.TypeEvent, model.Fields{Title: "A"})
	_, _ = f.planner.Add(key, model.TypeMeal, model.Fields{Title: "M"})
	b, _ := f.planner.Add(key, model.TypeEvent, model.Fields{Title: "B"})
	c, _ := f.planner.Add(key, model.TypeEvent, model.Fields{Title: "C"})

	form := eventsForm("order", "2:"+c.ID, "order", "0:"+a.ID, "order", "1:"+b.ID)
	if rec := f.post("/items/reorder", form); rec.Code != http.StatusSeeOther {
		t.Fatalf("reorder = %d", rec.Code)
	}
	var got []string
	for _, it := range f.planner.Items(key) {
		got = append(got, it.Title)
	}
	if strings.Join(got, ",") != "C,M,A,B" {
		t.Fatalf("order = %v", got)
	}
}

func TestDashboardToggleByPosition(t *testing.T) {
	f := newFixture(t, nil)
	key := f.planner.TodayKey()
	_, _ = f.planner.Add(key, model.TypeEvent, model.Fields{Title: "Standup"})
	_, _ = f.planner.Add(key, model.TypeMeal, model.Fields{Title: "Lunch"})
	_, _ = f.planner.Add(key, model.TypeMeal, model.Fields{Title: "Dinner"})

	rec := f.post("/dashboard/toggle", url.Values{"type": {"meal"}, "index": {"1"}, "q": {"din"}})
	if rec.Code != http.StatusSeeOther || rec.Header().Get("Location") != "/dashboard?q=din" {
		t.Fatalf("dashboard toggle = %d %q", rec.Code, rec.Header().Get("Location"))
	}
	for _, it := range f.planner.Items(key) {
		if it.Completed != (it.Title == "Dinner") {
			t.Fatalf("%s completed = %v", it.Title, it.Completed)
		}
	}

	body := f.get("/dashboard").Body.String()
	if !strings.Contains(body, "33%") {
		t.Fatalf("dashboard percent missing")
	}
}

func TestSupportForm(t *testing.T) {
	f := newFixture(t, nil)
	rec := f.post("/support", url.Values{"name": {"Ada"}, "email": {" "}, "message": {"hi"}})
	if rec.Code != http.StatusBadRequest || !strings.Contains(rec.Body.String(), "Please fill in all required fields") {
		t.Fatalf("incomplete support = %d", rec.Code)
	}
	rec = f.post("/support", url.Values{"name": {"Ada"}, "email": {"ada@example.com"}, "message": {"hi"}})
	if rec.Code != http.StatusSeeOther || rec.Header().Get("Location") != "/support?notice=sent" {
		t.Fatalf("support = %d %q", rec.Code, rec.Header().Get("Location"))
	}
	if !strings.Contains(f.get("/support?notice=sent").Body.String(), "Your message was sent") {
		t.Fatal("confirmation missing")
	}
}

func TestGoogleEventsProxy(t *testing.T) {
	f := newFixture(t, nil)
	rec := f.get("/api/google-events")
	if rec.Code != http.StatusOK {
		t.Fatalf("proxy = %d", rec.Code)
	}
	var resp holidays.Response
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatal(err)
	}
	if !resp.Success || len(resp.Items) == 0 {
		t.Fatalf("resp = %+v", resp)
	}
}

func TestGoogleEventsProxyFailure(t *testing.T) {
	f := newFixture(t, func(_ *config.Config, d *Deps) {
		d.Proxy = holidays.NewProxy(nil)
	})
	rec := f.get("/api/google-events")
	if rec.Code != http.StatusInternalServerError {
		t.Fatalf("proxy = %d", rec.Code)
	}
	var resp holidays.Response
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatal(err)
	}
	if resp.Success || resp.Error == "" {
		t.Fatalf("resp = %+v", resp)
	}
}

func TestDevClearOnlyInDevMode(t *testing.T) {
	f := newFixture(t, nil)
	if rec := f.post("/api/dev/clear", nil); rec.Code != http.StatusNotFound {
		t.Fatalf("clear outside dev = %d", rec.Code)
	}

	f = newFixture(t, func(c *config.Config, _ *Deps) { c.Dev = true })
	_, _ = f.planner.Add("2026-10-15", model.TypeEvent, model.Fields{Title: "x"})

	rec := f.post("/api/dev/clear", nil)
	var got clearResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &got); err != nil {
		t.Fatal(err)
	}
	if rec.Code != http.StatusOK || !got.Existed || got.Scope != "events" {
		t.Fatalf("clear = %d %+v", rec.Code, got)
	}
	_ = json.Unmarshal(f.post("/api/dev/clear?scope=events", nil).Body.Bytes(), &got)
	if got.Existed {
		t.Fatal("second clear reported existing store")
	}
	if rec := f.post("/api/dev/clear?scope=everything", nil); rec.Code != http.StatusBadRequest {
		t.Fatalf("bad scope = %d", rec.Code)
	}
}

type countingSource chan struct{}

func (c countingSource) Fetch(context.Context) (holidays.Response, error) {
	c <- struct{}{}
	return holidays.Response{Success: true, Items: []holidays.Entry{
		{Summary: "Independence Day", Start: holidays.Date{Date: "2026-10-01"}},
	}}, nil
}

func TestFirstPageLoadSyncsOnce(t *testing.T) {
	calls := make(countingSource, 4)
	f := newFixture(t, func(_ *config.Config, d *Deps) {
		d.Sync = calsync.New(d.Planner, calls, storage.NewMemory(), d.Notices)
	})

	f.get("/dashboard")
	f.get("/events")

	select {
	case <-calls:
	case <-time.After(2 * time.Second):
		t.Fatal("sync never ran")
	}
	select {
	case <-calls:
		t.Fatal("sync ran twice")
	case <-time.After(100 * time.Millisecond):
	}
}

func TestViewStreamPatchesOnChange(t *testing.T) {
	f := newFixture(t, nil)
	ts := httptest.NewServer(f.handler)
	defer ts.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	done := make(chan struct{})
	defer close(done)
	go func() {
		tick := time.NewTicker(50 * time.Millisecond)
		defer tick.Stop()
		for {
			select {
			case <-done:
				return
			case <-tick.C:
				_, _ = f.planner.Add("2026-10-15", model.TypeEvent, model.Fields{Title: "Ping"})
			}
		}
	}()

	req, _ := http.NewRequestWithContext(ctx, http.MethodGet, ts.URL+"/sse/views?page=/events&date=2026-10-15", nil)
	resp, err := ts.Client().Do(req)
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()

	sc := bufio.NewScanner(resp.Body)
	sc.Buffer(make([]byte, 0, 64*1024), 1<<20)
	for sc.Scan() {
		if strings.Contains(sc.Text(), `id="calendar"`) {
			return
		}
	}
	t.Fatalf("no calendar patch received: %v", sc.Err())
}
