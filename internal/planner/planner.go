package planner

import (
	"errors"
	"sort"
	"strings"
	"sync"
	"time"

	appLog "meno/internal/log"
	"meno/internal/model"
)

var (
	// ErrTitleRequired rejects a save whose title is blank after trimming.
	ErrTitleRequired = errors.New("title required")
	// ErrNotResolved means a view element could not be mapped back to a
	// record. Handlers treat it as a silent no-op.
	ErrNotResolved = errors.New("item not found")
)

// Reason says which mutation produced a Change.
type Reason string

const (
	ReasonToggle  Reason = "toggle"
	ReasonAdd     Reason = "add"
	ReasonEdit    Reason = "edit"
	ReasonDelete  Reason = "delete"
	ReasonReorder Reason = "reorder"
	ReasonMigrate Reason = "migrate"
	ReasonSync    Reason = "sync"
	ReasonClear   Reason = "clear"
	ReasonIDs     Reason = "ids"
)

// Change is published to subscribers after every committed mutation.
type Change struct {
	// Key is the affected date key; empty when many days changed.
	Key    string
	Reason Reason
}

// Planner owns the store. Every mutation is one read-modify-commit
// sequence under mu, so sequences never interleave.
type Planner struct {
	mu    sync.Mutex
	store *Store
	now   func() time.Time
	loc   *time.Location

	subMu  sync.Mutex
	subs   map[int]chan Change
	nextID int
}

// Option configures a Planner.
type Option func(*Planner)

// WithClock overrides the wall clock (tests).
func WithClock(now func() time.Time) Option {
	return func(p *Planner) { p.now = now }
}

// WithLocation sets the zone that decides what "today" is.
func WithLocation(loc *time.Location) Option {
	return func(p *Planner) {
		if loc != nil {
			p.loc = loc
		}
	}
}

func New(store *Store, opts ...Option) *Planner {
	p := &Planner{
		store: store,
		now:   time.Now,
		loc:   time.Local,
		subs:  make(map[int]chan Change),
	}
	for _, o := range opts {
		o(p)
	}
	return p
}

func (p *Planner) Store() *Store { return p.store }

func (p *Planner) Location() *time.Location { return p.loc }

// Today is the current calendar day at midnight in the planner's zone.
func (p *Planner) Today() time.Time {
	n := p.now().In(p.loc)
	return time.Date(n.Year(), n.Month(), n.Day(), 0, 0, 0, 0, p.loc)
}

func (p *Planner) TodayKey() string {
	return DateKey(p.Today())
}

// Document returns a fresh read of the whole document. Records that
// predate ids get one here and the document is written back, so every
// rendered row can carry an id.
func (p *Planner) Document() Document {
	p.mu.Lock()
	defer p.mu.Unlock()

	doc := p.store.Read()
	mutated := false
	for k := range doc {
		var m bool
		doc[k], m = model.EnsureIDs(doc[k])
		mutated = mutated || m
	}
	if mutated {
		p.commit(doc, Change{Reason: ReasonIDs})
	}
	return doc
}

// Items returns the items of one day.
func (p *Planner) Items(key string) []model.Item {
	return ItemsForDate(p.Document(), key)
}

// Update runs fn against the current document and commits it when fn
// reports a change. It is the single path by which anything outside this
// package (sync, tooling) mutates the store.
func (p *Planner) Update(ch Change, fn func(Document) bool) {
	p.mu.Lock()
	defer p.mu.Unlock()

	doc := p.store.Read()
	if fn(doc) {
		p.commit(doc, ch)
	}
}

// commit serializes once and notifies. Callers hold mu.
func (p *Planner) commit(doc Document, ch Change) {
	if !p.store.Write(doc) {
		// The write was dropped; views re-render from the persisted state.
		appLog.Warn("commit not persisted", "reason", string(ch.Reason), "key", ch.Key)
	}
	p.publish(ch)
}

// Toggle flips the completion of the resolved item.
func (p *Planner) Toggle(key string, filter model.Type, ref Ref) (model.Item, error) {
	return p.mutateOne(key, Change{Key: key, Reason: ReasonToggle}, func(items []model.Item) int {
		return Resolve(items, filter, ref)
	}, func(it *model.Item) {
		it.Completed = !it.Completed
	})
}

// ToggleToday flips completion of one of today's items as addressed by a
// dashboard table row of type t.
func (p *Planner) ToggleToday(t model.Type, ref Ref) (model.Item, error) {
	key := p.TodayKey()
	return p.mutateOne(key, Change{Key: key, Reason: ReasonToggle}, func(items []model.Item) int {
		return resolveInType(items, t, ref)
	}, func(it *model.Item) {
		it.Completed = !it.Completed
	})
}

func (p *Planner) mutateOne(key string, ch Change, find func([]model.Item) int, apply func(*model.Item)) (model.Item, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	doc := p.store.Read()
	items := ItemsForDate(doc, key)
	i := find(items)
	if i < 0 {
		return model.Item{}, ErrNotResolved
	}
	apply(&items[i])
	doc[key] = items
	p.commit(doc, ch)
	return items[i], nil
}

// Add validates and appends a new item of type t to the tail of key's
// sequence.
func (p *Planner) Add(key string, t model.Type, f model.Fields) (model.Item, error) {
	f.Title = strings.TrimSpace(f.Title)
	if f.Title == "" {
		return model.Item{}, ErrTitleRequired
	}
	if t == "" {
		t = model.TypeEvent
	}
	it := model.NewItem(t, key, trimFields(f))

	p.mu.Lock()
	defer p.mu.Unlock()

	doc := p.store.Read()
	doc[key] = append(doc.ensure(key), it)
	p.commit(doc, Change{Key: key, Reason: ReasonAdd})
	return it, nil
}

// Edit validates and merges the form onto the resolved item.
func (p *Planner) Edit(key string, filter model.Type, ref Ref, t model.Type, f model.Fields) (model.Item, error) {
	f.Title = strings.TrimSpace(f.Title)
	if f.Title == "" {
		return model.Item{}, ErrTitleRequired
	}
	if t == "" {
		t = model.TypeEvent
	}
	update := model.Item{Title: f.Title, Date: key, Details: model.DetailsFor(t, trimFields(f))}

	return p.mutateOne(key, Change{Key: key, Reason: ReasonEdit}, func(items []model.Item) int {
		return Resolve(items, filter, ref)
	}, func(it *model.Item) {
		*it = model.Merge(*it, update)
	})
}

// Delete removes the resolved item. The day keeps its (possibly empty)
// sequence.
func (p *Planner) Delete(key string, filter model.Type, ref Ref) (model.Item, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	doc := p.store.Read()
	items := ItemsForDate(doc, key)
	i := Resolve(items, filter, ref)
	if i < 0 {
		return model.Item{}, ErrNotResolved
	}
	removed := items[i]
	items = append(items[:i:i], items[i+1:]...)
	doc[key] = items
	p.commit(doc, Change{Key: key, Reason: ReasonDelete})
	return removed, nil
}

// Reorder applies a new order for the filtered (visible) items. Items
// outside the filter keep their slots; each filter-matching slot, walked in
// order, takes the next item of the new order.
func (p *Planner) Reorder(key string, filter model.Type, order []Ref) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	doc := p.store.Read()
	items := ItemsForDate(doc, key)

	seen := make(map[int]bool, len(order))
	moved := make([]model.Item, 0, len(order))
	for _, ref := range order {
		i := Resolve(items, filter, ref)
		if i < 0 || seen[i] {
			continue
		}
		seen[i] = true
		moved = append(moved, items[i])
	}
	if len(moved) == 0 {
		return ErrNotResolved
	}

	slots := make([]int, 0, len(seen))
	for i := range seen {
		slots = append(slots, i)
	}
	sort.Ints(slots)

	doc[key] = Splice(items, slots, moved)
	p.commit(doc, Change{Key: key, Reason: ReasonReorder})
	return nil
}

// Splice writes order into the given ascending slots of source, leaving
// every other slot untouched. When slots are all the filter-matching
// positions, each matching slot takes the next item of the new order.
func Splice(source []model.Item, slots []int, order []model.Item) []model.Item {
	merged := append([]model.Item(nil), source...)
	for k, pos := range slots {
		if k < len(order) && pos < len(merged) {
			merged[pos] = order[k]
		}
	}
	return merged
}

// ClearEvents removes the whole document (development only).
func (p *Planner) ClearEvents(all bool) bool {
	p.mu.Lock()
	defer p.mu.Unlock()

	var existed bool
	if all {
		existed = p.store.ClearAll()
	} else {
		existed = p.store.Clear()
	}
	p.publish(Change{Reason: ReasonClear})
	return existed
}

// Migrate runs the legacy migration under the store lock.
func (p *Planner) Migrate() (MigrationResult, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	res, err := Migrate(p.store)
	if err == nil && !res.Skipped && res.Meals+res.Plans > 0 {
		p.publish(Change{Reason: ReasonMigrate})
	}
	return res, err
}

func trimFields(f model.Fields) model.Fields {
	return model.Fields{
		Title:    strings.TrimSpace(f.Title),
		Time:     strings.TrimSpace(f.Time),
		Period:   strings.TrimSpace(f.Period),
		Location: strings.TrimSpace(f.Location),
	}
}
