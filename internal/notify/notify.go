// Package notify fans short-lived toast notifications out to open pages.
package notify

import (
	"sync"
	"time"

	appLog "meno/internal/log"
)

// Kind selects the toast style.
type Kind string

const (
	Success Kind = "success"
	Error   Kind = "error"
	Loading Kind = "loading"
	Delete  Kind = "delete"
)

// Lifetime is how long a toast stays visible.
const Lifetime = 3 * time.Second

type Notice struct {
	ID      int64
	Kind    Kind
	Message string
	At      time.Time
}

// Expired reports whether n is past its lifetime at t.
func (n Notice) Expired(t time.Time) bool {
	return t.Sub(n.At) >= Lifetime
}

// Center keeps recent notices and broadcasts new ones.
type Center struct {
	now func() time.Time

	mu      sync.Mutex
	seq     int64
	recent  []Notice
	subs    map[int]chan Notice
	nextSub int
}

func NewCenter() *Center {
	return &Center{now: time.Now, subs: make(map[int]chan Notice)}
}

// Push records a notice and hands it to every subscriber that has room.
func (c *Center) Push(kind Kind, msg string) Notice {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.seq++
	n := Notice{ID: c.seq, Kind: kind, Message: msg, At: c.now()}
	c.recent = append(c.pruned(n.At), n)

	for _, ch := range c.subs {
		select {
		case ch <- n:
		default:
		}
	}
	appLog.Debug("notice", "kind", string(kind), "message", msg)
	return n
}

// Recent returns the notices still within their lifetime, oldest first.
func (c *Center) Recent() []Notice {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.recent = c.pruned(c.now())
	return append([]Notice(nil), c.recent...)
}

// Subscribe returns a channel of new notices and its cancel func.
func (c *Center) Subscribe() (<-chan Notice, func()) {
	ch := make(chan Notice, 8)
	c.mu.Lock()
	id := c.nextSub
	c.nextSub++
	c.subs[id] = ch
	c.mu.Unlock()

	return ch, func() {
		c.mu.Lock()
		defer c.mu.Unlock()
		if s, ok := c.subs[id]; ok {
			delete(c.subs, id)
			close(s)
		}
	}
}

// pruned drops expired notices. Callers hold mu.
func (c *Center) pruned(t time.Time) []Notice {
	keep := c.recent[:0]
	for _, n := range c.recent {
		if !n.Expired(t) {
			keep = append(keep, n)
		}
	}
	return keep
}
