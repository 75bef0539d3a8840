package notify

import (
	"testing"
	"time"
)

func TestPushRecentAndExpiry(t *testing.T) {
	cur := time.Date(2026, 10, 15, 9, 0, 0, 0, time.UTC)
	c := NewCenter()
	c.now = func() time.Time { return cur }

	ch, cancel := c.Subscribe()
	defer cancel()

	a := c.Push(Success, "Item added successfully!")
	if got := <-ch; got.ID != a.ID || got.Message != "Item added successfully!" {
		t.Fatalf("subscriber got %+v", got)
	}

	cur = cur.Add(2 * time.Second)
	c.Push(Delete, "Deleted Item!")
	if r := c.Recent(); len(r) != 2 || r[0].Kind != Success {
		t.Fatalf("recent = %+v", r)
	}

	cur = cur.Add(Lifetime - time.Second)
	r := c.Recent()
	if len(r) != 1 || r[0].Kind != Delete {
		t.Fatalf("recent after expiry = %+v", r)
	}
}

func TestSlowSubscriberDoesNotBlock(t *testing.T) {
	c := NewCenter()
	_, cancel := c.Subscribe()
	defer cancel()

	done := make(chan struct{})
	go func() {
		for i := 0; i < 100; i++ {
			c.Push(Loading, "Syncing holidays and events…")
		}
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("push blocked on a full subscriber")
	}
}
