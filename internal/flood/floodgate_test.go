package flood

import (
	"context"
	"sync"
	"testing"
	"time"
)

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

func newTestFloodgate(limit int) (*Floodgate, *fakeClock) {
	clock := &fakeClock{now: time.Date(2024, 1, 1, 20, 0, 0, 0, time.UTC)}
	fg := New(limit)
	fg.now = clock.Now
	return fg, clock
}

func TestFloodgate_Allow_BlocksOverLimit(t *testing.T) {
	fg, _ := newTestFloodgate(3)

	for i := 0; i < 3; i++ {
		if !fg.Allow("scan", "10.0.0.1") {
			t.Errorf("request %d should be allowed", i+1)
		}
	}

	if fg.Allow("scan", "10.0.0.1") {
		t.Error("4th request should be blocked")
	}
}

func TestFloodgate_Allow_SlidingWindow(t *testing.T) {
	fg, clock := newTestFloodgate(2)

	fg.Allow("scan", "a")
	clock.Advance(30 * time.Second)
	fg.Allow("scan", "a")

	if fg.Allow("scan", "a") {
		t.Error("third request inside the window should be blocked")
	}

	clock.Advance(31 * time.Second)
	if !fg.Allow("scan", "a") {
		t.Error("request after the first one left the window should be allowed")
	}
	if fg.Allow("scan", "a") {
		t.Error("window should be full again")
	}
}

func TestFloodgate_Allow_SeparateScopesAndClients(t *testing.T) {
	fg, _ := newTestFloodgate(1)

	if !fg.Allow("scan", "a") || !fg.Allow("refresh", "a") || !fg.Allow("scan", "b") {
		t.Error("each scope and client must have its own limit")
	}
	if fg.Allow("scan", "a") {
		t.Error("second scan from a should be blocked")
	}
}

func TestFloodgate_Disabled(t *testing.T) {
	fg, _ := newTestFloodgate(0)

	for i := 0; i < 100; i++ {
		if !fg.Allow("scan", "a") {
			t.Fatal("a zero limit must never block")
		}
	}
}

func TestFloodgate_Cleanup(t *testing.T) {
	fg, clock := newTestFloodgate(5)

	fg.Allow("scan", "old")
	clock.Advance(idleTimeout + time.Minute)
	fg.Allow("scan", "new")

	fg.performCleanup()

	stats := fg.GetStats()
	if stats.ActiveClients != 1 {
		t.Errorf("ActiveClients = %d, want 1", stats.ActiveClients)
	}
	if stats.LimitPerMinute != 5 || stats.WindowSeconds != 60 {
		t.Errorf("stats = %+v", stats)
	}
}

func TestFloodgate_RunStopsOnCancel(t *testing.T) {
	fg := New(1)
	ctx, cancel := context.WithCancel(context.Background())

	done := make(chan error, 1)
	go func() {
		done <- fg.Run(ctx)
	}()
	cancel()

	select {
	case err := <-done:
		if err != nil {
			t.Errorf("Run() error = %v", err)
		}
	case <-time.After(time.Second):
		t.Fatal("Run() did not return after cancel")
	}
}

func TestFloodgate_ConcurrentAccess(t *testing.T) {
	fg := New(50)

	var wg sync.WaitGroup
	var mu sync.Mutex
	allowed := 0

	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 10; j++ {
				if fg.Allow("scan", "shared") {
					mu.Lock()
					allowed++
					mu.Unlock()
				}
			}
		}()
	}
	wg.Wait()

	if allowed != 50 {
		t.Errorf("allowed = %d, want 50", allowed)
	}
}
