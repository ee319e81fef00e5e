// Package flood rate-limits host requests per client and endpoint.
package flood

import (
	"context"
	"sync"
	"time"
)

const (
	// windowDuration is the sliding window the limit applies to
	windowDuration = 60 * time.Second
	// cleanupInterval is how often idle entries are dropped
	cleanupInterval = 10 * time.Minute
	// idleTimeout is how long a client may stay silent before its entry is dropped
	idleTimeout = 10 * time.Minute
)

// Floodgate allows at most limitPerMinute requests per client and scope in
// any sliding minute. A limit of zero or less disables it.
type Floodgate struct {
	limitPerMinute int
	entries        map[string]*clientEntry // Key: "scope:client"
	mutex          sync.Mutex
	now            func() time.Time
}

type clientEntry struct {
	timestamps []time.Time
	lastSeen   time.Time
}

// New creates a limiter. A non-positive limit disables it.
func New(limitPerMinute int) *Floodgate {
	return &Floodgate{
		limitPerMinute: limitPerMinute,
		entries:        make(map[string]*clientEntry),
		now:            time.Now,
	}
}

// Allow records a request and reports whether it is within the limit.
// Rejected requests do not count against the window.
func (fg *Floodgate) Allow(scope, client string) bool {
	if fg.limitPerMinute <= 0 {
		return true
	}

	key := scope + ":" + client
	now := fg.now()

	fg.mutex.Lock()
	defer fg.mutex.Unlock()

	entry, exists := fg.entries[key]
	if !exists {
		entry = &clientEntry{
			timestamps: make([]time.Time, 0, fg.limitPerMinute+1),
		}
		fg.entries[key] = entry
	}
	entry.lastSeen = now

	windowStart := now.Add(-windowDuration)
	valid := entry.timestamps[:0]
	for _, ts := range entry.timestamps {
		if ts.After(windowStart) {
			valid = append(valid, ts)
		}
	}
	entry.timestamps = valid

	if len(entry.timestamps) >= fg.limitPerMinute {
		return false
	}

	entry.timestamps = append(entry.timestamps, now)
	return true
}

// Run drops idle entries until ctx is done.
func (fg *Floodgate) Run(ctx context.Context) error {
	ticker := time.NewTicker(cleanupInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			fg.performCleanup()
		case <-ctx.Done():
			return nil
		}
	}
}

func (fg *Floodgate) performCleanup() {
	fg.mutex.Lock()
	defer fg.mutex.Unlock()

	cutoff := fg.now().Add(-idleTimeout)
	for key, entry := range fg.entries {
		if entry.lastSeen.Before(cutoff) {
			delete(fg.entries, key)
		}
	}
}

// GetStats returns statistics about the floodgate for monitoring/debugging
func (fg *Floodgate) GetStats() Stats {
	fg.mutex.Lock()
	defer fg.mutex.Unlock()

	return Stats{
		ActiveClients:  len(fg.entries),
		LimitPerMinute: fg.limitPerMinute,
		WindowSeconds:  int(windowDuration.Seconds()),
	}
}

// Stats contains floodgate statistics
type Stats struct {
	ActiveClients  int `json:"active_clients"`
	LimitPerMinute int `json:"limit_per_minute"`
	WindowSeconds  int `json:"window_seconds"`
}
