package store

import (
	"sync"

	"github.com/bits-and-blooms/bloom/v3"
	lru "github.com/hashicorp/golang-lru/v2"
)

// PlayedTracks is the set of track URIs already drawn in the running game.
// The Bloom filter answers most misses without touching the map; the LRU
// bounds memory and forgets the oldest draws first.
type PlayedTracks struct {
	uris              map[string]struct{}
	bloom             *bloom.BloomFilter
	lru               *lru.Cache[string, struct{}]
	mu                sync.RWMutex
	capacity          int
	falsePositiveRate float64
}

// NewPlayedTracks sizes the filter for capacity tracks at the given false positive rate.
func NewPlayedTracks(capacity int, falsePositiveRate float64) *PlayedTracks {
	if capacity <= 0 {
		capacity = 1
	}
	lruCache, _ := lru.New[string, struct{}](capacity)

	return &PlayedTracks{
		uris:              make(map[string]struct{}),
		bloom:             bloom.NewWithEstimates(uint(capacity), falsePositiveRate),
		lru:               lruCache,
		capacity:          capacity,
		falsePositiveRate: falsePositiveRate,
	}
}

// Has confirms a filter hit against the exact set, so false positives never drop a track.
func (p *PlayedTracks) Has(uri string) bool {
	p.mu.RLock()
	defer p.mu.RUnlock()

	if !p.bloom.TestString(uri) {
		return false
	}

	_, exists := p.uris[uri]
	return exists
}

func (p *PlayedTracks) Add(uri string) {
	if uri == "" {
		return
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	if _, exists := p.uris[uri]; exists {
		return
	}

	p.uris[uri] = struct{}{}
	p.bloom.AddString(uri)
	p.lru.Add(uri, struct{}{})

	if len(p.uris) > p.capacity {
		p.evictOldest()
	}
}

func (p *PlayedTracks) Size() int {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return len(p.uris)
}

func (p *PlayedTracks) Clear() {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.uris = make(map[string]struct{})
	p.bloom = bloom.NewWithEstimates(uint(p.capacity), p.falsePositiveRate)
	p.lru.Purge()
}

func (p *PlayedTracks) evictOldest() {
	oldest, _, ok := p.lru.GetOldest()
	if !ok {
		return
	}

	delete(p.uris, oldest)
	p.lru.Remove(oldest)
}
