package cache

import (
	"container/list"
	"context"
	"fmt"
	"sync"
	"time"
)

const defaultMemoryTTL = 24 * time.Hour

type memoryEntry struct {
	key      string
	value    interface{}
	expireAt time.Time
}

func (e *memoryEntry) expired(now time.Time) bool {
	return now.After(e.expireAt)
}

// MemoryCache is an in-process LRU cache. Recency is tracked with a doubly
// linked list; the back element is evicted when the cache is full.
type MemoryCache struct {
	mu      sync.Mutex
	entries map[string]*list.Element
	order   *list.List
	maxSize int
	done    chan struct{}
}

// NewMemoryCache creates an in-process cache and starts the expiry sweeper.
func NewMemoryCache(opts ...MemoryOption) *MemoryCache {
	cfg := &MemoryConfig{
		MaxSize:    1000,
		SweepEvery: 5 * time.Minute,
	}
	for _, opt := range opts {
		opt(cfg)
	}

	mc := &MemoryCache{
		entries: make(map[string]*list.Element),
		order:   list.New(),
		maxSize: cfg.MaxSize,
		done:    make(chan struct{}),
	}

	go mc.sweep(cfg.SweepEvery)
	return mc
}

func (mc *MemoryCache) Set(_ context.Context, key string, value interface{}, ttl time.Duration) error {
	if ttl <= 0 {
		ttl = defaultMemoryTTL
	}
	expireAt := time.Now().Add(ttl)

	mc.mu.Lock()
	defer mc.mu.Unlock()

	if el, ok := mc.entries[key]; ok {
		entry := el.Value.(*memoryEntry)
		entry.value = value
		entry.expireAt = expireAt
		mc.order.MoveToFront(el)
		return nil
	}

	mc.entries[key] = mc.order.PushFront(&memoryEntry{key: key, value: value, expireAt: expireAt})
	for len(mc.entries) > mc.maxSize {
		mc.evictOldest()
	}
	return nil
}

func (mc *MemoryCache) Get(_ context.Context, key string, dest interface{}) error {
	mc.mu.Lock()
	defer mc.mu.Unlock()

	el, ok := mc.entries[key]
	if !ok {
		return ErrCacheMiss
	}
	entry := el.Value.(*memoryEntry)
	if entry.expired(time.Now()) {
		mc.remove(el)
		return ErrCacheMiss
	}
	mc.order.MoveToFront(el)

	switch d := dest.(type) {
	case *string:
		s, ok := entry.value.(string)
		if !ok {
			return fmt.Errorf("cache: value for %q is not a string", key)
		}
		*d = s
	case *interface{}:
		*d = entry.value
	default:
		return fmt.Errorf("cache: unsupported destination %T", dest)
	}
	return nil
}

func (mc *MemoryCache) Delete(_ context.Context, keys ...string) error {
	mc.mu.Lock()
	defer mc.mu.Unlock()

	for _, key := range keys {
		if el, ok := mc.entries[key]; ok {
			mc.remove(el)
		}
	}
	return nil
}

func (mc *MemoryCache) Exists(_ context.Context, key string) (bool, error) {
	mc.mu.Lock()
	defer mc.mu.Unlock()

	el, ok := mc.entries[key]
	if !ok {
		return false, nil
	}
	if el.Value.(*memoryEntry).expired(time.Now()) {
		mc.remove(el)
		return false, nil
	}
	return true, nil
}

// Close stops the expiry sweeper.
func (mc *MemoryCache) Close() error {
	close(mc.done)
	return nil
}

// remove and evictOldest require mc.mu held.
func (mc *MemoryCache) remove(el *list.Element) {
	entry := mc.order.Remove(el).(*memoryEntry)
	delete(mc.entries, entry.key)
}

func (mc *MemoryCache) evictOldest() {
	if back := mc.order.Back(); back != nil {
		mc.remove(back)
	}
}

func (mc *MemoryCache) sweep(every time.Duration) {
	ticker := time.NewTicker(every)
	defer ticker.Stop()

	for {
		select {
		case <-mc.done:
			return
		case <-ticker.C:
			now := time.Now()
			mc.mu.Lock()
			var next *list.Element
			for el := mc.order.Front(); el != nil; el = next {
				next = el.Next()
				if el.Value.(*memoryEntry).expired(now) {
					mc.remove(el)
				}
			}
			mc.mu.Unlock()
		}
	}
}
