// Package prefetch speculatively loads detail-page data on hover and keeps
// the results in a bounded TTL cache. The cache never fetches on a miss;
// the detail page checks it before issuing its own requests.
package prefetch

import (
	"container/list"
	"fmt"
	"sync"
	"time"

	"github.com/mkobayashi/anilog/internal/activity"
)

// DefaultTTL is how long a cached detail payload stays valid.
const DefaultTTL = 5 * time.Minute

// Detail is the combined result of a speculative detail fetch. Parts whose
// sub-fetch failed are nil.
type Detail struct {
	Media     *activity.Media
	Character *activity.Character
	MyRating  *activity.Rating
	MyReview  *activity.Review
	Reviews   []activity.Review
}

type entry struct {
	key    string
	detail *Detail
	at     time.Time
}

// Cache is a TTL cache of prefetched detail payloads, bounded by an LRU
// policy. Construct one at application start and pass it by reference;
// there is no package-level instance.
type Cache struct {
	mu         sync.Mutex
	ttl        time.Duration
	maxEntries int
	entries    map[string]*list.Element
	order      *list.List // front = most recently used
	now        func() time.Time
}

// NewCache creates a Cache with the given TTL and entry bound. A zero ttl
// means DefaultTTL; maxEntries <= 0 means unbounded.
func NewCache(ttl time.Duration, maxEntries int) *Cache {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &Cache{
		ttl:        ttl,
		maxEntries: maxEntries,
		entries:    make(map[string]*list.Element),
		order:      list.New(),
		now:        time.Now,
	}
}

// cacheKey builds "{type}_{id}_{userId|guest}".
func cacheKey(kind activity.Kind, id int64, userID string) string {
	if userID == "" {
		userID = "guest"
	}
	return fmt.Sprintf("%s_%d_%s", kind, id, userID)
}

// Get returns the cached detail payload, or nil if absent or older than
// the TTL. Expiry is only ever checked here; stale entries sit until the
// next write for the same key or until LRU eviction pushes them out.
func (c *Cache) Get(kind activity.Kind, id int64, userID string) *Detail {
	c.mu.Lock()
	defer c.mu.Unlock()

	el, ok := c.entries[cacheKey(kind, id, userID)]
	if !ok {
		return nil
	}
	e := el.Value.(*entry)
	if c.now().Sub(e.at) >= c.ttl {
		return nil
	}
	c.order.MoveToFront(el)
	return e.detail
}

// Put stores a detail payload, overwriting any previous entry for the same
// key and evicting the least recently used entry when over the bound.
func (c *Cache) Put(kind activity.Kind, id int64, userID string, detail *Detail) {
	c.mu.Lock()
	defer c.mu.Unlock()

	key := cacheKey(kind, id, userID)
	if el, ok := c.entries[key]; ok {
		e := el.Value.(*entry)
		e.detail = detail
		e.at = c.now()
		c.order.MoveToFront(el)
		return
	}

	c.entries[key] = c.order.PushFront(&entry{key: key, detail: detail, at: c.now()})
	if c.maxEntries > 0 && c.order.Len() > c.maxEntries {
		oldest := c.order.Back()
		if oldest != nil {
			c.order.Remove(oldest)
			delete(c.entries, oldest.Value.(*entry).key)
		}
	}
}

// Len returns the number of entries currently held, expired or not.
func (c *Cache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.order.Len()
}
