// Package feed maintains an append-only, offset-paginated collection of
// activities for a filter set. Page loads are serialized by an explicit
// state machine; responses belonging to a superseded filter generation are
// discarded instead of overwriting newer state.
package feed

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/mkobayashi/anilog/internal/activity"
	"github.com/mkobayashi/anilog/internal/api"
)

// State is the paginator's lifecycle state. The explicit enum makes
// illegal flag combinations (loading-more during initial load, for one)
// unrepresentable.
type State int

const (
	StateIdle State = iota
	StateLoadingInitial
	StateReady
	StateLoadingMore
	StateFailed
)

func (s State) String() string {
	switch s {
	case StateLoadingInitial:
		return "loading_initial"
	case StateReady:
		return "ready"
	case StateLoadingMore:
		return "loading_more"
	case StateFailed:
		return "failed"
	default:
		return "idle"
	}
}

// Filter selects which activities the paginator shows.
type Filter struct {
	Type          activity.Type `json:"activity_type,omitempty"`
	UserID        int64         `json:"user_id,omitempty"`
	ItemID        int64         `json:"item_id,omitempty"`
	FollowingOnly bool          `json:"following_only,omitempty"`
}

// Signature returns the serialized form used for change detection. Two
// filters with equal content compare equal regardless of value identity;
// the comparison is a direct string compare, not structural.
func (f Filter) Signature() string {
	b, _ := json.Marshal(f)
	return string(b)
}

// Source is the activities endpoint the paginator reads from.
type Source interface {
	Activities(ctx context.Context, q api.ActivityQuery) (*api.Page, error)
}

// Paginator holds one filter set's pages of activities.
type Paginator struct {
	src      Source
	pageSize int
	logger   *slog.Logger

	mu      sync.Mutex
	state   State
	items   []activity.Activity
	keys    map[string]struct{}
	page    int // next page index to fetch
	hasMore bool
	filter  Filter
	sig     string
	gen     int
	cancel  context.CancelFunc
}

// New creates a Paginator reading pages of pageSize from src.
func New(src Source, pageSize int, logger *slog.Logger) *Paginator {
	return &Paginator{
		src:      src,
		pageSize: pageSize,
		logger:   logger,
		keys:     make(map[string]struct{}),
	}
}

func (p *Paginator) query(f Filter, offset int) api.ActivityQuery {
	return api.ActivityQuery{
		Type:          f.Type,
		UserID:        f.UserID,
		ItemID:        f.ItemID,
		FollowingOnly: f.FollowingOnly,
		Limit:         p.pageSize,
		Offset:        offset,
	}
}

// Apply sets the active filter and performs the initial double-page load:
// two concurrent fetches at offset 0 and offset pageSize, concatenated.
// Applying a filter whose content equals the current one is a no-op. On
// failure the list is cleared and the paginator parks in StateFailed until
// the caller re-applies a filter.
func (p *Paginator) Apply(ctx context.Context, f Filter) error {
	sig := f.Signature()

	p.mu.Lock()
	if sig == p.sig && p.state != StateIdle && p.state != StateFailed {
		p.mu.Unlock()
		return nil
	}
	if p.cancel != nil {
		p.cancel()
	}
	p.gen++
	gen := p.gen
	genCtx, cancel := context.WithCancel(ctx)
	p.cancel = cancel
	p.filter = f
	p.sig = sig
	p.state = StateLoadingInitial
	p.items = nil
	p.keys = make(map[string]struct{})
	p.page = 0
	p.hasMore = false
	p.mu.Unlock()

	var firstPage, secondPage *api.Page
	g, gctx := errgroup.WithContext(genCtx)
	g.Go(func() error {
		page, err := p.src.Activities(gctx, p.query(f, 0))
		if err != nil {
			return fmt.Errorf("fetch first page: %w", err)
		}
		firstPage = page
		return nil
	})
	g.Go(func() error {
		page, err := p.src.Activities(gctx, p.query(f, p.pageSize))
		if err != nil {
			return fmt.Errorf("fetch second page: %w", err)
		}
		secondPage = page
		return nil
	})
	err := g.Wait()

	p.mu.Lock()
	defer p.mu.Unlock()
	if gen != p.gen {
		// A newer filter took over while this load was in flight.
		p.logger.Debug("discarding stale initial load", "generation", gen)
		return nil
	}
	if err != nil {
		p.state = StateFailed
		p.items = nil
		p.keys = make(map[string]struct{})
		p.hasMore = false
		p.logger.Error("initial feed load failed", "filter", sig, "error", err)
		return err
	}

	p.appendLocked(firstPage.Items)
	p.appendLocked(secondPage.Items)
	p.page = 2
	p.hasMore = len(secondPage.Items) == p.pageSize
	p.state = StateReady
	p.logger.Debug("initial feed load complete",
		"filter", sig,
		"items", len(p.items),
		"has_more", p.hasMore,
	)
	return nil
}

// LoadMore fetches one page at the current cursor and appends it. Calls
// made while a load is in flight, before the initial load, or after the
// last page are no-ops. A failed load keeps the list and cursor intact so
// a later call can retry.
func (p *Paginator) LoadMore(ctx context.Context) error {
	p.mu.Lock()
	if p.state != StateReady || !p.hasMore {
		p.mu.Unlock()
		return nil
	}
	p.state = StateLoadingMore
	gen := p.gen
	f := p.filter
	offset := p.page * p.pageSize
	p.mu.Unlock()

	page, err := p.src.Activities(ctx, p.query(f, offset))

	p.mu.Lock()
	defer p.mu.Unlock()
	if gen != p.gen {
		p.logger.Debug("discarding stale page load", "generation", gen, "offset", offset)
		return nil
	}
	if err != nil {
		p.state = StateReady
		p.logger.Error("feed page load failed", "offset", offset, "error", err)
		return nil
	}

	p.appendLocked(page.Items)
	p.page++
	p.hasMore = len(page.Items) == p.pageSize
	p.state = StateReady
	return nil
}

// appendLocked appends activities, skipping any whose key is already
// present. Callers hold p.mu.
func (p *Paginator) appendLocked(items []activity.Activity) {
	for _, act := range items {
		key := act.Key()
		if _, dup := p.keys[key]; dup {
			continue
		}
		p.keys[key] = struct{}{}
		p.items = append(p.items, act)
	}
}

// Prepend inserts the caller's own activity at the front of the list. If
// an activity with the same key is already present it is replaced in place
// instead, keeping the server-returned list deduplicated against local
// actions.
func (p *Paginator) Prepend(act activity.Activity) {
	p.mu.Lock()
	defer p.mu.Unlock()

	key := act.Key()
	if _, dup := p.keys[key]; dup {
		for i := range p.items {
			if p.items[i].Key() == key {
				p.items[i] = act
				return
			}
		}
		return
	}
	p.keys[key] = struct{}{}
	p.items = append([]activity.Activity{act}, p.items...)
}

// Remove deletes the activity with the given key, if present.
func (p *Paginator) Remove(key string) bool {
	p.mu.Lock()
	defer p.mu.Unlock()

	if _, ok := p.keys[key]; !ok {
		return false
	}
	delete(p.keys, key)
	for i := range p.items {
		if p.items[i].Key() == key {
			p.items = append(p.items[:i], p.items[i+1:]...)
			return true
		}
	}
	return false
}

// Mutate applies fn to the activity with the given key. Used for
// optimistic counter updates and for reconciling them from server
// responses. Returns false if no such activity is present.
func (p *Paginator) Mutate(key string, fn func(*activity.Activity)) bool {
	p.mu.Lock()
	defer p.mu.Unlock()

	for i := range p.items {
		if p.items[i].Key() == key {
			fn(&p.items[i])
			return true
		}
	}
	return false
}

// Items returns a copy of the current activity list.
func (p *Paginator) Items() []activity.Activity {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]activity.Activity, len(p.items))
	copy(out, p.items)
	return out
}

// State returns the paginator's current lifecycle state.
func (p *Paginator) State() State {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.state
}

// HasMore reports whether another page is expected.
func (p *Paginator) HasMore() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.hasMore
}
