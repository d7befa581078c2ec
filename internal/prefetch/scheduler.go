package prefetch

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/mkobayashi/anilog/internal/activity"
)

// DefaultHoverDelay is the debounce delay between hover-start and the
// speculative fetch.
const DefaultHoverDelay = 300 * time.Millisecond

// Fetcher provides the detail endpoints a prefetch fans out to. The API
// client implements it.
type Fetcher interface {
	Media(ctx context.Context, id int64) (*activity.Media, error)
	MyMediaRating(ctx context.Context, mediaID int64) (*activity.Rating, error)
	MyMediaReview(ctx context.Context, mediaID int64) (*activity.Review, error)
	Character(ctx context.Context, id int64) (*activity.Character, error)
	CharacterReviews(ctx context.Context, characterID int64) ([]activity.Review, error)
	MyCharacterReview(ctx context.Context, characterID int64) (*activity.Review, error)
}

// Scheduler debounces hover-triggered prefetches. It tracks a single
// pending timer: scheduling again before the delay elapses replaces the
// pending fetch, and Cancel drops it without any work performed.
type Scheduler struct {
	cache   *Cache
	fetcher Fetcher
	delay   time.Duration
	logger  *slog.Logger

	mu    sync.Mutex
	timer *time.Timer
}

// NewScheduler creates a Scheduler writing into cache. A zero delay means
// DefaultHoverDelay.
func NewScheduler(cache *Cache, fetcher Fetcher, delay time.Duration, logger *slog.Logger) *Scheduler {
	if delay <= 0 {
		delay = DefaultHoverDelay
	}
	return &Scheduler{
		cache:   cache,
		fetcher: fetcher,
		delay:   delay,
		logger:  logger,
	}
}

// Schedule arms the debounce timer for a speculative detail fetch. Any
// previously pending fetch is replaced, not run alongside.
func (s *Scheduler) Schedule(ctx context.Context, kind activity.Kind, id int64, userID string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.timer != nil {
		s.timer.Stop()
	}
	s.timer = time.AfterFunc(s.delay, func() {
		s.Prefetch(ctx, kind, id, userID)
	})
}

// Cancel drops the pending fetch, if any. Called on hover-end.
func (s *Scheduler) Cancel() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.timer != nil {
		s.timer.Stop()
		s.timer = nil
	}
}

// Prefetch runs the detail fetch immediately: the entity itself plus its
// dependent fetches in parallel, each tolerating failure independently,
// then stores the combined payload. In-flight requests are never aborted
// once issued.
func (s *Scheduler) Prefetch(ctx context.Context, kind activity.Kind, id int64, userID string) {
	detail := &Detail{}

	var wg sync.WaitGroup
	run := func(name string, fn func() error) {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := fn(); err != nil {
				s.logger.Debug("prefetch sub-fetch failed",
					"fetch", name,
					"kind", kind.String(),
					"id", id,
					"error", err,
				)
			}
		}()
	}

	switch kind {
	case activity.KindCharacter:
		run("character", func() error {
			ch, err := s.fetcher.Character(ctx, id)
			detail.Character = ch
			return err
		})
		run("character_reviews", func() error {
			reviews, err := s.fetcher.CharacterReviews(ctx, id)
			detail.Reviews = reviews
			return err
		})
		run("my_character_review", func() error {
			review, err := s.fetcher.MyCharacterReview(ctx, id)
			detail.MyReview = review
			return err
		})
	default:
		run("media", func() error {
			m, err := s.fetcher.Media(ctx, id)
			detail.Media = m
			return err
		})
		run("my_rating", func() error {
			rating, err := s.fetcher.MyMediaRating(ctx, id)
			detail.MyRating = rating
			return err
		})
		run("my_review", func() error {
			review, err := s.fetcher.MyMediaReview(ctx, id)
			detail.MyReview = review
			return err
		})
	}

	wg.Wait()
	s.cache.Put(kind, id, userID, detail)
}
