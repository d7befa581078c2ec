package prefetch

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/mkobayashi/anilog/internal/activity"
)

type fakeFetcher struct {
	mu             sync.Mutex
	mediaCalls     []int64
	characterCalls []int64
	ratingErr      error
	reviewErr      error
}

func (f *fakeFetcher) Media(_ context.Context, id int64) (*activity.Media, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.mediaCalls = append(f.mediaCalls, id)
	return &activity.Media{ID: id, Title: "some show"}, nil
}

func (f *fakeFetcher) MyMediaRating(_ context.Context, mediaID int64) (*activity.Rating, error) {
	if f.ratingErr != nil {
		return nil, f.ratingErr
	}
	return &activity.Rating{ID: 1, AnimeID: mediaID, Score: 8}, nil
}

func (f *fakeFetcher) MyMediaReview(_ context.Context, mediaID int64) (*activity.Review, error) {
	if f.reviewErr != nil {
		return nil, f.reviewErr
	}
	return &activity.Review{ID: 2, AnimeID: mediaID, Content: "good"}, nil
}

func (f *fakeFetcher) Character(_ context.Context, id int64) (*activity.Character, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.characterCalls = append(f.characterCalls, id)
	return &activity.Character{ID: id, Name: "someone"}, nil
}

func (f *fakeFetcher) CharacterReviews(_ context.Context, characterID int64) ([]activity.Review, error) {
	return []activity.Review{{ID: 3, CharacterID: characterID}}, nil
}

func (f *fakeFetcher) MyCharacterReview(_ context.Context, characterID int64) (*activity.Review, error) {
	return &activity.Review{ID: 4, CharacterID: characterID}, nil
}

func (f *fakeFetcher) mediaCallCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.mediaCalls)
}

func discard() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// A hover-end before the debounce delay elapses cancels the fetch with no
// work performed.
func TestScheduleCancelBeforeDelay(t *testing.T) {
	fetcher := &fakeFetcher{}
	cache := NewCache(0, 0)
	s := NewScheduler(cache, fetcher, 20*time.Millisecond, discard())

	s.Schedule(context.Background(), activity.KindMedia, 1, "")
	s.Cancel()

	time.Sleep(80 * time.Millisecond)
	if fetcher.mediaCallCount() != 0 {
		t.Error("cancelled prefetch should perform no work")
	}
	if cache.Len() != 0 {
		t.Error("nothing should be cached")
	}
}

// Scheduling again before the pending timer fires replaces it; only the
// second prefetch runs.
func TestScheduleReplacesPending(t *testing.T) {
	fetcher := &fakeFetcher{}
	cache := NewCache(0, 0)
	s := NewScheduler(cache, fetcher, 20*time.Millisecond, discard())

	s.Schedule(context.Background(), activity.KindMedia, 1, "")
	s.Schedule(context.Background(), activity.KindMedia, 2, "")

	time.Sleep(100 * time.Millisecond)
	fetcher.mu.Lock()
	calls := append([]int64(nil), fetcher.mediaCalls...)
	fetcher.mu.Unlock()

	if len(calls) != 1 {
		t.Fatalf("expected exactly one prefetch, got %d", len(calls))
	}
	if calls[0] != 2 {
		t.Errorf("the replacing schedule should win, fetched id %d", calls[0])
	}
	if cache.Get(activity.KindMedia, 2, "") == nil {
		t.Error("the second entity should be cached")
	}
}

func TestPrefetchMedia(t *testing.T) {
	fetcher := &fakeFetcher{}
	cache := NewCache(0, 0)
	s := NewScheduler(cache, fetcher, 0, discard())

	s.Prefetch(context.Background(), activity.KindMedia, 7, "3")

	detail := cache.Get(activity.KindMedia, 7, "3")
	if detail == nil {
		t.Fatal("expected cached detail")
	}
	if detail.Media == nil || detail.Media.ID != 7 {
		t.Errorf("expected media payload, got %+v", detail.Media)
	}
	if detail.MyRating == nil || detail.MyReview == nil {
		t.Error("expected dependent fetches in the combined payload")
	}
}

func TestPrefetchCharacter(t *testing.T) {
	fetcher := &fakeFetcher{}
	cache := NewCache(0, 0)
	s := NewScheduler(cache, fetcher, 0, discard())

	s.Prefetch(context.Background(), activity.KindCharacter, 9, "")

	detail := cache.Get(activity.KindCharacter, 9, "")
	if detail == nil {
		t.Fatal("expected cached detail")
	}
	if detail.Character == nil || detail.Character.ID != 9 {
		t.Errorf("expected character payload, got %+v", detail.Character)
	}
	if len(detail.Reviews) != 1 || detail.MyReview == nil {
		t.Error("expected reviews and my-review in the combined payload")
	}
	if fetcher.mediaCallCount() != 0 {
		t.Error("media endpoints should not be fetched for a character")
	}
}

// Individual sub-fetch failures must not sink the whole batch.
func TestPrefetchToleratesSubFetchFailure(t *testing.T) {
	fetcher := &fakeFetcher{ratingErr: fmt.Errorf("boom")}
	cache := NewCache(0, 0)
	s := NewScheduler(cache, fetcher, 0, discard())

	s.Prefetch(context.Background(), activity.KindMedia, 7, "")

	detail := cache.Get(activity.KindMedia, 7, "")
	if detail == nil {
		t.Fatal("batch should be cached despite a failed sub-fetch")
	}
	if detail.MyRating != nil {
		t.Error("failed sub-fetch should leave its part nil")
	}
	if detail.Media == nil || detail.MyReview == nil {
		t.Error("successful sub-fetches should be present")
	}
}
