package comments

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"testing"

	"github.com/mkobayashi/anilog/internal/activity"
)

// fakeBackend records every call so tests can assert which bucket was hit.
type fakeBackend struct {
	reviewCommentsByID map[int64][]Comment
	reviewErr          error
	legacyComments     []Comment
	legacyErr          error

	nextReviewID    int64
	createReviewErr error

	reviewCalls    int
	legacyCalls    int
	createdReviews []int64
	createdComs    []CreateCommentRequest
	deleted        []int64
}

func (f *fakeBackend) ReviewComments(_ context.Context, reviewID int64, _ activity.Kind) ([]Comment, error) {
	f.reviewCalls++
	if f.reviewErr != nil {
		return nil, f.reviewErr
	}
	return f.reviewCommentsByID[reviewID], nil
}

func (f *fakeBackend) ActivityComments(_ context.Context, _ activity.Type, _, _ int64) ([]Comment, error) {
	f.legacyCalls++
	if f.legacyErr != nil {
		return nil, f.legacyErr
	}
	return f.legacyComments, nil
}

func (f *fakeBackend) CreateReviewComment(_ context.Context, req CreateCommentRequest) (*Comment, error) {
	f.createdComs = append(f.createdComs, req)
	c := Comment{
		ID:              int64(100 + len(f.createdComs)),
		ReviewID:        req.ReviewID,
		Content:         req.Content,
		ParentCommentID: req.ParentCommentID,
	}
	if f.reviewCommentsByID == nil {
		f.reviewCommentsByID = make(map[int64][]Comment)
	}
	f.reviewCommentsByID[req.ReviewID] = append(f.reviewCommentsByID[req.ReviewID], c)
	return &c, nil
}

func (f *fakeBackend) DeleteReviewComment(_ context.Context, commentID int64) error {
	f.deleted = append(f.deleted, commentID)
	return nil
}

func (f *fakeBackend) CreateEmptyReview(_ context.Context, _ activity.Kind, _ int64) (int64, error) {
	if f.createReviewErr != nil {
		return 0, f.createReviewErr
	}
	f.nextReviewID++
	id := f.nextReviewID + 1000
	f.createdReviews = append(f.createdReviews, id)
	return id, nil
}

func discard() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestLoadPrefersReviewBucket(t *testing.T) {
	backend := &fakeBackend{
		reviewCommentsByID: map[int64][]Comment{
			21: {{ID: 1, Content: "from review store"}},
		},
		legacyComments: []Comment{{ID: 2, Content: "from legacy store"}},
	}
	resolver := NewResolver(backend, discard())

	act := activity.Activity{Type: activity.TypeCharacterReview, UserID: 3, ItemID: 7, ReviewID: 21}
	got := resolver.Load(context.Background(), act)

	if len(got) != 1 || got[0].Content != "from review store" {
		t.Fatalf("expected review-store comments, got %+v", got)
	}
	if backend.legacyCalls != 0 {
		t.Errorf("legacy store should not be consulted, got %d calls", backend.legacyCalls)
	}
}

func TestLoadFallsBackToLegacyOnFailure(t *testing.T) {
	backend := &fakeBackend{
		reviewErr:      fmt.Errorf("boom"),
		legacyComments: []Comment{{ID: 2, Content: "legacy"}},
	}
	resolver := NewResolver(backend, discard())

	act := activity.Activity{Type: activity.TypeMediaReview, UserID: 1, ItemID: 2, ReviewID: 5}
	got := resolver.Load(context.Background(), act)

	if len(got) != 1 || got[0].Content != "legacy" {
		t.Fatalf("expected legacy fallback, got %+v", got)
	}
	if backend.reviewCalls != 1 || backend.legacyCalls != 1 {
		t.Errorf("expected one call to each store, got review=%d legacy=%d", backend.reviewCalls, backend.legacyCalls)
	}
}

func TestLoadNumericRowIDResolvesReviewBucket(t *testing.T) {
	backend := &fakeBackend{
		reviewCommentsByID: map[int64][]Comment{
			12: {{ID: 1, Content: "row id resolved"}},
		},
	}
	resolver := NewResolver(backend, discard())

	// No review_id, but the activity's own row id is a positive number.
	act := activity.Activity{Type: activity.TypeMediaRating, ID: activity.NumericID(12), UserID: 1, ItemID: 2}
	got := resolver.Load(context.Background(), act)

	if len(got) != 1 || got[0].Content != "row id resolved" {
		t.Fatalf("expected review-store comments via row id, got %+v", got)
	}
}

func TestLoadSyntheticIDUsesLegacyBucket(t *testing.T) {
	backend := &fakeBackend{
		legacyComments: []Comment{{ID: 9, Content: "legacy only"}},
	}
	resolver := NewResolver(backend, discard())

	act := activity.Activity{Type: activity.TypeMediaRating, ID: activity.SyntheticID("my-activity-2"), UserID: 1, ItemID: 2}
	got := resolver.Load(context.Background(), act)

	if len(got) != 1 || got[0].Content != "legacy only" {
		t.Fatalf("expected legacy comments, got %+v", got)
	}
	if backend.reviewCalls != 0 {
		t.Errorf("review store should not be consulted for a synthetic id")
	}
}

func TestLoadBothStoresFailingReturnsEmpty(t *testing.T) {
	backend := &fakeBackend{
		reviewErr: fmt.Errorf("boom"),
		legacyErr: fmt.Errorf("also boom"),
	}
	resolver := NewResolver(backend, discard())

	act := activity.Activity{Type: activity.TypeMediaReview, UserID: 1, ItemID: 2, ReviewID: 5}
	got := resolver.Load(context.Background(), act)

	if got == nil || len(got) != 0 {
		t.Fatalf("expected empty non-nil list, got %+v", got)
	}
}

// Posting on a bare rating materializes an empty host review first, then
// posts the comment against it; a subsequent load on the updated activity
// hits the review bucket.
func TestPostOnRatingOnlyCreatesHostReview(t *testing.T) {
	backend := &fakeBackend{}
	resolver := NewResolver(backend, discard())

	act := activity.Activity{Type: activity.TypeCharacterRating, UserID: 3, ItemID: 7}
	comment, err := resolver.Post(context.Background(), act, "first!", 0)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if len(backend.createdReviews) != 1 {
		t.Fatalf("expected one host review created, got %d", len(backend.createdReviews))
	}
	hostID := backend.createdReviews[0]
	if comment.ReviewID != hostID {
		t.Errorf("comment posted against review %d, want host review %d", comment.ReviewID, hostID)
	}
	if len(backend.createdComs) != 1 || backend.createdComs[0].ReviewType != "character" {
		t.Errorf("expected one character-typed comment create, got %+v", backend.createdComs)
	}

	// The activity now carries the host review id.
	act.ReviewID = hostID
	act.Type = activity.TypeCharacterReview
	got := resolver.Load(context.Background(), act)
	if len(got) != 1 || got[0].ID != comment.ID {
		t.Fatalf("expected the posted comment from the review bucket, got %+v", got)
	}
	if backend.legacyCalls != 0 {
		t.Errorf("legacy store should not be consulted after the review exists")
	}
}

func TestPostWithExistingReviewSkipsCreation(t *testing.T) {
	backend := &fakeBackend{}
	resolver := NewResolver(backend, discard())

	act := activity.Activity{Type: activity.TypeMediaReview, UserID: 1, ItemID: 2, ReviewID: 40}
	if _, err := resolver.Post(context.Background(), act, "hello", 0); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(backend.createdReviews) != 0 {
		t.Errorf("no host review should be created when one exists")
	}
	if backend.createdComs[0].ReviewID != 40 {
		t.Errorf("comment posted against review %d, want 40", backend.createdComs[0].ReviewID)
	}
}

func TestPostReply(t *testing.T) {
	backend := &fakeBackend{}
	resolver := NewResolver(backend, discard())

	act := activity.Activity{Type: activity.TypeMediaReview, UserID: 1, ItemID: 2, ReviewID: 40}
	if _, err := resolver.Post(context.Background(), act, "a reply", 7); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if backend.createdComs[0].ParentCommentID != 7 {
		t.Errorf("expected parent_comment_id 7, got %d", backend.createdComs[0].ParentCommentID)
	}
}

func TestPostRejectsBlankText(t *testing.T) {
	backend := &fakeBackend{}
	resolver := NewResolver(backend, discard())

	act := activity.Activity{Type: activity.TypeMediaReview, UserID: 1, ItemID: 2, ReviewID: 40}
	if _, err := resolver.Post(context.Background(), act, "   \n", 0); err == nil {
		t.Fatal("expected error for blank text")
	}
	if len(backend.createdComs) != 0 || len(backend.createdReviews) != 0 {
		t.Error("no request should be issued for blank text")
	}
}

func TestPostPropagatesCreateReviewError(t *testing.T) {
	backend := &fakeBackend{createReviewErr: fmt.Errorf("backend down")}
	resolver := NewResolver(backend, discard())

	act := activity.Activity{Type: activity.TypeMediaRating, UserID: 1, ItemID: 2}
	if _, err := resolver.Post(context.Background(), act, "text", 0); err == nil {
		t.Fatal("expected error to propagate for retry")
	}
}

func TestDeleteTargetsReviewStore(t *testing.T) {
	backend := &fakeBackend{}
	resolver := NewResolver(backend, discard())

	if err := resolver.Delete(context.Background(), 55); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(backend.deleted) != 1 || backend.deleted[0] != 55 {
		t.Errorf("expected review-store delete of 55, got %v", backend.deleted)
	}
}
