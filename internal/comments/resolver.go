// Package comments resolves which backend bucket owns an activity's comment
// thread and performs comment I/O against it. Comments live in a
// review-scoped store; activities that predate reviews fall back to a
// legacy activity-scoped store on fetch.
package comments

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/mkobayashi/anilog/internal/activity"
)

// Resolver routes comment operations to the owning comment bucket.
type Resolver struct {
	backend Backend
	logger  *slog.Logger
}

// NewResolver creates a Resolver over the given backend.
func NewResolver(backend Backend, logger *slog.Logger) *Resolver {
	return &Resolver{
		backend: backend,
		logger:  logger,
	}
}

// resolveReviewID returns the review id owning the activity's comments:
// the activity's review id, or its own row id when that id is a positive
// number. Synthetic client-side ids are strings and never qualify.
func resolveReviewID(act activity.Activity) (int64, bool) {
	if act.ReviewID > 0 {
		return act.ReviewID, true
	}
	if id, ok := act.ID.Numeric(); ok && id > 0 {
		return id, true
	}
	return 0, false
}

// Load fetches the activity's comment thread, nested one level. The
// review-scoped store is tried first; on failure or when no review id can
// be resolved, the legacy activity-scoped store is used. If both fail the
// result is an empty list, never an error, so the feed always renders.
func (r *Resolver) Load(ctx context.Context, act activity.Activity) []Comment {
	if reviewID, ok := resolveReviewID(act); ok {
		list, err := r.backend.ReviewComments(ctx, reviewID, act.Type.Kind())
		if err == nil {
			return Nest(list)
		}
		r.logger.Warn("review comments fetch failed, falling back to legacy store",
			"review_id", reviewID,
			"activity_key", act.Key(),
			"error", err,
		)
	}

	list, err := r.backend.ActivityComments(ctx, act.Type, act.UserID, act.ItemID)
	if err != nil {
		r.logger.Error("legacy comments fetch failed",
			"activity_key", act.Key(),
			"error", err,
		)
		return []Comment{}
	}
	return Nest(list)
}

// Post adds a comment to the activity's thread, as a top-level comment or
// as a reply when parentID is non-zero. A rating-only activity has no
// review to anchor the comment to, so an empty review shell is created
// first and its id adopted. Two rapid submissions can create two shells;
// no idempotency key is used. Errors are returned to the caller so the UI
// can offer a retry.
func (r *Resolver) Post(ctx context.Context, act activity.Activity, text string, parentID int64) (*Comment, error) {
	if strings.TrimSpace(text) == "" {
		return nil, fmt.Errorf("comment text is empty")
	}

	kind := act.Type.Kind()
	reviewID, ok := resolveReviewID(act)
	if !ok {
		created, err := r.backend.CreateEmptyReview(ctx, kind, act.ItemID)
		if err != nil {
			return nil, fmt.Errorf("create host review: %w", err)
		}
		r.logger.Info("created empty host review for comment thread",
			"review_id", created,
			"activity_key", act.Key(),
		)
		reviewID = created
	}

	comment, err := r.backend.CreateReviewComment(ctx, CreateCommentRequest{
		ReviewID:        reviewID,
		ReviewType:      kind.String(),
		Content:         text,
		ParentCommentID: parentID,
	})
	if err != nil {
		return nil, fmt.Errorf("post comment: %w", err)
	}
	return comment, nil
}

// Delete removes a comment. Deletion always targets the review-scoped
// store; comments reachable only through the legacy fallback cannot be
// deleted here.
func (r *Resolver) Delete(ctx context.Context, commentID int64) error {
	return r.backend.DeleteReviewComment(ctx, commentID)
}
