package comments

import (
	"context"

	"github.com/mkobayashi/anilog/internal/activity"
)

// CreateCommentRequest is the body for creating a review comment.
type CreateCommentRequest struct {
	ReviewID        int64  `json:"review_id"`
	ReviewType      string `json:"review_type"`
	Content         string `json:"content"`
	ParentCommentID int64  `json:"parent_comment_id,omitempty"`
}

// ReviewCommentStore is the review-scoped comment backend, keyed by review
// id and review type.
type ReviewCommentStore interface {
	ReviewComments(ctx context.Context, reviewID int64, kind activity.Kind) ([]Comment, error)
	CreateReviewComment(ctx context.Context, req CreateCommentRequest) (*Comment, error)
	DeleteReviewComment(ctx context.Context, commentID int64) error
}

// LegacyCommentStore is the activity-scoped comment backend, keyed by
// activity type, user and item. Fetch only; it has no delete path.
type LegacyCommentStore interface {
	ActivityComments(ctx context.Context, typ activity.Type, userID, itemID int64) ([]Comment, error)
}

// ReviewCreator provisions the empty review shell that hosts a comment
// thread on a bare rating.
type ReviewCreator interface {
	CreateEmptyReview(ctx context.Context, kind activity.Kind, itemID int64) (int64, error)
}

// Backend bundles the three collaborator ports. The API client implements
// all of them.
type Backend interface {
	ReviewCommentStore
	LegacyCommentStore
	ReviewCreator
}
