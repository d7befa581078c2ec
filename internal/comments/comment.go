package comments

import "time"

// Comment is a single comment on a review (or, via the legacy store, on an
// activity). Top-level comments carry their direct replies; a flat page is
// nested by Nest before it reaches callers.
type Comment struct {
	ID              int64     `json:"id"`
	ReviewID        int64     `json:"review_id,omitempty"`
	UserID          int64     `json:"user_id"`
	Username        string    `json:"username,omitempty"`
	Content         string    `json:"content"`
	ParentCommentID int64     `json:"parent_comment_id,omitempty"`
	CreatedAt       time.Time `json:"created_at"`
	Replies         []Comment `json:"replies,omitempty"`
}

// Nest converts a flat comment page into a nested one. If any comment
// already carries replies the page is assumed nested and returned as-is,
// making the conversion idempotent. Replies whose parent is not in this
// page are kept as top-level entries rather than dropped.
func Nest(flat []Comment) []Comment {
	for _, c := range flat {
		if len(c.Replies) > 0 {
			return flat
		}
	}

	byID := make(map[int64]*Comment, len(flat))
	ordered := make([]*Comment, 0, len(flat))
	for i := range flat {
		c := flat[i]
		c.Replies = nil
		ordered = append(ordered, &c)
		if c.ID != 0 {
			byID[c.ID] = ordered[len(ordered)-1]
		}
	}

	roots := make([]Comment, 0, len(ordered))
	// Two passes: attach replies first so a parent appearing after its
	// reply in the page still collects it.
	for _, c := range ordered {
		if c.ParentCommentID == 0 {
			continue
		}
		if parent, ok := byID[c.ParentCommentID]; ok && parent != c {
			parent.Replies = append(parent.Replies, *c)
		}
	}
	for _, c := range ordered {
		if c.ParentCommentID == 0 {
			roots = append(roots, *c)
			continue
		}
		if _, ok := byID[c.ParentCommentID]; !ok {
			// Orphaned reply: parent not in this page.
			roots = append(roots, *c)
		}
	}

	return roots
}
