// Package activity defines the canonical activity model and the rules for
// deriving an activity's logical type and stable key from the loosely-typed
// rating/review records the backend returns. Records are normalized once at
// the API boundary; everything downstream works with Activity values.
package activity

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"
)

// FlexID is an identifier that arrives either as a JSON number (a
// persisted row id) or as a string (a synthetic client-side id such as
// "my-activity-42"). Only a JSON number counts as numeric; a backend that
// started returning numeric strings would make those ids synthetic too.
type FlexID struct {
	num   int64
	str   string
	isNum bool
	set   bool
}

// NumericID returns a FlexID holding a persisted row id.
func NumericID(n int64) FlexID {
	return FlexID{num: n, isNum: true, set: true}
}

// SyntheticID returns a FlexID holding a client-side string id.
func SyntheticID(s string) FlexID {
	return FlexID{str: s, set: true}
}

// Numeric returns the row id and true if the id is a JSON number.
func (id FlexID) Numeric() (int64, bool) {
	return id.num, id.isNum
}

// IsZero reports whether the id was absent from the record.
func (id FlexID) IsZero() bool { return !id.set }

func (id FlexID) String() string {
	if id.isNum {
		return strconv.FormatInt(id.num, 10)
	}
	return id.str
}

func (id *FlexID) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if len(b) == 0 || string(b) == "null" {
		*id = FlexID{}
		return nil
	}
	if b[0] == '"' {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return fmt.Errorf("unmarshal id string: %w", err)
		}
		*id = SyntheticID(s)
		return nil
	}
	var n int64
	if err := json.Unmarshal(b, &n); err != nil {
		return fmt.Errorf("unmarshal id number: %w", err)
	}
	*id = NumericID(n)
	return nil
}

func (id FlexID) MarshalJSON() ([]byte, error) {
	if !id.set {
		return []byte("null"), nil
	}
	if id.isNum {
		return json.Marshal(id.num)
	}
	return json.Marshal(id.str)
}

// Record is a raw activity record as returned by the backend. Different
// origin endpoints name the same field differently (user_id vs userId,
// character_id vs characterId), so every variant is kept and resolved by
// the accessor methods below.
type Record struct {
	ActivityType string `json:"activity_type,omitempty"`
	ID           FlexID `json:"id,omitempty"`

	UserID      *int64 `json:"user_id,omitempty"`
	UserIDAlt   *int64 `json:"userId,omitempty"`
	ItemID      *int64 `json:"item_id,omitempty"`
	CharacterID *int64 `json:"character_id,omitempty"`
	CharIDAlt   *int64 `json:"characterId,omitempty"`
	AnimeID     *int64 `json:"anime_id,omitempty"`
	AnimeIDAlt  *int64 `json:"animeId,omitempty"`

	ReviewID    *int64 `json:"review_id,omitempty"`
	ReviewIDAlt *int64 `json:"reviewId,omitempty"`

	Content       string `json:"content,omitempty"`
	ReviewContent string `json:"review_content,omitempty"`
	Title         string `json:"title,omitempty"`
	IsSpoiler     bool   `json:"is_spoiler,omitempty"`

	Score         int    `json:"score,omitempty"`
	LikesCount    int    `json:"likes_count,omitempty"`
	CommentsCount int    `json:"comments_count,omitempty"`
	Liked         bool   `json:"liked,omitempty"`
	CreatedAt     string `json:"created_at,omitempty"`
}

func first(ptrs ...*int64) (int64, bool) {
	for _, p := range ptrs {
		if p != nil {
			return *p, true
		}
	}
	return 0, false
}

func (r Record) userID() (int64, bool) {
	return first(r.UserID, r.UserIDAlt)
}

// itemID resolves the item-identifying field, falling back through the
// naming variants in priority order.
func (r Record) itemID() (int64, bool) {
	return first(r.ItemID, r.CharacterID, r.CharIDAlt, r.AnimeID, r.AnimeIDAlt)
}

func (r Record) reviewID() (int64, bool) {
	return first(r.ReviewID, r.ReviewIDAlt)
}

func (r Record) hasCharacterField() bool {
	return r.CharacterID != nil || r.CharIDAlt != nil
}

func (r Record) reviewText() string {
	if r.Content != "" {
		return r.Content
	}
	return r.ReviewContent
}

// Classify derives the activity type of a raw record. Feed-sourced records
// already carry an explicit activity_type and it is trusted as long as it
// names a known type; otherwise the type is derived from the item kind and
// the presence of review content or a positive review id.
func Classify(r Record) Type {
	if t := Type(r.ActivityType); t.Valid() {
		return t
	}

	kind := KindMedia
	if r.hasCharacterField() {
		kind = KindCharacter
	}

	hasReview := strings.TrimSpace(r.reviewText()) != ""
	if !hasReview {
		if id, ok := r.reviewID(); ok && id > 0 {
			hasReview = true
		}
	}

	return TypeFor(kind, hasReview)
}

// Key derives the stable deduplication key "{type}_{userId}_{itemId}" for
// a raw record. Missing identifying fields produce the literal placeholder
// "undefined" rather than an error.
func Key(r Record) string {
	user, userOK := r.userID()
	item, itemOK := r.itemID()
	return BuildKey(Classify(r), user, userOK, item, itemOK)
}

// IsRatingOnly reports whether the record is a bare rating with no review
// row behind it: neither a positive review id nor a positive numeric row
// id is present. Synthetic string ids never count as persisted rows.
func IsRatingOnly(r Record) bool {
	if id, ok := r.reviewID(); ok && id > 0 {
		return false
	}
	if id, ok := r.ID.Numeric(); ok && id > 0 {
		return false
	}
	return true
}

// Activity is the canonical, normalized view of a rating or rating+review
// entry. It is materialized from raw records on each fetch and never
// cached as a canonical object.
type Activity struct {
	Type     Type
	ID       FlexID
	UserID   int64
	ItemID   int64
	ReviewID int64

	// Review payload, meaningful only when ReviewID is set. A positive
	// ReviewID with empty Content is a review shell created solely to
	// host a comment thread.
	Content   string
	Title     string
	IsSpoiler bool

	Score         int
	LikesCount    int
	CommentsCount int
	Liked         bool
	CreatedAt     time.Time
}

// Key returns the stable deduplication key of the activity.
func (a Activity) Key() string {
	return BuildKey(a.Type, a.UserID, a.UserID != 0, a.ItemID, a.ItemID != 0)
}

// Normalize converts a raw record into the canonical Activity shape. All
// field-name variants are resolved here so downstream code never re-derives
// identity from ambiguous fields.
func Normalize(r Record) Activity {
	user, _ := r.userID()
	item, _ := r.itemID()

	a := Activity{
		Type:          Classify(r),
		ID:            r.ID,
		UserID:        user,
		ItemID:        item,
		Content:       r.reviewText(),
		Title:         r.Title,
		IsSpoiler:     r.IsSpoiler,
		Score:         r.Score,
		LikesCount:    r.LikesCount,
		CommentsCount: r.CommentsCount,
		Liked:         r.Liked,
	}

	if id, ok := r.reviewID(); ok && id > 0 {
		a.ReviewID = id
	}
	if r.CreatedAt != "" {
		if ts, err := time.Parse(time.RFC3339, r.CreatedAt); err == nil {
			a.CreatedAt = ts
		}
	}

	return a
}
