package activity

import "fmt"

// Kind is the kind of catalogue item an activity is about.
type Kind int

const (
	KindMedia Kind = iota
	KindCharacter
)

// String returns the wire name of the kind ("media" or "character").
func (k Kind) String() string {
	switch k {
	case KindCharacter:
		return "character"
	default:
		return "media"
	}
}

// Type is the logical type of an activity. It is derived from the
// underlying rating/review rows, never stored on them.
type Type string

const (
	TypeMediaRating     Type = "media_rating"
	TypeMediaReview     Type = "media_review"
	TypeCharacterRating Type = "character_rating"
	TypeCharacterReview Type = "character_review"
)

// Valid reports whether t is one of the four known activity types.
func (t Type) Valid() bool {
	switch t {
	case TypeMediaRating, TypeMediaReview, TypeCharacterRating, TypeCharacterReview:
		return true
	}
	return false
}

// Kind returns the item kind of the activity type.
func (t Type) Kind() Kind {
	switch t {
	case TypeCharacterRating, TypeCharacterReview:
		return KindCharacter
	default:
		return KindMedia
	}
}

// HasReview reports whether the activity type carries a free-text review.
func (t Type) HasReview() bool {
	switch t {
	case TypeMediaReview, TypeCharacterReview:
		return true
	default:
		return false
	}
}

// TypeFor combines an item kind and review presence into an activity type.
func TypeFor(kind Kind, hasReview bool) Type {
	switch kind {
	case KindCharacter:
		if hasReview {
			return TypeCharacterReview
		}
		return TypeCharacterRating
	default:
		if hasReview {
			return TypeMediaReview
		}
		return TypeMediaRating
	}
}

// undefinedField stands in for a missing identifying field. Keys built
// from records missing user or item ids are degenerate and are never
// deduplicated correctly, but key derivation must not fail.
const undefinedField = "undefined"

func keyPart(id int64, ok bool) string {
	if !ok {
		return undefinedField
	}
	return fmt.Sprintf("%d", id)
}

// BuildKey assembles the stable activity key "{type}_{user}_{item}".
// Note the type changes from *_rating to *_review once a review is created
// for the rating, which intentionally changes the key.
func BuildKey(t Type, userID int64, userOK bool, itemID int64, itemOK bool) string {
	return fmt.Sprintf("%s_%s_%s", t, keyPart(userID, userOK), keyPart(itemID, itemOK))
}
