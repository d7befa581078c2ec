package activity

import "time"

// Rating is a persisted rating row.
type Rating struct {
	ID          int64     `json:"id"`
	UserID      int64     `json:"user_id"`
	AnimeID     int64     `json:"anime_id,omitempty"`
	CharacterID int64     `json:"character_id,omitempty"`
	Score       int       `json:"score"`
	CreatedAt   time.Time `json:"created_at"`
}

// Review is a persisted review row. Content may be empty for a review
// shell that exists only to host comments.
type Review struct {
	ID          int64     `json:"id"`
	UserID      int64     `json:"user_id"`
	AnimeID     int64     `json:"anime_id,omitempty"`
	CharacterID int64     `json:"character_id,omitempty"`
	Content     string    `json:"content"`
	Title       string    `json:"title,omitempty"`
	IsSpoiler   bool      `json:"is_spoiler"`
	LikesCount  int       `json:"likes_count"`
	CreatedAt   time.Time `json:"created_at"`
}

// Media is a catalogue media entry (an anime).
type Media struct {
	ID       int64   `json:"id"`
	Title    string  `json:"title"`
	Synopsis string  `json:"synopsis,omitempty"`
	Episodes int     `json:"episodes,omitempty"`
	CoverURL string  `json:"cover_url,omitempty"`
	Score    float64 `json:"score,omitempty"`
}

// Character is a catalogue character entry.
type Character struct {
	ID        int64  `json:"id"`
	Name      string `json:"name"`
	About     string `json:"about,omitempty"`
	ImageURL  string `json:"image_url,omitempty"`
	Favorites int    `json:"favorites,omitempty"`
}
