// Package api implements the REST client for the catalogue backend. It is
// the only place raw activity records are seen; every fetched record is
// normalized into the canonical activity shape before being returned.
package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/mkobayashi/anilog/internal/activity"
	"github.com/mkobayashi/anilog/internal/comments"
)

// HTTPClient is the interface the client uses to execute requests. It
// allows injecting a fake transport in tests.
type HTTPClient interface {
	Do(req *http.Request) (*http.Response, error)
}

// ClientOption configures the Client.
type ClientOption func(*Client)

// WithHTTPClient sets a custom HTTP client.
func WithHTTPClient(httpClient HTTPClient) ClientOption {
	return func(c *Client) {
		c.httpClient = httpClient
	}
}

// WithToken sets the bearer token sent on every request.
func WithToken(token string) ClientOption {
	return func(c *Client) {
		c.token = token
	}
}

// Client is the catalogue backend API client.
type Client struct {
	baseURL    string
	token      string
	httpClient HTTPClient
}

// NewClient creates a new API client for the given base URL.
func NewClient(baseURL string, opts ...ClientOption) *Client {
	c := &Client{
		baseURL: baseURL,
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// APIError is a non-2xx response from the backend.
type APIError struct {
	Status int
	Body   string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("API error (status %d): %s", e.Status, e.Body)
}

// ActivityQuery filters the activities endpoint.
type ActivityQuery struct {
	Type          activity.Type
	UserID        int64
	ItemID        int64
	FollowingOnly bool
	Limit         int
	Offset        int
}

// Page is one page of the activities endpoint.
type Page struct {
	Items []activity.Activity
	Total int
}

// Activities fetches one page of activity records matching the query and
// normalizes each record on receipt.
func (c *Client) Activities(ctx context.Context, q ActivityQuery) (*Page, error) {
	params := url.Values{}
	if q.Type != "" {
		params.Set("activity_type", string(q.Type))
	}
	if q.UserID > 0 {
		params.Set("user_id", strconv.FormatInt(q.UserID, 10))
	}
	if q.ItemID > 0 {
		params.Set("item_id", strconv.FormatInt(q.ItemID, 10))
	}
	if q.FollowingOnly {
		params.Set("following_only", "true")
	}
	if q.Limit > 0 {
		params.Set("limit", strconv.Itoa(q.Limit))
	}
	params.Set("offset", strconv.Itoa(q.Offset))

	var resp struct {
		Items []activity.Record `json:"items"`
		Total int               `json:"total"`
	}
	if err := c.get(ctx, "/activities?"+params.Encode(), &resp); err != nil {
		return nil, fmt.Errorf("fetch activities: %w", err)
	}

	page := &Page{
		Items: make([]activity.Activity, 0, len(resp.Items)),
		Total: resp.Total,
	}
	for _, r := range resp.Items {
		page.Items = append(page.Items, activity.Normalize(r))
	}
	return page, nil
}

// ReviewComments fetches the comments owned by a review.
func (c *Client) ReviewComments(ctx context.Context, reviewID int64, kind activity.Kind) ([]comments.Comment, error) {
	params := url.Values{}
	params.Set("review_id", strconv.FormatInt(reviewID, 10))
	params.Set("review_type", kind.String())

	var resp struct {
		Items []comments.Comment `json:"items"`
	}
	if err := c.get(ctx, "/reviews/comments?"+params.Encode(), &resp); err != nil {
		return nil, fmt.Errorf("fetch review comments: %w", err)
	}
	return resp.Items, nil
}

// ActivityComments fetches comments from the legacy activity-scoped store
// keyed by type, user and item. Fallback path only; it has no delete.
func (c *Client) ActivityComments(ctx context.Context, typ activity.Type, userID, itemID int64) ([]comments.Comment, error) {
	params := url.Values{}
	params.Set("activity_type", string(typ))
	params.Set("user_id", strconv.FormatInt(userID, 10))
	params.Set("item_id", strconv.FormatInt(itemID, 10))

	var resp struct {
		Items []comments.Comment `json:"items"`
	}
	if err := c.get(ctx, "/activities/comments?"+params.Encode(), &resp); err != nil {
		return nil, fmt.Errorf("fetch activity comments: %w", err)
	}
	return resp.Items, nil
}

// CreateReviewComment posts a comment against a review.
func (c *Client) CreateReviewComment(ctx context.Context, req comments.CreateCommentRequest) (*comments.Comment, error) {
	var created comments.Comment
	if err := c.post(ctx, "/reviews/comments", req, &created); err != nil {
		return nil, fmt.Errorf("create review comment: %w", err)
	}
	return &created, nil
}

// DeleteReviewComment removes a review comment by id.
func (c *Client) DeleteReviewComment(ctx context.Context, commentID int64) error {
	if err := c.del(ctx, fmt.Sprintf("/reviews/comments/%d", commentID)); err != nil {
		return fmt.Errorf("delete review comment: %w", err)
	}
	return nil
}

// CreateReviewRequest is the body for creating a review. Content may be
// empty: a zero-content review is the host object for a comment thread on
// a bare rating.
type CreateReviewRequest struct {
	Content   string  `json:"content"`
	Title     *string `json:"title"`
	IsSpoiler bool    `json:"is_spoiler"`
}

// CreateReview creates a review for the given item. Media and character
// reviews live on distinct endpoint paths.
func (c *Client) CreateReview(ctx context.Context, kind activity.Kind, itemID int64, req CreateReviewRequest) (*activity.Review, error) {
	path := fmt.Sprintf("/animes/%d/reviews", itemID)
	if kind == activity.KindCharacter {
		path = fmt.Sprintf("/characters/%d/reviews", itemID)
	}

	var review activity.Review
	if err := c.post(ctx, path, req, &review); err != nil {
		return nil, fmt.Errorf("create %s review: %w", kind, err)
	}
	return &review, nil
}

// CreateEmptyReview materializes a zero-content review shell for an item
// and returns its id. Comment threads are anchored to reviews, so a
// comment on a bare rating needs this host object first.
func (c *Client) CreateEmptyReview(ctx context.Context, kind activity.Kind, itemID int64) (int64, error) {
	review, err := c.CreateReview(ctx, kind, itemID, CreateReviewRequest{
		Content:   "",
		Title:     nil,
		IsSpoiler: false,
	})
	if err != nil {
		return 0, err
	}
	return review.ID, nil
}

// LikeResult is the backend's reconciled like state after a toggle.
type LikeResult struct {
	Liked      bool `json:"liked"`
	LikesCount int  `json:"likes_count"`
}

// ToggleLike toggles the caller's like on an activity and returns the
// server's reconciled state.
func (c *Client) ToggleLike(ctx context.Context, activityID int64) (*LikeResult, error) {
	var result LikeResult
	if err := c.post(ctx, fmt.Sprintf("/activities/%d/like", activityID), nil, &result); err != nil {
		return nil, fmt.Errorf("toggle like: %w", err)
	}
	return &result, nil
}

// Media fetches a media detail entry.
func (c *Client) Media(ctx context.Context, id int64) (*activity.Media, error) {
	var m activity.Media
	if err := c.get(ctx, fmt.Sprintf("/animes/%d", id), &m); err != nil {
		return nil, fmt.Errorf("fetch media: %w", err)
	}
	return &m, nil
}

// Character fetches a character detail entry.
func (c *Client) Character(ctx context.Context, id int64) (*activity.Character, error) {
	var ch activity.Character
	if err := c.get(ctx, fmt.Sprintf("/characters/%d", id), &ch); err != nil {
		return nil, fmt.Errorf("fetch character: %w", err)
	}
	return &ch, nil
}

// MyMediaRating fetches the caller's rating for a media entry.
func (c *Client) MyMediaRating(ctx context.Context, mediaID int64) (*activity.Rating, error) {
	var r activity.Rating
	if err := c.get(ctx, fmt.Sprintf("/animes/%d/my-rating", mediaID), &r); err != nil {
		return nil, fmt.Errorf("fetch my rating: %w", err)
	}
	return &r, nil
}

// MyMediaReview fetches the caller's review for a media entry.
func (c *Client) MyMediaReview(ctx context.Context, mediaID int64) (*activity.Review, error) {
	var r activity.Review
	if err := c.get(ctx, fmt.Sprintf("/animes/%d/my-review", mediaID), &r); err != nil {
		return nil, fmt.Errorf("fetch my review: %w", err)
	}
	return &r, nil
}

// CharacterReviews fetches the reviews of a character.
func (c *Client) CharacterReviews(ctx context.Context, characterID int64) ([]activity.Review, error) {
	var resp struct {
		Items []activity.Review `json:"items"`
	}
	if err := c.get(ctx, fmt.Sprintf("/characters/%d/reviews", characterID), &resp); err != nil {
		return nil, fmt.Errorf("fetch character reviews: %w", err)
	}
	return resp.Items, nil
}

// MyCharacterReview fetches the caller's review for a character.
func (c *Client) MyCharacterReview(ctx context.Context, characterID int64) (*activity.Review, error) {
	var r activity.Review
	if err := c.get(ctx, fmt.Sprintf("/characters/%d/my-review", characterID), &r); err != nil {
		return nil, fmt.Errorf("fetch my character review: %w", err)
	}
	return &r, nil
}

func (c *Client) get(ctx context.Context, path string, result any) error {
	return c.do(ctx, http.MethodGet, path, nil, result)
}

func (c *Client) post(ctx context.Context, path string, body any, result any) error {
	return c.do(ctx, http.MethodPost, path, body, result)
}

func (c *Client) del(ctx context.Context, path string) error {
	return c.do(ctx, http.MethodDelete, path, nil, nil)
}

func (c *Client) do(ctx context.Context, method, path string, body any, result any) error {
	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("marshal request: %w", err)
		}
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("send request: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("read response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return &APIError{Status: resp.StatusCode, Body: string(respBody)}
	}

	if result != nil && len(respBody) > 0 {
		if err := json.Unmarshal(respBody, result); err != nil {
			return fmt.Errorf("unmarshal response: %w", err)
		}
	}

	return nil
}
