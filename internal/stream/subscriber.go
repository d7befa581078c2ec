// Package stream subscribes to the backend's live activity feed over a
// websocket and pushes incoming events into the feed. It reconnects on
// transient errors and resumes from a persisted cursor.
package stream

import (
	"context"
	"fmt"
	"log/slog"
	"net/url"
	"strconv"
	"time"

	"github.com/gorilla/websocket"

	"github.com/mkobayashi/anilog/internal/activity"
)

const (
	cursorServiceName  = "activity-stream"
	cursorSaveInterval = 5 * time.Second
	reconnectBackoff   = 5 * time.Second
)

// Handler receives normalized activity events.
type Handler interface {
	ActivityCreated(act activity.Activity)
	ActivityDeleted(key string)
}

// CursorStore persists the stream position between runs.
type CursorStore interface {
	Cursor(ctx context.Context, service string) (int64, error)
	SetCursor(ctx context.Context, service string, cursor int64) error
}

// Subscriber connects to the activity stream and dispatches events.
type Subscriber struct {
	url     string
	handler Handler
	cursors CursorStore
	logger  *slog.Logger
}

// NewSubscriber creates a new stream subscriber.
func NewSubscriber(streamURL string, handler Handler, cursors CursorStore, logger *slog.Logger) *Subscriber {
	return &Subscriber{
		url:     streamURL,
		handler: handler,
		cursors: cursors,
		logger:  logger,
	}
}

// Start connects to the stream and processes events until the context is
// cancelled. It automatically reconnects on transient errors.
func (s *Subscriber) Start(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
			if err := s.subscribe(ctx); err != nil {
				s.logger.Error("stream connection error, reconnecting", "error", err)
				select {
				case <-ctx.Done():
					return ctx.Err()
				case <-time.After(reconnectBackoff):
				}
			}
		}
	}
}

func (s *Subscriber) buildURL(cursor int64) string {
	u, _ := url.Parse(s.url)
	q := u.Query()
	if cursor > 0 {
		q.Set("cursor", strconv.FormatInt(cursor, 10))
	}
	u.RawQuery = q.Encode()
	return u.String()
}

func (s *Subscriber) subscribe(ctx context.Context) error {
	cursor, err := s.cursors.Cursor(ctx, cursorServiceName)
	if err != nil {
		s.logger.Warn("failed to load stream cursor, starting from live", "error", err)
	}

	wsURL := s.buildURL(cursor)
	s.logger.Info("connecting to activity stream", "url", wsURL)

	conn, _, err := websocket.DefaultDialer.DialContext(ctx, wsURL, nil)
	if err != nil {
		return fmt.Errorf("dial stream: %w", err)
	}
	defer conn.Close()

	s.logger.Info("connected to activity stream")

	lastCursorSave := time.Now()
	var latestCursor int64

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		_, message, err := conn.ReadMessage()
		if err != nil {
			return fmt.Errorf("read message: %w", err)
		}

		ev, err := parseEvent(message)
		if err != nil {
			s.logger.Error("failed to parse stream event", "error", err)
			continue
		}
		latestCursor = ev.Cursor

		s.dispatch(ev)

		if time.Since(lastCursorSave) >= cursorSaveInterval {
			if err := s.cursors.SetCursor(ctx, cursorServiceName, latestCursor); err != nil {
				s.logger.Error("failed to save stream cursor", "error", err)
			} else {
				lastCursorSave = time.Now()
			}
		}
	}
}

func (s *Subscriber) dispatch(ev *event) {
	if ev.Record == nil {
		return
	}

	switch ev.Kind {
	case kindActivityCreated:
		s.handler.ActivityCreated(activity.Normalize(*ev.Record))
	case kindActivityDeleted:
		s.handler.ActivityDeleted(activity.Key(*ev.Record))
	default:
		s.logger.Debug("ignoring stream event", "kind", ev.Kind)
	}
}
