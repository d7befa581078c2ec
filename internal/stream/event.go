package stream

import (
	"encoding/json"
	"fmt"

	"github.com/mkobayashi/anilog/internal/activity"
)

// Event kinds emitted by the backend's activity stream.
const (
	kindActivityCreated = "activity.created"
	kindActivityDeleted = "activity.deleted"
)

// event is the raw JSON structure of one stream message. Cursor is a
// monotonically increasing position used to resume after a reconnect.
type event struct {
	Cursor int64            `json:"cursor"`
	Kind   string           `json:"kind"`
	Record *activity.Record `json:"activity,omitempty"`
}

func parseEvent(data []byte) (*event, error) {
	var ev event
	if err := json.Unmarshal(data, &ev); err != nil {
		return nil, fmt.Errorf("unmarshal event: %w", err)
	}
	return &ev, nil
}
