package models

import (
	"encoding/json"
	"time"
)

// Live message types.
const (
	MessageEntryStats  = "ENTRY_STATS"
	MessageEntryRemove = "ENTRY_REMOVED"
	MessageLeaderboard = "LEADERBOARD"
)

// LiveMessage is pushed to websocket and SSE subscribers.
type LiveMessage struct {
	Type      string    `json:"type"`
	EntryID   string    `json:"entry_id,omitempty"`
	Payload   any       `json:"payload,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

// ToJSON encodes the message.
func (m *LiveMessage) ToJSON() ([]byte, error) {
	return json.Marshal(m)
}
