package types

import "time"

// RoomInfo is a read-only snapshot of a room, consumed by the status
// endpoints. It never aliases live room state.
type RoomInfo struct {
	Id           string    `json:"id"`
	UserCount    int       `json:"user_count"`
	CreatedAt    time.Time `json:"created_at"`
	HasContent   bool      `json:"has_content"`
	ChatMessages int       `json:"chat_messages"`
}
