package models

import (
	"encoding/json"

	"chatsock/backend/internal/conversation"
)

// InboxEntry is one ranked conversation in a user's inbox.
// Timestamp is the score in epoch milliseconds.
type InboxEntry struct {
	Type      conversation.Kind `json:"type"`
	ID        int64             `json:"id"`
	Latest    *MessageView      `json:"latest"`
	Timestamp int64             `json:"timestamp"`
}

// PreviewEntry is an inbox entry decorated with its latest message and the
// topic or user profile. The profile is emitted under the "topic" or "user" key.
type PreviewEntry struct {
	Type      conversation.Kind
	ID        int64
	Latest    *MessageView
	Timestamp Timestamp
	Profile   *Profile
}

func (p PreviewEntry) MarshalJSON() ([]byte, error) {
	out := map[string]any{
		"type":      p.Type,
		"id":        p.ID,
		"latest":    p.Latest,
		"timestamp": p.Timestamp,
	}
	out[string(p.Type)] = p.Profile
	return json.Marshal(out)
}

// PageState describes a paginated read.
type PageState struct {
	Key        string `json:"key"`
	Page       int    `json:"page"`
	PerPage    int    `json:"per_page"`
	Total      int    `json:"total"`
	TotalPages int    `json:"total_pages"`
}

// TotalPages is ceil(total/perPage), never below 1.
func TotalPages(total, perPage int) int {
	if perPage <= 0 || total <= 0 {
		return 1
	}
	return (total + perPage - 1) / perPage
}
