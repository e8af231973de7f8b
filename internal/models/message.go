package models

import (
	"time"

	"chatsock/backend/internal/apperr"

	"github.com/google/uuid"
)

type MessageType string

const (
	TextMessage  MessageType = "text"
	ImageMessage MessageType = "image"
)

// StatusSeen is the only delivery status a client can set.
const StatusSeen = "seen"

// Message is the stored form of a chat message.
type Message struct {
	ID        string      `json:"id"`
	Author    int64       `json:"author"`
	Timestamp time.Time   `json:"timestamp"`
	Type      MessageType `json:"type"`
	Text      string      `json:"text,omitempty"`
	Image     string      `json:"image,omitempty"`
	Status    string      `json:"status,omitempty"`
}

// Draft is the client payload for a new message.
type Draft struct {
	Type  MessageType `json:"type"`
	Text  string      `json:"text"`
	Image string      `json:"image"`
}

// Validate checks that the type is known and its payload field is set.
func (d Draft) Validate() error {
	switch d.Type {
	case TextMessage:
		if d.Text == "" {
			return apperr.Argument("", "Missing text property for text-message")
		}
	case ImageMessage:
		if d.Image == "" {
			return apperr.Argument("", "Missing image property for image-message")
		}
	default:
		return apperr.InvalidType(string(d.Type))
	}
	return nil
}

// Message builds a new message authored by author at the given instant.
// The instant is kept in UTC with millisecond precision.
func (d Draft) Message(author int64, at time.Time) Message {
	m := Message{
		ID:        uuid.NewString(),
		Author:    author,
		Timestamp: at.UTC().Truncate(time.Millisecond),
		Type:      d.Type,
	}
	switch d.Type {
	case TextMessage:
		m.Text = d.Text
	case ImageMessage:
		m.Image = d.Image
	}
	return m
}

// Patch is a partial update sent by the author.
type Patch struct {
	Status string `json:"status"`
	Text   string `json:"text"`
	Image  string `json:"image"`
}

// Apply merges p into m and reports whether any field actually changed.
// Status only accepts "seen"; text and image only apply to messages of that type.
func (m *Message) Apply(p Patch) bool {
	changed := false
	if p.Status == StatusSeen && m.Status != StatusSeen {
		m.Status = StatusSeen
		changed = true
	}
	switch m.Type {
	case TextMessage:
		if p.Text != "" && p.Text != m.Text {
			m.Text = p.Text
			changed = true
		}
	case ImageMessage:
		if p.Image != "" && p.Image != m.Image {
			m.Image = p.Image
			changed = true
		}
	}
	return changed
}

// Timestamp renders one instant as epoch milliseconds and an ISO-8601 string.
type Timestamp struct {
	Epoch int64  `json:"epoch"`
	ISO   string `json:"iso"`
}

const isoMillis = "2006-01-02T15:04:05.000Z"

func NewTimestamp(t time.Time) Timestamp {
	t = t.UTC()
	return Timestamp{Epoch: t.UnixMilli(), ISO: t.Format(isoMillis)}
}

// TimestampFromMillis renders an inbox score.
func TimestampFromMillis(ms int64) Timestamp {
	return NewTimestamp(time.UnixMilli(ms))
}

// MessageView is a message as returned to clients. Author is either the raw
// user id or the resolved *Profile (nil when the directory had no match).
type MessageView struct {
	ID        string      `json:"id"`
	Author    any         `json:"author"`
	Timestamp Timestamp   `json:"timestamp"`
	Type      MessageType `json:"type"`
	Text      string      `json:"text,omitempty"`
	Image     string      `json:"image,omitempty"`
	Status    string      `json:"status,omitempty"`
}

func (m Message) View() MessageView {
	return MessageView{
		ID:        m.ID,
		Author:    m.Author,
		Timestamp: NewTimestamp(m.Timestamp),
		Type:      m.Type,
		Text:      m.Text,
		Image:     m.Image,
		Status:    m.Status,
	}
}

// WithAuthor replaces the author id by its profile.
func (v MessageView) WithAuthor(p *Profile) MessageView {
	v.Author = p
	return v
}
