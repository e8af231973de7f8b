package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// MessageRecord is the archived copy of a message in PostgreSQL.
// The embedded gorm.Model supplies the row id, bookkeeping timestamps and
// the soft-delete column used when a message is removed.
type MessageRecord struct {
	gorm.Model

	// MessageID is the id the message has in the live store.
	MessageID string `gorm:"type:text;not null;uniqueIndex"`
	// ConversationKey is the resolved conversation the message belongs to.
	ConversationKey string    `gorm:"type:text;not null;index:idx_conv_sent"`
	AuthorID        int64     `gorm:"not null;index"`
	Type            string    `gorm:"type:text;not null"`
	Text            string    `gorm:"type:text"`
	Image           string    `gorm:"type:text"`
	Status          string    `gorm:"type:text"`
	SentAt          time.Time `gorm:"not null;index:idx_conv_sent"`
}

// NewMessageRecord copies a stored message into its archive row.
func NewMessageRecord(key string, m Message) *MessageRecord {
	return &MessageRecord{
		MessageID:       m.ID,
		ConversationKey: key,
		AuthorID:        m.Author,
		Type:            string(m.Type),
		Text:            m.Text,
		Image:           m.Image,
		Status:          m.Status,
		SentAt:          m.Timestamp,
	}
}

// BeforeCreate fills in a message id for rows written without one.
func (r *MessageRecord) BeforeCreate(tx *gorm.DB) (err error) {
	if r.MessageID == "" {
		r.MessageID = uuid.New().String()
	}
	if r.SentAt.IsZero() {
		r.SentAt = time.Now().UTC()
	}
	return
}
