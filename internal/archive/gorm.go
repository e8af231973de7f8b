package archive

import (
	"context"
	"fmt"

	"chatsock/backend/internal/conversation"
	"chatsock/backend/internal/models"

	"go.uber.org/zap"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

// GormStore writes archive rows through gorm.
type GormStore struct {
	DB *gorm.DB
}

// Open connects to PostgreSQL and migrates the archive table.
func Open(dsn string, log *zap.Logger) (*GormStore, error) {
	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{Logger: NewGormLogger(log)})
	if err != nil {
		return nil, fmt.Errorf("connect postgres: %w", err)
	}
	if err := db.AutoMigrate(&models.MessageRecord{}); err != nil {
		return nil, fmt.Errorf("migrate archive: %w", err)
	}
	return &GormStore{DB: db}, nil
}

func (s *GormStore) Appended(ctx context.Context, key conversation.Key, m models.Message) error {
	return s.DB.WithContext(ctx).Create(models.NewMessageRecord(key.String(), m)).Error
}

func (s *GormStore) Updated(ctx context.Context, key conversation.Key, m models.Message) error {
	return s.DB.WithContext(ctx).
		Model(&models.MessageRecord{}).
		Where("message_id = ? AND conversation_key = ?", m.ID, key.String()).
		Updates(map[string]any{"text": m.Text, "image": m.Image, "status": m.Status}).
		Error
}

// Removed soft-deletes the row so the archive keeps its history.
func (s *GormStore) Removed(ctx context.Context, key conversation.Key, messageID string) error {
	return s.DB.WithContext(ctx).
		Where("message_id = ? AND conversation_key = ?", messageID, key.String()).
		Delete(&models.MessageRecord{}).
		Error
}

// Close releases the underlying connection pool.
func (s *GormStore) Close() error {
	sqlDB, err := s.DB.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}
