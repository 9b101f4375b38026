package services

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"time"

	"github.com/petermazzocco/go-dashboard/internal/logger"
	"github.com/petermazzocco/go-dashboard/models"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"
)

// DashboardChatName names the one solo chat shown on the dashboard.
const DashboardChatName = "Dashboard Chat"

// DuplicateMessageWindow is how long an identical user message is ignored
// after it was first saved.
const DuplicateMessageWindow = 5 * time.Second

type ChatService struct {
	db    *gorm.DB
	rdb   *redis.Client
	log   *logger.Logger
	model string
}

// NewChatService builds the service. rdb may be nil, in which case duplicate
// messages are detected with a database query.
func NewChatService(db *gorm.DB, rdb *redis.Client, log *logger.Logger, model string) *ChatService {
	return &ChatService{db: db, rdb: rdb, log: log.With("service", "ChatService"), model: model}
}

func (s *ChatService) Model() string { return s.model }

// DashboardChat returns the user's dashboard chat with its messages in
// order, or nil when it has not been created yet.
func (s *ChatService) DashboardChat(ctx context.Context, userID uint) (*models.Chat, error) {
	var chat models.Chat
	err := s.db.WithContext(ctx).
		Preload("Messages", func(db *gorm.DB) *gorm.DB {
			return db.Order("timestamp ASC, id ASC")
		}).
		Where("user_id = ? AND name = ?", userID, DashboardChatName).
		Order("id ASC").
		First(&chat).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get dashboard chat: %w", err)
	}
	return &chat, nil
}

// EnsureDashboardChat returns the dashboard chat, creating it when missing.
// The bool reports whether it already existed.
func (s *ChatService) EnsureDashboardChat(ctx context.Context, userID uint) (*models.Chat, bool, error) {
	var (
		chat    models.Chat
		existed bool
	)
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		err := tx.Where("user_id = ? AND name = ?", userID, DashboardChatName).Order("id ASC").First(&chat).Error
		if err == nil {
			existed = true
			return nil
		}
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			return err
		}
		chat = models.Chat{
			UserID:       userID,
			Name:         DashboardChatName,
			Type:         models.ChatTypeSolo,
			CurrentModel: s.model,
		}
		return tx.Create(&chat).Error
	})
	if err != nil {
		return nil, false, fmt.Errorf("ensure dashboard chat: %w", err)
	}
	if !existed {
		s.log.Info("dashboard chat created", "chat_id", chat.ID, "user_id", userID)
	}
	return &chat, existed, nil
}

// Owned returns the chat when userID owns it, ErrNotFound otherwise.
func (s *ChatService) Owned(ctx context.Context, chatID, userID uint) (*models.Chat, error) {
	var chat models.Chat
	err := s.db.WithContext(ctx).Where("id = ? AND user_id = ?", chatID, userID).First(&chat).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get chat %d: %w", chatID, err)
	}
	return &chat, nil
}

// SaveUserMessage stores a user's message unless the same sender posted the
// same content to the chat within DuplicateMessageWindow. It reports
// whether a row was written.
func (s *ChatService) SaveUserMessage(ctx context.Context, chatID, senderID uint, content string) (bool, error) {
	dup, key, err := s.isDuplicate(ctx, chatID, senderID, content)
	if err != nil {
		return false, err
	}
	if dup {
		s.log.Debug("duplicate user message skipped", "chat_id", chatID)
		return false, nil
	}
	msg := models.ChatMessage{
		ChatID:    chatID,
		SenderID:  &senderID,
		Role:      models.RoleUser,
		Content:   content,
		Timestamp: time.Now(),
	}
	if err := s.db.WithContext(ctx).Create(&msg).Error; err != nil {
		// A failed insert gives the key back so a retry is not dropped.
		if key != "" {
			if derr := s.rdb.Del(context.WithoutCancel(ctx), key).Err(); derr != nil {
				s.log.Warn("failed to release dedupe key", "key", key, "error", derr)
			}
		}
		return false, fmt.Errorf("save user message: %w", err)
	}
	return true, nil
}

// isDuplicate reports whether the message falls inside the dedupe window.
// The returned key is the redis key claimed for this message, if any.
func (s *ChatService) isDuplicate(ctx context.Context, chatID, senderID uint, content string) (bool, string, error) {
	if s.rdb != nil {
		sum := sha256.Sum256([]byte(content))
		key := fmt.Sprintf("chat:%d:sender:%d:msg:%s", chatID, senderID, hex.EncodeToString(sum[:]))
		set, err := s.rdb.SetNX(ctx, key, 1, DuplicateMessageWindow).Result()
		if err == nil {
			if !set {
				return true, "", nil
			}
			return false, key, nil
		}
		s.log.Warn("redis dedupe unavailable, using database", "error", err)
	}

	var n int64
	err := s.db.WithContext(ctx).Model(&models.ChatMessage{}).
		Where("chat_id = ? AND sender_id = ? AND role = ? AND content = ? AND timestamp >= ?",
			chatID, senderID, models.RoleUser, content, time.Now().Add(-DuplicateMessageWindow)).
		Count(&n).Error
	if err != nil {
		return false, "", fmt.Errorf("check duplicate message: %w", err)
	}
	return n > 0, "", nil
}

func (s *ChatService) SaveAssistantMessage(ctx context.Context, chatID uint, content, model string) (*models.ChatMessage, error) {
	msg := &models.ChatMessage{
		ChatID:    chatID,
		Role:      models.RoleAssistant,
		Content:   content,
		Model:     model,
		Timestamp: time.Now(),
	}
	if err := s.db.WithContext(ctx).Create(msg).Error; err != nil {
		return nil, fmt.Errorf("save assistant message: %w", err)
	}
	return msg, nil
}
