package repository

import (
	"context"
	"errors"

	"gorm.io/gorm"

	"message-processor/internal/models"
)

// ConversationFilter narrows conversation listings. Zero-valued fields are
// not applied; set fields combine with AND.
type ConversationFilter struct {
	Status     string
	Channel    string
	CustomerID string
}

// ConversationStore persists conversations
type ConversationStore interface {
	Create(ctx context.Context, conversation *models.Conversation) error
	List(ctx context.Context, filter ConversationFilter, page, limit int) ([]models.Conversation, int64, error)
	FindByID(ctx context.Context, id string) (*models.Conversation, error)
	FindActiveByCustomerAndChannel(ctx context.Context, customerID, channel string) (*models.Conversation, error)
	Save(ctx context.Context, conversation *models.Conversation) error
	Delete(ctx context.Context, conversation *models.Conversation) error
	CountByStatus(ctx context.Context, status string) (int64, error)
	CountByChannel(ctx context.Context) (map[string]int64, error)
}

// GormConversationStore implements ConversationStore on PostgreSQL
type GormConversationStore struct {
	db *gorm.DB
}

// NewGormConversationStore creates a conversation store over the given DB handle
func NewGormConversationStore(db *gorm.DB) *GormConversationStore {
	return &GormConversationStore{db: db}
}

func (s *GormConversationStore) Create(ctx context.Context, conversation *models.Conversation) error {
	return s.db.WithContext(ctx).Create(conversation).Error
}

// List returns one page of conversations ordered by updated_at descending,
// with their messages eager-loaded, plus the unpaged total.
func (s *GormConversationStore) List(ctx context.Context, filter ConversationFilter, page, limit int) ([]models.Conversation, int64, error) {
	query := s.db.WithContext(ctx).Model(&models.Conversation{})

	if filter.Status != "" {
		query = query.Where("status = ?", filter.Status)
	}
	if filter.Channel != "" {
		query = query.Where("channel = ?", filter.Channel)
	}
	if filter.CustomerID != "" {
		query = query.Where("customer_id = ?", filter.CustomerID)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var conversations []models.Conversation
	err := query.
		Preload("Messages").
		Order("updated_at DESC").
		Limit(limit).
		Offset((page - 1) * limit).
		Find(&conversations).Error
	if err != nil {
		return nil, 0, err
	}

	return conversations, total, nil
}

// FindByID loads a conversation with its messages in chronological order and
// each message's attachments. Returns (nil, nil) when absent.
func (s *GormConversationStore) FindByID(ctx context.Context, id string) (*models.Conversation, error) {
	var conversation models.Conversation
	err := s.db.WithContext(ctx).
		Preload("Messages", func(db *gorm.DB) *gorm.DB {
			return db.Order("messages.created_at ASC")
		}).
		Preload("Messages.Attachments").
		First(&conversation, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &conversation, nil
}

// FindActiveByCustomerAndChannel returns the most recent active conversation
// for the pair, or (nil, nil) when none exists.
func (s *GormConversationStore) FindActiveByCustomerAndChannel(ctx context.Context, customerID, channel string) (*models.Conversation, error) {
	var conversation models.Conversation
	err := s.db.WithContext(ctx).
		Preload("Messages", func(db *gorm.DB) *gorm.DB {
			return db.Order("messages.created_at ASC")
		}).
		Where("customer_id = ? AND channel = ? AND status = ?", customerID, channel, models.StatusActive).
		Order("updated_at DESC").
		First(&conversation).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &conversation, nil
}

func (s *GormConversationStore) Save(ctx context.Context, conversation *models.Conversation) error {
	return s.db.WithContext(ctx).Save(conversation).Error
}

// Delete hard-deletes the conversation; messages and their attachments are
// removed by the schema-level ON DELETE CASCADE.
func (s *GormConversationStore) Delete(ctx context.Context, conversation *models.Conversation) error {
	return s.db.WithContext(ctx).Delete(conversation).Error
}

// CountByStatus counts conversations with the given status; an empty status
// counts everything.
func (s *GormConversationStore) CountByStatus(ctx context.Context, status string) (int64, error) {
	query := s.db.WithContext(ctx).Model(&models.Conversation{})
	if status != "" {
		query = query.Where("status = ?", status)
	}

	var count int64
	err := query.Count(&count).Error
	return count, err
}

// CountByChannel groups conversations by channel
func (s *GormConversationStore) CountByChannel(ctx context.Context) (map[string]int64, error) {
	var rows []struct {
		Channel string
		Count   int64
	}
	err := s.db.WithContext(ctx).
		Model(&models.Conversation{}).
		Select("channel, COUNT(*) AS count").
		Group("channel").
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}

	byChannel := make(map[string]int64, len(rows))
	for _, row := range rows {
		byChannel[row.Channel] = row.Count
	}
	return byChannel, nil
}
