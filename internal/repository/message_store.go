package repository

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"

	"message-processor/internal/models"
)

// MessageFilter narrows message listings and aggregations. Zero-valued
// fields are not applied; set fields combine with AND. The date range only
// takes effect when both bounds are present.
type MessageFilter struct {
	ConversationID string
	Direction      string
	Type           string
	// Search matches Content case-insensitively as a substring
	Search   string
	DateFrom *time.Time
	DateTo   *time.Time
	// Channel filters through the joined conversation
	Channel string
}

// DateCount is one day of message volume
type DateCount struct {
	Date  string `json:"date"`
	Count int64  `json:"count"`
}

// MessageStore persists messages and their attachment graphs
type MessageStore interface {
	Create(ctx context.Context, message *models.Message) error
	// CreateWithAttachments persists the message and its attachments as one
	// unit of work; a failed attachment write rolls the message back too.
	CreateWithAttachments(ctx context.Context, message *models.Message, attachments []models.MessageAttachment) error
	List(ctx context.Context, filter MessageFilter, page, limit int) ([]models.Message, int64, error)
	ListByConversation(ctx context.Context, conversationID, direction string, page, limit int) ([]models.Message, int64, error)
	FindByID(ctx context.Context, id string) (*models.Message, error)
	Save(ctx context.Context, message *models.Message) error
	Delete(ctx context.Context, message *models.Message) error
	CountByDirection(ctx context.Context, filter MessageFilter) (total, incoming, outgoing int64, err error)
	GroupByType(ctx context.Context, filter MessageFilter) (map[string]int64, error)
	GroupByChannel(ctx context.Context, filter MessageFilter) (map[string]int64, error)
	// CountByDay groups message volume by calendar day since the given
	// instant. The global filter set deliberately does not apply here; the
	// stats contract pins this aggregate to recent overall traffic.
	CountByDay(ctx context.Context, since time.Time) ([]DateCount, error)
}

// GormMessageStore implements MessageStore on PostgreSQL. Attachment writes
// go through the AttachmentStore so both stores share one transaction.
type GormMessageStore struct {
	db          *gorm.DB
	attachments AttachmentStore
}

// NewGormMessageStore creates a message store over the given DB handle
func NewGormMessageStore(db *gorm.DB, attachments AttachmentStore) *GormMessageStore {
	return &GormMessageStore{db: db, attachments: attachments}
}

func (s *GormMessageStore) Create(ctx context.Context, message *models.Message) error {
	return s.db.WithContext(ctx).Create(message).Error
}

func (s *GormMessageStore) CreateWithAttachments(ctx context.Context, message *models.Message, attachments []models.MessageAttachment) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(message).Error; err != nil {
			return err
		}

		for i := range attachments {
			attachments[i].MessageID = message.ID
		}
		if err := s.attachments.WithTx(tx).CreateBatch(ctx, attachments); err != nil {
			return err
		}

		message.Attachments = attachments
		return nil
	})
}

// applyFilter adds the filter's conditions to a query rooted at messages
func applyFilter(query *gorm.DB, filter MessageFilter) *gorm.DB {
	if filter.ConversationID != "" {
		query = query.Where("messages.conversation_id = ?", filter.ConversationID)
	}
	if filter.Direction != "" {
		query = query.Where("messages.direction = ?", filter.Direction)
	}
	if filter.Type != "" {
		query = query.Where("messages.type = ?", filter.Type)
	}
	if filter.Search != "" {
		query = query.Where("LOWER(messages.content) LIKE LOWER(?)", "%"+filter.Search+"%")
	}
	// A single bound is ignored; the range only applies when both are set
	if filter.DateFrom != nil && filter.DateTo != nil {
		query = query.Where("messages.created_at BETWEEN ? AND ?", *filter.DateFrom, *filter.DateTo)
	}
	if filter.Channel != "" {
		query = query.
			Joins("JOIN conversations ON conversations.id = messages.conversation_id").
			Where("conversations.channel = ?", filter.Channel)
	}
	return query
}

// List returns one page of messages ordered newest-first with their
// attachments and parent conversation loaded, plus the unpaged total.
func (s *GormMessageStore) List(ctx context.Context, filter MessageFilter, page, limit int) ([]models.Message, int64, error) {
	query := applyFilter(s.db.WithContext(ctx).Model(&models.Message{}), filter)

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var messages []models.Message
	err := query.
		Preload("Attachments").
		Preload("Conversation").
		Order("messages.created_at DESC").
		Limit(limit).
		Offset((page - 1) * limit).
		Find(&messages).Error
	if err != nil {
		return nil, 0, err
	}

	return messages, total, nil
}

// ListByConversation returns one page of a conversation's messages in
// chronological order. Thread views read top-to-bottom, unlike List.
func (s *GormMessageStore) ListByConversation(ctx context.Context, conversationID, direction string, page, limit int) ([]models.Message, int64, error) {
	query := s.db.WithContext(ctx).
		Model(&models.Message{}).
		Where("conversation_id = ?", conversationID)
	if direction != "" {
		query = query.Where("direction = ?", direction)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var messages []models.Message
	err := query.
		Preload("Attachments").
		Order("created_at ASC").
		Limit(limit).
		Offset((page - 1) * limit).
		Find(&messages).Error
	if err != nil {
		return nil, 0, err
	}

	return messages, total, nil
}

// FindByID loads a message with its attachments and parent conversation.
// Returns (nil, nil) when absent.
func (s *GormMessageStore) FindByID(ctx context.Context, id string) (*models.Message, error) {
	var message models.Message
	err := s.db.WithContext(ctx).
		Preload("Attachments").
		Preload("Conversation").
		First(&message, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &message, nil
}

func (s *GormMessageStore) Save(ctx context.Context, message *models.Message) error {
	return s.db.WithContext(ctx).Save(message).Error
}

// Delete hard-deletes the message; attachment rows go with it via the
// schema-level ON DELETE CASCADE.
func (s *GormMessageStore) Delete(ctx context.Context, message *models.Message) error {
	return s.db.WithContext(ctx).Delete(message).Error
}

// CountByDirection counts messages matching the filter, overall and split
// by direction
func (s *GormMessageStore) CountByDirection(ctx context.Context, filter MessageFilter) (total, incoming, outgoing int64, err error) {
	base := applyFilter(s.db.WithContext(ctx).Model(&models.Message{}), filter)
	if err = base.Count(&total).Error; err != nil {
		return 0, 0, 0, err
	}

	in := applyFilter(s.db.WithContext(ctx).Model(&models.Message{}), filter)
	if err = in.Where("messages.direction = ?", models.DirectionIncoming).Count(&incoming).Error; err != nil {
		return 0, 0, 0, err
	}

	out := applyFilter(s.db.WithContext(ctx).Model(&models.Message{}), filter)
	if err = out.Where("messages.direction = ?", models.DirectionOutgoing).Count(&outgoing).Error; err != nil {
		return 0, 0, 0, err
	}

	return total, incoming, outgoing, nil
}

// GroupByType groups matching messages by message type
func (s *GormMessageStore) GroupByType(ctx context.Context, filter MessageFilter) (map[string]int64, error) {
	var rows []struct {
		Type  string
		Count int64
	}
	err := applyFilter(s.db.WithContext(ctx).Model(&models.Message{}), filter).
		Select("messages.type, COUNT(*) AS count").
		Group("messages.type").
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}

	byType := make(map[string]int64, len(rows))
	for _, row := range rows {
		byType[row.Type] = row.Count
	}
	return byType, nil
}

// GroupByChannel groups matching messages by the parent conversation's channel
func (s *GormMessageStore) GroupByChannel(ctx context.Context, filter MessageFilter) (map[string]int64, error) {
	query := applyFilter(s.db.WithContext(ctx).Model(&models.Message{}), filter)
	if filter.Channel == "" {
		// applyFilter only joins when filtering by channel
		query = query.Joins("JOIN conversations ON conversations.id = messages.conversation_id")
	}

	var rows []struct {
		Channel string
		Count   int64
	}
	err := query.
		Select("conversations.channel, COUNT(*) AS count").
		Group("conversations.channel").
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

// CountByDay groups message volume by calendar day since the given instant,
// oldest day first
func (s *GormMessageStore) CountByDay(ctx context.Context, since time.Time) ([]DateCount, error) {
	var rows []struct {
		Date  time.Time
		Count int64
	}
	err := s.db.WithContext(ctx).
		Model(&models.Message{}).
		Select("DATE(created_at) AS date, COUNT(*) AS count").
		Where("created_at >= ?", since).
		Group("DATE(created_at)").
		Order("date ASC").
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}

	counts := make([]DateCount, 0, len(rows))
	for _, row := range rows {
		counts = append(counts, DateCount{
			Date:  row.Date.Format("2006-01-02"),
			Count: row.Count,
		})
	}
	return counts, nil
}
