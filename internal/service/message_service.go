package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"gorm.io/datatypes"

	"message-processor/internal/models"
	"message-processor/internal/repository"
	"message-processor/pkg/cache"
	apperrors "message-processor/pkg/errors"
	"message-processor/pkg/logger"
)

const messageStatsKey = "stats:messages"

// AttachmentInput carries one attachment on message creation
type AttachmentInput struct {
	Type     string  `json:"type"`
	URL      string  `json:"url"`
	MimeType *string `json:"mimeType"`
	Filename *string `json:"filename"`
	Size     *int64  `json:"size"`
}

// CreateMessageInput carries the fields accepted on message creation
type CreateMessageInput struct {
	ConversationID string            `json:"conversationId"`
	Direction      string            `json:"direction"`
	Type           string            `json:"type"`
	Content        *string           `json:"content"`
	Metadata       map[string]any    `json:"metadata"`
	Attachments    []AttachmentInput `json:"attachments"`
}

// ListMessagesInput carries listing filters and paging
type ListMessagesInput struct {
	Page           int
	Limit          int
	ConversationID string
	Direction      string
	Type           string
	Search         string
	DateFrom       *time.Time
	DateTo         *time.Time
	Channel        string
}

// ListByConversationInput carries paging for a single thread
type ListByConversationInput struct {
	Page      int
	Limit     int
	Direction string
}

// SearchMessagesInput carries paging and scoping for content search
type SearchMessagesInput struct {
	Page           int
	Limit          int
	ConversationID string
	Channel        string
}

// UpdateMessageInput exposes the mutable message fields. Direction, type and
// conversation binding are immutable after creation; this type is the
// whitelist.
type UpdateMessageInput struct {
	Content  *string        `json:"content"`
	Metadata map[string]any `json:"metadata"`
}

// StatsInput scopes the message statistics
type StatsInput struct {
	DateFrom       *time.Time
	DateTo         *time.Time
	ConversationID string
	Channel        string
}

// MessageStats aggregates message counts.
//
// ByDate always covers the trailing 7 days from the current instant and
// disregards the DateFrom/DateTo scoping applied to every other field. The
// asymmetry is inherited behavior that downstream dashboards rely on.
type MessageStats struct {
	Total     int64                  `json:"total"`
	Incoming  int64                  `json:"incoming"`
	Outgoing  int64                  `json:"outgoing"`
	ByType    map[string]int64       `json:"byType"`
	ByChannel map[string]int64       `json:"byChannel"`
	ByDate    []repository.DateCount `json:"byDate"`
}

// MessageService owns message lifecycle, search and aggregation
type MessageService struct {
	store         repository.MessageStore
	conversations *ConversationService
	cache         *cache.Cache
	log           *logger.Logger
}

// NewMessageService creates a message service
func NewMessageService(store repository.MessageStore, conversations *ConversationService, c *cache.Cache, log *logger.Logger) *MessageService {
	return &MessageService{
		store:         store,
		conversations: conversations,
		cache:         c,
		log:           log,
	}
}

// Create persists a message under an existing conversation. The message and
// its attachments succeed or fail as one unit; a partial write is reported
// as a persistence failure, never as a silent attachment-less message.
func (s *MessageService) Create(ctx context.Context, input CreateMessageInput) (*models.Message, error) {
	if !models.ValidDirection(input.Direction) {
		return nil, apperrors.NewValidationError(fmt.Sprintf("invalid message direction %q", input.Direction))
	}
	if !models.ValidType(input.Type) {
		return nil, apperrors.NewValidationError(fmt.Sprintf("invalid message type %q", input.Type))
	}

	// The parent conversation must exist before anything is written
	if _, err := s.conversations.Get(ctx, input.ConversationID); err != nil {
		return nil, err
	}

	message := &models.Message{
		ConversationID: input.ConversationID,
		Direction:      input.Direction,
		Type:           input.Type,
		Content:        input.Content,
	}
	if input.Metadata != nil {
		message.Metadata = datatypes.JSONMap(input.Metadata)
	}

	attachments := make([]models.MessageAttachment, 0, len(input.Attachments))
	for _, att := range input.Attachments {
		attachments = append(attachments, models.MessageAttachment{
			Type:     att.Type,
			URL:      att.URL,
			MimeType: att.MimeType,
			Filename: att.Filename,
			Size:     att.Size,
		})
	}

	if err := s.store.CreateWithAttachments(ctx, message, attachments); err != nil {
		return nil, apperrors.NewPersistenceError("failed to create message", err)
	}

	s.cache.Delete(messageStatsKey)
	s.log.Info("message created",
		"message_id", message.ID,
		"conversation_id", message.ConversationID,
		"type", message.Type,
		"attachments", len(attachments),
	)
	return message, nil
}

// List returns one page of messages, newest first
func (s *MessageService) List(ctx context.Context, input ListMessagesInput) ([]models.Message, PageInfo, error) {
	page, limit := normalizePaging(input.Page, input.Limit, 10, 100)

	filter := repository.MessageFilter{
		ConversationID: input.ConversationID,
		Direction:      input.Direction,
		Type:           input.Type,
		Search:         input.Search,
		DateFrom:       input.DateFrom,
		DateTo:         input.DateTo,
		Channel:        input.Channel,
	}
	messages, total, err := s.store.List(ctx, filter, page, limit)
	if err != nil {
		return nil, PageInfo{}, apperrors.NewPersistenceError("failed to list messages", err)
	}

	return messages, newPageInfo(total, page, limit), nil
}

// Get loads one message with its attachments and parent conversation
func (s *MessageService) Get(ctx context.Context, id string) (*models.Message, error) {
	message, err := s.store.FindByID(ctx, id)
	if err != nil {
		return nil, apperrors.NewPersistenceError("failed to load message", err)
	}
	if message == nil {
		return nil, apperrors.NewNotFoundError(fmt.Sprintf("message with ID %s not found", id))
	}
	return message, nil
}

// ListByConversation returns one page of a conversation's messages in
// chronological order, so thread views read top-to-bottom
func (s *MessageService) ListByConversation(ctx context.Context, conversationID string, input ListByConversationInput) ([]models.Message, PageInfo, error) {
	// Fails NotFound before any listing happens
	if _, err := s.conversations.Get(ctx, conversationID); err != nil {
		return nil, PageInfo{}, err
	}

	page, limit := normalizePaging(input.Page, input.Limit, 50, 100)

	messages, total, err := s.store.ListByConversation(ctx, conversationID, input.Direction, page, limit)
	if err != nil {
		return nil, PageInfo{}, apperrors.NewPersistenceError("failed to list conversation messages", err)
	}

	return messages, newPageInfo(total, page, limit), nil
}

// Update merges the mutable fields into the message and persists it. Fields
// outside UpdateMessageInput cannot be touched by design.
func (s *MessageService) Update(ctx context.Context, id string, input UpdateMessageInput) (*models.Message, error) {
	message, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	if input.Content != nil {
		message.Content = input.Content
	}
	if input.Metadata != nil {
		message.Metadata = datatypes.JSONMap(input.Metadata)
	}

	if err := s.store.Save(ctx, message); err != nil {
		return nil, apperrors.NewPersistenceError("failed to update message", err)
	}
	return message, nil
}

// Delete hard-deletes the message together with its attachments
func (s *MessageService) Delete(ctx context.Context, id string) error {
	message, err := s.Get(ctx, id)
	if err != nil {
		return err
	}

	if err := s.store.Delete(ctx, message); err != nil {
		return apperrors.NewPersistenceError("failed to delete message", err)
	}

	s.cache.Delete(messageStatsKey)
	s.log.Info("message deleted", "message_id", id)
	return nil
}

// Search finds messages whose content contains the term, case-insensitively,
// newest first. The page size cap is tighter than List's.
func (s *MessageService) Search(ctx context.Context, term string, input SearchMessagesInput) ([]models.Message, PageInfo, error) {
	term = strings.TrimSpace(term)
	if term == "" {
		return nil, PageInfo{}, apperrors.NewLogicError("search term is required")
	}

	page, limit := normalizePaging(input.Page, input.Limit, 10, 50)

	filter := repository.MessageFilter{
		Search:         term,
		ConversationID: input.ConversationID,
		Channel:        input.Channel,
	}
	messages, total, err := s.store.List(ctx, filter, page, limit)
	if err != nil {
		return nil, PageInfo{}, apperrors.NewPersistenceError("failed to search messages", err)
	}

	return messages, newPageInfo(total, page, limit), nil
}

// Stats aggregates message counts under the given scope. See MessageStats
// for the ByDate caveat.
func (s *MessageService) Stats(ctx context.Context, input StatsInput) (*MessageStats, error) {
	unscoped := input == (StatsInput{})
	if unscoped {
		if cached, ok := s.cache.Get(messageStatsKey); ok {
			if stats, ok := cached.(*MessageStats); ok {
				return stats, nil
			}
		}
	}

	filter := repository.MessageFilter{
		DateFrom:       input.DateFrom,
		DateTo:         input.DateTo,
		ConversationID: input.ConversationID,
		Channel:        input.Channel,
	}

	total, incoming, outgoing, err := s.store.CountByDirection(ctx, filter)
	if err != nil {
		return nil, apperrors.NewPersistenceError("failed to count messages", err)
	}
	byType, err := s.store.GroupByType(ctx, filter)
	if err != nil {
		return nil, apperrors.NewPersistenceError("failed to aggregate messages by type", err)
	}
	byChannel, err := s.store.GroupByChannel(ctx, filter)
	if err != nil {
		return nil, apperrors.NewPersistenceError("failed to aggregate messages by channel", err)
	}
	byDate, err := s.store.CountByDay(ctx, time.Now().AddDate(0, 0, -7))
	if err != nil {
		return nil, apperrors.NewPersistenceError("failed to aggregate messages by date", err)
	}

	stats := &MessageStats{
		Total:     total,
		Incoming:  incoming,
		Outgoing:  outgoing,
		ByType:    byType,
		ByChannel: byChannel,
		ByDate:    byDate,
	}
	if unscoped {
		s.cache.Set(messageStatsKey, stats)
	}
	return stats, nil
}

// MarkAsRead acknowledges a conversation without any observable effect.
// Read-state tracking needs a read flag on the message schema first; the
// contract (accept an id, report success) is kept so callers do not break
// when that lands.
func (s *MessageService) MarkAsRead(ctx context.Context, conversationID string) error {
	s.log.Debug("mark as read requested", "conversation_id", conversationID)
	return nil
}
