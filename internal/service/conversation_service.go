package service

import (
	"context"
	"fmt"

	"message-processor/internal/models"
	"message-processor/internal/repository"
	"message-processor/pkg/cache"
	apperrors "message-processor/pkg/errors"
	"message-processor/pkg/lock"
	"message-processor/pkg/logger"
)

const conversationStatsKey = "stats:conversations"

// CreateConversationInput carries the fields accepted on conversation creation
type CreateConversationInput struct {
	CustomerID string `json:"customerId"`
	Channel    string `json:"channel"`
	Status     string `json:"status"`
}

// ListConversationsInput carries listing filters and paging
type ListConversationsInput struct {
	Page       int    `json:"page"`
	Limit      int    `json:"limit"`
	Status     string `json:"status"`
	Channel    string `json:"channel"`
	CustomerID string `json:"customerId"`
}

// UpdateConversationInput exposes the mutable conversation fields. Anything
// not represented here cannot be changed after creation.
type UpdateConversationInput struct {
	Status *string `json:"status"`
}

// ConversationStats aggregates conversation counts
type ConversationStats struct {
	Total     int64            `json:"total"`
	Active    int64            `json:"active"`
	Closed    int64            `json:"closed"`
	Pending   int64            `json:"pending"`
	ByChannel map[string]int64 `json:"byChannel"`
}

// ConversationService owns conversation lifecycle and aggregation
type ConversationService struct {
	store repository.ConversationStore
	locks lock.KeyedLocker
	cache *cache.Cache
	log   *logger.Logger
}

// NewConversationService creates a conversation service
func NewConversationService(store repository.ConversationStore, locks lock.KeyedLocker, c *cache.Cache, log *logger.Logger) *ConversationService {
	return &ConversationService{
		store: store,
		locks: locks,
		cache: c,
		log:   log,
	}
}

// Create persists a new conversation. No uniqueness check happens here;
// callers that need one active conversation per pair go through FindOrCreate.
func (s *ConversationService) Create(ctx context.Context, input CreateConversationInput) (*models.Conversation, error) {
	if input.Status != "" && !models.ValidStatus(input.Status) {
		return nil, apperrors.NewValidationError(fmt.Sprintf("invalid conversation status %q", input.Status))
	}

	conversation := &models.Conversation{
		CustomerID: input.CustomerID,
		Channel:    input.Channel,
		Status:     input.Status,
	}
	if err := s.store.Create(ctx, conversation); err != nil {
		return nil, apperrors.NewPersistenceError("failed to create conversation", err)
	}

	s.cache.Delete(conversationStatsKey)
	s.log.Info("conversation created",
		"conversation_id", conversation.ID,
		"customer_id", conversation.CustomerID,
		"channel", conversation.Channel,
	)
	return conversation, nil
}

// List returns one page of conversations, newest activity first
func (s *ConversationService) List(ctx context.Context, input ListConversationsInput) ([]models.Conversation, PageInfo, error) {
	page, limit := normalizePaging(input.Page, input.Limit, 10, 100)

	filter := repository.ConversationFilter{
		Status:     input.Status,
		Channel:    input.Channel,
		CustomerID: input.CustomerID,
	}
	conversations, total, err := s.store.List(ctx, filter, page, limit)
	if err != nil {
		return nil, PageInfo{}, apperrors.NewPersistenceError("failed to list conversations", err)
	}

	return conversations, newPageInfo(total, page, limit), nil
}

// Get loads one conversation with its message thread
func (s *ConversationService) Get(ctx context.Context, id string) (*models.Conversation, error) {
	conversation, err := s.store.FindByID(ctx, id)
	if err != nil {
		return nil, apperrors.NewPersistenceError("failed to load conversation", err)
	}
	if conversation == nil {
		return nil, apperrors.NewNotFoundError(fmt.Sprintf("conversation with ID %s not found", id))
	}
	return conversation, nil
}

// FindByCustomerAndChannel returns the most recent active conversation for
// the pair, or nil without error when none exists
func (s *ConversationService) FindByCustomerAndChannel(ctx context.Context, customerID, channel string) (*models.Conversation, error) {
	conversation, err := s.store.FindActiveByCustomerAndChannel(ctx, customerID, channel)
	if err != nil {
		return nil, apperrors.NewPersistenceError("failed to look up conversation", err)
	}
	return conversation, nil
}

// FindOrCreate returns the active conversation for the pair, creating one if
// none exists. The check-then-create runs under a keyed lock so concurrent
// inbound events for the same pair cannot create duplicates; with the lock
// backend disabled the original race window remains.
func (s *ConversationService) FindOrCreate(ctx context.Context, customerID, channel string) (*models.Conversation, error) {
	unlock, err := s.locks.Lock(ctx, customerID+"|"+channel)
	if err != nil {
		return nil, fmt.Errorf("failed to acquire conversation lock: %w", err)
	}
	defer unlock()

	conversation, err := s.FindByCustomerAndChannel(ctx, customerID, channel)
	if err != nil {
		return nil, err
	}
	if conversation != nil {
		return conversation, nil
	}

	return s.Create(ctx, CreateConversationInput{
		CustomerID: customerID,
		Channel:    channel,
		Status:     models.StatusActive,
	})
}

// Update merges the mutable fields into the conversation and persists it
func (s *ConversationService) Update(ctx context.Context, id string, input UpdateConversationInput) (*models.Conversation, error) {
	conversation, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	if input.Status != nil {
		if !models.ValidStatus(*input.Status) {
			return nil, apperrors.NewValidationError(fmt.Sprintf("invalid conversation status %q", *input.Status))
		}
		conversation.Status = *input.Status
	}

	if err := s.store.Save(ctx, conversation); err != nil {
		return nil, apperrors.NewPersistenceError("failed to update conversation", err)
	}

	s.cache.Delete(conversationStatsKey)
	return conversation, nil
}

// Close sets the conversation status to closed
func (s *ConversationService) Close(ctx context.Context, id string) (*models.Conversation, error) {
	status := models.StatusClosed
	return s.Update(ctx, id, UpdateConversationInput{Status: &status})
}

// Reactivate sets the conversation status back to active
func (s *ConversationService) Reactivate(ctx context.Context, id string) (*models.Conversation, error) {
	status := models.StatusActive
	return s.Update(ctx, id, UpdateConversationInput{Status: &status})
}

// Delete hard-deletes the conversation and, through the schema cascade, its
// messages and attachments
func (s *ConversationService) Delete(ctx context.Context, id string) error {
	conversation, err := s.Get(ctx, id)
	if err != nil {
		return err
	}

	if err := s.store.Delete(ctx, conversation); err != nil {
		return apperrors.NewPersistenceError("failed to delete conversation", err)
	}

	s.cache.Delete(conversationStatsKey)
	s.log.Info("conversation deleted", "conversation_id", id)
	return nil
}

// Stats aggregates conversation counts by status and channel. Results are
// briefly cached; mutations invalidate the entry.
func (s *ConversationService) Stats(ctx context.Context) (*ConversationStats, error) {
	if cached, ok := s.cache.Get(conversationStatsKey); ok {
		if stats, ok := cached.(*ConversationStats); ok {
			return stats, nil
		}
	}

	total, err := s.store.CountByStatus(ctx, "")
	if err != nil {
		return nil, apperrors.NewPersistenceError("failed to count conversations", err)
	}
	active, err := s.store.CountByStatus(ctx, models.StatusActive)
	if err != nil {
		return nil, apperrors.NewPersistenceError("failed to count active conversations", err)
	}
	closed, err := s.store.CountByStatus(ctx, models.StatusClosed)
	if err != nil {
		return nil, apperrors.NewPersistenceError("failed to count closed conversations", err)
	}
	pending, err := s.store.CountByStatus(ctx, models.StatusPending)
	if err != nil {
		return nil, apperrors.NewPersistenceError("failed to count pending conversations", err)
	}
	byChannel, err := s.store.CountByChannel(ctx)
	if err != nil {
		return nil, apperrors.NewPersistenceError("failed to aggregate conversations by channel", err)
	}

	stats := &ConversationStats{
		Total:     total,
		Active:    active,
		Closed:    closed,
		Pending:   pending,
		ByChannel: byChannel,
	}
	s.cache.Set(conversationStatsKey, stats)
	return stats, nil
}
