package rpc

import (
	"context"
	"io"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"message-processor/internal/models"
	"message-processor/internal/repository"
	"message-processor/internal/service"
	"message-processor/pkg/cache"
	apperrors "message-processor/pkg/errors"
	"message-processor/pkg/lock"
	"message-processor/pkg/logger"
)

// memoryConversationStore is a minimal in-memory ConversationStore for
// handler tests
type memoryConversationStore struct {
	mu            sync.Mutex
	conversations map[string]*models.Conversation
}

func newMemoryConversationStore() *memoryConversationStore {
	return &memoryConversationStore{conversations: make(map[string]*models.Conversation)}
}

func (s *memoryConversationStore) seed(c *models.Conversation) *models.Conversation {
	s.mu.Lock()
	defer s.mu.Unlock()
	if c.ID == "" {
		c.ID = uuid.NewString()
	}
	s.conversations[c.ID] = c
	return c
}

func (s *memoryConversationStore) Create(ctx context.Context, c *models.Conversation) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if c.ID == "" {
		c.ID = uuid.NewString()
	}
	if c.Status == "" {
		c.Status = models.StatusActive
	}
	c.CreatedAt = time.Now()
	c.UpdatedAt = c.CreatedAt
	s.conversations[c.ID] = c
	return nil
}

func (s *memoryConversationStore) List(ctx context.Context, filter repository.ConversationFilter, page, limit int) ([]models.Conversation, int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []models.Conversation
	for _, c := range s.conversations {
		if filter.Status != "" && c.Status != filter.Status {
			continue
		}
		if filter.Channel != "" && c.Channel != filter.Channel {
			continue
		}
		if filter.CustomerID != "" && c.CustomerID != filter.CustomerID {
			continue
		}
		out = append(out, *c)
	}
	return out, int64(len(out)), nil
}

func (s *memoryConversationStore) FindByID(ctx context.Context, id string) (*models.Conversation, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.conversations[id]
	if !ok {
		return nil, nil
	}
	copied := *c
	return &copied, nil
}

func (s *memoryConversationStore) FindActiveByCustomerAndChannel(ctx context.Context, customerID, channel string) (*models.Conversation, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, c := range s.conversations {
		if c.CustomerID == customerID && c.Channel == channel && c.Status == models.StatusActive {
			copied := *c
			return &copied, nil
		}
	}
	return nil, nil
}

func (s *memoryConversationStore) Save(ctx context.Context, c *models.Conversation) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	copied := *c
	s.conversations[c.ID] = &copied
	return nil
}

func (s *memoryConversationStore) Delete(ctx context.Context, c *models.Conversation) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.conversations, c.ID)
	return nil
}

func (s *memoryConversationStore) CountByStatus(ctx context.Context, status string) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if status == "" {
		return int64(len(s.conversations)), nil
	}
	var n int64
	for _, c := range s.conversations {
		if c.Status == status {
			n++
		}
	}
	return n, nil
}

func (s *memoryConversationStore) CountByChannel(ctx context.Context) (map[string]int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make(map[string]int64)
	for _, c := range s.conversations {
		out[c.Channel]++
	}
	return out, nil
}

func newConversationHandlerFixture() (*memoryConversationStore, *ConversationHandlers) {
	log := logger.New(logger.Config{Level: "error", Output: io.Discard})
	store := newMemoryConversationStore()
	svc := service.NewConversationService(store, lock.NewKeyedMutex(), cache.New(time.Minute, 0, 100), log)
	return store, NewConversationHandlers(svc, log)
}

func TestCreateConversationHandlerRequiresFields(t *testing.T) {
	_, handlers := newConversationHandlerFixture()

	reply, success := handlers.create(context.Background(), []byte(`{"customerId":"customer-1"}`))
	require.False(t, success)

	env := reply.(*Envelope)
	assert.Equal(t, apperrors.CodeValidation, env.Code)
	assert.Equal(t, "customerId and channel are required", env.Message)
}

func TestCreateConversationHandler(t *testing.T) {
	_, handlers := newConversationHandlerFixture()

	reply, success := handlers.create(context.Background(), []byte(`{"customerId":"customer-1","channel":"whatsapp"}`))
	require.True(t, success)

	env := reply.(*Envelope)
	assert.True(t, env.Success)
	assert.Equal(t, "Conversation created successfully", env.Message)

	conversation := env.Data.(*models.Conversation)
	assert.NotEmpty(t, conversation.ID)
	assert.Equal(t, models.StatusActive, conversation.Status)
}

func TestGetConversationHandlerNotFound(t *testing.T) {
	_, handlers := newConversationHandlerFixture()

	reply, success := handlers.get(context.Background(), []byte(`{"id":"missing-id"}`))
	require.False(t, success)

	env := reply.(*Envelope)
	assert.False(t, env.Success)
	assert.Equal(t, apperrors.CodeNotFound, env.Code)
	assert.Contains(t, env.Message, "missing-id")
}

func TestFindByCustomerAndChannelHandlerFoundFlag(t *testing.T) {
	store, handlers := newConversationHandlerFixture()

	reply, success := handlers.findByCustomerAndChannel(context.Background(), []byte(`{"customerId":"customer-1","channel":"whatsapp"}`))
	require.True(t, success)

	env := reply.(*Envelope)
	assert.True(t, env.Success)
	require.NotNil(t, env.Found)
	assert.False(t, *env.Found)
	assert.Nil(t, env.Data)

	store.seed(&models.Conversation{
		CustomerID: "customer-1",
		Channel:    "whatsapp",
		Status:     models.StatusActive,
	})

	reply, success = handlers.findByCustomerAndChannel(context.Background(), []byte(`{"customerId":"customer-1","channel":"whatsapp"}`))
	require.True(t, success)

	env = reply.(*Envelope)
	require.NotNil(t, env.Found)
	assert.True(t, *env.Found)
	assert.NotNil(t, env.Data)
}

func TestFindOrCreateHandler(t *testing.T) {
	_, handlers := newConversationHandlerFixture()

	first, success := handlers.findOrCreate(context.Background(), []byte(`{"customerId":"customer-1","channel":"whatsapp"}`))
	require.True(t, success)
	second, success := handlers.findOrCreate(context.Background(), []byte(`{"customerId":"customer-1","channel":"whatsapp"}`))
	require.True(t, success)

	firstConv := first.(*Envelope).Data.(*models.Conversation)
	secondConv := second.(*Envelope).Data.(*models.Conversation)
	assert.Equal(t, firstConv.ID, secondConv.ID)
}

func TestCloseConversationHandler(t *testing.T) {
	store, handlers := newConversationHandlerFixture()
	existing := store.seed(&models.Conversation{
		CustomerID: "customer-1",
		Channel:    "whatsapp",
		Status:     models.StatusActive,
	})

	reply, success := handlers.close(context.Background(), []byte(`{"id":"`+existing.ID+`"}`))
	require.True(t, success)

	conversation := reply.(*Envelope).Data.(*models.Conversation)
	assert.Equal(t, models.StatusClosed, conversation.Status)
}

func TestListByChannelHandlerScopesAndEchoesChannel(t *testing.T) {
	store, handlers := newConversationHandlerFixture()
	store.seed(&models.Conversation{
		CustomerID: "customer-1",
		Channel:    "whatsapp",
		Status:     models.StatusActive,
	})
	store.seed(&models.Conversation{
		CustomerID: "customer-2",
		Channel:    "telegram",
		Status:     models.StatusActive,
	})

	reply, success := handlers.listByChannel(context.Background(), []byte(`{"channel":"whatsapp"}`))
	require.True(t, success)

	env := reply.(*Envelope)
	require.NotNil(t, env.Meta)
	assert.Equal(t, "whatsapp", env.Meta.Channel)
	assert.Equal(t, int64(1), env.Meta.Total)

	conversations := env.Data.([]models.Conversation)
	require.Len(t, conversations, 1)
	assert.Equal(t, "whatsapp", conversations[0].Channel)
}

func TestListByChannelHandlerRequiresChannel(t *testing.T) {
	_, handlers := newConversationHandlerFixture()

	reply, success := handlers.listByChannel(context.Background(), []byte(`{}`))
	require.False(t, success)

	env := reply.(*Envelope)
	assert.Equal(t, apperrors.CodeValidation, env.Code)
	assert.Equal(t, "channel is required", env.Message)
}

func TestListByCustomerHandlerScopesAndEchoesCustomer(t *testing.T) {
	store, handlers := newConversationHandlerFixture()
	store.seed(&models.Conversation{
		CustomerID: "customer-1",
		Channel:    "whatsapp",
		Status:     models.StatusActive,
	})
	store.seed(&models.Conversation{
		CustomerID: "customer-1",
		Channel:    "telegram",
		Status:     models.StatusClosed,
	})
	store.seed(&models.Conversation{
		CustomerID: "customer-2",
		Channel:    "whatsapp",
		Status:     models.StatusActive,
	})

	reply, success := handlers.listByCustomer(context.Background(), []byte(`{"customerId":"customer-1"}`))
	require.True(t, success)

	env := reply.(*Envelope)
	require.NotNil(t, env.Meta)
	assert.Equal(t, "customer-1", env.Meta.CustomerID)
	assert.Equal(t, int64(2), env.Meta.Total)

	reply, success = handlers.listByCustomer(context.Background(), []byte(`{"customerId":"customer-1","status":"closed"}`))
	require.True(t, success)
	assert.Equal(t, int64(1), reply.(*Envelope).Meta.Total)
}

func TestListByCustomerHandlerRequiresCustomer(t *testing.T) {
	_, handlers := newConversationHandlerFixture()

	reply, success := handlers.listByCustomer(context.Background(), nil)
	require.False(t, success)
	assert.Equal(t, "customerId is required", reply.(*Envelope).Message)
}

func TestConversationStatsHandlerAcceptsEmptyPayload(t *testing.T) {
	store, handlers := newConversationHandlerFixture()
	store.seed(&models.Conversation{
		CustomerID: "customer-1",
		Channel:    "whatsapp",
		Status:     models.StatusActive,
	})

	reply, success := handlers.stats(context.Background(), nil)
	require.True(t, success)

	stats := reply.(*Envelope).Data.(*service.ConversationStats)
	assert.Equal(t, int64(1), stats.Total)
	assert.Equal(t, int64(1), stats.Active)
	assert.Equal(t, int64(1), stats.ByChannel["whatsapp"])
}
