package service

import (
	"context"
	"io"
	"sync"
	"time"

	"github.com/google/uuid"

	"message-processor/internal/models"
	"message-processor/internal/repository"
	"message-processor/pkg/cache"
	"message-processor/pkg/lock"
	"message-processor/pkg/logger"
)

func testLogger() *logger.Logger {
	return logger.New(logger.Config{Level: "error", Output: io.Discard})
}

func testCache() *cache.Cache {
	return cache.New(time.Minute, 0, 100)
}

// fakeConversationStore is an in-memory ConversationStore. Create mimics the
// model hooks the real store runs: it assigns an ID and the default status.
type fakeConversationStore struct {
	mu            sync.Mutex
	conversations map[string]*models.Conversation

	createErr   error
	createDelay time.Duration
	createCalls int

	// canned aggregation results
	countsByStatus map[string]int64
	byChannel      map[string]int64
}

func newFakeConversationStore() *fakeConversationStore {
	return &fakeConversationStore{
		conversations:  make(map[string]*models.Conversation),
		countsByStatus: make(map[string]int64),
		byChannel:      make(map[string]int64),
	}
}

func (f *fakeConversationStore) seed(c *models.Conversation) *models.Conversation {
	f.mu.Lock()
	defer f.mu.Unlock()
	if c.ID == "" {
		c.ID = uuid.NewString()
	}
	f.conversations[c.ID] = c
	return c
}

func (f *fakeConversationStore) Create(ctx context.Context, c *models.Conversation) error {
	if f.createDelay > 0 {
		time.Sleep(f.createDelay)
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	f.createCalls++
	if f.createErr != nil {
		return f.createErr
	}

	if c.ID == "" {
		c.ID = uuid.NewString()
	}
	if c.Status == "" {
		c.Status = models.StatusActive
	}
	c.CreatedAt = time.Now()
	c.UpdatedAt = c.CreatedAt
	f.conversations[c.ID] = c
	return nil
}

func (f *fakeConversationStore) List(ctx context.Context, filter repository.ConversationFilter, page, limit int) ([]models.Conversation, int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	var matched []models.Conversation
	for _, c := range f.conversations {
		if filter.Status != "" && c.Status != filter.Status {
			continue
		}
		if filter.Channel != "" && c.Channel != filter.Channel {
			continue
		}
		if filter.CustomerID != "" && c.CustomerID != filter.CustomerID {
			continue
		}
		matched = append(matched, *c)
	}

	total := int64(len(matched))
	start := (page - 1) * limit
	if start >= len(matched) {
		return nil, total, nil
	}
	end := start + limit
	if end > len(matched) {
		end = len(matched)
	}
	return matched[start:end], total, nil
}

func (f *fakeConversationStore) FindByID(ctx context.Context, id string) (*models.Conversation, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	c, ok := f.conversations[id]
	if !ok {
		return nil, nil
	}
	copied := *c
	return &copied, nil
}

func (f *fakeConversationStore) FindActiveByCustomerAndChannel(ctx context.Context, customerID, channel string) (*models.Conversation, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, c := range f.conversations {
		if c.CustomerID == customerID && c.Channel == channel && c.Status == models.StatusActive {
			copied := *c
			return &copied, nil
		}
	}
	return nil, nil
}

func (f *fakeConversationStore) Save(ctx context.Context, c *models.Conversation) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	c.UpdatedAt = time.Now()
	copied := *c
	f.conversations[c.ID] = &copied
	return nil
}

func (f *fakeConversationStore) Delete(ctx context.Context, c *models.Conversation) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.conversations, c.ID)
	return nil
}

func (f *fakeConversationStore) CountByStatus(ctx context.Context, status string) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.countsByStatus[status], nil
}

func (f *fakeConversationStore) CountByChannel(ctx context.Context) (map[string]int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make(map[string]int64, len(f.byChannel))
	for k, v := range f.byChannel {
		out[k] = v
	}
	return out, nil
}

// fakeMessageStore is an in-memory MessageStore that records the filter and
// paging it was last queried with.
type fakeMessageStore struct {
	mu       sync.Mutex
	messages map[string]*models.Message

	createErr   error
	createCalls int

	lastFilter    repository.MessageFilter
	lastPage      int
	lastLimit     int
	lastDirection string

	// canned aggregation results
	total, incoming, outgoing int64
	byType                    map[string]int64
	byChannel                 map[string]int64
	byDate                    []repository.DateCount
	lastSince                 time.Time
}

func newFakeMessageStore() *fakeMessageStore {
	return &fakeMessageStore{
		messages:  make(map[string]*models.Message),
		byType:    make(map[string]int64),
		byChannel: make(map[string]int64),
	}
}

func (f *fakeMessageStore) seed(m *models.Message) *models.Message {
	f.mu.Lock()
	defer f.mu.Unlock()
	if m.ID == "" {
		m.ID = uuid.NewString()
	}
	f.messages[m.ID] = m
	return m
}

func (f *fakeMessageStore) Create(ctx context.Context, m *models.Message) error {
	return f.CreateWithAttachments(ctx, m, nil)
}

func (f *fakeMessageStore) CreateWithAttachments(ctx context.Context, m *models.Message, attachments []models.MessageAttachment) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.createCalls++
	if f.createErr != nil {
		return f.createErr
	}

	if m.ID == "" {
		m.ID = uuid.NewString()
	}
	m.CreatedAt = time.Now()
	m.UpdatedAt = m.CreatedAt
	for i := range attachments {
		if attachments[i].ID == "" {
			attachments[i].ID = uuid.NewString()
		}
		attachments[i].MessageID = m.ID
	}
	m.Attachments = attachments
	f.messages[m.ID] = m
	return nil
}

func (f *fakeMessageStore) List(ctx context.Context, filter repository.MessageFilter, page, limit int) ([]models.Message, int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.lastFilter = filter
	f.lastPage = page
	f.lastLimit = limit

	var matched []models.Message
	for _, m := range f.messages {
		if filter.ConversationID != "" && m.ConversationID != filter.ConversationID {
			continue
		}
		if filter.Direction != "" && m.Direction != filter.Direction {
			continue
		}
		matched = append(matched, *m)
	}
	return matched, int64(len(matched)), nil
}

func (f *fakeMessageStore) ListByConversation(ctx context.Context, conversationID, direction string, page, limit int) ([]models.Message, int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.lastPage = page
	f.lastLimit = limit
	f.lastDirection = direction

	var matched []models.Message
	for _, m := range f.messages {
		if m.ConversationID != conversationID {
			continue
		}
		if direction != "" && m.Direction != direction {
			continue
		}
		matched = append(matched, *m)
	}
	return matched, int64(len(matched)), nil
}

func (f *fakeMessageStore) FindByID(ctx context.Context, id string) (*models.Message, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	m, ok := f.messages[id]
	if !ok {
		return nil, nil
	}
	copied := *m
	return &copied, nil
}

func (f *fakeMessageStore) Save(ctx context.Context, m *models.Message) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	copied := *m
	f.messages[m.ID] = &copied
	return nil
}

func (f *fakeMessageStore) Delete(ctx context.Context, m *models.Message) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.messages, m.ID)
	return nil
}

func (f *fakeMessageStore) CountByDirection(ctx context.Context, filter repository.MessageFilter) (int64, int64, int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.lastFilter = filter
	return f.total, f.incoming, f.outgoing, nil
}

func (f *fakeMessageStore) GroupByType(ctx context.Context, filter repository.MessageFilter) (map[string]int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.byType, nil
}

func (f *fakeMessageStore) GroupByChannel(ctx context.Context, filter repository.MessageFilter) (map[string]int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.byChannel, nil
}

func (f *fakeMessageStore) CountByDay(ctx context.Context, since time.Time) ([]repository.DateCount, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.lastSince = since
	return f.byDate, nil
}

func newTestConversationService(store repository.ConversationStore) *ConversationService {
	return NewConversationService(store, lock.NewKeyedMutex(), testCache(), testLogger())
}

func newTestMessageService(store repository.MessageStore, conversations *ConversationService) *MessageService {
	return NewMessageService(store, conversations, testCache(), testLogger())
}
