package di

import (
	"context"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"gorm.io/gorm"

	"message-processor/internal/repository"
	"message-processor/internal/service"
	"message-processor/pkg/cache"
	"message-processor/pkg/config"
	"message-processor/pkg/health"
	"message-processor/pkg/lock"
	"message-processor/pkg/logger"
	"message-processor/pkg/metrics"
)

// Container holds all the dependencies for the application. Wiring is
// explicit: every component receives its collaborators through its
// constructor, nothing is resolved ambiently.
type Container struct {
	DB     *gorm.DB
	Logger *logger.Logger
	Cache  *cache.Cache
	Locks  lock.KeyedLocker

	ConversationStore repository.ConversationStore
	MessageStore      repository.MessageStore
	AttachmentStore   repository.AttachmentStore

	ConversationService *service.ConversationService
	MessageService      *service.MessageService
	Normalizer          *service.Normalizer

	Metrics *metrics.Metrics
	Health  *health.Checker
}

// New creates a new dependency container
func New(db *gorm.DB, cfg *config.Config, log *logger.Logger) (*Container, error) {
	statsCache := cache.NewDisabled()
	if cfg.Cache.Enabled {
		statsCache = cache.New(cfg.Cache.TTL, cfg.Cache.PurgeWindow, cfg.Cache.MaxSize)
	}

	// Serializes find-or-create per (customer, channel). The in-process
	// mutex covers a single instance; Redis covers a fleet.
	var locks lock.KeyedLocker
	var redisLocks *lock.RedisLocker
	if cfg.Lock.Backend == "redis" {
		redisLocks = lock.NewRedisLocker(cfg.Lock.RedisURL, cfg.Lock.TTL, log)
		locks = redisLocks
	} else {
		locks = lock.NewKeyedMutex()
	}

	attachmentStore := repository.NewGormAttachmentStore(db)
	conversationStore := repository.NewGormConversationStore(db)
	messageStore := repository.NewGormMessageStore(db, attachmentStore)

	conversationService := service.NewConversationService(conversationStore, locks, statsCache, log)
	messageService := service.NewMessageService(messageStore, conversationService, statsCache, log)
	normalizer := service.NewNormalizer(conversationService, messageService, log)

	checker := health.NewChecker(log, 30*time.Second)
	checker.RegisterDatabaseCheck(func() error {
		return config.TestConnection(db)
	})
	if redisLocks != nil {
		checker.RegisterCheck("redis", func() (health.Status, string, error) {
			ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
			defer cancel()
			if err := redisLocks.Ping(ctx); err != nil {
				return health.StatusDown, "Redis connection failed", err
			}
			return health.StatusUp, "Redis connection is established", nil
		})
	}

	return &Container{
		DB:                  db,
		Logger:              log,
		Cache:               statsCache,
		Locks:               locks,
		ConversationStore:   conversationStore,
		MessageStore:        messageStore,
		AttachmentStore:     attachmentStore,
		ConversationService: conversationService,
		MessageService:      messageService,
		Normalizer:          normalizer,
		Metrics:             metrics.New(prometheus.DefaultRegisterer),
		Health:              checker,
	}, nil
}
