package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"message-processor/internal/di"
	"message-processor/internal/models"
	"message-processor/internal/rpc"
	"message-processor/pkg/bus"
	"message-processor/pkg/config"
	"message-processor/pkg/logger"
	"message-processor/pkg/router"
)

func main() {
	// Load environment variables
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found")
	}

	cfg := config.New()

	// Initialize structured logger
	logConfig := logger.DefaultConfig()
	logConfig.Level = cfg.Logging.Level
	logConfig.JSON = cfg.Logging.Format != "text"

	appLog := logger.New(logConfig)
	logger.SetGlobal(appLog)

	appLog.Info("Starting message processor", "service", cfg.Service.Name)

	// Initialize database
	db, err := config.NewDB()
	if err != nil {
		appLog.LogError(err, "Failed to initialize database")
		os.Exit(1)
	}

	// Auto-migrate the schema
	if err := db.AutoMigrate(&models.Conversation{}, &models.Message{}, &models.MessageAttachment{}); err != nil {
		appLog.LogError(err, "Failed to migrate database")
		os.Exit(1)
	}

	// Create indexes for better query performance
	if err := db.Exec("CREATE INDEX IF NOT EXISTS idx_messages_conversation_created ON messages(conversation_id, created_at)").Error; err != nil {
		appLog.LogError(err, "Failed to create message index", "index", "idx_messages_conversation_created")
	}
	if err := db.Exec("CREATE INDEX IF NOT EXISTS idx_conversations_updated ON conversations(updated_at)").Error; err != nil {
		appLog.LogError(err, "Failed to create conversation index", "index", "idx_conversations_updated")
	}

	// Initialize dependency container
	container, err := di.New(db, cfg, appLog)
	if err != nil {
		appLog.LogError(err, "Failed to initialize dependency container")
		os.Exit(1)
	}

	// Connect to the bus and register the RPC surface
	conn, err := bus.Connect(cfg.Bus.URL)
	if err != nil {
		appLog.LogError(err, "Failed to connect to message bus")
		os.Exit(1)
	}
	defer conn.Close()

	container.Health.RegisterBusCheck(conn.IsConnected)
	container.Health.Start()

	busServer := bus.NewServer(conn, cfg.Bus.Queue, cfg.Server.Timeout, appLog)
	registrar := rpc.NewRegistrar(busServer, cfg.Service.Name, container.Metrics, appLog)
	rpc.NewConversationHandlers(container.ConversationService, appLog).Register(registrar)
	rpc.NewMessageHandlers(container.MessageService, container.Normalizer, appLog).Register(registrar)
	rpc.NewHealthHandlers(container.Health, cfg.Service.Name).Register(registrar)

	if err := busServer.Start(); err != nil {
		appLog.LogError(err, "Failed to start bus server")
		os.Exit(1)
	}

	// Admin HTTP surface: health and metrics
	r := router.New(container.Health)
	r.SetupRoutes()

	srv := &http.Server{
		Addr:    ":" + cfg.Server.Port,
		Handler: r.Engine,
	}

	go func() {
		appLog.Info("Admin server listening", "port", cfg.Server.Port)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			appLog.LogError(err, "Admin server failed")
			os.Exit(1)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	appLog.Info("Shutting down")

	if err := busServer.Drain(); err != nil {
		appLog.LogError(err, "Failed to drain bus subscriptions")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		appLog.LogError(err, "Failed to shut down admin server")
	}

	appLog.Info("Stopped")
}
