package configuration

import (
	"context"
	"fmt"
	"os"
	"time"

	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"

	"github.com/iamfaisalpk/WhatsApp-Backend/internal/auth"
	"github.com/iamfaisalpk/WhatsApp-Backend/internal/blobstore"
	"github.com/iamfaisalpk/WhatsApp-Backend/internal/db"
	"github.com/iamfaisalpk/WhatsApp-Backend/internal/handler"
	"github.com/iamfaisalpk/WhatsApp-Backend/internal/hub"
	"github.com/iamfaisalpk/WhatsApp-Backend/internal/model"
	"github.com/iamfaisalpk/WhatsApp-Backend/internal/repo"
	"github.com/iamfaisalpk/WhatsApp-Backend/internal/service"
)

// Container wires every component together. Built once at startup, torn
// down in reverse order by Close.
type Container struct {
	ChatHandler    handler.ChatHandler
	MessageHandler handler.MessageHandler
	UserHandler    handler.UserHandler
	TokenHandler   handler.TokenHandler
	Verifier       *auth.Verifier
	Gateway        *hub.Gateway
	Hub            *hub.Hub
	Config         Config
	Logger         *zap.Logger

	// private - for cleanup
	mongoClient *mongo.Database
}

func BuildContainer() (*Container, error) {
	configPath := os.Getenv("CONFIG_PATH")
	if configPath == "" {
		configPath = "config.json"
	}

	config, err := LoadConfig(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	logger, err := zap.NewProduction()
	if err != nil {
		return nil, err
	}

	con, err := db.OpenConnection(config.ChatDatabase.Uri, config.ChatDatabase.Database)
	if err != nil {
		return nil, err
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := db.EnsureIndexes(ctx, con,
		config.ChatDatabase.ConversationsCollection,
		config.ChatDatabase.MessagesCollection,
		config.ChatDatabase.UsersCollection,
		config.ChatDatabase.ChatMetaCollection,
	); err != nil {
		return nil, fmt.Errorf("failed to ensure indexes: %w", err)
	}

	userRepo := repo.NewUserRepository(con, db.NewRepository[model.User](con, config.ChatDatabase.UsersCollection), logger)
	conversationRepo := repo.NewConversationRepository(con, db.NewRepository[model.Conversation](con, config.ChatDatabase.ConversationsCollection), logger)
	messageRepo := repo.NewMessageRepository(con, db.NewRepository[model.Message](con, config.ChatDatabase.MessagesCollection), logger)
	chatMetaRepo := repo.NewChatMetaRepository(con, db.NewRepository[model.ChatMeta](con, config.ChatDatabase.ChatMetaCollection), logger)

	chatService := service.NewChatService(conversationRepo, userRepo, chatMetaRepo, logger)
	messageService := service.NewMessageService(messageRepo, conversationRepo, userRepo, chatMetaRepo, logger)
	userService := service.NewUserService(userRepo, logger)

	verifier := auth.NewVerifier(config.JWT.Secret, userRepo, logger)

	blobs, err := blobstore.NewDiskStore(config.Upload.Dir, config.Upload.BaseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to init blob store: %w", err)
	}

	presence := hub.NewPresence(userRepo, logger)
	chatHub := hub.NewHub(logger)
	wsHandler := hub.NewChatHandler(messageService, presence, logger)
	wsHandler.SetHub(chatHub)
	chatHub.SetChatHandler(wsHandler)
	gateway := hub.NewGateway(chatHub, presence, conversationRepo, config.AllowedOrigins, logger)

	issuer := auth.NewIssuer(config.JWT.Secret, config.JWT.RefreshSecret, config.AccessTTL(), config.RefreshTTL())

	return &Container{
		ChatHandler:    handler.NewChatHandler(chatService, blobs, chatHub, logger),
		MessageHandler: handler.NewMessageHandler(messageService, blobs, chatHub, logger),
		UserHandler:    handler.NewUserHandler(userService, blobs, logger),
		TokenHandler:   handler.NewTokenHandler(issuer),
		Verifier:       verifier,
		Gateway:        gateway,
		Hub:            chatHub,
		Config:         *config,
		Logger:         logger,
		mongoClient:    con,
	}, nil
}

// Close gracefully shuts down all connections
func (c *Container) Close() error {
	// Stop the hub first (closes all WebSocket connections)
	if c.Hub != nil {
		c.Hub.Stop()
	}

	// Sync logger
	if c.Logger != nil {
		_ = c.Logger.Sync()
	}

	// Close MongoDB connection pool
	if c.mongoClient != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := c.mongoClient.Client().Disconnect(ctx); err != nil {
			return fmt.Errorf("failed to close MongoDB connection: %w", err)
		}
	}

	return nil
}
