package http

import (
	"time"

	"github.com/gin-gonic/gin"

	"beifahrer/internal/ai"
	appsvc "beifahrer/internal/app"
	"beifahrer/internal/bootstrap"
	"beifahrer/internal/cache"
	"beifahrer/internal/platform/rabbitmq"
	"beifahrer/internal/rag"
	"beifahrer/internal/repository"
	"beifahrer/internal/transport/http/handler"
)

func NewRouter(app *bootstrap.App) *gin.Engine {
	gin.SetMode(app.Config.App.GinMode)
	router := gin.New()
	router.Use(gin.Logger(), gin.Recovery())

	healthHandler := handler.NewHealthHandler(app)
	router.GET("/healthz", healthHandler.Check)

	chatRepo := repository.NewChatRepository(app.MySQL)
	chunkRepo := repository.NewChunkRepository(app.MySQL)
	docRepo := repository.NewDocumentRepository(app.MySQL)
	turnEventRepo := repository.NewTurnEventRepository(app.MySQL)

	embCfg := ai.EmbeddingConfig{
		BaseURL: app.Config.LLM.BaseURL,
		APIKey:  app.Config.LLM.APIKey,
		Model:   app.Config.LLM.EmbeddingModel,
	}
	chatCfg := ai.ChatConfig{
		BaseURL: app.Config.LLM.BaseURL,
		APIKey:  app.Config.LLM.APIKey,
		Model:   app.Config.LLM.Model,
	}

	index := rag.NewIndex(chunkRepo)
	retriever := rag.NewRetriever(app.LLM, embCfg, index, app.Config.RAG.TopK)
	generator := appsvc.NewResponseGenerator(
		retriever,
		app.LLM,
		chatCfg,
		time.Duration(app.Config.LLM.RequestTimeoutSeconds)*time.Second,
	)

	historyCache := cache.NewHistoryCache(
		app.Redis,
		time.Duration(app.Config.Redis.HistoryTTLSeconds)*time.Second,
		time.Duration(app.Config.Redis.HistoryDirtyTTLSeconds)*time.Second,
	)
	publisher := rabbitmq.NewTurnPublisher(app.MQConn, app.Config.RabbitMQ.TurnPersistQueue)

	registry := appsvc.NewSessionRegistry(chatRepo)
	conversations := appsvc.NewConversationService(chatRepo, registry, generator, publisher, historyCache)
	chatHandler := handler.NewChatHandler(conversations)
	adminHandler := handler.NewAdminHandler(docRepo, turnEventRepo)

	api := router.Group("/api")
	api.POST("/chat", chatHandler.StartChat)
	api.GET("/chat/:id", chatHandler.GetHistory)
	api.POST("/chat/:id", chatHandler.SendMessage)
	api.GET("/chat/:id/events", adminHandler.ListTurnEvents)
	api.GET("/documents", adminHandler.ListDocuments)

	return router
}
