// Code generated by Wire. DO NOT EDIT.

//go:generate go run -mod=mod github.com/google/wire/cmd/wire
//go:build !wireinject
// +build !wireinject

package wire

import (
	"github.com/opengpts/backend/internal/application/ingest"
	"github.com/opengpts/backend/internal/application/memory"
	"github.com/opengpts/backend/internal/application/run"
	"github.com/opengpts/backend/internal/infrastructure/auth"
	"github.com/opengpts/backend/internal/infrastructure/config"
	"github.com/opengpts/backend/internal/infrastructure/embedding"
	"github.com/opengpts/backend/internal/infrastructure/engine"
	"github.com/opengpts/backend/internal/infrastructure/parsing"
	"github.com/opengpts/backend/internal/infrastructure/storage"
	"github.com/opengpts/backend/internal/infrastructure/tokenizer"
	"github.com/opengpts/backend/internal/infrastructure/vector"
	"github.com/opengpts/backend/internal/infrastructure/websocket"
	"github.com/opengpts/backend/internal/interfaces/http"
	"github.com/opengpts/backend/internal/interfaces/http/handler"
)

// Injectors from wire.go:

// InitializeApp 初始化应用
func InitializeApp() (*App, error) {
	configConfig, err := config.NewConfig()
	if err != nil {
		return nil, err
	}
	serverConfig := config.NewServerConfig(configConfig)
	authConfig := config.NewAuthConfig(configConfig)
	tokenIssuer, err := auth.NewTokenIssuer(authConfig)
	if err != nil {
		return nil, err
	}
	databaseConfig := config.NewDatabaseConfig(configConfig)
	db, err := storage.OpenDB(databaseConfig)
	if err != nil {
		return nil, err
	}
	userRepository, err := storage.NewUserRepository(db)
	if err != nil {
		return nil, err
	}
	authHandler := handler.NewAuthHandler(tokenIssuer, userRepository)
	engineConfig := config.NewEngineConfig(configConfig)
	client := engine.NewClient(engineConfig)
	tiktoken, err := tokenizer.New()
	if err != nil {
		return nil, err
	}
	service := run.NewService(client, tiktoken)
	qdrantConfig := config.NewQdrantConfig(configConfig)
	manager := vector.NewManager(qdrantConfig)
	embeddingConfig := config.NewEmbeddingConfig(configConfig)
	embeddingClient := embedding.NewClient(embeddingConfig)
	store := vector.NewStore(manager, embeddingClient)
	memoryService := memory.NewService(store)
	assistantRepository, err := storage.NewAssistantRepository(db)
	if err != nil {
		return nil, err
	}
	threadRepository, err := storage.NewThreadRepository(db)
	if err != nil {
		return nil, err
	}
	runHandler := handler.NewRunHandler(service, memoryService, assistantRepository, threadRepository)
	registry := ingest.NewRegistry()
	mimeTypeParser := parsing.NewMimeTypeParser()
	ingestConfig := config.NewIngestConfig(configConfig)
	recursiveCharacterSplitter := parsing.ProvideSplitter(ingestConfig)
	pipeline := ingest.ProvidePipeline(mimeTypeParser, recursiveCharacterSplitter, store, ingestConfig)
	ingestService := ingest.NewService(registry, pipeline)
	hub := websocket.NewHub()
	webSocketConfig := config.NewWebSocketConfig(configConfig)
	ingestHandler := handler.NewIngestHandler(ingestService, hub, webSocketConfig)
	memoryHandler := handler.NewMemoryHandler(memoryService)
	assistantHandler := handler.NewAssistantHandler(assistantRepository)
	threadHandler := handler.NewThreadHandler(threadRepository, assistantRepository)
	httpServer := http.NewServer(serverConfig, tokenIssuer, userRepository, authHandler, runHandler, ingestHandler, memoryHandler, assistantHandler, threadHandler)
	app := NewApp(httpServer, hub, registry, manager, embeddingClient, db)
	return app, nil
}
