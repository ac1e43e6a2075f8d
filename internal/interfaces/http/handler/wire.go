package handler

import "github.com/google/wire"

// ProviderSet Handler ProviderSet
var ProviderSet = wire.NewSet(
	NewAuthHandler,
	NewRunHandler,
	NewIngestHandler,
	NewMemoryHandler,
	NewAssistantHandler,
	NewThreadHandler,
)
