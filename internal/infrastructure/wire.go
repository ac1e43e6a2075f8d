package infrastructure

import (
	"github.com/google/wire"

	"github.com/opengpts/backend/internal/infrastructure/auth"
	"github.com/opengpts/backend/internal/infrastructure/config"
	"github.com/opengpts/backend/internal/infrastructure/embedding"
	"github.com/opengpts/backend/internal/infrastructure/engine"
	"github.com/opengpts/backend/internal/infrastructure/parsing"
	"github.com/opengpts/backend/internal/infrastructure/storage"
	"github.com/opengpts/backend/internal/infrastructure/tokenizer"
	"github.com/opengpts/backend/internal/infrastructure/vector"
	"github.com/opengpts/backend/internal/infrastructure/websocket"
)

// ProviderSet 基础设施层 ProviderSet
var ProviderSet = wire.NewSet(
	config.ProviderSet,
	auth.ProviderSet,
	storage.ProviderSet,
	embedding.ProviderSet,
	engine.ProviderSet,
	tokenizer.ProviderSet,
	vector.ProviderSet,
	parsing.ProviderSet,
	websocket.ProviderSet,
)
