package application

import (
	"github.com/google/wire"

	"github.com/opengpts/backend/internal/application/ingest"
	"github.com/opengpts/backend/internal/application/memory"
	"github.com/opengpts/backend/internal/application/run"
)

// ProviderSet 应用层 ProviderSet
var ProviderSet = wire.NewSet(
	run.ProviderSet,
	ingest.ProviderSet,
	memory.ProviderSet,
)
