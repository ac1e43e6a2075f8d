package ingest

import "github.com/google/wire"

// ProviderSet 摄取应用层 ProviderSet
var ProviderSet = wire.NewSet(
	NewRegistry,
	ProvidePipeline,
	NewService,
)
