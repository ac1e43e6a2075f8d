package engine

import "github.com/google/wire"

// ProviderSet 引擎 ProviderSet
var ProviderSet = wire.NewSet(
	NewClient,
)
