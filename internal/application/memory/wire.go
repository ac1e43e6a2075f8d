package memory

import "github.com/google/wire"

// ProviderSet 记忆应用层 ProviderSet
var ProviderSet = wire.NewSet(
	NewService,
)
