package run

import "github.com/google/wire"

// ProviderSet 运行应用层 ProviderSet
var ProviderSet = wire.NewSet(
	NewService,
)
