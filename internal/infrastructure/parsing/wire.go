package parsing

import "github.com/google/wire"

// ProviderSet 解析 ProviderSet
var ProviderSet = wire.NewSet(
	NewMimeTypeParser,
	ProvideSplitter,
)
