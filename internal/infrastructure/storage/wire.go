package storage

import "github.com/google/wire"

// ProviderSet 存储 ProviderSet
var ProviderSet = wire.NewSet(
	OpenDB,
	NewUserRepository,
	NewAssistantRepository,
	NewThreadRepository,
)
