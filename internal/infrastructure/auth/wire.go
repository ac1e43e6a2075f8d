package auth

import "github.com/google/wire"

// ProviderSet 认证 ProviderSet
var ProviderSet = wire.NewSet(
	NewTokenIssuer,
)
