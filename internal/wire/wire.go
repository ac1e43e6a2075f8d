//go:build wireinject
// +build wireinject

package wire

import (
	"github.com/google/wire"

	"github.com/opengpts/backend/internal/application"
	domainIngest "github.com/opengpts/backend/internal/domain/ingest"
	domainRun "github.com/opengpts/backend/internal/domain/run"
	"github.com/opengpts/backend/internal/infrastructure"
	"github.com/opengpts/backend/internal/infrastructure/engine"
	"github.com/opengpts/backend/internal/infrastructure/parsing"
	"github.com/opengpts/backend/internal/infrastructure/tokenizer"
	"github.com/opengpts/backend/internal/infrastructure/vector"
	httpiface "github.com/opengpts/backend/internal/interfaces/http"
)

// InitializeApp 初始化应用
func InitializeApp() (*App, error) {
	wire.Build(
		// 按层组合 ProviderSet
		infrastructure.ProviderSet, // 基础设施层
		application.ProviderSet,    // 应用层
		httpiface.ProviderSet,      // 接口层
		// 接口绑定：领域能力 -> 基础设施实现
		wire.Bind(new(domainRun.Engine), new(*engine.Client)),
		wire.Bind(new(domainRun.Tokenizer), new(*tokenizer.Tiktoken)),
		wire.Bind(new(domainIngest.VectorStore), new(*vector.Store)),
		wire.Bind(new(domainIngest.BlobParser), new(*parsing.MimeTypeParser)),
		wire.Bind(new(domainIngest.TextSplitter), new(*parsing.RecursiveCharacterSplitter)),
		NewApp, // 组合所有服务的应用结构
	)
	return nil, nil
}
