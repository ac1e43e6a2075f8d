package tokenizer

import (
	"sync"

	"github.com/pkoukk/tiktoken-go"
	tiktoken_loader "github.com/pkoukk/tiktoken-go-loader"
)

// 在包初始化时设置离线加载器，避免运行时下载编码文件
func init() {
	tiktoken.SetBpeLoader(tiktoken_loader.NewOfflineLoader())
}

// Tiktoken 近似分词器
// 使用 cl100k_base 编码，与主流模型的 token 口径基本一致
type Tiktoken struct {
	encoding *tiktoken.Tiktoken
}

var (
	instance *Tiktoken
	once     sync.Once
	initErr  error
)

// New 获取分词器单例
// 编码文件较大，只加载一次
func New() (*Tiktoken, error) {
	once.Do(func() {
		encoding, err := tiktoken.GetEncoding("cl100k_base")
		if err != nil {
			initErr = err
			return
		}
		instance = &Tiktoken{encoding: encoding}
	})
	if initErr != nil {
		return nil, initErr
	}
	return instance, nil
}

// CountTokens 计算文本的 token 数量
func (t *Tiktoken) CountTokens(text string) int {
	if text == "" {
		return 0
	}
	return len(t.encoding.Encode(text, nil, nil))
}
