package ingest

import "fmt"

// Blob 上传得到的原始字节
// 由上传入口产生一次，由摄取流水线消费一次
type Blob struct {
	Data     []byte
	Name     string
	MimeType string
}

// Document 解析出的一篇文档
type Document struct {
	Text     string
	Metadata map[string]string
}

// Chunk 准备入库的文本片段
// 不可变记录：创建时即携带命名空间，不与切分器输出共享状态
type Chunk struct {
	Text      string
	Namespace Namespace
	Source    string
	Metadata  map[string]string
}

// Namespace 检索作用域标签，助手级或会话级，查询时按其过滤
type Namespace string

func (n Namespace) String() string {
	return string(n)
}

// ResolveNamespace 从 assistant_id / thread_id 解析命名空间
// 二者必须恰好提供一个，摄取开始前完成校验
func ResolveNamespace(assistantID, threadID string) (Namespace, error) {
	if (assistantID == "") == (threadID == "") {
		return "", fmt.Errorf("exactly one of assistant_id or thread_id must be provided")
	}
	if assistantID != "" {
		return Namespace(assistantID), nil
	}
	return Namespace(threadID), nil
}
