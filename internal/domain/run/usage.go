package run

// UsageStats 单次运行的 token 用量
// 引擎未上报用量时由本地估算得出，Estimated 为 true
type UsageStats struct {
	PromptTokens     int  `json:"prompt_tokens"`
	CompletionTokens int  `json:"completion_tokens"`
	TotalTokens      int  `json:"total_tokens"`
	Estimated        bool `json:"estimated"`
}
