package parsing

import (
	"strings"
	"unicode/utf8"

	"github.com/opengpts/backend/internal/infrastructure/config"
)

// 默认分隔符，从粗到细依次尝试
var defaultSeparators = []string{"\n\n", "\n", " ", ""}

// RecursiveCharacterSplitter 递归字符切分器
// 先按最粗的分隔符切开，合并相邻片段到不超过窗口大小的块
// 超长片段降级到更细的分隔符递归处理，相邻块之间保留重叠
// 长度均按 Unicode 字符数计
type RecursiveCharacterSplitter struct {
	chunkSize    int
	chunkOverlap int
	separators   []string
}

// NewRecursiveCharacterSplitter 创建切分器
func NewRecursiveCharacterSplitter(chunkSize, chunkOverlap int) *RecursiveCharacterSplitter {
	return &RecursiveCharacterSplitter{
		chunkSize:    chunkSize,
		chunkOverlap: chunkOverlap,
		separators:   defaultSeparators,
	}
}

// ProvideSplitter 按摄取配置提供切分器
func ProvideSplitter(cfg *config.IngestConfig) *RecursiveCharacterSplitter {
	return NewRecursiveCharacterSplitter(cfg.ChunkSize, cfg.ChunkOverlap)
}

// SplitText 将文本切分为片段
func (s *RecursiveCharacterSplitter) SplitText(text string) []string {
	return s.split(text, s.separators)
}

func (s *RecursiveCharacterSplitter) split(text string, separators []string) []string {
	if strings.TrimSpace(text) == "" {
		return nil
	}
	if utf8.RuneCountInString(text) <= s.chunkSize {
		return []string{text}
	}

	separator := ""
	var remaining []string
	for i, candidate := range separators {
		if candidate == "" {
			break
		}
		if strings.Contains(text, candidate) {
			separator = candidate
			remaining = separators[i+1:]
			break
		}
	}

	if separator == "" {
		return s.splitByWindow(text)
	}

	// SplitAfter 保留分隔符，合并后不丢失原始文本
	parts := strings.SplitAfter(text, separator)
	var chunks []string
	var window []string
	windowLen := 0

	flush := func() {
		if len(window) == 0 {
			return
		}
		chunk := strings.Join(window, "")
		if strings.TrimSpace(chunk) != "" {
			chunks = append(chunks, chunk)
		}
	}

	for _, part := range parts {
		partLen := utf8.RuneCountInString(part)
		if partLen > s.chunkSize {
			flush()
			window, windowLen = nil, 0
			chunks = append(chunks, s.split(part, remaining)...)
			continue
		}
		if windowLen+partLen > s.chunkSize && windowLen > 0 {
			flush()
			// 回退窗口到重叠上限，作为下一块的开头
			for len(window) > 0 && (windowLen > s.chunkOverlap || windowLen+partLen > s.chunkSize) {
				windowLen -= utf8.RuneCountInString(window[0])
				window = window[1:]
			}
		}
		window = append(window, part)
		windowLen += partLen
	}
	flush()
	return chunks
}

// splitByWindow 无可用分隔符时按固定窗口滑动切分
func (s *RecursiveCharacterSplitter) splitByWindow(text string) []string {
	runes := []rune(text)
	step := s.chunkSize - s.chunkOverlap
	if step <= 0 {
		step = s.chunkSize
	}

	var chunks []string
	for start := 0; start < len(runes); start += step {
		end := start + s.chunkSize
		if end > len(runes) {
			end = len(runes)
		}
		chunks = append(chunks, string(runes[start:end]))
		if end == len(runes) {
			break
		}
	}
	return chunks
}
