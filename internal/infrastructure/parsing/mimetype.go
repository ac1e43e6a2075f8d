package parsing

import (
	"bytes"
	"mime"
	"path/filepath"
	"strings"
	"unicode"
)

// 常见二进制格式的文件头签名
var (
	pdfSignature   = []byte("%PDF")
	zipSignatures  = [][]byte{{0x50, 0x4B, 0x03, 0x04}, {0x50, 0x4B, 0x05, 0x06}, {0x50, 0x4B, 0x07, 0x08}}
	oleSignature   = []byte{0xD0, 0xCF, 0x11, 0xE0, 0xA1, 0xB1, 0x1A, 0xE1}
	excelSignature = []byte{0x09, 0x00, 0xFF, 0x00, 0x06, 0x00}
)

// GuessMimeType 根据文件名与内容推断媒体类型
// 优先按扩展名判断，再做签名检测，最后对文本内容做启发式识别
func GuessMimeType(fileName string, data []byte) string {
	if ext := filepath.Ext(fileName); ext != "" {
		if mimeType := mime.TypeByExtension(ext); mimeType != "" {
			return baseMimeType(mimeType)
		}
	}

	switch {
	case bytes.HasPrefix(data, pdfSignature):
		return "application/pdf"
	case hasAnyPrefix(data, zipSignatures):
		return "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
	case bytes.HasPrefix(data, oleSignature):
		return "application/msword"
	case bytes.HasPrefix(data, excelSignature):
		return "application/vnd.ms-excel"
	}

	head := data
	if len(head) > 1024 {
		head = head[:1024]
	}
	decoded := strings.ToValidUTF8(string(head), "")
	switch {
	case strings.Contains(decoded, ",") && strings.Contains(decoded, "\n"),
		strings.Contains(decoded, "\t") && strings.Contains(decoded, "\n"):
		return "text/csv"
	case isPrintableText(decoded):
		return "text/plain"
	}

	return "application/octet-stream"
}

// baseMimeType 去掉媒体类型附带的参数（如 charset）
func baseMimeType(mimeType string) string {
	if i := strings.Index(mimeType, ";"); i >= 0 {
		mimeType = mimeType[:i]
	}
	return strings.TrimSpace(mimeType)
}

func hasAnyPrefix(data []byte, prefixes [][]byte) bool {
	for _, prefix := range prefixes {
		if bytes.HasPrefix(data, prefix) {
			return true
		}
	}
	return false
}

// isPrintableText 可打印字符与空白之外不含其他字符
func isPrintableText(s string) bool {
	for _, r := range s {
		if !unicode.IsPrint(r) && !unicode.IsSpace(r) {
			return false
		}
	}
	return true
}
