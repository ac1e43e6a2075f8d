package parsing

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"io"
	"strconv"
	"strings"

	domainIngest "github.com/opengpts/backend/internal/domain/ingest"
)

// MimeTypeParser 按媒体类型分派的 Blob 解析器
// 文本族一次性产出单文档，CSV 逐行惰性产出，其余类型返回错误序列
type MimeTypeParser struct{}

// NewMimeTypeParser 创建解析器
func NewMimeTypeParser() *MimeTypeParser {
	return &MimeTypeParser{}
}

// LazyParse 解析 Blob 为惰性文档序列
func (p *MimeTypeParser) LazyParse(blob *domainIngest.Blob) domainIngest.DocumentSource {
	switch baseMimeType(blob.MimeType) {
	case "text/plain", "text/markdown", "text/html", "application/json":
		return &singleDocumentSource{blob: blob}
	case "text/csv":
		return newCSVSource(blob)
	default:
		return &errorSource{
			err: fmt.Errorf("unsupported mime type: %s", blob.MimeType),
		}
	}
}

// singleDocumentSource 整个 Blob 作为一篇文档
type singleDocumentSource struct {
	blob *domainIngest.Blob
	done bool
}

func (s *singleDocumentSource) Next() (*domainIngest.Document, error) {
	if s.done {
		return nil, io.EOF
	}
	s.done = true
	return &domainIngest.Document{
		Text:     string(s.blob.Data),
		Metadata: map[string]string{"source": s.blob.Name},
	}, nil
}

// csvSource 逐行读取 CSV，每条数据行产出一篇文档
// 首行视为表头，正文按“列名: 值”逐列拼接
type csvSource struct {
	blob   *domainIngest.Blob
	reader *csv.Reader
	header []string
	row    int
}

func newCSVSource(blob *domainIngest.Blob) *csvSource {
	reader := csv.NewReader(bytes.NewReader(blob.Data))
	reader.FieldsPerRecord = -1
	return &csvSource{blob: blob, reader: reader}
}

func (s *csvSource) Next() (*domainIngest.Document, error) {
	if s.header == nil {
		header, err := s.reader.Read()
		if err != nil {
			if err == io.EOF {
				return nil, io.EOF
			}
			return nil, fmt.Errorf("failed to read csv header: %w", err)
		}
		s.header = header
	}

	record, err := s.reader.Read()
	if err != nil {
		if err == io.EOF {
			return nil, io.EOF
		}
		return nil, fmt.Errorf("failed to read csv record: %w", err)
	}
	s.row++

	var builder strings.Builder
	for i, value := range record {
		if i > 0 {
			builder.WriteByte('\n')
		}
		column := fmt.Sprintf("column_%d", i+1)
		if i < len(s.header) {
			column = s.header[i]
		}
		builder.WriteString(column)
		builder.WriteString(": ")
		builder.WriteString(value)
	}

	return &domainIngest.Document{
		Text: builder.String(),
		Metadata: map[string]string{
			"source": s.blob.Name,
			"row":    strconv.Itoa(s.row),
		},
	}, nil
}

// errorSource 首次 Next 即返回错误的文档序列
type errorSource struct {
	err error
}

func (s *errorSource) Next() (*domainIngest.Document, error) {
	return nil, s.err
}
