package parsing

import (
	"io"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	domainIngest "github.com/opengpts/backend/internal/domain/ingest"
)

func TestLazyParsePlainText(t *testing.T) {
	parser := NewMimeTypeParser()
	blob := &domainIngest.Blob{
		Data:     []byte("hello world"),
		Name:     "notes.txt",
		MimeType: "text/plain; charset=utf-8",
	}

	source := parser.LazyParse(blob)

	doc, err := source.Next()
	require.NoError(t, err)
	assert.Equal(t, "hello world", doc.Text)
	assert.Equal(t, "notes.txt", doc.Metadata["source"])

	_, err = source.Next()
	assert.Equal(t, io.EOF, err)
}

func TestLazyParseCSV(t *testing.T) {
	parser := NewMimeTypeParser()
	blob := &domainIngest.Blob{
		Data:     []byte("name,age\nalice,30\nbob,25\n"),
		Name:     "people.csv",
		MimeType: "text/csv",
	}

	source := parser.LazyParse(blob)

	first, err := source.Next()
	require.NoError(t, err)
	assert.Equal(t, "name: alice\nage: 30", first.Text)
	assert.Equal(t, "people.csv", first.Metadata["source"])
	assert.Equal(t, "1", first.Metadata["row"])

	second, err := source.Next()
	require.NoError(t, err)
	assert.Equal(t, "name: bob\nage: 25", second.Text)
	assert.Equal(t, "2", second.Metadata["row"])

	_, err = source.Next()
	assert.Equal(t, io.EOF, err)
}

func TestLazyParseCSVHeaderOnly(t *testing.T) {
	parser := NewMimeTypeParser()
	blob := &domainIngest.Blob{
		Data:     []byte("name,age\n"),
		Name:     "empty.csv",
		MimeType: "text/csv",
	}

	source := parser.LazyParse(blob)
	_, err := source.Next()
	assert.Equal(t, io.EOF, err)
}

func TestLazyParseUnsupported(t *testing.T) {
	parser := NewMimeTypeParser()
	blob := &domainIngest.Blob{
		Data:     []byte{0x00, 0x01},
		Name:     "image.png",
		MimeType: "image/png",
	}

	source := parser.LazyParse(blob)
	_, err := source.Next()
	assert.ErrorContains(t, err, "unsupported mime type")
}
