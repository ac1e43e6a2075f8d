package parsing

import (
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
)

func TestSplitTextShortInput(t *testing.T) {
	splitter := NewRecursiveCharacterSplitter(1000, 200)

	chunks := splitter.SplitText("hello world")
	assert.Equal(t, []string{"hello world"}, chunks)

	assert.Empty(t, splitter.SplitText(""))
	assert.Empty(t, splitter.SplitText("   \n  "))
}

func TestSplitTextParagraphs(t *testing.T) {
	splitter := NewRecursiveCharacterSplitter(20, 0)

	text := "first paragraph\n\nsecond paragraph\n\nthird one"
	chunks := splitter.SplitText(text)

	assert.True(t, len(chunks) >= 2)
	for _, chunk := range chunks {
		assert.LessOrEqual(t, utf8.RuneCountInString(chunk), 20)
	}
	// 合并后不丢失正文
	joined := strings.Join(chunks, "")
	assert.Contains(t, joined, "first paragraph")
	assert.Contains(t, joined, "second paragraph")
	assert.Contains(t, joined, "third one")
}

func TestSplitTextRespectsChunkSize(t *testing.T) {
	splitter := NewRecursiveCharacterSplitter(10, 2)

	text := strings.Repeat("word ", 20)
	chunks := splitter.SplitText(text)

	assert.NotEmpty(t, chunks)
	for _, chunk := range chunks {
		assert.LessOrEqual(t, utf8.RuneCountInString(chunk), 10)
	}
}

func TestSplitTextWithoutSeparators(t *testing.T) {
	splitter := NewRecursiveCharacterSplitter(10, 2)

	text := strings.Repeat("a", 25)
	chunks := splitter.SplitText(text)

	assert.Equal(t, []string{
		strings.Repeat("a", 10),
		strings.Repeat("a", 10),
		strings.Repeat("a", 9),
	}, chunks)
}

func TestSplitTextCountsRunes(t *testing.T) {
	splitter := NewRecursiveCharacterSplitter(10, 0)

	text := strings.Repeat("测", 25)
	chunks := splitter.SplitText(text)

	assert.Len(t, chunks, 3)
	for _, chunk := range chunks {
		assert.LessOrEqual(t, utf8.RuneCountInString(chunk), 10)
	}
}
