package llm

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func feedAll(e *FieldExtractor, chunks ...string) string {
	var out strings.Builder
	for _, c := range chunks {
		out.WriteString(e.Feed(c))
	}
	return out.String()
}

func TestExtractorSingleChunk(t *testing.T) {
	e := NewFieldExtractor()
	got := feedAll(e, `{"assistant_text": "hello world", "intent": "chat"}`)
	assert.Equal(t, "hello world", got)
	assert.True(t, e.Done())
}

func TestExtractorChunkBoundaryInsideKey(t *testing.T) {
	e := NewFieldExtractor()
	got := feedAll(e, `{"assist`, `ant_text": "hi"`, `, "intent":"chat"}`)
	assert.Equal(t, "hi", got)
}

func TestExtractorChunkBoundaryInsideUnicodeEscape(t *testing.T) {
	e := NewFieldExtractor()
	got := feedAll(e, `{"assistant_text": "caf\u00`, `e9 time"}`)
	assert.Equal(t, "café time", got)
}

func TestExtractorChunkBoundaryBetweenBackslashAndEscapeTarget(t *testing.T) {
	e := NewFieldExtractor()
	got := feedAll(e, `{"assistant_text": "line1\`, `nline2"}`)
	assert.Equal(t, "line1\nline2", got)
}

func TestExtractorByteAtATime(t *testing.T) {
	raw := `{"intent":"chat","assistant_text":"a\tb\\c\"d"}`
	e := NewFieldExtractor()
	var out strings.Builder
	for i := 0; i < len(raw); i++ {
		out.WriteString(e.Feed(string(raw[i])))
	}
	assert.Equal(t, "a\tb\\c\"d", out.String())
}

func TestExtractorTerminalAfterClosingQuote(t *testing.T) {
	e := NewFieldExtractor()
	feedAll(e, `{"assistant_text": "done"}`)
	assert.True(t, e.Done())
	assert.Equal(t, "", e.Feed(`more text that should never be read`))
}

func TestExtractorNoKeyYieldsNothing(t *testing.T) {
	e := NewFieldExtractor()
	got := feedAll(e, `{"other_field": "value"}`)
	assert.Equal(t, "", got)
	assert.False(t, e.Done())
}
