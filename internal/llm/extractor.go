// Package llm implements the streaming JSON field extractor (component
// D) and the LLM orchestration loop (component E). The extractor is an
// explicit state-machine struct: one state enum (seek key, seek colon,
// seek open quote, in string, escape, \uXXXX, done) plus a bounded key
// buffer and a four-digit unicode accumulator — grounded in shape on the upstream tool-call
// argument accumulator (toolCallAccumulator in the sacenox llm loop)
// which resumes state across streamed deltas the same way.
package llm

import "unicode/utf8"

const assistantTextKey = `"assistant_text"`

type extractorState int

const (
	stateSeekKey extractorState = iota
	stateSeekColon
	stateSeekOpenQuote
	stateInString
	stateEscape
	stateUnicode4
	stateDone
)

// FieldExtractor finds the literal key "assistant_text" in a growing
// byte stream, then emits the decoded characters of its string value as
// they arrive, one feed() call's output at a time. It is single-pass,
// bounded-memory, and safe across arbitrary chunk boundaries — including
// inside the key, inside \uXXXX, or between a backslash and its escape
// target (§4.D).
type FieldExtractor struct {
	state   extractorState
	buf     []byte // bounded tail retained while seeking the key
	unicode []byte // accumulates exactly 4 hex digits of \uXXXX
}

// NewFieldExtractor constructs an extractor targeting "assistant_text".
func NewFieldExtractor() *FieldExtractor {
	return &FieldExtractor{state: stateSeekKey}
}

// Feed processes the next chunk of the growing JSON text and returns the
// decoded characters of the target field's value observed in this chunk,
// if any. Once the closing quote is seen the extractor becomes terminal;
// further Feed calls always return "".
func (e *FieldExtractor) Feed(chunk string) string {
	if e.state == stateDone {
		return ""
	}

	var out []byte
	for i := 0; i < len(chunk); i++ {
		c := chunk[i]

		switch e.state {
		case stateSeekKey:
			e.buf = append(e.buf, c)
			if idx := indexOf(e.buf, assistantTextKey); idx >= 0 {
				e.state = stateSeekColon
				e.buf = nil
				continue
			}
			// Bound the retained buffer to key-length-1 so the key can
			// still be found if split across two Feed calls.
			if maxTail := len(assistantTextKey) - 1; len(e.buf) > maxTail {
				e.buf = e.buf[len(e.buf)-maxTail:]
			}

		case stateSeekColon:
			if c == ':' {
				e.state = stateSeekOpenQuote
			}
			// whitespace or anything else before the colon is ignored

		case stateSeekOpenQuote:
			if c == '"' {
				e.state = stateInString
			}
			// whitespace between ':' and the opening quote is ignored

		case stateInString:
			switch c {
			case '"':
				e.state = stateDone
			case '\\':
				e.state = stateEscape
			default:
				out = append(out, c)
			}

		case stateEscape:
			switch c {
			case 'n':
				out = append(out, '\n')
				e.state = stateInString
			case 't':
				out = append(out, '\t')
				e.state = stateInString
			case 'r':
				out = append(out, '\r')
				e.state = stateInString
			case '"':
				out = append(out, '"')
				e.state = stateInString
			case '\\':
				out = append(out, '\\')
				e.state = stateInString
			case '/':
				out = append(out, '/')
				e.state = stateInString
			case 'u':
				e.unicode = e.unicode[:0]
				e.state = stateUnicode4
			default:
				// Unknown escape: pass the character through literally
				// rather than dropping data silently.
				out = append(out, c)
				e.state = stateInString
			}

		case stateUnicode4:
			e.unicode = append(e.unicode, c)
			if len(e.unicode) == 4 {
				if r, ok := decodeHex4(e.unicode); ok {
					out = appendRune(out, r)
				}
				e.state = stateInString
			}
		}

		if e.state == stateDone {
			break
		}
	}

	return string(out)
}

// Done reports whether the closing quote has been observed.
func (e *FieldExtractor) Done() bool { return e.state == stateDone }

func indexOf(haystack []byte, needle string) int {
	n := len(needle)
	if n == 0 || len(haystack) < n {
		return -1
	}
	for i := 0; i+n <= len(haystack); i++ {
		if string(haystack[i:i+n]) == needle {
			return i
		}
	}
	return -1
}

func decodeHex4(hex4 []byte) (rune, bool) {
	var v rune
	for _, c := range hex4 {
		v <<= 4
		switch {
		case c >= '0' && c <= '9':
			v |= rune(c - '0')
		case c >= 'a' && c <= 'f':
			v |= rune(c-'a') + 10
		case c >= 'A' && c <= 'F':
			v |= rune(c-'A') + 10
		default:
			return 0, false
		}
	}
	return v, true
}

func appendRune(b []byte, r rune) []byte {
	var buf [utf8.UTFMax]byte
	n := utf8.EncodeRune(buf[:], r)
	return append(b, buf[:n]...)
}
