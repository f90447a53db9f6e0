package wire

import (
	"strings"

	"github.com/obsctl/obsctl/pkg/log"
)

// Chunker frames a byte stream that concatenates independent top-level XML
// elements (no enclosing document root) into complete element strings. It
// holds the residual (unparsed) tail across Feed calls, per spec section
// 4.1 framing.
type Chunker struct {
	buf strings.Builder
}

// Feed appends data to the residual buffer and extracts every complete
// top-level element it can find. pendingOpen reports whether the tail of
// the buffer is a balanced element that has been opened but not yet
// closed; the caller (the connection worker) is responsible for the 10s
// timeout on an open element per spec section 4.2.
func (c *Chunker) Feed(data []byte) (elements []string, pendingOpen bool) {
	c.buf.Write(data)
	rest := c.buf.String()
	c.buf.Reset()

	for {
		rest = skipWhitespace(rest)
		if rest == "" {
			return elements, false
		}
		if rest[0] != '<' {
			lt := strings.IndexByte(rest, '<')
			if lt < 0 {
				log.Warnf("wire: dropping %d bytes of non-element text", len(rest))
				return elements, false
			}
			log.Warnf("wire: dropping %d bytes of text preceding '<'", lt)
			rest = rest[lt:]
			continue
		}

		tagEnd, selfClosed, ok := findTagEnd(rest, 1)
		if !ok {
			// Opening tag itself hasn't fully arrived yet.
			c.buf.WriteString(rest)
			return elements, true
		}

		if selfClosed {
			elements = append(elements, rest[:tagEnd+1])
			rest = rest[tagEnd+1:]
			continue
		}

		name := tagName(rest[1:tagEnd])
		closeIdx, ok := findMatchingClose(rest, name)
		if !ok {
			c.buf.WriteString(rest)
			return elements, true
		}

		elements = append(elements, rest[:closeIdx])
		rest = rest[closeIdx:]
	}
}

func skipWhitespace(s string) string {
	i := 0
	for i < len(s) {
		switch s[i] {
		case ' ', '\t', '\r', '\n':
			i++
		default:
			return s[i:]
		}
	}
	return ""
}

// findTagEnd finds the '>' that closes the tag opening at s[0]=='<', start
// at offset from, respecting quoted attribute values. Returns the index of
// '>' in s, whether the tag is self-closing ("/>"), and whether a complete
// tag-open was found at all.
func findTagEnd(s string, from int) (idx int, selfClosed bool, ok bool) {
	inQuote := byte(0)
	for i := from; i < len(s); i++ {
		ch := s[i]
		if inQuote != 0 {
			if ch == inQuote {
				inQuote = 0
			}
			continue
		}
		switch ch {
		case '"', '\'':
			inQuote = ch
		case '>':
			if i > 0 && s[i-1] == '/' {
				return i, true, true
			}
			return i, false, true
		}
	}
	return 0, false, false
}

// tagName extracts the element name from the inside of a tag opening, e.g.
// `defNumberVector device="x"` -> "defNumberVector".
func tagName(inner string) string {
	i := 0
	for i < len(inner) {
		switch inner[i] {
		case ' ', '\t', '\r', '\n', '/', '>':
			return inner[:i]
		}
		i++
	}
	return inner
}

// findMatchingClose scans s (which begins with an opening tag <name ...>)
// for the matching "</name>", counting nested same-name opens/self-closes
// to support (hypothetical) same-name nesting. Returns the index just past
// the matching close tag.
func findMatchingClose(s string, name string) (int, bool) {
	depth := 0
	i := 0
	openTok := "<" + name
	closeTok := "</" + name + ">"
	for i < len(s) {
		if s[i] != '<' {
			i++
			continue
		}
		if strings.HasPrefix(s[i:], closeTok) {
			depth--
			i += len(closeTok)
			if depth == 0 {
				return i, true
			}
			continue
		}
		if strings.HasPrefix(s[i:], openTok) {
			tagEnd, selfClosed, ok := findTagEnd(s, i+1)
			if !ok {
				return 0, false
			}
			if !selfClosed {
				// Only count as nested open if followed by tag-terminator
				// (space, '>', '/'), not merely a longer shared prefix.
				boundary := s[i+len(openTok)]
				if boundary == ' ' || boundary == '>' || boundary == '\t' || boundary == '\n' || boundary == '\r' || boundary == '/' {
					depth++
				}
			}
			i = tagEnd + 1
			continue
		}
		i++
	}
	return 0, false
}
