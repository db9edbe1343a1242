package pipeline

import "strings"

const (
	thinkOpen  = "<think>"
	thinkClose = "</think>"
)

// extractThink pulls the first <think>...</think> section out of a complete
// message, returning the trimmed reasoning and the remaining content.
func extractThink(content string) (reasoning, remainder string, found bool) {
	start := strings.Index(content, thinkOpen)
	if start < 0 {
		return "", content, false
	}
	end := strings.Index(content, thinkClose)
	if end < 0 || start >= end {
		return "", content, false
	}
	reasoning = strings.TrimSpace(content[start+len(thinkOpen) : end])
	remainder = strings.TrimSpace(content[:start] + content[end+len(thinkClose):])
	return reasoning, remainder, true
}

// thinkExtractor incrementally extracts think-tagged reasoning from plain
// content deltas. Tags split across deltas are handled by retaining a small
// tail that could still be a partial tag.
type thinkExtractor struct {
	pending string
	inside  bool
	closed  bool
}

// feed consumes one content delta and returns the reasoning text it exposes.
func (e *thinkExtractor) feed(delta string) string {
	if e.closed {
		return ""
	}
	e.pending += delta

	var out strings.Builder
	for {
		if !e.inside {
			idx := strings.Index(e.pending, thinkOpen)
			if idx < 0 {
				// keep a tail that might complete an open tag next delta
				if keep := len(thinkOpen) - 1; len(e.pending) > keep {
					e.pending = e.pending[len(e.pending)-keep:]
				}
				return out.String()
			}
			e.pending = e.pending[idx+len(thinkOpen):]
			e.inside = true
		}

		idx := strings.Index(e.pending, thinkClose)
		if idx < 0 {
			if keep := len(thinkClose) - 1; len(e.pending) > keep {
				out.WriteString(e.pending[:len(e.pending)-keep])
				e.pending = e.pending[len(e.pending)-keep:]
			}
			return out.String()
		}
		out.WriteString(e.pending[:idx])
		e.pending = e.pending[idx+len(thinkClose):]
		e.inside = false
		e.closed = true
		e.pending = ""
		return out.String()
	}
}

// flush returns reasoning still buffered when the stream ends without a
// closing tag.
func (e *thinkExtractor) flush() string {
	if !e.inside || e.closed {
		return ""
	}
	rest := e.pending
	e.pending = ""
	e.inside = false
	return rest
}
