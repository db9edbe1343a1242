package pipeline

import (
	"encoding/json"
	"net/http"
	"strings"

	apperrors "deepclaude-go/internal/errors"
	"deepclaude-go/internal/handlers/common"
)

// wireChunk is the SSE payload shape for one merged chunk.
type wireChunk struct {
	Kind    string      `json:"kind"`
	Content []wireBlock `json:"content"`
	Seq     int         `json:"seq"`
	Done    bool        `json:"done"`
}

type wireBlock struct {
	Type string `json:"type"`
	Text string `json:"text"`
}

// wireError is the SSE payload for a terminal mid-stream failure.
type wireError struct {
	Kind  string          `json:"kind"`
	Error json.RawMessage `json:"error"`
	Seq   int             `json:"seq"`
	Done  bool            `json:"done"`
}

// finalDocument is the consolidated non-stream response body.
type finalDocument struct {
	Reasoning string `json:"reasoning,omitempty"`
	Content   string `json:"content"`
	Model     string `json:"model"`
}

// Merger serializes both stages into one totally ordered output. Stream mode
// writes SSE chunks as they arrive; non-stream mode buffers and flattens.
// Reasoning is forwarded (or included) only when verbose is set.
type Merger struct {
	w       http.ResponseWriter
	flusher http.Flusher
	stream  bool
	verbose bool
	model   string

	seq       int
	flushed   bool
	doneSeen  map[Kind]bool
	reasoning strings.Builder
	content   strings.Builder
}

// NewMerger builds a merger. w and flusher may be nil in non-stream mode.
func NewMerger(w http.ResponseWriter, flusher http.Flusher, stream, verbose bool, model string) *Merger {
	return &Merger{
		w:        w,
		flusher:  flusher,
		stream:   stream,
		verbose:  verbose,
		model:    model,
		doneSeen: map[Kind]bool{},
	}
}

// SetModel records the model name reported by the answer backend.
func (m *Merger) SetModel(model string) {
	if model != "" {
		m.model = model
	}
}

// Flushed reports whether any bytes reached the client already.
func (m *Merger) Flushed() bool { return m.flushed }

// Emit accepts one chunk from a stage. Terminal chunks are deduplicated per
// kind; chunks are never reordered.
func (m *Merger) Emit(kind Kind, text string, done bool) error {
	if done {
		if m.doneSeen[kind] {
			return nil
		}
		m.doneSeen[kind] = true
	}

	if !m.stream {
		switch kind {
		case KindReasoning:
			m.reasoning.WriteString(text)
		case KindContent:
			m.content.WriteString(text)
		}
		return nil
	}

	if kind == KindReasoning && !m.verbose {
		return nil
	}

	chunk := wireChunk{Kind: string(kind), Content: []wireBlock{}, Seq: m.seq, Done: done}
	if text != "" {
		chunk.Content = append(chunk.Content, wireBlock{Type: "text", Text: text})
	}
	m.seq++
	m.flushed = true
	return common.SSEWriteData(m.w, m.flusher, chunk)
}

// EmitError writes the terminal error chunk plus [DONE]. Stream mode only.
func (m *Merger) EmitError(apiErr *apperrors.APIError) error {
	if !m.stream {
		return nil
	}
	payload, err := apiErr.ToJSON()
	if err != nil {
		return err
	}
	chunk := wireError{Kind: string(KindError), Error: payload, Seq: m.seq, Done: true}
	m.seq++
	m.flushed = true
	if err := common.SSEWriteData(m.w, m.flusher, chunk); err != nil {
		return err
	}
	return common.SSEWriteDone(m.w, m.flusher)
}

// Finish writes the stream terminator. Non-stream output is produced by
// FinalDocument instead.
func (m *Merger) Finish() error {
	if !m.stream {
		return nil
	}
	return common.SSEWriteDone(m.w, m.flusher)
}

// FinalDocument flattens buffered output into the consolidated JSON response.
func (m *Merger) FinalDocument() ([]byte, error) {
	doc := finalDocument{
		Content: m.content.String(),
		Model:   m.model,
	}
	if m.verbose {
		doc.Reasoning = m.reasoning.String()
	}
	return json.Marshal(doc)
}
