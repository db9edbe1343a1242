// Package pipeline runs the two-stage reasoning/answer flow and merges both
// outputs into one ordered chunk stream.
package pipeline

// Kind labels a chunk in the merged output stream.
type Kind string

const (
	KindReasoning Kind = "reasoning"
	KindContent   Kind = "content"
	KindError     Kind = "error"
)

// Chunk is one unit of merged pipeline output. Seq is assigned by the merger
// and increases monotonically within a request. Done is set exactly once per
// kind.
type Chunk struct {
	Kind Kind
	Seq  int
	Text string
	Done bool
}

// Sink consumes chunks in emission order.
type Sink func(kind Kind, text string, done bool) error
