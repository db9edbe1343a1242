package pipeline

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestExtractThink(t *testing.T) {
	t.Run("complete tags", func(t *testing.T) {
		reasoning, remainder, found := extractThink("<think>\nstep one\n</think>The answer is 2.")
		assert.True(t, found)
		assert.Equal(t, "step one", reasoning)
		assert.Equal(t, "The answer is 2.", remainder)
	})

	t.Run("no tags", func(t *testing.T) {
		reasoning, remainder, found := extractThink("plain content")
		assert.False(t, found)
		assert.Empty(t, reasoning)
		assert.Equal(t, "plain content", remainder)
	})

	t.Run("unterminated open tag", func(t *testing.T) {
		_, _, found := extractThink("<think>never closed")
		assert.False(t, found)
	})

	t.Run("close before open", func(t *testing.T) {
		_, _, found := extractThink("</think>backwards<think>")
		assert.False(t, found)
	})
}

func TestThinkExtractorIncremental(t *testing.T) {
	t.Run("tags split across deltas", func(t *testing.T) {
		var e thinkExtractor
		var got string
		got += e.feed("<thi")
		got += e.feed("nk>reasoning ")
		got += e.feed("text</th")
		got += e.feed("ink>ignored tail")
		got += e.flush()
		assert.Equal(t, "reasoning text", got)
	})

	t.Run("single delta with both tags", func(t *testing.T) {
		var e thinkExtractor
		got := e.feed("<think>all at once</think>rest")
		assert.Equal(t, "all at once", got)
	})

	t.Run("plain content yields nothing", func(t *testing.T) {
		var e thinkExtractor
		assert.Empty(t, e.feed("no tags here"))
		assert.Empty(t, e.flush())
	})

	t.Run("unterminated stream flushes remainder", func(t *testing.T) {
		var e thinkExtractor
		got := e.feed("<think>partial reasoning")
		got += e.flush()
		assert.Equal(t, "partial reasoning", got)
	})

	t.Run("content after close is dropped", func(t *testing.T) {
		var e thinkExtractor
		got := e.feed("<think>kept</think>")
		got += e.feed("dropped")
		got += e.flush()
		assert.Equal(t, "kept", got)
	})
}

func TestWrapThinking(t *testing.T) {
	assert.Equal(t, "<thinking>\nsteps\n</thinking>", wrapThinking("steps"))
	assert.Equal(t, "<thinking>\nalready\n</thinking>", wrapThinking("<thinking>\nalready\n</thinking>"))
}
