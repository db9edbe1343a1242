package pipeline

import (
	"context"
	"net/http"
	"strings"

	apperrors "deepclaude-go/internal/errors"
	"deepclaude-go/internal/resolver"
	"deepclaude-go/internal/upstream"
)

// ollamaFingerprint marks upstreams that emit reasoning as think-tagged plain
// content instead of reasoning_content deltas.
const ollamaFingerprint = "fp_ollama"

// ReasoningStage drives the reasoning backend and accumulates the full
// chain-of-thought for the answer stage.
type ReasoningStage struct {
	Client   *upstream.Client
	Plan     resolver.BackendPlan
	System   string
	Messages []resolver.Message
	Stream   bool
}

// Run emits reasoning chunks and returns the cumulative reasoning text.
// The terminal reasoning chunk is emitted exactly once, even when the backend
// produced nothing.
func (s *ReasoningStage) Run(ctx context.Context, emit Sink) (string, *apperrors.APIError) {
	stream, err := s.Client.Chat(ctx, upstream.Call{
		Backend:  s.Plan.Backend,
		Endpoint: s.Plan.Endpoint,
		Token:    s.Plan.Token,
		Model:    s.Plan.Model,
		Messages: withSystem(s.System, s.Messages),
		Params:   s.Plan.Params,
		Stream:   s.Stream,
	})
	if err != nil {
		return "", apperrors.ReasoningFailed(err)
	}
	defer stream.Close()

	var complete strings.Builder
	var extractor thinkExtractor

	forward := func(text string) *apperrors.APIError {
		if text == "" {
			return nil
		}
		complete.WriteString(text)
		if err := emit(KindReasoning, text, false); err != nil {
			return sinkClosed(err)
		}
		return nil
	}

	for {
		frag, ferr := stream.Next()
		if ferr != nil {
			if stream.Canceled() {
				return "", canceled()
			}
			return "", apperrors.ReasoningFailed(ferr)
		}
		if frag.Done {
			break
		}
		if eerr := forward(frag.Reasoning); eerr != nil {
			return "", eerr
		}
		if frag.Content != "" && frag.Fingerprint == ollamaFingerprint {
			if s.Stream {
				if eerr := forward(extractor.feed(frag.Content)); eerr != nil {
					return "", eerr
				}
			} else if tagged, _, found := extractThink(frag.Content); found {
				if eerr := forward(tagged); eerr != nil {
					return "", eerr
				}
			}
		}
	}

	if eerr := forward(extractor.flush()); eerr != nil {
		return "", eerr
	}
	if err := emit(KindReasoning, "", true); err != nil {
		return "", sinkClosed(err)
	}
	return complete.String(), nil
}

// withSystem prepends the caller's system prompt as a leading system message.
func withSystem(system string, messages []resolver.Message) []resolver.Message {
	if strings.TrimSpace(system) == "" {
		return messages
	}
	out := make([]resolver.Message, 0, len(messages)+1)
	out = append(out, resolver.Message{Role: resolver.RoleSystem, Content: system})
	return append(out, messages...)
}

func canceled() *apperrors.APIError {
	return apperrors.New(http.StatusRequestTimeout, "request_canceled", "timeout_error", "Request was canceled")
}

func sinkClosed(err error) *apperrors.APIError {
	return apperrors.New(http.StatusRequestTimeout, "request_canceled", "timeout_error", "Client went away: "+err.Error())
}
