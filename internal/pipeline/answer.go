package pipeline

import (
	"context"
	"strings"

	apperrors "deepclaude-go/internal/errors"
	"deepclaude-go/internal/resolver"
	"deepclaude-go/internal/upstream"
)

const (
	thinkingOpen  = "<thinking>"
	thinkingClose = "</thinking>"
)

// AnswerStage feeds the accumulated reasoning into the answer backend and
// emits the user-facing content.
type AnswerStage struct {
	Client    *upstream.Client
	Plan      resolver.BackendPlan
	Messages  []resolver.Message
	Reasoning string
	Stream    bool
}

// Run emits content chunks and returns the model name the upstream reported
// (falling back to the planned model).
func (s *AnswerStage) Run(ctx context.Context, emit Sink) (string, *apperrors.APIError) {
	stream, err := s.Client.Chat(ctx, upstream.Call{
		Backend:  s.Plan.Backend,
		Endpoint: s.Plan.Endpoint,
		Token:    s.Plan.Token,
		Model:    s.Plan.Model,
		Messages: s.targetMessages(),
		Params:   s.Plan.Params,
		Stream:   s.Stream,
	})
	if err != nil {
		return "", apperrors.AnswerFailed(err)
	}
	defer stream.Close()

	model := s.Plan.Model
	for {
		frag, ferr := stream.Next()
		if ferr != nil {
			if stream.Canceled() {
				return model, canceled()
			}
			return model, apperrors.AnswerFailed(ferr)
		}
		if frag.Done {
			break
		}
		if frag.Model != "" {
			model = frag.Model
		}
		if frag.Content != "" {
			if err := emit(KindContent, frag.Content, false); err != nil {
				return model, sinkClosed(err)
			}
		}
	}

	if err := emit(KindContent, "", true); err != nil {
		return model, sinkClosed(err)
	}
	return model, nil
}

// targetMessages rebuilds the history for the answer call: system messages
// are stripped and the reasoning is appended as a thinking-tagged assistant
// turn.
func (s *AnswerStage) targetMessages() []resolver.Message {
	out := make([]resolver.Message, 0, len(s.Messages)+1)
	for _, m := range s.Messages {
		if m.Role == resolver.RoleSystem {
			continue
		}
		out = append(out, m)
	}
	return append(out, resolver.Message{
		Role:    resolver.RoleAssistant,
		Content: wrapThinking(s.Reasoning),
	})
}

func wrapThinking(reasoning string) string {
	trimmed := strings.TrimSpace(reasoning)
	if strings.HasPrefix(trimmed, thinkingOpen) && strings.HasSuffix(trimmed, thinkingClose) {
		return trimmed
	}
	return thinkingOpen + "\n" + reasoning + "\n" + thinkingClose
}
