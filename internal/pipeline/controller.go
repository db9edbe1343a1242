package pipeline

import (
	"context"

	apperrors "deepclaude-go/internal/errors"
	"deepclaude-go/internal/resolver"
	"deepclaude-go/internal/upstream"
	log "github.com/sirupsen/logrus"
)

// State tracks pipeline progress for one request.
type State int

const (
	StateResolving State = iota
	StateReasoning
	StateAnswering
	StateCompleted
	StateFailed
)

func (s State) String() string {
	switch s {
	case StateResolving:
		return "resolving"
	case StateReasoning:
		return "reasoning"
	case StateAnswering:
		return "answering"
	case StateCompleted:
		return "completed"
	case StateFailed:
		return "failed"
	}
	return "unknown"
}

// Controller owns one request's pipeline run: reasoning first, then answer,
// with exactly one terminal chunk or error response.
type Controller struct {
	Client *upstream.Client
	state  State
}

// State returns the current pipeline state.
func (pc *Controller) State() State { return pc.state }

// Run executes both stages against the merger. A non-nil return means the
// failure was not yet written to the client and the caller must send a single
// JSON error response. Failures after the first flushed byte are surfaced as
// a terminal error chunk and return nil.
func (pc *Controller) Run(ctx context.Context, plan *resolver.Plan, m *Merger) *apperrors.APIError {
	pc.state = StateReasoning
	rs := &ReasoningStage{
		Client:   pc.Client,
		Plan:     plan.Reasoning,
		System:   plan.System,
		Messages: plan.Messages,
		Stream:   plan.Stream,
	}
	reasoning, err := rs.Run(ctx, m.Emit)
	if err != nil {
		return pc.fail(ctx, m, err)
	}

	pc.state = StateAnswering
	as := &AnswerStage{
		Client:    pc.Client,
		Plan:      plan.Answer,
		Messages:  plan.Messages,
		Reasoning: reasoning,
		Stream:    plan.Stream,
	}
	model, err := as.Run(ctx, m.Emit)
	m.SetModel(model)
	if err != nil {
		return pc.fail(ctx, m, err)
	}

	pc.state = StateCompleted
	if err := m.Finish(); err != nil {
		log.WithError(err).Debug("failed to write stream terminator")
	}
	return nil
}

func (pc *Controller) fail(ctx context.Context, m *Merger, apiErr *apperrors.APIError) *apperrors.APIError {
	pc.state = StateFailed

	// Client disconnect is silent: nothing useful can be written.
	if ctx.Err() != nil || apiErr.Code == "request_canceled" {
		return nil
	}

	if m.Flushed() {
		if err := m.EmitError(apiErr); err != nil {
			log.WithError(err).Debug("failed to write terminal error chunk")
		}
		return nil
	}
	return apiErr
}
