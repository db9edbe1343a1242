package upstream

import (
	"bufio"
	"bytes"
	"context"
	"io"
	"net/http"
	"sync/atomic"
	"time"

	"deepclaude-go/internal/constants"
	apperrors "deepclaude-go/internal/errors"
	"github.com/tidwall/gjson"
)

// Fragment is one unit of upstream output, normalized across streaming and
// buffered responses.
type Fragment struct {
	Content     string
	Reasoning   string
	Model       string
	Fingerprint string
	Done        bool
}

// FragmentStream exposes an upstream response as a lazy fragment sequence.
// SSE responses yield one fragment per data line; buffered responses yield a
// single fragment followed by a terminal one.
type FragmentStream struct {
	ctx       context.Context
	resp      *http.Response
	scanner   *bufio.Scanner
	backend   string
	streaming bool
	idle      time.Duration
	cancel    context.CancelFunc
	timedOut  atomic.Bool
	finished  bool
	drained   bool
}

func newFragmentStream(ctx context.Context, resp *http.Response, call Call, idle time.Duration, cancel context.CancelFunc) *FragmentStream {
	s := &FragmentStream{
		ctx:       ctx,
		resp:      resp,
		backend:   call.Backend,
		streaming: call.Stream,
		idle:      idle,
		cancel:    cancel,
	}
	if call.Stream {
		scanner := bufio.NewScanner(resp.Body)
		buf := make([]byte, 0, constants.SSEScannerInitialBufferSize)
		scanner.Buffer(buf, constants.SSEScannerMaxBufferSize)
		s.scanner = scanner
	}
	return s
}

// Next returns the next fragment. The terminal fragment has Done set; calls
// after that return it again.
func (s *FragmentStream) Next() (*Fragment, *apperrors.APIError) {
	if s.finished {
		return &Fragment{Done: true}, nil
	}
	if s.streaming {
		return s.nextStreamed()
	}
	return s.nextBuffered()
}

func (s *FragmentStream) nextStreamed() (*Fragment, *apperrors.APIError) {
	for {
		stop := s.armIdle()
		ok := s.scanner.Scan()
		stop()
		if !ok {
			break
		}
		line := s.scanner.Bytes()
		if !bytes.HasPrefix(line, []byte("data: ")) {
			continue
		}
		data := bytes.TrimSpace(line[len("data: "):])
		if bytes.EqualFold(data, []byte("[DONE]")) {
			s.finished = true
			return &Fragment{Done: true}, nil
		}
		if !gjson.ValidBytes(data) {
			continue
		}
		frag := parseFragment(data)
		if frag == nil {
			continue
		}
		return frag, nil
	}

	if err := s.scanner.Err(); err != nil {
		s.finished = true
		if s.timedOut.Load() {
			return nil, apperrors.IdleTimeout(s.backend)
		}
		return nil, apperrors.MapNetworkError(err)
	}
	// EOF without [DONE] still terminates the stream cleanly.
	s.finished = true
	return &Fragment{Done: true}, nil
}

func (s *FragmentStream) nextBuffered() (*Fragment, *apperrors.APIError) {
	if s.drained {
		s.finished = true
		return &Fragment{Done: true}, nil
	}
	s.drained = true

	stop := s.armIdle()
	data, err := io.ReadAll(io.LimitReader(s.resp.Body, constants.MaxBufferedResponseSize))
	stop()
	if err != nil {
		s.finished = true
		if s.timedOut.Load() {
			return nil, apperrors.IdleTimeout(s.backend)
		}
		return nil, apperrors.MapNetworkError(err)
	}
	// A fired watchdog can also surface as a truncated read without error.
	if s.timedOut.Load() {
		s.finished = true
		return nil, apperrors.IdleTimeout(s.backend)
	}
	if !gjson.ValidBytes(data) {
		s.finished = true
		return nil, apperrors.MalformedResponse("response is not valid JSON")
	}
	frag := parseFragment(data)
	if frag == nil {
		s.finished = true
		return nil, apperrors.MalformedResponse("response carries no choices")
	}
	return frag, nil
}

// parseFragment reads the OpenAI chat-completion shape, accepting both delta
// (streaming) and message (buffered) forms.
func parseFragment(data []byte) *Fragment {
	choice := gjson.GetBytes(data, "choices.0")
	if !choice.Exists() {
		return nil
	}
	frag := &Fragment{
		Model:       gjson.GetBytes(data, "model").String(),
		Fingerprint: gjson.GetBytes(data, "system_fingerprint").String(),
	}
	if delta := choice.Get("delta"); delta.Exists() {
		frag.Content = delta.Get("content").String()
		frag.Reasoning = delta.Get("reasoning_content").String()
	} else if msg := choice.Get("message"); msg.Exists() {
		frag.Content = msg.Get("content").String()
		frag.Reasoning = msg.Get("reasoning_content").String()
	}
	return frag
}

// armIdle starts the idle watchdog for one read and returns its stop func.
// When the watchdog fires, the in-flight request is canceled and the pending
// read fails, surfacing as an idle timeout.
func (s *FragmentStream) armIdle() func() {
	if s.idle <= 0 {
		return func() {}
	}
	timer := time.AfterFunc(s.idle, func() {
		s.timedOut.Store(true)
		s.cancel()
	})
	return func() { timer.Stop() }
}

// Canceled reports whether the caller's context ended the stream.
func (s *FragmentStream) Canceled() bool {
	return s.ctx.Err() != nil && !s.timedOut.Load()
}

// Close releases the underlying response.
func (s *FragmentStream) Close() error {
	s.cancel()
	return s.resp.Body.Close()
}
