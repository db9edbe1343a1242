// Package upstream implements the HTTP client used for every backend call.
// Both stages speak the OpenAI chat-completion wire shape to their upstream;
// per-backend differences live entirely in the resolved plan.
package upstream

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"time"

	"deepclaude-go/internal/config"
	"deepclaude-go/internal/constants"
	apperrors "deepclaude-go/internal/errors"
	"deepclaude-go/internal/monitoring/tracing"
	"deepclaude-go/internal/resolver"
	"github.com/tidwall/sjson"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// Options configures transport behavior for a Client.
type Options struct {
	DialTimeout           time.Duration
	TLSHandshakeTimeout   time.Duration
	ResponseHeaderTimeout time.Duration
	ExpectContinueTimeout time.Duration
	IdleFragmentTimeout   time.Duration
	ProxyURL              string
}

// Client posts chat-completion requests to resolved backend endpoints.
type Client struct {
	cli  *http.Client
	idle time.Duration
}

func durationOrDefault(d, fallback time.Duration) time.Duration {
	if d > 0 {
		return d
	}
	return fallback
}

func New(opts Options) *Client {
	tr := &http.Transport{
		Proxy: getProxyFunc(opts.ProxyURL),
		DialContext: (&net.Dialer{
			Timeout:   durationOrDefault(opts.DialTimeout, constants.DefaultDialTimeout),
			KeepAlive: constants.DefaultKeepAlive,
		}).DialContext,
		TLSHandshakeTimeout:   durationOrDefault(opts.TLSHandshakeTimeout, constants.DefaultTLSHandshakeTimeout),
		ResponseHeaderTimeout: durationOrDefault(opts.ResponseHeaderTimeout, constants.DefaultResponseHeaderTimeout),
		ExpectContinueTimeout: durationOrDefault(opts.ExpectContinueTimeout, constants.DefaultExpectContinueTimeout),
		MaxIdleConns:          constants.BaseMaxIdleConns,
		MaxIdleConnsPerHost:   constants.BaseMaxIdleConnsPerHost,
		IdleConnTimeout:       constants.BaseIdleConnTimeout,
	}
	return &Client{
		cli:  &http.Client{Transport: tr, Timeout: 0},
		idle: durationOrDefault(opts.IdleFragmentTimeout, constants.DefaultIdleFragmentTimeout),
	}
}

// FromConfig builds a client from server-level transport settings.
func FromConfig(cfg *config.FileConfig) *Client {
	opts := Options{ProxyURL: cfg.Server.ProxyURL}
	if cfg.Server.ResponseHeaderTimeoutSec > 0 {
		opts.ResponseHeaderTimeout = time.Duration(cfg.Server.ResponseHeaderTimeoutSec) * time.Second
	}
	if cfg.Server.IdleFragmentTimeoutSec > 0 {
		opts.IdleFragmentTimeout = time.Duration(cfg.Server.IdleFragmentTimeoutSec) * time.Second
	}
	return New(opts)
}

// getProxyFunc returns appropriate proxy function based on configuration
func getProxyFunc(proxyURL string) func(*http.Request) (*url.URL, error) {
	if proxyURL != "" {
		if parsedURL, err := url.Parse(proxyURL); err == nil {
			return http.ProxyURL(parsedURL)
		}
	}
	return http.ProxyFromEnvironment
}

// Call describes one chat-completion request against a backend.
type Call struct {
	Backend  string
	Endpoint string
	Token    string
	Model    string
	Messages []resolver.Message
	Params   map[string]interface{}
	Stream   bool
}

// buildBody assembles the upstream JSON body. Resolved params are merged in
// under protected keys so they can never clobber model/messages/stream.
func buildBody(call Call) ([]byte, error) {
	body := []byte(`{}`)
	var err error
	for k, v := range call.Params {
		switch k {
		case "model", "messages", "stream":
			continue
		}
		if body, err = sjson.SetBytes(body, k, v); err != nil {
			return nil, err
		}
	}
	if body, err = sjson.SetBytes(body, "model", call.Model); err != nil {
		return nil, err
	}
	if body, err = sjson.SetBytes(body, "stream", call.Stream); err != nil {
		return nil, err
	}
	if body, err = sjson.SetBytes(body, "messages", call.Messages); err != nil {
		return nil, err
	}
	return body, nil
}

// Chat posts the call and returns a FragmentStream over the response.
//
// Caller MUST close the returned stream. Cancellation of ctx tears down the
// in-flight request; a stalled stream is canceled by the idle watchdog.
func (c *Client) Chat(ctx context.Context, call Call) (*FragmentStream, *apperrors.APIError) {
	body, err := buildBody(call)
	if err != nil {
		return nil, apperrors.InvalidRequest("Failed to encode upstream body: " + err.Error())
	}

	spanCtx, span := tracing.StartSpan(ctx, "upstream", "Backend.Chat",
		trace.WithAttributes(
			attribute.String("http.method", http.MethodPost),
			attribute.String("http.url", call.Endpoint),
			attribute.String("upstream.backend", call.Backend),
			attribute.String("upstream.model", call.Model),
			attribute.Bool("upstream.stream", call.Stream),
		))
	defer span.End()

	reqCtx, cancel := context.WithCancel(spanCtx)
	req, reqErr := http.NewRequestWithContext(reqCtx, http.MethodPost, call.Endpoint, bytes.NewReader(body))
	if reqErr != nil {
		cancel()
		span.SetStatus(codes.Error, reqErr.Error())
		return nil, apperrors.InvalidRequest("Invalid endpoint URL: " + reqErr.Error())
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+call.Token)
	if call.Stream {
		req.Header.Set("Accept", "text/event-stream")
	} else {
		req.Header.Set("Accept", "application/json")
	}

	resp, doErr := c.cli.Do(req)
	if doErr != nil {
		cancel()
		span.RecordError(doErr)
		span.SetStatus(codes.Error, doErr.Error())
		return nil, apperrors.MapNetworkError(doErr)
	}

	span.SetAttributes(attribute.Int("http.status_code", resp.StatusCode))
	if resp.StatusCode >= 400 {
		payload, _ := io.ReadAll(io.LimitReader(resp.Body, 64*1024))
		_ = resp.Body.Close()
		cancel()
		span.SetStatus(codes.Error, fmt.Sprintf("http_status=%d", resp.StatusCode))
		return nil, apperrors.MapHTTPError(resp.StatusCode, payload)
	}
	span.SetStatus(codes.Ok, "")

	return newFragmentStream(ctx, resp, call, c.idle, cancel), nil
}
