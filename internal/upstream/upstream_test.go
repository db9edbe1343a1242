package upstream

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"deepclaude-go/internal/resolver"
	"github.com/stretchr/testify/assert"
	"github.com/tidwall/gjson"
)

func testCall(endpoint string, stream bool) Call {
	return Call{
		Backend:  "deepseek",
		Endpoint: endpoint,
		Token:    "secret-token",
		Model:    "deepseek-reasoner",
		Messages: []resolver.Message{{Role: "user", Content: "hi"}},
		Params:   map[string]interface{}{"temperature": 0.7, "model": "evil-override", "stream": "evil"},
		Stream:   stream,
	}
}

func TestBuildBody(t *testing.T) {
	body, err := buildBody(testCall("http://x", true))
	assert.NoError(t, err)

	assert.Equal(t, "deepseek-reasoner", gjson.GetBytes(body, "model").String())
	assert.True(t, gjson.GetBytes(body, "stream").Bool())
	assert.Equal(t, 0.7, gjson.GetBytes(body, "temperature").Float())
	msgs := gjson.GetBytes(body, "messages").Array()
	assert.Len(t, msgs, 1)
	assert.Equal(t, "user", msgs[0].Get("role").String())
	assert.Equal(t, "hi", msgs[0].Get("content").String())
}

func TestChatSendsAuthAndHeaders(t *testing.T) {
	var gotAuth, gotAccept, gotCT string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		gotAccept = r.Header.Get("Accept")
		gotCT = r.Header.Get("Content-Type")
		fmt.Fprint(w, `{"model":"m","choices":[{"message":{"content":"ok"}}]}`)
	}))
	defer srv.Close()

	c := New(Options{})
	stream, apiErr := c.Chat(context.Background(), testCall(srv.URL, false))
	assert.Nil(t, apiErr)
	defer stream.Close()

	assert.Equal(t, "Bearer secret-token", gotAuth)
	assert.Equal(t, "application/json", gotAccept)
	assert.Equal(t, "application/json", gotCT)
}

func TestChatMapsUpstreamStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		fmt.Fprint(w, `{"error":{"message":"bad key"}}`)
	}))
	defer srv.Close()

	c := New(Options{})
	_, apiErr := c.Chat(context.Background(), testCall(srv.URL, false))
	if assert.NotNil(t, apiErr) {
		assert.Equal(t, http.StatusUnauthorized, apiErr.HTTPStatus)
		assert.Equal(t, "invalid_api_key", apiErr.Code)
		assert.Equal(t, "bad key", apiErr.Message)
	}
}

func TestChatUnreachable(t *testing.T) {
	c := New(Options{})
	_, apiErr := c.Chat(context.Background(), testCall("http://127.0.0.1:1/never", false))
	if assert.NotNil(t, apiErr) {
		assert.Equal(t, http.StatusBadGateway, apiErr.HTTPStatus)
	}
}

func TestFragmentStreamSSE(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/event-stream")
		fl, _ := w.(http.Flusher)
		fmt.Fprint(w, "data: {\"model\":\"m1\",\"system_fingerprint\":\"fp_ollama\",\"choices\":[{\"delta\":{\"content\":\"a\"}}]}\n\n")
		fmt.Fprint(w, ": keepalive comment\n\n")
		fmt.Fprint(w, "data: {\"choices\":[{\"delta\":{\"reasoning_content\":\"b\"}}]}\n\n")
		fmt.Fprint(w, "data: not-json\n\n")
		fmt.Fprint(w, "data: [DONE]\n\n")
		if fl != nil {
			fl.Flush()
		}
	}))
	defer srv.Close()

	c := New(Options{})
	stream, apiErr := c.Chat(context.Background(), testCall(srv.URL, true))
	assert.Nil(t, apiErr)
	defer stream.Close()

	frag, err := stream.Next()
	assert.Nil(t, err)
	assert.Equal(t, "a", frag.Content)
	assert.Equal(t, "m1", frag.Model)
	assert.Equal(t, "fp_ollama", frag.Fingerprint)
	assert.False(t, frag.Done)

	frag, err = stream.Next()
	assert.Nil(t, err)
	assert.Equal(t, "b", frag.Reasoning)

	frag, err = stream.Next()
	assert.Nil(t, err)
	assert.True(t, frag.Done)

	// terminal fragment repeats after the stream ends
	frag, err = stream.Next()
	assert.Nil(t, err)
	assert.True(t, frag.Done)
}

func TestFragmentStreamEOFWithoutDone(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, "data: {\"choices\":[{\"delta\":{\"content\":\"x\"}}]}\n\n")
	}))
	defer srv.Close()

	c := New(Options{})
	stream, apiErr := c.Chat(context.Background(), testCall(srv.URL, true))
	assert.Nil(t, apiErr)
	defer stream.Close()

	frag, err := stream.Next()
	assert.Nil(t, err)
	assert.Equal(t, "x", frag.Content)

	frag, err = stream.Next()
	assert.Nil(t, err)
	assert.True(t, frag.Done)
}

func TestFragmentStreamBuffered(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"model":"m2","choices":[{"message":{"content":"full","reasoning_content":"why"}}]}`)
	}))
	defer srv.Close()

	c := New(Options{})
	stream, apiErr := c.Chat(context.Background(), testCall(srv.URL, false))
	assert.Nil(t, apiErr)
	defer stream.Close()

	frag, err := stream.Next()
	assert.Nil(t, err)
	assert.Equal(t, "full", frag.Content)
	assert.Equal(t, "why", frag.Reasoning)
	assert.Equal(t, "m2", frag.Model)
	assert.False(t, frag.Done)

	frag, err = stream.Next()
	assert.Nil(t, err)
	assert.True(t, frag.Done)
}

func TestFragmentStreamMalformedBuffered(t *testing.T) {
	t.Run("not json", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			fmt.Fprint(w, "<html>oops</html>")
		}))
		defer srv.Close()

		c := New(Options{})
		stream, apiErr := c.Chat(context.Background(), testCall(srv.URL, false))
		assert.Nil(t, apiErr)
		defer stream.Close()

		_, err := stream.Next()
		if assert.NotNil(t, err) {
			assert.Equal(t, "malformed_response", err.Code)
			assert.Equal(t, http.StatusBadGateway, err.HTTPStatus)
		}
	})

	t.Run("no choices", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			fmt.Fprint(w, `{"object":"chat.completion"}`)
		}))
		defer srv.Close()

		c := New(Options{})
		stream, apiErr := c.Chat(context.Background(), testCall(srv.URL, false))
		assert.Nil(t, apiErr)
		defer stream.Close()

		_, err := stream.Next()
		if assert.NotNil(t, err) {
			assert.Equal(t, "malformed_response", err.Code)
		}
	})
}

func TestFragmentStreamIdleTimeout(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/event-stream")
		fl, _ := w.(http.Flusher)
		fmt.Fprint(w, "data: {\"choices\":[{\"delta\":{\"content\":\"first\"}}]}\n\n")
		if fl != nil {
			fl.Flush()
		}
		time.Sleep(2 * time.Second)
	}))
	defer srv.Close()

	c := New(Options{IdleFragmentTimeout: 100 * time.Millisecond})
	stream, apiErr := c.Chat(context.Background(), testCall(srv.URL, true))
	assert.Nil(t, apiErr)
	defer stream.Close()

	frag, err := stream.Next()
	assert.Nil(t, err)
	assert.Equal(t, "first", frag.Content)

	_, err = stream.Next()
	if assert.NotNil(t, err) {
		assert.Equal(t, http.StatusGatewayTimeout, err.HTTPStatus)
		assert.Equal(t, "timeout", err.Code)
	}
}

func TestFragmentStreamBufferedIdleTimeout(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		if fl, ok := w.(http.Flusher); ok {
			fl.Flush()
		}
		time.Sleep(2 * time.Second)
	}))
	defer srv.Close()

	c := New(Options{IdleFragmentTimeout: 100 * time.Millisecond})
	stream, apiErr := c.Chat(context.Background(), testCall(srv.URL, false))
	assert.Nil(t, apiErr)
	defer stream.Close()

	start := time.Now()
	_, err := stream.Next()
	if assert.NotNil(t, err) {
		assert.Equal(t, http.StatusGatewayTimeout, err.HTTPStatus)
		assert.Equal(t, "timeout", err.Code)
	}
	assert.False(t, stream.Canceled())
	assert.Less(t, time.Since(start), time.Second, "watchdog must interrupt the buffered read")
}

func TestFragmentStreamCancellation(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/event-stream")
		if fl, ok := w.(http.Flusher); ok {
			fl.Flush()
		}
		time.Sleep(2 * time.Second)
	}))
	defer srv.Close()

	ctx, cancel := context.WithCancel(context.Background())
	c := New(Options{})
	stream, apiErr := c.Chat(ctx, testCall(srv.URL, true))
	assert.Nil(t, apiErr)
	defer stream.Close()

	go func() {
		time.Sleep(50 * time.Millisecond)
		cancel()
	}()

	start := time.Now()
	_, err := stream.Next()
	assert.NotNil(t, err)
	assert.True(t, stream.Canceled())
	assert.Less(t, time.Since(start), time.Second, "cancel must interrupt the pending read")
}
