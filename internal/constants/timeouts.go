package constants

import "time"

const (
	// DefaultDialTimeout bounds TCP connection establishment to an upstream.
	DefaultDialTimeout = 10 * time.Second
	// DefaultTLSHandshakeTimeout bounds the TLS handshake with an upstream.
	DefaultTLSHandshakeTimeout = 10 * time.Second
	// DefaultResponseHeaderTimeout bounds time-to-first-byte of an upstream response.
	DefaultResponseHeaderTimeout = 60 * time.Second
	// DefaultExpectContinueTimeout bounds the 100-continue wait window.
	DefaultExpectContinueTimeout = 2 * time.Second
	// DefaultIdleFragmentTimeout bounds silence between stream fragments.
	DefaultIdleFragmentTimeout = 90 * time.Second
	// DefaultKeepAlive is the TCP keep-alive interval for upstream dials.
	DefaultKeepAlive = 30 * time.Second

	// ServerShutdownTimeout bounds graceful HTTP server shutdown.
	ServerShutdownTimeout = 30 * time.Second
	// ServerGracefulWait defines post-shutdown wait window for cleanup.
	ServerGracefulWait = 2 * time.Second
)

const (
	// BaseMaxIdleConns caps idle connections across all upstreams.
	BaseMaxIdleConns = 256
	// BaseMaxIdleConnsPerHost caps idle connections per upstream host.
	BaseMaxIdleConnsPerHost = 64
	// BaseIdleConnTimeout recycles idle upstream connections.
	BaseIdleConnTimeout = 90 * time.Second
)
