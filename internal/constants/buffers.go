package constants

const (
	// SSEScannerInitialBufferSize defines the initial buffer for SSE scanners (64KB).
	SSEScannerInitialBufferSize = 64 * 1024
	// SSEScannerMaxBufferSize defines the max buffer size for SSE scanners (4MB).
	SSEScannerMaxBufferSize = 4 * 1024 * 1024
	// MaxRequestBodySize bounds inbound chat request bodies (8MB).
	MaxRequestBodySize = 8 * 1024 * 1024
	// MaxBufferedResponseSize bounds non-stream upstream response bodies (16MB).
	MaxBufferedResponseSize = 16 * 1024 * 1024
)
