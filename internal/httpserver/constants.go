package httpserver

import "time"

const (
	defaultPort = "8080"

	apiVersion = "2.0.0"

	apiKeyHeader = "X-API-Key"

	readTimeout       = 10 * time.Second
	readHeaderTimeout = 3 * time.Second
	// Creates block on volume provisioning and PVC binding, so the write
	// timeout has to cover the slowest synchronous operation.
	writeTimeout   = 5 * time.Minute
	idleTimeout    = 60 * time.Second
	maxHeaderBytes = 1 << 12 // 4kb
)
