package httpx

import (
	"net/http"
	"time"
)

const defaultTimeout = 30 * time.Second

// External is the shared client for all outbound calls (arXiv, OpenAI).
// Every call through it is bounded by the configured timeout.
var External = &http.Client{
	Timeout: defaultTimeout,
}

// ConfigureTimeout applies the configured timeout and returns the value in
// effect, falling back to the default for non-positive input.
func ConfigureTimeout(d time.Duration) time.Duration {
	if d <= 0 {
		d = defaultTimeout
	}
	External.Timeout = d
	return d
}
