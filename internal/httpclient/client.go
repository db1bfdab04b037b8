// Package httpclient builds the shared *http.Client used by the CEX
// klines fetcher and the EVM JSON-RPC client (the LLM provider clients
// built by llm.NewModel do not use it). Grounded on the upstream rpc.Client's
// &http.Client{Timeout: ...} construction, generalized to force HTTP/2
// and take an explicit timeout per caller instead of hardcoding 120s.
package httpclient

import (
	"net/http"
	"time"

	"golang.org/x/net/http2"
)

// New builds an *http.Client with the given timeout and an HTTP/2
// transport, matching the connection-reuse characteristics the pack's
// higher-throughput clients rely on.
func New(timeout time.Duration) *http.Client {
	transport := &http.Transport{
		MaxIdleConns:        100,
		MaxIdleConnsPerHost: 10,
		IdleConnTimeout:     90 * time.Second,
	}
	// Best-effort HTTP/2 upgrade; failure to configure it still leaves a
	// working HTTP/1.1 transport, so the error is not fatal.
	_ = http2.ConfigureTransport(transport)

	return &http.Client{
		Timeout:   timeout,
		Transport: transport,
	}
}
