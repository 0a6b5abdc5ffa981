// Package network provides the shared HTTP client used for subtitle downloads, the stream server and engine control endpoints.
package network

import (
	"context"
	"io"
	"net/http"
	"time"

	"github.com/kinoplay/kinoplay/constant"
)

// Client is the singleton HTTP client shared across the application.
// Engine control endpoints are local, so timeouts stay short.
var Client = &http.Client{
	Timeout:   30 * time.Second,
	Transport: newTransport(),
}

// newTransport initializes a tuned http.Transport with pool and timeout parameters.
func newTransport() *http.Transport {
	t := http.DefaultTransport.(*http.Transport).Clone()
	t.MaxIdleConns = 32
	t.MaxIdleConnsPerHost = 8
	t.IdleConnTimeout = 30 * time.Second
	t.ResponseHeaderTimeout = 15 * time.Second
	return t
}

// NewRequest builds a request carrying the application User-Agent.
func NewRequest(ctx context.Context, method, url string, body io.Reader) (*http.Request, error) {
	req, err := http.NewRequestWithContext(ctx, method, url, body)
	if err != nil {
		return nil, err
	}
	req.Header.Set("User-Agent", constant.UserAgent)
	return req, nil
}
