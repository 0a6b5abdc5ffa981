package stream

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/kinoplay/kinoplay/log"
	"github.com/kinoplay/kinoplay/metrics"
	"github.com/kinoplay/kinoplay/network"
	"github.com/samber/mo"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/singleflight"
	"golang.org/x/time/rate"
)

// HTTPResolver resolves streams through the torrent-stream server's HTTP API:
//
//	GET    {base}/stream/{hash}?index=N  -> {"url": "..."}
//	DELETE {base}/torrents/{hash}
//	POST   {base}/torrents/{hash}/seek    {"fileIndex": N, "position": S}
type HTTPResolver struct {
	base    string
	client  *http.Client
	group   singleflight.Group
	limiter *rate.Limiter
	logger  *logrus.Entry
}

// Option configures an HTTPResolver.
type Option func(*HTTPResolver)

// WithClient replaces the shared network client.
func WithClient(c *http.Client) Option {
	return func(r *HTTPResolver) {
		r.client = c
	}
}

// WithSeekHintRate limits seek hints to perSecond, with bursts of one.
// Hints over the limit are dropped. Zero or less disables the limit.
func WithSeekHintRate(perSecond float64) Option {
	return func(r *HTTPResolver) {
		if perSecond <= 0 {
			r.limiter = rate.NewLimiter(rate.Inf, 0)
			return
		}
		r.limiter = rate.NewLimiter(rate.Limit(perSecond), 1)
	}
}

// NewHTTPResolver creates a resolver for the server at base.
func NewHTTPResolver(base string, opts ...Option) *HTTPResolver {
	r := &HTTPResolver{
		base:    strings.TrimRight(base, "/"),
		client:  network.Client,
		limiter: rate.NewLimiter(rate.Limit(2), 1),
		logger:  log.Component("stream"),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

type resolveResponse struct {
	URL string `json:"url"`
}

type seekRequest struct {
	FileIndex int     `json:"fileIndex"`
	Position  float64 `json:"position"`
}

// ResolveStream asks the server for a playable URL. Concurrent calls for
// the same file share one request.
func (r *HTTPResolver) ResolveStream(ctx context.Context, infoHash string, fileIndex int) mo.Option[string] {
	hash, err := InfoHash(infoHash)
	if err != nil {
		r.logger.WithField("hash", infoHash).Warn(err)
		return mo.None[string]()
	}

	v, err, shared := r.group.Do(hash+":"+strconv.Itoa(fileIndex), func() (any, error) {
		return r.resolve(ctx, hash, fileIndex)
	})
	if err != nil {
		r.logger.WithField("hash", hash).Warnf("resolve stream: %v", err)
		return mo.None[string]()
	}
	if shared {
		r.logger.WithField("hash", hash).Trace("resolve shared with a concurrent caller")
	}
	return mo.Some(v.(string))
}

func (r *HTTPResolver) resolve(ctx context.Context, hash string, fileIndex int) (string, error) {
	u := fmt.Sprintf("%s/stream/%s", r.base, hash)
	if fileIndex >= 0 {
		u += "?" + url.Values{"index": {strconv.Itoa(fileIndex)}}.Encode()
	}

	req, err := network.NewRequest(ctx, http.MethodGet, u, nil)
	if err != nil {
		return "", err
	}

	resp, err := r.client.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("unexpected status %d", resp.StatusCode)
	}

	var body resolveResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return "", fmt.Errorf("decode: %w", err)
	}
	if body.URL == "" {
		return "", fmt.Errorf("server returned no url")
	}

	// relative urls point at the server itself
	if strings.HasPrefix(body.URL, "/") {
		body.URL = r.base + body.URL
	}
	return body.URL, nil
}

// StopTorrent asks the server to drop the transfer.
func (r *HTTPResolver) StopTorrent(ctx context.Context, infoHash string) {
	hash, err := InfoHash(infoHash)
	if err != nil {
		return
	}

	req, err := network.NewRequest(ctx, http.MethodDelete, fmt.Sprintf("%s/torrents/%s", r.base, hash), nil)
	if err != nil {
		return
	}

	if err := r.do(req); err != nil {
		r.logger.WithField("hash", hash).Warnf("stop torrent: %v", err)
	}
}

// HandleSeek sends a prioritization hint unless the rate limit is exhausted.
func (r *HTTPResolver) HandleSeek(ctx context.Context, infoHash string, fileIndex int, position float64) {
	hash, err := InfoHash(infoHash)
	if err != nil {
		return
	}

	if !r.limiter.Allow() {
		metrics.RecordSeekHint(metrics.HintThrottled)
		return
	}

	payload, err := json.Marshal(seekRequest{FileIndex: fileIndex, Position: position})
	if err != nil {
		return
	}

	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	req, err := network.NewRequest(ctx, http.MethodPost, fmt.Sprintf("%s/torrents/%s/seek", r.base, hash), bytes.NewReader(payload))
	if err != nil {
		return
	}
	req.Header.Set("Content-Type", "application/json")

	if err := r.do(req); err != nil {
		metrics.RecordSeekHint(metrics.HintFailed)
		r.logger.WithField("hash", hash).Warnf("seek hint: %v", err)
		return
	}
	metrics.RecordSeekHint(metrics.HintSent)
}

func (r *HTTPResolver) do(req *http.Request) error {
	resp, err := r.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		return fmt.Errorf("unexpected status %d", resp.StatusCode)
	}
	return nil
}
