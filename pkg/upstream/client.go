// Package upstream implements the single-call RPC (C4) the turn handler and
// action modules use to reach the core-banking backend: it builds the
// colon-tuple request via pkg/upstream/codec, issues the HTTP call with a
// connect/overall timeout pair, and caches successful envelopes in the
// caller's session for a short freshness window.
package upstream

import (
	"context"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"time"

	"github.com/marmos91/ussdgw/internal/telemetry"
	"github.com/marmos91/ussdgw/pkg/metrics"
	"github.com/marmos91/ussdgw/pkg/session"
	"github.com/marmos91/ussdgw/pkg/upstream/codec"
)

// cacheFreshness is how long a cached envelope is considered fresh enough
// to serve without hitting the backend again.
const cacheFreshness = 5 * time.Minute

// Config controls connection behaviour. Zero values fall back to the
// defaults the backend expects (15s connect, 25s overall).
type Config struct {
	BaseURL        string
	ConnectTimeout time.Duration
	OverallTimeout time.Duration
}

func (c Config) withDefaults() Config {
	if c.ConnectTimeout == 0 {
		c.ConnectTimeout = 15 * time.Second
	}
	if c.OverallTimeout == 0 {
		c.OverallTimeout = 25 * time.Second
	}
	return c
}

// Client issues colon-tuple RPCs against the core-banking backend.
type Client struct {
	cfg     Config
	base    codec.Base
	http    *http.Client
	metrics *metrics.TurnMetrics
}

// New builds a Client. cfg.BaseURL must be the full endpoint the backend
// exposes; base carries the per-deployment FORMID-independent fields
// (bank id/name, shortcode, country, trx source) merged into every call.
func New(cfg Config, base codec.Base) *Client {
	cfg = cfg.withDefaults()
	return &Client{
		cfg:  cfg,
		base: base,
		http: &http.Client{
			Timeout: cfg.OverallTimeout,
			Transport: &http.Transport{
				DialContext: (&net.Dialer{Timeout: cfg.ConnectTimeout}).DialContext,
			},
		},
	}
}

// SetMetrics attaches a metrics recorder. A nil argument (the default)
// disables recording with zero overhead.
func (c *Client) SetMetrics(m *metrics.TurnMetrics) {
	c.metrics = m
}

type cachedEnvelope struct {
	Envelope  codec.Envelope `json:"envelope"`
	Timestamp time.Time      `json:"timestamp"`
}

// transportError is the envelope returned whenever the backend could not be
// reached at all, as opposed to reached and having answered with a failure
// status.
func transportError() codec.Envelope {
	return codec.Envelope{
		Success: false,
		Status:  "ERROR",
		Code:    "API_CONNECTION_ERROR",
		Error:   "Service temporarily unavailable. Please try again.",
	}
}

// Call builds the outbound request via the codec, optionally serves a fresh
// cached envelope, and otherwise issues the HTTP GET and decodes the
// response. access, when non-nil, is the session slot scope the cache is
// read from and written to; a nil access disables caching regardless of
// cacheKey.
func (c *Client) Call(ctx context.Context, formID, data string, access *session.Access, cacheKey string, forceRefresh bool) codec.Envelope {
	ctx, span := telemetry.Tracer().Start(ctx, "upstream.call")
	defer span.End()

	if cacheKey != "" && !forceRefresh && access != nil {
		if cached, ok := c.readCache(ctx, access, cacheKey); ok {
			return cached
		}
	}

	base := c.base
	base.FormID = formID

	body := codec.Encode(base, data)
	reqURL := fmt.Sprintf("%s?b=%s", c.cfg.BaseURL, url.QueryEscape(body))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		c.metrics.RecordUpstreamCall("transport_error")
		return transportError()
	}

	resp, err := c.http.Do(req)
	if err != nil {
		c.metrics.RecordUpstreamCall("transport_error")
		return transportError()
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 500 {
		c.metrics.RecordUpstreamCall("transport_error")
		return transportError()
	}

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		c.metrics.RecordUpstreamCall("transport_error")
		return transportError()
	}

	envelope := codec.Decode(string(raw))

	if envelope.Success {
		c.metrics.RecordUpstreamCall("success")
		if cacheKey != "" && access != nil {
			c.writeCache(ctx, access, cacheKey, envelope)
		}
	} else {
		c.metrics.RecordUpstreamCall("failure")
	}

	return envelope
}

func (c *Client) readCache(ctx context.Context, access *session.Access, cacheKey string) (codec.Envelope, bool) {
	var cached cachedEnvelope
	found, err := access.Grab(ctx, cacheSlot(cacheKey), &cached)
	if err != nil || !found {
		return codec.Envelope{}, false
	}
	if time.Since(cached.Timestamp) > cacheFreshness {
		return codec.Envelope{}, false
	}
	return cached.Envelope, true
}

func (c *Client) writeCache(ctx context.Context, access *session.Access, cacheKey string, envelope codec.Envelope) {
	_ = access.Store(ctx, cacheSlot(cacheKey), cachedEnvelope{Envelope: envelope, Timestamp: time.Now()})
}

func cacheSlot(cacheKey string) string {
	return "api_cache_" + cacheKey
}
