package service

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"posthog-proxy-go/internal/cache"
	"posthog-proxy-go/internal/client"
	"posthog-proxy-go/internal/config"
	"posthog-proxy-go/internal/metrics"
)

const octetStream = "application/octet-stream"

// AssetResult is the outcome of a static asset lookup, ready to be written
// to the client.
type AssetResult struct {
	StatusCode  int
	ContentType string
	Body        []byte
	FromCache   bool
}

// StaticService serves static asset requests, consulting the cache before
// any network call.
type StaticService struct {
	client  *client.UpstreamClient
	store   cache.Store
	logger  *slog.Logger
	metrics *metrics.Metrics
	baseURL *url.URL
	ttl     time.Duration
}

// NewStaticService creates a StaticService for the configured asset upstream.
// The metrics parameter is optional; pass nil to disable cache metrics.
func NewStaticService(c *client.UpstreamClient, store cache.Store, cfg *config.Config, logger *slog.Logger, m *metrics.Metrics) (*StaticService, error) {
	u, err := url.Parse(cfg.Upstream.AssetURL)
	if err != nil {
		return nil, fmt.Errorf("parse upstream asset_url: %w", err)
	}

	ttl := cfg.Cache.TTL()
	if ttl <= 0 {
		ttl = cache.DefaultTTL
	}

	return &StaticService{
		client:  c,
		store:   store,
		logger:  logger.With("component", "static_service"),
		metrics: m,
		baseURL: u,
		ttl:     ttl,
	}, nil
}

// Fetch returns the asset at path, from the cache when fresh, otherwise from
// the asset upstream. The upstream fetch is always a GET regardless of the
// inbound method; the original deployment only ever issued GETs for the
// static path and that behavior is kept.
//
// A cache hit is served as application/octet-stream: the cache stores raw
// bytes only, so the original content type of a warm asset is not retained.
func (s *StaticService) Fetch(ctx context.Context, path, rawQuery string) (*AssetResult, error) {
	key := cacheKey(path, rawQuery)

	if body, ok := s.store.Get(ctx, key); ok {
		if s.metrics != nil {
			s.metrics.CacheHits.Inc()
		}
		return &AssetResult{
			StatusCode:  http.StatusOK,
			ContentType: octetStream,
			Body:        body,
			FromCache:   true,
		}, nil
	}
	if s.metrics != nil {
		s.metrics.CacheMisses.Inc()
	}

	assetURL := strings.TrimSuffix(s.baseURL.String(), "/") + key
	resp, err := s.client.DoStream(ctx, "asset", http.MethodGet, assetURL, nil, nil)
	if err != nil {
		return nil, fmt.Errorf("fetch asset: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	// Non-success statuses pass through with an empty body and are never
	// cached; they are a normal outcome, not an error.
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return &AssetResult{StatusCode: resp.StatusCode}, nil
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read asset body: %w", err)
	}

	// A failing store degrades to pass-through; the asset is still served.
	if err := s.store.Set(ctx, key, body, s.ttl); err != nil {
		s.logger.Warn("caching asset failed", "key", key, "err", err)
	}

	return &AssetResult{
		StatusCode:  http.StatusOK,
		ContentType: assetContentType(path, resp.Header.Get("Content-Type")),
		Body:        body,
	}, nil
}

// cacheKey is the full request path plus query string, rooted at "/".
func cacheKey(path, rawQuery string) string {
	if !strings.HasPrefix(path, "/") {
		path = "/" + path
	}
	if rawQuery != "" {
		return path + "?" + rawQuery
	}
	return path
}

// assetContentType prefers the upstream's declared content type, then infers
// JavaScript from the path extension, then falls back to a generic binary type.
func assetContentType(path, declared string) string {
	if declared != "" {
		return declared
	}
	if strings.HasSuffix(strings.ToLower(path), ".js") {
		return "application/javascript"
	}
	return octetStream
}
