// Package service implements the core proxy forwarding logic.
package service

import (
	"bytes"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"

	"posthog-proxy-go/internal/client"
	"posthog-proxy-go/internal/config"
	"posthog-proxy-go/internal/model"
)

// skippedRequestHeaders are inbound headers excluded from the plain copy:
// the content headers are set explicitly alongside the outbound body, and
// the encoding headers describe a wire format that no longer applies once
// the body has been buffered.
var skippedRequestHeaders = map[string]bool{
	"Content-Type":      true,
	"Content-Length":    true,
	"Content-Encoding":  true,
	"Transfer-Encoding": true,
}

// sensitiveRequestHeaders carry client credentials or identity that must
// never reach the upstream.
var sensitiveRequestHeaders = []string{
	"Cookie",
	"Authorization",
	"Host",
}

// droppedResponseHeaders conflict with the server's own body framing and are
// removed from upstream responses before they reach the client.
var droppedResponseHeaders = []string{
	"Transfer-Encoding",
	"Content-Encoding",
}

// APIService forwards non-static requests to the API upstream with header
// sanitization.
type APIService struct {
	client  *client.UpstreamClient
	logger  *slog.Logger
	baseURL *url.URL
}

// NewAPIService creates an APIService for the configured API upstream.
func NewAPIService(c *client.UpstreamClient, cfg *config.Config, logger *slog.Logger) (*APIService, error) {
	u, err := url.Parse(cfg.Upstream.APIURL)
	if err != nil {
		return nil, fmt.Errorf("parse upstream api_url: %w", err)
	}

	return &APIService{
		client:  c,
		logger:  logger.With("component", "api_service"),
		baseURL: u,
	}, nil
}

// Forward sends a ProxyRequest to the API upstream and returns the response.
// The caller is responsible for closing the response body.
//
// Method, path and query are preserved verbatim. The body is fully buffered
// when present, inbound headers are copied minus content framing, the
// credential headers are stripped, Host is forced to the upstream hostname,
// and the client address is appended to X-Forwarded-For.
func (s *APIService) Forward(pr *model.ProxyRequest) (*model.ProxyResponse, error) {
	body, contentType, err := outboundBody(pr)
	if err != nil {
		return nil, fmt.Errorf("buffer request body: %w", err)
	}

	req, err := http.NewRequestWithContext(pr.Ctx, pr.Method, s.buildUpstreamURL(pr.Path, pr.RawQuery), body)
	if err != nil {
		return nil, fmt.Errorf("build upstream request: %w", err)
	}
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}

	copyInboundHeaders(req.Header, pr.Header)

	for _, key := range sensitiveRequestHeaders {
		req.Header.Del(key)
	}
	req.Host = s.baseURL.Host

	if pr.RemoteAddr != "" {
		appendForwardedFor(req.Header, pr.RemoteAddr)
	}

	s.logger.Debug("forwarding request",
		"method", pr.Method,
		"path", pr.Path,
	)

	resp, err := s.client.Do("api", req)
	if err != nil {
		return nil, fmt.Errorf("forward to upstream: %w", err)
	}

	for _, key := range droppedResponseHeaders {
		resp.Header.Del(key)
	}
	return resp, nil
}

func (s *APIService) buildUpstreamURL(path, rawQuery string) string {
	u := *s.baseURL
	u.Path = path
	u.RawQuery = rawQuery
	return u.String()
}

// outboundBody decides what body, if any, travels upstream. A declared
// positive content length or a form submission is buffered in full and sent
// with the original content type. A JSON content type with no body becomes
// an explicit empty JSON body. Anything else sends no body at all.
func outboundBody(pr *model.ProxyRequest) (io.Reader, string, error) {
	contentType := pr.Header.Get("Content-Type")
	ct := strings.ToLower(contentType)
	isForm := strings.Contains(ct, "application/x-www-form-urlencoded") ||
		strings.Contains(ct, "multipart/form-data")

	if pr.ContentLength > 0 || isForm {
		if pr.Body == nil {
			return strings.NewReader(""), contentType, nil
		}
		buf, err := io.ReadAll(pr.Body)
		if err != nil {
			return nil, "", err
		}
		return bytes.NewReader(buf), contentType, nil
	}

	if strings.Contains(ct, "json") {
		return strings.NewReader(""), "application/json", nil
	}

	return nil, "", nil
}

// copyInboundHeaders forwards every inbound header except the skipped
// content headers, and only when the destination does not already carry
// that header.
func copyInboundHeaders(dst, src http.Header) {
	for key, vals := range src {
		canonical := http.CanonicalHeaderKey(key)
		if skippedRequestHeaders[canonical] {
			continue
		}
		if len(dst.Values(canonical)) > 0 {
			continue
		}
		dst[canonical] = append([]string(nil), vals...)
	}
}

// appendForwardedFor records the direct peer's address on X-Forwarded-For,
// joining any values already present with ", ".
func appendForwardedFor(h http.Header, addr string) {
	prior := h.Values("X-Forwarded-For")
	if len(prior) == 0 {
		h.Set("X-Forwarded-For", addr)
		return
	}
	h.Set("X-Forwarded-For", strings.Join(prior, ", ")+", "+addr)
}
