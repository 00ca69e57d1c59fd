package handler

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net"
	"net/http"
	"net/url"

	"github.com/labstack/echo/v4"

	"posthog-proxy-go/internal/model"
	"posthog-proxy-go/internal/router"
	"posthog-proxy-go/internal/service"
)

// ProxyHandler classifies inbound requests and dispatches them to the API
// or static asset pipeline.
type ProxyHandler struct {
	router *router.Router
	api    *service.APIService
	static *service.StaticService
	logger *slog.Logger
}

// NewProxyHandler creates a ProxyHandler.
func NewProxyHandler(r *router.Router, api *service.APIService, static *service.StaticService, logger *slog.Logger) *ProxyHandler {
	return &ProxyHandler{
		router: r,
		api:    api,
		static: static,
		logger: logger.With("component", "proxy_handler"),
	}
}

// Handle proxies the request to the upstream selected by the router and
// writes the translated response.
func (h *ProxyHandler) Handle(c echo.Context) error {
	req := c.Request()

	if h.router.Classify(req.URL.Path).Kind == router.KindStaticAsset {
		return h.handleStatic(c)
	}
	return h.handleAPI(c)
}

func (h *ProxyHandler) handleStatic(c echo.Context) error {
	req := c.Request()

	result, err := h.static.Fetch(req.Context(), req.URL.Path, req.URL.RawQuery)
	if err != nil {
		return h.mapError(c, err)
	}

	if result.StatusCode < 200 || result.StatusCode > 299 {
		return c.NoContent(result.StatusCode)
	}
	return c.Blob(http.StatusOK, result.ContentType, result.Body)
}

func (h *ProxyHandler) handleAPI(c echo.Context) error {
	req := c.Request()

	pr := &model.ProxyRequest{
		Ctx:           req.Context(),
		Method:        req.Method,
		Path:          req.URL.Path,
		RawQuery:      req.URL.RawQuery,
		Header:        req.Header,
		Body:          req.Body,
		ContentLength: req.ContentLength,
		RemoteAddr:    remoteIP(req.RemoteAddr),
	}

	resp, err := h.api.Forward(pr)
	if err != nil {
		return h.mapError(c, err)
	}
	defer func() { _ = resp.Body.Close() }()

	for key, vals := range resp.Header {
		for _, v := range vals {
			c.Response().Header().Add(key, v)
		}
	}

	c.Response().WriteHeader(resp.StatusCode)

	// Stream the upstream body directly to the client. If io.Copy fails
	// mid-stream (e.g. client disconnect, network error), the HTTP status
	// code has already been sent, so the client receives a truncated
	// response with the original status. This is an inherent trade-off of
	// streaming proxies — we log the error for observability.
	if _, err := io.Copy(c.Response(), resp.Body); err != nil {
		h.logger.Error("streaming response body",
			"err", err,
			"path", req.URL.Path,
		)
	}

	return nil
}

func (h *ProxyHandler) mapError(c echo.Context, err error) error {
	h.logger.Error("proxy error",
		"err", err,
		"path", c.Request().URL.Path,
	)

	if errors.Is(err, context.DeadlineExceeded) {
		return c.JSON(http.StatusGatewayTimeout, map[string]string{
			"error": "upstream request timed out",
		})
	}

	if errors.Is(err, context.Canceled) {
		return c.JSON(http.StatusBadGateway, map[string]string{
			"error": "client disconnected",
		})
	}

	var dnsErr *net.DNSError
	if errors.As(err, &dnsErr) {
		return c.JSON(http.StatusBadGateway, map[string]string{
			"error": "upstream host unreachable",
		})
	}

	var urlErr *url.Error
	if errors.As(err, &urlErr) {
		return c.JSON(http.StatusBadGateway, map[string]string{
			"error": "upstream connection failed",
		})
	}

	return c.JSON(http.StatusBadGateway, map[string]string{
		"error": "upstream request failed",
	})
}

// remoteIP extracts the host portion of the peer address. This is the
// direct connection's address, not a trusted-proxy reconstruction: the
// value is appended to X-Forwarded-For rather than replacing it.
func remoteIP(addr string) string {
	if addr == "" {
		return ""
	}
	host, _, err := net.SplitHostPort(addr)
	if err != nil {
		return addr
	}
	return host
}
