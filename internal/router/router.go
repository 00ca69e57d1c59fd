// Package router classifies inbound request paths and selects the upstream.
package router

import "strings"

// staticPrefix is the path segment reserved for cacheable static assets.
const staticPrefix = "static/"

// Kind identifies which upstream handles a request.
type Kind int

const (
	// KindAPICall routes to the dynamic API upstream.
	KindAPICall Kind = iota
	// KindStaticAsset routes to the static asset upstream.
	KindStaticAsset
)

func (k Kind) String() string {
	if k == KindStaticAsset {
		return "static"
	}
	return "api"
}

// Decision is the result of classifying a request path.
type Decision struct {
	Kind         Kind
	UpstreamHost string
}

// Router maps request paths to upstream base URLs.
type Router struct {
	apiHost   string
	assetHost string
}

// New creates a Router for the given upstream base URLs.
func New(apiHost, assetHost string) *Router {
	return &Router{apiHost: apiHost, assetHost: assetHost}
}

// Classify inspects the path portion of a request URI and picks the upstream.
// Paths under static/ go to the asset host; everything else goes to the API
// host. Every input classifies deterministically.
func (r *Router) Classify(path string) Decision {
	path = strings.TrimPrefix(path, "/")
	if strings.HasPrefix(path, staticPrefix) {
		return Decision{Kind: KindStaticAsset, UpstreamHost: r.assetHost}
	}
	return Decision{Kind: KindAPICall, UpstreamHost: r.apiHost}
}
