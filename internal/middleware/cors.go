package middleware

import (
	"net/http"
	"net/url"
	"strings"

	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"
)

// CORS returns an Echo middleware that allows any origin whose hostname
// equals baseDomain or is a subdomain of it, with credentials. Any method
// and any requested header are allowed for matching origins. A malformed
// Origin header is not allowed (fail closed).
func CORS(baseDomain string) echo.MiddlewareFunc {
	base := strings.ToLower(strings.TrimPrefix(baseDomain, "."))

	return echomw.CORSWithConfig(echomw.CORSConfig{
		AllowOriginFunc: func(origin string) (bool, error) {
			return originAllowed(origin, base), nil
		},
		AllowMethods: []string{
			http.MethodGet, http.MethodHead, http.MethodPost, http.MethodPut,
			http.MethodPatch, http.MethodDelete, http.MethodOptions,
		},
		AllowCredentials: true,
	})
}

// originAllowed reports whether origin's hostname equals base or ends with
// "." + base. Unparseable or schemeless origins are rejected.
func originAllowed(origin, base string) bool {
	u, err := url.Parse(origin)
	if err != nil || u.Scheme == "" || u.Hostname() == "" {
		return false
	}
	host := strings.ToLower(u.Hostname())
	return host == base || strings.HasSuffix(host, "."+base)
}
