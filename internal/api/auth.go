package api

import (
	"crypto/subtle"
	"net"
	"net/http"
	"strings"

	"quicktable/internal/config"
)

const adminPrefix = "/api/v1/admin/"

// HTTPAuth guards admin routes with API keys and rate limits every client.
type HTTPAuth struct {
	cfg     config.APIConfig
	keys    []config.APIClientKey
	limiter *rateLimiter
}

func NewHTTPAuth(cfg config.APIConfig) *HTTPAuth {
	return &HTTPAuth{cfg: cfg, keys: cfg.Auth.APIKeys, limiter: newRateLimiter(cfg.RateLimit)}
}

func (a *HTTPAuth) Wrap(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if a.cfg.Auth.Enabled && strings.HasPrefix(r.URL.Path, adminPrefix) {
			if _, ok := a.authenticate(r); !ok {
				writeError(w, http.StatusUnauthorized, "invalid api key")
				return
			}
		}

		if !a.limiter.allow(clientKey(r, a.headerName())) {
			writeError(w, http.StatusTooManyRequests, errRateLimited.Error())
			return
		}

		next.ServeHTTP(w, r)
	})
}

func (a *HTTPAuth) headerName() string {
	return apiKeyHeader(a.cfg.Auth)
}

func apiKeyHeader(cfg config.APIAuthConfig) string {
	if h := strings.TrimSpace(cfg.HeaderAPIKey); h != "" {
		return h
	}
	return "x-api-key"
}

func (a *HTTPAuth) authenticate(r *http.Request) (string, bool) {
	return matchKey(a.keys, r.Header.Get(a.headerName()))
}

// matchKey returns the name of the key equal to presented. Every key is
// compared so timing does not reveal which prefix matched.
func matchKey(keys []config.APIClientKey, presented string) (string, bool) {
	presented = strings.TrimSpace(presented)
	if presented == "" {
		return "", false
	}
	var name string
	found := false
	for _, k := range keys {
		if subtle.ConstantTimeCompare([]byte(k.Key), []byte(presented)) == 1 {
			name, found = k.Name, true
		}
	}
	return name, found
}

// clientKey identifies the caller by API key, else by remote host.
func clientKey(r *http.Request, header string) string {
	if apiKey := strings.TrimSpace(r.Header.Get(header)); apiKey != "" {
		return "key:" + apiKey
	}
	return "ip:" + clientIP(r)
}

func clientIP(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err == nil && host != "" {
		return host
	}
	if r.RemoteAddr != "" {
		return r.RemoteAddr
	}
	return "unknown"
}
