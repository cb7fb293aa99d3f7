// Package security sets response hardening headers and flags requests that
// look like probes.
package security

import (
	"net/http"
	"strconv"
)

// HeadersConfig holds the hardening headers sent with every response.
type HeadersConfig struct {
	CSP            string
	FrameOptions   string
	ReferrerPolicy string
	// CrossOriginResource is the Cross-Origin-Resource-Policy value.
	CrossOriginResource string

	// HSTS is only sent over TLS. Zero MaxAge disables it.
	HSTSMaxAge            int
	HSTSIncludeSubdomains bool
	HSTSPreload           bool
}

// DefaultHeadersConfig suits a JSON API that never renders pages.
func DefaultHeadersConfig() HeadersConfig {
	return HeadersConfig{
		CSP:                   "default-src 'none'; frame-ancestors 'none'; base-uri 'none'",
		FrameOptions:          "DENY",
		ReferrerPolicy:        "no-referrer",
		CrossOriginResource:   "same-origin",
		HSTSMaxAge:            31536000,
		HSTSIncludeSubdomains: true,
		HSTSPreload:           true,
	}
}

// HeadersMiddleware writes a fixed header set, built once.
type HeadersMiddleware struct {
	static http.Header
	hsts   string
}

func NewHeadersMiddleware(cfg HeadersConfig) *HeadersMiddleware {
	static := http.Header{}
	set := func(k, v string) {
		if v != "" {
			static.Set(k, v)
		}
	}
	set("X-Content-Type-Options", "nosniff")
	set("X-Frame-Options", cfg.FrameOptions)
	set("Content-Security-Policy", cfg.CSP)
	set("Referrer-Policy", cfg.ReferrerPolicy)
	set("Cross-Origin-Resource-Policy", cfg.CrossOriginResource)

	var hsts string
	if cfg.HSTSMaxAge > 0 {
		hsts = "max-age=" + strconv.Itoa(cfg.HSTSMaxAge)
		if cfg.HSTSIncludeSubdomains {
			hsts += "; includeSubDomains"
		}
		if cfg.HSTSPreload {
			hsts += "; preload"
		}
	}
	return &HeadersMiddleware{static: static, hsts: hsts}
}

func (h *HeadersMiddleware) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		dst := w.Header()
		for k, v := range h.static {
			dst[k] = v
		}
		if r.TLS != nil && h.hsts != "" {
			dst.Set("Strict-Transport-Security", h.hsts)
		}
		next.ServeHTTP(w, r)
	})
}

// NoStore marks responses as uncacheable. Ledger reads change with every write.
func NoStore(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Cache-Control", "no-store")
		next.ServeHTTP(w, r)
	})
}
