package security

import (
	"fmt"
	"net"
	"net/http"
	"net/netip"
	"strings"
	"sync"
	"sync/atomic"

	"fintrack/internal/log"
)

const maxURLLength = 2048

// Probe markers matched against the lower-cased path and query.
var probeMarkers = []string{
	"../", "..\\", ".env", ".git", ".ssh", "wp-admin", "phpmyadmin",
	"admin.php", "config.php", "etc/passwd", "cmd.exe",
	"<script", "javascript:", "union select", "eval(",
}

// Scanner user agents. Plain HTTP clients such as curl are expected callers of
// a JSON API and are not listed.
var scannerAgents = []string{"sqlmap", "nmap", "nikto", "gobuster", "dirb", "masscan", "zgrab"}

// DetectionMetrics counts detector findings since start.
type DetectionMetrics struct {
	SuspiciousRequests int64
	InvalidIPAttempts  int64
}

// Detector resolves client addresses behind trusted proxies and flags
// requests that look like probes.
type Detector struct {
	mu      sync.RWMutex
	trusted []netip.Prefix

	suspicious atomic.Int64
	invalidIP  atomic.Int64
}

// NewDetector trusts loopback and private networks as proxies.
func NewDetector() *Detector {
	return &Detector{trusted: []netip.Prefix{
		netip.MustParsePrefix("127.0.0.0/8"),
		netip.MustParsePrefix("10.0.0.0/8"),
		netip.MustParsePrefix("172.16.0.0/12"),
		netip.MustParsePrefix("192.168.0.0/16"),
		netip.MustParsePrefix("::1/128"),
	}}
}

// AddTrustedProxy trusts forwarding headers set by peers in cidr.
func (d *Detector) AddTrustedProxy(cidr string) error {
	p, err := netip.ParsePrefix(cidr)
	if err != nil {
		return fmt.Errorf("invalid CIDR %s: %w", cidr, err)
	}
	d.mu.Lock()
	d.trusted = append(d.trusted, p.Masked())
	d.mu.Unlock()
	return nil
}

// Inspect returns why r looks like a probe, or "" when it does not.
func (d *Detector) Inspect(r *http.Request) string {
	reason := inspect(r)
	if reason != "" {
		d.suspicious.Add(1)
	}
	return reason
}

// DetectSuspiciousRequest reports whether Inspect found anything.
func (d *Detector) DetectSuspiciousRequest(r *http.Request) bool {
	return d.Inspect(r) != ""
}

func inspect(r *http.Request) string {
	target := strings.ToLower(r.URL.Path + "?" + r.URL.RawQuery)
	for _, m := range probeMarkers {
		if strings.Contains(target, m) {
			return "probe pattern " + m
		}
	}

	ua := strings.ToLower(r.UserAgent())
	for _, a := range scannerAgents {
		if strings.Contains(ua, a) {
			return "scanner user agent " + a
		}
	}

	switch r.Method {
	case "TRACE", "TRACK", "DEBUG", "CONNECT":
		return "method " + r.Method
	}
	if len(r.URL.String()) > maxURLLength {
		return "oversized URL"
	}
	if strings.Count(r.Header.Get("X-Forwarded-For"), ",") > 5 {
		return "forwarding chain too long"
	}
	return ""
}

// ExtractClientIP returns the peer address, or the forwarded client address
// when the peer is a trusted proxy.
func (d *Detector) ExtractClientIP(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		host = r.RemoteAddr
	}
	peer, err := netip.ParseAddr(host)
	if err != nil || !d.isTrusted(peer) {
		return host
	}

	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		first, _, _ := strings.Cut(xff, ",")
		first = strings.TrimSpace(first)
		if _, err := netip.ParseAddr(first); err == nil {
			return first
		}
		d.invalidIP.Add(1)
	}
	if xri := strings.TrimSpace(r.Header.Get("X-Real-IP")); xri != "" {
		if _, err := netip.ParseAddr(xri); err == nil {
			return xri
		}
	}
	return host
}

func (d *Detector) isTrusted(addr netip.Addr) bool {
	addr = addr.Unmap()
	d.mu.RLock()
	defer d.mu.RUnlock()
	for _, p := range d.trusted {
		if p.Contains(addr) {
			return true
		}
	}
	return false
}

func (d *Detector) GetMetrics() DetectionMetrics {
	return DetectionMetrics{
		SuspiciousRequests: d.suspicious.Load(),
		InvalidIPAttempts:  d.invalidIP.Load(),
	}
}

// Middleware logs requests that look like probes. They are still served; the
// routes reject malformed input on their own.
func (d *Detector) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if reason := d.Inspect(r); reason != "" {
			log.FromContext(r.Context()).WarnContext(r.Context(), "Suspicious request",
				"reason", reason,
				log.FieldClientIP, d.ExtractClientIP(r),
				log.FieldMethod, r.Method,
				log.FieldPath, r.URL.Path,
				log.FieldUserAgent, r.UserAgent())
		}
		next.ServeHTTP(w, r)
	})
}
