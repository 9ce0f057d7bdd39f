// Package security provides the request-hardening middleware: response
// headers, suspicious-request detection and trusted-proxy aware client
// IP extraction.
package security

import (
	"fmt"
	"net"
	"net/http"
	"strings"
	"sync/atomic"
)

// Patterns that mark a request as suspicious. These only feed a
// counter and a warning log line; nothing is blocked on them.
var (
	suspiciousPathPatterns = []string{
		"../", "..\\", ".env", "wp-admin", "phpmyadmin",
		"admin.php", "config.php", ".git", ".ssh",
		"eval(", "javascript:", "<script", "union select",
		"base64", "0x", "etc/passwd", "cmd.exe",
	}
	suspiciousAgents = []string{
		"sqlmap", "nmap", "nikto", "gobuster", "dirb",
		"curl", "wget", "python-requests", "scanner",
		"bot", "crawler", "spider", "scraper",
	}
	unusualMethods = []string{"TRACE", "TRACK", "DEBUG", "CONNECT"}
)

// maxURLLength flags absurdly long URLs.
const maxURLLength = 2048

// Detector spots suspicious requests and resolves real client IPs
// behind trusted proxies.
type Detector struct {
	trustedProxies []*net.IPNet

	suspiciousRequests int64
}

// Metrics is a snapshot of the detector's counters.
type Metrics struct {
	SuspiciousRequests int64 `json:"suspicious_requests"`
}

// NewDetector creates a detector trusting the loopback and private
// network ranges as proxies.
func NewDetector() *Detector {
	return &Detector{
		trustedProxies: []*net.IPNet{
			parseCIDR("127.0.0.0/8"),
			parseCIDR("10.0.0.0/8"),
			parseCIDR("172.16.0.0/12"),
			parseCIDR("192.168.0.0/16"),
		},
	}
}

// parseCIDR panics on bad input; it only runs on the fixed list above.
func parseCIDR(cidr string) *net.IPNet {
	_, network, err := net.ParseCIDR(cidr)
	if err != nil {
		panic(fmt.Sprintf("failed to parse trusted proxy CIDR %s: %v", cidr, err))
	}
	return network
}

// AddTrustedProxy extends the trusted proxy list with a CIDR.
func (d *Detector) AddTrustedProxy(cidr string) error {
	_, network, err := net.ParseCIDR(cidr)
	if err != nil {
		return fmt.Errorf("invalid CIDR %s: %w", cidr, err)
	}
	d.trustedProxies = append(d.trustedProxies, network)
	return nil
}

// DetectSuspiciousRequest reports whether the request matches any of
// the known probe patterns, counting matches.
func (d *Detector) DetectSuspiciousRequest(r *http.Request) bool {
	suspicious := d.isSuspicious(r)
	if suspicious {
		atomic.AddInt64(&d.suspiciousRequests, 1)
	}
	return suspicious
}

func (d *Detector) isSuspicious(r *http.Request) bool {
	if containsAny(strings.ToLower(r.URL.Path), suspiciousPathPatterns) {
		return true
	}
	if containsAny(strings.ToLower(r.URL.RawQuery), suspiciousPathPatterns) {
		return true
	}
	if containsAny(strings.ToLower(r.Header.Get("User-Agent")), suspiciousAgents) {
		return true
	}
	for _, method := range unusualMethods {
		if r.Method == method {
			return true
		}
	}
	if len(r.URL.String()) > maxURLLength {
		return true
	}
	// Stacked forwarding headers with many hops smell like header
	// manipulation.
	if r.Header.Get("X-Forwarded-For") != "" && r.Header.Get("X-Real-IP") != "" {
		if strings.Count(r.Header.Get("X-Forwarded-For"), ",") > 5 {
			return true
		}
	}
	return false
}

func containsAny(s string, patterns []string) bool {
	for _, pattern := range patterns {
		if strings.Contains(s, pattern) {
			return true
		}
	}
	return false
}

// ExtractClientIP resolves the real client IP. Forwarded headers are
// only honored when the direct peer is a trusted proxy.
func (d *Detector) ExtractClientIP(r *http.Request) string {
	directIP, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		directIP = r.RemoteAddr
	}

	parsedDirectIP := net.ParseIP(directIP)
	if parsedDirectIP == nil {
		return directIP
	}

	if d.isTrustedProxy(parsedDirectIP) {
		if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
			// The first entry is the original client.
			clientIP := strings.TrimSpace(strings.Split(xff, ",")[0])
			if net.ParseIP(clientIP) != nil {
				return clientIP
			}
		}
		if xri := r.Header.Get("X-Real-IP"); xri != "" {
			if net.ParseIP(xri) != nil {
				return xri
			}
		}
	}

	return directIP
}

func (d *Detector) isTrustedProxy(ip net.IP) bool {
	for _, network := range d.trustedProxies {
		if network.Contains(ip) {
			return true
		}
	}
	return false
}

// Metrics returns the detector's counters.
func (d *Detector) Metrics() Metrics {
	return Metrics{
		SuspiciousRequests: atomic.LoadInt64(&d.suspiciousRequests),
	}
}
