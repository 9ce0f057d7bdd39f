package security

import (
	"crypto/tls"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func TestDetectSuspiciousRequest(t *testing.T) {
	tests := []struct {
		name       string
		build      func() *http.Request
		suspicious bool
	}{
		{
			name: "normal browser request",
			build: func() *http.Request {
				r := httptest.NewRequest(http.MethodGet, "/expenses", nil)
				r.Header.Set("User-Agent", "Mozilla/5.0 (X11; Linux x86_64) Firefox/128.0")
				return r
			},
			suspicious: false,
		},
		{
			name: "dotenv probe",
			build: func() *http.Request {
				return httptest.NewRequest(http.MethodGet, "/.env", nil)
			},
			suspicious: true,
		},
		{
			name: "path traversal",
			build: func() *http.Request {
				r := httptest.NewRequest(http.MethodGet, "/files", nil)
				r.URL.Path = "/files/../../etc/passwd"
				return r
			},
			suspicious: true,
		},
		{
			name: "sql injection in query",
			build: func() *http.Request {
				return httptest.NewRequest(http.MethodGet, "/expenses?q=1+union+select+password", nil)
			},
			suspicious: true,
		},
		{
			name: "scanner user agent",
			build: func() *http.Request {
				r := httptest.NewRequest(http.MethodGet, "/", nil)
				r.Header.Set("User-Agent", "sqlmap/1.7")
				return r
			},
			suspicious: true,
		},
		{
			name: "unusual method",
			build: func() *http.Request {
				return httptest.NewRequest("TRACE", "/", nil)
			},
			suspicious: true,
		},
		{
			name: "absurdly long URL",
			build: func() *http.Request {
				return httptest.NewRequest(http.MethodGet, "/?p="+strings.Repeat("a", 3000), nil)
			},
			suspicious: true,
		},
		{
			name: "stacked forwarding headers with many hops",
			build: func() *http.Request {
				r := httptest.NewRequest(http.MethodGet, "/", nil)
				r.Header.Set("X-Forwarded-For", "1.1.1.1, 2.2.2.2, 3.3.3.3, 4.4.4.4, 5.5.5.5, 6.6.6.6, 7.7.7.7")
				r.Header.Set("X-Real-IP", "1.1.1.1")
				return r
			},
			suspicious: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d := NewDetector()
			if got := d.DetectSuspiciousRequest(tt.build()); got != tt.suspicious {
				t.Errorf("DetectSuspiciousRequest() = %v, want %v", got, tt.suspicious)
			}
		})
	}
}

func TestDetectorCountsSuspicious(t *testing.T) {
	d := NewDetector()

	d.DetectSuspiciousRequest(httptest.NewRequest(http.MethodGet, "/.env", nil))
	d.DetectSuspiciousRequest(httptest.NewRequest(http.MethodGet, "/.git/config", nil))

	clean := httptest.NewRequest(http.MethodGet, "/expenses", nil)
	clean.Header.Set("User-Agent", "Mozilla/5.0")
	d.DetectSuspiciousRequest(clean)

	if got := d.Metrics().SuspiciousRequests; got != 2 {
		t.Errorf("SuspiciousRequests = %d, want 2", got)
	}
}

func TestExtractClientIP(t *testing.T) {
	tests := []struct {
		name       string
		remoteAddr string
		headers    map[string]string
		want       string
	}{
		{
			name:       "direct connection",
			remoteAddr: "203.0.113.7:54321",
			want:       "203.0.113.7",
		},
		{
			name:       "trusted proxy with X-Forwarded-For",
			remoteAddr: "10.0.0.5:443",
			headers:    map[string]string{"X-Forwarded-For": "203.0.113.7, 10.0.0.5"},
			want:       "203.0.113.7",
		},
		{
			name:       "trusted proxy with X-Real-IP",
			remoteAddr: "127.0.0.1:8080",
			headers:    map[string]string{"X-Real-IP": "198.51.100.4"},
			want:       "198.51.100.4",
		},
		{
			name:       "untrusted peer cannot spoof via X-Forwarded-For",
			remoteAddr: "203.0.113.7:54321",
			headers:    map[string]string{"X-Forwarded-For": "10.0.0.1"},
			want:       "203.0.113.7",
		},
		{
			name:       "garbage forwarded value falls back to peer",
			remoteAddr: "192.168.1.10:1234",
			headers:    map[string]string{"X-Forwarded-For": "not-an-ip"},
			want:       "192.168.1.10",
		},
	}

	d := NewDetector()
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := httptest.NewRequest(http.MethodGet, "/", nil)
			r.RemoteAddr = tt.remoteAddr
			for k, v := range tt.headers {
				r.Header.Set(k, v)
			}
			if got := d.ExtractClientIP(r); got != tt.want {
				t.Errorf("ExtractClientIP() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestAddTrustedProxy(t *testing.T) {
	d := NewDetector()

	if err := d.AddTrustedProxy("100.64.0.0/10"); err != nil {
		t.Fatalf("AddTrustedProxy() error = %v", err)
	}

	r := httptest.NewRequest(http.MethodGet, "/", nil)
	r.RemoteAddr = "100.64.0.1:443"
	r.Header.Set("X-Forwarded-For", "203.0.113.9")
	if got := d.ExtractClientIP(r); got != "203.0.113.9" {
		t.Errorf("ExtractClientIP() = %q, want forwarded IP", got)
	}

	if err := d.AddTrustedProxy("not a cidr"); err == nil {
		t.Error("AddTrustedProxy() accepted garbage")
	}
}

func TestHeadersMiddleware(t *testing.T) {
	h := NewHeadersMiddleware(DefaultHeadersConfig())
	handler := h.Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))

	headers := rec.Header()
	checks := map[string]string{
		"X-Content-Type-Options":       "nosniff",
		"X-Frame-Options":              "DENY",
		"Referrer-Policy":              "strict-origin-when-cross-origin",
		"Cross-Origin-Opener-Policy":   "same-origin",
		"Cross-Origin-Resource-Policy": "same-origin",
	}
	for name, want := range checks {
		if got := headers.Get(name); got != want {
			t.Errorf("%s = %q, want %q", name, got, want)
		}
	}
	if csp := headers.Get("Content-Security-Policy"); !strings.Contains(csp, "https://unpkg.com") {
		t.Errorf("CSP %q missing unpkg.com for htmx", csp)
	}
	if headers.Get("Strict-Transport-Security") != "" {
		t.Error("HSTS set on a plain HTTP request")
	}
}

func TestHSTSOverTLS(t *testing.T) {
	h := NewHeadersMiddleware(DefaultHeadersConfig())
	handler := h.Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))

	r := httptest.NewRequest(http.MethodGet, "https://example.com/", nil)
	r.TLS = &tls.ConnectionState{}
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, r)

	hsts := rec.Header().Get("Strict-Transport-Security")
	if !strings.Contains(hsts, "max-age=31536000") {
		t.Errorf("HSTS = %q, want max-age=31536000", hsts)
	}
	if !strings.Contains(hsts, "includeSubDomains") {
		t.Errorf("HSTS = %q, want includeSubDomains", hsts)
	}
}

func TestStaticAssetMiddleware(t *testing.T) {
	handler := StaticAssetMiddleware(3600)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/static/app.css", nil))

	if got := rec.Header().Get("Cache-Control"); got != "public, max-age=3600, immutable" {
		t.Errorf("Cache-Control = %q", got)
	}
}
