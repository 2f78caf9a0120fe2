package middleware

import (
	"fmt"
	"net"
	"net/http"
	"slices"
	"strings"
	"time"

	"album-engine/internal/logging"
)

// statusRecorder remembers the status and body size a handler produced.
type statusRecorder struct {
	http.ResponseWriter
	status  int
	size    int64
	written bool
}

func record(w http.ResponseWriter) *statusRecorder {
	return &statusRecorder{ResponseWriter: w, status: http.StatusOK}
}

func (s *statusRecorder) WriteHeader(code int) {
	if s.written {
		return
	}
	s.status, s.written = code, true
	s.ResponseWriter.WriteHeader(code)
}

func (s *statusRecorder) Write(b []byte) (int, error) {
	s.written = true
	n, err := s.ResponseWriter.Write(b)
	s.size += int64(n)
	return n, err
}

// LoggingConfig selects which requests reach the access log.
type LoggingConfig struct {
	// SkipPaths are path prefixes that are never logged.
	SkipPaths       []string
	LogHealthChecks bool
}

// DefaultLoggingConfig skips metric scrapes and keeps health checks.
func DefaultLoggingConfig() LoggingConfig {
	return LoggingConfig{SkipPaths: []string{"/metrics"}, LogHealthChecks: true}
}

var probePaths = []string{"/health", "/healthz", "/livez", "/readyz"}

func (c LoggingConfig) skip(path string) bool {
	if slices.ContainsFunc(c.SkipPaths, func(p string) bool { return strings.HasPrefix(path, p) }) {
		return true
	}
	return !c.LogHealthChecks && slices.Contains(probePaths, path)
}

// Logger writes one W3C Extended Log Format line per request:
//
//	date time c-ip cs-method cs-uri-stem cs-uri-query sc-status sc-bytes time-taken cs(User-Agent)
func Logger(config LoggingConfig) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if config.skip(r.URL.Path) {
				next.ServeHTTP(w, r)
				return
			}
			start := time.Now()
			rec := record(w)
			next.ServeHTTP(rec, r)
			logging.Printf("%s", w3cLine(time.Now().UTC(), r, rec, time.Since(start)))
		})
	}
}

func w3cLine(at time.Time, r *http.Request, rec *statusRecorder, took time.Duration) string {
	return fmt.Sprintf("%s %s %s %s %s %s %d %d %d %s",
		at.Format(time.DateOnly),
		at.Format(time.TimeOnly),
		cleanField(clientIP(r)),
		cleanField(r.Method),
		cleanField(r.URL.Path),
		orDash(cleanField(r.URL.RawQuery)),
		rec.status,
		rec.size,
		took.Milliseconds(),
		orDash(quoteField(cleanField(r.UserAgent()))),
	)
}

// cleanField drops control characters so a client cannot forge log lines or
// send terminal escapes. CR and LF become spaces; tabs are kept.
func cleanField(s string) string {
	return strings.Map(func(r rune) rune {
		switch {
		case r == '\n' || r == '\r':
			return ' '
		case r == '\t':
			return r
		case r < 0x20 || r == 0x7f:
			return -1
		}
		return r
	}, s)
}

// quoteField wraps s in quotes when it holds whitespace or quotes, doubling
// embedded quotes.
func quoteField(s string) string {
	if !strings.ContainsAny(s, " \t\"") {
		return s
	}
	return `"` + strings.ReplaceAll(s, `"`, `""`) + `"`
}

func orDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}

// clientIP prefers the first X-Forwarded-For hop, then X-Real-IP, then the
// connection's address.
func clientIP(r *http.Request) string {
	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		first, _, _ := strings.Cut(xff, ",")
		return strings.TrimSpace(first)
	}
	if ip := r.Header.Get("X-Real-IP"); ip != "" {
		return ip
	}
	if host, _, err := net.SplitHostPort(r.RemoteAddr); err == nil {
		return host
	}
	return r.RemoteAddr
}
