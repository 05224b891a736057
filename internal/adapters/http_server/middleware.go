package httpserver

import (
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog"

	"gmb_sync/internal/adapters/observability"
)

// Timeout bounds a route group. Not applied to POST /v1/sync.
func Timeout(d time.Duration) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.TimeoutHandler(next, d, `{"title":"Service Unavailable","status":503,"detail":"timeout"}`)
	}
}

// recorder remembers the status written by the handler.
type recorder struct {
	http.ResponseWriter
	status int
}

func (w *recorder) WriteHeader(code int) {
	if w.status == 0 {
		w.status = code
	}
	w.ResponseWriter.WriteHeader(code)
}

func (w *recorder) Write(b []byte) (int, error) {
	if w.status == 0 {
		w.status = http.StatusOK
	}
	return w.ResponseWriter.Write(b)
}

func (w *recorder) code() int {
	if w.status == 0 {
		return http.StatusOK
	}
	return w.status
}

// routeOf prefers the chi pattern so path ids don't explode label cardinality.
func routeOf(r *http.Request) string {
	if rc := chi.RouteContext(r.Context()); rc != nil {
		if p := rc.RoutePattern(); p != "" {
			return p
		}
	}
	return r.URL.Path
}

func Metrics(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &recorder{ResponseWriter: w}
		next.ServeHTTP(rec, r)
		observability.ObserveHTTP(routeOf(r), r.Method, rec.code(), time.Since(start))
	})
}

// Logger writes one line per request. Probes log at debug, failures at
// warn/error.
func Logger(l zerolog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			rec := &recorder{ResponseWriter: w}
			next.ServeHTTP(rec, r)

			route, status := routeOf(r), rec.code()
			var ev *zerolog.Event
			switch {
			case status >= 500:
				ev = l.Error()
			case status >= 400:
				ev = l.Warn()
			case route == "/healthz" || route == "/metrics":
				ev = l.Debug()
			default:
				ev = l.Info()
			}
			ev.Str("route", route).
				Str("method", r.Method).
				Int("status", status).
				Dur("duration", time.Since(start)).
				Str("request_id", chimw.GetReqID(r.Context())).
				Str("remote", clientIP(r)).
				Msg("http_request")
		})
	}
}

// clientIP takes the first X-Forwarded-For hop, then X-Real-IP, then the peer.
func clientIP(r *http.Request) string {
	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		first, _, _ := strings.Cut(xff, ",")
		return strings.TrimSpace(first)
	}
	if ip := r.Header.Get("X-Real-IP"); ip != "" {
		return ip
	}
	if host, _, err := net.SplitHostPort(r.RemoteAddr); err == nil && host != "" {
		return host
	}
	return r.RemoteAddr
}
