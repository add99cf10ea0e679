package handlers

import (
	"context"
	"net"
	"net/http"
	"time"

	"go.uber.org/zap"
)

type ctxKey struct{}

// requestInfo is filled in by handlers further down the chain so the
// access log can report how a request was routed.
type requestInfo struct {
	decision *Decision
}

func setDecision(r *http.Request, d Decision) {
	if info, ok := r.Context().Value(ctxKey{}).(*requestInfo); ok {
		info.decision = &d
	}
}

// statusRecorder captures the status code and body size written by h.
type statusRecorder struct {
	http.ResponseWriter
	status int
	bytes  int64
}

func (sr *statusRecorder) WriteHeader(code int) {
	if sr.status == 0 {
		sr.status = code
	}
	sr.ResponseWriter.WriteHeader(code)
}

func (sr *statusRecorder) Write(p []byte) (int, error) {
	if sr.status == 0 {
		sr.status = http.StatusOK
	}
	n, err := sr.ResponseWriter.Write(p)
	sr.bytes += int64(n)
	return n, err
}

// Unwrap lets http.ResponseController reach the underlying ResponseWriter.
func (sr *statusRecorder) Unwrap() http.ResponseWriter {
	return sr.ResponseWriter
}

// RequestLogger logs one line per request with its routing decision.
func RequestLogger(log *zap.Logger, h http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		info := &requestInfo{}
		r = r.WithContext(context.WithValue(r.Context(), ctxKey{}, info))
		rec := &statusRecorder{ResponseWriter: w}

		h.ServeHTTP(rec, r)

		status := rec.status
		if status == 0 {
			status = http.StatusOK
		}
		fields := []zap.Field{
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Int("status", status),
			zap.Int64("bytes", rec.bytes),
			zap.Duration("duration", time.Since(start)),
			zap.String("ip", clientIP(r)),
		}
		if d := info.decision; d != nil {
			fields = append(fields, zap.Stringer("decision", d.Kind))
			if d.Kind == Rewrite {
				fields = append(fields, zap.String("scheme", d.Scheme), zap.String("target", d.Target.Path()))
			}
		}
		log.Info("http request", fields...)
	})
}

// SecurityHeaders sets conservative response headers on every response.
// Project pages are arbitrary generated sites, so no CSP is imposed on
// them; the dashboard itself only loads same-origin assets.
func SecurityHeaders(h http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hdr := w.Header()
		hdr.Set("X-Content-Type-Options", "nosniff")
		hdr.Set("Referrer-Policy", "no-referrer")
		if r.URL.Path == "/" {
			hdr.Set("Content-Security-Policy", "default-src 'self'; img-src 'self' data:; style-src 'self'")
			hdr.Set("X-Frame-Options", "DENY")
		}
		h.ServeHTTP(w, r)
	})
}

// clientIP extracts the remote IP from the request, stripping the port.
func clientIP(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
