package handlers

import (
	"net/http"
	"time"

	"go.uber.org/zap"

	"assessmentlinks/internal/security"
)

// Middleware holds dependencies for middleware functions
type Middleware struct {
	limiter    *security.RateLimiter
	trustProxy bool
	logger     *zap.Logger
}

// NewMiddleware creates a new middleware instance. A nil limiter disables rate limiting.
// trustProxy makes client IPs come from X-Forwarded-For / X-Real-IP.
func NewMiddleware(limiter *security.RateLimiter, trustProxy bool, logger *zap.Logger) *Middleware {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Middleware{limiter: limiter, trustProxy: trustProxy, logger: logger}
}

// RateLimit rejects clients that exceed the limiter's budget. Used on the
// public token routes to slow down token guessing.
func (m *Middleware) RateLimit(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if m.limiter != nil {
			ip := security.GetClientIP(r, m.trustProxy)
			if !m.limiter.Allow(ip) {
				m.logger.Warn("rate limit exceeded", zap.String("client_ip", ip), zap.String("path", r.URL.Path))
				w.Header().Set("Retry-After", "60")
				http.Error(w, MsgTooManyRequests, http.StatusTooManyRequests)
				return
			}
		}
		next(w, r)
	}
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

// Unwrap lets http.ResponseController reach the connection's writer
func (r *statusRecorder) Unwrap() http.ResponseWriter {
	return r.ResponseWriter
}

// Logging middleware logs HTTP requests
func (m *Middleware) Logging(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}

		next.ServeHTTP(rec, r)

		m.logger.Info("request",
			zap.Int("status", rec.status),
			zap.Duration("latency", time.Since(start)),
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.String("client_ip", security.GetClientIP(r, m.trustProxy)),
		)
	})
}
