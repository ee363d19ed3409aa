package router

import (
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/ovaphlow/pitchfork/service-auth-go/internal/user"
	"github.com/ovaphlow/pitchfork/service-auth-go/pkg/utilities"
)

// loggingResponseWriter wraps http.ResponseWriter to capture status and size.
type loggingResponseWriter struct {
	http.ResponseWriter
	status int
	size   int
}

func (lrw *loggingResponseWriter) WriteHeader(code int) {
	lrw.status = code
	lrw.ResponseWriter.WriteHeader(code)
}

func (lrw *loggingResponseWriter) Write(b []byte) (int, error) {
	if lrw.status == 0 {
		lrw.status = http.StatusOK
	}
	n, err := lrw.ResponseWriter.Write(b)
	lrw.size += n
	return n, err
}

// LoggingMiddleware logs requests at debug level using the provided sugared logger.
func LoggingMiddleware(logger *zap.SugaredLogger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			lrw := &loggingResponseWriter{ResponseWriter: w}
			next.ServeHTTP(lrw, r)
			status := lrw.status
			if status == 0 {
				status = http.StatusOK
			}
			logger.Debugw("http request",
				"request_id", RequestID(r.Context()),
				"method", r.Method,
				"path", r.URL.Path,
				"remote", r.RemoteAddr,
				"status", status,
				"duration_ms", float64(time.Since(start).Microseconds())/1000.0,
				"size", lrw.size,
			)
		})
	}
}

// SecurityHeadersMiddleware sets common HTTP security headers.
func SecurityHeadersMiddleware() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("X-Content-Type-Options", "nosniff")
			w.Header().Set("X-Frame-Options", "DENY")
			w.Header().Set("Referrer-Policy", "no-referrer")
			w.Header().Set("Cache-Control", "no-store")
			if r.TLS != nil {
				w.Header().Set("Strict-Transport-Security", "max-age=2592000; includeSubDomains")
			}
			next.ServeHTTP(w, r)
		})
	}
}

// Deps are the collaborators the routes are built from.
type Deps struct {
	Logger *zap.SugaredLogger
	Users  *user.UserService
	Auth   *Authenticator
	IDs    *utilities.IDGenerator
}

// RegisterRoutes mounts HTTP handlers using the standard library's http.ServeMux.
func RegisterRoutes(d Deps) http.Handler {
	logger := d.Logger
	if logger == nil {
		logger = zap.NewNop().Sugar()
	}
	mux := http.NewServeMux()

	mux.HandleFunc("GET /api/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})

	users := user.NewHandler(d.Users, ClaimsFromRequest, logger)
	mux.HandleFunc("POST /api/auth/signup", users.Signup)
	mux.HandleFunc("POST /api/auth/login", users.Login)
	mux.Handle("GET /api/auth/me", d.Auth.Require(http.HandlerFunc(users.Me)))

	// outermost first: request id, logging, recovery, security headers
	var h http.Handler = mux
	h = SecurityHeadersMiddleware()(h)
	h = RecoveryMiddleware(logger)(h)
	h = LoggingMiddleware(logger)(h)
	h = RequestIDMiddleware(d.IDs)(h)
	return h
}
