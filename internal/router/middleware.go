package router

import (
	"context"
	"net/http"
	"runtime/debug"

	"go.uber.org/zap"

	"github.com/ovaphlow/pitchfork/service-auth-go/internal/apierr"
	"github.com/ovaphlow/pitchfork/service-auth-go/internal/auth"
	"github.com/ovaphlow/pitchfork/service-auth-go/pkg/utilities"
)

type ctxKey string

const (
	claimsKey    ctxKey = "claims"
	requestIDKey ctxKey = "request_id"
)

// RequestIDHeader carries the request ID in both directions.
const RequestIDHeader = "X-Request-ID"

// RequestIDMiddleware propagates the caller's X-Request-ID or assigns one.
func RequestIDMiddleware(ids *utilities.IDGenerator) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			id := r.Header.Get(RequestIDHeader)
			if id == "" || len(id) > 128 {
				id = ids.Next()
			}
			w.Header().Set(RequestIDHeader, id)
			next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), requestIDKey, id)))
		})
	}
}

// RequestID returns the ID assigned by RequestIDMiddleware, or "".
func RequestID(ctx context.Context) string {
	id, _ := ctx.Value(requestIDKey).(string)
	return id
}

// RecoveryMiddleware turns a panic into a 500 JSON response.
func RecoveryMiddleware(logger *zap.SugaredLogger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				if rec := recover(); rec != nil {
					if rec == http.ErrAbortHandler {
						panic(rec)
					}
					logger.Errorw("panic while serving request",
						"request_id", RequestID(r.Context()),
						"panic", rec,
						"stack", string(debug.Stack()),
					)
					apierr.Internal().Write(w)
				}
			}()
			next.ServeHTTP(w, r)
		})
	}
}

// Authenticator guards routes with the token codec.
type Authenticator struct {
	codec  *auth.TokenCodec
	logger *zap.SugaredLogger
}

func NewAuthenticator(codec *auth.TokenCodec, logger *zap.SugaredLogger) *Authenticator {
	if logger == nil {
		logger = zap.NewNop().Sugar()
	}
	return &Authenticator{codec: codec, logger: logger}
}

// Authenticate validates the request's Authorization header.
func (a *Authenticator) Authenticate(r *http.Request) (*auth.Claims, error) {
	values := r.Header.Values("Authorization")
	if len(values) == 0 {
		return nil, &auth.Error{Kind: auth.KindNoAuthorizationHeader}
	}
	return a.codec.Validate(values[0])
}

// Require rejects requests that do not carry a valid token and exposes the
// claims to next through ClaimsFromRequest.
func (a *Authenticator) Require(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		claims, err := a.Authenticate(r)
		if err != nil {
			apiErr := apierr.From(err)
			a.logger.Debugw("authentication failed",
				"request_id", RequestID(r.Context()),
				"path", r.URL.Path,
				"reason", err.Error(),
			)
			apiErr.Write(w)
			return
		}
		next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), claimsKey, claims)))
	})
}

// ClaimsFromRequest returns the claims stored by Require.
func ClaimsFromRequest(r *http.Request) (*auth.Claims, bool) {
	c, ok := r.Context().Value(claimsKey).(*auth.Claims)
	return c, ok && c != nil
}
