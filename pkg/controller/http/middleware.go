package http

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/m-mizutani/ctxlog"
	"github.com/soc-lab/kestrel/pkg/domain/interfaces"
	"github.com/soc-lab/kestrel/pkg/domain/model"
	"github.com/soc-lab/kestrel/pkg/utils/metrics"
)

// Middleware provides common HTTP middleware
type Middleware struct {
	auth interfaces.Auth
}

// NewMiddleware creates a new middleware instance
func NewMiddleware(auth interfaces.Auth) *Middleware {
	return &Middleware{auth: auth}
}

// RequireAuth checks session authentication. Requests without a valid
// session are rejected; there is no anonymous fallback.
func (m *Middleware) RequireAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if m.auth == nil {
			http.Error(w, "Unauthorized: authentication not configured", http.StatusUnauthorized)
			return
		}

		sessionIDCookie, err := r.Cookie("session_id")
		if err != nil {
			http.Error(w, "Unauthorized: missing session_id", http.StatusUnauthorized)
			return
		}
		sessionSecretCookie, err := r.Cookie("session_secret")
		if err != nil {
			http.Error(w, "Unauthorized: missing session_secret", http.StatusUnauthorized)
			return
		}

		session, err := m.auth.ValidateSession(r.Context(), sessionIDCookie.Value, sessionSecretCookie.Value)
		if err != nil {
			ctxlog.From(r.Context()).Debug("Session validation failed",
				"error", err,
				"session_id", sessionIDCookie.Value,
			)
			http.Error(w, "Unauthorized: invalid session", http.StatusUnauthorized)
			return
		}

		authCtx := model.GetOrCreateAuthContext(r.Context())
		authCtx.UserID = session.UserID
		authCtx.Email = session.Email
		authCtx.Role = session.Role
		authCtx.SessionID = session.ID

		next.ServeHTTP(w, r.WithContext(model.WithAuthContext(r.Context(), authCtx)))
	})
}

// AuthContextMiddleware seeds an empty AuthContext so downstream code can
// always attach claims to the request context
func AuthContextMiddleware() func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if _, ok := model.GetAuthContext(r.Context()); !ok {
				r = r.WithContext(model.WithAuthContext(r.Context(), model.NewAuthContext()))
			}
			next.ServeHTTP(w, r)
		})
	}
}

// LoggingMiddleware creates a chi-compatible logging middleware
func LoggingMiddleware(ctx context.Context) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			// Embed logger from the initial context into request context
			r = r.WithContext(ctxlog.With(r.Context(), ctxlog.From(ctx)))

			logger := ctxlog.From(r.Context())
			start := time.Now()

			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
			next.ServeHTTP(ww, r)

			logger.Info("HTTP request",
				"method", r.Method,
				"path", r.URL.Path,
				"status", ww.Status(),
				"bytes", ww.BytesWritten(),
				"duration", time.Since(start),
				"remote", r.RemoteAddr,
			)
		})
	}
}

// MetricsMiddleware records request counts and latency by route pattern
func MetricsMiddleware(m *metrics.Metrics) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		if m == nil {
			return next
		}
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
			next.ServeHTTP(ww, r)

			route := chi.RouteContext(r.Context()).RoutePattern()
			if route == "" {
				route = "unmatched"
			}
			m.HTTPRequests.WithLabelValues(r.Method, route, strconv.Itoa(ww.Status())).Inc()
			m.HTTPDuration.WithLabelValues(route).Observe(time.Since(start).Seconds())
		})
	}
}
