package api

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"time"

	"camp-portal/internal/common/auth"
	apperrors "camp-portal/internal/common/errors"
	"camp-portal/internal/common/logger"
	"camp-portal/internal/common/metrics"
	"camp-portal/internal/models"
	"camp-portal/internal/store"

	"github.com/gorilla/mux"
)

type ctxKey int

const userKey ctxKey = iota

// UserLookup resolves an identity-provider subject to a portal user.
type UserLookup interface {
	GetUserBySubject(ctx context.Context, subject string) (*models.User, error)
}

// UserFromContext returns the authenticated caller.
func UserFromContext(ctx context.Context) (*models.User, bool) {
	u, ok := ctx.Value(userKey).(*models.User)
	return u, ok && u != nil
}

func withUser(ctx context.Context, u *models.User) context.Context {
	return context.WithValue(ctx, userKey, u)
}

// responseWriter captures the status code for logs and metrics.
type responseWriter struct {
	http.ResponseWriter
	statusCode int
	written    bool
}

func (rw *responseWriter) WriteHeader(code int) {
	if !rw.written {
		rw.statusCode = code
		rw.written = true
		rw.ResponseWriter.WriteHeader(code)
	}
}

func (rw *responseWriter) Write(b []byte) (int, error) {
	if !rw.written {
		rw.WriteHeader(http.StatusOK)
	}
	return rw.ResponseWriter.Write(b)
}

func routeTemplate(r *http.Request) string {
	if route := mux.CurrentRoute(r); route != nil {
		if tpl, err := route.GetPathTemplate(); err == nil {
			return tpl
		}
	}
	return "unmatched"
}

// observe logs each request and records its metrics by route template.
func observe(log logger.Logger) mux.MiddlewareFunc {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			wrapped := &responseWriter{ResponseWriter: w, statusCode: http.StatusOK}

			next.ServeHTTP(wrapped, r)

			route := routeTemplate(r)
			duration := time.Since(start)
			metrics.HTTPRequestsTotal.WithLabelValues(r.Method, route, strconv.Itoa(wrapped.statusCode)).Inc()
			metrics.HTTPRequestDuration.WithLabelValues(r.Method, route).Observe(duration.Seconds())

			log.Info("http request", map[string]interface{}{
				"method":      r.Method,
				"route":       route,
				"status":      wrapped.statusCode,
				"duration_ms": duration.Milliseconds(),
			})
		})
	}
}

// authenticate verifies the bearer token and loads the portal user.
func (s *Server) authenticate(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token, ok := auth.BearerToken(r.Header.Get("Authorization"))
		if !ok {
			WriteError(w, s.logger, r, apperrors.NewUnauthorizedError("missing bearer token"))
			return
		}

		info, err := s.verifier.ValidateToken(r.Context(), token)
		if err != nil {
			WriteError(w, s.logger, r, err)
			return
		}

		user, err := s.users.GetUserBySubject(r.Context(), info.Sub)
		if err != nil {
			if errors.Is(err, store.ErrNotFound) {
				WriteError(w, s.logger, r, apperrors.NewUnauthorizedError("no portal account for this identity"))
				return
			}
			WriteError(w, s.logger, r, apperrors.NewQueryExecutionFailedError("get user by subject", err))
			return
		}

		next.ServeHTTP(w, r.WithContext(withUser(r.Context(), user)))
	})
}

func (s *Server) requireAdmin(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		user, ok := UserFromContext(r.Context())
		if !ok || !user.IsAdmin() {
			WriteError(w, s.logger, r, apperrors.NewForbiddenError("admin role required"))
			return
		}
		next.ServeHTTP(w, r)
	})
}
