package http

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5/middleware"
	"github.com/m-mizutani/ctxlog"
	"github.com/m-mizutani/goerr/v2"
	"github.com/upawatch/upawatch/pkg/domain/model"
	"github.com/upawatch/upawatch/pkg/service/backend"
	"github.com/upawatch/upawatch/pkg/usecase"
)

const (
	cookieSessionID     = "session_id"
	cookieSessionSecret = "session_secret"
)

// Middleware provides the session middleware of the admin area
type Middleware struct {
	authUC usecase.AuthUseCase
}

// NewMiddleware creates a new middleware instance
func NewMiddleware(authUC usecase.AuthUseCase) *Middleware {
	return &Middleware{
		authUC: authUC,
	}
}

// RequireAuth checks the session cookies and puts the caller's identity and
// backend access token into the request context
func (m *Middleware) RequireAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		sessionIDCookie, err := r.Cookie(cookieSessionID)
		if err != nil {
			writeError(w, r, goerr.New("missing session_id", goerr.T(model.ErrTagUnauthorized)))
			return
		}
		sessionSecretCookie, err := r.Cookie(cookieSessionSecret)
		if err != nil {
			writeError(w, r, goerr.New("missing session_secret", goerr.T(model.ErrTagUnauthorized)))
			return
		}

		session, err := m.authUC.ValidateSession(r.Context(), sessionIDCookie.Value, sessionSecretCookie.Value)
		if err != nil {
			ctxlog.From(r.Context()).Debug("Session validation failed",
				"error", err,
				"sessionID", sessionIDCookie.Value,
			)
			writeError(w, r, goerr.Wrap(err, "invalid session", goerr.T(model.ErrTagUnauthorized)))
			return
		}

		// Role is informational, a missing user does not block the request
		user, _ := m.authUC.CurrentUser(r.Context(), session.ID.String())
		ctx := model.WithAuthContext(r.Context(), model.NewAuthContextFromSession(session, user))
		ctx = backend.WithAccessToken(ctx, session.AccessToken)

		ctxlog.From(ctx).Debug("Authenticated request",
			"userID", session.UserID,
			"sessionID", session.ID,
		)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// LoggingMiddleware creates a chi-compatible logging middleware
func LoggingMiddleware(ctx context.Context) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			// Embed logger from the initial context into request context
			logger := ctxlog.From(ctx).With("request_id", middleware.GetReqID(r.Context()))
			r = r.WithContext(ctxlog.With(r.Context(), logger))

			start := time.Now()
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)

			next.ServeHTTP(ww, r)

			logger.Info("HTTP request",
				"method", r.Method,
				"path", r.URL.Path,
				"query", r.URL.Query(),
				"status", ww.Status(),
				"bytes", ww.BytesWritten(),
				"duration", time.Since(start),
				"remote", r.RemoteAddr,
			)
		})
	}
}
