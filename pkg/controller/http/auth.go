package http

import (
	"encoding/json"
	"net"
	"net/http"
	"time"

	"github.com/m-mizutani/ctxlog"
	"github.com/m-mizutani/goerr/v2"
	"github.com/upawatch/upawatch/pkg/domain/model"
	"github.com/upawatch/upawatch/pkg/usecase"
)

// AuthHandler handles authentication endpoints
type AuthHandler struct {
	authUC usecase.AuthUseCase
}

// NewAuthHandler creates a new auth handler
func NewAuthHandler(authUC usecase.AuthUseCase) *AuthHandler {
	return &AuthHandler{
		authUC: authUC,
	}
}

type loginResponse struct {
	User      *model.User `json:"user"`
	ExpiresAt time.Time   `json:"expires_at"`
}

// HandleLogin forwards credentials to the backend and sets the session cookies
func (h *AuthHandler) HandleLogin(w http.ResponseWriter, r *http.Request) {
	var credentials model.Credentials
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, 1<<16)).Decode(&credentials); err != nil {
		writeError(w, r, goerr.Wrap(err, "invalid login request", goerr.T(model.ErrTagInvalidQuery)))
		return
	}

	session, user, err := h.authUC.Login(r.Context(), credentials)
	if err != nil {
		writeError(w, r, err)
		return
	}

	secure := !isLocalhost(r)
	http.SetCookie(w, &http.Cookie{
		Name:     cookieSessionID,
		Value:    session.ID.String(),
		Path:     "/",
		HttpOnly: true,
		Secure:   secure,
		SameSite: http.SameSiteLaxMode,
		Expires:  session.ExpiresAt,
	})
	http.SetCookie(w, &http.Cookie{
		Name:     cookieSessionSecret,
		Value:    session.Secret.String(),
		Path:     "/",
		HttpOnly: true,
		Secure:   secure,
		SameSite: http.SameSiteLaxMode,
		Expires:  session.ExpiresAt,
	})

	ctxlog.From(r.Context()).Info("User logged in",
		"userID", user.ID,
		"role", user.Role,
	)
	writeJSON(w, r, http.StatusOK, loginResponse{User: user, ExpiresAt: session.ExpiresAt})
}

// HandleLogout deletes the session and clears its cookies
func (h *AuthHandler) HandleLogout(w http.ResponseWriter, r *http.Request) {
	if sessionIDCookie, err := r.Cookie(cookieSessionID); err == nil {
		if err := h.authUC.Logout(r.Context(), sessionIDCookie.Value); err != nil {
			ctxlog.From(r.Context()).Debug("Failed to delete session", "error", err)
		}
	}

	for _, name := range []string{cookieSessionID, cookieSessionSecret} {
		http.SetCookie(w, &http.Cookie{
			Name:     name,
			Value:    "",
			Path:     "/",
			HttpOnly: true,
			MaxAge:   -1,
		})
	}

	writeJSON(w, r, http.StatusOK, map[string]string{
		"message": "logged out successfully",
	})
}

// HandleUserMe returns the user of the current session. Requires RequireAuth.
func (h *AuthHandler) HandleUserMe(w http.ResponseWriter, r *http.Request) {
	authCtx, ok := model.GetAuthContext(r.Context())
	if !ok {
		writeError(w, r, goerr.New("no auth context", goerr.T(model.ErrTagUnauthorized)))
		return
	}

	user, err := h.authUC.CurrentUser(r.Context(), authCtx.SessionID.String())
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusOK, map[string]any{
		"user":       user,
		"expires_at": authCtx.ExpiresAt,
	})
}

// isLocalhost reports whether the request targets a local development host
func isLocalhost(r *http.Request) bool {
	host := r.Host
	if h, _, err := net.SplitHostPort(host); err == nil {
		host = h
	}
	return host == "localhost" || host == "127.0.0.1" || host == "::1"
}
