package usecase

import (
	"context"
	"fmt"
	"time"

	"github.com/lestrrat-go/jwx/v2/jwa"
	"github.com/lestrrat-go/jwx/v2/jwt"
	"github.com/m-mizutani/ctxlog"
	"github.com/m-mizutani/goerr/v2"
	"github.com/upawatch/upawatch/pkg/domain/interfaces"
	"github.com/upawatch/upawatch/pkg/domain/model"
	"github.com/upawatch/upawatch/pkg/domain/types"
)

// DefaultSessionDuration caps the lifetime of an admin session
const DefaultSessionDuration = 8 * time.Hour

// Auth implements AuthUseCase. Credentials are checked by the backend; this side only keeps
// the session and the user claims decoded from the backend access token.
type Auth struct {
	repo        interfaces.Repository
	backend     interfaces.Backend
	tokenSecret []byte
	duration    time.Duration
	now         func() time.Time
}

// AuthOption configures Auth
type AuthOption func(*Auth)

// WithTokenSecret enables HS256 signature verification of backend access tokens
func WithTokenSecret(secret string) AuthOption {
	return func(a *Auth) {
		if secret != "" {
			a.tokenSecret = []byte(secret)
		}
	}
}

// WithSessionDuration sets the maximum session lifetime
func WithSessionDuration(d time.Duration) AuthOption {
	return func(a *Auth) {
		if d > 0 {
			a.duration = d
		}
	}
}

// WithAuthClock sets the clock used for token validation
func WithAuthClock(now func() time.Time) AuthOption {
	return func(a *Auth) {
		a.now = now
	}
}

// NewAuth creates a new Auth use case
func NewAuth(repo interfaces.Repository, backend interfaces.Backend, opts ...AuthOption) *Auth {
	a := &Auth{
		repo:     repo,
		backend:  backend,
		duration: DefaultSessionDuration,
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

var _ AuthUseCase = (*Auth)(nil)

// Login forwards credentials to the backend and opens a session that lives no longer than
// the access token it holds
func (a *Auth) Login(ctx context.Context, credentials model.Credentials) (*model.Session, *model.User, error) {
	logger := ctxlog.From(ctx)

	if credentials.Email == "" || credentials.Password == "" {
		return nil, nil, goerr.New("email and password are required", goerr.T(model.ErrTagUnauthorized))
	}

	result, err := a.backend.Login(ctx, credentials)
	if err != nil {
		tag := model.ErrTagTransportFailure
		if goerr.HasTag(err, model.ErrTagUnauthorized) {
			tag = model.ErrTagUnauthorized
		}
		return nil, nil, goerr.Wrap(err, "backend login failed", goerr.V("email", credentials.Email), goerr.T(tag))
	}
	if result == nil || result.AccessToken == "" {
		return nil, nil, goerr.New("backend returned no access token",
			goerr.V("email", credentials.Email),
			goerr.T(model.ErrTagUnauthorized))
	}

	token, err := a.parseToken(result.AccessToken)
	if err != nil {
		return nil, nil, err
	}

	user := userFromLogin(result, token, credentials.Email)
	if user.ID == "" {
		return nil, nil, goerr.New("access token has no subject", goerr.T(model.ErrTagUnauthorized))
	}
	if err := a.repo.SaveUser(ctx, user); err != nil {
		return nil, nil, goerr.Wrap(err, "failed to save user")
	}

	duration := a.duration
	if exp := token.Expiration(); !exp.IsZero() {
		duration = min(duration, exp.Sub(a.now()))
	}

	session, err := model.NewSession(user.ID, result.AccessToken, duration)
	if err != nil {
		return nil, nil, goerr.Wrap(err, "failed to create session")
	}
	if err := a.repo.SaveSession(ctx, session); err != nil {
		return nil, nil, goerr.Wrap(err, "failed to save session")
	}

	logger.Info("Created new session",
		"sessionID", session.ID,
		"userID", user.ID,
		"role", user.Role,
		"expiresAt", session.ExpiresAt,
	)

	return session, user, nil
}

func (a *Auth) parseToken(raw string) (jwt.Token, error) {
	opts := []jwt.ParseOption{
		jwt.WithValidate(true),
		jwt.WithClock(jwt.ClockFunc(a.now)),
	}
	if len(a.tokenSecret) > 0 {
		opts = append(opts, jwt.WithKey(jwa.HS256, a.tokenSecret))
	} else {
		// The token came straight from the backend over our own connection
		opts = append(opts, jwt.WithVerify(false))
	}

	token, err := jwt.ParseString(raw, opts...)
	if err != nil {
		return nil, goerr.Wrap(err, "invalid backend access token", goerr.T(model.ErrTagUnauthorized))
	}
	return token, nil
}

func userFromLogin(result *model.LoginResult, token jwt.Token, email string) *model.User {
	user := model.NewUser(types.UserID(token.Subject()), claimString(token, "name"), email, types.UserRoleViewer)
	if v := claimString(token, "email"); v != "" {
		user.Email = v
	}
	if role := claimString(token, "role"); role != "" {
		user.Role = types.UserRole(role)
	}

	if u := result.User; u != nil {
		if u.ID != "" {
			user.ID = u.ID
		}
		if u.Name != "" {
			user.Name = u.Name
		}
		if u.Email != "" {
			user.Email = u.Email
		}
		if u.Role != "" {
			user.Role = u.Role
		}
	}
	return user
}

func claimString(token jwt.Token, name string) string {
	v, ok := token.Get(name)
	if !ok || v == nil {
		return ""
	}
	if s, ok := v.(string); ok {
		return s
	}
	return fmt.Sprint(v)
}

// ValidateSession validates a session by ID and secret
func (a *Auth) ValidateSession(ctx context.Context, sessionID, sessionSecret string) (*model.Session, error) {
	if sessionID == "" || sessionSecret == "" {
		return nil, goerr.New("session ID and secret are required", goerr.T(model.ErrTagUnauthorized))
	}

	session, err := a.repo.GetSession(ctx, types.SessionID(sessionID))
	if err != nil {
		return nil, goerr.Wrap(err, "session not found", goerr.T(model.ErrTagUnauthorized))
	}

	if !session.MatchSecret(sessionSecret) {
		return nil, goerr.New("invalid session secret", goerr.T(model.ErrTagUnauthorized))
	}

	if session.IsExpired() {
		return nil, goerr.New("session expired",
			goerr.V("expires_at", session.ExpiresAt),
			goerr.T(model.ErrTagUnauthorized))
	}

	return session, nil
}

// IsAuthenticated reports whether the session ID and secret name a live session
func (a *Auth) IsAuthenticated(ctx context.Context, sessionID, sessionSecret string) bool {
	_, err := a.ValidateSession(ctx, sessionID, sessionSecret)
	return err == nil
}

// Logout deletes a session
func (a *Auth) Logout(ctx context.Context, sessionID string) error {
	if sessionID == "" {
		return goerr.New("session ID is required")
	}

	if err := a.repo.DeleteSession(ctx, types.SessionID(sessionID)); err != nil {
		return goerr.Wrap(err, "failed to delete session")
	}

	ctxlog.From(ctx).Info("Deleted session", "sessionID", sessionID)
	return nil
}

// CurrentUser gets the user owning a session
func (a *Auth) CurrentUser(ctx context.Context, sessionID string) (*model.User, error) {
	if sessionID == "" {
		return nil, goerr.New("session ID is required", goerr.T(model.ErrTagUnauthorized))
	}

	session, err := a.repo.GetSession(ctx, types.SessionID(sessionID))
	if err != nil {
		return nil, goerr.Wrap(err, "session not found", goerr.T(model.ErrTagUnauthorized))
	}

	if session.IsExpired() {
		return nil, goerr.New("session expired", goerr.T(model.ErrTagUnauthorized))
	}

	user, err := a.repo.GetUser(ctx, session.UserID)
	if err != nil {
		return nil, goerr.Wrap(err, "user not found")
	}

	return user, nil
}
