package config

import (
	"log/slog"
	"net/url"
	"time"

	"github.com/m-mizutani/goerr/v2"
	"github.com/upawatch/upawatch/pkg/service/backend"
	"github.com/upawatch/upawatch/pkg/service/push"
	"github.com/urfave/cli/v3"
)

// Backend holds the queue backend configuration
type Backend struct {
	URL            string
	WSURL          string
	Timeout        time.Duration
	Retry          int
	ReconnectDelay time.Duration
	TokenSecret    string
}

// Flags returns CLI flags for Backend configuration
func (b *Backend) Flags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:        "backend-url",
			Usage:       "Base URL of the queue backend REST API",
			Category:    "Backend",
			Sources:     cli.EnvVars("UPAWATCH_BACKEND_URL"),
			Destination: &b.URL,
		},
		&cli.StringFlag{
			Name:        "backend-ws-url",
			Usage:       "WebSocket URL of the queue backend push channel (live updates are REST-only if not set)",
			Category:    "Backend",
			Sources:     cli.EnvVars("UPAWATCH_BACKEND_WS_URL"),
			Destination: &b.WSURL,
		},
		&cli.DurationFlag{
			Name:        "backend-timeout",
			Usage:       "Timeout of a backend REST request",
			Category:    "Backend",
			Value:       backend.DefaultTimeout,
			Sources:     cli.EnvVars("UPAWATCH_BACKEND_TIMEOUT"),
			Destination: &b.Timeout,
		},
		&cli.IntFlag{
			Name:        "backend-retry",
			Usage:       "Retries of an idempotent backend request on 5xx or transport errors",
			Category:    "Backend",
			Value:       backend.DefaultRetryCount,
			Sources:     cli.EnvVars("UPAWATCH_BACKEND_RETRY"),
			Destination: &b.Retry,
		},
		&cli.DurationFlag{
			Name:        "reconnect-delay",
			Usage:       "Delay before reconnecting the push channel",
			Category:    "Backend",
			Value:       push.DefaultReconnectDelay,
			Sources:     cli.EnvVars("UPAWATCH_RECONNECT_DELAY"),
			Destination: &b.ReconnectDelay,
		},
		&cli.StringFlag{
			Name:        "backend-token-secret",
			Usage:       "HMAC secret to verify backend access tokens (claims are read unverified if not set)",
			Category:    "Backend",
			Sources:     cli.EnvVars("UPAWATCH_BACKEND_TOKEN_SECRET"),
			Destination: &b.TokenSecret,
		},
	}
}

// Validate checks the backend URLs
func (b *Backend) Validate() error {
	if b.URL == "" {
		return goerr.New("backend URL is required")
	}
	if err := checkURL(b.URL, "http", "https"); err != nil {
		return goerr.Wrap(err, "invalid backend URL", goerr.V("url", b.URL))
	}
	if b.WSURL != "" {
		if err := checkURL(b.WSURL, "ws", "wss"); err != nil {
			return goerr.Wrap(err, "invalid backend WebSocket URL", goerr.V("url", b.WSURL))
		}
	}
	if b.Retry < 0 {
		return goerr.New("backend retry count must not be negative", goerr.V("retry", b.Retry))
	}
	return nil
}

// Configure creates the backend REST client
func (b *Backend) Configure() (*backend.Client, error) {
	if err := b.Validate(); err != nil {
		return nil, err
	}
	return backend.New(b.URL,
		backend.WithTimeout(b.Timeout),
		backend.WithRetryCount(b.Retry),
	), nil
}

// ConfigurePush creates the push channel client, or nil when no WebSocket URL is set
func (b *Backend) ConfigurePush() *push.Client {
	if b.WSURL == "" {
		return nil
	}
	return push.New(b.WSURL, push.WithReconnectDelay(b.ReconnectDelay))
}

// LogValue returns structured log value
func (b Backend) LogValue() slog.Value {
	return slog.GroupValue(
		slog.String("url", b.URL),
		slog.String("ws_url", b.WSURL),
		slog.Duration("timeout", b.Timeout),
		slog.Int("retry", b.Retry),
		slog.Duration("reconnect_delay", b.ReconnectDelay),
		slog.Bool("verify_tokens", b.TokenSecret != ""),
	)
}

func checkURL(raw string, schemes ...string) error {
	u, err := url.Parse(raw)
	if err != nil {
		return err
	}
	if u.Host == "" {
		return goerr.New("URL has no host")
	}
	for _, s := range schemes {
		if u.Scheme == s {
			return nil
		}
	}
	return goerr.New("unsupported URL scheme", goerr.V("scheme", u.Scheme))
}
