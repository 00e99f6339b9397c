package config

import (
	"context"
	"log/slog"

	"github.com/m-mizutani/ctxlog"
	"github.com/m-mizutani/goerr/v2"
	"github.com/upawatch/upawatch/pkg/domain/interfaces"
	slackSvc "github.com/upawatch/upawatch/pkg/service/slack"
	"github.com/urfave/cli/v3"
)

// Slack holds Slack alert configuration
type Slack struct {
	OAuthToken string
	Channel    string
}

// Flags returns CLI flags for Slack configuration
func (s *Slack) Flags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:        "slack-oauth-token",
			Usage:       "Slack bot token used to post occupancy alerts",
			Category:    "Slack",
			Sources:     cli.EnvVars("UPAWATCH_SLACK_OAUTH_TOKEN"),
			Destination: &s.OAuthToken,
		},
		&cli.StringFlag{
			Name:        "slack-channel",
			Usage:       "Slack channel ID for occupancy alerts",
			Category:    "Slack",
			Sources:     cli.EnvVars("UPAWATCH_SLACK_CHANNEL"),
			Destination: &s.Channel,
		},
	}
}

// IsConfigured checks if Slack alerts are enabled
func (s *Slack) IsConfigured() bool {
	return s.OAuthToken != ""
}

// Configure returns the alert notifier. Alerts are dropped when Slack is not configured.
func (s *Slack) Configure(ctx context.Context) (interfaces.Notifier, error) {
	if !s.IsConfigured() {
		ctxlog.From(ctx).Warn("Slack not configured, occupancy alerts are disabled")
		return slackSvc.NoopNotifier{}, nil
	}
	if s.Channel == "" {
		return nil, goerr.New("slack channel is required when a Slack token is set")
	}

	ctxlog.From(ctx).Info("Configuring Slack alerts", "channel", s.Channel)
	return slackSvc.New(s.OAuthToken, s.Channel), nil
}

// LogValue returns structured log value
func (s Slack) LogValue() slog.Value {
	return slog.GroupValue(
		slog.Bool("configured", s.IsConfigured()),
		slog.String("channel", s.Channel),
	)
}
