package slack

import (
	"context"

	"github.com/m-mizutani/ctxlog"
	"github.com/m-mizutani/goerr/v2"
	"github.com/slack-go/slack"
	"github.com/upawatch/upawatch/pkg/domain/interfaces"
	"github.com/upawatch/upawatch/pkg/domain/model"
	"github.com/upawatch/upawatch/pkg/domain/types"
)

// Service posts occupancy alerts to a Slack channel
type Service struct {
	client  *slack.Client
	channel string
}

var _ interfaces.Notifier = (*Service)(nil)

// Option configures Service
type Option func(*serviceOptions)

type serviceOptions struct {
	slackOpts []slack.Option
}

// WithAPIURL overrides the Slack API endpoint
func WithAPIURL(url string) Option {
	return func(o *serviceOptions) {
		o.slackOpts = append(o.slackOpts, slack.OptionAPIURL(url))
	}
}

// New creates a new Slack service posting to channel
func New(token, channel string, opts ...Option) *Service {
	var o serviceOptions
	for _, opt := range opts {
		opt(&o)
	}
	return &Service{
		client:  slack.New(token, o.slackOpts...),
		channel: channel,
	}
}

// PostMessage sends a message to the alert channel
func (s *Service) PostMessage(ctx context.Context, options ...slack.MsgOption) (string, error) {
	_, timestamp, err := s.client.PostMessageContext(ctx, s.channel, options...)
	if err != nil {
		return "", goerr.Wrap(err, "failed to post message to Slack",
			goerr.V("channel", s.channel),
			goerr.T(model.ErrTagTransportFailure))
	}
	return timestamp, nil
}

// NotifyTierChange posts a tier transition of a facility
func (s *Service) NotifyTierChange(ctx context.Context, facility *model.FacilityMetadata, previous, current model.FacilityMarkerState) error {
	if facility == nil {
		return goerr.New("facility is required", goerr.V("facility_id", current.FacilityID))
	}

	blocks := BuildTierChangeBlocks(facility, previous, current)
	ts, err := s.PostMessage(ctx,
		slack.MsgOptionText(TierChangeText(facility, previous, current), false),
		slack.MsgOptionBlocks(blocks...),
	)
	if err != nil {
		return goerr.Wrap(err, "failed to notify tier change",
			goerr.V("facility_id", facility.ID),
			goerr.V("tier", current.Tier),
			goerr.T(model.ErrTagTransportFailure))
	}

	ctxlog.From(ctx).Info("Posted tier change alert",
		"facility_id", facility.ID,
		"previous", previous.Tier,
		"current", current.Tier,
		"ts", ts,
	)
	return nil
}

// NoopNotifier drops alerts when Slack is not configured
type NoopNotifier struct{}

var _ interfaces.Notifier = NoopNotifier{}

// NotifyTierChange implements interfaces.Notifier
func (NoopNotifier) NotifyTierChange(ctx context.Context, facility *model.FacilityMetadata, previous, current model.FacilityMarkerState) error {
	ctxlog.From(ctx).Debug("Tier change alert dropped, Slack not configured",
		"facility_id", current.FacilityID,
		"tier", current.Tier,
	)
	return nil
}

// TierEmoji returns the emoji shown for a severity tier
func TierEmoji(tier types.SeverityTier) string {
	switch tier {
	case types.TierHigh:
		return "🚨"
	case types.TierMedium:
		return "⚠️"
	default:
		return "✅"
	}
}
