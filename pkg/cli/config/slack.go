package config

import (
	"context"
	"log/slog"

	"github.com/m-mizutani/ctxlog"
	"github.com/soc-lab/kestrel/pkg/domain/interfaces"
	"github.com/soc-lab/kestrel/pkg/service/notify"
	"github.com/urfave/cli/v3"
)

// Slack holds notification configuration
type Slack struct {
	OAuthToken string
	ChannelID  string
}

// Flags returns CLI flags for Slack configuration
func (s *Slack) Flags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:        "slack-oauth-token",
			Usage:       "Slack OAuth token for notifications",
			Category:    "Slack",
			Sources:     cli.EnvVars("KESTREL_SLACK_OAUTH_TOKEN"),
			Destination: &s.OAuthToken,
		},
		&cli.StringFlag{
			Name:        "slack-channel-id",
			Usage:       "Slack channel for incident notifications",
			Category:    "Slack",
			Sources:     cli.EnvVars("KESTREL_SLACK_CHANNEL_ID"),
			Destination: &s.ChannelID,
		},
	}
}

// ConfigureOptional creates the notifier, or nil when unconfigured
func (s *Slack) ConfigureOptional(ctx context.Context) interfaces.Notifier {
	if !s.IsConfigured() {
		ctxlog.From(ctx).Info("Slack notifications disabled")
		return nil
	}
	return notify.NewSlack(s.OAuthToken, s.ChannelID)
}

// IsConfigured checks if Slack notifications are properly configured
func (s *Slack) IsConfigured() bool {
	return s.OAuthToken != "" && s.ChannelID != ""
}

// LogValue returns structured log value
func (s Slack) LogValue() slog.Value {
	return slog.GroupValue(
		slog.Bool("has_oauth_token", s.OAuthToken != ""),
		slog.String("channel_id", s.ChannelID),
	)
}
