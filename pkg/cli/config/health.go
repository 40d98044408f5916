package config

import (
	"log/slog"
	"time"

	"github.com/soc-lab/kestrel/pkg/service/health"
	"github.com/urfave/cli/v3"
)

// Health holds the collaborator poller configuration
type Health struct {
	Interval time.Duration
}

// Flags returns CLI flags for Health configuration
func (h *Health) Flags() []cli.Flag {
	return []cli.Flag{
		&cli.DurationFlag{
			Name:        "health-interval",
			Usage:       "Interval between collaborator health checks",
			Category:    "Health",
			Value:       health.DefaultInterval,
			Sources:     cli.EnvVars("KESTREL_HEALTH_INTERVAL"),
			Destination: &h.Interval,
		},
	}
}

// LogValue returns structured log value
func (h Health) LogValue() slog.Value {
	return slog.GroupValue(
		slog.Duration("interval", h.Interval),
	)
}
