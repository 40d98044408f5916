package config

import (
	"log/slog"
	"time"

	"github.com/soc-lab/kestrel/pkg/domain/interfaces"
	"github.com/soc-lab/kestrel/pkg/service/remote"
	"github.com/urfave/cli/v3"
)

// Collaborators holds the base URLs of the proxied backend services
type Collaborators struct {
	SchedulerURL string
	IDSURL       string
	Timeout      time.Duration
}

// Flags returns CLI flags for Collaborators configuration
func (c *Collaborators) Flags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:        "scheduler-url",
			Usage:       "Base URL of the task scheduler API",
			Category:    "Collaborators",
			Sources:     cli.EnvVars("KESTREL_SCHEDULER_URL"),
			Destination: &c.SchedulerURL,
		},
		&cli.StringFlag{
			Name:        "ids-url",
			Usage:       "Base URL of the IDS control API",
			Category:    "Collaborators",
			Sources:     cli.EnvVars("KESTREL_IDS_URL"),
			Destination: &c.IDSURL,
		},
		&cli.DurationFlag{
			Name:        "collaborator-timeout",
			Usage:       "HTTP timeout for collaborator calls",
			Category:    "Collaborators",
			Value:       15 * time.Second,
			Sources:     cli.EnvVars("KESTREL_COLLABORATOR_TIMEOUT"),
			Destination: &c.Timeout,
		},
	}
}

// ConfigureScheduler creates the scheduler client, or nil when unconfigured
func (c *Collaborators) ConfigureScheduler() interfaces.SchedulerClient {
	if c.SchedulerURL == "" {
		return nil
	}
	return remote.NewScheduler(c.SchedulerURL, c.Timeout)
}

// ConfigureIDS creates the IDS client, or nil when unconfigured
func (c *Collaborators) ConfigureIDS() interfaces.IDSClient {
	if c.IDSURL == "" {
		return nil
	}
	return remote.NewIDS(c.IDSURL, c.Timeout)
}

// LogValue returns structured log value
func (c Collaborators) LogValue() slog.Value {
	return slog.GroupValue(
		slog.String("scheduler_url", c.SchedulerURL),
		slog.String("ids_url", c.IDSURL),
		slog.Duration("timeout", c.Timeout),
	)
}
