package config

import (
	"log/slog"

	"github.com/soc-lab/kestrel/pkg/service/n8n"
	"github.com/urfave/cli/v3"
)

// N8n holds workflow automation proxy configuration
type N8n struct {
	BaseURL string
}

// Flags returns CLI flags for N8n configuration
func (n *N8n) Flags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:        "n8n-base-url",
			Usage:       "Base URL of the n8n workflow proxy",
			Category:    "Workflow",
			Value:       n8n.DefaultBaseURL,
			Sources:     cli.EnvVars("KESTREL_N8N_BASE_URL"),
			Destination: &n.BaseURL,
		},
	}
}

// Configure creates the workflow client
func (n *N8n) Configure() *n8n.Client {
	return n8n.New(n.BaseURL)
}

// LogValue returns structured log value
func (n N8n) LogValue() slog.Value {
	return slog.GroupValue(
		slog.String("base_url", n.BaseURL),
	)
}
