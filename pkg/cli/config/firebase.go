package config

import (
	"log/slog"

	"github.com/urfave/cli/v3"
)

// Firebase holds identity provider configuration
type Firebase struct {
	ProjectID string
}

// Flags returns CLI flags for Firebase configuration
func (f *Firebase) Flags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:        "firebase-project",
			Usage:       "Firebase project ID used to verify ID tokens",
			Category:    "Auth",
			Sources:     cli.EnvVars("KESTREL_FIREBASE_PROJECT"),
			Destination: &f.ProjectID,
		},
	}
}

// IsConfigured checks if Firebase auth is properly configured
func (f *Firebase) IsConfigured() bool {
	return f.ProjectID != ""
}

// LogValue returns structured log value
func (f Firebase) LogValue() slog.Value {
	return slog.GroupValue(
		slog.String("project", f.ProjectID),
	)
}
