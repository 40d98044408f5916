package config

import (
	"context"
	"log/slog"

	"github.com/m-mizutani/ctxlog"
	"github.com/m-mizutani/goerr/v2"
	"github.com/soc-lab/kestrel/pkg/domain/interfaces"
	"github.com/soc-lab/kestrel/pkg/repository"
	"github.com/urfave/cli/v3"
)

// Database holds persistence configuration. Firestore wins when a project is
// set, then a local SQLite file, then the in-memory repository.
type Database struct {
	FirestoreProject  string
	FirestoreDatabase string
	SQLitePath        string
}

// Flags returns CLI flags for Database configuration
func (d *Database) Flags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:        "firestore-project",
			Usage:       "GCP project ID for Firestore",
			Category:    "Database",
			Sources:     cli.EnvVars("KESTREL_FIRESTORE_PROJECT"),
			Destination: &d.FirestoreProject,
		},
		&cli.StringFlag{
			Name:        "firestore-database",
			Usage:       "Firestore database ID",
			Category:    "Database",
			Value:       "(default)",
			Sources:     cli.EnvVars("KESTREL_FIRESTORE_DATABASE"),
			Destination: &d.FirestoreDatabase,
		},
		&cli.StringFlag{
			Name:        "sqlite-path",
			Usage:       "Path to the SQLite database file",
			Category:    "Database",
			Sources:     cli.EnvVars("KESTREL_SQLITE_PATH"),
			Destination: &d.SQLitePath,
		},
	}
}

// Configure creates the repository selected by the configuration
func (d *Database) Configure(ctx context.Context) (interfaces.Repository, error) {
	logger := ctxlog.From(ctx)

	if d.FirestoreProject != "" {
		repo, err := repository.NewFirestore(ctx, d.FirestoreProject, d.FirestoreDatabase)
		if err != nil {
			return nil, goerr.Wrap(err, "failed to init firestore",
				goerr.V("project", d.FirestoreProject),
				goerr.V("database", d.FirestoreDatabase),
			)
		}
		return repo, nil
	}

	if d.SQLitePath != "" {
		repo, err := repository.NewSQLite(ctx, d.SQLitePath)
		if err != nil {
			return nil, goerr.Wrap(err, "failed to init sqlite",
				goerr.V("path", d.SQLitePath))
		}
		return repo, nil
	}

	logger.Warn("Using memory database. The data will be removed when shutting down")
	return repository.NewMemory(), nil
}

// LogValue returns structured log value
func (d Database) LogValue() slog.Value {
	return slog.GroupValue(
		slog.String("firestore_project", d.FirestoreProject),
		slog.String("firestore_database", d.FirestoreDatabase),
		slog.String("sqlite_path", d.SQLitePath),
	)
}
