package config

import (
	"context"
	"log/slog"

	"github.com/m-mizutani/ctxlog"
	"github.com/m-mizutani/goerr/v2"
	"github.com/soc-lab/kestrel/pkg/service/sheets"
	"github.com/urfave/cli/v3"
)

// Sheets holds incident store configuration
type Sheets struct {
	APIKey        string
	SpreadsheetID string
	Tab           string
	CSVExportURL  string
}

// Flags returns CLI flags for Sheets configuration
func (s *Sheets) Flags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:        "sheets-api-key",
			Usage:       "Google API key for the Sheets API",
			Category:    "Sheets",
			Sources:     cli.EnvVars("KESTREL_SHEETS_API_KEY"),
			Destination: &s.APIKey,
		},
		&cli.StringFlag{
			Name:        "sheets-spreadsheet-id",
			Usage:       "Spreadsheet ID of the incident sheet",
			Category:    "Sheets",
			Sources:     cli.EnvVars("KESTREL_SHEETS_SPREADSHEET_ID"),
			Destination: &s.SpreadsheetID,
		},
		&cli.StringFlag{
			Name:        "sheets-tab",
			Usage:       "Tab name holding incident rows",
			Category:    "Sheets",
			Value:       "Incidents",
			Sources:     cli.EnvVars("KESTREL_SHEETS_TAB"),
			Destination: &s.Tab,
		},
		&cli.StringFlag{
			Name:        "sheets-csv-url",
			Usage:       "Public CSV export URL for bulk reads",
			Category:    "Sheets",
			Sources:     cli.EnvVars("KESTREL_SHEETS_CSV_URL"),
			Destination: &s.CSVExportURL,
		},
	}
}

// Configure creates the incident store, or returns nil when unconfigured
func (s *Sheets) Configure(ctx context.Context) (*sheets.Store, error) {
	if !s.IsConfigured() {
		ctxlog.From(ctx).Warn("Sheets not configured; incident storage is disabled")
		return nil, nil
	}

	store, err := sheets.New(ctx, s.APIKey, s.SpreadsheetID, s.Tab, s.CSVExportURL)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to init sheets store",
			goerr.V("spreadsheet_id", s.SpreadsheetID))
	}
	return store, nil
}

// IsConfigured checks if the incident store is properly configured
func (s *Sheets) IsConfigured() bool {
	return s.APIKey != "" && s.SpreadsheetID != ""
}

// LogValue returns structured log value
func (s Sheets) LogValue() slog.Value {
	return slog.GroupValue(
		slog.Bool("has_api_key", s.APIKey != ""),
		slog.String("spreadsheet_id", s.SpreadsheetID),
		slog.String("tab", s.Tab),
		slog.Bool("has_csv_url", s.CSVExportURL != ""),
	)
}
