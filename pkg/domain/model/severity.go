package model

import (
	"github.com/m-mizutani/goerr/v2"
)

// Severity represents a severity level in the catalogue
type Severity struct {
	ID          string `yaml:"id"`          // Unique identifier (e.g. "high")
	Name        string `yaml:"name"`        // Display name (e.g. "High")
	Description string `yaml:"description"` // Description for analysts (optional)
	Level       int    `yaml:"level"`       // Importance level (0-99, -1 for unknown)
}

// Validate validates the severity
func (s *Severity) Validate() error {
	if s.ID == "" {
		return goerr.New("severity ID is required")
	}
	if s.Name == "" {
		return goerr.New("severity name is required")
	}
	if s.Level < 0 || s.Level > 99 {
		return goerr.New("severity level must be between 0 and 99",
			goerr.V("level", s.Level))
	}
	return nil
}

// IsUnknown returns true if the severity is the unknown fallback (level -1)
func (s *Severity) IsUnknown() bool {
	return s.Level == -1
}

// SeveritiesConfig represents the severities catalogue
type SeveritiesConfig struct {
	Severities []Severity `yaml:"severities"`
}

// DefaultSeverities returns the built-in catalogue used when no YAML file
// is configured. The four levels match what the incident store records.
func DefaultSeverities() *SeveritiesConfig {
	return &SeveritiesConfig{
		Severities: []Severity{
			{ID: "low", Name: "Low", Description: "Routine, no immediate action required", Level: 10},
			{ID: "medium", Name: "Medium", Description: "Needs triage within the shift", Level: 40},
			{ID: "high", Name: "High", Description: "Active threat, respond promptly", Level: 70},
			{ID: "critical", Name: "Critical", Description: "Ongoing damage, all hands", Level: 90},
		},
	}
}

// Validate validates the severities configuration
func (c *SeveritiesConfig) Validate() error {
	if len(c.Severities) == 0 {
		return goerr.New("at least one severity is required")
	}

	idMap := make(map[string]bool)
	for i, sev := range c.Severities {
		if err := sev.Validate(); err != nil {
			return goerr.Wrap(err, "invalid severity",
				goerr.V("index", i),
				goerr.V("id", sev.ID))
		}

		if idMap[sev.ID] {
			return goerr.New("duplicate severity ID", goerr.V("id", sev.ID))
		}
		idMap[sev.ID] = true
	}

	return nil
}

// FindSeverityByID finds a severity by its ID
func (c *SeveritiesConfig) FindSeverityByID(id string) *Severity {
	for _, sev := range c.Severities {
		if sev.ID == id {
			result := sev
			return &result
		}
	}
	return nil
}

// IsValidSeverityID checks if the given severity ID exists
func (c *SeveritiesConfig) IsValidSeverityID(id string) bool {
	return c.FindSeverityByID(id) != nil
}

// FindSeverityByIDWithFallback finds a severity or returns the unknown
// severity. Empty and non-existent IDs both map to unknown.
func (c *SeveritiesConfig) FindSeverityByIDWithFallback(id string) *Severity {
	if id != "" {
		if sev := c.FindSeverityByID(id); sev != nil {
			return sev
		}
	}

	if unknown := c.FindSeverityByID("unknown"); unknown != nil {
		return unknown
	}

	return &Severity{
		ID:          "unknown",
		Name:        "Unknown",
		Description: "Unknown severity",
		Level:       -1,
	}
}
