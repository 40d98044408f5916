package config

import (
	"os"

	"github.com/m-mizutani/goerr/v2"
	"github.com/soc-lab/kestrel/pkg/domain/model"
	"gopkg.in/yaml.v3"
)

// LoadSeveritiesFromFile loads severity definitions from a YAML file.
// An empty path selects the built-in defaults.
func LoadSeveritiesFromFile(path string) (*model.SeveritiesConfig, error) {
	if path == "" {
		return model.DefaultSeverities(), nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, goerr.Wrap(err, "severities file not found",
				goerr.V("path", path))
		}
		return nil, goerr.Wrap(err, "failed to read severities file",
			goerr.V("path", path))
	}

	var config model.SeveritiesConfig
	if err := yaml.Unmarshal(data, &config); err != nil {
		return nil, goerr.Wrap(err, "failed to parse YAML severities",
			goerr.V("path", path))
	}

	if err := config.Validate(); err != nil {
		return nil, goerr.Wrap(err, "invalid severities configuration",
			goerr.V("path", path))
	}

	return &config, nil
}
