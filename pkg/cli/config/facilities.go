package config

import (
	"os"

	"github.com/m-mizutani/goerr/v2"
	"github.com/upawatch/upawatch/pkg/domain/model"
	"github.com/urfave/cli/v3"
	"gopkg.in/yaml.v3"
)

// Facilities holds the path of the facility catalog
type Facilities struct {
	Path string
}

// Flags returns CLI flags for the facility catalog
func (f *Facilities) Flags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:        "facilities",
			Usage:       "YAML file with facility names, addresses and coordinates (the backend list is used if not set)",
			Sources:     cli.EnvVars("UPAWATCH_FACILITIES"),
			Destination: &f.Path,
		},
	}
}

// Configure loads the catalog, or returns nil when no file is set
func (f *Facilities) Configure() (*model.FacilitiesConfig, error) {
	if f.Path == "" {
		return nil, nil
	}
	return LoadFacilitiesFromFile(f.Path)
}

// LoadFacilitiesFromFile loads the facility catalog from a YAML file
func LoadFacilitiesFromFile(path string) (*model.FacilitiesConfig, error) {
	if path == "" {
		return nil, goerr.New("configuration file path is required")
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, goerr.Wrap(err, "configuration file not found",
				goerr.V("path", path))
		}
		return nil, goerr.Wrap(err, "failed to read configuration file",
			goerr.V("path", path))
	}

	var config model.FacilitiesConfig
	if err := yaml.Unmarshal(data, &config); err != nil {
		return nil, goerr.Wrap(err, "failed to parse YAML configuration",
			goerr.V("path", path))
	}

	if err := config.Validate(); err != nil {
		return nil, goerr.Wrap(err, "invalid configuration",
			goerr.V("path", path))
	}

	return &config, nil
}
