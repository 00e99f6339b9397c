package model

import (
	"github.com/m-mizutani/goerr/v2"
	"github.com/upawatch/upawatch/pkg/domain/types"
)

// FacilityMetadata describes a monitored UPA
type FacilityMetadata struct {
	ID           types.FacilityID `json:"id" yaml:"id"`
	Name         string           `json:"name" yaml:"name"`
	Address      string           `json:"address,omitempty" yaml:"address"`
	Neighborhood string           `json:"neighborhood,omitempty" yaml:"neighborhood"`
	Latitude     float64          `json:"latitude" yaml:"latitude"`
	Longitude    float64          `json:"longitude" yaml:"longitude"`
	Phone        string           `json:"phone,omitempty" yaml:"phone"`
}

// Validate validates the facility metadata
func (f *FacilityMetadata) Validate() error {
	if err := f.ID.Validate(); err != nil {
		return err
	}
	if f.Name == "" {
		return goerr.New("facility name is required", goerr.V("id", f.ID))
	}
	if f.Latitude < -90 || f.Latitude > 90 || f.Longitude < -180 || f.Longitude > 180 {
		return goerr.New("facility coordinates out of range",
			goerr.V("id", f.ID),
			goerr.V("latitude", f.Latitude),
			goerr.V("longitude", f.Longitude))
	}
	return nil
}

// FacilitiesConfig is the facility catalog loaded from YAML
type FacilitiesConfig struct {
	Facilities []FacilityMetadata `yaml:"facilities"`
}

// Validate validates the catalog
func (c *FacilitiesConfig) Validate() error {
	if len(c.Facilities) == 0 {
		return goerr.New("at least one facility is required")
	}

	idMap := make(map[types.FacilityID]bool)
	for i, f := range c.Facilities {
		if err := f.Validate(); err != nil {
			return goerr.Wrap(err, "invalid facility at index",
				goerr.V("index", i),
				goerr.V("id", f.ID))
		}
		if idMap[f.ID] {
			return goerr.New("duplicate facility ID", goerr.V("id", f.ID))
		}
		idMap[f.ID] = true
	}
	return nil
}

// FindFacilityByID finds a facility by its ID
func (c *FacilitiesConfig) FindFacilityByID(id types.FacilityID) *FacilityMetadata {
	if c == nil {
		return nil
	}
	for _, f := range c.Facilities {
		if f.ID == id {
			result := f
			return &result
		}
	}
	return nil
}
