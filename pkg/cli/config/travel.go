package config

import (
	"log/slog"

	"github.com/upawatch/upawatch/pkg/domain/model"
	"github.com/urfave/cli/v3"
)

// Travel holds the travel time multipliers applied to driving estimates
type Travel struct {
	Bike float64
	Foot float64
}

// Flags returns CLI flags for Travel configuration
func (t *Travel) Flags() []cli.Flag {
	defaults := model.DefaultTravelMultipliers()
	return []cli.Flag{
		&cli.FloatFlag{
			Name:        "bike-multiplier",
			Usage:       "Bike time as a multiple of driving time",
			Category:    "Travel",
			Value:       defaults.Bike,
			Sources:     cli.EnvVars("UPAWATCH_BIKE_MULTIPLIER"),
			Destination: &t.Bike,
		},
		&cli.FloatFlag{
			Name:        "foot-multiplier",
			Usage:       "Walking time as a multiple of driving time",
			Category:    "Travel",
			Value:       defaults.Foot,
			Sources:     cli.EnvVars("UPAWATCH_FOOT_MULTIPLIER"),
			Destination: &t.Foot,
		},
	}
}

// Configure returns the validated multipliers
func (t *Travel) Configure() (model.TravelMultipliers, error) {
	m := model.TravelMultipliers{Bike: t.Bike, Foot: t.Foot}
	if err := m.Validate(); err != nil {
		return model.TravelMultipliers{}, err
	}
	return m, nil
}

// LogValue returns structured log value
func (t Travel) LogValue() slog.Value {
	return slog.GroupValue(
		slog.Float64("bike", t.Bike),
		slog.Float64("foot", t.Foot),
	)
}
