package model

import "github.com/m-mizutani/goerr/v2"

// Default ratios of cycling and walking time to driving time
const (
	DefaultBikeMultiplier = 2.7
	DefaultFootMultiplier = 6.0
)

// TravelMultipliers scales a driving time estimate into other travel modes
type TravelMultipliers struct {
	Bike float64 `json:"bike"`
	Foot float64 `json:"foot"`
}

// DefaultTravelMultipliers returns the built-in multipliers
func DefaultTravelMultipliers() TravelMultipliers {
	return TravelMultipliers{Bike: DefaultBikeMultiplier, Foot: DefaultFootMultiplier}
}

// Validate validates the multipliers
func (m TravelMultipliers) Validate() error {
	if m.Bike <= 0 || m.Foot <= 0 {
		return goerr.New("travel multipliers must be positive",
			goerr.V("bike", m.Bike),
			goerr.V("foot", m.Foot))
	}
	return nil
}

// TravelEstimate is the estimated time to reach a facility per travel mode
type TravelEstimate struct {
	DrivingMinutes float64 `json:"driving_minutes"`
	BikeMinutes    float64 `json:"bike_minutes"`
	FootMinutes    float64 `json:"foot_minutes"`
	Driving        string  `json:"driving"`
	Bike           string  `json:"bike"`
	Foot           string  `json:"foot"`
}

// EstimateTravel derives bike and foot times from a driving time
func EstimateTravel(drivingMinutes float64, m TravelMultipliers) TravelEstimate {
	if drivingMinutes < 0 {
		drivingMinutes = 0
	}
	bike := drivingMinutes * m.Bike
	foot := drivingMinutes * m.Foot
	return TravelEstimate{
		DrivingMinutes: drivingMinutes,
		BikeMinutes:    bike,
		FootMinutes:    foot,
		Driving:        FormatMinutes(drivingMinutes),
		Bike:           FormatMinutes(bike),
		Foot:           FormatMinutes(foot),
	}
}
