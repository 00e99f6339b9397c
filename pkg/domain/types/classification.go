package types

// ClassificationCode represents a Manchester-style triage class assigned to a waiting patient
type ClassificationCode string

const (
	// ClassUntriaged is a patient still waiting for triage
	ClassUntriaged ClassificationCode = "NAO_TRIADO"
	// ClassBlue is a non-urgent case
	ClassBlue ClassificationCode = "AZUL"
	// ClassGreen is a less-urgent case
	ClassGreen ClassificationCode = "VERDE"
	// ClassYellow is an urgent case
	ClassYellow ClassificationCode = "AMARELO"
	// ClassRed is an emergency
	ClassRed ClassificationCode = "VERMELHO"
)

// AllClassifications lists every code ordered by severity, most severe first
var AllClassifications = []ClassificationCode{
	ClassRed,
	ClassYellow,
	ClassGreen,
	ClassBlue,
	ClassUntriaged,
}

// String returns the string representation of the code
func (c ClassificationCode) String() string {
	return string(c)
}

// IsValid checks if the code is one of the five known classes
func (c ClassificationCode) IsValid() bool {
	switch c {
	case ClassUntriaged, ClassBlue, ClassGreen, ClassYellow, ClassRed:
		return true
	default:
		return false
	}
}

// OccupancyStatus is the coarse load label reported by the backend
type OccupancyStatus string

const (
	OccupancyLow      OccupancyStatus = "LOW"
	OccupancyModerate OccupancyStatus = "MODERATE"
	OccupancyHigh     OccupancyStatus = "HIGH"
)

// String returns the string representation of the status
func (s OccupancyStatus) String() string {
	return string(s)
}

// IsValid checks if the status is valid
func (s OccupancyStatus) IsValid() bool {
	switch s {
	case OccupancyLow, OccupancyModerate, OccupancyHigh:
		return true
	default:
		return false
	}
}

// SeverityTier is the marker tier derived from the total number of waiting patients
type SeverityTier string

const (
	TierLow    SeverityTier = "LOW"
	TierMedium SeverityTier = "MEDIUM"
	TierHigh   SeverityTier = "HIGH"
)

// String returns the string representation of the tier
func (t SeverityTier) String() string {
	return string(t)
}

// Rank orders tiers so escalations can be detected; higher is worse
func (t SeverityTier) Rank() int {
	switch t {
	case TierHigh:
		return 3
	case TierMedium:
		return 2
	case TierLow:
		return 1
	default:
		return 0
	}
}
