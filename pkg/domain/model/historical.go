package model

import (
	"github.com/m-mizutani/goerr/v2"
	"github.com/upawatch/upawatch/pkg/domain/types"
)

// DefaultTrailingDays is the window used when a historical query carries no date filter
const DefaultTrailingDays = 7

// TopNeighborhoods is the number of neighborhoods shown in tables and exports
const TopNeighborhoods = 10

// HistoricalQuery selects the historical window of a report. Nil fields are unset.
type HistoricalQuery struct {
	FacilityID types.FacilityID `json:"facility_id"`
	Year       *int             `json:"year,omitempty"`
	Month      *int             `json:"month,omitempty"`
	Day        *int             `json:"day,omitempty"`
}

// IsDefaultWindow reports whether no date filter is set
func (q HistoricalQuery) IsDefaultWindow() bool {
	return q.Year == nil && q.Month == nil && q.Day == nil
}

// Validate checks ranges and rejects a day without a month
func (q HistoricalQuery) Validate() error {
	if err := q.FacilityID.Validate(); err != nil {
		return goerr.Wrap(err, "invalid historical query", goerr.T(ErrTagInvalidQuery))
	}
	if q.Year != nil && (*q.Year < 2000 || *q.Year > 9999) {
		return goerr.New("year out of range", goerr.V("year", *q.Year), goerr.T(ErrTagInvalidQuery))
	}
	if q.Month != nil && (*q.Month < 1 || *q.Month > 12) {
		return goerr.New("month out of range", goerr.V("month", *q.Month), goerr.T(ErrTagInvalidQuery))
	}
	if q.Day != nil {
		if q.Month == nil {
			return goerr.New("day filter requires a month", goerr.V("day", *q.Day), goerr.T(ErrTagInvalidQuery))
		}
		if *q.Day < 1 || *q.Day > 31 {
			return goerr.New("day out of range", goerr.V("day", *q.Day), goerr.T(ErrTagInvalidQuery))
		}
	}
	return nil
}

// DistributionRecord is the share of one triage class within a historical window
type DistributionRecord struct {
	Code       types.ClassificationCode `json:"code"`
	Label      string                   `json:"label"`
	Color      string                   `json:"color"`
	Count      int                      `json:"count"`
	Percentage float64                  `json:"percentage"`
}

// ClassWaitTime is the average wait of one triage class within a historical window
type ClassWaitTime struct {
	Code               types.ClassificationCode `json:"code"`
	Label              string                   `json:"label"`
	AverageWaitMinutes float64                  `json:"average_wait_minutes"`
	FormattedWait      string                   `json:"formatted_wait"`
}

// NeighborhoodStat is the patient origin breakdown for one bairro
type NeighborhoodStat struct {
	Name               string  `json:"name"`
	PatientCount       int     `json:"patient_count"`
	PercentageOfTotal  float64 `json:"percentage_of_total"`
	AverageWaitMinutes float64 `json:"average_wait_minutes"`
}

// ComparisonPeriod summarizes one period of the 24h/today/yesterday comparison
type ComparisonPeriod struct {
	Total              int                              `json:"total"`
	ByClass            map[types.ClassificationCode]int `json:"by_class"`
	AverageWaitMinutes float64                          `json:"average_wait_minutes"`
}

// IsEmpty reports whether the period has no patients
func (p ComparisonPeriod) IsEmpty() bool {
	return p.Total == 0
}

// ComparisonTriple holds the last-24h, today and yesterday periods
type ComparisonTriple struct {
	Last24h   ComparisonPeriod `json:"last_24h"`
	Today     ComparisonPeriod `json:"today"`
	Yesterday ComparisonPeriod `json:"yesterday"`
	// DayOverDayChange is the percent change of today's total against yesterday's; nil when yesterday is empty
	DayOverDayChange *float64 `json:"day_over_day_change,omitempty"`
}

// IsEmpty reports whether every period is empty
func (c *ComparisonTriple) IsEmpty() bool {
	return c == nil || (c.Last24h.IsEmpty() && c.Today.IsEmpty() && c.Yesterday.IsEmpty())
}

// HistoricalResult is the aggregated output of one historical query
type HistoricalResult struct {
	Query         HistoricalQuery      `json:"query"`
	WindowLabel   string               `json:"window_label"`
	Distribution  []DistributionRecord `json:"distribution"`
	Total         int                  `json:"total"`
	WaitTimes     []ClassWaitTime      `json:"wait_times"`
	Neighborhoods []NeighborhoodStat   `json:"neighborhoods"`
	Comparison    *ComparisonTriple    `json:"comparison,omitempty"`
}

// RawHistoricalPayload is the backend response for a historical distribution query.
// Keys of both maps are backend classification keys.
type RawHistoricalPayload struct {
	Distribution map[string]int     `json:"porClassificacao"`
	WaitTimes    map[string]float64 `json:"tempoMedioEspera"`
}

// RawNeighborhood is one row of the backend bairro breakdown
type RawNeighborhood struct {
	Name               string  `json:"bairro"`
	PatientCount       int     `json:"quantidade"`
	AverageWaitMinutes float64 `json:"tempoMedioEspera"`
}

// RawBairroPayload is the backend response for the bairro breakdown
type RawBairroPayload struct {
	Neighborhoods []RawNeighborhood `json:"bairros"`
}

// RawComparisonPeriod is one period of the backend comparison response
type RawComparisonPeriod struct {
	Total              *int           `json:"total"`
	ByClass            map[string]int `json:"porClassificacao"`
	AverageWaitMinutes float64        `json:"tempoMedioEspera"`
}

// RawComparisonPayload is the backend response for the 24h/today/yesterday comparison
type RawComparisonPayload struct {
	Last24h   RawComparisonPeriod `json:"ultimas24h"`
	Today     RawComparisonPeriod `json:"hoje"`
	Yesterday RawComparisonPeriod `json:"ontem"`
}
