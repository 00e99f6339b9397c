package usecase

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/m-mizutani/goerr/v2"
	"github.com/upawatch/upawatch/pkg/domain/interfaces"
	"github.com/upawatch/upawatch/pkg/domain/model"
	"github.com/upawatch/upawatch/pkg/domain/types"
)

var monthNames = [...]string{
	"Janeiro", "Fevereiro", "Março", "Abril", "Maio", "Junho",
	"Julho", "Agosto", "Setembro", "Outubro", "Novembro", "Dezembro",
}

const (
	defaultWindowLabel  = "Últimos 7 dias"
	unknownNeighborhood = "Não informado"
)

// BuildDistribution converts a classification→count mapping into records ordered by severity.
// Percentages use the sum of the provided counts as denominator, so they are independent from
// any live total. Unknown keys are skipped and keys naming the same class are merged.
func BuildDistribution(raw *model.RawHistoricalPayload) []model.DistributionRecord {
	if raw == nil || len(raw.Distribution) == 0 {
		return nil
	}

	counts := make(map[types.ClassificationCode]int)
	for key, n := range raw.Distribution {
		code, ok := model.ParseClassificationKey(key)
		if !ok {
			continue
		}
		counts[code] += max(n, 0)
	}
	if len(counts) == 0 {
		return nil
	}

	total := 0
	for _, n := range counts {
		total += n
	}

	records := make([]model.DistributionRecord, 0, len(counts))
	for _, c := range model.Classifications() {
		n, ok := counts[c.Code]
		if !ok {
			continue
		}
		var pct float64
		if total > 0 {
			pct = float64(n) / float64(total) * 100
		}
		records = append(records, model.DistributionRecord{
			Code:       c.Code,
			Label:      c.Label,
			Color:      c.Color,
			Count:      n,
			Percentage: pct,
		})
	}
	return records
}

// BuildWaitTimes converts the per-class average wait mapping into records ordered by severity
func BuildWaitTimes(raw *model.RawHistoricalPayload) []model.ClassWaitTime {
	if raw == nil || len(raw.WaitTimes) == 0 {
		return nil
	}

	waits := make(map[types.ClassificationCode]float64)
	for key, v := range raw.WaitTimes {
		if code, ok := model.ParseClassificationKey(key); ok {
			waits[code] = clampWait(v)
		}
	}

	var result []model.ClassWaitTime
	for _, c := range model.Classifications() {
		v, ok := waits[c.Code]
		if !ok {
			continue
		}
		result = append(result, model.ClassWaitTime{
			Code:               c.Code,
			Label:              c.Label,
			AverageWaitMinutes: v,
			FormattedWait:      model.FormatMinutes(v),
		})
	}
	return result
}

// RankNeighborhoods sorts the bairro breakdown by patient count descending, ties by name ascending
func RankNeighborhoods(raw *model.RawBairroPayload) []model.NeighborhoodStat {
	if raw == nil || len(raw.Neighborhoods) == 0 {
		return nil
	}

	total := 0
	for _, n := range raw.Neighborhoods {
		total += max(n.PatientCount, 0)
	}

	stats := make([]model.NeighborhoodStat, 0, len(raw.Neighborhoods))
	for _, n := range raw.Neighborhoods {
		name := strings.TrimSpace(n.Name)
		if name == "" {
			name = unknownNeighborhood
		}
		count := max(n.PatientCount, 0)
		var pct float64
		if total > 0 {
			pct = float64(count) / float64(total) * 100
		}
		stats = append(stats, model.NeighborhoodStat{
			Name:               name,
			PatientCount:       count,
			PercentageOfTotal:  pct,
			AverageWaitMinutes: clampWait(n.AverageWaitMinutes),
		})
	}

	sort.SliceStable(stats, func(i, j int) bool {
		if stats[i].PatientCount != stats[j].PatientCount {
			return stats[i].PatientCount > stats[j].PatientCount
		}
		return stats[i].Name < stats[j].Name
	})
	return stats
}

// TopNeighborhoods returns a copy of the first n ranked neighborhoods
func TopNeighborhoods(stats []model.NeighborhoodStat, n int) []model.NeighborhoodStat {
	if n <= 0 || len(stats) == 0 {
		return nil
	}
	n = min(n, len(stats))
	result := make([]model.NeighborhoodStat, n)
	copy(result, stats[:n])
	return result
}

// FilterWindowLabel renders the label of a historical window.
// A day without a month is ignored; a missing year means the year of now.
func FilterWindowLabel(query model.HistoricalQuery, now time.Time) string {
	year := now.Year()
	if query.Year != nil {
		year = *query.Year
	}

	switch {
	case query.Month != nil && query.Day != nil:
		return fmt.Sprintf("%02d/%02d/%04d", *query.Day, *query.Month, year)
	case query.Month != nil:
		return fmt.Sprintf("%s de %d", monthName(*query.Month), year)
	case query.Year != nil:
		return fmt.Sprintf("Ano de %d", year)
	default:
		return defaultWindowLabel
	}
}

func monthName(month int) string {
	if month < 1 || month > 12 {
		return fmt.Sprintf("Mês %d", month)
	}
	return monthNames[month-1]
}

// BuildComparison converts the backend comparison payload. A period without a declared
// total uses the sum of its class counts.
func BuildComparison(raw *model.RawComparisonPayload) *model.ComparisonTriple {
	if raw == nil {
		return nil
	}
	triple := &model.ComparisonTriple{
		Last24h:   buildPeriod(raw.Last24h),
		Today:     buildPeriod(raw.Today),
		Yesterday: buildPeriod(raw.Yesterday),
	}
	if triple.Yesterday.Total > 0 {
		change := float64(triple.Today.Total-triple.Yesterday.Total) / float64(triple.Yesterday.Total) * 100
		triple.DayOverDayChange = &change
	}
	return triple
}

func buildPeriod(raw model.RawComparisonPeriod) model.ComparisonPeriod {
	byClass := make(map[types.ClassificationCode]int)
	sum := 0
	for key, n := range raw.ByClass {
		code, ok := model.ParseClassificationKey(key)
		if !ok {
			continue
		}
		byClass[code] += max(n, 0)
		sum += max(n, 0)
	}

	total := sum
	if raw.Total != nil {
		total = max(*raw.Total, 0)
	}
	return model.ComparisonPeriod{
		Total:              total,
		ByClass:            byClass,
		AverageWaitMinutes: clampWait(raw.AverageWaitMinutes),
	}
}

// HasData tells a query that returned nothing apart from a query that was not run (nil)
func HasData(result *model.HistoricalResult) bool {
	if result == nil {
		return false
	}
	return len(result.Distribution) > 0 ||
		len(result.WaitTimes) > 0 ||
		len(result.Neighborhoods) > 0 ||
		!result.Comparison.IsEmpty()
}

// Historical runs historical queries against the backend and aggregates the results
type Historical struct {
	backend interfaces.Backend
	now     func() time.Time
}

// HistoricalOption configures Historical
type HistoricalOption func(*Historical)

// WithHistoricalClock sets the clock used to resolve a missing year
func WithHistoricalClock(now func() time.Time) HistoricalOption {
	return func(h *Historical) {
		h.now = now
	}
}

// NewHistorical creates a new Historical aggregator
func NewHistorical(backend interfaces.Backend, opts ...HistoricalOption) *Historical {
	h := &Historical{
		backend: backend,
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// Aggregate fetches distribution, bairro breakdown and comparison for a query.
// A query returning no rows yields a result for which HasData is false.
func (h *Historical) Aggregate(ctx context.Context, query model.HistoricalQuery) (*model.HistoricalResult, error) {
	if err := query.Validate(); err != nil {
		return nil, err
	}

	dist, err := h.backend.FetchHistorical(ctx, query)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to fetch historical distribution",
			goerr.V("facility_id", query.FacilityID),
			goerr.T(model.ErrTagTransportFailure))
	}
	bairros, err := h.backend.FetchNeighborhoodStats(ctx, query)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to fetch neighborhood stats",
			goerr.V("facility_id", query.FacilityID),
			goerr.T(model.ErrTagTransportFailure))
	}
	comparison, err := h.backend.FetchComparisonTriple(ctx, query)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to fetch comparison",
			goerr.V("facility_id", query.FacilityID),
			goerr.T(model.ErrTagTransportFailure))
	}

	result := &model.HistoricalResult{
		Query:         query,
		WindowLabel:   FilterWindowLabel(query, h.now()),
		Distribution:  BuildDistribution(dist),
		WaitTimes:     BuildWaitTimes(dist),
		Neighborhoods: RankNeighborhoods(bairros),
		Comparison:    BuildComparison(comparison),
	}
	for _, r := range result.Distribution {
		result.Total += r.Count
	}
	return result, nil
}

// RequireData returns an EmptyResult error when the result has no data
func RequireData(result *model.HistoricalResult) error {
	if HasData(result) {
		return nil
	}
	var facilityID types.FacilityID
	var label string
	if result != nil {
		facilityID = result.Query.FacilityID
		label = result.WindowLabel
	}
	return goerr.New("no data for this filter",
		goerr.V("facility_id", facilityID),
		goerr.V("window", label),
		goerr.T(model.ErrTagEmptyResult))
}
