package usecase

import (
	"context"
	"time"

	"github.com/m-mizutani/ctxlog"
	"github.com/m-mizutani/goerr/v2"
	"github.com/upawatch/upawatch/pkg/domain/interfaces"
	"github.com/upawatch/upawatch/pkg/domain/model"
	"github.com/upawatch/upawatch/pkg/domain/types"
)

// ReportInput holds the sections a report is assembled from. Any of them may be nil.
type ReportInput struct {
	Facility   *model.FacilityMetadata
	Live       *model.DerivedMetrics
	Historical *model.HistoricalResult
	Comparison *model.ComparisonTriple
	Now        time.Time
}

// AssembleReport builds an immutable report model. Inputs are deep-copied and never
// mutated; missing sections are left out rather than filled with made-up data.
func AssembleReport(in ReportInput) *model.ReportModel {
	report := &model.ReportModel{
		GeneratedAt: in.Now,
	}

	if in.Facility != nil {
		f := *in.Facility
		report.Facility = &f
	}
	if in.Live != nil {
		report.Live = copyDerivedMetrics(in.Live)
	}

	comparison := in.Comparison
	if in.Historical != nil {
		h := in.Historical
		report.WindowLabel = h.WindowLabel
		report.Distribution = append([]model.DistributionRecord(nil), h.Distribution...)
		report.HistoricalTotal = h.Total
		report.WaitTimes = append([]model.ClassWaitTime(nil), h.WaitTimes...)
		report.Neighborhoods = append([]model.NeighborhoodStat(nil), h.Neighborhoods...)
		report.TopNeighborhoods = TopNeighborhoods(h.Neighborhoods, model.TopNeighborhoods)
		report.HasHistorical = HasData(h)
		if comparison == nil {
			comparison = h.Comparison
		}
	}
	if comparison != nil {
		report.Comparison = copyComparison(comparison)
	}

	return report
}

func copyDerivedMetrics(src *model.DerivedMetrics) *model.DerivedMetrics {
	dst := *src
	dst.Percentages = make(map[types.ClassificationCode]float64, len(src.Percentages))
	for k, v := range src.Percentages {
		dst.Percentages[k] = v
	}
	dst.Classes = make(map[types.ClassificationCode]model.ClassStat, len(src.Classes))
	for k, v := range src.Classes {
		dst.Classes[k] = v
	}
	return &dst
}

func copyComparison(src *model.ComparisonTriple) *model.ComparisonTriple {
	dst := &model.ComparisonTriple{
		Last24h:   copyPeriod(src.Last24h),
		Today:     copyPeriod(src.Today),
		Yesterday: copyPeriod(src.Yesterday),
	}
	if src.DayOverDayChange != nil {
		change := *src.DayOverDayChange
		dst.DayOverDayChange = &change
	}
	return dst
}

func copyPeriod(src model.ComparisonPeriod) model.ComparisonPeriod {
	dst := src
	dst.ByClass = make(map[types.ClassificationCode]int, len(src.ByClass))
	for k, v := range src.ByClass {
		dst.ByClass[k] = v
	}
	return dst
}

// Reports builds report models for the admin area and the CLI
type Reports struct {
	backend    interfaces.Backend
	board      LiveBoard
	historical *Historical
	catalog    *model.FacilitiesConfig
	now        func() time.Time
}

// ReportsOption configures Reports
type ReportsOption func(*Reports)

// WithCatalog sets the facility catalog used for report metadata
func WithCatalog(catalog *model.FacilitiesConfig) ReportsOption {
	return func(r *Reports) {
		r.catalog = catalog
	}
}

// WithLiveBoard makes reports reuse the live snapshot of subscribed facilities
func WithLiveBoard(board LiveBoard) ReportsOption {
	return func(r *Reports) {
		r.board = board
	}
}

// WithReportsClock sets the clock of report generation
func WithReportsClock(now func() time.Time) ReportsOption {
	return func(r *Reports) {
		r.now = now
	}
}

// NewReports creates a new Reports use case
func NewReports(backend interfaces.Backend, opts ...ReportsOption) *Reports {
	r := &Reports{
		backend: backend,
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(r)
	}
	r.historical = NewHistorical(backend, WithHistoricalClock(r.now))
	return r
}

var _ ReportUseCase = (*Reports)(nil)

// BuildReport assembles the report of a facility for a historical query.
// The live section is taken from the board when subscribed, otherwise fetched once;
// a failure there only drops the live section.
func (r *Reports) BuildReport(ctx context.Context, query model.HistoricalQuery) (*model.ReportModel, error) {
	logger := ctxlog.From(ctx)

	if err := query.Validate(); err != nil {
		return nil, err
	}

	facility, err := r.findFacility(ctx, query.FacilityID)
	if err != nil {
		return nil, err
	}

	historical, err := r.historical.Aggregate(ctx, query)
	if err != nil {
		return nil, err
	}

	live, err := r.liveMetrics(ctx, query.FacilityID)
	if err != nil {
		logger.Warn("Building report without live section",
			"facility_id", query.FacilityID,
			"error", err,
		)
	}

	return AssembleReport(ReportInput{
		Facility:   facility,
		Live:       live,
		Historical: historical,
		Now:        r.now(),
	}), nil
}

func (r *Reports) liveMetrics(ctx context.Context, id types.FacilityID) (*model.DerivedMetrics, error) {
	if r.board != nil {
		if snapshot, err := r.board.Snapshot(id); err == nil {
			return DeriveMetrics(snapshot), nil
		}
	}

	raw, err := r.backend.FetchFacilitySnapshot(ctx, id)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to fetch live snapshot",
			goerr.V("facility_id", id),
			goerr.T(model.ErrTagTransportFailure))
	}
	snapshot, err := NormalizeSnapshot(id, raw, r.now())
	if err != nil {
		return nil, err
	}
	return DeriveMetrics(snapshot), nil
}

// ListFacilities returns the catalog, or the backend list when no catalog is configured
func (r *Reports) ListFacilities(ctx context.Context) ([]*model.FacilityMetadata, error) {
	if r.catalog != nil {
		result := make([]*model.FacilityMetadata, 0, len(r.catalog.Facilities))
		for _, f := range r.catalog.Facilities {
			f := f
			result = append(result, &f)
		}
		return result, nil
	}

	facilities, err := r.backend.ListFacilities(ctx)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to list facilities", goerr.T(model.ErrTagTransportFailure))
	}
	return facilities, nil
}

func (r *Reports) findFacility(ctx context.Context, id types.FacilityID) (*model.FacilityMetadata, error) {
	if r.catalog != nil {
		if f := r.catalog.FindFacilityByID(id); f != nil {
			return f, nil
		}
		return nil, goerr.Wrap(model.ErrFacilityNotFound, "unknown facility", goerr.V("facility_id", id))
	}

	facilities, err := r.ListFacilities(ctx)
	if err != nil {
		// Metadata is optional in a report
		ctxlog.From(ctx).Warn("Building report without facility metadata",
			"facility_id", id,
			"error", err,
		)
		return nil, nil
	}
	for _, f := range facilities {
		if f != nil && f.ID == id {
			return f, nil
		}
	}
	return nil, goerr.Wrap(model.ErrFacilityNotFound, "unknown facility", goerr.V("facility_id", id))
}
