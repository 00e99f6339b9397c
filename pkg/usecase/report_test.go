package usecase_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/m-mizutani/goerr/v2"
	"github.com/m-mizutani/gt"
	"github.com/upawatch/upawatch/pkg/domain/model"
	"github.com/upawatch/upawatch/pkg/domain/types"
	"github.com/upawatch/upawatch/pkg/usecase"
)

var reportClock = time.Date(2026, 3, 10, 8, 0, 0, 0, time.UTC)

func testCatalog() *model.FacilitiesConfig {
	return &model.FacilitiesConfig{
		Facilities: []model.FacilityMetadata{
			{ID: "F1", Name: "UPA Bessa", Neighborhood: "Bessa", Latitude: -7.08, Longitude: -34.83},
			{ID: "F2", Name: "UPA Oceania", Neighborhood: "Manaíra", Latitude: -7.10, Longitude: -34.84},
		},
	}
}

func TestAssembleReport(t *testing.T) {
	t.Run("all sections absent", func(t *testing.T) {
		r := usecase.AssembleReport(usecase.ReportInput{Now: reportClock})
		gt.V(t, r.Facility).Nil()
		gt.V(t, r.Live).Nil()
		gt.V(t, r.Comparison).Nil()
		gt.A(t, r.Distribution).Length(0)
		gt.False(t, r.HasHistorical)
		gt.Equal(t, r.GeneratedAt, reportClock)
	})

	t.Run("inputs are not mutated", func(t *testing.T) {
		facility := &model.FacilityMetadata{ID: "F1", Name: "UPA Bessa"}
		live := usecase.DeriveMetrics(snapshotWithTotal(12))
		change := 10.0
		historical := &model.HistoricalResult{
			WindowLabel:  "Janeiro de 2025",
			Distribution: []model.DistributionRecord{{Code: types.ClassBlue, Count: 3, Percentage: 100}},
			Total:        3,
			Neighborhoods: []model.NeighborhoodStat{
				{Name: "Bessa", PatientCount: 2}, {Name: "Centro", PatientCount: 1},
			},
			Comparison: &model.ComparisonTriple{
				Today:            model.ComparisonPeriod{Total: 11, ByClass: map[types.ClassificationCode]int{types.ClassBlue: 11}},
				Yesterday:        model.ComparisonPeriod{Total: 10},
				DayOverDayChange: &change,
			},
		}

		r := usecase.AssembleReport(usecase.ReportInput{
			Facility:   facility,
			Live:       live,
			Historical: historical,
			Now:        reportClock,
		})
		gt.Equal(t, r.Facility.Name, "UPA Bessa")
		gt.Equal(t, r.Live.TotalPatients, 12)
		gt.Equal(t, r.WindowLabel, "Janeiro de 2025")
		gt.Equal(t, r.HistoricalTotal, 3)
		gt.A(t, r.TopNeighborhoods).Length(2)
		gt.True(t, r.HasHistorical)
		gt.V(t, r.Comparison).NotNil()

		r.Facility.Name = "changed"
		r.Live.Percentages[types.ClassGreen] = -1
		r.Distribution[0].Count = 99
		r.Comparison.Today.ByClass[types.ClassBlue] = 0
		*r.Comparison.DayOverDayChange = 0

		gt.Equal(t, facility.Name, "UPA Bessa")
		gt.Equal(t, live.Percentages[types.ClassGreen], 100.0)
		gt.Equal(t, historical.Distribution[0].Count, 3)
		gt.Equal(t, historical.Comparison.Today.ByClass[types.ClassBlue], 11)
		gt.Equal(t, change, 10.0)
	})

	t.Run("explicit comparison wins over the historical one", func(t *testing.T) {
		r := usecase.AssembleReport(usecase.ReportInput{
			Historical: &model.HistoricalResult{Comparison: &model.ComparisonTriple{Today: model.ComparisonPeriod{Total: 1}}},
			Comparison: &model.ComparisonTriple{Today: model.ComparisonPeriod{Total: 5}},
		})
		gt.Equal(t, r.Comparison.Today.Total, 5)
	})
}

func TestReportsBuildReport(t *testing.T) {
	ctx := context.Background()
	historicalBackend := func() *fakeBackend {
		return &fakeBackend{
			historicalFn: func(ctx context.Context, q model.HistoricalQuery) (*model.RawHistoricalPayload, error) {
				return &model.RawHistoricalPayload{Distribution: map[string]int{"verde": 8, "azul": 2}}, nil
			},
		}
	}

	t.Run("live section from the board", func(t *testing.T) {
		backend := historicalBackend()
		backend.snapshotFn = staticSnapshot(f1Snapshot)
		board := usecase.NewBoard(backend, nil)
		_, err := board.Subscribe(ctx, "F1")
		gt.NoError(t, err).Required()

		// later fetches would fail; the board copy must be used
		backend.snapshotFn = func(ctx context.Context, id types.FacilityID) ([]byte, error) {
			return nil, goerr.New("unreachable")
		}

		reports := usecase.NewReports(backend,
			usecase.WithCatalog(testCatalog()),
			usecase.WithLiveBoard(board),
			usecase.WithReportsClock(func() time.Time { return reportClock }),
		)
		r, err := reports.BuildReport(ctx, model.HistoricalQuery{FacilityID: "F1", Year: intPtr(2025)})
		gt.NoError(t, err).Required()
		gt.Equal(t, r.Facility.Name, "UPA Bessa")
		gt.V(t, r.Live).NotNil()
		gt.Equal(t, r.Live.TotalPatients, 19)
		gt.Equal(t, r.WindowLabel, "Ano de 2025")
		gt.Equal(t, r.HistoricalTotal, 10)
		gt.Equal(t, r.Distribution[0].Code, types.ClassGreen)
		gt.Equal(t, r.GeneratedAt, reportClock)
	})

	t.Run("live fetch failure drops only the live section", func(t *testing.T) {
		backend := historicalBackend()
		backend.snapshotFn = func(ctx context.Context, id types.FacilityID) ([]byte, error) {
			return nil, goerr.New("timeout")
		}
		reports := usecase.NewReports(backend, usecase.WithCatalog(testCatalog()))
		r, err := reports.BuildReport(ctx, model.HistoricalQuery{FacilityID: "F2"})
		gt.NoError(t, err).Required()
		gt.V(t, r.Live).Nil()
		gt.True(t, r.HasHistorical)
		gt.Equal(t, r.WindowLabel, "Últimos 7 dias")
	})

	t.Run("unknown facility", func(t *testing.T) {
		reports := usecase.NewReports(historicalBackend(), usecase.WithCatalog(testCatalog()))
		_, err := reports.BuildReport(ctx, model.HistoricalQuery{FacilityID: "F404"})
		gt.True(t, errors.Is(err, model.ErrFacilityNotFound))
	})

	t.Run("facility metadata from backend list", func(t *testing.T) {
		backend := historicalBackend()
		backend.snapshotFn = staticSnapshot(f1Snapshot)
		backend.listFn = func(ctx context.Context) ([]*model.FacilityMetadata, error) {
			return []*model.FacilityMetadata{{ID: "F1", Name: "UPA Valentina"}}, nil
		}
		r, err := usecase.NewReports(backend).BuildReport(ctx, model.HistoricalQuery{FacilityID: "F1"})
		gt.NoError(t, err).Required()
		gt.Equal(t, r.Facility.Name, "UPA Valentina")
		gt.Equal(t, r.Live.TotalPatients, 19)
	})

	t.Run("backend list failure leaves metadata out", func(t *testing.T) {
		backend := historicalBackend()
		backend.snapshotFn = staticSnapshot(f1Snapshot)
		r, err := usecase.NewReports(backend).BuildReport(ctx, model.HistoricalQuery{FacilityID: "F1"})
		gt.NoError(t, err).Required()
		gt.V(t, r.Facility).Nil()
	})

	t.Run("invalid query", func(t *testing.T) {
		_, err := usecase.NewReports(historicalBackend()).BuildReport(ctx, model.HistoricalQuery{FacilityID: "F1", Month: intPtr(13)})
		gt.True(t, goerr.HasTag(err, model.ErrTagInvalidQuery))
	})
}

func TestReportsListFacilities(t *testing.T) {
	ctx := context.Background()

	t.Run("catalog", func(t *testing.T) {
		list, err := usecase.NewReports(&fakeBackend{}, usecase.WithCatalog(testCatalog())).ListFacilities(ctx)
		gt.NoError(t, err).Required()
		gt.A(t, list).Length(2)
		gt.Equal(t, list[1].Name, "UPA Oceania")
	})

	t.Run("backend failure is a transport failure", func(t *testing.T) {
		_, err := usecase.NewReports(&fakeBackend{}).ListFacilities(ctx)
		gt.True(t, goerr.HasTag(err, model.ErrTagTransportFailure))
	})
}
