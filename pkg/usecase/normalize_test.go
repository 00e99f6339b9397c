package usecase_test

import (
	"strconv"
	"testing"
	"time"

	"github.com/m-mizutani/goerr/v2"
	"github.com/m-mizutani/gt"
	"github.com/upawatch/upawatch/pkg/domain/model"
	"github.com/upawatch/upawatch/pkg/domain/types"
	"github.com/upawatch/upawatch/pkg/usecase"
)

var fetchedAt = time.Date(2025, 1, 15, 10, 0, 0, 0, time.UTC)

func TestNormalizeSnapshot(t *testing.T) {
	t.Run("full payload", func(t *testing.T) {
		raw := `{
			"upaId": "F1",
			"porClassificacao": {"azul": 5, "verde": 10, "amarelo": 3, "vermelho": 1, "semTriagem": 2},
			"tempoMedioEspera": {"azul": 40, "verde": 25.5},
			"totalPacientes": 21,
			"statusOcupacao": "alta",
			"ultimaAtualizacao": "2025-01-15T09:58:00Z"
		}`
		s, err := usecase.NormalizeSnapshot("", []byte(raw), fetchedAt)
		gt.NoError(t, err).Required()

		gt.Equal(t, s.FacilityID, types.FacilityID("F1"))
		gt.Equal(t, s.Count(types.ClassBlue), 5)
		gt.Equal(t, s.Count(types.ClassGreen), 10)
		gt.Equal(t, s.Count(types.ClassYellow), 3)
		gt.Equal(t, s.Count(types.ClassRed), 1)
		gt.Equal(t, s.Count(types.ClassUntriaged), 2)
		gt.Equal(t, s.TotalPatients, 21)
		gt.Equal(t, s.AwaitingTriage, 2)
		gt.Equal(t, s.Classes[types.ClassGreen].AverageWaitMinutes, 25.5)
		gt.Equal(t, s.Occupancy, types.OccupancyHigh)
		gt.Equal(t, s.LastUpdated, time.Date(2025, 1, 15, 9, 58, 0, 0, time.UTC))
		gt.False(t, s.Stale)
	})

	t.Run("missing keys default to zero and total is the sum", func(t *testing.T) {
		raw := `{"porClassificacao": {"azul": 4, "vermelho": 2}}`
		s, err := usecase.NormalizeSnapshot("F1", []byte(raw), fetchedAt)
		gt.NoError(t, err).Required()

		gt.Equal(t, s.Count(types.ClassGreen), 0)
		gt.Equal(t, s.Count(types.ClassYellow), 0)
		gt.Equal(t, s.Count(types.ClassUntriaged), 0)
		gt.Equal(t, s.TotalPatients, 6)
		gt.Equal(t, s.TotalPatients, s.SumOfCounts())
		gt.Equal(t, len(s.Classes), len(types.AllClassifications))
	})

	t.Run("declared total is not trusted", func(t *testing.T) {
		raw := `{"porClassificacao": {"azul": 1, "verde": 1}, "totalPacientes": 99}`
		s, err := usecase.NormalizeSnapshot("F1", []byte(raw), fetchedAt)
		gt.NoError(t, err).Required()
		gt.Equal(t, s.TotalPatients, 2)

		declared, ok := usecase.DeclaredTotal([]byte(raw))
		gt.True(t, ok)
		gt.Equal(t, declared, 99)
	})

	t.Run("negative counts are clamped", func(t *testing.T) {
		raw := `{"porClassificacao": {"azul": -3, "verde": 2}, "tempoMedioEspera": {"verde": -10}}`
		s, err := usecase.NormalizeSnapshot("F1", []byte(raw), fetchedAt)
		gt.NoError(t, err).Required()
		gt.Equal(t, s.Count(types.ClassBlue), 0)
		gt.Equal(t, s.TotalPatients, 2)
		gt.Equal(t, s.Classes[types.ClassGreen].AverageWaitMinutes, 0.0)
	})

	t.Run("non-numeric count reads as zero", func(t *testing.T) {
		raw := `{"porClassificacao": {"azul": "many", "verde": 3}}`
		s, err := usecase.NormalizeSnapshot("F1", []byte(raw), fetchedAt)
		gt.NoError(t, err).Required()
		gt.Equal(t, s.Count(types.ClassBlue), 0)
		gt.Equal(t, s.TotalPatients, 3)
	})

	t.Run("array form with upper-case codes", func(t *testing.T) {
		raw := `{
			"upaId": "F2",
			"porClassificacao": [
				{"classificacao": "AZUL", "quantidade": 2, "tempoMedioEspera": 30},
				{"classificacao": "VERMELHO", "quantidade": 1},
				{"classificacao": "DESCONHECIDO", "quantidade": 7}
			]
		}`
		s, err := usecase.NormalizeSnapshot("", []byte(raw), fetchedAt)
		gt.NoError(t, err).Required()
		gt.Equal(t, s.FacilityID, types.FacilityID("F2"))
		gt.Equal(t, s.Count(types.ClassBlue), 2)
		gt.Equal(t, s.Count(types.ClassRed), 1)
		gt.Equal(t, s.TotalPatients, 3)
		gt.Equal(t, s.Classes[types.ClassBlue].AverageWaitMinutes, 30.0)
	})

	t.Run("flat payload", func(t *testing.T) {
		raw := `{"id": "F3", "azul": 1, "amarelo": 2, "aguardandoTriagem": 4}`
		s, err := usecase.NormalizeSnapshot("", []byte(raw), fetchedAt)
		gt.NoError(t, err).Required()
		gt.Equal(t, s.Count(types.ClassYellow), 2)
		gt.Equal(t, s.Count(types.ClassUntriaged), 4)
		gt.Equal(t, s.TotalPatients, 7)
	})

	t.Run("defaults occupancy and timestamp", func(t *testing.T) {
		s, err := usecase.NormalizeSnapshot("F1", []byte(`{}`), fetchedAt)
		gt.NoError(t, err).Required()
		gt.Equal(t, s.Occupancy, types.OccupancyLow)
		gt.Equal(t, s.LastUpdated, fetchedAt)
		gt.Equal(t, s.TotalPatients, 0)
	})

	t.Run("epoch milliseconds timestamp", func(t *testing.T) {
		ts := time.Date(2025, 1, 15, 9, 0, 0, 0, time.UTC)
		raw := []byte(`{"timestamp": ` + strconv.FormatInt(ts.UnixMilli(), 10) + `}`)
		s, err := usecase.NormalizeSnapshot("F1", raw, fetchedAt)
		gt.NoError(t, err).Required()
		gt.Equal(t, s.LastUpdated, ts)
	})

	t.Run("missing facility ID is malformed", func(t *testing.T) {
		_, err := usecase.NormalizeSnapshot("", []byte(`{"porClassificacao": {"azul": 1}}`), fetchedAt)
		gt.Error(t, err)
		gt.True(t, goerr.HasTag(err, model.ErrTagMalformedPayload))
	})

	t.Run("invalid JSON is malformed", func(t *testing.T) {
		_, err := usecase.NormalizeSnapshot("F1", []byte(`{"porClass`), fetchedAt)
		gt.Error(t, err)
		gt.True(t, goerr.HasTag(err, model.ErrTagMalformedPayload))
	})
}

func TestParseDelta(t *testing.T) {
	t.Run("partial delta", func(t *testing.T) {
		d, err := usecase.ParseDelta([]byte(`{"upaId": "F1", "porClassificacao": {"azul": 6}, "timestamp": "2025-01-15T10:05:00Z"}`))
		gt.NoError(t, err).Required()
		gt.Equal(t, d.FacilityID, types.FacilityID("F1"))
		gt.Equal(t, len(d.Counts), 1)
		gt.Equal(t, d.Counts[types.ClassBlue], 6)
		gt.V(t, d.Occupancy).Nil()
		gt.Equal(t, d.Timestamp, time.Date(2025, 1, 15, 10, 5, 0, 0, time.UTC))
	})

	t.Run("occupancy only", func(t *testing.T) {
		d, err := usecase.ParseDelta([]byte(`{"upaId": "F1", "statusOcupacao": "moderada", "timestamp": 1736935500}`))
		gt.NoError(t, err).Required()
		gt.Equal(t, len(d.Counts), 0)
		gt.V(t, d.Occupancy).NotNil()
		gt.Equal(t, *d.Occupancy, types.OccupancyModerate)
	})

	t.Run("missing facility ID", func(t *testing.T) {
		_, err := usecase.ParseDelta([]byte(`{"porClassificacao": {"azul": 6}, "timestamp": "2025-01-15T10:05:00Z"}`))
		gt.True(t, goerr.HasTag(err, model.ErrTagMalformedPayload))
	})

	t.Run("missing timestamp", func(t *testing.T) {
		_, err := usecase.ParseDelta([]byte(`{"upaId": "F1", "porClassificacao": {"azul": 6}}`))
		gt.True(t, goerr.HasTag(err, model.ErrTagMalformedPayload))
	})

	t.Run("non-numeric count", func(t *testing.T) {
		_, err := usecase.ParseDelta([]byte(`{"upaId": "F1", "porClassificacao": {"azul": "six"}, "timestamp": "2025-01-15T10:05:00Z"}`))
		gt.True(t, goerr.HasTag(err, model.ErrTagMalformedPayload))
	})

	t.Run("not JSON", func(t *testing.T) {
		_, err := usecase.ParseDelta([]byte(`ping`))
		gt.True(t, goerr.HasTag(err, model.ErrTagMalformedPayload))
	})
}
