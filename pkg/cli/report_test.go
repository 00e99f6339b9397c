package cli_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/m-mizutani/goerr/v2"
	"github.com/m-mizutani/gt"
	"github.com/upawatch/upawatch/pkg/cli"
	"github.com/upawatch/upawatch/pkg/domain/model"
	"github.com/xuri/excelize/v2"
)

func newReportBackend(t *testing.T) *httptest.Server {
	t.Helper()

	reply := func(w http.ResponseWriter, body string) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(body))
	}
	authorized := func(next http.HandlerFunc) http.HandlerFunc {
		return func(w http.ResponseWriter, r *http.Request) {
			if r.Header.Get("Authorization") != "Bearer tok-1" {
				w.WriteHeader(http.StatusUnauthorized)
				return
			}
			next(w, r)
		}
	}

	r := chi.NewRouter()
	r.Post("/auth/login", func(w http.ResponseWriter, r *http.Request) {
		reply(w, `{"token": "tok-1"}`)
	})
	r.Get("/upas", func(w http.ResponseWriter, r *http.Request) {
		reply(w, `[{"id": "F1", "nome": "UPA Bessa", "latitude": -7.08, "longitude": -34.83}]`)
	})
	r.Get("/upas/{id}/fila", func(w http.ResponseWriter, r *http.Request) {
		reply(w, `{"upaId": "F1", "porClassificacao": {"azul": 2, "verde": 1}}`)
	})
	r.Get("/upas/{id}/historico", authorized(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("ano") == "2020" {
			reply(w, `{}`)
			return
		}
		reply(w, `{"porClassificacao": {"azul": 6, "vermelho": 2}, "tempoMedioEspera": {"azul": 75}}`)
	}))
	r.Get("/upas/{id}/bairros", authorized(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("ano") == "2020" {
			reply(w, `{"bairros": []}`)
			return
		}
		reply(w, `{"bairros": [{"bairro": "Centro", "quantidade": 8}]}`)
	}))
	r.Get("/upas/{id}/comparativo", authorized(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	}))

	srv := httptest.NewServer(r)
	t.Cleanup(srv.Close)
	return srv
}

func runReport(t *testing.T, backendURL string, args ...string) error {
	t.Helper()
	base := []string{"upawatch", "--log-level", "error", "report",
		"--backend-url", backendURL,
		"--backend-retry", "0",
		"--facility", "F1",
		"--email", "admin@example.com",
		"--password", "correct",
	}
	return cli.Run(context.Background(), append(base, args...))
}

func TestReportCommandJSON(t *testing.T) {
	srv := newReportBackend(t)
	out := filepath.Join(t.TempDir(), "report.json")

	gt.NoError(t, runReport(t, srv.URL, "--output", out)).Required()

	data, err := os.ReadFile(out)
	gt.NoError(t, err).Required()
	var report model.ReportModel
	gt.NoError(t, json.Unmarshal(data, &report)).Required()

	gt.True(t, report.HasHistorical)
	gt.Equal(t, report.HistoricalTotal, 8)
	gt.V(t, report.Facility).NotNil()
	gt.Equal(t, report.Facility.Name, "UPA Bessa")
	gt.V(t, report.Live).NotNil()
	gt.A(t, report.Neighborhoods).Length(1)
}

func TestReportCommandXLSX(t *testing.T) {
	srv := newReportBackend(t)
	out := filepath.Join(t.TempDir(), "report.xlsx")

	gt.NoError(t, runReport(t, srv.URL, "--format", "xlsx", "--output", out)).Required()

	f, err := excelize.OpenFile(out)
	gt.NoError(t, err).Required()
	defer f.Close()
	gt.True(t, len(f.GetSheetList()) > 1)
}

func TestReportCommandRequireData(t *testing.T) {
	srv := newReportBackend(t)
	out := filepath.Join(t.TempDir(), "report.json")

	err := runReport(t, srv.URL, "--year", "2020", "--require-data", "--output", out)
	gt.Error(t, err)
	gt.True(t, goerr.HasTag(err, model.ErrTagEmptyResult))
}

func TestReportCommandInvalidInput(t *testing.T) {
	srv := newReportBackend(t)

	t.Run("day without month", func(t *testing.T) {
		err := runReport(t, srv.URL, "--year", "2025", "--day", "3")
		gt.True(t, goerr.HasTag(err, model.ErrTagInvalidQuery))
	})

	t.Run("unknown format", func(t *testing.T) {
		gt.Error(t, runReport(t, srv.URL, "--format", "csv"))
	})
}
