package cli

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"os"

	"github.com/m-mizutani/ctxlog"
	"github.com/m-mizutani/goerr/v2"
	"github.com/upawatch/upawatch/pkg/cli/config"
	"github.com/upawatch/upawatch/pkg/domain/model"
	"github.com/upawatch/upawatch/pkg/domain/types"
	"github.com/upawatch/upawatch/pkg/service/backend"
	"github.com/upawatch/upawatch/pkg/service/export"
	"github.com/upawatch/upawatch/pkg/usecase"
	"github.com/urfave/cli/v3"
)

const (
	reportFormatJSON = "json"
	reportFormatXLSX = "xlsx"
)

func cmdReport() *cli.Command {
	var (
		backendCfg    config.Backend
		facilitiesCfg config.Facilities

		facilityID  string
		year        int
		month       int
		day         int
		format      string
		output      string
		email       string
		password    string
		requireData bool
	)

	flags := joinFlags(
		backendCfg.Flags(),
		facilitiesCfg.Flags(),
		[]cli.Flag{
			&cli.StringFlag{
				Name:        "facility",
				Aliases:     []string{"f"},
				Usage:       "Facility ID",
				Required:    true,
				Destination: &facilityID,
			},
			&cli.IntFlag{Name: "year", Usage: "Filter by year", Destination: &year},
			&cli.IntFlag{Name: "month", Usage: "Filter by month (1-12)", Destination: &month},
			&cli.IntFlag{Name: "day", Usage: "Filter by day, requires month", Destination: &day},
			&cli.StringFlag{
				Name:        "format",
				Usage:       "Output format (json, xlsx)",
				Value:       reportFormatJSON,
				Destination: &format,
			},
			&cli.StringFlag{
				Name:        "output",
				Aliases:     []string{"o"},
				Usage:       "Output file (stdout if not set)",
				Destination: &output,
			},
			&cli.StringFlag{
				Name:        "email",
				Usage:       "Admin email for the backend login",
				Sources:     cli.EnvVars("UPAWATCH_ADMIN_EMAIL"),
				Destination: &email,
			},
			&cli.StringFlag{
				Name:        "password",
				Usage:       "Admin password for the backend login",
				Sources:     cli.EnvVars("UPAWATCH_ADMIN_PASSWORD"),
				Destination: &password,
			},
			&cli.BoolFlag{
				Name:        "require-data",
				Usage:       "Fail when the filter has no historical data",
				Destination: &requireData,
			},
		},
	)

	return &cli.Command{
		Name:  "report",
		Usage: "Build the report of a facility and write it as JSON or XLSX",
		Flags: flags,
		Action: func(ctx context.Context, c *cli.Command) error {
			logger := ctxlog.From(ctx)

			if format != reportFormatJSON && format != reportFormatXLSX {
				return goerr.New("invalid report format", goerr.V("format", format))
			}

			// Build query from flags; unset date parts widen the period
			query := model.HistoricalQuery{FacilityID: types.FacilityID(facilityID)}
			if c.IsSet("year") {
				query.Year = &year
			}
			if c.IsSet("month") {
				query.Month = &month
			}
			if c.IsSet("day") {
				query.Day = &day
			}
			if err := query.Validate(); err != nil {
				return err
			}

			catalog, err := facilitiesCfg.Configure()
			if err != nil {
				return err
			}
			backendClient, err := backendCfg.Configure()
			if err != nil {
				return err
			}

			// Historical endpoints need an admin token
			if email != "" {
				result, err := backendClient.Login(ctx, model.Credentials{Email: email, Password: password})
				if err != nil {
					return goerr.Wrap(err, "failed to log in to backend", goerr.V("email", email))
				}
				ctx = backend.WithAccessToken(ctx, result.AccessToken)
			}

			reports := usecase.NewReports(backendClient, usecase.WithCatalog(catalog))
			report, err := reports.BuildReport(ctx, query)
			if err != nil {
				return err
			}
			if requireData && !report.HasHistorical {
				return goerr.New("no historical data for this filter",
					goerr.V("facility_id", query.FacilityID),
					goerr.V("window", report.WindowLabel),
					goerr.T(model.ErrTagEmptyResult))
			}

			w := io.Writer(os.Stdout)
			if output != "" {
				f, err := os.Create(output)
				if err != nil {
					return goerr.Wrap(err, "failed to create output file", goerr.V("path", output))
				}
				defer f.Close()
				w = f
			}

			if err := writeReport(w, report, format); err != nil {
				return err
			}

			logger.Info("Report written",
				slog.String("facility_id", facilityID),
				slog.String("window", report.WindowLabel),
				slog.String("format", format),
				slog.String("output", output),
			)
			return nil
		},
	}
}

func writeReport(w io.Writer, report *model.ReportModel, format string) error {
	switch format {
	case reportFormatXLSX:
		data, err := export.ReportXLSX(report)
		if err != nil {
			return err
		}
		if _, err := w.Write(data); err != nil {
			return goerr.Wrap(err, "failed to write report")
		}
		return nil

	default:
		encoder := json.NewEncoder(w)
		encoder.SetIndent("", "  ")
		if err := encoder.Encode(report); err != nil {
			return goerr.Wrap(err, "failed to encode report")
		}
		return nil
	}
}
