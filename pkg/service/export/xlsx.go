package export

import (
	"github.com/m-mizutani/goerr/v2"
	"github.com/upawatch/upawatch/pkg/domain/model"
	"github.com/xuri/excelize/v2"
)

// Sheet names of the exported workbook
const (
	SheetSummary       = "Resumo"
	SheetDistribution  = "Classificação"
	SheetWaitTimes     = "Tempo de espera"
	SheetNeighborhoods = "Bairros"
	SheetComparison    = "Comparativo"

	defaultSheet = "Sheet1"
	timeLayout   = "2006-01-02 15:04:05"
)

// ContentType is the MIME type of the exported workbook
const ContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

// ReportXLSX renders a report as an XLSX workbook. Sections absent from the report get no sheet.
func ReportXLSX(report *model.ReportModel) ([]byte, error) {
	if report == nil {
		return nil, goerr.New("report is required")
	}

	f := excelize.NewFile()
	defer func() { _ = f.Close() }()

	w := &workbook{file: f}
	if err := w.init(); err != nil {
		return nil, err
	}

	w.summary(report)
	if len(report.Distribution) > 0 {
		w.distribution(report)
	}
	if len(report.WaitTimes) > 0 {
		w.waitTimes(report.WaitTimes)
	}
	if len(report.Neighborhoods) > 0 {
		w.neighborhoods(report.Neighborhoods)
	}
	if report.Comparison != nil {
		w.comparison(report.Comparison)
	}
	if w.err != nil {
		return nil, w.err
	}

	if err := f.DeleteSheet(defaultSheet); err != nil {
		return nil, goerr.Wrap(err, "failed to delete default sheet")
	}
	if idx, err := f.GetSheetIndex(SheetSummary); err == nil && idx >= 0 {
		f.SetActiveSheet(idx)
	}

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, goerr.Wrap(err, "failed to write workbook")
	}
	return buf.Bytes(), nil
}

// workbook keeps the first error so sheet builders stay linear
type workbook struct {
	file        *excelize.File
	headerStyle int
	err         error
}

func (w *workbook) init() error {
	style, err := w.file.NewStyle(&excelize.Style{
		Font: &excelize.Font{Bold: true},
		Fill: excelize.Fill{
			Type:    "pattern",
			Color:   []string{"#E6F3FF"},
			Pattern: 1,
		},
		Border: []excelize.Border{
			{Type: "left", Color: "000000", Style: 1},
			{Type: "top", Color: "000000", Style: 1},
			{Type: "bottom", Color: "000000", Style: 1},
			{Type: "right", Color: "000000", Style: 1},
		},
		Alignment: &excelize.Alignment{Horizontal: "center", Vertical: "center"},
	})
	if err != nil {
		return goerr.Wrap(err, "failed to create header style")
	}
	w.headerStyle = style
	return nil
}

func (w *workbook) sheet(name string, header []string, widths []float64) {
	if w.err != nil {
		return
	}
	if _, err := w.file.NewSheet(name); err != nil {
		w.err = goerr.Wrap(err, "failed to create sheet", goerr.V("sheet", name))
		return
	}
	for i, width := range widths {
		col, err := excelize.ColumnNumberToName(i + 1)
		if err != nil {
			w.err = goerr.Wrap(err, "failed to convert column number", goerr.V("sheet", name))
			return
		}
		if err := w.file.SetColWidth(name, col, col, width); err != nil {
			w.err = goerr.Wrap(err, "failed to set column width", goerr.V("sheet", name))
			return
		}
	}
	if len(header) == 0 {
		return
	}

	w.row(name, 1, toRow(header))
	last, err := excelize.CoordinatesToCellName(len(header), 1)
	if err != nil {
		w.err = goerr.Wrap(err, "failed to resolve header range", goerr.V("sheet", name))
		return
	}
	if err := w.file.SetCellStyle(name, "A1", last, w.headerStyle); err != nil {
		w.err = goerr.Wrap(err, "failed to style header", goerr.V("sheet", name))
	}
}

func (w *workbook) row(sheet string, n int, values []any) {
	if w.err != nil {
		return
	}
	cell, err := excelize.CoordinatesToCellName(1, n)
	if err != nil {
		w.err = goerr.Wrap(err, "failed to convert coordinates", goerr.V("row", n))
		return
	}
	if err := w.file.SetSheetRow(sheet, cell, &values); err != nil {
		w.err = goerr.Wrap(err, "failed to write row",
			goerr.V("sheet", sheet),
			goerr.V("row", n))
	}
}

func toRow(values []string) []any {
	row := make([]any, len(values))
	for i, v := range values {
		row[i] = v
	}
	return row
}

func (w *workbook) summary(report *model.ReportModel) {
	w.sheet(SheetSummary, nil, []float64{28, 40})

	rows := [][]any{
		{"Gerado em", report.GeneratedAt.Format(timeLayout)},
	}
	if f := report.Facility; f != nil {
		rows = append(rows,
			[]any{"Unidade", f.Name},
			[]any{"ID", f.ID.String()},
		)
		if f.Neighborhood != "" {
			rows = append(rows, []any{"Bairro", f.Neighborhood})
		}
		if f.Address != "" {
			rows = append(rows, []any{"Endereço", f.Address})
		}
	}
	if report.WindowLabel != "" {
		rows = append(rows, []any{"Período", report.WindowLabel})
	}
	if report.HasHistorical {
		rows = append(rows, []any{"Total no período", report.HistoricalTotal})
	}
	if live := report.Live; live != nil {
		rows = append(rows,
			[]any{"Pacientes aguardando", live.TotalPatients},
			[]any{"Aguardando triagem", live.AwaitingTriage},
			[]any{"Lotação", live.Occupancy.String()},
			[]any{"Espera média", live.FormattedWait},
			[]any{"Nível", live.Marker.Tier.String()},
			[]any{"Atualizado em", live.LastUpdated.Format(timeLayout)},
		)
		if live.Stale {
			rows = append(rows, []any{"Situação", "Desatualizado"})
		}
		for _, c := range model.Classifications() {
			stat := live.Classes[c.Code]
			rows = append(rows, []any{c.Label, stat.Count})
		}
	}

	for i, r := range rows {
		w.row(SheetSummary, i+1, r)
	}
}

func (w *workbook) distribution(report *model.ReportModel) {
	w.sheet(SheetDistribution, []string{"Classificação", "Código", "Pacientes", "Percentual (%)"}, []float64{22, 14, 12, 16})
	for i, d := range report.Distribution {
		w.row(SheetDistribution, i+2, []any{d.Label, d.Code.String(), d.Count, d.Percentage})
	}
	w.row(SheetDistribution, len(report.Distribution)+2, []any{"Total", "", report.HistoricalTotal, 100.0})
}

func (w *workbook) waitTimes(waits []model.ClassWaitTime) {
	w.sheet(SheetWaitTimes, []string{"Classificação", "Código", "Espera média (min)", "Espera"}, []float64{22, 14, 20, 16})
	for i, wt := range waits {
		w.row(SheetWaitTimes, i+2, []any{wt.Label, wt.Code.String(), wt.AverageWaitMinutes, wt.FormattedWait})
	}
}

func (w *workbook) neighborhoods(stats []model.NeighborhoodStat) {
	w.sheet(SheetNeighborhoods, []string{"#", "Bairro", "Pacientes", "Percentual (%)", "Espera média (min)"}, []float64{6, 28, 12, 16, 20})
	for i, n := range stats {
		w.row(SheetNeighborhoods, i+2, []any{i + 1, n.Name, n.PatientCount, n.PercentageOfTotal, n.AverageWaitMinutes})
	}
}

func (w *workbook) comparison(c *model.ComparisonTriple) {
	header := []string{"Período", "Total", "Espera média (min)"}
	for _, cls := range model.Classifications() {
		header = append(header, cls.Label)
	}
	w.sheet(SheetComparison, header, []float64{18, 10, 20})

	periods := []struct {
		label  string
		period model.ComparisonPeriod
	}{
		{"Últimas 24h", c.Last24h},
		{"Hoje", c.Today},
		{"Ontem", c.Yesterday},
	}
	for i, p := range periods {
		row := []any{p.label, p.period.Total, p.period.AverageWaitMinutes}
		for _, cls := range model.Classifications() {
			row = append(row, p.period.ByClass[cls.Code])
		}
		w.row(SheetComparison, i+2, row)
	}
	if c.DayOverDayChange != nil {
		w.row(SheetComparison, len(periods)+3, []any{"Variação diária (%)", *c.DayOverDayChange})
	}
}
