package export

import (
	"bytes"
	"fmt"
	"log/slog"
	"sort"
	"time"

	"github.com/go-pdf/fpdf"
	"github.com/wcharczuk/go-chart/v2"
)

// Truncation limits for the tabular section of PDF reports.
const (
	pdfMaxTableRows = 50
	pdfMaxTableCols = 8
	pdfMaxCardRows  = 5
)

// summaryStats are the aggregates shown on the executive summary page.
type summaryStats struct {
	TotalBalance      float64
	TotalTransfers    int
	DistinctAddresses int
	HighRiskCount     int
}

// WritePDF builds the procedural report: cover page, executive summary with
// aggregate stats, an auto-selected chart, key-value cards for the first few
// rows, and a truncated table. Chart generation failures degrade to a report
// without a chart.
func WritePDF(rows []Row, opts Options) (*Result, error) {
	if len(rows) == 0 {
		return nil, ErrNoData
	}

	path, err := opts.resolvePath("pdf")
	if err != nil {
		return nil, err
	}

	pdf := fpdf.New("P", "mm", "A4", "")
	pdf.SetAutoPageBreak(true, 15)

	writeCoverPage(pdf, len(rows))
	writeSummaryPage(pdf, rows)
	writeCards(pdf, rows)
	writeTable(pdf, rows)

	if err := pdf.OutputFileAndClose(path); err != nil {
		return nil, fmt.Errorf("write pdf: %w", err)
	}

	return &Result{FilePath: path, RowsWritten: len(rows), Format: "pdf"}, nil
}

func writeCoverPage(pdf *fpdf.Fpdf, rowCount int) {
	pdf.AddPage()
	pdf.SetFont("Helvetica", "B", 28)
	pdf.Ln(60)
	pdf.CellFormat(0, 14, "Blockchain Intelligence Report", "", 1, "C", false, 0, "")
	pdf.SetFont("Helvetica", "", 12)
	pdf.Ln(8)
	pdf.CellFormat(0, 8, fmt.Sprintf("Generated %s", time.Now().Format("2 Jan 2006 15:04 MST")), "", 1, "C", false, 0, "")
	pdf.CellFormat(0, 8, fmt.Sprintf("%d records", rowCount), "", 1, "C", false, 0, "")
}

func writeSummaryPage(pdf *fpdf.Fpdf, rows []Row) {
	stats := computeStats(rows)

	pdf.AddPage()
	pdf.SetFont("Helvetica", "B", 18)
	pdf.CellFormat(0, 10, "Executive Summary", "", 1, "L", false, 0, "")
	pdf.Ln(4)

	pdf.SetFont("Helvetica", "", 12)
	writeStatLine(pdf, "Total balance", fmt.Sprintf("%.4f", stats.TotalBalance))
	writeStatLine(pdf, "Total transfers", fmt.Sprintf("%d", stats.TotalTransfers))
	writeStatLine(pdf, "Distinct addresses", fmt.Sprintf("%d", stats.DistinctAddresses))
	writeStatLine(pdf, "High-risk records", fmt.Sprintf("%d", stats.HighRiskCount))
	pdf.Ln(6)

	image, err := renderChart(rows)
	if err != nil {
		slog.Warn("chart generation failed; report continues without chart", "error", err)
		return
	}
	pdf.RegisterImageOptionsReader("summary-chart", fpdf.ImageOptions{ImageType: "PNG"}, bytes.NewReader(image))
	pdf.ImageOptions("summary-chart", 25, pdf.GetY(), 160, 0, true, fpdf.ImageOptions{ImageType: "PNG"}, 0, "")
}

func writeStatLine(pdf *fpdf.Fpdf, label, value string) {
	pdf.SetFont("Helvetica", "B", 12)
	pdf.CellFormat(60, 8, label, "", 0, "L", false, 0, "")
	pdf.SetFont("Helvetica", "", 12)
	pdf.CellFormat(0, 8, value, "", 1, "L", false, 0, "")
}

func writeCards(pdf *fpdf.Fpdf, rows []Row) {
	pdf.AddPage()
	pdf.SetFont("Helvetica", "B", 18)
	pdf.CellFormat(0, 10, "Record Details", "", 1, "L", false, 0, "")
	pdf.Ln(2)

	limit := len(rows)
	if limit > pdfMaxCardRows {
		limit = pdfMaxCardRows
	}

	for i := 0; i < limit; i++ {
		pdf.SetFont("Helvetica", "B", 12)
		pdf.CellFormat(0, 8, fmt.Sprintf("Record %d", i+1), "B", 1, "L", false, 0, "")
		pdf.SetFont("Helvetica", "", 10)

		keys := make([]string, 0, len(rows[i]))
		for key := range rows[i] {
			keys = append(keys, key)
		}
		sort.Strings(keys)
		for _, key := range keys {
			pdf.CellFormat(50, 6, key, "", 0, "L", false, 0, "")
			pdf.CellFormat(0, 6, truncate(cellString(rows[i][key]), 90), "", 1, "L", false, 0, "")
		}
		pdf.Ln(4)
	}
}

func writeTable(pdf *fpdf.Fpdf, rows []Row) {
	columns := Columns(rows)
	if len(columns) > pdfMaxTableCols {
		columns = columns[:pdfMaxTableCols]
	}
	if len(columns) == 0 {
		return
	}

	pdf.AddPage()
	pdf.SetFont("Helvetica", "B", 18)
	pdf.CellFormat(0, 10, "Data", "", 1, "L", false, 0, "")
	pdf.Ln(2)

	colWidth := 190.0 / float64(len(columns))

	pdf.SetFont("Helvetica", "B", 9)
	for _, col := range columns {
		pdf.CellFormat(colWidth, 7, truncate(col, 18), "1", 0, "L", true, 0, "")
	}
	pdf.Ln(-1)

	limit := len(rows)
	if limit > pdfMaxTableRows {
		limit = pdfMaxTableRows
	}

	pdf.SetFont("Helvetica", "", 8)
	for i := 0; i < limit; i++ {
		for _, col := range columns {
			pdf.CellFormat(colWidth, 6, truncate(cellString(rows[i][col]), 18), "1", 0, "L", false, 0, "")
		}
		pdf.Ln(-1)
	}

	if len(rows) > limit {
		pdf.Ln(2)
		pdf.SetFont("Helvetica", "I", 9)
		pdf.CellFormat(0, 6, fmt.Sprintf("Showing %d of %d rows", limit, len(rows)), "", 1, "L", false, 0, "")
	}
}

// computeStats derives the executive-summary aggregates from the rows.
func computeStats(rows []Row) summaryStats {
	var stats summaryStats
	addresses := make(map[string]bool)

	for _, row := range rows {
		for _, key := range []string{"balance", "balanceUsd", "balance_usd"} {
			if v, ok := toFloat(row[key]); ok {
				stats.TotalBalance += v
				break
			}
		}
		for _, key := range []string{"transfer_count", "transferCount"} {
			if v, ok := toFloat(row[key]); ok {
				stats.TotalTransfers += int(v)
				break
			}
		}
		if addr, ok := row["address"].(string); ok && addr != "" {
			addresses[addr] = true
		}
		if isHighRisk(row) {
			stats.HighRiskCount++
		}
	}

	stats.DistinctAddresses = len(addresses)
	return stats
}

func isHighRisk(row Row) bool {
	if sanctioned, ok := row["is_sanctioned"].(bool); ok && sanctioned {
		return true
	}
	if sanctioned, ok := row["isSanctioned"].(bool); ok && sanctioned {
		return true
	}
	for _, key := range []string{"risk_score", "riskScore"} {
		if score, ok := toFloat(row[key]); ok && score >= 75 {
			return true
		}
	}
	if category, ok := row["category"].(string); ok {
		switch category {
		case "sanctions", "darknet market", "ransomware", "terrorist financing":
			return true
		}
	}
	return false
}

// renderChart picks a chart for the rows (pie for categorical
// distributions, bar otherwise) and renders it to PNG bytes.
func renderChart(rows []Row) (image []byte, err error) {
	// go-chart panics on some degenerate inputs; degrade instead of aborting
	// the report.
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("chart renderer panicked: %v", r)
		}
	}()

	if values := categoricalDistribution(rows); len(values) > 1 {
		pie := chart.PieChart{Width: 512, Height: 512, Values: values}
		var buf bytes.Buffer
		if err := pie.Render(chart.PNG, &buf); err != nil {
			return nil, fmt.Errorf("render pie chart: %w", err)
		}
		return buf.Bytes(), nil
	}

	if bars := numericBars(rows); len(bars) > 0 {
		barChart := chart.BarChart{Width: 512, Height: 384, BarWidth: 30, Bars: bars}
		var buf bytes.Buffer
		if err := barChart.Render(chart.PNG, &buf); err != nil {
			return nil, fmt.Errorf("render bar chart: %w", err)
		}
		return buf.Bytes(), nil
	}

	return nil, fmt.Errorf("no chartable column found")
}

// categoricalDistribution looks for a low-cardinality string column and
// returns its value counts; the "category" column is preferred.
func categoricalDistribution(rows []Row) []chart.Value {
	candidates := []string{"category"}
	for _, col := range Columns(rows) {
		if col != "category" {
			candidates = append(candidates, col)
		}
	}

	for _, col := range candidates {
		counts := make(map[string]int)
		total := 0
		for _, row := range rows {
			if s, ok := row[col].(string); ok && s != "" {
				counts[s]++
				total++
			}
		}
		if len(counts) < 2 || len(counts) > 8 || total < len(rows)/2 {
			continue
		}

		labels := make([]string, 0, len(counts))
		for label := range counts {
			labels = append(labels, label)
		}
		sort.Strings(labels)

		values := make([]chart.Value, 0, len(labels))
		for _, label := range labels {
			values = append(values, chart.Value{Label: label, Value: float64(counts[label])})
		}
		return values
	}
	return nil
}

// numericBars returns up to 12 bars from the first numeric column.
func numericBars(rows []Row) []chart.Value {
	for _, col := range Columns(rows) {
		var bars []chart.Value
		for i, row := range rows {
			v, ok := toFloat(row[col])
			if !ok {
				continue
			}
			label := fmt.Sprintf("#%d", i+1)
			if addr, ok := row["address"].(string); ok && addr != "" {
				label = truncate(addr, 8)
			}
			bars = append(bars, chart.Value{Label: label, Value: v})
			if len(bars) == 12 {
				break
			}
		}
		if len(bars) > 0 {
			return bars
		}
	}
	return nil
}

func toFloat(v any) (float64, bool) {
	switch v := v.(type) {
	case float64:
		return v, true
	case float32:
		return float64(v), true
	case int:
		return float64(v), true
	case int64:
		return float64(v), true
	default:
		return 0, false
	}
}

func truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	if max <= 3 {
		return s[:max]
	}
	return s[:max-3] + "..."
}
