package export

import (
	"fmt"
	"log/slog"
	"sort"
	"time"

	"github.com/go-pdf/fpdf"
)

// reportKind classifies rows so the template renderer can pick a section
// layout suited to the data shape.
type reportKind int

const (
	reportGeneric reportKind = iota
	reportCluster
	reportBalance
	reportCounterparties
	reportTransactions
	reportExposure
)

func (k reportKind) title() string {
	switch k {
	case reportCluster:
		return "Cluster Attribution Report"
	case reportBalance:
		return "Balance Report"
	case reportCounterparties:
		return "Counterparty Analysis"
	case reportTransactions:
		return "Transaction Report"
	case reportExposure:
		return "Exposure Breakdown"
	default:
		return "Intelligence Report"
	}
}

// classifyRows inspects the first row's keys to choose a report template.
func classifyRows(rows []Row) reportKind {
	if len(rows) == 0 {
		return reportGeneric
	}
	row := rows[0]
	has := func(keys ...string) bool {
		for _, key := range keys {
			if _, ok := row[key]; ok {
				return true
			}
		}
		return false
	}

	switch {
	case has("exposure", "exposure_usd", "exposureUsd") && has("category", "service", "name"):
		return reportExposure
	case has("counterparty", "counterparty_name") || (has("address") && has("transfer_count", "transferCount") && has("name")):
		return reportCounterparties
	case has("hash", "transaction_hash", "tx_hash"):
		return reportTransactions
	case has("balance", "total_received", "totalReceived"):
		return reportBalance
	case has("cluster_name", "clusterName", "root_address", "rootAddress"):
		return reportCluster
	default:
		return reportGeneric
	}
}

// WriteTemplatePDF renders rows through a report template chosen by data
// shape. Any template failure falls back to the procedural report so the
// export node still produces an artifact.
func WriteTemplatePDF(rows []Row, opts Options) (*Result, error) {
	if len(rows) == 0 {
		return nil, ErrNoData
	}

	result, err := writeTemplatePDF(rows, opts)
	if err != nil {
		slog.Warn("template report failed; falling back to procedural report", "error", err)
		return WritePDF(rows, opts)
	}
	return result, nil
}

func writeTemplatePDF(rows []Row, opts Options) (result *Result, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("template renderer panicked: %v", r)
		}
	}()

	path, err := opts.resolvePath("pdf")
	if err != nil {
		return nil, err
	}

	kind := classifyRows(rows)

	pdf := fpdf.New("P", "mm", "A4", "")
	pdf.SetAutoPageBreak(true, 15)
	pdf.AddPage()

	pdf.SetFont("Helvetica", "B", 22)
	pdf.CellFormat(0, 12, kind.title(), "", 1, "L", false, 0, "")
	pdf.SetFont("Helvetica", "", 10)
	pdf.CellFormat(0, 6, fmt.Sprintf("Generated %s - %d records", time.Now().Format("2 Jan 2006 15:04"), len(rows)), "", 1, "L", false, 0, "")
	pdf.Ln(6)

	switch kind {
	case reportExposure:
		renderExposureSection(pdf, rows)
	case reportCounterparties:
		renderRankedSection(pdf, rows, "Counterparties", "name", "exposure")
	case reportTransactions:
		renderRankedSection(pdf, rows, "Transactions", "hash", "amount")
	case reportBalance, reportCluster:
		renderCardSection(pdf, rows)
	default:
		renderCardSection(pdf, rows)
	}

	if err := pdf.OutputFileAndClose(path); err != nil {
		return nil, fmt.Errorf("write template pdf: %w", err)
	}
	if pdf.Err() {
		return nil, fmt.Errorf("template pdf: %w", pdf.Error())
	}

	return &Result{FilePath: path, RowsWritten: len(rows), Format: "pdf"}, nil
}

// renderExposureSection lists exposure rows largest-first with a simple
// proportional bar per row.
func renderExposureSection(pdf *fpdf.Fpdf, rows []Row) {
	type entry struct {
		label string
		value float64
	}

	entries := make([]entry, 0, len(rows))
	maxValue := 0.0
	for _, row := range rows {
		label := firstString(row, "category", "service", "name")
		value, _ := firstFloat(row, "exposure", "exposure_usd", "exposureUsd", "value")
		entries = append(entries, entry{label: label, value: value})
		if value > maxValue {
			maxValue = value
		}
	}
	sort.SliceStable(entries, func(i, j int) bool { return entries[i].value > entries[j].value })

	pdf.SetFont("Helvetica", "B", 14)
	pdf.CellFormat(0, 9, "Exposure by Source", "", 1, "L", false, 0, "")
	pdf.Ln(2)

	for _, e := range entries {
		pdf.SetFont("Helvetica", "", 10)
		pdf.CellFormat(70, 7, truncate(e.label, 32), "", 0, "L", false, 0, "")
		pdf.CellFormat(35, 7, fmt.Sprintf("%.2f", e.value), "", 0, "R", false, 0, "")

		barWidth := 0.0
		if maxValue > 0 {
			barWidth = 70 * e.value / maxValue
		}
		pdf.SetFillColor(70, 110, 180)
		pdf.Rect(pdf.GetX()+5, pdf.GetY()+1.5, barWidth, 4, "F")
		pdf.Ln(-1)
	}
}

// renderRankedSection renders a two-column ranked list, sorted by the value
// key when present.
func renderRankedSection(pdf *fpdf.Fpdf, rows []Row, heading, labelKey, valueKey string) {
	sorted := make([]Row, len(rows))
	copy(sorted, rows)
	sort.SliceStable(sorted, func(i, j int) bool {
		a, _ := firstFloat(sorted[i], valueKey, "amount", "exposure", "transfer_count")
		b, _ := firstFloat(sorted[j], valueKey, "amount", "exposure", "transfer_count")
		return a > b
	})

	pdf.SetFont("Helvetica", "B", 14)
	pdf.CellFormat(0, 9, heading, "", 1, "L", false, 0, "")
	pdf.Ln(2)

	limit := len(sorted)
	if limit > pdfMaxTableRows {
		limit = pdfMaxTableRows
	}
	for i := 0; i < limit; i++ {
		row := sorted[i]
		label := firstString(row, labelKey, "name", "address", "hash")
		value, hasValue := firstFloat(row, valueKey, "amount", "exposure", "transfer_count")

		pdf.SetFont("Helvetica", "B", 10)
		pdf.CellFormat(10, 7, fmt.Sprintf("%d.", i+1), "", 0, "R", false, 0, "")
		pdf.SetFont("Helvetica", "", 10)
		pdf.CellFormat(110, 7, truncate(label, 52), "", 0, "L", false, 0, "")
		if hasValue {
			pdf.CellFormat(0, 7, fmt.Sprintf("%.4f", value), "", 1, "R", false, 0, "")
		} else {
			pdf.Ln(-1)
		}
	}
}

// renderCardSection renders each row as a labelled key/value card.
func renderCardSection(pdf *fpdf.Fpdf, rows []Row) {
	limit := len(rows)
	if limit > pdfMaxTableRows {
		limit = pdfMaxTableRows
	}

	for i := 0; i < limit; i++ {
		row := rows[i]
		heading := firstString(row, "address", "cluster_name", "name")
		if heading == "" {
			heading = fmt.Sprintf("Record %d", i+1)
		}

		pdf.SetFont("Helvetica", "B", 12)
		pdf.CellFormat(0, 8, truncate(heading, 70), "B", 1, "L", false, 0, "")
		pdf.SetFont("Helvetica", "", 10)

		keys := make([]string, 0, len(row))
		for key := range row {
			keys = append(keys, key)
		}
		sort.Strings(keys)
		for _, key := range keys {
			pdf.CellFormat(55, 6, key, "", 0, "L", false, 0, "")
			pdf.CellFormat(0, 6, truncate(cellString(row[key]), 85), "", 1, "L", false, 0, "")
		}
		pdf.Ln(4)
	}
}

func firstString(row Row, keys ...string) string {
	for _, key := range keys {
		if s, ok := row[key].(string); ok && s != "" {
			return s
		}
	}
	return ""
}

func firstFloat(row Row, keys ...string) (float64, bool) {
	for _, key := range keys {
		if v, ok := toFloat(row[key]); ok {
			return v, true
		}
	}
	return 0, false
}
