package export

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/xuri/excelize/v2"
)

// WriteCSV writes rows as CSV. The header is the union of column keys across
// all rows; missing fields render as blank cells, so heterogeneous rows never
// error.
func WriteCSV(rows []Row, opts Options) (*Result, error) {
	if len(rows) == 0 {
		return nil, ErrNoData
	}

	path, err := opts.resolvePath("csv")
	if err != nil {
		return nil, err
	}

	f, err := os.Create(path)
	if err != nil {
		return nil, fmt.Errorf("create csv file: %w", err)
	}
	defer f.Close()

	columns := Columns(rows)

	w := csv.NewWriter(f)
	if err := w.Write(columns); err != nil {
		return nil, fmt.Errorf("write csv header: %w", err)
	}
	record := make([]string, len(columns))
	for _, row := range rows {
		for i, col := range columns {
			record[i] = cellString(row[col])
		}
		if err := w.Write(record); err != nil {
			return nil, fmt.Errorf("write csv row: %w", err)
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return nil, fmt.Errorf("flush csv: %w", err)
	}

	return &Result{FilePath: path, RowsWritten: len(rows), Format: "csv"}, nil
}

// WriteJSON writes rows as a JSON array.
func WriteJSON(rows []Row, opts Options) (*Result, error) {
	if len(rows) == 0 {
		return nil, ErrNoData
	}

	path, err := opts.resolvePath("json")
	if err != nil {
		return nil, err
	}

	f, err := os.Create(path)
	if err != nil {
		return nil, fmt.Errorf("create json file: %w", err)
	}
	defer f.Close()

	enc := json.NewEncoder(f)
	enc.SetIndent("", "  ")
	if err := enc.Encode(rows); err != nil {
		return nil, fmt.Errorf("encode json: %w", err)
	}

	return &Result{FilePath: path, RowsWritten: len(rows), Format: "json"}, nil
}

// WriteText writes rows as aligned key/value blocks, one block per row.
func WriteText(rows []Row, opts Options) (*Result, error) {
	if len(rows) == 0 {
		return nil, ErrNoData
	}

	path, err := opts.resolvePath("txt")
	if err != nil {
		return nil, err
	}

	columns := Columns(rows)
	width := 0
	for _, col := range columns {
		if len(col) > width {
			width = len(col)
		}
	}

	var b strings.Builder
	for i, row := range rows {
		fmt.Fprintf(&b, "--- Record %d ---\n", i+1)
		for _, col := range columns {
			value, ok := row[col]
			if !ok {
				continue
			}
			fmt.Fprintf(&b, "%-*s  %s\n", width, col, cellString(value))
		}
		b.WriteString("\n")
	}

	if err := os.WriteFile(path, []byte(b.String()), 0o644); err != nil {
		return nil, fmt.Errorf("write text file: %w", err)
	}

	return &Result{FilePath: path, RowsWritten: len(rows), Format: "txt"}, nil
}

// WriteExcel writes rows to a single-sheet workbook using the same column
// union as CSV. Non-scalar cells are serialized to strings. If the workbook
// cannot be written, export degrades to the CSV path with a logged warning
// rather than failing.
func WriteExcel(rows []Row, opts Options) (*Result, error) {
	if len(rows) == 0 {
		return nil, ErrNoData
	}

	path, err := opts.resolvePath("xlsx")
	if err != nil {
		return nil, err
	}

	result, err := writeWorkbook(rows, path)
	if err != nil {
		slog.Warn("excel export failed; falling back to CSV", "error", err)
		csvOpts := opts
		if csvOpts.Path != "" {
			csvOpts.Path = strings.TrimSuffix(csvOpts.Path, ".xlsx") + ".csv"
		}
		return WriteCSV(rows, csvOpts)
	}
	return result, nil
}

func writeWorkbook(rows []Row, path string) (*Result, error) {
	wb := excelize.NewFile()
	defer wb.Close()

	const sheet = "Sheet1"
	columns := Columns(rows)

	header := make([]any, len(columns))
	for i, col := range columns {
		header[i] = col
	}
	if err := wb.SetSheetRow(sheet, "A1", &header); err != nil {
		return nil, fmt.Errorf("write header row: %w", err)
	}

	for i, row := range rows {
		cells := make([]any, len(columns))
		for j, col := range columns {
			value := row[col]
			if value == nil {
				continue
			}
			switch value.(type) {
			case string, bool, int, int32, int64, float32, float64:
				cells[j] = value
			default:
				cells[j] = cellString(value)
			}
		}
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return nil, fmt.Errorf("compute cell name: %w", err)
		}
		if err := wb.SetSheetRow(sheet, cell, &cells); err != nil {
			return nil, fmt.Errorf("write row %d: %w", i+1, err)
		}
	}

	if err := wb.SaveAs(path); err != nil {
		return nil, fmt.Errorf("save workbook: %w", err)
	}

	return &Result{FilePath: path, RowsWritten: len(rows), Format: "xlsx"}, nil
}
