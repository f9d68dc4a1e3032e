package export

import (
	"encoding/csv"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"testing"

	"github.com/xuri/excelize/v2"
)

func TestWriteCSV(t *testing.T) {
	t.Parallel()

	t.Run("heterogeneous rows get a union header", func(t *testing.T) {
		t.Parallel()

		rows := []Row{{"a": 1}, {"b": 2}}
		path := filepath.Join(t.TempDir(), "out.csv")

		result, err := WriteCSV(rows, Options{Path: path})
		if err != nil {
			t.Fatalf("WriteCSV: %v", err)
		}
		if result.RowsWritten != 2 || result.Format != "csv" {
			t.Errorf("unexpected result: %+v", result)
		}

		f, err := os.Open(path)
		if err != nil {
			t.Fatalf("open output: %v", err)
		}
		defer f.Close()

		records, err := csv.NewReader(f).ReadAll()
		if err != nil {
			t.Fatalf("read csv: %v", err)
		}
		want := [][]string{{"a", "b"}, {"1", ""}, {"", "2"}}
		if !reflect.DeepEqual(records, want) {
			t.Errorf("csv content = %v, want %v", records, want)
		}
	})

	t.Run("no rows returns ErrNoData", func(t *testing.T) {
		t.Parallel()

		_, err := WriteCSV(nil, Options{Path: filepath.Join(t.TempDir(), "out.csv")})
		if !errors.Is(err, ErrNoData) {
			t.Errorf("err = %v, want ErrNoData", err)
		}
	})

	t.Run("default name is timestamped in the output dir", func(t *testing.T) {
		t.Parallel()

		dir := t.TempDir()
		result, err := WriteCSV([]Row{{"a": 1}}, Options{OutputDir: dir, DefaultName: "balances"})
		if err != nil {
			t.Fatalf("WriteCSV: %v", err)
		}
		matches, err := filepath.Glob(filepath.Join(dir, "balances_*.csv"))
		if err != nil || len(matches) != 1 {
			t.Fatalf("expected one generated file, got %v (err %v)", matches, err)
		}
		if result.FilePath != matches[0] {
			t.Errorf("FilePath = %s, want %s", result.FilePath, matches[0])
		}
	})
}

func TestWriteJSON(t *testing.T) {
	t.Parallel()

	rows := []Row{{"address": "bc1qxyz", "balance": 1.5}}
	path := filepath.Join(t.TempDir(), "out.json")

	if _, err := WriteJSON(rows, Options{Path: path}); err != nil {
		t.Fatalf("WriteJSON: %v", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read output: %v", err)
	}
	var decoded []map[string]any
	if err := json.Unmarshal(data, &decoded); err != nil {
		t.Fatalf("unmarshal output: %v", err)
	}
	if len(decoded) != 1 || decoded[0]["balance"] != 1.5 || decoded[0]["address"] != "bc1qxyz" {
		t.Errorf("round trip mismatch: %v", decoded)
	}
}

func TestWriteText(t *testing.T) {
	t.Parallel()

	rows := []Row{{"address": "bc1qxyz"}, {"address": "bc1qabc"}}
	path := filepath.Join(t.TempDir(), "out.txt")

	if _, err := WriteText(rows, Options{Path: path}); err != nil {
		t.Fatalf("WriteText: %v", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read output: %v", err)
	}
	text := string(data)
	for _, want := range []string{"--- Record 1 ---", "--- Record 2 ---", "bc1qxyz", "bc1qabc"} {
		if !strings.Contains(text, want) {
			t.Errorf("output missing %q:\n%s", want, text)
		}
	}
}

func TestWriteExcel(t *testing.T) {
	t.Parallel()

	rows := []Row{
		{"address": "bc1qxyz", "balance": 1.5},
		{"address": "bc1qabc", "balance": 0.25},
	}
	path := filepath.Join(t.TempDir(), "out.xlsx")

	result, err := WriteExcel(rows, Options{Path: path})
	if err != nil {
		t.Fatalf("WriteExcel: %v", err)
	}
	if result.Format != "xlsx" {
		t.Fatalf("expected xlsx output, got %s", result.Format)
	}

	wb, err := excelize.OpenFile(path)
	if err != nil {
		t.Fatalf("open workbook: %v", err)
	}
	defer wb.Close()

	cells, err := wb.GetRows("Sheet1")
	if err != nil {
		t.Fatalf("read sheet: %v", err)
	}
	if len(cells) != 3 {
		t.Fatalf("expected header + 2 rows, got %d", len(cells))
	}
	if cells[0][0] != "address" || cells[0][1] != "balance" {
		t.Errorf("unexpected header: %v", cells[0])
	}
	if cells[1][0] != "bc1qxyz" {
		t.Errorf("unexpected first row: %v", cells[1])
	}
}

func TestWritePDF(t *testing.T) {
	t.Parallel()

	rows := []Row{
		{"address": "bc1qxyz", "balance": 1.5, "category": "exchange"},
		{"address": "bc1qabc", "balance": 0.25, "category": "mixer"},
		{"address": "bc1qdef", "balance": 2.0, "category": "exchange"},
	}
	path := filepath.Join(t.TempDir(), "report.pdf")

	result, err := WritePDF(rows, Options{Path: path})
	if err != nil {
		t.Fatalf("WritePDF: %v", err)
	}
	if result.RowsWritten != 3 {
		t.Errorf("RowsWritten = %d, want 3", result.RowsWritten)
	}

	info, err := os.Stat(path)
	if err != nil {
		t.Fatalf("stat output: %v", err)
	}
	if info.Size() == 0 {
		t.Error("pdf file is empty")
	}
}

func TestWriteTemplatePDF(t *testing.T) {
	t.Parallel()

	rows := []Row{
		{"category": "sanctions", "exposure": 1200.0},
		{"category": "exchange", "exposure": 90000.0},
	}
	path := filepath.Join(t.TempDir(), "exposure.pdf")

	result, err := WriteTemplatePDF(rows, Options{Path: path})
	if err != nil {
		t.Fatalf("WriteTemplatePDF: %v", err)
	}
	if result.Format != "pdf" {
		t.Errorf("Format = %s, want pdf", result.Format)
	}
	if _, err := os.Stat(path); err != nil {
		t.Errorf("stat output: %v", err)
	}
}

func TestClassifyRows(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name string
		rows []Row
		want reportKind
	}{
		{"exposure", []Row{{"category": "sanctions", "exposure": 1.0}}, reportExposure},
		{"transactions", []Row{{"hash": "0x1", "amount": 2.0}}, reportTransactions},
		{"balance", []Row{{"address": "a", "balance": 1.0}}, reportBalance},
		{"cluster", []Row{{"cluster_name": "Exchange", "root_address": "a"}}, reportCluster},
		{"generic", []Row{{"anything": "x"}}, reportGeneric},
		{"empty", nil, reportGeneric},
	}

	for _, tc := range cases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			if got := classifyRows(tc.rows); got != tc.want {
				t.Errorf("classifyRows = %v, want %v", got, tc.want)
			}
		})
	}
}
