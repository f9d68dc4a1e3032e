package handlers

import (
	"errors"

	"chainflow/api/pkg/engine"
	"chainflow/api/pkg/export"
)

// ExportHandler normalizes a node's inputs into rows and writes them in the
// configured format. Zero rows is a business failure ("No data to export"),
// not a run abort; so is a writer failure.
type ExportHandler struct {
	format    string
	outputDir string
}

func (h *ExportHandler) NodeType() string { return h.format + "_export" }

func (h *ExportHandler) Execute(ec *engine.ExecutionContext, node *engine.Node, inputs map[string]any) (map[string]any, error) {
	var cfg struct {
		FilePath  string `mapstructure:"file_path"`
		Filename  string `mapstructure:"filename"`
		OutputDir string `mapstructure:"output_dir"`
	}
	if err := decodeConfig(node, &cfg); err != nil {
		return errOutput("invalid %s config: %v", h.NodeType(), err), nil
	}

	rows := export.Normalize(inputs)

	opts := export.Options{
		OutputDir:   h.outputDir,
		Path:        cfg.FilePath,
		DefaultName: cfg.Filename,
	}
	if cfg.OutputDir != "" {
		opts.OutputDir = cfg.OutputDir
	}
	if opts.DefaultName == "" {
		opts.DefaultName = node.ID
	}

	result, err := h.write(rows, opts)
	if err != nil {
		if errors.Is(err, export.ErrNoData) {
			return errOutput("No data to export"), nil
		}
		return errOutput("%s export failed: %v", h.format, err), nil
	}

	ec.Log().Appendf("Exported %d rows to %s", result.RowsWritten, result.FilePath)
	return map[string]any{
		"file_path":    result.FilePath,
		"rows_written": result.RowsWritten,
		"format":       result.Format,
	}, nil
}

func (h *ExportHandler) write(rows []export.Row, opts export.Options) (*export.Result, error) {
	switch h.format {
	case "csv":
		return export.WriteCSV(rows, opts)
	case "json":
		return export.WriteJSON(rows, opts)
	case "excel":
		return export.WriteExcel(rows, opts)
	case "text":
		return export.WriteText(rows, opts)
	case "pdf":
		return export.WriteTemplatePDF(rows, opts)
	default:
		return nil, errors.New("unsupported export format " + h.format)
	}
}
