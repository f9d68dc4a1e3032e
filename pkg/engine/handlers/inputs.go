package handlers

import (
	"encoding/csv"
	"os"
	"path/filepath"
	"strings"

	"chainflow/api/pkg/engine"
)

// AddressInput seeds a workflow with a single configured blockchain address.
type AddressInput struct{}

func (h *AddressInput) NodeType() string { return "address_input" }

func (h *AddressInput) Execute(ec *engine.ExecutionContext, node *engine.Node, inputs map[string]any) (map[string]any, error) {
	var cfg struct {
		Address string `mapstructure:"address"`
		Asset   string `mapstructure:"asset"`
		Chain   string `mapstructure:"chain"`
	}
	if err := decodeConfig(node, &cfg); err != nil {
		return errOutput("invalid address_input config: %v", err), nil
	}
	if cfg.Address == "" {
		return errOutput("no address configured"), nil
	}

	out := map[string]any{
		"address":   cfg.Address,
		"addresses": []string{cfg.Address},
	}
	if cfg.Asset != "" {
		out["asset"] = cfg.Asset
	}
	if cfg.Chain != "" {
		out["chain"] = cfg.Chain
	}
	return out, nil
}

// TransactionInput seeds a workflow with a single configured transaction hash.
type TransactionInput struct{}

func (h *TransactionInput) NodeType() string { return "transaction_input" }

func (h *TransactionInput) Execute(ec *engine.ExecutionContext, node *engine.Node, inputs map[string]any) (map[string]any, error) {
	var cfg struct {
		Hash  string `mapstructure:"hash"`
		Asset string `mapstructure:"asset"`
	}
	if err := decodeConfig(node, &cfg); err != nil {
		return errOutput("invalid transaction_input config: %v", err), nil
	}
	if cfg.Hash == "" {
		return errOutput("no transaction hash configured"), nil
	}

	out := map[string]any{"hash": cfg.Hash}
	if cfg.Asset != "" {
		out["asset"] = cfg.Asset
	}
	return out, nil
}

// BatchAddressInput reads a batch of addresses from a file: the first column
// of a CSV, or one address per line otherwise. Blank lines and #-comments are
// skipped. An unreadable file is a business failure, not a run abort.
type BatchAddressInput struct{}

func (h *BatchAddressInput) NodeType() string { return "batch_address_input" }

func (h *BatchAddressInput) Execute(ec *engine.ExecutionContext, node *engine.Node, inputs map[string]any) (map[string]any, error) {
	var cfg struct {
		FilePath string `mapstructure:"file_path"`
		Asset    string `mapstructure:"asset"`
	}
	if err := decodeConfig(node, &cfg); err != nil {
		return errOutput("invalid batch_address_input config: %v", err), nil
	}
	if cfg.FilePath == "" {
		return errOutput("no file path configured"), nil
	}

	addresses, err := readEntriesFile(cfg.FilePath, "address")
	if err != nil {
		return errOutput("read address file: %v", err), nil
	}
	if len(addresses) == 0 {
		return errOutput("address file %s contains no addresses", cfg.FilePath), nil
	}

	ec.Log().Appendf("Loaded %d addresses from %s", len(addresses), cfg.FilePath)
	out := map[string]any{
		"addresses": addresses,
		"count":     len(addresses),
	}
	if cfg.Asset != "" {
		out["asset"] = cfg.Asset
	}
	return out, nil
}

// TransactionFileInput reads a batch of transaction hashes from a file, with
// the same format rules as BatchAddressInput.
type TransactionFileInput struct{}

func (h *TransactionFileInput) NodeType() string { return "transaction_file_input" }

func (h *TransactionFileInput) Execute(ec *engine.ExecutionContext, node *engine.Node, inputs map[string]any) (map[string]any, error) {
	var cfg struct {
		FilePath string `mapstructure:"file_path"`
		Asset    string `mapstructure:"asset"`
	}
	if err := decodeConfig(node, &cfg); err != nil {
		return errOutput("invalid transaction_file_input config: %v", err), nil
	}
	if cfg.FilePath == "" {
		return errOutput("no file path configured"), nil
	}

	hashes, err := readEntriesFile(cfg.FilePath, "hash")
	if err != nil {
		return errOutput("read transaction file: %v", err), nil
	}
	if len(hashes) == 0 {
		return errOutput("transaction file %s contains no hashes", cfg.FilePath), nil
	}

	ec.Log().Appendf("Loaded %d transaction hashes from %s", len(hashes), cfg.FilePath)
	out := map[string]any{
		"hashes": hashes,
		"count":  len(hashes),
	}
	if cfg.Asset != "" {
		out["asset"] = cfg.Asset
	}
	return out, nil
}

// readEntriesFile parses a batch input file. CSV files contribute their first
// column; anything else is treated as one entry per line. A header row whose
// first cell matches headerName is skipped, as are blanks and #-comments.
func readEntriesFile(path, headerName string) ([]string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var raw []string
	if strings.EqualFold(filepath.Ext(path), ".csv") {
		reader := csv.NewReader(strings.NewReader(string(data)))
		reader.FieldsPerRecord = -1
		records, err := reader.ReadAll()
		if err != nil {
			return nil, err
		}
		for _, record := range records {
			if len(record) > 0 {
				raw = append(raw, record[0])
			}
		}
	} else {
		raw = strings.Split(string(data), "\n")
	}

	entries := make([]string, 0, len(raw))
	for i, line := range raw {
		entry := strings.TrimSpace(line)
		if entry == "" || strings.HasPrefix(entry, "#") {
			continue
		}
		if i == 0 && strings.EqualFold(entry, headerName) {
			continue
		}
		entries = append(entries, entry)
	}
	return entries, nil
}

// Passthrough forwards its inputs unchanged, useful for fan-in joints on the
// canvas.
type Passthrough struct{}

func (h *Passthrough) NodeType() string { return "passthrough" }

func (h *Passthrough) Execute(ec *engine.ExecutionContext, node *engine.Node, inputs map[string]any) (map[string]any, error) {
	out := make(map[string]any, len(inputs))
	for k, v := range inputs {
		out[k] = v
	}
	return out, nil
}

// Logger writes a trace line into the execution log and forwards its inputs.
type Logger struct{}

func (h *Logger) NodeType() string { return "logger" }

func (h *Logger) Execute(ec *engine.ExecutionContext, node *engine.Node, inputs map[string]any) (map[string]any, error) {
	var cfg struct {
		Message string `mapstructure:"message"`
	}
	if err := decodeConfig(node, &cfg); err != nil {
		return errOutput("invalid logger config: %v", err), nil
	}

	message := cfg.Message
	if message == "" {
		message = "checkpoint"
	}
	ec.Log().Appendf("[%s] %s (%d inputs)", node.ID, message, len(inputs))

	out := make(map[string]any, len(inputs))
	for k, v := range inputs {
		out[k] = v
	}
	return out, nil
}
