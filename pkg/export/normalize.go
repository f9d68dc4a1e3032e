package export

import (
	"sort"
)

// bookkeepingKeys are excluded when folding scalar fields into a row.
var bookkeepingKeys = map[string]bool{
	"count": true,
	"error": true,
}

// Normalize converts a node's heterogeneous inputs into a uniform list of
// flat rows. Each provider's query node emits results under a different key,
// so resolution is a prioritized cascade, each strategy tried only when the
// previous produced nothing:
//
//  1. known list-valued keys on the "data" payload (balance_data,
//     cluster_info, counterparties_by_address flattened with the originating
//     address, counterparties, addresses);
//  2. any list of mappings found anywhere inside "data";
//  3. the scalar fields of "data" folded into a single row, excluding
//     bookkeeping keys;
//  4. the same strategies applied to the raw inputs when "data" yields
//     nothing;
//  5. as a last resort, one row built from all scalar input values.
//
// An empty or absent payload returns an empty list.
func Normalize(inputs map[string]any) []Row {
	if len(inputs) == 0 {
		return []Row{}
	}

	if data, ok := inputs["data"].(map[string]any); ok {
		if rows := extract(data); len(rows) > 0 {
			return rows
		}
	}

	if rows := extract(inputs); len(rows) > 0 {
		return rows
	}

	if row := foldAllScalars(inputs); len(row) > 0 {
		return []Row{row}
	}

	return []Row{}
}

// extract applies the known-keys, list-discovery, and scalar-fold strategies
// in priority order against one payload.
func extract(payload map[string]any) []Row {
	if rows := extractKnownKeys(payload); len(rows) > 0 {
		return rows
	}
	if rows := discoverList(payload); len(rows) > 0 {
		return rows
	}
	if row := foldScalars(payload); len(row) > 0 {
		return []Row{row}
	}
	return nil
}

// extractKnownKeys resolves the list keys the provider query nodes are known
// to emit, in priority order.
func extractKnownKeys(payload map[string]any) []Row {
	if rows := toRows(payload["balance_data"]); len(rows) > 0 {
		return rows
	}
	if rows := toRows(payload["cluster_info"]); len(rows) > 0 {
		return rows
	}
	if byAddress, ok := payload["counterparties_by_address"].(map[string]any); ok {
		if rows := flattenByAddress(byAddress); len(rows) > 0 {
			return rows
		}
	}
	if rows := toRows(payload["counterparties"]); len(rows) > 0 {
		return rows
	}
	if addresses, ok := payload["addresses"].([]any); ok {
		rows := make([]Row, 0, len(addresses))
		for _, addr := range addresses {
			rows = append(rows, Row{"address": addr})
		}
		if len(rows) > 0 {
			return rows
		}
	}
	if addresses, ok := payload["addresses"].([]string); ok {
		rows := make([]Row, 0, len(addresses))
		for _, addr := range addresses {
			rows = append(rows, Row{"address": addr})
		}
		if len(rows) > 0 {
			return rows
		}
	}
	return nil
}

// flattenByAddress turns {address: [counterparty, ...]} into a flat list,
// each counterparty row tagged with its originating address. Addresses are
// visited in sorted order so output is deterministic.
func flattenByAddress(byAddress map[string]any) []Row {
	addresses := make([]string, 0, len(byAddress))
	for addr := range byAddress {
		addresses = append(addresses, addr)
	}
	sort.Strings(addresses)

	var rows []Row
	for _, addr := range addresses {
		for _, row := range toRows(byAddress[addr]) {
			tagged := make(Row, len(row)+1)
			for k, v := range row {
				tagged[k] = v
			}
			tagged["address"] = addr
			rows = append(rows, tagged)
		}
	}
	return rows
}

// discoverList finds the first list of mappings anywhere in the payload,
// walking keys in sorted order and recursing into nested maps.
func discoverList(payload map[string]any) []Row {
	keys := make([]string, 0, len(payload))
	for key := range payload {
		keys = append(keys, key)
	}
	sort.Strings(keys)

	// Direct hits first, then nested maps.
	for _, key := range keys {
		if rows := toRows(payload[key]); len(rows) > 0 {
			return rows
		}
	}
	for _, key := range keys {
		if nested, ok := payload[key].(map[string]any); ok {
			if rows := discoverList(nested); len(rows) > 0 {
				return rows
			}
		}
	}
	return nil
}

// foldScalars folds scalar fields into one row, excluding bookkeeping keys
// and internal markers.
func foldScalars(payload map[string]any) Row {
	row := make(Row)
	for key, value := range payload {
		if bookkeepingKeys[key] || len(key) > 0 && key[0] == '_' {
			continue
		}
		if isScalar(value) {
			row[key] = value
		}
	}
	return row
}

// foldAllScalars is the last-resort strategy: every scalar input value in
// one row.
func foldAllScalars(inputs map[string]any) Row {
	row := make(Row)
	for key, value := range inputs {
		if isScalar(value) {
			row[key] = value
		}
	}
	return row
}

func isScalar(value any) bool {
	switch value.(type) {
	case nil, map[string]any, []any, []map[string]any, []Row, []string:
		return false
	default:
		return true
	}
}

// toRows converts the supported list shapes into rows.
func toRows(value any) []Row {
	switch list := value.(type) {
	case []Row:
		return list
	case []map[string]any:
		rows := make([]Row, 0, len(list))
		for _, item := range list {
			rows = append(rows, Row(item))
		}
		return rows
	case []any:
		rows := make([]Row, 0, len(list))
		for _, item := range list {
			m, ok := item.(map[string]any)
			if !ok {
				return nil
			}
			rows = append(rows, Row(m))
		}
		return rows
	default:
		return nil
	}
}
