package export

import (
	"reflect"
	"testing"
)

func TestNormalize(t *testing.T) {
	t.Parallel()

	t.Run("balance data list passes through", func(t *testing.T) {
		t.Parallel()

		inputs := map[string]any{
			"data": map[string]any{
				"balance_data": []map[string]any{
					{"address": "bc1qxyz", "balance": 1.5},
					{"address": "bc1qabc", "balance": 0.25},
				},
				"count": 2,
			},
		}

		rows := Normalize(inputs)
		if len(rows) != 2 {
			t.Fatalf("expected 2 rows, got %d", len(rows))
		}
		if rows[0]["address"] != "bc1qxyz" || rows[1]["balance"] != 0.25 {
			t.Errorf("rows do not match source list: %v", rows)
		}
	})

	t.Run("address list becomes one row per address", func(t *testing.T) {
		t.Parallel()

		inputs := map[string]any{
			"data": map[string]any{
				"addresses": []any{"bc1qxyz", "bc1qabc", "bc1qdef"},
			},
		}

		rows := Normalize(inputs)
		if len(rows) != 3 {
			t.Fatalf("expected 3 rows, got %d", len(rows))
		}
		for i, want := range []string{"bc1qxyz", "bc1qabc", "bc1qdef"} {
			if rows[i]["address"] != want {
				t.Errorf("row %d: address = %v, want %s", i, rows[i]["address"], want)
			}
		}
	})

	t.Run("counterparties by address are flattened and tagged", func(t *testing.T) {
		t.Parallel()

		inputs := map[string]any{
			"data": map[string]any{
				"counterparties_by_address": map[string]any{
					"addrB": []any{map[string]any{"name": "Exchange Two"}},
					"addrA": []any{
						map[string]any{"name": "Exchange One"},
						map[string]any{"name": "Mixer"},
					},
				},
			},
		}

		rows := Normalize(inputs)
		if len(rows) != 3 {
			t.Fatalf("expected 3 rows, got %d", len(rows))
		}
		// Addresses visited in sorted order, counterparties in list order.
		want := []Row{
			{"name": "Exchange One", "address": "addrA"},
			{"name": "Mixer", "address": "addrA"},
			{"name": "Exchange Two", "address": "addrB"},
		}
		for i := range want {
			if !reflect.DeepEqual(rows[i], want[i]) {
				t.Errorf("row %d = %v, want %v", i, rows[i], want[i])
			}
		}
	})

	t.Run("nested list is discovered", func(t *testing.T) {
		t.Parallel()

		inputs := map[string]any{
			"data": map[string]any{
				"result": map[string]any{
					"items": []any{
						map[string]any{"hash": "0x1"},
						map[string]any{"hash": "0x2"},
					},
				},
			},
		}

		rows := Normalize(inputs)
		if len(rows) != 2 {
			t.Fatalf("expected 2 rows, got %d", len(rows))
		}
		if rows[1]["hash"] != "0x2" {
			t.Errorf("unexpected rows: %v", rows)
		}
	})

	t.Run("scalar payload folds into one row", func(t *testing.T) {
		t.Parallel()

		inputs := map[string]any{
			"data": map[string]any{
				"address": "bc1qxyz",
				"balance": 3.14,
				"count":   1,
				"error":   "",
				"_cache":  "internal",
			},
		}

		rows := Normalize(inputs)
		if len(rows) != 1 {
			t.Fatalf("expected 1 row, got %d", len(rows))
		}
		row := rows[0]
		if row["address"] != "bc1qxyz" || row["balance"] != 3.14 {
			t.Errorf("scalar fields missing: %v", row)
		}
		for _, key := range []string{"count", "error", "_cache"} {
			if _, ok := row[key]; ok {
				t.Errorf("bookkeeping key %q must be excluded", key)
			}
		}
	})

	t.Run("falls back to raw inputs when data yields nothing", func(t *testing.T) {
		t.Parallel()

		inputs := map[string]any{
			"data":    map[string]any{"count": 0},
			"results": []any{map[string]any{"address": "bc1qxyz"}},
		}

		rows := Normalize(inputs)
		if len(rows) != 1 || rows[0]["address"] != "bc1qxyz" {
			t.Fatalf("expected fallback to raw inputs, got %v", rows)
		}
	})

	t.Run("last resort folds all scalars", func(t *testing.T) {
		t.Parallel()

		rows := Normalize(map[string]any{"label": "solo", "score": 9})
		if len(rows) != 1 {
			t.Fatalf("expected 1 row, got %d", len(rows))
		}
		if rows[0]["label"] != "solo" || rows[0]["score"] != 9 {
			t.Errorf("unexpected row: %v", rows[0])
		}
	})

	t.Run("empty input is an empty list", func(t *testing.T) {
		t.Parallel()

		if rows := Normalize(nil); len(rows) != 0 {
			t.Errorf("nil input: got %v", rows)
		}
		if rows := Normalize(map[string]any{}); len(rows) != 0 {
			t.Errorf("empty input: got %v", rows)
		}
	})
}

func TestColumns(t *testing.T) {
	t.Parallel()

	rows := []Row{
		{"b": 1, "a": 2},
		{"c": 3, "a": 4},
	}

	got := Columns(rows)
	want := []string{"a", "b", "c"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("Columns = %v, want %v", got, want)
	}
}
