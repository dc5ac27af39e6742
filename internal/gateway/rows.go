package gateway

import (
	"database/sql"
	"fmt"
)

// Column describes one result column, used by GetSchema (component J's
// columnar RPC schema-introspection call).
type Column struct {
	Name     string `json:"name"`
	DBType   string `json:"db_type"`
	Nullable bool   `json:"nullable"`
}

// Schema returns the column list for an already-executed *sql.Rows,
// without consuming any row data.
func Schema(rows *sql.Rows) ([]Column, error) {
	types, err := rows.ColumnTypes()
	if err != nil {
		return nil, fmt.Errorf("reading column types: %w", err)
	}
	out := make([]Column, len(types))
	for i, ct := range types {
		nullable, _ := ct.Nullable()
		out[i] = Column{Name: ct.Name(), DBType: ct.DatabaseTypeName(), Nullable: nullable}
	}
	return out, nil
}

// ScanRowsToMaps decodes every remaining row of rows into a
// column-name-keyed map, for ad-hoc SQL whose result shape isn't known
// ahead of time (unlike a registered view's fixed row struct). The HTTP-JSON
// gateway uses it; the columnar server's Execute handler builds the same
// column-name-keyed maps itself, batch by batch, so both emit the same
// JSON row shape.
func ScanRowsToMaps(rows *sql.Rows) ([]map[string]any, error) {
	cols, err := rows.Columns()
	if err != nil {
		return nil, fmt.Errorf("reading columns: %w", err)
	}
	var out []map[string]any
	for rows.Next() {
		vals := make([]any, len(cols))
		ptrs := make([]any, len(cols))
		for i := range vals {
			ptrs[i] = &vals[i]
		}
		if err := rows.Scan(ptrs...); err != nil {
			return nil, fmt.Errorf("scanning row: %w", err)
		}
		row := make(map[string]any, len(cols))
		for i, c := range cols {
			row[c] = vals[i]
		}
		out = append(out, row)
	}
	return out, rows.Err()
}
