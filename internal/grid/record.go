package grid

import (
	"encoding/json"
	"errors"
	"fmt"
)

var ErrMalformedRecord = errors.New("malformed grid record")

type CellRecord struct {
	Text      string `json:"text"`
	RowSpan   int    `json:"rowSpan"`
	ColSpan   int    `json:"colSpan"`
	IsEnum    bool   `json:"isEnum"`
	EnumValue string `json:"enumValue"`
}

type LotRecord struct {
	ID   string         `json:"id"`
	Rows [][]CellRecord `json:"rows"`
}

// Record is the durable form of a grid: per lot, per row, the materialized
// cells in visual order.
type Record struct {
	Grid   string      `json:"grid"`
	Layout string      `json:"layout"`
	Lots   []LotRecord `json:"lots"`
}

type RestoreOptions struct {
	// MaxRows drops serialized rows beyond this count. Zero keeps them all.
	MaxRows int
}

func Serialize(g *Grid) Record {
	rec := Record{Grid: g.Name(), Lots: []LotRecord{}}
	if !g.structured() {
		return rec
	}
	rec.Layout = g.layout.Name
	for l := range g.lots {
		rec.Lots = append(rec.Lots, g.lotRecord(l))
	}
	return rec
}

// SerializeLot captures a single lot, as sent by its explicit save.
func SerializeLot(g *Grid, lot int) (LotRecord, bool) {
	if !g.structured() || lot < 0 || lot >= len(g.lots) {
		return LotRecord{}, false
	}
	return g.lotRecord(lot), true
}

func (g *Grid) lotRecord(l int) LotRecord {
	lot := g.lots[l]
	out := LotRecord{ID: lot.ID, Rows: make([][]CellRecord, 0, len(lot.Rows))}
	for r := range lot.Rows {
		cells := g.viewCells(lot, r)
		row := make([]CellRecord, len(cells))
		for i, cell := range cells {
			row[i] = CellRecord{
				Text:      cell.Text,
				RowSpan:   cell.RowSpan,
				ColSpan:   cell.ColSpan,
				IsEnum:    cell.IsEnum,
				EnumValue: cell.EnumValue,
			}
		}
		out.Rows = append(out.Rows, row)
	}
	return out
}

// Restore rebuilds a grid from a record. Every value passes through the
// column's input filter again, missing cells start from column defaults and
// spans are recomputed rather than trusted.
func Restore(name string, layout *Layout, rec Record, opts RestoreOptions) *Grid {
	g := New(name, layout)
	if layout == nil {
		return g
	}
	full := make([]int, layout.Len())
	var partial []int
	for c := range full {
		full[c] = c
		if !layout.Merged(c) {
			partial = append(partial, c)
		}
	}
	remaining := opts.MaxRows
	for l, lr := range rec.Lots {
		if opts.MaxRows > 0 && remaining <= 0 {
			break
		}
		lot := g.newLot()
		if lr.ID != "" {
			lot.ID = lr.ID
		}
		for r, cells := range lr.Rows {
			if opts.MaxRows > 0 && remaining <= 0 {
				break
			}
			remaining--
			order := partial
			if r == 0 || len(cells) >= layout.Len() {
				order = full
			}
			row := g.newRow()
			for i, c := range order {
				if i >= len(cells) {
					break
				}
				value := restoredValue(layout.Column(c), cells[i])
				if layout.Merged(c) {
					lot.Shared[c] = value
					continue
				}
				row.Cells[c] = value
			}
			lot.Rows = append(lot.Rows, row)
		}
		if len(lot.Rows) == 0 && l > 0 {
			continue
		}
		g.renumber(lot)
		g.lots = append(g.lots, lot)
	}
	g.structural()
	return g
}

func restoredValue(col Column, cell CellRecord) string {
	if col.Kind == Enum {
		if cell.IsEnum {
			return canonicalOption(col, cell.EnumValue)
		}
		return canonicalOption(col, cell.Text)
	}
	return Sanitize(col, cell.Text)
}

// DecodeRecord reads a stored record. It accepts the current envelope, the
// older bare array of tables and the single-table {"dynamicRows": [...]}
// form; individual fields of the wrong type decode as empty. Only input that
// is not a JSON object or array is an error.
func DecodeRecord(data []byte) (Record, error) {
	var raw any
	if err := json.Unmarshal(data, &raw); err != nil {
		return Record{}, fmt.Errorf("decode grid record: %w", err)
	}
	var rec Record
	switch value := raw.(type) {
	case map[string]any:
		rec.Grid = stringField(value, "grid")
		rec.Layout = stringField(value, "layout")
		lots, _ := value["lots"].([]any)
		for _, lot := range lots {
			rec.Lots = append(rec.Lots, decodeLot(lot))
		}
		if rows, ok := value["dynamicRows"].([]any); ok {
			rec.Lots = append(rec.Lots, decodeLot(rows))
		}
	case []any:
		for _, table := range value {
			rec.Lots = append(rec.Lots, decodeLot(table))
		}
	default:
		return Record{}, fmt.Errorf("decode grid record: %w", ErrMalformedRecord)
	}
	return rec, nil
}

func decodeLot(raw any) LotRecord {
	var lot LotRecord
	var rows []any
	switch value := raw.(type) {
	case map[string]any:
		lot.ID = stringField(value, "id")
		rows, _ = value["rows"].([]any)
	case []any:
		rows = value
	}
	for _, row := range rows {
		lot.Rows = append(lot.Rows, decodeRow(row))
	}
	return lot
}

func decodeRow(raw any) []CellRecord {
	var cells []any
	switch value := raw.(type) {
	case []any:
		cells = value
	case map[string]any:
		cells, _ = value["cells"].([]any)
	}
	out := make([]CellRecord, 0, len(cells))
	for _, cell := range cells {
		out = append(out, decodeCell(cell))
	}
	return out
}

func decodeCell(raw any) CellRecord {
	cell := CellRecord{RowSpan: 1, ColSpan: 1}
	switch value := raw.(type) {
	case string:
		cell.Text = value
	case map[string]any:
		cell.Text = stringField(value, "text")
		cell.RowSpan = spanField(value, "rowSpan", "rowspan")
		cell.ColSpan = spanField(value, "colSpan", "colspan")
		cell.IsEnum = boolField(value, "isEnum", "isDropdown")
		cell.EnumValue = stringField(value, "enumValue", "dropdownValue")
	}
	return cell
}

func stringField(m map[string]any, keys ...string) string {
	for _, key := range keys {
		if s, ok := m[key].(string); ok {
			return s
		}
	}
	return ""
}

func boolField(m map[string]any, keys ...string) bool {
	for _, key := range keys {
		if b, ok := m[key].(bool); ok {
			return b
		}
	}
	return false
}

func spanField(m map[string]any, keys ...string) int {
	for _, key := range keys {
		if n, ok := m[key].(float64); ok && n >= 1 && n < 1<<16 {
			return int(n)
		}
	}
	return 1
}
