package export

import (
	"fmt"
	"strings"

	"github.com/xuri/excelize/v2"

	"inspection/api/internal/grid"
)

const xlsxMime = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

// exportXLSX writes one worksheet per grid. Merged cells keep their row and
// column spans, classified cells keep their fill, and the aggregate rows
// follow the data.
func exportXLSX(doc Document) (*Result, error) {
	f := excelize.NewFile()
	defer f.Close()

	headerStyle, err := f.NewStyle(&excelize.Style{
		Font:      &excelize.Font{Bold: true},
		Fill:      excelize.Fill{Type: "pattern", Color: []string{"#D3D3D3"}, Pattern: 1},
		Alignment: &excelize.Alignment{Horizontal: "center", Vertical: "center", WrapText: true},
	})
	if err != nil {
		return nil, fmt.Errorf("create header style: %w", err)
	}
	summaryStyle, err := f.NewStyle(&excelize.Style{
		Font: &excelize.Font{Bold: true},
		Fill: excelize.Fill{Type: "pattern", Color: []string{"#E2E8F0"}, Pattern: 1},
	})
	if err != nil {
		return nil, fmt.Errorf("create summary style: %w", err)
	}
	w := &xlsxWriter{f: f, header: headerStyle, summary: summaryStyle, fills: map[grid.Style]int{}}

	used := map[string]bool{}
	for i, table := range doc.Grids {
		name := worksheetName(table, i, used)
		if i == 0 {
			if err := f.SetSheetName("Sheet1", name); err != nil {
				return nil, fmt.Errorf("name worksheet: %w", err)
			}
		} else if _, err := f.NewSheet(name); err != nil {
			return nil, fmt.Errorf("create worksheet %s: %w", name, err)
		}
		if err := w.writeTable(name, table.View); err != nil {
			return nil, fmt.Errorf("write worksheet %s: %w", name, err)
		}
	}

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, fmt.Errorf("write workbook: %w", err)
	}
	return &Result{
		Data:     buf.Bytes(),
		Filename: sanitizeFilename(doc.Title) + ".xlsx",
		MimeType: xlsxMime,
	}, nil
}

type xlsxWriter struct {
	f       *excelize.File
	header  int
	summary int
	fills   map[grid.Style]int
}

func (w *xlsxWriter) writeTable(sheet string, view grid.View) error {
	starts := make([]int, len(view.Columns))
	next := 1
	for i, col := range view.Columns {
		starts[i] = next
		next += max(col.ColSpan, 1)
	}

	for i, col := range view.Columns {
		if err := w.put(sheet, starts[i], 1, col.Label, 1, col.ColSpan, w.header); err != nil {
			return err
		}
	}
	if err := w.f.SetColWidth(sheet, "A", columnName(max(next-1, 1)), 14); err != nil {
		return err
	}

	row := 2
	for l, lot := range view.Lots {
		if l > 0 {
			row++
		}
		for _, vr := range lot.Rows {
			for _, cell := range vr.Cells {
				style := 0
				if cell.Style != nil {
					id, err := w.fill(*cell.Style)
					if err != nil {
						return err
					}
					style = id
				}
				if err := w.put(sheet, starts[cell.Col], row, cell.Text, cell.RowSpan, cell.ColSpan, style); err != nil {
					return err
				}
			}
			row++
		}
	}

	if len(view.Aggregates) == 0 {
		return nil
	}
	row++
	labels := []string{"Average", "Minimum", "Maximum"}
	for i, label := range labels {
		if err := w.put(sheet, 1, row+i, label, 1, 1, w.summary); err != nil {
			return err
		}
	}
	for _, agg := range view.Aggregates {
		span := view.Columns[agg.Col].ColSpan
		for i, value := range []string{agg.Average, agg.Minimum, agg.Maximum} {
			if err := w.put(sheet, starts[agg.Col], row+i, value, 1, span, w.summary); err != nil {
				return err
			}
		}
	}
	return nil
}

// put writes text at (col, row) and merges the span it covers.
func (w *xlsxWriter) put(sheet string, col, row int, text string, rowSpan, colSpan, style int) error {
	rowSpan, colSpan = max(rowSpan, 1), max(colSpan, 1)
	topLeft, err := excelize.CoordinatesToCellName(col, row)
	if err != nil {
		return err
	}
	bottomRight, err := excelize.CoordinatesToCellName(col+colSpan-1, row+rowSpan-1)
	if err != nil {
		return err
	}
	if err := w.f.SetCellValue(sheet, topLeft, text); err != nil {
		return err
	}
	if topLeft != bottomRight {
		if err := w.f.MergeCell(sheet, topLeft, bottomRight); err != nil {
			return err
		}
	}
	if style != 0 {
		return w.f.SetCellStyle(sheet, topLeft, bottomRight, style)
	}
	return nil
}

func (w *xlsxWriter) fill(s grid.Style) (int, error) {
	if id, ok := w.fills[s]; ok {
		return id, nil
	}
	id, err := w.f.NewStyle(&excelize.Style{
		Font: &excelize.Font{Bold: true, Color: expandHex(s.Foreground)},
		Fill: excelize.Fill{Type: "pattern", Color: []string{expandHex(s.Background)}, Pattern: 1},
	})
	if err != nil {
		return 0, fmt.Errorf("create fill style: %w", err)
	}
	w.fills[s] = id
	return id, nil
}

// expandHex turns "#fff" into "#FFFFFF".
func expandHex(color string) string {
	hex := strings.TrimPrefix(color, "#")
	if len(hex) == 3 {
		hex = string([]byte{hex[0], hex[0], hex[1], hex[1], hex[2], hex[2]})
	}
	return "#" + strings.ToUpper(hex)
}

func columnName(col int) string {
	name, err := excelize.ColumnNumberToName(col)
	if err != nil {
		return "A"
	}
	return name
}

// worksheetName picks a unique sheet name within Excel's 31 character limit.
func worksheetName(table Table, i int, used map[string]bool) string {
	name := table.Title
	if name == "" {
		name = table.View.Name
	}
	name = strings.Map(func(r rune) rune {
		if strings.ContainsRune(`[]:*?/\`, r) {
			return '-'
		}
		return r
	}, name)
	if runes := []rune(name); len(runes) > 31 {
		name = string(runes[:31])
	}
	if name == "" || used[name] {
		name = fmt.Sprintf("Grid %d", i+1)
	}
	used[name] = true
	return name
}
