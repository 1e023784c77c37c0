package export

import (
	"bytes"
	"embed"
	"html/template"
	"time"
)

//go:embed templates/*.html
var templateFS embed.FS

var sheetTemplate = template.Must(template.ParseFS(templateFS, "templates/sheet.html"))

type pageData struct {
	Title       string
	Subtitle    string
	GeneratedAt time.Time
	Grids       []tableData
}

type tableData struct {
	Table
	Width   int
	Summary [][]summaryCell
}

type summaryCell struct {
	Text string
	Span int
}

// RenderSheetHTML renders the printable page used for PDF export.
func RenderSheetHTML(doc Document) (string, error) {
	data := pageData{Title: doc.Title, Subtitle: doc.Subtitle, GeneratedAt: doc.GeneratedAt}
	if data.GeneratedAt.IsZero() {
		data.GeneratedAt = time.Now()
	}
	for _, table := range doc.Grids {
		data.Grids = append(data.Grids, newTableData(table))
	}

	var buf bytes.Buffer
	if err := sheetTemplate.ExecuteTemplate(&buf, "sheet.html", data); err != nil {
		return "", err
	}
	return buf.String(), nil
}

func newTableData(table Table) tableData {
	td := tableData{Table: table}
	for _, col := range table.View.Columns {
		td.Width += max(col.ColSpan, 1)
	}
	if len(table.View.Aggregates) == 0 || len(table.View.Columns) == 0 {
		return td
	}

	values := map[int][3]string{}
	for _, agg := range table.View.Aggregates {
		values[agg.Col] = [3]string{agg.Average, agg.Minimum, agg.Maximum}
	}
	for i, label := range []string{"Average", "Minimum", "Maximum"} {
		row := make([]summaryCell, 0, len(table.View.Columns))
		for c, col := range table.View.Columns {
			cell := summaryCell{Span: max(col.ColSpan, 1)}
			if v, ok := values[c]; ok {
				cell.Text = v[i]
			} else if c == 0 {
				cell.Text = label
			}
			row = append(row, cell)
		}
		td.Summary = append(td.Summary, row)
	}
	return td
}
