package grid

// ViewCell is one materialized cell. Merged cells appear once per lot, on its
// first row, spanning every row of the lot.
type ViewCell struct {
	Col            int            `json:"col"`
	Key            string         `json:"key"`
	Text           string         `json:"text"`
	RowSpan        int            `json:"rowSpan"`
	ColSpan        int            `json:"colSpan"`
	IsEnum         bool           `json:"isEnum,omitempty"`
	EnumValue      string         `json:"enumValue,omitempty"`
	ReadOnly       bool           `json:"readOnly,omitempty"`
	Classification Classification `json:"classification,omitempty"`
	Style          *Style         `json:"style,omitempty"`
}

type ViewRow struct {
	Position int        `json:"position"`
	Cells    []ViewCell `json:"cells"`
}

type ViewLot struct {
	ID           string    `json:"id"`
	ExplicitSave bool      `json:"explicitSave"`
	Rows         []ViewRow `json:"rows"`
}

type View struct {
	Name         string      `json:"name"`
	Layout       string      `json:"layout"`
	Columns      []Column    `json:"columns"`
	Lots         []ViewLot   `json:"lots"`
	Aggregates   []Aggregate `json:"aggregates"`
	CanCreateLot bool        `json:"canCreateLot"`
	Locks        []string    `json:"locks,omitempty"`
}

// View projects the grid into rows of materialized cells.
func (g *Grid) View() View {
	view := View{Name: g.Name(), Lots: []ViewLot{}, Aggregates: g.Aggregates(), CanCreateLot: g.CanCreateLot()}
	if !g.structured() {
		return view
	}
	view.Layout = g.layout.Name
	view.Columns = g.layout.Columns()
	view.Locks = g.Locks()
	for l := range g.lots {
		view.Lots = append(view.Lots, g.viewLot(l))
	}
	return view
}

func (g *Grid) viewLot(l int) ViewLot {
	lot := g.lots[l]
	out := ViewLot{ID: lot.ID, ExplicitSave: lot.ExplicitSave, Rows: make([]ViewRow, 0, len(lot.Rows))}
	for r := range lot.Rows {
		out.Rows = append(out.Rows, ViewRow{Position: lot.Rows[r].Position, Cells: g.viewCells(lot, r)})
	}
	return out
}

func (g *Grid) viewCells(lot *Lot, r int) []ViewCell {
	cells := make([]ViewCell, 0, g.layout.Len())
	styled := map[int]Classification{}
	for c := 0; c < g.layout.Len(); c++ {
		col := g.layout.Column(c)
		if col.Kind != Enum {
			continue
		}
		class := Classify(lot.Rows[r].Cells[c])
		if class == None {
			continue
		}
		styled[c] = class
		if idx, ok := g.layout.Index(col.Companion); ok && col.Companion != "" {
			styled[idx] = class
		}
	}
	for c := 0; c < g.layout.Len(); c++ {
		col := g.layout.Column(c)
		merged := col.Kind == MergedIdentity
		if merged && r > 0 {
			continue
		}
		cell := ViewCell{Col: c, Key: col.Key, RowSpan: 1, ColSpan: col.ColSpan, ReadOnly: !col.Editable()}
		if merged {
			cell.Text = lot.Shared[c]
			cell.RowSpan = len(lot.Rows)
		} else {
			cell.Text = lot.Rows[r].Cells[c]
		}
		if col.Kind == Enum {
			cell.IsEnum = true
			cell.EnumValue = cell.Text
		}
		if class, ok := styled[c]; ok {
			style := class.Style()
			cell.Classification = class
			cell.Style = &style
		}
		cells = append(cells, cell)
	}
	return cells
}
