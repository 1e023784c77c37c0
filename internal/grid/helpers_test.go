package grid

import "testing"

var statusOptions = []string{"", "Accept", "Reject", "KIV", "Rework"}

// Column indices of testLayout.
const (
	colLot = iota
	colPosition
	colWeight
	colWidth
	colRemark
	colStatus
	colInspector
)

func testLayout(t *testing.T) *Layout {
	t.Helper()
	layout, err := NewLayout("test", []Column{
		{Key: "lot", Label: "Lot No.", Kind: MergedIdentity},
		{Key: "position", Label: "Roll Position", Kind: Position},
		{Key: "weight", Label: "Roll Weight", Kind: Decimal, Precision: 2},
		{Key: "width", Label: "Width", Kind: Integer},
		{Key: "remark", Label: "Remark", Kind: FreeText},
		{Key: "status", Label: "Status", Kind: Enum, Options: statusOptions, Companion: "position"},
		{Key: "inspector", Label: "Inspected By", Kind: MergedIdentity},
	})
	if err != nil {
		t.Fatalf("NewLayout: %v", err)
	}
	return layout
}

func secondaryLayout(t *testing.T) *Layout {
	t.Helper()
	layout, err := NewLayout("secondary", []Column{
		{Key: "sample", Label: "Sample No.", Kind: Mirror, Source: "remark"},
		{Key: "position", Label: "Position", Kind: Position},
		{Key: "r1", Label: "Reading 1", Kind: Decimal, Precision: 1, NoAggregate: true},
		{Key: "r2", Label: "Reading 2", Kind: Decimal, Precision: 1, NoAggregate: true},
		{Key: "ave", Label: "Ave", Kind: Computed, Precision: 1, Sources: []string{"r1", "r2"}},
	})
	if err != nil {
		t.Fatalf("NewLayout: %v", err)
	}
	return layout
}

func mustSet(t *testing.T, g *Grid, pos Pos, text string) string {
	t.Helper()
	value, ok := g.Set(pos, text)
	if !ok {
		t.Fatalf("Set(%+v, %q) rejected", pos, text)
	}
	return value
}

// mergedSpans returns the row span of each merged cell in a lot's view.
func mergedSpans(g *Grid, lot int) []int {
	view := g.View()
	var spans []int
	if lot >= len(view.Lots) || len(view.Lots[lot].Rows) == 0 {
		return spans
	}
	for _, cell := range view.Lots[lot].Rows[0].Cells {
		if g.Layout().Merged(cell.Col) {
			spans = append(spans, cell.RowSpan)
		}
	}
	return spans
}
