package grid

import (
	"math/rand"
	"strconv"
	"testing"
)

func TestAddRowsThenDeleteLeavesOneRow(t *testing.T) {
	g := New("primary", testLayout(t))
	if lot := g.AddRows(2, 0); lot != 0 {
		t.Fatalf("expected rows added to lot 0, got %d", lot)
	}
	if !g.DeleteLastRow(0) {
		t.Fatal("expected a row to be deleted")
	}
	if g.TotalRows() != 1 {
		t.Fatalf("expected 1 row, got %d", g.TotalRows())
	}
	for _, span := range mergedSpans(g, 0) {
		if span != 1 {
			t.Fatalf("expected merged span 1, got %d", span)
		}
	}
}

func TestAddRowsCountDefaults(t *testing.T) {
	g := New("primary", testLayout(t))
	g.AddRows(0, 0)
	g.AddRows(-4, 0)
	if g.TotalRows() != 2 {
		t.Fatalf("expected non-positive counts to add one row each, got %d", g.TotalRows())
	}
}

func TestAddRowsGrowsExistingMergedCells(t *testing.T) {
	g := New("primary", testLayout(t))
	g.AddRows(2, 0)
	mustSet(t, g, Pos{Row: 0, Col: colLot}, "l-42")
	g.AddRows(3, 0)

	view := g.View()
	if len(view.Lots) != 1 || len(view.Lots[0].Rows) != 5 {
		t.Fatalf("expected a single lot of 5 rows, got %+v", view.Lots)
	}
	first := view.Lots[0].Rows[0].Cells
	if len(first) != 7 {
		t.Fatalf("expected 7 cells on the first row, got %d", len(first))
	}
	if first[colLot].Text != "L-42" || first[colLot].RowSpan != 5 {
		t.Fatalf("expected shared lot cell spanning 5 rows, got %+v", first[colLot])
	}
	for r, row := range view.Lots[0].Rows[1:] {
		if len(row.Cells) != 5 {
			t.Fatalf("row %d: expected merged cells absent, got %d cells", r+1, len(row.Cells))
		}
	}
	if got := g.Value(Pos{Row: 4, Col: colLot}); got != "L-42" {
		t.Fatalf("expected merged value shared by later rows, got %q", got)
	}
}

func TestPositionsStayContiguous(t *testing.T) {
	g := New("primary", testLayout(t))
	g.AddRows(4, 0)
	g.DeleteLastRow(0)
	g.AddRows(2, 0)

	for r := 0; r < g.RowCount(0); r++ {
		want := strconv.Itoa(r + 1)
		if got := g.Value(Pos{Row: r, Col: colPosition}); got != want {
			t.Fatalf("row %d: expected position %s, got %s", r, want, got)
		}
	}
}

func TestDeleteLastRowOnEmptyGrid(t *testing.T) {
	g := New("primary", testLayout(t))
	if g.DeleteLastRow(0) {
		t.Fatal("expected no-op on empty grid")
	}
	g.AddRows(1, 0)
	g.DeleteLastRow(0)
	if g.DeleteLastRow(0) {
		t.Fatal("expected no-op on empty lot")
	}
	if g.LotCount() != 1 {
		t.Fatalf("expected the first lot to remain renderable, got %d lots", g.LotCount())
	}
}

func TestCreateLotDefaultsToFirstLotRows(t *testing.T) {
	g := New("primary", testLayout(t))
	g.AddRows(1, 0)
	if g.CanCreateLot() {
		t.Fatal("expected next lot to need more than one row in the first lot")
	}
	g.AddRows(2, 0)
	if !g.CanCreateLot() {
		t.Fatal("expected next lot to be available")
	}

	lot := g.CreateLot(0)
	if lot != 1 || g.RowCount(1) != 3 {
		t.Fatalf("expected second lot with 3 rows, got lot %d with %d rows", lot, g.RowCount(1))
	}
	view := g.View()
	if view.Lots[0].ExplicitSave || !view.Lots[1].ExplicitSave {
		t.Fatalf("expected only later lots to carry an explicit save, got %+v %+v", view.Lots[0].ExplicitSave, view.Lots[1].ExplicitSave)
	}
	if view.Lots[0].ID == view.Lots[1].ID {
		t.Fatal("expected distinct lot ids")
	}

	mustSet(t, g, Pos{Lot: 1, Row: 0, Col: colLot}, "B")
	if got := g.Value(Pos{Lot: 0, Row: 0, Col: colLot}); got != "" {
		t.Fatalf("expected independent merged values, got %q", got)
	}
}

func TestDeleteLastRowRemovesEmptiedLaterLot(t *testing.T) {
	g := New("primary", testLayout(t))
	g.AddRows(2, 0)
	g.CreateLot(1)
	g.DeleteLastRow(1)
	if g.LotCount() != 1 {
		t.Fatalf("expected emptied second lot to be removed, got %d lots", g.LotCount())
	}
}

func TestDeleteOnlyLotLeavesEmptyGrid(t *testing.T) {
	g := New("primary", testLayout(t))
	g.AddRows(3, 0)
	if !g.DeleteLot() {
		t.Fatal("expected lot deletion")
	}
	if g.LotCount() != 0 || g.TotalRows() != 0 {
		t.Fatalf("expected empty grid, got %d lots %d rows", g.LotCount(), g.TotalRows())
	}
	view := g.View()
	if len(view.Lots) != 0 {
		t.Fatalf("expected no lots in view, got %d", len(view.Lots))
	}
	if g.DeleteLot() {
		t.Fatal("expected no-op deleting from empty grid")
	}
	g.AddRows(2, 0)
	if g.TotalRows() != 2 {
		t.Fatalf("expected grid to accept rows again, got %d", g.TotalRows())
	}
}

func TestMergedSpanMatchesRowCount(t *testing.T) {
	rng := rand.New(rand.NewSource(7))
	g := New("primary", testLayout(t))
	for step := 0; step < 300; step++ {
		lot := rng.Intn(3)
		switch rng.Intn(4) {
		case 0, 1:
			g.AddRows(rng.Intn(3)+1, lot)
		case 2:
			g.DeleteLastRow(lot)
		case 3:
			if g.CanCreateLot() && g.LotCount() < 3 {
				g.CreateLot(0)
			}
		}
		for l := 0; l < g.LotCount(); l++ {
			rows := g.RowCount(l)
			spans := mergedSpans(g, l)
			if rows == 0 {
				if len(spans) != 0 {
					t.Fatalf("step %d: empty lot %d still renders merged cells", step, l)
				}
				continue
			}
			if len(spans) != 2 {
				t.Fatalf("step %d: expected 2 merged cells, got %d", step, len(spans))
			}
			for _, span := range spans {
				if span != rows {
					t.Fatalf("step %d: lot %d span %d != rows %d", step, l, span, rows)
				}
			}
		}
	}
}

func TestUnstructuredGridIsInert(t *testing.T) {
	g := New("pending", nil)
	if g.AddRows(2, 0) != -1 || g.CreateLot(2) != -1 {
		t.Fatal("expected structural operations to be skipped")
	}
	if _, ok := g.Set(Pos{}, "x"); ok {
		t.Fatal("expected Set to be skipped")
	}
	if len(g.View().Lots) != 0 {
		t.Fatal("expected empty view")
	}
}

func TestRowCapLimitsAddAndCreateLot(t *testing.T) {
	g := New("primary", testLayout(t))
	g.SetMaxRows(5)
	if lot := g.AddRows(3, 0); lot != 0 || g.TotalRows() != 3 {
		t.Fatalf("expected 3 rows in lot 0, got lot %d with %d rows", lot, g.TotalRows())
	}
	if lot := g.CreateLot(0); lot != 1 || g.RowCount(1) != 2 {
		t.Fatalf("expected second lot cut to 2 rows, got lot %d with %d rows", lot, g.RowCount(1))
	}
	if g.CanCreateLot() {
		t.Fatal("expected no next lot on a full grid")
	}
	if g.AddRows(1, 1) != -1 || g.CreateLot(1) != -1 || g.TotalRows() != 5 {
		t.Fatalf("expected a full grid to refuse rows, have %d", g.TotalRows())
	}

	g.DeleteLastRow(1)
	if lot := g.AddRows(10, 1); lot != 1 || g.TotalRows() != 5 {
		t.Fatalf("expected count cut to the remaining room, got lot %d with %d rows", lot, g.TotalRows())
	}
	mustSet(t, g, Pos{Lot: 1, Row: 1, Col: colWeight}, "4.5")

	restored := Restore("primary", testLayout(t), Serialize(g), RestoreOptions{MaxRows: 5})
	if restored.TotalRows() != 5 || restored.LotCount() != 2 {
		t.Fatalf("expected round trip to keep 5 rows in 2 lots, got %d in %d", restored.TotalRows(), restored.LotCount())
	}
	if got := restored.Value(Pos{Lot: 1, Row: 1, Col: colWeight}); got != "4.5" {
		t.Fatalf("expected last row value to survive, got %q", got)
	}
}
