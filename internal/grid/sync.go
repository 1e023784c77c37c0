package grid

import (
	"log"
	"strconv"
)

// Sync rebuilds secondary so it has one row per primary row. Mirror columns
// take the primary's values; everything else entered in the secondary is
// kept by row index. Rows past the new count are dropped and new rows start
// from column defaults. Calling Sync again without a primary change leaves
// the secondary untouched. Grids without structure are skipped.
func Sync(primary, secondary *Grid) bool {
	if !primary.structured() || !secondary.structured() {
		log.Printf("grid: sync skipped, grid structure not ready")
		return false
	}
	sources := make([]int, secondary.layout.Len())
	for c := range sources {
		sources[c] = -1
		col := secondary.layout.Column(c)
		if col.Kind != Mirror {
			continue
		}
		idx, ok := primary.layout.Index(col.Source)
		if !ok {
			log.Printf("grid: sync %s: primary %s has no column %q", secondary.name, primary.name, col.Source)
			continue
		}
		sources[c] = idx
	}

	want := primary.TotalRows()
	reshaped := false
	if len(secondary.lots) == 0 {
		secondary.lots = append(secondary.lots, secondary.newLot())
		reshaped = true
	}
	if len(secondary.lots) > 1 {
		reshaped = true
		merged := secondary.lots[0]
		for _, lot := range secondary.lots[1:] {
			merged.Rows = append(merged.Rows, lot.Rows...)
		}
		secondary.lots = secondary.lots[:1]
	}
	lot := secondary.lots[0]
	structural := reshaped || len(lot.Rows) != want
	if len(lot.Rows) > want {
		lot.Rows = lot.Rows[:want]
	}
	for len(lot.Rows) < want {
		lot.Rows = append(lot.Rows, secondary.newRow())
	}

	changed := structural
	for r := range lot.Rows {
		pLot, pRow, _ := primary.rowAt(r)
		row := &lot.Rows[r]
		if row.Position != r+1 {
			row.Position = r + 1
			changed = true
		}
		for c, src := range sources {
			var value string
			switch {
			case secondary.layout.Column(c).Kind == Position:
				value = strconv.Itoa(r + 1)
			case src < 0:
				continue
			case primary.layout.Merged(src):
				value = pLot.Shared[src]
			default:
				value = pLot.Rows[pRow].Cells[src]
			}
			if row.Cells[c] != value {
				row.Cells[c] = value
				changed = true
			}
		}
	}
	if structural {
		secondary.version++
	}
	secondary.Recompute()
	return changed
}
