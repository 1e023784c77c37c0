package grid

import "fmt"

// navCache holds the visual occupancy matrix of every lot. It is rebuilt only
// when the grid's structural version moves.
type navCache struct {
	version  uint64
	built    bool
	matrices [][][]slot
}

type slot struct {
	pos    Pos
	vrow   int
	vcol   int
	filled bool
}

func (g *Grid) matrices() [][][]slot {
	if g.nav.built && g.nav.version == g.version {
		return g.nav.matrices
	}
	g.nav.matrices = make([][][]slot, len(g.lots))
	for l := range g.lots {
		g.nav.matrices[l] = g.buildMatrix(l)
	}
	g.nav.version = g.version
	g.nav.built = true
	return g.nav.matrices
}

// buildMatrix lays a lot's materialized cells out by walking row and column
// spans, the way a browser places table cells.
func (g *Grid) buildMatrix(l int) [][]slot {
	lot := g.lots[l]
	width := g.layout.Width()
	matrix := make([][]slot, len(lot.Rows))
	for r := range matrix {
		matrix[r] = make([]slot, width)
	}
	for r := range lot.Rows {
		vc := 0
		for c := 0; c < g.layout.Len(); c++ {
			col := g.layout.Column(c)
			merged := col.Kind == MergedIdentity
			if merged && r > 0 {
				continue
			}
			for vc < width && matrix[r][vc].filled {
				vc++
			}
			rowSpan := 1
			if merged {
				rowSpan = len(lot.Rows)
			}
			origin := Pos{Lot: l, Row: r, Col: c}
			for dr := 0; dr < rowSpan && r+dr < len(matrix); dr++ {
				for dc := 0; dc < col.ColSpan && vc+dc < width; dc++ {
					matrix[r+dr][vc+dc] = slot{pos: origin, vrow: r, vcol: vc, filled: true}
				}
			}
			vc += col.ColSpan
		}
	}
	return matrix
}

func (g *Grid) locate(pos Pos) (slot, bool) {
	if !g.structured() || pos.Lot < 0 || pos.Lot >= len(g.lots) {
		return slot{}, false
	}
	if g.layout.Merged(pos.Col) {
		pos.Row = 0
	}
	matrix := g.matrices()[pos.Lot]
	if pos.Row < 0 || pos.Row >= len(matrix) {
		return slot{}, false
	}
	for _, s := range matrix[pos.Row] {
		if s.filled && s.pos == pos {
			return s, true
		}
	}
	return slot{}, false
}

// Below returns the cell under pos in the same visual column, as Enter moves
// focus. It reports false at the bottom of a lot.
func (g *Grid) Below(pos Pos) (Pos, bool) {
	origin, ok := g.locate(pos)
	if !ok {
		return pos, false
	}
	matrix := g.matrices()[pos.Lot]
	span := 1
	if g.layout.Merged(origin.pos.Col) {
		span = len(matrix)
	}
	target := origin.vrow + span
	if target >= len(matrix) {
		return origin.pos, false
	}
	return matrix[target][origin.vcol].pos, true
}

// SetLock adds or removes a column from the fast-entry tab order.
func (g *Grid) SetLock(key string, locked bool) error {
	if !g.structured() {
		return fmt.Errorf("%w: grid has no layout", ErrInvalidLayout)
	}
	idx, ok := g.layout.Index(key)
	if !ok {
		return fmt.Errorf("%w: unknown column %q", ErrInvalidLayout, key)
	}
	if !g.layout.Column(idx).Editable() {
		return fmt.Errorf("%w: column %q is read-only", ErrInvalidLayout, key)
	}
	if locked {
		g.locks[idx] = true
	} else {
		delete(g.locks, idx)
	}
	return nil
}

func (g *Grid) Locks() []string {
	if !g.structured() {
		return nil
	}
	var keys []string
	for c := 0; c < g.layout.Len(); c++ {
		if g.locks[c] {
			keys = append(keys, g.layout.Column(c).Key)
		}
	}
	return keys
}

// TabOrder lists the cells Tab visits within a lot. With locks set only the
// locked columns take part, row by row; otherwise every editable cell does.
func (g *Grid) TabOrder(lot int) []Pos {
	if !g.structured() || lot < 0 || lot >= len(g.lots) {
		return nil
	}
	var order []Pos
	for _, row := range g.matrices()[lot] {
		for _, s := range row {
			if !s.filled || s.pos.Row != s.vrow {
				continue
			}
			if len(order) > 0 && order[len(order)-1] == s.pos {
				continue
			}
			col := g.layout.Column(s.pos.Col)
			if !col.Editable() {
				continue
			}
			if len(g.locks) > 0 && !g.locks[s.pos.Col] {
				continue
			}
			order = append(order, s.pos)
		}
	}
	return order
}

// NextTab moves through TabOrder, wrapping at both ends. A position outside
// the order starts from the first (or, going backward, the last) cell.
func (g *Grid) NextTab(pos Pos, backward bool) (Pos, bool) {
	if g.layout != nil && g.layout.Merged(pos.Col) {
		pos.Row = 0
	}
	order := g.TabOrder(pos.Lot)
	if len(order) == 0 {
		return pos, false
	}
	current := -1
	for i, p := range order {
		if p == pos {
			current = i
			break
		}
	}
	switch {
	case current < 0 && backward:
		return order[len(order)-1], true
	case current < 0:
		return order[0], true
	case backward:
		return order[(current-1+len(order))%len(order)], true
	default:
		return order[(current+1)%len(order)], true
	}
}
