package grid

import (
	"strconv"

	"inspection/api/internal/util"
)

// Pos addresses one cell. Merged-identity cells always live on row 0 of
// their lot.
type Pos struct {
	Lot int `json:"lot"`
	Row int `json:"row"`
	Col int `json:"col"`
}

type Row struct {
	Position int
	Cells    []string
}

// Lot is a contiguous run of rows sharing one set of merged-identity values.
type Lot struct {
	ID           string
	ExplicitSave bool
	Shared       []string
	Rows         []Row
}

// Grid is an ordered set of lots over a fixed layout. A Grid is not safe for
// concurrent use; callers serialize access per sheet.
type Grid struct {
	name       string
	layout     *Layout
	lots       []*Lot
	version    uint64
	nav        navCache
	locks      map[int]bool
	aggregates []Aggregate
	maxRows    int
}

// New returns an empty grid. A nil layout yields a grid without structure
// that every operation treats as a no-op.
func New(name string, layout *Layout) *Grid {
	g := &Grid{name: name, layout: layout, locks: map[int]bool{}}
	g.Recompute()
	return g
}

func (g *Grid) Name() string {
	return g.name
}

func (g *Grid) Layout() *Layout {
	return g.layout
}

// Version changes on every structural mutation.
func (g *Grid) Version() uint64 {
	return g.version
}

func (g *Grid) structured() bool {
	return g != nil && g.layout != nil
}

func (g *Grid) LotCount() int {
	if g == nil {
		return 0
	}
	return len(g.lots)
}

func (g *Grid) RowCount(lot int) int {
	if lot < 0 || lot >= g.LotCount() {
		return 0
	}
	return len(g.lots[lot].Rows)
}

// TotalRows counts data rows across every lot.
func (g *Grid) TotalRows() int {
	total := 0
	for i := 0; i < g.LotCount(); i++ {
		total += len(g.lots[i].Rows)
	}
	return total
}

func (g *Grid) LotID(lot int) string {
	if lot < 0 || lot >= g.LotCount() {
		return ""
	}
	return g.lots[lot].ID
}

// LotIndex finds a lot by ID.
func (g *Grid) LotIndex(id string) (int, bool) {
	for i := 0; i < g.LotCount(); i++ {
		if g.lots[i].ID == id {
			return i, true
		}
	}
	return 0, false
}

// SetMaxRows caps the total row count. Zero or less removes the cap. Rows
// already present are kept.
func (g *Grid) SetMaxRows(n int) {
	if g == nil {
		return
	}
	if n < 0 {
		n = 0
	}
	g.maxRows = n
}

func (g *Grid) MaxRows() int {
	if g == nil {
		return 0
	}
	return g.maxRows
}

// room returns how many rows may still be added, or -1 without a cap.
func (g *Grid) room() int {
	if g.maxRows <= 0 {
		return -1
	}
	if left := g.maxRows - g.TotalRows(); left > 0 {
		return left
	}
	return 0
}

func (g *Grid) CanCreateLot() bool {
	return g.LotCount() > 0 && len(g.lots[0].Rows) > 1 && g.room() != 0
}

// AddRows appends count rows to lot and returns the index of the lot that
// received them. Counts below one are treated as one and the count is cut to
// the row cap; a full grid gets nothing and -1 is returned. With no lots a new
// lot is created; an out-of-range lot index targets the last lot.
func (g *Grid) AddRows(count, lot int) int {
	if !g.structured() {
		return -1
	}
	if count <= 0 {
		count = 1
	}
	if room := g.room(); room >= 0 {
		if room == 0 {
			return -1
		}
		count = min(count, room)
	}
	if len(g.lots) == 0 {
		g.lots = append(g.lots, g.newLot())
		lot = 0
	} else if lot < 0 || lot >= len(g.lots) {
		lot = len(g.lots) - 1
	}
	target := g.lots[lot]
	for i := 0; i < count; i++ {
		target.Rows = append(target.Rows, g.newRow())
	}
	g.renumber(target)
	g.structural()
	return lot
}

// DeleteLastRow removes the most recent row of lot. A lot after the first
// that loses its last row is removed with it. Deleting from an empty lot does
// nothing.
func (g *Grid) DeleteLastRow(lot int) bool {
	if !g.structured() || len(g.lots) == 0 {
		return false
	}
	if lot < 0 || lot >= len(g.lots) {
		lot = len(g.lots) - 1
	}
	target := g.lots[lot]
	if len(target.Rows) == 0 {
		return false
	}
	target.Rows = target.Rows[:len(target.Rows)-1]
	if len(target.Rows) == 0 && lot > 0 {
		g.lots = append(g.lots[:lot], g.lots[lot+1:]...)
	} else {
		g.renumber(target)
	}
	g.structural()
	return true
}

// CreateLot appends a sibling lot with rows rows, defaulting to the first
// lot's row count. The lot is cut to the row cap; a full grid gets no lot and
// -1 is returned.
func (g *Grid) CreateLot(rows int) int {
	if !g.structured() {
		return -1
	}
	if rows <= 0 {
		rows = g.RowCount(0)
	}
	if rows <= 0 {
		rows = 1
	}
	if room := g.room(); room >= 0 {
		if room == 0 {
			return -1
		}
		rows = min(rows, room)
	}
	lot := g.newLot()
	for i := 0; i < rows; i++ {
		lot.Rows = append(lot.Rows, g.newRow())
	}
	g.renumber(lot)
	g.lots = append(g.lots, lot)
	g.structural()
	return len(g.lots) - 1
}

// DeleteLot removes the most recently added lot. Removing the only lot leaves
// a grid with no rows that accepts AddRows again.
func (g *Grid) DeleteLot() bool {
	if !g.structured() || len(g.lots) == 0 {
		return false
	}
	g.lots = g.lots[:len(g.lots)-1]
	g.structural()
	return true
}

func (g *Grid) Value(pos Pos) string {
	cell, ok := g.cell(pos)
	if !ok {
		return ""
	}
	return *cell
}

// Set stores text in a cell after constraining it. It returns the stored
// value and whether the cell accepted input at all.
func (g *Grid) Set(pos Pos, text string) (string, bool) {
	if !g.editable(pos) {
		return g.Value(pos), false
	}
	cell, _ := g.cell(pos)
	*cell = Sanitize(g.layout.Column(pos.Col), text)
	g.Recompute()
	return *cell, true
}

// Commit applies the commit format to a cell, as on blur or Enter.
func (g *Grid) Commit(pos Pos) (string, bool) {
	if !g.editable(pos) {
		return g.Value(pos), false
	}
	cell, _ := g.cell(pos)
	*cell = Commit(g.layout.Column(pos.Col), *cell)
	g.Recompute()
	return *cell, true
}

func (g *Grid) editable(pos Pos) bool {
	if !g.structured() || pos.Col < 0 || pos.Col >= g.layout.Len() {
		return false
	}
	if !g.layout.Column(pos.Col).Editable() {
		return false
	}
	_, ok := g.cell(pos)
	return ok
}

func (g *Grid) cell(pos Pos) (*string, bool) {
	if !g.structured() || pos.Lot < 0 || pos.Lot >= len(g.lots) {
		return nil, false
	}
	if pos.Col < 0 || pos.Col >= g.layout.Len() {
		return nil, false
	}
	lot := g.lots[pos.Lot]
	if pos.Row < 0 || pos.Row >= len(lot.Rows) {
		return nil, false
	}
	if g.layout.Merged(pos.Col) {
		return &lot.Shared[pos.Col], true
	}
	return &lot.Rows[pos.Row].Cells[pos.Col], true
}

// rowAt resolves a row index counted across all lots.
func (g *Grid) rowAt(flat int) (*Lot, int, bool) {
	for _, lot := range g.lots {
		if flat < len(lot.Rows) {
			return lot, flat, true
		}
		flat -= len(lot.Rows)
	}
	return nil, 0, false
}

func (g *Grid) newLot() *Lot {
	return &Lot{
		ID:           util.NewID("lot"),
		ExplicitSave: len(g.lots) > 0,
		Shared:       g.layout.defaults(),
	}
}

func (g *Grid) newRow() Row {
	return Row{Cells: g.layout.defaults()}
}

func (g *Grid) renumber(lot *Lot) {
	for i := range lot.Rows {
		lot.Rows[i].Position = i + 1
		for c := 0; c < g.layout.Len(); c++ {
			if g.layout.Column(c).Kind == Position {
				lot.Rows[i].Cells[c] = strconv.Itoa(i + 1)
			}
		}
	}
}

func (g *Grid) structural() {
	g.version++
	g.Recompute()
}
