package sheet

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"inspection/api/internal/grid"
)

var (
	ErrUnknownGrid = errors.New("unknown grid")
	ErrReadOnly    = errors.New("cell is read-only")
	ErrRowLimit    = errors.New("row limit reached")
)

// Sheet is one page's set of grids. Secondary grids always carry one row per
// primary row.
type Sheet struct {
	ID          string
	Title       string
	Template    *Template
	Primary     *grid.Grid
	Secondaries []*grid.Grid
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

func New(id, title string, tmpl *Template, now time.Time) *Sheet {
	s := &Sheet{
		ID:        id,
		Title:     title,
		Template:  tmpl,
		Primary:   grid.New(tmpl.Primary.Name, tmpl.Primary.Layout()),
		CreatedAt: now,
		UpdatedAt: now,
	}
	if s.Title == "" {
		s.Title = tmpl.Title
	}
	for i := range tmpl.Secondaries {
		sec := &tmpl.Secondaries[i]
		s.Secondaries = append(s.Secondaries, grid.New(sec.Name, sec.Layout()))
	}
	s.Primary.SetMaxRows(tmpl.Primary.MaxRows)
	s.Primary.AddRows(tmpl.DefaultRows, 0)
	s.Sync()
	return s
}

func (s *Sheet) Grid(name string) (*grid.Grid, error) {
	if name == "" || name == s.Primary.Name() {
		return s.Primary, nil
	}
	for _, g := range s.Secondaries {
		if g.Name() == name {
			return g, nil
		}
	}
	return nil, fmt.Errorf("%w: %q", ErrUnknownGrid, name)
}

// Sync brings every secondary grid in line with the primary.
func (s *Sheet) Sync() {
	for _, sec := range s.Secondaries {
		grid.Sync(s.Primary, sec)
	}
}

// Record is the durable form of a sheet, kept in the local slot and sent to
// the data store.
type Record struct {
	ID        string        `json:"id"`
	Title     string        `json:"title"`
	Template  string        `json:"template"`
	CreatedAt time.Time     `json:"createdAt"`
	UpdatedAt time.Time     `json:"updatedAt"`
	Grids     []grid.Record `json:"grids"`
}

func (s *Sheet) Record() Record {
	rec := Record{
		ID:        s.ID,
		Title:     s.Title,
		Template:  s.Template.Name,
		CreatedAt: s.CreatedAt,
		UpdatedAt: s.UpdatedAt,
		Grids:     []grid.Record{grid.Serialize(s.Primary)},
	}
	for _, sec := range s.Secondaries {
		rec.Grids = append(rec.Grids, grid.Serialize(sec))
	}
	return rec
}

type wireRecord struct {
	ID        string            `json:"id"`
	Title     string            `json:"title"`
	Template  string            `json:"template"`
	CreatedAt time.Time         `json:"createdAt"`
	UpdatedAt time.Time         `json:"updatedAt"`
	Grids     []json.RawMessage `json:"grids"`
}

// DecodeRecord reads a stored sheet. Grid payloads are decoded leniently; a
// grid that cannot be read at all is dropped and rebuilt empty on restore.
func DecodeRecord(data []byte) (Record, error) {
	var wire wireRecord
	if err := json.Unmarshal(data, &wire); err != nil {
		return Record{}, fmt.Errorf("decode sheet record: %w", err)
	}
	if wire.ID == "" || wire.Template == "" {
		return Record{}, fmt.Errorf("decode sheet record: %w", grid.ErrMalformedRecord)
	}
	rec := Record{
		ID:        wire.ID,
		Title:     wire.Title,
		Template:  wire.Template,
		CreatedAt: wire.CreatedAt,
		UpdatedAt: wire.UpdatedAt,
	}
	for _, raw := range wire.Grids {
		g, err := grid.DecodeRecord(raw)
		if err != nil {
			continue
		}
		rec.Grids = append(rec.Grids, g)
	}
	return rec, nil
}

// Restore rebuilds a sheet from its record. Grids are matched by name; the
// primary is cut to the template's row limit and secondaries to the primary's
// row count before they are synchronized.
func Restore(rec Record, tmpl *Template) *Sheet {
	byName := map[string]grid.Record{}
	for _, g := range rec.Grids {
		byName[g.Grid] = g
	}
	s := &Sheet{
		ID:        rec.ID,
		Title:     rec.Title,
		Template:  tmpl,
		CreatedAt: rec.CreatedAt,
		UpdatedAt: rec.UpdatedAt,
	}
	if s.Title == "" {
		s.Title = tmpl.Title
	}
	primary, ok := byName[tmpl.Primary.Name]
	s.Primary = grid.Restore(tmpl.Primary.Name, tmpl.Primary.Layout(), primary, grid.RestoreOptions{MaxRows: tmpl.Primary.MaxRows})
	s.Primary.SetMaxRows(tmpl.Primary.MaxRows)
	if !ok {
		s.Primary.AddRows(tmpl.DefaultRows, 0)
	}
	rows := s.Primary.TotalRows()
	for i := range tmpl.Secondaries {
		sec := &tmpl.Secondaries[i]
		s.Secondaries = append(s.Secondaries, grid.Restore(sec.Name, sec.Layout(), byName[sec.Name], grid.RestoreOptions{MaxRows: rows}))
	}
	s.Sync()
	return s
}

// View is the rendered state of a sheet.
type View struct {
	ID         string      `json:"id"`
	Title      string      `json:"title"`
	Template   string      `json:"template"`
	Grids      []grid.View `json:"grids"`
	Save       SaveStatus  `json:"save"`
	Notice     string      `json:"notice,omitempty"`
	UpdatedAt  time.Time   `json:"updatedAt"`
	TotalRows  int         `json:"totalRows"`
	RowCounter string      `json:"rowCounter"`
}

func (s *Sheet) View() View {
	view := View{
		ID:        s.ID,
		Title:     s.Title,
		Template:  s.Template.Name,
		Grids:     []grid.View{s.Primary.View()},
		UpdatedAt: s.UpdatedAt,
		TotalRows: s.Primary.TotalRows(),
	}
	view.RowCounter = fmt.Sprintf("Rows: %d", view.TotalRows)
	for _, sec := range s.Secondaries {
		view.Grids = append(view.Grids, sec.View())
	}
	return view
}
