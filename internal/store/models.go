package store

import (
	"encoding/json"
	"time"
)

// Sheet is the remote copy of a whole sheet record.
type Sheet struct {
	ID        string
	Template  string
	Title     string
	Record    json.RawMessage
	RowCount  int
	CreatedAt time.Time
	UpdatedAt time.Time
}

// SheetSummary is a sheet without its record, for list views.
type SheetSummary struct {
	ID        string
	Template  string
	Title     string
	RowCount  int
	CreatedAt time.Time
	UpdatedAt time.Time
}

// Lot is one explicitly saved lot. Saving the same lot again replaces it.
type Lot struct {
	SheetID    string
	Grid       string
	LotID      string
	Position   int
	Identity   string
	Record     json.RawMessage
	SearchText string
	SavedAt    time.Time
}
