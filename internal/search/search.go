package search

// ResultType identifies the kind of entity in a search result.
type ResultType string

const (
	ResultSheet ResultType = "sheet"
	ResultLot   ResultType = "lot"
)

// Result is a single search hit returned to the caller.
type Result struct {
	Type     ResultType `json:"type"`
	ID       string     `json:"id"`
	Title    string     `json:"title"`
	Snippet  string     `json:"snippet"`
	SheetID  string     `json:"sheetId"`
	LotID    string     `json:"lotId,omitempty"`
	Template string     `json:"template"`
}

// Query describes a search request.
type Query struct {
	Text           string
	FilterType     ResultType // empty = all types
	FilterTemplate string
	Limit          int
	Offset         int
}

// Response is the envelope returned by the search endpoint.
type Response struct {
	Results []Result `json:"results"`
	Total   int      `json:"total"`
	Query   string   `json:"query"`
}

// Searcher can execute a full-text search.
type Searcher interface {
	Search(q Query) ([]Result, int, error)
	Healthy() bool
}

// Indexer can push entities into a search index.
type Indexer interface {
	IndexSheet(sheet SheetRecord) error
	IndexLot(lot LotRecord) error
	DeleteSheet(id string) error
}

// SheetRecord is the data we index for a sheet.
type SheetRecord struct {
	ID       string `json:"id"`
	Title    string `json:"title"`
	Template string `json:"template"`
	RowCount int    `json:"rowCount"`
}

// LotRecord is the data we index for an explicitly saved lot. ID combines the
// sheet, grid and lot so it is unique across sheets.
type LotRecord struct {
	ID       string `json:"id"`
	SheetID  string `json:"sheetId"`
	Grid     string `json:"grid"`
	LotID    string `json:"lotId"`
	Template string `json:"template"`
	Identity string `json:"identity"`
	Text     string `json:"text"`
}

// LotKey builds the index ID of a lot.
func LotKey(sheetID, grid, lotID string) string {
	return sheetID + "__" + grid + "__" + lotID
}
