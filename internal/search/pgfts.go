package search

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
)

// PgFTS implements Searcher using PostgreSQL full-text search as a fallback.
type PgFTS struct {
	db *sql.DB
}

// NewPgFTS creates a PostgreSQL FTS searcher.
func NewPgFTS(db *sql.DB) *PgFTS {
	return &PgFTS{db: db}
}

// Healthy always returns true; without Postgres nothing else works either.
func (p *PgFTS) Healthy() bool {
	return true
}

// Search runs one UNION ALL query over sheets and saved lots, ranked by
// ts_rank, with ts_headline snippets.
func (p *PgFTS) Search(q Query) ([]Result, int, error) {
	if strings.TrimSpace(q.Text) == "" {
		return nil, 0, nil
	}

	limit := q.Limit
	if limit <= 0 {
		limit = 20
	}
	offset := q.Offset
	if offset < 0 {
		offset = 0
	}

	tsQuery := "plainto_tsquery('simple', $1)"
	args := []any{q.Text}
	argN := 2

	var subQueries []string

	if q.FilterType == "" || q.FilterType == ResultSheet {
		where := "s.fts @@ " + tsQuery
		if q.FilterTemplate != "" {
			where += fmt.Sprintf(" AND s.template = $%d", argN)
			args = append(args, q.FilterTemplate)
			argN++
		}
		subQueries = append(subQueries, fmt.Sprintf(`
			SELECT 'sheet'::text AS type, s.id, s.title,
				ts_headline('simple', s.title || ' ' || s.template, %s, 'MaxFragments=1,MaxWords=30') AS snippet,
				s.id AS sheet_id, ''::text AS lot_id, s.template,
				ts_rank(s.fts, %s) AS rank
			FROM inspection_sheets s
			WHERE %s`, tsQuery, tsQuery, where))
	}

	if q.FilterType == "" || q.FilterType == ResultLot {
		where := "l.fts @@ " + tsQuery
		if q.FilterTemplate != "" {
			where += fmt.Sprintf(" AND s.template = $%d", argN)
			args = append(args, q.FilterTemplate)
			argN++
		}
		subQueries = append(subQueries, fmt.Sprintf(`
			SELECT 'lot'::text AS type, l.sheet_id || '__' || l.grid || '__' || l.lot_id AS id, l.identity AS title,
				ts_headline('simple', l.search_text, %s, 'MaxFragments=1,MaxWords=30') AS snippet,
				l.sheet_id, l.lot_id, s.template,
				ts_rank(l.fts, %s) AS rank
			FROM inspection_lots l
			JOIN inspection_sheets s ON s.id = l.sheet_id
			WHERE %s`, tsQuery, tsQuery, where))
	}

	if len(subQueries) == 0 {
		return nil, 0, nil
	}

	countSQL := fmt.Sprintf("SELECT count(*) FROM (%s) sub",
		strings.Join(subQueries, " UNION ALL "))

	dataSQL := fmt.Sprintf(`SELECT type, id, title, snippet, sheet_id, lot_id, template
		FROM (%s) sub
		ORDER BY rank DESC
		LIMIT %d OFFSET %d`,
		strings.Join(subQueries, " UNION ALL "),
		limit, offset)

	ctx := context.Background()

	var total int
	if err := p.db.QueryRowContext(ctx, countSQL, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("pgfts count: %w", err)
	}

	rows, err := p.db.QueryContext(ctx, dataSQL, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("pgfts query: %w", err)
	}
	defer rows.Close()

	var results []Result
	for rows.Next() {
		var r Result
		var typ string
		if err := rows.Scan(&typ, &r.ID, &r.Title, &r.Snippet, &r.SheetID, &r.LotID, &r.Template); err != nil {
			return nil, 0, fmt.Errorf("pgfts scan: %w", err)
		}
		r.Type = ResultType(typ)
		results = append(results, r)
	}

	return results, total, rows.Err()
}

// LoadAllRecords returns all searchable records for full reindexing.
func (p *PgFTS) LoadAllRecords(ctx context.Context) ([]SheetRecord, []LotRecord, error) {
	sheetRows, err := p.db.QueryContext(ctx, `
		SELECT id, title, template, row_count
		FROM inspection_sheets
	`)
	if err != nil {
		return nil, nil, fmt.Errorf("load sheets: %w", err)
	}
	defer sheetRows.Close()

	sheets := make([]SheetRecord, 0)
	for sheetRows.Next() {
		var s SheetRecord
		if err := sheetRows.Scan(&s.ID, &s.Title, &s.Template, &s.RowCount); err != nil {
			return nil, nil, fmt.Errorf("scan sheet: %w", err)
		}
		sheets = append(sheets, s)
	}
	if err := sheetRows.Err(); err != nil {
		return nil, nil, fmt.Errorf("iterate sheets: %w", err)
	}

	lotRows, err := p.db.QueryContext(ctx, `
		SELECT l.sheet_id, l.grid, l.lot_id, s.template, l.identity, l.search_text
		FROM inspection_lots l
		JOIN inspection_sheets s ON s.id = l.sheet_id
	`)
	if err != nil {
		return nil, nil, fmt.Errorf("load lots: %w", err)
	}
	defer lotRows.Close()

	lots := make([]LotRecord, 0)
	for lotRows.Next() {
		var l LotRecord
		if err := lotRows.Scan(&l.SheetID, &l.Grid, &l.LotID, &l.Template, &l.Identity, &l.Text); err != nil {
			return nil, nil, fmt.Errorf("scan lot: %w", err)
		}
		l.ID = LotKey(l.SheetID, l.Grid, l.LotID)
		lots = append(lots, l)
	}
	if err := lotRows.Err(); err != nil {
		return nil, nil, fmt.Errorf("iterate lots: %w", err)
	}

	return sheets, lots, nil
}
