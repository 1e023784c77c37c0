package store

import (
	"context"
	"database/sql"
	"fmt"
)

type PostgresStore struct {
	db *sql.DB
}

func NewPostgresStore(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

func (s *PostgresStore) DB() *sql.DB {
	return s.db
}

func (s *PostgresStore) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// UpsertSheet writes the whole sheet record, replacing any earlier copy.
func (s *PostgresStore) UpsertSheet(ctx context.Context, sheet Sheet) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO inspection_sheets (id, template, title, record, row_count, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (id) DO UPDATE SET
			title = EXCLUDED.title,
			record = EXCLUDED.record,
			row_count = EXCLUDED.row_count,
			updated_at = EXCLUDED.updated_at
	`, sheet.ID, sheet.Template, sheet.Title, []byte(sheet.Record), sheet.RowCount, sheet.CreatedAt, sheet.UpdatedAt)
	if err != nil {
		return fmt.Errorf("upsert sheet: %w", err)
	}
	return nil
}

// GetSheet returns sql.ErrNoRows when the sheet does not exist.
func (s *PostgresStore) GetSheet(ctx context.Context, id string) (Sheet, error) {
	var (
		sheet  Sheet
		record []byte
	)
	err := s.db.QueryRowContext(ctx, `
		SELECT id, template, title, record, row_count, created_at, updated_at
		FROM inspection_sheets
		WHERE id = $1
	`, id).Scan(&sheet.ID, &sheet.Template, &sheet.Title, &record, &sheet.RowCount, &sheet.CreatedAt, &sheet.UpdatedAt)
	if err != nil {
		return Sheet{}, err
	}
	sheet.Record = record
	return sheet, nil
}

// ListSheets returns sheets newest first.
func (s *PostgresStore) ListSheets(ctx context.Context, template string, limit int) ([]SheetSummary, error) {
	if limit <= 0 {
		limit = 100
	}
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, template, title, row_count, created_at, updated_at
		FROM inspection_sheets
		WHERE $1 = '' OR template = $1
		ORDER BY created_at DESC, id DESC
		LIMIT $2
	`, template, limit)
	if err != nil {
		return nil, fmt.Errorf("list sheets: %w", err)
	}
	defer rows.Close()

	items := make([]SheetSummary, 0)
	for rows.Next() {
		var item SheetSummary
		if err := rows.Scan(&item.ID, &item.Template, &item.Title, &item.RowCount, &item.CreatedAt, &item.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scan sheet: %w", err)
		}
		items = append(items, item)
	}
	return items, rows.Err()
}

// DeleteSheet removes a sheet and its saved lots. It reports whether a sheet
// was removed.
func (s *PostgresStore) DeleteSheet(ctx context.Context, id string) (bool, error) {
	result, err := s.db.ExecContext(ctx, `DELETE FROM inspection_sheets WHERE id = $1`, id)
	if err != nil {
		return false, fmt.Errorf("delete sheet: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("delete sheet: %w", err)
	}
	return affected > 0, nil
}

// UpsertLot stores a lot keyed by (sheet, grid, lot). The parent sheet must
// already exist.
func (s *PostgresStore) UpsertLot(ctx context.Context, lot Lot) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO inspection_lots (sheet_id, grid, lot_id, position, identity, record, search_text, saved_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		ON CONFLICT (sheet_id, grid, lot_id) DO UPDATE SET
			position = EXCLUDED.position,
			identity = EXCLUDED.identity,
			record = EXCLUDED.record,
			search_text = EXCLUDED.search_text,
			saved_at = EXCLUDED.saved_at
	`, lot.SheetID, lot.Grid, lot.LotID, lot.Position, lot.Identity, []byte(lot.Record), lot.SearchText, lot.SavedAt)
	if err != nil {
		return fmt.Errorf("upsert lot: %w", err)
	}
	return nil
}

func (s *PostgresStore) ListLots(ctx context.Context, sheetID string) ([]Lot, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT sheet_id, grid, lot_id, position, identity, record, search_text, saved_at
		FROM inspection_lots
		WHERE sheet_id = $1
		ORDER BY grid, position
	`, sheetID)
	if err != nil {
		return nil, fmt.Errorf("list lots: %w", err)
	}
	defer rows.Close()

	items := make([]Lot, 0)
	for rows.Next() {
		var (
			lot    Lot
			record []byte
		)
		if err := rows.Scan(&lot.SheetID, &lot.Grid, &lot.LotID, &lot.Position, &lot.Identity, &record, &lot.SearchText, &lot.SavedAt); err != nil {
			return nil, fmt.Errorf("scan lot: %w", err)
		}
		lot.Record = record
		items = append(items, lot)
	}
	return items, rows.Err()
}
