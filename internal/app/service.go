package app

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"net/http"
	"strings"
	"sync"
	"time"

	"inspection/api/internal/blob"
	"inspection/api/internal/config"
	"inspection/api/internal/export"
	"inspection/api/internal/gitrepo"
	"inspection/api/internal/grid"
	"inspection/api/internal/search"
	"inspection/api/internal/sheet"
	"inspection/api/internal/slot"
	"inspection/api/internal/store"
	"inspection/api/internal/util"
)

type slotStore interface {
	Get(context.Context, string) (slot.Entry, error)
	Set(context.Context, string, []byte) error
	Delete(context.Context, string) error
	Ping(context.Context) error
}

type dataStore interface {
	Ping(context.Context) error
	UpsertSheet(context.Context, store.Sheet) error
	GetSheet(context.Context, string) (store.Sheet, error)
	ListSheets(context.Context, string, int) ([]store.SheetSummary, error)
	DeleteSheet(context.Context, string) (bool, error)
	UpsertLot(context.Context, store.Lot) error
	ListLots(context.Context, string) ([]store.Lot, error)
}

type gitService interface {
	CommitRecord(string, []byte, string, string) (gitrepo.Revision, error)
	History(string, int) ([]gitrepo.Revision, error)
	RecordAt(string, string) ([]byte, gitrepo.Revision, error)
	Remove(string) error
}

type searchService interface {
	Search(search.Query) search.Response
	IndexSheet(search.SheetRecord)
	IndexLot(search.LotRecord)
	DeleteSheet(string)
}

type exporter interface {
	Export(context.Context, export.Document, export.Format) (*export.Result, error)
}

// openSheet is a sheet held in memory. mu serializes every mutation and
// snapshot of the sheet. A deleted entry stays registered until its stored
// copies are gone so that no request can bring it back.
type openSheet struct {
	mu      sync.Mutex
	sheet   *sheet.Sheet
	saver   *sheet.Saver
	deleted bool
}

type Service struct {
	cfg      config.Config
	catalog  *sheet.Catalog
	slots    slotStore
	store    dataStore
	git      gitService
	search   searchService
	exporter exporter
	blobs    blob.Store
	now      func() time.Time

	mu   sync.Mutex
	open map[string]*openSheet
}

// Deps groups the collaborators of a Service. Search and Blobs may be nil.
type Deps struct {
	Catalog  *sheet.Catalog
	Slots    slot.Store
	Store    *store.PostgresStore
	Git      *gitrepo.Service
	Search   *search.Service
	Exporter *export.Service
	Blobs    blob.Store
}

func New(cfg config.Config, deps Deps) *Service {
	s := &Service{
		cfg:      cfg,
		catalog:  deps.Catalog,
		slots:    deps.Slots,
		store:    deps.Store,
		git:      deps.Git,
		exporter: deps.Exporter,
		blobs:    deps.Blobs,
		now:      time.Now,
		open:     make(map[string]*openSheet),
	}
	if deps.Search != nil {
		s.search = deps.Search
	}
	return s
}

type GridSummary struct {
	Name  string `json:"name"`
	Title string `json:"title"`
}

type TemplateSummary struct {
	Name        string        `json:"name"`
	Title       string        `json:"title"`
	DefaultRows int           `json:"defaultRows"`
	Grids       []GridSummary `json:"grids"`
}

type SheetListItem struct {
	SrNo      int       `json:"srNo"`
	ID        string    `json:"id"`
	Title     string    `json:"title"`
	Template  string    `json:"template"`
	RowCount  int       `json:"rowCount"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

type LotSaveResult struct {
	Lot      int              `json:"lot"`
	LotID    string           `json:"lotId"`
	Identity string           `json:"identity"`
	Revision gitrepo.Revision `json:"revision"`
}

type NavigateResult struct {
	Pos   grid.Pos `json:"pos"`
	Moved bool     `json:"moved"`
}

type ExportResult struct {
	*export.Result
	URL string
}

func (s *Service) Templates() []TemplateSummary {
	templates := s.catalog.List()
	out := make([]TemplateSummary, 0, len(templates))
	for _, tmpl := range templates {
		item := TemplateSummary{Name: tmpl.Name, Title: tmpl.Title, DefaultRows: tmpl.DefaultRows}
		item.Grids = append(item.Grids, GridSummary{Name: tmpl.Primary.Name, Title: tmpl.Primary.Title})
		for _, sec := range tmpl.Secondaries {
			item.Grids = append(item.Grids, GridSummary{Name: sec.Name, Title: sec.Title})
		}
		out = append(out, item)
	}
	return out
}

func (s *Service) CreateSheet(ctx context.Context, templateName, title string) (sheet.View, error) {
	if strings.TrimSpace(templateName) == "" {
		return sheet.View{}, domainError(http.StatusUnprocessableEntity, "VALIDATION_ERROR", "template is required", nil)
	}
	tmpl, err := s.catalog.Get(templateName)
	if err != nil {
		return sheet.View{}, err
	}
	sh := sheet.New(util.NewID("sheet"), strings.TrimSpace(title), tmpl, s.now().UTC())
	entry := s.register(sh)

	entry.mu.Lock()
	defer entry.mu.Unlock()
	s.persistLocal(ctx, sh)
	entry.saver.Request()
	log.Printf("sheets: created %s from %s", sh.ID, tmpl.Name)
	return s.viewLocked(entry), nil
}

func (s *Service) GetSheet(ctx context.Context, id string) (sheet.View, error) {
	entry, err := s.acquire(ctx, id)
	if err != nil {
		return sheet.View{}, err
	}
	defer entry.mu.Unlock()
	return s.viewLocked(entry), nil
}

// ListSheets lists saved sheets newest first. Serial numbers follow the same
// order, so the latest sheet is Sr No. 1.
func (s *Service) ListSheets(ctx context.Context, template string, limit int) ([]SheetListItem, error) {
	summaries, err := s.store.ListSheets(ctx, strings.TrimSpace(template), limit)
	if err != nil {
		return nil, fmt.Errorf("list sheets: %w", err)
	}
	items := make([]SheetListItem, 0, len(summaries))
	for i, summary := range summaries {
		items = append(items, SheetListItem{
			SrNo:      i + 1,
			ID:        summary.ID,
			Title:     summary.Title,
			Template:  summary.Template,
			RowCount:  summary.RowCount,
			CreatedAt: summary.CreatedAt,
			UpdatedAt: summary.UpdatedAt,
		})
	}
	return items, nil
}

// DeleteSheet removes every stored copy of a sheet. Requests racing with it
// see the sheet as missing.
func (s *Service) DeleteSheet(ctx context.Context, id string) error {
	s.mu.Lock()
	entry, wasOpen := s.open[id]
	if !wasOpen {
		entry = &openSheet{saver: sheet.NewSaver(func(context.Context) error { return nil }, s.cfg.SaveTimeout)}
		s.open[id] = entry
	}
	s.mu.Unlock()
	defer func() {
		s.mu.Lock()
		if s.open[id] == entry {
			delete(s.open, id)
		}
		s.mu.Unlock()
	}()

	entry.mu.Lock()
	entry.deleted = true
	entry.mu.Unlock()
	entry.saver.Wait()

	_, slotErr := s.slots.Get(ctx, id)
	hadSlot := slotErr == nil
	if err := s.slots.Delete(ctx, id); err != nil {
		return fmt.Errorf("delete slot: %w", err)
	}
	removed, err := s.store.DeleteSheet(ctx, id)
	if err != nil {
		return fmt.Errorf("delete sheet: %w", err)
	}
	if !removed && !hadSlot && !wasOpen {
		return sheetNotFound(id)
	}
	if err := s.git.Remove(id); err != nil {
		log.Printf("sheets: remove history %s: %v", id, err)
	}
	if s.search != nil {
		s.search.DeleteSheet(id)
	}
	log.Printf("sheets: deleted %s", id)
	return nil
}

// Apply runs one mutation against a sheet, then brings secondaries in line,
// writes the local slot and schedules the remote save. A failed mutation
// leaves the sheet untouched and nothing is persisted.
func (s *Service) Apply(ctx context.Context, id string, mutation sheet.Mutation) (sheet.View, error) {
	entry, err := s.acquire(ctx, id)
	if err != nil {
		return sheet.View{}, err
	}
	defer entry.mu.Unlock()

	if err := mutation(entry.sheet); err != nil {
		return sheet.View{}, err
	}
	entry.sheet.Sync()
	entry.sheet.UpdatedAt = s.now().UTC()
	s.persistLocal(ctx, entry.sheet)
	entry.saver.Request()
	return s.viewLocked(entry), nil
}

const (
	MoveDown     = "enter"
	MoveNext     = "tab"
	MovePrevious = "shift-tab"
)

// Navigate resolves where focus goes from pos for a key press. It does not
// change the sheet.
func (s *Service) Navigate(ctx context.Context, id, gridName string, pos grid.Pos, key string) (NavigateResult, error) {
	entry, err := s.acquire(ctx, id)
	if err != nil {
		return NavigateResult{}, err
	}
	defer entry.mu.Unlock()

	g, err := entry.sheet.Grid(gridName)
	if err != nil {
		return NavigateResult{}, err
	}
	var next grid.Pos
	var moved bool
	switch strings.ToLower(strings.TrimSpace(key)) {
	case MoveDown, "":
		next, moved = g.Below(pos)
	case MoveNext:
		next, moved = g.NextTab(pos, false)
	case MovePrevious:
		next, moved = g.NextTab(pos, true)
	default:
		return NavigateResult{}, domainError(http.StatusUnprocessableEntity, "VALIDATION_ERROR", "key must be enter, tab or shift-tab", nil)
	}
	if !moved {
		next = pos
	}
	return NavigateResult{Pos: next, Moved: moved}, nil
}

// SaveLot is the explicit Save of one lot of the primary grid: the sheet is
// written remotely first, then the lot is upserted by identity, committed to
// the sheet's history and indexed for search. The sheet stays locked until
// the lot is stored so a concurrent delete cannot be undone.
func (s *Service) SaveLot(ctx context.Context, id string, lot int, author string) (LotSaveResult, error) {
	entry, err := s.acquire(ctx, id)
	if err != nil {
		return LotSaveResult{}, err
	}
	defer entry.mu.Unlock()

	sh := entry.sheet
	if lot < 0 || lot >= sh.Primary.LotCount() {
		return LotSaveResult{}, domainError(http.StatusNotFound, "LOT_NOT_FOUND", fmt.Sprintf("Lot %d not found", lot+1), nil)
	}
	lotRecord, _ := grid.SerializeLot(sh.Primary, lot)
	view := sh.Primary.View()
	identity, text := lotText(view, lot)
	record := sh.Record()
	remote, err := remoteSheet(sh, record)
	if err != nil {
		return LotSaveResult{}, err
	}

	lotJSON, err := json.Marshal(lotRecord)
	if err != nil {
		return LotSaveResult{}, fmt.Errorf("encode lot: %w", err)
	}
	if err := s.store.UpsertSheet(ctx, remote); err != nil {
		return LotSaveResult{}, fmt.Errorf("save sheet: %w", err)
	}
	if err := s.store.UpsertLot(ctx, store.Lot{
		SheetID:    id,
		Grid:       sh.Template.Primary.Name,
		LotID:      lotRecord.ID,
		Position:   lot,
		Identity:   identity,
		Record:     lotJSON,
		SearchText: text,
		SavedAt:    s.now().UTC(),
	}); err != nil {
		return LotSaveResult{}, fmt.Errorf("save lot: %w", err)
	}

	message := fmt.Sprintf("Save lot %d", lot+1)
	if identity != "" {
		message += ": " + identity
	}
	revision, err := s.git.CommitRecord(id, remote.Record, firstNonBlank(author, "Inspection"), message)
	if err != nil {
		return LotSaveResult{}, fmt.Errorf("commit revision: %w", err)
	}

	if s.search != nil {
		s.search.IndexLot(search.LotRecord{
			ID:       search.LotKey(id, sh.Template.Primary.Name, lotRecord.ID),
			SheetID:  id,
			Grid:     sh.Template.Primary.Name,
			LotID:    lotRecord.ID,
			Template: sh.Template.Name,
			Identity: identity,
			Text:     text,
		})
	}
	log.Printf("sheets: saved lot %d of %s at %s", lot+1, id, revision.Hash)
	return LotSaveResult{Lot: lot, LotID: lotRecord.ID, Identity: identity, Revision: revision}, nil
}

func (s *Service) History(ctx context.Context, id string, limit int) ([]gitrepo.Revision, error) {
	entry, err := s.acquire(ctx, id)
	if err != nil {
		return nil, err
	}
	entry.mu.Unlock()
	items, err := s.git.History(id, limit)
	if errors.Is(err, gitrepo.ErrNoHistory) {
		return []gitrepo.Revision{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read history: %w", err)
	}
	return items, nil
}

// Revision renders the sheet as it was committed at hash.
func (s *Service) Revision(ctx context.Context, id, hash string) (sheet.View, gitrepo.Revision, error) {
	data, revision, err := s.git.RecordAt(id, hash)
	if err != nil {
		if errors.Is(err, gitrepo.ErrNoHistory) {
			return sheet.View{}, gitrepo.Revision{}, sheetNotFound(id)
		}
		return sheet.View{}, gitrepo.Revision{}, domainError(http.StatusNotFound, "REVISION_NOT_FOUND", "Revision not found", map[string]any{"hash": hash})
	}
	sh, err := s.decode(data)
	if err != nil {
		return sheet.View{}, gitrepo.Revision{}, err
	}
	view := sh.View()
	view.Save = sheet.SaveStatus{State: sheet.Idle}
	return view, revision, nil
}

// Export renders the sheet. With upload set and an object store configured the
// file is also stored and its URL returned.
func (s *Service) Export(ctx context.Context, id string, format export.Format, upload bool) (*ExportResult, error) {
	entry, err := s.acquire(ctx, id)
	if err != nil {
		return nil, err
	}
	doc := exportDocument(entry.sheet, s.now().UTC())
	entry.mu.Unlock()

	result, err := s.exporter.Export(ctx, doc, format)
	if err != nil {
		return nil, err
	}
	out := &ExportResult{Result: result}
	if !upload {
		return out, nil
	}
	if s.blobs == nil {
		return nil, domainError(http.StatusServiceUnavailable, "UPLOAD_UNAVAILABLE", "Object store not configured", nil)
	}
	key := fmt.Sprintf("exports/%s/%s-%s", id, s.now().UTC().Format("20060102T150405"), result.Filename)
	info, err := s.blobs.Put(ctx, key, result.Data, result.MimeType)
	if err != nil {
		return nil, fmt.Errorf("upload export: %w", err)
	}
	out.URL = info.URL
	return out, nil
}

func (s *Service) Search(_ context.Context, q search.Query) search.Response {
	if s.search == nil {
		return search.Response{Results: []search.Result{}, Query: q.Text}
	}
	return s.search.Search(q)
}

// Ping checks the data store and the local slot store.
func (s *Service) Ping(ctx context.Context) error {
	if err := s.store.Ping(ctx); err != nil {
		return fmt.Errorf("database: %w", err)
	}
	if err := s.slots.Ping(ctx); err != nil {
		return fmt.Errorf("slots: %w", err)
	}
	return nil
}

// Close waits for in-flight remote saves.
func (s *Service) Close() {
	s.mu.Lock()
	entries := make([]*openSheet, 0, len(s.open))
	for _, entry := range s.open {
		entries = append(entries, entry)
	}
	s.mu.Unlock()
	for _, entry := range entries {
		entry.saver.Wait()
	}
}

// load returns the open sheet for id, restoring it from the local slot or,
// failing that, from the data store.
func (s *Service) load(ctx context.Context, id string) (*openSheet, error) {
	id = strings.TrimSpace(id)
	s.mu.Lock()
	entry, ok := s.open[id]
	s.mu.Unlock()
	if ok {
		return entry, nil
	}
	if id == "" {
		return nil, sheetNotFound(id)
	}

	sh, err := s.restore(ctx, id)
	if err != nil {
		return nil, err
	}
	return s.register(sh), nil
}

// acquire loads a sheet and returns it locked. Deleted sheets are not found.
func (s *Service) acquire(ctx context.Context, id string) (*openSheet, error) {
	entry, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	entry.mu.Lock()
	if entry.deleted {
		entry.mu.Unlock()
		return nil, sheetNotFound(id)
	}
	return entry, nil
}

func (s *Service) restore(ctx context.Context, id string) (*sheet.Sheet, error) {
	stored, err := s.slots.Get(ctx, id)
	switch {
	case err == nil:
		sh, decodeErr := s.decode(stored.Value)
		if decodeErr == nil && sh.ID == id {
			return sh, nil
		}
		log.Printf("sheets: discarding malformed slot %s: %v", id, decodeErr)
		if err := s.slots.Delete(ctx, id); err != nil {
			log.Printf("sheets: delete slot %s: %v", id, err)
		}
	case !errors.Is(err, slot.ErrNotFound):
		return nil, fmt.Errorf("read slot: %w", err)
	}

	remote, err := s.store.GetSheet(ctx, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, sheetNotFound(id)
	}
	if err != nil {
		return nil, fmt.Errorf("load sheet: %w", err)
	}
	sh, err := s.decode(remote.Record)
	if err != nil {
		log.Printf("sheets: remote record %s unreadable: %v", id, err)
		return nil, domainError(http.StatusUnprocessableEntity, "SHEET_CORRUPT", "Stored sheet could not be read", nil)
	}
	s.persistLocal(ctx, sh)
	return sh, nil
}

func (s *Service) decode(data []byte) (*sheet.Sheet, error) {
	rec, err := sheet.DecodeRecord(data)
	if err != nil {
		return nil, err
	}
	tmpl, err := s.catalog.Get(rec.Template)
	if err != nil {
		return nil, err
	}
	return sheet.Restore(rec, tmpl), nil
}

func (s *Service) register(sh *sheet.Sheet) *openSheet {
	s.mu.Lock()
	defer s.mu.Unlock()
	if existing, ok := s.open[sh.ID]; ok {
		return existing
	}
	entry := &openSheet{sheet: sh}
	entry.saver = sheet.NewSaver(func(ctx context.Context) error {
		return s.saveRemote(ctx, entry)
	}, s.cfg.SaveTimeout)
	s.open[sh.ID] = entry
	return entry
}

// saveRemote writes the latest state of the sheet, not the state at the time
// the save was requested.
func (s *Service) saveRemote(ctx context.Context, entry *openSheet) error {
	entry.mu.Lock()
	if entry.deleted {
		entry.mu.Unlock()
		return nil
	}
	sh := entry.sheet
	remote, err := remoteSheet(sh, sh.Record())
	summary := search.SheetRecord{ID: sh.ID, Title: sh.Title, Template: sh.Template.Name, RowCount: sh.Primary.TotalRows()}
	entry.mu.Unlock()
	if err != nil {
		return err
	}
	if err := s.store.UpsertSheet(ctx, remote); err != nil {
		log.Printf("sheets: remote save %s: %v", remote.ID, err)
		return fmt.Errorf("save sheet: %w", err)
	}
	if s.search != nil {
		s.search.IndexSheet(summary)
	}
	return nil
}

func (s *Service) persistLocal(ctx context.Context, sh *sheet.Sheet) {
	data, err := json.Marshal(sh.Record())
	if err != nil {
		log.Printf("sheets: encode %s: %v", sh.ID, err)
		return
	}
	if err := s.slots.Set(ctx, sh.ID, data); err != nil {
		log.Printf("sheets: write slot %s: %v", sh.ID, err)
	}
}

func (s *Service) viewLocked(entry *openSheet) sheet.View {
	view := entry.sheet.View()
	view.Save = entry.saver.Status()
	if view.Save.LastError != "" {
		view.Notice = "Saved on this device; remote save failed: " + view.Save.LastError
	}
	return view
}

func remoteSheet(sh *sheet.Sheet, rec sheet.Record) (store.Sheet, error) {
	data, err := json.Marshal(rec)
	if err != nil {
		return store.Sheet{}, fmt.Errorf("encode sheet: %w", err)
	}
	return store.Sheet{
		ID:        sh.ID,
		Template:  sh.Template.Name,
		Title:     sh.Title,
		Record:    data,
		RowCount:  sh.Primary.TotalRows(),
		CreatedAt: sh.CreatedAt,
		UpdatedAt: sh.UpdatedAt,
	}, nil
}

// lotText returns the lot's merged values joined for display and every
// non-empty cell value for full-text search.
func lotText(view grid.View, lot int) (identity, text string) {
	if lot < 0 || lot >= len(view.Lots) {
		return "", ""
	}
	var ids, words []string
	for r, row := range view.Lots[lot].Rows {
		for _, cell := range row.Cells {
			if cell.Text == "" {
				continue
			}
			words = append(words, cell.Text)
			if r == 0 && view.Columns[cell.Col].Kind == grid.MergedIdentity {
				ids = append(ids, cell.Text)
			}
		}
	}
	return strings.Join(ids, " / "), strings.Join(words, " ")
}

func exportDocument(sh *sheet.Sheet, now time.Time) export.Document {
	doc := export.Document{
		Title:       sh.Title,
		Subtitle:    sh.Template.Title,
		GeneratedAt: now,
		Grids:       []export.Table{{Title: firstNonBlank(sh.Template.Primary.Title, sh.Primary.Name()), View: sh.Primary.View()}},
	}
	for i, sec := range sh.Secondaries {
		title := sec.Name()
		if i < len(sh.Template.Secondaries) {
			title = firstNonBlank(sh.Template.Secondaries[i].Title, title)
		}
		doc.Grids = append(doc.Grids, export.Table{Title: title, View: sec.View()})
	}
	return doc
}

func sheetNotFound(id string) *DomainError {
	return domainError(http.StatusNotFound, "SHEET_NOT_FOUND", "Sheet not found", map[string]any{"id": id})
}

func firstNonBlank(values ...string) string {
	for _, value := range values {
		trimmed := strings.TrimSpace(value)
		if trimmed != "" {
			return trimmed
		}
	}
	return ""
}
