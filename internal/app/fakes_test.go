package app

import (
	"context"
	"database/sql"
	"sort"
	"sync"
	"testing"
	"time"

	"inspection/api/internal/blob"
	"inspection/api/internal/config"
	"inspection/api/internal/export"
	"inspection/api/internal/gitrepo"
	"inspection/api/internal/search"
	"inspection/api/internal/sheet"
	"inspection/api/internal/slot"
	"inspection/api/internal/store"
)

type fakeSlots struct {
	mu      sync.Mutex
	values  map[string][]byte
	pingErr error
}

func newFakeSlots() *fakeSlots {
	return &fakeSlots{values: map[string][]byte{}}
}

func (f *fakeSlots) Get(_ context.Context, key string) (slot.Entry, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	value, ok := f.values[key]
	if !ok {
		return slot.Entry{}, slot.ErrNotFound
	}
	return slot.Entry{Value: append([]byte(nil), value...), UpdatedAt: time.Now()}, nil
}

func (f *fakeSlots) Set(_ context.Context, key string, value []byte) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.values[key] = append([]byte(nil), value...)
	return nil
}

func (f *fakeSlots) Delete(_ context.Context, key string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.values, key)
	return nil
}

func (f *fakeSlots) Ping(context.Context) error { return f.pingErr }

func (f *fakeSlots) has(key string) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	_, ok := f.values[key]
	return ok
}

type fakeStore struct {
	mu            sync.Mutex
	sheets        map[string]store.Sheet
	lots          map[string]store.Lot
	upserts       int
	pingFn        func(context.Context) error
	upsertSheetFn func(context.Context, store.Sheet) error
}

func newFakeStore() *fakeStore {
	return &fakeStore{sheets: map[string]store.Sheet{}, lots: map[string]store.Lot{}}
}

func (f *fakeStore) Ping(ctx context.Context) error {
	if f.pingFn != nil {
		return f.pingFn(ctx)
	}
	return nil
}

func (f *fakeStore) UpsertSheet(ctx context.Context, item store.Sheet) error {
	if f.upsertSheetFn != nil {
		if err := f.upsertSheetFn(ctx, item); err != nil {
			return err
		}
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.upserts++
	f.sheets[item.ID] = item
	return nil
}

func (f *fakeStore) GetSheet(_ context.Context, id string) (store.Sheet, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	item, ok := f.sheets[id]
	if !ok {
		return store.Sheet{}, sql.ErrNoRows
	}
	return item, nil
}

func (f *fakeStore) ListSheets(_ context.Context, template string, limit int) ([]store.SheetSummary, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := []store.SheetSummary{}
	for _, item := range f.sheets {
		if template != "" && item.Template != template {
			continue
		}
		out = append(out, store.SheetSummary{ID: item.ID, Template: item.Template, Title: item.Title, RowCount: item.RowCount, CreatedAt: item.CreatedAt, UpdatedAt: item.UpdatedAt})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (f *fakeStore) DeleteSheet(_ context.Context, id string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	_, ok := f.sheets[id]
	delete(f.sheets, id)
	return ok, nil
}

func (f *fakeStore) UpsertLot(_ context.Context, lot store.Lot) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.lots[lot.SheetID+"/"+lot.Grid+"/"+lot.LotID] = lot
	return nil
}

func (f *fakeStore) ListLots(_ context.Context, sheetID string) ([]store.Lot, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := []store.Lot{}
	for _, lot := range f.lots {
		if lot.SheetID == sheetID {
			out = append(out, lot)
		}
	}
	return out, nil
}

func (f *fakeStore) upsertCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.upserts
}

type fakeGit struct {
	mu      sync.Mutex
	commits map[string][][]byte
	removed []string
}

func newFakeGit() *fakeGit {
	return &fakeGit{commits: map[string][][]byte{}}
}

func (f *fakeGit) CommitRecord(sheetID string, record []byte, author, message string) (gitrepo.Revision, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.commits[sheetID] = append(f.commits[sheetID], record)
	return gitrepo.Revision{Hash: revisionHash(len(f.commits[sheetID])), Message: message, Author: author, CreatedAt: time.Now()}, nil
}

func (f *fakeGit) History(sheetID string, limit int) ([]gitrepo.Revision, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	records, ok := f.commits[sheetID]
	if !ok {
		return nil, gitrepo.ErrNoHistory
	}
	out := []gitrepo.Revision{}
	for i := len(records); i >= 1; i-- {
		out = append(out, gitrepo.Revision{Hash: revisionHash(i)})
		if limit > 0 && len(out) >= limit {
			break
		}
	}
	return out, nil
}

func (f *fakeGit) RecordAt(sheetID, hash string) ([]byte, gitrepo.Revision, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	records, ok := f.commits[sheetID]
	if !ok {
		return nil, gitrepo.Revision{}, gitrepo.ErrNoHistory
	}
	for i, record := range records {
		if revisionHash(i+1) == hash {
			return record, gitrepo.Revision{Hash: hash}, nil
		}
	}
	return nil, gitrepo.Revision{}, sql.ErrNoRows
}

func (f *fakeGit) Remove(sheetID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.commits, sheetID)
	f.removed = append(f.removed, sheetID)
	return nil
}

func revisionHash(n int) string {
	return "rev000" + string(rune('0'+n))
}

type fakeSearch struct {
	mu      sync.Mutex
	sheets  []search.SheetRecord
	lots    []search.LotRecord
	deleted []string
	query   search.Query
}

func (f *fakeSearch) Search(q search.Query) search.Response {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.query = q
	return search.Response{Results: []search.Result{{Type: search.ResultLot, ID: "hit", Title: "A1"}}, Total: 1, Query: q.Text}
}

func (f *fakeSearch) IndexSheet(record search.SheetRecord) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sheets = append(f.sheets, record)
}

func (f *fakeSearch) IndexLot(record search.LotRecord) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.lots = append(f.lots, record)
}

func (f *fakeSearch) DeleteSheet(id string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.deleted = append(f.deleted, id)
}

type fakeExporter struct {
	doc export.Document
}

func (f *fakeExporter) Export(_ context.Context, doc export.Document, format export.Format) (*export.Result, error) {
	f.doc = doc
	switch format {
	case export.FormatXLSX:
		return &export.Result{Data: []byte("xlsx"), Filename: "report.xlsx", MimeType: "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"}, nil
	case export.FormatPDF:
		return nil, export.ErrPDFDependencyMissing
	default:
		return nil, export.ErrUnsupportedFormat
	}
}

type testEnv struct {
	svc      *Service
	slots    *fakeSlots
	store    *fakeStore
	git      *fakeGit
	search   *fakeSearch
	exporter *fakeExporter
	blobs    *blob.Memory
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	catalog, err := sheet.LoadCatalog("")
	if err != nil {
		t.Fatalf("LoadCatalog: %v", err)
	}
	env := &testEnv{
		slots:    newFakeSlots(),
		store:    newFakeStore(),
		git:      newFakeGit(),
		search:   &fakeSearch{},
		exporter: &fakeExporter{},
		blobs:    blob.NewMemory(),
	}
	env.svc = &Service{
		cfg:      config.Config{SaveTimeout: time.Second},
		catalog:  catalog,
		slots:    env.slots,
		store:    env.store,
		git:      env.git,
		search:   env.search,
		exporter: env.exporter,
		blobs:    env.blobs,
		now:      func() time.Time { return time.Date(2024, 3, 4, 8, 30, 0, 0, time.UTC) },
		open:     make(map[string]*openSheet),
	}
	t.Cleanup(env.svc.Close)
	return env
}
