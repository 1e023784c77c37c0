package search

import (
	"encoding/json"
	"errors"
	"testing"

	meili "github.com/meilisearch/meilisearch-go"
)

type fakeSearcher struct {
	results []Result
	err     error
	last    Query
}

func (f *fakeSearcher) Search(q Query) ([]Result, int, error) {
	f.last = q
	return f.results, len(f.results), f.err
}

func (f *fakeSearcher) Healthy() bool { return true }

func TestServiceFallsBackToPostgres(t *testing.T) {
	fake := &fakeSearcher{results: []Result{{Type: ResultLot, ID: "s__inspection__l", SheetID: "s"}}}
	svc := &Service{pgfts: fake}

	resp := svc.Search(Query{Text: "a12", FilterTemplate: "inline-inspection"})
	if resp.Total != 1 || resp.Query != "a12" || resp.Results[0].SheetID != "s" {
		t.Fatalf("unexpected response %+v", resp)
	}
	if fake.last.FilterTemplate != "inline-inspection" {
		t.Fatalf("expected query passed through, got %+v", fake.last)
	}
}

func TestServiceSwallowsSearchErrors(t *testing.T) {
	svc := &Service{pgfts: &fakeSearcher{err: errors.New("db down")}}
	resp := svc.Search(Query{Text: "x"})
	if resp.Results == nil || len(resp.Results) != 0 || resp.Total != 0 {
		t.Fatalf("expected empty non-nil results, got %+v", resp)
	}

	empty := NewService(nil, nil)
	if got := empty.Search(Query{Text: "x"}); got.Results == nil {
		t.Fatal("expected empty results without any backend")
	}
	empty.IndexSheet(SheetRecord{ID: "s"})
	empty.DeleteSheet("s")
}

func TestHitToResult(t *testing.T) {
	raw := func(v any) json.RawMessage {
		data, _ := json.Marshal(v)
		return data
	}
	hit := meili.Hit{
		"id":         raw("s1__inspection__lot_1"),
		"sheetId":    raw("s1"),
		"lotId":      raw("lot_1"),
		"template":   raw("inline-inspection"),
		"identity":   raw("A12 / Asha"),
		"text":       raw("Reject pin hole"),
		"_formatted": raw(map[string]any{"identity": "<mark>A12</mark> / Asha", "rowCount": 3}),
	}
	r := hitToResult(hit, ResultLot)
	if r.SheetID != "s1" || r.LotID != "lot_1" || r.Template != "inline-inspection" {
		t.Fatalf("unexpected ids %+v", r)
	}
	if r.Title != "<mark>A12</mark> / Asha" || r.Snippet != "Reject pin hole" {
		t.Fatalf("unexpected text %+v", r)
	}
}

func TestLotKey(t *testing.T) {
	if got := LotKey("sheet_1", "page2", "lot_9"); got != "sheet_1__page2__lot_9" {
		t.Fatalf("unexpected key %q", got)
	}
}
