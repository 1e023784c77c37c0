package search

import (
	"context"
	"log"
)

// Service is the facade that tries Meilisearch first and falls back to PG FTS.
type Service struct {
	meili  *Meili
	pgfts  Searcher
	loader func(ctx context.Context) ([]SheetRecord, []LotRecord, error)
}

// NewService creates a search service. meili may be nil if Meilisearch is
// not configured.
func NewService(meili *Meili, pgfts *PgFTS) *Service {
	s := &Service{meili: meili}
	if pgfts != nil {
		s.pgfts = pgfts
		s.loader = pgfts.LoadAllRecords
	}
	return s
}

// Search tries Meilisearch if healthy, otherwise falls back to PG FTS.
func (s *Service) Search(q Query) Response {
	if s.meili != nil && s.meili.Healthy() {
		results, total, err := s.meili.Search(q)
		if err == nil {
			return Response{Results: nonNil(results), Total: total, Query: q.Text}
		}
		log.Printf("search: meilisearch error, falling back to pgfts: %v", err)
	}

	if s.pgfts == nil {
		return Response{Results: []Result{}, Total: 0, Query: q.Text}
	}
	results, total, err := s.pgfts.Search(q)
	if err != nil {
		log.Printf("search: pgfts error: %v", err)
		return Response{Results: []Result{}, Total: 0, Query: q.Text}
	}
	return Response{Results: nonNil(results), Total: total, Query: q.Text}
}

// IndexSheet indexes a sheet (fire-and-forget to Meilisearch).
func (s *Service) IndexSheet(sheet SheetRecord) {
	if s.meili == nil || !s.meili.Healthy() {
		return
	}
	go func() {
		if err := s.meili.IndexSheet(sheet); err != nil {
			log.Printf("search: index sheet %s: %v", sheet.ID, err)
		}
	}()
}

// IndexLot indexes a saved lot (fire-and-forget to Meilisearch).
func (s *Service) IndexLot(lot LotRecord) {
	if s.meili == nil || !s.meili.Healthy() {
		return
	}
	go func() {
		if err := s.meili.IndexLot(lot); err != nil {
			log.Printf("search: index lot %s: %v", lot.ID, err)
		}
	}()
}

// DeleteSheet removes a sheet and its lots from the index (fire-and-forget).
func (s *Service) DeleteSheet(id string) {
	if s.meili == nil || !s.meili.Healthy() {
		return
	}
	go func() {
		if err := s.meili.DeleteSheet(id); err != nil {
			log.Printf("search: delete sheet %s: %v", id, err)
		}
	}()
}

// ReindexAllFromPG pushes every sheet and saved lot from PostgreSQL into
// Meilisearch.
func (s *Service) ReindexAllFromPG(ctx context.Context) {
	if s.meili == nil || !s.meili.Healthy() || s.loader == nil {
		return
	}
	sheets, lots, err := s.loader(ctx)
	if err != nil {
		log.Printf("search: reindex load failed: %v", err)
		return
	}
	if err := s.meili.IndexSheets(sheets); err != nil {
		log.Printf("search: reindex sheets: %v", err)
	}
	if err := s.meili.IndexLots(lots); err != nil {
		log.Printf("search: reindex lots: %v", err)
	}
}

func nonNil(r []Result) []Result {
	if r == nil {
		return []Result{}
	}
	return r
}
