package service

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/mindmapapp/mindmap/internal/domain"
	"github.com/mindmapapp/mindmap/internal/search"
	"github.com/mindmapapp/mindmap/internal/store"
)

// SearchService bridges the Bleve index and the store. It is installed as the
// store's SearchIndexer so every diagram write is reflected in the index.
type SearchService struct {
	index  *search.SearchIndex
	store  store.Store
	logger *slog.Logger
}

var (
	_ store.SearchIndexer = (*SearchService)(nil)
	_ DiagramSearcher     = (*SearchService)(nil)
)

// NewSearchService creates a new search service.
func NewSearchService(index *search.SearchIndex, store store.Store, logger *slog.Logger) *SearchService {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &SearchService{
		index:  index,
		store:  store,
		logger: logger,
	}
}

// IndexDiagram indexes or reindexes d.
func (s *SearchService) IndexDiagram(_ context.Context, d *domain.Diagram) error {
	if err := s.index.IndexDocument(search.DiagramToSearchDocument(d)); err != nil {
		return fmt.Errorf("index diagram: %w", err)
	}
	s.logger.Debug("indexed diagram", "diagram_id", d.ID)
	return nil
}

// DeleteDiagram removes diagram id from the index.
func (s *SearchService) DeleteDiagram(_ context.Context, id int64) error {
	if err := s.index.DeleteDocument(search.DocID(id)); err != nil {
		return fmt.Errorf("delete diagram from index: %w", err)
	}
	return nil
}

// SearchDiagramIDs returns ids of ownerID's diagrams matching query, best first.
func (s *SearchService) SearchDiagramIDs(ctx context.Context, ownerID, query string, limit int) ([]int64, error) {
	res, err := s.index.Search(ctx, search.SearchParams{OwnerID: ownerID, Query: query, Limit: limit})
	if err != nil {
		return nil, err
	}
	ids := make([]int64, len(res.Hits))
	for i, h := range res.Hits {
		ids[i] = h.DiagramID
	}
	return ids, nil
}

// Reindex rebuilds the index from every stored diagram.
func (s *SearchService) Reindex(ctx context.Context) error {
	diagrams, err := s.store.ListAllDiagrams(ctx)
	if err != nil {
		return fmt.Errorf("list diagrams: %w", err)
	}

	if err := s.index.Rebuild(); err != nil {
		return err
	}

	docs := make([]*search.SearchDocument, len(diagrams))
	for i, d := range diagrams {
		docs[i] = search.DiagramToSearchDocument(d)
	}
	if err := s.index.IndexDocuments(docs); err != nil {
		return fmt.Errorf("index diagrams: %w", err)
	}

	s.logger.Info("search index rebuilt", "diagrams", len(docs))
	return nil
}

// DocumentCount reports the number of indexed diagrams. Used by the health check.
func (s *SearchService) DocumentCount() (uint64, error) {
	return s.index.DocumentCount()
}
