package search

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/blevesearch/bleve/v2"
	"github.com/blevesearch/bleve/v2/search/query"

	"github.com/mindmapapp/mindmap/internal/util"
)

// SearchParams configures a diagram search.
type SearchParams struct {
	OwnerID string // required; results never cross owners
	Query   string
	Limit   int
	Offset  int
}

// SearchHit is one matching diagram.
type SearchHit struct {
	DiagramID int64   `json:"diagram_id"`
	Title     string  `json:"title"`
	Score     float64 `json:"score"`
}

// SearchResult is the outcome of Search.
type SearchResult struct {
	Query  string      `json:"query"`
	Total  uint64      `json:"total"`
	TookMs int64       `json:"took_ms"`
	Hits   []SearchHit `json:"hits"`
}

const defaultLimit = 50

// Search returns the owner's diagrams matching params.Query in title or node
// labels, best match first and most recently updated on ties. An empty query
// matches every diagram of the owner.
func (s *SearchIndex) Search(ctx context.Context, params SearchParams) (*SearchResult, error) {
	if params.OwnerID == "" {
		return nil, fmt.Errorf("search requires an owner")
	}
	if params.Limit <= 0 {
		params.Limit = defaultLimit
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	req := bleve.NewSearchRequestOptions(buildSearchQuery(params), params.Limit, params.Offset, false)
	req.SortBy([]string{"-_score", "-updated_at"})
	req.Fields = []string{"id", "title"}

	res, err := s.index.SearchInContext(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("execute search: %w", err)
	}

	result := &SearchResult{
		Query:  params.Query,
		Total:  res.Total,
		TookMs: res.Took.Milliseconds(),
		Hits:   make([]SearchHit, 0, len(res.Hits)),
	}
	for _, hit := range res.Hits {
		id, err := strconv.ParseInt(hit.ID, 10, 64)
		if err != nil {
			s.logger.Warn("skipping search hit with non-numeric id", "id", hit.ID)
			continue
		}
		h := SearchHit{DiagramID: id, Score: hit.Score}
		if t, ok := hit.Fields["title"].(string); ok {
			h.Title = t
		}
		result.Hits = append(result.Hits, h)
	}
	return result, nil
}

// buildSearchQuery scopes the query to the owner and ORs title and label
// matches, with fuzzy and prefix fallbacks on the title.
func buildSearchQuery(params SearchParams) query.Query {
	owner := bleve.NewTermQuery(params.OwnerID)
	owner.SetField("owner_id")

	text := strings.ToLower(util.FoldAccents(strings.TrimSpace(params.Query)))
	if text == "" {
		return owner
	}

	titleMatch := bleve.NewMatchQuery(text)
	titleMatch.SetField("title")
	titleMatch.SetBoost(3.0)

	labelMatch := bleve.NewMatchQuery(text)
	labelMatch.SetField("labels")
	labelMatch.SetBoost(1.5)

	fuzzy := bleve.NewFuzzyQuery(text)
	fuzzy.SetField("title")
	fuzzy.SetFuzziness(1)
	fuzzy.SetBoost(0.8)

	textQueries := []query.Query{titleMatch, labelMatch, fuzzy}
	if len(text) >= 2 {
		for _, field := range []string{"title", "labels"} {
			prefix := bleve.NewPrefixQuery(text)
			prefix.SetField(field)
			prefix.SetBoost(0.5)
			textQueries = append(textQueries, prefix)
		}
	}

	return bleve.NewConjunctionQuery(owner, bleve.NewDisjunctionQuery(textQueries...))
}
