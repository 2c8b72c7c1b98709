package search

import (
	"github.com/blevesearch/bleve/v2"
	"github.com/blevesearch/bleve/v2/analysis/analyzer/keyword"
	"github.com/blevesearch/bleve/v2/analysis/analyzer/standard"
	"github.com/blevesearch/bleve/v2/mapping"
)

// buildIndexMapping creates the Bleve mapping for diagram documents.
//
// Text is Spanish or English and arrives pre-folded, so the language-neutral
// standard analyzer is used instead of a stemming one. Owner and id are
// keywords used as exact filters.
func buildIndexMapping() mapping.IndexMapping {
	indexMapping := bleve.NewIndexMapping()
	indexMapping.DefaultAnalyzer = standard.Name

	docMapping := bleve.NewDocumentMapping()

	titleField := bleve.NewTextFieldMapping()
	titleField.Analyzer = standard.Name
	titleField.Store = true
	titleField.IncludeTermVectors = true
	docMapping.AddFieldMappingsAt("title", titleField)

	labelsField := bleve.NewTextFieldMapping()
	labelsField.Analyzer = standard.Name
	labelsField.Store = false
	docMapping.AddFieldMappingsAt("labels", labelsField)

	ownerField := bleve.NewTextFieldMapping()
	ownerField.Analyzer = keyword.Name
	docMapping.AddFieldMappingsAt("owner_id", ownerField)

	idField := bleve.NewTextFieldMapping()
	idField.Analyzer = keyword.Name
	idField.Store = true
	docMapping.AddFieldMappingsAt("id", idField)

	for _, name := range []string{"node_count", "edge_count", "updated_at"} {
		f := bleve.NewNumericFieldMapping()
		f.Store = true
		docMapping.AddFieldMappingsAt(name, f)
	}

	indexMapping.AddDocumentMapping("_default", docMapping)
	return indexMapping
}
