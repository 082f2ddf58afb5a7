package search

import (
	"github.com/blevesearch/bleve/v2"
	"github.com/blevesearch/bleve/v2/analysis/analyzer/keyword"
	"github.com/blevesearch/bleve/v2/analysis/lang/en"
	"github.com/blevesearch/bleve/v2/mapping"
)

// buildIndexMapping creates the Bleve mapping for identity documents.
// Names and aliases carry English stemming with term vectors for
// highlighting; type and ISBN fields use the keyword analyzer for exact
// matching.
func buildIndexMapping() mapping.IndexMapping {
	indexMapping := bleve.NewIndexMapping()
	indexMapping.DefaultAnalyzer = en.AnalyzerName

	docMapping := bleve.NewDocumentMapping()

	nameField := bleve.NewTextFieldMapping()
	nameField.Analyzer = en.AnalyzerName
	nameField.Store = true
	nameField.IncludeTermVectors = true
	docMapping.AddFieldMappingsAt("name", nameField)

	descField := bleve.NewTextFieldMapping()
	descField.Analyzer = en.AnalyzerName
	descField.Store = false
	docMapping.AddFieldMappingsAt("description", descField)

	authorField := bleve.NewTextFieldMapping()
	authorField.Analyzer = en.AnalyzerName
	authorField.Store = true
	authorField.IncludeTermVectors = true
	docMapping.AddFieldMappingsAt("author", authorField)

	aliasesField := bleve.NewTextFieldMapping()
	aliasesField.Analyzer = en.AnalyzerName
	aliasesField.Store = true
	aliasesField.IncludeTermVectors = true
	docMapping.AddFieldMappingsAt("aliases", aliasesField)

	bioField := bleve.NewTextFieldMapping()
	bioField.Analyzer = en.AnalyzerName
	bioField.Store = false
	docMapping.AddFieldMappingsAt("bio", bioField)

	typeField := bleve.NewTextFieldMapping()
	typeField.Analyzer = keyword.Name
	docMapping.AddFieldMappingsAt("type", typeField)

	idField := bleve.NewTextFieldMapping()
	idField.Analyzer = keyword.Name
	docMapping.AddFieldMappingsAt("id", idField)

	// Exact matching lets a pasted ISBN resolve straight to its group.
	isbnsField := bleve.NewTextFieldMapping()
	isbnsField.Analyzer = keyword.Name
	isbnsField.Store = true
	docMapping.AddFieldMappingsAt("isbns", isbnsField)

	yearField := bleve.NewNumericFieldMapping()
	yearField.Store = true
	docMapping.AddFieldMappingsAt("publication_year", yearField)

	bookCountField := bleve.NewNumericFieldMapping()
	bookCountField.Store = true
	docMapping.AddFieldMappingsAt("book_count", bookCountField)

	createdAtField := bleve.NewNumericFieldMapping()
	createdAtField.Store = true
	docMapping.AddFieldMappingsAt("created_at", createdAtField)

	indexMapping.AddDocumentMapping("_default", docMapping)

	return indexMapping
}
