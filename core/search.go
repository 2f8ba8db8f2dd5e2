package core

import "context"

// SearchResult represents a retrieved document with a relevance score and arbitrary metadata.
type SearchResult struct {
	ID       string
	Content  string
	Score    float64
	Metadata map[string]any
}

// DocumentIndex is the narrow retrieval contract consumed by the
// recall_search tool. Concrete backends (in-memory scan, sqlite keyword
// index, an external vector database) are selected at wiring time; the core
// never inspects which one it talks to.
type DocumentIndex interface {
	// Add stores a document under the given id, replacing any previous
	// content for that id.
	Add(ctx context.Context, id, content string, metadata map[string]any) error

	// Search returns up to limit results ordered by descending score.
	Search(ctx context.Context, query string, limit int) ([]SearchResult, error)
}
