package retrieval

import (
	"context"
	"sort"
	"strings"
	"sync"

	"github.com/hupe1980/agentloop/core"
)

// storedDocument is the internal representation persisted by InMemoryIndex.
type storedDocument struct {
	ID       string
	Content  string
	Metadata map[string]any
}

// InMemoryIndex is a naive process-local DocumentIndex. Search is a linear
// scan scoring documents by the fraction of query terms they contain
// (case insensitive). Suitable for tests and demos; swap for the sqlite
// backend or a semantic index for production retrieval.
//
// Concurrency: protected by RWMutex.
type InMemoryIndex struct {
	mu   sync.RWMutex
	docs map[string]storedDocument
}

// NewInMemoryIndex creates an empty in-memory document index.
func NewInMemoryIndex() *InMemoryIndex {
	return &InMemoryIndex{docs: make(map[string]storedDocument)}
}

// Add stores a document, replacing any previous content for the id.
func (m *InMemoryIndex) Add(_ context.Context, id, content string, metadata map[string]any) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.docs[id] = storedDocument{ID: id, Content: content, Metadata: metadata}
	return nil
}

// Search scores every stored document against the query terms and returns
// up to limit hits ordered by descending score (ties broken by id for
// deterministic output).
func (m *InMemoryIndex) Search(_ context.Context, query string, limit int) ([]core.SearchResult, error) {
	if limit <= 0 {
		limit = 5
	}
	terms := Terms(query)

	m.mu.RLock()
	defer m.mu.RUnlock()

	results := make([]core.SearchResult, 0, len(m.docs))
	for _, doc := range m.docs {
		score := ScoreContent(doc.Content, terms)
		if score <= 0 {
			continue
		}
		results = append(results, core.SearchResult{ID: doc.ID, Content: doc.Content, Score: score, Metadata: doc.Metadata})
	}

	sort.Slice(results, func(i, j int) bool {
		if results[i].Score != results[j].Score {
			return results[i].Score > results[j].Score
		}
		return results[i].ID < results[j].ID
	})
	if len(results) > limit {
		results = results[:limit]
	}
	return results, nil
}

// Terms lower-cases and splits a query into whitespace-separated terms.
func Terms(query string) []string {
	return strings.Fields(strings.ToLower(query))
}

// ScoreContent returns the fraction of terms contained in content, 0 when
// no term matches or the term list is empty.
func ScoreContent(content string, terms []string) float64 {
	if len(terms) == 0 {
		return 0
	}
	lowered := strings.ToLower(content)
	matched := 0
	for _, term := range terms {
		if strings.Contains(lowered, term) {
			matched++
		}
	}
	return float64(matched) / float64(len(terms))
}
