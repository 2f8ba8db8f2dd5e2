package tool

import (
	"context"

	"github.com/hupe1980/agentloop/core"
)

// searchMatch is one hit returned by the recall_search tool.
type searchMatch struct {
	ID      string  `json:"id"`
	Content string  `json:"content"`
	Score   float64 `json:"score"`
}

// searchResult is the JSON-serializable output of the recall_search tool.
type searchResult struct {
	Query string        `json:"query"`
	Hits  []searchMatch `json:"hits"`
}

// NewSearchTool builds the recall_search tool over a document index. Which
// index backs it (in-memory scan, sqlite keyword index, an external vector
// store) is a wiring decision; the tool only speaks core.DocumentIndex.
func NewSearchTool(index core.DocumentIndex) *FunctionTool {
	schema := map[string]any{
		"type": "object",
		"properties": map[string]any{
			"q": map[string]any{
				"type":        "string",
				"description": "Query to search stored documents for.",
			},
			"k": map[string]any{
				"type":        "integer",
				"description": "Number of results to return.",
			},
		},
		"required": []string{"q"},
	}

	return NewFunctionTool(
		"recall_search",
		"Search indexed documents and return the best matching passages",
		schema,
		func(ctx context.Context, args map[string]any) (any, error) {
			query, _ := args["q"].(string)
			limit := 5
			if k, ok := args["k"].(float64); ok && k > 0 {
				limit = int(k)
			}

			results, err := index.Search(ctx, query, limit)
			if err != nil {
				return nil, err
			}

			hits := make([]searchMatch, 0, len(results))
			for _, res := range results {
				hits = append(hits, searchMatch{ID: res.ID, Content: res.Content, Score: res.Score})
			}
			return searchResult{Query: query, Hits: hits}, nil
		},
	)
}
