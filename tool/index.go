package tool

import (
	"context"
	"strings"

	"github.com/google/uuid"

	"github.com/hupe1980/agentloop/core"
)

// indexResult is the JSON-serializable output of the recall_index tool.
type indexResult struct {
	ID     string `json:"id"`
	Status string `json:"status"`
}

// NewIndexTool builds the recall_index tool, the write side of the document
// index behind recall_search. Re-indexing an existing id replaces the
// stored document; omitting the id stores the content under a fresh one.
func NewIndexTool(index core.DocumentIndex) *FunctionTool {
	schema := map[string]any{
		"type": "object",
		"properties": map[string]any{
			"id": map[string]any{
				"type":        "string",
				"description": "Document id. A new one is generated when omitted.",
			},
			"content": map[string]any{
				"type":        "string",
				"description": "Document text to index.",
			},
			"metadata": map[string]any{
				"type":        "object",
				"description": "Optional metadata stored alongside the document.",
			},
		},
		"required": []string{"content"},
	}

	return NewFunctionTool(
		"recall_index",
		"Store a document in the index so recall_search can find it later",
		schema,
		func(ctx context.Context, args map[string]any) (any, error) {
			content, _ := args["content"].(string)
			if strings.TrimSpace(content) == "" {
				return nil, core.NewToolError("recall_index", "content must not be empty", core.ToolCodeValidation)
			}

			id, _ := args["id"].(string)
			if id == "" {
				id = uuid.NewString()
			}

			metadata, _ := args["metadata"].(map[string]any)

			if err := index.Add(ctx, id, content, metadata); err != nil {
				return nil, err
			}

			return indexResult{ID: id, Status: "indexed"}, nil
		},
	)
}
