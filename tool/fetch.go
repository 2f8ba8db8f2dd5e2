package tool

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/hupe1980/agentloop/core"
)

const fetchMaxBodyBytes = 1 << 20 // 1 MiB cap on fetched bodies

// fetchResult is the JSON-serializable output of the fetch_url tool.
type fetchResult struct {
	Status int    `json:"status"`
	Data   any    `json:"data"`
	Error  string `json:"error,omitempty"`
}

// NewFetchTool builds the fetch_url tool: a generic GET against a public
// API endpoint with optional query parameters. JSON responses are decoded;
// anything else is returned as text. HTTP errors (>= 400) are reported in
// the result rather than failing the invocation, so the model can reason
// about them.
func NewFetchTool(client *http.Client) *FunctionTool {
	if client == nil {
		client = &http.Client{Timeout: 15 * time.Second}
	}

	schema := map[string]any{
		"type": "object",
		"properties": map[string]any{
			"url": map[string]any{
				"type":        "string",
				"description": "Full URL of the public API endpoint.",
			},
			"params": map[string]any{
				"type":        "object",
				"description": "Optional query parameters.",
			},
		},
		"required": []string{"url"},
	}

	return NewFunctionTool(
		"fetch_url",
		"Fetch a public HTTP API endpoint and return its JSON or text response",
		schema,
		func(ctx context.Context, args map[string]any) (any, error) {
			rawURL, _ := args["url"].(string)
			target, err := url.Parse(rawURL)
			if err != nil || (target.Scheme != "http" && target.Scheme != "https") {
				return nil, core.NewToolError("fetch_url", fmt.Sprintf("invalid url %q", rawURL), core.ToolCodeValidation)
			}

			if params, ok := args["params"].(map[string]any); ok {
				query := target.Query()
				for k, v := range params {
					query.Set(k, fmt.Sprintf("%v", v))
				}
				target.RawQuery = query.Encode()
			}

			req, err := http.NewRequestWithContext(ctx, http.MethodGet, target.String(), nil)
			if err != nil {
				return nil, err
			}

			resp, err := client.Do(req)
			if err != nil {
				return nil, err
			}
			defer resp.Body.Close()

			body, err := io.ReadAll(io.LimitReader(resp.Body, fetchMaxBodyBytes))
			if err != nil {
				return nil, err
			}

			result := fetchResult{Status: resp.StatusCode}
			var decoded any
			if json.Unmarshal(body, &decoded) == nil {
				result.Data = decoded
			} else {
				result.Data = strings.TrimSpace(string(body))
			}
			if resp.StatusCode >= 400 {
				result.Error = fmt.Sprintf("HTTP error %d", resp.StatusCode)
			}
			return result, nil
		},
	)
}
