// Package sqlite provides a durable core.DocumentIndex backed by SQLite.
// Documents survive process restarts; scoring is the same lexical
// term-overlap used by the in-memory index, computed over candidates the
// database pre-filters with LIKE.
package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	_ "modernc.org/sqlite"

	"github.com/hupe1980/agentloop/core"
	"github.com/hupe1980/agentloop/retrieval"
)

// Index implements core.DocumentIndex using SQLite.
type Index struct {
	db *sql.DB
}

// New opens (creating if necessary) the document database at dbPath and
// initializes the schema.
func New(dbPath string) (*Index, error) {
	if dir := filepath.Dir(dbPath); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create index directory: %w", err)
		}
	}

	dsn := dbPath + "?_journal=WAL&_sync=NORMAL&_busy_timeout=5000"
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open index database: %w", err)
	}

	db.SetMaxOpenConns(10)
	db.SetConnMaxLifetime(5 * time.Minute)

	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("ping index database: %w", err)
	}

	idx := &Index{db: db}
	if err := idx.initSchema(); err != nil {
		return nil, fmt.Errorf("initialize index schema: %w", err)
	}
	return idx, nil
}

func (i *Index) initSchema() error {
	query := `
	CREATE TABLE IF NOT EXISTS documents (
		id TEXT PRIMARY KEY,
		content TEXT NOT NULL,
		metadata TEXT NOT NULL DEFAULT '{}',
		updated_at INTEGER NOT NULL
	);
	`
	if _, err := i.db.Exec(query); err != nil {
		return fmt.Errorf("create schema: %w", err)
	}
	return nil
}

// Add upserts a document.
func (i *Index) Add(ctx context.Context, id, content string, metadata map[string]any) error {
	meta := "{}"
	if len(metadata) > 0 {
		raw, err := json.Marshal(metadata)
		if err != nil {
			return fmt.Errorf("serialize metadata: %w", err)
		}
		meta = string(raw)
	}

	query := `
		INSERT INTO documents (id, content, metadata, updated_at) VALUES (?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET content = excluded.content,
			metadata = excluded.metadata, updated_at = excluded.updated_at`
	_, err := i.db.ExecContext(ctx, query, id, content, meta, time.Now().Unix())
	if err != nil {
		return fmt.Errorf("store document: %w", err)
	}
	return nil
}

// Search pre-filters candidates containing any query term, then scores and
// orders them by term overlap.
func (i *Index) Search(ctx context.Context, query string, limit int) ([]core.SearchResult, error) {
	if limit <= 0 {
		limit = 5
	}
	terms := retrieval.Terms(query)
	if len(terms) == 0 {
		return []core.SearchResult{}, nil
	}

	clauses := make([]string, len(terms))
	args := make([]any, len(terms))
	for idx, term := range terms {
		clauses[idx] = "lower(content) LIKE ?"
		args[idx] = "%" + term + "%"
	}
	stmt := `SELECT id, content, metadata FROM documents WHERE ` + strings.Join(clauses, " OR ")

	rows, err := i.db.QueryContext(ctx, stmt, args...)
	if err != nil {
		return nil, fmt.Errorf("query documents: %w", err)
	}
	defer rows.Close()

	var results []core.SearchResult
	for rows.Next() {
		var id, content, meta string
		if err := rows.Scan(&id, &content, &meta); err != nil {
			return nil, fmt.Errorf("scan document row: %w", err)
		}
		var metadata map[string]any
		_ = json.Unmarshal([]byte(meta), &metadata)
		results = append(results, core.SearchResult{
			ID:       id,
			Content:  content,
			Score:    retrieval.ScoreContent(content, terms),
			Metadata: metadata,
		})
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate document rows: %w", err)
	}

	sort.Slice(results, func(a, b int) bool {
		if results[a].Score != results[b].Score {
			return results[a].Score > results[b].Score
		}
		return results[a].ID < results[b].ID
	})
	if len(results) > limit {
		results = results[:limit]
	}
	return results, nil
}

// Close releases the underlying database handle.
func (i *Index) Close() error {
	return i.db.Close()
}
