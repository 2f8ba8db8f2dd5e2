// Package retrieval contains concrete DocumentIndex implementations backing
// the recall_search tool. The index contract and SearchResult type reside in
// the core package; depend on core.DocumentIndex in your code and select an
// implementation (the in-memory scan below, or the durable sqlite backend in
// the sqlite sub-package) at wiring time.
//
// Rationale: keeps domain contracts centralized while allowing pluggable
// backends (vector databases, embeddings indexes, etc.) to be added without
// introducing dependency cycles. Embedding computation is out of scope here;
// both bundled backends score lexically.
package retrieval
