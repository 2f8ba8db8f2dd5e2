// Package core provides the foundational domain types and interfaces used by
// AgentLoop. It defines the core abstractions for:
//
//   - Conversations (append-only message history plus turn-scoped state)
//   - Model ports (providers that turn history into a reply or a tool request)
//   - Tool gateways (name-resolved invocation of registered capabilities)
//   - Audit ledgers (durable, append-only records of every tool invocation)
//   - Pluggable stores for conversation state and document retrieval
//
// The package intentionally keeps implementation concerns (persistence, engine
// orchestration, concrete providers) out of scope, exposing small interfaces to
// enable custom backends and extensions. All exported identifiers include
// concise documentation to aid discoverability and external consumption.
package core
