// Package model contains the provider-neutral plumbing shared by concrete
// core.ModelPort implementations: tool specifications exposed to providers,
// the action-over-reply resolution rule, and a scripted mock port for tests
// and examples. Concrete adapters live in sub-packages (anthropic, openai)
// and are selected by configuration at process start.
package model
