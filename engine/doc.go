// Package engine drives agent turns: it alternates model consultation and
// tool invocation over a conversation until the model produces a final
// answer, the step budget runs out, or the turn fails.
//
// The engine owns no provider or tool logic itself. It is wired from ports
// (core.ModelPort, core.ToolGateway), a conversation store and an audit
// ledger, and advances the conversation according to the routing rules in
// the router package. Every tool invocation is written to the ledger before
// its result is merged into the conversation, so the ledger never lags
// behind the state it explains.
package engine
