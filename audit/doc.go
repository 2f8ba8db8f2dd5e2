// Package audit contains concrete AuditLedger implementations. The ledger
// contract and AuditRecord type reside in the core package; depend on
// core.AuditLedger in your code and select an implementation (the in-memory
// ledger below, or the durable sqlite backend in the sqlite sub-package) at
// wiring time.
//
// Auditability is a correctness property of the engine, not best-effort
// logging: implementations must fail loudly (core.ErrAuditUnavailable)
// rather than drop records.
package audit
