// Package registry owns one (cache.KeyCache, engine.Engine) pair per
// namespace, where a namespace mirrors the original system's ctx.ns /
// Redis SELECT <n>: an outer key selecting which keyspace a command
// addresses. It is grounded on the teacher's
// internal/engine/tenants/manager.go lazy get-or-create pattern, repurposed
// from multi-tenant billing isolation to multi-database isolation, and
// extended with per-namespace request coalescing so a storm of concurrent
// first-access callers for the same not-yet-loaded namespace shares one
// WAL replay and one bootstrap scan instead of racing several.
package registry
