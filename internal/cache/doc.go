// Package cache is the auxiliary index described in the module's design
// notes: a concurrently-accessible, TTL-aware set mirroring the live keys
// of a Redis-compatible storage engine's meta index, purpose-built to
// serve KEYS-style pattern enumeration from memory instead of a full
// on-disk scan.
//
// KeyCache is the exported entry point. Its single-threaded semantics live
// in the unexported core type (put/delete/expire/get/size/dropAll, plus
// the sweep); KeyCache runs the lazy sweep ahead of every one of those
// operations and adds the readers-writer-plus-sweep-mutex locking
// discipline on top. Bootstrap
// reconstructs a KeyCache from a storage engine's meta keyspace once at
// process start.
package cache
