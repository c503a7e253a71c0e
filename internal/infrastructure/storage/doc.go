// Package storage provides durable named-value backends for entity state.
//
// Two backends share one contract: Get returns found=false for a key that
// was never set, Set overwrites by key, and values are opaque bytes.
//
//   - SQLite: a single-table key/value store on modernc.org/sqlite (pure Go,
//     no cgo). WAL journal, FULL sync, one open connection.
//   - Memory: process-local map, used in tests and with STORAGE_DRIVER=memory.
package storage
