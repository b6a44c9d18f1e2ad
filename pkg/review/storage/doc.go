// Package storage provides review.Store backends.
//
// Three backends are available:
//
//   - MemoryStore: process-local, for tests and single-shot runs
//   - SQLiteStore: durable single-node storage (modernc.org/sqlite, no cgo)
//   - RedisStore: shared storage for several workers, using Lua scripts so
//     creation and completion are atomic on the server
//
// All backends implement completion as a compare-and-set on the PENDING
// status, so a review can be completed at most once.
package storage
