// Package storage provides audit.Store implementations.
//
// MemoryStore keeps events in process and is meant for tests and one-shot
// runs. SQLiteStore writes to a local database file with WAL mode enabled.
// PostgresStore writes to a shared PostgreSQL database.
//
// All backends enforce uniqueness of (case_id, dedup_key): the SQL backends
// through a unique constraint with ON CONFLICT DO NOTHING, so the check and
// the insert happen atomically.
package storage
