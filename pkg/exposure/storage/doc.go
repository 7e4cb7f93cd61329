// Package storage provides the exposure store backends.
//
// Two implementations of exposure.Storage:
//
//   - Memory: an in-process map for tests and short-lived tooling
//   - SQLite: a single-file embedded database for real persistence
//
// The SQLite backend uses a pure-Go driver (no cgo), WAL journaling
// with a background checkpoint loop, a busy timeout for lock
// contention, and a prepared insert on the write path. SQLite permits
// one writer at a time, so the pool is capped at a single connection;
// the store sink's worker goroutine is the only steady writer.
//
//	store, err := storage.NewSQLite(&storage.SQLiteConfig{
//	    Path: "data/exposures.db",
//	    WAL:  true,
//	})
//	if err != nil {
//	    return err
//	}
//	defer store.Close()
//
// Query paginates with Limit and Offset. The SQLite backend applies a
// default LIMIT of 100 when the query does not set one; callers that
// need every matching row page explicitly.
package storage
