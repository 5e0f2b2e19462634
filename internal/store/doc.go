// Package store persists archived objects in a single SQLite table.
//
// Every object lives in one row of the object table:
//
//	id        INTEGER PRIMARY KEY AUTOINCREMENT, never reused
//	type      registry tag of the concrete type
//	data      archive blob (see package archive)
//	refcount  soft liveness counter, 1 on insert
//
// # Identity
//
// A Store keeps at most one live instance per id. The identity cache is an
// explicit map: an entry stays until Forget, Delete, Close or the rollback
// of the transaction that inserted it. Instantiate returns cached instances
// as is and decodes the rest, so two lookups of one id return the same
// pointer while it is cached.
//
// # Refcount
//
// Rows with refcount <= 0 are hidden from Instantiate, Count and
// ReferencesOf but stay in the table until Delete. Waste never takes a
// refcount below zero.
//
// # Transactions
//
// WithTransaction groups writes. Objects inserted inside a block that rolls
// back are evicted and unbound. Transactions do not nest.
//
// # Database Configuration
//
//   - WAL mode: Concurrent reads during writes
//   - synchronous=NORMAL: Balance durability/performance
//   - busy_timeout=5000: Wait for locks up to 5 seconds
//
// FromConfig and WithPragmas override these defaults.
package store
