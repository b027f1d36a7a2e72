// Package db provides the SQLite storage layer for courier.
// It implements every repository interface from the domain package on a single
// Repository value that owns the database connection.
//
// This package is responsible for:
//   - Establishing the database connection and applying the embedded goose migrations (`db.go`).
//   - Defining database-specific structs (`dbVariable`, `dbRequest`, ...) that map to the SQL tables,
//     and converting them to and from domain structs.
//   - Storing list fields (headers, params, form data, tags, variable names) as JSON columns (`types.go`).
//   - Keeping sync group membership in the `sync_group_member` table, which is the only
//     source of truth for which workspace belongs to which group.
//
// Nothing in this package is process global: callers open a connection with New and
// own the Repository built on top of it.
package db
