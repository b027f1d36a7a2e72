// Package domain defines the core data structures of the courier engine.
// It contains the domain models, such as Variable, Workspace, Collection, Request and SyncGroup,
// as well as the repository interfaces that define the contracts for data persistence.
//
// The engine in the root package only ever talks to storage through these interfaces,
// which keeps it independent of the storage technology. The db package provides the
// SQLite implementation; tests and embedding applications are free to provide their own.
package domain
