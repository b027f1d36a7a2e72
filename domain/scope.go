package domain

import (
	"errors"
	"fmt"

	"github.com/google/uuid"
)

// ErrInvalidScope is returned when a scope kind and owner id do not form a valid scope.
var ErrInvalidScope = errors.New("invalid scope")

// ScopeKind is the entity level a variable is declared at.
type ScopeKind string

const (
	ScopeGlobal     ScopeKind = "global"
	ScopeWorkspace  ScopeKind = "workspace"
	ScopeCollection ScopeKind = "collection"
	ScopeRequest    ScopeKind = "request"
)

// ScopeKinds lists every scope from broadest to narrowest, which is also resolution order.
var ScopeKinds = []ScopeKind{ScopeGlobal, ScopeWorkspace, ScopeCollection, ScopeRequest}

// Scope identifies where a variable lives: Global, or one of Workspace, Collection or
// Request together with the id of the owning entity.
//
// The fields are unexported so a global scope can never carry an owner id and a
// non-global scope always has one. Use the constructors or ParseScope.
type Scope struct {
	kind ScopeKind
	id   uuid.UUID
}

// GlobalScope returns the global scope.
func GlobalScope() Scope {
	return Scope{kind: ScopeGlobal}
}

// WorkspaceScope returns the scope owned by the workspace with the given id.
func WorkspaceScope(id uuid.UUID) Scope {
	return Scope{kind: ScopeWorkspace, id: id}
}

// CollectionScope returns the scope owned by the collection with the given id.
func CollectionScope(id uuid.UUID) Scope {
	return Scope{kind: ScopeCollection, id: id}
}

// RequestScope returns the scope owned by the request with the given id.
func RequestScope(id uuid.UUID) Scope {
	return Scope{kind: ScopeRequest, id: id}
}

// ParseScope builds a Scope from its loose kind / owner id representation, as found in
// storage rows and external input.
// A global scope must have a nil owner, every other scope must have one.
func ParseScope(kind string, id *uuid.UUID) (Scope, error) {
	switch ScopeKind(kind) {
	case ScopeGlobal:
		if id != nil {
			return Scope{}, fmt.Errorf("global scope with owner %s: %w", id, ErrInvalidScope)
		}
		return GlobalScope(), nil
	case ScopeWorkspace, ScopeCollection, ScopeRequest:
		if id == nil || *id == uuid.Nil {
			return Scope{}, fmt.Errorf("%s scope without owner: %w", kind, ErrInvalidScope)
		}
		return Scope{kind: ScopeKind(kind), id: *id}, nil
	default:
		return Scope{}, fmt.Errorf("unknown scope kind %q: %w", kind, ErrInvalidScope)
	}
}

// Kind returns the level of the scope.
func (s Scope) Kind() ScopeKind {
	return s.kind
}

// ID returns the owning entity id. The boolean is false for the global scope.
func (s Scope) ID() (uuid.UUID, bool) {
	if s.kind == ScopeGlobal || s.kind == "" {
		return uuid.Nil, false
	}
	return s.id, true
}

// OwnerID returns the owner id as a pointer, nil for the global scope.
func (s Scope) OwnerID() *uuid.UUID {
	id, ok := s.ID()
	if !ok {
		return nil
	}
	return &id
}

// IsZero reports whether s was never initialised.
func (s Scope) IsZero() bool {
	return s.kind == ""
}

// Key renders the scope as "global" or "<kind>:<id>".
func (s Scope) Key() string {
	id, ok := s.ID()
	if !ok {
		return string(s.kind)
	}
	return fmt.Sprintf("%s:%s", s.kind, id)
}

func (s Scope) String() string {
	return s.Key()
}
