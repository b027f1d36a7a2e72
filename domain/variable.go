package domain

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
)

// ErrNotFound is returned by repositories when the requested entity does not exist.
var ErrNotFound = errors.New("not found")

// VariableRepository defines the interface for managing variables at every scope.
type VariableRepository interface {
	// ListVariablesByScope retrieves every variable declared in the given scope.
	// An unknown owner id yields an empty slice, not an error.
	ListVariablesByScope(ctx context.Context, scope Scope) ([]*Variable, error)

	// GetVariable retrieves a single variable by its id.
	// It returns an error wrapping ErrNotFound if it does not exist.
	GetVariable(ctx context.Context, id uuid.UUID) (*Variable, error)

	// CreateVariable stores a new variable and returns it with its newly assigned id.
	CreateVariable(ctx context.Context, fields VariableFields) (*Variable, error)

	// UpdateVariable applies the non-nil fields of patch to the variable.
	// It returns false if no variable with that id exists.
	UpdateVariable(ctx context.Context, id uuid.UUID, patch VariablePatch) (bool, error)

	// DeleteVariable removes a variable. It returns false if no variable with that id exists.
	DeleteVariable(ctx context.Context, id uuid.UUID) (bool, error)
}

// Variable is a named value declared at one scope.
// Names are unique inside a single scope by convention only.
type Variable struct {
	ID          uuid.UUID // Unique identifier for the variable.
	Name        string    // The name referenced by {{name}} placeholders.
	Value       string    // The substituted value. Empty for redacted secrets.
	Scope       Scope     // Where the variable is declared.
	IsSecret    bool      // Whether the value is sensitive.
	Description string    // Optional free text.
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// VariableFields holds the fields needed to create a Variable.
type VariableFields struct {
	Name        string
	Value       string
	Scope       Scope
	IsSecret    bool
	Description string
}

// VariablePatch is a partial update of a Variable. Nil fields are left unchanged,
// a non-nil pointer to an empty string sets the field to empty.
type VariablePatch struct {
	Name        *string
	Value       *string
	IsSecret    *bool
	Description *string
}

// IsEmpty reports whether the patch would change nothing.
func (p VariablePatch) IsEmpty() bool {
	return p.Name == nil && p.Value == nil && p.IsSecret == nil && p.Description == nil
}

// Apply returns a copy of v with the patch applied.
func (p VariablePatch) Apply(v Variable) Variable {
	if p.Name != nil {
		v.Name = *p.Name
	}
	if p.Value != nil {
		v.Value = *p.Value
	}
	if p.IsSecret != nil {
		v.IsSecret = *p.IsSecret
	}
	if p.Description != nil {
		v.Description = *p.Description
	}
	return v
}

// ResolvedVariable is the effective value of a name after scope precedence was applied.
// It is only used transiently for interpolation and never persisted.
type ResolvedVariable struct {
	Name     string
	Value    string
	Scope    ScopeKind // The scope the winning declaration came from.
	IsSecret bool
}

// Resolve projects a Variable into its resolved form.
func (v *Variable) Resolve() ResolvedVariable {
	return ResolvedVariable{
		Name:     v.Name,
		Value:    v.Value,
		Scope:    v.Scope.Kind(),
		IsSecret: v.IsSecret,
	}
}

// ResolvedSet is a name keyed set of resolved variables that remembers the order in which
// names were first inserted.
type ResolvedSet struct {
	order  []string
	byName map[string]ResolvedVariable
}

// NewResolvedSet builds a set from the given variables, later entries overwriting earlier
// ones with the same name.
func NewResolvedSet(vars ...ResolvedVariable) *ResolvedSet {
	set := &ResolvedSet{byName: make(map[string]ResolvedVariable, len(vars))}
	for _, v := range vars {
		set.Set(v)
	}
	return set
}

// Set inserts v or replaces the whole record already stored under v.Name.
// A replaced name keeps its original position.
func (s *ResolvedSet) Set(v ResolvedVariable) {
	if s.byName == nil {
		s.byName = make(map[string]ResolvedVariable)
	}
	if _, ok := s.byName[v.Name]; !ok {
		s.order = append(s.order, v.Name)
	}
	s.byName[v.Name] = v
}

// Get returns the resolved variable stored under name.
func (s *ResolvedSet) Get(name string) (ResolvedVariable, bool) {
	if s == nil {
		return ResolvedVariable{}, false
	}
	v, ok := s.byName[name]
	return v, ok
}

// Len returns the number of distinct names.
func (s *ResolvedSet) Len() int {
	if s == nil {
		return 0
	}
	return len(s.order)
}

// Names returns the names in insertion order.
func (s *ResolvedSet) Names() []string {
	if s == nil {
		return nil
	}
	names := make([]string, len(s.order))
	copy(names, s.order)
	return names
}

// All returns the resolved variables in insertion order.
func (s *ResolvedSet) All() []ResolvedVariable {
	if s == nil {
		return nil
	}
	all := make([]ResolvedVariable, len(s.order))
	for i, name := range s.order {
		all[i] = s.byName[name]
	}
	return all
}

// Redacted returns a copy of the set where every secret value is replaced by mask.
func (s *ResolvedSet) Redacted(mask string) *ResolvedSet {
	redacted := NewResolvedSet()
	for _, v := range s.All() {
		if v.IsSecret {
			v.Value = mask
		}
		redacted.Set(v)
	}
	return redacted
}
