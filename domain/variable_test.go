package domain

import (
	"slices"
	"testing"

	"github.com/google/uuid"
)

func TestVariablePatch_Apply(t *testing.T) {
	v := Variable{ID: uuid.New(), Name: "token", Value: "abc", IsSecret: true, Description: "api token"}

	t.Run("should leave nil fields unchanged", func(t *testing.T) {
		value := "xyz"
		got := VariablePatch{Value: &value}.Apply(v)

		if got.Value != "xyz" || got.Name != "token" || !got.IsSecret || got.Description != "api token" {
			t.Fatalf("\nwanted:\nonly value changed\ngot:\n%+v", got)
		}
		if v.Value != "abc" {
			t.Fatalf("\nwanted:\noriginal untouched\ngot:\n%+v", v)
		}
	})

	t.Run("should set a field to empty through an empty pointer", func(t *testing.T) {
		empty := ""
		got := VariablePatch{Description: &empty}.Apply(v)
		if got.Description != "" {
			t.Fatalf("\nwanted:\nempty description\ngot:\n%q", got.Description)
		}
	})

	t.Run("should report an empty patch", func(t *testing.T) {
		if !(VariablePatch{}).IsEmpty() {
			t.Fatalf("\nwanted:\ntrue\ngot:\nfalse")
		}
		secret := false
		if (VariablePatch{IsSecret: &secret}).IsEmpty() {
			t.Fatalf("\nwanted:\nfalse\ngot:\ntrue")
		}
	})
}

func TestResolvedSet(t *testing.T) {
	t.Run("should overwrite whole records and keep the first position", func(t *testing.T) {
		set := NewResolvedSet(
			ResolvedVariable{Name: "host", Value: "global", Scope: ScopeGlobal, IsSecret: true},
			ResolvedVariable{Name: "port", Value: "80", Scope: ScopeGlobal},
		)
		set.Set(ResolvedVariable{Name: "host", Value: "request", Scope: ScopeRequest})

		if !slices.Equal(set.Names(), []string{"host", "port"}) {
			t.Fatalf("\nwanted:\n[host port]\ngot:\n%v", set.Names())
		}
		host, _ := set.Get("host")
		want := ResolvedVariable{Name: "host", Value: "request", Scope: ScopeRequest}
		if host != want {
			t.Fatalf("\nwanted:\n%+v\ngot:\n%+v", want, host)
		}
	})

	t.Run("should mask secrets in a redacted copy", func(t *testing.T) {
		set := NewResolvedSet(
			ResolvedVariable{Name: "token", Value: "abc", IsSecret: true},
			ResolvedVariable{Name: "host", Value: "h"},
		)

		redacted := set.Redacted("***")
		token, _ := redacted.Get("token")
		host, _ := redacted.Get("host")
		if token.Value != "***" || host.Value != "h" {
			t.Fatalf("\nwanted:\n*** h\ngot:\n%s %s", token.Value, host.Value)
		}

		original, _ := set.Get("token")
		if original.Value != "abc" {
			t.Fatalf("\nwanted:\nabc\ngot:\n%s", original.Value)
		}
	})

	t.Run("should be safe to read when nil", func(t *testing.T) {
		var set *ResolvedSet
		if _, ok := set.Get("x"); ok || set.Len() != 0 || set.Names() != nil {
			t.Fatalf("\nwanted:\nempty\ngot:\n%v", set.Names())
		}
	})
}
