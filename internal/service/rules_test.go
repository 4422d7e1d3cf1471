package service

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/google/uuid"

	"github.com/gyaneshwarpardhi/verdict/internal/condition"
	"github.com/gyaneshwarpardhi/verdict/internal/rule"
	"github.com/gyaneshwarpardhi/verdict/internal/store"
)

func newService() *Rules {
	return NewRules(store.NewMemoryStore(), nil)
}

func TestRules_CreateAssignsUUID(t *testing.T) {
	ctx := context.Background()
	s := newService()
	r, err := s.Create(ctx, rule.Spec{ID: "ignored", Name: "Adult", Expression: "age >= 18"})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if _, err := uuid.Parse(r.ID()); err != nil {
		t.Errorf("id %q is not a UUID", r.ID())
	}
	got, err := s.Get(ctx, r.ID())
	if err != nil || got.Name() != "Adult" {
		t.Errorf("Get = %v, %v", got, err)
	}
}

func TestRules_CreateRejectsInvalid(t *testing.T) {
	ctx := context.Background()
	s := newService()
	_, err := s.Create(ctx, rule.Spec{Name: "Bad", Expression: "age = 18"})
	if !errors.Is(err, rule.ErrInvalidRule) {
		t.Fatalf("error = %v, want ErrInvalidRule", err)
	}
	var se *condition.SyntaxError
	if !errors.As(err, &se) {
		t.Errorf("syntax error not reachable through %v", err)
	}
	list, _ := s.List(ctx)
	if len(list) != 0 {
		t.Errorf("invalid rule was stored")
	}
}

func TestRules_Update(t *testing.T) {
	ctx := context.Background()
	s := newService()
	r, err := s.Create(ctx, rule.Spec{Name: "Adult", Expression: "age >= 18"})
	if err != nil {
		t.Fatal(err)
	}

	updated, err := s.Update(ctx, r.ID(), rule.Spec{Name: "Senior", Predicates: []condition.Predicate{
		{Field: "age", Operator: condition.OpGte, Value: 65.0},
	}})
	if err != nil {
		t.Fatalf("Update: %v", err)
	}
	if updated.ID() != r.ID() || updated.Name() != "Senior" || updated.IsExpression() {
		t.Errorf("updated = %+v", updated.Spec())
	}

	if _, err := s.Update(ctx, "nope", rule.Spec{Name: "x", Expression: "a == 1"}); !errors.Is(err, store.ErrNotFound) {
		t.Errorf("Update(missing) error = %v, want ErrNotFound", err)
	}
	if _, err := s.Update(ctx, r.ID(), rule.Spec{Name: "x", Expression: "a =="}); !errors.Is(err, rule.ErrInvalidRule) {
		t.Errorf("Update(invalid) error = %v, want ErrInvalidRule", err)
	}
}

func TestRules_Delete(t *testing.T) {
	ctx := context.Background()
	s := newService()
	r, err := s.Create(ctx, rule.Spec{Name: "Adult", Expression: "age >= 18"})
	if err != nil {
		t.Fatal(err)
	}
	if err := s.Delete(ctx, r.ID()); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	err = s.Delete(ctx, r.ID())
	if !errors.Is(err, store.ErrNotFound) {
		t.Fatalf("second Delete error = %v, want ErrNotFound", err)
	}
	if err.Error() != fmt.Sprintf("Rule with id '%s' not found", r.ID()) {
		t.Errorf("message = %q", err.Error())
	}
}

func TestRules_Import(t *testing.T) {
	ctx := context.Background()
	s := newService()
	if _, err := s.Create(ctx, rule.Spec{Name: "Existing", Expression: "a == 1"}); err != nil {
		t.Fatal(err)
	}
	a, _ := rule.New(rule.Spec{Name: "A", Expression: "a == 1"})
	const fixed = "5b0c6f0e-8a62-4a35-9b8f-3f2d8d7e6c01"
	b, _ := rule.New(rule.Spec{ID: fixed, Name: "B", Expression: "b == 1"})

	n, err := s.Import(ctx, []*rule.Rule{a, b}, false)
	if err != nil || n != 2 {
		t.Fatalf("Import = %d, %v", n, err)
	}
	list, _ := s.List(ctx)
	if len(list) != 3 {
		t.Fatalf("after merge import have %d rules, want 3", len(list))
	}
	if list[1].ID() == "" || list[2].ID() != fixed {
		t.Errorf("ids = %q, %q", list[1].ID(), list[2].ID())
	}

	if _, err := s.Import(ctx, []*rule.Rule{b}, true); err != nil {
		t.Fatal(err)
	}
	list, _ = s.List(ctx)
	if len(list) != 1 || list[0].ID() != fixed {
		t.Errorf("after replace import have %d rules", len(list))
	}
}

func TestRules_ImportRejectsNonUUID(t *testing.T) {
	ctx := context.Background()
	s := newService()
	bad, _ := rule.New(rule.Spec{ID: "not-a-uuid", Name: "Bad", Expression: "a == 1"})
	if _, err := s.Import(ctx, []*rule.Rule{bad}, true); !errors.Is(err, rule.ErrInvalidRule) {
		t.Fatalf("Import error = %v, want ErrInvalidRule", err)
	}
	if list, _ := s.List(ctx); len(list) != 0 {
		t.Errorf("store modified by rejected import")
	}
}
