package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/google/uuid"

	"github.com/gyaneshwarpardhi/verdict/internal/condition"
	"github.com/gyaneshwarpardhi/verdict/internal/metrics"
	"github.com/gyaneshwarpardhi/verdict/internal/rule"
	"github.com/gyaneshwarpardhi/verdict/internal/store"
)

// Rules manages rule definitions on top of a Store.
type Rules struct {
	store store.Store
	log   *slog.Logger
	newID func() string
}

func NewRules(s store.Store, logger *slog.Logger) *Rules {
	if logger == nil {
		logger = slog.Default()
	}
	return &Rules{store: s, log: logger, newID: uuid.NewString}
}

func (s *Rules) List(ctx context.Context) ([]*rule.Rule, error) {
	return s.store.List(ctx)
}

func (s *Rules) Get(ctx context.Context, id string) (*rule.Rule, error) {
	return s.store.Get(ctx, id)
}

// Create validates spec, assigns a fresh id and stores the rule. Any id in
// spec is ignored.
func (s *Rules) Create(ctx context.Context, spec rule.Spec) (*rule.Rule, error) {
	spec.ID = s.newID()
	r, err := build(spec)
	if err != nil {
		return nil, err
	}
	if err := s.store.Create(ctx, r); err != nil {
		return nil, fmt.Errorf("create rule: %w", err)
	}
	s.count(ctx)
	s.log.Info("rule created", "rule_id", r.ID(), "name", r.Name(), "expression", r.IsExpression())
	return r, nil
}

// Update replaces the rule stored under id with one built from spec.
func (s *Rules) Update(ctx context.Context, id string, spec rule.Spec) (*rule.Rule, error) {
	if _, err := s.store.Get(ctx, id); err != nil {
		return nil, err
	}
	spec.ID = id
	r, err := build(spec)
	if err != nil {
		return nil, err
	}
	if err := s.store.Update(ctx, r); err != nil {
		return nil, fmt.Errorf("update rule: %w", err)
	}
	s.log.Info("rule updated", "rule_id", id, "name", r.Name())
	return r, nil
}

// Delete removes the rule stored under id.
func (s *Rules) Delete(ctx context.Context, id string) error {
	removed, err := s.store.Delete(ctx, id)
	if err != nil {
		return fmt.Errorf("delete rule: %w", err)
	}
	if !removed {
		return &store.NotFoundError{ID: id}
	}
	s.count(ctx)
	s.log.Info("rule deleted", "rule_id", id)
	return nil
}

// Import stores rules read from a document, giving an id to any rule that
// lacks one. Supplied ids must be UUIDs. With replace set the existing set is discarded first.
func (s *Rules) Import(ctx context.Context, rules []*rule.Rule, replace bool) (int, error) {
	withIDs := make([]*rule.Rule, len(rules))
	for i, r := range rules {
		if r.ID() == "" {
			r = r.WithID(s.newID())
		} else if _, err := uuid.Parse(r.ID()); err != nil {
			return 0, &rule.ValidationError{Msg: fmt.Sprintf("Rule '%s' has invalid id: %s", r.Name(), r.ID())}
		}
		withIDs[i] = r
	}
	if replace {
		if err := s.store.SaveAll(ctx, withIDs); err != nil {
			return 0, fmt.Errorf("import rules: %w", err)
		}
		s.count(ctx)
		return len(withIDs), nil
	}
	existing, err := s.store.List(ctx)
	if err != nil {
		return 0, err
	}
	if err := s.store.SaveAll(ctx, append(existing, withIDs...)); err != nil {
		return 0, fmt.Errorf("import rules: %w", err)
	}
	s.count(ctx)
	return len(withIDs), nil
}

func build(spec rule.Spec) (*rule.Rule, error) {
	r, err := rule.New(spec)
	if errors.Is(err, condition.ErrSyntax) {
		metrics.SyntaxErrors.Inc()
	}
	return r, err
}

func (s *Rules) count(ctx context.Context) {
	rules, err := s.store.List(ctx)
	if err != nil {
		s.log.Warn("count rules", "error", err)
		return
	}
	metrics.RulesLoaded.Set(float64(len(rules)))
}
