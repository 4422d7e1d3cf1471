package store

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/gyaneshwarpardhi/verdict/internal/rule"
)

var (
	ErrNotFound      = errors.New("rule not found")
	ErrAlreadyExists = errors.New("rule already exists")
	ErrMissingID     = errors.New("rule id is required")
)

// Store persists rules. Rules are immutable, so implementations hand out
// the stored pointers directly.
type Store interface {
	Get(ctx context.Context, id string) (*rule.Rule, error)
	// List returns every rule in insertion order.
	List(ctx context.Context) ([]*rule.Rule, error)
	Create(ctx context.Context, r *rule.Rule) error
	Update(ctx context.Context, r *rule.Rule) error
	// Delete reports whether a rule was removed.
	Delete(ctx context.Context, id string) (bool, error)
	// SaveAll replaces the stored set with rules.
	SaveAll(ctx context.Context, rules []*rule.Rule) error
	Close() error
}

const (
	TypeMemory = "memory"
	TypeFile   = "file"
)

// Options selects and configures a Store implementation.
type Options struct {
	Type   string
	Path   string
	Logger *slog.Logger
}

// NewStore builds the Store named by opts.Type.
func NewStore(opts Options) (Store, error) {
	switch opts.Type {
	case TypeMemory, "":
		return NewMemoryStore(), nil
	case TypeFile:
		return NewFileStore(opts.Path, opts.Logger)
	default:
		return nil, fmt.Errorf("unknown store type %q (want %q or %q)", opts.Type, TypeMemory, TypeFile)
	}
}

// NotFoundError names the rule id that was looked up. It matches ErrNotFound.
type NotFoundError struct {
	ID string
}

func (e *NotFoundError) Error() string { return fmt.Sprintf("Rule with id '%s' not found", e.ID) }

func (e *NotFoundError) Is(target error) bool { return target == ErrNotFound }

func notFound(id string) error { return &NotFoundError{ID: id} }

// ruleSet is an insertion-ordered collection keyed by rule id. Callers
// provide locking.
type ruleSet struct {
	order []string
	byID  map[string]*rule.Rule
}

func newRuleSet() ruleSet {
	return ruleSet{byID: make(map[string]*rule.Rule)}
}

func (s *ruleSet) get(id string) (*rule.Rule, error) {
	r, ok := s.byID[id]
	if !ok {
		return nil, notFound(id)
	}
	return r, nil
}

func (s *ruleSet) list() []*rule.Rule {
	out := make([]*rule.Rule, 0, len(s.order))
	for _, id := range s.order {
		out = append(out, s.byID[id])
	}
	return out
}

func (s *ruleSet) create(r *rule.Rule) error {
	if r.ID() == "" {
		return ErrMissingID
	}
	if _, ok := s.byID[r.ID()]; ok {
		return fmt.Errorf("rule %s: %w", r.ID(), ErrAlreadyExists)
	}
	s.order = append(s.order, r.ID())
	s.byID[r.ID()] = r
	return nil
}

func (s *ruleSet) update(r *rule.Rule) error {
	if _, ok := s.byID[r.ID()]; !ok {
		return notFound(r.ID())
	}
	s.byID[r.ID()] = r
	return nil
}

func (s *ruleSet) remove(id string) bool {
	if _, ok := s.byID[id]; !ok {
		return false
	}
	delete(s.byID, id)
	for i, v := range s.order {
		if v == id {
			s.order = append(s.order[:i:i], s.order[i+1:]...)
			break
		}
	}
	return true
}

func (s *ruleSet) replace(rules []*rule.Rule) error {
	next := newRuleSet()
	for _, r := range rules {
		if err := next.create(r); err != nil {
			return err
		}
	}
	*s = next
	return nil
}

func (s *ruleSet) clone() ruleSet {
	cp := ruleSet{
		order: append([]string(nil), s.order...),
		byID:  make(map[string]*rule.Rule, len(s.byID)),
	}
	for k, v := range s.byID {
		cp.byID[k] = v
	}
	return cp
}
