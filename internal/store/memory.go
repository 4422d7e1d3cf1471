package store

import (
	"context"
	"sync"

	"github.com/gyaneshwarpardhi/verdict/internal/rule"
)

// MemoryStore keeps rules in process memory.
type MemoryStore struct {
	mu  sync.RWMutex
	set ruleSet
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{set: newRuleSet()}
}

func (m *MemoryStore) Get(_ context.Context, id string) (*rule.Rule, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.set.get(id)
}

func (m *MemoryStore) List(_ context.Context) ([]*rule.Rule, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.set.list(), nil
}

func (m *MemoryStore) Create(_ context.Context, r *rule.Rule) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.set.create(r)
}

func (m *MemoryStore) Update(_ context.Context, r *rule.Rule) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.set.update(r)
}

func (m *MemoryStore) Delete(_ context.Context, id string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.set.remove(id), nil
}

func (m *MemoryStore) SaveAll(_ context.Context, rules []*rule.Rule) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.set.replace(rules)
}

func (m *MemoryStore) Close() error { return nil }
