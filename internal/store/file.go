package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"sync"

	"github.com/fsnotify/fsnotify"

	"github.com/gyaneshwarpardhi/verdict/internal/rule"
)

// FileStore keeps rules in a JSON array file. Reads are served from an
// in-memory cache; every mutation rewrites the file atomically. Watch
// reloads the cache when the file is edited by another process.
type FileStore struct {
	path     string
	log      *slog.Logger
	mu       sync.RWMutex
	set      ruleSet
	onChange []func([]*rule.Rule)
}

// NewFileStore opens path, creating an empty rule file when it is missing.
func NewFileStore(path string, logger *slog.Logger) (*FileStore, error) {
	if path == "" {
		return nil, errors.New("file store: path is required")
	}
	if logger == nil {
		logger = slog.Default()
	}
	f := &FileStore{path: filepath.Clean(path), log: logger, set: newRuleSet()}

	if _, err := os.Stat(f.path); errors.Is(err, fs.ErrNotExist) {
		if err := os.MkdirAll(filepath.Dir(f.path), 0o755); err != nil {
			return nil, fmt.Errorf("create rules dir: %w", err)
		}
		if err := f.write(nil); err != nil {
			return nil, err
		}
	}
	set, err := f.load()
	if err != nil {
		return nil, err
	}
	f.set = set
	return f, nil
}

// Path returns the backing file.
func (f *FileStore) Path() string { return f.path }

// OnChange registers a callback invoked whenever the cache is reloaded from
// disk.
func (f *FileStore) OnChange(fn func([]*rule.Rule)) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.onChange = append(f.onChange, fn)
}

func (f *FileStore) Get(_ context.Context, id string) (*rule.Rule, error) {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return f.set.get(id)
}

func (f *FileStore) List(_ context.Context) ([]*rule.Rule, error) {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return f.set.list(), nil
}

func (f *FileStore) Create(_ context.Context, r *rule.Rule) error {
	return f.mutate(func(s *ruleSet) error { return s.create(r) })
}

func (f *FileStore) Update(_ context.Context, r *rule.Rule) error {
	return f.mutate(func(s *ruleSet) error { return s.update(r) })
}

func (f *FileStore) Delete(_ context.Context, id string) (bool, error) {
	removed := false
	err := f.mutate(func(s *ruleSet) error {
		removed = s.remove(id)
		return nil
	})
	return removed, err
}

func (f *FileStore) SaveAll(_ context.Context, rules []*rule.Rule) error {
	return f.mutate(func(s *ruleSet) error { return s.replace(rules) })
}

func (f *FileStore) Close() error { return nil }

// mutate applies fn to a copy of the cache, persists the copy and swaps it
// in. The cache is unchanged when fn or the write fails.
func (f *FileStore) mutate(fn func(*ruleSet) error) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	next := f.set.clone()
	if err := fn(&next); err != nil {
		return err
	}
	if err := f.write(next.list()); err != nil {
		return err
	}
	f.set = next
	return nil
}

// write replaces the file contents via a temp file and rename.
func (f *FileStore) write(rules []*rule.Rule) error {
	if rules == nil {
		rules = []*rule.Rule{}
	}
	data, err := json.MarshalIndent(rules, "", "  ")
	if err != nil {
		return fmt.Errorf("encode rules: %w", err)
	}
	tmp, err := os.CreateTemp(filepath.Dir(f.path), ".rules-*.json")
	if err != nil {
		return fmt.Errorf("write rules %s: %w", f.path, err)
	}
	defer os.Remove(tmp.Name())
	if _, err := tmp.Write(append(data, '\n')); err != nil {
		tmp.Close()
		return fmt.Errorf("write rules %s: %w", f.path, err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("write rules %s: %w", f.path, err)
	}
	if err := os.Rename(tmp.Name(), f.path); err != nil {
		return fmt.Errorf("write rules %s: %w", f.path, err)
	}
	return nil
}

func (f *FileStore) load() (ruleSet, error) {
	data, err := os.ReadFile(f.path)
	if err != nil {
		return ruleSet{}, fmt.Errorf("read rules %s: %w", f.path, err)
	}
	var rules []*rule.Rule
	if err := json.Unmarshal(data, &rules); err != nil {
		return ruleSet{}, fmt.Errorf("parse rules %s: %w", f.path, err)
	}
	set := newRuleSet()
	if err := set.replace(rules); err != nil {
		return ruleSet{}, fmt.Errorf("load rules %s: %w", f.path, err)
	}
	return set, nil
}

// Reload re-reads the file, replaces the cache and notifies OnChange
// callbacks.
func (f *FileStore) Reload() ([]*rule.Rule, error) {
	f.mu.Lock()
	set, err := f.load()
	if err != nil {
		f.mu.Unlock()
		return nil, err
	}
	f.set = set
	rules := set.list()
	callbacks := make([]func([]*rule.Rule), len(f.onChange))
	copy(callbacks, f.onChange)
	f.mu.Unlock()

	for _, fn := range callbacks {
		fn(rules)
	}
	return rules, nil
}

// Watch starts a background goroutine that reloads the cache when the file
// changes. The parent directory is watched so atomic replacements by editors
// and by this store are seen. Call the returned stop function to clean up.
func (f *FileStore) Watch() (stop func(), err error) {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("rules watcher: %w", err)
	}
	dir := filepath.Dir(f.path)
	if err := w.Add(dir); err != nil {
		w.Close()
		return nil, fmt.Errorf("rules watcher add %s: %w", dir, err)
	}

	done := make(chan struct{})
	var once sync.Once
	go func() {
		defer w.Close()
		for {
			select {
			case ev, ok := <-w.Events:
				if !ok {
					return
				}
				if filepath.Clean(ev.Name) != f.path {
					continue
				}
				if !ev.Has(fsnotify.Write) && !ev.Has(fsnotify.Create) {
					continue
				}
				rules, err := f.Reload()
				if err != nil {
					// Keep serving the previous rules.
					f.log.Warn("rules reload failed", "path", f.path, "error", err)
					continue
				}
				f.log.Info("rules reloaded", "path", f.path, "count", len(rules))
			case err, ok := <-w.Errors:
				if !ok {
					return
				}
				f.log.Warn("rules watcher error", "error", err)
			case <-done:
				return
			}
		}
	}()

	return func() { once.Do(func() { close(done) }) }, nil
}
