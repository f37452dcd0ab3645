package config

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	log "github.com/sirupsen/logrus"
	"gopkg.in/yaml.v3"

	"taskquest/domain/rules"
	"taskquest/internal/errors"
)

// LoadRules reads the YAML rules file at path over the built-in defaults.
// Maps are merged per key and lists replace the default list. An empty path
// returns the defaults.
func LoadRules(path string) (*rules.RuleSet, error) {
	set := rules.Default()
	if path == "" {
		return set, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to read rules file %s", path)
	}
	if err := yaml.Unmarshal(data, set); err != nil {
		return nil, errors.WithCode(errors.CodeConfigInvalid, errors.Wrapf(err, "failed to parse rules file %s", path))
	}
	if err := set.Validate(); err != nil {
		return nil, errors.WithCode(errors.CodeConfigInvalid, errors.Wrapf(err, "invalid rules file %s", path))
	}
	return set, nil
}

// RulesStore holds the active rule set. It is the only mutable state shared
// between requests.
type RulesStore struct {
	mu    sync.RWMutex
	rules *rules.RuleSet
	path  string

	watcher *fsnotify.Watcher
	stop    chan struct{}
}

// NewRulesStore loads path (or the defaults) into a new store
func NewRulesStore(path string) (*RulesStore, error) {
	set, err := LoadRules(path)
	if err != nil {
		return nil, err
	}
	return &RulesStore{rules: set, path: path}, nil
}

// Get returns the current rule set. Callers must not mutate it.
func (s *RulesStore) Get() *rules.RuleSet {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.rules
}

// Set swaps in a new rule set
func (s *RulesStore) Set(set *rules.RuleSet) {
	s.mu.Lock()
	s.rules = set
	s.mu.Unlock()
}

// Reload re-reads the rules file. On error the previous rules stay active.
func (s *RulesStore) Reload() error {
	set, err := LoadRules(s.path)
	if err != nil {
		return err
	}
	s.Set(set)
	return nil
}

// Watch reloads the rules whenever the file changes until ctx is done or
// Close is called. The parent directory is watched so editors that replace
// the file on save are handled.
func (s *RulesStore) Watch(ctx context.Context) error {
	if s.path == "" {
		return nil
	}
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return errors.Wrap(err, "failed to create rules watcher")
	}
	if err := watcher.Add(filepath.Dir(s.path)); err != nil {
		watcher.Close()
		return errors.Wrapf(err, "failed to watch %s", s.path)
	}

	s.mu.Lock()
	s.watcher = watcher
	s.stop = make(chan struct{})
	stop := s.stop
	s.mu.Unlock()

	target := filepath.Clean(s.path)
	go func() {
		defer watcher.Close()
		for {
			select {
			case event, ok := <-watcher.Events:
				if !ok {
					return
				}
				if filepath.Clean(event.Name) != target {
					continue
				}
				if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename) == 0 {
					continue
				}
				time.Sleep(100 * time.Millisecond)
				if err := s.Reload(); err != nil {
					log.WithError(err).Error("failed to reload rules, keeping previous set")
					continue
				}
				log.WithField("path", s.path).Info("rules reloaded")
			case err, ok := <-watcher.Errors:
				if !ok {
					return
				}
				log.WithError(err).Warn("rules watcher error")
			case <-stop:
				return
			case <-ctx.Done():
				return
			}
		}
	}()
	return nil
}

// Close stops the watcher, if running
func (s *RulesStore) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.stop != nil {
		close(s.stop)
		s.stop = nil
	}
	s.watcher = nil
}
