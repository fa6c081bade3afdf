// Package registry keeps the named decision tables a server edits
package registry

import (
	"errors"
	"fmt"
	"sort"
	"sync"

	"github.com/liamcoop/ruleseditor/internal/logger"
	"github.com/liamcoop/ruleseditor/rules"
)

var (
	// ErrTableExists is returned when registering a name twice
	ErrTableExists = errors.New("table already registered")

	// ErrUnknownTable is returned when no table is registered under a name
	ErrUnknownTable = errors.New("table not registered")
)

// Registry maps table names to their services
type Registry struct {
	services    map[string]*rules.Service
	defaultName string
	mu          sync.RWMutex
}

// New creates an empty registry. The first registered table becomes the
// default unless SetDefault is called.
func New() *Registry {
	return &Registry{
		services: make(map[string]*rules.Service),
	}
}

// Register adds a service under its name
func (r *Registry) Register(svc *rules.Service) error {
	if err := ValidateName(svc.Name()); err != nil {
		return fmt.Errorf("invalid table name %q: %w", svc.Name(), err)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.services[svc.Name()]; exists {
		return fmt.Errorf("%w: %s", ErrTableExists, svc.Name())
	}
	r.services[svc.Name()] = svc
	if r.defaultName == "" {
		r.defaultName = svc.Name()
	}

	logger.Info("registered table", "table", svc.Name())
	return nil
}

// Get returns the service for name
func (r *Registry) Get(name string) (*rules.Service, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	svc, exists := r.services[name]
	if !exists {
		return nil, fmt.Errorf("%w: %s", ErrUnknownTable, name)
	}
	return svc, nil
}

// Default returns the service served at the unnamed routes
func (r *Registry) Default() (*rules.Service, error) {
	r.mu.RLock()
	name := r.defaultName
	r.mu.RUnlock()

	if name == "" {
		return nil, ErrUnknownTable
	}
	return r.Get(name)
}

// SetDefault changes the default table
func (r *Registry) SetDefault(name string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.services[name]; !exists {
		return fmt.Errorf("%w: %s", ErrUnknownTable, name)
	}
	r.defaultName = name
	return nil
}

// DefaultName returns the default table's name, or "" when empty
func (r *Registry) DefaultName() string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.defaultName
}

// List returns all registered names, sorted
func (r *Registry) List() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	return sortedKeys(r.services)
}

// Remove drops a table from the registry.
// Note: the table's stored data is not deleted.
func (r *Registry) Remove(name string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.services[name]; !exists {
		return fmt.Errorf("%w: %s", ErrUnknownTable, name)
	}
	delete(r.services, name)

	if r.defaultName == name {
		r.defaultName = ""
		if remaining := sortedKeys(r.services); len(remaining) > 0 {
			r.defaultName = remaining[0]
		}
	}

	logger.Info("removed table", "table", name)
	return nil
}

func sortedKeys(m map[string]*rules.Service) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
