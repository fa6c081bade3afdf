package rules

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/liamcoop/ruleseditor/decisiontable"
)

var (
	ErrTableNotFound      = errors.New("decision table not found")
	ErrRevisionNotFound   = errors.New("revision not found")
	ErrHistoryUnsupported = errors.New("store does not keep revisions")
	ErrValidationFailed   = errors.New("decision table failed validation")
)

// TableStore persists a single decision table
type TableStore interface {
	// Load returns the stored table, or ErrTableNotFound
	Load(ctx context.Context) (*decisiontable.DecisionTable, error)

	// Save replaces the stored table
	Save(ctx context.Context, table *decisiontable.DecisionTable) error
}

// Revision is one saved version of a table
type Revision struct {
	ID        string                       `json:"id"`
	TableName string                       `json:"tableName"`
	CreatedAt time.Time                    `json:"createdAt"`
	Rows      int                          `json:"rows"`
	Table     *decisiontable.DecisionTable `json:"table,omitempty"`
}

// RevisionStore is implemented by stores that keep every saved version
type RevisionStore interface {
	// Revisions lists the newest revisions first, without their tables
	Revisions(ctx context.Context, limit int) ([]Revision, error)

	// Revision returns one revision including its table
	Revision(ctx context.Context, id string) (*Revision, error)
}

// InMemoryTableStore keeps the table in memory. Tables are copied on the
// way in and out so callers cannot mutate stored state.
type InMemoryTableStore struct {
	table *decisiontable.DecisionTable
	mu    sync.RWMutex
}

// NewInMemoryTableStore creates a store, optionally seeded with a table
func NewInMemoryTableStore(seed *decisiontable.DecisionTable) *InMemoryTableStore {
	s := &InMemoryTableStore{}
	if seed != nil {
		s.table = seed.Clone()
	}
	return s
}

// Load returns a copy of the stored table
func (s *InMemoryTableStore) Load(ctx context.Context) (*decisiontable.DecisionTable, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.table == nil {
		return nil, ErrTableNotFound
	}
	return s.table.Clone(), nil
}

// Save stores a copy of table
func (s *InMemoryTableStore) Save(ctx context.Context, table *decisiontable.DecisionTable) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.table = table.Clone()
	return nil
}
