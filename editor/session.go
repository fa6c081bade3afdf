// Package editor holds the state of one interactive editing session
// against a rules editor server
package editor

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/liamcoop/ruleseditor/decisiontable"
	"github.com/liamcoop/ruleseditor/internal/logger"
)

// ErrNoTable is returned by operations that need a loaded table
var ErrNoTable = errors.New("no table loaded")

// User-facing messages
const (
	MsgLoaded           = "Rules loaded successfully"
	MsgLoadError        = "Error loading rules"
	MsgValidationPassed = "Validation passed"
	MsgValidateError    = "Error validating rules"
	MsgSaved            = "Rules saved successfully"
	MsgSaveError        = "Error saving rules"
)

// RulesAPI is the server surface a Session needs; *client.Client implements it
type RulesAPI interface {
	GetRules(ctx context.Context) (*decisiontable.DecisionTable, error)
	ValidateRules(ctx context.Context, table *decisiontable.DecisionTable) (decisiontable.ValidationResult, error)
	SaveRules(ctx context.Context, table *decisiontable.DecisionTable) (decisiontable.ValidationResult, error)
}

// Session tracks a table being edited, its last validation errors and
// whether it has unsaved changes. Safe for concurrent use.
type Session struct {
	api      RulesAPI
	notifier Notifier

	table   *decisiontable.DecisionTable
	errors  []decisiontable.ValidationError
	unsaved bool
	edits   uint64
	mu      sync.RWMutex

	loading atomic.Int32
}

// NewSession creates a session with no table loaded. A nil notifier
// discards messages.
func NewSession(api RulesAPI, notifier Notifier) *Session {
	if notifier == nil {
		notifier = discardNotifier{}
	}
	return &Session{
		api:      api,
		notifier: notifier,
		errors:   []decisiontable.ValidationError{},
	}
}

// Load fetches the table from the server, replacing any local edits
func (s *Session) Load(ctx context.Context) error {
	defer s.busy()()

	table, err := s.api.GetRules(ctx)
	if err != nil {
		logger.Error("error loading rules", "error", err)
		s.notifier.Notify(LevelError, MsgLoadError)
		return fmt.Errorf("failed to load rules: %w", err)
	}

	s.mu.Lock()
	s.table = table
	s.errors = []decisiontable.ValidationError{}
	s.unsaved = false
	s.edits++
	s.mu.Unlock()

	s.notifier.Notify(LevelInfo, MsgLoaded)
	return nil
}

// Open starts editing table without fetching it. The table counts as
// unsaved until the next successful Save.
func (s *Session) Open(table *decisiontable.DecisionTable) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.table = table.Clone()
	s.errors = []decisiontable.ValidationError{}
	s.unsaved = true
	s.edits++
}

// Validate sends the table to the server and records the errors it reports
func (s *Session) Validate(ctx context.Context) (decisiontable.ValidationResult, error) {
	table, _, err := s.snapshot()
	if err != nil {
		return decisiontable.ValidationResult{}, err
	}
	defer s.busy()()

	result, err := s.api.ValidateRules(ctx, table)
	if err != nil {
		logger.Error("error validating rules", "error", err)
		s.notifier.Notify(LevelError, MsgValidateError)
		return decisiontable.ValidationResult{}, fmt.Errorf("failed to validate rules: %w", err)
	}

	s.setErrors(result.Errors)
	if result.OK {
		s.notifier.Notify(LevelInfo, MsgValidationPassed)
	} else {
		s.notifier.Notify(LevelError, fmt.Sprintf("Validation failed: %d errors", len(result.Errors)))
	}
	return result, nil
}

// Save sends the table to the server. A rejected table keeps its unsaved
// state and records the validation errors. Edits made while the request
// is in flight stay unsaved.
func (s *Session) Save(ctx context.Context) (decisiontable.ValidationResult, error) {
	table, edits, err := s.snapshot()
	if err != nil {
		return decisiontable.ValidationResult{}, err
	}
	defer s.busy()()

	result, err := s.api.SaveRules(ctx, table)
	if err != nil {
		logger.Error("error saving rules", "error", err)
		s.notifier.Notify(LevelError, MsgSaveError)
		return decisiontable.ValidationResult{}, fmt.Errorf("failed to save rules: %w", err)
	}

	if !result.OK {
		s.setErrors(result.Errors)
		s.notifier.Notify(LevelError, fmt.Sprintf("Save failed: %d validation errors", len(result.Errors)))
		return result, nil
	}

	s.mu.Lock()
	if s.edits == edits {
		s.errors = []decisiontable.ValidationError{}
		s.unsaved = false
	}
	s.mu.Unlock()

	s.notifier.Notify(LevelInfo, MsgSaved)
	return result, nil
}

// AddRow appends an empty row and returns its index
func (s *Session) AddRow() (int, error) {
	var index int
	err := s.edit(func(t *decisiontable.DecisionTable) error {
		index = t.AddRow()
		return nil
	})
	return index, err
}

// CloneRow inserts a copy of row i after it and returns the copy's index
func (s *Session) CloneRow(i int) (int, error) {
	var index int
	err := s.edit(func(t *decisiontable.DecisionTable) error {
		var err error
		index, err = t.CloneRow(i)
		return err
	})
	return index, err
}

// DeleteRow removes row i
func (s *Session) DeleteRow(i int) error {
	return s.edit(func(t *decisiontable.DecisionTable) error {
		return t.DeleteRow(i)
	})
}

// RenameRow sets the name of row i
func (s *Session) RenameRow(i int, name string) error {
	return s.edit(func(t *decisiontable.DecisionTable) error {
		return t.RenameRow(i, name)
	})
}

// SetCell sets the value of row i in header column col
func (s *Session) SetCell(i, col int, value any) error {
	return s.edit(func(t *decisiontable.DecisionTable) error {
		return t.SetCell(i, col, value)
	})
}

// SetCellInput parses raw according to the column's input kind and stores it
func (s *Session) SetCellInput(i, col int, raw string) error {
	return s.edit(func(t *decisiontable.DecisionTable) error {
		return t.SetCell(i, col, decisiontable.ParseInput(t.InputKind(col), raw))
	})
}

// HasUnsavedChanges reports whether the table was edited since the last load or save
func (s *Session) HasUnsavedChanges() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.unsaved
}

// Loading reports whether a server call is in flight
func (s *Session) Loading() bool {
	return s.loading.Load() > 0
}

// Table returns a copy of the table being edited, or nil
func (s *Session) Table() *decisiontable.DecisionTable {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.table == nil {
		return nil
	}
	return s.table.Clone()
}

// DisplayedColumns returns the grid column ids, or nil with no table
func (s *Session) DisplayedColumns() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.table == nil {
		return nil
	}
	return s.table.DisplayColumns()
}

// ValidationErrors returns the errors from the last validate or save
func (s *Session) ValidationErrors() []decisiontable.ValidationError {
	return s.filterErrors(func(decisiontable.ValidationError) bool { return true })
}

// ErrorsForCell returns errors reported against row and header column col
func (s *Session) ErrorsForCell(row, col int) []decisiontable.ValidationError {
	return s.filterErrors(func(e decisiontable.ValidationError) bool {
		return e.Row != nil && *e.Row == row && e.Col != nil && *e.Col == col
	})
}

// GeneralErrors returns errors not tied to a row
func (s *Session) GeneralErrors() []decisiontable.ValidationError {
	return s.filterErrors(func(e decisiontable.ValidationError) bool {
		return e.Row == nil
	})
}

// RowErrors returns errors tied to a row
func (s *Session) RowErrors() []decisiontable.ValidationError {
	return s.filterErrors(func(e decisiontable.ValidationError) bool {
		return e.Row != nil
	})
}

func (s *Session) filterErrors(keep func(decisiontable.ValidationError) bool) []decisiontable.ValidationError {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := []decisiontable.ValidationError{}
	for _, e := range s.errors {
		if keep(e) {
			out = append(out, e)
		}
	}
	return out
}

func (s *Session) setErrors(errs []decisiontable.ValidationError) {
	if errs == nil {
		errs = []decisiontable.ValidationError{}
	}
	s.mu.Lock()
	s.errors = errs
	s.mu.Unlock()
}

// edit applies fn to the table and marks the session unsaved on success
func (s *Session) edit(fn func(*decisiontable.DecisionTable) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.table == nil {
		return ErrNoTable
	}
	if err := fn(s.table); err != nil {
		return err
	}
	s.unsaved = true
	s.edits++
	return nil
}

// snapshot copies the table along with the edit count it reflects
func (s *Session) snapshot() (*decisiontable.DecisionTable, uint64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.table == nil {
		return nil, 0, ErrNoTable
	}
	return s.table.Clone(), s.edits, nil
}

// busy marks a server call in flight and returns the func that ends it
func (s *Session) busy() func() {
	s.loading.Add(1)
	return func() { s.loading.Add(-1) }
}
