package rules

import (
	"context"
	"fmt"
	"io"

	"github.com/liamcoop/ruleseditor/decisiontable"
	"github.com/liamcoop/ruleseditor/internal/logger"
	"github.com/liamcoop/ruleseditor/workbook"
)

// WorkbookWriter is implemented by stores that can stream their own xlsx
type WorkbookWriter interface {
	WriteWorkbook(ctx context.Context, w io.Writer) error
}

// Service loads, validates and saves one named decision table.
// Safe for concurrent use.
type Service struct {
	name      string
	store     TableStore
	validator *decisiontable.Validator
	cache     TableCache
}

// ServiceOption configures a Service
type ServiceOption func(*Service)

// WithCache replaces the default in-memory cache
func WithCache(cache TableCache) ServiceOption {
	return func(s *Service) {
		s.cache = cache
	}
}

// NewService creates a service for the table called name
func NewService(name string, store TableStore, validator *decisiontable.Validator, opts ...ServiceOption) *Service {
	s := &Service{
		name:      name,
		store:     store,
		validator: validator,
		cache:     NewInMemoryTableCache(DefaultCacheConfig()),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Name returns the table name
func (s *Service) Name() string {
	return s.name
}

// Get returns the current table, from cache when possible
func (s *Service) Get(ctx context.Context) (*decisiontable.DecisionTable, error) {
	if table := s.cache.Get(); table != nil {
		return table, nil
	}

	table, err := s.store.Load(ctx)
	if err != nil {
		return nil, err
	}
	s.cache.Set(table)

	logger.Info("loaded decision table", "table", s.name, "rows", len(table.Rows))
	return table, nil
}

// Validate checks table without storing it
func (s *Service) Validate(table *decisiontable.DecisionTable) decisiontable.ValidationResult {
	result := s.validator.Validate(table)
	if !result.OK {
		logger.ValidationsFailed.Add(1)
	}
	logger.Info("validation completed", "table", s.name, "ok", result.OK, "errors", len(result.Errors))
	return result
}

// Save validates table and stores it when valid. An invalid table is not
// stored; the result is returned together with ErrValidationFailed.
func (s *Service) Save(ctx context.Context, table *decisiontable.DecisionTable) (decisiontable.ValidationResult, error) {
	result := s.Validate(table)
	if !result.OK {
		logger.Warn("validation failed, not saving", "table", s.name, "errors", len(result.Errors))
		return result, ErrValidationFailed
	}

	if err := s.store.Save(ctx, table); err != nil {
		s.cache.Invalidate()
		return result, fmt.Errorf("failed to save table %s: %w", s.name, err)
	}
	s.cache.Set(table)
	logger.TablesSaved.Add(1)

	logger.Info("saved decision table", "table", s.name, "rows", len(table.Rows))
	return result, nil
}

// Export writes the current table as an xlsx workbook
func (s *Service) Export(ctx context.Context, w io.Writer) error {
	if ww, ok := s.store.(WorkbookWriter); ok {
		return ww.WriteWorkbook(ctx, w)
	}

	table, err := s.Get(ctx)
	if err != nil {
		return err
	}
	return workbook.Write(w, table, decisiontable.MetaBlock{})
}

// Revisions lists saved versions when the store keeps them
func (s *Service) Revisions(ctx context.Context, limit int) ([]Revision, error) {
	rs, ok := s.store.(RevisionStore)
	if !ok {
		return nil, ErrHistoryUnsupported
	}
	return rs.Revisions(ctx, limit)
}

// Revision returns one saved version when the store keeps them
func (s *Service) Revision(ctx context.Context, id string) (*Revision, error) {
	rs, ok := s.store.(RevisionStore)
	if !ok {
		return nil, ErrHistoryUnsupported
	}
	return rs.Revision(ctx, id)
}
