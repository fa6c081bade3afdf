package rules

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"sync"

	"github.com/liamcoop/ruleseditor/decisiontable"
	"github.com/liamcoop/ruleseditor/internal/logger"
	"github.com/liamcoop/ruleseditor/workbook"
)

// FileTableStore keeps a table in an xlsx workbook on disk
type FileTableStore struct {
	path string
	mu   sync.Mutex
}

// NewFileTableStore creates a store for the workbook at path
func NewFileTableStore(path string) *FileTableStore {
	return &FileTableStore{path: path}
}

// Path returns the workbook location
func (s *FileTableStore) Path() string {
	return s.path
}

// BackupPath returns where the previous workbook is kept on save
func (s *FileTableStore) BackupPath() string {
	return s.path + ".bak"
}

// Load reads the workbook
func (s *FileTableStore) Load(ctx context.Context) (*decisiontable.DecisionTable, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, err := os.Stat(s.path); errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("%w: %s", ErrTableNotFound, s.path)
	}

	table, _, err := workbook.ReadFile(s.path)
	if err != nil {
		return nil, err
	}
	return table, nil
}

// Save backs up the current workbook to BackupPath, then writes table,
// keeping the current meta block when it can still be read
func (s *FileTableStore) Save(ctx context.Context, table *decisiontable.DecisionTable) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	meta := decisiontable.MetaBlock{}
	if _, err := os.Stat(s.path); err == nil {
		if err := copyFile(s.path, s.BackupPath()); err != nil {
			return fmt.Errorf("failed to back up %s: %w", s.path, err)
		}
		logger.Info("created workbook backup", "path", s.BackupPath())

		if _, block, err := workbook.ReadFile(s.path); err != nil {
			logger.Warn("could not read existing workbook for meta block", "path", s.path, "error", err)
		} else {
			meta = block
		}
	}

	if dir := filepath.Dir(s.path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("failed to create %s: %w", dir, err)
		}
	}

	tmp, err := os.CreateTemp(filepath.Dir(s.path), filepath.Base(s.path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}
	defer os.Remove(tmp.Name())

	if err := workbook.Write(tmp, table, meta); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("failed to write %s: %w", tmp.Name(), err)
	}
	if err := os.Rename(tmp.Name(), s.path); err != nil {
		return fmt.Errorf("failed to replace %s: %w", s.path, err)
	}
	return nil
}

// WriteWorkbook streams the stored workbook as is
func (s *FileTableStore) WriteWorkbook(ctx context.Context, w io.Writer) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	f, err := os.Open(s.path)
	if errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("%w: %s", ErrTableNotFound, s.path)
	}
	if err != nil {
		return err
	}
	defer f.Close()

	_, err = io.Copy(w, f)
	return err
}

func copyFile(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	out, err := os.Create(dst)
	if err != nil {
		return err
	}
	if _, err := io.Copy(out, in); err != nil {
		out.Close()
		return err
	}
	return out.Close()
}
