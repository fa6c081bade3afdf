package rules

import (
	"bytes"
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/google/uuid"
	_ "github.com/lib/pq"

	"github.com/liamcoop/ruleseditor/decisiontable"
	"github.com/liamcoop/ruleseditor/workbook"
)

// PostgresTableStore keeps every saved version of a named table in
// table_revisions; the newest revision is the current table
type PostgresTableStore struct {
	db        *sql.DB
	tableName string
}

// NewPostgresTableStore creates a PostgreSQL-backed store for one named table
func NewPostgresTableStore(db *sql.DB, tableName string) *PostgresTableStore {
	return &PostgresTableStore{
		db:        db,
		tableName: tableName,
	}
}

// Load returns the newest revision's table
func (s *PostgresTableStore) Load(ctx context.Context) (*decisiontable.DecisionTable, error) {
	var document []byte
	err := s.db.QueryRowContext(ctx, `
		SELECT document
		FROM table_revisions
		WHERE table_name = $1
		ORDER BY created_at DESC, seq DESC
		LIMIT 1
	`, s.tableName).Scan(&document)

	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("%w: %s", ErrTableNotFound, s.tableName)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load table: %w", err)
	}

	var table decisiontable.DecisionTable
	if err := json.Unmarshal(document, &table); err != nil {
		return nil, fmt.Errorf("failed to decode table %s: %w", s.tableName, err)
	}
	return &table, nil
}

// Save inserts a new revision holding the table and its workbook export
func (s *PostgresTableStore) Save(ctx context.Context, table *decisiontable.DecisionTable) error {
	document, err := json.Marshal(table)
	if err != nil {
		return fmt.Errorf("failed to encode table: %w", err)
	}

	var xlsx bytes.Buffer
	if err := workbook.Write(&xlsx, table, decisiontable.MetaBlock{}); err != nil {
		return fmt.Errorf("failed to export workbook: %w", err)
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO table_revisions (id, table_name, document, workbook, row_count, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)
	`, uuid.NewString(), s.tableName, document, xlsx.Bytes(), len(table.Rows), time.Now().UTC())
	if err != nil {
		return fmt.Errorf("failed to insert revision: %w", err)
	}
	return nil
}

// Revisions lists the newest revisions first
func (s *PostgresTableStore) Revisions(ctx context.Context, limit int) ([]Revision, error) {
	if limit <= 0 {
		limit = 50
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT id, table_name, row_count, created_at
		FROM table_revisions
		WHERE table_name = $1
		ORDER BY created_at DESC, seq DESC
		LIMIT $2
	`, s.tableName, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list revisions: %w", err)
	}
	defer rows.Close()

	revisions := []Revision{}
	for rows.Next() {
		var r Revision
		if err := rows.Scan(&r.ID, &r.TableName, &r.Rows, &r.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan revision: %w", err)
		}
		revisions = append(revisions, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating revisions: %w", err)
	}
	return revisions, nil
}

// Revision returns one revision including its table
func (s *PostgresTableStore) Revision(ctx context.Context, id string) (*Revision, error) {
	if _, err := uuid.Parse(id); err != nil {
		return nil, fmt.Errorf("%w: %s", ErrRevisionNotFound, id)
	}

	var (
		r        Revision
		document []byte
	)
	err := s.db.QueryRowContext(ctx, `
		SELECT id, table_name, row_count, created_at, document
		FROM table_revisions
		WHERE id = $1 AND table_name = $2
	`, id, s.tableName).Scan(&r.ID, &r.TableName, &r.Rows, &r.CreatedAt, &document)

	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("%w: %s", ErrRevisionNotFound, id)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get revision: %w", err)
	}

	r.Table = &decisiontable.DecisionTable{}
	if err := json.Unmarshal(document, r.Table); err != nil {
		return nil, fmt.Errorf("failed to decode revision %s: %w", id, err)
	}
	return &r, nil
}

// WriteWorkbook streams the workbook stored with the newest revision
func (s *PostgresTableStore) WriteWorkbook(ctx context.Context, w io.Writer) error {
	var xlsx []byte
	err := s.db.QueryRowContext(ctx, `
		SELECT workbook
		FROM table_revisions
		WHERE table_name = $1
		ORDER BY created_at DESC, seq DESC
		LIMIT 1
	`, s.tableName).Scan(&xlsx)

	if errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("%w: %s", ErrTableNotFound, s.tableName)
	}
	if err != nil {
		return fmt.Errorf("failed to load workbook: %w", err)
	}

	_, err = w.Write(xlsx)
	return err
}
