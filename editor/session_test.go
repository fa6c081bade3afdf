package editor

import (
	"bytes"
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/liamcoop/ruleseditor/decisiontable"
)

type fakeAPI struct {
	table       *decisiontable.DecisionTable
	result      decisiontable.ValidationResult
	err         error
	saved       *decisiontable.DecisionTable
	checkLoaded func()
}

func (f *fakeAPI) GetRules(ctx context.Context) (*decisiontable.DecisionTable, error) {
	if f.checkLoaded != nil {
		f.checkLoaded()
	}
	if f.err != nil {
		return nil, f.err
	}
	return f.table.Clone(), nil
}

func (f *fakeAPI) ValidateRules(ctx context.Context, table *decisiontable.DecisionTable) (decisiontable.ValidationResult, error) {
	return f.result, f.err
}

func (f *fakeAPI) SaveRules(ctx context.Context, table *decisiontable.DecisionTable) (decisiontable.ValidationResult, error) {
	if f.err != nil {
		return decisiontable.ValidationResult{}, f.err
	}
	if f.result.OK {
		f.saved = table
	}
	return f.result, nil
}

// blockingAPI holds SaveRules until release is closed
type blockingAPI struct {
	*fakeAPI
	started chan struct{}
	release chan struct{}
}

func (b *blockingAPI) SaveRules(ctx context.Context, table *decisiontable.DecisionTable) (decisiontable.ValidationResult, error) {
	close(b.started)
	<-b.release
	return b.fakeAPI.SaveRules(ctx, table)
}

type recorder struct {
	levels   []Level
	messages []string
}

func (r *recorder) Notify(level Level, message string) {
	r.levels = append(r.levels, level)
	r.messages = append(r.messages, message)
}

func (r *recorder) last() string {
	if len(r.messages) == 0 {
		return ""
	}
	return r.messages[len(r.messages)-1]
}

func discountTable() *decisiontable.DecisionTable {
	return &decisiontable.DecisionTable{
		Meta: decisiontable.DefaultMeta(),
		Headers: []decisiontable.ColumnType{
			decisiontable.ColumnName,
			decisiontable.ColumnCondition,
			decisiontable.ColumnCondition,
			decisiontable.ColumnAction,
		},
		Templates: []decisiontable.TemplateCell{
			{ColumnIndex: 1, Type: decisiontable.ColumnCondition, Template: "order.total >= $param"},
			{ColumnIndex: 2, Type: decisiontable.ColumnCondition, Template: "customer.vip == $param && true"},
			{ColumnIndex: 3, Type: decisiontable.ColumnAction, Template: "order.setNote(\"$param\")"},
		},
		Rows: []decisiontable.TableRow{
			{Name: "Big spender", Values: []any{float64(500), true, "gold"}},
		},
	}
}

func intp(i int) *int { return &i }

func loadedSession(t *testing.T) (*Session, *fakeAPI, *recorder) {
	t.Helper()
	api := &fakeAPI{table: discountTable(), result: decisiontable.NewValidationResult(nil)}
	rec := &recorder{}
	s := NewSession(api, rec)
	require.NoError(t, s.Load(context.Background()))
	return s, api, rec
}

// TestSession_NoTable verifies every table operation needs a loaded table
func TestSession_NoTable(t *testing.T) {
	rec := &recorder{}
	s := NewSession(&fakeAPI{}, rec)
	ctx := context.Background()

	_, err := s.Validate(ctx)
	assert.ErrorIs(t, err, ErrNoTable)
	_, err = s.Save(ctx)
	assert.ErrorIs(t, err, ErrNoTable)
	_, err = s.AddRow()
	assert.ErrorIs(t, err, ErrNoTable)
	_, err = s.CloneRow(0)
	assert.ErrorIs(t, err, ErrNoTable)
	assert.ErrorIs(t, s.DeleteRow(0), ErrNoTable)
	assert.ErrorIs(t, s.SetCell(0, 1, 1), ErrNoTable)
	assert.ErrorIs(t, s.RenameRow(0, "x"), ErrNoTable)

	assert.Nil(t, s.Table())
	assert.Nil(t, s.DisplayedColumns())
	assert.False(t, s.HasUnsavedChanges())
	assert.Empty(t, rec.messages)
}

// TestSession_Load verifies loading replaces the table and resets state
func TestSession_Load(t *testing.T) {
	s, api, rec := loadedSession(t)

	assert.Equal(t, MsgLoaded, rec.last())
	assert.Equal(t, LevelInfo, rec.levels[0])
	assert.False(t, s.HasUnsavedChanges())
	assert.Equal(t, []string{"actions", "col_0", "col_1", "col_2", "col_3"}, s.DisplayedColumns())
	assert.Equal(t, api.table, s.Table())

	_, err := s.AddRow()
	require.NoError(t, err)
	assert.True(t, s.HasUnsavedChanges())

	require.NoError(t, s.Load(context.Background()))
	assert.False(t, s.HasUnsavedChanges())
	assert.Len(t, s.Table().Rows, 1)
}

// TestSession_LoadError verifies transport failures notify and keep the old table
func TestSession_LoadError(t *testing.T) {
	s, api, rec := loadedSession(t)
	api.err = errors.New("connection refused")

	err := s.Load(context.Background())
	require.Error(t, err)
	assert.Equal(t, MsgLoadError, rec.last())
	assert.Equal(t, LevelError, rec.levels[len(rec.levels)-1])
	assert.NotNil(t, s.Table())
	assert.False(t, s.Loading())
}

// TestSession_Loading verifies the loading flag is set during server calls
func TestSession_Loading(t *testing.T) {
	api := &fakeAPI{table: discountTable()}
	s := NewSession(api, nil)

	var during bool
	api.checkLoaded = func() { during = s.Loading() }

	require.NoError(t, s.Load(context.Background()))
	assert.True(t, during)
	assert.False(t, s.Loading())
}

// TestSession_RowEdits verifies add, clone, rename, delete and cell edits
func TestSession_RowEdits(t *testing.T) {
	s, _, _ := loadedSession(t)

	idx, err := s.AddRow()
	require.NoError(t, err)
	assert.Equal(t, 1, idx)
	assert.Equal(t, "Rule 2", s.Table().Rows[1].Name)
	assert.Equal(t, []any{nil, nil, nil}, s.Table().Rows[1].Values)

	idx, err = s.CloneRow(0)
	require.NoError(t, err)
	assert.Equal(t, 1, idx)
	table := s.Table()
	assert.Equal(t, "Big spender (Copy)", table.Rows[1].Name)
	assert.Equal(t, table.Rows[0].Values, table.Rows[1].Values)
	assert.Len(t, table.Rows, 3)

	require.NoError(t, s.RenameRow(1, "VIP"))
	require.NoError(t, s.SetCell(1, 1, float64(1000)))
	require.NoError(t, s.SetCellInput(1, 2, "false"))
	require.NoError(t, s.SetCellInput(2, 1, "250"))

	table = s.Table()
	assert.Equal(t, "VIP", table.Rows[1].Name)
	assert.Equal(t, []any{float64(1000), false, "gold"}, table.Rows[1].Values)
	assert.Equal(t, int64(250), table.Rows[2].Values[0])

	require.NoError(t, s.DeleteRow(0))
	assert.Equal(t, "VIP", s.Table().Rows[0].Name)

	_, err = s.CloneRow(10)
	assert.ErrorIs(t, err, decisiontable.ErrRowOutOfRange)
	assert.ErrorIs(t, s.DeleteRow(-1), decisiontable.ErrRowOutOfRange)
}

// TestSession_TableIsACopy verifies callers cannot edit around the session
func TestSession_TableIsACopy(t *testing.T) {
	s, _, _ := loadedSession(t)

	s.Table().Rows[0].Name = "mutated"

	assert.Equal(t, "Big spender", s.Table().Rows[0].Name)
	assert.False(t, s.HasUnsavedChanges())
}

// TestSession_ValidateFailed verifies errors are recorded and bucketed
func TestSession_ValidateFailed(t *testing.T) {
	s, api, rec := loadedSession(t)
	api.result = decisiontable.NewValidationResult([]decisiontable.ValidationError{
		decisiontable.TableError("At least one ACTION column is required"),
		decisiontable.RowError(0, "Rule name is required"),
		decisiontable.CellError(0, 1, "Value must be numeric for comparison template"),
		decisiontable.CellError(0, 2, "Value must be boolean"),
	})

	result, err := s.Validate(context.Background())
	require.NoError(t, err)
	assert.False(t, result.OK)
	assert.Equal(t, "Validation failed: 4 errors", rec.last())

	assert.Len(t, s.ValidationErrors(), 4)
	assert.Len(t, s.GeneralErrors(), 1)
	assert.Len(t, s.RowErrors(), 3)

	cell := s.ErrorsForCell(0, 1)
	require.Len(t, cell, 1)
	assert.Equal(t, intp(1), cell[0].Col)
	assert.Empty(t, s.ErrorsForCell(1, 1))
}

// TestSession_ValidatePassed verifies a passing validation clears old errors
func TestSession_ValidatePassed(t *testing.T) {
	s, api, rec := loadedSession(t)
	api.result = decisiontable.NewValidationResult([]decisiontable.ValidationError{
		decisiontable.RowError(0, "Rule name is required"),
	})
	_, err := s.Validate(context.Background())
	require.NoError(t, err)

	api.result = decisiontable.NewValidationResult(nil)
	_, err = s.Validate(context.Background())
	require.NoError(t, err)

	assert.Equal(t, MsgValidationPassed, rec.last())
	assert.Empty(t, s.ValidationErrors())
}

// TestSession_ValidateError verifies transport failures on validate
func TestSession_ValidateError(t *testing.T) {
	s, api, rec := loadedSession(t)
	api.err = errors.New("timeout")

	_, err := s.Validate(context.Background())
	require.Error(t, err)
	assert.Equal(t, MsgValidateError, rec.last())
}

// TestSession_Save verifies a successful save clears unsaved state and errors
func TestSession_Save(t *testing.T) {
	s, api, rec := loadedSession(t)
	_, err := s.AddRow()
	require.NoError(t, err)

	result, err := s.Save(context.Background())
	require.NoError(t, err)
	assert.True(t, result.OK)
	assert.Equal(t, MsgSaved, rec.last())
	assert.False(t, s.HasUnsavedChanges())
	require.NotNil(t, api.saved)
	assert.Len(t, api.saved.Rows, 2)
}

// TestSession_EditDuringSave verifies edits made while a save is in flight stay unsaved
func TestSession_EditDuringSave(t *testing.T) {
	api := &blockingAPI{
		fakeAPI: &fakeAPI{table: discountTable(), result: decisiontable.NewValidationResult(nil)},
		started: make(chan struct{}),
		release: make(chan struct{}),
	}
	rec := &recorder{}
	s := NewSession(api, rec)
	require.NoError(t, s.Load(context.Background()))

	done := make(chan error, 1)
	go func() {
		_, err := s.Save(context.Background())
		done <- err
	}()

	<-api.started
	index, err := s.AddRow()
	require.NoError(t, err)
	close(api.release)
	require.NoError(t, <-done)

	assert.Equal(t, MsgSaved, rec.last())
	require.NotNil(t, api.saved)
	assert.Len(t, api.saved.Rows, 1)
	assert.Equal(t, 1, index)
	assert.Len(t, s.Table().Rows, 2)
	assert.True(t, s.HasUnsavedChanges())
}

// TestSession_SaveRejected verifies a rejected save keeps changes and records errors
func TestSession_SaveRejected(t *testing.T) {
	s, api, rec := loadedSession(t)
	require.NoError(t, s.RenameRow(0, ""))
	api.result = decisiontable.NewValidationResult([]decisiontable.ValidationError{
		decisiontable.RowError(0, "Rule name is required"),
	})

	result, err := s.Save(context.Background())
	require.NoError(t, err)
	assert.False(t, result.OK)
	assert.Equal(t, "Save failed: 1 validation errors", rec.last())
	assert.True(t, s.HasUnsavedChanges())
	assert.Len(t, s.RowErrors(), 1)
	assert.Nil(t, api.saved)
}

// TestSession_SaveError verifies transport failures on save
func TestSession_SaveError(t *testing.T) {
	s, api, rec := loadedSession(t)
	require.NoError(t, s.RenameRow(0, "Renamed"))
	api.err = errors.New("connection reset")

	_, err := s.Save(context.Background())
	require.Error(t, err)
	assert.Equal(t, MsgSaveError, rec.last())
	assert.True(t, s.HasUnsavedChanges())
}

// TestSession_Open verifies a local table can be edited and saved
func TestSession_Open(t *testing.T) {
	api := &fakeAPI{result: decisiontable.NewValidationResult(nil)}
	s := NewSession(api, nil)

	table := discountTable()
	s.Open(table)
	table.Rows[0].Name = "mutated"

	assert.True(t, s.HasUnsavedChanges())
	assert.Equal(t, "Big spender", s.Table().Rows[0].Name)

	_, err := s.Save(context.Background())
	require.NoError(t, err)
	assert.False(t, s.HasUnsavedChanges())
}

// TestWriterNotifier verifies messages are printed one per line
func TestWriterNotifier(t *testing.T) {
	var buf bytes.Buffer
	n := WriterNotifier{W: &buf}

	n.Notify(LevelInfo, MsgSaved)
	n.Notify(LevelError, MsgSaveError)

	assert.Equal(t, "Rules saved successfully\nerror: Error saving rules\n", buf.String())
}
