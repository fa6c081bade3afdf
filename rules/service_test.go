package rules

import (
	"bytes"
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/liamcoop/ruleseditor/decisiontable"
	"github.com/liamcoop/ruleseditor/workbook"
)

// countingStore records calls and can be told to fail
type countingStore struct {
	*InMemoryTableStore
	loads   int
	saves   int
	saveErr error
	mu      sync.Mutex
}

func (s *countingStore) Load(ctx context.Context) (*decisiontable.DecisionTable, error) {
	s.mu.Lock()
	s.loads++
	s.mu.Unlock()
	return s.InMemoryTableStore.Load(ctx)
}

func (s *countingStore) Save(ctx context.Context, table *decisiontable.DecisionTable) error {
	s.mu.Lock()
	s.saves++
	err := s.saveErr
	s.mu.Unlock()
	if err != nil {
		return err
	}
	return s.InMemoryTableStore.Save(ctx, table)
}

func newTestService(t *testing.T, seed *decisiontable.DecisionTable) (*Service, *countingStore) {
	t.Helper()
	validator, err := decisiontable.NewValidator()
	require.NoError(t, err)
	store := &countingStore{InMemoryTableStore: NewInMemoryTableStore(seed)}
	return NewService("DiscountRules", store, validator), store
}

// TestService_GetUsesCache verifies repeated reads hit the store once
func TestService_GetUsesCache(t *testing.T) {
	ctx := context.Background()
	svc, store := newTestService(t, testTable())

	first, err := svc.Get(ctx)
	require.NoError(t, err)
	first.Rows[0].Name = "mutated"

	second, err := svc.Get(ctx)
	require.NoError(t, err)

	assert.Equal(t, 1, store.loads)
	assert.Equal(t, "Big spender", second.Rows[0].Name)
	assert.Equal(t, "DiscountRules", svc.Name())
}

// TestService_GetNotFound verifies an empty store surfaces ErrTableNotFound
func TestService_GetNotFound(t *testing.T) {
	svc, _ := newTestService(t, nil)

	_, err := svc.Get(context.Background())
	assert.ErrorIs(t, err, ErrTableNotFound)
}

// TestService_SaveValid verifies valid tables are stored and served afterwards
func TestService_SaveValid(t *testing.T) {
	ctx := context.Background()
	svc, store := newTestService(t, testTable())

	table := testTable()
	table.AddRow()
	table.Rows[2].Values = []any{int64(1000), int64(20)}

	result, err := svc.Save(ctx, table)
	require.NoError(t, err)
	assert.True(t, result.OK)
	assert.Equal(t, 1, store.saves)

	got, err := svc.Get(ctx)
	require.NoError(t, err)
	assert.Len(t, got.Rows, 3)
	assert.Equal(t, 0, store.loads)
}

// TestService_SaveInvalid verifies invalid tables never reach the store
func TestService_SaveInvalid(t *testing.T) {
	svc, store := newTestService(t, testTable())

	table := testTable()
	table.Rows[0].Values[0] = "lots"

	result, err := svc.Save(context.Background(), table)
	assert.ErrorIs(t, err, ErrValidationFailed)
	assert.False(t, result.OK)
	require.Len(t, result.Errors, 1)
	assert.Equal(t, 0, store.saves)
}

// TestService_SaveStoreFailure verifies store errors are wrapped and the cache dropped
func TestService_SaveStoreFailure(t *testing.T) {
	ctx := context.Background()
	svc, store := newTestService(t, testTable())
	_, err := svc.Get(ctx)
	require.NoError(t, err)

	store.saveErr = errors.New("disk full")
	result, err := svc.Save(ctx, testTable())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "disk full")
	assert.True(t, result.OK)

	_, err = svc.Get(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, store.loads)
}

// TestService_Export verifies stores without their own workbook are exported from the table
func TestService_Export(t *testing.T) {
	svc, _ := newTestService(t, testTable())

	var buf bytes.Buffer
	require.NoError(t, svc.Export(context.Background(), &buf))

	table, _, err := workbook.Read(&buf)
	require.NoError(t, err)
	assert.Equal(t, testTable(), table)
}

// TestService_RevisionsUnsupported verifies history needs a revision store
func TestService_RevisionsUnsupported(t *testing.T) {
	svc, _ := newTestService(t, testTable())

	_, err := svc.Revisions(context.Background(), 10)
	assert.ErrorIs(t, err, ErrHistoryUnsupported)
	_, err = svc.Revision(context.Background(), "x")
	assert.ErrorIs(t, err, ErrHistoryUnsupported)
}

// TestService_ConcurrentAccess verifies concurrent gets and saves are safe
func TestService_ConcurrentAccess(t *testing.T) {
	ctx := context.Background()
	svc, _ := newTestService(t, testTable())

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(2)
		go func() {
			defer wg.Done()
			_, err := svc.Get(ctx)
			assert.NoError(t, err)
		}()
		go func() {
			defer wg.Done()
			_, err := svc.Save(ctx, testTable())
			assert.NoError(t, err)
		}()
	}
	wg.Wait()
}

// TestInMemoryTableCache_TTL verifies entries expire after the configured TTL
func TestInMemoryTableCache_TTL(t *testing.T) {
	now := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	cache := NewInMemoryTableCache(CacheConfig{TTL: time.Minute})
	cache.now = func() time.Time { return now }

	assert.False(t, cache.IsValid())
	assert.Nil(t, cache.Get())

	cache.Set(testTable())
	assert.True(t, cache.IsValid())
	assert.NotNil(t, cache.Get())

	now = now.Add(2 * time.Minute)
	assert.False(t, cache.IsValid())
	assert.Nil(t, cache.Get())
}

// TestInMemoryTableCache_Invalidate verifies invalidation clears the entry
func TestInMemoryTableCache_Invalidate(t *testing.T) {
	cache := NewInMemoryTableCache(DefaultCacheConfig())
	cache.Set(testTable())

	cache.Invalidate()

	assert.False(t, cache.IsValid())
	assert.Nil(t, cache.Get())
}
