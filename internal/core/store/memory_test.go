package store

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"melowms/internal/core/apperror"
)

type testDoc struct {
	Name  string  `json:"name"`
	Stock float64 `json:"stock"`
	Done  bool    `json:"done"`
}

func seed(t *testing.T, m *Memory, path string, data any) {
	t.Helper()
	err := m.RunTransaction(context.Background(), func(ctx context.Context, tx Tx) error {
		return tx.Set(path, data)
	})
	require.NoError(t, err)
}

func TestMemory_GetSetRoundTrip(t *testing.T) {
	m := NewMemory()
	ctx := context.Background()

	seed(t, m, "companies/c1/items/i1", testDoc{Name: "Beer 50cl", Stock: 12})

	doc, err := m.Get(ctx, "companies/c1/items/i1")
	require.NoError(t, err)
	require.NotNil(t, doc)
	assert.Equal(t, "i1", doc.ID())
	assert.Equal(t, int64(1), doc.Version)

	var got testDoc
	require.NoError(t, doc.DataTo(&got))
	assert.Equal(t, "Beer 50cl", got.Name)
	assert.Equal(t, 12.0, got.Stock)

	// Missing document reads as nil, not as an error.
	doc, err = m.Get(ctx, "companies/c1/items/absent")
	require.NoError(t, err)
	assert.Nil(t, doc)
}

func TestMemory_PathValidation(t *testing.T) {
	m := NewMemory()
	ctx := context.Background()

	_, err := m.Get(ctx, "companies/c1/items")
	require.Error(t, err)
	appErr, ok := apperror.AsAppError(err)
	require.True(t, ok)
	assert.Equal(t, apperror.CodeValidation, appErr.Code)

	_, err = m.Get(ctx, "companies//items/i1")
	require.Error(t, err)
}

func TestMemory_CreateExisting(t *testing.T) {
	m := NewMemory()
	ctx := context.Background()
	seed(t, m, "users/u1", testDoc{Name: "a"})

	err := m.RunTransaction(ctx, func(ctx context.Context, tx Tx) error {
		return tx.Create("users/u1", testDoc{Name: "b"})
	})
	require.Error(t, err)
}

func TestMemory_UpdateMissing(t *testing.T) {
	m := NewMemory()
	err := m.RunTransaction(context.Background(), func(ctx context.Context, tx Tx) error {
		return tx.Update("users/u1", testDoc{Name: "b"})
	})
	require.Error(t, err)
}

func TestMemory_ReadYourWrites(t *testing.T) {
	m := NewMemory()
	err := m.RunTransaction(context.Background(), func(ctx context.Context, tx Tx) error {
		if err := tx.Set("users/u1", testDoc{Name: "staged"}); err != nil {
			return err
		}
		doc, err := tx.Get("users/u1")
		if err != nil {
			return err
		}
		require.NotNil(t, doc)
		var got testDoc
		require.NoError(t, doc.DataTo(&got))
		assert.Equal(t, "staged", got.Name)
		return nil
	})
	require.NoError(t, err)
}

func TestMemory_DeleteInTx(t *testing.T) {
	m := NewMemory()
	ctx := context.Background()
	seed(t, m, "users/u1", testDoc{Name: "a"})

	err := m.RunTransaction(ctx, func(ctx context.Context, tx Tx) error {
		return tx.Delete("users/u1")
	})
	require.NoError(t, err)

	doc, err := m.Get(ctx, "users/u1")
	require.NoError(t, err)
	assert.Nil(t, doc)
}

func TestMemory_QueryFilters(t *testing.T) {
	m := NewMemory()
	ctx := context.Background()

	seed(t, m, "branches/b1/inventory/i1", testDoc{Name: "a", Stock: 5})
	seed(t, m, "branches/b1/inventory/i2", testDoc{Name: "b", Stock: 20})
	seed(t, m, "branches/b1/inventory/i3", testDoc{Name: "c", Stock: 50, Done: true})
	seed(t, m, "branches/b2/inventory/i9", testDoc{Name: "other branch", Stock: 99})

	docs, err := m.Query(ctx, Query{
		Collection: "branches/b1/inventory",
		Filters:    []Filter{{Field: "stock", Op: OpGreaterEqual, Value: 20}},
		OrderBy:    "stock",
		Desc:       true,
	})
	require.NoError(t, err)
	require.Len(t, docs, 2)
	assert.Equal(t, "i3", docs[0].ID())
	assert.Equal(t, "i2", docs[1].ID())

	docs, err = m.Query(ctx, Query{
		Collection: "branches/b1/inventory",
		Filters:    []Filter{{Field: "done", Op: OpEqual, Value: true}},
	})
	require.NoError(t, err)
	require.Len(t, docs, 1)
	assert.Equal(t, "i3", docs[0].ID())

	docs, err = m.Query(ctx, Query{Collection: "branches/b1/inventory", Limit: 2})
	require.NoError(t, err)
	assert.Len(t, docs, 2)
}

func TestMemory_ConflictRetries(t *testing.T) {
	m := NewMemory()
	ctx := context.Background()
	seed(t, m, "counters/c1", map[string]any{"n": 0.0})

	// First two commit attempts collide with an out-of-band writer.
	collisions := 2
	m.SetCommitHook(func() {
		if collisions == 0 {
			return
		}
		collisions--
		m.mu.Lock()
		doc := m.docs["counters/c1"]
		doc.version++
		m.mu.Unlock()
	})
	defer m.SetCommitHook(nil)

	attempts := 0
	err := m.RunTransaction(ctx, func(ctx context.Context, tx Tx) error {
		attempts++
		doc, err := tx.Get("counters/c1")
		if err != nil {
			return err
		}
		fields, err := doc.Fields()
		if err != nil {
			return err
		}
		return tx.Set("counters/c1", map[string]any{"n": fields["n"].(float64) + 1})
	})
	require.NoError(t, err)
	assert.Equal(t, 3, attempts)
}

func TestMemory_ConflictExhaustion(t *testing.T) {
	m := NewMemory()
	m.retry = RetryPolicy{MaxAttempts: 3, BaseBackoff: 1, MaxBackoff: 1}
	ctx := context.Background()
	seed(t, m, "counters/c1", map[string]any{"n": 0.0})

	m.SetCommitHook(func() {
		m.mu.Lock()
		m.docs["counters/c1"].version++
		m.mu.Unlock()
	})
	defer m.SetCommitHook(nil)

	err := m.RunTransaction(ctx, func(ctx context.Context, tx Tx) error {
		if _, err := tx.Get("counters/c1"); err != nil {
			return err
		}
		return tx.Set("counters/c1", map[string]any{"n": 1.0})
	})
	require.Error(t, err)
	appErr, ok := apperror.AsAppError(err)
	require.True(t, ok)
	assert.Equal(t, apperror.CodeConflict, appErr.Code)
}
