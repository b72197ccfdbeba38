package cache

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSQLiteSimpleCache(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	c, err := NewSQLite(ctx, ":memory:", WithExpiryCheck(time.Second))
	assert.NoError(t, err)
	assert.NoError(t, c.Close())
}

func TestSQLiteSetGetCache(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	c, err := NewSQLite(ctx, ":memory:", WithExpiryCheck(time.Minute))
	require.NoError(t, err)
	defer c.Close()

	// Miss on empty cache.
	found, val, err := c.Get(ctx, "test")
	assert.NoError(t, err)
	assert.False(t, found)
	assert.Nil(t, val)

	// Set and get raw.
	assert.NoError(t, c.Set(ctx, "test", "value", time.Minute))
	found, val, err = c.Get(ctx, "test")
	assert.NoError(t, err)
	assert.True(t, found)
	assert.IsType(t, Raw{}, val)

	// Get using generic helper.
	ok, str, err := Get[string](ctx, c, "test")
	assert.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "value", str)

	// Overwrite.
	assert.NoError(t, c.Set(ctx, "test", "other", time.Minute))
	_, str, _ = Get[string](ctx, c, "test")
	assert.Equal(t, "other", str)
}

func TestSQLiteCacheExpiry(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	c, err := NewSQLite(ctx, ":memory:", WithExpiryCheck(time.Minute))
	require.NoError(t, err)
	defer c.Close()

	assert.NoError(t, c.Set(ctx, "test", "value", 10*time.Millisecond))
	ok, err := c.Has(ctx, "test")
	assert.NoError(t, err)
	assert.True(t, ok)

	time.Sleep(20 * time.Millisecond)

	ok, err = c.Has(ctx, "test")
	assert.NoError(t, err)
	assert.False(t, ok)
	found, _, err := c.Get(ctx, "test")
	assert.NoError(t, err)
	assert.False(t, found)
}

func TestSQLiteGetMany(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	c, err := NewSQLite(ctx, "")
	require.NoError(t, err)
	defer c.Close()

	assert.NoError(t, c.Set(ctx, "k-0", []byte{1}, time.Minute))
	assert.NoError(t, c.Set(ctx, "k-1", []byte{2}, time.Minute))

	vals, err := c.GetMany(ctx, []string{"k-0", "k-1", "k-2"})
	require.NoError(t, err)
	assert.Len(t, vals, 2)
	b, err := As[[]byte](vals["k-1"])
	assert.NoError(t, err)
	assert.Equal(t, []byte{2}, b)

	vals, err = c.GetMany(ctx, []string{})
	assert.NoError(t, err)
	assert.Empty(t, vals)
}

func TestSQLiteDelete(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	c, err := NewSQLite(ctx, ":memory:")
	require.NoError(t, err)
	defer c.Close()

	assert.NoError(t, c.Set(ctx, "test", "value", time.Minute))
	found, err := c.Delete(ctx, "test")
	assert.NoError(t, err)
	assert.True(t, found)

	found, err = c.Delete(ctx, "test")
	assert.NoError(t, err)
	assert.False(t, found)
}

func TestSQLitePersistence(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	dbPath := filepath.Join(t.TempDir(), "cache.db")

	c, err := NewSQLite(ctx, dbPath)
	require.NoError(t, err)
	assert.NoError(t, c.Set(ctx, "persist", "survives", time.Hour))
	assert.NoError(t, c.Close())

	c2, err := NewSQLite(ctx, dbPath)
	require.NoError(t, err)
	defer c2.Close()
	found, val, err := Get[string](ctx, c2, "persist")
	assert.NoError(t, err)
	assert.True(t, found)
	assert.Equal(t, "survives", val)
}
