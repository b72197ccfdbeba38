package cache

import (
	"context"
	"testing"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/stretchr/testify/assert"
)

func newTiers(t *testing.T) (context.Context, Backend, Backend) {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	return ctx, NewInMemory(ctx), NewInMemory(ctx)
}

func TestCompositeSimple(t *testing.T) {
	_, l1, l2 := newTiers(t)
	c := NewComposite(l1, l2)
	assert.NoError(t, c.Close())
}

func TestCompositePanicOnEmpty(t *testing.T) {
	assert.Panics(t, func() {
		NewComposite()
	})
}

func TestCompositeGetOrder(t *testing.T) {
	ctx, l1, l2 := newTiers(t)
	c := NewComposite(l1, l2)
	defer c.Close()

	// Set different values in each layer directly.
	l1.Set(ctx, "key", "from-l1", time.Minute)
	l2.Set(ctx, "key", "from-l2", time.Minute)
	l2.Set(ctx, "only-l2", "deep", time.Minute)

	// Composite should return from the first cache (l1).
	found, val, err := c.Get(ctx, "key")
	assert.NoError(t, err)
	assert.True(t, found)
	assert.Equal(t, "from-l1", val)

	found, val, err = c.Get(ctx, "only-l2")
	assert.NoError(t, err)
	assert.True(t, found)
	assert.Equal(t, "deep", val)

	ok, err := c.Has(ctx, "only-l2")
	assert.NoError(t, err)
	assert.True(t, ok)
	ok, err = c.Has(ctx, "nowhere")
	assert.NoError(t, err)
	assert.False(t, ok)
}

func TestCompositeGetManyFillsFromLaterTiers(t *testing.T) {
	ctx, l1, l2 := newTiers(t)
	c := NewComposite(l1, l2)
	defer c.Close()

	l1.Set(ctx, "k-0", "l1-0", time.Minute)
	l2.Set(ctx, "k-0", "l2-0", time.Minute)
	l2.Set(ctx, "k-1", "l2-1", time.Minute)

	vals, err := c.GetMany(ctx, []string{"k-0", "k-1", "k-2"})
	assert.NoError(t, err)
	assert.Equal(t, map[string]any{"k-0": "l1-0", "k-1": "l2-1"}, vals)
}

func TestCompositeSetAll(t *testing.T) {
	ctx, l1, l2 := newTiers(t)
	c := NewComposite(l1, l2)
	defer c.Close()

	// Set via composite writes to all.
	assert.NoError(t, c.Set(ctx, "key", "shared", time.Minute))

	// Both layers should have it.
	for _, l := range []Backend{l1, l2} {
		found, val, err := l.Get(ctx, "key")
		assert.NoError(t, err)
		assert.True(t, found)
		assert.Equal(t, "shared", val)
	}
}

func TestCompositeSetReportsFirstError(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	small := NewInMemory(ctx, WithMaxValueSize(4))
	big := NewInMemory(ctx)
	c := NewComposite(small, big)
	defer c.Close()

	err := c.Set(ctx, "key", "much too long", time.Minute)
	assert.True(t, errors.Is(err, ErrValueTooLarge))

	// The tier that accepted the value still has it.
	found, _, _ := big.Get(ctx, "key")
	assert.True(t, found)
}

func TestCompositeDelete(t *testing.T) {
	ctx, l1, l2 := newTiers(t)
	c := NewComposite(l1, l2)
	defer c.Close()

	l2.Set(ctx, "key", "v", time.Minute)
	found, err := c.Delete(ctx, "key")
	assert.NoError(t, err)
	assert.True(t, found)

	found, err = c.Delete(ctx, "key")
	assert.NoError(t, err)
	assert.False(t, found)
}
