package cache

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vmihailenco/msgpack/v5"
)

type user struct {
	Name  string `msgpack:"name"`
	Email string `msgpack:"email"`
}

func TestAsLiveValue(t *testing.T) {
	got, err := As[string]("hello")
	assert.NoError(t, err)
	assert.Equal(t, "hello", got)

	u, err := As[user](user{"a", "b"})
	assert.NoError(t, err)
	assert.Equal(t, user{"a", "b"}, u)
}

func TestAsRaw(t *testing.T) {
	data, err := msgpack.Marshal(user{"alice", "alice@example.com"})
	require.NoError(t, err)

	u, err := As[user](Raw(data))
	assert.NoError(t, err)
	assert.Equal(t, user{"alice", "alice@example.com"}, u)

	data, err = msgpack.Marshal([]byte{1, 2, 3})
	require.NoError(t, err)
	b, err := As[[]byte](Raw(data))
	assert.NoError(t, err)
	assert.Equal(t, []byte{1, 2, 3}, b)
}

func TestAsNil(t *testing.T) {
	v, err := As[any](nil)
	assert.NoError(t, err)
	assert.Nil(t, v)

	p, err := As[*user](nil)
	assert.NoError(t, err)
	assert.Nil(t, p)

	data, err := msgpack.Marshal(nil)
	require.NoError(t, err)
	v, err = As[any](Raw(data))
	assert.NoError(t, err)
	assert.Nil(t, v)
}

func TestAsMismatch(t *testing.T) {
	_, err := As[int]("not an int")
	assert.Error(t, err)

	_, err = As[int](Raw{0xc1})
	assert.Error(t, err)
}

func TestGetHelperMiss(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	c := NewInMemory(ctx)
	defer c.Close()

	found, val, err := Get[string](ctx, c, "missing")
	assert.NoError(t, err)
	assert.False(t, found)
	assert.Equal(t, "", val)
}
