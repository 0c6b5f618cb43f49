package store

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryStore_GetSetDelete(t *testing.T) {
	st := NewMemoryStore()
	ctx := context.Background()

	_, err := st.Get(ctx, "missing")
	assert.ErrorIs(t, err, ErrKeyNotFound, "expected ErrKeyNotFound for unwritten key")

	require.NoError(t, st.Set(ctx, "k", []byte("v1")))
	value, err := st.Get(ctx, "k")
	require.NoError(t, err)
	assert.Equal(t, []byte("v1"), value)

	require.NoError(t, st.Set(ctx, "k", []byte("v2")))
	value, err = st.Get(ctx, "k")
	require.NoError(t, err)
	assert.Equal(t, []byte("v2"), value, "expected last write to win")

	require.NoError(t, st.Delete(ctx, "k"))
	_, err = st.Get(ctx, "k")
	assert.ErrorIs(t, err, ErrKeyNotFound, "expected key to be gone after delete")

	assert.NoError(t, st.Delete(ctx, "k"), "expected delete of absent key to be a no-op")
}

func TestMemoryStore_Update(t *testing.T) {
	st := NewMemoryStore()
	ctx := context.Background()

	t.Run("absent key passes nil to fn", func(t *testing.T) {
		err := st.Update(ctx, "list", func(old []byte) ([]byte, error) {
			assert.Nil(t, old, "expected nil for absent key")
			return []byte("a"), nil
		})
		require.NoError(t, err)

		value, err := st.Get(ctx, "list")
		require.NoError(t, err)
		assert.Equal(t, []byte("a"), value)
	})

	t.Run("fn error aborts with nothing written", func(t *testing.T) {
		abort := errors.New("abort")
		err := st.Update(ctx, "list", func(old []byte) ([]byte, error) {
			return []byte("should not be written"), abort
		})
		assert.ErrorIs(t, err, abort, "expected fn error to propagate unwrapped")

		value, err := st.Get(ctx, "list")
		require.NoError(t, err)
		assert.Equal(t, []byte("a"), value, "expected aborted update to leave value unchanged")
	})
}

func TestMemoryStore_UpdateSerialized(t *testing.T) {
	st := NewMemoryStore()
	ctx := context.Background()

	// every concurrent append must survive: no lost updates
	const writers = 32
	var wg sync.WaitGroup
	for i := 0; i < writers; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			err := st.Update(ctx, "counter", func(old []byte) ([]byte, error) {
				return append(old, byte('x')), nil
			})
			assert.NoError(t, err)
		}(i)
	}
	wg.Wait()

	value, err := st.Get(ctx, "counter")
	require.NoError(t, err)
	assert.Len(t, value, writers, fmt.Sprintf("expected all %d writes to survive", writers))
}

func TestMemoryStore_GetReturnsCopy(t *testing.T) {
	st := NewMemoryStore()
	ctx := context.Background()

	require.NoError(t, st.Set(ctx, "k", []byte("abc")))

	value, err := st.Get(ctx, "k")
	require.NoError(t, err)
	value[0] = 'z'

	again, err := st.Get(ctx, "k")
	require.NoError(t, err)
	assert.Equal(t, []byte("abc"), again, "expected stored value to be isolated from caller mutation")
}
