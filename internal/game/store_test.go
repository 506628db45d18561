package game

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInMemoryMatchStore_DeleteCheck(t *testing.T) {
	ctx := context.Background()
	store := NewInMemoryMatchStore()
	require.NoError(t, store.Create(ctx, NewMatch("m1", alice, DefaultRules(), time.Now())))

	onlyHost := func(m *Match) error {
		if m.P1.UID != alice.UID {
			return ErrNotInMatch
		}
		return nil
	}
	refuse := func(*Match) error { return ErrNotInMatch }

	_, err := store.Delete(ctx, "m1", refuse)
	require.ErrorIs(t, err, ErrNotInMatch)
	_, err = store.Get(ctx, "m1")
	require.NoError(t, err, "a refused delete keeps the match")

	m, err := store.Delete(ctx, "m1", onlyHost)
	require.NoError(t, err)
	assert.Equal(t, "m1", m.ID)

	_, err = store.Delete(ctx, "m1", onlyHost)
	require.ErrorIs(t, err, ErrMatchNotFound)
}
