package store

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInMemStore_Identities(t *testing.T) {
	st := NewInMemStore()
	ctx := context.Background()

	t.Run("CreateAndGet", func(t *testing.T) {
		created, err := st.CreateIdentity(ctx, testIdentity("alice@example.com"))
		require.NoError(t, err)
		assert.False(t, created.Verified)

		identity, err := st.GetIdentity(ctx, "alice@example.com")
		require.NoError(t, err)
		assert.Equal(t, "Test User", identity.DisplayName)
	})

	t.Run("DuplicateEmail", func(t *testing.T) {
		_, err := st.CreateIdentity(ctx, testIdentity("alice@example.com"))
		assert.ErrorIs(t, err, ErrIdentityExists)
	})

	t.Run("MarkVerified", func(t *testing.T) {
		require.NoError(t, st.MarkIdentityVerified(ctx, "alice@example.com"))

		identity, err := st.GetIdentity(ctx, "alice@example.com")
		require.NoError(t, err)
		assert.True(t, identity.Verified)
	})

	t.Run("NotFound", func(t *testing.T) {
		_, err := st.GetIdentity(ctx, "nobody@example.com")
		assert.ErrorIs(t, err, ErrIdentityNotFound)
		assert.ErrorIs(t, st.MarkIdentityVerified(ctx, "nobody@example.com"), ErrIdentityNotFound)
	})
}

func TestInMemStore_Tokens(t *testing.T) {
	st := NewInMemStore()
	ctx := context.Background()

	_, err := st.CreateToken(ctx, testToken("alice@example.com", "token1", time.Now().UTC().Add(time.Hour)))
	require.NoError(t, err)

	t.Run("Get", func(t *testing.T) {
		found, err := st.GetToken(ctx, "token1")
		require.NoError(t, err)
		assert.False(t, found.Consumed())
	})

	t.Run("ConsumeOnce", func(t *testing.T) {
		require.NoError(t, st.MarkTokenConsumed(ctx, "token1"))
		assert.ErrorIs(t, st.MarkTokenConsumed(ctx, "token1"), ErrTokenAlreadyConsumed)
	})
}

func TestInMemStore_ConcurrentConsumeSingleWinner(t *testing.T) {
	st := NewInMemStore()
	ctx := context.Background()

	_, err := st.CreateToken(ctx, testToken("alice@example.com", "token1", time.Now().UTC().Add(time.Hour)))
	require.NoError(t, err)

	const goroutines = 20

	var wg sync.WaitGroup
	results := make(chan error, goroutines)
	start := make(chan struct{})

	for i := 0; i < goroutines; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			<-start
			results <- st.MarkTokenConsumed(ctx, "token1")
		}()
	}

	close(start)
	wg.Wait()
	close(results)

	var winners, losers int
	for err := range results {
		switch {
		case err == nil:
			winners++
		case assert.ErrorIs(t, err, ErrTokenAlreadyConsumed):
			losers++
		}
	}

	assert.Equal(t, 1, winners)
	assert.Equal(t, goroutines-1, losers)
}

func TestInMemStore_CleanupExpiredTokens(t *testing.T) {
	st := NewInMemStore()
	ctx := context.Background()

	_, err := st.CreateToken(ctx, testToken("a@example.com", "stale", time.Now().UTC().Add(-time.Hour)))
	require.NoError(t, err)
	require.NoError(t, st.MarkTokenConsumed(ctx, "stale"))

	_, err = st.CreateToken(ctx, testToken("b@example.com", "live", time.Now().UTC().Add(time.Hour)))
	require.NoError(t, err)

	require.NoError(t, st.CleanupExpiredTokens(ctx))

	_, err = st.GetToken(ctx, "stale")
	assert.ErrorIs(t, err, ErrTokenNotFound)
	_, err = st.GetToken(ctx, "live")
	assert.NoError(t, err)
}
