package repository

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"policydesk-backend/models"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func setupRedisStore(t *testing.T, ttl time.Duration) (*miniredis.Miniredis, *RedisSessionStore) {
	t.Helper()
	mr, err := miniredis.Run()
	require.NoError(t, err)
	t.Cleanup(mr.Close)

	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })
	return mr, NewRedisSessionStore(client, ttl, zap.NewNop())
}

func storesUnderTest(t *testing.T) map[string]SessionStore {
	_, redisStore := setupRedisStore(t, time.Hour)
	return map[string]SessionStore{
		"memory": NewMemorySessionStore(),
		"redis":  redisStore,
	}
}

func TestSessionStore_GetOrCreateIsLazy(t *testing.T) {
	for name, store := range storesUnderTest(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()

			first, err := store.GetOrCreate(ctx, "s1")
			require.NoError(t, err)
			assert.Equal(t, "s1", first.ID)
			assert.Empty(t, first.Turns)
			assert.False(t, first.CreatedAt.IsZero())

			second, err := store.GetOrCreate(ctx, "s1")
			require.NoError(t, err)
			assert.True(t, first.CreatedAt.Equal(second.CreatedAt))
		})
	}
}

func TestSessionStore_AppendAndHistory(t *testing.T) {
	for name, store := range storesUnderTest(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()

			require.NoError(t, store.AppendTurn(ctx, "s1", models.Turn{Role: models.RoleUser, Content: "질문"}))
			require.NoError(t, store.AppendTurn(ctx, "s1", models.Turn{Role: models.RoleAssistant, Content: "답변"}))

			history, err := store.History(ctx, "s1")
			require.NoError(t, err)
			assert.Equal(t, []models.Turn{
				{Role: models.RoleUser, Content: "질문"},
				{Role: models.RoleAssistant, Content: "답변"},
			}, history)

			other, err := store.History(ctx, "s2")
			require.NoError(t, err)
			assert.Empty(t, other)
		})
	}
}

func TestSessionStore_RejectsEmptyID(t *testing.T) {
	for name, store := range storesUnderTest(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			_, err := store.GetOrCreate(ctx, "")
			assert.ErrorIs(t, err, ErrEmptySessionID)
			assert.ErrorIs(t, store.AppendTurn(ctx, "", models.Turn{}), ErrEmptySessionID)
		})
	}
}

func TestSessionStore_ConcurrentAppendsAreNotLost(t *testing.T) {
	for name, store := range storesUnderTest(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			const writers, perWriter = 8, 25

			var wg sync.WaitGroup
			for w := 0; w < writers; w++ {
				wg.Add(1)
				go func(w int) {
					defer wg.Done()
					for i := 0; i < perWriter; i++ {
						turn := models.Turn{Role: models.RoleUser, Content: fmt.Sprintf("%d-%d", w, i)}
						assert.NoError(t, store.AppendTurn(ctx, "shared", turn))
						assert.NoError(t, store.AppendTurn(ctx, fmt.Sprintf("own-%d", w), turn))
					}
				}(w)
			}
			wg.Wait()

			shared, err := store.History(ctx, "shared")
			require.NoError(t, err)
			assert.Len(t, shared, writers*perWriter)

			for w := 0; w < writers; w++ {
				own, err := store.History(ctx, fmt.Sprintf("own-%d", w))
				require.NoError(t, err)
				assert.Len(t, own, perWriter)
			}
		})
	}
}

func TestMemorySessionStore_HistoryIsACopy(t *testing.T) {
	store := NewMemorySessionStore()
	ctx := context.Background()
	require.NoError(t, store.AppendTurn(ctx, "s", models.Turn{Role: models.RoleUser, Content: "a"}))

	history, err := store.History(ctx, "s")
	require.NoError(t, err)
	history[0].Content = "mutated"

	again, err := store.History(ctx, "s")
	require.NoError(t, err)
	assert.Equal(t, "a", again[0].Content)
	assert.Equal(t, 1, store.Len())
}

func TestRedisSessionStore_TTL(t *testing.T) {
	mr, store := setupRedisStore(t, time.Minute)
	ctx := context.Background()

	require.NoError(t, store.AppendTurn(ctx, "s", models.Turn{Role: models.RoleUser, Content: "a"}))
	assert.Equal(t, time.Minute, mr.TTL(turnsKey("s")))

	mr.FastForward(2 * time.Minute)
	history, err := store.History(ctx, "s")
	require.NoError(t, err)
	assert.Empty(t, history)
}

func TestRedisSessionStore_SkipsUndecodableTurns(t *testing.T) {
	mr, store := setupRedisStore(t, 0)
	ctx := context.Background()

	_, err := mr.RPush(turnsKey("s"), "not-json", `{"role":"user","content":"ok"}`)
	require.NoError(t, err)

	history, err := store.History(ctx, "s")
	require.NoError(t, err)
	assert.Equal(t, []models.Turn{{Role: models.RoleUser, Content: "ok"}}, history)
}
