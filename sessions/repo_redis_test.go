package sessions_test

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/ezekl/budget-server/sessions"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"
)

func newRedisRepo(t *testing.T) (*sessions.RedisRepo, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return sessions.NewRedisRepo(client), mr
}

func TestRedisRepo_RoundTrip(t *testing.T) {
	repo, _ := newRedisRepo(t)
	ctx := context.Background()

	sessionID, err := repo.CreatePending(ctx)
	require.NoError(t, err)

	expiry := time.Now().Add(time.Hour).UTC().Truncate(time.Second)
	session := sessions.Session{
		ID:           sessionID,
		AccessToken:  "access",
		RefreshToken: "refresh",
		TokenExpiry:  expiry,
		RealmID:      "R123",
		CreatedAt:    time.Now().UTC().Truncate(time.Second),
	}
	require.NoError(t, repo.Put(ctx, session))

	got, err := repo.Get(ctx, sessionID)
	require.NoError(t, err)
	require.Equal(t, "access", got.AccessToken)
	require.Equal(t, "refresh", got.RefreshToken)
	require.Equal(t, "R123", got.RealmID)
	require.True(t, expiry.Equal(got.TokenExpiry))
}

func TestRedisRepo_GetUnknown(t *testing.T) {
	repo, _ := newRedisRepo(t)

	_, err := repo.Get(context.Background(), "missing")
	require.ErrorIs(t, err, sessions.ErrNotFound)
}

func TestRedisRepo_DeleteIdempotent(t *testing.T) {
	repo, _ := newRedisRepo(t)
	ctx := context.Background()

	sessionID, err := repo.CreatePending(ctx)
	require.NoError(t, err)

	require.NoError(t, repo.Delete(ctx, sessionID))
	require.NoError(t, repo.Delete(ctx, sessionID))

	_, err = repo.Get(ctx, sessionID)
	require.ErrorIs(t, err, sessions.ErrNotFound)
}

func TestRedisRepo_PendingExpires(t *testing.T) {
	repo, mr := newRedisRepo(t)
	ctx := context.Background()

	sessionID, err := repo.CreatePending(ctx)
	require.NoError(t, err)

	mr.FastForward(11 * time.Minute)

	_, err = repo.Get(ctx, sessionID)
	require.ErrorIs(t, err, sessions.ErrNotFound)
}
