package sessions_test

import (
	"context"
	"testing"
	"time"

	"github.com/ezekl/budget-server/sessions"
	"github.com/stretchr/testify/require"
)

func TestInMemoryRepo_PendingLifecycle(t *testing.T) {
	repo := sessions.NewInMemoryRepo()
	ctx := context.Background()

	sessionID, err := repo.CreatePending(ctx)
	require.NoError(t, err)
	require.NotEmpty(t, sessionID)

	session, err := repo.Get(ctx, sessionID)
	require.NoError(t, err)
	require.False(t, session.Authenticated())

	session.AccessToken = "access"
	session.RefreshToken = "refresh"
	session.TokenExpiry = time.Now().Add(time.Hour)
	session.RealmID = "R123"
	require.NoError(t, repo.Put(ctx, session))

	got, err := repo.Get(ctx, sessionID)
	require.NoError(t, err)
	require.True(t, got.Authenticated())
	require.Equal(t, "R123", got.RealmID)
}

func TestInMemoryRepo_GetUnknown(t *testing.T) {
	repo := sessions.NewInMemoryRepo()

	_, err := repo.Get(context.Background(), "missing")
	require.ErrorIs(t, err, sessions.ErrNotFound)
}

func TestInMemoryRepo_DeleteIdempotent(t *testing.T) {
	repo := sessions.NewInMemoryRepo()
	ctx := context.Background()

	sessionID, err := repo.CreatePending(ctx)
	require.NoError(t, err)

	require.NoError(t, repo.Delete(ctx, sessionID))
	require.NoError(t, repo.Delete(ctx, sessionID))
	require.NoError(t, repo.Delete(ctx, "never-existed"))
}

func TestInMemoryRepo_PutReplacesBundle(t *testing.T) {
	repo := sessions.NewInMemoryRepo()
	ctx := context.Background()

	sessionID, err := repo.CreatePending(ctx)
	require.NoError(t, err)

	first := sessions.Session{ID: sessionID, AccessToken: "a1", RefreshToken: "r1", TokenExpiry: time.Now().Add(time.Hour)}
	require.NoError(t, repo.Put(ctx, first))

	second := sessions.Session{ID: sessionID, AccessToken: "a2", RefreshToken: "r2", TokenExpiry: time.Now().Add(2 * time.Hour)}
	require.NoError(t, repo.Put(ctx, second))

	got, err := repo.Get(ctx, sessionID)
	require.NoError(t, err)
	require.Equal(t, "r2", got.RefreshToken, "refresh token must be replaced, never merged")
	require.Equal(t, "a2", got.AccessToken)
}

func TestInMemoryRepo_AbandonedPendingExpires(t *testing.T) {
	now := time.Now()
	repo := sessions.NewInMemoryRepo(sessions.WithNowTime(func() time.Time { return now }))
	ctx := context.Background()

	sessionID, err := repo.CreatePending(ctx)
	require.NoError(t, err)

	now = now.Add(11 * time.Minute)
	_, err = repo.Get(ctx, sessionID)
	require.ErrorIs(t, err, sessions.ErrNotFound)

	// Authenticated sessions do not expire this way.
	authID, err := repo.CreatePending(ctx)
	require.NoError(t, err)
	require.NoError(t, repo.Put(ctx, sessions.Session{
		ID: authID, AccessToken: "a", RefreshToken: "r",
		TokenExpiry: now.Add(time.Hour), CreatedAt: now,
	}))
	now = now.Add(time.Hour)
	_, err = repo.Get(ctx, authID)
	require.NoError(t, err)
}
