package services

import (
	"context"
	"testing"
	"time"

	"campusguard/models"

	"github.com/stretchr/testify/require"
)

func TestSessionStoreRoundTrip(t *testing.T) {
	kv := newMemoryKV()
	store := NewSessionStore(kv)
	ctx := context.Background()

	err := store.Store(ctx, models.UserSession{UID: "user-1"}, models.AuthTokens{IDToken: "token"})
	require.NoError(t, err)

	data, err := store.Get(ctx)
	require.NoError(t, err)
	require.NotNil(t, data)
	require.Equal(t, "user-1", data.User.UID)

	user, err := store.GetUser(ctx)
	require.NoError(t, err)
	require.Equal(t, "user-1", user.UID)

	valid, err := store.HasValid(ctx)
	require.NoError(t, err)
	require.True(t, valid)
}

func TestSessionStoreGetReturnsNilWhenEmpty(t *testing.T) {
	store := NewSessionStore(newMemoryKV())

	data, err := store.Get(context.Background())
	require.NoError(t, err)
	require.Nil(t, data)
}

func TestSessionStoreExpiresLazily(t *testing.T) {
	kv := newMemoryKV()
	store := NewSessionStore(kv)
	ctx := context.Background()

	now := time.Now()
	store.now = func() time.Time { return now }
	require.NoError(t, store.Store(ctx, models.UserSession{UID: "user-1"}, models.AuthTokens{}))

	// A read just inside the window still returns the record.
	store.now = func() time.Time { return now.Add(7*24*time.Hour - time.Minute) }
	data, err := store.Get(ctx)
	require.NoError(t, err)
	require.NotNil(t, data)

	// Past the window the record is treated as absent and deleted.
	store.now = func() time.Time { return now.Add(8 * 24 * time.Hour) }
	data, err = store.Get(ctx)
	require.NoError(t, err)
	require.Nil(t, data)
	require.Zero(t, kv.len())
}

func TestSessionStoreDropsCorruptRecords(t *testing.T) {
	kv := newMemoryKV()
	store := NewSessionStore(kv)
	ctx := context.Background()

	require.NoError(t, kv.Set(ctx, "campusguard:auth:session", []byte("not json"), 0))

	data, err := store.Get(ctx)
	require.NoError(t, err)
	require.Nil(t, data)
	require.Zero(t, kv.len())
}

func TestSessionStoreClearIsIdempotent(t *testing.T) {
	store := NewSessionStore(newMemoryKV())
	ctx := context.Background()

	require.NoError(t, store.Store(ctx, models.UserSession{UID: "user-1"}, models.AuthTokens{}))
	require.NoError(t, store.Clear(ctx))
	require.NoError(t, store.Clear(ctx))

	valid, err := store.HasValid(ctx)
	require.NoError(t, err)
	require.False(t, valid)
}
