package session

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nissyi-gh/remind/internal/model"
	"github.com/nissyi-gh/remind/internal/store"
)

var now = time.Date(2026, 3, 10, 9, 0, 0, 0, time.UTC)

func sign(t *testing.T, userID int, exp time.Time) string {
	t.Helper()
	tok, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"user_id": userID,
		"exp":     jwt.NewNumericDate(exp),
	}).SignedString([]byte("k"))
	require.NoError(t, err)
	return tok
}

func memStore(t *testing.T) *store.Store {
	t.Helper()
	s, err := store.Open(":memory:", "")
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func TestNewStartsLoggedOut(t *testing.T) {
	s, err := New(memStore(t), WithClock(func() time.Time { return now }))
	require.NoError(t, err)
	assert.False(t, s.Authenticated())
	assert.Empty(t, s.Token())
}

func TestEstablishPersistsAcrossRestarts(t *testing.T) {
	kv := memStore(t)
	clock := WithClock(func() time.Time { return now })
	s, err := New(kv, clock)
	require.NoError(t, err)

	token := sign(t, 7, now.Add(time.Hour))
	require.NoError(t, s.Establish(model.AuthToken{Access: token, User: model.User{ID: 7, Username: "ada"}}))
	assert.True(t, s.Authenticated())
	assert.Equal(t, now, s.Since())

	restored, err := New(kv, clock)
	require.NoError(t, err)
	assert.Equal(t, token, restored.Token())
	assert.Equal(t, "ada", restored.User().Username)
	// the store stamps writes with the wall clock
	assert.WithinDuration(t, time.Now(), restored.Since(), time.Minute)

	raw, ok, err := kv.Get(userKey)
	require.NoError(t, err)
	require.True(t, ok)
	var u model.User
	require.NoError(t, json.Unmarshal([]byte(raw), &u))
	assert.Equal(t, 7, u.ID)
}

func TestExpiredTokenIsDiscarded(t *testing.T) {
	kv := memStore(t)
	require.NoError(t, kv.Set(tokenKey, sign(t, 7, now.Add(-time.Minute))))
	require.NoError(t, kv.Set(userKey, `{"id":7}`))

	s, err := New(kv, WithClock(func() time.Time { return now }))
	require.NoError(t, err)
	assert.False(t, s.Authenticated())
	_, ok, err := kv.Get(tokenKey)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestGarbageTokenIsDiscarded(t *testing.T) {
	kv := memStore(t)
	require.NoError(t, kv.Set(tokenKey, "not-a-jwt"))

	s, err := New(kv)
	require.NoError(t, err)
	assert.Empty(t, s.Token())
}

func TestUserIDFallsBackToClaims(t *testing.T) {
	s, err := New(memStore(t), WithClock(func() time.Time { return now }))
	require.NoError(t, err)
	require.NoError(t, s.Establish(model.AuthToken{Access: sign(t, 12, now.Add(time.Hour))}))
	assert.Equal(t, 12, s.User().ID)
}

func TestTeardownClearsAndRunsHooks(t *testing.T) {
	kv := memStore(t)
	s, err := New(kv, WithClock(func() time.Time { return now }))
	require.NoError(t, err)
	require.NoError(t, s.Establish(model.AuthToken{Access: sign(t, 1, now.Add(time.Hour)), User: model.User{ID: 1}}))

	redirected := 0
	s.OnTeardown(func() { redirected++ })
	s.Teardown()

	assert.Equal(t, 1, redirected)
	assert.False(t, s.Authenticated())
	assert.Equal(t, model.User{}, s.User())
	assert.True(t, s.Since().IsZero())
	_, ok, err := kv.Get(tokenKey)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestEstablishRejectsEmptyToken(t *testing.T) {
	s, err := New(memStore(t))
	require.NoError(t, err)
	assert.ErrorIs(t, s.Establish(model.AuthToken{}), ErrNotAuthenticated)
}

func TestParseClaims(t *testing.T) {
	exp := now.Add(time.Hour)
	c, err := ParseClaims(sign(t, 3, exp))
	require.NoError(t, err)
	assert.Equal(t, 3, c.UserID)
	assert.True(t, exp.Equal(c.ExpiresAt))

	_, err = ParseClaims("a.b")
	assert.Error(t, err)
}
