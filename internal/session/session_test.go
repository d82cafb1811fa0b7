package session

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func signedToken(t *testing.T, exp time.Time) string {
	t.Helper()
	tok, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.RegisteredClaims{
		Subject:   "u1",
		ExpiresAt: jwt.NewNumericDate(exp),
	}).SignedString([]byte("any-key"))
	require.NoError(t, err)
	return tok
}

func TestNew_ReadsExpiryFromToken(t *testing.T) {
	exp := time.Now().Add(2 * time.Hour).Truncate(time.Second)
	s, err := New(signedToken(t, exp), RoleNurse, User{ID: "u1", Name: "Dilnoza"})
	require.NoError(t, err)

	assert.True(t, s.ExpiresAt.Equal(exp))
	assert.True(t, s.Valid(time.Now()))
	assert.False(t, s.Valid(exp.Add(time.Second)))
}

func TestNew_RejectsGarbage(t *testing.T) {
	_, err := New("abc.def", RoleNurse, User{})
	assert.Error(t, err)
}

func TestRequire(t *testing.T) {
	now := time.Now()
	s, err := New(signedToken(t, now.Add(time.Hour)), RoleDelivery, User{ID: "u2"})
	require.NoError(t, err)

	assert.NoError(t, s.Require(now))
	assert.NoError(t, s.Require(now, RoleDelivery, RoleManager))
	assert.Error(t, s.Require(now, RoleNurse))
	assert.ErrorIs(t, s.Require(now.Add(2*time.Hour), RoleDelivery), ErrNoSession)

	var missing *Session
	assert.ErrorIs(t, missing.Require(now), ErrNoSession)
	assert.False(t, missing.HasRole(RoleNurse))
}

func TestSaveLoadClear(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "session.json")

	_, err := Load(path)
	assert.ErrorIs(t, err, ErrNoSession)

	s, err := New(signedToken(t, time.Now().Add(time.Hour)), RoleManager, User{ID: "u3", Email: "m@clinic.uz"})
	require.NoError(t, err)
	require.NoError(t, s.Save(path))

	got, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, s.Token, got.Token)
	assert.Equal(t, RoleManager, got.Role)
	assert.Equal(t, "m@clinic.uz", got.User.Email)

	require.NoError(t, Clear(path))
	require.NoError(t, Clear(path))
	_, err = Load(path)
	assert.ErrorIs(t, err, ErrNoSession)
}
