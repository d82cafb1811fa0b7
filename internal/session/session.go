// Package session is the client-side identity of a logged-in operator.
// It replaces the token/role/user trio the browser kept in local storage.
package session

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

type Role string

const (
	RoleNurse    Role = "nurse"
	RoleDelivery Role = "delivery"
	RoleManager  Role = "manager"
)

func (r Role) Valid() bool {
	switch r {
	case RoleNurse, RoleDelivery, RoleManager:
		return true
	}
	return false
}

type User struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Email string `json:"email"`
}

var ErrNoSession = errors.New("not logged in")

type Session struct {
	Token     string    `json:"token"`
	Role      Role      `json:"role"`
	User      User      `json:"user"`
	ExpiresAt time.Time `json:"expires_at"`
}

// New builds a Session from a login response. The expiry is read from the
// token payload without verifying the signature; the server does that.
func New(token string, role Role, user User) (*Session, error) {
	claims := jwt.RegisteredClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(token, &claims); err != nil {
		return nil, fmt.Errorf("parse token: %w", err)
	}
	if claims.ExpiresAt == nil {
		return nil, errors.New("token has no expiry")
	}
	return &Session{
		Token:     token,
		Role:      role,
		User:      user,
		ExpiresAt: claims.ExpiresAt.Time,
	}, nil
}

// Valid reports whether the token is still unexpired at now.
func (s *Session) Valid(now time.Time) bool {
	return s != nil && s.Token != "" && now.Before(s.ExpiresAt)
}

func (s *Session) HasRole(roles ...Role) bool {
	return s != nil && slices.Contains(roles, s.Role)
}

// Require returns ErrNoSession for a missing or expired session and an error
// when the role is not among roles (any role when roles is empty).
func (s *Session) Require(now time.Time, roles ...Role) error {
	if !s.Valid(now) {
		return ErrNoSession
	}
	if len(roles) > 0 && !s.HasRole(roles...) {
		return fmt.Errorf("role %q is not allowed here", s.Role)
	}
	return nil
}

// DefaultPath is where the CLI keeps the current session.
func DefaultPath() (string, error) {
	dir, err := os.UserConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "clinicctl", "session.json"), nil
}

func (s *Session) Save(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return err
	}
	b, err := json.MarshalIndent(s, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, b, 0o600)
}

func Load(path string) (*Session, error) {
	b, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return nil, ErrNoSession
	}
	if err != nil {
		return nil, err
	}
	var s Session
	if err := json.Unmarshal(b, &s); err != nil {
		return nil, fmt.Errorf("decode session: %w", err)
	}
	return &s, nil
}

// Clear removes the stored session, as logout does.
func Clear(path string) error {
	err := os.Remove(path)
	if errors.Is(err, os.ErrNotExist) {
		return nil
	}
	return err
}
