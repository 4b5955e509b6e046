// Package auth registers users and verifies their passwords with bcrypt.
package auth

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"finman/internal/core"

	"golang.org/x/crypto/bcrypt"
)

// Users is the slice of the user table auth needs.
type Users interface {
	CreateUser(ctx context.Context, u core.User) (core.User, error)
	FindUserByEmail(ctx context.Context, email string) (core.User, error)
}

// Credentials hashes and checks passwords.
type Credentials struct {
	cost      int
	dummyHash []byte
}

func NewCredentials(cost int) (*Credentials, error) {
	if cost < bcrypt.MinCost || cost > bcrypt.MaxCost {
		return nil, fmt.Errorf("bcrypt cost %d out of range", cost)
	}
	// Compared against when the email is unknown, so both paths do bcrypt work
	dummy, err := bcrypt.GenerateFromPassword([]byte("finman-dummy-password"), cost)
	if err != nil {
		return nil, fmt.Errorf("prepare dummy hash: %w", err)
	}
	return &Credentials{cost: cost, dummyHash: dummy}, nil
}

// Register validates the input, hashes the password and inserts the user.
func (c *Credentials) Register(ctx context.Context, users Users, name, email, password string) (core.User, error) {
	name = strings.TrimSpace(name)
	email = core.NormalizeEmail(email)
	if err := core.ValidateSignup(name, email, password); err != nil {
		return core.User{}, err
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), c.cost)
	if err != nil {
		return core.User{}, fmt.Errorf("hash password: %w", err)
	}

	u, err := users.CreateUser(ctx, core.User{Name: name, Email: email, PasswordHash: string(hash)})
	if err != nil {
		return core.User{}, err
	}
	return u, nil
}

// Authenticate returns core.ErrInvalidCredentials for an unknown email and
// for a wrong password alike.
func (c *Credentials) Authenticate(ctx context.Context, users Users, email, password string) (core.User, error) {
	u, err := users.FindUserByEmail(ctx, core.NormalizeEmail(email))
	if errors.Is(err, core.ErrUserNotFound) {
		_ = bcrypt.CompareHashAndPassword(c.dummyHash, []byte(password))
		return core.User{}, core.ErrInvalidCredentials
	}
	if err != nil {
		return core.User{}, fmt.Errorf("look up user: %w", err)
	}

	if err := bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(password)); err != nil {
		return core.User{}, core.ErrInvalidCredentials
	}
	return u, nil
}
