package domain

import (
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
)

var validate = validator.New()

// User represents a registered account. PasswordHash never leaves the service layer.
type User struct {
	ID           int64
	Name         string
	Email        string
	PasswordHash string
	CreatedAt    time.Time
}

// PublicUser is the outward-facing projection of a User.
type PublicUser struct {
	ID        int64     `json:"id"`
	Name      string    `json:"name"`
	Email     string    `json:"email"`
	CreatedAt time.Time `json:"created_at"`
}

// UserPatch carries the mutable user fields.
type UserPatch struct {
	Name  *string
	Email *string
}

// NewUser validates and normalizes registration input.
func NewUser(name, email, passwordHash string) (User, error) {
	name, err := normalizeName("name", name)
	if err != nil {
		return User{}, err
	}
	email, err = NormalizeEmail(email)
	if err != nil {
		return User{}, err
	}
	if passwordHash == "" {
		return User{}, fmt.Errorf("%w: password hash is required", ErrValidation)
	}
	return User{Name: name, Email: email, PasswordHash: passwordHash}, nil
}

// NormalizeEmail trims and lower-cases email after checking its shape.
func NormalizeEmail(email string) (string, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	if err := validate.Var(email, "required,email"); err != nil {
		return "", fmt.Errorf("%w: email is invalid", ErrValidation)
	}
	return email, nil
}

// Public strips credentials from u.
func (u User) Public() PublicUser {
	return PublicUser{
		ID:        u.ID,
		Name:      u.Name,
		Email:     u.Email,
		CreatedAt: u.CreatedAt,
	}
}

// Normalize validates the patch and returns the normalized copy to persist.
func (patch UserPatch) Normalize() (UserPatch, error) {
	var out UserPatch
	if patch.Name != nil {
		name, err := normalizeName("name", *patch.Name)
		if err != nil {
			return UserPatch{}, err
		}
		out.Name = &name
	}
	if patch.Email != nil {
		email, err := NormalizeEmail(*patch.Email)
		if err != nil {
			return UserPatch{}, err
		}
		out.Email = &email
	}
	return out, nil
}
