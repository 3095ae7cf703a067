package service

import (
	"context"
	"fmt"
	"sync"

	"invoicing-api/internal/domain"
	"invoicing-api/internal/repository"
)

// PasswordHasher hashes and compares credentials.
type PasswordHasher interface {
	Hash(plain string) (string, error)
	Compare(plain, hash string) bool
}

// TokenIssuer signs access tokens carrying the user id and email.
type TokenIssuer interface {
	Issue(userID int64, email string) (string, error)
}

// RegisterInput is the raw registration request.
type RegisterInput struct {
	Name     string
	Email    string
	Password string
}

// AuthResult is returned by successful register and login calls.
type AuthResult struct {
	User  domain.PublicUser `json:"user"`
	Token string            `json:"token"`
}

// AuthService registers users and exchanges credentials for tokens.
type AuthService interface {
	Register(ctx context.Context, in RegisterInput) (*AuthResult, error)
	Login(ctx context.Context, email, password string) (*AuthResult, error)
}

// errBadCredentials is shared by every login failure so callers cannot tell which half was wrong.
var errBadCredentials = fmt.Errorf("%w: email or password is incorrect", domain.ErrAuthentication)

// dummyPassword is hashed once per service; unknown emails are compared against it
// so a login miss costs the same as a wrong password.
const dummyPassword = "invoicing-api:no-such-user"

type authService struct {
	users  repository.UserRepository
	hasher PasswordHasher
	tokens TokenIssuer

	dummyOnce sync.Once
	dummyHash string
}

func NewAuthService(users repository.UserRepository, hasher PasswordHasher, tokens TokenIssuer) AuthService {
	return &authService{
		users:  users,
		hasher: hasher,
		tokens: tokens,
	}
}

func (s *authService) Register(ctx context.Context, in RegisterInput) (*AuthResult, error) {
	if in.Password == "" {
		return nil, fmt.Errorf("%w: password is required", domain.ErrValidation)
	}
	email, err := domain.NormalizeEmail(in.Email)
	if err != nil {
		return nil, err
	}

	existing, err := s.users.FindByEmail(ctx, email)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return nil, fmt.Errorf("%w: email %s is already registered", domain.ErrDuplicate, email)
	}

	hash, err := s.hasher.Hash(in.Password)
	if err != nil {
		return nil, err
	}
	user, err := domain.NewUser(in.Name, email, hash)
	if err != nil {
		return nil, err
	}

	created, err := s.users.Create(ctx, user)
	if err != nil {
		return nil, err
	}
	return s.issue(created)
}

func (s *authService) Login(ctx context.Context, email, password string) (*AuthResult, error) {
	email, err := domain.NormalizeEmail(email)
	if err != nil || password == "" {
		return nil, errBadCredentials
	}

	user, err := s.users.FindByEmail(ctx, email)
	if err != nil {
		return nil, err
	}
	if user == nil {
		s.hasher.Compare(password, s.missHash())
		return nil, errBadCredentials
	}
	if !s.hasher.Compare(password, user.PasswordHash) {
		return nil, errBadCredentials
	}
	return s.issue(user)
}

func (s *authService) issue(user *domain.User) (*AuthResult, error) {
	token, err := s.tokens.Issue(user.ID, user.Email)
	if err != nil {
		return nil, fmt.Errorf("issue token: %w", err)
	}
	return &AuthResult{User: user.Public(), Token: token}, nil
}

func (s *authService) missHash() string {
	s.dummyOnce.Do(func() {
		// On error the hash stays empty and Compare simply fails.
		s.dummyHash, _ = s.hasher.Hash(dummyPassword)
	})
	return s.dummyHash
}
