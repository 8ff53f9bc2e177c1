package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"zestro/auth"
	"zestro/domain"
	"zestro/lifecycle"
)

const minPasswordLength = 6

type AuthService struct {
	users  UserRepository
	tokens *auth.Tokens
	cost   int
	now    func() time.Time
}

func NewAuthService(users UserRepository, tokens *auth.Tokens) *AuthService {
	return &AuthService{
		users:  users,
		tokens: tokens,
		cost:   bcrypt.DefaultCost,
		now:    time.Now,
	}
}

// WithHashCost lowers the bcrypt cost, used by tests.
func (s *AuthService) WithHashCost(cost int) *AuthService {
	s.cost = cost
	return s
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func (s *AuthService) Signup(ctx context.Context, req SignupRequest) (*AuthResult, error) {
	email := normalizeEmail(req.Email)
	name := strings.TrimSpace(req.Name)
	switch {
	case name == "":
		return nil, fmt.Errorf("%w: name is required", ErrInvalidInput)
	case email == "" || !strings.Contains(email, "@"):
		return nil, fmt.Errorf("%w: a valid email is required", ErrInvalidInput)
	case len(req.Password) < minPasswordLength:
		return nil, fmt.Errorf("%w: password must be at least %d characters", ErrInvalidInput, minPasswordLength)
	case !req.Role.Valid():
		return nil, fmt.Errorf("%w: unknown role %q", ErrInvalidInput, req.Role)
	}

	hashed, err := bcrypt.GenerateFromPassword([]byte(req.Password), s.cost)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}

	user := &domain.Identity{
		ID:        uuid.NewString(),
		Name:      name,
		Email:     email,
		Phone:     strings.TrimSpace(req.Phone),
		Role:      req.Role,
		CreatedAt: s.now().UTC(),
	}
	if err := s.users.CreateUser(ctx, user, string(hashed)); err != nil {
		return nil, err
	}
	return s.issue(user)
}

func (s *AuthService) Login(ctx context.Context, req LoginRequest) (*AuthResult, error) {
	user, hash, err := s.users.GetUserByEmail(ctx, normalizeEmail(req.Email))
	if errors.Is(err, lifecycle.ErrNotFound) {
		return nil, ErrInvalidCredentials
	}
	if err != nil {
		return nil, err
	}
	if err := bcrypt.CompareHashAndPassword([]byte(hash), []byte(req.Password)); err != nil {
		return nil, ErrInvalidCredentials
	}
	return s.issue(user)
}

func (s *AuthService) issue(user *domain.Identity) (*AuthResult, error) {
	token, err := s.tokens.Issue(user.ID, user.Role)
	if err != nil {
		return nil, fmt.Errorf("issue token: %w", err)
	}
	return &AuthResult{Token: token, User: user}, nil
}

func (s *AuthService) Me(ctx context.Context, userID string) (*domain.Identity, error) {
	return s.users.GetUser(ctx, userID)
}

func (s *AuthService) UpdateProfile(ctx context.Context, userID string, req ProfileRequest) (*domain.Identity, error) {
	user, err := s.users.GetUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	if name := strings.TrimSpace(req.Name); name != "" {
		user.Name = name
	}
	user.Phone = strings.TrimSpace(req.Phone)
	if err := s.users.UpdateUser(ctx, user); err != nil {
		return nil, err
	}
	return user, nil
}
