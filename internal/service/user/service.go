package user

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"golang.org/x/crypto/bcrypt"

	"merchantry/internal/domain"
	tokenrepo "merchantry/internal/repository/token"
	userrepo "merchantry/internal/repository/user"
)

var (
	// ErrInvalidCredentials is returned when email/password do not match.
	ErrInvalidCredentials = errors.New("invalid credentials")
	// ErrInvalidToken indicates the provided token could not be validated.
	ErrInvalidToken = errors.New("invalid token")
)

// Service handles registration, login and token-based identity.
type Service struct {
	repo        userrepo.Repository
	carts       cartCreator
	tokens      *tokenManager
	accessTTL   time.Duration
	refreshTTL  time.Duration
	passwordMin int
}

// cartCreator provisions the per-user cart on registration.
type cartCreator interface {
	Create(ctx context.Context) (*domain.Cart, error)
}

func New(repo userrepo.Repository, tokens tokenrepo.Repository, carts cartCreator) *Service {
	return &Service{
		repo:        repo,
		carts:       carts,
		tokens:      newTokenManager(tokens),
		accessTTL:   48 * time.Hour,
		refreshTTL:  30 * 24 * time.Hour,
		passwordMin: 8,
	}
}

// RegisterInput captures fields expected by the register endpoint.
type RegisterInput struct {
	Email     string `json:"email"`
	Password  string `json:"password"`
	FirstName string `json:"firstName"`
	LastName  string `json:"lastName"`
	Age       int    `json:"age"`
}

// Register creates a user with a hashed password and a fresh empty cart.
// Returns domain.ErrAlreadyExists when the email is taken.
func (s *Service) Register(ctx context.Context, in RegisterInput) (*domain.User, error) {
	email := strings.TrimSpace(strings.ToLower(in.Email))
	if email == "" {
		return nil, errors.New("email required")
	}
	if strings.TrimSpace(in.FirstName) == "" || strings.TrimSpace(in.LastName) == "" {
		return nil, errors.New("first and last name required")
	}
	password := strings.TrimSpace(in.Password)
	if len(password) < s.passwordMin {
		return nil, fmt.Errorf("password must be at least %d characters", s.passwordMin)
	}
	hashed, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return nil, err
	}

	cart, err := s.carts.Create(ctx)
	if err != nil {
		return nil, fmt.Errorf("provision cart: %w", err)
	}

	return s.repo.Create(ctx, domain.User{
		Email:        email,
		PasswordHash: string(hashed),
		FirstName:    strings.TrimSpace(in.FirstName),
		LastName:     strings.TrimSpace(in.LastName),
		Age:          in.Age,
		Role:         domain.RoleUser,
		CartID:       cart.ID,
	})
}

// Login validates credentials and returns issued tokens plus the user.
func (s *Service) Login(ctx context.Context, email, password string) (*domain.User, string, string, error) {
	email = strings.TrimSpace(strings.ToLower(email))
	u, err := s.repo.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, "", "", ErrInvalidCredentials
		}
		return nil, "", "", err
	}
	if err := bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(strings.TrimSpace(password))); err != nil {
		return nil, "", "", ErrInvalidCredentials
	}

	access, err := s.tokens.Issue(ctx, u.ID, "access", s.accessTTL)
	if err != nil {
		return nil, "", "", err
	}
	refresh, err := s.tokens.Issue(ctx, u.ID, "refresh", s.refreshTTL)
	if err != nil {
		return nil, "", "", err
	}
	return u, access, refresh, nil
}

// LookupByToken returns the user bound to a valid access token.
func (s *Service) LookupByToken(ctx context.Context, token string) (*domain.User, error) {
	meta, ok := s.tokens.Validate(ctx, token)
	if !ok {
		return nil, ErrInvalidToken
	}
	u, err := s.repo.GetByID(ctx, meta.UserID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, ErrInvalidToken
		}
		return nil, err
	}
	return u, nil
}

// List returns all users. Callers gate this behind the admin role.
func (s *Service) List(ctx context.Context) ([]domain.User, error) {
	return s.repo.List(ctx)
}

// AccessTTLSeconds exposes the access token lifetime in seconds.
func (s *Service) AccessTTLSeconds() int {
	return int(s.accessTTL.Seconds())
}
