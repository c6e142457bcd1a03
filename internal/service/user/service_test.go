package user

import (
	"context"
	"errors"
	"testing"
	"time"

	"golang.org/x/crypto/bcrypt"

	"merchantry/internal/domain"
	tokenrepo "merchantry/internal/repository/token"
)

type stubUserRepo struct {
	created     *domain.User
	createErr   error
	lastCreate  domain.User
	byEmail     *domain.User
	byEmailErr  error
	byID        *domain.User
	byIDErr     error
	listedUsers []domain.User
}

func (s *stubUserRepo) Create(_ context.Context, u domain.User) (*domain.User, error) {
	s.lastCreate = u
	if s.createErr != nil {
		return nil, s.createErr
	}
	if s.created != nil {
		return s.created, nil
	}
	u.ID = "u1"
	return &u, nil
}

func (s *stubUserRepo) GetByID(_ context.Context, _ string) (*domain.User, error) {
	return s.byID, s.byIDErr
}

func (s *stubUserRepo) GetByEmail(_ context.Context, _ string) (*domain.User, error) {
	return s.byEmail, s.byEmailErr
}

func (s *stubUserRepo) List(_ context.Context) ([]domain.User, error) {
	return s.listedUsers, nil
}

type stubTokenRepo struct {
	tokens    map[string]tokenrepo.Token
	createErr error
	deleted   []string
}

func newStubTokenRepo() *stubTokenRepo {
	return &stubTokenRepo{tokens: map[string]tokenrepo.Token{}}
}

func (s *stubTokenRepo) Create(_ context.Context, t tokenrepo.Token) error {
	if s.createErr != nil {
		return s.createErr
	}
	if _, ok := s.tokens[t.Token]; ok {
		return domain.ErrAlreadyExists
	}
	s.tokens[t.Token] = t
	return nil
}

func (s *stubTokenRepo) Get(_ context.Context, token string) (*tokenrepo.Token, error) {
	t, ok := s.tokens[token]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return &t, nil
}

func (s *stubTokenRepo) Delete(_ context.Context, token string) error {
	delete(s.tokens, token)
	s.deleted = append(s.deleted, token)
	return nil
}

type stubCartCreator struct {
	cart *domain.Cart
	err  error
}

func (s *stubCartCreator) Create(_ context.Context) (*domain.Cart, error) {
	return s.cart, s.err
}

func newTestService(repo *stubUserRepo, tokens *stubTokenRepo, carts *stubCartCreator) *Service {
	if carts == nil {
		carts = &stubCartCreator{cart: &domain.Cart{ID: "cart-1"}}
	}
	return New(repo, tokens, carts)
}

func TestRegisterValidation(t *testing.T) {
	svc := newTestService(&stubUserRepo{}, newStubTokenRepo(), nil)

	cases := []struct {
		name string
		in   RegisterInput
	}{
		{"missing email", RegisterInput{Password: "longenough", FirstName: "A", LastName: "B"}},
		{"missing names", RegisterInput{Email: "a@b.c", Password: "longenough"}},
		{"short password", RegisterInput{Email: "a@b.c", Password: "short", FirstName: "A", LastName: "B"}},
	}
	for _, tc := range cases {
		if _, err := svc.Register(context.Background(), tc.in); err == nil {
			t.Fatalf("%s: expected validation error", tc.name)
		}
	}
}

func TestRegisterHappyPath(t *testing.T) {
	repo := &stubUserRepo{}
	svc := newTestService(repo, newStubTokenRepo(), &stubCartCreator{cart: &domain.Cart{ID: "cart-9"}})

	got, err := svc.Register(context.Background(), RegisterInput{
		Email:     "  Alice@Example.COM ",
		Password:  "supersecret",
		FirstName: "Alice",
		LastName:  "Smith",
		Age:       30,
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got.ID != "u1" {
		t.Fatalf("unexpected user: %+v", got)
	}
	if repo.lastCreate.Email != "alice@example.com" {
		t.Fatalf("expected normalized email, got %q", repo.lastCreate.Email)
	}
	if repo.lastCreate.Role != domain.RoleUser {
		t.Fatalf("expected user role, got %q", repo.lastCreate.Role)
	}
	if repo.lastCreate.CartID != "cart-9" {
		t.Fatalf("expected provisioned cart id, got %q", repo.lastCreate.CartID)
	}
	if repo.lastCreate.PasswordHash == "supersecret" || repo.lastCreate.PasswordHash == "" {
		t.Fatalf("expected password to be hashed")
	}
	if err := bcrypt.CompareHashAndPassword([]byte(repo.lastCreate.PasswordHash), []byte("supersecret")); err != nil {
		t.Fatalf("hash does not match password: %v", err)
	}
}

func TestRegisterCartProvisionFailure(t *testing.T) {
	svc := newTestService(&stubUserRepo{}, newStubTokenRepo(), &stubCartCreator{err: errors.New("db down")})

	_, err := svc.Register(context.Background(), RegisterInput{
		Email: "a@b.c", Password: "longenough", FirstName: "A", LastName: "B",
	})
	if err == nil {
		t.Fatalf("expected cart provisioning error")
	}
}

func TestRegisterDuplicateEmail(t *testing.T) {
	repo := &stubUserRepo{createErr: domain.ErrAlreadyExists}
	svc := newTestService(repo, newStubTokenRepo(), nil)

	_, err := svc.Register(context.Background(), RegisterInput{
		Email: "a@b.c", Password: "longenough", FirstName: "A", LastName: "B",
	})
	if !errors.Is(err, domain.ErrAlreadyExists) {
		t.Fatalf("expected already exists, got %v", err)
	}
}

func hashFor(t *testing.T, password string) string {
	t.Helper()
	h, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.MinCost)
	if err != nil {
		t.Fatalf("hash password: %v", err)
	}
	return string(h)
}

func TestLoginHappyPath(t *testing.T) {
	repo := &stubUserRepo{byEmail: &domain.User{ID: "u1", Email: "a@b.c", PasswordHash: hashFor(t, "supersecret")}}
	tokens := newStubTokenRepo()
	svc := newTestService(repo, tokens, nil)

	u, access, refresh, err := svc.Login(context.Background(), "A@B.C", "supersecret")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if u.ID != "u1" {
		t.Fatalf("unexpected user: %+v", u)
	}
	if access == "" || refresh == "" || access == refresh {
		t.Fatalf("expected distinct non-empty tokens")
	}
	if tokens.tokens[access].Kind != "access" || tokens.tokens[refresh].Kind != "refresh" {
		t.Fatalf("expected access and refresh tokens to be persisted")
	}
}

func TestLoginWrongPassword(t *testing.T) {
	repo := &stubUserRepo{byEmail: &domain.User{ID: "u1", PasswordHash: hashFor(t, "supersecret")}}
	svc := newTestService(repo, newStubTokenRepo(), nil)

	_, _, _, err := svc.Login(context.Background(), "a@b.c", "wrong")
	if !errors.Is(err, ErrInvalidCredentials) {
		t.Fatalf("expected invalid credentials, got %v", err)
	}
}

func TestLoginUnknownEmail(t *testing.T) {
	repo := &stubUserRepo{byEmailErr: domain.ErrNotFound}
	svc := newTestService(repo, newStubTokenRepo(), nil)

	_, _, _, err := svc.Login(context.Background(), "nobody@b.c", "supersecret")
	if !errors.Is(err, ErrInvalidCredentials) {
		t.Fatalf("expected invalid credentials, got %v", err)
	}
}

func TestLookupByToken(t *testing.T) {
	repo := &stubUserRepo{byID: &domain.User{ID: "u1", Email: "a@b.c"}}
	tokens := newStubTokenRepo()
	tokens.tokens["good"] = tokenrepo.Token{Token: "good", UserID: "u1", Kind: "access", ExpiresAt: time.Now().Add(time.Hour)}
	svc := newTestService(repo, tokens, nil)

	u, err := svc.LookupByToken(context.Background(), "good")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if u.ID != "u1" {
		t.Fatalf("unexpected user: %+v", u)
	}

	if _, err := svc.LookupByToken(context.Background(), "unknown"); !errors.Is(err, ErrInvalidToken) {
		t.Fatalf("expected invalid token, got %v", err)
	}
}

func TestLookupByTokenRejectsRefreshKind(t *testing.T) {
	repo := &stubUserRepo{byID: &domain.User{ID: "u1"}}
	tokens := newStubTokenRepo()
	tokens.tokens["refresh"] = tokenrepo.Token{Token: "refresh", UserID: "u1", Kind: "refresh", ExpiresAt: time.Now().Add(time.Hour)}
	svc := newTestService(repo, tokens, nil)

	if _, err := svc.LookupByToken(context.Background(), "refresh"); !errors.Is(err, ErrInvalidToken) {
		t.Fatalf("expected invalid token for refresh kind, got %v", err)
	}
}

func TestLookupByTokenExpiredDeletesToken(t *testing.T) {
	repo := &stubUserRepo{byID: &domain.User{ID: "u1"}}
	tokens := newStubTokenRepo()
	tokens.tokens["stale"] = tokenrepo.Token{Token: "stale", UserID: "u1", Kind: "access", ExpiresAt: time.Now().Add(-time.Minute)}
	svc := newTestService(repo, tokens, nil)

	if _, err := svc.LookupByToken(context.Background(), "stale"); !errors.Is(err, ErrInvalidToken) {
		t.Fatalf("expected invalid token for expired token, got %v", err)
	}
	if len(tokens.deleted) != 1 || tokens.deleted[0] != "stale" {
		t.Fatalf("expected expired token to be deleted, got %v", tokens.deleted)
	}
}

func TestTokenManagerRetriesOnCollision(t *testing.T) {
	tokens := newStubTokenRepo()
	mgr := newTokenManager(tokens)

	first, err := mgr.Issue(context.Background(), "u1", "access", time.Hour)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	second, err := mgr.Issue(context.Background(), "u1", "access", time.Hour)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if first == second {
		t.Fatalf("expected distinct tokens")
	}
}
