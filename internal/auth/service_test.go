package auth

import (
	"context"
	"errors"
	"testing"

	"kakeibo/internal/core"
)

// fakeUserRepo is an in-memory stand-in for the storage layer.
type fakeUserRepo struct {
	users  map[string]*core.User
	nextID int64
}

func newFakeUserRepo() *fakeUserRepo {
	return &fakeUserRepo{users: make(map[string]*core.User), nextID: 1}
}

func (r *fakeUserRepo) CreateUser(ctx context.Context, email, passwordHash string) (int64, error) {
	if _, ok := r.users[email]; ok {
		return 0, core.ErrDuplicateAccount
	}
	id := r.nextID
	r.nextID++
	r.users[email] = &core.User{ID: id, Email: email, PasswordHash: passwordHash}
	return id, nil
}

func (r *fakeUserRepo) GetUserByEmail(ctx context.Context, email string) (*core.User, error) {
	u, ok := r.users[email]
	if !ok {
		return nil, core.ErrNotFound
	}
	return u, nil
}

func TestRegisterAndAuthenticate(t *testing.T) {
	ctx := context.Background()
	svc := NewService(newFakeUserRepo())

	id, err := svc.Register(ctx, "a@example.com", "secret")
	if err != nil {
		t.Fatalf("Register: %v", err)
	}

	got, err := svc.Authenticate(ctx, "a@example.com", "secret")
	if err != nil {
		t.Fatalf("Authenticate: %v", err)
	}
	if got != id {
		t.Fatalf("Authenticate = %d, want %d", got, id)
	}
}

func TestRegisterDistinctEmailsDistinctIDs(t *testing.T) {
	ctx := context.Background()
	svc := NewService(newFakeUserRepo())

	id1, err := svc.Register(ctx, "a@example.com", "pw")
	if err != nil {
		t.Fatalf("Register a: %v", err)
	}
	id2, err := svc.Register(ctx, "b@example.com", "pw")
	if err != nil {
		t.Fatalf("Register b: %v", err)
	}
	if id1 == id2 {
		t.Fatalf("distinct emails share id %d", id1)
	}
}

func TestRegisterDuplicate(t *testing.T) {
	ctx := context.Background()
	svc := NewService(newFakeUserRepo())

	if _, err := svc.Register(ctx, "a@example.com", "pw"); err != nil {
		t.Fatalf("first Register: %v", err)
	}
	if _, err := svc.Register(ctx, "a@example.com", "other"); !errors.Is(err, core.ErrDuplicateAccount) {
		t.Fatalf("second Register err = %v, want ErrDuplicateAccount", err)
	}
}

func TestAuthenticateRejectionsAreIndistinguishable(t *testing.T) {
	ctx := context.Background()
	svc := NewService(newFakeUserRepo())

	if _, err := svc.Register(ctx, "a@example.com", "right"); err != nil {
		t.Fatalf("Register: %v", err)
	}

	_, wrongPw := svc.Authenticate(ctx, "a@example.com", "wrong")
	_, unknown := svc.Authenticate(ctx, "who@example.com", "anything")

	if !errors.Is(wrongPw, core.ErrInvalidCredentials) {
		t.Fatalf("wrong password err = %v", wrongPw)
	}
	if !errors.Is(unknown, core.ErrInvalidCredentials) {
		t.Fatalf("unknown email err = %v", unknown)
	}
	if wrongPw.Error() != unknown.Error() {
		t.Fatalf("rejections differ: %q vs %q", wrongPw, unknown)
	}
}

func TestAuthenticateEmptyInput(t *testing.T) {
	ctx := context.Background()
	svc := NewService(newFakeUserRepo())

	for _, tc := range []struct{ email, password string }{
		{"", "pw"},
		{"a@example.com", ""},
		{"", ""},
	} {
		if _, err := svc.Authenticate(ctx, tc.email, tc.password); !errors.Is(err, core.ErrInvalidCredentials) {
			t.Errorf("Authenticate(%q, %q) err = %v, want ErrInvalidCredentials", tc.email, tc.password, err)
		}
	}
}

func TestPasswordIsStoredHashed(t *testing.T) {
	ctx := context.Background()
	repo := newFakeUserRepo()
	svc := NewService(repo)

	if _, err := svc.Register(ctx, "a@example.com", "plaintext"); err != nil {
		t.Fatalf("Register: %v", err)
	}
	stored := repo.users["a@example.com"].PasswordHash
	if stored == "plaintext" || stored == "" {
		t.Fatalf("password stored in the clear: %q", stored)
	}
}
