package authpw

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"

	"golang.org/x/crypto/bcrypt"

	"pagebuilder/api/internal/store"
)

// mockUserStore is a mock implementation of UserStore for testing
type mockUserStore struct {
	users  map[string]store.User
	nextID int64
	err    error
}

func newMockUserStore() *mockUserStore {
	return &mockUserStore{users: make(map[string]store.User)}
}

func (m *mockUserStore) GetUserByEmail(_ context.Context, email string) (store.User, error) {
	if m.err != nil {
		return store.User{}, m.err
	}
	if user, ok := m.users[email]; ok {
		return user, nil
	}
	return store.User{}, fmt.Errorf("get user by email: %w", store.ErrNotFound)
}

func (m *mockUserStore) CreateUser(_ context.Context, email, passwordHash string) (store.User, error) {
	if _, ok := m.users[email]; ok {
		return store.User{}, store.ErrDuplicate
	}
	m.nextID++
	user := store.User{ID: m.nextID, Email: email, PasswordHash: passwordHash}
	m.users[email] = user
	return user, nil
}

func newTestService(m *mockUserStore) *Service {
	return NewService(m).WithCost(bcrypt.MinCost)
}

func TestSignUpAndSignIn(t *testing.T) {
	m := newMockUserStore()
	svc := newTestService(m)
	ctx := context.Background()

	user, err := svc.SignUp(ctx, SignUpRequest{Email: "ada@example.com", FirstPassword: "hunter22", SecondPassword: "hunter22"})
	if err != nil {
		t.Fatalf("SignUp failed: %v", err)
	}
	if user.ID == 0 || user.Email != "ada@example.com" {
		t.Fatalf("unexpected user: %+v", user)
	}
	if user.PasswordHash == "hunter22" {
		t.Fatal("password must be hashed")
	}

	signedIn, err := svc.SignIn(ctx, "ada@example.com", "hunter22")
	if err != nil {
		t.Fatalf("SignIn failed: %v", err)
	}
	if signedIn.ID != user.ID {
		t.Errorf("expected user %d, got %d", user.ID, signedIn.ID)
	}
}

func TestSignUpValidation(t *testing.T) {
	cases := []struct {
		name string
		req  SignUpRequest
		want error
	}{
		{"mismatch", SignUpRequest{Email: "a@example.com", FirstPassword: "one", SecondPassword: "two"}, ErrPasswordMismatch},
		{"empty password", SignUpRequest{Email: "a@example.com"}, ErrEmptyPassword},
		{"missing email", SignUpRequest{FirstPassword: "pw", SecondPassword: "pw"}, ErrInvalidEmail},
		{"malformed email", SignUpRequest{Email: "not-an-email", FirstPassword: "pw", SecondPassword: "pw"}, ErrInvalidEmail},
		{"display name", SignUpRequest{Email: "Ada <a@example.com>", FirstPassword: "pw", SecondPassword: "pw"}, ErrInvalidEmail},
		{"password too long", SignUpRequest{Email: "a@example.com", FirstPassword: strings.Repeat("p", 73), SecondPassword: strings.Repeat("p", 73)}, ErrPasswordTooLong},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := newTestService(newMockUserStore()).SignUp(context.Background(), tc.req)
			if !errors.Is(err, tc.want) {
				t.Fatalf("expected %v, got %v", tc.want, err)
			}
		})
	}
}

func TestSignUpAcceptsLongestHashablePassword(t *testing.T) {
	password := strings.Repeat("p", 72)
	svc := newTestService(newMockUserStore())
	if _, err := svc.SignUp(context.Background(), SignUpRequest{Email: "a@example.com", FirstPassword: password, SecondPassword: password}); err != nil {
		t.Fatalf("SignUp failed: %v", err)
	}
	if _, err := svc.SignIn(context.Background(), "a@example.com", password); err != nil {
		t.Fatalf("SignIn failed: %v", err)
	}
}

func TestSignUpMismatchWinsOverOtherErrors(t *testing.T) {
	_, err := newTestService(newMockUserStore()).SignUp(context.Background(), SignUpRequest{Email: "bad", FirstPassword: "", SecondPassword: "x"})
	if !errors.Is(err, ErrPasswordMismatch) {
		t.Fatalf("expected ErrPasswordMismatch, got %v", err)
	}
}

func TestSignUpDuplicateEmail(t *testing.T) {
	m := newMockUserStore()
	svc := newTestService(m)
	req := SignUpRequest{Email: "ada@example.com", FirstPassword: "pw", SecondPassword: "pw"}

	if _, err := svc.SignUp(context.Background(), req); err != nil {
		t.Fatalf("first SignUp failed: %v", err)
	}
	if _, err := svc.SignUp(context.Background(), req); !errors.Is(err, ErrEmailTaken) {
		t.Fatalf("expected ErrEmailTaken, got %v", err)
	}
}

func TestSignUpStorageFailure(t *testing.T) {
	m := newMockUserStore()
	m.err = errors.New("connection refused")
	_, err := newTestService(m).SignUp(context.Background(), SignUpRequest{Email: "a@example.com", FirstPassword: "pw", SecondPassword: "pw"})
	if err == nil || errors.Is(err, ErrEmailTaken) {
		t.Fatalf("expected storage error, got %v", err)
	}
}

func TestSignInRejectsBadCredentials(t *testing.T) {
	m := newMockUserStore()
	svc := newTestService(m)
	ctx := context.Background()
	if _, err := svc.SignUp(ctx, SignUpRequest{Email: "ada@example.com", FirstPassword: "right", SecondPassword: "right"}); err != nil {
		t.Fatalf("SignUp failed: %v", err)
	}

	for _, tc := range []struct{ email, password string }{
		{"ada@example.com", "wrong"},
		{"nobody@example.com", "right"},
		{"", "right"},
		{"ada@example.com", ""},
	} {
		if _, err := svc.SignIn(ctx, tc.email, tc.password); !errors.Is(err, ErrInvalidCredentials) {
			t.Errorf("SignIn(%q, %q) = %v, want ErrInvalidCredentials", tc.email, tc.password, err)
		}
	}
}
