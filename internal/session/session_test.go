package session

import (
	"context"
	"errors"
	"testing"
	"time"

	"golang.org/x/crypto/bcrypt"
)

type fakeClock struct {
	t time.Time
}

func (c *fakeClock) Now() time.Time          { return c.t }
func (c *fakeClock) Advance(d time.Duration) { c.t = c.t.Add(d) }

func newTestService(t *testing.T) (*Service, *MemoryStore, *fakeClock) {
	t.Helper()
	store := NewMemoryStore()
	clock := &fakeClock{t: time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)}
	svc := NewService(store, NewPlainMatcher("let-me-in"), 24*time.Hour)
	svc.now = clock.Now
	return svc, store, clock
}

func TestCreateIsUnauthenticated(t *testing.T) {
	svc, _, _ := newTestService(t)
	ctx := context.Background()

	sess, err := svc.Create(ctx)
	if err != nil {
		t.Fatalf("Create() error = %v", err)
	}
	if len(sess.ID) != 64 {
		t.Errorf("session id length = %d, want 64 hex chars", len(sess.ID))
	}
	if sess.Authenticated {
		t.Error("new session must not be authenticated")
	}
	if svc.IsValid(ctx, sess.ID) {
		t.Error("IsValid() = true for unauthenticated session")
	}
}

func TestCreateGeneratesUniqueIDs(t *testing.T) {
	svc, _, _ := newTestService(t)
	seen := make(map[string]bool)
	for i := 0; i < 100; i++ {
		sess, err := svc.Create(context.Background())
		if err != nil {
			t.Fatal(err)
		}
		if seen[sess.ID] {
			t.Fatalf("duplicate id %s", sess.ID)
		}
		seen[sess.ID] = true
	}
}

func TestAuthenticate(t *testing.T) {
	svc, _, _ := newTestService(t)
	ctx := context.Background()
	sess, _ := svc.Create(ctx)

	ok, err := svc.Authenticate(ctx, sess.ID, "wrong")
	if err != nil || ok {
		t.Fatalf("Authenticate(wrong) = %v, %v", ok, err)
	}
	if svc.IsValid(ctx, sess.ID) {
		t.Fatal("session valid after wrong code")
	}

	ok, err = svc.Authenticate(ctx, sess.ID, "let-me-in")
	if err != nil || !ok {
		t.Fatalf("Authenticate(correct) = %v, %v", ok, err)
	}
	if !svc.IsValid(ctx, sess.ID) {
		t.Fatal("session invalid after correct code")
	}

	// A later wrong attempt does not revoke an authenticated session.
	if ok, _ := svc.Authenticate(ctx, sess.ID, "wrong"); ok {
		t.Fatal("wrong code reported success")
	}
	if !svc.IsValid(ctx, sess.ID) {
		t.Fatal("authenticated session revoked by wrong code")
	}
}

func TestAuthenticateUnknownSession(t *testing.T) {
	svc, _, _ := newTestService(t)

	ok, err := svc.Authenticate(context.Background(), "does-not-exist", "let-me-in")
	if err != nil || ok {
		t.Fatalf("Authenticate(unknown) = %v, %v", ok, err)
	}
}

func TestExpiryIsSlidingAndPurged(t *testing.T) {
	svc, store, clock := newTestService(t)
	ctx := context.Background()
	sess, _ := svc.Create(ctx)
	svc.Authenticate(ctx, sess.ID, "let-me-in")

	// Activity within the window extends it.
	clock.Advance(20 * time.Hour)
	if !svc.IsValid(ctx, sess.ID) {
		t.Fatal("session should be valid at 20h")
	}
	clock.Advance(20 * time.Hour)
	if !svc.IsValid(ctx, sess.ID) {
		t.Fatal("sliding expiry should keep session valid at 40h")
	}

	clock.Advance(24*time.Hour + time.Second)
	if svc.IsValid(ctx, sess.ID) {
		t.Fatal("session should be expired")
	}
	if _, err := store.Get(ctx, sess.ID); !errors.Is(err, ErrNotFound) {
		t.Errorf("expired session not purged: %v", err)
	}
}

func TestInvalidate(t *testing.T) {
	svc, _, _ := newTestService(t)
	ctx := context.Background()
	sess, _ := svc.Create(ctx)
	svc.Authenticate(ctx, sess.ID, "let-me-in")

	if err := svc.Invalidate(ctx, sess.ID); err != nil {
		t.Fatalf("Invalidate() error = %v", err)
	}
	if svc.IsValid(ctx, sess.ID) {
		t.Fatal("session valid after Invalidate")
	}
	if err := svc.Invalidate(ctx, sess.ID); err != nil {
		t.Fatalf("second Invalidate() error = %v", err)
	}
	if err := svc.Invalidate(ctx, ""); err != nil {
		t.Fatalf("Invalidate(\"\") error = %v", err)
	}
}

func TestEmptyIDIsNeverValid(t *testing.T) {
	svc, _, _ := newTestService(t)
	if svc.IsValid(context.Background(), "") {
		t.Fatal("empty id reported valid")
	}
}

func TestMatchers(t *testing.T) {
	plain := NewPlainMatcher("abc123")
	if !plain.Match("abc123") || plain.Match("abc124") || plain.Match("") {
		t.Error("plain matcher mismatch")
	}
	if NewPlainMatcher("").Match("") {
		t.Error("empty configured code must never match")
	}

	hash, err := bcrypt.GenerateFromPassword([]byte("abc123"), bcrypt.MinCost)
	if err != nil {
		t.Fatal(err)
	}
	hashed := NewMatcher("ignored", string(hash))
	if !hashed.Match("abc123") || hashed.Match("ignored") || hashed.Match("") {
		t.Error("bcrypt matcher mismatch")
	}
}

func TestOpenStoreRejectsUnknownKind(t *testing.T) {
	if _, err := OpenStore("redis", ""); err == nil {
		t.Fatal("expected error")
	}
	store, err := OpenStore("memory", "")
	if err != nil {
		t.Fatal(err)
	}
	if _, ok := store.(*MemoryStore); !ok {
		t.Errorf("OpenStore(memory) = %T", store)
	}
}

func TestExists(t *testing.T) {
	svc, _, clock := newTestService(t)
	ctx := context.Background()
	sess, _ := svc.Create(ctx)

	if !svc.Exists(ctx, sess.ID) {
		t.Fatal("new session should exist")
	}
	if svc.Exists(ctx, "nope") {
		t.Fatal("unknown session reported as existing")
	}
	clock.Advance(25 * time.Hour)
	if svc.Exists(ctx, sess.ID) {
		t.Fatal("expired session reported as existing")
	}
}
