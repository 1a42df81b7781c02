package identity

import (
	"context"
	"errors"
	"testing"
	"time"

	"newsreview/internal/domain"
)

type stubDirectory struct {
	reviewers []domain.Reviewer
	err       error
	calls     int
}

func (s *stubDirectory) ListReviewers(ctx context.Context) ([]domain.Reviewer, error) {
	s.calls++
	if s.err != nil {
		return nil, s.err
	}
	return s.reviewers, nil
}

func TestNormalize(t *testing.T) {
	t.Parallel()

	cases := map[string]string{
		"Alice":      "alice",
		"  alice  ":  "alice",
		"\tALICE \n": "alice",
		"   ":        "",
		"":           "",
	}

	for input, want := range cases {
		if got := Normalize(input); got != want {
			t.Fatalf("Normalize(%q) = %q, want %q", input, got, want)
		}
	}

	if Normalize(" Alice ") != Normalize("aLiCe") {
		t.Fatal("case/whitespace variants must normalize identically")
	}
}

func TestVerify(t *testing.T) {
	t.Parallel()

	dir := &stubDirectory{reviewers: []domain.Reviewer{
		{ID: " Alice ", Active: true},
		{ID: "bob", Active: false},
	}}
	v := NewVerifier(dir, time.Minute, nil)
	ctx := context.Background()

	got, err := v.Verify(ctx, "ALICE")
	if err != nil {
		t.Fatalf("Verify(ALICE) error: %v", err)
	}
	if got != "alice" {
		t.Fatalf("expected normalized id alice, got %q", got)
	}

	if _, err := v.Verify(ctx, "bob"); !errors.Is(err, domain.ErrIdentityRejected) {
		t.Fatalf("inactive reviewer: expected ErrIdentityRejected, got %v", err)
	}

	if _, err := v.Verify(ctx, "mallory"); !errors.Is(err, domain.ErrIdentityRejected) {
		t.Fatalf("unknown reviewer: expected ErrIdentityRejected, got %v", err)
	}

	if _, err := v.Verify(ctx, "   "); !errors.Is(err, domain.ErrNoIdentifier) {
		t.Fatalf("blank id: expected ErrNoIdentifier, got %v", err)
	}
}

func TestVerifyCachesAllowList(t *testing.T) {
	t.Parallel()

	dir := &stubDirectory{reviewers: []domain.Reviewer{{ID: "alice", Active: true}}}
	v := NewVerifier(dir, time.Minute, nil)

	now := time.Date(2026, time.August, 1, 12, 0, 0, 0, time.UTC)
	v.now = func() time.Time { return now }

	ctx := context.Background()
	for i := 0; i < 3; i++ {
		if _, err := v.Verify(ctx, "alice"); err != nil {
			t.Fatalf("Verify error: %v", err)
		}
	}
	if dir.calls != 1 {
		t.Fatalf("expected a single directory fetch within TTL, got %d", dir.calls)
	}

	now = now.Add(2 * time.Minute)
	if _, err := v.Verify(ctx, "alice"); err != nil {
		t.Fatalf("Verify after TTL error: %v", err)
	}
	if dir.calls != 2 {
		t.Fatalf("expected refresh after TTL, got %d fetches", dir.calls)
	}
}

func TestVerifyServesStaleListOnDirectoryFailure(t *testing.T) {
	t.Parallel()

	dir := &stubDirectory{reviewers: []domain.Reviewer{{ID: "alice", Active: true}}}
	v := NewVerifier(dir, time.Minute, nil)

	now := time.Date(2026, time.August, 1, 12, 0, 0, 0, time.UTC)
	v.now = func() time.Time { return now }

	ctx := context.Background()
	if _, err := v.Verify(ctx, "alice"); err != nil {
		t.Fatalf("warm-up Verify error: %v", err)
	}

	dir.err = errors.New("boom")
	now = now.Add(2 * time.Minute)

	if _, err := v.Verify(ctx, "alice"); err != nil {
		t.Fatalf("expected stale allow-list to serve the lookup, got %v", err)
	}
}
