package identity

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"newsreview/internal/domain"
	"newsreview/internal/ports"
)

// Normalize canonicalizes a reviewer identifier: surrounding whitespace is
// stripped and the remainder lower-cased. Two identifiers that differ only
// in case or whitespace denote the same reviewer. An empty result means no
// identifier was supplied.
func Normalize(id string) string {
	return strings.ToLower(strings.TrimSpace(id))
}

// Verifier checks submitted identifiers against the externally maintained
// allow-list. Lookups are cached in-process for a short TTL to avoid a
// directory round trip on every request.
type Verifier struct {
	directory ports.ReviewerDirectory
	ttl       time.Duration
	logger    *slog.Logger
	now       func() time.Time

	mu        sync.Mutex
	active    map[string]bool
	fetchedAt time.Time
}

// NewVerifier wires the allow-list directory with a cache TTL.
func NewVerifier(directory ports.ReviewerDirectory, ttl time.Duration, logger *slog.Logger) *Verifier {
	return &Verifier{
		directory: directory,
		ttl:       ttl,
		logger:    logger,
		now:       time.Now,
	}
}

// Verify normalizes the identifier and checks it against the allow-list.
// It returns the normalized identifier on success. Absent identifiers and
// unknown/inactive ones fail with distinct error kinds so callers can show
// distinct messages.
func (v *Verifier) Verify(ctx context.Context, id string) (string, error) {
	normalized := Normalize(id)
	if normalized == "" {
		return "", domain.ErrNoIdentifier
	}

	active, err := v.allowList(ctx)
	if err != nil {
		return "", err
	}

	if !active[normalized] {
		if v.logger != nil {
			v.logger.Debug("identity rejected", "reviewer", normalized)
		}
		return "", fmt.Errorf("%w: %q", domain.ErrIdentityRejected, normalized)
	}

	return normalized, nil
}

func (v *Verifier) allowList(ctx context.Context) (map[string]bool, error) {
	v.mu.Lock()
	defer v.mu.Unlock()

	if v.active != nil && v.now().Sub(v.fetchedAt) < v.ttl {
		return v.active, nil
	}

	reviewers, err := v.directory.ListReviewers(ctx)
	if err != nil {
		// A stale allow-list beats rejecting everyone on a transient
		// directory failure.
		if v.active != nil {
			if v.logger != nil {
				v.logger.Warn("allow-list refresh failed, serving cached copy", "error", err)
			}
			return v.active, nil
		}
		return nil, fmt.Errorf("load allow-list: %w", err)
	}

	active := make(map[string]bool, len(reviewers))
	for _, r := range reviewers {
		normalized := Normalize(r.ID)
		if normalized == "" {
			continue
		}
		if r.Active {
			active[normalized] = true
		}
	}

	v.active = active
	v.fetchedAt = v.now()
	return active, nil
}
