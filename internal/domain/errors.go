package domain

import "errors"

// Error kinds the core surfaces to callers. Adapters translate raw
// transport failures into one of these before they cross the boundary.
var (
	// ErrNoIdentifier means no reviewer identifier was supplied at all.
	// Callers show a different message than for a rejected identifier.
	ErrNoIdentifier = errors.New("no reviewer identifier supplied")

	// ErrIdentityRejected means the identifier is unknown or inactive.
	ErrIdentityRejected = errors.New("reviewer identifier unknown or inactive")

	// ErrValidationFailed means a submission carried an out-of-range
	// rating, a missing field, or an unknown article reference.
	ErrValidationFailed = errors.New("submission validation failed")

	// ErrRepositoryUnavailable wraps transient backend failures. The
	// operation did not take effect and may be retried by the caller.
	ErrRepositoryUnavailable = errors.New("repository unavailable")

	// ErrAmbiguousSubmission means a review write was sent but its
	// acknowledgment was lost. It must never be retried automatically.
	ErrAmbiguousSubmission = errors.New("submission outcome unknown")

	// ErrQueueExhausted is the terminal success state: the reviewer has
	// no unreviewed articles left. Not a failure.
	ErrQueueExhausted = errors.New("no unreviewed articles remain")

	// ErrAlreadyReviewed reports a benign uniqueness conflict on
	// (reviewer, article) at the repository boundary.
	ErrAlreadyReviewed = errors.New("article already reviewed")

	// ErrUnknownSession reports an expired or never-started session.
	ErrUnknownSession = errors.New("unknown session")
)
