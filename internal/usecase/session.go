package usecase

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"newsreview/internal/assignment"
	"newsreview/internal/domain"
	"newsreview/internal/identity"
	"newsreview/internal/leaderboard"
	"newsreview/internal/metrics"
	"newsreview/internal/ports"
	"newsreview/internal/review"
)

// Session is the explicit per-reviewer state: the reviewed-article set as
// this session has observed it, plus the currently held assignment. All
// core operations take the session as a parameter; there is no ambient
// state.
type Session struct {
	ReviewerID string

	mu       sync.Mutex
	reviewed map[string]struct{}
	current  *domain.Article
}

// SubmissionInput carries one completed questionnaire.
type SubmissionInput struct {
	ArticleID string
	Ratings   domain.Ratings
	Emotions  string
	Highlight string
}

// ServiceDeps wires the review core into the session service.
type ServiceDeps struct {
	Articles  ports.ArticleRepository
	Reviews   ports.ReviewRepository
	Verifier  *identity.Verifier
	Engine    *assignment.Engine
	Submitter *review.Submitter
	Logger    *slog.Logger
}

// Service orchestrates identity, assignment, submission, and progress for
// reviewer sessions. One session per reviewer at a time; operations within
// a session are serialized by its mutex, sessions of different reviewers
// never contend.
type Service struct {
	articles  ports.ArticleRepository
	reviews   ports.ReviewRepository
	verifier  *identity.Verifier
	engine    *assignment.Engine
	submitter *review.Submitter
	logger    *slog.Logger

	mu       sync.Mutex
	sessions map[string]*Session
}

// NewService constructs the orchestration component.
func NewService(deps ServiceDeps) *Service {
	return &Service{
		articles:  deps.Articles,
		reviews:   deps.Reviews,
		verifier:  deps.Verifier,
		engine:    deps.Engine,
		submitter: deps.Submitter,
		logger:    deps.Logger,
		sessions:  map[string]*Session{},
	}
}

// Start verifies the reviewer identifier, loads the reviewer's full review
// history, and returns the session keyed by the normalized identifier. A
// second Start for the same reviewer returns the existing session with its
// reviewed set refreshed from the store.
func (s *Service) Start(ctx context.Context, reviewerID string) (*Session, error) {
	normalized, err := s.verifier.Verify(ctx, reviewerID)
	if err != nil {
		return nil, err
	}

	history, err := s.reviews.ListReviewsByReviewer(ctx, normalized)
	if err != nil {
		return nil, fmt.Errorf("load review history: %w", err)
	}

	s.mu.Lock()
	sess, ok := s.sessions[normalized]
	if !ok {
		sess = &Session{ReviewerID: normalized, reviewed: map[string]struct{}{}}
		s.sessions[normalized] = sess
	}
	s.mu.Unlock()

	sess.mu.Lock()
	for _, rev := range history {
		sess.reviewed[rev.ArticleID] = struct{}{}
	}
	sess.mu.Unlock()

	if s.logger != nil {
		s.logger.Info("session started", "reviewer", normalized, "history", len(history))
	}

	return sess, nil
}

// Resolve returns a previously started session by its normalized reviewer
// identifier.
func (s *Service) Resolve(sessionID string) (*Session, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	sess, ok := s.sessions[identity.Normalize(sessionID)]
	if !ok {
		return nil, domain.ErrUnknownSession
	}
	return sess, nil
}

// NextArticle returns the session's held assignment, drawing a fresh one
// from the unreviewed pool if none is held. ErrQueueExhausted is the
// terminal "all done" state, not a failure.
func (s *Service) NextArticle(ctx context.Context, sess *Session) (domain.Article, error) {
	sess.mu.Lock()
	defer sess.mu.Unlock()
	return s.next(ctx, sess)
}

// Skip discards the held assignment and draws again from the same
// candidate set. Nothing is persisted: with a single remaining candidate
// the same article may come back.
func (s *Service) Skip(ctx context.Context, sess *Session) (domain.Article, error) {
	sess.mu.Lock()
	defer sess.mu.Unlock()

	sess.current = nil
	return s.next(ctx, sess)
}

func (s *Service) next(ctx context.Context, sess *Session) (domain.Article, error) {
	if sess.current != nil {
		return *sess.current, nil
	}

	pool, err := s.articles.ListArticles(ctx)
	if err != nil {
		return domain.Article{}, fmt.Errorf("list articles: %w", err)
	}

	article, err := s.engine.Next(pool, sess.reviewed)
	if err != nil {
		return domain.Article{}, err
	}

	sess.current = &article
	metrics.AssignmentsServed.Inc()
	return article, nil
}

// Submit validates and persists the completed questionnaire. The reviewed
// set is updated only after the write is acknowledged, so the session's
// next assignment is guaranteed to exclude this article. A uniqueness
// conflict from the store means another session of the same reviewer got
// there first; it is absorbed as a benign no-op.
func (s *Service) Submit(ctx context.Context, sess *Session, input SubmissionInput) error {
	sess.mu.Lock()
	defer sess.mu.Unlock()

	err := s.submitter.Submit(ctx, domain.Review{
		ReviewerID: sess.ReviewerID,
		ArticleID:  input.ArticleID,
		Ratings:    input.Ratings,
		Emotions:   input.Emotions,
		Highlight:  input.Highlight,
	})
	if err != nil && !errors.Is(err, domain.ErrAlreadyReviewed) {
		if errors.Is(err, domain.ErrValidationFailed) {
			metrics.ReviewsRejected.Inc()
		}
		return err
	}

	// An absorbed duplicate stored nothing, so it is not an accepted review.
	if err == nil {
		metrics.ReviewsAccepted.Inc()
	}
	sess.reviewed[input.ArticleID] = struct{}{}
	if sess.current != nil && sess.current.ID == input.ArticleID {
		sess.current = nil
	}

	return nil
}

// Progress reports the session's position against the current pool:
// lifetime reviewed count, remaining assignable articles, and the active
// pool size.
func (s *Service) Progress(ctx context.Context, sess *Session) (domain.Progress, error) {
	sess.mu.Lock()
	defer sess.mu.Unlock()

	pool, err := s.articles.ListArticles(ctx)
	if err != nil {
		return domain.Progress{}, fmt.Errorf("list articles: %w", err)
	}

	total := 0
	for _, article := range pool {
		if article.Active {
			total++
		}
	}

	return domain.Progress{
		Reviewed:  len(sess.reviewed),
		Remaining: len(s.engine.Candidates(pool, sess.reviewed)),
		Total:     total,
	}, nil
}

// Leaderboard recomputes the ranking from the full review history and
// returns the top n entries (all of them when n <= 0).
func (s *Service) Leaderboard(ctx context.Context, n int) ([]domain.LeaderboardEntry, error) {
	history, err := s.reviews.ListReviews(ctx)
	if err != nil {
		return nil, fmt.Errorf("list reviews: %w", err)
	}

	entries := leaderboard.Compute(history)
	if n > 0 && len(entries) > n {
		entries = entries[:n]
	}
	return entries, nil
}

// HistoricalCount reports a reviewer's lifetime review total, independent
// of the current article pool.
func (s *Service) HistoricalCount(ctx context.Context, reviewerID string) (int, error) {
	history, err := s.reviews.ListReviews(ctx)
	if err != nil {
		return 0, fmt.Errorf("list reviews: %w", err)
	}
	return leaderboard.HistoricalCount(history, reviewerID), nil
}
