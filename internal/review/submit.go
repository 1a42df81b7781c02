package review

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"newsreview/internal/assignment"
	"newsreview/internal/domain"
	"newsreview/internal/identity"
	"newsreview/internal/ports"
)

// Submitter validates completed answer sets and appends them to the review
// store. Reviews are immutable: there is no update or delete path.
type Submitter struct {
	articles ports.ArticleRepository
	reviews  ports.ReviewRepository
	mode     assignment.Mode
	logger   *slog.Logger
}

// NewSubmitter wires the repositories. In sequential mode a successful
// append also bumps the article's stored review counter.
func NewSubmitter(articles ports.ArticleRepository, reviews ports.ReviewRepository, mode assignment.Mode, logger *slog.Logger) *Submitter {
	return &Submitter{
		articles: articles,
		reviews:  reviews,
		mode:     mode,
		logger:   logger,
	}
}

// Submit validates and persists one review. The repository assigns the
// creation timestamp. The call returns only after the write is
// acknowledged, so callers can safely ask for their next assignment.
func (s *Submitter) Submit(ctx context.Context, rev domain.Review) error {
	rev.ReviewerID = identity.Normalize(rev.ReviewerID)
	if rev.ReviewerID == "" {
		return fmt.Errorf("%w: reviewer identifier missing", domain.ErrValidationFailed)
	}

	if rev.ArticleID == "" {
		return fmt.Errorf("%w: article identifier missing", domain.ErrValidationFailed)
	}

	if err := rev.Ratings.Validate(); err != nil {
		return err
	}

	if _, err := s.articles.GetArticle(ctx, rev.ArticleID); err != nil {
		if errors.Is(err, domain.ErrRepositoryUnavailable) {
			return err
		}
		return fmt.Errorf("%w: unknown article %q", domain.ErrValidationFailed, rev.ArticleID)
	}

	if err := s.reviews.AppendReview(ctx, rev); err != nil {
		return err
	}

	if s.logger != nil {
		s.logger.Info("review stored", "reviewer", rev.ReviewerID, "article", rev.ArticleID)
	}

	if s.mode == assignment.ModeSequential {
		if err := s.articles.IncrementReviewCount(ctx, rev.ArticleID); err != nil {
			// The review itself is durable; a lost counter bump only
			// delays quota exhaustion by one review.
			if s.logger != nil {
				s.logger.Warn("review count increment failed", "article", rev.ArticleID, "error", err)
			}
		}
	}

	return nil
}
