package ports

import (
	"context"
	"time"

	"newsreview/internal/domain"
)

// ArticleRepository exposes the article collection of the record store.
// Listing returns the full collection: adapters must follow pagination
// tokens until the store reports no more pages.
type ArticleRepository interface {
	ListArticles(ctx context.Context) ([]domain.Article, error)
	GetArticle(ctx context.Context, id string) (domain.Article, error)
	ArticleExistsByURL(ctx context.Context, url string) (bool, error)
	AppendArticle(ctx context.Context, article domain.Article) error

	// IncrementReviewCount bumps the stored per-article counter.
	// Only the sequential assignment mode calls it.
	IncrementReviewCount(ctx context.Context, id string) error
}

// ReviewRepository appends and lists immutable review records. The store
// assigns creation timestamps on append.
type ReviewRepository interface {
	ListReviews(ctx context.Context) ([]domain.Review, error)
	ListReviewsByReviewer(ctx context.Context, reviewerID string) ([]domain.Review, error)
	AppendReview(ctx context.Context, review domain.Review) error
}

// ReviewerDirectory reads the externally maintained allow-list.
type ReviewerDirectory interface {
	ListReviewers(ctx context.Context) ([]domain.Reviewer, error)
}

// FeedSource pulls current entries from one publisher feed.
type FeedSource interface {
	Fetch(ctx context.Context, publisher, feedURL string) ([]domain.FeedItem, error)
}

// Extractor downloads an article page and returns its cleaned full text
// plus any detected author byline.
type Extractor interface {
	Extract(ctx context.Context, pageURL, publisher string) (content, author string, err error)
}

// Scheduler controls when the ingestion job executes.
type Scheduler interface {
	Start(ctx context.Context, job func(time.Time)) error
	Stop(ctx context.Context) error
}
