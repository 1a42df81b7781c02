package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/google/uuid"
	_ "github.com/lib/pq"

	"newsreview/internal/domain"
	"newsreview/internal/ports"
)

// Schema (managed outside this package):
//
//	articles(id text primary key, headline text, content text, url text unique,
//	         publisher text, author text, published_at timestamptz,
//	         review_quota int default 5, review_count int default 0,
//	         active bool default true)
//	reviewers(id text primary key, active bool default true)
//	human_reviews(id uuid primary key, reviewer_id text, article_id text,
//	              political int, intensity int, sensational int, threat int,
//	              group_conflict int, emotions text, highlight text,
//	              created_at timestamptz default now(),
//	              unique (reviewer_id, article_id))
//
// The unique pair index closes the read-check-then-write race: a second
// insert for the same (reviewer, article) becomes a benign conflict.

// PostgresRepository backs all three repository ports with a
// Supabase-style Postgres database.
type PostgresRepository struct {
	db      *sql.DB
	builder sq.StatementBuilderType
}

var _ ports.ArticleRepository = (*PostgresRepository)(nil)
var _ ports.ReviewRepository = (*PostgresRepository)(nil)
var _ ports.ReviewerDirectory = (*PostgresRepository)(nil)

// NewPostgresRepository wires a sql.DB implementation.
func NewPostgresRepository(db *sql.DB) *PostgresRepository {
	return &PostgresRepository{
		db:      db,
		builder: sq.StatementBuilder.PlaceholderFormat(sq.Dollar),
	}
}

// Open connects to Postgres with the given DSN.
func Open(dsn string) (*sql.DB, error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("open postgres: %w", err)
	}
	return db, nil
}

// ListArticles returns the whole article collection in insertion order.
func (r *PostgresRepository) ListArticles(ctx context.Context) ([]domain.Article, error) {
	query, args, err := r.builder.
		Select("id", "headline", "content", "url", "publisher", "author",
			"published_at", "review_quota", "review_count", "active").
		From("articles").
		OrderBy("published_at", "id").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build articles query: %w", err)
	}

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("%w: query articles: %v", domain.ErrRepositoryUnavailable, err)
	}
	defer rows.Close()

	var articles []domain.Article
	for rows.Next() {
		var (
			a         domain.Article
			published sql.NullTime
		)
		if err := rows.Scan(&a.ID, &a.Headline, &a.Content, &a.URL, &a.Publisher,
			&a.Author, &published, &a.ReviewQuota, &a.ReviewCount, &a.Active); err != nil {
			return nil, fmt.Errorf("scan article: %w", err)
		}
		if published.Valid {
			a.PublishedAt = published.Time
		}
		articles = append(articles, a)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: iterate articles: %v", domain.ErrRepositoryUnavailable, err)
	}

	return articles, nil
}

// GetArticle fetches one article by identifier.
func (r *PostgresRepository) GetArticle(ctx context.Context, id string) (domain.Article, error) {
	query, args, err := r.builder.
		Select("id", "headline", "content", "url", "publisher", "author",
			"published_at", "review_quota", "review_count", "active").
		From("articles").
		Where(sq.Eq{"id": id}).
		ToSql()
	if err != nil {
		return domain.Article{}, fmt.Errorf("build article query: %w", err)
	}

	var (
		a         domain.Article
		published sql.NullTime
	)
	err = r.db.QueryRowContext(ctx, query, args...).Scan(&a.ID, &a.Headline, &a.Content,
		&a.URL, &a.Publisher, &a.Author, &published, &a.ReviewQuota, &a.ReviewCount, &a.Active)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.Article{}, fmt.Errorf("article %s not found", id)
	}
	if err != nil {
		return domain.Article{}, fmt.Errorf("%w: query article: %v", domain.ErrRepositoryUnavailable, err)
	}
	if published.Valid {
		a.PublishedAt = published.Time
	}

	return a, nil
}

// ArticleExistsByURL checks the ingestion dedup key.
func (r *PostgresRepository) ArticleExistsByURL(ctx context.Context, url string) (bool, error) {
	query, args, err := r.builder.
		Select("1").
		From("articles").
		Where(sq.Eq{"url": url}).
		Limit(1).
		ToSql()
	if err != nil {
		return false, fmt.Errorf("build url query: %w", err)
	}

	var one int
	err = r.db.QueryRowContext(ctx, query, args...).Scan(&one)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("%w: lookup url: %v", domain.ErrRepositoryUnavailable, err)
	}
	return true, nil
}

// AppendArticle stores one raw ingested article.
func (r *PostgresRepository) AppendArticle(ctx context.Context, article domain.Article) error {
	id := article.ID
	if id == "" {
		id = uuid.NewString()
	}

	query, args, err := r.builder.
		Insert("articles").
		Columns("id", "headline", "content", "url", "publisher", "author",
			"published_at", "review_quota", "active").
		Values(id, article.Headline, article.Content, article.URL, article.Publisher,
			article.Author, article.PublishedAt, article.Quota(), article.Active).
		Suffix("ON CONFLICT (url) DO NOTHING").
		ToSql()
	if err != nil {
		return fmt.Errorf("build article insert: %w", err)
	}

	if _, err := r.db.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("%w: insert article: %v", domain.ErrRepositoryUnavailable, err)
	}
	return nil
}

// IncrementReviewCount bumps the stored counter for sequential mode.
func (r *PostgresRepository) IncrementReviewCount(ctx context.Context, id string) error {
	query, args, err := r.builder.
		Update("articles").
		Set("review_count", sq.Expr("review_count + 1")).
		Where(sq.Eq{"id": id}).
		ToSql()
	if err != nil {
		return fmt.Errorf("build counter update: %w", err)
	}

	if _, err := r.db.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("%w: increment review count: %v", domain.ErrRepositoryUnavailable, err)
	}
	return nil
}

// ListReviews returns the full review history.
func (r *PostgresRepository) ListReviews(ctx context.Context) ([]domain.Review, error) {
	return r.listReviews(ctx, sq.Eq{})
}

// ListReviewsByReviewer filters the history on the normalized identifier.
// Identifiers are stored normalized, so plain equality suffices.
func (r *PostgresRepository) ListReviewsByReviewer(ctx context.Context, reviewerID string) ([]domain.Review, error) {
	return r.listReviews(ctx, sq.Eq{"reviewer_id": reviewerID})
}

func (r *PostgresRepository) listReviews(ctx context.Context, where sq.Eq) ([]domain.Review, error) {
	builder := r.builder.
		Select("id", "reviewer_id", "article_id", "political", "intensity",
			"sensational", "threat", "group_conflict", "emotions", "highlight", "created_at").
		From("human_reviews").
		OrderBy("created_at")
	if len(where) > 0 {
		builder = builder.Where(where)
	}

	query, args, err := builder.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build reviews query: %w", err)
	}

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("%w: query reviews: %v", domain.ErrRepositoryUnavailable, err)
	}
	defer rows.Close()

	var reviews []domain.Review
	for rows.Next() {
		var (
			rev     domain.Review
			created time.Time
		)
		if err := rows.Scan(&rev.ID, &rev.ReviewerID, &rev.ArticleID,
			&rev.Ratings.Political, &rev.Ratings.Intensity, &rev.Ratings.Sensational,
			&rev.Ratings.Threat, &rev.Ratings.GroupConflict,
			&rev.Emotions, &rev.Highlight, &created); err != nil {
			return nil, fmt.Errorf("scan review: %w", err)
		}
		rev.CreatedAt = created
		reviews = append(reviews, rev)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: iterate reviews: %v", domain.ErrRepositoryUnavailable, err)
	}

	return reviews, nil
}

// AppendReview inserts one immutable review; created_at is assigned by the
// database. A uniqueness conflict on (reviewer_id, article_id) reports
// ErrAlreadyReviewed so callers can absorb the duplicate as a no-op.
func (r *PostgresRepository) AppendReview(ctx context.Context, review domain.Review) error {
	id := review.ID
	if id == "" {
		id = uuid.NewString()
	}

	query, args, err := r.builder.
		Insert("human_reviews").
		Columns("id", "reviewer_id", "article_id", "political", "intensity",
			"sensational", "threat", "group_conflict", "emotions", "highlight").
		Values(id, review.ReviewerID, review.ArticleID,
			review.Ratings.Political, review.Ratings.Intensity, review.Ratings.Sensational,
			review.Ratings.Threat, review.Ratings.GroupConflict,
			review.Emotions, review.Highlight).
		Suffix("ON CONFLICT (reviewer_id, article_id) DO NOTHING").
		ToSql()
	if err != nil {
		return fmt.Errorf("build review insert: %w", err)
	}

	result, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("%w: insert review: %v", domain.ErrRepositoryUnavailable, err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("%w: insert review result: %v", domain.ErrRepositoryUnavailable, err)
	}
	if affected == 0 {
		return domain.ErrAlreadyReviewed
	}

	return nil
}

// ListReviewers reads the allow-list table.
func (r *PostgresRepository) ListReviewers(ctx context.Context) ([]domain.Reviewer, error) {
	query, args, err := r.builder.
		Select("id", "active").
		From("reviewers").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build reviewers query: %w", err)
	}

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("%w: query reviewers: %v", domain.ErrRepositoryUnavailable, err)
	}
	defer rows.Close()

	var reviewers []domain.Reviewer
	for rows.Next() {
		var reviewer domain.Reviewer
		if err := rows.Scan(&reviewer.ID, &reviewer.Active); err != nil {
			return nil, fmt.Errorf("scan reviewer: %w", err)
		}
		reviewers = append(reviewers, reviewer)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: iterate reviewers: %v", domain.ErrRepositoryUnavailable, err)
	}

	return reviewers, nil
}
