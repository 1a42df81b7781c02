package airtable

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"newsreview/internal/domain"
	"newsreview/internal/ports"
)

var _ ports.ArticleRepository = (*Client)(nil)

type articleFields struct {
	Headline    string    `json:"Headline,omitempty"`
	Content     string    `json:"Content,omitempty"`
	URL         string    `json:"URL,omitempty"`
	Author      string    `json:"Author,omitempty"`
	Publisher   string    `json:"Publisher Name,omitempty"`
	PublishedAt time.Time `json:"Publication Date & Time"`
	ReviewCount int       `json:"Review Count,omitempty"`
	MaxReviews  int       `json:"Max Reviews,omitempty"`
	Processed   bool      `json:"Processed"`

	// Absent checkbox means the article never left the queue.
	Active *bool `json:"Active,omitempty"`
}

func (f articleFields) toDomain(rec record) domain.Article {
	active := true
	if f.Active != nil {
		active = *f.Active
	}

	return domain.Article{
		ID:          rec.ID,
		Headline:    f.Headline,
		Content:     f.Content,
		URL:         f.URL,
		Author:      f.Author,
		Publisher:   f.Publisher,
		PublishedAt: f.PublishedAt,
		ReviewCount: f.ReviewCount,
		ReviewQuota: f.MaxReviews,
		Active:      active,
	}
}

// ListArticles returns the whole article collection, following pagination.
func (c *Client) ListArticles(ctx context.Context) ([]domain.Article, error) {
	records, err := c.listRecords(ctx, c.articlesTable, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: list articles: %v", domain.ErrRepositoryUnavailable, err)
	}

	articles := make([]domain.Article, 0, len(records))
	for _, rec := range records {
		var fields articleFields
		if len(rec.Fields) > 0 {
			if err := json.Unmarshal(rec.Fields, &fields); err != nil {
				return nil, fmt.Errorf("%w: decode article %s: %v", domain.ErrRepositoryUnavailable, rec.ID, err)
			}
		}
		articles = append(articles, fields.toDomain(rec))
	}
	return articles, nil
}

// GetArticle fetches one article record by its store identifier. An
// unknown identifier is a not-found error, not a store outage.
func (c *Client) GetArticle(ctx context.Context, id string) (domain.Article, error) {
	var rec record
	if err := c.getJSON(ctx, c.tableURL(c.articlesTable)+"/"+url.PathEscape(id), &rec); err != nil {
		var apiErr *apiError
		if errors.As(err, &apiErr) && apiErr.status == http.StatusNotFound {
			return domain.Article{}, fmt.Errorf("article %s not found", id)
		}
		return domain.Article{}, fmt.Errorf("%w: get article %s: %v", domain.ErrRepositoryUnavailable, id, err)
	}

	var fields articleFields
	if len(rec.Fields) > 0 {
		if err := json.Unmarshal(rec.Fields, &fields); err != nil {
			return domain.Article{}, fmt.Errorf("%w: decode article %s: %v", domain.ErrRepositoryUnavailable, id, err)
		}
	}
	return fields.toDomain(rec), nil
}

// ArticleExistsByURL checks the ingestion dedup key with a filter formula,
// mirroring how the producer historically queried the store.
func (c *Client) ArticleExistsByURL(ctx context.Context, articleURL string) (bool, error) {
	params := url.Values{}
	params.Set("filterByFormula", fmt.Sprintf("{URL} = '%s'", escapeFormulaString(articleURL)))
	params.Set("maxRecords", "1")

	records, err := c.listRecords(ctx, c.articlesTable, params)
	if err != nil {
		return false, fmt.Errorf("%w: lookup url: %v", domain.ErrRepositoryUnavailable, err)
	}
	return len(records) > 0, nil
}

// AppendArticle stores one raw ingested article.
func (c *Client) AppendArticle(ctx context.Context, article domain.Article) error {
	payload := map[string]any{"fields": articleFields{
		Headline:    article.Headline,
		Content:     article.Content,
		URL:         article.URL,
		Author:      article.Author,
		Publisher:   article.Publisher,
		PublishedAt: article.PublishedAt,
		Processed:   false,
	}}

	if _, err := c.send(ctx, http.MethodPost, c.tableURL(c.articlesTable), payload, nil); err != nil {
		return fmt.Errorf("%w: append article: %v", domain.ErrRepositoryUnavailable, err)
	}
	return nil
}

// IncrementReviewCount bumps the stored counter for sequential mode. The
// read-modify-write matches the original behavior; the counter is advisory
// quota accounting, not a consistency anchor.
func (c *Client) IncrementReviewCount(ctx context.Context, id string) error {
	article, err := c.GetArticle(ctx, id)
	if err != nil {
		return err
	}

	payload := map[string]any{"fields": map[string]any{
		"Review Count": article.ReviewCount + 1,
	}}

	if _, err := c.send(ctx, http.MethodPatch, c.tableURL(c.articlesTable)+"/"+url.PathEscape(id), payload, nil); err != nil {
		return fmt.Errorf("%w: increment review count: %v", domain.ErrRepositoryUnavailable, err)
	}
	return nil
}
