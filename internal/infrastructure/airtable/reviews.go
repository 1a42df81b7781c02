package airtable

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"

	"newsreview/internal/domain"
	"newsreview/internal/identity"
	"newsreview/internal/ports"
)

var _ ports.ReviewRepository = (*Client)(nil)
var _ ports.ReviewerDirectory = (*Client)(nil)

type reviewFields struct {
	ReviewerID    string `json:"Reviewer ID"`
	ArticleID     string `json:"Article ID"`
	Political     int    `json:"Political"`
	Intensity     int    `json:"Intensity"`
	Sensational   int    `json:"Sensational"`
	Threat        int    `json:"Threat"`
	GroupConflict int    `json:"GroupConflict"`
	Emotions      string `json:"Emotions,omitempty"`
	Highlight     string `json:"Highlight,omitempty"`
}

func (f reviewFields) toDomain(rec record) domain.Review {
	return domain.Review{
		ID:         rec.ID,
		ReviewerID: f.ReviewerID,
		ArticleID:  f.ArticleID,
		Ratings: domain.Ratings{
			Political:     f.Political,
			Intensity:     f.Intensity,
			Sensational:   f.Sensational,
			Threat:        f.Threat,
			GroupConflict: f.GroupConflict,
		},
		Emotions:  f.Emotions,
		Highlight: f.Highlight,
		CreatedAt: rec.CreatedTime,
	}
}

func (c *Client) decodeReviews(records []record) ([]domain.Review, error) {
	reviews := make([]domain.Review, 0, len(records))
	for _, rec := range records {
		var fields reviewFields
		if len(rec.Fields) > 0 {
			if err := json.Unmarshal(rec.Fields, &fields); err != nil {
				return nil, fmt.Errorf("%w: decode review %s: %v", domain.ErrRepositoryUnavailable, rec.ID, err)
			}
		}
		reviews = append(reviews, fields.toDomain(rec))
	}
	return reviews, nil
}

// ListReviews returns the full review history, following pagination.
func (c *Client) ListReviews(ctx context.Context) ([]domain.Review, error) {
	records, err := c.listRecords(ctx, c.reviewsTable, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: list reviews: %v", domain.ErrRepositoryUnavailable, err)
	}
	return c.decodeReviews(records)
}

// ListReviewsByReviewer filters the history server-side on the normalized
// reviewer identifier.
func (c *Client) ListReviewsByReviewer(ctx context.Context, reviewerID string) ([]domain.Review, error) {
	normalized := identity.Normalize(reviewerID)

	params := url.Values{}
	params.Set("filterByFormula",
		fmt.Sprintf("LOWER(TRIM({Reviewer ID})) = '%s'", escapeFormulaString(normalized)))

	records, err := c.listRecords(ctx, c.reviewsTable, params)
	if err != nil {
		return nil, fmt.Errorf("%w: list reviews by reviewer: %v", domain.ErrRepositoryUnavailable, err)
	}
	return c.decodeReviews(records)
}

// AppendReview stores one immutable review; the store assigns the creation
// timestamp. A write whose acknowledgment was lost is reported as
// ErrAmbiguousSubmission and must not be retried.
func (c *Client) AppendReview(ctx context.Context, review domain.Review) error {
	payload := map[string]any{"fields": reviewFields{
		ReviewerID:    review.ReviewerID,
		ArticleID:     review.ArticleID,
		Political:     review.Ratings.Political,
		Intensity:     review.Ratings.Intensity,
		Sensational:   review.Ratings.Sensational,
		Threat:        review.Ratings.Threat,
		GroupConflict: review.Ratings.GroupConflict,
		Emotions:      review.Emotions,
		Highlight:     review.Highlight,
	}}

	sent, err := c.send(ctx, http.MethodPost, c.tableURL(c.reviewsTable), payload, nil)
	if err != nil {
		if sent {
			return fmt.Errorf("%w: %v", domain.ErrAmbiguousSubmission, err)
		}
		return fmt.Errorf("%w: append review: %v", domain.ErrRepositoryUnavailable, err)
	}
	return nil
}

type reviewerFields struct {
	ID     string `json:"Reviewer ID"`
	Active bool   `json:"Active"`
}

// ListReviewers reads the allow-list table.
func (c *Client) ListReviewers(ctx context.Context) ([]domain.Reviewer, error) {
	records, err := c.listRecords(ctx, c.reviewersTable, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: list reviewers: %v", domain.ErrRepositoryUnavailable, err)
	}

	reviewers := make([]domain.Reviewer, 0, len(records))
	for _, rec := range records {
		var fields reviewerFields
		if len(rec.Fields) > 0 {
			if err := json.Unmarshal(rec.Fields, &fields); err != nil {
				return nil, fmt.Errorf("%w: decode reviewer %s: %v", domain.ErrRepositoryUnavailable, rec.ID, err)
			}
		}
		reviewers = append(reviewers, domain.Reviewer{ID: fields.ID, Active: fields.Active})
	}
	return reviewers, nil
}
