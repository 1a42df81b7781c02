package domain

import "time"

// DefaultReviewQuota bounds how many reviews a single article collects
// in sequential assignment mode.
const DefaultReviewQuota = 5

// MaxContentLength caps article bodies at ingestion time.
const MaxContentLength = 100000

// Article is a news item served to reviewers. Articles are created by the
// ingestion producer and are read-only afterwards; the core never deletes
// them.
type Article struct {
	ID          string
	Headline    string
	Content     string
	URL         string
	Publisher   string
	Author      string
	PublishedAt time.Time

	// Quota accounting is only meaningful in sequential assignment mode.
	ReviewQuota int
	ReviewCount int

	// Active marks membership in the current review queue.
	Active bool
}

// Quota returns the effective review quota, falling back to the default.
func (a Article) Quota() int {
	if a.ReviewQuota <= 0 {
		return DefaultReviewQuota
	}
	return a.ReviewQuota
}

// FeedItem is one entry of a publisher's RSS/Atom feed before full-text
// extraction.
type FeedItem struct {
	Title       string
	URL         string
	PublishedAt time.Time
}
