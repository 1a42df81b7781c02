package usecase

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"
	"unicode/utf8"

	"newsreview/internal/config"
	"newsreview/internal/domain"
)

type stubFeedSource struct {
	items map[string][]domain.FeedItem
	err   error
}

func (s *stubFeedSource) Fetch(ctx context.Context, publisher, feedURL string) ([]domain.FeedItem, error) {
	if s.err != nil {
		return nil, s.err
	}
	return s.items[publisher], nil
}

type stubExtractor struct {
	content map[string]string
	err     error
}

func (s *stubExtractor) Extract(ctx context.Context, pageURL, publisher string) (string, string, error) {
	if s.err != nil {
		return "", "", s.err
	}
	return s.content[pageURL], "Staff Reporter", nil
}

func ingestNow() time.Time {
	return time.Date(2026, time.August, 10, 12, 0, 0, 0, time.UTC)
}

func TestIngestStoresRecentEntries(t *testing.T) {
	t.Parallel()

	now := ingestNow()
	store := &memStore{}
	source := &stubFeedSource{items: map[string][]domain.FeedItem{
		"News18": {
			{Title: "Fresh", URL: "https://example.org/fresh", PublishedAt: now.Add(-time.Hour)},
			{Title: "Stale", URL: "https://example.org/stale", PublishedAt: now.Add(-48 * time.Hour)},
			{Title: "Undated", URL: "https://example.org/undated"},
		},
	}}
	extractor := &stubExtractor{content: map[string]string{
		"https://example.org/fresh": "full text of the fresh article",
		"https://example.org/stale": "should never be fetched",
	}}

	job := NewIngest(IngestDeps{
		Feeds:     []config.FeedConfig{{Publisher: "News18", URL: "https://example.org/feed"}},
		Source:    source,
		Extractor: extractor,
		Articles:  store,
		Window:    6 * time.Hour,
	})

	if err := job.Run(context.Background(), now); err != nil {
		t.Fatalf("Run error: %v", err)
	}

	if len(store.articles) != 1 {
		t.Fatalf("expected 1 stored article, got %d", len(store.articles))
	}

	got := store.articles[0]
	if got.Headline != "Fresh" || got.URL != "https://example.org/fresh" {
		t.Fatalf("unexpected stored article: %+v", got)
	}
	if got.Publisher != "News18" || got.Author != "Staff Reporter" {
		t.Fatalf("publisher/author not carried through: %+v", got)
	}
	if !got.Active {
		t.Fatal("ingested articles must join the review queue")
	}
}

func TestIngestDeduplicatesByURL(t *testing.T) {
	t.Parallel()

	now := ingestNow()
	store := &memStore{articles: []domain.Article{
		{ID: "old", URL: "https://example.org/dup", Active: true},
	}}
	source := &stubFeedSource{items: map[string][]domain.FeedItem{
		"News18": {{Title: "Dup", URL: "https://example.org/dup", PublishedAt: now.Add(-time.Hour)}},
	}}

	job := NewIngest(IngestDeps{
		Feeds:     []config.FeedConfig{{Publisher: "News18", URL: "https://example.org/feed"}},
		Source:    source,
		Extractor: &stubExtractor{},
		Articles:  store,
		Window:    6 * time.Hour,
	})

	if err := job.Run(context.Background(), now); err != nil {
		t.Fatalf("Run error: %v", err)
	}
	if len(store.articles) != 1 {
		t.Fatalf("duplicate URL must not be re-stored, got %d articles", len(store.articles))
	}
}

func TestIngestCapsContentLength(t *testing.T) {
	t.Parallel()

	now := ingestNow()
	store := &memStore{}
	source := &stubFeedSource{items: map[string][]domain.FeedItem{
		"News18": {
			{Title: "Big", URL: "https://example.org/big", PublishedAt: now.Add(-time.Hour)},
			{Title: "Hindi", URL: "https://example.org/hindi", PublishedAt: now.Add(-time.Hour)},
		},
	}}
	extractor := &stubExtractor{content: map[string]string{
		"https://example.org/big":   strings.Repeat("x", domain.MaxContentLength+500),
		"https://example.org/hindi": strings.Repeat("क", domain.MaxContentLength+500),
	}}

	job := NewIngest(IngestDeps{
		Feeds:     []config.FeedConfig{{Publisher: "News18", URL: "https://example.org/feed"}},
		Source:    source,
		Extractor: extractor,
		Articles:  store,
		Window:    6 * time.Hour,
	})

	if err := job.Run(context.Background(), now); err != nil {
		t.Fatalf("Run error: %v", err)
	}
	if len(store.articles) != 2 {
		t.Fatalf("expected 2 articles, got %d", len(store.articles))
	}

	for _, article := range store.articles {
		// The cap counts characters, so multi-byte scripts keep the full
		// budget and the cut never corrupts a rune.
		if got := utf8.RuneCountInString(article.Content); got != domain.MaxContentLength {
			t.Fatalf("%s: content must be capped at %d characters, got %d", article.URL, domain.MaxContentLength, got)
		}
		if !utf8.ValidString(article.Content) {
			t.Fatalf("%s: truncation produced invalid UTF-8", article.URL)
		}
	}
}

func TestIngestSurvivesFeedAndExtractFailures(t *testing.T) {
	t.Parallel()

	now := ingestNow()
	store := &memStore{}
	source := &stubFeedSource{items: map[string][]domain.FeedItem{
		"Broken": nil,
		"News18": {
			{Title: "NoBody", URL: "https://example.org/nobody", PublishedAt: now.Add(-time.Hour)},
			{Title: "Good", URL: "https://example.org/good", PublishedAt: now.Add(-time.Hour)},
		},
	}}
	extractor := &stubExtractor{content: map[string]string{
		"https://example.org/good": "usable body",
	}}

	job := NewIngest(IngestDeps{
		Feeds: []config.FeedConfig{
			{Publisher: "Broken", URL: "https://example.org/broken"},
			{Publisher: "News18", URL: "https://example.org/feed"},
		},
		Source:    source,
		Extractor: extractor,
		Articles:  store,
		Window:    6 * time.Hour,
	})

	if err := job.Run(context.Background(), now); err != nil {
		t.Fatalf("Run error: %v", err)
	}
	if len(store.articles) != 1 || store.articles[0].URL != "https://example.org/good" {
		t.Fatalf("expected only the good article, got %+v", store.articles)
	}
}

func TestIngestStopsOnCancel(t *testing.T) {
	t.Parallel()

	now := ingestNow()
	source := &stubFeedSource{items: map[string][]domain.FeedItem{
		"News18": {{Title: "a", URL: "https://example.org/a", PublishedAt: now.Add(-time.Hour)}},
	}}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	job := NewIngest(IngestDeps{
		Feeds:     []config.FeedConfig{{Publisher: "News18", URL: "https://example.org/feed"}},
		Source:    source,
		Extractor: &stubExtractor{},
		Articles:  &memStore{},
		Window:    6 * time.Hour,
	})

	if err := job.Run(ctx, now); !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
}
