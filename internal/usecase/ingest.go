package usecase

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"newsreview/internal/config"
	"newsreview/internal/domain"
	"newsreview/internal/metrics"
	"newsreview/internal/ports"
)

// IngestDeps wires the feed source, extractor, and article store into the
// ingestion job.
type IngestDeps struct {
	Feeds     []config.FeedConfig
	Source    ports.FeedSource
	Extractor ports.Extractor
	Articles  ports.ArticleRepository
	Window    time.Duration
	Pace      time.Duration
	Logger    *slog.Logger
}

// Ingest pulls recent entries from the configured feeds, deduplicates by
// URL, extracts full text, and appends raw article records to the store.
// Records are stored without heavy cleaning beyond the publisher strategy;
// per-item failures are logged and skipped, never fatal to the run.
type Ingest struct {
	feeds     []config.FeedConfig
	source    ports.FeedSource
	extractor ports.Extractor
	articles  ports.ArticleRepository
	window    time.Duration
	pace      time.Duration
	logger    *slog.Logger
}

// NewIngest constructs the ingestion job.
func NewIngest(deps IngestDeps) *Ingest {
	return &Ingest{
		feeds:     deps.Feeds,
		source:    deps.Source,
		extractor: deps.Extractor,
		articles:  deps.Articles,
		window:    deps.Window,
		pace:      deps.Pace,
		logger:    deps.Logger,
	}
}

// Run executes one ingestion pass against all configured feeds. Entries
// published before now-window are ignored; entries whose URL is already
// stored are skipped.
func (p *Ingest) Run(ctx context.Context, now time.Time) error {
	cutoff := now.UTC().Add(-p.window)
	stored := 0

	for _, feed := range p.feeds {
		items, err := p.source.Fetch(ctx, feed.Publisher, feed.URL)
		if err != nil {
			p.warn("feed fetch failed", "publisher", feed.Publisher, "error", err)
			continue
		}

		for _, item := range items {
			if ctx.Err() != nil {
				return ctx.Err()
			}

			if item.URL == "" || item.PublishedAt.IsZero() {
				continue
			}
			if item.PublishedAt.UTC().Before(cutoff) {
				continue
			}

			ok, err := p.ingestItem(ctx, feed.Publisher, item)
			if err != nil {
				p.warn("item skipped", "publisher", feed.Publisher, "url", item.URL, "error", err)
				continue
			}
			if !ok {
				continue
			}
			stored++
			metrics.ArticlesIngested.Inc()

			if err := p.sleep(ctx); err != nil {
				return err
			}
		}
	}

	if p.logger != nil {
		p.logger.Info("ingest pass complete", "feeds", len(p.feeds), "stored", stored)
	}
	metrics.IngestRuns.WithLabelValues("ok").Inc()
	return nil
}

func (p *Ingest) ingestItem(ctx context.Context, publisher string, item domain.FeedItem) (bool, error) {
	exists, err := p.articles.ArticleExistsByURL(ctx, item.URL)
	if err != nil {
		return false, fmt.Errorf("dedup lookup: %w", err)
	}
	if exists {
		return false, nil
	}

	content, author, err := p.extractor.Extract(ctx, item.URL, publisher)
	if err != nil {
		return false, fmt.Errorf("extract: %w", err)
	}
	if content == "" {
		return false, nil
	}
	content = capContent(content)

	article := domain.Article{
		Headline:    item.Title,
		Content:     content,
		URL:         item.URL,
		Publisher:   publisher,
		Author:      author,
		PublishedAt: item.PublishedAt.UTC(),
		Active:      true,
	}

	if err := p.articles.AppendArticle(ctx, article); err != nil {
		return false, fmt.Errorf("append article: %w", err)
	}

	return true, nil
}

// capContent truncates to MaxContentLength characters. The limit counts
// runes, not bytes, so Devanagari and other multi-byte scripts keep their
// full budget and the cut never lands inside a rune.
func capContent(s string) string {
	if len(s) <= domain.MaxContentLength {
		return s
	}
	runes := []rune(s)
	if len(runes) <= domain.MaxContentLength {
		return s
	}
	return string(runes[:domain.MaxContentLength])
}

func (p *Ingest) sleep(ctx context.Context) error {
	if p.pace <= 0 {
		return nil
	}

	timer := time.NewTimer(p.pace)
	defer timer.Stop()

	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (p *Ingest) warn(msg string, args ...any) {
	if p.logger != nil {
		p.logger.Warn(msg, args...)
	}
}
