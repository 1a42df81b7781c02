package extract

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	readability "github.com/go-shiori/go-readability"

	"newsreview/internal/cleanup"
	"newsreview/internal/ports"
)

const maxPageBytes = 5 << 20

// Extractor downloads article pages and distills them to raw text, then
// applies the publisher's cleanup strategy. Readability does the heavy
// lifting; pages it cannot parse fall back to plain paragraph scraping.
type Extractor struct {
	client   *http.Client
	cleaners *cleanup.Registry
	logger   *slog.Logger
}

var _ ports.Extractor = (*Extractor)(nil)

// New wires an HTTP client and cleaner registry; a nil client gets a 10s
// timeout default, a nil registry the default publisher strategies.
func New(client *http.Client, cleaners *cleanup.Registry, logger *slog.Logger) *Extractor {
	if client == nil {
		client = &http.Client{Timeout: 10 * time.Second}
	}
	if cleaners == nil {
		cleaners = cleanup.Defaults()
	}
	return &Extractor{client: client, cleaners: cleaners, logger: logger}
}

// Extract fetches the page and returns its cleaned body text plus the
// detected byline, if any.
func (e *Extractor) Extract(ctx context.Context, pageURL, publisher string) (string, string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, pageURL, nil)
	if err != nil {
		return "", "", fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("User-Agent", "newsreview/1.0")

	resp, err := e.client.Do(req)
	if err != nil {
		return "", "", fmt.Errorf("fetch page: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", "", fmt.Errorf("page returned %s", resp.Status)
	}

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxPageBytes))
	if err != nil {
		return "", "", fmt.Errorf("read page: %w", err)
	}

	parsed, err := url.Parse(pageURL)
	if err != nil {
		return "", "", fmt.Errorf("invalid page url %s: %w", pageURL, err)
	}

	text, author := e.readable(raw, parsed)
	if strings.TrimSpace(text) == "" {
		text, err = paragraphText(raw)
		if err != nil {
			return "", "", fmt.Errorf("parse page: %w", err)
		}
	}

	return e.cleaners.Clean(publisher, text), author, nil
}

func (e *Extractor) readable(raw []byte, pageURL *url.URL) (string, string) {
	article, err := readability.FromReader(bytes.NewReader(raw), pageURL)
	if err != nil {
		if e.logger != nil {
			e.logger.Debug("readability failed, falling back to paragraphs", "url", pageURL.String(), "error", err)
		}
		return "", ""
	}
	return article.TextContent, strings.TrimSpace(article.Byline)
}

// paragraphText joins the page's <p> contents, one per line, for pages
// readability gives up on.
func paragraphText(raw []byte) (string, error) {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(raw))
	if err != nil {
		return "", err
	}

	var lines []string
	doc.Find("p").Each(func(i int, p *goquery.Selection) {
		if text := strings.TrimSpace(p.Text()); text != "" {
			lines = append(lines, text)
		}
	})
	return strings.Join(lines, "\n"), nil
}
