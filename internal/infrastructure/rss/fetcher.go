package rss

import (
	"context"
	"encoding/xml"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/araddon/dateparse"

	"newsreview/internal/domain"
	"newsreview/internal/ports"
)

const maxFeedBytes = 10 << 20

// Fetcher pulls and parses publisher feeds. Both RSS 2.0 and Atom
// documents are accepted.
type Fetcher struct {
	client *http.Client
	logger *slog.Logger
}

var _ ports.FeedSource = (*Fetcher)(nil)

// NewFetcher wires an HTTP client; a nil client gets a 15s timeout default.
func NewFetcher(client *http.Client, logger *slog.Logger) *Fetcher {
	if client == nil {
		client = &http.Client{Timeout: 15 * time.Second}
	}
	return &Fetcher{client: client, logger: logger}
}

type rssDocument struct {
	XMLName xml.Name `xml:"rss"`
	Channel struct {
		Items []rssItem `xml:"item"`
	} `xml:"channel"`
}

type rssItem struct {
	Title   string `xml:"title"`
	Link    string `xml:"link"`
	PubDate string `xml:"pubDate"`
	Date    string `xml:"date"`
}

type atomFeed struct {
	XMLName xml.Name    `xml:"feed"`
	Entries []atomEntry `xml:"entry"`
}

type atomEntry struct {
	Title     string     `xml:"title"`
	Links     []atomLink `xml:"link"`
	Published string     `xml:"published"`
	Updated   string     `xml:"updated"`
}

type atomLink struct {
	Href string `xml:"href,attr"`
	Rel  string `xml:"rel,attr"`
}

// Fetch downloads one feed and returns its entries. Entries without a
// parseable publication time carry a zero PublishedAt; the ingest job
// drops those.
func (f *Fetcher) Fetch(ctx context.Context, publisher, feedURL string) ([]domain.FeedItem, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, feedURL, nil)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("User-Agent", "newsreview/1.0")

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch feed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("feed returned %s", resp.Status)
	}

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxFeedBytes))
	if err != nil {
		return nil, fmt.Errorf("read feed: %w", err)
	}

	// A recognized feed with zero entries is a valid, quiet feed; only a
	// document that is neither RSS nor Atom is an error.
	items, ok := f.parseRSS(publisher, raw)
	if !ok {
		items, ok = f.parseAtom(publisher, raw)
	}
	if !ok {
		return nil, fmt.Errorf("feed %s is neither RSS nor Atom", feedURL)
	}

	return items, nil
}

func (f *Fetcher) parseRSS(publisher string, raw []byte) ([]domain.FeedItem, bool) {
	var doc rssDocument
	if err := xml.Unmarshal(raw, &doc); err != nil {
		return nil, false
	}

	items := make([]domain.FeedItem, 0, len(doc.Channel.Items))
	for _, entry := range doc.Channel.Items {
		published := entry.PubDate
		if published == "" {
			published = entry.Date
		}
		items = append(items, domain.FeedItem{
			Title:       strings.TrimSpace(entry.Title),
			URL:         strings.TrimSpace(entry.Link),
			PublishedAt: f.parseTime(publisher, published),
		})
	}
	return items, true
}

func (f *Fetcher) parseAtom(publisher string, raw []byte) ([]domain.FeedItem, bool) {
	var doc atomFeed
	if err := xml.Unmarshal(raw, &doc); err != nil {
		return nil, false
	}

	items := make([]domain.FeedItem, 0, len(doc.Entries))
	for _, entry := range doc.Entries {
		published := entry.Published
		if published == "" {
			published = entry.Updated
		}
		items = append(items, domain.FeedItem{
			Title:       strings.TrimSpace(entry.Title),
			URL:         pickAtomLink(entry.Links),
			PublishedAt: f.parseTime(publisher, published),
		})
	}
	return items, true
}

func pickAtomLink(links []atomLink) string {
	for _, link := range links {
		if link.Rel == "" || link.Rel == "alternate" {
			return strings.TrimSpace(link.Href)
		}
	}
	if len(links) > 0 {
		return strings.TrimSpace(links[0].Href)
	}
	return ""
}

// parseTime handles the zoo of date formats publisher feeds emit.
func (f *Fetcher) parseTime(publisher, value string) time.Time {
	value = strings.TrimSpace(value)
	if value == "" {
		return time.Time{}
	}

	parsed, err := dateparse.ParseAny(value)
	if err != nil {
		if f.logger != nil {
			f.logger.Debug("unparseable feed date", "publisher", publisher, "value", value)
		}
		return time.Time{}
	}
	return parsed.UTC()
}
