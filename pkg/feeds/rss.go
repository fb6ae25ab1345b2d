package feeds

import (
	"bytes"
	"fmt"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/mmcdole/gofeed"

	"github.com/edopalomino/generate-startupcafe/pkg/domain"
)

// RSSParser handles RSS/Atom feed parsing operations
type RSSParser struct {
	feedParser *gofeed.Parser
}

// NewRSSParser creates a new RSS parser
func NewRSSParser() *RSSParser {
	return &RSSParser{
		feedParser: gofeed.NewParser(),
	}
}

// Parse converts a fetched RSS/Atom document into candidate items in document order.
// fetchedAt stands in for items that carry no publish or update timestamp.
func (p *RSSParser) Parse(feedURL string, body []byte, fetchedAt time.Time) ([]domain.CandidateItem, error) {
	feed, err := p.feedParser.Parse(bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to parse feed: %w", err)
	}
	if feed == nil {
		return nil, fmt.Errorf("feed is empty")
	}

	items := make([]domain.CandidateItem, 0, len(feed.Items))
	for _, item := range feed.Items {
		if item == nil {
			continue
		}
		candidate := domain.CandidateItem{
			Title:       strings.TrimSpace(item.Title),
			Link:        strings.TrimSpace(item.Link),
			Summary:     snippet(item),
			PublishedAt: publishedAt(item, fetchedAt),
			Feed:        feedURL,
		}
		// An item with neither title nor link has no identity.
		if candidate.Key() == "" {
			continue
		}
		items = append(items, candidate)
	}
	return items, nil
}

func publishedAt(item *gofeed.Item, fallback time.Time) time.Time {
	if item.PublishedParsed != nil {
		return *item.PublishedParsed
	}
	if item.UpdatedParsed != nil {
		return *item.UpdatedParsed
	}
	return fallback
}

// snippet returns the item description (or content) as plain text.
func snippet(item *gofeed.Item) string {
	raw := item.Description
	if strings.TrimSpace(raw) == "" {
		raw = item.Content
	}
	return StripMarkup(raw)
}

// StripMarkup removes HTML tags and collapses whitespace.
func StripMarkup(raw string) string {
	if strings.TrimSpace(raw) == "" {
		return ""
	}
	text := raw
	if strings.ContainsAny(raw, "<&") {
		doc, err := goquery.NewDocumentFromReader(strings.NewReader(raw))
		if err == nil {
			text = doc.Text()
		}
	}
	return strings.Join(strings.Fields(text), " ")
}
