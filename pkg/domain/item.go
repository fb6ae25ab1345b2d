package domain

import "time"

// CandidateItem is a news item collected from a feed
type CandidateItem struct {
	Title       string
	Link        string // optional
	Summary     string // optional, plain text
	PublishedAt time.Time
	Feed        string // feed URL the item came from
}

// Key returns the identity used for deduplication: the link when present, otherwise the title.
func (c CandidateItem) Key() string {
	if c.Link != "" {
		return c.Link
	}
	return c.Title
}

// BodySource records where an enriched body came from
type BodySource string

const (
	// BodyFromSummary means the feed summary was long enough to be used as-is.
	BodyFromSummary BodySource = "summary"
	// BodyFromArticle means the body was extracted from the linked page.
	BodyFromArticle BodySource = "article"
	// BodyNone means extraction failed or was impossible; the body is empty.
	BodyNone BodySource = "none"
)

// EnrichedItem is a CandidateItem with a bounded body text.
//
// ExtractErr is set when extraction was attempted and failed. The item still
// proceeds with an empty body in that case.
type EnrichedItem struct {
	CandidateItem
	Body       string
	BodySource BodySource
	ExtractErr error
}
