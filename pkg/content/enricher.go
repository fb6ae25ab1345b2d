// Package content turns candidate items into items with a bounded body text,
// using the feed summary when it is substantial and the linked article otherwise.
package content

import (
	"context"
	"unicode/utf8"

	"github.com/sirupsen/logrus"

	"github.com/edopalomino/generate-startupcafe/pkg/domain"
	"github.com/edopalomino/generate-startupcafe/pkg/logging"
)

// Enricher fills item bodies. It never fails a run: extraction errors leave the body empty.
type Enricher struct {
	extractor       Extractor
	summaryMinChars int
	maxBodyChars    int
	log             logrus.FieldLogger
}

// NewEnricher creates an enricher. A summary longer than summaryMinChars runes
// is used as the body; bodies are truncated to maxBodyChars runes.
func NewEnricher(extractor Extractor, summaryMinChars, maxBodyChars int, log logrus.FieldLogger) *Enricher {
	return &Enricher{
		extractor:       extractor,
		summaryMinChars: summaryMinChars,
		maxBodyChars:    maxBodyChars,
		log:             logging.Component(log, "enricher"),
	}
}

// Enrich processes items sequentially, preserving order.
func (e *Enricher) Enrich(ctx context.Context, items []domain.CandidateItem) []domain.EnrichedItem {
	out := make([]domain.EnrichedItem, 0, len(items))
	for _, item := range items {
		out = append(out, e.enrichOne(ctx, item))
	}
	return out
}

func (e *Enricher) enrichOne(ctx context.Context, item domain.CandidateItem) domain.EnrichedItem {
	enriched := domain.EnrichedItem{CandidateItem: item, BodySource: domain.BodyNone}
	entry := e.log.WithField("item", item.Key())

	if utf8.RuneCountInString(item.Summary) > e.summaryMinChars {
		enriched.Body = TruncateRunes(item.Summary, e.maxBodyChars)
		enriched.BodySource = domain.BodyFromSummary
		entry.Debug("Using feed summary")
		return enriched
	}

	if item.Link == "" {
		enriched.ExtractErr = errEmptyLink
		entry.Warn("No link to extract from; body left empty")
		return enriched
	}

	text, err := e.extractor.Extract(ctx, item.Link)
	if err != nil {
		enriched.ExtractErr = err
		entry.WithError(err).Warn("Article extraction failed; body left empty")
		return enriched
	}

	enriched.Body = TruncateRunes(text, e.maxBodyChars)
	enriched.BodySource = domain.BodyFromArticle
	entry.WithField("chars", utf8.RuneCountInString(enriched.Body)).Debug("Extracted article text")
	return enriched
}

// TruncateRunes returns at most the first n runes from s, preserving UTF-8 correctness.
func TruncateRunes(s string, n int) string {
	if n <= 0 {
		return ""
	}
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	count := 0
	for i := range s {
		if count == n {
			return s[:i]
		}
		count++
	}
	return s
}
