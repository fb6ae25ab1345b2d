// Package feeds polls the configured syndication feeds and selects the recent,
// distinct candidate items an episode is built from.
package feeds

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/edopalomino/generate-startupcafe/pkg/domain"
	"github.com/edopalomino/generate-startupcafe/pkg/filter"
	"github.com/edopalomino/generate-startupcafe/pkg/httpclient"
	"github.com/edopalomino/generate-startupcafe/pkg/logging"
)

// ErrNoRecentItems is returned when no source yields a recent item.
var ErrNoRecentItems = errors.New("no recent items across all configured sources")

// Fetcher retrieves a feed document.
type Fetcher interface {
	GetWithRetry(ctx context.Context, url string) (*httpclient.Response, error)
}

// SourceFailure records a feed that was skipped.
type SourceFailure struct {
	Feed string
	Err  error
}

func (f SourceFailure) Error() string {
	return fmt.Sprintf("%s: %v", f.Feed, f.Err)
}

// CollectResult is the outcome of one collection pass.
type CollectResult struct {
	Items    []domain.CandidateItem
	Failures []SourceFailure
	// Seen is the number of items parsed before filtering.
	Seen int
}

// Options configures a Collector.
type Options struct {
	Feeds    []string
	Window   time.Duration
	MaxItems int
	// Now defaults to time.Now.
	Now func() time.Time
	// Extra filters run after the recency filter and before deduplication.
	Filters []filter.Filter
}

// Collector polls feeds one at a time.
type Collector struct {
	fetcher Fetcher
	parser  *RSSParser
	opts    Options
	log     logrus.FieldLogger
}

// NewCollector creates a collector over the given fetcher.
func NewCollector(fetcher Fetcher, opts Options, log logrus.FieldLogger) *Collector {
	if opts.Now == nil {
		opts.Now = time.Now
	}
	return &Collector{
		fetcher: fetcher,
		parser:  NewRSSParser(),
		opts:    opts,
		log:     logging.Component(log, "feeds"),
	}
}

// Collect fetches every feed in order, keeps recent items, drops duplicates
// (first occurrence wins) and truncates to MaxItems. A failing source is
// recorded and skipped.
func (c *Collector) Collect(ctx context.Context) (CollectResult, error) {
	var result CollectResult
	var all []domain.CandidateItem

	for _, feedURL := range c.opts.Feeds {
		if err := ctx.Err(); err != nil {
			return result, err
		}

		items, err := c.fetchFeed(ctx, feedURL)
		if err != nil {
			c.log.WithError(err).WithField("feed", feedURL).Warn("Skipping feed")
			result.Failures = append(result.Failures, SourceFailure{Feed: feedURL, Err: err})
			continue
		}
		c.log.WithFields(logrus.Fields{"feed": feedURL, "items": len(items)}).Debug("Feed parsed")
		all = append(all, items...)
	}
	result.Seen = len(all)

	recency := filter.NewRecencyFilter(c.opts.Now(), c.opts.Window)
	filters := []filter.Filter{recency}
	filters = append(filters, c.opts.Filters...)
	filters = append(filters, filter.NewDuplicateFilter())

	kept, err := filter.FilterItems(ctx, all, filters...)
	if err != nil {
		return result, err
	}
	if c.opts.MaxItems > 0 && len(kept) > c.opts.MaxItems {
		kept = kept[:c.opts.MaxItems]
	}
	result.Items = kept

	c.log.WithFields(logrus.Fields{
		"feeds":    len(c.opts.Feeds),
		"failed":   len(result.Failures),
		"seen":     result.Seen,
		"selected": len(kept),
		"cutoff":   recency.Cutoff().Format(time.RFC3339),
	}).Info("Collected candidate items")

	if len(kept) == 0 {
		return result, ErrNoRecentItems
	}
	return result, nil
}

func (c *Collector) fetchFeed(ctx context.Context, feedURL string) ([]domain.CandidateItem, error) {
	resp, err := c.fetcher.GetWithRetry(ctx, feedURL)
	if err != nil {
		return nil, err
	}
	return c.parser.Parse(feedURL, resp.Body, c.opts.Now())
}
