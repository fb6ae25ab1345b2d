// Package replication mirrors a published episode into the optional
// database sinks. The local catalog file stays the authoritative record:
// every mirror failure is reported to the caller but never undoes the publish.
package replication

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/edopalomino/generate-startupcafe/pkg/domain"
	"github.com/edopalomino/generate-startupcafe/pkg/logging"
)

// Episode is what gets mirrored for one run.
type Episode struct {
	RunID    string
	Record   domain.EpisodeRecord
	Articles []*domain.Article
}

// ArticleStore archives the source articles of an episode.
type ArticleStore interface {
	SaveArticles(ctx context.Context, articles []*domain.Article) error
}

// EpisodeSink stores the catalog record of an episode.
type EpisodeSink interface {
	Name() string
	SaveEpisode(ctx context.Context, ep Episode) error
}

// Config wires the replication dependencies. Every field is optional.
type Config struct {
	Articles ArticleStore
	Sinks    []EpisodeSink
	// Timeout bounds each sink write. Zero means no extra bound.
	Timeout time.Duration
}

// Replicator fans an episode out to the configured sinks.
type Replicator struct {
	articles ArticleStore
	sinks    []EpisodeSink
	timeout  time.Duration
	log      logrus.FieldLogger
}

func NewReplicator(cfg Config, log logrus.FieldLogger) *Replicator {
	return &Replicator{
		articles: cfg.Articles,
		sinks:    cfg.Sinks,
		timeout:  cfg.Timeout,
		log:      logging.Component(log, "mirror"),
	}
}

// Enabled reports whether any sink is configured.
func (r *Replicator) Enabled() bool {
	return r != nil && (r.articles != nil || len(r.sinks) > 0)
}

// Replicate writes ep to every sink. All sinks are attempted; the returned
// error joins the individual failures.
func (r *Replicator) Replicate(ctx context.Context, ep Episode) error {
	if !r.Enabled() {
		return nil
	}

	var errs []error
	if r.articles != nil && len(ep.Articles) > 0 {
		err := r.withTimeout(ctx, func(ctx context.Context) error {
			return r.articles.SaveArticles(ctx, ep.Articles)
		})
		if err != nil {
			r.log.WithError(err).WithField("articles", len(ep.Articles)).Warn("Article archive failed")
			errs = append(errs, fmt.Errorf("archive articles: %w", err))
		} else {
			r.log.WithField("articles", len(ep.Articles)).Info("Articles archived")
		}
	}

	for _, sink := range r.sinks {
		err := r.withTimeout(ctx, func(ctx context.Context) error {
			return sink.SaveEpisode(ctx, ep)
		})
		fields := logrus.Fields{"sink": sink.Name(), "episodio": ep.Record.Episodio}
		if err != nil {
			r.log.WithError(err).WithFields(fields).Warn("Episode mirror failed")
			errs = append(errs, fmt.Errorf("mirror to %s: %w", sink.Name(), err))
			continue
		}
		r.log.WithFields(fields).Info("Episode mirrored")
	}
	return errors.Join(errs...)
}

func (r *Replicator) withTimeout(ctx context.Context, fn func(context.Context) error) error {
	if r.timeout <= 0 {
		return fn(ctx)
	}
	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()
	return fn(ctx)
}
