package main

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/edopalomino/generate-startupcafe/pkg/config"
	"github.com/edopalomino/generate-startupcafe/pkg/content"
	"github.com/edopalomino/generate-startupcafe/pkg/db"
	"github.com/edopalomino/generate-startupcafe/pkg/feeds"
	"github.com/edopalomino/generate-startupcafe/pkg/filter"
	"github.com/edopalomino/generate-startupcafe/pkg/httpclient"
	"github.com/edopalomino/generate-startupcafe/pkg/ledger"
	"github.com/edopalomino/generate-startupcafe/pkg/llm"
	"github.com/edopalomino/generate-startupcafe/pkg/pipeline"
	"github.com/edopalomino/generate-startupcafe/pkg/replication"
	"github.com/edopalomino/generate-startupcafe/pkg/script"
	"github.com/edopalomino/generate-startupcafe/pkg/social"
	"github.com/edopalomino/generate-startupcafe/pkg/storage"
	"github.com/edopalomino/generate-startupcafe/pkg/tts"
)

const (
	retryBaseDelay = time.Second
	retryMaxDelay  = 10 * time.Second
	connectTimeout = 15 * time.Second
)

// closers releases database connections opened for a run.
type closers []func()

func (c closers) close() {
	for i := len(c) - 1; i >= 0; i-- {
		c[i]()
	}
}

func newCollector(cfg config.Config, log logrus.FieldLogger, extra ...filter.Filter) *feeds.Collector {
	client := httpclient.NewClient(httpclient.FeedClient,
		httpclient.WithTimeout(cfg.FeedTimeout()),
		httpclient.WithRetry(cfg.Feeds.Attempts, retryBaseDelay, retryMaxDelay),
	)
	return feeds.NewCollector(client, feeds.Options{
		Feeds:    cfg.Feeds.URLs,
		Window:   cfg.RecencyWindow(),
		MaxItems: cfg.Feeds.MaxItems,
		Filters:  extra,
	}, log)
}

func newLedger(cfg config.Config, log logrus.FieldLogger) *ledger.Ledger {
	client := httpclient.NewClient(httpclient.APIClient,
		httpclient.WithTimeout(cfg.LedgerTimeout()),
		httpclient.WithRetry(cfg.Ledger.FetchAttempts, retryBaseDelay, retryMaxDelay),
	)
	return ledger.New(client, ledger.Config{
		RemoteURL: cfg.Ledger.RemoteURL,
		LocalPath: cfg.Ledger.LocalPath,
		Timeout:   cfg.LedgerTimeout(),
	}, log)
}

// newMirror connects the configured database sinks. A sink that cannot be
// reached is logged and left out; the run continues without it.
func newMirror(ctx context.Context, cfg config.Config, log logrus.FieldLogger) (*replication.Replicator, *db.Client, closers) {
	var (
		rcfg    = replication.Config{Timeout: connectTimeout}
		archive *db.Client
		cleanup closers
	)

	if cfg.MongoEnabled() {
		cctx, cancel := context.WithTimeout(ctx, connectTimeout)
		client, err := db.NewClient(cctx, cfg.Mirror.MongoURI, cfg.Mirror.MongoDatabase, cfg.Mirror.MongoCollection)
		cancel()
		if err != nil {
			log.WithError(err).Warn("Article archive unavailable")
		} else {
			archive = client
			rcfg.Articles = client
			cleanup = append(cleanup, func() { _ = client.Close(context.Background()) })
		}
	}

	if cfg.PostgresEnabled() {
		pg := db.NewPostgresClient(db.PostgresConfig{DSN: cfg.Mirror.PostgresDSN, Pool: db.PoolConfig{MaxOpenConns: 2}})
		if err := connect(ctx, pg.Connect); err != nil {
			log.WithError(err).Warn("Postgres mirror unavailable")
		} else {
			rcfg.Sinks = append(rcfg.Sinks, replication.NewSQLSink("postgres", pg))
			cleanup = append(cleanup, func() { _ = pg.Close() })
		}
	}

	if cfg.SupabaseEnabled() {
		sb := db.NewSupabaseClient(db.SupabaseConfig{
			URL:      cfg.Mirror.SupabaseURL,
			Key:      cfg.Mirror.SupabaseKey,
			Password: cfg.Mirror.SupabasePassword,
			Pool:     db.PoolConfig{MaxOpenConns: 2},
		})
		switch err := connect(ctx, sb.Connect); {
		case err != nil:
			log.WithError(err).Warn("Supabase mirror unavailable")
		case sb.HasDirectDB():
			rcfg.Sinks = append(rcfg.Sinks, replication.NewSQLSink("supabase", sb))
			cleanup = append(cleanup, func() { _ = sb.Close() })
		default:
			rcfg.Sinks = append(rcfg.Sinks, replication.NewRESTSink(sb.SDK()))
		}
	}

	return replication.NewReplicator(rcfg, log), archive, cleanup
}

func connect(ctx context.Context, fn func(context.Context) error) error {
	ctx, cancel := context.WithTimeout(ctx, connectTimeout)
	defer cancel()
	return fn(ctx)
}

// archivedFilter drops items already archived by an earlier run.
func archivedFilter(ctx context.Context, archive *db.Client, log logrus.FieldLogger) filter.Filter {
	if archive == nil {
		log.Warn("Archive filter requested but the article archive is unavailable")
		return nil
	}
	urls, err := archive.ArchivedURLs(ctx)
	if err != nil {
		log.WithError(err).Warn("Could not load archived URLs, keeping every item")
		return nil
	}
	log.WithField("archived", len(urls)).Info("Skipping archived items")
	return filter.NewAlreadyPublishedFilter(urls)
}

// newRunner builds the full episode pipeline from configuration.
func newRunner(ctx context.Context, cfg config.Config, log logrus.FieldLogger) (*pipeline.Runner, closers, error) {
	if err := errors.Join(cfg.RequireGemini(), cfg.RequireStorage()); err != nil {
		return nil, nil, pipeline.Wrap(pipeline.ErrConfiguration, "credentials", err)
	}

	text, err := llm.NewClient(llm.Config{
		APIKey:  cfg.Gemini.APIKey,
		BaseURL: cfg.Gemini.TextBaseURL,
		Model:   cfg.Gemini.TextModel,
		Timeout: cfg.TextTimeout(),
	})
	if err != nil {
		return nil, nil, pipeline.Wrap(pipeline.ErrConfiguration, "text model", err)
	}

	speech, err := tts.NewSynthesizer(tts.Config{
		APIKey:  cfg.Gemini.APIKey,
		BaseURL: cfg.Gemini.SpeechBaseURL,
		Model:   cfg.Gemini.SpeechModel,
		Timeout: cfg.SpeechTimeout(),
	}, log)
	if err != nil {
		return nil, nil, pipeline.Wrap(pipeline.ErrConfiguration, "speech model", err)
	}

	uploader, err := storage.NewCloudinaryUploader(storage.Config{
		CloudName: cfg.Storage.CloudName,
		APIKey:    cfg.Storage.APIKey,
		APISecret: cfg.Storage.APISecret,
		Folder:    cfg.Storage.Folder,
		Timeout:   cfg.StorageTimeout(),
	}, log)
	if err != nil {
		return nil, nil, pipeline.Wrap(pipeline.ErrConfiguration, "storage", err)
	}

	var announcer pipeline.Announcer = social.Noop{}
	if cfg.SocialEnabled() {
		masto, err := social.NewMastodonAnnouncer(social.Config{
			ServerURL:   cfg.Social.ServerURL,
			AccessToken: cfg.Social.AccessToken,
			Timeout:     cfg.SocialTimeout(),
		}, log)
		if err != nil {
			return nil, nil, pipeline.Wrap(pipeline.ErrConfiguration, "social", err)
		}
		announcer = masto
	}

	mirror, archive, cleanup := newMirror(ctx, cfg, log)

	var extra []filter.Filter
	if cfg.Feeds.SkipArchived {
		if f := archivedFilter(ctx, archive, log); f != nil {
			extra = append(extra, f)
		}
	}

	articleClient := httpclient.NewClient(httpclient.BrowserClient,
		httpclient.WithTimeout(cfg.ArticleTimeout()),
		httpclient.WithRetry(cfg.Feeds.Attempts, retryBaseDelay, retryMaxDelay),
	)

	stages := pipeline.Stages{
		Collector:   newCollector(cfg, log, extra...),
		Enricher:    content.NewEnricher(content.NewWebExtractor(articleClient), cfg.Feeds.SummaryMinChars, cfg.Feeds.MaxBodyChars, log),
		Composer:    script.NewComposer(text, cfg.ArtifactDir, log),
		Synthesizer: speech,
		Uploader:    uploader,
		Deriver:     script.NewDeriver(text, log),
		Ledger:      newLedger(cfg, log),
		Announcer:   announcer,
	}
	if mirror.Enabled() {
		stages.Mirror = mirror
	}

	runner, err := pipeline.NewRunner(stages, pipeline.Options{
		ArtifactDir:    cfg.ArtifactDir,
		PublicIDPrefix: cfg.Storage.PublicIDPrefix,
	}, log)
	if err != nil {
		cleanup.close()
		return nil, nil, fmt.Errorf("build pipeline: %w", err)
	}
	return runner, cleanup, nil
}
