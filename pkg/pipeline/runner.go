// Package pipeline runs one episode end to end: collect, enrich, compose,
// synthesize, upload, derive metadata, update the ledger, then the optional
// mirror and announcement. Stages run strictly in sequence.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/edopalomino/generate-startupcafe/pkg/domain"
	"github.com/edopalomino/generate-startupcafe/pkg/feeds"
	"github.com/edopalomino/generate-startupcafe/pkg/ledger"
	"github.com/edopalomino/generate-startupcafe/pkg/logging"
	"github.com/edopalomino/generate-startupcafe/pkg/replication"
	"github.com/edopalomino/generate-startupcafe/pkg/script"
	"github.com/edopalomino/generate-startupcafe/pkg/storage"
)

// Stage names used in errors and logs.
const (
	StageCollect    = "collect"
	StageEnrich     = "enrich"
	StageCompose    = "compose"
	StageSynthesize = "synthesize"
	StageUpload     = "upload"
	StageDerive     = "derive"
	StageMeta       = "meta"
	StageLedger     = "ledger"
	StageMirror     = "mirror"
	StageAnnounce   = "announce"
)

type Collector interface {
	Collect(ctx context.Context) (feeds.CollectResult, error)
}

type Enricher interface {
	Enrich(ctx context.Context, items []domain.CandidateItem) []domain.EnrichedItem
}

type Composer interface {
	Compose(ctx context.Context, runID string, items []domain.EnrichedItem) (domain.EpisodeScript, error)
}

type Synthesizer interface {
	Synthesize(ctx context.Context, script, outPath string) (domain.AudioAsset, error)
}

type Uploader interface {
	Upload(ctx context.Context, path, publicID string) (string, error)
}

type Deriver interface {
	Derive(ctx context.Context, script string) (domain.EpisodeMetadata, error)
}

type Ledger interface {
	Append(ctx context.Context, meta domain.EpisodeMeta) (ledger.AppendResult, error)
}

type Mirror interface {
	Replicate(ctx context.Context, ep replication.Episode) error
}

type Announcer interface {
	Announce(ctx context.Context, caption, url string) (string, error)
}

// Stages holds the stage implementations. Mirror and Announcer may be nil.
type Stages struct {
	Collector   Collector
	Enricher    Enricher
	Composer    Composer
	Synthesizer Synthesizer
	Uploader    Uploader
	Deriver     Deriver
	Ledger      Ledger
	Mirror      Mirror
	Announcer   Announcer
}

// Options configures artifact naming.
type Options struct {
	ArtifactDir    string
	PublicIDPrefix string
	// Now defaults to time.Now.
	Now func() time.Time
	// NewRunID defaults to uuid.NewString.
	NewRunID func() string
}

// Report summarizes a run, including the failures that were recovered from.
type Report struct {
	RunID string

	Collected      int
	SourceFailures []feeds.SourceFailure
	Enriched       int
	ExtractFailed  int

	ScriptPath string
	AudioPath  string
	AudioURL   string
	MetaPath   string

	Metadata      domain.EpisodeMetadata
	Record        domain.EpisodeRecord
	CatalogSource ledger.CatalogSource
	RemoteErr     error

	MirrorErr   error
	StatusURL   string
	AnnounceErr error
}

// Runner executes the stages for one episode.
type Runner struct {
	stages Stages
	opts   Options
	log    logrus.FieldLogger
}

// NewRunner validates that every required stage is present.
func NewRunner(stages Stages, opts Options, log logrus.FieldLogger) (*Runner, error) {
	var missing []error
	check := func(ok bool, name string) {
		if !ok {
			missing = append(missing, fmt.Errorf("%s stage is required", name))
		}
	}
	check(stages.Collector != nil, StageCollect)
	check(stages.Enricher != nil, StageEnrich)
	check(stages.Composer != nil, StageCompose)
	check(stages.Synthesizer != nil, StageSynthesize)
	check(stages.Uploader != nil, StageUpload)
	check(stages.Deriver != nil, StageDerive)
	check(stages.Ledger != nil, StageLedger)
	if err := errors.Join(missing...); err != nil {
		return nil, Wrap(ErrConfiguration, "runner", err)
	}

	if opts.ArtifactDir == "" {
		opts.ArtifactDir = "."
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if opts.NewRunID == nil {
		opts.NewRunID = uuid.NewString
	}
	return &Runner{stages: stages, opts: opts, log: logging.Component(log, "pipeline")}, nil
}

// AudioPath returns the artifact path for a run's audio.
func AudioPath(dir, runID string) string {
	return filepath.Join(dir, fmt.Sprintf("episode-%s.wav", runID))
}

// Run executes one episode. Audio that has been uploaded is never removed;
// errors from later stages name the uploaded URL.
func (r *Runner) Run(ctx context.Context) (Report, error) {
	runID := r.opts.NewRunID()
	report := Report{RunID: runID}
	log := r.log.WithField("run_id", runID)

	if err := os.MkdirAll(r.opts.ArtifactDir, 0o755); err != nil {
		return report, Wrap(ErrPersistence, "artifacts", err)
	}

	log.WithField("stage", StageCollect).Info("Collecting recent items")
	collected, err := r.stages.Collector.Collect(ctx)
	report.SourceFailures = collected.Failures
	if err != nil {
		marker := ErrExternalService
		if errors.Is(err, feeds.ErrNoRecentItems) {
			marker = ErrNoContent
		}
		return report, Wrap(marker, StageCollect, err)
	}
	report.Collected = len(collected.Items)

	log.WithFields(logrus.Fields{"stage": StageEnrich, "items": len(collected.Items)}).Info("Enriching items")
	enriched := r.stages.Enricher.Enrich(ctx, collected.Items)
	report.Enriched = len(enriched)
	for _, item := range enriched {
		if item.ExtractErr != nil {
			report.ExtractFailed++
		}
	}

	log.WithField("stage", StageCompose).Info("Composing script")
	episode, err := r.stages.Composer.Compose(ctx, runID, enriched)
	report.ScriptPath = episode.ArtifactPath
	if err != nil {
		marker := ErrExternalService
		if errors.Is(err, script.ErrEmptyScript) {
			marker = ErrNoContent
		}
		return report, Wrap(marker, StageCompose, err)
	}

	audioPath := AudioPath(r.opts.ArtifactDir, runID)
	log.WithFields(logrus.Fields{"stage": StageSynthesize, "path": audioPath}).Info("Synthesizing audio")
	audio, err := r.stages.Synthesizer.Synthesize(ctx, episode.Text, audioPath)
	if err != nil {
		return report, Wrap(ErrExternalService, StageSynthesize, err)
	}
	report.AudioPath = audio.Path

	publicID := storage.PublicID(r.opts.PublicIDPrefix, r.opts.Now(), runID)
	log.WithFields(logrus.Fields{"stage": StageUpload, "public_id": publicID}).Info("Uploading audio")
	audioURL, err := r.stages.Uploader.Upload(ctx, audio.Path, publicID)
	if err != nil {
		return report, Wrap(ErrExternalService, StageUpload, err)
	}
	report.AudioURL = audioURL
	log = log.WithField("audio_url", audioURL)

	log.WithField("stage", StageDerive).Info("Deriving metadata")
	metadata, err := r.stages.Deriver.Derive(ctx, episode.Text)
	if err != nil {
		marker := ErrExternalService
		if errors.Is(err, script.ErrMetadataParse) {
			marker = ErrValidation
		}
		return report, uploaded(Wrap(marker, StageDerive, err), audioURL)
	}
	report.Metadata = metadata

	metaPath := ledger.MetaPath(r.opts.ArtifactDir, runID)
	report.MetaPath = metaPath
	meta := domain.EpisodeMeta{URL: audioURL, Titulo: metadata.Titulo, Descripcion: metadata.Descripcion}
	if err := ledger.WriteMeta(metaPath, meta); err != nil {
		return report, uploaded(Wrap(ErrPersistence, StageMeta, err), audioURL)
	}
	meta, err = ledger.ReadMeta(metaPath)
	if err != nil {
		return report, uploaded(Wrap(ErrPersistence, StageMeta, err), audioURL)
	}

	log.WithField("stage", StageLedger).Info("Updating catalog")
	appended, err := r.stages.Ledger.Append(ctx, meta)
	if err != nil {
		return report, uploaded(Wrap(ErrPersistence, StageLedger, err), audioURL)
	}
	report.Record = appended.Record
	report.CatalogSource = appended.Source
	report.RemoteErr = appended.RemoteErr
	log = log.WithField("episodio", appended.Record.Episodio)

	if r.stages.Mirror != nil {
		log.WithField("stage", StageMirror).Info("Mirroring episode")
		report.MirrorErr = r.stages.Mirror.Replicate(ctx, replication.Episode{
			RunID:    runID,
			Record:   appended.Record,
			Articles: articles(enriched, runID, r.opts.Now()),
		})
		if report.MirrorErr != nil {
			log.WithError(report.MirrorErr).Warn("Mirror incomplete")
		}
	}

	if r.stages.Announcer != nil {
		log.WithField("stage", StageAnnounce).Info("Announcing episode")
		report.StatusURL, report.AnnounceErr = r.stages.Announcer.Announce(ctx, Caption(appended.Record), audioURL)
		if report.AnnounceErr != nil {
			log.WithError(report.AnnounceErr).Warn("Announcement failed")
		}
	}

	log.WithFields(logrus.Fields{
		"source":          appended.Source,
		"source_failures": len(report.SourceFailures),
		"extract_failed":  report.ExtractFailed,
	}).Info("Episode published")
	return report, nil
}

// Caption is the announcement text for a catalog record.
func Caption(rec domain.EpisodeRecord) string {
	caption := fmt.Sprintf("Episodio %d: %s", rec.Episodio, rec.Titulo)
	if rec.Descripcion != "" {
		caption += "\n\n" + rec.Descripcion
	}
	return caption
}

func uploaded(err error, audioURL string) error {
	return fmt.Errorf("%w (audio already uploaded to %s)", err, audioURL)
}

func articles(items []domain.EnrichedItem, runID string, at time.Time) []*domain.Article {
	out := make([]*domain.Article, 0, len(items))
	for _, item := range items {
		if item.Link == "" {
			continue
		}
		out = append(out, domain.ArticleFromItem(item, runID, at))
	}
	return out
}
