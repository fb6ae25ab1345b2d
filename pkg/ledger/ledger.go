// Package ledger maintains the episode catalog: it loads the authoritative
// remote copy (falling back to the local file), assigns the next episode
// number and rewrites the local file.
//
// Appending is not idempotent. Running Append twice with the same metadata
// produces two records, and a remote catalog that lags behind the local file
// wins over it: the two copies are never merged.
package ledger

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/gofrs/flock"
	"github.com/sirupsen/logrus"

	"github.com/edopalomino/generate-startupcafe/pkg/domain"
	"github.com/edopalomino/generate-startupcafe/pkg/httpclient"
	"github.com/edopalomino/generate-startupcafe/pkg/logging"
)

var (
	// ErrCatalogLocked is returned when another run holds the catalog lock.
	ErrCatalogLocked = errors.New("catalog is locked by another run")
	// ErrCorruptLocal is returned when the local fallback exists but cannot be parsed.
	ErrCorruptLocal = errors.New("local catalog is not a valid episode list")

	errNotArray = errors.New("catalog is not a JSON array")
)

// CatalogSource names where the working catalog came from.
type CatalogSource string

const (
	SourceRemote CatalogSource = "remote"
	SourceLocal  CatalogSource = "local"
	SourceEmpty  CatalogSource = "empty"
)

// Fetcher retrieves the remote catalog document.
type Fetcher interface {
	GetWithRetry(ctx context.Context, url string) (*httpclient.Response, error)
}

// Config locates the two catalog copies.
type Config struct {
	// RemoteURL may be empty to use the local copy only.
	RemoteURL string
	LocalPath string
	// Timeout bounds the remote fetch.
	Timeout time.Duration
}

// AppendResult describes a completed append.
type AppendResult struct {
	Record  domain.EpisodeRecord
	Source  CatalogSource
	Catalog domain.Catalog
	// RemoteErr is why the remote copy was not used, if it was configured.
	RemoteErr error
}

// Ledger is the catalog updater.
type Ledger struct {
	fetcher Fetcher
	cfg     Config
	log     logrus.FieldLogger
}

// New creates a ledger.
func New(fetcher Fetcher, cfg Config, log logrus.FieldLogger) *Ledger {
	return &Ledger{
		fetcher: fetcher,
		cfg:     cfg,
		log:     logging.Component(log, "ledger"),
	}
}

// Load returns the working catalog: the remote copy when it can be fetched
// and parsed, otherwise the local file, otherwise an empty catalog.
func (l *Ledger) Load(ctx context.Context) (domain.Catalog, CatalogSource, error) {
	res, err := l.load(ctx)
	if err != nil {
		return nil, "", err
	}
	return res.catalog, res.source, nil
}

type loadResult struct {
	catalog   domain.Catalog
	source    CatalogSource
	remoteErr error
}

func (l *Ledger) load(ctx context.Context) (loadResult, error) {
	remote, remoteErr := l.fetchRemote(ctx)
	if remoteErr == nil && remote != nil {
		l.log.WithFields(logrus.Fields{"source": SourceRemote, "episodes": len(remote)}).Info("Catalog loaded")
		return loadResult{catalog: remote, source: SourceRemote}, nil
	}
	if remoteErr != nil {
		l.log.WithError(remoteErr).WithField("url", l.cfg.RemoteURL).Warn("Remote catalog unavailable, using local copy")
	}

	local, err := ReadCatalog(l.cfg.LocalPath)
	if errors.Is(err, os.ErrNotExist) {
		l.log.WithFields(logrus.Fields{"source": SourceEmpty, "path": l.cfg.LocalPath}).Warn("No catalog available, starting from an empty one")
		return loadResult{catalog: domain.Catalog{}, source: SourceEmpty, remoteErr: remoteErr}, nil
	}
	if err != nil {
		return loadResult{}, err
	}
	l.log.WithFields(logrus.Fields{"source": SourceLocal, "episodes": len(local), "path": l.cfg.LocalPath}).Info("Catalog loaded")
	return loadResult{catalog: local, source: SourceLocal, remoteErr: remoteErr}, nil
}

// fetchRemote returns (nil, nil) when no remote is configured.
func (l *Ledger) fetchRemote(ctx context.Context) (domain.Catalog, error) {
	if l.cfg.RemoteURL == "" || l.fetcher == nil {
		return nil, nil
	}
	if l.cfg.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, l.cfg.Timeout)
		defer cancel()
	}

	resp, err := l.fetcher.GetWithRetry(ctx, l.cfg.RemoteURL)
	if err != nil {
		return nil, fmt.Errorf("fetch remote catalog: %w", err)
	}
	catalog, err := DecodeCatalog(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("parse remote catalog: %w", err)
	}
	return catalog, nil
}

// Append adds one record for meta and rewrites the local catalog. The whole
// sequence holds an advisory lock next to the local file.
func (l *Ledger) Append(ctx context.Context, meta domain.EpisodeMeta) (AppendResult, error) {
	if l.cfg.LocalPath == "" {
		return AppendResult{}, errors.New("ledger: local catalog path required")
	}
	if err := os.MkdirAll(filepath.Dir(l.cfg.LocalPath), 0o755); err != nil {
		return AppendResult{}, fmt.Errorf("create catalog dir: %w", err)
	}

	lock := flock.New(l.cfg.LocalPath + ".lock")
	locked, err := lock.TryLock()
	if err != nil {
		return AppendResult{}, fmt.Errorf("lock catalog: %w", err)
	}
	if !locked {
		return AppendResult{}, fmt.Errorf("%w: %s", ErrCatalogLocked, lock.Path())
	}
	defer lock.Unlock()

	loaded, err := l.load(ctx)
	if err != nil {
		return AppendResult{}, err
	}
	catalog := loaded.catalog

	record := domain.EpisodeRecord{
		Episodio:    NextEpisodeNumber(catalog),
		Titulo:      meta.Titulo,
		Descripcion: meta.Descripcion,
		URL:         meta.URL,
	}
	updated := make(domain.Catalog, 0, len(catalog)+1)
	updated = append(updated, catalog...)
	updated = append(updated, record)

	if err := WriteCatalog(l.cfg.LocalPath, updated); err != nil {
		return AppendResult{}, err
	}

	l.log.WithFields(logrus.Fields{
		"episodio": record.Episodio,
		"titulo":   record.Titulo,
		"url":      record.URL,
		"source":   loaded.source,
		"episodes": len(updated),
	}).Info("Episode appended to catalog")

	return AppendResult{Record: record, Source: loaded.source, Catalog: updated, RemoteErr: loaded.remoteErr}, nil
}

// NextEpisodeNumber is max(episodio)+1, or 1 for an empty catalog.
func NextEpisodeNumber(c domain.Catalog) int {
	highest, ok := c.MaxEpisode()
	if !ok {
		return 1
	}
	return highest + 1
}

// DecodeCatalog parses a JSON array of records.
func DecodeCatalog(data []byte) (domain.Catalog, error) {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 || trimmed[0] != '[' {
		return nil, errNotArray
	}
	var catalog domain.Catalog
	if err := json.Unmarshal(trimmed, &catalog); err != nil {
		return nil, err
	}
	if catalog == nil {
		catalog = domain.Catalog{}
	}
	return catalog, nil
}

// ReadCatalog loads a local catalog file. A missing file yields an error
// matching os.ErrNotExist; an unparseable one yields ErrCorruptLocal.
func ReadCatalog(path string) (domain.Catalog, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	catalog, err := DecodeCatalog(data)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrCorruptLocal, path, err)
	}
	return catalog, nil
}

// WriteCatalog replaces path with the catalog as 2-space indented JSON.
// The file is written to a temporary sibling and renamed into place.
func WriteCatalog(path string, c domain.Catalog) error {
	if c == nil {
		c = domain.Catalog{}
	}
	data, err := json.MarshalIndent(c, "", "  ")
	if err != nil {
		return fmt.Errorf("encode catalog: %w", err)
	}
	return writeFileAtomic(path, data)
}

func writeFileAtomic(path string, data []byte) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create dir %s: %w", dir, err)
	}

	tmp, err := os.CreateTemp(dir, "."+filepath.Base(path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	tmpName := tmp.Name()
	cleanup := func() { _ = os.Remove(tmpName) }

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		cleanup()
		return fmt.Errorf("write %s: %w", tmpName, err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		cleanup()
		return fmt.Errorf("sync %s: %w", tmpName, err)
	}
	if err := tmp.Close(); err != nil {
		cleanup()
		return fmt.Errorf("close %s: %w", tmpName, err)
	}
	if err := os.Chmod(tmpName, 0o644); err != nil {
		cleanup()
		return fmt.Errorf("chmod %s: %w", tmpName, err)
	}
	if err := os.Rename(tmpName, path); err != nil {
		cleanup()
		return fmt.Errorf("replace %s: %w", path, err)
	}
	return nil
}
