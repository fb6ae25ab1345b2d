package ledger

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/edopalomino/generate-startupcafe/pkg/domain"
)

var (
	// ErrMissingMeta is returned when the metadata artifact does not exist.
	ErrMissingMeta = errors.New("episode metadata file not found")
	// ErrInvalidMeta is returned when the metadata artifact cannot be used.
	ErrInvalidMeta = errors.New("episode metadata file is invalid")
)

// MetaPath returns the artifact path for a run's metadata.
func MetaPath(dir, runID string) string {
	return filepath.Join(dir, fmt.Sprintf("episode-meta-%s.json", runID))
}

// WriteMeta stores the metadata artifact as indented JSON.
func WriteMeta(path string, meta domain.EpisodeMeta) error {
	data, err := json.MarshalIndent(meta, "", "  ")
	if err != nil {
		return fmt.Errorf("encode metadata: %w", err)
	}
	return writeFileAtomic(path, data)
}

// ReadMeta loads the metadata artifact the ledger step consumes.
func ReadMeta(path string) (domain.EpisodeMeta, error) {
	if strings.TrimSpace(path) == "" {
		return domain.EpisodeMeta{}, fmt.Errorf("%w: no path given", ErrMissingMeta)
	}
	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return domain.EpisodeMeta{}, fmt.Errorf("%w: %s", ErrMissingMeta, path)
	}
	if err != nil {
		return domain.EpisodeMeta{}, fmt.Errorf("read metadata %s: %w", path, err)
	}

	var meta domain.EpisodeMeta
	if err := json.Unmarshal(data, &meta); err != nil {
		return domain.EpisodeMeta{}, fmt.Errorf("%w: %s: %v", ErrInvalidMeta, path, err)
	}
	if strings.TrimSpace(meta.URL) == "" {
		return domain.EpisodeMeta{}, fmt.Errorf("%w: %s: url is empty", ErrInvalidMeta, path)
	}
	return meta, nil
}
