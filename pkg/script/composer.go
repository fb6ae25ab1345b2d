// Package script drafts the episode dialogue and derives its title and
// description, both through the generative text service.
package script

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/sirupsen/logrus"

	"github.com/edopalomino/generate-startupcafe/pkg/domain"
	"github.com/edopalomino/generate-startupcafe/pkg/llm"
	"github.com/edopalomino/generate-startupcafe/pkg/logging"
)

// ErrEmptyScript is returned when the generated script has no text.
var ErrEmptyScript = errors.New("generated script is empty")

// ScriptPath returns the artifact path for a run's script.
func ScriptPath(dir, runID string) string {
	return filepath.Join(dir, fmt.Sprintf("episode-script-%s.txt", runID))
}

// Composer drafts the dialogue with one text request.
type Composer struct {
	gen llm.TextGenerator
	dir string
	log logrus.FieldLogger
}

// NewComposer creates a composer writing artifacts under dir.
func NewComposer(gen llm.TextGenerator, dir string, log logrus.FieldLogger) *Composer {
	return &Composer{
		gen: gen,
		dir: dir,
		log: logging.Component(log, "composer"),
	}
}

// Compose requests the script, persists it verbatim and validates the
// persisted copy. The artifact exists even when validation fails.
func (c *Composer) Compose(ctx context.Context, runID string, items []domain.EnrichedItem) (domain.EpisodeScript, error) {
	prompt := BuildScriptPrompt(items)
	c.log.WithFields(logrus.Fields{"items": len(items), "prompt_chars": len(prompt)}).Info("Requesting episode script")

	text, err := c.gen.Generate(ctx, prompt)
	if err != nil && !errors.Is(err, llm.ErrEmptyResponse) {
		return domain.EpisodeScript{}, fmt.Errorf("generate script: %w", err)
	}

	path := ScriptPath(c.dir, runID)
	if err := os.MkdirAll(c.dir, 0o755); err != nil {
		return domain.EpisodeScript{}, fmt.Errorf("create artifact dir: %w", err)
	}
	if err := os.WriteFile(path, []byte(text), 0o644); err != nil {
		return domain.EpisodeScript{}, fmt.Errorf("write script artifact: %w", err)
	}

	persisted, err := os.ReadFile(path)
	if err != nil {
		return domain.EpisodeScript{}, fmt.Errorf("read script artifact: %w", err)
	}
	trimmed := strings.TrimSpace(string(persisted))
	if trimmed == "" {
		return domain.EpisodeScript{}, fmt.Errorf("%w (artifact %s)", ErrEmptyScript, path)
	}

	c.log.WithFields(logrus.Fields{"path": path, "lines": strings.Count(trimmed, "\n") + 1}).Info("Episode script written")
	return domain.EpisodeScript{RunID: runID, Text: trimmed, ArtifactPath: path}, nil
}
