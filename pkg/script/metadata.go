package script

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/sirupsen/logrus"

	"github.com/edopalomino/generate-startupcafe/pkg/domain"
	"github.com/edopalomino/generate-startupcafe/pkg/llm"
	"github.com/edopalomino/generate-startupcafe/pkg/logging"
)

// ErrMetadataParse is returned when the metadata answer is not exactly one valid object.
var ErrMetadataParse = errors.New("metadata response is not a valid titulo/descripcion object")

const maxTitleWords = 8

// ParseMetadata strictly decodes a single JSON object with non-empty
// titulo and descripcion and nothing else.
func ParseMetadata(raw string) (domain.EpisodeMetadata, error) {
	var meta domain.EpisodeMetadata

	trimmed := strings.TrimSpace(raw)
	if !strings.HasPrefix(trimmed, "{") {
		return meta, fmt.Errorf("%w: response does not start with an object", ErrMetadataParse)
	}

	dec := json.NewDecoder(bytes.NewReader([]byte(trimmed)))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&meta); err != nil {
		return domain.EpisodeMetadata{}, fmt.Errorf("%w: %v", ErrMetadataParse, err)
	}
	if _, err := dec.Token(); err != io.EOF {
		return domain.EpisodeMetadata{}, fmt.Errorf("%w: trailing data after object", ErrMetadataParse)
	}

	meta.Titulo = strings.TrimSpace(meta.Titulo)
	meta.Descripcion = strings.TrimSpace(meta.Descripcion)
	if meta.Titulo == "" {
		return domain.EpisodeMetadata{}, fmt.Errorf("%w: titulo is empty", ErrMetadataParse)
	}
	if meta.Descripcion == "" {
		return domain.EpisodeMetadata{}, fmt.Errorf("%w: descripcion is empty", ErrMetadataParse)
	}
	return meta, nil
}

// Deriver produces episode metadata with a second text request.
type Deriver struct {
	gen llm.TextGenerator
	log logrus.FieldLogger
}

// NewDeriver creates a deriver.
func NewDeriver(gen llm.TextGenerator, log logrus.FieldLogger) *Deriver {
	return &Deriver{gen: gen, log: logging.Component(log, "metadata")}
}

// Derive asks for a title and description and parses the answer strictly.
// A parse failure is returned, never replaced with defaults.
func (d *Deriver) Derive(ctx context.Context, script string) (domain.EpisodeMetadata, error) {
	raw, err := d.gen.Generate(ctx, BuildMetadataPrompt(script))
	if err != nil {
		if errors.Is(err, llm.ErrEmptyResponse) {
			return domain.EpisodeMetadata{}, fmt.Errorf("%w: %v", ErrMetadataParse, err)
		}
		return domain.EpisodeMetadata{}, fmt.Errorf("generate metadata: %w", err)
	}

	meta, err := ParseMetadata(raw)
	if err != nil {
		d.log.WithField("response", raw).Error("Could not parse metadata response")
		return domain.EpisodeMetadata{}, err
	}

	if words := len(strings.Fields(meta.Titulo)); words > maxTitleWords {
		d.log.WithField("words", words).Warn("Title is longer than requested")
	}
	d.log.WithField("titulo", meta.Titulo).Info("Episode metadata derived")
	return meta, nil
}
