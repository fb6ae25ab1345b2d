package pipeline

import (
	"errors"
	"fmt"
	"strings"
)

var (
	ErrNoContent       = errors.New("no content")
	ErrExternalService = errors.New("external service error")
	ErrValidation      = errors.New("validation error")
	ErrPersistence     = errors.New("persistence error")
	ErrConfiguration   = errors.New("configuration error")
)

// Wrap tags err with a marker and the stage it failed in. The marker should
// be one of the sentinels above; nil defaults to ErrExternalService.
func Wrap(marker error, stage string, err error) error {
	if marker == nil {
		marker = ErrExternalService
	}
	stage = strings.TrimSpace(stage)
	if stage == "" {
		stage = "pipeline"
	}
	if err != nil {
		return fmt.Errorf("%w: %s: %w", marker, stage, err)
	}
	return fmt.Errorf("%w: %s", marker, stage)
}
