package services

import (
	"errors"
	"fmt"
	"strings"

	"okrproject/progress"
	repository "okrproject/repositories"
)

var (
	ErrNotFound         = repository.ErrNotFound
	ErrConflict         = repository.ErrConflict
	ErrCycle            = progress.ErrCycle
	ErrInvalidInput     = errors.New("invalid input")
	ErrRollupManaged    = errors.New("progress of a rollup objective is computed from its key results and child objectives")
	ErrWeightValidation = errors.New("invalid weight configuration")
)

type WeightValidationError struct {
	Violations []progress.WeightViolation
}

func (e *WeightValidationError) Error() string {
	msgs := make([]string, 0, len(e.Violations))
	for _, v := range e.Violations {
		msgs = append(msgs, v.Message)
	}
	return fmt.Sprintf("%s: %s", ErrWeightValidation, strings.Join(msgs, "; "))
}

func (e *WeightValidationError) Unwrap() error { return ErrWeightValidation }

func invalidf(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrInvalidInput, fmt.Sprintf(format, args...))
}
