// File: internal/usecase/stage_error.go
package usecase

import (
	"errors"
	"fmt"
)

// Stage names the pipeline step an orchestrator failure happened in.
type Stage string

const (
	StageValidate Stage = "validate"
	StageChunk    Stage = "chunk"
	StageEmbed    Stage = "embed"
	StageIndex    Stage = "index"
	StageSession  Stage = "session"
	StageRetrieve Stage = "retrieve"
	StageGenerate Stage = "generate"
)

// StageError reports which step of Op failed. It unwraps to the cause so
// domain.KindOf keeps working on it.
type StageError struct {
	Op    string
	Stage Stage
	Err   error
}

func (e *StageError) Error() string {
	return fmt.Sprintf("%s: %s: %v", e.Op, e.Stage, e.Err)
}

func (e *StageError) Unwrap() error { return e.Err }

func stageErr(op string, stage Stage, err error) error {
	return &StageError{Op: op, Stage: stage, Err: err}
}

// StageOf returns the failed stage if err carries one.
func StageOf(err error) (Stage, bool) {
	var se *StageError
	if errors.As(err, &se) {
		return se.Stage, true
	}
	return "", false
}
