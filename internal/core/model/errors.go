package model

import (
	"errors"
	"fmt"
)

// ErrUnknownStage is returned by the stage registry for names it has no
// definition for.
var ErrUnknownStage = errors.New("unknown stage")

// MissingDependencyError means the assembler needed an artifact that was
// never committed. Always an orchestration ordering bug, always fatal.
type MissingDependencyError struct {
	Stage string
	Key   string
}

func (e *MissingDependencyError) Error() string {
	return fmt.Sprintf("stage %s: missing dependency %q", e.Stage, e.Key)
}

// OracleError wraps a transient oracle failure after the retry budget for
// one step is spent.
type OracleError struct {
	Stage    string
	Attempts int
	Err      error
}

func (e *OracleError) Error() string {
	return fmt.Sprintf("oracle failed for stage %s after %d attempts: %v", e.Stage, e.Attempts, e.Err)
}

func (e *OracleError) Unwrap() error {
	return e.Err
}

// SchemaError means the oracle returned an artifact that fails structural
// parsing (malformed timeline JSON, missing section fields). Retried the
// same way as any other oracle failure.
type SchemaError struct {
	Stage  string
	Reason string
}

func (e *SchemaError) Error() string {
	return fmt.Sprintf("stage %s returned malformed artifact: %s", e.Stage, e.Reason)
}

// ValidationExhaustedError means a checkpoint kept failing past its
// regeneration retry budget. Fatal for the story instance.
type ValidationExhaustedError struct {
	Checkpoint string
	Attempts   int
	Feedback   string
}

func (e *ValidationExhaustedError) Error() string {
	return fmt.Sprintf("validation exhausted at checkpoint %s after %d attempts: %s", e.Checkpoint, e.Attempts, e.Feedback)
}
