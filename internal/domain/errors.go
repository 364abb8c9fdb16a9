package domain

import (
	"errors"
	"fmt"
)

// Error kinds surfaced by the render pipeline. Match with errors.Is.
var (
	ErrRunNotFound        = errors.New("no published run found")
	ErrVariableNotIndexed = errors.New("variable not indexed")
	ErrTransport          = errors.New("transport error")
	ErrDecodeFailure      = errors.New("decode failure")
	ErrGridMismatch       = errors.New("grid mismatch")
	ErrRenderInProgress   = errors.New("render already in progress")
	ErrUnknownModel       = errors.New("unknown model")
	ErrUnknownVariable    = errors.New("unknown variable")
)

// Pipeline stages, used to label failures.
const (
	StageRun    = "run"
	StageIndex  = "index"
	StageFetch  = "fetch"
	StageDecode = "decode"
	StageRender = "render"
)

// StageError reports which stage of a render failed and at which forecast hour.
type StageError struct {
	Stage        string
	ForecastHour int
	Err          error
}

func (e *StageError) Error() string {
	if e.Stage == StageRun {
		return fmt.Sprintf("%s: %v", e.Stage, e.Err)
	}
	return fmt.Sprintf("%s: F%03d: %v", e.Stage, e.ForecastHour, e.Err)
}

func (e *StageError) Unwrap() error {
	return e.Err
}

// NewStageError wraps err with the stage and forecast hour it occurred at.
func NewStageError(stage string, forecastHour int, err error) *StageError {
	return &StageError{Stage: stage, ForecastHour: forecastHour, Err: err}
}
