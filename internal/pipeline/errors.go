package pipeline

import (
	"errors"

	"stock-oracle/internal/ml/ensemble"
	"stock-oracle/internal/ml/evaluation"
)

var (
	ErrDataUnavailable    = errors.New("data unavailable")
	ErrInsufficientData   = evaluation.ErrInsufficientData
	ErrBackendUnavailable = ensemble.ErrBackendUnavailable
)

const (
	StageFetch   = "fetch"
	StageFeature = "feature"
	StageModel   = "model"
)

// StageError names the pipeline stage a terminal error came from.
type StageError struct {
	Stage string
	Err   error
}

func (e *StageError) Error() string {
	return e.Stage + ": " + e.Err.Error()
}

func (e *StageError) Unwrap() error {
	return e.Err
}

// StageOf reports the stage of err, or "" when err did not come from a stage.
func StageOf(err error) string {
	var se *StageError
	if errors.As(err, &se) {
		return se.Stage
	}
	return ""
}
